package settings

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	go_store "github.com/eko/gocache/store/go_cache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	"github.com/gorilla/securecookie"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CachedStore serves loads from a snapshot cache and drops the snapshot on
// every save. Concurrent misses share one backend load. Snapshots are JSON
// strings since the redis store hands values back as strings.
//
// A fill only writes the snapshot when no save landed while it was loading.
// The mail password is sealed before it enters the snapshot.
type CachedStore struct {
	next    Store
	cache   *cache.Cache[string]
	backend string
	key     string
	ttl     time.Duration
	group   singleflight.Group
	sealer  *securecookie.SecureCookie

	mu         sync.Mutex
	generation uint64
}

// NewCachedStore derives the sealing keys from secret.
func NewCachedStore(next Store, c *cache.Cache[string], backend, key, secret string, ttl time.Duration) *CachedStore {
	if key == "" {
		key = "settings:snapshot"
	}
	hashKey := sha256.Sum256([]byte("settings-hash:" + secret))
	blockKey := sha256.Sum256([]byte("settings-block:" + secret))
	sealer := securecookie.New(hashKey[:], blockKey[:]).MaxAge(0)
	return &CachedStore{next: next, cache: c, backend: backend, key: key, ttl: ttl, sealer: sealer}
}

func NewMemoryCache(ttl time.Duration) *cache.Cache[string] {
	client := gocache.New(ttl, 2*ttl)
	return cache.New[string](go_store.NewGoCache(client))
}

func NewRedisCache(client redis.UniversalClient) *cache.Cache[string] {
	return cache.New[string](redis_store.NewRedis(client))
}

func (s *CachedStore) Mode() Mode { return s.next.Mode() }

func (s *CachedStore) Load(ctx context.Context) (Settings, error) {
	if raw, err := s.cache.Get(ctx, s.key); err == nil {
		if loaded, err := s.decode(raw); err == nil {
			observability.RecordSettingsCacheEvent(ctx, s.backend, "hit")
			return loaded, nil
		}
		observability.RecordSettingsCacheEvent(ctx, s.backend, "corrupt")
	} else {
		observability.RecordSettingsCacheEvent(ctx, s.backend, "miss")
	}

	v, err, _ := s.group.Do(s.key, func() (any, error) {
		gen := s.currentGeneration()
		loaded, err := s.next.Load(ctx)
		if err != nil {
			return Settings{}, err
		}
		s.fill(ctx, gen, loaded)
		return loaded, nil
	})
	if err != nil {
		return Settings{}, err
	}
	return v.(Settings), nil
}

func (s *CachedStore) Save(ctx context.Context, in Settings) error {
	if err := s.next.Save(ctx, in); err != nil {
		return err
	}
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
	s.group.Forget(s.key)
	if err := s.cache.Delete(ctx, s.key); err != nil {
		observability.RecordSettingsCacheEvent(ctx, s.backend, "invalidate_error")
	}
	return nil
}

func (s *CachedStore) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// fill stores loaded under the snapshot key unless a save bumped the
// generation since gen was read. The check and the write share the lock so a
// save cannot slip in between them.
func (s *CachedStore) fill(ctx context.Context, gen uint64, loaded Settings) {
	raw, err := s.encode(loaded)
	if err != nil {
		observability.RecordSettingsCacheEvent(ctx, s.backend, "set_error")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		observability.RecordSettingsCacheEvent(ctx, s.backend, "stale_fill")
		return
	}
	if err := s.cache.Set(ctx, s.key, raw, store.WithExpiration(s.ttl)); err != nil {
		observability.RecordSettingsCacheEvent(ctx, s.backend, "set_error")
	}
}

func (s *CachedStore) encode(in Settings) (string, error) {
	values := in.ToMap()
	if pw := values[KeyMailPassword]; pw != "" {
		sealed, err := s.sealer.Encode(KeyMailPassword, pw)
		if err != nil {
			return "", fmt.Errorf("seal mail password: %w", err)
		}
		values[KeyMailPassword] = sealed
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *CachedStore) decode(raw string) (Settings, error) {
	var values map[string]string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return Settings{}, err
	}
	if sealed := values[KeyMailPassword]; sealed != "" {
		var pw string
		if err := s.sealer.Decode(KeyMailPassword, sealed, &pw); err != nil {
			return Settings{}, fmt.Errorf("unseal mail password: %w", err)
		}
		values[KeyMailPassword] = pw
	}
	return FromMap(values), nil
}
