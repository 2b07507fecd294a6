package flash

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

const (
	idCookieName = "flash_id"
	storeRedis   = "redis"
)

// RedisStore keeps payloads in a Redis list keyed by an opaque cookie id.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	opts   CookieOptions
}

func NewRedisStore(client redis.UniversalClient, prefix string, opts CookieOptions) *RedisStore {
	if prefix == "" {
		prefix = "flash"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	return &RedisStore{client: client, prefix: prefix, opts: opts}
}

func (s *RedisStore) Put(w http.ResponseWriter, r *http.Request, p Payload) error {
	if p.Empty() {
		return nil
	}
	ctx := r.Context()
	id := s.id(r)
	if id == "" {
		id = uuid.NewString()
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode flash: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key(id), raw)
	pipe.Expire(ctx, s.key(id), s.opts.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RecordFlashEvent(ctx, storeRedis, "put", "error")
		return fmt.Errorf("queue flash: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     idCookieName,
		Value:    id,
		Path:     "/",
		Domain:   s.opts.Domain,
		MaxAge:   int(s.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: s.opts.SameSite,
	})
	observability.RecordFlashEvent(ctx, storeRedis, "put", "success")
	return nil
}

func (s *RedisStore) Pop(_ http.ResponseWriter, r *http.Request) (Payload, error) {
	ctx := r.Context()
	id := s.id(r)
	if id == "" {
		return Payload{}, nil
	}
	pipe := s.client.TxPipeline()
	items := pipe.LRange(ctx, s.key(id), 0, -1)
	pipe.Del(ctx, s.key(id))
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RecordFlashEvent(ctx, storeRedis, "pop", "error")
		return Payload{}, fmt.Errorf("pop flash: %w", err)
	}
	var out Payload
	for _, raw := range items.Val() {
		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		out = out.merge(p)
	}
	outcome := "success"
	if out.Empty() {
		outcome = "empty"
	}
	observability.RecordFlashEvent(ctx, storeRedis, "pop", outcome)
	return out, nil
}

func (s *RedisStore) id(r *http.Request) string {
	c, err := r.Cookie(idCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return strings.ToLower(c.Value)
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":flash:" + id
}
