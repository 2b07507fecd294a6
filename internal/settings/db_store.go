package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

// Rows is the persistence the database store needs.
type Rows interface {
	List(ctx context.Context) ([]domain.Setting, error)
	UpsertAll(ctx context.Context, values map[string]string) error
}

// DBStore keeps one row per key. Saves upsert the whole recognised key set in
// a single transaction.
type DBStore struct {
	rows Rows
	mu   sync.Mutex
}

func NewDBStore(rows Rows) *DBStore {
	return &DBStore{rows: rows}
}

func (s *DBStore) Mode() Mode { return ModeDatabase }

func (s *DBStore) Load(ctx context.Context) (Settings, error) {
	list, err := s.rows.List(ctx)
	if err != nil {
		observability.RecordSettingsEvent(ctx, string(ModeDatabase), "load", "error")
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	values := make(map[string]string, len(list))
	for _, row := range list {
		values[row.Key] = row.Value
	}
	observability.RecordSettingsEvent(ctx, string(ModeDatabase), "load", "success")
	return FromMap(values), nil
}

func (s *DBStore) Save(ctx context.Context, in Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rows.UpsertAll(ctx, in.ToMap()); err != nil {
		observability.RecordSettingsEvent(ctx, string(ModeDatabase), "save", "error")
		return fmt.Errorf("save settings: %w", err)
	}
	observability.RecordSettingsEvent(ctx, string(ModeDatabase), "save", "success")
	return nil
}
