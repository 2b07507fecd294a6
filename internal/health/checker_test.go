package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
)

type mockChecker struct {
	result CheckResult
}

func (m mockChecker) Check(context.Context) CheckResult {
	return m.result
}

func TestProbeRunnerReady(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 0,
		mockChecker{result: CheckResult{Name: "db", Healthy: true}},
		mockChecker{result: CheckResult{Name: "redis", Healthy: true}},
		nil,
	)
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatal("expected ready")
	}
	if len(results) != 2 {
		t.Fatalf("expected nil checker skipped and 2 results, got %d", len(results))
	}
}

func TestProbeRunnerUnready(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 0,
		mockChecker{result: CheckResult{Name: "db", Healthy: true}},
		mockChecker{result: CheckResult{Name: "redis", Healthy: false, Error: errors.New("down").Error()}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

type slowChecker struct {
	name  string
	delay time.Duration
}

func (s slowChecker) Check(ctx context.Context) CheckResult {
	select {
	case <-time.After(s.delay):
		return CheckResult{Name: s.name, Healthy: true}
	case <-ctx.Done():
		return CheckResult{Name: s.name, Error: ctx.Err().Error()}
	}
}

func TestProbeRunnerChecksConcurrentlyInOrder(t *testing.T) {
	runner := NewProbeRunner(time.Second, 0,
		slowChecker{name: "db", delay: 150 * time.Millisecond},
		slowChecker{name: "redis", delay: 150 * time.Millisecond},
		slowChecker{name: "settings_database", delay: 150 * time.Millisecond},
	)
	start := time.Now()
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatalf("expected ready, got %+v", results)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("expected concurrent checks, took %s", elapsed)
	}
	for i, name := range []string{"db", "redis", "settings_database"} {
		if results[i].Name != name {
			t.Fatalf("result %d: expected %s, got %s", i, name, results[i].Name)
		}
	}
}

func TestProbeRunnerTimesOutSlowChecker(t *testing.T) {
	runner := NewProbeRunner(20*time.Millisecond, 0, slowChecker{name: "storage", delay: time.Second})
	ready, results := runner.Ready(context.Background())
	if ready || results[0].Error == "" {
		t.Fatalf("expected timeout failure, got %+v", results)
	}
}

func TestProbeRunnerStartupGrace(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 2*time.Second,
		mockChecker{result: CheckResult{Name: "db", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready during grace period")
	}
	if len(results) != 1 || results[0].Name != "startup_grace" {
		t.Fatalf("unexpected grace results: %+v", results)
	}

	runner.now = func() time.Time { return runner.startedAt.Add(3 * time.Second) }
	if ready, _ := runner.Ready(context.Background()); !ready {
		t.Fatal("expected ready after grace period")
	}
}

func TestDBChecker(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if res := NewDBChecker(db).Check(context.Background()); !res.Healthy {
		t.Fatalf("expected healthy db, got %+v", res)
	}
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
	if res := NewDBChecker(db).Check(context.Background()); res.Healthy {
		t.Fatal("expected closed db to be unhealthy")
	}
	if NewDBChecker(nil) != nil {
		t.Fatal("expected nil checker for nil db")
	}
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if res := NewRedisChecker(client).Check(context.Background()); !res.Healthy {
		t.Fatalf("expected healthy redis, got %+v", res)
	}
	mr.Close()
	if res := NewRedisChecker(client).Check(context.Background()); res.Healthy || res.Error == "" {
		t.Fatalf("expected unhealthy redis, got %+v", res)
	}
}

func TestSettingsChecker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := settings.NewFileStore(path)
	if err := store.Save(context.Background(), settings.Defaults()); err != nil {
		t.Fatalf("seed settings file: %v", err)
	}
	res := NewSettingsChecker(store).Check(context.Background())
	if !res.Healthy || res.Name != "settings_files" {
		t.Fatalf("expected healthy settings store, got %+v", res)
	}

	if err := os.WriteFile(path, []byte("settings: [unterminated"), 0o600); err != nil {
		t.Fatalf("corrupt settings file: %v", err)
	}
	if res := NewSettingsChecker(store).Check(context.Background()); res.Healthy {
		t.Fatal("expected corrupt settings file to be unhealthy")
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingChecker(t *testing.T) {
	res := NewPingChecker("storage", pingFunc(func(context.Context) error { return errors.New("bucket missing") })).Check(context.Background())
	if res.Healthy || res.Name != "storage" || res.Error != "bucket missing" {
		t.Fatalf("unexpected result: %+v", res)
	}
}
