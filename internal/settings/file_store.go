package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

const fileDocumentVersion = 1

type fileDocument struct {
	Version   int               `yaml:"version"`
	UpdatedAt time.Time         `yaml:"updated_at"`
	Settings  map[string]string `yaml:"settings"`
}

// FileStore keeps settings in a single YAML document. Saves replace the file
// with a rename so readers see either the old or the new document.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) Mode() Mode { return ModeFiles }

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (Settings, error) {
	doc, err := s.read()
	if err != nil {
		observability.RecordSettingsEvent(ctx, string(ModeFiles), "load", "error")
		return Settings{}, err
	}
	observability.RecordSettingsEvent(ctx, string(ModeFiles), "load", "success")
	return FromMap(doc.Settings), nil
}

// Save rewrites the recognised keys. Keys the file holds that are not
// recognised are carried over untouched.
func (s *FileStore) Save(ctx context.Context, in Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		observability.RecordSettingsEvent(ctx, string(ModeFiles), "save", "error")
		return err
	}
	if doc.Settings == nil {
		doc.Settings = map[string]string{}
	}
	for k, v := range in.ToMap() {
		doc.Settings[k] = v
	}
	doc.Version = fileDocumentVersion
	doc.UpdatedAt = s.now().UTC()

	if err := s.write(doc); err != nil {
		observability.RecordSettingsEvent(ctx, string(ModeFiles), "save", "error")
		return err
	}
	observability.RecordSettingsEvent(ctx, string(ModeFiles), "save", "success")
	return nil
}

func (s *FileStore) read() (fileDocument, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileDocument{Version: fileDocumentVersion}, nil
	}
	if err != nil {
		return fileDocument{}, fmt.Errorf("read settings file: %w", err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fileDocument{}, fmt.Errorf("decode settings file %s: %w", s.path, err)
	}
	if doc.Version > fileDocumentVersion {
		return fileDocument{}, fmt.Errorf("settings file %s has unsupported version %d", s.path, doc.Version)
	}
	return doc, nil
}

func (s *FileStore) write(doc fileDocument) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp settings file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp settings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
