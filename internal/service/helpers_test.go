package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sandeepkv93/cms-admin-backend/internal/mail"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

// fakeRecords answers unique/exists lookups from fixed sets keyed by
// "table.column=value".
type fakeRecords struct {
	existing map[string]bool
	taken    map[string]uint
}

func (f fakeRecords) Exists(_ context.Context, table, column string, value any) (bool, error) {
	return f.existing[lookupKey(table, column, value)], nil
}

func (f fakeRecords) Taken(_ context.Context, table, column string, value any, ignoreID uint) (bool, error) {
	owner, ok := f.taken[lookupKey(table, column, value)]
	return ok && owner != ignoreID, nil
}

func lookupKey(table, column string, value any) string {
	s, _ := value.(string)
	return table + "." + column + "=" + s
}

func newValidatorForTest(records fakeRecords) *validation.Validator {
	return validation.New(validation.NewRegistry(records, security.VerifyPassword))
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeImages struct {
	mu      sync.Mutex
	enabled bool
	uploads []uint
	deleted []string
	nextKey string
	err     error
}

func (f *fakeImages) Enabled() bool { return f.enabled }

func (f *fakeImages) UploadUserImage(_ context.Context, userID uint, file io.Reader, _ int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.Copy(io.Discard, file)
	f.uploads = append(f.uploads, userID)
	return f.nextKey, nil
}

func (f *fakeImages) DeleteUserImage(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeImages) ImageURL(_ context.Context, key string) (string, error) {
	return "https://img.example.com/" + key, nil
}

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type memorySettingsStore struct {
	mode    settings.Mode
	current settings.Settings
	saves   int
}

func (m *memorySettingsStore) Mode() settings.Mode { return m.mode }

func (m *memorySettingsStore) Load(context.Context) (settings.Settings, error) { return m.current, nil }

func (m *memorySettingsStore) Save(_ context.Context, s settings.Settings) error {
	m.saves++
	m.current = s
	return nil
}

func validUserForm() map[string]string {
	return map[string]string{
		"username":              "jdoe",
		"role":                  "2",
		"realname":              "John Doe",
		"email":                 "jdoe@example.com",
		"password":              "Secret#123",
		"password_confirmation": "Secret#123",
	}
}

// withImage attaches an uploaded file named image to the form values.
func withImage(t *testing.T, values map[string]string, content []byte) validation.Input {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		_ = mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile("image", "avatar.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	fields := []string{"image"}
	for k := range values {
		fields = append(fields, k)
	}
	return validation.FromRequest(req, fields...)
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
