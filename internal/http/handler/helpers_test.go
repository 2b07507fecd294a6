package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/middleware"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

type recordingFlash struct {
	pending flash.Payload
	put     []flash.Payload
}

func (f *recordingFlash) Put(_ http.ResponseWriter, _ *http.Request, p flash.Payload) error {
	f.put = append(f.put, p)
	return nil
}

func (f *recordingFlash) Pop(_ http.ResponseWriter, _ *http.Request) (flash.Payload, error) {
	p := f.pending
	f.pending = flash.Payload{}
	return p, nil
}

func (f *recordingFlash) last(t *testing.T) flash.Payload {
	t.Helper()
	if len(f.put) == 0 {
		t.Fatal("expected a flash payload to be queued")
	}
	return f.put[len(f.put)-1]
}

func (f *recordingFlash) lastMessage(t *testing.T) flash.Message {
	t.Helper()
	p := f.last(t)
	if len(p.Messages) != 1 {
		t.Fatalf("expected one status message, got %+v", p.Messages)
	}
	return p.Messages[0]
}

type stubSettingsSvc struct {
	editable bool
	current  settings.Settings
	loadErr  error
	saveFn   func(in validation.Input) error
}

func (s *stubSettingsSvc) Editable() bool { return s.editable }

func (s *stubSettingsSvc) Mode() settings.Mode {
	if s.editable {
		return settings.ModeDatabase
	}
	return settings.ModeFiles
}

func (s *stubSettingsSvc) Load(context.Context) (settings.Settings, error) {
	if s.loadErr != nil {
		return settings.Settings{}, s.loadErr
	}
	return s.current, nil
}

func (s *stubSettingsSvc) Save(_ context.Context, in validation.Input) error {
	if s.saveFn != nil {
		return s.saveFn(in)
	}
	return nil
}

func newTestPages(t *testing.T, settingsSvc *stubSettingsSvc) (*Pages, *recordingFlash) {
	t.Helper()
	if settingsSvc == nil {
		current := settings.Defaults()
		current.SiteName = "Acme Admin"
		settingsSvc = &stubSettingsSvc{editable: true, current: current}
	}
	store := &recordingFlash{}
	cookies := security.NewCookieManager("", false, "lax")
	return NewPages(store, settingsSvc, cookies, time.Hour, nil), store
}

func withURLParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func withPrincipal(r *http.Request, user *domain.User) *http.Request {
	claims := &security.Claims{Username: user.Username}
	claims.Subject = idString(user.ID)
	return r.WithContext(middleware.WithPrincipal(r.Context(), claims, user))
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, target string, values map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type pageEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Title            string              `json:"title"`
		Flash            []flash.Message     `json:"flash"`
		Errors           map[string][]string `json:"errors"`
		Old              map[string]string   `json:"old"`
		CSRFToken        string              `json:"csrf_token"`
		SettingsEditable bool                `json:"settings_editable"`
		Site             SiteInfo            `json:"site"`
		User             *PrincipalView      `json:"user"`
		Content          json.RawMessage     `json:"content"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decodePage(t *testing.T, rr *httptest.ResponseRecorder) pageEnvelope {
	t.Helper()
	var env pageEnvelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return env
}

func decodeContent(t *testing.T, env pageEnvelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data.Content, v); err != nil {
		t.Fatalf("decode content: %v", err)
	}
}

func requireRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}
