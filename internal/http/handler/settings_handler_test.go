package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/service"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

func TestSettingsShowHidesMailPassword(t *testing.T) {
	current := settings.Defaults()
	current.MailPassword = "hunter2"
	svc := &stubSettingsSvc{editable: true, current: current}
	pages, _ := newTestPages(t, svc)
	rr := httptest.NewRecorder()

	NewSettingsHandler(svc, pages).Show(rr, httptest.NewRequest(http.MethodGet, "/admin/settings", nil))

	if strings.Contains(rr.Body.String(), "hunter2") {
		t.Fatal("mail password leaked into page")
	}
	var content struct {
		MailPasswordSet bool   `json:"mail_password_set"`
		Editable        bool   `json:"editable"`
		Mode            string `json:"mode"`
	}
	decodeContent(t, decodePage(t, rr), &content)
	if !content.MailPasswordSet || !content.Editable || content.Mode != "database" {
		t.Fatalf("unexpected settings content: %+v", content)
	}
}

func TestSettingsSaveReadOnlyInFilesMode(t *testing.T) {
	called := false
	svc := &stubSettingsSvc{current: settings.Defaults(), saveFn: func(validation.Input) error {
		called = true
		return nil
	}}
	pages, store := newTestPages(t, svc)
	rr := httptest.NewRecorder()

	NewSettingsHandler(svc, pages).Save(rr, formRequest(http.MethodPost, "/admin/settings", url.Values{"siteName": {"X"}}))

	requireRedirect(t, rr, "/admin/settings")
	if called {
		t.Fatal("save must not run in files mode")
	}
	if msg := store.lastMessage(t); msg.Level != flash.LevelWarning {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestSettingsSaveOutcomes(t *testing.T) {
	var got validation.Input
	svc := &stubSettingsSvc{editable: true, current: settings.Defaults(), saveFn: func(in validation.Input) error {
		got = in
		if in.Get(settings.KeySiteSkin) == "orange" {
			return fieldErr(settings.KeySiteSkin, "The selected Skin is invalid.")
		}
		if in.Get(settings.KeySiteName) == "race" {
			return service.ErrSettingsReadOnly
		}
		return nil
	}}
	pages, store := newTestPages(t, svc)
	h := NewSettingsHandler(svc, pages)

	rr := httptest.NewRecorder()
	h.Save(rr, formRequest(http.MethodPost, "/admin/settings", url.Values{"siteName": {"Acme"}, "siteSkin": {"red"}, "mailPassword": {"pw"}}))
	requireRedirect(t, rr, "/admin/settings")
	if msg := store.lastMessage(t); msg.Level != flash.LevelSuccess {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if got.Get(settings.KeyMailPassword) != "pw" {
		t.Fatalf("expected mail password passed through, got %q", got.Get(settings.KeyMailPassword))
	}

	rr = httptest.NewRecorder()
	h.Save(rr, formRequest(http.MethodPost, "/admin/settings", url.Values{"siteSkin": {"orange"}, "mailPassword": {"pw"}}))
	requireRedirect(t, rr, "/admin/settings")
	p := store.last(t)
	if len(p.Errors[settings.KeySiteSkin]) != 1 || p.Input[settings.KeyMailPassword] != "" {
		t.Fatalf("unexpected payload: %+v", p)
	}

	rr = httptest.NewRecorder()
	h.Save(rr, formRequest(http.MethodPost, "/admin/settings", url.Values{"siteName": {"race"}}))
	if msg := store.lastMessage(t); msg.Level != flash.LevelWarning {
		t.Fatalf("expected read-only warning, got %+v", msg)
	}
}
