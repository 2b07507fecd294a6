package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

func settingsForm() map[string]string {
	return map[string]string{
		settings.KeySiteName:        "Acme Admin",
		settings.KeySiteSkin:        "purple-light",
		settings.KeyMailDriver:      "smtp",
		settings.KeyMailFromAddress: "noreply@acme.test",
		settings.KeyMailFromName:    "Acme",
		settings.KeyMailHost:        "smtp.acme.test",
		settings.KeyMailPort:        "587",
		settings.KeyMailEncryption:  "tls",
		settings.KeyMailUsername:    "mailer",
		settings.KeyMailPassword:    "",
	}
}

func TestSettingsServiceFilesModeIsReadOnly(t *testing.T) {
	store := &memorySettingsStore{mode: settings.ModeFiles, current: settings.Defaults()}
	svc := NewSettingsService(store, newValidatorForTest(fakeRecords{}))

	if svc.Editable() {
		t.Fatal("files mode must not be editable")
	}
	if err := svc.Save(context.Background(), validation.NewInput(settingsForm())); !errors.Is(err, ErrSettingsReadOnly) {
		t.Fatalf("expected ErrSettingsReadOnly, got %v", err)
	}
	if store.saves != 0 {
		t.Fatal("store must not be written in files mode")
	}
}

func TestSettingsServiceSaveKeepsBlankPassword(t *testing.T) {
	current := settings.Defaults()
	current.MailPassword = "s3cret"
	store := &memorySettingsStore{mode: settings.ModeDatabase, current: current}
	svc := NewSettingsService(store, newValidatorForTest(fakeRecords{}))

	if err := svc.Save(context.Background(), validation.NewInput(settingsForm())); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := store.current
	if got.SiteName != "Acme Admin" || got.SiteSkin != "purple-light" || got.MailPort != "587" {
		t.Fatalf("unexpected saved settings %+v", got)
	}
	if got.MailPassword != "s3cret" {
		t.Fatalf("expected stored password to survive, got %q", got.MailPassword)
	}

	form := settingsForm()
	form[settings.KeyMailPassword] = " new pass "
	if err := svc.Save(context.Background(), validation.NewInput(form)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.current.MailPassword != " new pass " {
		t.Fatalf("expected password to be stored verbatim, got %q", store.current.MailPassword)
	}
}

func TestSettingsServiceSaveValidates(t *testing.T) {
	store := &memorySettingsStore{mode: settings.ModeDatabase, current: settings.Defaults()}
	svc := NewSettingsService(store, newValidatorForTest(fakeRecords{}))

	form := settingsForm()
	form[settings.KeySiteSkin] = "orange"
	form[settings.KeyMailPort] = "70000"
	form[settings.KeyMailDriver] = "pigeon"
	err := svc.Save(context.Background(), validation.NewInput(form))
	verrs, ok := IsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, key := range []string{settings.KeySiteSkin, settings.KeyMailPort, settings.KeyMailDriver} {
		if !verrs.Has(key) {
			t.Fatalf("expected error on %s, got %v", key, verrs.Map())
		}
	}
	if store.saves != 0 {
		t.Fatal("invalid settings must not be saved")
	}
}

func TestSettingsServiceImportWritesFilesStore(t *testing.T) {
	store := &memorySettingsStore{mode: settings.ModeFiles, current: settings.Defaults()}
	svc := NewSettingsService(store, newValidatorForTest(fakeRecords{}))

	in := settings.FromMap(settingsForm())
	in.MailPassword = "imported"
	if err := svc.Import(context.Background(), in); err != nil {
		t.Fatalf("import: %v", err)
	}
	if store.saves != 1 || store.current.SiteName != "Acme Admin" || store.current.MailPassword != "imported" {
		t.Fatalf("unexpected store after import: saves=%d %+v", store.saves, store.current)
	}

	bad := in
	bad.SiteSkin = "orange"
	if _, ok := IsValidationError(svc.Import(context.Background(), bad)); !ok {
		t.Fatal("expected import to reject an unknown skin")
	}
	if store.saves != 1 {
		t.Fatal("rejected import must not write")
	}
}
