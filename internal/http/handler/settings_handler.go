package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/service"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
)

const settingsPath = "/admin/settings"

type SettingsHandler struct {
	settings service.SettingsServiceInterface
	pages    *Pages
}

func NewSettingsHandler(settingsSvc service.SettingsServiceInterface, pages *Pages) *SettingsHandler {
	return &SettingsHandler{settings: settingsSvc, pages: pages}
}

// Show never includes the stored mail password, only whether one is set.
func (h *SettingsHandler) Show(w http.ResponseWriter, r *http.Request) {
	current, err := h.settings.Load(r.Context())
	if err != nil {
		h.pages.ServerError(w, r, fmt.Errorf("load settings: %w", err))
		return
	}
	h.pages.Render(w, r, "Settings", map[string]any{
		"settings":          current,
		"mail_password_set": current.MailPassword != "",
		"editable":          h.settings.Editable(),
		"mode":              h.settings.Mode(),
		"skins":             settings.Skins(),
		"mail_drivers":      settings.MailDrivers(),
		"mail_encryptions":  settings.MailEncryptions(),
	})
}

func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	if !h.settings.Editable() {
		h.readOnly(w, r)
		return
	}
	in, err := formInput(r, settings.Keys()...)
	if err != nil {
		h.pages.Fail(w, r, settingsPath, err)
		return
	}
	err = h.settings.Save(r.Context(), in)
	if verrs, ok := service.IsValidationError(err); ok {
		h.pages.Invalid(w, r, settingsPath, verrs, in)
		return
	}
	switch {
	case errors.Is(err, service.ErrSettingsReadOnly):
		h.readOnly(w, r)
		return
	case err != nil:
		audit(r, "admin.settings.save", "settings", "site", "update", "failure", "internal_error")
		h.pages.Fail(w, r, settingsPath, err)
		return
	}
	audit(r, "admin.settings.save", "settings", "site", "update", "success", "")
	h.pages.Status(w, r, settingsPath, flash.LevelSuccess, "The Settings were successfully saved.")
}

func (h *SettingsHandler) readOnly(w http.ResponseWriter, r *http.Request) {
	audit(r, "admin.settings.save", "settings", "site", "update", "rejected", "read_only")
	h.pages.Status(w, r, settingsPath, flash.LevelWarning, "Settings are managed in files and cannot be edited here.")
}
