package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/middleware"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/response"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
	"github.com/sandeepkv93/cms-admin-backend/internal/service"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

const msgUnexpected = "An unexpected error occurred. Please try again."

type SiteInfo struct {
	Name string `json:"name"`
	Skin string `json:"skin"`
}

type PrincipalView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Realname string `json:"realname"`
	Role     string `json:"role"`
}

// Page is the document every GET route answers with.
type Page struct {
	Title            string              `json:"title"`
	Flash            []flash.Message     `json:"flash"`
	Errors           map[string][]string `json:"errors"`
	Old              map[string]string   `json:"old"`
	CSRFToken        string              `json:"csrf_token"`
	SettingsEditable bool                `json:"settings_editable"`
	Site             SiteInfo            `json:"site"`
	User             *PrincipalView      `json:"user,omitempty"`
	Content          any                 `json:"content,omitempty"`
}

// Pages renders page documents and answers form posts with redirects that
// carry flash state.
type Pages struct {
	flash    flash.Store
	settings service.SettingsServiceInterface
	cookies  *security.CookieManager
	csrfTTL  time.Duration
	logger   *slog.Logger
}

func NewPages(store flash.Store, settingsSvc service.SettingsServiceInterface, cookies *security.CookieManager, csrfTTL time.Duration, logger *slog.Logger) *Pages {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pages{flash: store, settings: settingsSvc, cookies: cookies, csrfTTL: csrfTTL, logger: logger}
}

func (p *Pages) Render(w http.ResponseWriter, r *http.Request, title string, content any) {
	p.render(w, r, http.StatusOK, title, content)
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, title string, content any) {
	ctx := r.Context()
	payload, err := p.flash.Pop(w, r)
	if err != nil {
		p.logger.WarnContext(ctx, "read flash", "error", err)
	}
	page := Page{
		Title:            title,
		Flash:            payload.Messages,
		Errors:           payload.Errors,
		Old:              payload.Input,
		SettingsEditable: p.settings.Editable(),
		Content:          content,
	}
	if page.Flash == nil {
		page.Flash = []flash.Message{}
	}
	if page.Errors == nil {
		page.Errors = map[string][]string{}
	}
	if page.Old == nil {
		page.Old = map[string]string{}
	}

	site := settings.Defaults()
	if loaded, err := p.settings.Load(ctx); err != nil {
		p.logger.WarnContext(ctx, "load site settings", "error", err)
	} else {
		site = loaded
	}
	page.Site = SiteInfo{Name: site.SiteName, Skin: site.SiteSkin}

	if user, ok := middleware.PrincipalFromContext(ctx); ok {
		page.User = &PrincipalView{ID: user.ID, Username: user.Username, Realname: user.Realname, Role: user.RoleName()}
	}

	page.CSRFToken = security.GetCookie(r, security.CSRFCookieName)
	if page.CSRFToken == "" {
		token, err := security.NewRandomToken(32)
		if err != nil {
			p.ServerError(w, r, fmt.Errorf("csrf token: %w", err))
			return
		}
		p.cookies.SetCSRFCookie(w, token, p.csrfTTL)
		page.CSRFToken = token
	}
	response.JSON(w, r, status, page)
}

// Redirect queues payload for the next page and answers 303.
func (p *Pages) Redirect(w http.ResponseWriter, r *http.Request, to string, payload flash.Payload) {
	if !payload.Empty() {
		if err := p.flash.Put(w, r, payload); err != nil {
			p.logger.ErrorContext(r.Context(), "queue flash", "error", err)
		}
	}
	response.Redirect(w, r, to)
}

func (p *Pages) Status(w http.ResponseWriter, r *http.Request, to string, level flash.Level, text string) {
	p.Redirect(w, r, to, flash.Status(level, text))
}

// Invalid sends the user back to the form with field errors and the
// non-sensitive input they submitted.
func (p *Pages) Invalid(w http.ResponseWriter, r *http.Request, to string, verrs *validation.Errors, in validation.Input) {
	p.Redirect(w, r, to, flash.Payload{Errors: verrs.Map(), Input: in.Preserved()})
}

// Fail logs err and shows a generic danger status.
func (p *Pages) Fail(w http.ResponseWriter, r *http.Request, to string, err error) {
	p.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	p.Status(w, r, to, flash.LevelDanger, msgUnexpected)
}

func (p *Pages) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL", msgUnexpected, nil)
}

// RateLimited answers throttled form posts with a warning on the form page.
func (p *Pages) RateLimited(to string) middleware.DeniedFunc {
	return func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
		if response.WantsJSON(r) {
			response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		seconds := int(retryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		p.Status(w, r, to, flash.LevelWarning, fmt.Sprintf("Too many attempts. Please wait %d seconds and try again.", seconds))
	}
}

func formInput(r *http.Request, fields ...string) (validation.Input, error) {
	if err := middleware.ParseForm(r); err != nil {
		return validation.Input{}, fmt.Errorf("parse form: %w", err)
	}
	return validation.FromRequest(r, fields...), nil
}

func idParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func actorID(r *http.Request) string {
	if user, ok := middleware.PrincipalFromContext(r.Context()); ok {
		return strconv.FormatUint(uint64(user.ID), 10)
	}
	return ""
}

func audit(r *http.Request, event, targetType, targetID, action, outcome, reason string) {
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   event,
		ActorUserID: actorID(r),
		TargetType:  targetType,
		TargetID:    targetID,
		Action:      action,
		Outcome:     outcome,
		Reason:      reason,
	})
}

func chiParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}
