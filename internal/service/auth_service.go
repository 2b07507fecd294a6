package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/sandeepkv93/cms-admin-backend/internal/config"
	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/mail"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

const (
	rememberMultiplier = 7
	maxRememberTTL     = 14 * 24 * time.Hour
	resetTokenBytes    = 32
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidResetToken  = errors.New("invalid or expired password reset token")
)

var (
	reminderHTML = htmltemplate.Must(htmltemplate.New("reminder").Parse(
		`<p>Hello {{.Name}},</p>
<p>A password reset was requested for your account on {{.Site}}.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>The link expires at {{.Expires}}. If you did not ask for it, ignore this message.</p>`))
	reminderText = texttemplate.Must(texttemplate.New("reminder").Parse(
		`Hello {{.Name}},

A password reset was requested for your account on {{.Site}}.
Open {{.Link}} to choose a new password.

The link expires at {{.Expires}}. If you did not ask for it, ignore this message.
`))
)

type LoginResult struct {
	User         *domain.User
	SessionToken string
	CSRFToken    string
	ExpiresAt    time.Time
	TTL          time.Duration
}

type SettingsReader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

type AuthService struct {
	cfg       *config.Config
	users     repository.UserRepository
	reminders repository.PasswordReminderRepository
	validator InputValidator
	jwt       *security.JWTManager
	mailer    MailSender
	site      SettingsReader
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(
	cfg *config.Config,
	users repository.UserRepository,
	reminders repository.PasswordReminderRepository,
	validator InputValidator,
	jwt *security.JWTManager,
	mailer MailSender,
	site SettingsReader,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		cfg:       cfg,
		users:     users,
		reminders: reminders,
		validator: validator,
		jwt:       jwt,
		mailer:    mailer,
		site:      site,
		logger:    logger,
		now:       time.Now,
	}
}

// SessionTTL stretches the session when "remember me" was ticked.
func (s *AuthService) SessionTTL(remember bool) time.Duration {
	ttl := s.cfg.SessionTTL
	if !remember {
		return ttl
	}
	ttl *= rememberMultiplier
	if ttl > maxRememberTTL {
		ttl = maxRememberTTL
	}
	return ttl
}

func (s *AuthService) Login(ctx context.Context, in validation.Input) (result *LoginResult, err error) {
	defer func() {
		outcome := "success"
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidCredentials):
			outcome = "invalid_credentials"
		default:
			if _, ok := IsValidationError(err); ok {
				outcome = "invalid"
			} else {
				outcome = "error"
			}
		}
		observability.RecordAuthLogin(ctx, outcome)
	}()

	if err := validateInput(ctx, s.validator, "login", in, loginRules()); err != nil {
		return nil, err
	}
	user, err := s.users.FindByUsername(ctx, in.Trimmed("username"))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}
	password := in.Get("password")
	ok, err := security.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		s.logger.WarnContext(ctx, "unreadable password hash", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if security.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	remember := isChecked(in.Get("remember"))
	ttl := s.SessionTTL(remember)
	token, expiresAt, err := s.jwt.SignSessionToken(user.ID, user.Username, user.RoleName(), remember, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	csrf, err := security.NewRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("csrf token: %w", err)
	}
	return &LoginResult{User: user, SessionToken: token, CSRFToken: csrf, ExpiresAt: expiresAt, TTL: ttl}, nil
}

// Principal reloads the signed-in user. Deleted and deactivated accounts
// both report repository.ErrUserNotFound.
func (s *AuthService) Principal(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

// RequestPasswordReset mails a reset link when the address belongs to an
// active user. The caller sees the same result either way.
func (s *AuthService) RequestPasswordReset(ctx context.Context, in validation.Input) error {
	if err := validateInput(ctx, s.validator, "password_remind", in, remindRules()); err != nil {
		return err
	}
	now := s.now().UTC()
	if n, err := s.reminders.DeleteExpired(ctx, now); err != nil {
		s.logger.WarnContext(ctx, "purge expired reminders", "error", err)
	} else if n > 0 {
		s.logger.DebugContext(ctx, "purged expired reminders", "count", n)
	}

	user, err := s.users.FindActiveByEmail(ctx, in.Trimmed("email"))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthPasswordFlowEvent(ctx, "remind", "unknown_email")
			return nil
		}
		return fmt.Errorf("find user by email: %w", err)
	}

	token, err := security.NewRandomToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("reset token: %w", err)
	}
	if err := s.reminders.DeleteByUser(ctx, user.ID); err != nil {
		return fmt.Errorf("replace reminders: %w", err)
	}
	expiresAt := now.Add(s.cfg.PasswordResetTTL)
	if err := s.reminders.Create(ctx, &domain.PasswordReminder{
		UserID:    user.ID,
		TokenHash: security.HashToken(token),
		ExpiresAt: expiresAt,
	}); err != nil {
		return fmt.Errorf("store reminder: %w", err)
	}

	msg, err := s.reminderMessage(ctx, user, token, expiresAt)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		observability.RecordAuthPasswordFlowEvent(ctx, "remind", "mail_error")
		s.logger.ErrorContext(ctx, "send password reminder", "user_id", user.ID, "error", err)
		return nil
	}
	observability.RecordAuthPasswordFlowEvent(ctx, "remind", "sent")
	return nil
}

// ResetPassword consumes every reminder of the user on success.
func (s *AuthService) ResetPassword(ctx context.Context, in validation.Input) (err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "rejected"
		}
		observability.RecordAuthPasswordFlowEvent(ctx, "reset", outcome)
	}()

	if err := validateInput(ctx, s.validator, "password_reset", in, resetRules()); err != nil {
		return err
	}
	reminder, err := s.reminders.FindActiveByHash(ctx, security.HashToken(in.Trimmed("token")), s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrReminderNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("find reminder: %w", err)
	}
	user, err := s.users.FindByID(ctx, reminder.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("find user: %w", err)
	}
	if !user.Active || !strings.EqualFold(strings.TrimSpace(user.Email), in.Trimmed("email")) {
		return ErrInvalidResetToken
	}
	hash, err := security.HashPassword(in.Get("password"))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.reminders.DeleteByUser(ctx, user.ID); err != nil {
		return fmt.Errorf("consume reminders: %w", err)
	}
	return nil
}

func (s *AuthService) rehash(ctx context.Context, user *domain.User, password string) {
	hash, err := security.HashPassword(password)
	if err != nil {
		s.logger.WarnContext(ctx, "rehash password", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.WarnContext(ctx, "store rehashed password", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
}

func (s *AuthService) reminderMessage(ctx context.Context, user *domain.User, token string, expiresAt time.Time) (mail.Message, error) {
	site := settings.Defaults().SiteName
	if loaded, err := s.site.Load(ctx); err == nil && loaded.SiteName != "" {
		site = loaded.SiteName
	}
	data := struct {
		Name, Site, Link, Expires string
	}{
		Name:    user.Realname,
		Site:    site,
		Link:    s.cfg.AppURL + "/password/reset/" + token,
		Expires: expiresAt.Format(time.RFC1123),
	}
	var htmlBody, textBody bytes.Buffer
	if err := reminderHTML.Execute(&htmlBody, data); err != nil {
		return mail.Message{}, fmt.Errorf("render reminder: %w", err)
	}
	if err := reminderText.Execute(&textBody, data); err != nil {
		return mail.Message{}, fmt.Errorf("render reminder: %w", err)
	}
	return mail.Message{
		To:      user.Email,
		ToName:  user.Realname,
		Subject: site + " - Password Reminder",
		HTML:    htmlBody.String(),
		Text:    textBody.String(),
	}, nil
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}
