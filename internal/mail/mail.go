package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	simplemail "github.com/xhit/go-simple-mail/v2"
	"gopkg.in/gomail.v2"

	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
)

const defaultSendmailPath = "/usr/sbin/sendmail"

var ErrUnknownDriver = errors.New("unknown mail driver")

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// PipeFunc hands a rendered MIME message to a local mail transfer agent.
type PipeFunc func(ctx context.Context, from string, to []string, msg io.WriterTo) error

// SettingsMailer reads the mail settings on every send, so changes saved in
// the admin take effect without a restart.
type SettingsMailer struct {
	source SettingsSource
	dryRun bool
	logger *slog.Logger
	pipe   PipeFunc
}

type Option func(*SettingsMailer)

func WithPipe(p PipeFunc) Option {
	return func(m *SettingsMailer) { m.pipe = p }
}

func NewSettingsMailer(source SettingsSource, dryRun bool, logger *slog.Logger, opts ...Option) *SettingsMailer {
	if logger == nil {
		logger = slog.Default()
	}
	m := &SettingsMailer{source: source, dryRun: dryRun, logger: logger, pipe: SendmailPipe(defaultSendmailPath)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SettingsMailer) Send(ctx context.Context, msg Message) error {
	cfg, err := m.source.Load(ctx)
	if err != nil {
		observability.RecordMailDelivery(ctx, "unknown", "settings_error")
		return fmt.Errorf("load mail settings: %w", err)
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.MailDriver))
	if m.dryRun {
		m.logger.InfoContext(ctx, "mail dry run",
			"driver", driver,
			"to", msg.To,
			"subject", msg.Subject,
		)
		observability.RecordMailDelivery(ctx, driver, "dry_run")
		return nil
	}

	switch driver {
	case "smtp":
		err = m.sendSMTP(cfg, msg)
	case "mail", "sendmail":
		err = m.sendPipe(ctx, cfg, msg)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.MailDriver)
	}
	if err != nil {
		observability.RecordMailDelivery(ctx, driver, "error")
		m.logger.ErrorContext(ctx, "mail delivery failed", "driver", driver, "to", msg.To, "error", err)
		return err
	}
	observability.RecordMailDelivery(ctx, driver, "sent")
	m.logger.InfoContext(ctx, "mail sent", "driver", driver, "to", msg.To, "subject", msg.Subject)
	return nil
}

func (m *SettingsMailer) sendSMTP(cfg settings.Settings, msg Message) error {
	port, err := strconv.Atoi(strings.TrimSpace(cfg.MailPort))
	if err != nil {
		return fmt.Errorf("invalid mail port %q: %w", cfg.MailPort, err)
	}
	server := simplemail.NewSMTPClient()
	server.Host = cfg.MailHost
	server.Port = port
	server.Username = cfg.MailUsername
	server.Password = cfg.MailPassword
	server.Encryption = smtpEncryption(cfg.MailEncryption)
	if cfg.MailUsername == "" {
		server.Authentication = simplemail.AuthNone
	}
	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	client, err := server.Connect()
	if err != nil {
		return fmt.Errorf("connect smtp %s:%d: %w", cfg.MailHost, port, err)
	}
	defer func() { _ = client.Close() }()

	email := simplemail.NewMSG()
	email.SetFrom(formatAddress(cfg.MailFromName, cfg.MailFromAddress))
	email.AddTo(formatAddress(msg.ToName, msg.To))
	email.SetSubject(msg.Subject)
	email.SetBody(simplemail.TextHTML, msg.HTML)
	if msg.Text != "" {
		email.AddAlternative(simplemail.TextPlain, msg.Text)
	}
	if email.Error != nil {
		return fmt.Errorf("build smtp message: %w", email.Error)
	}
	if err := email.Send(client); err != nil {
		return fmt.Errorf("send smtp message: %w", err)
	}
	return nil
}

func (m *SettingsMailer) sendPipe(ctx context.Context, cfg settings.Settings, msg Message) error {
	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", cfg.MailFromAddress, cfg.MailFromName)
	gm.SetAddressHeader("To", msg.To, msg.ToName)
	gm.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		gm.SetBody("text/plain", msg.Text)
		gm.AddAlternative("text/html", msg.HTML)
	} else {
		gm.SetBody("text/html", msg.HTML)
	}
	sender := gomail.SendFunc(func(from string, to []string, w io.WriterTo) error {
		return m.pipe(ctx, from, to, w)
	})
	if err := gomail.Send(sender, gm); err != nil {
		return fmt.Errorf("send via sendmail: %w", err)
	}
	return nil
}

// SendmailPipe writes the message to `sendmail -t -i`.
func SendmailPipe(path string) PipeFunc {
	return func(ctx context.Context, _ string, _ []string, msg io.WriterTo) error {
		cmd := exec.CommandContext(ctx, path, "-t", "-i")
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return err
		}
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start %s: %w", path, err)
		}
		if _, err := msg.WriteTo(stdin); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write to %s: %w", path, err)
		}
		if err := stdin.Close(); err != nil {
			_ = cmd.Wait()
			return err
		}
		return cmd.Wait()
	}
}

func smtpEncryption(v string) simplemail.Encryption {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "ssl":
		return simplemail.EncryptionSSLTLS
	case "tls":
		return simplemail.EncryptionSTARTTLS
	default:
		return simplemail.EncryptionNone
	}
}

func formatAddress(name, addr string) string {
	if strings.TrimSpace(name) == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}
