package settings

import (
	"context"
	"errors"
)

const (
	KeySiteName        = "siteName"
	KeySiteSkin        = "siteSkin"
	KeyMailDriver      = "mailDriver"
	KeyMailFromAddress = "mailFromAddress"
	KeyMailFromName    = "mailFromName"
	KeyMailHost        = "mailHost"
	KeyMailPort        = "mailPort"
	KeyMailEncryption  = "mailEncryption"
	KeyMailUsername    = "mailUsername"
	KeyMailPassword    = "mailPassword"
)

// Mode names the backend a Store persists to.
type Mode string

const (
	ModeFiles    Mode = "files"
	ModeDatabase Mode = "database"
)

// ErrReadOnly is returned by stores that cannot persist changes.
var ErrReadOnly = errors.New("settings store is read-only")

// Store loads and saves the complete recognised key set.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Mode() Mode
}

// Settings holds the recognised configuration keys. Values are kept as the
// strings submitted by the settings form.
type Settings struct {
	SiteName        string `json:"siteName" yaml:"siteName"`
	SiteSkin        string `json:"siteSkin" yaml:"siteSkin"`
	MailDriver      string `json:"mailDriver" yaml:"mailDriver"`
	MailFromAddress string `json:"mailFromAddress" yaml:"mailFromAddress"`
	MailFromName    string `json:"mailFromName" yaml:"mailFromName"`
	MailHost        string `json:"mailHost" yaml:"mailHost"`
	MailPort        string `json:"mailPort" yaml:"mailPort"`
	MailEncryption  string `json:"mailEncryption" yaml:"mailEncryption"`
	MailUsername    string `json:"mailUsername" yaml:"mailUsername"`
	MailPassword    string `json:"-" yaml:"mailPassword"`
}

func Defaults() Settings {
	return Settings{
		SiteName:        "CMS Admin",
		SiteSkin:        "blue",
		MailDriver:      "smtp",
		MailFromAddress: "admin@example.com",
		MailFromName:    "CMS Admin",
		MailHost:        "localhost",
		MailPort:        "25",
		MailEncryption:  "",
	}
}

// Keys lists the recognised keys in form order.
func Keys() []string {
	return []string{
		KeySiteName, KeySiteSkin, KeyMailDriver, KeyMailFromAddress, KeyMailFromName,
		KeyMailHost, KeyMailPort, KeyMailEncryption, KeyMailUsername, KeyMailPassword,
	}
}

func Skins() []string {
	return []string{
		"blue", "blue-light", "black", "black-light", "purple", "purple-light",
		"yellow", "yellow-light", "red", "red-light", "green", "green-light",
	}
}

func MailDrivers() []string { return []string{"smtp", "mail", "sendmail"} }

// MailEncryptions includes the empty value for an unencrypted connection.
func MailEncryptions() []string { return []string{"ssl", "tls", ""} }

// FromMap overlays recognised keys from m onto the defaults. Unknown keys are
// ignored.
func FromMap(m map[string]string) Settings {
	s := Defaults()
	for key, ptr := range s.fields() {
		if v, ok := m[key]; ok {
			*ptr = v
		}
	}
	return s
}

// ToMap returns every recognised key, including empty values.
func (s Settings) ToMap() map[string]string {
	out := make(map[string]string, len(Keys()))
	for key, ptr := range s.fields() {
		out[key] = *ptr
	}
	return out
}

func (s *Settings) fields() map[string]*string {
	return map[string]*string{
		KeySiteName:        &s.SiteName,
		KeySiteSkin:        &s.SiteSkin,
		KeyMailDriver:      &s.MailDriver,
		KeyMailFromAddress: &s.MailFromAddress,
		KeyMailFromName:    &s.MailFromName,
		KeyMailHost:        &s.MailHost,
		KeyMailPort:        &s.MailPort,
		KeyMailEncryption:  &s.MailEncryption,
		KeyMailUsername:    &s.MailUsername,
		KeyMailPassword:    &s.MailPassword,
	}
}
