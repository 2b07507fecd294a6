package validation

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	playground "github.com/go-playground/validator/v10"
)

var (
	validNamePattern   = regexp.MustCompile(`^(?:[\p{L}\p{Mn}\p{Pd}'\x{2019}]+(?:$|\s+)){2,}$`)
	validQueryPattern  = regexp.MustCompile(`^[\p{L}\p{N}_\-\s]+$`)
	alphaDashPattern   = regexp.MustCompile(`^[\p{L}\p{M}\p{N}_-]+$`)
	displayNamePattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N} _-]+$`)

	errNoLookup = errors.New("no record checker configured")
)

var mimeByExtension = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// RecordChecker answers existence and uniqueness lookups.
type RecordChecker interface {
	Exists(ctx context.Context, table, column string, value any) (bool, error)
	Taken(ctx context.Context, table, column string, value any, ignoreID uint) (bool, error)
}

// PasswordVerifier compares a plaintext against a stored hash.
type PasswordVerifier func(hash, plain string) (bool, error)

// Check is what a predicate sees for one rule of one field.
type Check struct {
	Field Field
	Rule  Rule
	Value string
	File  *multipart.FileHeader
	Input Input
}

// Predicate returns false when the rule is violated. An error aborts validation.
type Predicate func(ctx context.Context, c Check) (bool, error)

// MessageFunc renders the failure message for a rule.
type MessageFunc func(c Check) string

type entry struct {
	predicate Predicate
	message   MessageFunc
}

// Registry maps each Kind to its predicate and message.
type Registry struct {
	entries map[Kind]entry
}

func (r *Registry) Register(kind Kind, p Predicate, msg MessageFunc) {
	if r.entries == nil {
		r.entries = map[Kind]entry{}
	}
	r.entries[kind] = entry{predicate: p, message: msg}
}

func (r *Registry) lookup(kind Kind) (entry, bool) {
	e, ok := r.entries[kind]
	return e, ok
}

// NewRegistry returns a registry holding every built-in kind. records and
// verify may be nil when the rulesets in use never need them.
func NewRegistry(records RecordChecker, verify PasswordVerifier) *Registry {
	email := playground.New()
	r := &Registry{}

	r.Register(Required, func(_ context.Context, c Check) (bool, error) {
		if c.File != nil {
			return c.File.Size > 0, nil
		}
		return strings.TrimSpace(c.Value) != "", nil
	}, text("The %s field is required."))

	r.Register(Min, func(_ context.Context, c Check) (bool, error) {
		n, ok := measure(c)
		return ok && n >= float64(c.Rule.N), nil
	}, func(c Check) string {
		return fmt.Sprintf("The %s must be at least %d%s.", c.Field.label(), c.Rule.N, unitSuffix(c))
	})

	r.Register(Max, func(_ context.Context, c Check) (bool, error) {
		n, ok := measure(c)
		return ok && n <= float64(c.Rule.N), nil
	}, func(c Check) string {
		return fmt.Sprintf("The %s may not be greater than %d%s.", c.Field.label(), c.Rule.N, unitSuffix(c))
	})

	r.Register(Numeric, func(_ context.Context, c Check) (bool, error) {
		_, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
		return err == nil, nil
	}, text("The %s must be a number."))

	r.Register(AlphaDash, regexPredicate(alphaDashPattern),
		text("The %s may only contain letters, numbers, dashes and underscores."))

	r.Register(Email, func(_ context.Context, c Check) (bool, error) {
		return email.Var(strings.TrimSpace(c.Value), "email") == nil, nil
	}, text("The %s must be a valid email address."))

	r.Register(In, func(_ context.Context, c Check) (bool, error) {
		for _, v := range c.Rule.Values {
			if c.Value == v {
				return true, nil
			}
		}
		return false, nil
	}, text("The selected %s is invalid."))

	r.Register(Exists, func(ctx context.Context, c Check) (bool, error) {
		if records == nil {
			return false, errNoLookup
		}
		return records.Exists(ctx, c.Rule.Table, c.Rule.Column, strings.TrimSpace(c.Value))
	}, text("The selected %s is invalid."))

	r.Register(Unique, func(ctx context.Context, c Check) (bool, error) {
		if records == nil {
			return false, errNoLookup
		}
		taken, err := records.Taken(ctx, c.Rule.Table, c.Rule.Column, strings.TrimSpace(c.Value), c.Rule.IgnoreID)
		return !taken, err
	}, text("The %s has already been taken."))

	r.Register(Confirmed, func(_ context.Context, c Check) (bool, error) {
		return c.Value == c.Input.Get(c.Field.Name+"_confirmation"), nil
	}, text("The %s confirmation does not match."))

	r.Register(Same, func(_ context.Context, c Check) (bool, error) {
		return c.Value == c.Input.Get(c.Rule.Other), nil
	}, func(c Check) string {
		return fmt.Sprintf("The %s and %s must match.", c.Field.label(), c.Rule.Other)
	})

	r.Register(ValidName, regexPredicate(validNamePattern), text("The %s field is not a valid name."))

	r.Register(StrongPassword, func(_ context.Context, c Check) (bool, error) {
		return IsStrongPassword(c.Value), nil
	}, text("The %s field is not strong enough."))

	r.Register(ValidQuery, regexPredicate(validQueryPattern), text("The %s field is not a valid query string."))

	r.Register(DisplayName, regexPredicate(displayNamePattern),
		text("The %s may only contain letters, numbers, spaces, dashes and underscores."))

	r.Register(ValidPassword, func(_ context.Context, c Check) (bool, error) {
		if verify == nil || c.Rule.Hash == "" {
			return false, nil
		}
		ok, err := verify(c.Rule.Hash, c.Value)
		if err != nil {
			// An unreadable stored hash cannot match.
			return false, nil
		}
		return ok, nil
	}, text("The %s field is invalid."))

	r.Register(File, func(_ context.Context, c Check) (bool, error) {
		return c.File != nil && c.File.Size > 0, nil
	}, text("The %s must be a file."))

	r.Register(MaxFileSize, func(_ context.Context, c Check) (bool, error) {
		if c.File == nil {
			return true, nil
		}
		return c.File.Size <= int64(c.Rule.N)*1024, nil
	}, func(c Check) string {
		return fmt.Sprintf("The %s may not be greater than %s.", c.Field.label(), humanize.IBytes(uint64(c.Rule.N)*1024))
	})

	r.Register(Mimes, func(_ context.Context, c Check) (bool, error) {
		if c.File == nil {
			return true, nil
		}
		detected, err := SniffContentType(c.File)
		if err != nil {
			return false, nil
		}
		for _, ext := range c.Rule.Values {
			if mimeByExtension[strings.ToLower(ext)] == detected {
				return true, nil
			}
		}
		return false, nil
	}, func(c Check) string {
		return fmt.Sprintf("The %s must be a file of type: %s.", c.Field.label(), strings.Join(c.Rule.Values, ", "))
	})

	return r
}

// IsStrongPassword requires at least 8 characters, a digit or symbol, an
// upper and a lower case ASCII letter, and no leading period or line break.
// Any rune outside [A-Za-z0-9_] counts as a symbol, accented letters included.
func IsStrongPassword(v string) bool {
	if utf8.RuneCountInString(v) < 8 || strings.ContainsRune(v, '\n') || strings.HasPrefix(v, ".") {
		return false
	}
	var digitOrSymbol, upper, lower bool
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			digitOrSymbol = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r != '_':
			digitOrSymbol = true
		}
	}
	return digitOrSymbol && upper && lower
}

// SniffContentType detects the upload's type from its first bytes.
func SniffContentType(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func regexPredicate(re *regexp.Regexp) Predicate {
	return func(_ context.Context, c Check) (bool, error) {
		return re.MatchString(c.Value), nil
	}
}

func text(format string) MessageFunc {
	return func(c Check) string { return fmt.Sprintf(format, c.Field.label()) }
}

// measure sizes the value for Min/Max: kilobytes for uploads, the number for
// numeric fields, characters otherwise.
func measure(c Check) (float64, bool) {
	switch {
	case c.File != nil:
		return float64(c.File.Size) / 1024, true
	case c.Field.has(Numeric):
		f, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
		return f, err == nil
	default:
		return float64(utf8.RuneCountInString(c.Value)), true
	}
}

func unitSuffix(c Check) string {
	switch {
	case c.File != nil:
		return " kilobytes"
	case c.Field.has(Numeric):
		return ""
	default:
		return " characters"
	}
}
