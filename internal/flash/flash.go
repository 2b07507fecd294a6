package flash

import (
	"net/http"
	"time"
	"unicode/utf8"
)

const (
	// maxKeptInput bounds a re-displayed value once a payload has to shrink.
	maxKeptInput = 256
	// maxKeptError bounds each field error once a payload has to shrink.
	maxKeptError = 200

	msgNotKept = "Your submission could not be processed. Please review the form and try again."
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Payload is everything queued for the next page: status messages, field
// errors and the input to re-display.
type Payload struct {
	Messages []Message           `json:"messages,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Input    map[string]string   `json:"input,omitempty"`
}

func Status(level Level, text string) Payload {
	return Payload{Messages: []Message{{Level: level, Text: text}}}
}

func (p Payload) Empty() bool {
	return len(p.Messages) == 0 && len(p.Errors) == 0 && len(p.Input) == 0
}

// merge appends o's messages; field errors and input from o replace p's.
func (p Payload) merge(o Payload) Payload {
	p.Messages = append(p.Messages, o.Messages...)
	if len(o.Errors) > 0 {
		p.Errors = o.Errors
	}
	if len(o.Input) > 0 {
		p.Input = o.Input
	}
	return p
}

// fallbacks lists smaller variants of p for stores with a size ceiling, from
// most to least complete. The last one is a bare danger status.
func (p Payload) fallbacks() []Payload {
	var out []Payload
	if len(p.Input) > 0 {
		short := make(map[string]string, len(p.Input))
		for k, v := range p.Input {
			if len(v) <= maxKeptInput {
				short[k] = v
			}
		}
		if len(short) > 0 && len(short) < len(p.Input) {
			out = append(out, Payload{Messages: p.Messages, Errors: p.Errors, Input: short})
		}
		out = append(out, Payload{Messages: p.Messages, Errors: p.Errors})
	}
	if len(p.Errors) > 0 {
		first := make(map[string][]string, len(p.Errors))
		for field, msgs := range p.Errors {
			if len(msgs) > 0 {
				first[field] = []string{truncate(msgs[0], maxKeptError)}
			}
		}
		out = append(out, Payload{Errors: first})
	}
	return append(out, Status(LevelDanger, msgNotKept))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// Store queues a payload for the next request. Pop returns everything queued
// and clears it, so each payload is read at most once.
type Store interface {
	Put(w http.ResponseWriter, r *http.Request, p Payload) error
	Pop(w http.ResponseWriter, r *http.Request) (Payload, error)
}

type CookieOptions struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
	TTL      time.Duration
}
