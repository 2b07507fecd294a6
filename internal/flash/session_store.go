package flash

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

const (
	sessionName = "cms_flash"
	storeCookie = "cookie"
	// flashesKey is where gorilla/sessions keeps AddFlash values.
	flashesKey = "_flash"
)

// SessionStore keeps flash payloads inside a signed and encrypted cookie.
type SessionStore struct {
	store *sessions.CookieStore
}

func NewSessionStore(secret string, opts CookieOptions) *SessionStore {
	blockKey := sha256.Sum256([]byte("flash:" + secret))
	store := sessions.NewCookieStore([]byte(secret), blockKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   int(opts.TTL.Seconds()),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: opts.SameSite,
	}
	return &SessionStore{store: store}
}

// Put falls back to smaller payloads when the encoded cookie would exceed
// the securecookie length limit.
func (s *SessionStore) Put(w http.ResponseWriter, r *http.Request, p Payload) error {
	if p.Empty() {
		return nil
	}
	sess, err := s.session(r)
	if err != nil {
		observability.RecordFlashEvent(r.Context(), storeCookie, "put", "error")
		return err
	}
	queued, _ := sess.Values[flashesKey].([]any)
	var saveErr error
	for i, candidate := range append([]Payload{p}, p.fallbacks()...) {
		raw, err := json.Marshal(candidate)
		if err != nil {
			return fmt.Errorf("encode flash: %w", err)
		}
		sess.Values[flashesKey] = append(append([]any(nil), queued...), string(raw))
		if saveErr = sess.Save(r, w); saveErr == nil {
			outcome := "success"
			if i > 0 {
				outcome = "degraded"
			}
			observability.RecordFlashEvent(r.Context(), storeCookie, "put", outcome)
			return nil
		}
	}
	if len(queued) > 0 {
		sess.Values[flashesKey] = queued
	} else {
		delete(sess.Values, flashesKey)
	}
	observability.RecordFlashEvent(r.Context(), storeCookie, "put", "error")
	return fmt.Errorf("save flash session: %w", saveErr)
}

func (s *SessionStore) Pop(w http.ResponseWriter, r *http.Request) (Payload, error) {
	sess, err := s.session(r)
	if err != nil {
		observability.RecordFlashEvent(r.Context(), storeCookie, "pop", "error")
		return Payload{}, err
	}
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		observability.RecordFlashEvent(r.Context(), storeCookie, "pop", "empty")
		return Payload{}, nil
	}
	var out Payload
	for _, f := range flashes {
		raw, ok := f.(string)
		if !ok {
			continue
		}
		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		out = out.merge(p)
	}
	if err := sess.Save(r, w); err != nil {
		observability.RecordFlashEvent(r.Context(), storeCookie, "pop", "error")
		return Payload{}, fmt.Errorf("clear flash session: %w", err)
	}
	observability.RecordFlashEvent(r.Context(), storeCookie, "pop", "success")
	return out, nil
}

// session returns a fresh session when the cookie no longer decodes, for
// example after a secret rotation.
func (s *SessionStore) session(r *http.Request) (*sessions.Session, error) {
	sess, err := s.store.Get(r, sessionName)
	if err != nil && sess != nil {
		return sess, nil
	}
	return sess, err
}
