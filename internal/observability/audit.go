package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const AuditEventVersion = 1

type AuditInput struct {
	EventName   string
	ActorUserID string
	TargetType  string
	TargetID    string
	Action      string
	Outcome     string
	Reason      string
}

type AuditEvent struct {
	EventName    string `json:"event_name"`
	EventVersion int    `json:"event_version"`
	ActorUserID  string `json:"actor_user_id"`
	ActorIP      string `json:"actor_ip"`
	TargetType   string `json:"target_type"`
	TargetID     string `json:"target_id"`
	Action       string `json:"action"`
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason"`
	RequestID    string `json:"request_id"`
	TS           string `json:"ts"`
}

func BuildAuditEvent(r *http.Request, in AuditInput) AuditEvent {
	actor := in.ActorUserID
	if actor == "" {
		actor = "anonymous"
	}
	return AuditEvent{
		EventName:    in.EventName,
		EventVersion: AuditEventVersion,
		ActorUserID:  actor,
		ActorIP:      clientIP(r),
		TargetType:   orUnknown(in.TargetType),
		TargetID:     orUnknown(in.TargetID),
		Action:       in.Action,
		Outcome:      in.Outcome,
		Reason:       orUnknown(in.Reason),
		RequestID:    orUnknown(r.Header.Get("X-Request-Id")),
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
}

func (e AuditEvent) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"event_name":    e.EventName,
		"actor_user_id": e.ActorUserID,
		"actor_ip":      e.ActorIP,
		"target_type":   e.TargetType,
		"target_id":     e.TargetID,
		"action":        e.Action,
		"outcome":       e.Outcome,
		"reason":        e.Reason,
		"request_id":    e.RequestID,
		"ts":            e.TS,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if e.EventVersion != AuditEventVersion {
		return fmt.Errorf("unsupported audit event version %d", e.EventVersion)
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.New("audit event missing fields: " + strings.Join(missing, ", "))
	}
	if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
		return fmt.Errorf("audit event ts: %w", err)
	}
	return nil
}

// EmitAudit logs a structured audit event. Invalid events are still logged,
// flagged with audit_invalid.
func EmitAudit(r *http.Request, in AuditInput, attrs ...any) {
	ev := BuildAuditEvent(r, in)
	msg := "audit"
	sc := trace.SpanContextFromContext(r.Context())
	if sc.IsValid() {
		msg = fmt.Sprintf("audit trace_id=%s span_id=%s", sc.TraceID().String(), sc.SpanID().String())
	}
	base := []any{
		"event_name", ev.EventName,
		"event_version", ev.EventVersion,
		"actor_user_id", ev.ActorUserID,
		"actor_ip", ev.ActorIP,
		"target_type", ev.TargetType,
		"target_id", ev.TargetID,
		"action", ev.Action,
		"outcome", ev.Outcome,
		"reason", ev.Reason,
		"request_id", ev.RequestID,
		"ts", ev.TS,
		"method", r.Method,
		"path", r.URL.Path,
	}
	if err := ev.Validate(); err != nil {
		base = append(base, "audit_invalid", err.Error())
	}
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), msg, base...)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unknown"
	}
	return v
}
