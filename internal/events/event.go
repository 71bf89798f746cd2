package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
	EventState   EventType = "state"
)

const (
	// SessionState carries the orchestrator snapshot after every change.
	SessionState = "events:session:state"
	// AnalysisProgress carries human-readable progress of a running analysis.
	AnalysisProgress = "events:analysis:progress"
)

// Event is a backend payload pushed to the presentation layer.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Message   string            `json:"message,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	SessionID string            `json:"sessionId,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Payload   interface{}       `json:"payload,omitempty"`
}

type contextKey string

const sessionContextKey contextKey = "uxreview/events/session"

// WithSession returns a derived context annotated with the given session id
// so emitters can scope payloads automatically.
func WithSession(ctx context.Context, sessionID string) context.Context {
	if strings.TrimSpace(sessionID) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, sessionID)
}

// SessionFromContext extracts the session id associated with ctx.
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionContextKey).(string); ok {
		return v
	}
	return ""
}

func New(eventType EventType, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewInfo creates an info Event.
func NewInfo(message string) Event {
	return New(EventInfo, message)
}

// NewWarn creates a warn Event.
func NewWarn(message string) Event {
	return New(EventWarn, message)
}

// NewError creates an error Event.
func NewError(message string) Event {
	return New(EventError, message)
}

// NewSuccess creates a success Event.
func NewSuccess(message string) Event {
	return New(EventSuccess, message)
}

// NewState wraps a state snapshot.
func NewState(payload interface{}) Event {
	evt := New(EventState, "")
	evt.Payload = payload
	return evt
}
