package telemetry

import (
	"context"
	"log"
	"time"
)

// Audit event types emitted on chat lifecycle transitions.
const (
	EventChatStarted     = "chat_started"
	EventRevealRequested = "reveal_requested"
	EventRevealAccepted  = "reveal_accepted"
	EventRevealDeclined  = "reveal_declined"
	EventChatDeleted     = "chat_deleted"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter publishes schema-versioned lifecycle events so the ledger
// has an out-of-band audit trail.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	OccurredAt    string      `json:"occurred_at"`
	Service       string      `json:"service"`
	Environment   string      `json:"environment"`
	RequestID     string      `json:"request_id"`
	UserID        *int        `json:"user_id,omitempty"`
	Payload       ChatPayload `json:"payload"`
}

// ChatPayload identifies the chat a lifecycle event belongs to.
type ChatPayload struct {
	ChatID int    `json:"chat_id"`
	State  string `json:"state,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// EmitChatEvent publishes one lifecycle event. Failures are logged, never
// surfaced to the caller; audit delivery must not fail a chat operation.
func (e *AuditEmitter) EmitChatEvent(ctx context.Context, eventType string, chatID int, state string, requestID string, userID *int) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload: ChatPayload{
			ChatID: chatID,
			State:  state,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
