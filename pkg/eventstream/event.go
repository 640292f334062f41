package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnFinished is emitted after a chat send reaches a terminal
	// state.
	EventTypeTurnFinished = "panelctl.chat.turn.finished"
)

// Turn outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// TurnFinishedEvent is a transport-neutral record of one chat send. It never
// carries message text, only sizes and counts, so it is safe to ship to
// audit pipelines.
type TurnFinishedEvent struct {
	SchemaVersion  int         `json:"schema_version"`
	EventType      string      `json:"event_type"`
	EventID        string      `json:"event_id"`
	EmittedAt      time.Time   `json:"emitted_at"`
	Source         EventSource `json:"source"`
	ConversationID int64       `json:"conversation_id,omitempty"`
	Outcome        string      `json:"outcome"`
	Error          string      `json:"error,omitempty"`
	Timing         TurnTiming  `json:"timing"`
	Stream         StreamStats `json:"stream"`
}

// EventSource identifies where the turn originated.
type EventSource struct {
	Panel  string `json:"panel"`
	Client string `json:"client"`
}

// TurnTiming captures request lifecycle timing.
type TurnTiming struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// StreamStats counts what the stream delivered.
type StreamStats struct {
	MessageBytes   int `json:"message_bytes"`
	ReplyBytes     int `json:"reply_bytes"`
	ContentEvents  int `json:"content_events"`
	ErrorEvents    int `json:"error_events"`
	ProtocolErrors int `json:"protocol_errors"`
}

// NewTurnFinishedEvent stamps a new event with its schema, type, a fresh ID
// and the timing derived from startedAt and completedAt.
func NewTurnFinishedEvent(source EventSource, outcome string, startedAt, completedAt time.Time) *TurnFinishedEvent {
	return &TurnFinishedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnFinished,
		EventID:       uuid.NewString(),
		EmittedAt:     completedAt.UTC(),
		Source:        source,
		Outcome:       outcome,
		Timing: TurnTiming{
			StartedAt:   startedAt.UTC(),
			CompletedAt: completedAt.UTC(),
			DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
		},
	}
}
