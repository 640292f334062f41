// Package transcript holds the chat widget's visible conversation and the
// accumulator that mutates it while a reply streams in.
package transcript

import (
	"time"

	"github.com/google/uuid"
)

// Role is the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. ID is assigned at creation and never
// reused, so the pending reply can be addressed even if the transcript
// changes around it.
type Message struct {
	ID        uuid.UUID
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Conversation is the active session's transcript. ID is zero until the
// server assigns one.
type Conversation struct {
	ID        int64
	Title     string
	UpdatedAt time.Time
	Messages  []Message
}

// Snapshot is a deep copy of the accumulator state for rendering.
type Snapshot struct {
	Conversation Conversation

	// PendingID is the placeholder reply being streamed, or uuid.Nil.
	PendingID uuid.UUID
}

// Pending reports whether a reply is still streaming.
func (s Snapshot) Pending() bool {
	return s.PendingID != uuid.Nil
}

// Last returns the most recent message, if any.
func (s Snapshot) Last() (Message, bool) {
	msgs := s.Conversation.Messages
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}
