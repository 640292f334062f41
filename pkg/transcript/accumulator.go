package transcript

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPendingActive is returned by BeginSend while a reply is streaming.
	ErrPendingActive = errors.New("a reply is already streaming")

	// ErrStalePlaceholder is returned when a write targets a placeholder
	// that is no longer pending, for example after switching conversations.
	ErrStalePlaceholder = errors.New("placeholder is not pending")

	// ErrContentRegressed is returned when a content update would shrink the
	// pending reply.
	ErrContentRegressed = errors.New("content update is shorter than current content")
)

// Accumulator owns the visible transcript. It is the only writer of the
// conversation; renderers read it through Snapshot.
type Accumulator struct {
	mu      sync.RWMutex
	conv    Conversation
	pending uuid.UUID
	now     func() time.Time
}

// NewAccumulator returns an Accumulator with an empty, unbound conversation.
func NewAccumulator() *Accumulator {
	return &Accumulator{now: time.Now}
}

// BeginSend appends the user's message followed by an empty assistant
// placeholder and returns the placeholder's ID.
func (a *Accumulator) BeginSend(userText string) (uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending != uuid.Nil {
		return uuid.Nil, ErrPendingActive
	}

	now := a.now()
	placeholder := Message{ID: uuid.New(), Role: RoleAssistant, CreatedAt: now}
	a.conv.Messages = append(a.conv.Messages,
		Message{ID: uuid.New(), Role: RoleUser, Content: userText, CreatedAt: now},
		placeholder,
	)
	a.pending = placeholder.ID

	return placeholder.ID, nil
}

// ApplyContentDelta replaces the placeholder's content with fullContent,
// the cumulative reply so far.
func (a *Accumulator) ApplyContentDelta(id uuid.UUID, fullContent string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	msg, err := a.pendingMessage(id)
	if err != nil {
		return err
	}
	if len(fullContent) < len(msg.Content) {
		return ErrContentRegressed
	}

	msg.Content = fullContent
	return nil
}

// BindConversationID sets the conversation ID if none is bound yet. Only
// positive IDs bind. It reports whether the ID was bound by this call.
func (a *Accumulator) BindConversationID(id int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id <= 0 || a.conv.ID != 0 {
		return false
	}

	a.conv.ID = id
	a.conv.UpdatedAt = a.now()
	return true
}

// FinalizeFailure replaces the placeholder content with text and ends the
// pending reply. It is never used for user cancellation.
func (a *Accumulator) FinalizeFailure(id uuid.UUID, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	msg, err := a.pendingMessage(id)
	if err != nil {
		return err
	}

	msg.Content = text
	a.pending = uuid.Nil
	return nil
}

// FinalizeSuccess ends the pending reply without touching its content.
func (a *Accumulator) FinalizeSuccess(id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.pendingMessage(id); err != nil {
		return err
	}

	a.pending = uuid.Nil
	a.conv.UpdatedAt = a.now()
	return nil
}

// Abandon ends the pending reply and leaves its content exactly as last
// written. Used when the stream was cancelled.
func (a *Accumulator) Abandon(id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.pendingMessage(id); err != nil {
		return err
	}

	a.pending = uuid.Nil
	return nil
}

// Load replaces the transcript with an existing conversation. Any pending
// placeholder is dropped, so late writes to it fail with
// ErrStalePlaceholder.
func (a *Accumulator) Load(conv Conversation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	conv.Messages = slices.Clone(conv.Messages)
	a.conv = conv
	a.pending = uuid.Nil
}

// Reset starts a blank, unbound conversation.
func (a *Accumulator) Reset() {
	a.Load(Conversation{})
}

// ConversationID returns the bound conversation ID, or zero.
func (a *Accumulator) ConversationID() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.conv.ID
}

// Snapshot returns a deep copy of the transcript.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	conv := a.conv
	conv.Messages = slices.Clone(a.conv.Messages)
	return Snapshot{Conversation: conv, PendingID: a.pending}
}

// pendingMessage finds the placeholder by ID. Callers must hold the lock.
func (a *Accumulator) pendingMessage(id uuid.UUID) (*Message, error) {
	if id == uuid.Nil || id != a.pending {
		return nil, ErrStalePlaceholder
	}

	for i := range a.conv.Messages {
		if a.conv.Messages[i].ID == id {
			return &a.conv.Messages[i], nil
		}
	}
	return nil, ErrStalePlaceholder
}
