package chat

import "fmt"

// State is the send state machine:
//
//	Idle → Sending → Streaming → {Completed, Cancelled, Failed} → Idle
//
// Sending may also fail or be cancelled before any byte streams.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s ends a send.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Busy reports whether a send is in flight.
func (s State) Busy() bool {
	return s == StateSending || s == StateStreaming
}
