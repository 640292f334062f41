// Package sse decodes the panel's chat stream: a chunked HTTP body framed
// with SSE-style "event:" and "data:" lines.
//
// The framing is looser than the SSE specification. Every "data:" line is
// its own event and resets the pending event name, instead of accumulating
// data lines until a blank line. The Parser keeps that behavior so it stays
// wire compatible with the panel backend.
//
// See the SSE specification for the strict variant:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"fmt"
)

const (
	// EventNameDone marks the completion event. Its payload is the decimal
	// conversation ID assigned by the server.
	EventNameDone = "done"

	// EventNameError marks an error event. Its payload is literal text.
	EventNameError = "error"
)

// Kind classifies a parsed stream event.
type Kind int

const (
	// EventContent is a content delta for the pending assistant reply.
	EventContent Kind = iota

	// EventCompletion carries the server-assigned conversation ID.
	EventCompletion

	// EventError carries error text that is shown inline like content.
	EventError
)

func (k Kind) String() string {
	switch k {
	case EventContent:
		return "content"
	case EventCompletion:
		return "completion"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a single classified stream event. Events are transient and never
// persisted.
type Event struct {
	// Kind is the event classification.
	Kind Kind

	// Data is the delta text for EventContent or the error text for
	// EventError. It is empty for EventCompletion.
	Data string

	// ConversationID is set for EventCompletion only.
	ConversationID int64
}

// ProtocolError describes a line the Parser could not use. The stream is
// never aborted because of one; callers log it and keep reading.
type ProtocolError struct {
	Line   string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sse: %s: %q: %v", e.Reason, e.Line, e.Err)
	}
	return fmt.Sprintf("sse: %s: %q", e.Reason, e.Line)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
