package eventstream

import (
	"errors"
	"fmt"
)

var (
	// ErrNilTurnEvent indicates a nil turn event was handed to a publisher.
	ErrNilTurnEvent = errors.New("nil turn event")

	// ErrInvalidTurnEvent wraps every other validation failure.
	ErrInvalidTurnEvent = errors.New("invalid turn event")
)

// Validate checks the fields every publisher relies on. Events built with
// NewTurnFinishedEvent and a known outcome always pass.
func Validate(event *TurnFinishedEvent) error {
	if event == nil {
		return ErrNilTurnEvent
	}

	switch {
	case event.EventID == "":
		return fmt.Errorf("%w: missing event id", ErrInvalidTurnEvent)
	case event.EventType != EventTypeTurnFinished:
		return fmt.Errorf("%w: unexpected event type %q", ErrInvalidTurnEvent, event.EventType)
	}

	switch event.Outcome {
	case OutcomeCompleted, OutcomeCancelled, OutcomeFailed:
		return nil
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidTurnEvent, event.Outcome)
	}
}
