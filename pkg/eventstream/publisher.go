// Package eventstream publishes chat turn lifecycle events to an event
// stream backend.
package eventstream

import "context"

// Publisher publishes turn events to an event stream backend.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnFinishedEvent) error
	Close() error
}
