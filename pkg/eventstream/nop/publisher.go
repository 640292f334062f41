// Package nop provides a publisher that validates turn events and then
// drops them. It is the default when no event stream is configured.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/panelctl/pkg/eventstream"
)

type Publisher struct {
	dropped atomic.Int64
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTurn rejects invalid events so a misconfigured chat fails the
// same way with or without a broker.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnFinishedEvent) error {
	if err := eventstream.Validate(event); err != nil {
		return err
	}
	p.dropped.Add(1)
	return nil
}

// Dropped reports how many valid events were discarded.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error {
	return nil
}
