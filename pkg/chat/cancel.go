package chat

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is the cancellation cause for a request stopped by Cancel.
var ErrCancelled = errors.New("chat request cancelled")

// Canceller owns the abort handle of the single outstanding request.
type Canceller struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewCanceller returns a Canceller with no outstanding request.
func NewCanceller() *Canceller {
	return &Canceller{}
}

// Start returns a context bound to a new request. A request still owned by
// the Canceller is cancelled first.
func (c *Canceller) Start(parent context.Context) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel(ErrCancelled)
	}

	c.ctx, c.cancel = context.WithCancelCause(parent)
	return c.ctx
}

// Cancel cancels the outstanding request, if any, and reports whether
// there was one. The pending body read fails; nothing is interrupted
// preemptively.
func (c *Canceller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return false
	}

	c.cancel(ErrCancelled)
	c.ctx, c.cancel = nil, nil
	return true
}

// Release drops the handle for ctx once its request has ended. A context
// that was already superseded by Start is ignored.
func (c *Canceller) Release(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx != ctx || c.cancel == nil {
		return
	}

	c.cancel(nil)
	c.ctx, c.cancel = nil, nil
}

// Active reports whether a request is outstanding.
func (c *Canceller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// IsCancellation reports whether err, returned while working under ctx, was
// caused by cancellation rather than by the transport. Cancellation of a
// parent context counts; an expired deadline does not.
func (c *Canceller) IsCancellation(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCancelled) {
		return true
	}
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(context.Cause(ctx), ErrCancelled) || errors.Is(context.Cause(ctx), context.Canceled)
}
