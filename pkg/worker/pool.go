// Package worker provides an asynchronous worker pool that publishes chat
// turn events using the provided eventstream.Publisher.
//
// The pool decouples publishing from the chat read loop so that a slow or
// unreachable event backend never stalls a streaming reply.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/panelctl/pkg/eventstream"
	"github.com/papercomputeco/panelctl/pkg/logger"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 64
	defaultPublishTimeout      = 10 * time.Second
	defaultMaxAttempts    uint = 3
	defaultRetryBackoff        = 200 * time.Millisecond
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Event *eventstream.TurnFinishedEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every enqueued event.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// PublishTimeout bounds a single publish attempt (defaults to 10s).
	PublishTimeout time.Duration

	// MaxAttempts caps publish attempts per event (defaults to 3). Events
	// that fail validation are never retried.
	MaxAttempts uint

	// RetryBackoff is the wait before the second attempt, doubling after
	// each further failure (defaults to 200ms).
	RetryBackoff time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool publishes turn events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// Stats counts what happened to enqueued events.
type Stats struct {
	Published int64
	Failed    int64
	Dropped   int64
}

// Stats returns the counters so far. After Close they are final.
func (p *Pool) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaultMaxAttempts
	}

	if c.RetryBackoff == 0 {
		c.RetryBackoff = defaultRetryBackoff
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is
// closed, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	if job.Event == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.dropped.Add(1)
		p.logger.Warn("job not queued, pool closed", "event_id", job.Event.EventID)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"event_id", job.Event.EventID,
			"outcome", job.Event.Outcome,
		)
		return true
	default:
		p.dropped.Add(1)
		p.logger.Error("job not queued, queue full, job dropped",
			"event_id", job.Event.EventID,
			"outcome", job.Event.Outcome,
		)
		return false
	}
}

// Close signals workers to stop, waits for in-flight jobs to drain and
// closes the publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob publishes one event, retrying transient failures with
// doubling backoff.
func (p *Pool) processJob(job Job) {
	backoff := p.config.RetryBackoff

	for attempt := uint(1); ; attempt++ {
		err := p.publish(job.Event)
		if err == nil {
			p.published.Add(1)
			p.logger.Debug("turn event published",
				"event_id", job.Event.EventID,
				"conversation_id", job.Event.ConversationID,
				"outcome", job.Event.Outcome,
				"attempt", attempt,
			)
			return
		}

		if !retryable(err) || attempt >= p.config.MaxAttempts {
			p.failed.Add(1)
			p.logger.Warn("publishing turn event failed",
				"event_id", job.Event.EventID,
				"attempts", attempt,
				"error", err,
			)
			return
		}

		p.logger.Debug("retrying turn event",
			"event_id", job.Event.EventID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		time.Sleep(backoff)
		backoff *= 2
	}
}

func (p *Pool) publish(event *eventstream.TurnFinishedEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()
	return p.config.Publisher.PublishTurn(ctx, event)
}

// retryable reports whether another attempt could succeed. A malformed
// event fails the same way every time.
func retryable(err error) bool {
	return !errors.Is(err, eventstream.ErrNilTurnEvent) && !errors.Is(err, eventstream.ErrInvalidTurnEvent)
}
