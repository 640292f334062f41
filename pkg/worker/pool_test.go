package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/panelctl/pkg/eventstream"
	"github.com/papercomputeco/panelctl/pkg/logger"
)

// recordingPublisher keeps every published event. block, when set, holds
// PublishTurn until it is closed.
// failFirst makes that many calls fail with errFlaky before succeeding.
type recordingPublisher struct {
	mu        sync.Mutex
	events    []*eventstream.TurnFinishedEvent
	err       error
	failFirst int
	calls     int
	block     chan struct{}
	closed    bool
}

var errFlaky = errors.New("broker unavailable")

func (r *recordingPublisher) PublishTurn(_ context.Context, event *eventstream.TurnFinishedEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	if r.calls <= r.failFirst {
		return errFlaky
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingPublisher) published() []*eventstream.TurnFinishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventstream.TurnFinishedEvent(nil), r.events...)
}

func newEvent(outcome string) *eventstream.TurnFinishedEvent {
	now := time.Now()
	return eventstream.NewTurnFinishedEvent(eventstream.EventSource{Panel: "http://panel"}, outcome, now, now)
}

var _ = Describe("Worker Pool", func() {
	var pub *recordingPublisher

	BeforeEach(func() {
		pub = &recordingPublisher{}
	})

	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(HaveOccurred())
	})

	It("applies defaults", func() {
		wp, err := NewPool(&Config{Publisher: pub})
		Expect(err).NotTo(HaveOccurred())
		Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(wp.config.QueueSize).To(Equal(defaultJobQueueSize))
		Expect(wp.config.MaxAttempts).To(Equal(defaultMaxAttempts))
		Expect(wp.config.RetryBackoff).To(Equal(defaultRetryBackoff))
		Expect(wp.Close()).To(Succeed())
	})

	Describe("Enqueue", func() {
		It("publishes every queued event before Close returns", func() {
			wp, err := NewPool(&Config{Publisher: pub, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())

			for _, outcome := range []string{eventstream.OutcomeCompleted, eventstream.OutcomeCancelled, eventstream.OutcomeFailed} {
				Expect(wp.Enqueue(Job{Event: newEvent(outcome)})).To(BeTrue())
			}

			Expect(wp.Close()).To(Succeed())
			Expect(pub.published()).To(HaveLen(3))
			Expect(pub.closed).To(BeTrue())
			Expect(wp.Stats()).To(Equal(Stats{Published: 3}))
		})

		It("drops jobs without an event", func() {
			wp, err := NewPool(&Config{Publisher: pub})
			Expect(err).NotTo(HaveOccurred())
			Expect(wp.Enqueue(Job{})).To(BeFalse())
			Expect(wp.Close()).To(Succeed())
		})

		It("drops jobs when the queue is full", func() {
			pub.block = make(chan struct{})
			wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1, QueueSize: 1})
			Expect(err).NotTo(HaveOccurred())

			// The first job is picked up by the worker and blocks; the second
			// fills the queue.
			Expect(wp.Enqueue(Job{Event: newEvent(eventstream.OutcomeCompleted)})).To(BeTrue())
			Eventually(func() int { return len(wp.queue) }).Should(BeZero())
			Expect(wp.Enqueue(Job{Event: newEvent(eventstream.OutcomeCompleted)})).To(BeTrue())
			Expect(wp.Enqueue(Job{Event: newEvent(eventstream.OutcomeCompleted)})).To(BeFalse())

			close(pub.block)
			Expect(wp.Close()).To(Succeed())
			Expect(pub.published()).To(HaveLen(2))
			Expect(wp.Stats()).To(Equal(Stats{Published: 2, Dropped: 1}))
		})

		It("refuses jobs after Close", func() {
			wp, err := NewPool(&Config{Publisher: pub})
			Expect(err).NotTo(HaveOccurred())
			Expect(wp.Close()).To(Succeed())
			Expect(wp.Close()).To(Succeed())

			Expect(wp.Enqueue(Job{Event: newEvent(eventstream.OutcomeCompleted)})).To(BeFalse())
			Expect(wp.Stats().Dropped).To(BeEquivalentTo(1))
		})

		It("gives up after MaxAttempts and keeps working", func() {
			pub.err = errors.New("broker down")
			wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1, MaxAttempts: 3, RetryBackoff: time.Millisecond})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(Job{Event: newEvent(eventstream.OutcomeFailed)})).To(BeTrue())
			Expect(wp.Enqueue(Job{Event: newEvent(eventstream.OutcomeFailed)})).To(BeTrue())
			Expect(wp.Close()).To(Succeed())
			Expect(pub.published()).To(BeEmpty())
			Expect(pub.callCount()).To(Equal(6))
			Expect(wp.Stats()).To(Equal(Stats{Failed: 2}))
		})

		It("retries transient failures", func() {
			pub.failFirst = 2
			wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1, MaxAttempts: 3, RetryBackoff: time.Millisecond})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(Job{Event: newEvent(eventstream.OutcomeCompleted)})).To(BeTrue())
			Expect(wp.Close()).To(Succeed())
			Expect(pub.published()).To(HaveLen(1))
			Expect(pub.callCount()).To(Equal(3))
			Expect(wp.Stats()).To(Equal(Stats{Published: 1}))
		})

		It("does not retry invalid events", func() {
			pub.err = fmt.Errorf("%w: missing event id", eventstream.ErrInvalidTurnEvent)
			wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1, MaxAttempts: 5, RetryBackoff: time.Millisecond})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(Job{Event: newEvent(eventstream.OutcomeCompleted)})).To(BeTrue())
			Expect(wp.Close()).To(Succeed())
			Expect(pub.callCount()).To(Equal(1))
			Expect(wp.Stats().Failed).To(BeEquivalentTo(1))
		})
	})
})
