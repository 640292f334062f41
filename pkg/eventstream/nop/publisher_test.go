package nop_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/panelctl/pkg/eventstream"
	"github.com/papercomputeco/panelctl/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	var p *nop.Publisher

	BeforeEach(func() {
		p = nop.NewPublisher()
	})

	It("drops valid events and counts them", func() {
		now := time.Now()
		for _, outcome := range []string{eventstream.OutcomeCompleted, eventstream.OutcomeCancelled, eventstream.OutcomeFailed} {
			ev := eventstream.NewTurnFinishedEvent(eventstream.EventSource{}, outcome, now, now)
			Expect(p.PublishTurn(context.Background(), ev)).To(Succeed())
		}
		Expect(p.Dropped()).To(Equal(int64(3)))
	})

	It("returns ErrNilTurnEvent for nil events", func() {
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
		Expect(p.Dropped()).To(BeZero())
	})

	It("rejects events that were not built by NewTurnFinishedEvent", func() {
		err := p.PublishTurn(context.Background(), &eventstream.TurnFinishedEvent{})
		Expect(err).To(MatchError(eventstream.ErrInvalidTurnEvent))
	})

	It("closes successfully", func() {
		Expect(p.Close()).To(Succeed())
	})
})
