package sse

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// parseStream runs raw chunks through a Decoder and Parser, collecting the
// events and protocol errors in arrival order.
func parseStream(chunks ...[]byte) ([]Event, []error) {
	d := NewDecoder(newChunkReader(chunks...))
	p := NewParser()

	var events []Event
	var perrs []error
	for line, err := range d.Lines() {
		Expect(err).NotTo(HaveOccurred())
		ev, perr := p.Parse(line)
		if perr != nil {
			perrs = append(perrs, perr)
			continue
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, perrs
}

var _ = Describe("Parser", func() {
	var p *Parser

	BeforeEach(func() {
		p = NewParser()
	})

	Describe("Parse", func() {
		It("treats data without an event name as content", func() {
			ev, err := p.Parse("data: hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(*ev).To(Equal(Event{Kind: EventContent, Data: "hello"}))
		})

		It("keeps leading and trailing spaces of the payload", func() {
			ev, err := p.Parse("data:  lo, ")
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal(" lo, "))
		})

		It("records the event name without emitting", func() {
			ev, err := p.Parse("event:  done  ")
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
			Expect(p.State().EventName).To(Equal("done"))
		})

		It("parses a done payload as the conversation id", func() {
			_, _ = p.Parse("event: done")
			ev, err := p.Parse("data: 42")
			Expect(err).NotTo(HaveOccurred())
			Expect(*ev).To(Equal(Event{Kind: EventCompletion, ConversationID: 42}))
		})

		It("emits error text as an error event", func() {
			_, _ = p.Parse("event: error")
			ev, err := p.Parse("data: rate limited")
			Expect(err).NotTo(HaveOccurred())
			Expect(*ev).To(Equal(Event{Kind: EventError, Data: "rate limited"}))
		})

		It("resets the event name after a single data line", func() {
			_, _ = p.Parse("event: error")
			first, _ := p.Parse("data: one")
			second, _ := p.Parse("data: two")

			Expect(first.Kind).To(Equal(EventError))
			Expect(second.Kind).To(Equal(EventContent))
			Expect(p.State().EventName).To(BeEmpty())
		})

		It("resets the event name on a blank line", func() {
			_, _ = p.Parse("event: done")
			ev, err := p.Parse("")
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
			Expect(p.State().EventName).To(BeEmpty())
		})

		It("treats unknown event names as content", func() {
			_, _ = p.Parse("event: progress")
			ev, err := p.Parse("data: 50%")
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Kind).To(Equal(EventContent))
		})

		It("reports a non-numeric done payload", func() {
			_, _ = p.Parse("event: done")
			ev, err := p.Parse("data: soon")
			Expect(ev).To(BeNil())

			var perr *ProtocolError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Reason).To(Equal("invalid conversation id"))
			Expect(p.State().EventName).To(BeEmpty())
		})

		It("reports lines outside the framing", func() {
			for _, line := range []string{": keep-alive", "id: 3", "data:no-space", "retry: 10"} {
				ev, err := p.Parse(line)
				Expect(ev).To(BeNil())

				var perr *ProtocolError
				Expect(errors.As(err, &perr)).To(BeTrue(), line)
				Expect(perr.Line).To(Equal(line))
			}
		})
	})

	Describe("chunk-boundary invariance", func() {
		stream := []byte("data: Hel\n\ndata: lo, \n\nevent: error\ndata: rate limited ✓ 日本\n\n" +
			"event: done\ndata: 42\n\ndata: wörld\n")

		expected := []Event{
			{Kind: EventContent, Data: "Hel"},
			{Kind: EventContent, Data: "lo, "},
			{Kind: EventError, Data: "rate limited ✓ 日本"},
			{Kind: EventCompletion, ConversationID: 42},
			{Kind: EventContent, Data: "wörld"},
		}

		It("yields the same events as a single chunk", func() {
			events, perrs := parseStream(stream)
			Expect(perrs).To(BeEmpty())
			Expect(events).To(Equal(expected))
		})

		It("yields the same events for every two-way split", func() {
			for i := 1; i < len(stream); i++ {
				events, _ := parseStream(stream[:i], stream[i:])
				Expect(events).To(Equal(expected), "split at %d", i)
			}
		})

		It("yields the same events for every three-way split", func() {
			for i := 1; i < len(stream)-1; i++ {
				for j := i + 1; j < len(stream); j++ {
					events, _ := parseStream(stream[:i], stream[i:j], stream[j:])
					Expect(events).To(Equal(expected), "split at %d and %d", i, j)
				}
			}
		})

		It("yields the same events when fed byte by byte", func() {
			chunks := make([][]byte, len(stream))
			for i := range stream {
				chunks[i] = stream[i : i+1]
			}
			events, _ := parseStream(chunks...)
			Expect(events).To(Equal(expected))
		})
	})
})
