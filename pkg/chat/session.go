// Package chat drives a single chat widget session: it sends one message at
// a time to the panel, streams the reply into the transcript and classifies
// how the send ended.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/panelctl/pkg/eventstream"
	"github.com/papercomputeco/panelctl/pkg/logger"
	"github.com/papercomputeco/panelctl/pkg/panel"
	"github.com/papercomputeco/panelctl/pkg/sse"
	"github.com/papercomputeco/panelctl/pkg/transcript"
	"github.com/papercomputeco/panelctl/pkg/worker"
)

// DefaultFailureMessage replaces the pending reply when a send fails.
const DefaultFailureMessage = "Sorry, something went wrong. Please try again."

var (
	// ErrBusy is returned by Send while another send is in flight.
	ErrBusy = errors.New("a message is already being sent")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// Backend is the part of the panel API a session talks to.
type Backend interface {
	StreamChat(ctx context.Context, req panel.ChatRequest) (io.ReadCloser, error)
	GetConversation(ctx context.Context, id int64) (*panel.Conversation, error)
}

// Hooks are invoked from the goroutine running Send, in the order things
// happen. Any of them may be nil.
type Hooks struct {
	// OnTranscript receives a copy of the transcript after every change.
	OnTranscript func(transcript.Snapshot)

	// OnStateChange receives every state transition.
	OnStateChange func(State)

	// OnConversationsChanged fires once when the panel assigns an ID to a
	// new conversation, so the conversation list can be reloaded.
	OnConversationsChanged func()
}

// Config configures a Session.
type Config struct {
	Backend Backend
	Hooks   Hooks

	// FailureMessage replaces the pending reply when a send fails
	// (defaults to DefaultFailureMessage).
	FailureMessage string

	// FlushTail emits an unterminated last line at end of stream instead of
	// dropping it.
	FlushTail bool

	// StreamDump, when set, receives a verbatim copy of every response body.
	StreamDump io.Writer

	// Events, when set, receives one turn event per finished send.
	Events *worker.Pool
	Source eventstream.EventSource

	Logger *slog.Logger
}

// Result describes how a send ended.
type Result struct {
	State          State
	ConversationID int64
	Content        string
	Err            error
}

// Session is one chat widget: a transcript plus the single-flight send
// machinery around it.
type Session struct {
	config    Config
	logger    *slog.Logger
	acc       *transcript.Accumulator
	canceller *Canceller
	now       func() time.Time

	mu      sync.Mutex
	state   State
	running chan struct{}
}

// NewSession returns an idle session with a blank conversation.
func NewSession(c Config) (*Session, error) {
	if c.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if c.FailureMessage == "" {
		c.FailureMessage = DefaultFailureMessage
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	return &Session{
		config:    c,
		logger:    c.Logger,
		acc:       transcript.NewAccumulator(),
		canceller: NewCanceller(),
		now:       time.Now,
	}, nil
}

// turn is the bookkeeping of a single send.
type turn struct {
	placeholder uuid.UUID
	startedAt   time.Time
	content     strings.Builder
	stats       eventstream.StreamStats
}

// Send posts text to the panel and streams the reply into the transcript.
// It blocks until the send reaches a terminal state. The returned error is
// only set when the send was refused; how an accepted send ended is
// reported in the Result.
func (s *Session) Send(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return Result{}, ErrBusy
	}
	s.state = StateSending
	done := make(chan struct{})
	s.running = done
	reqCtx := s.canceller.Start(ctx)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.running == done {
			s.running = nil
		}
		s.mu.Unlock()
		close(done)
	}()
	defer s.canceller.Release(reqCtx)
	s.emitState(StateSending)

	placeholder, err := s.acc.BeginSend(text)
	if err != nil {
		s.setState(StateIdle)
		return Result{}, fmt.Errorf("starting send: %w", err)
	}
	s.emitTranscript()

	t := &turn{placeholder: placeholder, startedAt: s.now()}
	t.stats.MessageBytes = len(text)

	body, err := s.config.Backend.StreamChat(reqCtx, panel.ChatRequest{
		ConversationID: s.acc.ConversationID(),
		Message:        text,
	})
	if err != nil {
		return s.finish(reqCtx, t, err), nil
	}
	defer body.Close()

	s.setState(StateStreaming)
	err = s.consume(reqCtx, t, body)
	return s.finish(reqCtx, t, err), nil
}

// consume runs the read loop: bytes to lines, lines to events, events to
// transcript writes. It returns the read error that ended the stream, or
// nil at a clean end of stream.
func (s *Session) consume(ctx context.Context, t *turn, body io.Reader) error {
	opts := []sse.Option{sse.WithFlushTail(s.config.FlushTail)}
	if s.config.StreamDump != nil {
		opts = append(opts, sse.WithTee(s.config.StreamDump))
	}

	parser := sse.NewParser()
	for line, err := range sse.NewDecoder(body, opts...).Lines() {
		if err != nil {
			return err
		}

		ev, perr := parser.Parse(line)
		if perr != nil {
			t.stats.ProtocolErrors++
			s.logger.Debug("ignoring stream line", "line", line, "error", perr)
			continue
		}
		if ev == nil {
			continue
		}

		switch ev.Kind {
		case sse.EventCompletion:
			if s.acc.BindConversationID(ev.ConversationID) {
				s.logger.Debug("conversation bound", "conversation_id", ev.ConversationID)
				s.emitTranscript()
				if s.config.Hooks.OnConversationsChanged != nil {
					s.config.Hooks.OnConversationsChanged()
				}
			}
		case sse.EventError:
			t.stats.ErrorEvents++
			s.applyDelta(ctx, t, ev.Data)
		default:
			t.stats.ContentEvents++
			s.applyDelta(ctx, t, ev.Data)
		}
	}
	return nil
}

func (s *Session) applyDelta(ctx context.Context, t *turn, delta string) {
	t.content.WriteString(delta)
	if err := s.acc.ApplyContentDelta(t.placeholder, t.content.String()); err != nil {
		s.logger.DebugContext(ctx, "dropping content delta", "error", err)
		return
	}
	s.emitTranscript()
}

// finish classifies how the send ended, settles the placeholder, publishes
// the turn event and returns the session to idle.
func (s *Session) finish(ctx context.Context, t *turn, err error) Result {
	var (
		state   State
		outcome string
	)

	switch {
	case err == nil:
		state, outcome = StateCompleted, eventstream.OutcomeCompleted
		if ferr := s.acc.FinalizeSuccess(t.placeholder); ferr != nil {
			s.logger.Debug("placeholder already settled", "error", ferr)
		}
	case s.canceller.IsCancellation(ctx, err):
		state, outcome = StateCancelled, eventstream.OutcomeCancelled
		if ferr := s.acc.Abandon(t.placeholder); ferr != nil {
			s.logger.Debug("placeholder already settled", "error", ferr)
		}
	default:
		state, outcome = StateFailed, eventstream.OutcomeFailed
		s.logger.Warn("chat request failed", "error", err)
		if ferr := s.acc.FinalizeFailure(t.placeholder, s.config.FailureMessage); ferr != nil {
			s.logger.Debug("placeholder already settled", "error", ferr)
		}
	}

	s.emitTranscript()
	s.setState(state)

	res := Result{
		State:          state,
		ConversationID: s.acc.ConversationID(),
		Content:        t.content.String(),
	}
	if state == StateFailed {
		res.Err = err
	}

	s.publish(t, res, outcome)
	s.setState(StateIdle)
	return res
}

func (s *Session) publish(t *turn, res Result, outcome string) {
	if s.config.Events == nil {
		return
	}

	ev := eventstream.NewTurnFinishedEvent(s.config.Source, outcome, t.startedAt, s.now())
	ev.ConversationID = res.ConversationID
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	ev.Stream = t.stats
	ev.Stream.ReplyBytes = len(res.Content)

	if !s.config.Events.Enqueue(worker.Job{Event: ev}) {
		s.logger.Warn("dropping turn event", "event_id", ev.EventID)
	}
}

// Cancel aborts the in-flight send, if any. The reply keeps whatever had
// streamed so far.
func (s *Session) Cancel() bool {
	return s.canceller.Cancel()
}

// NewConversation cancels any in-flight send and starts a blank
// conversation.
func (s *Session) NewConversation(ctx context.Context) error {
	if err := s.stop(ctx); err != nil {
		return err
	}

	s.acc.Reset()
	s.emitTranscript()
	return nil
}

// OpenConversation cancels any in-flight send and loads conversation id
// from the panel.
func (s *Session) OpenConversation(ctx context.Context, id int64) error {
	if err := s.stop(ctx); err != nil {
		return err
	}

	conv, err := s.config.Backend.GetConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("loading conversation %d: %w", id, err)
	}

	s.acc.Load(FromPanel(conv))
	s.emitTranscript()
	return nil
}

// stop cancels the in-flight send and waits for it to settle.
func (s *Session) stop(ctx context.Context) error {
	s.mu.Lock()
	done := s.running
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	s.canceller.Cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the current transcript.
func (s *Session) Transcript() transcript.Snapshot {
	return s.acc.Snapshot()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.emitState(state)
}

func (s *Session) emitState(state State) {
	if s.config.Hooks.OnStateChange != nil {
		s.config.Hooks.OnStateChange(state)
	}
}

func (s *Session) emitTranscript() {
	if s.config.Hooks.OnTranscript != nil {
		s.config.Hooks.OnTranscript(s.acc.Snapshot())
	}
}

// FromPanel converts a stored panel conversation into a transcript.
func FromPanel(conv *panel.Conversation) transcript.Conversation {
	out := transcript.Conversation{
		ID:        conv.ID,
		Title:     conv.Title,
		UpdatedAt: conv.UpdatedAt,
		Messages:  make([]transcript.Message, 0, len(conv.Messages)),
	}
	for _, m := range conv.Messages {
		out.Messages = append(out.Messages, transcript.Message{
			ID:        uuid.New(),
			Role:      transcript.Role(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}
