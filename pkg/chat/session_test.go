package chat_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/panelctl/pkg/chat"
	"github.com/papercomputeco/panelctl/pkg/eventstream"
	"github.com/papercomputeco/panelctl/pkg/panel"
	"github.com/papercomputeco/panelctl/pkg/transcript"
	"github.com/papercomputeco/panelctl/pkg/worker"
)

// fakeBackend answers StreamChat with respond, or with a fixed body.
type fakeBackend struct {
	mu            sync.Mutex
	requests      []panel.ChatRequest
	body          string
	respond       func(ctx context.Context) (io.ReadCloser, error)
	conversations map[int64]*panel.Conversation
}

func (f *fakeBackend) StreamChat(ctx context.Context, req panel.ChatRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		return respond(ctx)
	}
	return io.NopCloser(bytes.NewBufferString(f.body)), nil
}

func (f *fakeBackend) GetConversation(_ context.Context, id int64) (*panel.Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok {
		return nil, &panel.StatusError{Method: http.MethodGet, Path: fmt.Sprintf("/api/ai/conversations/%d", id), StatusCode: http.StatusNotFound}
	}
	return conv, nil
}

func (f *fakeBackend) lastRequest() panel.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// livePipe returns a response body fed by the returned writer. Cancelling
// ctx fails the pending read the way an HTTP body does.
func livePipe(ctx context.Context) (io.ReadCloser, *io.PipeWriter) {
	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		pw.CloseWithError(ctx.Err())
	}()
	return pr, pw
}

// recorder collects everything the session reports through its hooks.
type recorder struct {
	mu       sync.Mutex
	states   []chat.State
	last     transcript.Snapshot
	snaps    int
	reloads  int
	contents []string
}

func (r *recorder) hooks() chat.Hooks {
	return chat.Hooks{
		OnTranscript: func(s transcript.Snapshot) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.last = s
			r.snaps++
			if m, ok := s.Last(); ok && m.Role == transcript.RoleAssistant {
				r.contents = append(r.contents, m.Content)
			}
		},
		OnStateChange: func(s chat.State) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, s)
		},
		OnConversationsChanged: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.reloads++
		},
	}
}

func (r *recorder) reloadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}

func (r *recorder) stateLog() []chat.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.State(nil), r.states...)
}

func lastContent(s *chat.Session) string {
	m, ok := s.Transcript().Last()
	if !ok {
		return ""
	}
	return m.Content
}

// capturePublisher records published turn events.
type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnFinishedEvent
}

func (c *capturePublisher) PublishTurn(_ context.Context, ev *eventstream.TurnFinishedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) published() []*eventstream.TurnFinishedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*eventstream.TurnFinishedEvent(nil), c.events...)
}

var _ = Describe("Session", func() {
	var (
		backend *fakeBackend
		rec     *recorder
		session *chat.Session
		ctx     context.Context
	)

	newSession := func(mutate ...func(*chat.Config)) *chat.Session {
		cfg := chat.Config{Backend: backend, Hooks: rec.hooks()}
		for _, m := range mutate {
			m(&cfg)
		}
		s, err := chat.NewSession(cfg)
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	BeforeEach(func() {
		ctx = context.Background()
		backend = &fakeBackend{}
		rec = &recorder{}
		session = newSession()
	})

	It("requires a backend", func() {
		_, err := chat.NewSession(chat.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("rejects an empty message", func() {
		_, err := session.Send(ctx, "   ")
		Expect(err).To(MatchError(chat.ErrEmptyMessage))
		Expect(session.Transcript().Conversation.Messages).To(BeEmpty())
	})

	Context("when the stream completes", func() {
		BeforeEach(func() {
			backend.body = "data: Hel\n\ndata: lo, \n\ndata: world\n\n"
		})

		It("accumulates deltas in order", func() {
			res, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(chat.StateCompleted))
			Expect(res.Content).To(Equal("Hello, world"))
			Expect(res.Err).NotTo(HaveOccurred())

			snap := session.Transcript()
			Expect(snap.Pending()).To(BeFalse())
			Expect(snap.Conversation.Messages).To(HaveLen(2))
			Expect(snap.Conversation.Messages[0].Role).To(Equal(transcript.RoleUser))
			Expect(snap.Conversation.Messages[0].Content).To(Equal("hi"))
			Expect(snap.Conversation.Messages[1].Role).To(Equal(transcript.RoleAssistant))
			Expect(snap.Conversation.Messages[1].Content).To(Equal("Hello, world"))
		})

		It("renders every intermediate reply", func() {
			_, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.contents).To(ContainElements("Hel", "Hello, ", "Hello, world"))
		})

		It("walks the state machine back to idle", func() {
			_, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.stateLog()).To(Equal([]chat.State{
				chat.StateSending,
				chat.StateStreaming,
				chat.StateCompleted,
				chat.StateIdle,
			}))
			Expect(session.State()).To(Equal(chat.StateIdle))
		})

		It("trims the message before sending", func() {
			_, err := session.Send(ctx, "  hi \n")
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.lastRequest().Message).To(Equal("hi"))
			Expect(backend.lastRequest().ConversationID).To(BeZero())
		})

		It("copies the raw stream to the dump writer", func() {
			var dump bytes.Buffer
			session = newSession(func(c *chat.Config) { c.StreamDump = &dump })

			_, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(dump.String()).To(Equal(backend.body))
		})
	})

	Context("when the panel assigns a conversation id", func() {
		It("binds the first id and reloads the list once", func() {
			backend.body = "data: ok\n\nevent: done\ndata: 42\n\nevent: done\ndata: 99\n\n"

			res, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ConversationID).To(Equal(int64(42)))
			Expect(session.Transcript().Conversation.ID).To(Equal(int64(42)))
			Expect(rec.reloadCount()).To(Equal(1))
		})

		It("keeps the bound id across sends", func() {
			backend.body = "event: done\ndata: 42\n\n"
			_, err := session.Send(ctx, "first")
			Expect(err).NotTo(HaveOccurred())

			backend.body = "data: again\n\nevent: done\ndata: 7\n\n"
			res, err := session.Send(ctx, "second")
			Expect(err).NotTo(HaveOccurred())

			Expect(backend.lastRequest().ConversationID).To(Equal(int64(42)))
			Expect(res.ConversationID).To(Equal(int64(42)))
			Expect(rec.reloadCount()).To(Equal(1))
			Expect(session.Transcript().Conversation.Messages).To(HaveLen(4))
		})

		It("ignores a malformed done payload", func() {
			backend.body = "event: done\ndata: abc\n\ndata: still here\n\n"

			res, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(chat.StateCompleted))
			Expect(res.ConversationID).To(BeZero())
			Expect(res.Content).To(Equal("still here"))
			Expect(rec.reloadCount()).To(BeZero())
		})
	})

	It("shows error events as reply content", func() {
		backend.body = "data: partial \n\nevent: error\ndata: rate limited\n\n"

		res, err := session.Send(ctx, "hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.State).To(Equal(chat.StateCompleted))
		Expect(lastContent(session)).To(Equal("partial rate limited"))
	})

	It("ignores unrecognized lines", func() {
		backend.body = ": keep-alive\nid: 3\ndata: fine\n\n"

		res, err := session.Send(ctx, "hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.State).To(Equal(chat.StateCompleted))
		Expect(lastContent(session)).To(Equal("fine"))
	})

	It("decodes a multi-byte character split across chunks", func() {
		backend.respond = func(ctx context.Context) (io.ReadCloser, error) {
			body, w := livePipe(ctx)
			go func() {
				frame := []byte("data: café\n\n")
				split := bytes.IndexByte(frame, 0xc3) + 1
				_, _ = w.Write(frame[:split])
				_, _ = w.Write(frame[split:])
				w.Close()
			}()
			return body, nil
		}

		res, err := session.Send(ctx, "hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Content).To(Equal("café"))
		Expect(res.Content).NotTo(ContainSubstring("�"))
	})

	Context("when the send is cancelled", func() {
		var (
			writer  *io.PipeWriter
			results chan chat.Result
		)

		startStreaming := func() {
			opened := make(chan *io.PipeWriter, 1)
			backend.respond = func(ctx context.Context) (io.ReadCloser, error) {
				body, w := livePipe(ctx)
				opened <- w
				return body, nil
			}

			results = make(chan chat.Result, 1)
			go func() {
				defer GinkgoRecover()
				res, err := session.Send(ctx, "hi")
				Expect(err).NotTo(HaveOccurred())
				results <- res
			}()

			Eventually(opened).Should(Receive(&writer))
			_, err := writer.Write([]byte("data: partial\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Eventually(func() string { return lastContent(session) }).Should(Equal("partial"))
		}

		It("leaves the reply exactly as last written", func() {
			startStreaming()
			Expect(session.State()).To(Equal(chat.StateStreaming))

			Expect(session.Cancel()).To(BeTrue())

			var res chat.Result
			Eventually(results).Should(Receive(&res))
			Expect(res.State).To(Equal(chat.StateCancelled))
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(lastContent(session)).To(Equal("partial"))
			Expect(lastContent(session)).NotTo(Equal(chat.DefaultFailureMessage))
			Expect(session.Transcript().Pending()).To(BeFalse())
			Expect(session.State()).To(Equal(chat.StateIdle))
		})

		It("refuses a second send while busy", func() {
			startStreaming()

			_, err := session.Send(ctx, "again")
			Expect(err).To(MatchError(chat.ErrBusy))

			session.Cancel()
			Eventually(results).Should(Receive())

			backend.respond = nil
			backend.body = "data: ok\n\n"
			res, err := session.Send(ctx, "again")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(chat.StateCompleted))
		})

		It("cancels the stream when starting a new conversation", func() {
			startStreaming()

			Expect(session.NewConversation(ctx)).To(Succeed())

			var res chat.Result
			Eventually(results).Should(Receive(&res))
			Expect(res.State).To(Equal(chat.StateCancelled))
			Expect(session.Transcript().Conversation.Messages).To(BeEmpty())
			Expect(session.State()).To(Equal(chat.StateIdle))

			_, err := writer.Write([]byte("data: late\n\n"))
			Expect(err).To(HaveOccurred())
			Expect(session.Transcript().Conversation.Messages).To(BeEmpty())
		})

		It("treats a cancelled caller context as cancellation", func() {
			var cancel context.CancelFunc
			ctx, cancel = context.WithCancel(context.Background())
			startStreaming()

			cancel()

			var res chat.Result
			Eventually(results).Should(Receive(&res))
			Expect(res.State).To(Equal(chat.StateCancelled))
			Expect(lastContent(session)).To(Equal("partial"))
		})
	})

	Context("when the send fails", func() {
		It("replaces the reply with the failure message on a status error", func() {
			backend.respond = func(context.Context) (io.ReadCloser, error) {
				return nil, &panel.StatusError{Method: http.MethodPost, Path: "/api/ai/chat", StatusCode: http.StatusBadGateway}
			}

			res, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(chat.StateFailed))
			Expect(res.Err).To(HaveOccurred())
			Expect(lastContent(session)).To(Equal(chat.DefaultFailureMessage))
			Expect(rec.stateLog()).To(Equal([]chat.State{chat.StateSending, chat.StateFailed, chat.StateIdle}))
		})

		It("replaces a partial reply when the read fails", func() {
			backend.respond = func(ctx context.Context) (io.ReadCloser, error) {
				body, w := livePipe(ctx)
				go func() {
					_, _ = w.Write([]byte("data: half\n\n"))
					w.CloseWithError(errors.New("connection reset by peer"))
				}()
				return body, nil
			}
			session = newSession(func(c *chat.Config) { c.FailureMessage = "Request failed." })

			res, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(chat.StateFailed))
			Expect(res.Err).To(MatchError(ContainSubstring("connection reset")))
			Expect(lastContent(session)).To(Equal("Request failed."))
		})

		It("treats an expired deadline as a failure", func() {
			backend.respond = func(ctx context.Context) (io.ReadCloser, error) {
				body, _ := livePipe(ctx)
				return body, nil
			}
			deadline, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			res, err := session.Send(deadline, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(chat.StateFailed))
			Expect(lastContent(session)).To(Equal(chat.DefaultFailureMessage))
		})
	})

	Describe("OpenConversation", func() {
		BeforeEach(func() {
			backend.conversations = map[int64]*panel.Conversation{
				5: {
					ID:    5,
					Title: "DNS",
					Messages: []panel.ConversationMessage{
						{Role: "user", Content: "list zones"},
						{Role: "assistant", Content: "example.com"},
					},
				},
			}
		})

		It("loads the stored transcript and continues it", func() {
			Expect(session.OpenConversation(ctx, 5)).To(Succeed())

			snap := session.Transcript()
			Expect(snap.Conversation.ID).To(Equal(int64(5)))
			Expect(snap.Conversation.Title).To(Equal("DNS"))
			Expect(snap.Conversation.Messages).To(HaveLen(2))

			backend.body = "data: more\n\nevent: done\ndata: 5\n\n"
			_, err := session.Send(ctx, "again")
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.lastRequest().ConversationID).To(Equal(int64(5)))
			Expect(rec.reloadCount()).To(BeZero())
			Expect(session.Transcript().Conversation.Messages).To(HaveLen(4))
		})

		It("keeps the current transcript when loading fails", func() {
			backend.body = "data: ok\n\n"
			_, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())

			err = session.OpenConversation(ctx, 404)
			Expect(err).To(HaveOccurred())
			Expect(panel.IsNotFound(err)).To(BeTrue())
			Expect(session.Transcript().Conversation.Messages).To(HaveLen(2))
		})
	})

	It("publishes one turn event per send", func() {
		pub := &capturePublisher{}
		pool, err := worker.NewPool(&worker.Config{Publisher: pub})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)

		session = newSession(func(c *chat.Config) {
			c.Events = pool
			c.Source = eventstream.EventSource{Panel: "http://panel", Client: "panelctl"}
		})
		backend.body = "data: Hello\n\nevent: done\ndata: 42\n\n"

		_, err = session.Send(ctx, "hi")
		Expect(err).NotTo(HaveOccurred())

		Eventually(pub.published).Should(HaveLen(1))
		ev := pub.published()[0]
		Expect(ev.Outcome).To(Equal(eventstream.OutcomeCompleted))
		Expect(ev.ConversationID).To(Equal(int64(42)))
		Expect(ev.Source.Client).To(Equal("panelctl"))
		Expect(ev.Stream.MessageBytes).To(Equal(2))
		Expect(ev.Stream.ReplyBytes).To(Equal(5))
		Expect(ev.Stream.ContentEvents).To(Equal(1))
	})

	Describe("against a live panel", func() {
		var server *httptest.Server

		AfterEach(func() {
			server.Close()
		})

		It("streams a reply flushed in pieces", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/api/ai/chat"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer secret"))
				w.Header().Set("Content-Type", "text/event-stream")
				flusher := w.(http.Flusher)
				for _, frame := range []string{"data: Hel\n\n", "data: lo\n", "\nevent: done\n", "data: 12\n\n"} {
					_, _ = io.WriteString(w, frame)
					flusher.Flush()
				}
			}))
			client, err := panel.NewClient(server.URL, "secret")
			Expect(err).NotTo(HaveOccurred())
			session = newSession(func(c *chat.Config) { c.Backend = client })

			res, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(chat.StateCompleted))
			Expect(res.Content).To(Equal("Hello"))
			Expect(res.ConversationID).To(Equal(int64(12)))
		})

		It("fails on a non-2xx status", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "upstream down", http.StatusBadGateway)
			}))
			client, err := panel.NewClient(server.URL, "secret")
			Expect(err).NotTo(HaveOccurred())
			session = newSession(func(c *chat.Config) { c.Backend = client })

			res, err := session.Send(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(chat.StateFailed))

			var statusErr *panel.StatusError
			Expect(errors.As(res.Err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusBadGateway))
			Expect(lastContent(session)).To(Equal(chat.DefaultFailureMessage))
		})
	})
})
