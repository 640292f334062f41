package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/papercomputeco/panelctl/pkg/chat"
	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/panel"
	"github.com/papercomputeco/panelctl/pkg/transcript"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

// streamPrinter writes the growing reply to out as deltas arrive.
type streamPrinter struct {
	out io.Writer

	mu      sync.Mutex
	id      uuid.UUID
	printed string
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{out: out}
}

// OnTranscript prints the part of the pending reply not yet written.
func (p *streamPrinter) OnTranscript(snap transcript.Snapshot) {
	if !snap.Pending() {
		return
	}

	msg, ok := snap.Last()
	if !ok || msg.ID != snap.PendingID {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if msg.ID != p.id {
		p.id = msg.ID
		p.printed = ""
	}

	// Cumulative content only ever grows, so the new part is the suffix.
	delta, ok := strings.CutPrefix(msg.Content, p.printed)
	if !ok || delta == "" {
		return
	}
	fmt.Fprint(p.out, delta)
	p.printed = msg.Content
}

func (c *chatCommander) runPlain(ctx context.Context, client *panel.Client, sc chat.Config, in io.Reader, out io.Writer) error {
	if _, err := checkConfigured(ctx, client); err != nil {
		if errors.Is(err, ErrNotConfigured) {
			fmt.Fprintf(out, "\n  %s %s\n\n", cliui.WarnStyle.Render("!"), notConfiguredBanner)
		}
		return err
	}

	var printer *streamPrinter
	if !c.markdown {
		printer = newStreamPrinter(out)
		sc.Hooks.OnTranscript = printer.OnTranscript
	}

	session, err := chat.NewSession(sc)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	if c.conversationID != 0 {
		if err := session.OpenConversation(ctx, c.conversationID); err != nil {
			return err
		}
		printTranscript(out, session.Transcript())
	} else {
		fmt.Fprintf(out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(out, "  %s %s\n\n", cliui.KeyStyle.Render("Panel:"), cliui.NameStyle.Render(client.BaseURL()))
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /new, /open <id>, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "/exit":
			fmt.Fprintln(out)
			return nil
		case input == "/new":
			if err := session.NewConversation(ctx); err != nil {
				return err
			}
			fmt.Fprintf(out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		case strings.HasPrefix(input, "/open"):
			c.openConversation(ctx, out, session, strings.TrimSpace(strings.TrimPrefix(input, "/open")))
			continue
		}

		c.sendPlain(ctx, out, session, input)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

// sendPlain sends one message. Ctrl+C while it runs cancels the reply
// instead of exiting.
func (c *chatCommander) sendPlain(ctx context.Context, out io.Writer, session *chat.Session, input string) {
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var (
		res chat.Result
		err error
	)
	if c.markdown {
		_ = cliui.Step(out, "Waiting for reply", func() error {
			res, err = session.Send(sendCtx, input)
			if err == nil && res.State == chat.StateFailed {
				return res.Err
			}
			return err
		})
	} else {
		fmt.Fprint(out, assistantPrompt)
		res, err = session.Send(sendCtx, input)
	}

	if err != nil {
		fmt.Fprintf(out, "\n  %s %v\n\n", cliui.FailMark, err)
		return
	}

	switch res.State {
	case chat.StateCompleted:
		if c.markdown {
			rendered, rerr := cliui.RenderMarkdown(res.Content)
			if rerr != nil {
				c.logger.Debug("rendering markdown", "error", rerr)
			}
			fmt.Fprint(out, rendered)
		}
		fmt.Fprint(out, "\n\n")
	case chat.StateCancelled:
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("(stopped)"))
	case chat.StateFailed:
		c.logger.Debug("send failed", "error", res.Err)
		fmt.Fprintf(out, "\n  %s %s\n\n", cliui.FailMark, failureText(session))
	}
}

func (c *chatCommander) openConversation(ctx context.Context, out io.Writer, session *chat.Session, arg string) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(out, "  %s usage: /open <conversation id>\n\n", cliui.FailMark)
		return
	}

	if err := session.OpenConversation(ctx, id); err != nil {
		fmt.Fprintf(out, "  %s %v\n\n", cliui.FailMark, err)
		return
	}
	printTranscript(out, session.Transcript())
}

// failureText returns what the failed reply was replaced with.
func failureText(session *chat.Session) string {
	if msg, ok := session.Transcript().Last(); ok {
		return msg.Content
	}
	return chat.DefaultFailureMessage
}

func printTranscript(out io.Writer, snap transcript.Snapshot) {
	conv := snap.Conversation
	fmt.Fprintf(out, "  %s %s %s\n\n",
		cliui.SuccessMark,
		cliui.IDStyle.Render(fmt.Sprintf("#%d", conv.ID)),
		cliui.DimStyle.Render(fmt.Sprintf("%s (%d messages)", conv.Title, len(conv.Messages))),
	)
	for _, msg := range conv.Messages {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.RoleStyle(string(msg.Role)).Render("["+string(msg.Role)+"]"),
			cliui.PreviewStyle.Render(msg.Content),
		)
	}
	fmt.Fprintln(out)
}
