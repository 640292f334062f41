package devserver

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/panelctl/pkg/sse"
)

// Chat commands understood by the scripted backend.
const (
	commandError = "/error"
	commandFail  = "/fail"
)

// script is the canned answer to one chat message.
type script struct {
	words []string

	// errText is sent as an error event after the words.
	errText string

	// status, when non-zero, fails the request before streaming.
	status int
}

// scriptFor picks the reply for message. "/fail" answers with a 500,
// "/error <text>" streams a short preamble followed by an error event and
// anything else is echoed back.
func scriptFor(message string) script {
	switch {
	case message == commandFail:
		return script{status: http.StatusInternalServerError, errText: "scripted failure"}

	case strings.HasPrefix(message, commandError):
		text := strings.TrimSpace(strings.TrimPrefix(message, commandError))
		if text == "" {
			text = "rate limited"
		}
		return script{words: splitWords("Working on it... "), errText: text}

	default:
		reply := fmt.Sprintf("You said: **%s**. This reply comes from the panelctl dev server.", message)
		return script{words: splitWords(reply)}
	}
}

// splitWords cuts text after every space so the words concatenate back to
// text exactly.
func splitWords(text string) []string {
	words := strings.SplitAfter(text, " ")
	if words[len(words)-1] == "" {
		words = words[:len(words)-1]
	}
	return words
}

// streamReply writes the script to pw and records what the client was sent.
// A client that goes away closes the pipe and ends the reply early.
func (s *Server) streamReply(pw *io.PipeWriter, convID int64, sc script) {
	defer pw.Close()

	w := sse.NewWriter(pw)
	var sent strings.Builder
	defer func() {
		if sent.Len() > 0 {
			s.store.appendMessage(convID, "assistant", sent.String())
		}
	}()

	for _, word := range sc.words {
		if s.config.WordDelay > 0 {
			time.Sleep(s.config.WordDelay)
		}
		if err := w.Content(word); err != nil {
			s.logger.Debug("client went away", "conversation_id", convID, "error", err)
			return
		}
		sent.WriteString(word)
	}

	if sc.errText != "" {
		if err := w.Error(sc.errText); err != nil {
			return
		}
		sent.WriteString(sc.errText)
	}

	if err := w.Done(convID); err != nil {
		s.logger.Debug("client went away before completion", "conversation_id", convID, "error", err)
	}
}
