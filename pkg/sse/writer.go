package sse

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer emits events in the panel's framing: an optional "event: " line,
// one "data: " line and a blank separator. The framing cannot carry a
// multi-line payload: every data line is its own delta and deltas are
// joined with no separator, so splitting a payload across data lines would
// drop the line breaks as well. Newlines inside a payload are replaced with
// spaces instead, which means markdown served this way loses its paragraph
// breaks.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer framing events onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Content writes a content delta.
func (w *Writer) Content(delta string) error {
	return w.write("", delta)
}

// Error writes an error event whose text the client shows as content.
func (w *Writer) Error(text string) error {
	return w.write(EventNameError, text)
}

// Done writes the completion event carrying the conversation ID.
func (w *Writer) Done(conversationID int64) error {
	return w.write(EventNameDone, strconv.FormatInt(conversationID, 10))
}

func (w *Writer) write(name, payload string) error {
	var b strings.Builder
	if name != "" {
		b.WriteString("event: ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	b.WriteString("data: ")
	b.WriteString(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(payload))
	b.WriteString("\n\n")

	if _, err := io.WriteString(w.w, b.String()); err != nil {
		return fmt.Errorf("writing %q frame: %w", name, err)
	}
	return nil
}
