package sse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"
)

const defaultChunkSize = 32 * 1024

// ErrDecoderConsumed is yielded when Lines is ranged over a second time.
// The underlying body can only be read once.
var ErrDecoderConsumed = errors.New("sse: decoder already consumed")

// Decoder turns raw chunks from a live response body into complete text
// lines. Each Read on the source is treated as one network chunk:
//
// ┌──────────────────┐
// │ source io.Reader │──────────────┐
// └──────────────────┘              ▼
// │                      ┌─────────────────┐
// ▼                      │ tee io.Writer   │ (optional, raw bytes)
// ┌──────────────────┐   └─────────────────┘
// │ pending bytes    │
// └──────────────────┘
// │ split on '\n'
// ▼
// ┌──────────────────┐
// │ complete lines   │
// └──────────────────┘
//
// Bytes stay undecoded until their line is complete, so a multi-byte
// character split across two chunks is never decoded in halves.
type Decoder struct {
	src       io.Reader
	tee       io.Writer
	chunkSize int
	flushTail bool

	pending  []byte
	consumed bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithTee copies every raw chunk verbatim to w before it is decoded.
func WithTee(w io.Writer) Option {
	return func(d *Decoder) {
		d.tee = w
	}
}

// WithFlushTail emits an unterminated final line at end-of-stream instead of
// discarding it. The panel widget discards it, which is the default.
func WithFlushTail(flush bool) Option {
	return func(d *Decoder) {
		d.flushTail = flush
	}
}

// WithChunkSize sets the size of the read buffer handed to the source.
func WithChunkSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// NewDecoder returns a Decoder reading from src.
func NewDecoder(src io.Reader, opts ...Option) *Decoder {
	d := &Decoder{
		src:       src,
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed appends one chunk to the pending buffer and returns every line it
// completed, in order. The trailing partial segment stays buffered.
func (d *Decoder) Feed(chunk []byte) []string {
	d.pending = append(d.pending, chunk...)

	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(d.pending[start:], '\n')
		if i < 0 {
			break
		}
		lines = append(lines, decodeLine(d.pending[start:start+i]))
		start += i + 1
	}

	if start > 0 {
		d.pending = append(d.pending[:0], d.pending[start:]...)
	}

	return lines
}

// Flush returns and clears the unterminated tail. ok is false when nothing
// is buffered.
func (d *Decoder) Flush() (tail string, ok bool) {
	if len(d.pending) == 0 {
		return "", false
	}
	tail = decodeLine(d.pending)
	d.pending = d.pending[:0]
	return tail, true
}

// Lines returns the lazy sequence of decoded lines. Each iteration step may
// block on the next read from the source. A read error is yielded once and
// ends the sequence; end-of-stream ends it without an error.
//
// The sequence is not restartable: ranging over it again yields
// ErrDecoderConsumed.
func (d *Decoder) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if d.consumed {
			yield("", ErrDecoderConsumed)
			return
		}
		d.consumed = true

		buf := make([]byte, d.chunkSize)
		for {
			n, err := d.src.Read(buf)
			if n > 0 {
				if d.tee != nil {
					if _, werr := d.tee.Write(buf[:n]); werr != nil {
						yield("", fmt.Errorf("writing stream tee: %w", werr))
						return
					}
				}

				for _, line := range d.Feed(buf[:n]) {
					if !yield(line, nil) {
						return
					}
				}
			}

			if errors.Is(err, io.EOF) {
				tail, ok := d.Flush()
				if ok && d.flushTail {
					yield(tail, nil)
				}
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}

// decodeLine converts one complete line to text. A trailing '\r' from CRLF
// framing is dropped and invalid UTF-8 becomes U+FFFD.
func decodeLine(b []byte) string {
	b = bytes.TrimSuffix(b, []byte{'\r'})
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
