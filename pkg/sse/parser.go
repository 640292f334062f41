package sse

import (
	"strconv"
	"strings"
)

const (
	eventPrefix = "event: "
	dataPrefix  = "data: "
)

// State is the parse state carried between lines.
type State struct {
	// EventName is the name set by the last "event:" line. Empty means
	// content.
	EventName string
}

// Parser classifies decoded lines into events.
type Parser struct {
	state State
}

// NewParser returns a Parser with empty state.
func NewParser() *Parser {
	return &Parser{}
}

// State returns the current parse state.
func (p *Parser) State() State {
	return p.state
}

// Parse consumes one line. It returns a nil event for lines that only
// update state. Lines that are not part of the framing, and "done" payloads
// that are not integers, return a *ProtocolError and leave the stream
// usable.
func (p *Parser) Parse(line string) (*Event, error) {
	switch {
	case strings.HasPrefix(line, eventPrefix):
		p.state.EventName = strings.TrimSpace(line[len(eventPrefix):])
		return nil, nil

	case strings.HasPrefix(line, dataPrefix):
		name := p.state.EventName
		// The name applies to a single data line only.
		p.state.EventName = ""
		return classify(name, line, line[len(dataPrefix):])

	case line == "":
		p.state.EventName = ""
		return nil, nil

	default:
		return nil, &ProtocolError{Line: line, Reason: "unrecognized line"}
	}
}

func classify(name, line, payload string) (*Event, error) {
	switch name {
	case EventNameDone:
		id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
		if err != nil {
			return nil, &ProtocolError{Line: line, Reason: "invalid conversation id", Err: err}
		}
		return &Event{Kind: EventCompletion, ConversationID: id}, nil

	case EventNameError:
		return &Event{Kind: EventError, Data: payload}, nil

	default:
		return &Event{Kind: EventContent, Data: payload}, nil
	}
}
