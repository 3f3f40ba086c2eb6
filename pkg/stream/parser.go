// Package stream decodes the chat backend's server-sent event stream and
// coalesces the answer fragments it carries.
package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/pario-ai/parley/pkg/models"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
	readSize     = 4096
)

// Kind tags the variant of an Event.
type Kind int

const (
	// KindMessage carries a fragment of answer text.
	KindMessage Kind = iota
	// KindMetadata carries identifiers only.
	KindMetadata
	// KindTerminal marks the backend's end-of-message event.
	KindTerminal
	// KindError is an error reported inside the stream.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindMetadata:
		return "metadata"
	case KindTerminal:
		return "terminal"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one decoded `data:` payload. Empty identifier fields mean the
// payload did not carry them.
type Event struct {
	Kind           Kind
	Text           string
	ConversationID string
	MessageID      string

	// Set for KindError.
	Status  int
	Message string
}

// Parser incrementally splits a byte stream into newline-delimited lines and
// decodes each `data: ` line into an Event. Malformed lines are logged and
// dropped. A Parser is not safe for concurrent use.
type Parser struct {
	buf []byte
	log *slog.Logger
}

// NewParser returns a Parser. A nil logger uses slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{log: logger}
}

// Feed appends data to the buffer and returns the events for every complete
// line it now holds.
func (p *Parser) Feed(data []byte) []Event {
	p.buf = append(p.buf, data...)

	var events []Event
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := p.buf[:i]
		if ev, ok := p.decodeLine(line); ok {
			events = append(events, ev)
		}
		p.buf = p.buf[i+1:]
	}
	// Compact so a long stream does not pin consumed bytes.
	if len(p.buf) == 0 {
		p.buf = nil
	}
	return events
}

// Finish decodes whatever is left in the buffer as a final line, for streams
// that end without a trailing newline.
func (p *Parser) Finish() []Event {
	rest := p.buf
	p.buf = nil
	if ev, ok := p.decodeLine(rest); ok {
		return []Event{ev}
	}
	return nil
}

func (p *Parser) decodeLine(line []byte) (Event, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return Event{}, false
	}
	data := bytes.TrimSpace(line[len(dataPrefix):])
	if len(data) == 0 || string(data) == doneSentinel {
		return Event{}, false
	}

	var payload models.StreamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		p.log.Warn("stream line dropped", "err", err, "bytes", len(data))
		return Event{}, false
	}
	return project(&payload), true
}

func project(p *models.StreamPayload) Event {
	ev := Event{
		Text:           p.Answer,
		ConversationID: string(p.ConversationID),
		MessageID:      p.ResolvedMessageID(),
	}
	switch p.Event {
	case "message":
		ev.Kind = KindMessage
	case "message_end":
		ev.Kind = KindTerminal
	case "error":
		ev.Kind = KindError
		ev.Status = int(p.Status)
		ev.Message = p.Message
	default:
		ev.Kind = KindMetadata
	}
	return ev
}

// Events lazily decodes r. The sequence ends at EOF; a read error is yielded
// once as the final element. Reading r consumes it, so the sequence cannot be
// restarted.
func Events(r io.Reader, logger *slog.Logger) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		p := NewParser(logger)
		buf := make([]byte, readSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, ev := range p.Feed(buf[:n]) {
					if !yield(ev, nil) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				for _, ev := range p.Finish() {
					if !yield(ev, nil) {
						return
					}
				}
				return
			}
			if err != nil {
				yield(Event{}, err)
				return
			}
		}
	}
}
