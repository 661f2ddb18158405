package httpd

import "strings"

// HumidityRoute is the only request-line token the node interprets.
const HumidityRoute = "GET /humidity"

// State is the request parser's position.
type State int

const (
	StateAwaitingByte State = iota
	StateAccumulatingLine
	StateLineComplete
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateAwaitingByte:
		return "awaiting_byte"
	case StateAccumulatingLine:
		return "accumulating_line"
	case StateLineComplete:
		return "line_complete"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Request accumulates the header section of one HTTP request, byte by byte.
// Only line structure is tracked: method, path and headers are not parsed.
type Request struct {
	header strings.Builder
	line   []byte
	state  State
}

// Feed consumes one byte and returns the resulting state.
//
// CR is dropped. LF ends the current line and appends it, followed by "\n", to
// the header text; an empty line ends the request. Bytes fed after completion
// are ignored.
func (r *Request) Feed(b byte) State {
	switch {
	case r.state == StateComplete:
	case b == '\r':
	case b == '\n':
		r.header.Write(r.line)
		r.header.WriteByte('\n')
		if len(r.line) == 0 {
			r.state = StateComplete
		} else {
			r.line = r.line[:0]
			r.state = StateLineComplete
		}
	default:
		r.line = append(r.line, b)
		r.state = StateAccumulatingLine
	}
	return r.state
}

// State returns the parser's current state.
func (r *Request) State() State {
	return r.state
}

// Complete reports whether the blank line ending the headers has been seen.
func (r *Request) Complete() bool {
	return r.state == StateComplete
}

// Header returns the header text accumulated so far.
func (r *Request) Header() string {
	return r.header.String()
}

// WantsHumidity reports whether the request asked for the humidity route.
func (r *Request) WantsHumidity() bool {
	return strings.Contains(r.header.String(), HumidityRoute)
}

// Reset discards all accumulated text.
func (r *Request) Reset() {
	r.header.Reset()
	r.line = r.line[:0]
	r.state = StateAwaitingByte
}
