package httpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func feedAll(r *Request, s string) State {
	st := r.State()
	for i := 0; i < len(s); i++ {
		st = r.Feed(s[i])
	}
	return st
}

func TestRequest_Feed(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantState    State
		wantHeader   string
		wantHumidity bool
	}{
		{
			name:         "complete with CRLF",
			input:        "GET /humidity HTTP/1.1\r\nHost: x\r\n\r\n",
			wantState:    StateComplete,
			wantHeader:   "GET /humidity HTTP/1.1\nHost: x\n\n",
			wantHumidity: true,
		},
		{
			name:       "complete with LF only",
			input:      "GET / HTTP/1.1\n\n",
			wantState:  StateComplete,
			wantHeader: "GET / HTTP/1.1\n\n",
		},
		{
			name:       "mid line",
			input:      "GET /hum",
			wantState:  StateAccumulatingLine,
			wantHeader: "",
		},
		{
			name:         "line complete but headers open",
			input:        "GET /humidity HTTP/1.1\r\n",
			wantState:    StateLineComplete,
			wantHeader:   "GET /humidity HTTP/1.1\n",
			wantHumidity: true,
		},
		{
			name:       "CR alone does not end a line",
			input:      "GET / HTTP/1.1\r\r",
			wantState:  StateAccumulatingLine,
			wantHeader: "",
		},
		{
			name:       "immediate blank line",
			input:      "\r\n",
			wantState:  StateComplete,
			wantHeader: "\n",
		},
		{
			name:         "route token anywhere in header",
			input:        "POST / HTTP/1.1\r\nX-Note: GET /humidity\r\n\r\n",
			wantState:    StateComplete,
			wantHeader:   "POST / HTTP/1.1\nX-Note: GET /humidity\n\n",
			wantHumidity: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Request
			assert.Equal(t, tt.wantState, feedAll(&r, tt.input))
			assert.Equal(t, tt.wantHeader, r.Header())
			assert.Equal(t, tt.wantHumidity, r.WantsHumidity())
			assert.Equal(t, tt.wantState == StateComplete, r.Complete())
		})
	}
}

func TestRequest_IgnoresBytesAfterComplete(t *testing.T) {
	var r Request
	feedAll(&r, "GET / HTTP/1.1\r\n\r\n")
	assert.Equal(t, StateComplete, feedAll(&r, "GET /humidity\r\n\r\n"))
	assert.False(t, r.WantsHumidity())
}

func TestRequest_Reset(t *testing.T) {
	var r Request
	feedAll(&r, "GET /humidity HTTP/1.1\r\n\r\n")
	r.Reset()

	assert.Equal(t, StateAwaitingByte, r.State())
	assert.Empty(t, r.Header())
	assert.False(t, r.WantsHumidity())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "complete", StateComplete.String())
	assert.Equal(t, "unknown", State(42).String())
}
