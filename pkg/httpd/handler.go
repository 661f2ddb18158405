package httpd

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/gohtu/pkg/clock"
	"github.com/itohio/gohtu/pkg/sensor"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds how long a client may take to send its headers.
	DefaultTimeout = 2000 * time.Millisecond

	pollInterval = time.Millisecond
)

var (
	ErrTimeout = errors.New("request timed out")
	ErrClosed  = errors.New("connection closed by peer")
)

// Connection is one accepted client.
type Connection interface {
	IsOpen() bool
	HasBytesAvailable() bool
	ReadByte() (byte, error)
	// WriteLine writes s followed by CRLF.
	WriteLine(s string) error
	Close() error
}

// Transport yields pending client connections without blocking.
type Transport interface {
	Accept() (Connection, bool)
	Close() error
}

// TimeSource provides the time string shown on the humidity page.
type TimeSource interface {
	NowFormatted() string
}

// Handler serves a single request per connection.
type Handler struct {
	clock   clock.Clock
	time    TimeSource
	timeout uint32
	logger  *zap.Logger
}

// NewHandler creates a request handler. A non-positive timeout selects DefaultTimeout.
func NewHandler(clk clock.Clock, ts TimeSource, timeout time.Duration, logger *zap.Logger) *Handler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Handler{
		clock:   clk,
		time:    ts,
		timeout: uint32(timeout.Milliseconds()),
		logger:  logger,
	}
}

// Serve reads the request headers from conn, writes the response and closes
// the connection. Nothing is written when the client disconnects or exceeds
// the timeout before the headers are complete. reading is nil until the
// sensor has produced a value.
func (h *Handler) Serve(conn Connection, reading *sensor.Reading) error {
	defer func() {
		if err := conn.Close(); err != nil {
			h.logger.Debug("close connection", zap.Error(err))
		}
		h.logger.Debug("client disconnected")
	}()

	h.logger.Debug("client connected")

	var req Request
	accepted := h.clock.NowMillis()
	for conn.IsOpen() {
		if h.clock.NowMillis()-accepted > h.timeout {
			h.logger.Debug("request timed out", zap.String("header", req.Header()))
			return ErrTimeout
		}
		if !conn.HasBytesAvailable() {
			h.clock.Sleep(pollInterval)
			continue
		}

		b, err := conn.ReadByte()
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		if req.Feed(b) == StateComplete {
			return h.respond(conn, &req, reading)
		}
	}

	return ErrClosed
}

func (h *Handler) respond(conn Connection, req *Request, reading *sensor.Reading) error {
	humidity := req.WantsHumidity()

	var localTime string
	if humidity {
		localTime = h.time.NowFormatted()
	}

	for _, line := range Page(humidity, localTime, reading) {
		if err := conn.WriteLine(line); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}

	h.logger.Debug("request served", zap.Bool("humidity", humidity))
	return nil
}
