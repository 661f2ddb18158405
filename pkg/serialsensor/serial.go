package serialsensor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/itohio/gohtu/pkg/bridge"
	"github.com/itohio/gohtu/pkg/sensor"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	// DefaultBaudRate is the bridge firmware's UART speed.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds a single command/response exchange.
	DefaultReadTimeout = 200 * time.Millisecond
)

var (
	// ErrRejected is returned when the bridge answers a command with ERR.
	ErrRejected = errors.New("command rejected by bridge")
	// ErrTimeout is returned when the bridge does not answer within the read timeout.
	ErrTimeout = errors.New("bridge did not answer")
)

// Ensure Serial implements sensor.Driver.
var _ sensor.Driver = (*Serial)(nil)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Opener opens the byte stream to the bridge.
type Opener func() (io.ReadWriteCloser, error)

// Serial drives an HTU31D through the MCU bridge on a serial port.
type Serial struct {
	open   Opener
	logger *zap.Logger

	mu     sync.Mutex
	conn   io.ReadWriteCloser
	reader *bufio.Reader
	ready  bool
	cmd    []byte
}

// New creates a driver for the bridge on the named port.
func New(port string, baudRate int, logger *zap.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return NewWithOpener(func() (io.ReadWriteCloser, error) {
		p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
		}
		if err := p.SetReadTimeout(DefaultReadTimeout); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", port, err)
		}
		if err := p.ResetInputBuffer(); err != nil {
			logger.Warn("failed to flush serial input", zap.String("port", port), zap.Error(err))
		}
		return timeoutPort{p}, nil
	}, logger)
}

// timeoutPort reports an empty read as ErrTimeout. serial.Port returns (0, nil)
// when the read timeout expires.
type timeoutPort struct {
	serial.Port
}

func (p timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil {
		return 0, ErrTimeout
	}
	return n, err
}

// NewWithOpener creates a driver over an arbitrary byte stream.
func NewWithOpener(open Opener, logger *zap.Logger) *Serial {
	return &Serial{
		open:   open,
		logger: logger,
		cmd:    make([]byte, 0, bridge.MaxLineLength),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Initialize opens the port if needed and asks the bridge to probe the sensor.
func (d *Serial) Initialize(address uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		conn, err := d.open()
		if err != nil {
			return err
		}
		d.conn = conn
		d.reader = bufio.NewReaderSize(conn, bridge.MaxLineLength*2)
	}

	resp, err := d.transact(bridge.AppendInit(d.cmd[:0], address))
	if err != nil {
		return fmt.Errorf("probe 0x%02X: %w", address, err)
	}
	if !resp.OK {
		return fmt.Errorf("probe 0x%02X: %s: %w", address, resp.Err, sensor.ErrNotFound)
	}

	d.ready = true
	d.logger.Info("sensor initialized", zap.String("address", fmt.Sprintf("0x%02X", address)))
	return nil
}

// Read requests one measurement from the bridge.
func (d *Serial) Read() (sensor.Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ready {
		return sensor.Reading{}, sensor.ErrNotInitialized
	}

	resp, err := d.transact(bridge.AppendRead(d.cmd[:0]))
	if err != nil {
		return sensor.Reading{}, fmt.Errorf("read measurement: %w", err)
	}
	if resp.Measurement == nil {
		return sensor.Reading{}, fmt.Errorf("read measurement: %s: %w", resp.Err, ErrRejected)
	}

	return sensor.Reading{
		TemperatureCelsius:      resp.Measurement.Temperature,
		RelativeHumidityPercent: resp.Measurement.Humidity,
		CapturedAtMillis:        resp.Measurement.Millis,
	}, nil
}

// SetHeaterEnabled switches the sensor's onboard heater.
func (d *Serial) SetHeaterEnabled(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ready {
		return sensor.ErrNotInitialized
	}

	resp, err := d.transact(bridge.AppendHeater(d.cmd[:0], enabled))
	if err != nil {
		return fmt.Errorf("set heater: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("set heater: %s: %w", resp.Err, ErrRejected)
	}
	return nil
}

// Close closes the serial port.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ready = false
	if d.conn == nil {
		return nil
	}

	err := d.conn.Close()
	d.conn = nil
	d.reader = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// flusher is implemented by ports that can discard unread input.
type flusher interface {
	ResetInputBuffer() error
}

// transact writes one command line and reads its reply. Blank lines and
// replies of the wrong kind, such as a late answer to an earlier command,
// are skipped until the read times out.
func (d *Serial) transact(cmd []byte) (bridge.Response, error) {
	if _, err := d.conn.Write(cmd); err != nil {
		return bridge.Response{}, fmt.Errorf("failed to send command: %w", err)
	}

	op := cmd[0]
	for {
		line, err := d.reader.ReadString('\n')
		if err != nil {
			d.flush()
			return bridge.Response{}, fmt.Errorf("failed to read response: %w", err)
		}

		resp, err := bridge.ParseResponse(line)
		if errors.Is(err, bridge.ErrEmptyLine) {
			continue
		}
		if err != nil {
			d.logger.Debug("unparsable bridge response", zap.String("line", line), zap.Error(err))
			return bridge.Response{}, err
		}
		if !resp.Answers(op) {
			d.logger.Debug("discarding stale bridge response",
				zap.String("command", string(op)),
				zap.String("line", line),
			)
			continue
		}
		return resp, nil
	}
}

// flush drops buffered and pending input after a failed exchange.
func (d *Serial) flush() {
	d.reader.Reset(d.conn)
	f, ok := d.conn.(flusher)
	if !ok {
		return
	}
	if err := f.ResetInputBuffer(); err != nil {
		d.logger.Warn("failed to flush serial input", zap.Error(err))
	}
}
