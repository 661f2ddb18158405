// Package bridge defines the line protocol spoken over UART between the host
// and the MCU that owns the HTU31D's I2C bus.
//
// Host to MCU, one command per line:
//
//	I<hex address>   probe and reset the sensor, e.g. "I40"
//	H<0|1>           switch the heater
//	R                measure
//
// MCU to host, one response per command:
//
//	OK
//	ERR <reason>
//	D,<millis>,<temperature °C>,<humidity %RH>
//
// The package avoids fmt so it builds for TinyGo targets.
package bridge

import (
	"errors"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

// Command opcodes
const (
	OpInit   = 'I'
	OpHeater = 'H'
	OpRead   = 'R'
)

// MaxLineLength is the longest line either side is required to accept.
const MaxLineLength = 48

var (
	ErrEmptyLine          = errors.New("bridge: empty line")
	ErrUnknownCommand     = errors.New("bridge: unknown command")
	ErrInvalidArgument    = errors.New("bridge: invalid argument")
	ErrInvalidResponse    = errors.New("bridge: invalid response")
	ErrInvalidMeasurement = errors.New("bridge: measurement out of range")
	ErrLineTooLong        = errors.New("bridge: line too long")
)

// Command is a parsed host request.
type Command struct {
	Op      byte
	Address uint8 // OpInit
	Heater  bool  // OpHeater
}

// Measurement is one sensor sample as reported by the MCU.
type Measurement struct {
	Millis      uint32
	Temperature float32 // °C
	Humidity    float32 // %RH
}

// Response is a parsed MCU reply.
type Response struct {
	OK          bool
	Err         string
	Measurement *Measurement
}

// AppendInit appends an init command for address.
func AppendInit(dst []byte, address uint8) []byte {
	dst = append(dst, OpInit)
	if address < 0x10 {
		dst = append(dst, '0')
	}
	dst = strconv.AppendUint(dst, uint64(address), 16)
	return append(dst, '\n')
}

// AppendHeater appends a heater command.
func AppendHeater(dst []byte, enabled bool) []byte {
	if enabled {
		return append(dst, OpHeater, '1', '\n')
	}
	return append(dst, OpHeater, '0', '\n')
}

// AppendRead appends a read command.
func AppendRead(dst []byte) []byte {
	return append(dst, OpRead, '\n')
}

// ParseCommand parses a host command line without its terminator.
func ParseCommand(line []byte) (Command, error) {
	line = trimSpace(line)
	if len(line) == 0 {
		return Command{}, ErrEmptyLine
	}

	cmd := Command{Op: line[0]}
	arg := line[1:]

	switch cmd.Op {
	case OpInit:
		if len(arg) == 0 || len(arg) > 2 {
			return Command{}, ErrInvalidArgument
		}
		addr, err := strconv.ParseUint(string(arg), 16, 7)
		if err != nil {
			return Command{}, ErrInvalidArgument
		}
		cmd.Address = uint8(addr)
	case OpHeater:
		if len(arg) != 1 || (arg[0] != '0' && arg[0] != '1') {
			return Command{}, ErrInvalidArgument
		}
		cmd.Heater = arg[0] == '1'
	case OpRead:
		if len(arg) != 0 {
			return Command{}, ErrInvalidArgument
		}
	default:
		return Command{}, ErrUnknownCommand
	}

	return cmd, nil
}

// AppendOK appends a success reply.
func AppendOK(dst []byte) []byte {
	return append(dst, "OK\n"...)
}

// AppendError appends a failure reply.
func AppendError(dst []byte, reason string) []byte {
	dst = append(dst, "ERR "...)
	dst = append(dst, reason...)
	return append(dst, '\n')
}

// AppendMeasurement appends a data reply with two decimals per value.
func AppendMeasurement(dst []byte, m Measurement) []byte {
	dst = append(dst, 'D', ',')
	dst = strconv.AppendUint(dst, uint64(m.Millis), 10)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, float64(m.Temperature), 'f', 2, 32)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, float64(m.Humidity), 'f', 2, 32)
	return append(dst, '\n')
}

// Answers reports whether r is a reply kind the command op can receive.
// ERR answers any command, D only OpRead, and OK only OpInit and OpHeater.
func (r Response) Answers(op byte) bool {
	if !r.OK {
		return true
	}
	if op == OpRead {
		return r.Measurement != nil
	}
	return r.Measurement == nil
}

// ParseResponse parses an MCU reply line.
func ParseResponse(line string) (Response, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return Response{}, ErrEmptyLine
	case line == "OK":
		return Response{OK: true}, nil
	case line == "ERR" || strings.HasPrefix(line, "ERR "):
		return Response{Err: strings.TrimSpace(strings.TrimPrefix(line, "ERR"))}, nil
	case strings.HasPrefix(line, "D,"):
		m, err := parseMeasurement(line[2:])
		if err != nil {
			return Response{}, err
		}
		return Response{OK: true, Measurement: &m}, nil
	default:
		return Response{}, ErrInvalidResponse
	}
}

// parseMeasurement parses "millis,temperature,humidity".
func parseMeasurement(s string) (Measurement, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Measurement{}, ErrInvalidResponse
	}

	millis, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Measurement{}, ErrInvalidResponse
	}
	temperature, err := strconv.ParseFloat(parts[1], 32)
	if err != nil {
		return Measurement{}, ErrInvalidResponse
	}
	humidity, err := strconv.ParseFloat(parts[2], 32)
	if err != nil {
		return Measurement{}, ErrInvalidResponse
	}

	m := Measurement{
		Millis:      uint32(millis),
		Temperature: float32(temperature),
		Humidity:    float32(humidity),
	}
	if !m.Valid() {
		return Measurement{}, ErrInvalidMeasurement
	}
	return m, nil
}

// Valid reports whether the measurement lies within the HTU31D's operating range.
func (m Measurement) Valid() bool {
	if !finite(m.Temperature) || !finite(m.Humidity) {
		return false
	}
	return m.Temperature >= -40 && m.Temperature <= 125 &&
		m.Humidity >= 0 && m.Humidity <= 100
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}
