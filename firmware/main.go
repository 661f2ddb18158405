//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"errors"
	"machine"
	"time"

	"github.com/itohio/gohtu/pkg/bridge"
	"github.com/itohio/gohtu/pkg/htu31d"
)

var (
	uart = machine.UART0
	bus  = machine.I2C0

	start time.Time

	// Sensor state
	address     uint16
	initialized bool

	// Serial line and reply buffers
	lines bridge.LineBuffer
	reply [bridge.MaxLineLength]byte

	// I2C buffers
	cmd [1]byte
	trh [6]byte
	sn  [4]byte
)

func main() {
	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_LED.Low()

	bus.Configure(machine.I2CConfig{
		Frequency: I2C_FREQUENCY,
		SDA:       PIN_SDA,
		SCL:       PIN_SCL,
	})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	start = time.Now()

	for {
		processSerial()
		time.Sleep(100 * time.Microsecond)
	}
}

func millis() uint32 {
	return uint32(time.Since(start).Milliseconds())
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		line, ok, err := lines.Feed(data)
		if err != nil {
			send(bridge.AppendError(reply[:0], "line too long"))
			continue
		}
		if ok {
			handle(line)
		}
	}
}

func handle(line []byte) {
	c, err := bridge.ParseCommand(line)
	if err != nil {
		send(bridge.AppendError(reply[:0], "bad command"))
		return
	}

	switch c.Op {
	case bridge.OpInit:
		if err := initSensor(uint16(c.Address)); err != nil {
			initialized = false
			send(bridge.AppendError(reply[:0], "not found"))
			return
		}
		send(bridge.AppendOK(reply[:0]))

	case bridge.OpHeater:
		if !initialized {
			send(bridge.AppendError(reply[:0], "not initialized"))
			return
		}
		if err := setHeater(c.Heater); err != nil {
			send(bridge.AppendError(reply[:0], "i2c"))
			return
		}
		send(bridge.AppendOK(reply[:0]))

	case bridge.OpRead:
		if !initialized {
			send(bridge.AppendError(reply[:0], "not initialized"))
			return
		}
		m, err := measure()
		if err != nil {
			if errors.Is(err, htu31d.ErrCRC) {
				send(bridge.AppendError(reply[:0], "crc"))
			} else {
				send(bridge.AppendError(reply[:0], "i2c"))
			}
			return
		}
		send(bridge.AppendMeasurement(reply[:0], m))
	}
}

// initSensor resets the sensor and reads its serial number to prove it answers.
func initSensor(addr uint16) error {
	cmd[0] = htu31d.CmdReset
	if err := bus.Tx(addr, cmd[:], nil); err != nil {
		return err
	}
	time.Sleep(RESET_DELAY_MS * time.Millisecond)

	cmd[0] = htu31d.CmdReadSerial
	if err := bus.Tx(addr, cmd[:], sn[:]); err != nil {
		return err
	}
	if _, err := htu31d.DecodeSerial(sn[:]); err != nil {
		return err
	}

	address = addr
	initialized = true
	PIN_LED.Low()
	return nil
}

func setHeater(enabled bool) error {
	cmd[0] = htu31d.CmdHeaterOff
	if enabled {
		cmd[0] = htu31d.CmdHeaterOn
	}
	if err := bus.Tx(address, cmd[:], nil); err != nil {
		return err
	}

	PIN_LED.Set(enabled)
	return nil
}

func measure() (bridge.Measurement, error) {
	cmd[0] = htu31d.Conversion(HUMIDITY_OSR, TEMPERATURE_OSR)
	if err := bus.Tx(address, cmd[:], nil); err != nil {
		return bridge.Measurement{}, err
	}
	time.Sleep(htu31d.ConversionTime * time.Millisecond)

	cmd[0] = htu31d.CmdReadTRH
	if err := bus.Tx(address, cmd[:], trh[:]); err != nil {
		return bridge.Measurement{}, err
	}

	t, rh, err := htu31d.DecodeTRH(trh[:])
	if err != nil {
		return bridge.Measurement{}, err
	}

	return bridge.Measurement{
		Millis:      millis(),
		Temperature: t,
		Humidity:    rh,
	}, nil
}

func send(line []byte) {
	uart.Write(line)
}
