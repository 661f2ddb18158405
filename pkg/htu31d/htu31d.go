// Package htu31d implements the HTU31D I2C command set and data conversion
// without touching a bus, so both the TinyGo firmware and host tests can use it.
package htu31d

import "errors"

const (
	// AddressLow is the sensor address with the ADDR pin tied to GND.
	AddressLow = 0x40
	// AddressHigh is the sensor address with the ADDR pin tied to VDD.
	AddressHigh = 0x41
)

// Commands
const (
	CmdReadTRH    = 0x00 // Read temperature and humidity (6 bytes)
	CmdReadRH     = 0x10 // Read humidity only (3 bytes)
	CmdHeaterOff  = 0x02
	CmdHeaterOn   = 0x04
	CmdReadSerial = 0x0A // Read serial number (4 bytes)
	CmdReset      = 0x1E
	cmdConversion = 0x40
)

// ConversionTime is the worst-case conversion time in milliseconds at the
// highest oversampling for both channels.
const ConversionTime = 20

var (
	// ErrCRC is returned when a received word fails its checksum.
	ErrCRC = errors.New("htu31d: crc mismatch")
	// ErrShortRead is returned when a buffer is shorter than the response.
	ErrShortRead = errors.New("htu31d: short read")
)

// Conversion returns the start-conversion command for the given oversampling
// settings (0..3 each, higher is slower and less noisy).
func Conversion(humidityOSR, temperatureOSR uint8) byte {
	return cmdConversion | (humidityOSR&0x3)<<3 | (temperatureOSR&0x3)<<1
}

// CRC8 computes the HTU31D checksum (polynomial x^8 + x^5 + x^4 + 1, init 0).
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// DecodeTRH converts a 6-byte CmdReadTRH response into °C and %RH.
func DecodeTRH(buf []byte) (temperature, humidity float32, err error) {
	if len(buf) < 6 {
		return 0, 0, ErrShortRead
	}

	rawT, err := word(buf[0:3])
	if err != nil {
		return 0, 0, err
	}
	rawRH, err := word(buf[3:6])
	if err != nil {
		return 0, 0, err
	}

	return Temperature(rawT), Humidity(rawRH), nil
}

// DecodeSerial converts a 4-byte CmdReadSerial response into the 24-bit serial number.
func DecodeSerial(buf []byte) (uint32, error) {
	if len(buf) < 4 {
		return 0, ErrShortRead
	}
	if CRC8(buf[:3]) != buf[3] {
		return 0, ErrCRC
	}
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]), nil
}

// Temperature converts a raw 16-bit reading to °C.
func Temperature(raw uint16) float32 {
	return -40 + 165*float32(raw)/65535
}

// Humidity converts a raw 16-bit reading to %RH.
func Humidity(raw uint16) float32 {
	return 100 * float32(raw) / 65535
}

func word(b []byte) (uint16, error) {
	if CRC8(b[:2]) != b[2] {
		return 0, ErrCRC
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}
