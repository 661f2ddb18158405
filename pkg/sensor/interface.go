package sensor

import "errors"

// DefaultAddress is the HTU31D I2C address with the ADDR pin tied low.
const DefaultAddress uint8 = 0x40

var (
	// ErrNotFound is returned by Initialize when nothing answers at the address.
	ErrNotFound = errors.New("sensor not found")
	// ErrNotInitialized is returned when the driver is used before Initialize.
	ErrNotInitialized = errors.New("sensor not initialized")
)

// Reading is one temperature/humidity measurement.
type Reading struct {
	TemperatureCelsius      float32
	RelativeHumidityPercent float32
	CapturedAtMillis        uint32
}

// Fahrenheit returns the reading's temperature in degrees Fahrenheit.
func (r Reading) Fahrenheit() float32 {
	return Fahrenheit(r.TemperatureCelsius)
}

// Fahrenheit converts Celsius to Fahrenheit. Multiplying by 9 before dividing
// by 5 keeps whole-degree inputs exact (0 -> 32, 100 -> 212).
func Fahrenheit(c float32) float32 {
	return c*9/5 + 32
}

// Driver is a temperature/humidity sensor with an onboard heater (real or mocked).
type Driver interface {
	Initialize(address uint8) error
	Read() (Reading, error)
	SetHeaterEnabled(enabled bool) error
	Close() error
}

// Ensure Mock implements Driver.
var _ Driver = (*Mock)(nil)
