package sensor

import (
	"fmt"
	"sync"

	"github.com/chewxy/math32"
	"github.com/itohio/gohtu/pkg/clock"
	"github.com/itohio/gohtu/pkg/config"
)

// Relative humidity drops by roughly this fraction per °C of warming at constant
// absolute humidity, which is what the onboard heater does to the sensor die.
const humidityTempCoefficient = 0.06

// Mock simulates an HTU31D for testing and development.
type Mock struct {
	cfg   *config.MockConfig
	clock clock.Clock

	mu          sync.Mutex
	address     uint8
	initialized bool
	heater      bool

	// Simulation state
	lastRead    uint32
	reads       int
	temperature float32 // Die temperature (°C)
}

// NewMock creates a simulated sensor answering at address.
func NewMock(cfg *config.MockConfig, address uint8, clk clock.Clock) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	return &Mock{
		cfg:     cfg,
		clock:   clk,
		address: address,
	}
}

// Initialize simulates probing the bus. Only the configured address answers.
func (m *Mock) Initialize(address uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if address != m.address {
		return fmt.Errorf("probe 0x%02X: %w", address, ErrNotFound)
	}

	m.initialized = true
	m.heater = false
	m.temperature = m.cfg.Temperature
	m.lastRead = m.clock.NowMillis()
	m.reads = 0

	return nil
}

// Read returns a simulated measurement.
func (m *Mock) Read() (Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return Reading{}, ErrNotInitialized
	}

	now := m.clock.NowMillis()
	dt := float32(now-m.lastRead) / 1000
	m.lastRead = now
	m.reads++

	target := m.cfg.Temperature
	if m.heater {
		target += m.cfg.HeaterRise
	}

	// First-order thermal lag towards the target
	tau := float32(m.cfg.TimeConstant.Seconds())
	alpha := float32(1)
	if tau > 0 {
		alpha = 1 - math32.Exp(-dt/tau)
	}
	m.temperature += alpha * (target - m.temperature)

	rise := m.temperature - m.cfg.Temperature
	humidity := m.cfg.Humidity * math32.Exp(-humidityTempCoefficient*rise)

	// Deterministic noise so tests can reproduce sequences
	phase := float32(m.reads)
	temperature := m.temperature + m.cfg.NoiseLevel*math32.Sin(phase*0.7)
	humidity += m.cfg.NoiseLevel * math32.Cos(phase*1.3)

	return Reading{
		TemperatureCelsius:      temperature,
		RelativeHumidityPercent: clampHumidity(humidity),
		CapturedAtMillis:        now,
	}, nil
}

// SetHeaterEnabled switches the simulated heater.
func (m *Mock) SetHeaterEnabled(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}

	m.heater = enabled
	return nil
}

// HeaterEnabled reports the simulated heater state.
func (m *Mock) HeaterEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heater
}

// Close releases the simulated sensor.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	return nil
}

func clampHumidity(rh float32) float32 {
	return math32.Max(0, math32.Min(100, rh))
}
