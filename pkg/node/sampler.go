package node

import (
	"fmt"

	"github.com/itohio/gohtu/pkg/sensor"
	"go.uber.org/zap"
)

// Sampler reads the sensor once per tick and feeds the filters.
type Sampler struct {
	driver sensor.Driver
	logger *zap.Logger
}

func NewSampler(driver sensor.Driver, logger *zap.Logger) *Sampler {
	return &Sampler{driver: driver, logger: logger}
}

// Sample reads one value. On failure the previous reading and both filters
// are left untouched.
func (s *Sampler) Sample(st *State) (sensor.Reading, error) {
	r, err := s.driver.Read()
	if err != nil {
		s.logger.Warn("read sensor failed", zap.Error(err))
		return st.Latest, fmt.Errorf("read sensor: %w", err)
	}

	st.Temperature.Add(r.TemperatureCelsius)
	st.Humidity.Add(r.RelativeHumidityPercent)
	st.Latest = r
	st.HasReading = true

	return r, nil
}
