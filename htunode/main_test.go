package main

import (
	"testing"
	"time"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/sensor"
	"github.com/itohio/gohtu/pkg/serialsensor"
	"github.com/itohio/gohtu/pkg/timesource"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewTimeSource_HostClock(t *testing.T) {
	cfg := config.Default().Time
	cfg.NTP = false
	cfg.UTCOffset = 2 * time.Hour

	ts := newTimeSource(&cfg, zap.NewNop())

	assert.Equal(t, timesource.Local{UTCOffset: 2 * time.Hour}, ts)
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, ts.NowFormatted())
}

func TestNewDriver(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		want   interface{}
	}{
		{name: "mock", driver: config.DriverMock, want: &sensor.Mock{}},
		{name: "serial", driver: config.DriverSerial, want: &serialsensor.Serial{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Sensor.Driver = tt.driver

			assert.IsType(t, tt.want, newDriver(cfg, nil, zap.NewNop()))
		})
	}
}
