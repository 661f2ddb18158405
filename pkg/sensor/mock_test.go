package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/itohio/gohtu/pkg/clock"
	"github.com/itohio/gohtu/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietMockConfig() *config.MockConfig {
	return &config.MockConfig{
		Temperature:  20.0,
		Humidity:     50.0,
		NoiseLevel:   0,
		HeaterRise:   4.0,
		TimeConstant: time.Second,
	}
}

func TestFahrenheit(t *testing.T) {
	tests := []struct {
		name    string
		celsius float32
		want    float32
	}{
		{name: "freezing", celsius: 0, want: 32},
		{name: "boiling", celsius: 100, want: 212},
		{name: "crossover", celsius: -40, want: -40},
		{name: "body temperature", celsius: 37, want: 98.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Fahrenheit(tt.celsius), 1e-4)
		})
	}

	// Exact, not approximate
	assert.Equal(t, float32(32), Fahrenheit(0))
	assert.Equal(t, float32(212), Fahrenheit(100))
	assert.Equal(t, float32(212), Reading{TemperatureCelsius: 100}.Fahrenheit())
}

func TestMock_Initialize(t *testing.T) {
	clk := clock.NewManual(0)
	m := NewMock(quietMockConfig(), DefaultAddress, clk)

	err := m.Initialize(0x41)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, m.Initialize(DefaultAddress))
}

func TestMock_NotInitialized(t *testing.T) {
	m := NewMock(nil, DefaultAddress, clock.NewManual(0))

	_, err := m.Read()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, m.SetHeaterEnabled(true), ErrNotInitialized)
}

func TestMock_Read_Ambient(t *testing.T) {
	clk := clock.NewManual(1000)
	m := NewMock(quietMockConfig(), DefaultAddress, clk)
	require.NoError(t, m.Initialize(DefaultAddress))

	clk.Advance(250)
	r, err := m.Read()
	require.NoError(t, err)

	assert.InDelta(t, 20.0, r.TemperatureCelsius, 1e-4)
	assert.InDelta(t, 50.0, r.RelativeHumidityPercent, 1e-4)
	assert.Equal(t, uint32(1250), r.CapturedAtMillis)
}

func TestMock_HeaterWarmsDie(t *testing.T) {
	clk := clock.NewManual(0)
	m := NewMock(quietMockConfig(), DefaultAddress, clk)
	require.NoError(t, m.Initialize(DefaultAddress))

	require.NoError(t, m.SetHeaterEnabled(true))
	assert.True(t, m.HeaterEnabled())

	var r Reading
	var err error
	for i := 0; i < 40; i++ {
		clk.Advance(250)
		r, err = m.Read()
		require.NoError(t, err)
	}

	// Ten time constants: at the target, humidity depressed
	assert.InDelta(t, 24.0, r.TemperatureCelsius, 0.01)
	assert.Less(t, r.RelativeHumidityPercent, float32(50))

	require.NoError(t, m.SetHeaterEnabled(false))
	for i := 0; i < 40; i++ {
		clk.Advance(250)
		r, err = m.Read()
		require.NoError(t, err)
	}
	assert.InDelta(t, 20.0, r.TemperatureCelsius, 0.01)
	assert.InDelta(t, 50.0, r.RelativeHumidityPercent, 0.05)
}

func TestMock_Close(t *testing.T) {
	m := NewMock(nil, DefaultAddress, clock.NewManual(0))
	require.NoError(t, m.Initialize(DefaultAddress))
	require.NoError(t, m.Close())

	_, err := m.Read()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestClampHumidity(t *testing.T) {
	assert.Equal(t, float32(0), clampHumidity(-3))
	assert.Equal(t, float32(100), clampHumidity(104))
	assert.Equal(t, float32(42.5), clampHumidity(42.5))
}
