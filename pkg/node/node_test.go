package node

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/itohio/gohtu/pkg/clock"
	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/httpd"
	"github.com/itohio/gohtu/pkg/sensor"
	"github.com/itohio/gohtu/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// scriptedDriver returns a fixed reading, or err when set.
type scriptedDriver struct {
	reading sensor.Reading
	readErr error
	initErr error
	heater  []bool
	reads   int
}

func (d *scriptedDriver) Initialize(uint8) error { return d.initErr }

func (d *scriptedDriver) Read() (sensor.Reading, error) {
	d.reads++
	if d.readErr != nil {
		return sensor.Reading{}, d.readErr
	}
	return d.reading, nil
}

func (d *scriptedDriver) SetHeaterEnabled(enabled bool) error {
	d.heater = append(d.heater, enabled)
	return nil
}

func (d *scriptedDriver) Close() error { return nil }

type memConn struct {
	in      []byte
	written []string
	closed  bool
}

func (c *memConn) IsOpen() bool            { return !c.closed }
func (c *memConn) HasBytesAvailable() bool { return len(c.in) > 0 }

func (c *memConn) ReadByte() (byte, error) {
	b := c.in[0]
	c.in = c.in[1:]
	return b, nil
}

func (c *memConn) WriteLine(s string) error {
	c.written = append(c.written, s)
	return nil
}

func (c *memConn) Close() error {
	c.closed = true
	return nil
}

type queueTransport struct {
	pending []*memConn
}

func (t *queueTransport) Accept() (httpd.Connection, bool) {
	if len(t.pending) == 0 {
		return nil, false
	}
	c := t.pending[0]
	t.pending = t.pending[1:]
	return c, true
}

func (t *queueTransport) Close() error { return nil }

type recordingReporter struct {
	reports  []telemetry.Report
	onReport func()
}

func (r *recordingReporter) Report(rep telemetry.Report) error {
	r.reports = append(r.reports, rep)
	if r.onReport != nil {
		r.onReport()
	}
	return nil
}

type fixedTime string

func (f fixedTime) NowFormatted() string { return string(f) }

func newTestScheduler(clk *clock.Manual, d sensor.Driver, tr httpd.Transport, rep telemetry.Reporter) *Scheduler {
	cfg := config.Default()
	return NewScheduler(cfg, Deps{
		Clock:     clk,
		Driver:    d,
		Time:      fixedTime("07:30:00"),
		Transport: tr,
		Reporter:  rep,
	}, zap.NewNop())
}

// step runs one loop iteration the way Run does.
func step(s *Scheduler, clk *clock.Manual) {
	s.Tick()
	clk.Sleep(s.period)
}

func TestStartup(t *testing.T) {
	require.NoError(t, Startup(&scriptedDriver{}, sensor.DefaultAddress))

	err := Startup(&scriptedDriver{initErr: sensor.ErrNotFound}, 0x41)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSensorNotFound)
	assert.ErrorIs(t, err, sensor.ErrNotFound)
	assert.Contains(t, err.Error(), "0x41")
}

func TestSampler_Sample(t *testing.T) {
	d := &scriptedDriver{reading: sensor.Reading{TemperatureCelsius: 20, RelativeHumidityPercent: 40, CapturedAtMillis: 10}}
	core, logs := observer.New(zap.WarnLevel)
	s := NewSampler(d, zap.New(core))
	st := NewState(4)

	r, err := s.Sample(st)
	require.NoError(t, err)
	assert.Equal(t, d.reading, r)
	assert.Equal(t, d.reading, st.Latest)
	assert.True(t, st.HasReading)
	assert.Equal(t, float32(20), st.Temperature.Get())
	assert.Equal(t, float32(40), st.Humidity.Get())

	d.reading = sensor.Reading{TemperatureCelsius: 22, RelativeHumidityPercent: 44}
	_, err = s.Sample(st)
	require.NoError(t, err)
	assert.InDelta(t, 21, st.Temperature.Get(), 1e-6)
	assert.InDelta(t, 42, st.Humidity.Get(), 1e-6)

	// A failed read leaves everything as it was
	d.readErr = errors.New("crc mismatch")
	prev := st.Latest
	r, err = s.Sample(st)
	require.Error(t, err)
	assert.Equal(t, prev, r)
	assert.Equal(t, prev, st.Latest)
	assert.Equal(t, 2, st.Temperature.Len())
	assert.InDelta(t, 21, st.Temperature.Get(), 1e-6)
	assert.Equal(t, 1, logs.FilterMessage("read sensor failed").Len())
}

func TestScheduler_ReportCadence(t *testing.T) {
	clk := clock.NewManual(0)
	d := &scriptedDriver{reading: sensor.Reading{TemperatureCelsius: 100, RelativeHumidityPercent: 55}}
	rep := &recordingReporter{}
	s := newTestScheduler(clk, d, nil, rep)

	for clk.NowMillis() < 60_000 {
		step(s, clk)
	}

	// 20 samples x 250 ms, strictly greater than 5000 ms
	require.Len(t, rep.reports, 11)
	first := rep.reports[0]
	assert.Equal(t, uint32(5250), first.UptimeMillis)
	assert.Equal(t, float32(212), first.AvgTemperatureF)
	assert.Equal(t, float32(55), first.AvgHumidity)
	assert.Equal(t, float32(55), first.Humidity)
	assert.Equal(t, "07:30:00", first.LocalTime)
	assert.Equal(t, uint32(10500), rep.reports[1].UptimeMillis)
}

func TestScheduler_HeaterDutyCycle(t *testing.T) {
	clk := clock.NewManual(1000)
	d := &scriptedDriver{}
	s := newTestScheduler(clk, d, nil, nil)

	for clk.NowMillis() < 1000+30_000 {
		step(s, clk)
	}

	require.NotEmpty(t, d.heater)
	for i, on := range d.heater {
		assert.Equal(t, i%2 == 0, on, "toggle %d", i)
	}
	assert.Len(t, d.heater, 5)
	assert.Equal(t, d.heater[len(d.heater)-1], s.State().Heater.Enabled)
}

func TestScheduler_ServesHumidity(t *testing.T) {
	clk := clock.NewManual(0)
	d := &scriptedDriver{reading: sensor.Reading{TemperatureCelsius: 25, RelativeHumidityPercent: 61.3}}
	conn := &memConn{in: []byte("GET /humidity HTTP/1.1\r\n\r\n")}
	s := newTestScheduler(clk, d, &queueTransport{pending: []*memConn{conn}}, nil)

	s.Tick()

	assert.True(t, conn.closed)
	body := strings.Join(conn.written, "\n")
	assert.Contains(t, body, "<p>Temp [F]: 77.0</p>")
	assert.Contains(t, body, "<p>Humidity: 61.3</p>")
	assert.Contains(t, body, "<p>Time: 07:30:00</p>")
}

func TestScheduler_ServesWithoutReading(t *testing.T) {
	clk := clock.NewManual(0)
	d := &scriptedDriver{readErr: errors.New("i2c nack")}
	conn := &memConn{in: []byte("GET /humidity HTTP/1.1\r\n\r\n")}
	s := newTestScheduler(clk, d, &queueTransport{pending: []*memConn{conn}}, nil)

	s.Tick()

	assert.False(t, s.State().HasReading)
	body := strings.Join(conn.written, "\n")
	assert.Contains(t, body, "<p>No reading yet</p>")
	assert.NotContains(t, body, "Temp [F]")
}

func TestScheduler_IdleClientStallsLoop(t *testing.T) {
	clk := clock.NewManual(0)
	d := &scriptedDriver{}
	conn := &memConn{in: []byte("GET /")}
	s := newTestScheduler(clk, d, &queueTransport{pending: []*memConn{conn}}, nil)

	s.Tick()

	assert.Empty(t, conn.written)
	assert.True(t, conn.closed)
	assert.Equal(t, uint32(2001), clk.NowMillis())
	assert.Equal(t, 1, d.reads)

	// Heater timing is measured from the clock, stall included
	clk.Set(5001)
	s.Tick()
	assert.Equal(t, []bool{true}, d.heater)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	clk := clock.NewManual(0)
	d := &scriptedDriver{}
	ctx, cancel := context.WithCancel(context.Background())
	rep := &recordingReporter{onReport: cancel}
	s := newTestScheduler(clk, d, nil, rep)

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rep.reports, 1)
	assert.Equal(t, 22, d.reads)
}

func TestScheduler_WithMockSensor(t *testing.T) {
	clk := clock.NewManual(0)
	cfg := config.Default()
	mock := sensor.NewMock(&cfg.Mock, cfg.Sensor.Address, clk)
	require.NoError(t, Startup(mock, cfg.Sensor.Address))

	rep := &recordingReporter{}
	s := newTestScheduler(clk, mock, nil, rep)

	for clk.NowMillis() < 20_000 {
		step(s, clk)
		assert.Equal(t, s.State().Heater.Enabled, mock.HeaterEnabled())
	}

	require.NotEmpty(t, rep.reports)
	for _, r := range rep.reports {
		assert.InDelta(t, sensor.Fahrenheit(cfg.Mock.Temperature), r.AvgTemperatureF, 10)
		assert.True(t, r.AvgHumidity > 0 && r.AvgHumidity <= 100)
	}
}
