package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itohio/gohtu/pkg/clock"
	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/heater"
	"github.com/itohio/gohtu/pkg/httpd"
	"github.com/itohio/gohtu/pkg/sensor"
	"github.com/itohio/gohtu/pkg/telemetry"
	"go.uber.org/zap"
)

// ErrSensorNotFound is the fatal startup outcome: without the sensor the node
// has nothing to do.
var ErrSensorNotFound = errors.New("sensor not found")

// Startup initializes the sensor at address.
func Startup(driver sensor.Driver, address uint8) error {
	if err := driver.Initialize(address); err != nil {
		return fmt.Errorf("initialize 0x%02X: %w: %w", address, ErrSensorNotFound, err)
	}
	return nil
}

// Deps are the scheduler's collaborators. Transport and Reporter may be nil.
type Deps struct {
	Clock     clock.Clock
	Driver    sensor.Driver
	Time      httpd.TimeSource
	Transport httpd.Transport
	Reporter  telemetry.Reporter
}

// Scheduler runs the node's single cooperative loop.
type Scheduler struct {
	clock     clock.Clock
	sampler   *Sampler
	heater    *heater.Controller
	handler   *httpd.Handler
	transport httpd.Transport
	reporter  telemetry.Reporter
	time      httpd.TimeSource

	period       time.Duration
	reportPeriod uint32
	state        *State
	logger       *zap.Logger
}

// NewScheduler wires the loop from cfg. The heater interval starts counting now.
func NewScheduler(cfg *config.Config, deps Deps, logger *zap.Logger) *Scheduler {
	st := NewState(cfg.Sampling.WindowSize)
	st.Heater.LastToggleAtMillis = deps.Clock.NowMillis()

	return &Scheduler{
		clock:        deps.Clock,
		sampler:      NewSampler(deps.Driver, logger),
		heater:       heater.New(deps.Driver, cfg.Heater.Interval, logger),
		handler:      httpd.NewHandler(deps.Clock, deps.Time, cfg.HTTP.Timeout, logger),
		transport:    deps.Transport,
		reporter:     deps.Reporter,
		time:         deps.Time,
		period:       cfg.Sampling.Period,
		reportPeriod: uint32(cfg.Sampling.ReportPeriod().Milliseconds()),
		state:        st,
		logger:       logger,
	}
}

// State exposes the loop state for inspection.
func (s *Scheduler) State() *State {
	return s.state
}

// Tick runs one iteration: sample, report when due, heater, then at most one
// HTTP client. Serving blocks until the request completes or times out.
func (s *Scheduler) Tick() {
	_, _ = s.sampler.Sample(s.state)

	if now := s.clock.NowMillis(); now-s.state.LastReportAtMillis > s.reportPeriod {
		s.report(now)
	}

	s.heater.Tick(&s.state.Heater, s.clock.NowMillis())

	s.serve()
}

// Run ticks every sampling period until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("sampling started",
		zap.Float64("period_seconds", s.period.Seconds()),
		zap.Int("window", s.state.Temperature.Cap()),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Tick()
		s.clock.Sleep(s.period)
	}
}

func (s *Scheduler) report(now uint32) {
	s.state.LastReportAtMillis = now
	if s.reporter == nil {
		return
	}

	r := telemetry.Report{
		AvgTemperatureF: sensor.Fahrenheit(s.state.Temperature.Get()),
		AvgHumidity:     s.state.Humidity.Get(),
		Humidity:        s.state.Latest.RelativeHumidityPercent,
		LocalTime:       s.time.NowFormatted(),
		HeaterEnabled:   s.state.Heater.Enabled,
		UptimeMillis:    now,
	}
	if err := s.reporter.Report(r); err != nil {
		s.logger.Warn("report failed", zap.Error(err))
	}
}

func (s *Scheduler) serve() {
	if s.transport == nil {
		return
	}
	conn, ok := s.transport.Accept()
	if !ok {
		return
	}

	var latest *sensor.Reading
	if s.state.HasReading {
		latest = &s.state.Latest
	}

	err := s.handler.Serve(conn, latest)
	switch {
	case err == nil:
	case errors.Is(err, httpd.ErrTimeout), errors.Is(err, httpd.ErrClosed):
		s.logger.Debug("client dropped", zap.Error(err))
	default:
		s.logger.Warn("serve client failed", zap.Error(err))
	}
}
