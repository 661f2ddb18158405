package telemetry

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Report is the periodic summary of the sampling window.
type Report struct {
	AvgTemperatureF float32 `json:"avg_temperature_f"`
	AvgHumidity     float32 `json:"avg_humidity"`
	Humidity        float32 `json:"humidity"`
	LocalTime       string  `json:"local_time"`
	HeaterEnabled   bool    `json:"heater_enabled"`
	UptimeMillis    uint32  `json:"uptime_ms"`
}

// Reporter delivers a Report somewhere.
type Reporter interface {
	Report(r Report) error
}

var _ Reporter = (*Console)(nil)
var _ Reporter = (Multi)(nil)

// Console writes reports to the log.
type Console struct {
	logger *zap.Logger
}

func NewConsole(logger *zap.Logger) *Console {
	return &Console{logger: logger}
}

func (c *Console) Report(r Report) error {
	c.logger.Info("sensor values",
		zap.Float32("avg_temp_f", r.AvgTemperatureF),
		zap.Float32("avg_humidity", r.AvgHumidity),
		zap.Float32("humidity", r.Humidity),
		zap.String("time", r.LocalTime),
		zap.Bool("heater", r.HeaterEnabled),
	)
	return nil
}

// Multi fans a report out to every reporter and combines their errors.
type Multi []Reporter

func (m Multi) Report(r Report) error {
	var err error
	for _, rep := range m {
		err = multierr.Append(err, rep.Report(r))
	}
	return err
}
