package heater

import (
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the half period of the heater's 50% duty cycle.
const DefaultInterval = 5000 * time.Millisecond

// Actuator applies the heater state to hardware.
type Actuator interface {
	SetHeaterEnabled(enabled bool) error
}

// State is the controller's view of the heater.
type State struct {
	Enabled            bool
	LastToggleAtMillis uint32
}

// Controller toggles the heater every Interval, independent of any reading.
//
// When the actuator fails the new state is kept anyway, so State.Enabled may
// disagree with the hardware until the next successful toggle.
type Controller struct {
	actuator Actuator
	interval uint32
	logger   *zap.Logger
}

// New creates a heater controller. A non-positive interval selects DefaultInterval.
func New(actuator Actuator, interval time.Duration, logger *zap.Logger) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		actuator: actuator,
		interval: uint32(interval.Milliseconds()),
		logger:   logger,
	}
}

// Tick toggles the heater if more than Interval has elapsed since the last
// toggle. It returns true when a toggle happened.
func (c *Controller) Tick(st *State, nowMillis uint32) bool {
	if nowMillis-st.LastToggleAtMillis <= c.interval {
		return false
	}

	st.Enabled = !st.Enabled
	st.LastToggleAtMillis = nowMillis

	if err := c.actuator.SetHeaterEnabled(st.Enabled); err != nil {
		c.logger.Error("enable heater failed",
			zap.Bool("enabled", st.Enabled),
			zap.Error(err),
		)
		return true
	}

	c.logger.Debug("heater toggled", zap.Bool("enabled", st.Enabled))
	return true
}
