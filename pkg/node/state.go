package node

import (
	"github.com/itohio/gohtu/pkg/filter"
	"github.com/itohio/gohtu/pkg/heater"
	"github.com/itohio/gohtu/pkg/sensor"
)

// State is everything the loop carries between ticks. It is owned by one
// Scheduler and only touched from its goroutine.
type State struct {
	// Latest is the most recent successful raw reading.
	Latest     sensor.Reading
	HasReading bool

	// Temperature averages degrees Celsius; Humidity averages percent RH.
	Temperature *filter.MovingAverage[float32]
	Humidity    *filter.MovingAverage[float32]

	Heater             heater.State
	LastReportAtMillis uint32
}

// NewState creates a state with two filters of the given window size.
func NewState(window int) *State {
	return &State{
		Temperature: filter.New[float32](window),
		Humidity:    filter.New[float32](window),
	}
}
