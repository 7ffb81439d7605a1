// Package stats turns run outcomes into histograms and metric points.
package stats

import (
	"errors"
	"fmt"

	"github.com/airshower/varbeam/internal/coordinator"
	"github.com/airshower/varbeam/internal/dispatcher"
	"github.com/airshower/varbeam/internal/logging"
)

// Sink receives the outcome of every event.
type Sink interface {
	// Completed is called for every generated event.
	Completed(out *coordinator.Outcome) error
	// Skipped is called for rejected and failed events.
	Skipped(err *coordinator.SwitchError) error
	Close() error
}

// Class names the afterburner classification of a completed event.
func Class(out *coordinator.Outcome) string {
	switch {
	case out.Malformed != nil:
		return "malformed"
	case !out.Correction.HasRemnant:
		return "noremnant"
	case out.Correction.IsElastic:
		return "elastic"
	default:
		return "inelastic"
	}
}

// Register subscribes sinks to the dispatcher's outcome events. Each sink gets
// its own buffered queue so a slow sink does not stall the run.
func Register(d *dispatcher.Dispatcher, bufferSize int, sinks ...Sink) {
	for _, s := range sinks {
		d.Register(dispatcher.KindCompleted, func(e dispatcher.Event) (any, error) {
			out, ok := e.Payload.(*coordinator.Outcome)
			if !ok {
				return nil, fmt.Errorf("stats: unexpected payload %T", e.Payload)
			}
			return nil, s.Completed(out)
		}, dispatcher.Buffered(bufferSize), dispatcher.Blocking())

		skipped := func(e dispatcher.Event) (any, error) {
			serr, ok := e.Payload.(*coordinator.SwitchError)
			if !ok {
				return nil, fmt.Errorf("stats: unexpected payload %T", e.Payload)
			}
			return nil, s.Skipped(serr)
		}
		d.Register(dispatcher.KindRejected, skipped, dispatcher.Buffered(bufferSize), dispatcher.Blocking())
		d.Register(dispatcher.KindFailed, skipped, dispatcher.Buffered(bufferSize), dispatcher.Blocking())
	}
}

// CloseAll closes every sink, logging and joining errors.
func CloseAll(log logging.Logger, sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Error("Closing statistics sink failed", "sink", fmt.Sprintf("%T", s), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
