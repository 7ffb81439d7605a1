package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Summary aggregates a run.
type Summary struct {
	Requested       int           `json:"requested"`
	Completed       int           `json:"completed"`
	Rejected        int           `json:"rejected"`
	Failed          int           `json:"failed"`
	Elastic         int           `json:"elastic"`
	Inelastic       int           `json:"inelastic"`
	Malformed       int           `json:"malformed"`
	NoRemnant       int           `json:"noRemnant"`
	Initializations int           `json:"initializations"`
	Duration        time.Duration `json:"duration"`
}

// Add folds one RunEvent result into the summary.
func (s *Summary) Add(out *Outcome, err error) {
	s.Requested++
	var serr *SwitchError
	switch {
	case errors.As(err, &serr) && serr.Rejected():
		s.Rejected++
	case err != nil:
		s.Failed++
	case out.Malformed != nil:
		s.Completed++
		s.Malformed++
	case !out.Correction.HasRemnant:
		s.Completed++
		s.NoRemnant++
	case out.Correction.IsElastic:
		s.Completed++
		s.Elastic++
	default:
		s.Completed++
		s.Inelastic++
	}
}

// Progress is called after every event of Run.
type Progress func(s Summary)

// Run processes up to events requests from sel (all of them when events <= 0;
// sel must then be finite). Rejected events never count as failures. The run
// stops with ErrTooManyFailures once more than maxFailures events fail, unless
// maxFailures is negative.
func (c *Coordinator) Run(ctx context.Context, sel Selector, events, maxFailures int, progress Progress) (sum Summary, err error) {
	start := time.Now()
	defer func() {
		sum.Initializations = c.inits
		sum.Duration = time.Since(start)
	}()

	for events <= 0 || sum.Requested < events {
		if err = ctx.Err(); err != nil {
			return sum, err
		}

		out, evErr := c.RunEvent(ctx, sel)
		if errors.Is(evErr, ErrExhausted) {
			break
		}
		sum.Add(out, evErr)
		if progress != nil {
			progress(sum)
		}

		if evErr != nil && maxFailures >= 0 && sum.Failed > maxFailures {
			c.log.Error("Failure threshold exceeded", "failed", sum.Failed, "maxFailures", maxFailures, "error", evErr)
			return sum, fmt.Errorf("%w (%d > %d): %w", ErrTooManyFailures, sum.Failed, maxFailures, evErr)
		}
	}

	c.log.Info("Run finished",
		"requested", sum.Requested,
		"completed", sum.Completed,
		"rejected", sum.Rejected,
		"failed", sum.Failed,
		"elastic", sum.Elastic,
		"inelastic", sum.Inelastic,
		"malformed", sum.Malformed,
	)
	return sum, nil
}
