package coordinator

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/airshower/varbeam/internal/coordinator"

type metrics struct {
	completed       metric.Int64Counter
	rejected        metric.Int64Counter
	failed          metric.Int64Counter
	elastic         metric.Int64Counter
	inelastic       metric.Int64Counter
	malformed       metric.Int64Counter
	initializations metric.Int64Counter
}

// newMetrics uses the global OTel meter (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&out.completed, "varbeam.events.completed", "Events generated and passed through the afterburner"},
		{&out.rejected, "varbeam.events.rejected", "Requests rejected by validation"},
		{&out.failed, "varbeam.events.failed", "Events lost to table or engine failures"},
		{&out.elastic, "varbeam.events.elastic", "Completed events classified elastic"},
		{&out.inelastic, "varbeam.events.inelastic", "Completed events corrected as inelastic"},
		{&out.malformed, "varbeam.events.malformed", "Events the afterburner refused"},
		{&out.initializations, "varbeam.tables.initializations", "Engine table computations"},
	}
	for _, c := range counters {
		*c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}
	return &out, nil
}
