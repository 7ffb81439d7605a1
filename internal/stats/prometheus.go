package stats

import (
	"strconv"

	"github.com/airshower/varbeam/internal/coordinator"
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus keeps run counters in a private registry and writes them in the
// text exposition format for node_exporter's textfile collector on Close.
type Prometheus struct {
	registry  *prometheus.Registry
	events    *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	fractions *prometheus.HistogramVec
	duration  prometheus.Histogram
	textfile  string
}

var _ Sink = (*Prometheus)(nil)

// NewPrometheus creates the sink. An empty textfile disables the file write.
func NewPrometheus(runID, textfile string) *Prometheus {
	labels := prometheus.Labels{"run": runID}
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "varbeam_events_total",
			Help:        "Completed events by projectile, target and classification.",
			ConstLabels: labels,
		}, []string{"projectile", "target", "class"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "varbeam_events_skipped_total",
			Help:        "Requests that did not produce an event, by pipeline state.",
			ConstLabels: labels,
		}, []string{"state"}),
		fractions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "varbeam_momentum_fraction",
			Help:        "Final-state momentum over beam momentum, before and after correction.",
			ConstLabels: labels,
			Buckets:     prometheus.LinearBuckets(0.8, 0.02, 21),
		}, []string{"stage"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "varbeam_event_duration_seconds",
			Help:        "Wall time per completed event.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-5, 4, 12),
		}),
		textfile: textfile,
	}
	p.registry.MustRegister(p.events, p.skipped, p.fractions, p.duration)
	return p
}

// Registry exposes the registry, e.g. for an HTTP handler.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Completed counts the event and observes its momentum fractions.
func (p *Prometheus) Completed(out *coordinator.Outcome) error {
	p.events.WithLabelValues(
		strconv.Itoa(out.Config.Projectile.ID),
		strconv.Itoa(out.Config.Target.ID),
		Class(out),
	).Inc()
	p.fractions.WithLabelValues("pre").Observe(out.Correction.PreCorrectionMomentumFraction)
	if out.Correction.Corrected() && out.Malformed == nil {
		p.fractions.WithLabelValues("post").Observe(out.Correction.PostCorrectionMomentumFraction)
	}
	p.duration.Observe(out.Duration.Seconds())
	return nil
}

// Skipped counts a rejected or failed request.
func (p *Prometheus) Skipped(serr *coordinator.SwitchError) error {
	p.skipped.WithLabelValues(serr.State.String()).Inc()
	return nil
}

// Close writes the textfile.
func (p *Prometheus) Close() error {
	if p.textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(p.textfile, p.registry)
}
