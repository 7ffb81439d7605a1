package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/airshower/varbeam/internal/config"
	"github.com/airshower/varbeam/internal/coordinator"
	"github.com/airshower/varbeam/internal/dispatcher"
	"github.com/airshower/varbeam/internal/engine/synthetic"
	"github.com/airshower/varbeam/internal/logging"
	"github.com/airshower/varbeam/internal/monitor"
	"github.com/airshower/varbeam/internal/species"
	"github.com/airshower/varbeam/internal/stats"
	"github.com/airshower/varbeam/internal/tabulation"
	"github.com/airshower/varbeam/internal/validation"
	"github.com/airshower/varbeam/pkg/core"
)

func cmdRun(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("run")
	fs.Int("run.events", 1000, "number of events (0 runs a list selector to exhaustion)")
	fs.String("run.selector", "roundrobin", "request selector: roundrobin, random or list")
	fs.String("run.frame", "cm", "energy frame of requests: cm (eCM) or asymmetric (pLab)")
	fs.Float64("run.minEnergy", 0, "lowest requested energy (0 uses the catalog range)")
	fs.Float64("run.maxEnergy", 0, "highest requested energy (0 uses the catalog range)")
	fs.StringSlice("run.list", nil, "projectile:target:energy requests for the list selector")
	fs.Uint64("run.seed", 1, "random seed")
	fs.Int("run.maxFailures", 10, "failed events tolerated before the run aborts (-1 for no limit)")
	fs.String("run.statusFile", "", "JSON status file updated during the run")
	fs.String("run.histogramFile", "", "YODA file for the correction histograms")
	if err := loadSettings(fs, args); err != nil {
		return err
	}

	a, err := newApp(ctx, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	runCfg := config.GetRunConfig()
	mode, err := tabulation.ParseStoreMode(a.Tabulation.Mode)
	if err != nil {
		return err
	}
	sel, err := buildSelector(runCfg, a.Catalog, a.Validator.Range(), a.Tabulation)
	if err != nil {
		return err
	}

	cache, _, err := a.openCache(ctx)
	if err != nil {
		return err
	}

	d, err := dispatcher.New(logging.NewZerologAdapter(a.Zerolog))
	if err != nil {
		return err
	}
	sinks := buildSinks(ctx, a, runCfg)
	stats.Register(d, 256, sinks...)
	a.onClose(func() error {
		d.Close()
		return stats.CloseAll(a.Logger, sinks...)
	})

	mon := monitor.NewService(monitor.Dependencies{
		Run:      a.Run,
		Cache:    cache,
		Logger:   a.Logger,
		Path:     runCfg.StatusFile,
		Interval: runCfg.StatusInterval,
	})
	mon.Start()
	a.onClose(mon.Stop)

	eng := synthetic.New(synthetic.Options{Seed: runCfg.Seed})
	coord, err := coordinator.New(a.Validator, cache, eng, coordinator.Options{
		StoreMode:    mode,
		SamplePoints: a.Tabulation.SamplePoints,
		Logger:       a.Logger,
		Publisher:    d,
		Run:          a.Run,
	})
	if err != nil {
		return err
	}

	a.Logger.Info("Starting run",
		"run", a.Run.ID(),
		"events", runCfg.Events,
		"selector", runCfg.Selector,
		"frame", runCfg.Frame,
		"fingerprint", coord.Spec().Fingerprint(),
	)
	sum, runErr := coord.Run(ctx, sel, runCfg.Events, runCfg.MaxFailures, mon.Update)
	mon.Update(sum)

	out := struct {
		Run     string              `json:"run"`
		Summary coordinator.Summary `json:"summary"`
		Cache   tabulation.Stats    `json:"cache"`
	}{a.Run.ID(), sum, cache.Stats()}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	return runErr
}

func parseFrame(s string) (core.FrameMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cm", "", "com":
		return core.FrameCenterOfMass, nil
	case "asymmetric", "lab", "fixed-target":
		return core.FrameAsymmetric, nil
	}
	return 0, fmt.Errorf("unknown frame %q (want cm or asymmetric)", s)
}

// buildSelector creates the configured selector. Unset energy bounds default
// to the catalog range: eCM for the cm frame, lab momentum otherwise.
func buildSelector(runCfg config.RunConfig, cat *species.Catalog, rng validation.Range, tab config.TabulationConfig) (coordinator.Selector, error) {
	frame, err := parseFrame(runCfg.Frame)
	if err != nil {
		return nil, err
	}

	minE, maxE := runCfg.MinEnergy, runCfg.MaxEnergy
	if minE <= 0 {
		minE = rng.MinCM
		if frame == core.FrameAsymmetric {
			minE = tab.MinLabMomentum
		}
	}
	if maxE <= 0 {
		maxE = rng.MaxCM
		if frame == core.FrameAsymmetric {
			maxE = tab.MaxLabMomentum
		}
	}

	switch strings.ToLower(runCfg.Selector) {
	case "roundrobin", "round-robin", "":
		rr, err := coordinator.NewRoundRobin(cat.ProjectileIDs(), cat.TargetIDs(), frame, minE, maxE, runCfg.Seed)
		if err != nil {
			return nil, err
		}
		return rr, nil
	case "random", "uniform":
		ru, err := coordinator.NewRandomUniform(cat.ProjectileIDs(), cat.TargetIDs(), frame, minE, maxE, runCfg.Seed)
		if err != nil {
			return nil, err
		}
		return ru, nil
	case "list", "fixed":
		reqs, err := coordinator.ParseRequests(runCfg.List, frame)
		if err != nil {
			return nil, err
		}
		if len(reqs) == 0 {
			return nil, fmt.Errorf("list selector needs run.list entries")
		}
		return coordinator.NewFixedList(reqs...), nil
	}
	return nil, fmt.Errorf("unknown selector %q (want roundrobin, random or list)", runCfg.Selector)
}

// buildSinks creates the statistics sinks. Histograms are always filled;
// Prometheus and InfluxDB follow their config sections.
func buildSinks(ctx context.Context, a *app, runCfg config.RunConfig) []stats.Sink {
	maxA := 1
	for _, t := range a.Catalog.Targets() {
		maxA = max(maxA, t.AtomicNumber)
	}
	sinks := []stats.Sink{stats.NewHistograms(maxA, a.Validator.Range().MaxCM, runCfg.HistogramFile)}

	if pc := config.GetPrometheusConfig(); pc.Enabled {
		sinks = append(sinks, stats.NewPrometheus(a.Run.ID(), pc.Textfile))
	}

	if ic := config.GetInfluxConfig(); ic.Enabled {
		sink := stats.NewInflux(ic, a.Run.ID(), a.Zerolog)
		if err := sink.Connect(ctx); err != nil {
			a.Logger.Warn("InfluxDB sink disabled", "error", err)
		} else {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}
