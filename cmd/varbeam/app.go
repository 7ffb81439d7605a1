package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/airshower/varbeam/internal/config"
	"github.com/airshower/varbeam/internal/logging"
	intOtel "github.com/airshower/varbeam/internal/otel"
	"github.com/airshower/varbeam/internal/run"
	"github.com/airshower/varbeam/internal/species"
	"github.com/airshower/varbeam/internal/storage"
	"github.com/airshower/varbeam/internal/tabulation"
	"github.com/airshower/varbeam/internal/validation"
	"github.com/rs/zerolog"
)

// app holds what every command needs: logging, the run identity and the
// validated catalog. close releases everything setup acquired, in reverse.
type app struct {
	Logs    *logging.SlogManager
	Logger  *slog.Logger
	Zerolog zerolog.Logger
	Run     *run.Context
	OTel    *intOtel.Provider

	Catalog    *species.Catalog
	Validator  *validation.Validator
	Tabulation config.TabulationConfig

	logOut  io.Writer
	closers []func() error
}

// newApp configures logging, OTel and the validator from the loaded settings.
// Logs go to a per-run file in logsDir; stdout stays free for command output.
func newApp(ctx context.Context, stdout io.Writer) (*app, error) {
	a := &app{Run: run.NewContext(), Logs: logging.NewSlogManager()}

	logsDir := config.GetString("logsDir")
	var logFile *os.File
	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		path := logging.LogFilePath(logsDir, "varbeam", a.Run.Started(), a.Run.ID())
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
		a.logOut = f
		a.closers = append(a.closers, f.Close)
	} else {
		a.logOut = stdout
	}

	provider, err := intOtel.New(ctx, intOtel.FromSettings(config.GetOTelConfig(), a.Run.ID(), a.logOut))
	if err != nil {
		a.close()
		return nil, err
	}
	a.OTel = provider
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return provider.Shutdown(ctx)
	})

	opts := []logging.Option{logging.WithContext(a.Run.LogAttrs)}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		h, err := logging.NewGraylogHandler(gl.Address, config.GetString("logLevel"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "graylog disabled: %v\n", err)
		} else {
			opts = append(opts, logging.WithHandler(h))
			a.closers = append(a.closers, h.Close)
		}
	}

	var file io.Writer
	if logFile != nil {
		file = logFile
	}
	a.Logs.Setup(file, config.GetString("logLevel"), provider.LoggerProvider(), opts...)
	a.Logger = a.Logs.Logger()
	a.Zerolog = zerolog.New(a.logOut).With().Timestamp().Str("run", a.Run.ID()).Logger()

	if err := a.loadCatalog(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) loadCatalog() error {
	catCfg := config.GetCatalogConfig()
	cat, err := species.NewCatalog(catCfg.Projectiles, catCfg.Targets)
	if err != nil {
		return err
	}

	a.Tabulation = config.GetTabulationConfig()
	rng, err := validation.DeriveRange(cat, a.Tabulation.MinLabMomentum, a.Tabulation.MaxLabMomentum)
	if err != nil {
		return err
	}
	v, err := validation.New(cat, rng)
	if err != nil {
		return err
	}

	a.Catalog = cat
	a.Validator = v
	a.Logger.Info("Catalog loaded",
		"projectiles", len(catCfg.Projectiles),
		"targets", len(catCfg.Targets),
		"minCM", rng.MinCM,
		"maxCM", rng.MaxCM,
	)
	return nil
}

// openCache opens the configured storage and wraps it in a table cache.
func (a *app) openCache(ctx context.Context) (*tabulation.Cache, storage.Backend, error) {
	backend, err := openStorage(ctx, config.GetStorageConfig(), a.Logger)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, backend.Close)
	return tabulation.New(backend, a.Logger), backend, nil
}

func (a *app) tabulationSpec() tabulation.Spec {
	return a.Validator.TabulationSpec(a.Tabulation.SamplePoints)
}

func (a *app) onClose(f func() error) {
	a.closers = append(a.closers, f)
}

// close runs the closers in reverse order. The log file goes last.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.Logger != nil {
			a.Logger.Warn("Cleanup failed", "error", err)
		}
	}
	a.closers = nil
}
