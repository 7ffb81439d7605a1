// Command varbeam generates events with beam species and energy switched per
// event, reusing engine initialization tables across runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/airshower/varbeam/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BuildVersion and BuildDate can be set at build time via ldflags.
var (
	BuildVersion = "0.1.0"
	BuildDate    = "unknown"
)

const usage = `usage: varbeam <command> [flags]

commands:
  run                  generate events (default)
  tables [--tabulation.mode create|overwrite|reuse]
                       compute and store the initialization tables
  tables list          list stored table fingerprints
  tables remove FP...  delete stored tables
  version              print version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// runMain dispatches a command and returns the process exit code.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "run"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = cmdRun(ctx, args, stdout)
	case "tables":
		err = cmdTables(ctx, args, stdout)
	case "version":
		fmt.Fprintf(stdout, "varbeam %s (%s)\n", BuildVersion, BuildDate)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	default:
		fmt.Fprintf(stderr, "varbeam %s: %v\n", cmd, err)
		return 1
	}
}

// newFlagSet declares the flags shared by all commands. Flag names are the
// dotted config keys so BindFlags can map them onto viper.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", ".", "directory containing "+config.FileName)
	fs.String("logLevel", "info", "log level: debug, info, warn, error")
	fs.String("logsDir", "./varbeamlogs", "directory for run log files (empty logs to stdout)")
	fs.IntSlice("catalog.projectiles", config.DefaultProjectiles, "projectile PDG codes")
	fs.IntSlice("catalog.targets", config.DefaultTargets, "target PDG codes")
	fs.Float64("tabulation.minLabMomentum", 1e2, "lowest projectile lab momentum in GeV")
	fs.Float64("tabulation.maxLabMomentum", 1e12, "highest projectile lab momentum in GeV")
	fs.Int("tabulation.samplePoints", 11, "energy grid points of the tables")
	fs.String("tabulation.mode", "reuse", "table store mode: create, overwrite or reuse")
	fs.String("storage.type", "fs", "table storage: fs, memory, sqlite, postgres or s3")
	fs.String("storage.fs.root", "./tables", "table directory for fs storage")
	fs.String("storage.sqlite.path", "./tables.db", "SQLite file (empty for in-memory)")
	return fs
}

// loadSettings parses args into fs, reads the config file and binds the flags
// that were set explicitly. A missing config file is not an error.
func loadSettings(fs *pflag.FlagSet, args []string) error {
	viper.Reset()
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, _ := fs.GetString("config")
	if err := config.Load(dir); err != nil {
		if _, statErr := os.Stat(filepath.Join(dir, config.FileName)); statErr == nil {
			return err
		}
	}

	changed := pflag.NewFlagSet(fs.Name(), pflag.ContinueOnError)
	fs.Visit(func(f *pflag.Flag) { changed.AddFlag(f) })
	return config.BindFlags(changed)
}
