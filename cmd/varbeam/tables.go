package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/airshower/varbeam/internal/engine/synthetic"
	"github.com/airshower/varbeam/internal/tabulation"
)

// cmdTables computes and stores the tables for the configured catalog, or
// lists and removes stored entries.
func cmdTables(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("tables")
	if err := loadSettings(fs, args); err != nil {
		return err
	}
	sub := ""
	rest := fs.Args()
	if len(rest) > 0 {
		sub, rest = rest[0], rest[1:]
	}

	a, err := newApp(ctx, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	cache, _, err := a.openCache(ctx)
	if err != nil {
		return err
	}

	switch sub {
	case "":
		return storeTables(ctx, a, cache, stdout)
	case "list":
		return listTables(ctx, cache, stdout)
	case "remove":
		if len(rest) == 0 {
			return errors.New("tables remove needs at least one fingerprint")
		}
		return removeTables(ctx, cache, rest, stdout)
	}
	return fmt.Errorf("unknown tables command %q (want list or remove)", sub)
}

func storeTables(ctx context.Context, a *app, cache *tabulation.Cache, stdout io.Writer) error {
	mode, err := tabulation.ParseStoreMode(a.Tabulation.Mode)
	if err != nil {
		return err
	}
	spec := a.tabulationSpec()
	fp := spec.Fingerprint()

	if mode == tabulation.ReuseIfPresent {
		if _, ok, err := cache.Lookup(ctx, fp); ok {
			fmt.Fprintf(stdout, "%s reused\n", fp)
			return nil
		} else if err != nil && !errors.Is(err, tabulation.ErrCorrupt) {
			return err
		}
	}

	start := time.Now()
	entry, err := synthetic.New(synthetic.Options{}).Initialize(ctx, spec)
	if err != nil {
		return err
	}
	if err := cache.Store(ctx, entry, mode); err != nil {
		return err
	}
	a.Logger.Info("Tables computed", "fingerprint", fp, "bytes", entry.Size(), "duration", time.Since(start))
	fmt.Fprintf(stdout, "%s stored (%s)\n", fp, mode)
	return nil
}

func listTables(ctx context.Context, cache *tabulation.Cache, stdout io.Writer) error {
	fps, err := cache.Fingerprints(ctx)
	if err != nil {
		return err
	}
	slices.Sort(fps)
	for _, fp := range fps {
		e, ok, err := cache.Lookup(ctx, fp)
		switch {
		case err != nil:
			fmt.Fprintf(stdout, "%s\tcorrupt: %v\n", fp, err)
			continue
		case !ok:
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", fp, e.Spec)
	}
	return nil
}

func removeTables(ctx context.Context, cache *tabulation.Cache, fps []string, stdout io.Writer) error {
	var errs []error
	for _, fp := range fps {
		removed, err := cache.Remove(ctx, fp)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", fp, err))
		case removed:
			fmt.Fprintf(stdout, "%s removed\n", fp)
		default:
			fmt.Fprintf(stdout, "%s not found\n", fp)
		}
	}
	return errors.Join(errs...)
}
