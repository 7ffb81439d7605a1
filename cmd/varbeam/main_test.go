package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/airshower/varbeam/internal/config"
	"github.com/airshower/varbeam/internal/coordinator"
	"github.com/airshower/varbeam/internal/monitor"
	"github.com/airshower/varbeam/internal/storage"
	"github.com/airshower/varbeam/internal/tabulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runOutput struct {
	Run     string              `json:"run"`
	Summary coordinator.Summary `json:"summary"`
	Cache   tabulation.Stats    `json:"cache"`
}

// baseArgs keeps every test away from the working directory.
func baseArgs(t *testing.T, extra ...string) []string {
	t.Helper()
	dir := t.TempDir()
	args := []string{
		"--config", dir,
		"--logsDir", filepath.Join(dir, "logs"),
		"--catalog.projectiles", "2212",
		"--catalog.targets", "2212,1000070140",
		"--tabulation.minLabMomentum", "100",
		"--tabulation.maxLabMomentum", "1e6",
		"--tabulation.samplePoints", "5",
	}
	return append(args, extra...)
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunMain_Version(t *testing.T) {
	code, out, _ := execute(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "varbeam "+BuildVersion)
}

func TestRunMain_Help(t *testing.T) {
	code, out, _ := execute(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "tables list")
}

func TestRunMain_UnknownCommand(t *testing.T) {
	code, _, errOut := execute(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)
}

func TestRunMain_BadFlag(t *testing.T) {
	code, _, errOut := execute(t, "run", "--no-such-flag")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "no-such-flag")
}

func TestRunMain_RunRoundRobin(t *testing.T) {
	dir := t.TempDir()
	histPath := filepath.Join(dir, "corrections.yoda")
	statusPath := filepath.Join(dir, "status.json")

	code, out, errOut := execute(t, append([]string{"run"}, baseArgs(t,
		"--storage.type", "memory",
		"--run.events", "6",
		"--run.seed", "7",
		"--run.histogramFile", histPath,
		"--run.statusFile", statusPath,
	)...)...)
	require.Equal(t, 0, code, errOut)

	var res runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.Run)
	assert.Equal(t, 6, res.Summary.Requested)
	assert.Equal(t, 6, res.Summary.Completed)
	assert.Zero(t, res.Summary.Rejected)
	assert.Zero(t, res.Summary.Failed)
	assert.Equal(t, 1, res.Summary.Initializations)
	assert.Equal(t, int64(1), res.Cache.Writes)

	hist, err := os.ReadFile(histPath)
	require.NoError(t, err)
	assert.Contains(t, string(hist), "YODA")

	raw, err := os.ReadFile(statusPath)
	require.NoError(t, err)
	var status monitor.Status
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.True(t, status.Finished)
	assert.Equal(t, res.Run, status.RunID)
}

func TestRunMain_RunList(t *testing.T) {
	code, out, errOut := execute(t, append([]string{"run"}, baseArgs(t,
		"--storage.type", "memory",
		"--run.selector", "list",
		"--run.events", "0",
		"--run.list", "2212:2212:100,2212:1000070140:50,2212:2212:1",
	)...)...)
	require.Equal(t, 0, code, errOut)

	var res runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Summary.Requested)
	assert.Equal(t, 2, res.Summary.Completed)
	assert.Equal(t, 1, res.Summary.Rejected)
}

func TestRunMain_RunBadSelector(t *testing.T) {
	code, _, errOut := execute(t, append([]string{"run"}, baseArgs(t,
		"--storage.type", "memory",
		"--run.selector", "sometimes",
	)...)...)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown selector")
}

func TestRunMain_TablesLifecycle(t *testing.T) {
	root := t.TempDir()
	args := func(extra ...string) []string {
		return append([]string{"tables"}, baseArgs(t, append([]string{
			"--storage.type", "fs",
			"--storage.fs.root", root,
		}, extra...)...)...)
	}

	code, out, errOut := execute(t, args()...)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "stored (reuse)")
	fp := strings.Fields(out)[0]
	assert.FileExists(t, filepath.Join(root, tabulation.Key(fp)))

	code, out, errOut = execute(t, args()...)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, fp+" reused\n", out)

	code, _, errOut = execute(t, args("--tabulation.mode", "create")...)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already exists")

	code, out, errOut = execute(t, args("--tabulation.mode", "overwrite")...)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "stored (overwrite)")

	code, out, errOut = execute(t, args("list")...)
	require.Equal(t, 0, code, errOut)
	assert.True(t, strings.HasPrefix(out, fp+"\t"), out)

	code, out, errOut = execute(t, args("remove", fp, "deadbeef")...)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, fp+" removed")
	assert.Contains(t, out, "deadbeef not found")

	code, out, errOut = execute(t, args("list")...)
	require.Equal(t, 0, code, errOut)
	assert.Empty(t, out)

	code, _, errOut = execute(t, args("remove")...)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "at least one fingerprint")
}

func TestCreateStorageBackend(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	tests := []struct {
		name   string
		cfg    config.StorageConfig
		driver storage.Driver
	}{
		{"default is fs", config.StorageConfig{FS: config.FSConfig{Root: t.TempDir()}}, storage.DriverFilesystem},
		{"fs", config.StorageConfig{Type: "fs", FS: config.FSConfig{Root: t.TempDir()}}, storage.DriverFilesystem},
		{"memory", config.StorageConfig{Type: "memory"}, storage.DriverMemory},
		{"sqlite", config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "t.db")}}, storage.DriverSQLite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := openStorage(ctx, tt.cfg, log)
			require.NoError(t, err)
			defer b.Close()
			assert.Equal(t, tt.driver, b.Driver())
		})
	}

	_, err := createStorageBackend(ctx, config.StorageConfig{Type: "tape"}, log)
	assert.ErrorContains(t, err, `unknown storage type: "tape"`)
}
