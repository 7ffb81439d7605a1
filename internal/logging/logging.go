// Package logging sets up the slog fan-out (file, OTel bridge, Graylog) and
// the zerolog adapter used by the dispatcher and sinks.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath names the log file of one run: prefix, UTC start time and the
// first eight characters of the run id, so parallel runs never share a file.
func LogFilePath(logsDir, prefix string, start time.Time, runID string) string {
	if len(runID) > 8 {
		runID = runID[:8]
	}
	name := fmt.Sprintf("%s.%s.log", prefix, start.UTC().Format("20060102T150405Z"))
	if runID != "" {
		name = fmt.Sprintf("%s.%s.%s.log", prefix, start.UTC().Format("20060102T150405Z"), runID)
	}
	return filepath.Join(logsDir, name)
}
