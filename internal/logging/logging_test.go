package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name    string
		logsDir string
		runID   string
		want    string
	}{
		{"run id truncated", "varbeamlogs", "0b6f3c2e-8d1a-4c55-9a43-1f2e3d4c5b6a",
			filepath.Join("varbeamlogs", "varbeam.20260212T203836Z.0b6f3c2e.log")},
		{"short run id kept", "./varbeamlogs", "abc",
			filepath.Join("varbeamlogs", "varbeam.20260212T203836Z.abc.log")},
		{"no run id", filepath.Join("/var", "log", "varbeam"), "",
			filepath.Join("/var", "log", "varbeam", "varbeam.20260212T203836Z.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "varbeam", start, tt.runID))
		})
	}
}
