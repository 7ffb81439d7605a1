// Package monitor periodically writes a JSON progress snapshot of a run.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/airshower/varbeam/internal/coordinator"
	"github.com/airshower/varbeam/internal/logging"
	"github.com/airshower/varbeam/internal/run"
	"github.com/airshower/varbeam/internal/tabulation"
)

// Status is the content of the status file.
type Status struct {
	RunID      string              `json:"runId"`
	Started    time.Time           `json:"started"`
	Updated    time.Time           `json:"updated"`
	EventIndex int                 `json:"eventIndex"`
	Beam       string              `json:"beam"`
	Summary    coordinator.Summary `json:"summary"`
	Cache      tabulation.Stats    `json:"cache"`
	Finished   bool                `json:"finished"`
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Run      *run.Context
	Cache    *tabulation.Cache
	Logger   logging.Logger
	Path     string
	Interval time.Duration
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu        sync.RWMutex
	summary   coordinator.Summary
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = 5 * time.Second
	}
	return &Service{deps: deps}
}

// Update records the latest run summary; it is a coordinator.Progress.
func (s *Service) Update(sum coordinator.Summary) {
	s.mu.Lock()
	s.summary = sum
	s.mu.Unlock()
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot returns the current status.
func (s *Service) Snapshot() Status {
	s.mu.RLock()
	sum := s.summary
	s.mu.RUnlock()

	st := Status{Updated: time.Now(), Summary: sum, EventIndex: -1}
	if s.deps.Run != nil {
		st.RunID = s.deps.Run.ID()
		st.Started = s.deps.Run.Started()
		st.EventIndex, st.Beam = s.deps.Run.Event()
	}
	if s.deps.Cache != nil {
		st.Cache = s.deps.Cache.Stats()
	}
	return st
}

// Write writes the snapshot to the status file, replacing it atomically.
func (s *Service) Write(finished bool) error {
	st := s.Snapshot()
	st.Finished = finished
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.deps.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return os.Rename(tmp, s.deps.Path)
}

// Start starts the status monitor goroutine. It does nothing without a path.
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning || s.deps.Path == "" {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		if s.deps.Logger != nil {
			s.deps.Logger.Debug("Starting status monitor", "path", s.deps.Path, "interval", s.deps.Interval)
		}
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.Write(false); err != nil && s.deps.Logger != nil {
					s.deps.Logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()
}

// Stop stops the status monitor and writes a final snapshot.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
	return s.Write(true)
}
