// Package state keeps a small JSON file next to idxmaint.toml that marks the
// run in progress and remembers the last finished one.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lockplane/idxmaint/internal/resultlog"
)

// FileName is the state file, git-ignored, stored beside idxmaint.toml
const FileName = ".idxmaint-state.json"

// StaleGrace is how long past its deadline an active run is still trusted.
// A marker older than that belongs to a process that died without cleaning up.
const StaleGrace = time.Hour

var ErrRunInProgress = errors.New("another maintenance run is in progress")

// State is the content of the state file
type State struct {
	Version   string                `json:"version"`
	ActiveRun *ActiveRun            `json:"active_run,omitempty"`
	LastRun   *resultlog.RunSummary `json:"last_run,omitempty"`

	path string
}

// ActiveRun marks a run that has started and not yet finished
type ActiveRun struct {
	ID          string    `json:"id"`
	Environment string    `json:"environment"`
	Container   string    `json:"container"`
	PID         int       `json:"pid"`
	StartedAt   time.Time `json:"started_at"`
	Deadline    time.Time `json:"deadline"`
}

// Stale reports whether the run should have ended long ago
func (r *ActiveRun) Stale(now time.Time) bool {
	return now.After(r.Deadline.Add(StaleGrace))
}

// Path returns the state file location for a config directory
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads the state file. A missing file yields an empty state.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{Version: "1", path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	state.path = path
	return &state, nil
}

// Save writes the state atomically
func (s *State) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tempFile, s.path); err != nil {
		return fmt.Errorf("failed to save state file: %w", err)
	}
	return nil
}

// BeginRun records run as active. It refuses while another fresh run is
// active unless force is set.
func (s *State) BeginRun(run ActiveRun, now time.Time, force bool) error {
	if active := s.ActiveRun; active != nil && !force && !active.Stale(now) {
		return fmt.Errorf("%w: %s on %s started %s (pid %d)",
			ErrRunInProgress, active.ID, active.Container, active.StartedAt.Format(time.RFC3339), active.PID)
	}

	s.ActiveRun = &run
	return s.Save()
}

// FinishRun clears the active marker for id and stores its summary
func (s *State) FinishRun(id string, summary resultlog.RunSummary) error {
	if s.ActiveRun != nil && s.ActiveRun.ID == id {
		s.ActiveRun = nil
	}
	s.LastRun = &summary
	return s.Save()
}
