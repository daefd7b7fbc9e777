package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"licensepurge/pkg/licenses"
	"licensepurge/pkg/logger"
	"licensepurge/pkg/removal"
)

// FileName is the default state file name
const FileName = "license_removal_state.json"

// CurrentVersion is written to every checkpoint
const CurrentVersion = 1

var (
	// ErrLocked is returned when another process holds the state lock
	ErrLocked = errors.New("state file is in use by another process")
	// ErrCorruptState is returned when the state file cannot be decoded
	ErrCorruptState = removal.ErrCorruptState
)

// Checkpoint is the on-disk form of a run state
type Checkpoint struct {
	SubIDs       []int `json:"subIDs"`
	Index        int   `json:"index"`
	RemovedCount int   `json:"removedCount"`
	// DynamicCooldown is in milliseconds
	DynamicCooldown float64   `json:"dynamicCooldown"`
	Version         int       `json:"version"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FromState converts a run state to its on-disk form
func FromState(s removal.State) *Checkpoint {
	ids := make([]int, len(s.Queue))
	for i, id := range s.Queue {
		ids[i] = int(id)
	}
	return &Checkpoint{
		SubIDs:          ids,
		Index:           s.Index,
		RemovedCount:    s.RemovedCount,
		DynamicCooldown: float64(s.Cooldown) / float64(time.Millisecond),
		Version:         CurrentVersion,
	}
}

// State converts the checkpoint back to a run state
func (c *Checkpoint) State() removal.State {
	queue := make([]licenses.PackageID, len(c.SubIDs))
	for i, id := range c.SubIDs {
		queue[i] = licenses.PackageID(id)
	}
	return removal.State{
		Queue:        queue,
		Index:        c.Index,
		RemovedCount: c.RemovedCount,
		Cooldown:     time.Duration(math.Round(c.DynamicCooldown * float64(time.Millisecond))),
	}
}

func (c *Checkpoint) validate() error {
	if c.Index < 0 || c.Index > len(c.SubIDs) {
		return fmt.Errorf("index %d out of range for %d ids", c.Index, len(c.SubIDs))
	}
	if c.RemovedCount < 0 || c.RemovedCount > c.Index {
		return fmt.Errorf("removed count %d inconsistent with index %d", c.RemovedCount, c.Index)
	}
	if c.DynamicCooldown < 0 || math.IsNaN(c.DynamicCooldown) || math.IsInf(c.DynamicCooldown, 0) {
		return fmt.Errorf("invalid cooldown %v", c.DynamicCooldown)
	}
	return nil
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	lock           *flock.Flock
	logger         logger.Logger
}

// NewManager creates a checkpoint manager for the state file at path,
// creating its directory if needed.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		return nil, errors.New("state path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Manager{
		checkpointPath: path,
		lock:           flock.New(path + ".lock"),
		logger:         logger.GetLogger(),
	}, nil
}

// WithLogger replaces the manager's logger
func (m *Manager) WithLogger(l logger.Logger) *Manager {
	m.logger = l
	return m
}

// Path returns the state file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Lock takes the single-writer lock on the state file
func (m *Manager) Lock() error {
	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire state lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, m.lock.Path())
	}
	return nil
}

// Unlock releases the state lock
func (m *Manager) Unlock() error {
	if err := m.lock.Unlock(); err != nil {
		return fmt.Errorf("release state lock: %w", err)
	}
	return nil
}

// LoadCheckpoint reads the raw checkpoint. It returns nil, nil when no
// state file exists.
func (m *Manager) LoadCheckpoint() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := checkpoint.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	return &checkpoint, nil
}

// Load reads the saved run state
func (m *Manager) Load() (*removal.State, error) {
	checkpoint, err := m.LoadCheckpoint()
	if err != nil || checkpoint == nil {
		return nil, err
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"index":            checkpoint.Index,
		"removed":          checkpoint.RemovedCount,
		"total":            len(checkpoint.SubIDs),
		"dynamic_cooldown": fmt.Sprintf("%.1f min", checkpoint.DynamicCooldown/60000),
		"updated_at":       checkpoint.UpdatedAt,
	})

	state := checkpoint.State()
	return &state, nil
}

// Save writes the run state to disk atomically
func (m *Manager) Save(state removal.State) error {
	return m.SaveCheckpoint(FromState(state))
}

// SaveCheckpoint writes checkpoint atomically via a temporary file
func (m *Manager) SaveCheckpoint(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()
	if checkpoint.Version == 0 {
		checkpoint.Version = CurrentVersion
	}

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	// Ensure data is written to disk
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"index":   checkpoint.Index,
		"removed": checkpoint.RemovedCount,
	})

	return nil
}

// Clear removes the state file
func (m *Manager) Clear() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Saved state cleared")
	return nil
}

// Exists checks if a state file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Info returns a summary of the saved state, or nil if there is none
func (m *Manager) Info() (map[string]interface{}, error) {
	checkpoint, err := m.LoadCheckpoint()
	if err != nil || checkpoint == nil {
		return nil, err
	}

	return map[string]interface{}{
		"path":             m.checkpointPath,
		"index":            checkpoint.Index,
		"total":            len(checkpoint.SubIDs),
		"removed":          checkpoint.RemovedCount,
		"dynamic_cooldown": time.Duration(math.Round(checkpoint.DynamicCooldown * float64(time.Millisecond))),
		"updated_at":       checkpoint.UpdatedAt,
		"age":              time.Since(checkpoint.UpdatedAt),
	}, nil
}
