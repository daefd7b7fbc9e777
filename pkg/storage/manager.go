package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	snapshotPrefix = "licenses-"
	snapshotExt    = ".html"
	timeLayout     = "20060102-150405"
)

// Manager handles licenses page snapshots in one directory
type Manager struct {
	outputDir string
	snapshots map[string]bool
	mu        sync.RWMutex
	now       func() time.Time
}

// NewManager creates a snapshot manager, creating dir if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		snapshots: make(map[string]bool),
		now:       time.Now,
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing snapshots: %w", err)
	}

	return manager, nil
}

// scanExistingFiles records snapshots left by earlier runs
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, snapshotPrefix) && filepath.Ext(name) == snapshotExt {
			m.snapshots[name] = true
		}
	}

	return nil
}

// SavePage writes the page read from r to a new timestamped snapshot and
// returns its path
func (m *Manager) SavePage(r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := m.nextName()
	filename := filepath.Join(m.outputDir, name)

	tempFile := filename + ".tmp"
	out, err := os.OpenFile(tempFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save page: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.snapshots[name] = true
	return filename, nil
}

// nextName picks a snapshot name that does not collide with one taken
// within the same second. Caller holds mu.
func (m *Manager) nextName() string {
	stamp := m.now().UTC().Format(timeLayout)
	name := snapshotPrefix + stamp + snapshotExt
	for i := 2; m.snapshots[name]; i++ {
		name = fmt.Sprintf("%s%s_%d%s", snapshotPrefix, stamp, i, snapshotExt)
	}
	return name
}

// List returns every snapshot path, oldest first
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.snapshots))
	for name := range m.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(m.outputDir, name)
	}
	return paths
}

// Latest returns the newest snapshot path
func (m *Manager) Latest() (string, bool) {
	paths := m.List()
	if len(paths) == 0 {
		return "", false
	}
	return paths[len(paths)-1], true
}

// GetOutputDir returns the snapshot directory
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Count returns the number of snapshots
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}
