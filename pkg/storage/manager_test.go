package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	fixed := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	manager.now = func() time.Time { return fixed }

	if manager.Count() != 0 {
		t.Error("Expected no snapshots initially")
	}
	if _, ok := manager.Latest(); ok {
		t.Error("Expected no latest snapshot")
	}

	page := []byte(`<a href="javascript:RemoveFreeLicense( 101, 'Alpha' );">Remove</a>`)
	path, err := manager.SavePage(bytes.NewReader(page))
	if err != nil {
		t.Fatalf("Failed to save page: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "licenses-20240301-123000.html")
	if path != expectedPath {
		t.Errorf("Expected path %s, got %s", expectedPath, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, page) {
		t.Error("File content does not match expected data")
	}

	// Same second: the name gets a suffix instead of overwriting
	second, err := manager.SavePage(bytes.NewReader([]byte("second")))
	if err != nil {
		t.Fatalf("Failed to save second page: %v", err)
	}
	if second != filepath.Join(tempDir, "licenses-20240301-123000_2.html") {
		t.Errorf("Unexpected second path %s", second)
	}

	if manager.Count() != 2 {
		t.Errorf("Expected 2 snapshots, got %d", manager.Count())
	}

	// Unrelated files are ignored when scanning
	if err := os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create unrelated file: %v", err)
	}
	older := filepath.Join(tempDir, "licenses-20230101-000000.html")
	if err := os.WriteFile(older, []byte("old"), 0644); err != nil {
		t.Fatalf("Failed to create old snapshot: %v", err)
	}

	manager2, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create second manager: %v", err)
	}
	if manager2.Count() != 3 {
		t.Errorf("Expected 3 snapshots after scanning, got %d", manager2.Count())
	}
	if list := manager2.List(); list[0] != older {
		t.Errorf("Expected oldest snapshot first, got %v", list)
	}
	if latest, _ := manager2.Latest(); latest != second {
		t.Errorf("Expected latest %s, got %s", second, latest)
	}
}

func TestSavePageFailureLeavesNothing(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if _, err := manager.SavePage(failingReader{}); err == nil {
		t.Fatal("Expected error from failing reader")
	}

	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("Expected empty directory, found %d entries", len(entries))
	}
	if manager.Count() != 0 {
		t.Error("Expected no snapshots after failure")
	}
}
