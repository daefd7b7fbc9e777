// Package storage keeps copies of fetched licenses pages.
//
// A snapshot is the raw HTML of the account licenses page as it was served
// when a run or scan started. Snapshots can be fed back with --page-file to
// repeat a run against the same candidate list, or kept as a record of what
// the account owned before removal.
//
// Features:
//   - Atomic file writes using temporary files and rename
//   - Thread-safe operations with read-write mutex
//   - Automatic scanning of existing snapshots on initialization
//
// Usage:
//
//	manager, err := storage.NewManager(filepath.Join(config.DataDir(), "pages"))
//	if err != nil {
//	    return err
//	}
//	path, err := manager.SavePage(body)
package storage
