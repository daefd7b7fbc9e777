package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"licensepurge/pkg/config"
	"licensepurge/pkg/licenses"
	"licensepurge/pkg/storage"
	"licensepurge/pkg/ui"
)

// snapshotDir keeps page snapshots next to the state file
func snapshotDir(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.StatePath()), "pages")
}

// snapshotFetcher saves every licenses page it passes through
type snapshotFetcher struct {
	fetcher   licenses.PageFetcher
	snapshots *storage.Manager
}

func newSnapshotFetcher(cfg *config.Config, fetcher licenses.PageFetcher) (*snapshotFetcher, error) {
	snapshots, err := storage.NewManager(snapshotDir(cfg))
	if err != nil {
		return nil, err
	}
	return &snapshotFetcher{fetcher: fetcher, snapshots: snapshots}, nil
}

func (s *snapshotFetcher) FetchLicensesPage(ctx context.Context) (io.ReadCloser, error) {
	body, err := s.fetcher.FetchLicensesPage(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read licenses page: %w", err)
	}

	path, err := s.snapshots.SavePage(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	ui.PrintInfo("Saved licenses page", path)

	return io.NopCloser(bytes.NewReader(data)), nil
}
