package licenses

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Source yields candidate package IDs for a run
type Source interface {
	Candidates(ctx context.Context) ([]PackageID, error)
}

// PageFetcher retrieves the raw licenses page
type PageFetcher interface {
	FetchLicensesPage(ctx context.Context) (io.ReadCloser, error)
}

// PageSource reads candidates from the live licenses page
type PageSource struct {
	Fetcher PageFetcher
}

// NewPageSource creates a PageSource backed by fetcher
func NewPageSource(fetcher PageFetcher) *PageSource {
	return &PageSource{Fetcher: fetcher}
}

// Candidates fetches and parses the licenses page
func (s *PageSource) Candidates(ctx context.Context) ([]PackageID, error) {
	body, err := s.Fetcher.FetchLicensesPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch licenses page: %w", err)
	}
	defer body.Close()

	return Parse(body)
}

// FileSource reads candidates from a saved copy of the licenses page
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for the HTML file at path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Candidates parses the saved page
func (s *FileSource) Candidates(ctx context.Context) ([]PackageID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// StaticSource returns a fixed candidate list
type StaticSource []PackageID

// Candidates returns a copy of the list
func (s StaticSource) Candidates(ctx context.Context) ([]PackageID, error) {
	return append([]PackageID(nil), s...), nil
}
