// Package fetcher downloads remote pages and parses tabular reference files
// (CSV, XLSX).
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote documents. The pipeline treats fetch failures as
// fatal for the stage that needed the page; retry policy lives inside the
// implementation, not in callers.
type Fetcher interface {
	// FetchPage fetches the URL and returns the document body as a string.
	FetchPage(ctx context.Context, url string) (string, error)

	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
