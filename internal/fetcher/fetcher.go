// Package fetcher downloads JSON payloads from remote table sources with
// retry, backoff, and per-host rate limiting.
package fetcher

import (
	"context"
)

// Fetcher defines the interface for downloading remote JSON documents.
type Fetcher interface {
	// FetchJSON GETs the URL and returns the decoded response body.
	FetchJSON(ctx context.Context, url string) (any, error)
}
