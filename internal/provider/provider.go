// Package provider contains the search side of fetcharr: one adapter per
// torrent-indexing backend and an aggregator that fans a query out to all
// of them.
package provider

import (
	"context"

	"github.com/fetcharr/fetcharr/internal/data"
)

// Query is a normalized search request.
type Query struct {
	Title     string
	Year      int
	MediaType string // "movie" or "episode"; empty means any
}

// Provider wraps one external indexing backend. Implementations must not
// let internal failures escape Search: connection errors, auth errors and
// timeouts are logged and surface as an error return that the aggregator
// converts into an empty contribution.
type Provider interface {
	Name() string
	// Enabled reports whether the adapter is administratively usable
	// (credentials present, not switched off). Disabled providers are
	// skipped before any network call.
	Enabled() bool
	Search(ctx context.Context, q Query) ([]data.TorrentResult, error)
}

// maxResults caps each adapter's contribution so the aggregate response
// stays bounded; the aggregator itself imposes no global cap.
const maxResults = 50
