package provider

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fetcharr/fetcharr/internal/data"
	"github.com/fetcharr/fetcharr/internal/metrics"
)

// Aggregator fans a query out to every enabled provider concurrently and
// merges whatever comes back within the per-provider timeout. A provider
// that errors or times out contributes nothing; it never fails the
// aggregate call.
type Aggregator struct {
	providers []Provider
	timeout   time.Duration
	log       *slog.Logger
}

// NewAggregator builds an aggregator over an explicit ordered collection
// of providers. The order is significant: it is the tie-break order for
// equal seed counts.
func NewAggregator(log *slog.Logger, providers []Provider, timeout time.Duration) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Aggregator{providers: providers, timeout: timeout, log: log}
}

// Search queries all enabled providers and returns the merged result list
// sorted by seed count descending. The sort is stable, so ties preserve
// provider-declared order.
func (a *Aggregator) Search(ctx context.Context, q Query) []data.TorrentResult {
	lists := make([][]data.TorrentResult, len(a.providers))
	var wg sync.WaitGroup

	for i, p := range a.providers {
		if !p.Enabled() {
			a.log.Debug("provider disabled, skipping", "provider", p.Name())
			continue
		}
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			metrics.ProviderSearches.WithLabelValues(p.Name()).Inc()
			results, err := p.Search(pctx, q)
			if err != nil {
				metrics.ProviderErrors.WithLabelValues(p.Name()).Inc()
				a.log.Warn("provider search failed", "provider", p.Name(), "title", q.Title, "err", err)
				return
			}
			lists[i] = results
		}(i, p)
	}
	wg.Wait()

	merged := make([]data.TorrentResult, 0)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Seeds > merged[j].Seeds
	})
	return merged
}

// FilterQuality keeps only results whose quality is in the allowed set.
// An empty set means no filtering. This is a presentation concern the API
// layer applies on top of the aggregate; the aggregator itself never
// drops results by quality.
func FilterQuality(results []data.TorrentResult, allowed []string) []data.TorrentResult {
	if len(allowed) == 0 {
		return results
	}
	set := make(map[string]bool, len(allowed))
	for _, q := range allowed {
		set[q] = true
	}
	out := make([]data.TorrentResult, 0, len(results))
	for _, r := range results {
		if set[r.Quality] {
			out = append(out, r)
		}
	}
	return out
}
