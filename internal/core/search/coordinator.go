// Package search selects and runs the provider fetchers for one job.
package search

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/EBOLABOY/aeroscout/internal/core/event"
	"github.com/EBOLABOY/aeroscout/internal/core/flight"
	"github.com/EBOLABOY/aeroscout/internal/core/provider"
)

// CallerClass is derived from authentication, never from the request body.
type CallerClass string

const (
	CallerAnonymous     CallerClass = "anonymous"
	CallerAuthenticated CallerClass = "authenticated"
)

// Coordinator fans a search request out to the fetchers the caller class is
// entitled to and waits for all of them.
type Coordinator struct {
	skylens provider.Fetcher
	voyagr  provider.Fetcher
	hidden  provider.Fetcher
	bus     event.Bus
}

func NewCoordinator(skylens, voyagr, hidden provider.Fetcher, bus event.Bus) *Coordinator {
	return &Coordinator{skylens: skylens, voyagr: voyagr, hidden: hidden, bus: bus}
}

// fetchers returns the fetchers for this request: guests get the broad provider
// only; authenticated round trips add the structured provider; authenticated
// one-way searches also run hidden-city discovery. Disabled providers arrive
// as nil fetchers and are skipped, so the remaining ones still run.
func (c *Coordinator) fetchers(req flight.SearchRequest, caller CallerClass) []provider.Fetcher {
	var candidates []provider.Fetcher
	if caller != CallerAuthenticated {
		candidates = []provider.Fetcher{c.voyagr}
	} else {
		candidates = []provider.Fetcher{c.skylens, c.voyagr}
		if !req.RoundTrip() {
			candidates = append(candidates, c.hidden)
		}
	}
	selected := candidates[:0]
	for _, fetcher := range candidates {
		if fetcher != nil {
			selected = append(selected, fetcher)
		}
	}
	return selected
}

// Run executes every selected fetcher concurrently and returns one raw
// result per provider. A fetcher failure contributes an empty payload and a
// warning; it never fails the search.
func (c *Coordinator) Run(ctx context.Context, jobID string, req flight.SearchRequest, caller CallerClass) []provider.RawResult {
	selected := c.fetchers(req, caller)

	var (
		mu      sync.Mutex
		results []provider.RawResult
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, fetcher := range selected {
		fetcher := fetcher
		g.Go(func() error {
			raw, err := fetcher.Search(gctx, req)
			if err != nil {
				log.Warn().Err(err).
					Str("job_id", jobID).
					Str("provider", fetcher.Name()).
					Msg("provider fetch failed, contributing nothing")
				c.publishFetched(ctx, jobID, fetcher.Name(), true)
				return nil
			}
			mu.Lock()
			results = append(results, raw)
			mu.Unlock()
			c.publishFetched(ctx, jobID, fetcher.Name(), false)
			return nil
		})
	}
	// Fetchers absorb their own errors, so Wait only orders completion.
	_ = g.Wait()
	return results
}

func (c *Coordinator) publishFetched(ctx context.Context, jobID, name string, failed bool) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(ctx, event.Event{
		Type: event.EventProviderFetched,
		Payload: event.ProviderEvent{
			JobID:    jobID,
			Provider: name,
			Failed:   failed,
		},
	})
}
