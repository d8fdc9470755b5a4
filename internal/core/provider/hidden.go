package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
)

// SourceHidden labels itineraries found through hidden-city discovery.
const SourceHidden = "hidden"

// HubSuggester proposes intermediate-hub city codes beyond a destination.
// The analysis service implements it.
type HubSuggester interface {
	SuggestHubs(ctx context.Context, req flight.SearchRequest, limit int) ([]string, error)
}

// DecodeFunc turns one provider's raw payload into canonical records. The
// discovery fetcher borrows the normalizer's adapter for its search backend.
type DecodeFunc func(RawResult) ([]flight.Record, error)

// Hidden runs two-step hidden-city discovery: ask the suggester for hub
// candidates past the true destination, search origin→hub for each, and keep
// only itineraries that transit the true destination.
type Hidden struct {
	suggest    HubSuggester
	backend    Fetcher
	decode     DecodeFunc
	candidates int
	fanout     int
}

func NewHidden(suggest HubSuggester, backend Fetcher, decode DecodeFunc, candidates, fanout int) *Hidden {
	if candidates <= 0 {
		candidates = 10
	}
	if fanout <= 0 {
		fanout = 3
	}
	return &Hidden{
		suggest:    suggest,
		backend:    backend,
		decode:     decode,
		candidates: candidates,
		fanout:     fanout,
	}
}

func (h *Hidden) Name() string { return SourceHidden }

func (h *Hidden) Search(ctx context.Context, req flight.SearchRequest) (RawResult, error) {
	hubs, err := h.suggest.SuggestHubs(ctx, req, h.candidates)
	if err != nil {
		return RawResult{}, fmt.Errorf("hidden: hub suggestion: %w", err)
	}

	var (
		mu    sync.Mutex
		found []flight.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.fanout)
	for _, hub := range hubs {
		if hub == req.Origin || hub == req.Destination {
			continue
		}
		hub := hub
		g.Go(func() error {
			records, err := h.searchHub(gctx, req, hub)
			if err != nil {
				// One dead candidate must not sink the others.
				log.Warn().Err(err).Str("hub", hub).Msg("hidden-city candidate search failed")
				return nil
			}
			mu.Lock()
			found = append(found, records...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RawResult{}, err
	}

	payload, err := json.Marshal(found)
	if err != nil {
		return RawResult{}, fmt.Errorf("hidden: marshal records: %w", err)
	}
	return RawResult{Source: SourceHidden, Payload: payload}, nil
}

// searchHub searches origin→hub one-way and keeps itineraries whose leg
// sequence passes through the true destination before the ticketed end.
func (h *Hidden) searchHub(ctx context.Context, req flight.SearchRequest, hub string) ([]flight.Record, error) {
	hubReq := req
	hubReq.Destination = hub
	hubReq.ReturnDate = ""

	raw, err := h.backend.Search(ctx, hubReq)
	if err != nil {
		return nil, err
	}
	records, err := h.decode(raw)
	if err != nil {
		return nil, err
	}

	var kept []flight.Record
	for _, record := range records {
		if !transits(record, req.Destination) {
			continue
		}
		record.Source = SourceHidden
		record.HiddenCity = true
		record.HiddenDestination = hub
		kept = append(kept, record)
	}
	return kept, nil
}

// transits reports whether any leg before the final one lands at code.
func transits(record flight.Record, code string) bool {
	for i, leg := range record.Legs {
		if i == len(record.Legs)-1 {
			break
		}
		if leg.Destination == code {
			return true
		}
	}
	return false
}
