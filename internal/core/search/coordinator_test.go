package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
	"github.com/EBOLABOY/aeroscout/internal/core/provider"
)

type fakeFetcher struct {
	name string
	err  error
}

func (f fakeFetcher) Name() string { return f.name }

func (f fakeFetcher) Search(context.Context, flight.SearchRequest) (provider.RawResult, error) {
	if f.err != nil {
		return provider.RawResult{}, f.err
	}
	return provider.RawResult{Source: f.name, Payload: []byte(`[]`)}, nil
}

func oneWayReq() flight.SearchRequest {
	return flight.SearchRequest{Origin: "LHR", Destination: "JFK", DepartDate: "2026-10-01", Adults: 1}
}

func newTestCoordinator() *Coordinator {
	return NewCoordinator(
		fakeFetcher{name: "skylens"},
		fakeFetcher{name: "voyagr"},
		fakeFetcher{name: "hidden"},
		nil,
	)
}

func sources(results []provider.RawResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Source
	}
	return out
}

func TestAnonymousGetsBroadProviderOnly(t *testing.T) {
	c := newTestCoordinator()
	results := c.Run(context.Background(), "job-1", oneWayReq(), CallerAnonymous)
	assert.ElementsMatch(t, []string{"voyagr"}, sources(results))
}

func TestAuthenticatedRoundTrip(t *testing.T) {
	c := newTestCoordinator()
	req := oneWayReq()
	req.ReturnDate = "2026-10-08"
	results := c.Run(context.Background(), "job-1", req, CallerAuthenticated)
	assert.ElementsMatch(t, []string{"skylens", "voyagr"}, sources(results))
}

func TestAuthenticatedOneWayAddsDiscovery(t *testing.T) {
	c := newTestCoordinator()
	results := c.Run(context.Background(), "job-1", oneWayReq(), CallerAuthenticated)
	assert.ElementsMatch(t, []string{"skylens", "voyagr", "hidden"}, sources(results))
}

func TestFetcherFailureContributesNothing(t *testing.T) {
	c := NewCoordinator(
		fakeFetcher{name: "skylens", err: errors.New("upstream down")},
		fakeFetcher{name: "voyagr"},
		fakeFetcher{name: "hidden"},
		nil,
	)
	results := c.Run(context.Background(), "job-1", oneWayReq(), CallerAuthenticated)
	assert.ElementsMatch(t, []string{"voyagr", "hidden"}, sources(results))
}

func TestDisabledFetchersAreSkipped(t *testing.T) {
	c := NewCoordinator(fakeFetcher{name: "skylens"}, nil, nil, nil)

	results := c.Run(context.Background(), "job-1", oneWayReq(), CallerAnonymous)
	assert.Empty(t, results, "no panic when the guest provider is disabled")

	results = c.Run(context.Background(), "job-1", oneWayReq(), CallerAuthenticated)
	assert.ElementsMatch(t, []string{"skylens"}, sources(results))
}

func TestAllFetchersFailing(t *testing.T) {
	boom := errors.New("boom")
	c := NewCoordinator(
		fakeFetcher{name: "skylens", err: boom},
		fakeFetcher{name: "voyagr", err: boom},
		fakeFetcher{name: "hidden", err: boom},
		nil,
	)
	results := c.Run(context.Background(), "job-1", oneWayReq(), CallerAuthenticated)
	assert.Empty(t, results)
}
