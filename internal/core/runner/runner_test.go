package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
	"github.com/EBOLABOY/aeroscout/internal/core/job"
	"github.com/EBOLABOY/aeroscout/internal/core/normalize"
	"github.com/EBOLABOY/aeroscout/internal/core/provider"
	"github.com/EBOLABOY/aeroscout/internal/core/search"
	"github.com/EBOLABOY/aeroscout/internal/core/store"
)

const voyagrBody = `{"results": {"flights": [
	{"price": 389.0, "currency": "EUR", "route": "(LHR-JFK DL1 (09:30 12:40))"}
]}}`

type fixedFetcher struct {
	name    string
	payload string
	err     error
}

func (f fixedFetcher) Name() string { return f.name }

func (f fixedFetcher) Search(context.Context, flight.SearchRequest) (provider.RawResult, error) {
	if f.err != nil {
		return provider.RawResult{}, f.err
	}
	return provider.RawResult{Source: f.name, Payload: []byte(f.payload)}, nil
}

type fixedReporter struct {
	report   string
	degraded bool
	panics   bool
}

func (r fixedReporter) Report(context.Context, flight.Corpus, flight.SearchRequest, bool) (string, bool) {
	if r.panics {
		panic("reporter exploded")
	}
	return r.report, r.degraded
}

func testReq() flight.SearchRequest {
	return flight.SearchRequest{Origin: "LHR", Destination: "JFK", DepartDate: "2026-10-01", Adults: 1}
}

func newFixture(t *testing.T, voyagr provider.Fetcher, reporter Reporter) (*Runner, *job.Manager) {
	t.Helper()
	s := store.NewMemory()
	t.Cleanup(func() { s.Close() })
	jobs := job.NewManager(s, nil, time.Hour)
	coordinator := search.NewCoordinator(
		fixedFetcher{name: provider.SourceSkylens, payload: `[]`},
		voyagr,
		nil,
		nil,
	)
	merger := normalize.NewMerger(100, 40)
	return New(jobs, coordinator, merger, reporter, time.Minute), jobs
}

func TestRunCompletesJob(t *testing.T) {
	voyagr := fixedFetcher{name: provider.SourceVoyagr, payload: voyagrBody}
	r, jobs := newFixture(t, voyagr, fixedReporter{report: "nice flights"})
	ctx := context.Background()

	id, err := jobs.Create(ctx, job.TypeFlightSearch, testReq(), "")
	require.NoError(t, err)

	r.run(ctx, id, testReq(), search.CallerAnonymous)

	j, err := jobs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, j.Status)
	assert.Equal(t, job.StageFinalizing, j.Stage)
	assert.InDelta(t, 1.0, j.Progress, 1e-9)

	result, err := jobs.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "nice flights", result.Report)
	assert.False(t, result.Generated)
	assert.Equal(t, map[string]int{provider.SourceVoyagr: 1}, result.Provenance)
}

func TestRunEmptyResultsStillCompletes(t *testing.T) {
	voyagr := fixedFetcher{name: provider.SourceVoyagr, err: errors.New("upstream down")}
	r, jobs := newFixture(t, voyagr, fixedReporter{report: "No flights found.", degraded: true})
	ctx := context.Background()

	id, err := jobs.Create(ctx, job.TypeFlightSearch, testReq(), "")
	require.NoError(t, err)

	r.run(ctx, id, testReq(), search.CallerAnonymous)

	j, err := jobs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, j.Status, "provider failures never fail the job")

	result, err := jobs.GetResult(ctx, id)
	require.NoError(t, err)
	assert.True(t, result.Generated)
	assert.Empty(t, result.Provenance)
}

func TestRunPanicFailsJob(t *testing.T) {
	voyagr := fixedFetcher{name: provider.SourceVoyagr, payload: voyagrBody}
	r, jobs := newFixture(t, voyagr, fixedReporter{panics: true})
	ctx := context.Background()

	id, err := jobs.Create(ctx, job.TypeFlightSearch, testReq(), "")
	require.NoError(t, err)

	r.run(ctx, id, testReq(), search.CallerAnonymous)

	j, err := jobs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, j.Status)
	assert.Contains(t, j.Error, "internal error")
}

func TestRunMissingJobIsNoOp(t *testing.T) {
	voyagr := fixedFetcher{name: provider.SourceVoyagr, payload: voyagrBody}
	r, _ := newFixture(t, voyagr, fixedReporter{report: "x"})

	// Must not panic or create state for an unknown id.
	r.run(context.Background(), "ghost", testReq(), search.CallerAnonymous)
}

func TestLaunchRunsInBackground(t *testing.T) {
	voyagr := fixedFetcher{name: provider.SourceVoyagr, payload: voyagrBody}
	r, jobs := newFixture(t, voyagr, fixedReporter{report: "done"})
	ctx := context.Background()

	id, err := jobs.Create(ctx, job.TypeFlightSearch, testReq(), "")
	require.NoError(t, err)

	r.Launch(id, testReq(), search.CallerAnonymous)

	require.Eventually(t, func() bool {
		j, err := jobs.Get(ctx, id)
		return err == nil && j.Status == job.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}
