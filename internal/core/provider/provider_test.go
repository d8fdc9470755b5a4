package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
)

func searchReq() flight.SearchRequest {
	return flight.SearchRequest{
		Origin:      "LHR",
		Destination: "JFK",
		DepartDate:  "2026-10-01",
		Adults:      1,
	}
}

func TestSkylensSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/itineraries", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var query map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		assert.Equal(t, "LHR", query["origin"])
		assert.Equal(t, "JFK", query["destination"])
		assert.Equal(t, float64(135), query["limit"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"price": {"amount": 420.5}}]`))
	}))
	defer srv.Close()

	s := NewSkylens(srv.URL, "test-key", time.Second, 135)
	raw, err := s.Search(context.Background(), searchReq())
	require.NoError(t, err)
	assert.Equal(t, SourceSkylens, raw.Source)
	assert.JSONEq(t, `[{"price": {"amount": 420.5}}]`, string(raw.Payload))
}

func TestSkylensNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSkylens(srv.URL, "", time.Second, 0)
	_, err := s.Search(context.Background(), searchReq())
	assert.ErrorContains(t, err, "502")
}

func TestVoyagrSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "LHR", r.URL.Query().Get("from"))
		assert.Equal(t, "JFK", r.URL.Query().Get("to"))
		assert.Equal(t, "2026-10-01", r.URL.Query().Get("depart"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		w.Write([]byte(`{"meta":{},"results":{"flights":[]}}`))
	}))
	defer srv.Close()

	v := NewVoyagr(srv.URL, "secret", time.Second, 25)
	raw, err := v.Search(context.Background(), searchReq())
	require.NoError(t, err)
	assert.Equal(t, SourceVoyagr, raw.Source)
}

func TestVoyagrRoundTripQuery(t *testing.T) {
	var gotReturn string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReturn = r.URL.Query().Get("return")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	req := searchReq()
	req.ReturnDate = "2026-10-08"
	v := NewVoyagr(srv.URL, "", time.Second, 0)
	_, err := v.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-08", gotReturn)
}

func TestVoyagrOmitsUnsetLimit(t *testing.T) {
	var hadLimit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hadLimit = r.URL.Query().Has("limit")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	v := NewVoyagr(srv.URL, "", time.Second, 0)
	_, err := v.Search(context.Background(), searchReq())
	require.NoError(t, err)
	assert.False(t, hadLimit, "zero limit defers to the API default")
}

type stubSuggester struct {
	hubs []string
	err  error
}

func (s stubSuggester) SuggestHubs(context.Context, flight.SearchRequest, int) ([]string, error) {
	return s.hubs, s.err
}

type stubBackend struct {
	mu       sync.Mutex
	searched []string
	inflight atomic.Int32
	peak     atomic.Int32
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Search(_ context.Context, req flight.SearchRequest) (RawResult, error) {
	cur := b.inflight.Add(1)
	for {
		peak := b.peak.Load()
		if cur <= peak || b.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	b.inflight.Add(-1)

	b.mu.Lock()
	b.searched = append(b.searched, req.Destination)
	b.mu.Unlock()
	return RawResult{Source: "stub", Payload: []byte(req.Destination)}, nil
}

func TestHiddenSearchFiltersTransit(t *testing.T) {
	backend := &stubBackend{}
	decode := func(raw RawResult) ([]flight.Record, error) {
		hub := string(raw.Payload)
		return []flight.Record{
			// Transits JFK on the way to the hub: keep.
			{Price: 300, Legs: []flight.Leg{
				{Origin: "LHR", Destination: "JFK"},
				{Origin: "JFK", Destination: hub},
			}},
			// Direct to the hub: drop.
			{Price: 200, Legs: []flight.Leg{
				{Origin: "LHR", Destination: hub},
			}},
			// Ends at JFK rather than passing through it: drop.
			{Price: 250, Legs: []flight.Leg{
				{Origin: "LHR", Destination: "JFK"},
			}},
		}, nil
	}

	h := NewHidden(stubSuggester{hubs: []string{"ORD", "ATL"}}, backend, decode, 10, 3)
	raw, err := h.Search(context.Background(), searchReq())
	require.NoError(t, err)
	assert.Equal(t, SourceHidden, raw.Source)

	var records []flight.Record
	require.NoError(t, json.Unmarshal(raw.Payload, &records))
	require.Len(t, records, 2, "one kept itinerary per hub")
	for _, record := range records {
		assert.True(t, record.HiddenCity)
		assert.Equal(t, SourceHidden, record.Source)
		assert.Contains(t, []string{"ORD", "ATL"}, record.HiddenDestination)
	}
}

func TestHiddenSkipsOriginAndDestinationHubs(t *testing.T) {
	backend := &stubBackend{}
	decode := func(RawResult) ([]flight.Record, error) { return nil, nil }

	h := NewHidden(stubSuggester{hubs: []string{"LHR", "JFK", "ORD"}}, backend, decode, 10, 3)
	_, err := h.Search(context.Background(), searchReq())
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD"}, backend.searched)
}

func TestHiddenBoundedFanout(t *testing.T) {
	backend := &stubBackend{}
	decode := func(RawResult) ([]flight.Record, error) { return nil, nil }

	hubs := []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"}
	h := NewHidden(stubSuggester{hubs: hubs}, backend, decode, 10, 2)
	_, err := h.Search(context.Background(), searchReq())
	require.NoError(t, err)
	assert.LessOrEqual(t, backend.peak.Load(), int32(2))
	assert.Len(t, backend.searched, 6)
}

func TestHiddenSuggesterFailure(t *testing.T) {
	h := NewHidden(stubSuggester{err: errors.New("model down")}, &stubBackend{}, nil, 10, 3)
	_, err := h.Search(context.Background(), searchReq())
	assert.ErrorContains(t, err, "hub suggestion")
}

type failingBackend struct{}

func (failingBackend) Name() string { return "failing" }
func (failingBackend) Search(context.Context, flight.SearchRequest) (RawResult, error) {
	return RawResult{}, errors.New("upstream down")
}

func TestHiddenToleratesCandidateFailures(t *testing.T) {
	h := NewHidden(stubSuggester{hubs: []string{"ORD"}}, failingBackend{}, nil, 10, 3)
	raw, err := h.Search(context.Background(), searchReq())
	require.NoError(t, err, "candidate failures are absorbed")

	var records []flight.Record
	require.NoError(t, json.Unmarshal(raw.Payload, &records))
	assert.Empty(t, records)
}
