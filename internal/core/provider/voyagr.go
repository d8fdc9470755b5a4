package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
)

// SourceVoyagr labels records fetched from the Voyagr envelope API.
const SourceVoyagr = "voyagr"

// Voyagr queries the envelope-style API. Responses look like
// {"meta": {...}, "results": {"flights": [...]}} where each flight carries
// a flattened route string; the normalizer unpacks it.
type Voyagr struct {
	baseURL string
	apiKey  string
	limit   int
	client  *http.Client
}

// NewVoyagr builds the fetcher. limit caps how many flights the API returns
// per search; zero leaves the cap to the API.
func NewVoyagr(baseURL, apiKey string, timeout time.Duration, limit int) *Voyagr {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Voyagr{
		baseURL: baseURL,
		apiKey:  apiKey,
		limit:   limit,
		client:  &http.Client{Timeout: timeout},
	}
}

func (v *Voyagr) Name() string { return SourceVoyagr }

func (v *Voyagr) Search(ctx context.Context, req flight.SearchRequest) (RawResult, error) {
	params := url.Values{}
	params.Set("from", req.Origin)
	params.Set("to", req.Destination)
	params.Set("depart", req.DepartDate)
	if req.ReturnDate != "" {
		params.Set("return", req.ReturnDate)
	}
	params.Set("adults", strconv.Itoa(req.Adults))
	if req.Children > 0 {
		params.Set("children", strconv.Itoa(req.Children))
	}
	if infants := req.InfantsSeat + req.InfantsLap; infants > 0 {
		params.Set("infants", strconv.Itoa(infants))
	}
	if req.CabinClass != "" {
		params.Set("cabin", req.CabinClass)
	}
	if req.Currency != "" {
		params.Set("currency", req.Currency)
	}
	if v.limit > 0 {
		params.Set("limit", strconv.Itoa(v.limit))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/search?"+params.Encode(), nil)
	if err != nil {
		return RawResult{}, fmt.Errorf("voyagr: build request: %w", err)
	}
	if v.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", v.apiKey)
	}

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return RawResult{}, fmt.Errorf("voyagr: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RawResult{}, fmt.Errorf("voyagr: unexpected status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawResult{}, fmt.Errorf("voyagr: read body: %w", err)
	}
	return RawResult{Source: SourceVoyagr, Payload: payload}, nil
}
