package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
)

// SourceSkylens labels records fetched from the structured Skylens API.
const SourceSkylens = "skylens"

// Skylens queries the structured itinerary API. Responses are a JSON array
// of itinerary objects with nested price and leg structures.
type Skylens struct {
	baseURL string
	apiKey  string
	limit   int
	client  *http.Client
}

// NewSkylens builds the fetcher. limit caps how many itineraries the API
// returns per search; zero leaves the cap to the API.
func NewSkylens(baseURL, apiKey string, timeout time.Duration, limit int) *Skylens {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Skylens{
		baseURL: baseURL,
		apiKey:  apiKey,
		limit:   limit,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *Skylens) Name() string { return SourceSkylens }

type skylensQuery struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DepartDate  string `json:"depart_date"`
	ReturnDate  string `json:"return_date,omitempty"`
	Adults      int    `json:"adults"`
	Children    int    `json:"children,omitempty"`
	Infants     int    `json:"infants,omitempty"`
	CabinClass  string `json:"cabin_class,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Language    string `json:"language,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

func (s *Skylens) Search(ctx context.Context, req flight.SearchRequest) (RawResult, error) {
	query := skylensQuery{
		Origin:      req.Origin,
		Destination: req.Destination,
		DepartDate:  req.DepartDate,
		ReturnDate:  req.ReturnDate,
		Adults:      req.Adults,
		Children:    req.Children,
		Infants:     req.InfantsSeat + req.InfantsLap,
		CabinClass:  req.CabinClass,
		Currency:    req.Currency,
		Language:    req.Language,
		Limit:       s.limit,
	}
	body, err := json.Marshal(query)
	if err != nil {
		return RawResult{}, fmt.Errorf("skylens: marshal query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/itineraries", bytes.NewReader(body))
	if err != nil {
		return RawResult{}, fmt.Errorf("skylens: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return RawResult{}, fmt.Errorf("skylens: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RawResult{}, fmt.Errorf("skylens: unexpected status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawResult{}, fmt.Errorf("skylens: read body: %w", err)
	}
	return RawResult{Source: SourceSkylens, Payload: payload}, nil
}
