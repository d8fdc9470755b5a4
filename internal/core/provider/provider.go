// Package provider contains the upstream flight-data fetchers. Each fetcher
// returns its provider's payload verbatim; decoding happens downstream in the
// normalizer.
package provider

import (
	"context"
	"encoding/json"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
)

// RawResult is one provider's untouched response body.
type RawResult struct {
	Source  string
	Payload json.RawMessage
}

type Fetcher interface {
	Name() string
	Search(ctx context.Context, req flight.SearchRequest) (RawResult, error)
}
