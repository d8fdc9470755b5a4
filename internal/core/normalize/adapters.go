// Package normalize decodes provider payloads into canonical records and
// merges them into the labeled corpus handed to analysis.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
	"github.com/EBOLABOY/aeroscout/internal/core/provider"
)

// Decode dispatches a raw provider result to its source adapter.
func Decode(raw provider.RawResult) ([]flight.Record, error) {
	switch raw.Source {
	case provider.SourceSkylens:
		return DecodeSkylens(raw.Payload)
	case provider.SourceVoyagr:
		return DecodeVoyagr(raw.Payload)
	case provider.SourceHidden:
		return DecodeHidden(raw.Payload)
	default:
		return nil, fmt.Errorf("normalize: unknown source %q", raw.Source)
	}
}

// skylensKnown is the set of payload keys the adapter maps onto Record
// fields; everything else lands in Extra.
var skylensKnown = map[string]struct{}{
	"price": {}, "duration_minutes": {}, "stops": {}, "legs": {},
}

type skylensPrice struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type skylensLeg struct {
	Carrier         string `json:"carrier"`
	FlightNumber    string `json:"flight_number"`
	From            string `json:"from"`
	To              string `json:"to"`
	Departure       string `json:"departure"`
	Arrival         string `json:"arrival"`
	DurationMinutes int    `json:"duration_minutes"`
}

type skylensItinerary struct {
	Price           skylensPrice `json:"price"`
	DurationMinutes int          `json:"duration_minutes"`
	Stops           int          `json:"stops"`
	Legs            []skylensLeg `json:"legs"`
}

// DecodeSkylens parses the structured JSON-array payload. A malformed
// itinerary is skipped with a warning; the rest of the payload survives.
func DecodeSkylens(payload json.RawMessage) ([]flight.Record, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("skylens payload is not an array: %w", err)
	}

	records := make([]flight.Record, 0, len(items))
	for _, item := range items {
		var it skylensItinerary
		if err := json.Unmarshal(item, &it); err != nil {
			log.Warn().Err(err).Msg("skipping malformed skylens itinerary")
			continue
		}
		var extra map[string]any
		if err := json.Unmarshal(item, &extra); err != nil {
			log.Warn().Err(err).Msg("skipping malformed skylens itinerary")
			continue
		}
		for key := range skylensKnown {
			delete(extra, key)
		}
		if len(extra) == 0 {
			extra = nil
		}

		record := flight.Record{
			Source:          provider.SourceSkylens,
			Price:           it.Price.Amount,
			Currency:        it.Price.Currency,
			DurationMinutes: it.DurationMinutes,
			Stops:           it.Stops,
			Extra:           extra,
		}
		for _, leg := range it.Legs {
			record.Legs = append(record.Legs, flight.Leg{
				Carrier:         leg.Carrier,
				FlightNumber:    leg.FlightNumber,
				Origin:          leg.From,
				Destination:     leg.To,
				DepartureTime:   leg.Departure,
				ArrivalTime:     leg.Arrival,
				DurationMinutes: leg.DurationMinutes,
			})
		}
		if len(record.Legs) > 0 {
			record.DepartureTime = record.Legs[0].DepartureTime
			record.ArrivalTime = record.Legs[len(record.Legs)-1].ArrivalTime
		}
		records = append(records, record)
	}
	return records, nil
}

var voyagrKnown = map[string]struct{}{
	"price": {}, "currency": {}, "route": {}, "stops": {},
	"duration_minutes": {}, "hidden_city": {}, "hidden_dest": {},
}

type voyagrFlight struct {
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	Route           string  `json:"route"`
	Stops           int     `json:"stops"`
	DurationMinutes int     `json:"duration_minutes"`
	HiddenCity      bool    `json:"hidden_city"`
	HiddenDest      string  `json:"hidden_dest"`
}

type voyagrEnvelope struct {
	Meta struct {
		Currency string `json:"currency"`
	} `json:"meta"`
	Results struct {
		Flights []json.RawMessage `json:"flights"`
	} `json:"results"`
}

// DecodeVoyagr parses the envelope payload. Each flight's legs arrive as a
// flattened route string; ParseRoute unpacks it. A flight that fails to
// parse is skipped with a warning; the rest of the envelope survives.
func DecodeVoyagr(payload json.RawMessage) ([]flight.Record, error) {
	var env voyagrEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("voyagr envelope: %w", err)
	}

	records := make([]flight.Record, 0, len(env.Results.Flights))
	for _, item := range env.Results.Flights {
		var f voyagrFlight
		if err := json.Unmarshal(item, &f); err != nil {
			log.Warn().Err(err).Msg("skipping malformed voyagr flight")
			continue
		}
		var extra map[string]any
		if err := json.Unmarshal(item, &extra); err != nil {
			log.Warn().Err(err).Msg("skipping malformed voyagr flight")
			continue
		}
		for key := range voyagrKnown {
			delete(extra, key)
		}
		if len(extra) == 0 {
			extra = nil
		}

		legs, err := ParseRoute(f.Route)
		if err != nil {
			log.Warn().Err(err).Str("route", f.Route).Msg("skipping voyagr flight with unparsable route")
			continue
		}
		currency := f.Currency
		if currency == "" {
			currency = env.Meta.Currency
		}
		record := flight.Record{
			Source:            provider.SourceVoyagr,
			Price:             f.Price,
			Currency:          currency,
			DurationMinutes:   f.DurationMinutes,
			Stops:             f.Stops,
			Legs:              legs,
			HiddenCity:        f.HiddenCity,
			HiddenDestination: f.HiddenDest,
			Extra:             extra,
		}
		if len(legs) > 0 {
			record.DepartureTime = legs[0].DepartureTime
			record.ArrivalTime = legs[len(legs)-1].ArrivalTime
			if record.Stops == 0 && len(legs) > 1 {
				record.Stops = len(legs) - 1
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// DecodeHidden decodes the discovery fetcher's payload, which is already a
// canonical record array.
func DecodeHidden(payload json.RawMessage) ([]flight.Record, error) {
	var records []flight.Record
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("hidden payload: %w", err)
	}
	return records, nil
}
