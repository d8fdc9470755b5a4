package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
)

const reportSystemPrompt = `You are a flight-search analyst. You receive flight
data as JSON grouped into three lists: "general" (structured provider),
"broad" (aggregate provider) and "discovered" (hidden-city itineraries).
Write a concise report for the traveller: best value options, notable
hidden-city opportunities and any caveats. Plain text only.`

const hubSystemPrompt = `You are an airline routing expert. Given an origin
and destination, list major hub airports that flights from the origin often
continue to after stopping at the destination. Answer with IATA airport codes
only, separated by spaces.`

// payloadRecordLimit bounds how many records per list are serialized into
// the model payload.
const payloadRecordLimit = 50

// buildReportUser renders the user message for the report prompt: the trip
// summary, the traveller's free-text preferences and the bounded corpus.
func buildReportUser(corpus flight.Corpus, req flight.SearchRequest) (string, error) {
	bounded := flight.Corpus{
		General:    capList(corpus.General),
		Broad:      capList(corpus.Broad),
		Discovered: capList(corpus.Discovered),
	}
	data, err := json.Marshal(bounded)
	if err != nil {
		return "", fmt.Errorf("marshal corpus: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Trip: %s -> %s departing %s", req.Origin, req.Destination, req.DepartDate)
	if req.ReturnDate != "" {
		fmt.Fprintf(&b, ", returning %s", req.ReturnDate)
	}
	fmt.Fprintf(&b, ". Passengers: %d adult(s).", req.Adults)
	if req.Preferences != "" {
		fmt.Fprintf(&b, "\nTraveller preferences: %s", req.Preferences)
	}
	fmt.Fprintf(&b, "\n\nFlight data:\n%s", data)
	return b.String(), nil
}

func capList(records []flight.Record) []flight.Record {
	if len(records) > payloadRecordLimit {
		return records[:payloadRecordLimit]
	}
	return records
}

// buildHubUser renders the user message for hub-candidate discovery.
func buildHubUser(req flight.SearchRequest, limit int) string {
	return fmt.Sprintf(
		"Origin: %s. Destination: %s. List up to %d hub airports beyond the destination.",
		req.Origin, req.Destination, limit,
	)
}

// fallbackReport is the deterministic summary used when the model cannot be
// reached: record count, minimum and average price.
func fallbackReport(corpus flight.Corpus, req flight.SearchRequest) string {
	all := corpus.All()
	if len(all) == 0 {
		return fmt.Sprintf("No flights found for %s -> %s on %s.",
			req.Origin, req.Destination, req.DepartDate)
	}

	min := all[0].Price
	sum := 0.0
	currency := all[0].Currency
	for _, record := range all {
		if record.Price < min {
			min = record.Price
		}
		sum += record.Price
	}
	avg := sum / float64(len(all))

	unit := currency
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf(
		"Found %d flight option(s) for %s -> %s on %s. Lowest price: %.2f %s. Average price: %.2f %s.",
		len(all), req.Origin, req.Destination, req.DepartDate, min, unit, avg, unit,
	)
}
