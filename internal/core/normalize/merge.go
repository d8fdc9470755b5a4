package normalize

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
	"github.com/EBOLABOY/aeroscout/internal/core/provider"
)

// extraDenyList names Extra keys that never reach clients or the analysis
// payload: internal identifiers, debug dumps and raw request echoes. Keys not
// listed here are preserved.
var extraDenyList = []string{
	"id", "internal_id", "session_id", "trace_id", "request_id",
	"booking_token", "search_token", "debug", "raw", "raw_response",
	"provider_meta", "request_echo",
}

// Merger turns raw provider results into the labeled corpus. Each list is
// sorted cheapest-first and capped; the guest cap is tighter.
type Merger struct {
	recordCap      int
	guestRecordCap int
}

func NewMerger(recordCap, guestRecordCap int) *Merger {
	if recordCap <= 0 {
		recordCap = 100
	}
	if guestRecordCap <= 0 || guestRecordCap > recordCap {
		guestRecordCap = recordCap
	}
	return &Merger{recordCap: recordCap, guestRecordCap: guestRecordCap}
}

// Merge decodes every raw result and buckets records by source: skylens →
// General, voyagr → Broad, hidden → Discovered. A payload that fails to
// decode contributes nothing; records from distinct providers are never
// collapsed together.
func (m *Merger) Merge(results []provider.RawResult, guest bool) flight.Corpus {
	limit := m.recordCap
	if guest {
		limit = m.guestRecordCap
	}

	var corpus flight.Corpus
	for _, raw := range results {
		records, err := Decode(raw)
		if err != nil {
			log.Warn().Err(err).Str("source", raw.Source).Msg("dropping undecodable provider payload")
			continue
		}
		records = clean(records)
		switch raw.Source {
		case provider.SourceVoyagr:
			corpus.Broad = append(corpus.Broad, records...)
		case provider.SourceHidden:
			corpus.Discovered = append(corpus.Discovered, records...)
		default:
			corpus.General = append(corpus.General, records...)
		}
	}

	corpus.General = capCheapest(corpus.General, limit)
	corpus.Broad = capCheapest(corpus.Broad, limit)
	corpus.Discovered = capCheapest(corpus.Discovered, limit)
	return corpus
}

// clean drops invalid records and strips deny-listed Extra keys.
func clean(records []flight.Record) []flight.Record {
	kept := records[:0]
	for _, record := range records {
		if !record.Valid() {
			continue
		}
		if record.Extra != nil {
			for _, key := range extraDenyList {
				delete(record.Extra, key)
			}
			if len(record.Extra) == 0 {
				record.Extra = nil
			}
		}
		kept = append(kept, record)
	}
	return kept
}

// capCheapest sorts by ascending price and keeps the first n.
func capCheapest(records []flight.Record, n int) []flight.Record {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Price < records[j].Price
	})
	if len(records) > n {
		records = records[:n]
	}
	return records
}
