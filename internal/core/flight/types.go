// Package flight defines the canonical flight-search data model shared by
// providers, the normalization pipeline and the API layer.
package flight

import (
	"fmt"
	"regexp"
	"time"
)

var iataCode = regexp.MustCompile(`^[A-Z]{3}$`)

// SearchRequest is the user-facing search input, validated before a job is
// created. The caller class (anonymous or authenticated) is not part of the
// request; it is derived from auth and travels separately.
type SearchRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DepartDate  string `json:"depart_date"`
	ReturnDate  string `json:"return_date,omitempty"`
	Adults      int    `json:"adults"`
	Children    int    `json:"children,omitempty"`
	InfantsSeat int    `json:"infants_in_seat,omitempty"`
	InfantsLap  int    `json:"infants_on_lap,omitempty"`
	CabinClass  string `json:"cabin_class,omitempty"`
	MaxStops    int    `json:"max_stops,omitempty"`
	SortBy      string `json:"sort_by,omitempty"`
	Preferences string `json:"preferences,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Language    string `json:"language,omitempty"`
}

// RoundTrip reports whether the request includes a return leg.
func (r SearchRequest) RoundTrip() bool {
	return r.ReturnDate != ""
}

func (r SearchRequest) infants() int {
	return r.InfantsSeat + r.InfantsLap
}

// Validate checks IATA codes, dates and passenger counts. The first failure
// is returned.
func (r SearchRequest) Validate() error {
	if !iataCode.MatchString(r.Origin) {
		return fmt.Errorf("origin must be a 3-letter uppercase IATA code, got %q", r.Origin)
	}
	if !iataCode.MatchString(r.Destination) {
		return fmt.Errorf("destination must be a 3-letter uppercase IATA code, got %q", r.Destination)
	}
	if r.Origin == r.Destination {
		return fmt.Errorf("origin and destination must differ")
	}
	depart, err := time.Parse("2006-01-02", r.DepartDate)
	if err != nil {
		return fmt.Errorf("depart_date must be YYYY-MM-DD, got %q", r.DepartDate)
	}
	if r.ReturnDate != "" {
		ret, err := time.Parse("2006-01-02", r.ReturnDate)
		if err != nil {
			return fmt.Errorf("return_date must be YYYY-MM-DD, got %q", r.ReturnDate)
		}
		if ret.Before(depart) {
			return fmt.Errorf("return_date %s is before depart_date %s", r.ReturnDate, r.DepartDate)
		}
	}
	if r.Adults < 1 || r.Adults > 9 {
		return fmt.Errorf("adults must be between 1 and 9, got %d", r.Adults)
	}
	if r.Children < 0 || r.InfantsSeat < 0 || r.InfantsLap < 0 {
		return fmt.Errorf("passenger counts must not be negative")
	}
	if r.Adults+r.Children+r.infants() > 9 {
		return fmt.Errorf("total passengers must not exceed 9")
	}
	if r.infants() > r.Adults {
		return fmt.Errorf("infants (%d) must not exceed adults (%d)", r.infants(), r.Adults)
	}
	if r.MaxStops < 0 {
		return fmt.Errorf("max_stops must not be negative")
	}
	return nil
}

// Leg is a single flight segment within an itinerary.
type Leg struct {
	Carrier         string `json:"carrier,omitempty"`
	FlightNumber    string `json:"flight_number,omitempty"`
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	DepartureTime   string `json:"departure_time,omitempty"`
	ArrivalTime     string `json:"arrival_time,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// Record is a canonical, provider-independent itinerary. A record is invalid
// when Price <= 0 or it has no legs; the normalizer drops those.
type Record struct {
	Source            string         `json:"source"`
	Price             float64        `json:"price"`
	Currency          string         `json:"currency,omitempty"`
	DepartureTime     string         `json:"departure_time,omitempty"`
	ArrivalTime       string         `json:"arrival_time,omitempty"`
	DurationMinutes   int            `json:"duration_minutes,omitempty"`
	Stops             int            `json:"stops"`
	Legs              []Leg          `json:"legs"`
	HiddenCity        bool           `json:"is_hidden_city,omitempty"`
	HiddenDestination string         `json:"hidden_destination_code,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// Valid reports whether the record passes the price and leg checks.
func (r Record) Valid() bool {
	return r.Price > 0 && len(r.Legs) > 0
}

// Corpus groups normalized records by how they were found. The three lists
// stay separate through analysis so the report can attribute findings.
type Corpus struct {
	General    []Record `json:"general"`
	Broad      []Record `json:"broad"`
	Discovered []Record `json:"discovered"`
}

// Total returns the number of records across all lists.
func (c Corpus) Total() int {
	return len(c.General) + len(c.Broad) + len(c.Discovered)
}

// All returns every record in a single slice, general first.
func (c Corpus) All() []Record {
	out := make([]Record, 0, c.Total())
	out = append(out, c.General...)
	out = append(out, c.Broad...)
	out = append(out, c.Discovered...)
	return out
}
