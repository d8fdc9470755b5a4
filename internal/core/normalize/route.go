package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
)

// ParseRoute unpacks a flattened route string into legs. A route is a
// sequence of balanced parenthesis groups, one per leg:
//
//	(LHR-JFK BA117 (09:00 12:05))(JFK-ORD AA100 (14:10 16:20))
//
// Each group holds an origin-destination pair, an optional flight code and
// an optional nested group with departure and arrival times. Groups are
// extracted by depth scanning so nested delimiters never split a leg.
func ParseRoute(route string) ([]flight.Leg, error) {
	groups, err := splitGroups(route)
	if err != nil {
		return nil, err
	}
	legs := make([]flight.Leg, 0, len(groups))
	for _, group := range groups {
		leg, err := parseLeg(group)
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

// splitGroups returns the contents of each top-level balanced group.
func splitGroups(s string) ([]string, error) {
	var groups []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ')' at offset %d", i)
			}
			if depth == 0 {
				groups = append(groups, s[start:i])
			}
		default:
			if depth == 0 && !unicode.IsSpace(r) {
				return nil, fmt.Errorf("unexpected %q outside a leg group at offset %d", r, i)
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced '(': %d group(s) left open", depth)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("route contains no leg groups")
	}
	return groups, nil
}

func parseLeg(group string) (flight.Leg, error) {
	// A nested group, if present, carries "departure arrival".
	var times string
	if open := strings.IndexByte(group, '('); open >= 0 {
		depth := 0
		end := -1
		for i := open; i < len(group); i++ {
			switch group[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					end = i
				}
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			return flight.Leg{}, fmt.Errorf("unbalanced nested group in leg %q", group)
		}
		times = group[open+1 : end]
		group = group[:open] + group[end+1:]
	}

	fields := strings.Fields(group)
	if len(fields) == 0 {
		return flight.Leg{}, fmt.Errorf("empty leg group")
	}

	pair := strings.SplitN(fields[0], "-", 2)
	if len(pair) != 2 || len(pair[0]) != 3 || len(pair[1]) != 3 {
		return flight.Leg{}, fmt.Errorf("leg %q: want ORG-DST city pair, got %q", group, fields[0])
	}
	leg := flight.Leg{Origin: pair[0], Destination: pair[1]}

	if len(fields) > 1 {
		leg.Carrier, leg.FlightNumber = splitFlightCode(fields[1])
	}
	if times != "" {
		timeFields := strings.Fields(times)
		if len(timeFields) > 0 {
			leg.DepartureTime = timeFields[0]
		}
		if len(timeFields) > 1 {
			leg.ArrivalTime = timeFields[1]
		}
	}
	return leg, nil
}

// splitFlightCode separates "BA117" into carrier and number.
func splitFlightCode(code string) (carrier, number string) {
	i := 0
	for i < len(code) && (code[i] < '0' || code[i] > '9') {
		i++
	}
	return code[:i], code[i:]
}
