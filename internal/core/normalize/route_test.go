package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRouteSingleLeg(t *testing.T) {
	legs, err := ParseRoute("(LHR-JFK BA117 (09:00 12:05))")
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, "LHR", legs[0].Origin)
	assert.Equal(t, "JFK", legs[0].Destination)
	assert.Equal(t, "BA", legs[0].Carrier)
	assert.Equal(t, "117", legs[0].FlightNumber)
	assert.Equal(t, "09:00", legs[0].DepartureTime)
	assert.Equal(t, "12:05", legs[0].ArrivalTime)
}

func TestParseRouteMultiLeg(t *testing.T) {
	legs, err := ParseRoute("(LHR-JFK BA117 (09:00 12:05)) (JFK-ORD AA100 (14:10 16:20))")
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, "JFK", legs[1].Origin)
	assert.Equal(t, "ORD", legs[1].Destination)
	assert.Equal(t, "AA", legs[1].Carrier)
	assert.Equal(t, "100", legs[1].FlightNumber)
}

func TestParseRouteMinimalGroup(t *testing.T) {
	legs, err := ParseRoute("(LHR-JFK)")
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Empty(t, legs[0].Carrier)
	assert.Empty(t, legs[0].DepartureTime)
}

func TestParseRouteErrors(t *testing.T) {
	tests := []struct {
		name  string
		route string
	}{
		{"empty", ""},
		{"no groups", "   "},
		{"unbalanced open", "(LHR-JFK"},
		{"unbalanced close", "LHR-JFK)"},
		{"text outside group", "x(LHR-JFK)"},
		{"missing city pair", "(BA117)"},
		{"short code", "(LH-JFK)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoute(tt.route)
			assert.Error(t, err)
		})
	}
}

func TestSplitFlightCode(t *testing.T) {
	carrier, number := splitFlightCode("BA117")
	assert.Equal(t, "BA", carrier)
	assert.Equal(t, "117", number)

	carrier, number = splitFlightCode("117")
	assert.Empty(t, carrier)
	assert.Equal(t, "117", number)
}
