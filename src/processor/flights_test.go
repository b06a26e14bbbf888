package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"USChinaFlights/src/datasource/file"
)

func TestFilterFlightsWithChina(t *testing.T) {
	flights := flightFrame(
		flightRow{2015, 1, "PEK", "JFK", 10},
		flightRow{2015, 1, "LHR", "JFK", 20},
		flightRow{2015, 2, "PVG", "LAX", 30},
		flightRow{2016, 3, "NRT", "SFO", 40},
		flightRow{2016, 4, "PEK", "SFO", 50},
	)
	airports := airportFrame(
		[3]string{"Beijing Capital", "PEK", "CN"},
		[3]string{"Shanghai Pudong", "PVG", "CN"},
		[3]string{"Beijing Capital duplicate", "PEK", "CN"},
		[3]string{"John F Kennedy", "JFK", "US"},
	)

	got, err := FilterFlightsWithChina(flights, airports)
	require.NoError(t, err)

	assert.Equal(t, []string{"PEK", "PVG", "PEK"}, got.Col(file.ColFgAirport).Records())
	totals, err := got.Col(file.ColTotal).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 30, 50}, totals)
	assert.LessOrEqual(t, got.Nrow(), flights.Nrow())
}

func TestFilterFlightsWithChina_NoAirports(t *testing.T) {
	flights := flightFrame(flightRow{2015, 1, "PEK", "JFK", 10})

	got, err := FilterFlightsWithChina(flights, airportFrame())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Nrow())
	assert.Equal(t, flights.Names(), got.Names())
}

func TestFilterFlightsWithChina_MissingColumn(t *testing.T) {
	flights := flightFrame(flightRow{2015, 1, "PEK", "JFK", 10}).Drop(file.ColFgAirport)

	_, err := FilterFlightsWithChina(flights, airportFrame([3]string{"Beijing Capital", "PEK", "CN"}))
	assert.ErrorIs(t, err, ErrMissingColumn)
}
