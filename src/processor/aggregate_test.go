package processor

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"USChinaFlights/src/datasource/file"
)

func intCol(t *testing.T, df dataframe.DataFrame, name string) []int {
	t.Helper()
	v, err := df.Col(name).Int()
	require.NoError(t, err)
	return v
}

func pekFlights() dataframe.DataFrame {
	rows := repeat(150, flightRow{2016, 6, "PEK", "JFK", 2})
	rows = append(rows, repeat(100, flightRow{2015, 5, "PEK", "JFK", 1})...)
	return flightFrame(rows...)
}

func TestFlightsByYear(t *testing.T) {
	flights := pekFlights()

	got, err := FlightsByYear(flights)
	require.NoError(t, err)

	assert.Equal(t, []string{file.ColYear, CountColumn}, got.Names())
	assert.Equal(t, []int{2015, 2016}, intCol(t, got, file.ColYear))
	counts := intCol(t, got, CountColumn)
	assert.Equal(t, []int{100, 150}, counts)

	total := 0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, flights.Nrow(), total)
}

func TestFlightsByYear_Empty(t *testing.T) {
	got, err := FlightsByYear(flightFrame())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Nrow())
	assert.Equal(t, []string{file.ColYear, CountColumn}, got.Names())
}

func TestFlightsByYearMonth(t *testing.T) {
	flights := flightFrame(
		flightRow{2001, 3, "PEK", "JFK", 1},
		flightRow{1998, 1, "PEK", "JFK", 1},
		flightRow{2000, 2, "PEK", "JFK", 1},
		flightRow{2000, 1, "PEK", "JFK", 1},
		flightRow{2000, 2, "PVG", "LAX", 1},
		flightRow{2001, 3, "PEK", "JFK", 1},
		flightRow{2002, 1, "PEK", "JFK", 1},
	)

	got, err := FlightsByYearMonth(flights, 2000, 2001)
	require.NoError(t, err)
	assert.Equal(t, []int{2000, 2000, 2001}, intCol(t, got, file.ColYear))
	assert.Equal(t, []int{1, 2, 3}, intCol(t, got, file.ColMonth))
	assert.Equal(t, []int{1, 2, 2}, intCol(t, got, CountColumn))

	perYear, err := SplitByYear(got)
	require.NoError(t, err)
	assert.Equal(t, []MonthlySeries{
		{Year: 2000, Months: []int{1, 2}, Counts: []int{1, 2}},
		{Year: 2001, Months: []int{3}, Counts: []int{2}},
	}, perYear)
}

func TestFlightsByYearMonth_EmptyRange(t *testing.T) {
	got, err := FlightsByYearMonth(pekFlights(), 1990, 1995)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Nrow())

	perYear, err := SplitByYear(got)
	require.NoError(t, err)
	assert.Empty(t, perYear)
}

func TestFlightsByMonth(t *testing.T) {
	var rows []flightRow
	rows = append(rows, repeat(3, flightRow{2000, 7, "PEK", "JFK", 1})...)
	rows = append(rows, repeat(2, flightRow{2001, 7, "PEK", "JFK", 1})...)
	rows = append(rows, repeat(4, flightRow{2000, 12, "PEK", "JFK", 1})...)
	rows = append(rows, repeat(1, flightRow{2001, 12, "PEK", "JFK", 1})...)
	rows = append(rows, repeat(2, flightRow{2001, 3, "PEK", "JFK", 1})...)
	rows = append(rows, repeat(2, flightRow{2000, 1, "PEK", "JFK", 1})...)
	rows = append(rows, repeat(9, flightRow{2005, 1, "PEK", "JFK", 1})...)

	got, err := FlightsByMonth(flightFrame(rows...), 2000, 2001)
	require.NoError(t, err)

	assert.Equal(t, []string{file.ColMonth, CountColumn}, got.Names())
	// 7月与12月同为5，按月份升序
	assert.Equal(t, []int{7, 12, 1, 3}, intCol(t, got, file.ColMonth))
	assert.Equal(t, []int{5, 5, 2, 2}, intCol(t, got, CountColumn))
}

func routeFrame(routes ...[2]string) dataframe.DataFrame {
	fg := make([]string, len(routes))
	us := make([]string, len(routes))
	for i, r := range routes {
		fg[i], us[i] = r[0], r[1]
	}
	return dataframe.New(
		series.New(fg, series.String, ColForeignName),
		series.New(us, series.String, ColUSName),
	)
}

func TestTopRoutes(t *testing.T) {
	enriched := routeFrame(
		[2]string{"Shanghai Pudong", "Los Angeles"},
		[2]string{"Beijing Capital", "John F Kennedy"},
		[2]string{"Beijing Capital", "John F Kennedy"},
		[2]string{"Guangzhou Baiyun", "Los Angeles"},
		[2]string{"Beijing Capital", "Los Angeles"},
		[2]string{"Shanghai Pudong", "Los Angeles"},
		[2]string{"Beijing Capital", "John F Kennedy"},
	)

	got, err := TopRoutes(enriched, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{ColForeignName, ColUSName, CountColumn},
		{"Beijing Capital", "John F Kennedy", "3"},
		{"Shanghai Pudong", "Los Angeles", "2"},
		{"Guangzhou Baiyun", "Los Angeles", "1"},
	}, got.Records())

	all, err := TopRoutes(enriched, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, all.Nrow())

	def, err := TopRoutes(enriched, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, def.Nrow())
}

func TestTopRoutes_DefaultN(t *testing.T) {
	var routes [][2]string
	for i := 0; i < 15; i++ {
		routes = append(routes, [2]string{string(rune('A' + i)), "JFK"})
	}
	got, err := TopRoutes(routeFrame(routes...), -1)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopN, got.Nrow())
	// 数量全部相同，保持首次出现的顺序
	assert.Equal(t, "A", got.Col(ColForeignName).Records()[0])
	assert.Equal(t, "J", got.Col(ColForeignName).Records()[9])
}

func TestTopRoutes_MissingColumn(t *testing.T) {
	_, err := TopRoutes(pekFlights(), 5)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestPassengersByYear(t *testing.T) {
	got, err := PassengersByYear(pekFlights())
	require.NoError(t, err)
	assert.Equal(t, []int{2015, 2016}, intCol(t, got, file.ColYear))
	assert.Equal(t, []int{100, 300}, intCol(t, got, PassengersColumn))
}

func TestCountBy_KeysDoNotCollide(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"a_b", "a", "a_b"}, series.String, "k1"),
		series.New([]string{"c", "b_c", "c"}, series.String, "k2"),
	)
	got, err := countBy(df, []string{"k1", "k2"}, "", CountColumn)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, intCol(t, got, CountColumn))
}
