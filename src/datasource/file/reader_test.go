package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"USChinaFlights/src/storage"
)

const flightsHeader = "data_dte,Year,Month,usg_apt_id,usg_apt,usg_wac,fg_apt_id,fg_apt,fg_wac,airlineid,carrier,carriergroup,type,Scheduled,Charter,Total\n"

const flightsCSV = flightsHeader +
	"05/01/2015,2015,5,12478,JFK,22,11111,PEK,687,19805,AA,1,Passengers,200,0,200\n" +
	"06/01/2016,2016,6,12892,LAX,91,22222,PVG,687,19977,UA,1,Passengers,150,10,160\n" +
	"07/01/2016,2016,7,13930,ORD,41,33333,LHR,493,19977,UA,1,Passengers,300,0,300\n"

type stubFetcher struct {
	body  []byte
	err   error
	calls int
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.calls++
	return s.body, s.err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFlights_FromCache(t *testing.T) {
	cache := writeFile(t, t.TempDir(), "flights.csv", flightsCSV)
	fetcher := &stubFetcher{err: errors.New("should not be called")}

	df, err := LoadFlights(context.Background(), cache, "http://unused", fetcher, storage.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, FlightColumns, df.Names())
	assert.Equal(t, []string{"2015-05-01", "2016-06-01", "2016-07-01"}, df.Col(ColDate).Records())
	years, err := df.Col(ColYear).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{2015, 2016, 2016}, years)
	assert.Equal(t, []string{"PEK", "PVG", "LHR"}, df.Col(ColFgAirport).Records())
}

func TestLoadFlights_DownloadWritesCache(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "data", "flights.csv")
	fetcher := &stubFetcher{body: []byte(flightsCSV)}

	df, err := LoadFlights(context.Background(), cache, "http://example", fetcher, storage.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 3, df.Nrow())

	cached, err := os.ReadFile(cache)
	require.NoError(t, err)
	assert.Equal(t, flightsCSV, string(cached))

	// 第二次读取命中缓存，结果一致
	again, err := LoadFlights(context.Background(), cache, "http://example", fetcher, storage.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, df.Records(), again.Records())
}

func TestLoadFlights_UnreachableWithoutCache(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "flights.csv")
	fetcher := &stubFetcher{err: errors.New("connection refused")}

	_, err := LoadFlights(context.Background(), cache, "http://example", fetcher, storage.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoFileExists(t, cache)

	_, err = LoadFlights(context.Background(), cache, "http://example", nil, storage.NewNopLogger())
	assert.Error(t, err)
}

func TestLoadFlights_BadDownloadNotCached(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "flights.csv")
	fetcher := &stubFetcher{body: []byte("a,b\n1,2\n")}

	_, err := LoadFlights(context.Background(), cache, "http://example", fetcher, storage.NewNopLogger())
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.NoFileExists(t, cache)
}

func TestParseFlights_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"too few columns", "data_dte,Year,Month\n05/01/2015,2015,5\n", ErrSchemaMismatch},
		{"renamed column", strings.Replace(flightsHeader, "fg_apt,", "foreign,", 1), ErrSchemaMismatch},
		{"ragged row", flightsHeader + "05/01/2015,2015,5\n", ErrSchemaMismatch},
		{"bad date", flightsHeader + "yesterday,2015,5,1,JFK,22,2,PEK,687,3,AA,1,Passengers,1,0,1\n", ErrParse},
		{"bad month", flightsHeader + "05/01/2015,2015,13,1,JFK,22,2,PEK,687,3,AA,1,Passengers,1,0,1\n", ErrParse},
		{"bad year", flightsHeader + "05/01/2015,twenty,5,1,JFK,22,2,PEK,687,3,AA,1,Passengers,1,0,1\n", ErrParse},
		{"empty", "", ErrSchemaMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFlights(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseFlights_HeaderOnly(t *testing.T) {
	df, err := ParseFlights(strings.NewReader(flightsHeader))
	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, FlightColumns, df.Names())
}

func TestReadAirports(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "airports.csv",
		"id,ident,type,name,iso_country,iata_code\n"+
			"1,ZBAA,large_airport,Beijing Capital International Airport,CN,PEK\n"+
			"2,FYWH,large_airport,Hosea Kutako International Airport,NA,WDH\n"+
			"3,XXXX,heliport,Some Heliport,US,\n")

	df, err := ReadAirports(path)
	require.NoError(t, err)
	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, []string{"CN", "NA", "US"}, df.Col(ColCountry).Records())
	assert.Equal(t, []string{"PEK", "WDH", ""}, df.Col(ColIATA).Records())

	missing := writeFile(t, dir, "bad.csv", "id,name,iso_country\n1,X,CN\n")
	_, err = ReadAirports(missing)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = ReadAirports(filepath.Join(dir, "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadAirports_HeaderOnly(t *testing.T) {
	path := writeFile(t, t.TempDir(), "airports.csv", "name,iso_country,iata_code\n")
	df, err := ReadAirports(path)
	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, []string{"name", "iso_country", "iata_code"}, df.Names())
}

func TestReadFDI_CSV(t *testing.T) {
	dir := t.TempDir()
	cn := writeFile(t, dir, "cn.csv", "2016,45.6\n2015,15.0\n2014,9.5\n")
	us := writeFile(t, dir, "us.csv", "2015,74.6\n2016,92.5\n2017,107.6\n")

	df, err := ReadFDI(cn, us, "cn", "us")
	require.NoError(t, err)
	assert.Equal(t, []string{"Year", "cn", "us"}, df.Names())

	years, err := df.Col(ColFDIYear).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{2015, 2016}, years)
	assert.Equal(t, []float64{15.0, 45.6}, df.Col("cn").Float())
	assert.Equal(t, []float64{74.6, 92.5}, df.Col("us").Float())
}

func TestReadFDI_XLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cn.xlsx")
	xl := excelize.NewFile()
	require.NoError(t, xl.SetCellValue("Sheet1", "A1", 2015))
	require.NoError(t, xl.SetCellValue("Sheet1", "B1", 15.0))
	require.NoError(t, xl.SetCellValue("Sheet1", "A2", 2016))
	require.NoError(t, xl.SetCellValue("Sheet1", "B2", 45.6))
	require.NoError(t, xl.SaveAs(path))
	require.NoError(t, xl.Close())

	us := writeFile(t, dir, "us.csv", "2015,74.6\n2016,92.5\n")

	df, err := ReadFDI(path, us, "cn", "us")
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, []float64{15.0, 45.6}, df.Col("cn").Float())
}

func TestReadFDI_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", "2015,1\n")

	dup := writeFile(t, dir, "dup.csv", "2015,1\n2015,2\n")
	_, err := ReadFDI(dup, good, "a", "b")
	assert.ErrorIs(t, err, ErrParse)

	three := writeFile(t, dir, "three.csv", "2015,1,2\n")
	_, err = ReadFDI(good, three, "a", "b")
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	text := writeFile(t, dir, "text.csv", "2015,lots\n")
	_, err = ReadFDI(text, good, "a", "b")
	assert.ErrorIs(t, err, ErrParse)

	_, err = ReadFDI(filepath.Join(dir, "missing.csv"), good, "a", "b")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
