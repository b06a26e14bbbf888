package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flightsCSV = "data_dte,Year,Month,usg_apt_id,usg_apt,usg_wac,fg_apt_id,fg_apt,fg_wac,airlineid,carrier,carriergroup,type,Scheduled,Charter,Total\n" +
	"05/01/2015,2015,5,12478,JFK,22,11111,PEK,687,19805,AA,1,Passengers,200,0,200\n" +
	"06/01/2016,2016,6,12892,LAX,91,22222,PVG,687,19977,UA,1,Passengers,150,10,160\n" +
	"06/01/2016,2016,6,12892,LAX,91,22222,PVG,687,19977,UA,1,Passengers,150,10,160\n" +
	"07/01/2016,2016,7,13930,ORD,41,33333,LHR,493,19977,UA,1,Passengers,300,0,300\n" +
	"12/01/2016,2016,12,14444,GUM,5,11111,PEK,687,19977,UA,1,Passengers,20,0,20\n"

const airportsCSV = "ident,type,name,iso_country,iata_code\n" +
	"ZBAA,large_airport,Beijing Capital,CN,PEK\n" +
	"ZSPD,large_airport,Shanghai Pudong,CN,PVG\n" +
	"KJFK,large_airport,John F Kennedy,US,JFK\n" +
	"KLAX,large_airport,Los Angeles,US,LAX\n" +
	"EGLL,large_airport,London Heathrow,GB,LHR\n"

type failFetcher struct{}

func (failFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return nil, errors.New("network disabled in tests")
}

// writeInputs 在临时目录写入全部输入文件和配置，返回配置路径与输出目录
func writeInputs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}
	flights := write("flights.csv", flightsCSV)
	airports := write("airports.csv", airportsCSV)
	cn := write("cn.csv", "2015,15\n2016,46\n")
	us := write("us.csv", "2015,75\n2016,92\n")
	out := filepath.Join(dir, "out")

	cfg := `{
  "source": {
    "flights_url": "http://unused",
    "flights_cache": "` + flights + `",
    "airports_file": "` + airports + `",
    "fdi_cn_to_us": "` + cn + `",
    "fdi_us_to_cn": "` + us + `"
  },
  "analysis": {"start_year": 2015, "end_year": 2016, "top_n": 5, "us_to_cn": true},
  "output_dir": "` + out + `",
  "log_name": ""
}`
	return write("config.json", cfg), out
}

func execute(t *testing.T, args ...string) (*app, string, error) {
	t.Helper()
	var buf bytes.Buffer
	a := &app{out: &buf, fetcher: failFetcher{}}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(&buf)
	root.SetErr(&buf)
	err := root.ExecuteContext(context.Background())
	return a, buf.String(), err
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd(&app{})
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"analyze", "inspect", "watch"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
}

func TestAnalyzeCommand(t *testing.T) {
	cfgPath, out := writeInputs(t)

	a, stdout, err := execute(t, "analyze", "--config", cfgPath, "--no-mail")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Flights by year")
	assert.Contains(t, stdout, "Total number of flights by month (2015-2016)")
	assert.Contains(t, stdout, "Shanghai Pudong")
	assert.Contains(t, stdout, "Pearson correlation")
	assert.FileExists(t, filepath.Join(out, chartsFile))
	assert.FileExists(t, filepath.Join(out, workbookFile))
	assert.True(t, a.cfg.Analysis.USToCN)
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	cfgPath, _ := writeInputs(t)
	out := filepath.Join(t.TempDir(), "elsewhere")

	a, _, err := execute(t, "analyze", "-c", cfgPath, "--cn-to-us", "--top", "1", "-o", out)
	require.NoError(t, err)

	assert.False(t, a.cfg.Analysis.USToCN)
	assert.Equal(t, 1, a.cfg.Analysis.TopN)
	assert.FileExists(t, filepath.Join(out, chartsFile))
}

func TestAnalyzeCommand_InvalidYears(t *testing.T) {
	cfgPath, _ := writeInputs(t)
	_, _, err := execute(t, "analyze", "-c", cfgPath, "--start-year", "2020", "--end-year", "2010")
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	cfgPath, _ := writeInputs(t)

	_, stdout, err := execute(t, "inspect", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Missing 'usg_apt' values: GUM")
	assert.NotContains(t, stdout, "Missing 'fg_apt'")
}

func TestAnalyzeCommand_MissingInput(t *testing.T) {
	cfgPath, _ := writeInputs(t)
	a := &app{out: &bytes.Buffer{}, fetcher: failFetcher{}}
	require.NoError(t, a.init(cfgPath, false))
	a.cfg.Source.AirportsFile = filepath.Join(t.TempDir(), "missing.csv")

	_, err := a.analyze(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
