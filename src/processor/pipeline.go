// pipeline.go
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"

	"USChinaFlights/src/config"
	"USChinaFlights/src/datasource/file"
	"USChinaFlights/src/datasource/remote"
	"USChinaFlights/src/storage"
)

// Pipeline 按配置执行一次完整分析
type Pipeline struct {
	cfg     *config.Config
	fetcher remote.Fetcher
	logger  *storage.Logger
}

// Result 一次分析的全部中间表与结果
type Result struct {
	Flights      dataframe.DataFrame // 原始航班表
	Airports     dataframe.DataFrame // 中美机场参考集
	FDI          dataframe.DataFrame
	ChinaFlights dataframe.DataFrame // 外方机场在参考集内的航班
	Enriched     dataframe.DataFrame
	Inspect      *InspectReport

	ByYear        dataframe.DataFrame
	ByYearMonth   dataframe.DataFrame
	MonthlySeries []MonthlySeries
	ByMonth       dataframe.DataFrame
	TopRoutes     dataframe.DataFrame
	Passengers    dataframe.DataFrame

	Correlations []Correlation
	// Correlation 配置选定方向(us_to_cn)的系数
	Correlation float64
	Elapsed     time.Duration
}

func NewPipeline(cfg *config.Config, fetcher remote.Fetcher, logger *storage.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  orNop(logger),
	}
}

// ModeFor 根据配置的方向选择航班与 FDI 的相关模式
func ModeFor(usToCN bool) CorrelationMode {
	if usToCN {
		return FlightsVsUSToCN
	}
	return FlightsVsCNToUS
}

// ExtraAirports 配置中的补充机场
func ExtraAirports(cfg *config.Config) []Airport {
	extra := make([]Airport, 0, len(cfg.Analysis.ExtraAirports))
	for _, a := range cfg.Analysis.ExtraAirports {
		extra = append(extra, Airport{Name: a.Name, IATA: a.IATA, Country: a.Country})
	}
	return extra
}

func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.cfg == nil {
		return nil, errors.New("pipeline: nil config")
	}
	begin := time.Now()
	src := p.cfg.Source
	analysis := p.cfg.Analysis
	res := &Result{}

	var err error
	res.Flights, err = file.LoadFlights(ctx, src.FlightsCache, src.FlightsURL, p.fetcher, p.logger)
	if err != nil {
		return nil, fmt.Errorf("load flights: %w", err)
	}

	allAirports, err := file.ReadAirports(src.AirportsFile)
	if err != nil {
		return nil, fmt.Errorf("load airports: %w", err)
	}
	res.Airports, err = FilterUSChinaAirports(allAirports)
	if err != nil {
		return nil, err
	}
	p.logger.Info("airport reference ready", "total", allAirports.Nrow(), "us_cn", res.Airports.Nrow())

	res.FDI, err = file.ReadFDI(src.FDICNToUS, src.FDIUSToCN, p.cfg.Columns.CNToUS, p.cfg.Columns.USToCN)
	if err != nil {
		return nil, fmt.Errorf("load FDI: %w", err)
	}

	res.ChinaFlights, err = FilterFlightsWithChina(res.Flights, res.Airports)
	if err != nil {
		return nil, err
	}
	p.logger.Info("flights filtered", "input", res.Flights.Nrow(), "kept", res.ChinaFlights.Nrow())

	res.Enriched, res.Inspect, err = AddAirportNames(res.ChinaFlights, res.Airports, EnrichOptions{
		Inspect: analysis.Inspect,
		Extra:   ExtraAirports(p.cfg),
	}, p.logger)
	if err != nil {
		return nil, err
	}

	if res.ByYear, err = FlightsByYear(res.ChinaFlights); err != nil {
		return nil, err
	}
	if res.ByYearMonth, err = FlightsByYearMonth(res.ChinaFlights, analysis.StartYear, analysis.EndYear); err != nil {
		return nil, err
	}
	if res.MonthlySeries, err = SplitByYear(res.ByYearMonth); err != nil {
		return nil, err
	}
	if res.ByMonth, err = FlightsByMonth(res.ChinaFlights, analysis.StartYear, analysis.EndYear); err != nil {
		return nil, err
	}
	if res.TopRoutes, err = TopRoutes(res.Enriched, analysis.TopN); err != nil {
		return nil, err
	}
	if res.Passengers, err = PassengersByYear(res.ChinaFlights); err != nil {
		return nil, err
	}

	cols := FDIColumns{CNToUS: p.cfg.Columns.CNToUS, USToCN: p.cfg.Columns.USToCN}
	if res.Correlations, err = CorrelationTable(res.ByYear, res.FDI, cols); err != nil {
		return nil, err
	}
	mode := ModeFor(analysis.USToCN)
	for _, c := range res.Correlations {
		if c.Mode == mode {
			res.Correlation = c.Value
		}
	}

	res.Elapsed = time.Since(begin)
	p.logger.Info("analysis finished",
		"enriched", res.Enriched.Nrow(),
		"years", res.ByYear.Nrow(),
		"correlation", res.Correlation,
		"mode", mode.String(),
		"elapsed", res.Elapsed.String(),
	)
	return res, nil
}
