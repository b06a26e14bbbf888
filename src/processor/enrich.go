// enrich.go
package processor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"USChinaFlights/src/datasource/file"
	"USChinaFlights/src/storage"
)

// 补充机场名称后新增的两列
const (
	ColForeignName = "fg_apt_name"
	ColUSName      = "usg_apt_name"
)

// ErrMalformedAirport 手工补充的机场记录不完整
var ErrMalformedAirport = errors.New("malformed airport record")

// Airport 手工补充到参考集的机场
type Airport struct {
	Name    string
	IATA    string
	Country string
}

type EnrichOptions struct {
	// Inspect 为 true 时返回参考集中缺失的机场代码
	Inspect bool
	// Extra 在匹配前追加到参考集，参考集中已有的代码优先
	Extra []Airport
}

// InspectReport 航班中出现但参考集(补充前)里没有的机场代码
type InspectReport struct {
	MissingForeign []string
	MissingUS      []string
	ForeignRows    dataframe.DataFrame
	USRows         dataframe.DataFrame
}

// Empty 两端都没有缺失代码
func (r *InspectReport) Empty() bool {
	return r == nil || (len(r.MissingForeign) == 0 && len(r.MissingUS) == 0)
}

// AddAirportNames 为航班两端的机场附加名称(fg_apt_name、usg_apt_name)
// 只保留两端代码都能在参考集(含补充记录)中找到的航班，其余行直接丢弃，不报错
// 需要完整性时先打开 Inspect 查看缺失代码，再通过 Extra 补充
func AddAirportNames(flights, airports dataframe.DataFrame, opts EnrichOptions, logger *storage.Logger) (dataframe.DataFrame, *InspectReport, error) {
	logger = orNop(logger)

	if err := requireColumns(flights, file.ColFgAirport, file.ColUSAirport); err != nil {
		return dataframe.DataFrame{}, nil, fmt.Errorf("add airport names: %w", err)
	}
	if err := requireColumns(airports, file.ColAirportName, file.ColIATA); err != nil {
		return dataframe.DataFrame{}, nil, fmt.Errorf("add airport names: %w", err)
	}
	for i, a := range opts.Extra {
		if strings.TrimSpace(a.IATA) == "" || strings.TrimSpace(a.Name) == "" {
			return dataframe.DataFrame{}, nil, fmt.Errorf("add airport names: %w: extra airport %d (%q, %q)", ErrMalformedAirport, i, a.Name, a.IATA)
		}
	}

	names := nameIndex(airports)

	var report *InspectReport
	if opts.Inspect {
		report = inspectMissing(flights, names)
		if len(report.MissingForeign) > 0 {
			logger.Warning("foreign airport codes missing from reference", "codes", report.MissingForeign, "rows", report.ForeignRows.Nrow())
		}
		if len(report.MissingUS) > 0 {
			logger.Warning("US airport codes missing from reference", "codes", report.MissingUS, "rows", report.USRows.Nrow())
		}
	}

	for _, a := range opts.Extra {
		code := strings.TrimSpace(a.IATA)
		if existing, ok := names[code]; ok {
			logger.Debug("extra airport already in reference", "iata", code, "name", existing)
			continue
		}
		names[code] = a.Name
	}

	fgCodes := flights.Col(file.ColFgAirport).Records()
	usCodes := flights.Col(file.ColUSAirport).Records()

	keep := make([]int, 0, len(fgCodes))
	fgNames := make([]string, 0, len(fgCodes))
	usNames := make([]string, 0, len(fgCodes))
	var droppedFg, droppedUS int
	for i := range fgCodes {
		fg, okFg := names[fgCodes[i]]
		us, okUS := names[usCodes[i]]
		if !okFg {
			droppedFg++
		}
		if !okUS {
			droppedUS++
		}
		if !okFg || !okUS {
			continue
		}
		keep = append(keep, i)
		fgNames = append(fgNames, fg)
		usNames = append(usNames, us)
	}

	enriched := flights.Subset(keep).
		Mutate(series.New(fgNames, series.String, ColForeignName)).
		Mutate(series.New(usNames, series.String, ColUSName))
	if enriched.Err != nil {
		return dataframe.DataFrame{}, report, fmt.Errorf("add airport names: %w", enriched.Err)
	}

	logger.Debug("airport names attached",
		"rows", enriched.Nrow(),
		"unmatched_foreign", droppedFg,
		"unmatched_us", droppedUS,
	)
	return enriched, report, nil
}

// nameIndex IATA 代码到机场名称的映射，重复代码以第一次出现为准
func nameIndex(airports dataframe.DataFrame) map[string]string {
	codes := airports.Col(file.ColIATA)
	names := airports.Col(file.ColAirportName).Records()

	index := make(map[string]string, codes.Len())
	for i := 0; i < codes.Len(); i++ {
		el := codes.Elem(i)
		if isBlank(el) {
			continue
		}
		if _, ok := index[el.String()]; !ok {
			index[el.String()] = names[i]
		}
	}
	return index
}

func inspectMissing(flights dataframe.DataFrame, names map[string]string) *InspectReport {
	report := &InspectReport{}
	report.MissingForeign, report.ForeignRows = missingCodes(flights, file.ColFgAirport, names)
	report.MissingUS, report.USRows = missingCodes(flights, file.ColUSAirport, names)
	return report
}

func missingCodes(flights dataframe.DataFrame, col string, names map[string]string) ([]string, dataframe.DataFrame) {
	missing := make(map[string]struct{})
	for _, code := range flights.Col(col).Records() {
		if _, ok := names[code]; !ok {
			missing[code] = struct{}{}
		}
	}

	codes := make([]string, 0, len(missing))
	for code := range missing {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := flights.Filter(
		dataframe.F{
			Colname:    col,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				_, ok := missing[el.String()]
				return ok
			},
		},
	)
	return codes, rows
}

func orNop(logger *storage.Logger) *storage.Logger {
	if logger == nil {
		return storage.NewNopLogger()
	}
	return logger
}
