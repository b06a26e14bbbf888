// flights.go
package processor

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"USChinaFlights/src/datasource/file"
)

// FilterFlightsWithChina 只保留外方机场出现在机场参考集中的航班(半连接)
func FilterFlightsWithChina(flights, airports dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := requireColumns(flights, file.ColFgAirport); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("filter flights: %w", err)
	}
	if err := requireColumns(airports, file.ColIATA); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("filter flights: %w", err)
	}

	codes := codeSet(airports.Col(file.ColIATA))
	filtered := flights.Filter(
		dataframe.F{
			Colname:    file.ColFgAirport,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				_, ok := codes[el.String()]
				return ok
			},
		},
	)
	if filtered.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("filter flights: %w", filtered.Err)
	}
	return filtered, nil
}

// codeSet 去重后的非空代码集合
func codeSet(s series.Series) map[string]struct{} {
	set := make(map[string]struct{}, s.Len())
	for i := 0; i < s.Len(); i++ {
		el := s.Elem(i)
		if isBlank(el) {
			continue
		}
		set[el.String()] = struct{}{}
	}
	return set
}
