// airports.go
package processor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"USChinaFlights/src/datasource/file"
	"USChinaFlights/src/utils"
)

// ErrMissingColumn 输入表缺少必需的列
var ErrMissingColumn = errors.New("missing column")

// ReferenceCountries 机场参考集保留的国家
var ReferenceCountries = []string{"US", "CN"}

func requireColumns(df dataframe.DataFrame, names ...string) error {
	if df.Err != nil {
		return df.Err
	}
	if missing := utils.MissingColumns(df, names...); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// FilterUSChinaAirports 保留 IATA 代码非空且国家为 US/CN 的机场
// 结果只有 name、iata_code、iso_country 三列，保持输入顺序
func FilterUSChinaAirports(airports dataframe.DataFrame) (dataframe.DataFrame, error) {
	cols := []string{file.ColAirportName, file.ColIATA, file.ColCountry}
	if err := requireColumns(airports, cols...); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("filter airports: %w", err)
	}

	filtered := airports.Filter(
		dataframe.F{
			Colname:    file.ColIATA,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				return !isBlank(el)
			},
		},
	).Filter(
		dataframe.F{Colname: file.ColCountry, Comparator: series.In, Comparando: ReferenceCountries},
	).Select(cols)

	if filtered.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("filter airports: %w", filtered.Err)
	}
	return filtered, nil
}

func isBlank(el series.Element) bool {
	return el.IsNA() || strings.TrimSpace(el.String()) == ""
}
