// aggregate.go
package processor

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"USChinaFlights/src/datasource/file"
)

// CountColumn 聚合结果中的计数列
const CountColumn = "Number of flights"

// PassengersColumn 按年汇总的旅客人数
const PassengersColumn = "Passengers"

// DefaultTopN TopRoutes 的默认条数
const DefaultTopN = 10

// MonthlySeries 某一年按月的航班数，用于逐年画线
type MonthlySeries struct {
	Year   int
	Months []int
	Counts []int
}

// FlightsByYear 按年份统计航班记录数，年份升序
func FlightsByYear(flights dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := requireColumns(flights, file.ColYear); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("flights by year: %w", err)
	}
	agg, err := countBy(flights, []string{file.ColYear}, "", CountColumn)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("flights by year: %w", err)
	}
	return arrange(agg, dataframe.Sort(file.ColYear))
}

// FlightsByYearMonth 在 [start, end] 年份范围内按(年, 月)统计，先按年再按月升序
func FlightsByYearMonth(flights dataframe.DataFrame, start, end int) (dataframe.DataFrame, error) {
	if err := requireColumns(flights, file.ColYear, file.ColMonth); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("flights by year and month: %w", err)
	}
	inRange := filterYears(flights, start, end)
	agg, err := countBy(inRange, []string{file.ColYear, file.ColMonth}, "", CountColumn)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("flights by year and month: %w", err)
	}
	return arrange(agg, dataframe.Sort(file.ColYear), dataframe.Sort(file.ColMonth))
}

// SplitByYear 把 FlightsByYearMonth 的结果拆成每年一条序列
func SplitByYear(agg dataframe.DataFrame) ([]MonthlySeries, error) {
	if err := requireColumns(agg, file.ColYear, file.ColMonth, CountColumn); err != nil {
		return nil, fmt.Errorf("split by year: %w", err)
	}
	years, err := agg.Col(file.ColYear).Int()
	if err != nil {
		return nil, fmt.Errorf("split by year: %w", err)
	}
	months, err := agg.Col(file.ColMonth).Int()
	if err != nil {
		return nil, fmt.Errorf("split by year: %w", err)
	}
	counts, err := agg.Col(CountColumn).Int()
	if err != nil {
		return nil, fmt.Errorf("split by year: %w", err)
	}

	var out []MonthlySeries
	pos := make(map[int]int)
	for i, y := range years {
		idx, ok := pos[y]
		if !ok {
			idx = len(out)
			pos[y] = idx
			out = append(out, MonthlySeries{Year: y})
		}
		out[idx].Months = append(out[idx].Months, months[i])
		out[idx].Counts = append(out[idx].Counts, counts[i])
	}
	return out, nil
}

// FlightsByMonth 季节性统计：先按(年, 月)计数，再把各年同月相加
// 按航班数降序，数量相同按月份升序
func FlightsByMonth(flights dataframe.DataFrame, start, end int) (dataframe.DataFrame, error) {
	monthly, err := FlightsByYearMonth(flights, start, end)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	agg, err := countBy(monthly, []string{file.ColMonth}, CountColumn, CountColumn)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("flights by month: %w", err)
	}
	return arrange(agg, dataframe.RevSort(CountColumn), dataframe.Sort(file.ColMonth))
}

// TopRoutes 航线(外方机场, 美方机场)按航班数降序的前 n 条
// 数量相同时保持航线在输入中首次出现的顺序，n <= 0 时取 DefaultTopN
func TopRoutes(enriched dataframe.DataFrame, n int) (dataframe.DataFrame, error) {
	if err := requireColumns(enriched, ColForeignName, ColUSName); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("top routes: %w", err)
	}
	if n <= 0 {
		n = DefaultTopN
	}
	agg, err := countBy(enriched, []string{ColForeignName, ColUSName}, "", CountColumn)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("top routes: %w", err)
	}
	sorted, err := arrange(agg, dataframe.RevSort(CountColumn))
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if sorted.Nrow() <= n {
		return sorted, nil
	}

	head := make([]int, n)
	for i := range head {
		head[i] = i
	}
	top := sorted.Subset(head)
	return top, top.Err
}

// PassengersByYear 按年份汇总 Total 列(旅客人数)
func PassengersByYear(flights dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := requireColumns(flights, file.ColYear, file.ColTotal); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("passengers by year: %w", err)
	}
	agg, err := countBy(flights, []string{file.ColYear}, file.ColTotal, PassengersColumn)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("passengers by year: %w", err)
	}
	return arrange(agg, dataframe.Sort(file.ColYear))
}

// filterYears 保留 start <= Year <= end 的行
func filterYears(df dataframe.DataFrame, start, end int) dataframe.DataFrame {
	return df.FilterAggregation(dataframe.And,
		dataframe.F{Colname: file.ColYear, Comparator: series.GreaterEq, Comparando: start},
		dataframe.F{Colname: file.ColYear, Comparator: series.LessEq, Comparando: end},
	)
}

// countBy 按 keys 分组，分组顺序为首次出现的顺序
// weight 为空时统计行数，否则对 weight 列求和(缺失值不计)
// gota 的 GroupBy 分组顺序不固定，且键值拼接可能冲突，这里自己做
func countBy(df dataframe.DataFrame, keys []string, weight, name string) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	keyCols := make([][]string, len(keys))
	for i, k := range keys {
		keyCols[i] = df.Col(k).Records()
	}
	var w series.Series
	if weight != "" {
		w = df.Col(weight)
		if w.Err != nil {
			return dataframe.DataFrame{}, w.Err
		}
	}

	groups := make(map[string]int)
	var first []int
	var totals []int
	parts := make([]string, len(keys))
	for row := 0; row < df.Nrow(); row++ {
		for i := range keys {
			parts[i] = keyCols[i][row]
		}
		key := strings.Join(parts, "\x1f")

		g, ok := groups[key]
		if !ok {
			g = len(first)
			groups[key] = g
			first = append(first, row)
			totals = append(totals, 0)
		}

		if weight == "" {
			totals[g]++
			continue
		}
		if v, err := w.Elem(row).Int(); err == nil {
			totals[g] += v
		}
	}

	if first == nil {
		first = []int{}
		totals = []int{}
	}
	out := df.Select(keys).Subset(first).Mutate(series.New(totals, series.Int, name))
	return out, out.Err
}

func arrange(df dataframe.DataFrame, order ...dataframe.Order) (dataframe.DataFrame, error) {
	if df.Nrow() < 2 {
		return df, df.Err
	}
	sorted := df.Arrange(order...)
	return sorted, sorted.Err
}
