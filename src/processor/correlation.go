// correlation.go
package processor

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"

	"USChinaFlights/src/datasource/file"
)

// CorrelationMode 选择参与相关性计算的两列
type CorrelationMode int

const (
	// FlightsVsUSToCN 年航班数 vs 美国对华投资
	FlightsVsUSToCN CorrelationMode = iota
	// FlightsVsCNToUS 年航班数 vs 中国对美投资
	FlightsVsCNToUS
	// FDIBetween 两个方向的投资之间，不看航班数
	FDIBetween
)

func (m CorrelationMode) String() string {
	switch m {
	case FlightsVsUSToCN:
		return "flights vs US to CN FDI"
	case FlightsVsCNToUS:
		return "flights vs CN to US FDI"
	case FDIBetween:
		return "CN to US FDI vs US to CN FDI"
	default:
		return fmt.Sprintf("CorrelationMode(%d)", int(m))
	}
}

// FDIColumns FDI 表中两个数值列的列名
type FDIColumns struct {
	CNToUS string
	USToCN string
}

// Correlation 一种模式的计算结果
type Correlation struct {
	Mode  CorrelationMode
	Years int
	Value float64
}

// Correlate 按年份内连接年航班数与 FDI 表后计算 Pearson 相关系数
// 重叠年份少于两个或任一序列方差为零时返回 NaN，不报错
func Correlate(yearly, fdi dataframe.DataFrame, mode CorrelationMode, cols FDIColumns) (float64, error) {
	c, err := correlate(yearly, fdi, mode, cols)
	return c.Value, err
}

// CorrelationTable 依次计算三种模式
func CorrelationTable(yearly, fdi dataframe.DataFrame, cols FDIColumns) ([]Correlation, error) {
	modes := []CorrelationMode{FlightsVsUSToCN, FlightsVsCNToUS, FDIBetween}
	table := make([]Correlation, 0, len(modes))
	for _, m := range modes {
		c, err := correlate(yearly, fdi, m, cols)
		if err != nil {
			return nil, err
		}
		table = append(table, c)
	}
	return table, nil
}

func correlate(yearly, fdi dataframe.DataFrame, mode CorrelationMode, cols FDIColumns) (Correlation, error) {
	result := Correlation{Mode: mode, Value: math.NaN()}

	if err := requireColumns(yearly, file.ColYear, CountColumn); err != nil {
		return result, fmt.Errorf("correlate: yearly flights: %w", err)
	}
	if err := requireColumns(fdi, file.ColFDIYear, cols.CNToUS, cols.USToCN); err != nil {
		return result, fmt.Errorf("correlate: FDI: %w", err)
	}

	var xCol, yCol string
	switch mode {
	case FlightsVsUSToCN:
		xCol, yCol = CountColumn, cols.USToCN
	case FlightsVsCNToUS:
		xCol, yCol = CountColumn, cols.CNToUS
	case FDIBetween:
		xCol, yCol = cols.CNToUS, cols.USToCN
	default:
		return result, fmt.Errorf("correlate: unknown mode %d", int(mode))
	}

	joined := yearly.InnerJoin(fdi, file.ColYear)
	if joined.Err != nil {
		return result, fmt.Errorf("correlate: %w", joined.Err)
	}
	result.Years = joined.Nrow()
	result.Value = pearson(joined.Col(xCol).Float(), joined.Col(yCol).Float())
	return result, nil
}

// pearson 样本不足或方差为零时返回 NaN
func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	if constant(x) || constant(y) {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	// 浮点误差可能略微越界
	return math.Max(-1, math.Min(1, r))
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
