// workbook.go
package report

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"USChinaFlights/src/processor"
	"USChinaFlights/src/utils"
)

// SaveWorkbook 把各聚合表写入同一个 xlsx，每张表一个工作表
func SaveWorkbook(path string, res *processor.Result) error {
	sheets := []utils.Sheet{
		{Name: "by_year", Data: res.ByYear},
		{Name: "by_year_month", Data: res.ByYearMonth},
		{Name: "by_month", Data: res.ByMonth},
		{Name: "top_routes", Data: res.TopRoutes},
		{Name: "passengers", Data: res.Passengers},
		{Name: "fdi", Data: res.FDI},
		{Name: "correlation", Data: correlationFrame(res.Correlations)},
	}
	if !res.Inspect.Empty() {
		sheets = append(sheets, utils.Sheet{Name: "missing_airports", Data: missingFrame(res.Inspect)})
	}
	return utils.SaveToExcel(path, sheets...)
}

func correlationFrame(table []processor.Correlation) dataframe.DataFrame {
	modes := make([]string, len(table))
	years := make([]int, len(table))
	values := make([]float64, len(table))
	for i, c := range table {
		modes[i], years[i], values[i] = c.Mode.String(), c.Years, c.Value
	}
	return dataframe.New(
		series.New(modes, series.String, "Series"),
		series.New(years, series.Int, "Years"),
		series.New(values, series.Float, "Coefficient"),
	)
}

func missingFrame(report *processor.InspectReport) dataframe.DataFrame {
	var endpoints, codes []string
	for _, c := range report.MissingForeign {
		endpoints = append(endpoints, "fg_apt")
		codes = append(codes, c)
	}
	for _, c := range report.MissingUS {
		endpoints = append(endpoints, "usg_apt")
		codes = append(codes, c)
	}
	return dataframe.New(
		series.New(endpoints, series.String, "Column"),
		series.New(codes, series.String, "Code"),
	)
}
