// tables.go
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"USChinaFlights/src/datasource/file"
	"USChinaFlights/src/processor"
)

var printer = message.NewPrinter(language.English)

// 年份、月份与各类代码不加千分位
var plainColumns = map[string]bool{
	file.ColYear:         true,
	file.ColMonth:        true,
	file.ColUSAirportID:  true,
	file.ColUSWAC:        true,
	file.ColFgAirportID:  true,
	file.ColFgWAC:        true,
	file.ColAirlineID:    true,
	file.ColCarrierGroup: true,
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

// WriteFrame 以表格形式输出 DataFrame，整数列加千分位并右对齐
func WriteFrame(w io.Writer, title string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return df.Err
	}
	if title != "" {
		if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
			return err
		}
	}

	names := df.Names()
	types := df.Types()
	table := newTable(w, names)

	align := make([]int, len(names))
	for i, t := range types {
		if t == series.Int || t == series.Float {
			align[i] = tablewriter.ALIGN_RIGHT
		} else {
			align[i] = tablewriter.ALIGN_LEFT
		}
	}
	table.SetColumnAlignment(align)

	for row := 0; row < df.Nrow(); row++ {
		cells := make([]string, len(names))
		for col := range names {
			el := df.Elem(row, col)
			if plainColumns[names[col]] && !el.IsNA() {
				cells[col] = el.String()
				continue
			}
			cells[col] = formatElem(el)
		}
		table.Append(cells)
	}
	table.Render()
	return nil
}

func formatElem(el series.Element) string {
	if el.IsNA() {
		return ""
	}
	switch el.Type() {
	case series.Int:
		v, err := el.Int()
		if err != nil {
			return el.String()
		}
		return printer.Sprintf("%d", v)
	case series.Float:
		return printer.Sprintf("%.2f", el.Float())
	default:
		return el.String()
	}
}

// WriteMonthRanking 各月份航班数排名(季节性)
func WriteMonthRanking(w io.Writer, byMonth dataframe.DataFrame, start, end int) error {
	return WriteFrame(w, fmt.Sprintf("Total number of flights by month (%d-%d)", start, end), byMonth)
}

// WriteTopRoutes 最繁忙航线
func WriteTopRoutes(w io.Writer, routes dataframe.DataFrame) error {
	return WriteFrame(w, fmt.Sprintf("Top %d routes between US and China", routes.Nrow()), routes)
}

// WriteYearly 按年航班数，附带旅客人数
func WriteYearly(w io.Writer, byYear, passengers dataframe.DataFrame) error {
	merged := byYear
	if passengers.Nrow() > 0 {
		merged = byYear.InnerJoin(passengers, byYear.Names()[0])
	}
	return WriteFrame(w, "Flights by year", merged)
}

// WriteCorrelations 相关系数汇总，NaN 显示为 n/a
func WriteCorrelations(w io.Writer, table []processor.Correlation, selected processor.CorrelationMode) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", "Pearson correlation"); err != nil {
		return err
	}
	t := newTable(w, []string{"Series", "Years", "Coefficient", ""})
	t.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_CENTER})
	for _, c := range table {
		mark := ""
		if c.Mode == selected {
			mark = "*"
		}
		t.Append([]string{c.Mode.String(), fmt.Sprint(c.Years), formatCoefficient(c.Value), mark})
	}
	t.Render()
	return nil
}

func formatCoefficient(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

// WriteInspect 参考集中缺失的机场代码及对应航班数
func WriteInspect(w io.Writer, report *processor.InspectReport) error {
	if report.Empty() {
		_, err := fmt.Fprintln(w, "All airport codes resolved.")
		return err
	}
	sections := []struct {
		label string
		codes []string
		rows  dataframe.DataFrame
	}{
		{"Missing 'fg_apt' values", report.MissingForeign, report.ForeignRows},
		{"Missing 'usg_apt' values", report.MissingUS, report.USRows},
	}
	for _, s := range sections {
		if len(s.codes) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n%s: %s (%s rows)\n", s.label, strings.Join(s.codes, ", "), printer.Sprintf("%d", s.rows.Nrow())); err != nil {
			return err
		}
		if err := WriteFrame(w, "", s.rows); err != nil {
			return err
		}
	}
	return nil
}
