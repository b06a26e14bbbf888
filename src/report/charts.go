// charts.go
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/jung-kurt/gofpdf"

	"USChinaFlights/src/datasource/file"
	"USChinaFlights/src/processor"
)

// LineSeries 折线图中的一条线
type LineSeries struct {
	Label string
	X, Y  []float64
}

var palette = [][3]int{
	{31, 119, 180}, {255, 127, 14}, {44, 160, 44}, {214, 39, 40}, {148, 103, 189},
	{140, 86, 75}, {227, 119, 194}, {127, 127, 127}, {188, 189, 34}, {23, 190, 207},
}

// grid 把数据坐标(x, y)映射到页面坐标(u, v)，原点在左下
type grid struct {
	*gofpdf.Fpdf

	OffsetU, OffsetV       float64 // 绘图区左上角，mm
	W, H                   float64
	MinX, MaxX, MinY, MaxY float64
}

func (g grid) U(x float64) float64 {
	if g.MaxX == g.MinX {
		return g.OffsetU + g.W/2
	}
	return g.OffsetU + (x-g.MinX)/(g.MaxX-g.MinX)*g.W
}

func (g grid) V(y float64) float64 {
	return g.OffsetV + g.H - (y-g.MinY)/(g.MaxY-g.MinY)*g.H
}

// drawAxes 画坐标框、网格线与刻度
func (g grid) drawAxes(xTicks []float64, xFmt, yFmt string) {
	g.SetFont("Arial", "", 8)
	g.SetTextColor(0, 0, 0)

	g.SetLineWidth(0.1)
	g.SetDrawColor(0xe0, 0xe0, 0xe0)
	const yDivisions = 5
	step := (g.MaxY - g.MinY) / yDivisions
	for i := 0; i <= yDivisions; i++ {
		y := g.MinY + float64(i)*step
		g.Line(g.OffsetU, g.V(y), g.OffsetU+g.W, g.V(y))
		label := printer.Sprintf(yFmt, y)
		g.Text(g.OffsetU-g.GetStringWidth(label)-1.5, g.V(y)+1, label)
	}

	// 刻度太密时隔几个标一次
	every := 1
	if len(xTicks) > 25 {
		every = (len(xTicks) + 24) / 25
	}
	for i, x := range xTicks {
		g.Line(g.U(x), g.OffsetV, g.U(x), g.OffsetV+g.H)
		if i%every != 0 {
			continue
		}
		label := fmt.Sprintf(xFmt, x)
		g.Text(g.U(x)-g.GetStringWidth(label)/2, g.OffsetV+g.H+4, label)
	}

	g.SetDrawColor(0, 0, 0)
	g.SetLineWidth(0.2)
	g.Rect(g.OffsetU, g.OffsetV, g.W, g.H, "D")
}

func (g grid) polyline(s LineSeries, color [3]int) {
	if len(s.X) == 0 {
		return
	}
	g.SetDrawColor(color[0], color[1], color[2])
	g.SetLineWidth(0.4)
	g.MoveTo(g.U(s.X[0]), g.V(s.Y[0]))
	for i := 1; i < len(s.X); i++ {
		g.LineTo(g.U(s.X[i]), g.V(s.Y[i]))
	}
	g.DrawPath("D")
	if len(s.X) == 1 {
		g.SetFillColor(color[0], color[1], color[2])
		g.Circle(g.U(s.X[0]), g.V(s.Y[0]), 0.8, "F")
	}
}

// Charts 一个多页 PDF，每页一张图
type Charts struct {
	pdf *gofpdf.Fpdf
}

func NewCharts() *Charts {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("US-China flights and FDI", false)
	pdf.SetMargins(15, 15, 15)
	return &Charts{pdf: pdf}
}

// page 新建一页并返回绘图区
func (c *Charts) page(title, xLabel, yLabel string) grid {
	pdf := c.pdf
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text((pageW-pdf.GetStringWidth(title))/2, 18, title)

	g := grid{Fpdf: pdf, OffsetU: 35, OffsetV: 28, W: pageW - 35 - 55, H: pageH - 28 - 30}

	pdf.SetFont("Arial", "", 10)
	pdf.Text(g.OffsetU+(g.W-pdf.GetStringWidth(xLabel))/2, g.OffsetV+g.H+12, xLabel)
	pdf.TransformBegin()
	pdf.TransformRotate(90, 14, g.OffsetV+(g.H+pdf.GetStringWidth(yLabel))/2)
	pdf.Text(14, g.OffsetV+(g.H+pdf.GetStringWidth(yLabel))/2, yLabel)
	pdf.TransformEnd()
	return g
}

func (c *Charts) noData(g grid) {
	g.SetFont("Arial", "I", 12)
	msg := "no data"
	g.Text(g.OffsetU+(g.W-g.GetStringWidth(msg))/2, g.OffsetV+g.H/2, msg)
}

// LineChart 一页折线图，图例在右侧
func (c *Charts) LineChart(title, xLabel, yLabel string, lines ...LineSeries) {
	g := c.page(title, xLabel, yLabel)

	var xs, ys []float64
	for _, l := range lines {
		xs = append(xs, l.X...)
		ys = append(ys, l.Y...)
	}
	if len(xs) == 0 {
		c.noData(g)
		return
	}
	g.MinX, g.MaxX = bounds(xs)
	g.MinY, g.MaxY = yRange(ys)
	yFmt := "%.0f"
	if g.MaxY-g.MinY < 10 {
		yFmt = "%.1f"
	}
	g.drawAxes(distinct(xs), "%.0f", yFmt)

	for i, l := range lines {
		color := palette[i%len(palette)]
		g.polyline(l, color)
		c.legend(g, i, l.Label, color)
	}
}

// BarChart 一页柱状图
func (c *Charts) BarChart(title, xLabel, yLabel string, x, y []float64) {
	g := c.page(title, xLabel, yLabel)
	if len(x) == 0 {
		c.noData(g)
		return
	}
	lo, hi := bounds(x)
	g.MinX, g.MaxX = lo-0.5, hi+0.5
	g.MinY, g.MaxY = yRange(y)
	g.drawAxes(distinct(x), "%.0f", "%.0f")

	width := g.W / (g.MaxX - g.MinX) * 0.8
	color := palette[0]
	g.SetFillColor(color[0], color[1], color[2])
	for i := range x {
		top := g.V(math.Max(y[i], g.MinY))
		g.Rect(g.U(x[i])-width/2, top, width, g.V(g.MinY)-top, "F")
	}
}

func (c *Charts) legend(g grid, i int, label string, color [3]int) {
	u := g.OffsetU + g.W + 5
	v := g.OffsetV + 4 + float64(i)*5
	g.SetDrawColor(color[0], color[1], color[2])
	g.SetLineWidth(0.8)
	g.Line(u, v-1, u+6, v-1)
	g.SetFont("Arial", "", 8)
	g.SetTextColor(0, 0, 0)
	g.Text(u+8, v, label)
}

// Write 输出 PDF
func (c *Charts) Write(w io.Writer) error {
	return c.pdf.Output(w)
}

// Save 写入文件，必要时创建目录
func (c *Charts) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	return c.pdf.OutputFileAndClose(path)
}

// RenderCharts 为一次分析结果生成全部图表
func RenderCharts(res *processor.Result, cols processor.FDIColumns, start, end int) (*Charts, error) {
	c := NewCharts()

	years, err := floats(res.ByYear, file.ColYear)
	if err != nil {
		return nil, err
	}
	counts, err := floats(res.ByYear, processor.CountColumn)
	if err != nil {
		return nil, err
	}
	c.LineChart("Total number of flights by year", "Year", "Number of flights",
		LineSeries{Label: "flights", X: years, Y: counts})

	fdiYears, err := floats(res.FDI, file.ColFDIYear)
	if err != nil {
		return nil, err
	}
	cnToUS, err := floats(res.FDI, cols.CNToUS)
	if err != nil {
		return nil, err
	}
	usToCN, err := floats(res.FDI, cols.USToCN)
	if err != nil {
		return nil, err
	}
	c.LineChart("FDI Flows: China to US vs. US to China", "Year", "Value in billion U.S. dollars",
		LineSeries{Label: cols.CNToUS, X: fdiYears, Y: cnToUS},
		LineSeries{Label: cols.USToCN, X: fdiYears, Y: usToCN},
	)

	monthly := make([]LineSeries, 0, len(res.MonthlySeries))
	for _, m := range res.MonthlySeries {
		monthly = append(monthly, LineSeries{Label: fmt.Sprint(m.Year), X: intsToFloats(m.Months), Y: intsToFloats(m.Counts)})
	}
	c.LineChart(fmt.Sprintf("Total number of flights by year (%d-%d)", start, end), "Month", "Total number of flights", monthly...)

	months, err := floats(res.ByMonth, file.ColMonth)
	if err != nil {
		return nil, err
	}
	monthCounts, err := floats(res.ByMonth, processor.CountColumn)
	if err != nil {
		return nil, err
	}
	c.BarChart("Total number of flights by month", "Month", "Number of flights", months, monthCounts)

	if c.pdf.Err() {
		return nil, c.pdf.Error()
	}
	return c, nil
}

func floats(df dataframe.DataFrame, col string) ([]float64, error) {
	s := df.Col(col)
	if s.Err != nil {
		return nil, fmt.Errorf("chart column %q: %w", col, s.Err)
	}
	return s.Float(), nil
}

func intsToFloats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func bounds(v []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	return lo, hi
}

// yRange 非负数据从0开始，上方留10%
func yRange(v []float64) (float64, float64) {
	lo, hi := bounds(v)
	if lo >= 0 {
		lo = 0
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi + (hi-lo)*0.1
}

func distinct(v []float64) []float64 {
	seen := make(map[float64]struct{}, len(v))
	var out []float64
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	return out
}
