package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// ColFDIYear FDI 表的连接键
const ColFDIYear = "Year"

// ReadFDI 读取两份单指标年度序列并按年份内连接
// file1 -> col1(中国对美)，file2 -> col2(美国对华)
func ReadFDI(file1, file2, col1, col2 string) (dataframe.DataFrame, error) {
	df1, err := ReadYearlySeries(file1, col1)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	df2, err := ReadYearlySeries(file2, col2)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	combined := df1.InnerJoin(df2, ColFDIYear)
	if combined.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("join FDI series: %w", combined.Err)
	}
	if combined.Nrow() > 1 {
		combined = combined.Arrange(dataframe.Sort(ColFDIYear))
	}
	return combined, combined.Err
}

// ReadYearlySeries 读取无表头的两列文件(年份, 数值)
// 支持 .csv 与 .xlsx(第一个工作表)
func ReadYearlySeries(path, valueCol string) (dataframe.DataFrame, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSXRecords(path)
	default:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("open FDI file: %w", err)
		}
		defer f.Close()
		records, err = readCSV(f)
	}
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("FDI file %s: %w", path, err)
	}

	years := make([]int, 0, len(records))
	values := make([]float64, 0, len(records))
	seen := make(map[int]int, len(records))
	for i, rec := range records {
		line := i + 1
		if len(rec) != 2 {
			return dataframe.DataFrame{}, fmt.Errorf("FDI file %s: %w: line %d has %d columns, want 2", path, ErrSchemaMismatch, line, len(rec))
		}
		year, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("FDI file %s: %w: line %d: year %q", path, ErrParse, line, rec[0])
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("FDI file %s: %w: line %d: value %q", path, ErrParse, line, rec[1])
		}
		if prev, dup := seen[year]; dup {
			return dataframe.DataFrame{}, fmt.Errorf("FDI file %s: %w: year %d repeated on lines %d and %d", path, ErrParse, year, prev, line)
		}
		seen[year] = line
		years = append(years, year)
		values = append(values, value)
	}

	return dataframe.New(
		series.New(years, series.Int, ColFDIYear),
		series.New(values, series.Float, valueCol),
	), nil
}

// readXLSXRecords 读取第一个工作表，跳过空行并去掉行尾空单元格
func readXLSXRecords(path string) ([][]string, error) {
	xl, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx open file false: %w", err)
	}
	defer xl.Close()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: excel文件中没有工作表", ErrSchemaMismatch)
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var records [][]string
	for _, row := range rows {
		for len(row) > 0 && strings.TrimSpace(row[len(row)-1]) == "" {
			row = row[:len(row)-1]
		}
		if len(row) == 0 {
			continue
		}
		records = append(records, row)
	}
	return records, nil
}
