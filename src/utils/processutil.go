package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

// DateLayout 统一的日期输出格式
const DateLayout = "2006-01-02"

// 可接受的日期输入格式
var dateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006 03:04:05 PM",
}

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// HasColumn 判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// MissingColumns 返回 df 中不存在的列名
func MissingColumns(df dataframe.DataFrame, names ...string) []string {
	var missing []string
	for _, n := range names {
		if !HasColumn(df, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// ParseDate 按 dateLayouts 依次尝试解析日期
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期 %q", s)
}

// Sheet 工作簿中的一个工作表
type Sheet struct {
	Name string
	Data dataframe.DataFrame
}

// SaveToExcel 将多个DataFrame写入同一个xlsx文件，每个一个工作表
func SaveToExcel(filePath string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("没有可写入的工作表")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			// 新建文件自带 Sheet1
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return fmt.Errorf("创建工作表 %s 失败: %w", sh.Name, err)
		}
		if err := writeSheet(f, sh); err != nil {
			return err
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh Sheet) error {
	df := sh.Data
	if df.Err != nil {
		return fmt.Errorf("工作表 %s 数据错误: %w", sh.Name, df.Err)
	}

	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sh.Name, cell, name); err != nil {
			return err
		}
	}

	// 写入数据
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			// 缺失值(含 NaN)留空
			if col.Elem(rowIdx).IsNA() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sh.Name, cell, col.Val(rowIdx)); err != nil {
				return err
			}
		}
	}
	return nil
}
