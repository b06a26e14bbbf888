// reader.go
package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"USChinaFlights/src/datasource/remote"
	"USChinaFlights/src/storage"
	"USChinaFlights/src/utils"
)

var (
	// ErrSchemaMismatch 列数、列名或列顺序与约定不符
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrParse 字段无法解析
	ErrParse = errors.New("parse error")
)

// 航班数据(International Report Passengers)列名
const (
	ColDate         = "data_dte"
	ColYear         = "Year"
	ColMonth        = "Month"
	ColUSAirportID  = "usg_apt_id"
	ColUSAirport    = "usg_apt"
	ColUSWAC        = "usg_wac"
	ColFgAirportID  = "fg_apt_id"
	ColFgAirport    = "fg_apt"
	ColFgWAC        = "fg_wac"
	ColAirlineID    = "airlineid"
	ColCarrier      = "carrier"
	ColCarrierGroup = "carriergroup"
	ColType         = "type"
	ColScheduled    = "Scheduled"
	ColCharter      = "Charter"
	ColTotal        = "Total"
)

// 机场目录列名
const (
	ColAirportName = "name"
	ColIATA        = "iata_code"
	ColCountry     = "iso_country"
)

// FlightColumns 航班文件固定的16列，顺序即文件列顺序
var FlightColumns = []string{
	ColDate, ColYear, ColMonth,
	ColUSAirportID, ColUSAirport, ColUSWAC,
	ColFgAirportID, ColFgAirport, ColFgWAC,
	ColAirlineID, ColCarrier, ColCarrierGroup, ColType,
	ColScheduled, ColCharter, ColTotal,
}

var flightTypes = map[string]series.Type{
	ColDate:         series.String,
	ColYear:         series.Int,
	ColMonth:        series.Int,
	ColUSAirportID:  series.Int,
	ColUSAirport:    series.String,
	ColUSWAC:        series.Int,
	ColFgAirportID:  series.Int,
	ColFgAirport:    series.String,
	ColFgWAC:        series.Int,
	ColAirlineID:    series.Int,
	ColCarrier:      series.String,
	ColCarrierGroup: series.Int,
	ColType:         series.String,
	ColScheduled:    series.Int,
	ColCharter:      series.Int,
	ColTotal:        series.Int,
}

// LoadFlights 读取航班数据
// 缓存文件存在时直接解析；否则从 url 下载，解析成功后把原始内容写入缓存
func LoadFlights(ctx context.Context, cachePath, url string, fetcher remote.Fetcher, logger *storage.Logger) (dataframe.DataFrame, error) {
	if _, err := os.Stat(cachePath); err == nil {
		data, err := os.ReadFile(cachePath)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("read flights cache %s: %w", cachePath, err)
		}
		df, err := ParseFlights(bytes.NewReader(data))
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("flights cache %s: %w", cachePath, err)
		}
		logger.Info("flights loaded from cache", "path", cachePath, "rows", df.Nrow())
		return df, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return dataframe.DataFrame{}, fmt.Errorf("stat flights cache %s: %w", cachePath, err)
	}

	if fetcher == nil {
		return dataframe.DataFrame{}, fmt.Errorf("flights cache %s missing and no remote fetcher configured", cachePath)
	}

	logger.Info("flights cache missing, downloading", "url", url)
	data, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	df, err := ParseFlights(bytes.NewReader(data))
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("flights from %s: %w", url, err)
	}
	if err := writeCache(cachePath, data); err != nil {
		return dataframe.DataFrame{}, err
	}
	logger.Info("flights downloaded", "url", url, "cache", cachePath, "rows", df.Nrow(), "bytes", len(data))
	return df, nil
}

// ParseFlights 解析16列航班CSV(含表头)
// 日期列统一转换为 2006-01-02，Year/Month 必须为整数且月份在1-12之间
func ParseFlights(r io.Reader) (dataframe.DataFrame, error) {
	records, err := readCSV(r)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: empty file, header expected", ErrSchemaMismatch)
	}
	if err := checkHeader(records[0], FlightColumns); err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(records) == 1 {
		return emptyFrame(FlightColumns, flightTypes), nil
	}

	yearIdx, monthIdx := indexOf(FlightColumns, ColYear), indexOf(FlightColumns, ColMonth)
	for i, rec := range records[1:] {
		line := i + 2
		d, err := utils.ParseDate(strings.TrimSpace(rec[0]))
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("%w: line %d: %v", ErrParse, line, err)
		}
		rec[0] = d.Format(utils.DateLayout)

		if _, err := strconv.Atoi(strings.TrimSpace(rec[yearIdx])); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("%w: line %d: year %q", ErrParse, line, rec[yearIdx])
		}
		month, err := strconv.Atoi(strings.TrimSpace(rec[monthIdx]))
		if err != nil || month < 1 || month > 12 {
			return dataframe.DataFrame{}, fmt.Errorf("%w: line %d: month %q", ErrParse, line, rec[monthIdx])
		}
		rec[yearIdx] = strings.TrimSpace(rec[yearIdx])
		rec[monthIdx] = strings.TrimSpace(rec[monthIdx])
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.Names(FlightColumns...),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(flightTypes),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrParse, df.Err)
	}
	return df, nil
}

// ReadAirports 读取全球机场目录(ourairports 格式)
// 只要求包含 name、iata_code、iso_country 三列，其余列原样保留
func ReadAirports(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open airports file: %w", err)
	}
	defer f.Close()

	records, err := readCSV(f)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("airports file %s: %w", path, err)
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("airports file %s: %w: empty file", path, ErrSchemaMismatch)
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for _, required := range []string{ColAirportName, ColIATA, ColCountry} {
		if indexOf(header, required) < 0 {
			return dataframe.DataFrame{}, fmt.Errorf("airports file %s: %w: column %q not found", path, ErrSchemaMismatch, required)
		}
	}

	if len(records) == 1 {
		types := make(map[string]series.Type, len(header))
		for _, h := range header {
			types[h] = series.String
		}
		return emptyFrame(header, types), nil
	}

	// "NA" 是纳米比亚的国家代码，不能当作缺失值
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("airports file %s: %w: %v", path, ErrParse, df.Err)
	}
	return df, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		if errors.Is(err, csv.ErrFieldCount) {
			return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return records, nil
}

// checkHeader 表头必须与 want 列数一致、顺序一致(不区分大小写)
func checkHeader(header, want []string) error {
	if len(header) != len(want) {
		return fmt.Errorf("%w: got %d columns, want %d", ErrSchemaMismatch, len(header), len(want))
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if !strings.EqualFold(h, want[i]) {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrSchemaMismatch, i+1, h, want[i])
		}
	}
	return nil
}

// emptyFrame 构造只有列定义、没有数据行的DataFrame
func emptyFrame(cols []string, types map[string]series.Type) dataframe.DataFrame {
	ss := make([]series.Series, len(cols))
	for i, c := range cols {
		t, ok := types[c]
		if !ok {
			t = series.String
		}
		ss[i] = series.New([]string{}, t, c)
	}
	return dataframe.New(ss...)
}

func writeCache(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("persist cache file %s: %w", path, err)
	}
	return nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
