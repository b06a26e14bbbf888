package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// 默认数据源
const (
	DefaultFlightsURL   = "https://data.transportation.gov/api/views/xgub-n9bw/rows.csv?accessType=DOWNLOAD"
	DefaultFlightsCache = "data/International_Report_Passengers.csv"
	DefaultAirportsFile = "data/airports.csv"
	DefaultFDICNToUS    = "data/fdi_cn_to_us.csv"
	DefaultFDIUSToCN    = "data/fdi_us_to_cn.csv"

	DefaultCNToUSColumn = "CN to US in billion U.S. dollars"
	DefaultUSToCNColumn = "US to CN in billion U.S. dollars"
)

// Config 结构体定义了分析流水线的全部配置
// 所有默认值集中在 Default() 中，不再分散在各个函数的默认参数里
type Config struct {
	Source    SourceConfig   `json:"source"`
	Analysis  AnalysisConfig `json:"analysis"`
	Columns   ColumnConfig   `json:"columns"`
	OutputDir string         `json:"output_dir"` // 图表与工作簿输出目录
	LogName   string         `json:"log_name"`   // 日志文件路径
	LogLevel  string         `json:"log_level"`  // debug/info/warning/error
	Watch     WatchConfig    `json:"watch"`
	SendEmail MailConfig     `json:"send_email"`
}

// SourceConfig 输入文件与远程地址
type SourceConfig struct {
	FlightsURL   string `json:"flights_url"`   // 航班数据下载地址
	FlightsCache string `json:"flights_cache"` // 航班数据本地缓存
	AirportsFile string `json:"airports_file"` // 全球机场目录
	FDICNToUS    string `json:"fdi_cn_to_us"`  // 中国对美直接投资(年, 值)
	FDIUSToCN    string `json:"fdi_us_to_cn"`  // 美国对华直接投资(年, 值)
}

// AnalysisConfig 聚合与相关性参数
type AnalysisConfig struct {
	StartYear     int            `json:"start_year"`
	EndYear       int            `json:"end_year"`
	TopN          int            `json:"top_n"`
	USToCN        bool           `json:"us_to_cn"`       // 航班数与美国对华投资做相关
	Inspect       bool           `json:"inspect"`        // 输出缺失机场代码
	ExtraAirports []AirportPatch `json:"extra_airports"` // 手工补充的机场
}

// AirportPatch 手工补充的机场记录
type AirportPatch struct {
	Name    string `json:"name"`
	IATA    string `json:"iata_code"`
	Country string `json:"iso_country"`
}

// ColumnConfig FDI 数值列名
type ColumnConfig struct {
	CNToUS string `json:"cn_to_us"`
	USToCN string `json:"us_to_cn"`
}

type WatchConfig struct {
	CheckInterval Duration `json:"check_interval"` // 定时重新生成报告的间隔
}

// MailConfig 报告邮件发送配置
type MailConfig struct {
	Server     string   `json:"server"`   // SMTP 服务器地址
	Username   string   `json:"username"` // 发件邮箱
	Password   string   `json:"password"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
}

// Enabled 是否配置了邮件发送
func (m MailConfig) Enabled() bool {
	return m.Server != "" && m.Username != "" && len(m.Recipients) > 0
}

// Default 返回带有文档化默认值的配置
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			FlightsURL:   DefaultFlightsURL,
			FlightsCache: DefaultFlightsCache,
			AirportsFile: DefaultAirportsFile,
			FDICNToUS:    DefaultFDICNToUS,
			FDIUSToCN:    DefaultFDIUSToCN,
		},
		Analysis: AnalysisConfig{
			StartYear: 1999,
			EndYear:   2022,
			TopN:      10,
			USToCN:    true,
		},
		Columns: ColumnConfig{
			CNToUS: DefaultCNToUSColumn,
			USToCN: DefaultUSToCNColumn,
		},
		OutputDir: "output",
		LogName:   "app.log",
		LogLevel:  "info",
		Watch: WatchConfig{
			CheckInterval: Duration(24 * time.Hour),
		},
		SendEmail: MailConfig{
			Subject: "US-China flights report",
		},
	}
}

// LoadConfig 读取配置
// 1. 默认值 2. JSON 配置文件(jsonFile 为空时跳过) 3. .env 与环境变量
func LoadConfig(jsonFile string) (*Config, error) {
	cfg := Default()

	if jsonFile != "" {
		data, err := readFile(jsonFile)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析Config失败: %w", err)
		}
	}

	// .env 文件不存在时忽略
	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置的一致性
func (c *Config) Validate() error {
	var errs []error
	if c.Analysis.StartYear > c.Analysis.EndYear {
		errs = append(errs, fmt.Errorf("start_year %d 大于 end_year %d", c.Analysis.StartYear, c.Analysis.EndYear))
	}
	if c.Columns.CNToUS == "" || c.Columns.USToCN == "" {
		errs = append(errs, errors.New("FDI 列名不能为空"))
	}
	if c.Columns.CNToUS == c.Columns.USToCN {
		errs = append(errs, errors.New("FDI 列名不能相同"))
	}
	for i, a := range c.Analysis.ExtraAirports {
		if a.IATA == "" || a.Name == "" {
			errs = append(errs, fmt.Errorf("extra_airports[%d] 缺少 name 或 iata_code", i))
		}
	}
	return errors.Join(errs...)
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func applyEnv(c *Config) {
	c.Source.FlightsURL = getEnv("FLIGHTS_URL", c.Source.FlightsURL)
	c.Source.FlightsCache = getEnv("FLIGHTS_CACHE", c.Source.FlightsCache)
	c.Source.AirportsFile = getEnv("AIRPORTS_FILE", c.Source.AirportsFile)
	c.Source.FDICNToUS = getEnv("FDI_CN_TO_US_FILE", c.Source.FDICNToUS)
	c.Source.FDIUSToCN = getEnv("FDI_US_TO_CN_FILE", c.Source.FDIUSToCN)

	c.Analysis.StartYear = getEnvAsInt("START_YEAR", c.Analysis.StartYear)
	c.Analysis.EndYear = getEnvAsInt("END_YEAR", c.Analysis.EndYear)
	c.Analysis.TopN = getEnvAsInt("TOP_N", c.Analysis.TopN)

	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)
	c.LogName = getEnv("LOG_NAME", c.LogName)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.SendEmail.Server = getEnv("SMTP_SERVER", c.SendEmail.Server)
	c.SendEmail.Username = getEnv("SMTP_USERNAME", c.SendEmail.Username)
	c.SendEmail.Password = getEnv("SMTP_PASSWORD", c.SendEmail.Password)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
