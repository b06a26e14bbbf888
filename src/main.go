package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"USChinaFlights/src/config"
	"USChinaFlights/src/datapush"
	"USChinaFlights/src/datasource/file"
	"USChinaFlights/src/datasource/remote"
	"USChinaFlights/src/processor"
	"USChinaFlights/src/report"
	"USChinaFlights/src/storage"
)

const (
	defaultConfigFile = "config/config.json"
	chartsFile        = "report.pdf"
	workbookFile      = "report.xlsx"
)

type app struct {
	cfg     *config.Config
	logger  *storage.Logger
	fetcher remote.Fetcher
	out     io.Writer

	// 定时任务、文件变化与 SIGHUP 可能同时触发，分析串行执行
	mu sync.Mutex
}

func main() {
	if err := newRootCmd(&app{out: os.Stdout}).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var (
		configFile string
		verbose    bool
	)
	root := &cobra.Command{
		Use:          "flights",
		Short:        "US-China flights vs. FDI analysis",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(configFile, verbose)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "JSON config file (default "+defaultConfigFile+" if present)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newAnalyzeCmd(a), newInspectCmd(a), newWatchCmd(a))
	return root
}

// init 加载配置并初始化日志
func (a *app) init(configFile string, verbose bool) error {
	if configFile == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			configFile = defaultConfigFile
		}
	}
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	level := storage.ParseLevel(cfg.LogLevel)
	if verbose {
		level = storage.DEBUG
	}
	logger, err := storage.NewLogger(cfg.LogName, level)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	if a.fetcher == nil {
		a.fetcher = remote.NewHTTPFetcher(nil)
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	return nil
}

// analysisFlags 覆盖配置文件中的分析参数，仅在显式指定时生效
type analysisFlags struct {
	start, end, top int
	cnToUS          bool
	output          string
	noMail          bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.start, "start-year", 0, "first year of the seasonal aggregates")
	cmd.Flags().IntVar(&f.end, "end-year", 0, "last year of the seasonal aggregates")
	cmd.Flags().IntVar(&f.top, "top", 0, "number of busiest routes")
	cmd.Flags().BoolVar(&f.cnToUS, "cn-to-us", false, "correlate flights with CN to US FDI instead of US to CN")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output directory for charts and workbook")
	cmd.Flags().BoolVar(&f.noMail, "no-mail", false, "do not mail the report")
}

func (f *analysisFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("start-year") {
		cfg.Analysis.StartYear = f.start
	}
	if flags.Changed("end-year") {
		cfg.Analysis.EndYear = f.end
	}
	if flags.Changed("top") {
		cfg.Analysis.TopN = f.top
	}
	if flags.Changed("cn-to-us") {
		cfg.Analysis.USToCN = !f.cnToUS
	}
	if flags.Changed("output") {
		cfg.OutputDir = f.output
	}
	if f.noMail {
		cfg.SendEmail.Recipients = nil
	}
	return cfg.Validate()
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var flags analysisFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the analysis once and write charts, workbook and tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, a.cfg); err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			_, err := a.analyze(ctx)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List airport codes that cannot be resolved against the reference set",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.Analysis.Inspect = true
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			res, err := a.run(ctx)
			if err != nil {
				return err
			}
			return report.WriteInspect(a.out, res.Inspect)
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var flags analysisFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the report when inputs change, on a schedule, or on SIGHUP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, a.cfg); err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return a.watch(ctx)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) run(ctx context.Context) (*processor.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return processor.NewPipeline(a.cfg, a.fetcher, a.logger).Run(ctx)
}

// analyze 执行一次分析: 输出表格、生成图表与工作簿，配置了邮件则发送
func (a *app) analyze(ctx context.Context) (*processor.Result, error) {
	res, err := a.run(ctx)
	if err != nil {
		return nil, err
	}
	if err := writeSummary(a.out, a.cfg, res); err != nil {
		return nil, err
	}

	attachments, err := saveOutputs(a.cfg, res)
	if err != nil {
		return nil, err
	}
	a.logger.Info("report written", "files", attachments)

	if a.cfg.SendEmail.Enabled() {
		body := mailBody(a.cfg, res)
		if err := datapush.NewMailer(a.cfg.SendEmail, a.logger).Send(body, attachments...); err != nil {
			// 邮件失败不影响本地报告
			a.logger.Error("发送报告邮件失败", "error", err)
		}
	}
	return res, nil
}

func writeSummary(w io.Writer, cfg *config.Config, res *processor.Result) error {
	start, end := cfg.Analysis.StartYear, cfg.Analysis.EndYear
	if err := report.WriteYearly(w, res.ByYear, res.Passengers); err != nil {
		return err
	}
	if err := report.WriteMonthRanking(w, res.ByMonth, start, end); err != nil {
		return err
	}
	if err := report.WriteTopRoutes(w, res.TopRoutes); err != nil {
		return err
	}
	return report.WriteCorrelations(w, res.Correlations, processor.ModeFor(cfg.Analysis.USToCN))
}

func saveOutputs(cfg *config.Config, res *processor.Result) ([]string, error) {
	cols := processor.FDIColumns{CNToUS: cfg.Columns.CNToUS, USToCN: cfg.Columns.USToCN}
	charts, err := report.RenderCharts(res, cols, cfg.Analysis.StartYear, cfg.Analysis.EndYear)
	if err != nil {
		return nil, err
	}
	pdfPath := filepath.Join(cfg.OutputDir, chartsFile)
	if err := charts.Save(pdfPath); err != nil {
		return nil, err
	}

	xlsxPath := filepath.Join(cfg.OutputDir, workbookFile)
	if err := report.SaveWorkbook(xlsxPath, res); err != nil {
		return nil, err
	}
	return []string{pdfPath, xlsxPath}, nil
}

func mailBody(cfg *config.Config, res *processor.Result) string {
	mode := processor.ModeFor(cfg.Analysis.USToCN)
	body := fmt.Sprintf("Pearson correlation (%s): %.4f\n", mode, res.Correlation)
	body += fmt.Sprintf("Flights with China: %d, years: %d\n", res.ChinaFlights.Nrow(), res.ByYear.Nrow())
	if !res.Inspect.Empty() {
		body += fmt.Sprintf("Unresolved airport codes: %v %v\n", res.Inspect.MissingForeign, res.Inspect.MissingUS)
	}
	return body
}

// watch 启动时先生成一次报告，之后由文件变化、定时任务和 SIGHUP 触发重新生成
func (a *app) watch(ctx context.Context) error {
	trigger := func(reason string) {
		a.logger.Info("开始重新生成报告", "reason", reason)
		if _, err := a.analyze(ctx); err != nil {
			a.logger.Error("生成报告失败", "reason", reason, "error", err)
		}
	}
	trigger("startup")

	src := a.cfg.Source
	monitor, err := file.NewFileMonitor(src.FlightsCache, src.AirportsFile, src.FDICNToUS, src.FDIUSToCN)
	if err != nil {
		return err
	}
	defer monitor.Close()

	c := cron.New()
	interval := a.cfg.Watch.CheckInterval.String()
	cronSpec := fmt.Sprintf("@every %s", interval)
	if err := c.AddFunc(cronSpec, func() { trigger("schedule") }); err != nil {
		return fmt.Errorf("创建定时任务失败: %w", err)
	}
	c.Start()
	defer c.Stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				trigger("SIGHUP")
			}
		}
	}()

	a.logger.Info("监控服务已启动，按Ctrl+C退出", "interval", interval)
	err = monitor.Watch(ctx, func(path string) { trigger("changed " + path) })
	if errors.Is(err, context.Canceled) {
		a.logger.Info("监控服务已停止")
		return nil
	}
	return err
}
