package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"restodocks/internal/config"
	"restodocks/internal/model"
	"restodocks/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dataDir    string
	noRecord   bool

	// Operation flags
	outPath       string
	overridesPath string
	catalogPaths  []string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "restodocks",
	Short: "restodocks - 技术卡片工作簿的价格 / КБЖУ 公式链接工具",
	Long: `restodocks 读取餐厅技术卡片工作簿（ТТК.xlsx），以 «Продукты_цены» 台账为唯一数据源，
为每个配料行写入 VLOOKUP 公式，在每个配料块下插入 SUM 汇总行，并把缺失的产品追加到台账。

输入文件从不修改；结果写到同目录的 <名称>_<后缀>.xlsx。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logCfg := zap.NewProductionConfig()
		if verbose {
			logCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = logCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var linkPricesCmd = &cobra.Command{
	Use:   "link-prices <workbook.xlsx>",
	Short: "写入价格与成本公式，插入 «Итого» 汇总行",
	Args:  cobra.ExactArgs(1),
	RunE:  runOperation(model.OpLinkPrices),
}

var addKBJUCmd = &cobra.Command{
	Use:   "add-kbju <workbook.xlsx>",
	Short: "填充台账 КБЖУ 并写入每行营养公式",
	Long: `从手工映射（--overrides）与外部 JSON 目录（--catalog，可多次指定）解析每个台账产品的
КБЖУ，写入台账第 5–8 列；随后为卡片与 ПФ 写入按数量换算的营养公式与 «Итого КБЖУ» 汇总行。`,
	Args: cobra.ExactArgs(1),
	RunE: runOperation(model.OpAddKBJU),
}

var addMissingCmd = &cobra.Command{
	Use:   "add-missing <workbook.xlsx>",
	Short: "把配料块中出现但台账中没有的产品追加到台账（价格留空）",
	Args:  cobra.ExactArgs(1),
	RunE:  runOperation(model.OpAddMissing),
}

var allCmd = &cobra.Command{
	Use:   "all <workbook.xlsx>",
	Short: "依次执行 link-prices、add-missing、add-kbju",
	Args:  cobra.ExactArgs(1),
	RunE:  runOperation(model.OpAll),
}

var convertCmd = &cobra.Command{
	Use:   "convert <workbook.xlsx>",
	Short: "把 Apple Numbers 公式引用改写为 Google Sheets 写法",
	Args:  cobra.ExactArgs(1),
	RunE:  runOperation(model.OpConvert),
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config.toml 路径（默认：RESTODOCKS_CONFIG 或可执行文件同目录）")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "数据目录（覆盖配置文件）")
	rootCmd.PersistentFlags().BoolVar(&noRecord, "no-record", false, "不把运行记录写入 SQLite")

	for _, cmd := range []*cobra.Command{linkPricesCmd, addKBJUCmd, addMissingCmd, allCmd, convertCmd} {
		cmd.Flags().StringVarP(&outPath, "out", "o", "", "输出文件（默认：<输入>_<后缀>.xlsx）")
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{linkPricesCmd, addKBJUCmd, allCmd} {
		cmd.Flags().StringVar(&overridesPath, "overrides", "", "手工映射文件（.json / .yaml）")
	}
	for _, cmd := range []*cobra.Command{addKBJUCmd, allCmd} {
		cmd.Flags().StringSliceVar(&catalogPaths, "catalog", nil, "外部 КБЖУ JSON 目录（可多次指定）")
	}

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "服务端口（config.toml 中显式配置时以配置为准）")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "开发模式")
	rootCmd.AddCommand(serveCmd)

	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "显示条数")
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig 加载配置：--config 优先，其次 RESTODOCKS_CONFIG / 可执行文件同目录
func loadConfig() (*config.AppConfig, config.LoadConfigInfo, error) {
	var (
		cfg  *config.AppConfig
		info config.LoadConfigInfo
		err  error
	)
	if configPath != "" {
		cfg, info, err = config.LoadConfigFile(configPath)
	} else {
		cfg, info, err = config.LoadConfigWithInfo()
	}
	if err != nil {
		return nil, info, err
	}
	if dataDir != "" {
		cfg.Data.DataDir = dataDir
	}
	if noRecord {
		cfg.Data.RecordRuns = false
	}
	return cfg, info, nil
}

// openStore 打开运行记录库；未启用记录时返回 nil
func openStore(cfg *config.AppConfig) (*store.Store, error) {
	if !cfg.Data.RecordRuns {
		return nil, nil
	}
	dir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return store.New(filepath.Join(dir, "restodocks.db"))
}
