package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"restodocks/internal/model"
)

// SheetMode sheet 的结构类型
type SheetMode string

const (
	ModeBlocks SheetMode = "blocks" // 重复的 表头+配料 块（Карточки）
	ModeFlat   SheetMode = "flat"   // 单一表头的平表（ПФ / Сендвичи）
	ModeAuto   SheetMode = "auto"   // 根据表头标记自动识别
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Log      LogConfig      `toml:"log"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Blocks   BlockConfig    `toml:"blocks"`
	Resolver ResolverConfig `toml:"resolver"`
	Merge    MergeConfig    `toml:"merge"`
	Sheets   []SheetConfig  `toml:"sheets"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
	// RecordRuns 是否把运行记录写入 SQLite
	RecordRuns bool `toml:"record_runs"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `toml:"level"`
}

// LedgerConfig 产品台账（Продукты_цены）的固定列布局
type LedgerConfig struct {
	Sheet        string `toml:"sheet"`
	HeaderRow    int    `toml:"header_row"`
	FirstDataRow int    `toml:"first_data_row"`

	IDCol       int `toml:"id_col"`
	NameCol     int `toml:"name_col"`
	PriceCol    int `toml:"price_col"`
	SupplierCol int `toml:"supplier_col"`
	CaloriesCol int `toml:"calories_col"`
	ProteinCol  int `toml:"protein_col"`
	FatCol      int `toml:"fat_col"`
	CarbsCol    int `toml:"carbs_col"`

	NutritionHeaders []string `toml:"nutrition_headers"`
}

// FieldCol 字段所在列；未知字段返回 0
func (l LedgerConfig) FieldCol(field model.LedgerField) int {
	switch field {
	case model.FieldPrice:
		return l.PriceCol
	case model.FieldCalories:
		return l.CaloriesCol
	case model.FieldProtein:
		return l.ProteinCol
	case model.FieldFat:
		return l.FatCol
	case model.FieldCarbs:
		return l.CarbsCol
	default:
		return 0
	}
}

// BlockConfig 配料块识别
type BlockConfig struct {
	Markers         []string `toml:"markers"`
	IngredientLabel string   `toml:"ingredient_label"`
}

// ResolverConfig 名称解析
type ResolverConfig struct {
	SemiFinishedPrefix string   `toml:"semi_finished_prefix"`
	OverridePath       string   `toml:"override_path"`
	Catalogs           []string `toml:"catalogs"`
}

// MergeConfig 缺失产品合并
type MergeConfig struct {
	SkipNames  []string `toml:"skip_names"`
	MaxScanRow int      `toml:"max_scan_row"`
}

// SheetConfig 单个 sheet 的处理配置
type SheetConfig struct {
	Name         string              `toml:"name"`
	Mode         SheetMode           `toml:"mode"`
	FirstDataRow int                 `toml:"first_data_row"`
	CollectNames bool                `toml:"collect_names"`
	Price        *model.ColumnLayout `toml:"price,omitempty"`
	Nutrition    *model.ColumnLayout `toml:"nutrition,omitempty"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	PortSpecified bool
}

// DefaultConfig 默认配置（对应 ТТК.xlsx 的实际结构）
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:    "data",
			RecordRuns: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Ledger: LedgerConfig{
			Sheet:            "Продукты_цены",
			HeaderRow:        2,
			FirstDataRow:     3,
			IDCol:            1,
			NameCol:          2,
			PriceCol:         3,
			SupplierCol:      4,
			CaloriesCol:      5,
			ProteinCol:       6,
			FatCol:           7,
			CarbsCol:         8,
			NutritionHeaders: []string{"Ккал (100г)", "Белки", "Жиры", "Углеводы"},
		},
		Blocks: BlockConfig{
			Markers:         []string{"№", "#"},
			IngredientLabel: "Ингридиент",
		},
		Resolver: ResolverConfig{
			SemiFinishedPrefix: "пф",
		},
		Merge: MergeConfig{
			SkipNames:  []string{"продукт", "ингридиент", "итого", "количество", "наименование", "описание", "description"},
			MaxScanRow: 1500,
		},
		Sheets: defaultSheets(),
	}
}

func defaultSheets() []SheetConfig {
	cardPrice := func() *model.ColumnLayout {
		return &model.ColumnLayout{
			NameCol:      2,
			QtyCol:       4,
			SummaryLabel: "Итого",
			Columns: []model.DerivedColumn{
				{Col: 7, Header: "Отход %", Kind: model.KindPercent, Role: model.RoleWaste},
				{Col: 8, Header: "Ужарка %", Kind: model.KindPercent, Role: model.RoleShrink},
				{Col: 9, Header: "Цена", Kind: model.KindLookup, Field: model.FieldPrice},
				{Col: 10, Header: "Стоимость", Kind: model.KindCost, Divisor: 1000, Aggregate: true},
			},
		}
	}
	cardNutrition := func() *model.ColumnLayout {
		return &model.ColumnLayout{
			NameCol:      2,
			QtyCol:       4,
			SummaryLabel: "Итого КБЖУ",
			Columns:      nutritionColumns(11, true),
		}
	}

	return []SheetConfig{
		{
			Name:         "ПФ",
			Mode:         ModeFlat,
			FirstDataRow: 3,
			CollectNames: true,
			Price: &model.ColumnLayout{
				NameCol: 2,
				Columns: []model.DerivedColumn{
					{Col: 8, Kind: model.KindLookup, Field: model.FieldPrice},
				},
			},
			Nutrition: &model.ColumnLayout{
				NameCol:   2,
				QtyCol:    3,
				HeaderRow: 2,
				Columns:   nutritionColumns(14, false),
			},
		},
		{
			Name:         "Карточки Кухня",
			Mode:         ModeBlocks,
			CollectNames: true,
			Price:        cardPrice(),
			Nutrition:    cardNutrition(),
		},
		{
			Name:         "Карточки десерты",
			Mode:         ModeBlocks,
			CollectNames: true,
			Price:        cardPrice(),
			Nutrition:    cardNutrition(),
		},
		{
			Name:         "Сендвичи",
			Mode:         ModeFlat,
			FirstDataRow: 3,
			CollectNames: true,
			Price: &model.ColumnLayout{
				NameCol:        2,
				QtyCol:         3,
				SkipWithoutQty: true,
				Columns: []model.DerivedColumn{
					{Col: 4, Kind: model.KindLookup, Field: model.FieldPrice},
					{Col: 5, Kind: model.KindExtended, Divisor: 1000},
				},
			},
		},
		{
			Name:         "Новогоднее меню 24-25",
			Mode:         ModeFlat,
			FirstDataRow: 3,
			CollectNames: true,
			Price: &model.ColumnLayout{
				NameCol: 2,
				QtyCol:  3,
				Columns: []model.DerivedColumn{
					{Col: 4, Kind: model.KindLookup, Field: model.FieldPrice},
					{Col: 5, Kind: model.KindExtended, Divisor: 1000, KeepFormula: true},
				},
			},
		},
	}
}

func nutritionColumns(startCol int, aggregate bool) []model.DerivedColumn {
	headers := []string{"Ккал", "Белки", "Жиры", "Углеводы"}
	cols := make([]model.DerivedColumn, 0, len(model.NutritionFields))
	for i, field := range model.NutritionFields {
		cols = append(cols, model.DerivedColumn{
			Col:       startCol + i,
			Header:    headers[i],
			Kind:      model.KindScaledLookup,
			Field:     field,
			Divisor:   100,
			Aggregate: aggregate,
		})
	}
	return cols
}

// Validate 校验配置的一致性
func (c *AppConfig) Validate() error {
	if c.Ledger.Sheet == "" {
		return errors.New("ledger.sheet is required")
	}
	if c.Ledger.NameCol < 1 || c.Ledger.FirstDataRow < 1 {
		return errors.New("ledger.name_col and ledger.first_data_row must be >= 1")
	}
	if len(c.Blocks.Markers) == 0 || c.Blocks.IngredientLabel == "" {
		return errors.New("blocks.markers and blocks.ingredient_label are required")
	}
	for _, s := range c.Sheets {
		if s.Name == "" {
			return errors.New("sheet name is required")
		}
		switch s.Mode {
		case ModeBlocks, ModeFlat, ModeAuto:
		default:
			return fmt.Errorf("sheet %q: unknown mode %q", s.Name, s.Mode)
		}
		for _, layout := range []*model.ColumnLayout{s.Price, s.Nutrition} {
			if layout == nil {
				continue
			}
			if err := c.validateLayout(*layout); err != nil {
				return fmt.Errorf("sheet %q: %w", s.Name, err)
			}
		}
	}
	return nil
}

func (c *AppConfig) validateLayout(l model.ColumnLayout) error {
	if l.NameCol < 1 {
		return errors.New("name_col must be >= 1")
	}
	for _, col := range l.Columns {
		if col.Col < 1 {
			return fmt.Errorf("column %q: col must be >= 1", col.Header)
		}
		switch col.Kind {
		case model.KindLookup, model.KindScaledLookup:
			if c.Ledger.FieldCol(col.Field) == 0 {
				return fmt.Errorf("column %d: unknown ledger field %q", col.Col, col.Field)
			}
			if col.Kind == model.KindScaledLookup && (l.QtyCol < 1 || col.Divisor == 0) {
				return fmt.Errorf("column %d: scaled lookup needs qty_col and divisor", col.Col)
			}
		case model.KindCost:
			_, hasWaste := l.Column(model.KindPercent, model.RoleWaste)
			_, hasShrink := l.Column(model.KindPercent, model.RoleShrink)
			_, hasPrice := l.PriceColumn()
			if !hasWaste || !hasShrink || !hasPrice || l.QtyCol < 1 || col.Divisor == 0 {
				return fmt.Errorf("column %d: cost needs waste, shrink, price columns, qty_col and divisor", col.Col)
			}
		case model.KindExtended:
			if _, ok := l.PriceColumn(); !ok || l.QtyCol < 1 || col.Divisor == 0 {
				return fmt.Errorf("column %d: extended needs price column, qty_col and divisor", col.Col)
			}
		case model.KindPercent:
			if col.Role != model.RoleWaste && col.Role != model.RoleShrink {
				return fmt.Errorf("column %d: percent role must be waste or shrink", col.Col)
			}
		default:
			return fmt.Errorf("column %d: unknown kind %q", col.Col, col.Kind)
		}
	}
	return nil
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
//
// 查找顺序：RESTODOCKS_CONFIG > 可执行文件同目录 config.toml；均不存在时使用默认配置。
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	if p := os.Getenv("RESTODOCKS_CONFIG"); p != "" {
		return LoadConfigFile(p)
	}

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	cfg, info, err := LoadConfigFile(filepath.Join(exeDir, "config.toml"))
	if err != nil && errors.Is(err, os.ErrNotExist) {
		// 配置文件不存在，使用默认配置
		cfg = DefaultConfig()
		applyEnv(cfg)
		return cfg, LoadConfigInfo{}, nil
	}
	return cfg, info, err
}

// LoadConfigFile 从指定路径加载配置（在默认配置之上覆盖）
func LoadConfigFile(path string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, info, fmt.Errorf("read config %s: %w", path, err)
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, info, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖（用于 E2E / 本地运行）
func applyEnv(config *AppConfig) {
	if v := os.Getenv("RESTODOCKS_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("RESTODOCKS_OVERRIDES"); v != "" {
		config.Resolver.OverridePath = v
	}
}

// SaveConfig 保存配置到指定路径
func SaveConfig(config *AppConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir 确保数据目录存在
// 相对路径的数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "outputs"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}
