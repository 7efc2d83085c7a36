package model

import "time"

// Operation 运行类型
type Operation string

const (
	OpLinkPrices Operation = "link-prices"
	OpAddKBJU    Operation = "add-kbju"
	OpAddMissing Operation = "add-missing"
	OpAll        Operation = "all"
	OpConvert    Operation = "convert"
)

// Valid 是否为已知运行类型
func (o Operation) Valid() bool {
	switch o {
	case OpLinkPrices, OpAddKBJU, OpAddMissing, OpAll, OpConvert:
		return true
	}
	return false
}

// OutputSuffix 输出文件名后缀
func (o Operation) OutputSuffix() string {
	switch o {
	case OpLinkPrices:
		return "linked"
	case OpAddKBJU:
		return "kbju"
	case OpAddMissing:
		return "full"
	case OpConvert:
		return "google"
	default:
		return "linked_full"
	}
}

// SheetStatus sheet 处理状态
type SheetStatus string

const (
	SheetProcessed SheetStatus = "processed"
	SheetSkipped   SheetStatus = "skipped"
	SheetError     SheetStatus = "error"
)

// UnresolvedName 未能解析的配料名
type UnresolvedName struct {
	Sheet string `json:"sheet"`
	Row   int    `json:"row"`
	Name  string `json:"name"`
}

// SheetResult 单个 sheet 的处理结果
type SheetResult struct {
	SheetName  string           `json:"sheetName"`
	Operation  Operation        `json:"operation"`
	Status     SheetStatus      `json:"status"`
	Blocks     int              `json:"blocks"`
	Formulas   int              `json:"formulas"`
	Summaries  int              `json:"summaries"`
	Unresolved []UnresolvedName `json:"unresolved,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
	Duration   time.Duration    `json:"duration"`
}

// RunReport 一次运行的报告
type RunReport struct {
	RunID           string           `json:"runId"`
	Operation       Operation        `json:"operation"`
	InputPath       string           `json:"inputPath"`
	OutputPath      string           `json:"outputPath"`
	TotalSheets     int              `json:"totalSheets"`
	ProcessedSheets int              `json:"processedSheets"`
	SkippedSheets   int              `json:"skippedSheets"`
	Formulas        int              `json:"formulas"`
	Summaries       int              `json:"summaries"`
	Appended        []LedgerRecord   `json:"appended,omitempty"`
	NutritionFilled int              `json:"nutritionFilled"`
	ConvertedCells  int              `json:"convertedCells"`
	Unresolved      []UnresolvedName `json:"unresolved,omitempty"`
	Duration        time.Duration    `json:"duration"`
	Sheets          []SheetResult    `json:"sheets"`
}

// AddSheet 记录 sheet 结果并累计统计
func (r *RunReport) AddSheet(res SheetResult) {
	r.Sheets = append(r.Sheets, res)
	switch res.Status {
	case SheetProcessed:
		r.ProcessedSheets++
	case SheetSkipped:
		r.SkippedSheets++
	}
	r.Formulas += res.Formulas
	r.Summaries += res.Summaries
	r.Unresolved = append(r.Unresolved, res.Unresolved...)
}
