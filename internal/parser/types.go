package parser

// SheetKind Sheet 结构类型
type SheetKind string

const (
	SheetKindBlocks  SheetKind = "blocks"  // 含 № / Ингридиент 表头的配料块
	SheetKindFlat    SheetKind = "flat"    // 单表头平表
	SheetKindUnknown SheetKind = "unknown" // 空表
)

// SheetRecognitionResult Sheet 识别结果
type SheetRecognitionResult struct {
	SheetName   string    `json:"sheetName"`
	Kind        SheetKind `json:"kind"`
	Confidence  float64   `json:"confidence"`  // 置信度 0-1
	HeaderRows  []int     `json:"headerRows"`  // 识别出的块表头行号
	NumberedRow int       `json:"numberedRow"` // 以整数序号开头的行数
}

// Snapshot 一个 sheet 的只读行快照（原始单元格值，行列均从 1 计）
type Snapshot struct {
	Name string
	Rows [][]string
}

// MaxRow 最后一行的行号
func (s Snapshot) MaxRow() int {
	return len(s.Rows)
}

// Cell 读取单元格；越界返回 ""
func (s Snapshot) Cell(row, col int) string {
	if row < 1 || row > len(s.Rows) || col < 1 {
		return ""
	}
	r := s.Rows[row-1]
	if col > len(r) {
		return ""
	}
	return r[col-1]
}
