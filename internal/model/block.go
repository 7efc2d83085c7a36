package model

// IngredientBlock 一个配料块：表头行 + 数据行区间（均为原始行号，1 起）
//
// FirstDataRow == LastDataRow+1 表示空块。
type IngredientBlock struct {
	Sheet        string `json:"sheet"`
	HeaderRow    int    `json:"headerRow"`
	FirstDataRow int    `json:"firstDataRow"`
	LastDataRow  int    `json:"lastDataRow"`
}

// Empty 块内没有数据行
func (b IngredientBlock) Empty() bool {
	return b.LastDataRow < b.FirstDataRow
}

// Len 数据行数
func (b IngredientBlock) Len() int {
	if b.Empty() {
		return 0
	}
	return b.LastDataRow - b.FirstDataRow + 1
}

// ResolutionRule 命中的解析规则
type ResolutionRule string

const (
	RuleNone         ResolutionRule = ""
	RuleOverride     ResolutionRule = "override"
	RuleExact        ResolutionRule = "exact"
	RuleSemiFinished ResolutionRule = "semi_finished"
	RuleFirstToken   ResolutionRule = "first_token"
	RuleFuzzy        ResolutionRule = "fuzzy"
)

// Resolution 名称解析结果：Resolved(LedgerRecord) | Unresolved
type Resolution struct {
	Record   LedgerRecord   `json:"record"`
	Rule     ResolutionRule `json:"rule"`
	Resolved bool           `json:"resolved"`
	// Override 手工映射命中时的原始条目，用于区分未填写的字段
	Override *OverrideEntry `json:"override,omitempty"`
}

// Unresolved 未命中
func Unresolved() Resolution {
	return Resolution{}
}

// DerivedFormula 绑定到单元格的派生值：公式或（填充用的）常量
type DerivedFormula struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"` // 物理行号
	Col     int    `json:"col"`
	Formula string `json:"formula,omitempty"` // 不带前导 "="
	Value   any    `json:"value,omitempty"`
}

// IsFormula 是否为公式
func (f DerivedFormula) IsFormula() bool {
	return f.Formula != ""
}
