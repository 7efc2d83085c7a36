package model

// ColumnKind 派生列类型
type ColumnKind string

const (
	KindPercent      ColumnKind = "percent"       // 损耗百分比：空则填 0，不覆盖手填值
	KindLookup       ColumnKind = "lookup"        // 台账查找
	KindScaledLookup ColumnKind = "scaled_lookup" // 数量 / 除数 * 台账查找
	KindCost         ColumnKind = "cost"          // 数量 / ((1-损耗)*(1-烹损)) * 单价 / 除数
	KindExtended     ColumnKind = "extended"      // 数量 * 单价 / 除数
)

// PercentRole 百分比列的角色
type PercentRole string

const (
	RoleWaste  PercentRole = "waste"
	RoleShrink PercentRole = "shrink"
)

// DerivedColumn 派生列定义
type DerivedColumn struct {
	Col         int         `toml:"col" json:"col"`
	Header      string      `toml:"header" json:"header"`
	Kind        ColumnKind  `toml:"kind" json:"kind"`
	Field       LedgerField `toml:"field,omitempty" json:"field,omitempty"`
	Role        PercentRole `toml:"role,omitempty" json:"role,omitempty"`
	Divisor     float64     `toml:"divisor,omitempty" json:"divisor,omitempty"`
	Aggregate   bool        `toml:"aggregate,omitempty" json:"aggregate,omitempty"`
	KeepFormula bool        `toml:"keep_formula,omitempty" json:"keepFormula,omitempty"`
}

// ColumnLayout 一个 sheet 上某类运算的列布局
type ColumnLayout struct {
	NameCol      int             `toml:"name_col" json:"nameCol"`
	QtyCol       int             `toml:"qty_col" json:"qtyCol"`
	HeaderRow    int             `toml:"header_row,omitempty" json:"headerRow,omitempty"` // 平表的表头行；块表使用块表头
	SummaryLabel string          `toml:"summary_label,omitempty" json:"summaryLabel,omitempty"`
	Columns      []DerivedColumn `toml:"columns" json:"columns"`
	// SkipWhen 平表行跳过条件：数量列与第一个派生列均为空时跳过（Сендвичи）
	SkipWithoutQty bool `toml:"skip_without_qty,omitempty" json:"skipWithoutQty,omitempty"`
}

// Column 按类型/角色查找派生列
func (l ColumnLayout) Column(kind ColumnKind, role PercentRole) (DerivedColumn, bool) {
	for _, c := range l.Columns {
		if c.Kind != kind {
			continue
		}
		if role != "" && c.Role != role {
			continue
		}
		return c, true
	}
	return DerivedColumn{}, false
}

// PriceColumn 单价列：lookup 且字段为 price
func (l ColumnLayout) PriceColumn() (DerivedColumn, bool) {
	for _, c := range l.Columns {
		if c.Kind == KindLookup && c.Field == FieldPrice {
			return c, true
		}
	}
	return DerivedColumn{}, false
}

// Aggregates 需要汇总的列
func (l ColumnLayout) Aggregates() []DerivedColumn {
	out := make([]DerivedColumn, 0, len(l.Columns))
	for _, c := range l.Columns {
		if c.Aggregate {
			out = append(out, c)
		}
	}
	return out
}
