package formula

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"restodocks/internal/config"
	"restodocks/internal/model"
)

// LedgerRange 台账在公式中的引用区域：名称列到最后一个数值列
type LedgerRange struct {
	Sheet   string
	NameCol int
	LastCol int
	fields  map[model.LedgerField]int
}

// NewLedgerRange 根据台账列布局构造引用区域
func NewLedgerRange(cfg config.LedgerConfig) LedgerRange {
	r := LedgerRange{
		Sheet:   cfg.Sheet,
		NameCol: cfg.NameCol,
		LastCol: cfg.NameCol,
		fields:  make(map[model.LedgerField]int),
	}
	for _, field := range append([]model.LedgerField{model.FieldPrice}, model.NutritionFields...) {
		col := cfg.FieldCol(field)
		if col <= cfg.NameCol {
			continue
		}
		r.fields[field] = col
		if col > r.LastCol {
			r.LastCol = col
		}
	}
	return r
}

// Ref 区域引用，如 'Продукты_цены'!$B:$H
func (r LedgerRange) Ref() string {
	return fmt.Sprintf("%s!$%s:$%s", QuoteSheet(r.Sheet), ColumnName(r.NameCol), ColumnName(r.LastCol))
}

// Index VLOOKUP 的列序号（名称列为 1）；字段不在区域内时 ok=false
func (r LedgerRange) Index(field model.LedgerField) (int, bool) {
	col, ok := r.fields[field]
	if !ok {
		return 0, false
	}
	return col - r.NameCol + 1, true
}

// QuoteSheet 用单引号包裹 sheet 名（内部单引号双写）
func QuoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// ColumnName 列号转列名；列号非法时返回空串
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	return name
}

// Cell 单元格引用，如 B6
func Cell(col, row int) string {
	return fmt.Sprintf("%s%d", ColumnName(col), row)
}
