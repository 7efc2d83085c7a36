// Package summary 在每个配料块下方插入汇总行。
//
// 分两步完成：NewPlan 在原始坐标上算出每次插入的位置并记录累计偏移，
// Apply 按升序执行插入；派生公式统一通过 Shift 换算成插入后的物理行号。
package summary

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"restodocks/internal/formula"
	"restodocks/internal/model"
	"restodocks/internal/parser"
)

// Insertion 一个块的汇总行
type Insertion struct {
	Block model.IngredientBlock
	// Row 汇总行的物理行号
	Row int
	// First/Last 汇总范围（物理行号）
	First int
	Last  int
	// Reused 块下方已有同名汇总行，不再插入
	Reused bool
}

// Shift 原始行号 -> 物理行号
//
// 原始行 r 的位移等于在 r 之前插入的汇总行数。
type Shift struct {
	after []int // 升序：插入点之前的原始最后数据行
}

// Physical 实现 formula.RowMapper
func (s Shift) Physical(row int) int {
	n := sort.SearchInts(s.after, row)
	return row + n
}

var _ formula.RowMapper = Shift{}

// Plan 一个 sheet 上一种布局的汇总计划
type Plan struct {
	Sheet      string
	Label      string
	LabelCol   int
	Columns    []model.DerivedColumn
	Insertions []Insertion
	shift      Shift
}

// NewPlan 计算汇总计划
//
// blocks 必须按表头行升序。空块不汇总。trailerLabels 是该 sheet 上所有汇总行可能使用的标签：
// 块下方紧邻的、A 列为空且标签列命中其中之一的连续行视为已有汇总区，
// 其中与本布局同名的一行被复用，不计入偏移。
func NewPlan(s parser.Snapshot, blocks []model.IngredientBlock, layout model.ColumnLayout, trailerLabels []string) *Plan {
	p := &Plan{
		Sheet:    s.Name,
		Label:    layout.SummaryLabel,
		LabelCol: layout.NameCol,
		Columns:  layout.Aggregates(),
	}
	if p.Label == "" {
		return p
	}

	offset := 0
	for _, b := range blocks {
		if b.Empty() {
			continue
		}
		ins := Insertion{
			Block: b,
			First: b.FirstDataRow + offset,
			Last:  b.LastDataRow + offset,
		}
		if row, ok := existingSummary(s, b.LastDataRow, p.LabelCol, p.Label, trailerLabels); ok {
			ins.Row = row + offset
			ins.Reused = true
		} else {
			ins.Row = b.LastDataRow + 1 + offset
			p.shift.after = append(p.shift.after, b.LastDataRow)
			offset++
		}
		p.Insertions = append(p.Insertions, ins)
	}
	return p
}

// existingSummary 在块尾部的汇总区内查找同名汇总行（原始行号）
func existingSummary(s parser.Snapshot, lastDataRow, labelCol int, label string, trailerLabels []string) (int, bool) {
	for row := lastDataRow + 1; row <= s.MaxRow(); row++ {
		if !parser.IsBlank(s.Cell(row, 1)) {
			return 0, false
		}
		text := parser.NormalizeLabel(s.Cell(row, labelCol))
		if text == label {
			return row, true
		}
		if !parser.MatchesAny(text, trailerLabels) {
			return 0, false
		}
	}
	return 0, false
}

// Shift 派生公式使用的行号映射
func (p *Plan) Shift() Shift {
	return p.shift
}

// Inserted 实际新插入的汇总行数
func (p *Plan) Inserted() int {
	return len(p.shift.after)
}

// Apply 按升序插入汇总行（复用的行不插入）
func (p *Plan) Apply(f *excelize.File) error {
	for _, ins := range p.Insertions {
		if ins.Reused {
			continue
		}
		if err := f.InsertRows(p.Sheet, ins.Row, 1); err != nil {
			return fmt.Errorf("insert summary row %d on %s: %w", ins.Row, p.Sheet, err)
		}
	}
	return nil
}

// Cells 汇总行的标签与 SUM 公式（物理坐标），须在 Apply 之后写入
func (p *Plan) Cells() []model.DerivedFormula {
	out := make([]model.DerivedFormula, 0, len(p.Insertions)*(len(p.Columns)+1))
	for _, ins := range p.Insertions {
		out = append(out, model.DerivedFormula{Sheet: p.Sheet, Row: ins.Row, Col: p.LabelCol, Value: p.Label})
		for _, col := range p.Columns {
			name := formula.ColumnName(col.Col)
			out = append(out, model.DerivedFormula{
				Sheet:   p.Sheet,
				Row:     ins.Row,
				Col:     col.Col,
				Formula: fmt.Sprintf("SUM(%s%d:%s%d)", name, ins.First, name, ins.Last),
			})
		}
	}
	return out
}
