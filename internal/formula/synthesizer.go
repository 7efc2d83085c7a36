// Package formula 为配料行生成派生列公式。
//
// 输出只取决于输入：同一快照、布局和台账重复生成得到逐字节相同的公式文本。
package formula

import (
	"fmt"
	"strconv"
	"strings"

	"restodocks/internal/model"
	"restodocks/internal/parser"
	"restodocks/internal/resolver"
)

// RowMapper 把快照中的原始行号映射为插入汇总行之后的物理行号
type RowMapper interface {
	Physical(row int) int
}

type identity struct{}

func (identity) Physical(row int) int { return row }

// Identity 不做偏移的映射
var Identity RowMapper = identity{}

// Sheet 一次生成所需的 sheet 上下文
type Sheet struct {
	Snapshot parser.Snapshot
	Layout   model.ColumnLayout
	// Rows 为 nil 时不偏移
	Rows RowMapper
	// HasFormula 报告原始坐标处是否已有公式；keep_formula 列据此跳过
	HasFormula func(row, col int) bool
}

// Result 一个块的生成结果
type Result struct {
	Formulas   []model.DerivedFormula
	Unresolved []model.UnresolvedName
	Rules      map[model.ResolutionRule]int
}

// Synthesizer 公式生成器
type Synthesizer struct {
	ledger   LedgerRange
	resolver *resolver.Resolver
}

// New 创建公式生成器
func New(ledger LedgerRange, r *resolver.Resolver) *Synthesizer {
	return &Synthesizer{ledger: ledger, resolver: r}
}

// Synthesize 为块内每个有名称的数据行生成派生列
//
// 表头文字写在块表头行（布局指定 HeaderRow 时写在该行）。
// 百分比列只在为空时填 0；查找类公式总是重新生成。
func (s *Synthesizer) Synthesize(block model.IngredientBlock, sh Sheet) Result {
	rows := sh.Rows
	if rows == nil {
		rows = Identity
	}
	res := Result{Rules: make(map[model.ResolutionRule]int)}

	headerRow := block.HeaderRow
	if sh.Layout.HeaderRow > 0 {
		headerRow = sh.Layout.HeaderRow
	}
	if headerRow >= 1 {
		for _, col := range sh.Layout.Columns {
			if col.Header == "" {
				continue
			}
			res.Formulas = append(res.Formulas, model.DerivedFormula{
				Sheet: block.Sheet,
				Row:   rows.Physical(headerRow),
				Col:   col.Col,
				Value: col.Header,
			})
		}
	}

	for row := block.FirstDataRow; row <= block.LastDataRow; row++ {
		name := parser.NormalizeLabel(sh.Snapshot.Cell(row, sh.Layout.NameCol))
		if name == "" {
			continue
		}
		if sh.Layout.SkipWithoutQty && s.skipRow(sh, row) {
			continue
		}

		resolution := s.resolver.Resolve(name)
		res.Rules[resolution.Rule]++
		if !resolution.Resolved {
			res.Unresolved = append(res.Unresolved, model.UnresolvedName{Sheet: block.Sheet, Row: row, Name: name})
		}

		physical := rows.Physical(row)
		for _, col := range sh.Layout.Columns {
			f, ok := s.cell(sh, col, row, physical, resolution)
			if !ok {
				continue
			}
			f.Sheet = block.Sheet
			res.Formulas = append(res.Formulas, f)
		}
	}
	return res
}

// skipRow 数量列与第一个查找列都为空
func (s *Synthesizer) skipRow(sh Sheet, row int) bool {
	if !parser.IsBlank(sh.Snapshot.Cell(row, sh.Layout.QtyCol)) {
		return false
	}
	price, ok := sh.Layout.PriceColumn()
	if !ok {
		return true
	}
	return parser.IsBlank(sh.Snapshot.Cell(row, price.Col))
}

func (s *Synthesizer) cell(sh Sheet, col model.DerivedColumn, row, physical int, resolution model.Resolution) (model.DerivedFormula, bool) {
	out := model.DerivedFormula{Row: physical, Col: col.Col}
	layout := sh.Layout

	switch col.Kind {
	case model.KindPercent:
		if !parser.IsBlank(sh.Snapshot.Cell(row, col.Col)) {
			return out, false
		}
		out.Value = 0
	case model.KindLookup:
		out.Formula = s.lookup(col.Field, s.nameKey(sh, row, physical, resolution), resolution)
	case model.KindScaledLookup:
		out.Formula = fmt.Sprintf("%s/%s*%s",
			Cell(layout.QtyCol, physical), number(col.Divisor),
			s.lookup(col.Field, s.nameKey(sh, row, physical, resolution), resolution))
	case model.KindCost:
		waste, _ := layout.Column(model.KindPercent, model.RoleWaste)
		shrink, _ := layout.Column(model.KindPercent, model.RoleShrink)
		price, _ := layout.PriceColumn()
		out.Formula = fmt.Sprintf("%s/((1-%s/100)*(1-%s/100))*%s/%s",
			Cell(layout.QtyCol, physical),
			Cell(waste.Col, physical),
			Cell(shrink.Col, physical),
			Cell(price.Col, physical),
			number(col.Divisor))
	case model.KindExtended:
		if col.KeepFormula && sh.HasFormula != nil && sh.HasFormula(row, col.Col) {
			return out, false
		}
		price, _ := layout.PriceColumn()
		out.Formula = fmt.Sprintf("%s*%s/%s",
			Cell(layout.QtyCol, physical), Cell(price.Col, physical), number(col.Divisor))
	default:
		return out, false
	}
	return out, true
}

// nameKey VLOOKUP 的查找键
//
// 未命中、手工映射命中，或精确命中且单元格原文与台账名称只差大小写时，以名称单元格为键；
// 其余情况（空白差异、通配符、去前缀、首词、模糊）以台账名称字面量为键。
func (s *Synthesizer) nameKey(sh Sheet, row, physical int, resolution model.Resolution) string {
	cell := Cell(sh.Layout.NameCol, physical)
	switch resolution.Rule {
	case model.RuleNone, model.RuleOverride:
		return cell
	case model.RuleExact:
		raw := sh.Snapshot.Cell(row, sh.Layout.NameCol)
		if strings.EqualFold(raw, resolution.Record.Name) && !strings.ContainsAny(raw, "~*?") {
			return cell
		}
	}
	return quote(resolution.Record.Name)
}

// lookup IFNA(VLOOKUP(key,range,idx,FALSE),0)
//
// 手工映射带有该字段时直接写入手工值，不查台账。
func (s *Synthesizer) lookup(field model.LedgerField, key string, resolution model.Resolution) string {
	if resolution.Override != nil {
		if v, ok := resolution.Override.Value(field); ok {
			return number(v)
		}
	}
	idx, _ := s.ledger.Index(field)
	return fmt.Sprintf("IFNA(VLOOKUP(%s,%s,%d,FALSE),0)", key, s.ledger.Ref(), idx)
}

// keyEscaper VLOOKUP 精确匹配仍把 ~ * ? 当通配符
var keyEscaper = strings.NewReplacer(`~`, `~~`, `*`, `~*`, `?`, `~?`, `"`, `""`)

// quote 台账名称字面量（转义引号与通配符）
func quote(s string) string {
	return `"` + keyEscaper.Replace(s) + `"`
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
