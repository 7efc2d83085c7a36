// Package ledger 读写工作簿中的产品台账（Продукты_цены）。
package ledger

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"restodocks/internal/config"
	"restodocks/internal/formula"
	"restodocks/internal/model"
	"restodocks/internal/parser"
	"restodocks/internal/resolver"
)

// ErrLedgerSheetMissing 工作簿中没有台账 sheet
var ErrLedgerSheetMissing = errors.New("ledger sheet not found")

// Book 工作簿中的台账
type Book struct {
	cfg    config.LedgerConfig
	Ledger *model.CanonicalLedger
}

// Load 读取台账：从首个数据行开始，遇到第一个名称为空的行停止
func Load(f *excelize.File, cfg config.LedgerConfig) (*Book, error) {
	if !parser.HasSheet(f, cfg.Sheet) {
		return nil, fmt.Errorf("%w: %q", ErrLedgerSheetMissing, cfg.Sheet)
	}
	snap, err := parser.ReadSheet(f, cfg.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return &Book{cfg: cfg, Ledger: FromSnapshot(snap, cfg)}, nil
}

// FromSnapshot 从 sheet 快照解析台账
func FromSnapshot(snap parser.Snapshot, cfg config.LedgerConfig) *model.CanonicalLedger {
	l := &model.CanonicalLedger{Sheet: cfg.Sheet, FirstDataRow: cfg.FirstDataRow}
	for row := cfg.FirstDataRow; row <= snap.MaxRow(); row++ {
		name := parser.NormalizeLabel(snap.Cell(row, cfg.NameCol))
		if name == "" {
			break
		}
		rec := &model.LedgerRecord{
			Row:      row,
			Name:     name,
			Supplier: parser.NormalizeLabel(snap.Cell(row, cfg.SupplierCol)),
		}
		if id, ok := parser.ParseWholeNumber(snap.Cell(row, cfg.IDCol)); ok {
			rec.ID = id
		}
		if v, ok := parser.ParseNumber(snap.Cell(row, cfg.PriceCol)); ok {
			rec.Price = &v
		}
		rec.Nutrition = readNutrition(snap, row, cfg)
		l.Records = append(l.Records, rec)
	}
	return l
}

func readNutrition(snap parser.Snapshot, row int, cfg config.LedgerConfig) *model.Nutrition {
	var n model.Nutrition
	found := false
	targets := []*float64{&n.Calories, &n.Protein, &n.Fat, &n.Carbs}
	for i, field := range model.NutritionFields {
		col := cfg.FieldCol(field)
		if col == 0 {
			continue
		}
		if v, ok := parser.ParseNumber(snap.Cell(row, col)); ok {
			*targets[i] = v
			found = true
		}
	}
	if !found {
		return nil
	}
	return &n
}

// Append 把新记录写入台账（编号、名称；价格与供应商留空）
func (b *Book) Append(f *excelize.File, records []model.LedgerRecord) error {
	for _, rec := range records {
		if err := f.SetCellValue(b.cfg.Sheet, formula.Cell(b.cfg.IDCol, rec.Row), rec.ID); err != nil {
			return fmt.Errorf("write ledger id at row %d: %w", rec.Row, err)
		}
		if err := f.SetCellValue(b.cfg.Sheet, formula.Cell(b.cfg.NameCol, rec.Row), rec.Name); err != nil {
			return fmt.Errorf("write ledger name at row %d: %w", rec.Row, err)
		}
	}
	return nil
}

// FillNutrition 按名称解析外部 КБЖУ 目录并写入台账的营养列
//
// 表头写在台账表头行。返回填充的记录数。
func (b *Book) FillNutrition(f *excelize.File, catalog *resolver.Resolver) (int, error) {
	for i, field := range model.NutritionFields {
		if i >= len(b.cfg.NutritionHeaders) {
			break
		}
		cell := formula.Cell(b.cfg.FieldCol(field), b.cfg.HeaderRow)
		if err := f.SetCellValue(b.cfg.Sheet, cell, b.cfg.NutritionHeaders[i]); err != nil {
			return 0, fmt.Errorf("write ledger header %s: %w", cell, err)
		}
	}

	filled := 0
	for _, rec := range b.Ledger.Records {
		res := catalog.Resolve(rec.Name)
		if !res.Resolved || res.Record.Nutrition == nil {
			continue
		}
		n := *res.Record.Nutrition
		for _, field := range model.NutritionFields {
			v, _ := n.Value(field)
			cell := formula.Cell(b.cfg.FieldCol(field), rec.Row)
			if err := f.SetCellValue(b.cfg.Sheet, cell, v); err != nil {
				return filled, fmt.Errorf("write ledger nutrition %s: %w", cell, err)
			}
		}
		rec.Nutrition = &n
		filled++
	}
	return filled, nil
}
