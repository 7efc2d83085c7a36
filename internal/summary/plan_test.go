package summary

import (
	"testing"

	"github.com/xuri/excelize/v2"

	"restodocks/internal/model"
	"restodocks/internal/parser"
)

var costLayout = model.ColumnLayout{
	NameCol:      2,
	QtyCol:       4,
	SummaryLabel: "Итого",
	Columns: []model.DerivedColumn{
		{Col: 9, Kind: model.KindLookup, Field: model.FieldPrice},
		{Col: 10, Kind: model.KindCost, Divisor: 1000, Aggregate: true},
	},
}

func block(header, first, last int) model.IngredientBlock {
	return model.IngredientBlock{Sheet: "Карточки Кухня", HeaderRow: header, FirstDataRow: first, LastDataRow: last}
}

func TestPlanOffsetAccumulates(t *testing.T) {
	t.Parallel()

	snap := parser.Snapshot{Name: "Карточки Кухня"}
	blocks := []model.IngredientBlock{block(2, 3, 5), block(7, 8, 10), block(15, 16, 20)}
	p := NewPlan(snap, blocks, costLayout, nil)

	if len(p.Insertions) != 3 {
		t.Fatalf("insertions=%d, want 3", len(p.Insertions))
	}
	// 第 k 个块的汇总行 = 原始最后数据行 + 1 + (k-1)
	for k, ins := range p.Insertions {
		want := blocks[k].LastDataRow + 1 + k
		if ins.Row != want {
			t.Fatalf("block %d summary row=%d, want %d", k+1, ins.Row, want)
		}
		if ins.First != blocks[k].FirstDataRow+k || ins.Last != blocks[k].LastDataRow+k {
			t.Fatalf("block %d range=%d..%d", k+1, ins.First, ins.Last)
		}
	}

	shift := p.Shift()
	cases := map[int]int{1: 1, 5: 5, 6: 7, 10: 11, 11: 13, 20: 22, 21: 24}
	for in, want := range cases {
		if got := shift.Physical(in); got != want {
			t.Fatalf("Physical(%d)=%d, want %d", in, got, want)
		}
	}
	if p.Inserted() != 3 {
		t.Fatalf("Inserted=%d, want 3", p.Inserted())
	}
}

func TestPlanSkipsEmptyBlocksAndUnlabelledLayouts(t *testing.T) {
	t.Parallel()

	snap := parser.Snapshot{Name: "Карточки Кухня"}
	p := NewPlan(snap, []model.IngredientBlock{block(2, 3, 2), block(3, 4, 6)}, costLayout, nil)
	if len(p.Insertions) != 1 || p.Insertions[0].Row != 7 {
		t.Fatalf("unexpected insertions: %+v", p.Insertions)
	}

	noLabel := costLayout
	noLabel.SummaryLabel = ""
	if p := NewPlan(snap, []model.IngredientBlock{block(2, 3, 5)}, noLabel, nil); len(p.Insertions) != 0 {
		t.Fatalf("expected no insertions without label, got %+v", p.Insertions)
	}
}

func TestPlanReusesExistingSummaryRow(t *testing.T) {
	t.Parallel()

	snap := parser.Snapshot{Name: "Карточки Кухня", Rows: [][]string{
		{"№", "Ингридиент"},
		{"1", "Соль"},
		{"2", "Мука"},
		{"", "Итого КБЖУ"},
		{"", "Итого"},
		{"№", "Ингридиент"},
		{"1", "Сахар"},
	}}
	blocks := []model.IngredientBlock{block(1, 2, 3), block(6, 7, 7)}
	p := NewPlan(snap, blocks, costLayout, []string{"Итого", "Итого КБЖУ"})

	if !p.Insertions[0].Reused || p.Insertions[0].Row != 5 {
		t.Fatalf("first block should reuse row 5: %+v", p.Insertions[0])
	}
	if p.Insertions[1].Reused || p.Insertions[1].Row != 8 {
		t.Fatalf("second block should insert at row 8: %+v", p.Insertions[1])
	}
	if p.Inserted() != 1 {
		t.Fatalf("Inserted=%d, want 1", p.Inserted())
	}
	if got := p.Shift().Physical(7); got != 7 {
		t.Fatalf("reused rows must not shift: Physical(7)=%d", got)
	}
}

func TestPlanStopsTrailerAtForeignRow(t *testing.T) {
	t.Parallel()

	snap := parser.Snapshot{Name: "Карточки Кухня", Rows: [][]string{
		{"№", "Ингридиент"},
		{"1", "Соль"},
		{"", "Технология"},
		{"", "Итого"},
	}}
	p := NewPlan(snap, []model.IngredientBlock{block(1, 2, 2)}, costLayout, []string{"Итого"})
	if p.Insertions[0].Reused || p.Insertions[0].Row != 3 {
		t.Fatalf("unexpected insertion: %+v", p.Insertions[0])
	}
}

func TestApplyEndToEnd(t *testing.T) {
	t.Parallel()

	const sheet = "Карточки Кухня"
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}

	rows := map[string][]any{
		"A1":  {"Суп"},
		"A5":  {"№", "Ингридиент", "Ед", "Шт/гр"},
		"A6":  {1, "Salt", "гр", 5},
		"A7":  {2, "Flour", "гр", 200},
		"A8":  {3, "Sugar", "гр", 50},
		"A10": {"Технология"},
		"A11": {"№", "Ингридиент", "Ед", "Шт/гр"},
		"A12": {1, "Salt", "гр", 1},
	}
	for cell, values := range rows {
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("SetSheetRow %s: %v", cell, err)
		}
	}

	snap, err := parser.ReadSheet(f, sheet)
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	p := NewPlan(snap, []model.IngredientBlock{block(5, 6, 8), block(11, 12, 12)}, costLayout, nil)
	if err := p.Apply(f); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, c := range p.Cells() {
		cell, _ := excelize.CoordinatesToCellName(c.Col, c.Row)
		if c.IsFormula() {
			err = f.SetCellFormula(sheet, cell, c.Formula)
		} else {
			err = f.SetCellValue(sheet, cell, c.Value)
		}
		if err != nil {
			t.Fatalf("write %s: %v", cell, err)
		}
	}

	expectValue(t, f, sheet, "A5", "№")
	expectValue(t, f, sheet, "B8", "Sugar")
	expectValue(t, f, sheet, "B9", "Итого")
	expectFormula(t, f, sheet, "J9", "SUM(J6:J8)")
	expectValue(t, f, sheet, "A11", "Технология")
	expectValue(t, f, sheet, "B13", "Salt")
	expectValue(t, f, sheet, "B14", "Итого")
	expectFormula(t, f, sheet, "J14", "SUM(J13:J13)")
}

func expectValue(t *testing.T, f *excelize.File, sheet, cell, want string) {
	t.Helper()
	got, err := f.GetCellValue(sheet, cell)
	if err != nil {
		t.Fatalf("GetCellValue %s: %v", cell, err)
	}
	if got != want {
		t.Fatalf("%s=%q, want %q", cell, got, want)
	}
}

func expectFormula(t *testing.T, f *excelize.File, sheet, cell, want string) {
	t.Helper()
	got, err := f.GetCellFormula(sheet, cell)
	if err != nil {
		t.Fatalf("GetCellFormula %s: %v", cell, err)
	}
	if got != want {
		t.Fatalf("%s formula=%q, want %q", cell, got, want)
	}
}
