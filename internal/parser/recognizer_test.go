package parser

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestSheetRecognizer_CardsAndFlat(t *testing.T) {
	t.Parallel()

	r := NewSheetRecognizer([]string{"№", "#"}, "Ингридиент")

	cards := Snapshot{Name: "Карточки Кухня", Rows: [][]string{
		{"Борщ"},
		{"№", "Ингридиент", "Ед", "Шт/гр"},
		{"1", "Свекла", "гр", "120"},
		{"2", "Капуста", "гр", "80"},
		{},
		{"#", "Ингридиент"},
		{"1", "Соль"},
	}}
	got := r.Recognize(cards)
	if got.Kind != SheetKindBlocks {
		t.Fatalf("cards kind=%s, want %s", got.Kind, SheetKindBlocks)
	}
	if len(got.HeaderRows) != 2 || got.HeaderRows[0] != 2 || got.HeaderRows[1] != 6 {
		t.Fatalf("unexpected header rows: %v", got.HeaderRows)
	}
	if got.NumberedRow != 3 {
		t.Fatalf("numbered rows=%d, want 3", got.NumberedRow)
	}

	flat := Snapshot{Name: "ПФ", Rows: [][]string{
		{"ПФ"},
		{"Название", "Продукт", "Брутто"},
		{"", "Мука", "100"},
	}}
	if got := r.Recognize(flat); got.Kind != SheetKindFlat {
		t.Fatalf("flat kind=%s, want %s", got.Kind, SheetKindFlat)
	}

	if got := r.Recognize(Snapshot{Name: "empty"}); got.Kind != SheetKindUnknown {
		t.Fatalf("empty kind=%s, want %s", got.Kind, SheetKindUnknown)
	}
}

func TestReadSheetKeepsRawNumbers(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	if err := f.SetCellValue("Sheet1", "A1", 1); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "Соль"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}

	if !HasSheet(f, "Sheet1") || HasSheet(f, "missing") {
		t.Fatalf("HasSheet mismatch")
	}

	snap, err := ReadSheet(f, "Sheet1")
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if snap.Cell(1, 1) != "1" || snap.Cell(1, 2) != "Соль" {
		t.Fatalf("unexpected row: %v", snap.Rows)
	}
}
