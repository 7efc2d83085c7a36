package blocks

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"restodocks/internal/model"
	"restodocks/internal/parser"
)

func recognizer() *parser.SheetRecognizer {
	return parser.NewSheetRecognizer([]string{"№", "#"}, "Ингридиент")
}

func cardsSnapshot() parser.Snapshot {
	return parser.Snapshot{Name: "Карточки Кухня", Rows: [][]string{
		{"Борщ"}, // 1
		{"№", "Ингридиент", "Ед", "Шт/гр"}, // 2
		{"1", "Свекла", "гр", "120"},       // 3
		{"2", "Капуста", "гр", "80"},       // 4
		{"3", "", "гр", "5"},               // 5 名称为空仍属于块
		{},                                 // 6
		{"Технология: варить"},             // 7
		{"#", "Ингридиент"},                // 8
		{"1", "Соль"},                      // 9
		{"Итого"},                          // 10 非数字序号结束块
		{"№", "Ингридиент"},                // 11 空块
		{"№", "Ингридиент"},                // 12
		{"1.0", "Сахар"},                   // 13
	}}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	got := Detect(cardsSnapshot(), recognizer())
	want := []model.IngredientBlock{
		{Sheet: "Карточки Кухня", HeaderRow: 2, FirstDataRow: 3, LastDataRow: 5},
		{Sheet: "Карточки Кухня", HeaderRow: 8, FirstDataRow: 9, LastDataRow: 9},
		{Sheet: "Карточки Кухня", HeaderRow: 11, FirstDataRow: 12, LastDataRow: 11},
		{Sheet: "Карточки Кухня", HeaderRow: 12, FirstDataRow: 13, LastDataRow: 13},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Detect mismatch (-want +got):\n%s", diff)
	}
	if !got[2].Empty() || got[0].Len() != 3 {
		t.Fatalf("unexpected block sizes: %+v", got)
	}
}

func TestBlocksIsRestartable(t *testing.T) {
	t.Parallel()

	seq := Blocks(cardsSnapshot(), recognizer())
	var first, second []model.IngredientBlock
	for b := range seq {
		first = append(first, b)
	}
	for b := range seq {
		second = append(second, b)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second pass differs (-first +second):\n%s", diff)
	}

	// 提前退出不影响下一次遍历
	for range seq {
		break
	}
	count := 0
	for range seq {
		count++
	}
	if count != len(first) {
		t.Fatalf("count=%d, want %d", count, len(first))
	}
}

func TestDetectNoHeaders(t *testing.T) {
	t.Parallel()

	s := parser.Snapshot{Name: "x", Rows: [][]string{{"1", "Соль"}, {"2", "Мука"}}}
	if got := Detect(s, recognizer()); len(got) != 0 {
		t.Fatalf("expected no blocks, got %+v", got)
	}
}

func TestDetectHeaderAtLastRow(t *testing.T) {
	t.Parallel()

	s := parser.Snapshot{Name: "x", Rows: [][]string{{"№", "Ингридиент"}}}
	got := Detect(s, recognizer())
	if len(got) != 1 || !got[0].Empty() || got[0].HeaderRow != 1 {
		t.Fatalf("unexpected blocks: %+v", got)
	}
}

func TestFlat(t *testing.T) {
	t.Parallel()

	s := parser.Snapshot{Name: "ПФ", Rows: [][]string{
		{"ПФ"},
		{"Название", "Продукт"},
		{"", "Мука"},
		{"", "Соль"},
	}}
	got := Flat(s, 3)
	want := model.IngredientBlock{Sheet: "ПФ", HeaderRow: 2, FirstDataRow: 3, LastDataRow: 4}
	if got != want {
		t.Fatalf("Flat=%+v, want %+v", got, want)
	}

	empty := Flat(parser.Snapshot{Name: "ПФ"}, 3)
	if !empty.Empty() {
		t.Fatalf("expected empty block, got %+v", empty)
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	s := cardsSnapshot()
	block := model.IngredientBlock{Sheet: s.Name, HeaderRow: 2, FirstDataRow: 3, LastDataRow: 5}

	var rows []int
	var names []string
	for row, name := range Names(s, block, 2) {
		rows = append(rows, row)
		names = append(names, name)
	}
	if diff := cmp.Diff([]int{3, 4}, rows); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Свекла", "Капуста"}, names); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
}
