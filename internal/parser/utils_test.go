package parser

import "testing"

func TestParseWholeNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{" 12 ", 12, true},
		{"3.0", 3, true},
		{"3,0", 3, true},
		{"2.5", 0, false},
		{"", 0, false},
		{"№", 0, false},
		{"NaN", 0, false},
		{"1 000", 1000, true},
	}
	for _, tc := range cases {
		got, ok := ParseWholeNumber(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseWholeNumber(%q)=%d,%v want %d,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseNumberCommaDecimal(t *testing.T) {
	t.Parallel()

	if got, ok := ParseNumber("12,5"); !ok || got != 12.5 {
		t.Fatalf("ParseNumber(12,5)=%v,%v", got, ok)
	}
	if _, ok := ParseNumber("abc"); ok {
		t.Fatalf("expected abc to be rejected")
	}
}

func TestMatchesAny(t *testing.T) {
	t.Parallel()

	if !MatchesAny(" № ", []string{"№", "#"}) {
		t.Fatalf("expected № to match")
	}
	if MatchesAny("No", []string{"№", "#"}) {
		t.Fatalf("unexpected match for No")
	}
}

func TestSnapshotCellOutOfRange(t *testing.T) {
	t.Parallel()

	s := Snapshot{Rows: [][]string{{"a", "b"}, {}}}
	if got := s.Cell(1, 2); got != "b" {
		t.Fatalf("Cell(1,2)=%q", got)
	}
	for _, rc := range [][2]int{{0, 1}, {2, 1}, {3, 1}, {1, 3}} {
		if got := s.Cell(rc[0], rc[1]); got != "" {
			t.Fatalf("Cell(%d,%d)=%q, want empty", rc[0], rc[1], got)
		}
	}
}
