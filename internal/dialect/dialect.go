// Package dialect 把 Apple Numbers 导出的跨表引用改写为 Google Sheets 语法。
//
//	Sheet 2::Table 1::B2  ->  'Sheet 2'!B2
//	Table 2::A1           ->  'Table 2'!A1
package dialect

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

var (
	sheetTableRef = regexp.MustCompile(`('[^']*'|[^:+\-*/(),]+)::([^:+\-*/(),]+)::`)
	tableRef      = regexp.MustCompile(`('[^']*'|[^:!+\-*/(),]+)::`)
)

// Convert 改写一条公式；没有 Numbers 引用时原样返回
func Convert(formula string) string {
	if !strings.Contains(formula, "::") {
		return formula
	}
	s := replace(sheetTableRef, formula)
	return replace(tableRef, s)
}

func replace(re *regexp.Regexp, s string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		b.WriteString(qualify(s[m[2]:m[3]]))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// qualify 把 "name" 变为 "name!"，必要时加单引号；名称前的运算符与空白原样保留
func qualify(part string) string {
	name := strings.TrimLeft(part, " \t=")
	prefix := part[:len(part)-len(name)]
	name = strings.TrimSpace(name)

	if strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") && len(name) > 1 {
		return prefix + name + "!"
	}
	if needsQuotes(name) {
		name = "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return prefix + name + "!"
}

// needsQuotes 含空白、以数字开头或含单引号的名称需要引号
func needsQuotes(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsFunc(name, unicode.IsSpace) || strings.Contains(name, "'") {
		return true
	}
	return unicode.IsDigit([]rune(name)[0])
}

// ConvertWorkbook 改写工作簿中全部公式，返回改写的单元格数
func ConvertWorkbook(f *excelize.File) (int, error) {
	total := 0
	for _, sheet := range f.GetSheetList() {
		n, err := convertSheet(f, sheet)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func convertSheet(f *excelize.File, sheet string) (int, error) {
	maxCol, maxRow, err := dimension(f, sheet)
	if err != nil {
		return 0, err
	}
	changed := 0
	for row := 1; row <= maxRow; row++ {
		for col := 1; col <= maxCol; col++ {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return changed, err
			}
			formula, err := f.GetCellFormula(sheet, cell)
			if err != nil {
				return changed, fmt.Errorf("read formula %s!%s: %w", sheet, cell, err)
			}
			if formula == "" {
				continue
			}
			converted := Convert(formula)
			if converted == formula {
				continue
			}
			if err := f.SetCellFormula(sheet, cell, converted); err != nil {
				return changed, fmt.Errorf("write formula %s!%s: %w", sheet, cell, err)
			}
			changed++
		}
	}
	return changed, nil
}

// dimension sheet 已用区域的右下角：取声明的区域与实际行数据中较大者
func dimension(f *excelize.File, sheet string) (int, int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0, fmt.Errorf("read rows %s: %w", sheet, err)
	}
	maxCol, maxRow := 0, len(rows)
	for _, r := range rows {
		maxCol = max(maxCol, len(r))
	}

	ref, err := f.GetSheetDimension(sheet)
	if err != nil {
		return 0, 0, fmt.Errorf("sheet dimension %s: %w", sheet, err)
	}
	if ref != "" {
		parts := strings.Split(ref, ":")
		if col, row, err := excelize.CellNameToCoordinates(parts[len(parts)-1]); err == nil {
			maxCol, maxRow = max(maxCol, col), max(maxRow, row)
		}
	}
	return maxCol, maxRow, nil
}
