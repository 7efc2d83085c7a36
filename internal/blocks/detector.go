// Package blocks 在无固定结构的 sheet 中识别配料块。
package blocks

import (
	"iter"
	"slices"

	"restodocks/internal/model"
	"restodocks/internal/parser"
)

// Blocks 返回 sheet 中按表头行升序排列的配料块序列
//
// 序列是快照的纯函数：可重复遍历，各消费方互不共享扫描状态。
// 块从表头下一行开始，遇到下列任一情况结束：下一个表头、A/B 两列均为空的行、A 列不是整数的行。
// A 列为整数但名称为空的行仍属于块。
func Blocks(s parser.Snapshot, rec *parser.SheetRecognizer) iter.Seq[model.IngredientBlock] {
	return func(yield func(model.IngredientBlock) bool) {
		row := 1
		for row <= s.MaxRow() {
			if !rec.IsHeader(s.Cell(row, 1), s.Cell(row, 2)) {
				row++
				continue
			}

			header := row
			end := header + 1
			for end <= s.MaxRow() {
				a, b := s.Cell(end, 1), s.Cell(end, 2)
				if parser.IsBlank(a) && parser.IsBlank(b) {
					break
				}
				if rec.IsHeader(a, b) {
					break
				}
				if _, ok := parser.ParseWholeNumber(a); !ok {
					break
				}
				end++
			}

			block := model.IngredientBlock{
				Sheet:        s.Name,
				HeaderRow:    header,
				FirstDataRow: header + 1,
				LastDataRow:  end - 1,
			}
			if !yield(block) {
				return
			}
			row = end
		}
	}
}

// Detect 收集 sheet 中全部配料块
func Detect(s parser.Snapshot, rec *parser.SheetRecognizer) []model.IngredientBlock {
	return slices.Collect(Blocks(s, rec))
}

// Flat 平表：从 firstDataRow 到最后一行视为一个隐式块
func Flat(s parser.Snapshot, firstDataRow int) model.IngredientBlock {
	if firstDataRow < 1 {
		firstDataRow = 1
	}
	last := s.MaxRow()
	if last < firstDataRow-1 {
		last = firstDataRow - 1
	}
	return model.IngredientBlock{
		Sheet:        s.Name,
		HeaderRow:    firstDataRow - 1,
		FirstDataRow: firstDataRow,
		LastDataRow:  last,
	}
}

// Names 遍历块中名称非空的数据行，返回 (行号, 去首尾空白的名称)
func Names(s parser.Snapshot, block model.IngredientBlock, nameCol int) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for row := block.FirstDataRow; row <= block.LastDataRow; row++ {
			name := parser.NormalizeLabel(s.Cell(row, nameCol))
			if name == "" {
				continue
			}
			if !yield(row, name) {
				return
			}
		}
	}
}
