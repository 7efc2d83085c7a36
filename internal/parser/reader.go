package parser

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// HasSheet 工作簿中是否存在该 sheet
func HasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// ReadSheet 读取 sheet 的原始值快照（不做数字格式化）
func ReadSheet(f *excelize.File, name string) (Snapshot, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Snapshot{}, fmt.Errorf("读取 Sheet %s 失败: %w", name, err)
	}
	return Snapshot{Name: name, Rows: rows}, nil
}
