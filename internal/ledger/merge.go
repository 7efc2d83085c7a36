package ledger

import (
	"slices"
	"strings"

	"restodocks/internal/model"
	"restodocks/internal/parser"
)

// Collector 收集配料块中引用到的名称（去首尾空白、去重）
type Collector struct {
	maxRow int
	names  map[string]struct{}
}

// NewCollector maxRow<=0 表示不限制扫描行
func NewCollector(maxRow int) *Collector {
	return &Collector{maxRow: maxRow, names: make(map[string]struct{})}
}

// Add 收集一个块中的名称
func (c *Collector) Add(s parser.Snapshot, block model.IngredientBlock, nameCol int) {
	last := block.LastDataRow
	if c.maxRow > 0 && last > c.maxRow {
		last = c.maxRow
	}
	for row := block.FirstDataRow; row <= last; row++ {
		name := parser.NormalizeLabel(s.Cell(row, nameCol))
		if name != "" {
			c.names[name] = struct{}{}
		}
	}
}

// Names 已收集的名称（升序）
func (c *Collector) Names() []string {
	out := make([]string, 0, len(c.names))
	for name := range c.names {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// MergeMissing 把台账中没有的名称追加到台账末尾
//
// 比较使用去首尾空白后的原样字符串，不做规范化；skip 中的词（不区分大小写）不追加。
// 新记录按名称升序，编号从现有最大编号之后连续递增，价格与 КБЖУ 为空。
// 追加后的记录同时加入 ledger，所以对同一输入再次合并不会产生新记录。
func MergeMissing(referenced []string, ledger *model.CanonicalLedger, skip []string) []model.LedgerRecord {
	stop := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		stop[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	existing := ledger.Names()

	missing := make([]string, 0)
	seen := make(map[string]struct{})
	for _, raw := range referenced {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := stop[strings.ToLower(name)]; ok {
			continue
		}
		if _, ok := existing[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		missing = append(missing, name)
	}
	slices.Sort(missing)

	nextID := ledger.MaxID() + 1
	nextRow := ledger.LastRow() + 1
	out := make([]model.LedgerRecord, 0, len(missing))
	for i, name := range missing {
		rec := model.LedgerRecord{ID: nextID + i, Row: nextRow + i, Name: name}
		out = append(out, rec)
		ledger.Records = append(ledger.Records, &rec)
	}
	return out
}
