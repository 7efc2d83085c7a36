// Package resolver 把自由文本的配料名解析到台账记录。
//
// 解析顺序固定，先命中者胜：手工映射 → 精确 → 去掉半成品前缀后精确 → 首词精确 → 前缀/子串模糊。
// 模糊匹配按台账顺序取第一个，不做打分。
package resolver

import (
	"strings"

	"restodocks/internal/model"
)

type entry struct {
	key    string
	record model.LedgerRecord
}

// Resolver 名称解析器；构建后只读
type Resolver struct {
	overrides    model.OverrideCatalog
	entries      []entry
	index        map[string]int
	semiFinished string
	observe      func(model.ResolutionRule)
}

// Option 解析器选项
type Option func(*Resolver)

// WithSemiFinishedPrefix 设置半成品前缀（默认 "пф"）
func WithSemiFinishedPrefix(prefix string) Option {
	return func(r *Resolver) {
		r.semiFinished = Normalize(prefix)
	}
}

// WithObserver 每次解析后回调命中规则（用于指标统计）
func WithObserver(fn func(model.ResolutionRule)) Option {
	return func(r *Resolver) {
		r.observe = fn
	}
}

// New 基于有序记录创建解析器
//
// 多条记录规范化后同名时，索引指向台账中靠前的那条。
func New(overrides model.OverrideCatalog, records []model.LedgerRecord, opts ...Option) *Resolver {
	r := &Resolver{
		overrides:    make(model.OverrideCatalog, len(overrides)),
		entries:      make([]entry, 0, len(records)),
		index:        make(map[string]int, len(records)),
		semiFinished: "пф",
	}
	for k, v := range overrides {
		r.overrides[Normalize(k)] = v
	}
	for _, rec := range records {
		key := Normalize(rec.Name)
		if key == "" {
			continue
		}
		r.entries = append(r.entries, entry{key: key, record: rec})
		if _, ok := r.index[key]; !ok {
			r.index[key] = len(r.entries) - 1
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromLedger 以台账为查找面创建解析器
func FromLedger(overrides model.OverrideCatalog, ledger *model.CanonicalLedger, opts ...Option) *Resolver {
	records := make([]model.LedgerRecord, 0, len(ledger.Records))
	for _, rec := range ledger.Records {
		records = append(records, *rec)
	}
	return New(overrides, records, opts...)
}

// Len 查找面条目数
func (r *Resolver) Len() int {
	return len(r.entries)
}

// Resolve 解析配料名
func (r *Resolver) Resolve(rawName string) model.Resolution {
	res := r.resolve(rawName)
	if r.observe != nil {
		r.observe(res.Rule)
	}
	return res
}

func (r *Resolver) resolve(rawName string) model.Resolution {
	name := Normalize(rawName)
	if name == "" {
		return model.Unresolved()
	}

	if e, ok := r.overrides[name]; ok {
		return model.Resolution{Record: e.Record(name), Rule: model.RuleOverride, Resolved: true, Override: &e}
	}

	if rec, ok := r.exact(name); ok {
		return model.Resolution{Record: rec, Rule: model.RuleExact, Resolved: true}
	}

	if r.semiFinished != "" {
		if stripped, ok := strings.CutPrefix(name, r.semiFinished+" "); ok {
			if rec, ok := r.exact(strings.TrimSpace(stripped)); ok {
				return model.Resolution{Record: rec, Rule: model.RuleSemiFinished, Resolved: true}
			}
		}
	}

	first := FirstToken(name)
	if rec, ok := r.exact(first); ok {
		return model.Resolution{Record: rec, Rule: model.RuleFirstToken, Resolved: true}
	}

	// «анчоус» → «анчоусы», «говядина» → «говядина вырезка»
	for _, e := range r.entries {
		if strings.Contains(e.key, first) {
			return model.Resolution{Record: e.record, Rule: model.RuleFuzzy, Resolved: true}
		}
	}
	for _, e := range r.entries {
		if strings.HasPrefix(e.key, name) || strings.HasPrefix(name, e.key) {
			return model.Resolution{Record: e.record, Rule: model.RuleFuzzy, Resolved: true}
		}
	}

	return model.Unresolved()
}

func (r *Resolver) exact(key string) (model.LedgerRecord, bool) {
	i, ok := r.index[key]
	if !ok {
		return model.LedgerRecord{}, false
	}
	return r.entries[i].record, true
}
