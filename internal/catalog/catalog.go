// Package catalog 读取手工映射与外部 КБЖУ 目录。
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"restodocks/internal/model"
	"restodocks/internal/resolver"
)

// LoadOverrides 读取手工映射文件（.json / .yaml / .yml）
//
// 文件内容为 名称 -> {price, calories, protein, fat, carbs}。path 为空或文件不存在时返回空映射。
func LoadOverrides(path string) (model.OverrideCatalog, error) {
	out := model.OverrideCatalog{}
	if path == "" {
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("read overrides %s: %w", path, err)
	}

	raw := map[string]model.OverrideEntry{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse overrides %s: %w", path, err)
	}
	for name, entry := range raw {
		key := resolver.Normalize(name)
		if key == "" {
			continue
		}
		out[key] = entry
	}
	return out, nil
}

// item 外部目录中的一条产品
type item struct {
	Name     string            `json:"name"`
	Names    map[string]string `json:"names"`
	Calories *float64          `json:"calories"`
	Kcal     *float64          `json:"kcal"`
	Protein  *float64          `json:"protein"`
	Fat      *float64          `json:"fat"`
	Carbs    *float64          `json:"carbs"`
}

func (it item) calories() (float64, bool) {
	switch {
	case it.Calories != nil && *it.Calories != 0:
		return *it.Calories, true
	case it.Kcal != nil:
		return *it.Kcal, true
	}
	return 0, false
}

// LoadNutrition 依次读取多个 JSON 目录，返回按出现顺序排列的记录
//
// 每个条目以 name 与 names.ru 两个名称登记；calories 为 0 时取 kcal，两者都缺的条目跳过。
// 同一规范化名称先出现者优先；不存在的文件跳过。
func LoadNutrition(paths ...string) ([]model.LedgerRecord, error) {
	var out []model.LedgerRecord
	seen := make(map[string]struct{})
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var items []item
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}

		for _, it := range items {
			cal, ok := it.calories()
			if !ok {
				continue
			}
			n := &model.Nutrition{
				Calories: cal,
				Protein:  deref(it.Protein),
				Fat:      deref(it.Fat),
				Carbs:    deref(it.Carbs),
			}
			for _, name := range []string{it.Name, it.Names["ru"]} {
				name = strings.TrimSpace(name)
				key := resolver.Normalize(name)
				if key == "" {
					continue
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, model.LedgerRecord{Name: name, Nutrition: n})
			}
		}
	}
	return out, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
