package parser

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeLabel 规范化表头文本：去除首尾空白与换行、制表符
func NormalizeLabel(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\t", "")
	return name
}

// IsBlank 单元格是否为空（仅含空白也视为空）
func IsBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}

// ParseNumber 解析数值单元格，兼容千分位空格与逗号小数点
func ParseNumber(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, "\u00a0", "")
	if strings.Count(v, ",") == 1 && !strings.Contains(v, ".") {
		v = strings.Replace(v, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseWholeNumber 单元格是否为整数（1 与 1.0 均可）
func ParseWholeNumber(v string) (int, bool) {
	f, ok := ParseNumber(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// MatchesAny 规范化后是否等于任意一个候选
func MatchesAny(text string, candidates []string) bool {
	text = NormalizeLabel(text)
	for _, c := range candidates {
		if text == NormalizeLabel(c) {
			return true
		}
	}
	return false
}
