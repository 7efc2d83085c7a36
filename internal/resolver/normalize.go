package resolver

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize 规范化配料名：NFC、去首尾空白、小写、压缩内部空白
//
// 不做去重音处理（ё 与 е 仍然不同）。
func Normalize(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// FirstToken 第一个空白分隔的词；空串返回 ""
func FirstToken(normalized string) string {
	if i := strings.IndexByte(normalized, ' '); i >= 0 {
		return normalized[:i]
	}
	return normalized
}
