package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText 小写、去空白、去首尾引号并去除变音符号（"Início" → "inicio"）
func foldText(s string) string {
	s = strings.ToLower(cleanCell(s))
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// cleanCell 去除首尾空白及包裹的单/双引号
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if s[0] == '"' || s[0] == '\'' {
		s = s[1:]
	}
	if n := len(s); n > 0 && (s[n-1] == '"' || s[n-1] == '\'') {
		s = s[:n-1]
	}
	return strings.TrimSpace(s)
}

// collapseSpaces 合并连续空白
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
