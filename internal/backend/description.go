package backend

import (
	"strings"
	"unicode"
)

const maxDescriptionLen = 1000

// DirectionalDescription reduces a stop description to its travel direction,
// e.g. "Near side of Park St, westbound toward Capitol" becomes "Westbound".
// Descriptions without a "bound" word are returned trimmed and capitalized.
func DirectionalDescription(desc string) string {
	if desc == "" {
		return ""
	}

	result := desc
	if i := indexBound(desc); i >= 0 {
		start := i
		for start > 0 && desc[start-1] != ' ' {
			start--
		}
		result = desc[start:]
	}

	result = strings.TrimSpace(result)
	if result == "" {
		return ""
	}

	runes := []rune(result)
	runes[0] = unicode.ToUpper(runes[0])

	switch runes[0] {
	case 'E', 'W':
		runes = runes[:min(len(runes), 9)]
	case 'N', 'S':
		runes = runes[:min(len(runes), 10)]
	}

	if len(runes) > maxDescriptionLen {
		return strings.TrimRightFunc(string(runes[:maxDescriptionLen]), unicode.IsSpace) + "…"
	}
	return string(runes)
}

// indexBound finds "bound" ignoring ASCII case, as a byte offset into s.
func indexBound(s string) int {
	const word = "bound"
	for i := 0; i+len(word) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(word)], word) {
			return i
		}
	}
	return -1
}
