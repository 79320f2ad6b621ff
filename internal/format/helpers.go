package format

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// BoolMark returns "✓" for true and "✗" for false.
func BoolMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}

// Score renders a gate score against its floor, e.g. "0.86 ≥ 0.78".
func Score(score, floor float64) string {
	op := "≥"
	if score < floor {
		op = "<"
	}
	return fmt.Sprintf("%.2f %s %.2f", score, op, floor)
}

// oneLine collapses newlines so multi-line text fits in a table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
