package export

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxSheetName is Excel's limit on worksheet name length.
const MaxSheetName = 31

var forbidden = strings.NewReplacer(
	`\`, "_", "/", "_", "*", "_", "?", "_", ":", "_", "[", "_", "]", "_",
)

// CleanSheetName replaces the characters Excel rejects in sheet names,
// strips single quotes from both ends and falls back to "Sheet" for an
// empty result.
func CleanSheetName(s string) string {
	s = trimEnds(forbidden.Replace(s))
	if s == "" {
		return "Sheet"
	}
	return s
}

func trimEnds(s string) string {
	return strings.Trim(strings.TrimSpace(s), "' ")
}

// UniqueSheetName returns a cleaned, truncated name not present in existing.
// Collisions get "-1", "-2", ... appended within the length limit.
func UniqueSheetName(base string, existing map[string]bool) string {
	name := truncate(CleanSheetName(base), MaxSheetName)
	candidate := name
	for n := 1; existing[strings.ToLower(candidate)]; n++ {
		add := fmt.Sprintf("-%d", n)
		candidate = trimEnds(truncate(name, MaxSheetName-utf8.RuneCountInString(add))) + add
	}
	return candidate
}

// ReportSheetName builds "<base>-report-YYYYMM", keeping the suffix intact
// when the base has to be shortened, and makes it unique.
func ReportSheetName(base, yyyymm string, existing map[string]bool) string {
	suffix := "-report-" + yyyymm
	keep := MaxSheetName - utf8.RuneCountInString(suffix)
	return UniqueSheetName(truncate(CleanSheetName(base), keep)+suffix, existing)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimRight(string([]rune(s)[:n]), "'")
}
