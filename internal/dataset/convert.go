package dataset

// convert.go turns messy spreadsheet exports into clean header names and numbers.
//
// Handled artifacts:
//   - Excel formula prefixes (="value")
//   - stray surrounding quotes
//   - thousands separators and accounting negatives "(12.5)"
//   - the usual spellings of a missing value (NA, N/A, NaN, null, None)

import (
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a plain decimal number after cleanup.
// Matches integers, decimals, and scientific notation. "Inf" and "NaN" are
// deliberately not numbers here.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// missingTokens are compared after trimming and lowercasing.
var missingTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
}

// isMissing reports whether a cell holds no value.
func isMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// parseNumber converts a cell to float64. ok is false for missing or non-numeric cells.
func parseNumber(s string) (float64, bool) {
	s = CleanCell(s)
	if isMissing(s) {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "_", "")

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// CleanCell removes common CSV artifacts from a cell value:
// surrounding whitespace, an Excel formula prefix (="..."), and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
