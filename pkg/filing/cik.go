package filing

import (
	"strings"
)

// CIKLength is the fixed width of a canonical identifier.
const CIKLength = 10

// IsNumeric reports whether s is a non-empty run of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PadCIK left-pads a numeric identifier with zeros to CIKLength. Longer
// input is returned unchanged.
func PadCIK(cik string) string {
	if len(cik) >= CIKLength {
		return cik
	}
	return strings.Repeat("0", CIKLength-len(cik)) + cik
}

// TrimCIK strips leading zeros, as archive document paths expect.
// Trailing zeros are significant and kept.
func TrimCIK(cik string) string {
	trimmed := strings.TrimLeft(cik, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
