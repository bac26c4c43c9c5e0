package utils

import (
	"regexp"
	"strings"
)

// regionalPlatePattern matches the Mercosul shape: three letters, one digit,
// one letter-or-digit, two digits (e.g. ABC1D23, XYZ9999).
var regionalPlatePattern = regexp.MustCompile(`[A-Z]{3}[0-9][A-Z0-9][0-9]{2}`)

// minFallbackLen is the shortest cleaned text accepted when no regional-shape
// substring is present.
const minFallbackLen = 7

// NormalizePlate turns raw recognized text into a canonical plate code.
// The text is uppercased and stripped of everything outside [A-Z0-9]; the
// leftmost regional-shape substring wins, otherwise the cleaned text is
// returned verbatim when it is at least seven characters long. An empty
// return means no plate was read — that is the expected result for OCR
// noise, not an error.
//
// Leftmost matching means OCR artifacts prepended to a valid plate can shift
// the match; callers accept that trade-off.
func NormalizePlate(raw string) string {
	cleaned := stripNonAlnum(strings.ToUpper(raw))
	if cleaned == "" {
		return ""
	}
	if m := regionalPlatePattern.FindString(cleaned); m != "" {
		return m
	}
	if len(cleaned) >= minFallbackLen {
		return cleaned
	}
	return ""
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
