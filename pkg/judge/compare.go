package judge

import (
	"strconv"
	"strings"
)

// floatTolerance is the absolute tolerance used when both outputs parse as a
// single float.
const floatTolerance = 1e-6

// OutputsMatch compares program output against the expected output using
// three normalizations, in order:
//  1. exact match after line-ending normalization and trailing-space trim
//  2. whitespace-collapsed match
//  3. numeric comparison with 1e-6 tolerance when both sides are one float
func OutputsMatch(got, expected string) bool {
	if normalizeLines(got) == normalizeLines(expected) {
		return true
	}
	if collapseWhitespace(got) == collapseWhitespace(expected) {
		return true
	}
	return floatsMatch(got, expected)
}

// normalizeLines converts CRLF to LF and trims trailing whitespace per line
// plus trailing blank lines.
func normalizeLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	out := strings.Join(lines, "\n")
	return strings.TrimRight(out, "\n")
}

// collapseWhitespace joins all whitespace-separated tokens with single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// floatsMatch reports whether both strings parse as exactly one float within
// tolerance of each other.
func floatsMatch(got, expected string) bool {
	gf := strings.Fields(got)
	ef := strings.Fields(expected)
	if len(gf) != 1 || len(ef) != 1 {
		return false
	}
	g, err1 := strconv.ParseFloat(gf[0], 64)
	e, err2 := strconv.ParseFloat(ef[0], 64)
	if err1 != nil || err2 != nil {
		return false
	}
	diff := g - e
	if diff < 0 {
		diff = -diff
	}
	return diff <= floatTolerance
}
