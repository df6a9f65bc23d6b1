package services

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalises text for matching: NFKC, trimmed, single-spaced,
// lower-cased and naively singularised. A trailing "s" is stripped when the
// result is longer than three characters, unless it follows another "s" or a
// space, which keeps Normalize idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = norm.NFKC.String(strings.ToLower(s))
	s = strings.Join(strings.Fields(s), " ")
	return singularize(s)
}

func singularize(s string) string {
	if utf8.RuneCountInString(s) <= 3 || !strings.HasSuffix(s, "s") {
		return s
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:len(s)-1])
	if prev == 's' || prev == ' ' {
		return s
	}
	return s[:len(s)-1]
}
