// Package sanitize cleans extracted text before persistence.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Clean strips control, null, and private-use code points from s, applies
// NFC normalization, normalizes line endings, and collapses excess blank
// lines. Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r == 0 || unicode.IsControl(r):
			// dropped
		case unicode.In(r, unicode.Co):
			// private use, dropped
		case r == unicode.ReplacementChar:
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	// NFC runs after the strip: removing a code point can leave a base
	// letter adjacent to a combining mark that now composes.
	s = norm.NFC.String(b.String())

	s = collapseBlankLines(s)
	return strings.TrimSpace(s)
}

// collapseBlankLines reduces runs of three or more newlines to a single
// blank line and trims trailing spaces per line.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// Truncate cuts s to at most limit bytes without splitting a UTF-8
// sequence mid-rune.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
