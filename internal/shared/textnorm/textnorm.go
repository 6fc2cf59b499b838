// Package textnorm folds free text for lexicon matching.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips combining marks, so "Córdoba" and
// "cordoba" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// WordPattern turns a lexicon term into a regular expression that only
// matches on word boundaries. Inner whitespace matches any run of spaces.
// Boundaries are skipped on sides that start or end with a non-word rune
// (emoji, punctuation) since \b cannot anchor there.
func WordPattern(term string) string {
	fields := strings.Fields(Fold(term))
	if len(fields) == 0 {
		return ""
	}
	body := strings.Join(lo.Map(fields, func(f string, _ int) string {
		return regexp.QuoteMeta(f)
	}), `\s+`)

	first := fields[0]
	last := fields[len(fields)-1]
	if isWordByte(first[0]) {
		body = `\b` + body
	}
	if isWordByte(last[len(last)-1]) {
		body += `\b`
	}
	return body
}

// CompileTerm compiles a single lexicon term. Empty terms yield nil.
func CompileTerm(term string) *regexp.Regexp {
	p := WordPattern(term)
	if p == "" {
		return nil
	}
	return regexp.MustCompile(p)
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
