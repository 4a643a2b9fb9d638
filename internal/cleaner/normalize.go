package cleaner

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// camelBoundary matches a lowercase ASCII letter directly followed by an
	// uppercase one. Pairs cannot overlap, so one pass finds every boundary.
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

	// conjunction matches "and" in any case. Word boundaries are checked by
	// ReplaceConjunction since \b only knows ASCII word characters.
	conjunction = regexp.MustCompile(`(?i)and`)
)

// NormalizeHostName cleans a host display name:
//
//	"  JohnAndMary " -> "John & Mary"
//	"ALICE and bob"  -> "Alice & Bob"
//
// Surrounding whitespace is trimmed, camel case is split, the word "and" becomes
// "&", and each whitespace-separated token is title-cased.
func NormalizeHostName(s string) string {
	s = strings.TrimSpace(s)
	s = SplitCamelCase(s)
	s = ReplaceConjunction(s)
	return TitleTokens(s)
}

// SplitCamelCase inserts a space wherever a lowercase letter is immediately
// followed by an uppercase letter. Everything else is left alone.
func SplitCamelCase(s string) string {
	return camelBoundary.ReplaceAllString(s, "$1 $2")
}

// ReplaceConjunction replaces every whole-word, case-insensitive "and" with "&".
// A word is bounded by anything other than a letter, digit or underscore in
// any script, so "Éand" and "andé" are left alone.
func ReplaceConjunction(s string) string {
	matches := conjunction.FindAllStringIndex(s, -1)
	if matches == nil {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		if !atWordStart(s, m[0]) || !atWordEnd(s, m[1]) {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString("&")
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func atWordStart(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func atWordEnd(s string, i int) bool {
	if i == len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// TitleTokens upper-cases the first letter of each whitespace-separated token
// and lower-cases the rest. Leading punctuation such as a quote does not count
// as the first letter. Whitespace runs are preserved as-is.
func TitleTokens(s string) string {
	lower := cases.Lower(language.Und)

	var b strings.Builder
	b.Grow(len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if unicode.IsSpace(r) {
			b.WriteString(s[:size])
			s = s[size:]
			continue
		}

		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			end = len(s)
		}
		b.WriteString(titleToken(s[:end], lower))
		s = s[end:]
	}

	return b.String()
}

func titleToken(tok string, lower cases.Caser) string {
	i := strings.IndexFunc(tok, unicode.IsLetter)
	if i < 0 {
		return lower.String(tok)
	}
	r, size := utf8.DecodeRuneInString(tok[i:])
	return tok[:i] + string(unicode.ToTitle(r)) + lower.String(tok[i+size:])
}
