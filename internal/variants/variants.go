// Package variants expands a raw search query into alternate spellings:
// keyboard-layout conversions, phonetic transliterations, and a punctuation
// stripped normal form. The expansion is pure and deterministic; it widens
// recall for the relational fallback, it is not a spellchecker.
package variants

import (
	"strings"
	"unicode"
)

// The two keyboard layouts, position-aligned. Typing the Cyrillic word for
// "cable" with the Latin layout active yields "rf,tkm"; mapping each rune
// through these alphabets recovers the intended spelling.
const (
	latinLayout    = `qwertyuiop[]asdfghjkl;'zxcvbnm,.`
	cyrillicLayout = `йцукенгшщзхъфывапролджэячсмитьбю`
)

// translitTable maps lowercased Cyrillic to Latin phonetic equivalents.
// Multi-rune targets are allowed.
var translitTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "e", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "j", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "c", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
}

// reverseTranslitTable maps single Latin letters back to Cyrillic. It is
// intentionally lossy: digraphs produced by the forward table are not
// reconstructed.
var reverseTranslitTable = map[rune]rune{
	'a': 'а', 'b': 'б', 'c': 'ц', 'd': 'д', 'e': 'е',
	'f': 'ф', 'g': 'г', 'h': 'х', 'i': 'и', 'j': 'й',
	'k': 'к', 'l': 'л', 'm': 'м', 'n': 'н', 'o': 'о',
	'p': 'п', 'q': 'к', 'r': 'р', 's': 'с', 't': 'т',
	'u': 'у', 'v': 'в', 'w': 'в', 'x': 'х', 'y': 'у',
	'z': 'з',
}

var (
	latinToCyrillic = buildLayoutMap(latinLayout, cyrillicLayout)
	cyrillicToLatin = buildLayoutMap(cyrillicLayout, latinLayout)
)

func buildLayoutMap(from, to string) map[rune]rune {
	src := []rune(from)
	dst := []rune(to)
	m := make(map[rune]rune, len(src))
	for i := range src {
		m[src[i]] = dst[i]
	}
	return m
}

// Generate expands query into an ordered set of unique non-empty variants.
// The original query is always the first element. Deduplication is
// exact-string.
func Generate(query string) []string {
	out := []string{query}
	seen := map[string]struct{}{query: {}}

	push := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	push(SwitchLayout(query))
	push(Transliterate(query))
	push(ReverseTransliterate(query))
	push(NormalizeCode(query))

	return out
}

// SwitchLayout converts query between the two keyboard layouts. The
// Latin-to-Cyrillic direction is tried first; the first conversion that
// changes the string wins. Returns "" when neither direction changes it.
func SwitchLayout(query string) string {
	lowered := strings.ToLower(query)
	if v := mapLayout(lowered, latinToCyrillic); v != lowered {
		return v
	}
	if v := mapLayout(lowered, cyrillicToLatin); v != lowered {
		return v
	}
	return ""
}

func mapLayout(s string, table map[rune]rune) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if mapped, ok := table[r]; ok {
			b.WriteRune(mapped)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Transliterate converts query into a Latin phonetic spelling after
// lowercasing. Runes without a table entry pass through unchanged.
func Transliterate(query string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(query) {
		if sub, ok := translitTable[r]; ok {
			b.WriteString(sub)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ReverseTransliterate converts query into a Cyrillic spelling after
// lowercasing, one rune at a time.
func ReverseTransliterate(query string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(query) {
		if sub, ok := reverseTranslitTable[r]; ok {
			b.WriteRune(sub)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCode strips every rune outside [A-Za-z0-9] and the Cyrillic
// letters, so article codes match regardless of punctuation ("ВА47-29" and
// "ВА 47 29" normalize identically).
func NormalizeCode(query string) string {
	var b strings.Builder
	for _, r := range query {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.Is(unicode.Cyrillic, r):
			b.WriteRune(r)
		}
	}
	return b.String()
}
