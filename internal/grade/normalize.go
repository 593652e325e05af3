// Package grade normalizes and scores free-text answers against reference
// strings with orthographic tolerance: macron folding, kana/katakana
// equivalence, and edit-distance partial credit.
package grade

import (
	"strings"
	"unicode"
)

// Keys are the canonical comparison forms of one input string.
type Keys struct {
	// Strict is the input casefolded, with macron vowels expanded to their
	// waapuro double-vowel digraphs and punctuation/whitespace stripped.
	Strict string
	// Folded is Strict with katakana code points mapped to hiragana, so
	// answers typed in either kana script compare equal.
	Folded string
}

// macron vowels expand to the double-vowel digraphs used for ASCII-only
// romaji input (tōkyō -> tookyoo).
var macrons = map[rune]string{
	'ā': "aa",
	'ī': "ii",
	'ū': "uu",
	'ē': "ee",
	'ō': "oo",
}

// Canonical builds both comparison keys for s. It is a pure function and
// idempotent: Canonical(k.Strict).Strict == k.Strict.
func Canonical(s string) Keys {
	strict := stripNoise(expandMacrons(strings.ToLower(s)))
	return Keys{Strict: strict, Folded: foldKatakana(strict)}
}

func expandMacrons(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if expanded, ok := macrons[r]; ok {
			b.WriteString(expanded)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripNoise removes whitespace and punctuation, including the Japanese
// sentence marks 。、！？ (all classified as punctuation). Characters outside
// the kana/Latin ranges pass through untouched so they stay comparable.
func stripNoise(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// The katakana block ァ..ヶ sits 0x60 above its hiragana counterpart.
const (
	katakanaFirst = 'ァ'
	katakanaLast  = 'ヶ'
	kanaOffset    = 0x60
)

// foldKatakana maps katakana to their hiragana equivalents. The long-vowel
// mark ー has no hiragana counterpart and is kept as-is.
func foldKatakana(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= katakanaFirst && r <= katakanaLast {
			r -= kanaOffset
		}
		b.WriteRune(r)
	}
	return b.String()
}

// equalWithLongVowel compares two canonical keys treating the "ou" and "oo"
// spellings of a long o as interchangeable. This is an equality check only,
// never a rewrite, so diffs still show the literal difference.
func equalWithLongVowel(a, b string) bool {
	if a == b {
		return true
	}
	return foldLongO(a) == foldLongO(b)
}

func foldLongO(s string) string {
	return strings.ReplaceAll(s, "oo", "ou")
}
