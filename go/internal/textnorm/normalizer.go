package textnorm

import "strings"

// Normalize canonicalizes free-form answer input: surrounding whitespace is
// trimmed, full-width ASCII is converted to half-width, internal whitespace
// runs collapse to a single space, and the result is lower-cased.
// Normalize is idempotent and safe for concurrent use; empty input yields
// an empty string.
func Normalize(text string) string {
	normalized := strings.TrimSpace(text)
	normalized = ToHalfWidth(normalized)
	normalized = strings.Join(strings.Fields(normalized), " ")
	return strings.ToLower(normalized)
}

// ToHiragana converts katakana runes (U+30A1..U+30F6) to their hiragana
// counterparts. All other runes pass through untouched.
func ToHiragana(text string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x30A1 && r <= 0x30F6 {
			return r - 0x60
		}
		return r
	}, text)
}

// ToKatakana converts hiragana runes (U+3041..U+3096) to their katakana
// counterparts. All other runes pass through untouched.
func ToKatakana(text string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x3041 && r <= 0x3096 {
			return r + 0x60
		}
		return r
	}, text)
}

// ToHalfWidth converts full-width ASCII letters, digits and punctuation
// (U+FF01..U+FF5E) to their half-width equivalents.
func ToHalfWidth(text string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0xFF01 && r <= 0xFF5E {
			return r - 0xFEE0
		}
		return r
	}, text)
}
