package answer

import "github.com/fivebomber/backend/go/internal/textnorm"

// Result describes the outcome of matching a raw answer against a question's
// accepted answers. Matching never fails; an unmatched input simply comes
// back with IsCorrect false.
type Result struct {
	IsCorrect        bool
	MatchedCanonical string
	NormalizedInput  string
}

// Match checks rawInput against the canonical answers first, then against
// each canonical answer's acceptable variations. Comparison is on the
// normalized, kana-folded form. The exact pass always wins: even when a
// variation configured under one canonical answer collides with a different
// canonical answer, the tie breaks by canonical-list order, never by the
// variation config. Empty input or an empty canonical list is never correct.
func Match(rawInput string, canonicalAnswers []string, variations map[string][]string) Result {
	normalized := textnorm.Normalize(rawInput)
	if normalized == "" || len(canonicalAnswers) == 0 {
		return Result{NormalizedInput: normalized}
	}

	folded := fold(normalized)

	for _, canonical := range canonicalAnswers {
		if folded == fold(textnorm.Normalize(canonical)) {
			return Result{
				IsCorrect:        true,
				MatchedCanonical: canonical,
				NormalizedInput:  normalized,
			}
		}
	}

	for _, canonical := range canonicalAnswers {
		for _, variation := range variations[canonical] {
			if folded == fold(textnorm.Normalize(variation)) {
				return Result{
					IsCorrect:        true,
					MatchedCanonical: canonical,
					NormalizedInput:  normalized,
				}
			}
		}
	}

	return Result{NormalizedInput: normalized}
}

// fold makes the comparison insensitive to the hiragana/katakana distinction.
func fold(s string) string {
	return textnorm.ToHiragana(s)
}
