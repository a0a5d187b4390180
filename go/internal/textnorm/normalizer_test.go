package textnorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fivebomber/backend/go/internal/textnorm"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trims surrounding whitespace",
			input: "  tokyo  ",
			want:  "tokyo",
		},
		{
			name:  "lower-cases latin letters",
			input: "TOKYO",
			want:  "tokyo",
		},
		{
			name:  "converts full-width latin to half-width",
			input: "ＴＯＫＹＯ",
			want:  "tokyo",
		},
		{
			name:  "converts full-width digits and punctuation",
			input: "Ｎｏ．１",
			want:  "no.1",
		},
		{
			name:  "collapses internal whitespace runs",
			input: "new \t  york",
			want:  "new york",
		},
		{
			name:  "collapses ideographic spaces",
			input: "東京　　タワー",
			want:  "東京 タワー",
		},
		{
			name:  "leaves kana untouched",
			input: "とうきょう",
			want:  "とうきょう",
		},
		{
			name:  "empty input yields empty output",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace-only input yields empty output",
			input: " \t ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textnorm.Normalize(tt.input)
			assert.Equal(t, tt.want, got)

			// Normalizing twice must not change the result.
			assert.Equal(t, got, textnorm.Normalize(got))
		})
	}
}

func TestNormalizeFoldsWidthAndCase(t *testing.T) {
	assert.Equal(t, textnorm.Normalize("TOKYO"), textnorm.Normalize("ＴＯＫＹＯ"))
	assert.Equal(t, "tokyo", textnorm.Normalize("ＴＯＫＹＯ"))
}

func TestKanaConversion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		hiragana string
		katakana string
	}{
		{
			name:     "katakana word",
			input:    "トウキョウ",
			hiragana: "とうきょう",
			katakana: "トウキョウ",
		},
		{
			name:     "hiragana word",
			input:    "おおさか",
			hiragana: "おおさか",
			katakana: "オオサカ",
		},
		{
			name:     "mixed scripts leave non-kana untouched",
			input:    "東京タワー123",
			hiragana: "東京たわー123",
			katakana: "東京タワー123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hiragana, textnorm.ToHiragana(tt.input))
			assert.Equal(t, tt.katakana, textnorm.ToKatakana(tt.input))
		})
	}
}

func TestKanaRoundTrip(t *testing.T) {
	for _, input := range []string{"トウキョウ", "キョウト", "ヴ", "ァィゥェォ"} {
		assert.Equal(t, input, textnorm.ToKatakana(textnorm.ToHiragana(input)))
	}
	for _, input := range []string{"とうきょう", "きょうと", "ぁぃぅぇぉ"} {
		assert.Equal(t, input, textnorm.ToHiragana(textnorm.ToKatakana(input)))
	}
}
