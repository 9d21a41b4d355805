package splitting

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// NormalizeTitle lowercases a contract title and strips everything except
// letters, numbers, and spaces, collapsing runs of whitespace. Titles are
// normalized once per record before any pairwise comparison.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(title) {
		if unicode.IsLetter(c) || unicode.IsNumber(c) || unicode.IsSpace(c) {
			b.WriteRune(c)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TitleSimilarity returns the SequenceMatcher ratio of two normalized titles,
// compared character by character. The ratio is in [0, 1]; two empty strings
// are fully similar.
func TitleSimilarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
