package services

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Similarity scores two slugs in [0, 1]. It is the better of a sequence
// ratio on the raw slugs and on their token-sorted forms, so that word
// order differences ("north-24-parganas" / "24-parganas-north") score 1.
func Similarity(a, b string) float64 {
	direct := sequenceRatio(a, b)
	if direct == 1 {
		return direct
	}
	sorted := sequenceRatio(tokenSort(a), tokenSort(b))
	if sorted > direct {
		return sorted
	}
	return direct
}

// sequenceRatio is 2*LCS/(len(a)+len(b)) counted in runes.
func sequenceRatio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchr.LongestCommonSubsequence(a, b)) / float64(total)
}

func tokenSort(s string) string {
	tokens := strings.Split(s, "-")
	sort.Strings(tokens)
	return strings.Join(tokens, "-")
}

// Slug lowercases s, trims it, and joins its words with hyphens. Anything
// that is not a letter or digit separates words.
func Slug(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(s)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, "-")
}
