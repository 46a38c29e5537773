package services

import (
	"regexp"
	"strings"
	"unicode"

	"potato-prices/models"
	"potato-prices/utils"
)

var (
	// parenRegexp matches bracketed qualifiers such as "(Rural)" or "[UP]".
	parenRegexp = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]`)
	// suffixRegexp matches administrative suffixes trailing a district name.
	suffixRegexp = regexp.MustCompile(`(?i)\s+(district|dist\.?|distt\.?|mandi|apmc)$`)
)

// Cleaner normalises raw rows before name resolution.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean tidies location text and drops rows that carry nothing: a blank
// location, or no price at all. Prices are left as reported.
func (c *Cleaner) Clean(source string, raw []models.RawObservation) []models.RawObservation {
	result := make([]models.RawObservation, 0, len(raw))

	for _, r := range raw {
		loc := normaliseLocation(r.Location)
		if loc == "" {
			c.logger.Debug("[cleaner] %s: dropping row with empty location", source)
			continue
		}
		if r.MinPrice == 0 && r.MaxPrice == 0 && r.ModalPrice == 0 {
			c.logger.Debug("[cleaner] %s: dropping %q, no prices", source, loc)
			continue
		}
		r.Location = loc
		result = append(result, r)
	}

	if dropped := len(raw) - len(result); dropped > 0 {
		c.logger.Info("[cleaner] %s: cleaned %d → %d rows (dropped %d)",
			source, len(raw), len(result), dropped)
	}
	return result
}

// normaliseLocation strips bracketed qualifiers and administrative suffixes
// and collapses whitespace.
func normaliseLocation(s string) string {
	s = parenRegexp.ReplaceAllString(s, "")
	s = normaliseText(s)
	s = suffixRegexp.ReplaceAllString(s, "")
	return s
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
