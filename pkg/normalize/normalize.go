// Package normalize canonicalizes raw titles, dates and course labels into
// comparable forms. Every parser here degrades instead of failing: a date
// that matches no known pattern is handed back unchanged and flagged as
// unparsed, never guessed at.
package normalize

import (
	"regexp"
	"strings"
	"time"
)

var (
	punctRe      = regexp.MustCompile(`[^a-z0-9\s-]+`)
	hyphenRunRe  = regexp.MustCompile(`-+`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// fillerWords are generic nouns that carry no identity: "Activity 1" and
// "Assignment 1" should collide.
var fillerWords = map[string]bool{
	"activity":   true,
	"assignment": true,
	"task":       true,
	"project":    true,
}

// Title lowers, strips punctuation except hyphens, collapses hyphens to
// single spaces, drops filler words and collapses whitespace.
func Title(s string) string {
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	s = hyphenRunRe.ReplaceAllString(s, " ")
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if !fillerWords[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// datePattern pairs a locator regexp with the layouts its capture may parse
// as. Patterns are tried in order; the first layout that parses wins.
type datePattern struct {
	re      *regexp.Regexp
	layouts []string
}

var datePatterns = []datePattern{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), []string{"2006-01-02"}},
	{regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`), []string{"1/2/2006", "2/1/2006"}},
	{regexp.MustCompile(`\d{1,2}\s+[A-Za-z]+\s+\d{4}`), []string{"2 January 2006", "2 Jan 2006"}},
	{regexp.MustCompile(`[A-Za-z]+\s+\d{1,2},\s*\d{4}`), []string{"January 2, 2006", "Jan 2, 2006"}},
}

// Date parses the many textual date forms the sources produce into an ISO
// calendar date. The boolean is false when nothing matched; the input comes
// back unchanged so callers can keep it as an explicit unparsed value.
// Weekday prefixes and trailing times ("Friday, 5 September 2025, 10:09 AM")
// are handled by the substring scan.
func Date(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return s, false
	}
	for _, p := range datePatterns {
		sub := p.re.FindString(s)
		if sub == "" {
			continue
		}
		for _, layout := range p.layouts {
			if t, err := time.Parse(layout, sub); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
	}
	return s, false
}

var (
	courseFullRe = regexp.MustCompile(`^([A-Z]{2,5})\s*-\s*([^(]+?)(?:\s*\(([^)]+)\))?$`)
	courseCodeRe = regexp.MustCompile(`^([A-Z]{2,5})\b`)
)

// CourseInfo is the decomposition of a raw course label.
type CourseInfo struct {
	Code    string
	Name    string
	Section string
}

// Course extracts code, name and section from labels shaped like
// "HCI - HUMAN COMPUTER INTERACTION (III-ACSAD)". A leading all-caps token
// is the fallback when the full pattern does not apply.
func Course(s string) CourseInfo {
	s = strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
	if m := courseFullRe.FindStringSubmatch(s); m != nil {
		return CourseInfo{
			Code:    m[1],
			Name:    strings.TrimSpace(m[2]),
			Section: m[3],
		}
	}
	if m := courseCodeRe.FindStringSubmatch(s); m != nil {
		return CourseInfo{Code: m[1], Name: s}
	}
	return CourseInfo{Name: s}
}
