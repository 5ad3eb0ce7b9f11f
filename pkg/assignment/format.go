package assignment

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	activityWithNameRe = regexp.MustCompile(`(?i)\bactivity\s+(\d+)\s*[-:]?\s*\(?([^\[\]()]*)\)?`)
	activityNumRe      = regexp.MustCompile(`(?i)\bactivity\s+(\d+)`)
	anyNumberRe        = regexp.MustCompile(`\d+`)
	bracketTagRe       = regexp.MustCompile(`\s*\[\d+\]`)
	genericLabelRe     = regexp.MustCompile(`(?i)\b(?:activity|assignment|task)\s*\d*\b`)
	spaceRe            = regexp.MustCompile(`\s+`)

	titleCaser = cases.Title(language.English)
)

// FormatTitle builds the outward-facing display title `CODE - Activity N
// (Name)` from a raw source title. Every call site that creates, looks up or
// deletes a remote item goes through this one function; a second formatter
// would reintroduce the duplicate-detection failures this exists to prevent.
func FormatTitle(courseCode, rawTitle string) string {
	raw := spaceRe.ReplaceAllString(strings.TrimSpace(rawTitle), " ")
	raw = bracketTagRe.ReplaceAllString(raw, "")
	code := strings.ToUpper(strings.TrimSpace(courseCode))

	// Already-formatted input re-enters unchanged: the formatter must be a
	// fixed point or a lookup would miss what a create produced.
	if code != "" && strings.HasPrefix(strings.ToUpper(raw), code+" - ") {
		raw = strings.TrimSpace(raw[len(code)+3:])
	}

	if raw == "" {
		return code
	}
	if code == "" {
		return titleCaser.String(raw)
	}

	if m := activityWithNameRe.FindStringSubmatch(raw); m != nil {
		num := m[1]
		name := strings.Trim(strings.TrimSpace(m[2]), "-– ")
		if name != "" {
			return fmt.Sprintf("%s - Activity %s (%s)", code, num, titleCaser.String(name))
		}
		return fmt.Sprintf("%s - Activity %s", code, num)
	}

	// No "Activity N" marker: fall back to any number plus whatever
	// descriptive text remains once generic labels are stripped.
	if m := anyNumberRe.FindString(raw); m != "" {
		name := genericLabelRe.ReplaceAllString(raw, "")
		name = strings.Trim(spaceRe.ReplaceAllString(name, " "), "-– ")
		name = strings.TrimSpace(name)
		if name != "" && name != m {
			name = strings.TrimSpace(strings.TrimSuffix(name, m))
			if name != "" {
				return fmt.Sprintf("%s - Activity %s (%s)", code, m, titleCaser.String(name))
			}
		}
		return fmt.Sprintf("%s - Activity %s", code, m)
	}

	return fmt.Sprintf("%s - %s", code, titleCaser.String(raw))
}

// RemoteTitle returns the formatted title used at every destination for this
// record. Falls back to the stored display title when the raw title is gone.
func (a *Assignment) RemoteTitle() string {
	if a.RawTitle != "" {
		return FormatTitle(a.CourseCode, a.RawTitle)
	}
	if a.CourseCode != "" && !strings.HasPrefix(strings.ToLower(a.Title), strings.ToLower(a.CourseCode)+" -") {
		return fmt.Sprintf("%s - %s", strings.ToUpper(a.CourseCode), a.Title)
	}
	return a.Title
}
