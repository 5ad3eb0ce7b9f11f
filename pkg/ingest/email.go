// Package ingest turns raw inputs (notification emails, scraped course
// exports) into candidates the merge engine can reconcile.
package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/normalize"
)

// Pattern order matters: the most specific notification phrasings come
// first so a generic pattern never shadows a better capture.
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)Assignment\s+([A-Z]+\s+\d+\s*-\s*.+?)\s+has been\s+(?:changed|created|updated)`),
	regexp.MustCompile(`(?im)Assignment\s+"(.+?)"\s+has been`),
	regexp.MustCompile(`(?im)Assignment\s+(.+?)\s+has been\s+(?:changed|created|updated)`),
	regexp.MustCompile(`(?im)Assignment:\s*(.+?)(?:\s+has|\s+is|$)`),
	regexp.MustCompile(`(?im)New assignment:\s*(.+?)$`),
	regexp.MustCompile(`(?im)Reminder:\s*(.+?)\s+assignment`),
	regexp.MustCompile(`(?im)Upcoming\s+assignment:\s*(.+?)$`),
	regexp.MustCompile(`(?im)Assignment\s*-\s*(.+?)$`),
}

var subjectFallbacks = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Assignment\s+(.+?)(?:\s+has|\s+is|$)`),
	regexp.MustCompile(`(?i)(.+?)\s+has been changed`),
	regexp.MustCompile(`(?i)(.+?)\s+assignment`),
}

var duePatterns = []*regexp.Regexp{
	// "Friday, 5 September 2025, 10:09 AM"
	regexp.MustCompile(`(?im)(?:Due:?|Deadline:|due\s+on)\s*([A-Za-z]+,\s*\d+\s+[A-Za-z]+\s+\d{4}(?:,?\s*\d{1,2}:\d{2}\s*[AP]M)?)`),
	regexp.MustCompile(`(?im)Due date:\s*([^\n]+)`),
	regexp.MustCompile(`(?im)Due:\s*([^\n]+)`),
	regexp.MustCompile(`(?im)Deadline:\s*([^\n]+)`),
	regexp.MustCompile(`(?im)due\s+on\s+([^\n]+)`),
}

var openingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)Opens?:\s*([^\n]+)`),
	regexp.MustCompile(`(?im)Opening date:\s*([^\n]+)`),
	regexp.MustCompile(`(?im)Allow submissions from:\s*([^\n]+)`),
}

var coursePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)in\s+course\s+([A-Z]{2,5}\s*-\s*[^(\n]+(?:\([^)]+\))?)`),
	regexp.MustCompile(`(?im)course\s+([A-Z]{2,5}\s*-\s*[^(\n]+(?:\([^)]+\))?)`),
	regexp.MustCompile(`(?m)([A-Z]{2,5}\s*-\s*[A-Z][A-Z\s]+(?:\([^)]+\))?)`),
	regexp.MustCompile(`(?im)Course:\s*([^\n]+)`),
}

// Email is one notification message to parse.
type Email struct {
	ID      string
	Subject string
	Body    string
}

// ParseEmail extracts a candidate from a notification email. The body may
// be HTML; it is flattened to text first. Returns an error when no title
// can be found, since a candidate without a title cannot be reconciled.
func ParseEmail(m Email) (assignment.Candidate, error) {
	body := m.Body
	if strings.Contains(body, "<") && strings.Contains(body, ">") {
		body = htmlToText(body)
	}
	full := m.Subject + "\n" + body

	title := firstMatch(titlePatterns, full)
	if title == "" {
		title = firstMatch(subjectFallbacks, m.Subject)
	}
	if title == "" {
		return assignment.Candidate{}, fmt.Errorf("ingest: no assignment title in email %q", m.Subject)
	}

	cand := assignment.Candidate{
		RawTitle: collapseSpace(title),
		Source:   "email",
		SourceID: m.ID,
		Status:   assignment.StatusPending,
	}
	if cand.SourceID != "" && !strings.HasPrefix(cand.SourceID, "email-") {
		cand.SourceID = "email-" + cand.SourceID
	}

	if raw := firstMatch(duePatterns, full); raw != "" {
		cand.DueDate = collapseSpace(raw)
	}
	if raw := firstMatch(openingPatterns, full); raw != "" {
		cand.OpeningDate = collapseSpace(raw)
	}
	if raw := firstMatch(coursePatterns, full); raw != "" {
		info := normalize.Course(collapseSpace(raw))
		cand.Course = collapseSpace(raw)
		cand.CourseCode = info.Code
	}
	return cand, nil
}

// htmlToText flattens an HTML body to plain text, keeping line structure
// well enough for the line-anchored patterns above.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script,style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	var b strings.Builder
	doc.Find("p,div,li,td,h1,h2,h3,h4").Each(func(_ int, s *goquery.Selection) {
		// skip containers whose text would be repeated by their children
		if s.Find("p,div,li,td,h1,h2,h3,h4").Length() > 0 {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	})
	if b.Len() == 0 {
		return doc.Text()
	}
	return b.String()
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

var spaceRe = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
