package ingest

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/normalize"
)

// ImportScraped reads a course-page export file and returns its candidates.
// Both shapes are accepted: a bare array, or an object with an
// "assignments" array. Unknown fields are ignored.
func ImportScraped(path string) ([]assignment.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scraped file: %w", err)
	}
	parsed := gjson.ParseBytes(data)
	items := parsed
	if parsed.IsObject() {
		items = parsed.Get("assignments")
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("scraped file %s: expected an assignment array", path)
	}

	var cands []assignment.Candidate
	var skipped int
	for _, item := range items.Array() {
		cand, ok := scrapedCandidate(item)
		if !ok {
			skipped++
			continue
		}
		cands = append(cands, cand)
	}
	if len(cands) == 0 && skipped > 0 {
		return nil, fmt.Errorf("scraped file %s: all %d entries missing a title", path, skipped)
	}
	return cands, nil
}

func scrapedCandidate(item gjson.Result) (assignment.Candidate, bool) {
	title := item.Get("title").String()
	if title == "" {
		title = item.Get("name").String()
	}
	if title == "" {
		return assignment.Candidate{}, false
	}

	cand := assignment.Candidate{
		RawTitle:    title,
		Course:      item.Get("course").String(),
		CourseCode:  item.Get("course_code").String(),
		DueDate:     item.Get("due_date").String(),
		OpeningDate: item.Get("opening_date").String(),
		SourceID:    item.Get("id").String(),
		Source:      "scraped",
		Status:      assignment.StatusPending,
	}
	if s := assignment.Status(item.Get("status").String()); assignment.ValidStatus(s) {
		cand.Status = s
	}
	if cand.CourseCode == "" && cand.Course != "" {
		cand.CourseCode = normalize.Course(cand.Course).Code
	}
	if cand.SourceID != "" {
		cand.SourceID = "scraped-" + cand.SourceID
	}
	return cand, true
}
