// Package merge implements the reconcile step of ingestion: given a
// candidate record and the current active set, decide insert, update in
// place, or ignore. Decisions are deterministic; two observations of the
// same real-world assignment always converge to one record.
package merge

import (
	"time"

	"github.com/google/uuid"

	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/match"
	"github.com/duesync/duesync/pkg/normalize"
)

// Decision is the outcome of reconciling one candidate.
type Decision string

const (
	DecisionInsert Decision = "insert"
	DecisionUpdate Decision = "update"
	DecisionIgnore Decision = "ignore"
)

// Result reports what Reconcile did. Record points at the inserted record or
// the existing record the candidate resolved to.
type Result struct {
	Decision Decision
	Record   *assignment.Assignment
}

// Engine holds the matching thresholds and the clock, both injectable for
// tests.
type Engine struct {
	SameRecordThreshold float64
	UpdateThreshold     float64
	Now                 func() time.Time
}

func NewEngine() *Engine {
	return &Engine{
		SameRecordThreshold: match.SameRecordThreshold,
		UpdateThreshold:     match.UpdateThreshold,
		Now:                 time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Reconcile resolves one candidate against the active set and returns the
// possibly-grown set. Decision order:
//
//  1. source id equality, the most reliable signal; it bypasses fuzzy matching
//  2. exact normalized-title + course match
//  3. fuzzy title match with equal course
//  4. insert as new
//
// Courses are compared case-insensitively and must match for any duplicate
// classification: similar titles in different courses are distinct records.
func (e *Engine) Reconcile(cand assignment.Candidate, active []*assignment.Assignment) (Result, []*assignment.Assignment) {
	incoming := e.build(cand)

	// Step 1: authoritative source identifier.
	if incoming.SourceID != "" {
		for _, existing := range active {
			if existing.SourceID == incoming.SourceID {
				return e.fold(incoming, existing), active
			}
		}
	}

	// Step 2: exact identity key.
	for _, existing := range active {
		if existing.IdentityKey() == incoming.IdentityKey() && incoming.TitleNormalized != "" {
			return e.fold(incoming, existing), active
		}
	}

	// Step 3: fuzzy title match within the same course.
	for _, existing := range active {
		if existing.CourseKey() != incoming.CourseKey() {
			continue
		}
		sim := match.Similarity(existing.Title, incoming.Title)
		if sim < e.SameRecordThreshold {
			continue
		}
		if dueDiffers(existing, incoming) && sim < e.UpdateThreshold {
			// Close enough to be suspicious, but a changed due date below
			// the update bar means a genuinely different assignment.
			continue
		}
		return e.fold(incoming, existing), active
	}

	// Step 4: new record.
	now := e.now()
	incoming.ID = uuid.New().String()
	incoming.AddedDate = now
	incoming.LastUpdated = now
	return Result{Decision: DecisionInsert, Record: incoming}, append(active, incoming)
}

// build normalizes a candidate into assignment form.
func (e *Engine) build(cand assignment.Candidate) *assignment.Assignment {
	course := normalize.Course(cand.Course)
	code := cand.CourseCode
	if code == "" {
		code = course.Code
	}

	title := cand.Title
	if title == "" {
		title = assignment.FormatTitle(code, cand.RawTitle)
	}

	due, dueOK := normalize.Date(cand.DueDate)
	opening, openOK := normalize.Date(cand.OpeningDate)

	status := cand.Status
	if !assignment.ValidStatus(status) {
		status = assignment.StatusPending
	}

	return &assignment.Assignment{
		Title:           title,
		RawTitle:        cand.RawTitle,
		TitleNormalized: normalize.Title(title),
		Course:          cand.Course,
		CourseCode:      code,
		DueDate:         due,
		DueParsed:       dueOK,
		OpeningDate:     opening,
		OpeningParsed:   openOK,
		Status:          status,
		Sources:         assignment.NewSourceSet(cand.Source),
		SourceID:        cand.SourceID,
	}
}

// fold merges a duplicate observation into the existing record. Provenance
// is always unioned; the due date is overwritten only by a newer parsed
// observation and is never reverted to unparsed.
func (e *Engine) fold(incoming, existing *assignment.Assignment) Result {
	if existing.Sources == nil {
		existing.Sources = assignment.SourceSet{}
	}
	existing.Sources.Union(incoming.Sources)
	if existing.SourceID == "" {
		existing.SourceID = incoming.SourceID
	}
	if existing.RawTitle == "" {
		existing.RawTitle = incoming.RawTitle
	}

	updated := false
	if incoming.DueParsed && (!existing.DueParsed || existing.DueDate != incoming.DueDate) {
		existing.DueDate = incoming.DueDate
		existing.DueParsed = true
		updated = true
	}
	if incoming.OpeningParsed && (!existing.OpeningParsed || existing.OpeningDate != incoming.OpeningDate) {
		existing.OpeningDate = incoming.OpeningDate
		existing.OpeningParsed = true
		updated = true
	}

	if updated {
		existing.LastUpdated = e.now()
		return Result{Decision: DecisionUpdate, Record: existing}
	}
	return Result{Decision: DecisionIgnore, Record: existing}
}

func dueDiffers(a, b *assignment.Assignment) bool {
	if !a.DueParsed || !b.DueParsed {
		return false
	}
	return a.DueDate != b.DueDate
}
