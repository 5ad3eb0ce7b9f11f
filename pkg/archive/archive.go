// Package archive moves records between the active and archived sets and
// back. Transitions are full read-modify-write cycles over both store files,
// verified after the fact so a partial write is detected and repaired rather
// than left half-applied.
package archive

import (
	"errors"
	"fmt"
	"time"

	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/store"
)

// DefaultRetentionDays is how long a completed record stays active before
// the age-based sweep archives it.
const DefaultRetentionDays = 30

var (
	ErrNotFound = errors.New("assignment not found")
	// ErrInconsistentState means a transition could not be brought back to
	// the one-place invariant even after a repair attempt.
	ErrInconsistentState = errors.New("active and archive sets are inconsistent")
)

type Manager struct {
	store *store.Store
	Now   func() time.Time
}

func NewManager(s *store.Store) *Manager {
	return &Manager{store: s, Now: time.Now}
}

// SweepResult summarizes one age-based archive pass.
type SweepResult struct {
	ActiveCount   int
	NewlyArchived []string
	TotalArchived int
}

// Sweep archives every active record that has been Completed for longer than
// the retention window. Records with unparseable timestamps are left alone.
func (m *Manager) Sweep(retentionDays int) (*SweepResult, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	active, err := m.store.LoadActive()
	if err != nil {
		return nil, err
	}
	arch, err := m.store.LoadArchive()
	if err != nil {
		return nil, err
	}

	now := m.Now()
	cutoff := now.AddDate(0, 0, -retentionDays)

	already := make(map[string]bool, len(arch.Assignments))
	for _, entry := range arch.Assignments {
		already[entry.Title] = true
	}

	var kept []*assignment.Assignment
	var archivedTitles []string
	for _, a := range active {
		if a.Status == assignment.StatusCompleted && !a.LastUpdated.IsZero() && a.LastUpdated.Before(cutoff) {
			// A title already in the archive is an interrupted earlier
			// transition; finish the removal without a duplicate entry.
			if !already[a.Title] {
				arch.Assignments = append(arch.Assignments, m.entry(a, assignment.ReasonAgeBased, now))
			}
			archivedTitles = append(archivedTitles, a.Title)
			continue
		}
		kept = append(kept, a)
	}

	if len(archivedTitles) > 0 {
		// Archive side first: an interruption between the two writes leaves
		// the record in both sets, which verifyOnePlace can see, never in
		// neither.
		if err := m.store.SaveArchive(arch); err != nil {
			return nil, err
		}
		if err := m.store.SaveActive(kept); err != nil {
			return nil, err
		}
		for _, title := range archivedTitles {
			if err := m.verifyOnePlace(title); err != nil {
				return nil, err
			}
		}
	}
	return &SweepResult{
		ActiveCount:   len(kept),
		NewlyArchived: archivedTitles,
		TotalArchived: len(arch.Assignments),
	}, nil
}

// ArchiveByTitle archives one active record regardless of status or age.
func (m *Manager) ArchiveByTitle(title string, reason assignment.ArchiveReason) error {
	active, err := m.store.LoadActive()
	if err != nil {
		return err
	}
	arch, err := m.store.LoadArchive()
	if err != nil {
		return err
	}

	var target *assignment.Assignment
	var kept []*assignment.Assignment
	for _, a := range active {
		if target == nil && a.Title == title {
			target = a
			continue
		}
		kept = append(kept, a)
	}
	if target == nil {
		return fmt.Errorf("%w: %q", ErrNotFound, title)
	}

	already := false
	for _, entry := range arch.Assignments {
		if entry.Title == title {
			already = true
			break
		}
	}
	if !already {
		arch.Assignments = append(arch.Assignments, m.entry(target, reason, m.Now()))
	}
	// Same write order as Sweep: archive gains the record before the active
	// file loses it.
	if err := m.store.SaveArchive(arch); err != nil {
		return err
	}
	if err := m.store.SaveActive(kept); err != nil {
		return err
	}
	return m.verifyOnePlace(title)
}

// Restore moves an archived record back to the active set with status reset
// to Pending, a fresh last_updated, and all remote ids stripped (they point
// at items that may no longer exist). The transition is verified by
// re-reading both files; a detected half-apply is repaired once before
// giving up.
func (m *Manager) Restore(title string) (*assignment.Assignment, error) {
	restored, err := m.restoreOnce(title)
	if err != nil {
		return nil, err
	}
	if err := m.verifyOnePlace(title); err != nil {
		// One repair attempt: re-run the removal side, then re-check.
		if rerr := m.removeFromArchive(title); rerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInconsistentState, rerr)
		}
		if err := m.verifyOnePlace(title); err != nil {
			return nil, err
		}
	}
	return restored, nil
}

func (m *Manager) restoreOnce(title string) (*assignment.Assignment, error) {
	active, err := m.store.LoadActive()
	if err != nil {
		return nil, err
	}
	arch, err := m.store.LoadArchive()
	if err != nil {
		return nil, err
	}

	var restored *assignment.Assignment
	remaining := arch.Assignments[:0]
	for _, entry := range arch.Assignments {
		if restored == nil && entry.Title == title {
			snap := entry.Original
			restored = snap.Clone()
			continue
		}
		remaining = append(remaining, entry)
	}
	if restored == nil {
		return nil, fmt.Errorf("%w in archive: %q", ErrNotFound, title)
	}

	restored.Status = assignment.StatusPending
	restored.LastUpdated = m.Now()
	restored.ClearRemoteIDs()

	active = append(active, restored)
	arch.Assignments = remaining

	if err := m.store.SaveActive(active); err != nil {
		return nil, err
	}
	if err := m.store.SaveArchive(arch); err != nil {
		return nil, err
	}
	return restored, nil
}

func (m *Manager) removeFromArchive(title string) error {
	arch, err := m.store.LoadArchive()
	if err != nil {
		return err
	}
	remaining := arch.Assignments[:0]
	for _, entry := range arch.Assignments {
		if entry.Title != title {
			remaining = append(remaining, entry)
		}
	}
	arch.Assignments = remaining
	return m.store.SaveArchive(arch)
}

// verifyOnePlace re-reads both stores and asserts the record exists in at
// most one of them.
func (m *Manager) verifyOnePlace(title string) error {
	active, err := m.store.LoadActive()
	if err != nil {
		return err
	}
	arch, err := m.store.LoadArchive()
	if err != nil {
		return err
	}
	inActive := false
	for _, a := range active {
		if a.Title == title {
			inActive = true
			break
		}
	}
	inArchive := false
	for _, entry := range arch.Assignments {
		if entry.Title == title {
			inArchive = true
			break
		}
	}
	if inActive && inArchive {
		return fmt.Errorf("%w: %q present in both sets", ErrInconsistentState, title)
	}
	return nil
}

func (m *Manager) entry(a *assignment.Assignment, reason assignment.ArchiveReason, now time.Time) assignment.ArchiveEntry {
	completion := ""
	if !a.LastUpdated.IsZero() {
		completion = a.LastUpdated.Format(time.RFC3339)
	}
	return assignment.ArchiveEntry{
		Original:       *a.Clone(),
		ArchivedDate:   now,
		ArchiveReason:  reason,
		CompletionDate: completion,
		Title:          a.Title,
		CourseCode:     a.CourseCode,
	}
}
