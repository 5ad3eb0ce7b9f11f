package archive

import (
	"github.com/duesync/duesync/pkg/assignment"
)

// Observation is one externally observed (title, status) pair, typically
// read from a remote board.
type Observation struct {
	Title  string
	Status assignment.Status
}

// SyncResult lists the titles changed by one smart status sync run, so
// callers can journal each transition.
type SyncResult struct {
	Updated  []string
	Restored []string
}

// SmartStatusSync folds externally observed statuses into the local sets.
// Active records matched by exact title are updated in place. A title found
// only in the archive whose external status is Pending or In Progress is
// restored first: an item reopened remotely must come back to life locally.
func (m *Manager) SmartStatusSync(observations []Observation) (*SyncResult, error) {
	active, err := m.store.LoadActive()
	if err != nil {
		return nil, err
	}
	arch, err := m.store.LoadArchive()
	if err != nil {
		return nil, err
	}

	activeByTitle := make(map[string]*assignment.Assignment, len(active))
	for _, a := range active {
		activeByTitle[a.Title] = a
	}
	archivedTitles := make(map[string]bool, len(arch.Assignments))
	for _, entry := range arch.Assignments {
		archivedTitles[entry.Title] = true
	}

	res := &SyncResult{}
	dirty := false
	for _, obs := range observations {
		if !assignment.ValidStatus(obs.Status) {
			continue
		}
		if a, ok := activeByTitle[obs.Title]; ok {
			if a.Status != obs.Status {
				a.Status = obs.Status
				a.LastUpdated = m.Now()
				res.Updated = append(res.Updated, a.Title)
				dirty = true
			}
			continue
		}
		if archivedTitles[obs.Title] && obs.Status != assignment.StatusCompleted {
			if dirty {
				// Flush in-place updates before Restore rewrites the files.
				if err := m.store.SaveActive(active); err != nil {
					return nil, err
				}
				dirty = false
			}
			restored, err := m.Restore(obs.Title)
			if err != nil {
				return nil, err
			}
			res.Restored = append(res.Restored, obs.Title)
			active, err = m.store.LoadActive()
			if err != nil {
				return nil, err
			}
			activeByTitle = make(map[string]*assignment.Assignment, len(active))
			for _, a := range active {
				activeByTitle[a.Title] = a
			}
			delete(archivedTitles, obs.Title)
			if restored.Status != obs.Status {
				if a, ok := activeByTitle[obs.Title]; ok {
					a.Status = obs.Status
					a.LastUpdated = m.Now()
					res.Updated = append(res.Updated, a.Title)
					dirty = true
				}
			}
		}
	}

	if dirty {
		if err := m.store.SaveActive(active); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Stats summarizes both sets for reporting.
type Stats struct {
	ActiveCount      int
	ActiveByStatus   map[assignment.Status]int
	TotalArchived    int
	ArchivedByReason map[assignment.ArchiveReason]int
	LastCleanup      string
}

func (m *Manager) Stats() (*Stats, error) {
	active, err := m.store.LoadActive()
	if err != nil {
		return nil, err
	}
	arch, err := m.store.LoadArchive()
	if err != nil {
		return nil, err
	}
	st := &Stats{
		ActiveCount:      len(active),
		ActiveByStatus:   make(map[assignment.Status]int),
		TotalArchived:    len(arch.Assignments),
		ArchivedByReason: make(map[assignment.ArchiveReason]int),
		LastCleanup:      arch.LastCleanup,
	}
	for _, a := range active {
		st.ActiveByStatus[a.Status]++
	}
	for _, entry := range arch.Assignments {
		st.ArchivedByReason[entry.ArchiveReason]++
	}
	return st, nil
}
