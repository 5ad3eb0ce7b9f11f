// Package assignment holds the canonical record types shared by the merge
// engine, the archive manager and the destination adapters.
package assignment

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Status is the lifecycle status of an active assignment.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// ValidStatus reports whether s is one of the known status values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// SourceSet is the provenance of a record. An assignment seen by both the
// email parser and the scraper carries both tags. Serialized as a sorted
// JSON array so files diff cleanly.
type SourceSet map[string]struct{}

func NewSourceSet(sources ...string) SourceSet {
	s := SourceSet{}
	for _, src := range sources {
		s.Add(src)
	}
	return s
}

func (s SourceSet) Add(source string) {
	if source == "" {
		return
	}
	s[source] = struct{}{}
}

func (s SourceSet) Has(source string) bool {
	_, ok := s[source]
	return ok
}

// Union merges other into s in place.
func (s SourceSet) Union(other SourceSet) {
	for src := range other {
		s[src] = struct{}{}
	}
}

func (s SourceSet) Slice() []string {
	out := make([]string, 0, len(s))
	for src := range s {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

func (s SourceSet) String() string {
	return strings.Join(s.Slice(), "+")
}

func (s SourceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *SourceSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		// Older files stored a single string.
		var single string
		if serr := json.Unmarshal(data, &single); serr != nil {
			return err
		}
		list = []string{single}
	}
	set := SourceSet{}
	for _, src := range list {
		set.Add(src)
	}
	*s = set
	return nil
}

// Assignment is the canonical unit tracked across every destination.
//
// DueDate and OpeningDate hold an ISO calendar date (2006-01-02) when the
// corresponding Parsed flag is set; otherwise they carry the original raw
// text so nothing is silently coerced to a wrong date.
type Assignment struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	RawTitle        string `json:"raw_title,omitempty"`
	TitleNormalized string `json:"title_normalized"`

	Course     string `json:"course"`
	CourseCode string `json:"course_code"`

	DueDate       string `json:"due_date"`
	DueParsed     bool   `json:"due_parsed"`
	OpeningDate   string `json:"opening_date,omitempty"`
	OpeningParsed bool   `json:"opening_parsed,omitempty"`

	Status   Status    `json:"status"`
	Sources  SourceSet `json:"source"`
	SourceID string    `json:"source_id,omitempty"`

	AddedDate   time.Time `json:"added_date"`
	LastUpdated time.Time `json:"last_updated"`

	// RemoteIDs maps destination name to the item id created there. Owned
	// exclusively by the sync orchestrator; ingestion never touches it.
	RemoteIDs map[string]string `json:"remote_ids,omitempty"`
}

// IdentityKey is the dedupe key used by the merge engine: normalized title
// plus lowercased course key.
func (a *Assignment) IdentityKey() string {
	return a.TitleNormalized + "|" + a.CourseKey()
}

// CourseKey returns the case-folded course identifier used for duplicate
// classification. The course code wins when present; the full course label
// is the fallback.
func (a *Assignment) CourseKey() string {
	if a.CourseCode != "" {
		return strings.ToLower(a.CourseCode)
	}
	return strings.ToLower(strings.TrimSpace(a.Course))
}

// RemoteID returns the destination's item id for this record, if any.
func (a *Assignment) RemoteID(destination string) string {
	return a.RemoteIDs[destination]
}

// SetRemoteID records a successfully created or adopted remote item id.
func (a *Assignment) SetRemoteID(destination, id string) {
	if a.RemoteIDs == nil {
		a.RemoteIDs = make(map[string]string)
	}
	a.RemoteIDs[destination] = id
}

// ClearRemoteIDs drops every destination reference. Used on restore, where
// old remote items are stale by definition.
func (a *Assignment) ClearRemoteIDs() {
	a.RemoteIDs = nil
}

// DueTime parses the due date when it is in parsed form.
func (a *Assignment) DueTime() (time.Time, bool) {
	return parseISO(a.DueDate, a.DueParsed)
}

// OpeningTime parses the opening date when it is in parsed form.
func (a *Assignment) OpeningTime() (time.Time, bool) {
	return parseISO(a.OpeningDate, a.OpeningParsed)
}

func parseISO(s string, parsed bool) (time.Time, bool) {
	if !parsed || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a deep copy. Archive snapshots must not alias the live
// record's maps.
func (a *Assignment) Clone() *Assignment {
	c := *a
	if a.Sources != nil {
		c.Sources = NewSourceSet(a.Sources.Slice()...)
	}
	if a.RemoteIDs != nil {
		c.RemoteIDs = make(map[string]string, len(a.RemoteIDs))
		for k, v := range a.RemoteIDs {
			c.RemoteIDs[k] = v
		}
	}
	return &c
}

// ArchiveReason explains why a record left the active set.
type ArchiveReason string

const (
	ReasonAgeBased ArchiveReason = "age-based"
	ReasonManual   ArchiveReason = "manual"
)

// ArchiveEntry wraps a former assignment with archival metadata. It owns a
// full snapshot so restoration is lossless.
type ArchiveEntry struct {
	Original       Assignment    `json:"original_data"`
	ArchivedDate   time.Time     `json:"archived_date"`
	ArchiveReason  ArchiveReason `json:"archive_reason"`
	CompletionDate string        `json:"completion_date,omitempty"`
	Title          string        `json:"title"`
	CourseCode     string        `json:"course_code"`
}

// Candidate is an assignment-shaped record emitted by an ingestion
// collaborator (email parser, scraper import) before merging.
type Candidate struct {
	RawTitle    string
	Title       string // optional pre-formatted display title
	Course      string
	CourseCode  string
	DueDate     string // raw text, normalized by the merge engine
	OpeningDate string
	SourceID    string
	Source      string // provenance tag, e.g. "email" or "scraped"
	Status      Status
}
