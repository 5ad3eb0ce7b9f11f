package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/duesync/duesync/pkg/archive"
	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/destinations"
	"github.com/duesync/duesync/pkg/journal"
	"github.com/duesync/duesync/pkg/store"
)

// fakeDest is an in-memory destination that counts calls.
type fakeDest struct {
	name string

	mu          sync.Mutex
	tasks       []destinations.RemoteTask
	createCalls int
	failCreates bool
	raceCreates bool // Create reports already-exists after adding the task
	nextID      int
}

func (f *fakeDest) Name() string { return f.name }

func (f *fakeDest) Create(ctx context.Context, a *assignment.Assignment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreates {
		return "", errors.New("destination down")
	}
	f.nextID++
	id := f.name + "-" + a.SourceID
	f.tasks = append(f.tasks, destinations.RemoteTask{
		RemoteID: id,
		Title:    a.RemoteTitle(),
		SourceID: a.SourceID,
		Status:   a.Status,
	})
	if f.raceCreates {
		return "", destinations.ErrAlreadyExists
	}
	return id, nil
}

func (f *fakeDest) Exists(ctx context.Context, a *assignment.Assignment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.SourceID != "" && t.SourceID == a.SourceID {
			return t.RemoteID, nil
		}
	}
	return "", nil
}

func (f *fakeDest) ListAll(ctx context.Context) ([]destinations.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]destinations.RemoteTask, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

func (f *fakeDest) setStatus(sourceID string, status assignment.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].SourceID == sourceID {
			f.tasks[i].Status = status
		}
	}
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func seedActive(t *testing.T, s *store.Store, records ...*assignment.Assignment) {
	t.Helper()
	if err := s.SaveActive(records); err != nil {
		t.Fatal(err)
	}
}

func record(title, sourceID string) *assignment.Assignment {
	now := time.Now()
	return &assignment.Assignment{
		ID:          sourceID,
		Title:       title,
		RawTitle:    title,
		CourseCode:  "HCI",
		Status:      assignment.StatusPending,
		SourceID:    sourceID,
		AddedDate:   now,
		LastUpdated: now,
	}
}

func TestRunPassIdempotentPush(t *testing.T) {
	s := testStore(t)
	seedActive(t, s, record("ACTIVITY 1 - USER STORY", "email-1"), record("ACTIVITY 2 - WIREFRAMES", "email-2"))
	dest := &fakeDest{name: "fake"}
	sy := New(Config{Store: s, Destinations: []destinations.Destination{dest}})

	sum, err := sy.RunPass(context.Background(), nil)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if sum.Created["fake"] != 2 {
		t.Fatalf("expected 2 creates, got %d", sum.Created["fake"])
	}

	// Second pass on an unchanged set must not create anything.
	before := dest.createCalls
	sum, err = sy.RunPass(context.Background(), nil)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if dest.createCalls != before {
		t.Fatalf("second pass issued %d extra creates", dest.createCalls-before)
	}
	if sum.Created["fake"] != 0 || sum.Adopted["fake"] != 0 {
		t.Fatalf("second pass should push nothing, got %+v", sum)
	}

	active, _ := s.LoadActive()
	for _, a := range active {
		if a.RemoteID("fake") == "" {
			t.Fatalf("remote id not persisted for %q", a.Title)
		}
	}
}

func TestRunPassAdoptsExistingRemote(t *testing.T) {
	s := testStore(t)
	seedActive(t, s, record("ACTIVITY 1 - USER STORY", "email-1"))
	dest := &fakeDest{name: "fake", tasks: []destinations.RemoteTask{
		{RemoteID: "pre-existing", SourceID: "email-1", Title: "whatever", Status: assignment.StatusPending},
	}}
	sy := New(Config{Store: s, Destinations: []destinations.Destination{dest}})

	sum, err := sy.RunPass(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Adopted["fake"] != 1 || sum.Created["fake"] != 0 {
		t.Fatalf("expected adoption, got %+v", sum)
	}
	if dest.createCalls != 0 {
		t.Fatalf("adoption must not call create, got %d calls", dest.createCalls)
	}
	active, _ := s.LoadActive()
	if active[0].RemoteID("fake") != "pre-existing" {
		t.Fatalf("adopted id not stored: %q", active[0].RemoteID("fake"))
	}
}

func TestRunPassAlreadyExistsRace(t *testing.T) {
	s := testStore(t)
	seedActive(t, s, record("ACTIVITY 1 - USER STORY", "email-1"))
	dest := &fakeDest{name: "fake", raceCreates: true}
	sy := New(Config{Store: s, Destinations: []destinations.Destination{dest}})

	sum, err := sy.RunPass(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	// The lost race resolves through a second Exists, not a failure.
	if sum.Adopted["fake"] != 1 || sum.Skipped["fake"] != 0 {
		t.Fatalf("race must resolve to adoption, got %+v", sum)
	}
	active, _ := s.LoadActive()
	if active[0].RemoteID("fake") == "" {
		t.Fatal("remote id missing after race resolution")
	}
}

func TestRunPassSkipsOnDestinationFailure(t *testing.T) {
	s := testStore(t)
	seedActive(t, s, record("ACTIVITY 1 - USER STORY", "email-1"))
	bad := &fakeDest{name: "bad", failCreates: true}
	good := &fakeDest{name: "good"}
	sy := New(Config{Store: s, Destinations: []destinations.Destination{bad, good}, CallTimeout: time.Second})

	sum, err := sy.RunPass(context.Background(), nil)
	if err != nil {
		t.Fatalf("a failing destination must not fail the pass: %v", err)
	}
	if sum.Skipped["bad"] != 1 {
		t.Fatalf("expected 1 skip on bad, got %+v", sum)
	}
	if sum.Created["good"] != 1 {
		t.Fatalf("good destination must still sync, got %+v", sum)
	}

	// The skipped record stays unsynced and is retried next pass.
	bad.failCreates = false
	sum, err = sy.RunPass(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Created["bad"] != 1 {
		t.Fatalf("recovered destination must create on retry, got %+v", sum)
	}
}

func TestRunPassPullsRemoteCompletion(t *testing.T) {
	s := testStore(t)
	seedActive(t, s, record("ACTIVITY 1 - USER STORY", "email-1"))
	dest := &fakeDest{name: "fake"}
	sy := New(Config{Store: s, Destinations: []destinations.Destination{dest}})

	if _, err := sy.RunPass(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	dest.setStatus("email-1", assignment.StatusCompleted)

	sum, err := sy.RunPass(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.StatusUpdated != 1 {
		t.Fatalf("expected 1 status pull, got %+v", sum)
	}
	active, _ := s.LoadActive()
	if active[0].Status != assignment.StatusCompleted {
		t.Fatalf("remote completion must win, got %s", active[0].Status)
	}
}

func testJournal(t *testing.T) *journal.DB {
	t.Helper()
	db, err := journal.Open(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func kindCounts(t *testing.T, db *journal.DB) map[string]int {
	t.Helper()
	counts, err := db.CountByKind(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	return counts
}

func TestRunPassJournalsStatusPull(t *testing.T) {
	s := testStore(t)
	seedActive(t, s, record("ACTIVITY 1 - USER STORY", "email-1"))
	dest := &fakeDest{name: "fake"}
	jr := testJournal(t)
	sy := New(Config{Store: s, Destinations: []destinations.Destination{dest}, Journal: jr})

	if _, err := sy.RunPass(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	dest.setStatus("email-1", assignment.StatusCompleted)

	sum, err := sy.RunPass(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.StatusUpdated != 1 {
		t.Fatalf("expected 1 status pull, got %+v", sum)
	}
	counts := kindCounts(t, jr)
	if counts[journal.KindStatusPull] != 1 {
		t.Fatalf("expected 1 status-pull event, got %v", counts)
	}
	if counts[journal.KindRemoteCreate] != 1 {
		t.Fatalf("expected 1 remote-create event, got %v", counts)
	}
}

func TestRunPassJournalsRestore(t *testing.T) {
	s := testStore(t)
	// Formatted title, so the remote item's title matches the archive entry.
	seedActive(t, s, record("HCI - Activity 1 (User Story)", "email-1"))
	dest := &fakeDest{name: "fake"}
	jr := testJournal(t)
	sy := New(Config{Store: s, Destinations: []destinations.Destination{dest}, Journal: jr})

	if _, err := sy.RunPass(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if err := archive.NewManager(s).ArchiveByTitle("HCI - Activity 1 (User Story)", assignment.ReasonManual); err != nil {
		t.Fatal(err)
	}

	sum, err := sy.RunPass(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Restored != 1 {
		t.Fatalf("expected 1 restore, got %+v", sum)
	}
	counts := kindCounts(t, jr)
	if counts[journal.KindRestore] != 1 {
		t.Fatalf("expected 1 restore event, got %v", counts)
	}
}

func TestRunPassJournalsSkips(t *testing.T) {
	s := testStore(t)
	seedActive(t, s, record("ACTIVITY 1 - USER STORY", "email-1"))
	bad := &fakeDest{name: "bad", failCreates: true}
	jr := testJournal(t)
	sy := New(Config{Store: s, Destinations: []destinations.Destination{bad}, Journal: jr, CallTimeout: time.Second})

	if _, err := sy.RunPass(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	counts := kindCounts(t, jr)
	if counts[journal.KindSkip] != 1 {
		t.Fatalf("expected 1 skip event, got %v", counts)
	}
}

func TestRunPassRejectsConcurrentPass(t *testing.T) {
	s := testStore(t)
	sy := New(Config{Store: s})

	sy.mu.Lock()
	sy.running = true
	sy.mu.Unlock()

	if _, err := sy.RunPass(context.Background(), nil); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
}

func TestRunPassMergesCandidates(t *testing.T) {
	s := testStore(t)
	dest := &fakeDest{name: "fake"}
	sy := New(Config{Store: s, Destinations: []destinations.Destination{dest}})

	sum, err := sy.RunPass(context.Background(), []assignment.Candidate{{
		RawTitle: "ACTIVITY 1 - USER STORY",
		Course:   "HCI - HUMAN COMPUTER INTERACTION",
		DueDate:  "2025-09-05",
		SourceID: "email-1",
		Source:   "email",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Inserted != 1 {
		t.Fatalf("expected 1 insert, got %+v", sum)
	}
	if sum.Created["fake"] != 1 {
		t.Fatalf("new record must be pushed in the same pass, got %+v", sum)
	}
}
