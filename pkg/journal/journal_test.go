package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndRecent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	events := []Event{
		{Kind: KindInsert, Title: "HCI - Activity 1 (User Story)", CourseCode: "HCI"},
		{Kind: KindRemoteCreate, Title: "HCI - Activity 1 (User Story)", Destination: "todoist"},
		{Kind: KindArchive, Title: "old one", Detail: "age-based"},
	}
	for _, e := range events {
		if err := db.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}
	// Newest first.
	if recent[0].Kind != KindArchive {
		t.Fatalf("expected newest first, got %s", recent[0].Kind)
	}
	if recent[0].OccurredAt.IsZero() {
		t.Fatal("timestamp not parsed")
	}

	counts, err := db.CountByKind(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountByKind: %v", err)
	}
	if counts[KindInsert] != 1 || counts[KindRemoteCreate] != 1 || counts[KindArchive] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestRecentLimit(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := db.Record(ctx, Event{Kind: KindUpdate, Title: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	recent, err := db.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("limit ignored: got %d", len(recent))
	}
}
