package localfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/destinations"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "assignments.md"))
}

func testRecord() *assignment.Assignment {
	return &assignment.Assignment{
		RawTitle:   "ACTIVITY 1 - USER STORY",
		Title:      "HCI - Activity 1 (User Story)",
		Course:     "HCI - HUMAN COMPUTER INTERACTION",
		CourseCode: "HCI",
		DueDate:    "2025-09-05",
		DueParsed:  true,
		Status:     assignment.StatusPending,
		SourceID:   "email-756",
	}
}

func TestCreateExistsRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	a := testRecord()

	if id, err := c.Exists(ctx, a); err != nil || id != "" {
		t.Fatalf("Exists on empty board = (%q, %v)", id, err)
	}

	id, err := c.Create(ctx, a)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned empty id")
	}

	got, err := c.Exists(ctx, a)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if got != id {
		t.Fatalf("Exists = %q, want %q", got, id)
	}

	if _, err := c.Create(ctx, a); !errors.Is(err, destinations.ErrAlreadyExists) {
		t.Fatalf("second Create must report already exists, got %v", err)
	}
}

func TestListAllParsesBack(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	a := testRecord()
	if _, err := c.Create(ctx, a); err != nil {
		t.Fatal(err)
	}

	tasks, err := c.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.Title != a.RemoteTitle() || got.SourceID != "email-756" || got.DueDate != "2025-09-05" {
		t.Fatalf("row did not survive round trip: %+v", got)
	}
	if got.Status != assignment.StatusPending {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestPipeEscaping(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	a := testRecord()
	a.RawTitle = "ACTIVITY 1 - BEFORE | AFTER"
	a.SourceID = "email-1"

	if _, err := c.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	tasks, err := c.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("escaped pipe split the row: %d tasks", len(tasks))
	}
	if tasks[0].Title != a.RemoteTitle() {
		t.Fatalf("title mangled: %q vs %q", tasks[0].Title, a.RemoteTitle())
	}
}

func TestDelete(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	a := testRecord()
	if _, err := c.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, a); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	tasks, err := c.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty board after delete, got %d rows", len(tasks))
	}
	if err := c.Delete(ctx, a); err == nil {
		t.Fatal("deleting a missing row must fail")
	}
}
