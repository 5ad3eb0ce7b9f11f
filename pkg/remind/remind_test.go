package remind

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var today = day(2025, 9, 1)

func TestDateTiers(t *testing.T) {
	cases := []struct {
		daysUntilDue int
		wantBefore   int
	}{
		{2, 1},
		{3, 1},
		{5, 3},
		{7, 3},
		{10, 5},
		{14, 5},
		{20, 7},
		{30, 7},
		{60, 14},
	}
	for _, c := range cases {
		due := today.AddDate(0, 0, c.daysUntilDue)
		got, ok := Date(time.Time{}, due, time.Time{}, today)
		if !ok {
			t.Fatalf("due in %d days: expected a reminder", c.daysUntilDue)
		}
		want := due.AddDate(0, 0, -c.wantBefore)
		if !got.Equal(want) {
			t.Fatalf("due in %d days: reminder %v, want %v", c.daysUntilDue, got, want)
		}
	}
}

func TestDateNoDueNoReminder(t *testing.T) {
	if _, ok := Date(time.Time{}, time.Time{}, time.Time{}, today); ok {
		t.Fatal("zero due date must yield no reminder")
	}
	if _, ok := Date(time.Time{}, today, time.Time{}, today); ok {
		t.Fatal("due today must yield no reminder")
	}
	if _, ok := Date(time.Time{}, today.AddDate(0, 0, -3), time.Time{}, today); ok {
		t.Fatal("past due must yield no reminder")
	}
}

func TestDateClampedToOpening(t *testing.T) {
	due := today.AddDate(0, 0, 10) // tier says 5 days before: day 5
	opening := today.AddDate(0, 0, 8)
	got, ok := Date(opening, due, time.Time{}, today)
	if !ok {
		t.Fatal("expected a reminder")
	}
	if !got.Equal(opening) {
		t.Fatalf("reminder before opening must clamp to opening, got %v", got)
	}
}

func TestDateClampedToAnchorWhenNoOpening(t *testing.T) {
	due := today.AddDate(0, 0, 4) // tier says 3 days before: day 1
	anchor := today.AddDate(0, 0, 2)
	got, ok := Date(time.Time{}, due, anchor, today)
	if !ok {
		t.Fatal("expected a reminder")
	}
	if !got.Equal(midnight(anchor)) {
		t.Fatalf("reminder must clamp to first-observed anchor, got %v", got)
	}
}

func TestDateNeverAfterDue(t *testing.T) {
	due := today.AddDate(0, 0, 2)
	opening := today.AddDate(0, 0, 5) // opens after it is due; floor beyond due
	got, ok := Date(opening, due, time.Time{}, today)
	if !ok {
		t.Fatal("expected a reminder")
	}
	if got.After(due) {
		t.Fatalf("reminder %v is after due %v", got, due)
	}
}

// For a fixed due date, the reminder never moves earlier as the opening
// date moves later, and always stays inside [today, due].
func TestDateMonotonicInOpening(t *testing.T) {
	due := today.AddDate(0, 0, 20)
	prev := time.Time{}
	for days := 0; days <= 25; days++ {
		opening := today.AddDate(0, 0, days)
		got, ok := Date(opening, due, time.Time{}, today)
		if !ok {
			t.Fatalf("opening %v: expected a reminder", opening)
		}
		if got.Before(today) || got.After(due) {
			t.Fatalf("reminder %v outside [today, due]", got)
		}
		if !prev.IsZero() && got.Before(prev) {
			t.Fatalf("reminder moved earlier (%v) as opening moved later (%v)", got, opening)
		}
		prev = got
	}
}
