// Package remind derives a single reminder date from an assignment's
// opening/due window.
//
// The tier table is the fixed one: remind 1/3/5/7/14 days before the due
// date at thresholds of 3/7/14/30/more days out. The source history carried
// a second, graduated table for part of the 8–30 day range; this package
// standardizes on the fixed table everywhere so the two sync paths can never
// disagree about a reminder.
package remind

import "time"

// tier maps a days-until-due ceiling to how many days before the due date
// the reminder lands.
type tier struct {
	maxDaysUntilDue int
	daysBefore      int
}

var tiers = []tier{
	{3, 1},
	{7, 3},
	{14, 5},
	{30, 7},
}

const farOutDaysBefore = 14

// Date computes the reminder date for an assignment.
//
// due is required; a zero due date, or one on or before today, yields no
// reminder. opening, when known, floors the reminder (an assignment cannot
// be worked before it opens); when opening is unknown, the floor is anchor,
// the date the assignment was first observed. A reminder that would still
// land in the past yields none rather than a stale date.
func Date(opening, due, anchor, today time.Time) (time.Time, bool) {
	if due.IsZero() {
		return time.Time{}, false
	}
	today = midnight(today)
	due = midnight(due)
	if !due.After(today) {
		return time.Time{}, false
	}

	daysUntilDue := int(due.Sub(today).Hours() / 24)
	daysBefore := farOutDaysBefore
	for _, t := range tiers {
		if daysUntilDue <= t.maxDaysUntilDue {
			daysBefore = t.daysBefore
			break
		}
	}

	reminder := due.AddDate(0, 0, -daysBefore)

	floor := midnight(anchor)
	if !opening.IsZero() {
		floor = midnight(opening)
	}
	if !floor.IsZero() && reminder.Before(floor) {
		reminder = floor
	}
	if reminder.After(due) {
		reminder = due
	}
	if reminder.Before(today) {
		return time.Time{}, false
	}
	return reminder, true
}

func midnight(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
