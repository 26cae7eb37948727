// Package todo keeps the due-date task list: plain tasks with an optional
// due date, completion history and a scheduler that announces overdue tasks.
package todo

import (
	"fmt"
	"strings"
	"time"
)

// Todo is a task with an optional due date.
type Todo struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
	DueDate     *time.Time `json:"dueDate"`
	NotifiedAt  *time.Time `json:"notifiedAt,omitempty"`
}

// Active reports whether the todo is still open.
func (t Todo) Active() bool {
	return !t.Completed
}

// Overdue reports whether the todo is open and its due date is at or before now.
func (t Todo) Overdue(now time.Time) bool {
	return t.Active() && t.DueDate != nil && !t.DueDate.After(now)
}

// Clone returns a copy that shares no memory with t.
func (t Todo) Clone() Todo {
	c := t
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.DueDate = cloneTime(t.DueDate)
	c.NotifiedAt = cloneTime(t.NotifiedAt)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Filter selects completed todos by how recently they were completed.
type Filter string

const (
	FilterAll   Filter = "all"
	FilterToday Filter = "today"
	FilterWeek  Filter = "week"
	FilterMonth Filter = "month"
)

// ParseFilter accepts all, today, week or month. An empty string is all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterToday, FilterWeek, FilterMonth:
		return f, nil
	default:
		return "", fmt.Errorf("unknown history filter %q (use all, today, week or month): %w", s, ErrValidation)
	}
}

// Since returns the earliest completion time the filter keeps. Today starts
// at local midnight; week and month reach back 7 and 30 days from it. The
// zero time means no bound.
func (f Filter) Since(now time.Time) time.Time {
	today := startOfDay(now)
	switch f {
	case FilterToday:
		return today
	case FilterWeek:
		return today.AddDate(0, 0, -7)
	case FilterMonth:
		return today.AddDate(0, 0, -30)
	default:
		return time.Time{}
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sameDay reports whether a and b fall on the same calendar day in the
// location of b.
func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseDate reads a due date as YYYY-MM-DD in loc, or as an RFC 3339
// timestamp.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, ErrValidation)
}
