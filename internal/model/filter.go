package model

import (
	"fmt"
	"strings"
	"time"
)

// Filter narrows the active list to one of the fixed views.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
	FilterToday     Filter = "today"
	FilterUpcoming  Filter = "upcoming"
)

// UpcomingDays is how far past today the upcoming view looks.
const UpcomingDays = 7

// Filters lists every filter in the order the UI cycles through them.
var Filters = []Filter{FilterAll, FilterPending, FilterCompleted, FilterToday, FilterUpcoming}

// ParseFilter validates a filter name. The empty string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", &ValidationError{Field: "filter", Message: fmt.Sprintf("unknown filter %q (want all, pending, completed, today or upcoming)", s)}
}

// Next returns the filter after f, wrapping back to FilterAll.
func (f Filter) Next() Filter {
	for i, g := range Filters {
		if g == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

// Match reports whether t belongs in the view. Due dates are compared by
// calendar day, with today taken from now's location.
func (f Filter) Match(t Todo, now time.Time) bool {
	switch f {
	case FilterPending:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	case FilterToday:
		return t.DueDate != nil && daysUntil(*t.DueDate, now) == 0
	case FilterUpcoming:
		if t.Completed || t.DueDate == nil {
			return false
		}
		d := daysUntil(*t.DueDate, now)
		return d >= 1 && d <= UpcomingDays
	default:
		return true
	}
}

// Apply returns the todos matching f, keeping their order.
func (f Filter) Apply(todos []Todo, now time.Time) []Todo {
	if f == FilterAll || f == "" {
		return todos
	}
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if f.Match(t, now) {
			out = append(out, t)
		}
	}
	return out
}

func daysUntil(due, now time.Time) int {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dy, dm, dd := due.Date()
	day := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return int(day.Sub(today).Hours() / 24)
}
