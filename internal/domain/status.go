package domain

import (
	"strconv"
	"strings"
	"time"
)

// EffectiveStatus derives the lifecycle status of e at now. A stored
// cancelled status always wins; otherwise the status follows from where now
// falls relative to the event's start and end instants, both inclusive.
func EffectiveStatus(e Event, now time.Time, loc *time.Location) EventStatus {
	if e.Status == StatusCancelled {
		return StatusCancelled
	}
	if e.StartDate.IsZero() {
		if e.Status == "" {
			return StatusUpcoming
		}
		return e.Status
	}

	start := StartInstant(e, loc)
	end := EndInstant(e, loc)

	switch {
	case now.Before(start):
		return StatusUpcoming
	case now.After(end):
		return StatusCompleted
	default:
		return StatusOngoing
	}
}

// StartInstant is StartDate at StartTime, or at midnight when the time is missing or malformed.
func StartInstant(e Event, loc *time.Location) time.Time {
	day := calendarDay(e.StartDate, loc)
	if h, m, s, ok := parseClock(e.StartTime); ok {
		return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
	}
	return day
}

// EndInstant is EndDate at EndTime, or at 23:59:59.999 when the time is
// missing or malformed. Events without an end date end on their start day.
func EndInstant(e Event, loc *time.Location) time.Time {
	date := e.EndDate
	if date.IsZero() {
		date = e.StartDate
	}
	day := calendarDay(date, loc)
	if h, m, s, ok := parseClock(e.EndTime); ok {
		return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
	}
	return day.Add(24*time.Hour - time.Millisecond)
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func parseClock(v string) (h, m, s int, ok bool) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}
		vals[i] = n
	}
	if vals[0] > 23 || vals[1] > 59 || vals[2] > 59 {
		return 0, 0, 0, false
	}
	return vals[0], vals[1], vals[2], true
}
