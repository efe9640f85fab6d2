package schedule

import "time"

// Weekday numbering used throughout the config and this package:
// 0=Monday ... 6=Sunday. Go's time.Weekday starts at Sunday, so convert
// at the boundary and nowhere else.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// TargetDate returns the most recent occurrence of expectedDay on or before
// now, normalized to midnight in now's location. If today is the expected
// day, the target is today.
func TargetDate(now time.Time, expectedDay int) time.Time {
	daysSince := (Weekday(now) - expectedDay + 7) % 7
	day := now.AddDate(0, 0, -daysSince)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}

// Window is the half-open interval [Start, End) a delivery must fall in.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor covers the whole calendar day of target.
func WindowFor(target time.Time) Window {
	return Window{Start: target, End: target.AddDate(0, 0, 1)}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// AlertDue reports whether the absence of a matching email is actionable:
// the expected day has already occurred this week and a full day has passed
// since the target date. Before that the email may simply not have been
// sent yet.
func AlertDue(now, target time.Time, expectedDay int) bool {
	if Weekday(now) < expectedDay {
		return false
	}
	return now.Sub(target) >= 24*time.Hour
}
