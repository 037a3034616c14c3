// Package recurrence computes the next occurrence of a reminder series and
// decides whether a series continues. Every function is pure: results depend
// only on the arguments, never on the wall clock.
package recurrence

import (
	"time"

	"github.com/sandeepkv93/plannerd/internal/model"
)

// Next returns the occurrence that follows current under rule. The result is
// expressed in current's location and keeps its wall-clock time of day.
func Next(current time.Time, rule model.RecurrenceRule) (time.Time, error) {
	if rule == nil {
		return time.Time{}, model.NewConfigurationError("recurrenceRule", "rule is required")
	}
	if err := rule.Validate(); err != nil {
		return time.Time{}, err
	}

	switch r := rule.(type) {
	case model.Daily:
		return current.AddDate(0, 0, 1), nil
	case model.Weekly:
		return nextWeekly(current, r), nil
	case model.MonthlyByDay:
		return nextMonthlyByDay(current, r), nil
	case model.MonthlyByWeekday:
		return nextMonthlyByWeekday(current, r), nil
	case model.Yearly:
		return nextYearly(current), nil
	default:
		return time.Time{}, model.NewConfigurationError("recurrenceRule", "unsupported rule %T", rule)
	}
}

// ShouldFireNext reports whether the series continues with proposed as its next
// occurrence, given the end rule of the occurrence that is firing now.
func ShouldFireNext(end model.EndRule, proposed time.Time) bool {
	switch e := end.(type) {
	case nil, model.Never:
		return true
	case model.AfterCount:
		return e.Remaining > 1
	case model.OnDate:
		return !proposed.After(e.Date)
	default:
		return false
	}
}

// Consume returns the end rule carried by the next occurrence.
func Consume(end model.EndRule) model.EndRule {
	if c, ok := end.(model.AfterCount); ok {
		return model.AfterCount{Remaining: c.Remaining - 1}
	}
	return end
}

// Preview lists up to count occurrences after start, stopping early when the
// end rule terminates the series. start itself is treated as the occurrence
// that fires first.
func Preview(start time.Time, rule model.RecurrenceRule, end model.EndRule, count int) ([]time.Time, error) {
	if count <= 0 {
		return []time.Time{}, nil
	}
	out := make([]time.Time, 0, count)
	cursor := start
	for len(out) < count {
		next, err := Next(cursor, rule)
		if err != nil {
			return nil, err
		}
		if !ShouldFireNext(end, next) {
			break
		}
		out = append(out, next)
		end = Consume(end)
		cursor = next
	}
	return out, nil
}

func nextWeekly(current time.Time, rule model.Weekly) time.Time {
	today := current.Weekday()
	days := rule.SortedDays()
	if len(days) == 0 {
		return current.AddDate(0, 0, 7)
	}
	for _, d := range days {
		if d > today {
			return current.AddDate(0, 0, int(d-today))
		}
	}
	return current.AddDate(0, 0, int(days[0])+7-int(today))
}

func nextMonthlyByDay(current time.Time, rule model.MonthlyByDay) time.Time {
	day := rule.Day
	if day == 0 {
		day = current.Day()
	}
	year, month := addMonths(current, 1)
	return withClock(year, month, min(day, daysIn(year, month)), current)
}

func nextMonthlyByWeekday(current time.Time, rule model.MonthlyByWeekday) time.Time {
	year, month := addMonths(current, 1)
	return withClock(year, month, weekdayInMonth(year, month, rule.Position, rule.Weekday), current)
}

func nextYearly(current time.Time) time.Time {
	year := current.Year() + 1
	month := current.Month()
	return withClock(year, month, min(current.Day(), daysIn(year, month)), current)
}

// weekdayInMonth returns the day of month of the position-th weekday. The last
// occurrence walks back from the month's final day, so no search loop is needed.
func weekdayInMonth(year int, month time.Month, position int, weekday time.Weekday) int {
	if position == model.LastWeekday {
		last := daysIn(year, month)
		lastWeekday := time.Date(year, month, last, 0, 0, 0, 0, time.UTC).Weekday()
		back := (int(lastWeekday) - int(weekday) + 7) % 7
		return last - back
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	offset := (int(weekday) - int(first) + 7) % 7
	return 1 + offset + 7*(position-1)
}

func addMonths(t time.Time, n int) (int, time.Month) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return first.Year(), first.Month()
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func withClock(year int, month time.Month, day int, clock time.Time) time.Time {
	return time.Date(year, month, day, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), clock.Location())
}
