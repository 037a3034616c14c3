package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type RecurrenceKind string

const (
	RecurrenceDaily   RecurrenceKind = "daily"
	RecurrenceWeekly  RecurrenceKind = "weekly"
	RecurrenceMonthly RecurrenceKind = "monthly"
	RecurrenceYearly  RecurrenceKind = "yearly"
)

type MonthlyMode string

const (
	MonthlyByDayOfMonth      MonthlyMode = "byDayOfMonth"
	MonthlyByWeekdayPosition MonthlyMode = "byWeekdayPosition"
)

// LastWeekday selects the final matching weekday of a month.
const LastWeekday = -1

// RecurrenceRule is a closed set of variants: Daily, Weekly, MonthlyByDay,
// MonthlyByWeekday and Yearly.
type RecurrenceRule interface {
	Kind() RecurrenceKind
	Validate() error
	String() string
	isRecurrenceRule()
}

type Daily struct{}

// Weekly fires on each selected weekday. An empty set means the weekday of the
// current occurrence.
type Weekly struct {
	Days []time.Weekday
}

// MonthlyByDay keeps the day of month, clamped to the month's last day. Day 0
// follows the current occurrence's day.
type MonthlyByDay struct {
	Day int
}

// MonthlyByWeekday picks the Position-th Weekday of the month (1..4), or the
// last one when Position is LastWeekday.
type MonthlyByWeekday struct {
	Position int
	Weekday  time.Weekday
}

type Yearly struct{}

func (Daily) Kind() RecurrenceKind            { return RecurrenceDaily }
func (Weekly) Kind() RecurrenceKind           { return RecurrenceWeekly }
func (MonthlyByDay) Kind() RecurrenceKind     { return RecurrenceMonthly }
func (MonthlyByWeekday) Kind() RecurrenceKind { return RecurrenceMonthly }
func (Yearly) Kind() RecurrenceKind           { return RecurrenceYearly }

func (Daily) isRecurrenceRule()            {}
func (Weekly) isRecurrenceRule()           {}
func (MonthlyByDay) isRecurrenceRule()     {}
func (MonthlyByWeekday) isRecurrenceRule() {}
func (Yearly) isRecurrenceRule()           {}

func (Daily) Validate() error  { return nil }
func (Yearly) Validate() error { return nil }

func (w Weekly) Validate() error {
	for _, d := range w.Days {
		if d < time.Sunday || d > time.Saturday {
			return configErrorf("daysOfWeek", "weekday %d out of range 0..6", int(d))
		}
	}
	return nil
}

func (m MonthlyByDay) Validate() error {
	if m.Day < 0 || m.Day > 31 {
		return configErrorf("day", "day of month %d out of range 1..31", m.Day)
	}
	return nil
}

func (m MonthlyByWeekday) Validate() error {
	if !ValidPosition(m.Position) {
		return configErrorf("position", "position %d not in {1,2,3,4,-1}", m.Position)
	}
	if m.Weekday < time.Sunday || m.Weekday > time.Saturday {
		return configErrorf("weekday", "weekday %d out of range 0..6", int(m.Weekday))
	}
	return nil
}

func ValidPosition(p int) bool {
	switch p {
	case 1, 2, 3, 4, LastWeekday:
		return true
	default:
		return false
	}
}

// SortedDays returns the distinct selected weekdays in ascending order.
func (w Weekly) SortedDays() []time.Weekday {
	seen := make(map[time.Weekday]bool, len(w.Days))
	out := make([]time.Weekday, 0, len(w.Days))
	for _, d := range w.Days {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (Daily) String() string  { return "daily" }
func (Yearly) String() string { return "yearly" }

func (w Weekly) String() string {
	days := w.SortedDays()
	if len(days) == 0 {
		return "weekly"
	}
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, shortWeekday(d))
	}
	return "weekly:" + strings.Join(names, ",")
}

func (m MonthlyByDay) String() string {
	if m.Day == 0 {
		return "monthly"
	}
	return fmt.Sprintf("monthly:%d", m.Day)
}

func (m MonthlyByWeekday) String() string {
	pos := strconv.Itoa(m.Position)
	if m.Position == LastWeekday {
		pos = "last"
	}
	return fmt.Sprintf("monthly:%s:%s", pos, shortWeekday(m.Weekday))
}

// ParseRecurrence reads the compact text form used by commands and the CLI:
// daily, weekdays, weekly[:mon,wed], monthly[:15], monthly:2:fri,
// monthly:last:fri, yearly.
func ParseRecurrence(raw string) (RecurrenceRule, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	head, rest, _ := strings.Cut(text, ":")
	switch head {
	case "daily":
		return Daily{}, nil
	case "yearly":
		return Yearly{}, nil
	case "weekdays":
		return Weekly{Days: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}}, nil
	case "weekly":
		if rest == "" {
			return Weekly{}, nil
		}
		days := make([]time.Weekday, 0, 7)
		for _, token := range strings.Split(rest, ",") {
			d, err := ParseWeekday(token)
			if err != nil {
				return nil, err
			}
			days = append(days, d)
		}
		return Weekly{Days: days}, nil
	case "monthly":
		if rest == "" {
			return MonthlyByDay{}, nil
		}
		posText, dayText, hasWeekday := strings.Cut(rest, ":")
		if !hasWeekday {
			day, err := strconv.Atoi(posText)
			if err != nil {
				return nil, configErrorf("day", "invalid day of month %q", posText)
			}
			rule := MonthlyByDay{Day: day}
			return rule, rule.Validate()
		}
		pos := LastWeekday
		if posText != "last" {
			p, err := strconv.Atoi(posText)
			if err != nil {
				return nil, configErrorf("position", "invalid position %q", posText)
			}
			pos = p
		}
		wd, err := ParseWeekday(dayText)
		if err != nil {
			return nil, err
		}
		rule := MonthlyByWeekday{Position: pos, Weekday: wd}
		return rule, rule.Validate()
	default:
		return nil, configErrorf("recurrenceRule", "unknown rule %q", raw)
	}
}

func ParseWeekday(raw string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sun", "sunday", "0":
		return time.Sunday, nil
	case "mon", "monday", "1":
		return time.Monday, nil
	case "tue", "tuesday", "2":
		return time.Tuesday, nil
	case "wed", "wednesday", "3":
		return time.Wednesday, nil
	case "thu", "thursday", "4":
		return time.Thursday, nil
	case "fri", "friday", "5":
		return time.Friday, nil
	case "sat", "saturday", "6":
		return time.Saturday, nil
	default:
		return 0, configErrorf("weekday", "unknown weekday %q", raw)
	}
}

func shortWeekday(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return strconv.Itoa(int(d))
	}
	return strings.ToLower(d.String()[:3])
}
