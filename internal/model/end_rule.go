package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type EndKind string

const (
	EndNever      EndKind = "never"
	EndAfterCount EndKind = "afterCount"
	EndOnDate     EndKind = "onDate"
)

// EndRule bounds a series. A nil EndRule behaves as Never.
type EndRule interface {
	EndKind() EndKind
	Validate() error
	String() string
	isEndRule()
}

type Never struct{}

// AfterCount counts the occurrences left in the series, the current one
// included.
type AfterCount struct {
	Remaining int
}

// OnDate stops the series after Date; an occurrence exactly at Date still fires.
type OnDate struct {
	Date time.Time
}

func (Never) EndKind() EndKind      { return EndNever }
func (AfterCount) EndKind() EndKind { return EndAfterCount }
func (OnDate) EndKind() EndKind     { return EndOnDate }

func (Never) isEndRule()      {}
func (AfterCount) isEndRule() {}
func (OnDate) isEndRule()     {}

func (Never) Validate() error { return nil }

func (a AfterCount) Validate() error {
	if a.Remaining < 1 {
		return configErrorf("remaining", "count must be positive, got %d", a.Remaining)
	}
	return nil
}

func (o OnDate) Validate() error {
	if o.Date.IsZero() {
		return configErrorf("date", "end date is required")
	}
	return nil
}

func (Never) String() string        { return "never" }
func (a AfterCount) String() string { return fmt.Sprintf("times:%d", a.Remaining) }
func (o OnDate) String() string     { return "until:" + o.Date.Format(time.DateOnly) }

// ParseEndRule reads never, times:N or until:YYYY-MM-DD. An until date covers
// the whole day in loc.
func ParseEndRule(raw string, loc *time.Location) (EndRule, error) {
	if loc == nil {
		loc = time.Local
	}
	text := strings.ToLower(strings.TrimSpace(raw))
	head, rest, _ := strings.Cut(text, ":")
	switch head {
	case "", "never":
		return Never{}, nil
	case "times", "count":
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return nil, configErrorf("remaining", "invalid count %q", rest)
		}
		rule := AfterCount{Remaining: n}
		return rule, rule.Validate()
	case "until":
		day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(rest), loc)
		if err != nil {
			return nil, configErrorf("date", "invalid end date %q", rest)
		}
		return OnDate{Date: EndOfDay(day)}, nil
	default:
		return nil, configErrorf("endRule", "unknown end rule %q", raw)
	}
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
