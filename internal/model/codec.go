package model

import (
	"bytes"
	"encoding/json"
	"time"
)

type recurrenceWire struct {
	Type       RecurrenceKind `json:"type"`
	DaysOfWeek []int          `json:"daysOfWeek,omitempty"`
	Mode       MonthlyMode    `json:"mode,omitempty"`
	Day        int            `json:"day,omitempty"`
	Position   int            `json:"position,omitempty"`
	Weekday    *int           `json:"weekday,omitempty"`
}

type endWire struct {
	Type      EndKind    `json:"type"`
	Remaining int        `json:"remaining,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
}

// MarshalRecurrence encodes a rule with its "type" tag. A nil rule encodes as null.
func MarshalRecurrence(rule RecurrenceRule) ([]byte, error) {
	if rule == nil {
		return []byte("null"), nil
	}
	w := recurrenceWire{Type: rule.Kind()}
	switch r := rule.(type) {
	case Daily, Yearly:
	case Weekly:
		w.DaysOfWeek = make([]int, 0, len(r.Days))
		for _, d := range r.SortedDays() {
			w.DaysOfWeek = append(w.DaysOfWeek, int(d))
		}
	case MonthlyByDay:
		w.Mode = MonthlyByDayOfMonth
		w.Day = r.Day
	case MonthlyByWeekday:
		w.Mode = MonthlyByWeekdayPosition
		w.Position = r.Position
		wd := int(r.Weekday)
		w.Weekday = &wd
	default:
		return nil, configErrorf("recurrenceRule", "unsupported rule %T", rule)
	}
	return json.Marshal(w)
}

func UnmarshalRecurrence(data []byte) (RecurrenceRule, error) {
	if isNullJSON(data) {
		return nil, nil
	}
	var w recurrenceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, configErrorf("recurrenceRule", "decode: %v", err)
	}
	var rule RecurrenceRule
	switch w.Type {
	case RecurrenceDaily:
		rule = Daily{}
	case RecurrenceYearly:
		rule = Yearly{}
	case RecurrenceWeekly:
		days := make([]time.Weekday, 0, len(w.DaysOfWeek))
		for _, d := range w.DaysOfWeek {
			days = append(days, time.Weekday(d))
		}
		rule = Weekly{Days: days}
	case RecurrenceMonthly:
		switch w.Mode {
		case "", MonthlyByDayOfMonth:
			rule = MonthlyByDay{Day: w.Day}
		case MonthlyByWeekdayPosition:
			if w.Weekday == nil {
				return nil, configErrorf("weekday", "required for %s", w.Mode)
			}
			rule = MonthlyByWeekday{Position: w.Position, Weekday: time.Weekday(*w.Weekday)}
		default:
			return nil, configErrorf("mode", "unknown monthly mode %q", w.Mode)
		}
	default:
		return nil, configErrorf("recurrenceRule", "unknown type %q", w.Type)
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

// MarshalEndRule encodes an end rule with its "type" tag. A nil rule encodes as null.
func MarshalEndRule(rule EndRule) ([]byte, error) {
	if rule == nil {
		return []byte("null"), nil
	}
	w := endWire{Type: rule.EndKind()}
	switch r := rule.(type) {
	case Never:
	case AfterCount:
		w.Remaining = r.Remaining
	case OnDate:
		d := r.Date
		w.Date = &d
	default:
		return nil, configErrorf("endRule", "unsupported end rule %T", rule)
	}
	return json.Marshal(w)
}

func UnmarshalEndRule(data []byte) (EndRule, error) {
	if isNullJSON(data) {
		return nil, nil
	}
	var w endWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, configErrorf("endRule", "decode: %v", err)
	}
	var rule EndRule
	switch w.Type {
	case EndNever:
		rule = Never{}
	case EndAfterCount:
		rule = AfterCount{Remaining: w.Remaining}
	case EndOnDate:
		if w.Date == nil {
			return nil, configErrorf("date", "end date is required")
		}
		rule = OnDate{Date: *w.Date}
	default:
		return nil, configErrorf("endRule", "unknown type %q", w.Type)
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

func isNullJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
