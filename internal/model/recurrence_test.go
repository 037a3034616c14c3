package model

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseRecurrence(t *testing.T) {
	cases := []struct {
		in   string
		want RecurrenceRule
	}{
		{"daily", Daily{}},
		{"Yearly", Yearly{}},
		{"weekly", Weekly{}},
		{"weekly:mon,wed,fri", Weekly{Days: []time.Weekday{time.Monday, time.Wednesday, time.Friday}}},
		{"weekdays", Weekly{Days: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}}},
		{"monthly", MonthlyByDay{}},
		{"monthly:15", MonthlyByDay{Day: 15}},
		{"monthly:2:fri", MonthlyByWeekday{Position: 2, Weekday: time.Friday}},
		{"monthly:last:sun", MonthlyByWeekday{Position: LastWeekday, Weekday: time.Sunday}},
	}
	for _, tc := range cases {
		got, err := ParseRecurrence(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("parse %q = %#v, want %#v", tc.in, got, tc.want)
		}
		if _, err := ParseRecurrence(got.String()); err != nil {
			t.Fatalf("String() of %q does not parse back: %v", tc.in, err)
		}
	}
}

func TestParseRecurrenceRejectsInvalid(t *testing.T) {
	for _, in := range []string{"hourly", "weekly:funday", "monthly:5:fri", "monthly:0:mon", "monthly:40"} {
		if _, err := ParseRecurrence(in); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("parse %q: expected ErrConfiguration, got %v", in, err)
		}
	}
}

func TestParseEndRule(t *testing.T) {
	loc := time.UTC
	rule, err := ParseEndRule("until:2026-01-29", loc)
	if err != nil {
		t.Fatalf("parse until failed: %v", err)
	}
	on, ok := rule.(OnDate)
	if !ok {
		t.Fatalf("expected OnDate, got %#v", rule)
	}
	if on.Date.Format(time.RFC3339) != "2026-01-29T23:59:59Z" {
		t.Fatalf("unexpected end of day: %s", on.Date.Format(time.RFC3339Nano))
	}

	rule, err = ParseEndRule("times:3", loc)
	if err != nil || rule != (AfterCount{Remaining: 3}) {
		t.Fatalf("unexpected count rule: %#v err=%v", rule, err)
	}

	if _, err := ParseEndRule("times:0", loc); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for zero count, got %v", err)
	}
	if rule, _ := ParseEndRule("", loc); rule != (Never{}) {
		t.Fatalf("expected Never for empty input, got %#v", rule)
	}
}
