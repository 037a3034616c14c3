package commands

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sandeepkv93/plannerd/internal/model"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/add pay rent", TypeAdd},
		{"depend ship on build,test", TypeDepend},
		{"/done build", TypeDone},
		{"/remind 09:00 standup every weekdays", TypeRemind},
		{"snooze r-1 10m", TypeSnooze},
		{"/ack r-1", TypeAck},
		{"show blocked", TypeShow},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/unknown do x")
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if _, err := Parse("  / "); !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
		t.Fatalf("expected empty input error, got %v", err)
	}
}

func TestParseDepend(t *testing.T) {
	cmd, err := Parse("/depend ship on build, test")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Depend.Task != "ship" || !reflect.DeepEqual(cmd.Depend.Prerequisites, []string{"build", "test"}) {
		t.Fatalf("unexpected args: %+v", cmd.Depend)
	}
	for _, in := range []string{"/depend ship build", "/depend ship on ship", "/depend ship on ,"} {
		if _, err := Parse(in); !IsArgumentError(err) {
			t.Fatalf("parse %q: expected argument error, got %v", in, err)
		}
	}
}

func TestParseRemind(t *testing.T) {
	cmd, err := Parse("/remind 2024-01-15T09:00 team standup every weekly:mon times 3")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := RemindArgs{When: "2024-01-15T09:00", Title: "team standup", Every: "weekly:mon", Times: 3}
	if *cmd.Remind != want {
		t.Fatalf("unexpected args: %+v", *cmd.Remind)
	}
	rule, end, err := cmd.Remind.Rules(time.UTC)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if !reflect.DeepEqual(rule, model.Weekly{Days: []time.Weekday{time.Monday}}) || end != (model.AfterCount{Remaining: 3}) {
		t.Fatalf("unexpected rules: %#v %#v", rule, end)
	}

	once, err := Parse("/remind +30m call the bank")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if rule, end, _ := once.Remind.Rules(time.UTC); rule != nil || end != nil {
		t.Fatalf("one-shot reminder must have no rules: %#v %#v", rule, end)
	}

	until, err := Parse("/remind 08:00 pay rent every monthly:last:fri until 2026-12-31")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, end, _ := until.Remind.Rules(time.UTC); end.EndKind() != model.EndOnDate {
		t.Fatalf("expected OnDate end rule, got %#v", end)
	}
}

func TestParseRemindRejects(t *testing.T) {
	for _, in := range []string{
		"/remind 09:00",
		"/remind 09:00 standup every",
		"/remind 09:00 standup every fortnightly",
		"/remind 09:00 standup times 3",
		"/remind 09:00 standup every daily times 0",
		"/remind 09:00 standup every daily until tomorrow",
		"/remind 09:00 standup every daily until 2026-01-01 times 2",
		"/remind 09:00 standup every daily extra words",
	} {
		if _, err := Parse(in); !IsArgumentError(err) {
			t.Fatalf("parse %q: expected argument error, got %v", in, err)
		}
	}
}

func TestParseSnoozeAndShow(t *testing.T) {
	cmd, err := Parse("/snooze r-9 1h30m")
	if err != nil || cmd.Snooze.For != 90*time.Minute || cmd.Snooze.Reminder != "r-9" {
		t.Fatalf("unexpected snooze: %+v err=%v", cmd.Snooze, err)
	}
	if _, err := Parse("/snooze r-9 later"); !IsArgumentError(err) {
		t.Fatalf("expected argument error, got %v", err)
	}
	if _, err := Parse("/show calendar"); !IsArgumentError(err) {
		t.Fatalf("expected argument error, got %v", err)
	}
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2026, 2, 9, 14, 30, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Time
	}{
		{"+45m", now.Add(45 * time.Minute)},
		{"16:00", time.Date(2026, 2, 9, 16, 0, 0, 0, time.UTC)},
		{"09:00", time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)},
		{"tomorrow", time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)},
		{"tomorrow@07:15", time.Date(2026, 2, 10, 7, 15, 0, 0, time.UTC)},
		{"2026-03-01", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"2026-03-01T18:45", time.Date(2026, 3, 1, 18, 45, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseWhen(tc.in, now)
		if err != nil {
			t.Fatalf("ParseWhen(%q) failed: %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseWhen(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	for _, in := range []string{"", "+soon", "noonish", "25:00"} {
		if _, err := ParseWhen(in, now); !IsArgumentError(err) {
			t.Fatalf("ParseWhen(%q): expected argument error, got %v", in, err)
		}
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/add write docs")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Add: func(a AddArgs) (Result, error) {
			called = true
			if a.Title != "write docs" {
				t.Fatalf("unexpected title: %q", a.Title)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("show tasks")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{})
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
