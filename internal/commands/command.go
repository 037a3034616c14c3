package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/plannerd/internal/model"
)

type Type string

const (
	TypeAdd    Type = "add"
	TypeDepend Type = "depend"
	TypeDone   Type = "done"
	TypeRemind Type = "remind"
	TypeSnooze Type = "snooze"
	TypeAck    Type = "ack"
	TypeShow   Type = "show"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type AddArgs struct {
	Title string
}

type DependArgs struct {
	Task          string
	Prerequisites []string
}

type DoneArgs struct {
	Task string
}

type RemindArgs struct {
	When  string
	Title string
	// Every is a recurrence in model.ParseRecurrence syntax, empty for one-shot.
	Every string
	Until string
	Times int
}

// Rules resolves the recurrence and end rule. Until dates cover the whole day
// in loc.
func (a RemindArgs) Rules(loc *time.Location) (model.RecurrenceRule, model.EndRule, error) {
	if a.Every == "" {
		return nil, nil, nil
	}
	rule, err := model.ParseRecurrence(a.Every)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case a.Until != "":
		end, err := model.ParseEndRule("until:"+a.Until, loc)
		return rule, end, err
	case a.Times > 0:
		return rule, model.AfterCount{Remaining: a.Times}, nil
	default:
		return rule, model.Never{}, nil
	}
}

type SnoozeArgs struct {
	Reminder string
	For      time.Duration
}

type AckArgs struct {
	Reminder string
}

type ShowSubject string

const (
	ShowTasks     ShowSubject = "tasks"
	ShowReminders ShowSubject = "reminders"
	ShowBlocked   ShowSubject = "blocked"
	ShowReady     ShowSubject = "ready"
	ShowOrder     ShowSubject = "order"
)

type ShowArgs struct {
	Subject ShowSubject
}

type Command struct {
	Type   Type
	Raw    string
	Add    *AddArgs
	Depend *DependArgs
	Done   *DoneArgs
	Remind *RemindArgs
	Snooze *SnoozeArgs
	Ack    *AckArgs
	Show   *ShowArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDepend:
		return parseDepend(input, args)
	case TypeDone:
		return parseDone(input, args)
	case TypeRemind:
		return parseRemind(input, args)
	case TypeSnooze:
		return parseSnooze(input, args)
	case TypeAck:
		return parseAck(input, args)
	case TypeShow:
		return parseShow(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return Command{}, invalid("add requires a title")
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Title: title}}, nil
}

// parseDepend accepts "<task> on <prereq>[,<prereq>...]".
func parseDepend(raw string, args []string) (Command, error) {
	if len(args) < 3 || strings.ToLower(args[1]) != "on" {
		return Command{}, invalid("usage: depend <task> on <task>[,<task>]")
	}
	task := args[0]
	var prereqs []string
	for _, arg := range args[2:] {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				prereqs = append(prereqs, id)
			}
		}
	}
	if len(prereqs) == 0 {
		return Command{}, invalid("depend requires at least one prerequisite")
	}
	for _, id := range prereqs {
		if id == task {
			return Command{}, invalid("task %s cannot depend on itself", task)
		}
	}
	return Command{Type: TypeDepend, Raw: raw, Depend: &DependArgs{Task: task, Prerequisites: prereqs}}, nil
}

func parseDone(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("done requires exactly one task id")
	}
	return Command{Type: TypeDone, Raw: raw, Done: &DoneArgs{Task: args[0]}}, nil
}

// parseRemind accepts "<when> <title...> [every <rule>] [until <date>|times <n>]".
func parseRemind(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("usage: remind <when> <title> [every <rule>] [until YYYY-MM-DD|times N]")
	}
	out := RemindArgs{When: args[0]}
	var title []string
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		word := strings.ToLower(rest[i])
		switch word {
		case "every", "until", "times":
			if i+1 >= len(rest) {
				return Command{}, invalid("%s requires a value", word)
			}
			value := rest[i+1]
			i++
			if err := out.set(word, value); err != nil {
				return Command{}, err
			}
		default:
			if out.Every != "" || out.Until != "" || out.Times != 0 {
				return Command{}, invalid("unexpected %q after schedule options", rest[i])
			}
			title = append(title, rest[i])
		}
	}
	out.Title = strings.Join(title, " ")
	if out.Title == "" {
		return Command{}, invalid("remind requires a title")
	}
	if out.Every == "" && (out.Until != "" || out.Times != 0) {
		return Command{}, invalid("until and times need an every clause")
	}
	if out.Until != "" && out.Times != 0 {
		return Command{}, invalid("use either until or times, not both")
	}
	return Command{Type: TypeRemind, Raw: raw, Remind: &out}, nil
}

func (a *RemindArgs) set(key, value string) error {
	switch key {
	case "every":
		if _, err := model.ParseRecurrence(value); err != nil {
			return invalid("%v", err)
		}
		a.Every = strings.ToLower(value)
	case "until":
		if _, err := time.Parse(time.DateOnly, value); err != nil {
			return invalid("until expects YYYY-MM-DD, got %q", value)
		}
		a.Until = value
	case "times":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return invalid("times expects a positive count, got %q", value)
		}
		a.Times = n
	}
	return nil
}

func parseSnooze(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("usage: snooze <reminder> <duration>")
	}
	d, err := time.ParseDuration(args[1])
	if err != nil || d <= 0 {
		return Command{}, invalid("snooze expects a positive duration like 10m, got %q", args[1])
	}
	return Command{Type: TypeSnooze, Raw: raw, Snooze: &SnoozeArgs{Reminder: args[0], For: d}}, nil
}

func parseAck(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("ack requires exactly one reminder id")
	}
	return Command{Type: TypeAck, Raw: raw, Ack: &AckArgs{Reminder: args[0]}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("show requires a subject")
	}
	subject := ShowSubject(strings.ToLower(args[0]))
	switch subject {
	case ShowTasks, ShowReminders, ShowBlocked, ShowReady, ShowOrder:
	default:
		return Command{}, invalid("unknown show subject %q", args[0])
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject}}, nil
}

// ParseWhen resolves a reminder time relative to now. Accepted forms: "+90m",
// "HH:MM" (the next such time), "tomorrow", "tomorrow@HH:MM", "YYYY-MM-DD"
// (09:00 that day) and "YYYY-MM-DDTHH:MM".
func ParseWhen(raw string, now time.Time) (time.Time, error) {
	loc := now.Location()
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == "":
		return time.Time{}, invalid("time is required")
	case strings.HasPrefix(value, "+"):
		d, err := time.ParseDuration(value[1:])
		if err != nil || d <= 0 {
			return time.Time{}, invalid("bad relative time %q", raw)
		}
		return now.Add(d), nil
	case value == "tomorrow":
		y, m, d := now.AddDate(0, 0, 1).Date()
		return time.Date(y, m, d, 9, 0, 0, 0, loc), nil
	case strings.HasPrefix(value, "tomorrow@"):
		clock, err := time.Parse("15:04", strings.TrimPrefix(value, "tomorrow@"))
		if err != nil {
			return time.Time{}, invalid("bad time in %q", raw)
		}
		y, m, d := now.AddDate(0, 0, 1).Date()
		return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc), nil
	}

	if clock, err := time.Parse("15:04", value); err == nil {
		y, m, d := now.Date()
		at := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		return at, nil
	}
	if day, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, loc), nil
	}
	if at, err := time.ParseInLocation("2006-01-02t15:04", value, loc); err == nil {
		return at, nil
	}
	return time.Time{}, invalid("unrecognised time %q", raw)
}

// IsArgumentError reports whether err is a user input problem.
func IsArgumentError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce) && ce.Code == ErrCodeInvalidArgument
}
