package firer

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/sandeepkv93/plannerd/internal/model"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func at(day int) time.Time {
	return time.Date(2024, 1, day, 9, 0, 0, 0, time.UTC)
}

// apply persists a tick result into snapshot the way a host would.
func apply(snapshot []model.Reminder, res Result) []model.Reminder {
	out := make([]model.Reminder, 0, len(snapshot)+len(res.Created))
	fired := make(map[string]model.Reminder, len(res.Fired))
	for _, rem := range res.Fired {
		fired[rem.ID] = rem
	}
	for _, rem := range snapshot {
		if updated, ok := fired[rem.ID]; ok {
			rem = updated
		}
		out = append(out, rem)
	}
	return append(out, res.Created...)
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestTickWeeklySeriesFiresThreeTimes(t *testing.T) {
	f := New(WithIDGenerator(sequentialIDs()))
	snapshot := []model.Reminder{{
		ID:          "standup",
		Title:       "Standup",
		FireAt:      at(15),
		IsRecurring: true,
		Recurrence:  model.Weekly{Days: []time.Weekday{time.Monday}},
		End:         model.AfterCount{Remaining: 3},
	}}

	var firedAt []string
	for _, day := range []int{15, 22, 29, 31} {
		res := f.Tick(at(day), snapshot)
		for _, ev := range res.Events {
			if ev.Kind == EventFired {
				firedAt = append(firedAt, ev.At.Format("2006-01-02"))
			}
		}
		snapshot = apply(snapshot, res)
	}
	want := []string{"2024-01-15", "2024-01-22", "2024-01-29"}
	if !reflect.DeepEqual(firedAt, want) {
		t.Fatalf("fired %v, want %v", firedAt, want)
	}
	if len(snapshot) != 3 {
		t.Fatalf("expected three records in the series, got %d", len(snapshot))
	}
	for _, rem := range snapshot {
		if !rem.Fired || rem.Series() != "standup" {
			t.Fatalf("unexpected record: %+v", rem)
		}
	}
	last := snapshot[2]
	if last.End != (model.AfterCount{Remaining: 1}) {
		t.Fatalf("expected last occurrence to carry one remaining, got %#v", last.End)
	}
}

func TestTickIsIdempotentForSameSnapshot(t *testing.T) {
	f := New(WithIDGenerator(sequentialIDs()))
	snapshot := []model.Reminder{
		{ID: "a", Title: "once", FireAt: at(10)},
		{ID: "b", Title: "daily", FireAt: at(10), IsRecurring: true, Recurrence: model.Daily{}},
		{ID: "c", Title: "later", FireAt: at(20)},
	}

	first := f.Tick(at(10), snapshot)
	second := f.Tick(at(10), snapshot)
	if countKind(first.Events, EventFired) != 2 {
		t.Fatalf("expected two fires, got %+v", first.Events)
	}
	if len(second.Events) != 0 || len(second.Created) != 0 {
		t.Fatalf("second tick must not fire again: %+v", second)
	}
	if snapshot[0].Fired || snapshot[1].Fired {
		t.Fatalf("tick mutated the snapshot")
	}
	if len(first.Created) != 1 || !first.Created[0].FireAt.Equal(at(11)) || first.Created[0].ID != "gen-1" {
		t.Fatalf("unexpected next occurrence: %+v", first.Created)
	}
}

func TestTickSkipsRecordsAlreadyFired(t *testing.T) {
	f := New()
	res := f.Tick(at(10), []model.Reminder{{ID: "a", FireAt: at(1), Fired: true}})
	if len(res.Events) != 0 {
		t.Fatalf("fired record must not fire again: %+v", res.Events)
	}
}

func TestTickOrdersByFireTime(t *testing.T) {
	f := New()
	res := f.Tick(at(10), []model.Reminder{
		{ID: "late", FireAt: at(9)},
		{ID: "b", FireAt: at(3)},
		{ID: "a", FireAt: at(3)},
	})
	var ids []string
	for _, rem := range res.Fired {
		ids = append(ids, rem.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "late"}) {
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestTickEndsAtOnDate(t *testing.T) {
	f := New()
	res := f.Tick(at(10), []model.Reminder{{
		ID:          "r",
		FireAt:      at(10),
		IsRecurring: true,
		Recurrence:  model.Daily{},
		End:         model.OnDate{Date: at(10).Add(12 * time.Hour)},
	}})
	if len(res.Created) != 0 || countKind(res.Events, EventEnded) != 1 {
		t.Fatalf("expected series to end, got %+v", res)
	}
}

func TestTickCollectsInvalidRules(t *testing.T) {
	f := New()
	res := f.Tick(at(10), []model.Reminder{
		{ID: "bad", FireAt: at(5), IsRecurring: true, Recurrence: model.MonthlyByWeekday{Position: 7, Weekday: time.Friday}},
		{ID: "good", FireAt: at(6)},
	})
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], model.ErrConfiguration) {
		t.Fatalf("expected one configuration error, got %v", res.Errors)
	}
	if countKind(res.Events, EventFired) != 2 || countKind(res.Events, EventFailed) != 1 {
		t.Fatalf("unexpected events: %+v", res.Events)
	}
	if len(res.Created) != 0 {
		t.Fatalf("invalid rule must not produce an occurrence: %+v", res.Created)
	}
}

func TestTickCatchesUpMissedOccurrences(t *testing.T) {
	rem := model.Reminder{ID: "r", FireAt: at(1), IsRecurring: true, Recurrence: model.Daily{}, End: model.AfterCount{Remaining: 10}}

	res := New().Tick(at(5), []model.Reminder{rem})
	if len(res.Created) != 1 || !res.Created[0].FireAt.Equal(at(2)) {
		t.Fatalf("default mode should schedule the next occurrence: %+v", res.Created)
	}

	res = New(WithSkipMissed(true)).Tick(at(5).Add(time.Minute), []model.Reminder{rem})
	if len(res.Created) != 1 || !res.Created[0].FireAt.Equal(at(6)) {
		t.Fatalf("skip mode should jump past now: %+v", res.Created)
	}
	if res.Created[0].End != (model.AfterCount{Remaining: 5}) {
		t.Fatalf("skipped occurrences must consume the count: %#v", res.Created[0].End)
	}
}

func TestAcknowledgeFired(t *testing.T) {
	f := New()
	snapshot := []model.Reminder{{ID: "a", FireAt: at(1)}}
	f.Tick(at(2), snapshot)

	if got := f.Pending(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("unexpected pending: %v", got)
	}
	if err := f.AcknowledgeFired("a"); err != nil {
		t.Fatalf("ack failed: %v", err)
	}
	if len(f.Pending()) != 0 {
		t.Fatalf("expected ledger to be empty")
	}
	err := f.AcknowledgeFired("a")
	var nf *model.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "a" {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSnooze(t *testing.T) {
	f := New()
	snapshot := []model.Reminder{{ID: "a", FireAt: at(1)}}
	f.Tick(at(2), snapshot)

	moved, err := f.Snooze(snapshot, "a", at(3))
	if err != nil {
		t.Fatalf("snooze failed: %v", err)
	}
	if moved.Fired || !moved.FireAt.Equal(at(3)) || !snapshot[0].FireAt.Equal(at(1)) {
		t.Fatalf("unexpected snooze result: %+v", moved)
	}
	if res := f.Tick(at(3), []model.Reminder{moved}); countKind(res.Events, EventFired) != 1 {
		t.Fatalf("snoozed reminder should fire again: %+v", res.Events)
	}
	if _, err := f.Snooze(snapshot, "missing", at(3)); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSnoozeFiredRecurringLeavesSeriesAlone(t *testing.T) {
	f := New(WithIDGenerator(sequentialIDs()))
	snapshot := []model.Reminder{{
		ID:          "standup",
		Title:       "Standup",
		FireAt:      at(15),
		IsRecurring: true,
		Recurrence:  model.Weekly{Days: []time.Weekday{time.Monday}},
		End:         model.AfterCount{Remaining: 3},
	}}
	snapshot = apply(snapshot, f.Tick(at(15), snapshot))
	if err := f.AcknowledgeFired("standup"); err != nil {
		t.Fatalf("ack failed: %v", err)
	}

	later := at(15).Add(10 * time.Minute)
	followUp, err := f.Snooze(snapshot, "standup", later)
	if err != nil {
		t.Fatalf("snooze failed: %v", err)
	}
	if followUp.ID == "standup" || followUp.IsRecurring || followUp.Recurrence != nil || followUp.End != nil || followUp.Fired {
		t.Fatalf("expected a one-shot follow-up, got %+v", followUp)
	}
	if !followUp.FireAt.Equal(later) || followUp.Title != "Standup" {
		t.Fatalf("unexpected follow-up: %+v", followUp)
	}
	if !snapshot[0].Fired {
		t.Fatalf("fired record must stay fired: %+v", snapshot[0])
	}

	snapshot = append(snapshot, followUp)
	res := f.Tick(later, snapshot)
	if countKind(res.Events, EventFired) != 1 || len(res.Created) != 0 || res.Fired[0].ID != followUp.ID {
		t.Fatalf("follow-up should fire once without a successor: %+v", res)
	}
	snapshot = apply(snapshot, res)

	fires := 0
	for _, day := range []int{22, 29, 36} {
		res := f.Tick(at(day), snapshot)
		fires += countKind(res.Events, EventFired)
		snapshot = apply(snapshot, res)
	}
	if fires != 2 {
		t.Fatalf("series should fire twice more after the first occurrence, got %d", fires)
	}
	for _, rem := range snapshot {
		if !rem.Fired {
			t.Fatalf("unexpected pending occurrence after series end: %+v", rem)
		}
	}
}

func TestRetryRedeliversWithSameSuccessor(t *testing.T) {
	f := New(WithIDGenerator(sequentialIDs()))
	snapshot := []model.Reminder{{ID: "s", Title: "stretch", FireAt: at(1), IsRecurring: true, Recurrence: model.Daily{}}}

	first := f.Tick(at(1), snapshot)
	if len(first.Created) != 1 || first.Created[0].ID != "gen-1" {
		t.Fatalf("unexpected first tick: %+v", first)
	}
	if err := f.Retry("s"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	again := f.Tick(at(1), snapshot)
	if len(again.Fired) != 1 || len(again.Created) != 1 {
		t.Fatalf("expected the fire to be handed back, got %+v", again)
	}
	if again.Created[0].ID != "gen-1" || !again.Created[0].FireAt.Equal(at(2)) {
		t.Fatalf("retry must reuse the successor, got %+v", again.Created[0])
	}
	if ev := again.Events[0]; ev.Kind != EventFired || !ev.Redelivered {
		t.Fatalf("expected a redelivered fire event, got %+v", ev)
	}

	if res := f.Tick(at(1), snapshot); len(res.Events) != 0 {
		t.Fatalf("retry is one-shot, got %+v", res.Events)
	}
	if err := f.Retry("missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
