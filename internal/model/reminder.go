package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type Reminder struct {
	ID          string
	Title       string
	FireAt      time.Time
	IsRecurring bool
	Recurrence  RecurrenceRule
	End         EndRule
	Fired       bool
	SeriesID    string
	TaskID      string
	CreatedAt   time.Time
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("model: reminder id is required")
	}
	if r.FireAt.IsZero() {
		return errors.New("model: reminder fireAt is required")
	}
	if !r.IsRecurring {
		return nil
	}
	if r.Recurrence == nil {
		return configErrorf("recurrenceRule", "required when isRecurring is set")
	}
	if err := r.Recurrence.Validate(); err != nil {
		return err
	}
	if r.End != nil {
		return r.End.Validate()
	}
	return nil
}

// EndRuleOrNever never returns nil.
func (r Reminder) EndRuleOrNever() EndRule {
	if r.End == nil {
		return Never{}
	}
	return r.End
}

// Due reports whether the current occurrence should fire at now.
func (r Reminder) Due(now time.Time) bool {
	return !r.Fired && !now.Before(r.FireAt)
}

// Series returns the series id, falling back to the record id for the first
// occurrence.
func (r Reminder) Series() string {
	if r.SeriesID != "" {
		return r.SeriesID
	}
	return r.ID
}

// Describe renders the schedule as "<rule> <end>" for list views.
func (r Reminder) Describe() string {
	if !r.IsRecurring || r.Recurrence == nil {
		return "once"
	}
	end := r.EndRuleOrNever()
	if end.EndKind() == EndNever {
		return r.Recurrence.String()
	}
	return r.Recurrence.String() + " " + end.String()
}

// In returns a copy with every instant expressed in loc. Stores call it after
// loading so wall-clock recurrence follows the user's zone.
func (r Reminder) In(loc *time.Location) Reminder {
	if loc == nil {
		return r
	}
	out := r
	out.FireAt = r.FireAt.In(loc)
	out.CreatedAt = r.CreatedAt.In(loc)
	if on, ok := r.End.(OnDate); ok {
		out.End = OnDate{Date: on.Date.In(loc)}
	}
	return out
}

type reminderWire struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	FireAt      time.Time       `json:"fireAt"`
	IsRecurring bool            `json:"isRecurring"`
	Recurrence  json.RawMessage `json:"recurrenceRule,omitempty"`
	End         json.RawMessage `json:"endRule,omitempty"`
	Fired       bool            `json:"fired"`
	SeriesID    string          `json:"seriesId,omitempty"`
	TaskID      string          `json:"taskId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (r Reminder) MarshalJSON() ([]byte, error) {
	w := reminderWire{
		ID:          r.ID,
		Title:       r.Title,
		FireAt:      r.FireAt,
		IsRecurring: r.IsRecurring,
		Fired:       r.Fired,
		SeriesID:    r.SeriesID,
		TaskID:      r.TaskID,
		CreatedAt:   r.CreatedAt,
	}
	if r.Recurrence != nil {
		raw, err := MarshalRecurrence(r.Recurrence)
		if err != nil {
			return nil, err
		}
		w.Recurrence = raw
	}
	if r.End != nil {
		raw, err := MarshalEndRule(r.End)
		if err != nil {
			return nil, err
		}
		w.End = raw
	}
	return json.Marshal(w)
}

func (r *Reminder) UnmarshalJSON(data []byte) error {
	var w reminderWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rule, err := UnmarshalRecurrence(w.Recurrence)
	if err != nil {
		return err
	}
	end, err := UnmarshalEndRule(w.End)
	if err != nil {
		return err
	}
	*r = Reminder{
		ID:          w.ID,
		Title:       w.Title,
		FireAt:      w.FireAt,
		IsRecurring: w.IsRecurring,
		Recurrence:  rule,
		End:         end,
		Fired:       w.Fired,
		SeriesID:    w.SeriesID,
		TaskID:      w.TaskID,
		CreatedAt:   w.CreatedAt,
	}
	return nil
}
