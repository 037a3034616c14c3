package model

import (
	"errors"
	"strings"
	"time"
)

type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Completed    bool       `json:"completed"`
	Dependencies []string   `json:"dependencies"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	for _, dep := range t.Dependencies {
		if strings.TrimSpace(dep) == "" {
			return configErrorf("dependencies", "empty prerequisite id on task %q", t.ID)
		}
		if dep == t.ID {
			return configErrorf("dependencies", "task %q depends on itself", t.ID)
		}
	}
	if t.Completed && t.CompletedAt == nil {
		return errors.New("model: completedAt is required when task is completed")
	}
	if !t.Completed && t.CompletedAt != nil {
		return errors.New("model: completedAt must be nil when task is not completed")
	}
	return nil
}

func (t Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// WithDependency returns a copy with id appended to the prerequisites. The
// receiver's slice is never shared with the result.
func (t Task) WithDependency(id string) Task {
	out := t
	out.Dependencies = make([]string, 0, len(t.Dependencies)+1)
	out.Dependencies = append(out.Dependencies, t.Dependencies...)
	if !t.DependsOn(id) {
		out.Dependencies = append(out.Dependencies, id)
	}
	return out
}

// MarkCompleted returns a completed copy stamped with at.
func (t Task) MarkCompleted(at time.Time) Task {
	out := t
	out.Completed = true
	stamp := at
	out.CompletedAt = &stamp
	return out
}
