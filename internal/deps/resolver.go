// Package deps derives which tasks are blocked by incomplete prerequisites and,
// for callers that want one, a deterministic completion order.
//
// Blocking is a one-hop check. A blocked task can never be completed, so its
// own incompletion blocks its dependents and the rule propagates along chains
// without walking them. Cycles are legal data: every member stays blocked.
package deps

import (
	"sort"

	"github.com/sandeepkv93/plannerd/internal/model"
)

// Set is an unordered collection of task ids.
type Set map[string]struct{}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Len() int { return len(s) }

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func index(tasks []model.Task) map[string]model.Task {
	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return byID
}

// BlockedSet returns the ids of tasks with at least one existing, incomplete
// prerequisite. Dangling and self references never block.
func BlockedSet(tasks []model.Task) Set {
	byID := index(tasks)
	blocked := make(Set)
	for _, t := range tasks {
		if len(incomplete(byID, t)) > 0 {
			blocked[t.ID] = struct{}{}
		}
	}
	return blocked
}

func incomplete(byID map[string]model.Task, t model.Task) []string {
	var out []string
	for _, dep := range t.Dependencies {
		if dep == t.ID {
			continue
		}
		if u, ok := byID[dep]; ok && !u.Completed {
			out = append(out, dep)
		}
	}
	return out
}

// BlockedBy lists the incomplete prerequisites of id in declaration order.
func BlockedBy(tasks []model.Task, id string) ([]string, error) {
	byID := index(tasks)
	t, ok := byID[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "task", ID: id}
	}
	return incomplete(byID, t), nil
}

// CanComplete returns nil when id exists and nothing blocks it.
func CanComplete(tasks []model.Task, id string) error {
	waiting, err := BlockedBy(tasks, id)
	if err != nil {
		return err
	}
	if len(waiting) > 0 {
		return &model.BlockedError{TaskID: id, BlockedBy: waiting}
	}
	return nil
}

// Ready returns the incomplete, unblocked task ids in ascending order.
func Ready(tasks []model.Task) []string {
	blocked := BlockedSet(tasks)
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed || blocked.Has(t.ID) {
			continue
		}
		out = append(out, t.ID)
	}
	sort.Strings(out)
	return out
}
