package deps

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sandeepkv93/plannerd/internal/model"
)

func TestTopologicalOrderDeterministic(t *testing.T) {
	tasks := []model.Task{
		task("deploy", "test", "build"),
		task("test", "build"),
		task("build"),
		task("docs"),
		task("announce", "deploy", "ghost"),
	}
	want := []string{"build", "docs", "test", "deploy", "announce"}
	for i := 0; i < 3; i++ {
		got, err := TopologicalOrder(tasks)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("order = %v, want %v", got, want)
		}
		tasks[0], tasks[len(tasks)-1] = tasks[len(tasks)-1], tasks[0]
	}
}

func TestTopologicalOrderReportsCycle(t *testing.T) {
	tasks := []model.Task{task("a", "c"), task("b", "a"), task("c", "b"), task("z")}
	_, err := TopologicalOrder(tasks)
	var cycleErr *model.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !reflect.DeepEqual(cycleErr.Path, []string{"a", "b", "c", "a"}) {
		t.Fatalf("unexpected witness: %v", cycleErr.Path)
	}
	if !errors.Is(err, model.ErrCycle) {
		t.Fatalf("expected errors.Is ErrCycle")
	}
}

func TestTopologicalOrderRejectsBadInput(t *testing.T) {
	cases := map[string][]model.Task{
		"duplicate": {task("a"), task("a")},
		"self":      {task("a", "a")},
		"empty id":  {task("")},
	}
	for name, tasks := range cases {
		if _, err := TopologicalOrder(tasks); !errors.Is(err, model.ErrConfiguration) {
			t.Fatalf("%s: expected ErrConfiguration, got %v", name, err)
		}
	}
}

func TestTopologicalOrderIgnoresDuplicateEdges(t *testing.T) {
	got, err := TopologicalOrder([]model.Task{task("b", "a", "a"), task("a")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected order: %v", got)
	}
}
