package deps

import (
	"container/heap"
	"sort"

	"github.com/sandeepkv93/plannerd/internal/model"
)

type graph struct {
	ids      []string // ascending
	outgoing [][]int  // prerequisite -> dependents, sorted
	indeg    []int
}

func buildGraph(tasks []model.Task) (*graph, error) {
	ids := make([]string, 0, len(tasks))
	pos := make(map[string]int, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return nil, model.NewConfigurationError("id", "task id is required")
		}
		if _, dup := pos[t.ID]; dup {
			return nil, model.NewConfigurationError("id", "duplicate task id %q", t.ID)
		}
		pos[t.ID] = 0
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	for i, id := range ids {
		pos[id] = i
	}

	g := &graph{
		ids:      ids,
		outgoing: make([][]int, len(ids)),
		indeg:    make([]int, len(ids)),
	}
	for _, t := range tasks {
		to := pos[t.ID]
		seen := make(map[int]struct{}, len(t.Dependencies))
		for _, dep := range t.Dependencies {
			if dep == t.ID {
				return nil, model.NewConfigurationError("dependencies", "task %q depends on itself", t.ID)
			}
			from, ok := pos[dep]
			if !ok {
				continue
			}
			if _, dup := seen[from]; dup {
				continue
			}
			seen[from] = struct{}{}
			g.outgoing[from] = append(g.outgoing[from], to)
			g.indeg[to]++
		}
	}
	for i := range g.outgoing {
		sort.Ints(g.outgoing[i])
	}
	return g, nil
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopologicalOrder returns every task id ordered so that prerequisites come
// before their dependents. Ties break on ascending id, so the result is stable
// for a given snapshot. Dangling prerequisites are ignored. A cycle yields a
// *model.CycleError whose path follows prerequisite edges.
func TopologicalOrder(tasks []model.Task) ([]string, error) {
	g, err := buildGraph(tasks)
	if err != nil {
		return nil, err
	}

	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)
	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]string, 0, len(g.ids))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, g.ids[n])
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	if len(out) == len(g.ids) {
		return out, nil
	}
	return nil, &model.CycleError{Path: g.findCycle()}
}

// findCycle walks the graph depth first in index order and returns the first
// back edge it meets as a closed path.
func (g *graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.ids))
	parent := make([]int, len(g.ids))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}
	for i := range g.ids {
		if color[i] == white && dfs(i) {
			break
		}
	}

	path := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		path = append(path, g.ids[cycle[i]])
	}
	return path
}
