package update

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/plannerd/internal/commands"
	"github.com/sandeepkv93/plannerd/internal/deps"
	domainmodel "github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/storage"
)

var errNoStore = errors.New("no store configured")

func (m Model) handleTasksKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "up", "k":
		if m.TaskCursor > 0 {
			m.TaskCursor--
		}
	case "down", "j":
		if m.TaskCursor < len(m.visibleTasks())-1 {
			m.TaskCursor++
		}
	case "f":
		m.cycleFilter()
		m.Status = StatusBar{Text: "filter: " + string(m.Filter)}
	case "x":
		task, ok := m.selectedTask()
		if !ok {
			return m
		}
		res, err := m.completeTask(commands.DoneArgs{Task: task.ID})
		if err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
			return m
		}
		m.Status = StatusBar{Text: res.Message}
		if err := m.refresh(); err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
		}
	}
	return m
}

func (m *Model) cycleFilter() {
	switch m.Filter {
	case FilterAll:
		m.Filter = FilterBlocked
	case FilterBlocked:
		m.Filter = FilterReady
	default:
		m.Filter = FilterAll
	}
	m.TaskCursor = 0
}

func (m Model) visibleTasks() []domainmodel.Task {
	if m.Filter == FilterAll || m.Filter == "" {
		return m.Tasks
	}
	out := make([]domainmodel.Task, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		blocked := m.Blocked.Has(t.ID)
		switch {
		case m.Filter == FilterBlocked && blocked:
			out = append(out, t)
		case m.Filter == FilterReady && !blocked && !t.Completed:
			out = append(out, t)
		}
	}
	return out
}

func (m Model) selectedTask() (domainmodel.Task, bool) {
	visible := m.visibleTasks()
	if m.TaskCursor < 0 || m.TaskCursor >= len(visible) {
		return domainmodel.Task{}, false
	}
	return visible[m.TaskCursor], true
}

func (m Model) taskState(t domainmodel.Task) string {
	switch {
	case t.Completed:
		return "done"
	case m.Blocked.Has(t.ID):
		return "blocked"
	default:
		return "ready"
	}
}

func (m *Model) findTask(id string) (domainmodel.Task, error) {
	if m.store == nil {
		return domainmodel.Task{}, errNoStore
	}
	t, err := m.store.GetTask(m.ctx(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return domainmodel.Task{}, &domainmodel.NotFoundError{Kind: "task", ID: id}
	}
	return t, err
}

func (m *Model) taskTaken(id string) bool {
	return storage.HasTask(m.ctx(), m.store, id)
}

func (m *Model) addTask(a commands.AddArgs) (commands.Result, error) {
	if m.store == nil {
		return commands.Result{}, errNoStore
	}
	t := domainmodel.Task{
		ID:        domainmodel.NewUniqueID("t", m.taskTaken),
		Title:     a.Title,
		CreatedAt: m.now(),
	}
	if err := m.store.SaveTask(m.ctx(), t); err != nil {
		return commands.Result{}, err
	}
	m.CurrentView = ViewTasks
	return commands.Result{Message: fmt.Sprintf("added task %s: %s", t.ID, t.Title)}, nil
}

// dependTask adds prerequisites to a task, refusing edges that would close a
// cycle in the stored graph.
func (m *Model) dependTask(a commands.DependArgs) (commands.Result, error) {
	t, err := m.findTask(a.Task)
	if err != nil {
		return commands.Result{}, err
	}
	for _, id := range a.Prerequisites {
		if _, err := m.findTask(id); err != nil {
			return commands.Result{}, err
		}
		t = t.WithDependency(id)
	}

	stored, err := m.store.ListTasks(m.ctx(), storage.TaskFilter{})
	if err != nil {
		return commands.Result{}, err
	}
	proposed := make([]domainmodel.Task, 0, len(stored))
	for _, existing := range stored {
		if existing.ID == t.ID {
			existing = t
		}
		proposed = append(proposed, existing)
	}
	if _, err := deps.TopologicalOrder(proposed); err != nil {
		return commands.Result{}, err
	}
	if err := m.store.SaveTask(m.ctx(), t); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: fmt.Sprintf("%s now waits on %s", t.ID, strings.Join(a.Prerequisites, ", "))}, nil
}

func (m *Model) completeTask(a commands.DoneArgs) (commands.Result, error) {
	t, err := m.findTask(a.Task)
	if err != nil {
		return commands.Result{}, err
	}
	if t.Completed {
		return commands.Result{Message: fmt.Sprintf("%s is already done", t.ID)}, nil
	}
	stored, err := m.store.ListTasks(m.ctx(), storage.TaskFilter{})
	if err != nil {
		return commands.Result{}, err
	}
	if err := deps.CanComplete(stored, t.ID); err != nil {
		return commands.Result{}, err
	}
	if err := m.store.SaveTask(m.ctx(), t.MarkCompleted(m.now())); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: fmt.Sprintf("completed %s: %s", t.ID, t.Title)}, nil
}
