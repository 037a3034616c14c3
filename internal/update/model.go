package update

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"go.uber.org/zap"

	"github.com/sandeepkv93/plannerd/internal/deps"
	"github.com/sandeepkv93/plannerd/internal/firer"
	domainmodel "github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/runtime"
	"github.com/sandeepkv93/plannerd/internal/scheduler"
	"github.com/sandeepkv93/plannerd/internal/storage"
)

type View string

const (
	ViewTasks     View = "Tasks"
	ViewReminders View = "Reminders"
	ViewOrder     View = "Order"
)

type TaskFilter string

const (
	FilterAll     TaskFilter = "all"
	FilterBlocked TaskFilter = "blocked"
	FilterReady   TaskFilter = "ready"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Tasks     string
	Reminders string
	Order     string
	Help      string
	Quit      string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

// Alert is a fired reminder waiting for /ack.
type Alert struct {
	ReminderID string
	Title      string
	At         time.Time
}

type Options struct {
	Store        storage.Store
	Runner       *runtime.Runner
	Scheduler    *scheduler.Engine
	Location     *time.Location
	Now          func() time.Time
	TickInterval time.Duration
	Logger       *zap.Logger
}

type Model struct {
	CurrentView    View
	Filter         TaskFilter
	Tasks          []domainmodel.Task
	Reminders      []domainmodel.Reminder
	Blocked        deps.Set
	TaskCursor     int
	ReminderCursor int
	Alerts         []Alert
	Palette        CommandPaletteState
	HelpVisible    bool
	Status         StatusBar
	Keys           GlobalKeyMap
	Quitting       bool
	LastError      error

	store    storage.Store
	runner   *runtime.Runner
	sched    *scheduler.Engine
	loc      *time.Location
	now      func() time.Time
	interval time.Duration
	logger   *zap.Logger
	ticking  bool

	taskTable      table.Model
	reminderList   list.Model
	commandInput   textinput.Model
	helpModel      help.Model
	detailViewport viewport.Model
	tickSpinner    spinner.Model
}

type listItem struct {
	title       string
	description string
}

func (i listItem) FilterValue() string { return i.title + " " + i.description }
func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.description }

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// TickMsg asks the runtime to fire due reminders. Poll marks the periodic
// tick, which reschedules itself.
type TickMsg struct {
	At   time.Time
	Poll bool
}

type TickDoneMsg struct {
	Result firer.Result
	Err    error
	Poll   bool
}

type WakeupMsg struct {
	Wakeup scheduler.Wakeup
}

type AcknowledgeReminderMsg struct {
	ID string
}

func NewModel(opts Options) Model {
	m := Model{
		CurrentView: ViewTasks,
		Filter:      FilterAll,
		Blocked:     deps.Set{},
		Keys: GlobalKeyMap{
			Tasks:     "1",
			Reminders: "2",
			Order:     "3",
			Help:      "?",
			Quit:      "q",
		},
		store:    opts.Store,
		runner:   opts.Runner,
		sched:    opts.Scheduler,
		loc:      opts.Location,
		now:      opts.Now,
		interval: opts.TickInterval,
		logger:   opts.Logger,
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.interval <= 0 {
		m.interval = 30 * time.Second
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.runner == nil && m.store != nil {
		store := m.store
		f := firer.New(
			firer.WithLogger(m.logger),
			firer.WithIDGenerator(func() string {
				return domainmodel.NewUniqueID("r", func(id string) bool {
					return storage.HasReminder(context.Background(), store, id)
				})
			}),
		)
		m.runner = runtime.New(m.store, f,
			runtime.WithScheduler(m.sched),
			runtime.WithLogger(m.logger),
			runtime.WithClock(m.now),
			runtime.WithInterval(m.interval),
		)
	}
	m.initBubbleComponents()
	if err := m.refresh(); err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
	}
	return m
}

func (m Model) ctx() context.Context {
	return context.Background()
}

// refresh reloads tasks and pending reminders from the store.
func (m *Model) refresh() error {
	if m.store == nil {
		return nil
	}
	tasks, err := m.store.ListTasks(m.ctx(), storage.TaskFilter{})
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	pending := false
	reminders, err := m.store.ListReminders(m.ctx(), storage.ReminderFilter{Fired: &pending})
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}
	m.Tasks = tasks
	m.Reminders = reminders
	m.Blocked = deps.BlockedSet(tasks)
	m.clampCursors()
	return nil
}

func (m *Model) clampCursors() {
	if n := len(m.visibleTasks()); m.TaskCursor >= n {
		m.TaskCursor = max(n-1, 0)
	}
	if n := len(m.Reminders); m.ReminderCursor >= n {
		m.ReminderCursor = max(n-1, 0)
	}
}

func (m *Model) initBubbleComponents() {
	cols := []table.Column{
		{Title: "ID", Width: 14},
		{Title: "State", Width: 7},
		{Title: "Title", Width: 14},
		{Title: "Needs", Width: 10},
	}
	m.taskTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	m.reminderList = list.New([]list.Item{}, list.NewDefaultDelegate(), 56, 14)
	m.reminderList.Title = "Pending"
	m.reminderList.SetShowHelp(false)
	m.reminderList.SetFilteringEnabled(false)

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.helpModel = help.New()
	m.detailViewport = viewport.New(54, 14)

	m.tickSpinner = spinner.New()
	m.tickSpinner.Spinner = spinner.Dot
}
