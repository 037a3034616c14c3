package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/plannerd/internal/scheduler"
	"github.com/sandeepkv93/plannerd/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tickNow(true)}
	if m.sched != nil {
		cmds = append(cmds, waitForWakeupCmd(m.sched.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed), nil
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.SetValue("")
			m.commandInput.Focus()
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Tasks:
			m.CurrentView = ViewTasks
			return m, nil
		case m.Keys.Reminders:
			m.CurrentView = ViewReminders
			return m, nil
		case m.Keys.Order:
			m.CurrentView = ViewOrder
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			if m.HelpVisible {
				m.Status = StatusBar{Text: "help shown"}
			} else {
				m.Status = StatusBar{Text: "help hidden"}
			}
			return m, nil
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		switch m.CurrentView {
		case ViewTasks:
			return m.handleTasksKey(typed), nil
		case ViewReminders:
			return m.handleRemindersKey(typed), nil
		}
	case spinner.TickMsg:
		if m.ticking {
			var cmd tea.Cmd
			m.tickSpinner, cmd = m.tickSpinner.Update(typed)
			return m, cmd
		}
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	case TickMsg:
		if m.runner == nil {
			return m, nil
		}
		if m.ticking {
			// A tick is already running; keep the polling chain alive.
			if typed.Poll {
				return m, m.scheduleTick()
			}
			return m, nil
		}
		m.ticking = true
		return m, tea.Batch(m.runOnceCmd(typed), m.tickSpinner.Tick)
	case TickDoneMsg:
		m.ticking = false
		m.applyTickResult(typed)
		if err := m.refresh(); err != nil {
			m.LastError = err
			m.Status = StatusBar{Text: err.Error(), IsError: true}
		}
		if typed.Poll {
			return m, m.scheduleTick()
		}
		return m, nil
	case WakeupMsg:
		cmds := []tea.Cmd{m.tickNow(false)}
		if m.sched != nil {
			cmds = append(cmds, waitForWakeupCmd(m.sched.C()))
		}
		return m, tea.Batch(cmds...)
	case AcknowledgeReminderMsg:
		if err := m.acknowledge(typed.ID); err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
		} else {
			m.Status = StatusBar{Text: fmt.Sprintf("reminder acknowledged: %s", typed.ID)}
		}
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	m.syncBubbleData()

	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewTasks:
		leftPane = m.renderTasksView()
		rightPane = m.renderTaskDetail()
	case ViewReminders:
		leftPane = m.renderRemindersView()
		rightPane = m.renderReminderDetail()
	case ViewOrder:
		leftPane = m.renderOrderView()
		rightPane = m.renderReadyView()
	}
	rightPane = strings.TrimSpace(strings.Join([]string{rightPane, m.renderCommandPalette(), m.renderHelpIfVisible()}, "\n\n"))

	status := ""
	if m.Status.Text != "" {
		status = "status: " + m.Status.Text
	}
	if m.ticking {
		status = strings.TrimSpace(status + " " + m.tickSpinner.View() + " firing")
	}

	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("plannerd | view: %s | %d tasks, %d blocked | %d pending reminders", m.CurrentView, len(m.Tasks), m.Blocked.Len(), len(m.Reminders)),
		LeftPane:   leftPane,
		RightPane:  rightPane,
		StatusLine: status,
		IsError:    m.Status.IsError,
		Alerts:     m.renderAlerts(),
		Footer:     fmt.Sprintf("keys: %s tasks | %s reminders | %s order | / cmd | %s help | %s quit", m.Keys.Tasks, m.Keys.Reminders, m.Keys.Order, m.Keys.Help, m.Keys.Quit),
	})
}

func isKnownView(v View) bool {
	switch v {
	case ViewTasks, ViewReminders, ViewOrder:
		return true
	default:
		return false
	}
}

func (m Model) tickNow(poll bool) tea.Cmd {
	now := m.now
	return func() tea.Msg { return TickMsg{At: now(), Poll: poll} }
}

func (m Model) scheduleTick() tea.Cmd {
	now := m.now
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return TickMsg{At: now(), Poll: true} })
}

func (m Model) runOnceCmd(tick TickMsg) tea.Cmd {
	runner := m.runner
	ctx := m.ctx()
	return func() tea.Msg {
		res, err := runner.RunOnce(ctx, tick.At)
		return TickDoneMsg{Result: res, Err: err, Poll: tick.Poll}
	}
}

func waitForWakeupCmd(ch <-chan scheduler.Wakeup) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		w, ok := <-ch
		if !ok {
			return nil
		}
		return WakeupMsg{Wakeup: w}
	}
}
