package update

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sandeepkv93/plannerd/internal/commands"
	"github.com/sandeepkv93/plannerd/internal/firer"
	domainmodel "github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/storage"
)

const (
	maxAlerts   = 20
	quickSnooze = 10 * time.Minute
	whenLayout  = "Mon Jan 2 15:04"
)

func (m Model) handleRemindersKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "up", "k":
		if m.ReminderCursor > 0 {
			m.ReminderCursor--
		}
	case "down", "j":
		if m.ReminderCursor < len(m.Reminders)-1 {
			m.ReminderCursor++
		}
	case "s":
		rem, ok := m.selectedReminder()
		if !ok {
			return m
		}
		res, err := m.snoozeReminder(commands.SnoozeArgs{Reminder: rem.ID, For: quickSnooze})
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

func (m Model) selectedReminder() (domainmodel.Reminder, bool) {
	if m.ReminderCursor < 0 || m.ReminderCursor >= len(m.Reminders) {
		return domainmodel.Reminder{}, false
	}
	return m.Reminders[m.ReminderCursor], true
}

func (m *Model) addReminder(a commands.RemindArgs) (commands.Result, error) {
	if m.store == nil {
		return commands.Result{}, errNoStore
	}
	now := m.now().In(m.loc)
	at, err := commands.ParseWhen(a.When, now)
	if err != nil {
		return commands.Result{}, err
	}
	rule, end, err := a.Rules(m.loc)
	if err != nil {
		return commands.Result{}, err
	}
	rem := domainmodel.Reminder{
		ID:          domainmodel.NewUniqueID("r", m.reminderTaken),
		Title:       a.Title,
		FireAt:      at,
		IsRecurring: rule != nil,
		Recurrence:  rule,
		End:         end,
		CreatedAt:   now,
	}
	if rem.IsRecurring {
		rem.SeriesID = rem.ID
	}
	if err := m.store.SaveReminder(m.ctx(), rem); err != nil {
		return commands.Result{}, err
	}
	if m.runner != nil {
		if err := m.runner.Rearm(m.ctx()); err != nil {
			m.logger.Warn("rearm failed", zap.Error(err))
		}
	}
	m.CurrentView = ViewReminders
	return commands.Result{Message: fmt.Sprintf("reminder %s set for %s (%s)", rem.ID, at.Format(whenLayout), rem.Describe())}, nil
}

func (m *Model) reminderTaken(id string) bool {
	return storage.HasReminder(m.ctx(), m.store, id)
}

func (m *Model) snoozeReminder(a commands.SnoozeArgs) (commands.Result, error) {
	if m.runner == nil {
		return commands.Result{}, errNoStore
	}
	moved, err := m.runner.Snooze(m.ctx(), a.Reminder, m.now().Add(a.For))
	if err != nil {
		return commands.Result{}, err
	}
	m.dropAlert(a.Reminder)
	when := moved.FireAt.In(m.loc).Format(whenLayout)
	if moved.ID != a.Reminder {
		return commands.Result{Message: fmt.Sprintf("follow-up %s set for %s", moved.ID, when)}, nil
	}
	return commands.Result{Message: fmt.Sprintf("snoozed %s until %s", moved.ID, when)}, nil
}

// acknowledge dismisses the alert raised when id fired.
func (m *Model) acknowledge(id string) error {
	if !m.dropAlert(id) {
		return &domainmodel.NotFoundError{Kind: "alert", ID: id}
	}
	return nil
}

func (m *Model) dropAlert(id string) bool {
	for i, a := range m.Alerts {
		if a.ReminderID == id {
			m.Alerts = append(m.Alerts[:i:i], m.Alerts[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Model) applyTickResult(msg TickDoneMsg) {
	if msg.Err != nil {
		m.LastError = msg.Err
		m.Status = StatusBar{Text: "tick failed: " + msg.Err.Error(), IsError: true}
	}
	for _, ev := range msg.Result.Events {
		switch ev.Kind {
		case firer.EventFired:
			if ev.Redelivered {
				continue
			}
			m.dropAlert(ev.ReminderID)
			m.Alerts = append(m.Alerts, Alert{ReminderID: ev.ReminderID, Title: ev.Title, At: ev.At})
			m.Status = StatusBar{Text: fmt.Sprintf("reminder fired: %s", ev.Title)}
		case firer.EventEnded:
			m.Status = StatusBar{Text: fmt.Sprintf("series finished: %s", ev.Title)}
		case firer.EventFailed:
			m.Status = StatusBar{Text: fmt.Sprintf("reminder %s: %v", ev.ReminderID, ev.Err), IsError: true}
		}
	}
	if len(m.Alerts) > maxAlerts {
		m.Alerts = m.Alerts[len(m.Alerts)-maxAlerts:]
	}
}
