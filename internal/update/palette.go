package update

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/plannerd/internal/commands"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		_ = cmd
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.closePalette()
		return m
	}

	res, err := commands.Execute(cmd, commands.Handlers{
		Add:    m.addTask,
		Depend: m.dependTask,
		Done:   m.completeTask,
		Remind: m.addReminder,
		Snooze: m.snoozeReminder,
		Ack: func(a commands.AckArgs) (commands.Result, error) {
			if err := m.acknowledge(a.Reminder); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: "reminder acknowledged: " + a.Reminder}, nil
		},
		Show: m.show,
	})
	if err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
	} else {
		m.Status = StatusBar{Text: res.Message}
	}
	if err := m.refresh(); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
	}
	m.closePalette()
	return m
}

func (m *Model) show(s commands.ShowArgs) (commands.Result, error) {
	switch s.Subject {
	case commands.ShowTasks:
		m.CurrentView, m.Filter = ViewTasks, FilterAll
	case commands.ShowBlocked:
		m.CurrentView, m.Filter = ViewTasks, FilterBlocked
	case commands.ShowReady:
		m.CurrentView, m.Filter = ViewTasks, FilterReady
	case commands.ShowReminders:
		m.CurrentView = ViewReminders
	case commands.ShowOrder:
		m.CurrentView = ViewOrder
	}
	m.TaskCursor = 0
	return commands.Result{Message: "showing " + string(s.Subject)}, nil
}
