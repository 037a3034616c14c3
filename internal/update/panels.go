package update

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"

	"github.com/sandeepkv93/plannerd/internal/deps"
	domainmodel "github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/views"
)

func (m *Model) syncBubbleData() {
	visible := m.visibleTasks()
	rows := make([]table.Row, 0, len(visible))
	for _, t := range visible {
		rows = append(rows, table.Row{t.ID, m.taskState(t), t.Title, strings.Join(t.Dependencies, ",")})
	}
	m.taskTable.SetRows(rows)
	if len(rows) > 0 && m.TaskCursor < len(rows) {
		m.taskTable.SetCursor(m.TaskCursor)
	}

	items := make([]list.Item, 0, len(m.Reminders))
	for _, rem := range m.Reminders {
		desc := fmt.Sprintf("%s | %s | %s", rem.ID, rem.FireAt.In(m.loc).Format(whenLayout), rem.Describe())
		items = append(items, listItem{title: rem.Title, description: desc})
	}
	m.reminderList.SetItems(items)
	if len(items) > 0 {
		m.reminderList.Select(m.ReminderCursor)
	}

	m.commandInput.SetValue(m.Palette.Input)
	if m.Palette.Active {
		m.commandInput.Focus()
	}

	md := ""
	switch m.CurrentView {
	case ViewTasks:
		if t, ok := m.selectedTask(); ok {
			md = m.taskMarkdown(t)
		}
	case ViewReminders:
		if rem, ok := m.selectedReminder(); ok {
			md = m.reminderMarkdown(rem)
		}
	}
	m.detailViewport.SetContent(views.RenderMarkdown(md, m.detailViewport.Width))
}

func (m Model) renderTasksView() string {
	visible := m.visibleTasks()
	rows := make([]views.TaskRowData, 0, len(visible))
	for _, t := range visible {
		rows = append(rows, views.TaskRowData{ID: t.ID, Title: t.Title, State: m.taskState(t), Needs: t.Dependencies})
	}
	selected := ""
	if t, ok := m.selectedTask(); ok {
		selected = t.ID
	}
	return views.RenderTaskPanel(views.TaskPanelData{
		Filter:     string(m.Filter),
		TableView:  m.taskTable.View(),
		Rows:       rows,
		SelectedID: selected,
	})
}

func (m Model) renderRemindersView() string {
	rows := make([]views.ReminderRowData, 0, len(m.Reminders))
	for _, rem := range m.Reminders {
		rows = append(rows, views.ReminderRowData{
			ID:    rem.ID,
			Title: rem.Title,
			When:  rem.FireAt.In(m.loc).Format(whenLayout),
			Rule:  rem.Describe(),
		})
	}
	return views.RenderReminderPanel(views.ReminderPanelData{ListView: m.reminderList.View(), Rows: rows})
}

func (m Model) renderOrderView() string {
	titles := make(map[string]string, len(m.Tasks))
	for _, t := range m.Tasks {
		titles[t.ID] = t.Title
	}
	order, err := deps.TopologicalOrder(m.Tasks)
	if err != nil {
		data := views.OrderPanelData{Err: err.Error()}
		var cycle *domainmodel.CycleError
		if errors.As(err, &cycle) {
			data.Cycle = cycle.Path
		}
		return views.RenderOrderPanel(data)
	}
	steps := make([]string, 0, len(order))
	for _, id := range order {
		steps = append(steps, fmt.Sprintf("%s %s", id, titles[id]))
	}
	return views.RenderOrderPanel(views.OrderPanelData{Steps: steps})
}

func (m Model) renderReadyView() string {
	ready := deps.Ready(m.Tasks)
	if len(ready) == 0 {
		return "ready now:\n(nothing)"
	}
	return "ready now:\n- " + strings.Join(ready, "\n- ")
}

func (m Model) renderTaskDetail() string {
	if _, ok := m.selectedTask(); !ok {
		return views.RenderDetail("task", "")
	}
	return views.RenderDetail("task", m.detailViewport.View())
}

func (m Model) renderReminderDetail() string {
	if _, ok := m.selectedReminder(); !ok {
		return views.RenderDetail("reminder", "")
	}
	return views.RenderDetail("reminder", m.detailViewport.View())
}

func (m Model) renderCommandPalette() string {
	return views.RenderCommandPalette(m.Palette.Active, m.commandInput.View())
}

func (m Model) renderAlerts() string {
	alerts := make([]views.AlertData, 0, len(m.Alerts))
	for _, a := range m.Alerts {
		alerts = append(alerts, views.AlertData{ReminderID: a.ReminderID, Title: a.Title, At: a.At.In(m.loc).Format("15:04")})
	}
	return views.RenderAlerts(alerts)
}
