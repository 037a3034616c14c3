package views

import (
	"fmt"
	"strings"
)

type TaskRowData struct {
	ID    string
	Title string
	State string
	Needs []string
}

type TaskPanelData struct {
	Filter     string
	TableView  string
	Rows       []TaskRowData
	SelectedID string
}

type ReminderRowData struct {
	ID    string
	Title string
	When  string
	Rule  string
}

type ReminderPanelData struct {
	ListView string
	Rows     []ReminderRowData
}

type OrderPanelData struct {
	Steps []string
	Cycle []string
	Err   string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

type AlertData struct {
	ReminderID string
	Title      string
	At         string
}

func RenderTaskPanel(data TaskPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("tasks (%s):\n", data.Filter))
	b.WriteString("actions: [j/k]move [x]complete [/]command\n")
	if len(data.Rows) == 0 {
		b.WriteString("(no tasks)")
		return b.String()
	}
	b.WriteString(data.TableView)
	return strings.TrimSpace(b.String())
}

func RenderReminderPanel(data ReminderPanelData) string {
	var b strings.Builder
	b.WriteString("reminders:\n")
	b.WriteString("actions: [j/k]move [s]snooze 10m [/]command\n")
	if len(data.Rows) == 0 {
		b.WriteString("(no pending reminders)")
		return b.String()
	}
	b.WriteString(data.ListView)
	return strings.TrimSpace(b.String())
}

func RenderOrderPanel(data OrderPanelData) string {
	var b strings.Builder
	b.WriteString("execution order:\n")
	if len(data.Cycle) > 0 {
		b.WriteString("cycle: " + strings.Join(data.Cycle, " -> ") + "\n")
	}
	if data.Err != "" {
		b.WriteString("error: " + data.Err)
		return strings.TrimSpace(b.String())
	}
	if len(data.Steps) == 0 {
		b.WriteString("(no tasks)")
		return b.String()
	}
	for i, step := range data.Steps {
		b.WriteString(fmt.Sprintf("%2d. %s\n", i+1, step))
	}
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, inputView string) string {
	if !active {
		return ""
	}
	return "command:\n" + inputView
}

func RenderAlerts(alerts []AlertData) string {
	if len(alerts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("due:\n")
	for _, a := range alerts {
		b.WriteString(fmt.Sprintf("! %s %s [%s] (/ack %s)\n", a.At, a.Title, a.ReminderID, a.ReminderID))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help (%s):\n%s\n\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}

func RenderDetail(title, body string) string {
	if strings.TrimSpace(body) == "" {
		return title + ":\n(no selection)"
	}
	return title + ":\n" + body
}
