package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/plannerd/internal/deps"
	"github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/storage"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks with their state",
	RunE:  runTasks,
}

var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "List tasks waiting on incomplete prerequisites",
	RunE:  runBlocked,
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print an order that completes every prerequisite first",
	RunE:  runOrder,
}

func init() {
	tasksCmd.Flags().Bool("open", false, "Only show tasks that are not completed")
}

func loadTasks(cmd *cobra.Command, filter storage.TaskFilter) (tasks []model.Task, err error) {
	a, err := openApp(false)
	if err != nil {
		return nil, err
	}
	defer closeApp(a, &err)
	return a.store.ListTasks(cmd.Context(), filter)
}

func runTasks(cmd *cobra.Command, args []string) error {
	var filter storage.TaskFilter
	if open, _ := cmd.Flags().GetBool("open"); open {
		completed := false
		filter.Completed = &completed
	}
	tasks, err := loadTasks(cmd, filter)
	if err != nil {
		return err
	}
	// Blocked state needs every task, including completed prerequisites.
	all := tasks
	if filter.Completed != nil {
		if all, err = loadTasks(cmd, storage.TaskFilter{}); err != nil {
			return err
		}
	}
	printTasks(cmd.OutOrStdout(), tasks, deps.BlockedSet(all))
	return nil
}

func printTasks(w io.Writer, tasks []model.Task, blocked deps.Set) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	for _, t := range tasks {
		state := "ready"
		switch {
		case t.Completed:
			state = "done"
		case blocked.Has(t.ID):
			state = "blocked"
		}
		line := fmt.Sprintf("%-12s %-8s %s", t.ID, state, t.Title)
		if len(t.Dependencies) > 0 {
			line += "  (needs " + strings.Join(t.Dependencies, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func runBlocked(cmd *cobra.Command, args []string) error {
	tasks, err := loadTasks(cmd, storage.TaskFilter{})
	if err != nil {
		return err
	}
	return printBlocked(cmd.OutOrStdout(), tasks)
}

func printBlocked(w io.Writer, tasks []model.Task) error {
	blocked := deps.BlockedSet(tasks)
	if blocked.Len() == 0 {
		fmt.Fprintln(w, "Nothing is blocked.")
		return nil
	}
	for _, id := range blocked.Sorted() {
		waiting, err := deps.BlockedBy(tasks, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-12s waits on %s\n", id, strings.Join(waiting, ", "))
	}
	return nil
}

func runOrder(cmd *cobra.Command, args []string) error {
	tasks, err := loadTasks(cmd, storage.TaskFilter{})
	if err != nil {
		return err
	}
	return printOrder(cmd.OutOrStdout(), tasks)
}

func printOrder(w io.Writer, tasks []model.Task) error {
	order, err := deps.TopologicalOrder(tasks)
	if err != nil {
		var cycle *model.CycleError
		if errors.As(err, &cycle) {
			return fmt.Errorf("tasks cannot be ordered, cycle %s", strings.Join(cycle.Path, " -> "))
		}
		return err
	}
	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}
	for i, id := range order {
		fmt.Fprintf(w, "%3d. %-12s %s\n", i+1, id, titles[id])
	}
	return nil
}
