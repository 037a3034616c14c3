package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/plannerd/internal/scheduler"
	"github.com/sandeepkv93/plannerd/internal/update"
)

func runTUI(cmd *cobra.Command, args []string) (err error) {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	engine := scheduler.NewEngine(a.cfg.SchedulerBuffer)
	engine.Start()
	defer engine.Stop()

	runner := a.newRunner(engine)
	if err := runner.Rearm(cmd.Context()); err != nil {
		return err
	}

	m := update.NewModel(update.Options{
		Store:        a.store,
		Runner:       runner,
		Scheduler:    engine,
		Location:     a.loc,
		TickInterval: a.cfg.TickInterval,
		Logger:       a.logger,
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
