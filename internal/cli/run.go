package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sandeepkv93/plannerd/internal/lifecycle"
	"github.com/sandeepkv93/plannerd/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fire reminders in the foreground until interrupted",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}

	mgr := lifecycle.New(a.cfg.ShutdownTimeout, a.logger)
	mgr.Register("store", func(context.Context) error { return a.Close() })

	engine := scheduler.NewEngine(a.cfg.SchedulerBuffer)
	runner := a.newRunner(engine)

	ctx, cancel := mgr.Listen(cmd.Context())
	defer cancel()

	if err := runner.Start(ctx); err != nil {
		_ = mgr.Shutdown(context.Background())
		return fmt.Errorf("start runtime: %w", err)
	}
	mgr.Register("runtime", runner.Stop)

	a.logger.Info("plannerd running",
		zap.String("backend", a.cfg.Storage.Backend),
		zap.Duration("tick_interval", a.cfg.TickInterval),
		zap.String("timezone", a.loc.String()))

	<-ctx.Done()
	return mgr.Shutdown(context.Background())
}
