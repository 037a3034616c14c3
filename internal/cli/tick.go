package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/plannerd/internal/firer"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Fire every due reminder once and exit",
	RunE:  runTick,
}

func init() {
	tickCmd.Flags().String("at", "", "Evaluate as of this RFC3339 instant instead of now")
}

func runTick(cmd *cobra.Command, args []string) (err error) {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	now := time.Now()
	if raw, _ := cmd.Flags().GetString("at"); raw != "" {
		if now, err = time.Parse(time.RFC3339, raw); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}

	res, err := a.newRunner(nil).RunOnce(cmd.Context(), now)
	printTickResult(cmd.OutOrStdout(), res, a.loc)
	return err
}

func printTickResult(w io.Writer, res firer.Result, loc *time.Location) {
	if len(res.Events) == 0 {
		fmt.Fprintln(w, "Nothing due.")
		return
	}
	for _, ev := range res.Events {
		switch ev.Kind {
		case firer.EventFired:
			fmt.Fprintf(w, "fired      %-12s %s  %s\n", ev.ReminderID, ev.At.In(loc).Format("2006-01-02 15:04"), ev.Title)
		case firer.EventScheduled:
			fmt.Fprintf(w, "scheduled  %-12s %s  %s\n", ev.ReminderID, ev.At.In(loc).Format("2006-01-02 15:04"), ev.Title)
		case firer.EventEnded:
			fmt.Fprintf(w, "ended      %-12s series %s\n", ev.ReminderID, ev.SeriesID)
		case firer.EventFailed:
			fmt.Fprintf(w, "failed     %-12s %v\n", ev.ReminderID, ev.Err)
		}
	}
}
