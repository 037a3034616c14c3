package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/plannerd/internal/commands"
	"github.com/sandeepkv93/plannerd/internal/config"
	"github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/recurrence"
)

var previewCmd = &cobra.Command{
	Use:   "preview <rule>",
	Short: "Show the next occurrences of a recurrence rule",
	Long: `Show the next occurrences of a recurrence rule.

Rules: daily, weekly, weekly:mon,wed, weekdays, monthly, monthly:15,
monthly:2:fri, monthly:last:fri, yearly.`,
	Example: `  plannerd preview weekly:mon --from 2024-01-15T09:00 --times 3
  plannerd preview monthly:last:fri --until 2026-12-31`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().String("from", "", "First occurrence, in any /remind time form (default now)")
	previewCmd.Flags().Int("count", 10, "Maximum occurrences to list")
	previewCmd.Flags().Int("times", 0, "End the series after this many occurrences")
	previewCmd.Flags().String("until", "", "End the series after this date (YYYY-MM-DD)")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	from, _ := cmd.Flags().GetString("from")
	count, _ := cmd.Flags().GetInt("count")
	times, _ := cmd.Flags().GetInt("times")
	until, _ := cmd.Flags().GetString("until")

	series := commands.RemindArgs{When: from, Title: "preview", Every: args[0], Until: until, Times: times}
	return previewRule(cmd.OutOrStdout(), series, time.Now().In(loc), count)
}

func previewRule(w io.Writer, series commands.RemindArgs, now time.Time, count int) error {
	if series.Until != "" && series.Times > 0 {
		return fmt.Errorf("use either --until or --times, not both")
	}
	rule, end, err := series.Rules(now.Location())
	if err != nil {
		return err
	}
	start := now
	if series.When != "" {
		if start, err = commands.ParseWhen(series.When, now); err != nil {
			return err
		}
	}
	rest, err := recurrence.Preview(start, rule, end, count-1)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s (%s)\n", rule, describeEnd(end))
	for i, at := range append([]time.Time{start}, rest...) {
		if i >= count {
			break
		}
		fmt.Fprintf(w, "%3d. %s\n", i+1, at.Format("Mon 2006-01-02 15:04 MST"))
	}
	return nil
}

func describeEnd(end model.EndRule) string {
	if end == nil {
		return "never"
	}
	return end.String()
}
