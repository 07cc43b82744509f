package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rvashist/mailwatch/internal/display"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the inbox on a schedule and report new matches",
	Long: `Start the recurring monitor: one check runs immediately, then one per
interval. New matches are printed (and posted to the webhook, when
configured). Stop with Ctrl-C; an in-flight check finishes first.`,
	Example: `  mw watch
  mw watch --keyword varun --interval 60
  mw watch --lookback 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sched, log, err := buildScheduler(ctx, cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := sched.Start(); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Watching for %q every %ds (lookback %dd). Ctrl-C to stop.",
				cfg.Keyword, cfg.IntervalSeconds, cfg.LookbackDays)
		}

		<-ctx.Done()
		sched.Stop()

		if !quietFlag {
			display.SuccessMsg("Stopped. %d matches recorded in total.", watchStore.MatchCount())
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&flagKeyword, "keyword", "", "Keyword to search for (overrides config)")
	watchCmd.Flags().IntVar(&flagInterval, "interval", 0, "Poll interval in seconds (overrides config)")
	watchCmd.Flags().IntVar(&flagLookback, "lookback", -1, "Lookback window in days (overrides config)")
	rootCmd.AddCommand(watchCmd)
}
