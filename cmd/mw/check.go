package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rvashist/mailwatch/internal/display"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single check cycle now",
	Long: `Fetch the lookback window once, evaluate anything not seen before, and
report new matches. Safe to run alongside 'mw watch' against the same
database from the watch process itself; a check requested while another
cycle is in flight reports "already running" instead of queuing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		sched, log, err := buildScheduler(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		res, err := sched.RunOnce(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		if !quietFlag {
			fmt.Println()
			display.SuccessMsg("Checked %d messages (%d already seen): %d new match(es).",
				res.Fetched, res.Skipped, res.NewMatches)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&flagKeyword, "keyword", "", "Keyword to search for (overrides config)")
	checkCmd.Flags().IntVar(&flagLookback, "lookback", -1, "Lookback window in days (overrides config)")
	rootCmd.AddCommand(checkCmd)
}
