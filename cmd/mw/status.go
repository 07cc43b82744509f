package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rvashist/mailwatch/internal/display"
)

type statusOutput struct {
	Database    string `json:"database"`
	Keyword     string `json:"keyword,omitempty"`
	Evaluated   int    `json:"evaluated"`
	Matches     int    `json:"matches"`
	LastChecked string `json:"last_checked,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"st"},
	Short:   "Show store state: evaluated count, matches, last check",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := statusOutput{
			Database:    watchStore.Path(),
			Keyword:     cfg.Keyword,
			Evaluated:   watchStore.EvaluatedCount(),
			Matches:     watchStore.MatchCount(),
			LastChecked: watchStore.LatestEvaluatedAt(),
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		display.Header("Mailwatch Status")
		fmt.Println()
		fmt.Printf("  Database:   %s\n", out.Database)
		if out.Keyword != "" {
			fmt.Printf("  Keyword:    %q\n", out.Keyword)
		} else {
			fmt.Printf("  Keyword:    %s\n", display.ErrStyle.Render("(not set — edit config or pass --keyword)"))
		}
		fmt.Printf("  Evaluated:  %d messages\n", out.Evaluated)
		fmt.Printf("  Matches:    %d\n", out.Matches)
		if out.LastChecked != "" {
			if t, err := time.Parse(time.RFC3339, out.LastChecked); err == nil {
				fmt.Printf("  Last check: %s\n", display.TimeAgo(t))
			} else {
				fmt.Printf("  Last check: %s\n", out.LastChecked)
			}
		} else {
			fmt.Printf("  Last check: %s\n", display.Dim.Render("never"))
		}
		fmt.Println()
		fmt.Printf("  %s\n", display.Dim.Render("Use 'mw check' for a one-off pass, 'mw watch' to monitor, 'mw matches' to browse."))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
