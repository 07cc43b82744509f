package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rvashist/mailwatch/internal/display"
)

var matchesClear bool

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List recorded matches, newest first",
	Example: `  mw matches
  mw matches --json
  mw matches --clear   # forget all matches and evaluated ids`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if matchesClear {
			if err := watchStore.Clear(); err != nil {
				return err
			}
			if !quietFlag {
				display.SuccessMsg("Cleared all matches and evaluated ids; everything is eligible for re-checking.")
			}
			return nil
		}

		matches, err := watchStore.ListMatches()
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(matches)
		}

		if len(matches) == 0 {
			fmt.Println(display.Dim.Render("No matches recorded yet."))
			return nil
		}

		display.Header(fmt.Sprintf("Matches (%d)", len(matches)))
		fmt.Println()
		for _, rec := range matches {
			display.MatchDetail(*rec)
			fmt.Println()
		}
		return nil
	},
}

func init() {
	matchesCmd.Flags().BoolVar(&matchesClear, "clear", false, "Delete all match records and evaluated ids")
	rootCmd.AddCommand(matchesCmd)
}
