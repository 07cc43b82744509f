package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rvashist/mailwatch/internal/display"
	"github.com/rvashist/mailwatch/internal/store"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	dbPath     string
	configPath string
	jsonOutput bool
	quietFlag  bool
	watchStore *store.Store
)

var rootCmd = &cobra.Command{
	Use:           "mw",
	Short:         "mw - Watch an inbox for attachments containing a keyword",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Mailwatch polls an email inbox on a schedule, extracts text from
attachments (txt, csv, pdf, docx, xlsx, zip listings), and records every
message whose attachments contain the configured keyword - exactly once,
even across restarts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB for commands that don't need it.
		switch cmd.Name() {
		case "init", "help", "version":
			return nil
		}

		path := dbPath
		if path == "" {
			path = store.Discover()
		}
		if path == "" {
			return fmt.Errorf("no mailwatch database found — run 'mw init' first")
		}

		var err error
		watchStore, err = store.Open(path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if watchStore != nil {
			watchStore.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mw version %s\n", Version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .mailwatch/ in the project root",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := findProjectRoot()
		if root == "" {
			root, _ = os.Getwd()
		}
		if root == "" {
			return fmt.Errorf("could not determine a directory to initialize")
		}

		dir := filepath.Join(root, ".mailwatch")
		s, err := store.Open(filepath.Join(dir, "watch.db"))
		if err != nil {
			return err
		}
		s.Close()

		cfgPath := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o600); err != nil {
				return fmt.Errorf("write config scaffold: %w", err)
			}
		}

		if !quietFlag {
			fmt.Printf("Initialized mailwatch at %s\n", dir)
			fmt.Printf("Edit %s and set your keyword, then run 'mw watch'.\n", cfgPath)
		}
		return nil
	},
}

const configTemplate = `# mailwatch configuration
keyword: ""            # case-insensitive substring to find in attachments
lookback_days: 1       # trailing fetch window, in whole days
interval_seconds: 300  # poll cadence

source: gmail          # gmail | imap
gmail:
  credentials_file: credentials.json
# imap:
#   host: imap.example.com
#   port: "993"
#   username: me@example.com
#   password: app-password
#   mailbox: INBOX

# webhook_url: https://example.com/hooks/mailwatch
log_level: info
`

// findProjectRoot walks up from cwd looking for a .git directory.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: auto-discover .mailwatch/watch.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config path (default: auto-discover .mailwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		display.ErrorMsg("%v", err)
		os.Exit(1)
	}
}
