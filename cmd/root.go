package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configDir string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "moddb-curator",
	Short: "Maintains the community mod database and its companion documents",
	Long: `moddb-curator keeps db.json in sync with the mods installed in a
workshop folder, enriches new entries from the workshop API, prunes
obsolete replacements and edits per-mod load-order rules.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding the .env file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also write log lines to stderr")
}
