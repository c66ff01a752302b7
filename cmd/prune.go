package cmd

import (
	"fmt"
	"io"
	"os"

	"moddb-curator/config"
	"moddb-curator/logger"
	"moddb-curator/replacements"
	"moddb-curator/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// pruneCmd represents the prune command
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Removes obsolete entries from replacements.json",
	Long: `Drops every replacement whose original mod now supports a newer game
version than the mod replacing it. Entries that cannot be checked against
db.json are kept.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cfg := bootstrap(configDir)
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if err := runPrune(cfg, dryRun, os.Stdout); err != nil {
			logger.Log.Fatalw("Prune failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().Bool("dry-run", false, "report what would be removed without rewriting the file")
}

func runPrune(cfg config.Config, dryRun bool, out io.Writer) error {
	_, idx, err := loadIndex(cfg)
	if err != nil {
		return err
	}
	mapping, err := replacements.Load(cfg.ReplacementsPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Indexed %d database entries.\n", idx.Len())

	kept, diags := replacements.Prune(mapping, idx)
	for _, d := range diags {
		if d.Kept {
			logger.Log.Warnw("Kept replacement entry", zap.String("remote_id", d.RemoteID), zap.String("reason", d.Reason))
			fmt.Fprintln(out, ui.Colorize(fmt.Sprintf("  [WARN] Keeping %s ('%s'): %s.", d.RemoteID, d.Name, d.Reason), ui.ColorMuted))
		}
	}

	removed := replacements.Removed(diags)
	if !dryRun && len(removed) > 0 {
		if err := replacements.Save(cfg.ReplacementsPath, kept); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Total entries analyzed: %d\n", len(mapping.Mods))
	fmt.Fprintf(out, "Entries removed as obsolete: %d\n", len(removed))
	fmt.Fprintf(out, "Entries kept: %d\n", len(kept.Mods))
	for _, d := range removed {
		logger.Log.Infow("Removed obsolete replacement", zap.String("remote_id", d.RemoteID), zap.String("reason", d.Reason))
		fmt.Fprintln(out, ui.Colorize(fmt.Sprintf("  - ID: %s (%s)", d.RemoteID, d.Name), ui.ColorError))
		fmt.Fprintf(out, "    Reason: %s\n", d.Reason)
	}
	if dryRun && len(removed) > 0 {
		fmt.Fprintln(out, "Dry run: replacements file left unchanged.")
	}
	return nil
}
