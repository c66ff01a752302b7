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

// replaceCmd groups the replacement editing commands
var replaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Inspects and edits replacement relationships",
	Long: `Manages replacements.json. Both mods must be present in db.json.
A new relationship needs both mods published and a replacement that
supports at least the original's newest game version.`,
}

func replaceSubcommand(use, short string, args cobra.PositionalArgs, fn func(cfg config.Config, args []string, out io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		Run: func(_ *cobra.Command, args []string) {
			cfg := bootstrap(configDir)
			if err := fn(cfg, args, os.Stdout); err != nil {
				logger.Log.Fatalw("Replacement command failed", zap.Error(err))
			}
		},
	}
}

func init() {
	rootCmd.AddCommand(replaceCmd)
	replaceCmd.AddCommand(
		replaceSubcommand("check <original_id> <replacement_id>", "Shows whether a pair may be added, changed or removed",
			cobra.ExactArgs(2), func(cfg config.Config, args []string, out io.Writer) error {
				return runReplaceCheck(cfg, args[0], args[1], out)
			}),
		replaceSubcommand("add <original_id> <replacement_id>", "Adds a new replacement relationship",
			cobra.ExactArgs(2), func(cfg config.Config, args []string, out io.Writer) error {
				return runReplaceEdit(cfg, replacements.ModeAdd, args[0], args[1], out)
			}),
		replaceSubcommand("change <original_id> <replacement_id>", "Points an existing original at a new replacement",
			cobra.ExactArgs(2), func(cfg config.Config, args []string, out io.Writer) error {
				return runReplaceEdit(cfg, replacements.ModeChange, args[0], args[1], out)
			}),
		replaceSubcommand("remove <original_id>", "Removes the relationship of an original mod",
			cobra.ExactArgs(1), func(cfg config.Config, args []string, out io.Writer) error {
				return runReplaceRemove(cfg, args[0], out)
			}),
	)
}

func checkMark(ok bool, pass, fail string) string {
	if ok {
		return ui.Colorize("✓ "+pass, ui.ColorSuccess)
	}
	return ui.Colorize("✗ "+fail, ui.ColorError)
}

func runReplaceCheck(cfg config.Config, originalID, replacementID string, out io.Writer) error {
	_, idx, err := loadIndex(cfg)
	if err != nil {
		return err
	}
	mapping, err := replacements.Load(cfg.ReplacementsPath)
	if err != nil {
		return err
	}
	a, err := mapping.Assess(idx, originalID, replacementID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Original:    %s\n", describeEntry(a.Original))
	fmt.Fprintf(out, "Replacement: %s\n", describeEntry(a.Replacement))
	fmt.Fprintln(out, checkMark(a.BothPublished, "Both mods are published", "Both mods must be published"))
	fmt.Fprintln(out, checkMark(a.NewRelationship, "Is a new relationship", "Relationship already exists"))
	fmt.Fprintln(out, checkMark(a.UpToDate, "Replacement is up-to-date", "Replacement is not up-to-date"))
	if a.Allowed() {
		fmt.Fprintf(out, "Available action: %s\n", a.Mode)
	} else {
		fmt.Fprintf(out, "Action %s is blocked.\n", a.Mode)
	}
	return nil
}

func runReplaceEdit(cfg config.Config, mode replacements.Mode, originalID, replacementID string, out io.Writer) error {
	_, idx, err := loadIndex(cfg)
	if err != nil {
		return err
	}
	mapping, err := replacements.Load(cfg.ReplacementsPath)
	if err != nil {
		return err
	}
	a, err := mapping.Assess(idx, originalID, replacementID)
	if err != nil {
		return err
	}

	switch mode {
	case replacements.ModeAdd:
		err = mapping.Add(a)
	case replacements.ModeChange:
		err = mapping.Change(a)
	default:
		err = fmt.Errorf("unsupported mode %s", mode)
	}
	if err != nil {
		return err
	}
	if err := replacements.Save(cfg.ReplacementsPath, mapping); err != nil {
		return err
	}

	logger.Log.Infow("Saved replacement",
		zap.String("mode", string(mode)),
		zap.String("original", originalID),
		zap.String("replacement", replacementID),
	)
	fmt.Fprintln(out, ui.Colorize(fmt.Sprintf("Replacement for '%s' is now '%s'.", a.Original.Record.Name, a.Replacement.Record.Name), ui.ColorSuccess))
	return nil
}

func runReplaceRemove(cfg config.Config, originalID string, out io.Writer) error {
	mapping, err := replacements.Load(cfg.ReplacementsPath)
	if err != nil {
		return err
	}
	name := mapping.Mods[originalID].ModName
	if err := mapping.Remove(originalID); err != nil {
		return err
	}
	if err := replacements.Save(cfg.ReplacementsPath, mapping); err != nil {
		return err
	}
	logger.Log.Infow("Removed replacement", zap.String("original", originalID))
	fmt.Fprintf(out, "Entry for '%s' (%s) has been removed.\n", name, originalID)
	return nil
}
