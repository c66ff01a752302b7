package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"moddb-curator/config"
	"moddb-curator/logger"
	"moddb-curator/moddb"
	"moddb-curator/rules"
	"moddb-curator/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rulesCmd groups the rule editing commands
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Shows and edits per-mod load-order rules",
	Long: `Manages rules.json. Rules are owned by a package id that must exist in
db.json. A referenced package id may appear in only one of the lists
loadBefore, loadAfter and incompatibilities of the same owner.`,
}

// ruleEdit carries the flag values shared by the rule editing commands.
// The *Set fields record which flags were given on the command line.
type ruleEdit struct {
	names    []string
	comments []string
	hard     bool
	newID    string

	namesSet    bool
	commentsSet bool
	hardSet     bool
}

func (e *ruleEdit) markChanged(cmd *cobra.Command) {
	e.namesSet = cmd.Flags().Changed("name")
	e.commentsSet = cmd.Flags().Changed("comment")
	e.hardSet = cmd.Flags().Changed("hard")
}

func (e ruleEdit) reference(bucket rules.Bucket, id string, idx *moddb.Index) rules.Reference {
	names := e.names
	if len(names) == 0 {
		if entry, ok := idx.Resolve(id); ok {
			names = []string{entry.Record.Name}
		} else {
			names = []string{id}
		}
	}
	return rules.Reference{Bucket: bucket, Name: names, Comment: e.comments, HardIncompatibility: e.hard}
}

// edit updates the entry oldID in bucket. Fields without a flag keep their
// stored values.
func (e ruleEdit) edit(r *rules.Rule, bucket rules.Bucket, oldID string) error {
	oldID = moddb.NormalizeStableID(oldID)
	ref, ok := r.Refs[oldID]
	if !ok || ref.Bucket != bucket {
		return fmt.Errorf("'%s' in %s: %w", oldID, bucket, rules.ErrNotFound)
	}
	if e.namesSet {
		ref.Name = e.names
	}
	if e.commentsSet {
		ref.Comment = e.comments
	}
	if e.hardSet {
		ref.HardIncompatibility = e.hard
	}
	newID := e.newID
	if newID == "" {
		newID = oldID
	}
	return r.Edit(oldID, newID, ref)
}

var ruleFlags ruleEdit

func rulesSubcommand(use, short string, args cobra.PositionalArgs, fn func(cfg config.Config, args []string, out io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := bootstrap(configDir)
			ruleFlags.markChanged(cmd)
			if err := fn(cfg, args, os.Stdout); err != nil {
				logger.Log.Fatalw("Rules command failed", zap.Error(err))
			}
		},
	}
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	show := rulesSubcommand("show <package_id>", "Prints the rules of a mod", cobra.ExactArgs(1),
		func(cfg config.Config, args []string, out io.Writer) error {
			return runRulesShow(cfg, args[0], out)
		})
	add := rulesSubcommand("add <package_id> <before|after|incompatible> <referenced_id>", "Adds a referenced mod to a list", cobra.ExactArgs(3),
		func(cfg config.Config, args []string, out io.Writer) error {
			return runRulesEdit(cfg, args[0], func(r *rules.Rule, idx *moddb.Index) error {
				bucket, err := rules.ParseBucket(args[1])
				if err != nil {
					return err
				}
				return r.Add(args[2], ruleFlags.reference(bucket, args[2], idx))
			}, out)
		})
	edit := rulesSubcommand("edit <package_id> <before|after|incompatible> <referenced_id>", "Edits a referenced mod in place", cobra.ExactArgs(3),
		func(cfg config.Config, args []string, out io.Writer) error {
			return runRulesEdit(cfg, args[0], func(r *rules.Rule, _ *moddb.Index) error {
				bucket, err := rules.ParseBucket(args[1])
				if err != nil {
					return err
				}
				return ruleFlags.edit(r, bucket, args[2])
			}, out)
		})
	remove := rulesSubcommand("remove <package_id> <before|after|incompatible> <referenced_id>", "Removes a referenced mod from a list", cobra.ExactArgs(3),
		func(cfg config.Config, args []string, out io.Writer) error {
			return runRulesEdit(cfg, args[0], func(r *rules.Rule, _ *moddb.Index) error {
				bucket, err := rules.ParseBucket(args[1])
				if err != nil {
					return err
				}
				return r.Remove(bucket, args[2])
			}, out)
		})
	bottom := rulesSubcommand("bottom <package_id> <true|false>", "Pins a mod to the bottom of the load order", cobra.ExactArgs(2),
		func(cfg config.Config, args []string, out io.Writer) error {
			value := strings.EqualFold(args[1], "true") || args[1] == "1"
			return runRulesEdit(cfg, args[0], func(r *rules.Rule, _ *moddb.Index) error {
				r.SetLoadBottom(value, ruleFlags.comments)
				return nil
			}, out)
		})
	versions := rulesSubcommand("versions <package_id> <v1,v2,...>", "Sets the supported game versions of a rule", cobra.ExactArgs(2),
		func(cfg config.Config, args []string, out io.Writer) error {
			return runRulesEdit(cfg, args[0], func(r *rules.Rule, _ *moddb.Index) error {
				r.SetSupportedVersions(parseList(args[1]))
				return nil
			}, out)
		})
	del := rulesSubcommand("delete <package_id>", "Deletes every rule of a mod", cobra.ExactArgs(1),
		func(cfg config.Config, args []string, out io.Writer) error {
			return runRulesDelete(cfg, args[0], out)
		})

	for _, c := range []*cobra.Command{add, edit} {
		c.Flags().StringSliceVar(&ruleFlags.names, "name", nil, "display name(s); defaults to the name in db.json")
		c.Flags().StringSliceVar(&ruleFlags.comments, "comment", nil, "comment line(s)")
		c.Flags().BoolVar(&ruleFlags.hard, "hard", false, "mark an incompatibility as hard")
	}
	edit.Flags().StringVar(&ruleFlags.newID, "id", "", "rename the referenced package id")
	bottom.Flags().StringSliceVar(&ruleFlags.comments, "comment", nil, "comment line(s)")

	rulesCmd.AddCommand(show, add, edit, remove, bottom, versions, del)
}

// loadRules reads the rules document and reports every reference that was
// dropped because its id also appears in another list of the same owner.
func loadRules(cfg config.Config, out io.Writer) (*rules.Document, error) {
	doc, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	for _, d := range doc.Dropped {
		logger.Log.Warnw("Dropped rule reference listed in several buckets",
			zap.String("owner", d.Owner),
			zap.String("id", d.ID),
			zap.String("bucket", string(d.Bucket)),
			zap.String("kept_in", string(d.KeptIn)),
		)
		fmt.Fprintln(out, ui.Colorize(fmt.Sprintf("  [WARN] %s: '%s' dropped from %s, already listed in %s.",
			d.Owner, d.ID, d.Bucket, d.KeptIn), ui.ColorError))
	}
	return doc, nil
}

// resolveOwner checks that owner exists in the mod database.
func resolveOwner(cfg config.Config, owner string) (moddb.Entry, *moddb.Index, error) {
	_, idx, err := loadIndex(cfg)
	if err != nil {
		return moddb.Entry{}, nil, err
	}
	entry, ok := idx.Resolve(owner)
	if !ok {
		return moddb.Entry{}, nil, fmt.Errorf("package id '%s' not found in %s; run update first", owner, cfg.DatabasePath)
	}
	return entry, idx, nil
}

func runRulesShow(cfg config.Config, owner string, out io.Writer) error {
	entry, _, err := resolveOwner(cfg, owner)
	if err != nil {
		return err
	}
	doc, err := loadRules(cfg, out)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, describeEntry(entry))
	r := doc.Get(owner)
	if r == nil || r.IsEmpty() {
		fmt.Fprintln(out, ui.Colorize("No rules defined.", ui.ColorMuted))
		return nil
	}
	printRule(r, out)
	return nil
}

func printRule(r *rules.Rule, out io.Writer) {
	for _, bucket := range rules.Buckets {
		ids := r.In(bucket)
		if len(ids) == 0 {
			continue
		}
		fmt.Fprintln(out, ui.Colorize(string(bucket)+":", ui.ColorTitle))
		for _, id := range ids {
			ref := r.Refs[id]
			line := fmt.Sprintf("  %s (%s)", id, strings.Join(ref.Name, ", "))
			if ref.HardIncompatibility {
				line += " [hard]"
			}
			if len(ref.Comment) > 0 {
				line += " - " + strings.Join(ref.Comment, " ")
			}
			fmt.Fprintln(out, line)
		}
	}
	if r.LoadBottom != nil && r.LoadBottom.Value {
		fmt.Fprintln(out, ui.Colorize("loadBottom: true", ui.ColorTitle))
	}
	if len(r.SupportedVersions) > 0 {
		fmt.Fprintf(out, "%s %s\n", ui.Colorize("supportedVersions:", ui.ColorTitle), strings.Join(r.SupportedVersions, ", "))
	}
}

// runRulesEdit loads the owner's rule, applies fn and saves the document.
// Nothing is written when fn fails.
func runRulesEdit(cfg config.Config, owner string, fn func(r *rules.Rule, idx *moddb.Index) error, out io.Writer) error {
	entry, idx, err := resolveOwner(cfg, owner)
	if err != nil {
		return err
	}
	doc, err := loadRules(cfg, out)
	if err != nil {
		return err
	}

	r, _ := doc.GetOrNew(entry.StableID)
	if err := fn(r, idx); err != nil {
		return err
	}
	if r.IsEmpty() {
		doc.Delete(entry.StableID)
	}
	if err := rules.Save(cfg.RulesPath, doc, time.Now()); err != nil {
		return err
	}

	logger.Log.Infow("Saved rules", zap.String("package_id", entry.StableID))
	fmt.Fprintln(out, ui.Colorize(fmt.Sprintf("Rules for '%s' saved.", entry.StableID), ui.ColorSuccess))
	printRule(r, out)
	return nil
}

func runRulesDelete(cfg config.Config, owner string, out io.Writer) error {
	doc, err := loadRules(cfg, out)
	if err != nil {
		return err
	}
	if !doc.Delete(owner) {
		return fmt.Errorf("no rules defined for '%s'", owner)
	}
	if err := rules.Save(cfg.RulesPath, doc, time.Now()); err != nil {
		return err
	}
	logger.Log.Infow("Deleted rules", zap.String("package_id", owner))
	fmt.Fprintf(out, "Rule for '%s' deleted.\n", moddb.NormalizeStableID(owner))
	return nil
}
