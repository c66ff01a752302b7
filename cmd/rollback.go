package cmd

import (
	"fmt"
	"io"
	"os"

	"moddb-curator/config"
	"moddb-curator/db"
	"moddb-curator/logger"
	"moddb-curator/moddb"
	"moddb-curator/reconcile"
	"moddb-curator/ui"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// rollbackCmd represents the rollback command
var rollbackCmd = &cobra.Command{
	Use:   "rollback [remoteID]",
	Short: "Undo the latest recorded change of a mod entry",
	Long: `Undo the latest recorded change of a mod entry.
Example: moddb-curator rollback 2009463077

A replaced or enriched entry gets its previous versions and published flag
back; an entry the update added is removed again. Run it repeatedly to
step further back.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		cfg := bootstrap(configDir)
		if err := rollbackEntry(cfg, db.DB, args[0], os.Stdout); err != nil {
			logger.Log.Fatalw("Rollback failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

// rollbackEntry handles the rollback process for a specific entry
func rollbackEntry(cfg config.Config, history *gorm.DB, remoteID string, out io.Writer) error {
	change, err := db.LatestChange(history, remoteID)
	if err != nil {
		return err
	}
	if change == nil {
		return fmt.Errorf("no recorded changes for %s", remoteID)
	}

	log := logger.Log.With(zap.String("remote_id", remoteID), zap.String("stable_id", change.StableID))
	log.Infow("Attempting rollback", zap.String("action", change.Action), zap.Uint("change_id", change.ID))

	database, _, err := moddb.Load(cfg.DatabasePath)
	if err != nil {
		return err
	}

	rec := database.Get(change.StableID, change.RemoteID)
	switch {
	case change.Action == reconcile.ChangeInsert:
		if !database.Delete(change.StableID, change.RemoteID) {
			log.Warnw("Entry already gone from database")
		}
	case rec == nil:
		return fmt.Errorf("entry %s/%s is no longer in the database", change.StableID, change.RemoteID)
	default:
		rec.Versions = db.SplitVersions(change.OldVersions)
		rec.Published = change.OldPublished
	}

	if err := moddb.Save(cfg.DatabasePath, database); err != nil {
		return err
	}
	if err := db.MarkRolledBack(history, change, uuid.NewString()); err != nil {
		log.Warnw("Failed to update history record", zap.Error(err))
	}

	log.Infow(ui.Colorize("Rollback successful", ui.ColorSuccess), zap.String("restored_versions", change.OldVersions))
	if change.Action == reconcile.ChangeInsert {
		fmt.Fprintf(out, "Removed %s (%s), which was added by the last update.\n", change.StableID, remoteID)
	} else {
		fmt.Fprintf(out, "Successfully rolled back %s (%s) to versions %s\n",
			change.StableID, remoteID, formatVersions(db.SplitVersions(change.OldVersions)))
	}
	return nil
}
