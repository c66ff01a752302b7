package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"moddb-curator/config"
	"moddb-curator/db"
	"moddb-curator/logger"
	"moddb-curator/moddb"
	"moddb-curator/reconcile"
	"moddb-curator/scan"
	"moddb-curator/steam"
	"moddb-curator/ui"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Scans installed mods and updates the mod database",
	Long: `Scans every numbered folder of MODS_DIR, merges the mods found into
db.json and looks up newly added mods on the workshop API.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger.Log.Info("Running update command...")
		cfg := bootstrap(configDir)

		headless, _ := cmd.Flags().GetBool("headless")
		if modsDir, _ := cmd.Flags().GetString("mods-dir"); modsDir != "" {
			cfg.ModsDir = modsDir
		}

		client, err := steam.NewClient(cfg)
		if err != nil {
			logger.Log.Fatalw("Failed to create workshop client", zap.Error(err))
		}

		if headless {
			job := updateJob{cfg: cfg, lookup: client, history: db.DB, out: os.Stdout}
			if _, err := job.run(cmd.Context()); err != nil {
				logger.Log.Fatalw("Update failed", zap.Error(err))
			}
			return
		}
		runUpdateTUI(updateJob{cfg: cfg, lookup: client, history: db.DB})
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().Bool("headless", false, "print plain progress lines instead of the interactive view")
	updateCmd.Flags().String("mods-dir", "", "override MODS_DIR for this run")
}

// Progress message types sent by an update run.
const (
	msgStatus        = "status"
	msgLog           = "log"
	msgScanProgress  = "scan_progress"
	msgFetchStart    = "fetch_start"
	msgFetchProgress = "fetch_progress"
	msgSummary       = "summary"
	msgError         = "error"
	msgDone          = "done"
)

// UpdateProgressMsg represents a progress update from the update process
type UpdateProgressMsg struct {
	Type    string
	Level   string // info, success, error, title
	Message string
	Done    int
	Total   int
}

// updateJob is one scan, merge, fetch and save sequence.
type updateJob struct {
	cfg     config.Config
	lookup  reconcile.Lookuper
	history *gorm.DB

	// progress receives messages for an interactive front-end. When nil,
	// log-like messages are printed to out instead.
	progress chan<- UpdateProgressMsg
	out      io.Writer
}

func (j updateJob) send(msg UpdateProgressMsg) {
	if j.progress != nil {
		j.progress <- msg
		return
	}
	if j.out == nil {
		return
	}
	switch msg.Type {
	case msgLog, msgStatus, msgSummary:
		fmt.Fprintln(j.out, ui.Colorize(msg.Message, ui.LevelColor(msg.Level)))
	case msgError:
		fmt.Fprintln(j.out, ui.Colorize(msg.Message, ui.ColorError))
	case msgFetchProgress:
		fmt.Fprintf(j.out, "  fetched %d/%d\n", msg.Done, msg.Total)
	}
}

func (j updateJob) logf(level, format string, args ...any) {
	j.send(UpdateProgressMsg{Type: msgLog, Level: level, Message: fmt.Sprintf(format, args...)})
}

// run executes the update. The database file is only rewritten after the
// whole run succeeded.
func (j updateJob) run(ctx context.Context) (reconcile.Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := j.cfg
	if err := cfg.RequireModsDir(); err != nil {
		return reconcile.Summary{}, err
	}

	j.send(UpdateProgressMsg{Type: msgLog, Level: "title", Message: "--- Starting mod database update ---"})

	database, existed, err := moddb.Load(cfg.DatabasePath)
	if err != nil {
		return reconcile.Summary{}, err
	}
	if !existed {
		j.logf("info", "Database file '%s' not found. Starting with a new structure.", cfg.DatabasePath)
	}

	j.send(UpdateProgressMsg{Type: msgStatus, Message: fmt.Sprintf("Scanning mods directory: %s...", cfg.ModsDir)})
	observations, err := scan.Dir(cfg.ModsDir, scan.Options{
		BatchSize: cfg.ProgressBatchSize,
		Log:       logger.Log,
		OnProgress: func(done, total int) {
			j.send(UpdateProgressMsg{Type: msgScanProgress, Done: done, Total: total})
		},
	})
	if err != nil {
		return reconcile.Summary{}, err
	}

	engine := &reconcile.Engine{
		Fetcher: &reconcile.Fetcher{
			Lookup:      j.lookup,
			Concurrency: cfg.MaxConcurrentRequests,
			Timeout:     cfg.RequestTimeout,
			BatchSize:   cfg.ProgressBatchSize,
		},
		Log:    logger.Log,
		Events: j.forward,
	}

	summary, err := engine.Run(ctx, database, observations)
	if err != nil {
		return summary, err
	}

	if err := moddb.Save(cfg.DatabasePath, database); err != nil {
		return summary, err
	}
	j.logf("success", "Saved updated database to '%s'", cfg.DatabasePath)

	if j.history != nil {
		runID := uuid.NewString()
		if err := db.RecordRun(j.history, runID, summary.Changes); err != nil {
			logger.Log.Warnw("Failed to record update history", zap.Error(err))
			j.send(UpdateProgressMsg{Type: msgError, Message: fmt.Sprintf("history not recorded: %v", err)})
		} else {
			logger.Log.Infow("Recorded update history", zap.String("run_id", runID), zap.Int("changes", len(summary.Changes)))
		}
	}

	j.send(UpdateProgressMsg{Type: msgSummary, Message: summaryText(summary)})
	return summary, nil
}

// forward turns engine events into progress messages.
func (j updateJob) forward(ev reconcile.Event) {
	switch ev.Kind {
	case reconcile.EventLog:
		j.send(UpdateProgressMsg{Type: msgLog, Level: string(ev.Level), Message: ev.Message})
	case reconcile.EventFetchStart:
		j.send(UpdateProgressMsg{Type: msgFetchStart, Total: ev.Total})
	case reconcile.EventFetchProgress:
		j.send(UpdateProgressMsg{Type: msgFetchProgress, Done: ev.Done, Total: ev.Total})
	}
}

func summaryText(s reconcile.Summary) string {
	return fmt.Sprintf(
		"Scanned %d mods: %d added, %d updated, %d unchanged, %d skipped. Enriched %d, failed %d.",
		s.Observed, s.Inserted, s.Updated, s.Unchanged, s.Skipped, s.Enriched, s.Failed,
	)
}
