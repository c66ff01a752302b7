package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"moddb-curator/db"
	"moddb-curator/logger"
	"moddb-curator/ui"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists recorded database changes, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		bootstrap(configDir)
		limit, _ := cmd.Flags().GetInt("limit")
		remoteID, _ := cmd.Flags().GetString("id")
		if err := printHistory(db.DB, remoteID, limit, os.Stdout); err != nil {
			logger.Log.Fatalw("Failed to list history", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 20, "number of changes to show (0 for all)")
	historyCmd.Flags().String("id", "", "only show changes of this remote id")
}

func printHistory(history *gorm.DB, remoteID string, limit int, out io.Writer) error {
	changes, err := db.ListChanges(history, remoteID, limit)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Fprintln(out, "No changes recorded.")
		return nil
	}

	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		action := c.Action
		if c.RolledBack {
			action += " (undone)"
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(c.ID), 10),
			c.CreatedAt.Format("2006-01-02 15:04"),
			c.RemoteID,
			c.StableID,
			action,
			formatVersions(db.SplitVersions(c.OldVersions)),
			formatVersions(db.SplitVersions(c.NewVersions)),
		})
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(fmt.Sprintf("#%06x", ui.ColorTitle)))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "When", "Remote ID", "Package ID", "Action", "Old", "New").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(out, t.Render())
	return nil
}
