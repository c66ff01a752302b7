package cmd

import (
	"fmt"
	"strings"

	"moddb-curator/config"
	"moddb-curator/db"
	"moddb-curator/logger"
	"moddb-curator/moddb"
	"moddb-curator/version"

	"go.uber.org/zap"
)

// bootstrap handles shared initialization logic for commands.
func bootstrap(path string) config.Config {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}

	if verbose || cfg.LogFile != logger.DefaultLogFile {
		logger.InitLogger(cfg.LogFile, verbose)
	}

	db.InitDatabase(cfg.HistoryPath)
	logger.Log.Infow("History database initialized", zap.String("path", cfg.HistoryPath))

	return cfg
}

// loadIndex reads the mod database and indexes it by remote id.
func loadIndex(cfg config.Config) (*moddb.Database, *moddb.Index, error) {
	database, _, err := moddb.Load(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	idx := moddb.BuildIndex(database)
	for _, c := range idx.Collisions() {
		shadowed := make([]string, 0, len(c.Shadowed))
		for _, e := range c.Shadowed {
			shadowed = append(shadowed, e.StableID)
		}
		logger.Log.Warnw("Remote id stored under several package ids",
			zap.String("remote_id", c.RemoteID),
			zap.String("kept", c.Kept.StableID),
			zap.Strings("shadowed", shadowed),
		)
	}
	return database, idx, nil
}

// parseList splits a comma-separated flag value, dropping empty items.
func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// formatVersions renders a version list for terminal output.
func formatVersions(versions []string) string {
	if len(versions) == 0 {
		return "(none)"
	}
	return strings.Join(versions, ", ")
}

// describeEntry renders one database record on a single line.
func describeEntry(e moddb.Entry) string {
	published := "published"
	if !e.Record.Published {
		published = "unpublished"
	}
	return fmt.Sprintf("%s [%s] %s by %s, versions %s (max %s, %s)",
		e.RemoteID, e.StableID, e.Record.Name, e.Record.Authors,
		formatVersions(e.Record.Versions), version.MaxOf(e.Record.Versions), published)
}
