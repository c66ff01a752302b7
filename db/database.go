package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"moddb-curator/reconcile"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the SQLite history database at dbPath and migrates it.
func Open(dbPath string) (*gorm.DB, error) {
	newLogger := gormlogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      false,
			Colorful:                  true,
		},
	)

	gdb, err := gorm.Open(gormlite.Open(dbPath), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := gdb.AutoMigrate(&VersionChange{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return gdb, nil
}

// InitDatabase opens the history database into DB.
func InitDatabase(dbPath string) {
	gdb, err := Open(dbPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	DB = gdb
}

// RecordRun stores every change of one update run in a single transaction.
func RecordRun(gdb *gorm.DB, runID string, changes []reconcile.Change) error {
	if len(changes) == 0 {
		return nil
	}
	rows := make([]VersionChange, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, VersionChange{
			RunID:        runID,
			StableID:     c.StableID,
			RemoteID:     c.RemoteID,
			Action:       c.Action,
			Reason:       c.Reason,
			OldVersions:  JoinVersions(c.OldVersions),
			NewVersions:  JoinVersions(c.NewVersions),
			OldPublished: c.OldPublished,
			NewPublished: c.NewPublished,
		})
	}
	return gdb.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 100).Error
	})
}

// LatestChange returns the newest change for remoteID that has not been
// rolled back, or nil when there is none.
func LatestChange(gdb *gorm.DB, remoteID string) (*VersionChange, error) {
	var change VersionChange
	err := gdb.
		Where("remote_id = ? AND action <> ? AND rolled_back = ?", remoteID, ActionRollback, false).
		Order("id DESC").
		First(&change).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", remoteID, err)
	}
	return &change, nil
}

// MarkRolledBack flags change as undone and records the rollback itself.
func MarkRolledBack(gdb *gorm.DB, change *VersionChange, runID string) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(change).Update("rolled_back", true).Error; err != nil {
			return err
		}
		return tx.Create(&VersionChange{
			RunID:        runID,
			StableID:     change.StableID,
			RemoteID:     change.RemoteID,
			Action:       ActionRollback,
			Reason:       fmt.Sprintf("undo %s #%d", change.Action, change.ID),
			OldVersions:  change.NewVersions,
			NewVersions:  change.OldVersions,
			OldPublished: change.NewPublished,
			NewPublished: change.OldPublished,
		}).Error
	})
}

// ListChanges returns up to limit changes, newest first, optionally
// restricted to one remote id.
func ListChanges(gdb *gorm.DB, remoteID string, limit int) ([]VersionChange, error) {
	q := gdb.Order("id DESC")
	if remoteID != "" {
		q = q.Where("remote_id = ?", remoteID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var changes []VersionChange
	if err := q.Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return changes, nil
}
