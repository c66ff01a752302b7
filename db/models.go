package db

import (
	"strings"

	"gorm.io/gorm"
)

// Actions recorded in the history table besides the ones an update run
// produces.
const (
	ActionRollback = "rollback"
)

// VersionChange is one mutation of a mod record made by an update run.
type VersionChange struct {
	gorm.Model
	RunID        string `gorm:"index"` // Update run that made the change
	StableID     string `gorm:"index"` // Lower-cased package id
	RemoteID     string `gorm:"index"` // Workshop id
	Action       string // insert, replace, enrich, enrich_failed, rollback
	Reason       string
	OldVersions  string // Comma-joined
	NewVersions  string // Comma-joined
	OldPublished bool
	NewPublished bool
	RolledBack   bool // Set once the change has been undone
}

// JoinVersions encodes a version list for storage.
func JoinVersions(versions []string) string {
	return strings.Join(versions, ",")
}

// SplitVersions decodes a stored version list.
func SplitVersions(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
