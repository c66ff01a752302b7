package reconcile

import (
	"moddb-curator/moddb"
	"moddb-curator/steam"
	"moddb-curator/version"
)

// Apply folds a lookup result into rec. Remote data wins whenever it is
// present: the version list is replaced by the version-shaped tags and the
// record is marked published. Without a result the locally observed
// versions stay as a fallback and the record is marked unpublished.
func Apply(rec *moddb.ModRecord, details *steam.Details) {
	if details == nil {
		rec.Published = false
		return
	}
	rec.Versions = version.FilterTags(details.Tags)
	rec.Published = true
}
