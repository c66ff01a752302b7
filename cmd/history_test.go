package cmd

import (
	"bytes"
	"strings"
	"testing"

	"moddb-curator/db"
	"moddb-curator/reconcile"
)

func TestPrintHistory(t *testing.T) {
	cfg := testEnv(t)
	history := testHistory(t, cfg)

	var out bytes.Buffer
	if err := printHistory(history, "", 0, &out); err != nil {
		t.Fatalf("printHistory failed: %v", err)
	}
	if !strings.Contains(out.String(), "No changes recorded.") {
		t.Errorf("Expected empty notice, got:\n%s", out.String())
	}

	changes := []reconcile.Change{
		{StableID: "a.b", RemoteID: "7", Action: reconcile.ChangeInsert, NewVersions: []string{"1.5"}},
		{StableID: "c.d", RemoteID: "8", Action: reconcile.ChangeReplace,
			OldVersions: []string{"1.4"}, NewVersions: []string{"1.4", "1.5"}},
	}
	if err := db.RecordRun(history, "run-1", changes); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	out.Reset()
	if err := printHistory(history, "", 0, &out); err != nil {
		t.Fatalf("printHistory failed: %v", err)
	}
	for _, want := range []string{"a.b", "c.d", "insert", "replace", "1.4, 1.5", "(none)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in table:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := printHistory(history, "8", 0, &out); err != nil {
		t.Fatalf("printHistory failed: %v", err)
	}
	if strings.Contains(out.String(), "a.b") {
		t.Errorf("Filter by remote id leaked other entries:\n%s", out.String())
	}
}
