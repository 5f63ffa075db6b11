package syncx_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-courseware/internal/db"
	syncx "github.com/mind-engage/mindengage-courseware/internal/sync"
)

func TestRecordAndSince(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer dbh.Close()

	r := syncx.NewEventRepo(dbh, "")
	if err := r.Record(ctx, syncx.ModulesReordered, "c1", []string{"m2", "m1"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Record(ctx, syncx.ModuleDeleted, "c2", map[string]string{"moduleId": "m9"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Record(ctx, syncx.ModulesReordered, "c1", []string{"m1", "m2"}); err != nil {
		t.Fatal(err)
	}

	evs, err := r.Since(ctx, "c1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 || evs[0].SiteID != "local" || evs[1].DataJSON != `["m1","m2"]` {
		t.Fatalf("events = %+v", evs)
	}
	rest, _ := r.Since(ctx, "c1", evs[0].Offset)
	if len(rest) != 1 || rest[0].Offset != evs[1].Offset {
		t.Fatalf("since = %+v", rest)
	}
}
