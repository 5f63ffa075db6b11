// Package syncx keeps an append-only log of hierarchy mutations so other
// sites (or an auditor) can replay the last full order written.
package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	ModulesReordered = "ModulesReordered"
	ContentReordered = "ContentReordered"
	ModuleDeleted    = "ModuleDeleted"
	ItemDeleted      = "ItemDeleted"
)

type Event struct {
	Offset    int64
	SiteID    string
	Type      string
	Key       string // course id for module events, module id for content events
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Record marshals data and appends it.
func (r *EventRepo) Record(ctx context.Context, typ, key string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return r.Append(ctx, Event{Type: typ, Key: key, DataJSON: string(b)})
}

// Since returns events for key after the given offset, oldest first.
func (r *EventRepo) Since(ctx context.Context, key string, offset int64) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE key=$1 AND seq>$2 ORDER BY seq`, key, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
