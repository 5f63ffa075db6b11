package position

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLStore keeps positions in the learner_positions table. With the sqlite
// driver it doubles as the client-local store.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, key Key) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT item_id FROM learner_positions WHERE learner_id=$1 AND course_id=$2`,
		key.LearnerID, key.CourseID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key Key, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO learner_positions (learner_id, course_id, item_id, updated_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (learner_id, course_id) DO UPDATE SET item_id=EXCLUDED.item_id, updated_at=EXCLUDED.updated_at`,
		key.LearnerID, key.CourseID, itemID, time.Now().Unix())
	return err
}
