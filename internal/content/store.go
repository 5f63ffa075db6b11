// Package content persists courses, modules, materials, evaluations and
// results for the API server.
package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/ordering"
)

// Store is what the HTTP handlers need from persistence.
type Store interface {
	CreateCourse(ctx context.Context, title, createdBy string) (course.Course, error)
	GetCourse(ctx context.Context, courseID string) (course.Course, error)

	ListModules(ctx context.Context, courseID string) ([]course.Module, error)
	CreateModule(ctx context.Context, courseID, title string) (course.Module, error)
	RenameModule(ctx context.Context, courseID, moduleID, title string) (course.Module, error)
	DeleteModule(ctx context.Context, courseID, moduleID string) error
	ReorderModules(ctx context.Context, courseID string, ids []string) error

	ListContent(ctx context.Context, moduleID string) ([]course.ContentItem, error)
	ReorderContent(ctx context.Context, moduleID string, entries []course.OrderEntry) error
	AddMaterial(ctx context.Context, moduleID string, item course.ContentItem) (course.ContentItem, error)
	AddEvaluation(ctx context.Context, moduleID string, ev course.Evaluation) (course.ContentItem, error)
	RenameItem(ctx context.Context, moduleID string, ref course.OrderEntry, title string) (course.ContentItem, error)
	DeleteItem(ctx context.Context, moduleID string, ref course.OrderEntry) error

	// GetEvaluation returns the evaluation with its answer key.
	GetEvaluation(ctx context.Context, moduleID, evaluationID string) (course.Evaluation, error)
	GetMaterials(ctx context.Context, ids []string) ([]course.MaterialRef, error)
	SaveResult(ctx context.Context, userID string, res course.Result, sub course.Submission) (string, error)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func now() int64 { return time.Now().Unix() }

// ---- courses ----

func (s *SQLStore) CreateCourse(ctx context.Context, title, createdBy string) (course.Course, error) {
	if err := course.ValidateTitle(title); err != nil {
		return course.Course{}, err
	}
	c := course.Course{ID: uuid.NewString(), Title: title}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id,title,created_by,created_at) VALUES ($1,$2,$3,$4)`,
		c.ID, c.Title, createdBy, now())
	return c, err
}

// GetCourse loads the full two-level tree.
func (s *SQLStore) GetCourse(ctx context.Context, courseID string) (course.Course, error) {
	var c course.Course
	err := s.db.QueryRowContext(ctx, `SELECT id,title FROM courses WHERE id=$1`, courseID).Scan(&c.ID, &c.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return course.Course{}, course.NotFound("course", courseID)
	}
	if err != nil {
		return course.Course{}, err
	}
	mods, err := listModules(ctx, s.db, courseID)
	if err != nil {
		return course.Course{}, err
	}
	for i := range mods {
		items, err := listContent(ctx, s.db, mods[i].ID)
		if err != nil {
			return course.Course{}, err
		}
		mods[i].Items = items
	}
	c.Modules = mods
	return c, nil
}

func requireCourse(ctx context.Context, q querier, courseID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM courses WHERE id=$1`, courseID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return course.NotFound("course", courseID)
	}
	return err
}

// ---- modules ----

func (s *SQLStore) ListModules(ctx context.Context, courseID string) ([]course.Module, error) {
	if err := requireCourse(ctx, s.db, courseID); err != nil {
		return nil, err
	}
	return listModules(ctx, s.db, courseID)
}

func listModules(ctx context.Context, q querier, courseID string) ([]course.Module, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id,course_id,title,order_index FROM modules WHERE course_id=$1 ORDER BY order_index, id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []course.Module{}
	for rows.Next() {
		var m course.Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.OrderIndex); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ordering.Normalize(out), nil
}

func (s *SQLStore) CreateModule(ctx context.Context, courseID, title string) (course.Module, error) {
	if err := course.ValidateTitle(title); err != nil {
		return course.Module{}, err
	}
	m := course.Module{ID: uuid.NewString(), CourseID: courseID, Title: title}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireCourse(ctx, tx, courseID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM modules WHERE course_id=$1`, courseID).Scan(&m.OrderIndex); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO modules (id,course_id,title,order_index,created_at) VALUES ($1,$2,$3,$4,$5)`,
			m.ID, m.CourseID, m.Title, m.OrderIndex, now())
		return err
	})
	return m, err
}

func (s *SQLStore) RenameModule(ctx context.Context, courseID, moduleID, title string) (course.Module, error) {
	if err := course.ValidateTitle(title); err != nil {
		return course.Module{}, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE modules SET title=$1 WHERE id=$2 AND course_id=$3`, title, moduleID, courseID)
	if err := affectedOne(res, err, "module", moduleID); err != nil {
		return course.Module{}, err
	}
	var m course.Module
	err = s.db.QueryRowContext(ctx, `SELECT id,course_id,title,order_index FROM modules WHERE id=$1`, moduleID).
		Scan(&m.ID, &m.CourseID, &m.Title, &m.OrderIndex)
	return m, err
}

// DeleteModule removes the module, its materials and evaluations, and closes
// the gap in the course's order.
func (s *SQLStore) DeleteModule(ctx context.Context, courseID, moduleID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM modules WHERE id=$1 AND course_id=$2`, moduleID, courseID)
		if err := affectedOne(res, err, "module", moduleID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM materials WHERE module_id=$1`, moduleID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM evaluations WHERE module_id=$1`, moduleID); err != nil {
			return err
		}
		rest, err := listModules(ctx, tx, courseID)
		if err != nil {
			return err
		}
		return writeModuleOrder(ctx, tx, rest)
	})
}

// ReorderModules stores a full permutation of the course's module ids.
func (s *SQLStore) ReorderModules(ctx context.Context, courseID string, ids []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireCourse(ctx, tx, courseID); err != nil {
			return err
		}
		cur, err := listModules(ctx, tx, courseID)
		if err != nil {
			return err
		}
		arranged, err := ordering.Arrange(cur, ids, "module")
		if err != nil {
			return err
		}
		return writeModuleOrder(ctx, tx, arranged)
	})
}

func writeModuleOrder(ctx context.Context, tx *sql.Tx, mods []course.Module) error {
	for i, m := range mods {
		if _, err := tx.ExecContext(ctx, `UPDATE modules SET order_index=$1 WHERE id=$2`, i, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// ---- content ----

func (s *SQLStore) ListContent(ctx context.Context, moduleID string) ([]course.ContentItem, error) {
	if err := requireModule(ctx, s.db, moduleID); err != nil {
		return nil, err
	}
	return listContent(ctx, s.db, moduleID)
}

func requireModule(ctx context.Context, q querier, moduleID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM modules WHERE id=$1`, moduleID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return course.NotFound("module", moduleID)
	}
	return err
}

// listContent merges materials and evaluations into one kind-tagged list.
func listContent(ctx context.Context, q querier, moduleID string) ([]course.ContentItem, error) {
	out := []course.ContentItem{}
	rows, err := q.QueryContext(ctx,
		`SELECT id,title,media_type,content,subtitles_url,order_index FROM materials WHERE module_id=$1`, moduleID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		it := course.ContentItem{ModuleID: moduleID, Kind: course.KindMaterial}
		var mt string
		if err := rows.Scan(&it.ID, &it.Title, &mt, &it.Content, &it.SubtitlesURL, &it.OrderIndex); err != nil {
			rows.Close()
			return nil, err
		}
		it.MediaType = course.MediaType(mt)
		out = append(out, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, `SELECT id,title,order_index FROM evaluations WHERE module_id=$1`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it := course.ContentItem{ModuleID: moduleID, Kind: course.KindEvaluation}
		if err := rows.Scan(&it.ID, &it.Title, &it.OrderIndex); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ordering.Normalize(out), nil
}

// ReorderContent stores a full kind-tagged permutation of a module's items.
func (s *SQLStore) ReorderContent(ctx context.Context, moduleID string, entries []course.OrderEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireModule(ctx, tx, moduleID); err != nil {
			return err
		}
		cur, err := listContent(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		arranged, err := ordering.Arrange(cur, ordering.EntryKeys(entries), "content item")
		if err != nil {
			return err
		}
		for i, e := range entries {
			if e.Kind != "" && e.Kind != arranged[i].Kind {
				return course.Invalid("kind", fmt.Sprintf("%s is %s, not %s", e.ID, arranged[i].Kind, e.Kind))
			}
		}
		return writeContentOrder(ctx, tx, arranged)
	})
}

func writeContentOrder(ctx context.Context, tx *sql.Tx, items []course.ContentItem) error {
	for i, it := range items {
		q := `UPDATE materials SET order_index=$1 WHERE id=$2`
		if it.Kind == course.KindEvaluation {
			q = `UPDATE evaluations SET order_index=$1 WHERE id=$2`
		}
		if _, err := tx.ExecContext(ctx, q, i, it.ID); err != nil {
			return err
		}
	}
	return nil
}

func nextItemIndex(ctx context.Context, tx *sql.Tx, moduleID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM materials WHERE module_id=$1) + (SELECT COUNT(*) FROM evaluations WHERE module_id=$2)`,
		moduleID, moduleID).Scan(&n)
	return n, err
}

// AddMaterial appends a material to the end of the module's list.
func (s *SQLStore) AddMaterial(ctx context.Context, moduleID string, item course.ContentItem) (course.ContentItem, error) {
	item.MediaType = course.ParseMediaType(string(item.MediaType))
	if err := course.ValidateMaterial(item); err != nil {
		return course.ContentItem{}, err
	}
	item.ID = uuid.NewString()
	item.ModuleID = moduleID
	item.Kind = course.KindMaterial
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireModule(ctx, tx, moduleID); err != nil {
			return err
		}
		idx, err := nextItemIndex(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		item.OrderIndex = idx
		_, err = tx.ExecContext(ctx,
			`INSERT INTO materials (id,module_id,title,media_type,content,subtitles_url,order_index,created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			item.ID, moduleID, item.Title, string(item.MediaType), item.Content, item.SubtitlesURL, item.OrderIndex, now())
		return err
	})
	if err != nil {
		return course.ContentItem{}, err
	}
	return item, nil
}

// AddEvaluation appends an evaluation. Questions and answers without ids get
// fresh ones.
func (s *SQLStore) AddEvaluation(ctx context.Context, moduleID string, ev course.Evaluation) (course.ContentItem, error) {
	if err := course.ValidateEvaluation(ev); err != nil {
		return course.ContentItem{}, err
	}
	ev.ID = uuid.NewString()
	ev.ModuleID = moduleID
	for i := range ev.Questions {
		if ev.Questions[i].ID == "" {
			ev.Questions[i].ID = uuid.NewString()
		}
		for j := range ev.Questions[i].Answers {
			if ev.Questions[i].Answers[j].ID == "" {
				ev.Questions[i].Answers[j].ID = uuid.NewString()
			}
		}
	}
	qj, err := json.Marshal(ev.Questions)
	if err != nil {
		return course.ContentItem{}, err
	}
	item := course.ContentItem{ID: ev.ID, ModuleID: moduleID, Title: ev.Title, Kind: course.KindEvaluation}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireModule(ctx, tx, moduleID); err != nil {
			return err
		}
		idx, err := nextItemIndex(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		item.OrderIndex = idx
		_, err = tx.ExecContext(ctx,
			`INSERT INTO evaluations (id,module_id,title,questions_json,order_index,created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			ev.ID, moduleID, ev.Title, string(qj), idx, now())
		return err
	})
	if err != nil {
		return course.ContentItem{}, err
	}
	return item, nil
}

func tableFor(kind course.Kind) string {
	if kind == course.KindEvaluation {
		return "evaluations"
	}
	return "materials"
}

func (s *SQLStore) RenameItem(ctx context.Context, moduleID string, ref course.OrderEntry, title string) (course.ContentItem, error) {
	if err := course.ValidateTitle(title); err != nil {
		return course.ContentItem{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+tableFor(ref.Kind)+` SET title=$1 WHERE id=$2 AND module_id=$3`, title, ref.ID, moduleID)
	if err := affectedOne(res, err, string(ref.Kind), ref.ID); err != nil {
		return course.ContentItem{}, err
	}
	items, err := listContent(ctx, s.db, moduleID)
	if err != nil {
		return course.ContentItem{}, err
	}
	for _, it := range items {
		if it.ID == ref.ID {
			return it, nil
		}
	}
	return course.ContentItem{}, course.NotFound(string(ref.Kind), ref.ID)
}

// DeleteItem removes one material or evaluation and closes the gap.
func (s *SQLStore) DeleteItem(ctx context.Context, moduleID string, ref course.OrderEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM `+tableFor(ref.Kind)+` WHERE id=$1 AND module_id=$2`, ref.ID, moduleID)
		if err := affectedOne(res, err, string(ref.Kind), ref.ID); err != nil {
			return err
		}
		rest, err := listContent(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		return writeContentOrder(ctx, tx, rest)
	})
}

// ---- evaluations & results ----

func (s *SQLStore) GetEvaluation(ctx context.Context, moduleID, evaluationID string) (course.Evaluation, error) {
	ev := course.Evaluation{ModuleID: moduleID}
	var qjson string
	err := s.db.QueryRowContext(ctx,
		`SELECT id,title,questions_json FROM evaluations WHERE id=$1 AND module_id=$2`, evaluationID, moduleID).
		Scan(&ev.ID, &ev.Title, &qjson)
	if errors.Is(err, sql.ErrNoRows) {
		return course.Evaluation{}, course.NotFound("evaluation", evaluationID)
	}
	if err != nil {
		return course.Evaluation{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &ev.Questions); err != nil {
		return course.Evaluation{}, fmt.Errorf("decode questions of %s: %w", evaluationID, err)
	}
	return ev, nil
}

// GetMaterials returns refs for the ids that still exist, in the order asked.
func (s *SQLStore) GetMaterials(ctx context.Context, ids []string) ([]course.MaterialRef, error) {
	out := make([]course.MaterialRef, 0, len(ids))
	for _, id := range ids {
		var m course.MaterialRef
		var mt string
		err := s.db.QueryRowContext(ctx, `SELECT id,title,media_type FROM materials WHERE id=$1`, id).
			Scan(&m.ID, &m.Title, &mt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m.MediaType = course.MediaType(mt)
		out = append(out, m)
	}
	return out, nil
}

func (s *SQLStore) SaveResult(ctx context.Context, userID string, res course.Result, sub course.Submission) (string, error) {
	aj, err := json.Marshal(sub.Answers)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (id,evaluation_id,user_id,score,answers_json,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		id, res.EvaluationID, userID, res.Score, string(aj), now())
	return id, err
}

func affectedOne(res sql.Result, err error, resource, id string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return course.NotFound(resource, id)
	}
	return nil
}
