package http

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	authmw "github.com/mind-engage/mindengage-courseware/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courseware/internal/content"
	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/db"
	"github.com/mind-engage/mindengage-courseware/internal/rbac"
	syncx "github.com/mind-engage/mindengage-courseware/internal/sync"
)

type fixture struct {
	t      *testing.T
	router nethttp.Handler
	auth   *authmw.AuthService
	events *syncx.EventRepo
	store  content.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "h.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { dbh.Close() })
	f := &fixture{t: t, auth: authmw.NewAuthService("k"), events: syncx.NewEventRepo(dbh, ""), store: content.NewSQLStore(dbh)}
	f.router = NewRouter(Deps{Store: f.store, Events: f.events, Auth: f.auth})
	return f
}

func (f *fixture) do(role, method, path string, body any, out any) int {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	tok, _ := f.auth.IssueJWT(role+"-user", role)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			f.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return rec.Code
}

// seed creates a course with one module holding a material and an evaluation.
func (f *fixture) seed() (course.Course, course.Module, course.ContentItem, course.ContentItem) {
	f.t.Helper()
	var c course.Course
	var m course.Module
	var mat, ev course.ContentItem
	if code := f.do(rbac.RoleInstructor, "POST", "/courses", map[string]string{"title": "Go"}, &c); code != nethttp.StatusCreated {
		f.t.Fatalf("create course: %d", code)
	}
	if code := f.do(rbac.RoleInstructor, "POST", "/courses/"+c.ID+"/modules", map[string]string{"title": "M"}, &m); code != nethttp.StatusCreated {
		f.t.Fatalf("create module: %d", code)
	}
	if code := f.do(rbac.RoleInstructor, "POST", "/modules/"+m.ID+"/materials",
		map[string]string{"title": "Doc", "mediaType": "pdf", "content": "https://x.test/a.pdf"}, &mat); code != nethttp.StatusCreated {
		f.t.Fatalf("add material: %d", code)
	}
	evBody := map[string]any{"title": "Quiz", "questions": []map[string]any{{
		"id": "q1", "text": "?", "reinforcementIds": []string{mat.ID},
		"answers": []map[string]any{{"id": "a", "text": "yes", "isCorrect": true}, {"id": "b", "text": "no"}},
	}}}
	if code := f.do(rbac.RoleInstructor, "POST", "/modules/"+m.ID+"/evaluations", evBody, &ev); code != nethttp.StatusCreated {
		f.t.Fatalf("add evaluation: %d", code)
	}
	return c, m, mat, ev
}

func TestEvaluationKeyVisibility(t *testing.T) {
	f := newFixture(t)
	_, m, _, ev := f.seed()
	path := "/modules/" + m.ID + "/evaluations/" + ev.ID

	for role, wantKey := range map[string]bool{rbac.RoleLearner: false, rbac.RoleInstructor: true, rbac.RoleAdmin: true} {
		var got course.Evaluation
		if code := f.do(role, "GET", path, nil, &got); code != nethttp.StatusOK {
			t.Fatalf("%s: %d", role, code)
		}
		if got.Questions[0].Answers[0].IsCorrect != wantKey {
			t.Errorf("%s sees key = %v", role, !wantKey)
		}
	}
}

func TestSubmitEvaluation(t *testing.T) {
	f := newFixture(t)
	_, m, mat, ev := f.seed()
	path := "/modules/" + m.ID + "/evaluations/" + ev.ID + "/submit"

	if code := f.do(rbac.RoleLearner, "POST", path, map[string]any{"answers": []any{}}, nil); code != nethttp.StatusBadRequest {
		t.Fatalf("empty submission: %d", code)
	}
	if code := f.do(rbac.RoleInstructor, "POST", path, nil, nil); code != nethttp.StatusForbidden {
		t.Fatalf("instructor submit: %d", code)
	}

	var res course.Result
	body := map[string]any{"answers": []map[string]string{{"questionId": "q1", "chosenAnswerId": "b"}}}
	if code := f.do(rbac.RoleLearner, "POST", path, body, &res); code != nethttp.StatusOK {
		t.Fatalf("submit: %d", code)
	}
	if res.Score != 0 || res.ResultID == "" || res.Feedback == "" || len(res.Reinforcement) != 1 || res.Reinforcement[0].ID != mat.ID {
		t.Fatalf("result = %+v", res)
	}

	// A passing result still carries an empty reinforcement list.
	body = map[string]any{"answers": []map[string]string{{"questionId": "q1", "chosenAnswerId": "a"}}}
	var raw map[string]any
	if code := f.do(rbac.RoleLearner, "POST", path, body, &raw); code != nethttp.StatusOK || raw["score"] != 100.0 {
		t.Fatalf("second submit: %d %v", code, raw)
	}
	if refs, ok := raw["reinforcement"].([]any); !ok || len(refs) != 0 {
		t.Fatalf("reinforcement = %#v, want []", raw["reinforcement"])
	}
}

func TestReorderWritesEvents(t *testing.T) {
	f := newFixture(t)
	c, m, mat, ev := f.seed()

	order := []map[string]string{{"id": ev.ID, "kind": "evaluation"}, {"id": mat.ID, "kind": "material"}}
	if code := f.do(rbac.RoleInstructor, "PUT", "/modules/"+m.ID+"/content/order", order, nil); code != nethttp.StatusOK {
		t.Fatalf("reorder content: %d", code)
	}
	bad := []map[string]string{{"id": ev.ID, "kind": "video"}, {"id": mat.ID}}
	if code := f.do(rbac.RoleInstructor, "PUT", "/modules/"+m.ID+"/content/order", bad, nil); code != nethttp.StatusBadRequest {
		t.Fatalf("bad kind: %d", code)
	}
	if code := f.do(rbac.RoleInstructor, "PUT", "/courses/"+c.ID+"/modules/order", []string{m.ID}, nil); code != nethttp.StatusOK {
		t.Fatalf("reorder modules: %d", code)
	}
	if code := f.do(rbac.RoleLearner, "PUT", "/courses/"+c.ID+"/modules/order", []string{m.ID}, nil); code != nethttp.StatusForbidden {
		t.Fatalf("learner reorder: %d", code)
	}

	var items []course.ContentItem
	f.do(rbac.RoleInstructor, "GET", "/modules/"+m.ID+"/content", nil, &items)
	if len(items) != 2 || items[0].ID != ev.ID || items[0].Kind != course.KindEvaluation {
		t.Fatalf("items = %+v", items)
	}

	evs, _ := f.events.Since(context.Background(), m.ID, 0)
	if len(evs) != 1 || evs[0].Type != syncx.ContentReordered {
		t.Fatalf("module events = %+v", evs)
	}
	evs, _ = f.events.Since(context.Background(), c.ID, 0)
	if len(evs) != 1 || evs[0].Type != syncx.ModulesReordered {
		t.Fatalf("course events = %+v", evs)
	}
}

func TestPositionEndpoints(t *testing.T) {
	f := newFixture(t)
	c, _, mat, _ := f.seed()
	path := "/courses/" + c.ID + "/position"

	if code := f.do(rbac.RoleLearner, "GET", path, nil, nil); code != nethttp.StatusNotFound {
		t.Fatalf("empty position: %d", code)
	}
	if code := f.do(rbac.RoleLearner, "PUT", path, map[string]string{"itemId": mat.ID}, nil); code != nethttp.StatusNoContent {
		t.Fatalf("save: %d", code)
	}
	var got positionReq
	if code := f.do(rbac.RoleLearner, "GET", path, nil, &got); code != nethttp.StatusOK || got.ItemID != mat.ID {
		t.Fatalf("read: %d %+v", code, got)
	}
	if code := f.do(rbac.RoleLearner, "PUT", path, map[string]string{}, nil); code != nethttp.StatusBadRequest {
		t.Fatalf("missing itemId: %d", code)
	}
}

func TestUnauthenticated(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest("GET", "/courses/x", nil))
	if rec.Code != nethttp.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("healthz %d", rec.Code)
	}
}
