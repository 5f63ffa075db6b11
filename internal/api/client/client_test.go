package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-courseware/internal/api/client"
	api "github.com/mind-engage/mindengage-courseware/internal/api/http"
	authmw "github.com/mind-engage/mindengage-courseware/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courseware/internal/content"
	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/db"
	"github.com/mind-engage/mindengage-courseware/internal/evaluation"
	"github.com/mind-engage/mindengage-courseware/internal/hierarchy"
	"github.com/mind-engage/mindengage-courseware/internal/player"
	"github.com/mind-engage/mindengage-courseware/internal/position"
	"github.com/mind-engage/mindengage-courseware/internal/render"
	syncx "github.com/mind-engage/mindengage-courseware/internal/sync"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	srv := httptest.NewServer(api.NewRouter(api.Deps{
		Store:     content.NewSQLStore(dbh),
		Positions: position.NewSQLStore(dbh),
		Events:    syncx.NewEventRepo(dbh, ""),
		Auth:      authmw.NewAuthService("test-secret"),
		Login:     authmw.LoginOptions{EnableLocalAuth: true},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func loginAs(t *testing.T, srv *httptest.Server, user, role string) *client.Client {
	t.Helper()
	c := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	if _, err := c.Login(context.Background(), user, user, role); err != nil {
		t.Fatalf("login %s: %v", user, err)
	}
	return c
}

func TestAuthoringRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	ins := loginAs(t, srv, "ines", "instructor")

	c, err := ins.CreateCourse(ctx, "Go basics")
	if err != nil {
		t.Fatal(err)
	}
	h := hierarchy.New(c.ID, ins)
	if err := h.Load(ctx); err != nil {
		t.Fatal(err)
	}
	first, err := h.CreateModule(ctx, "First")
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.CreateModule(ctx, "Second")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.AddMaterial(ctx, first.ID, course.ContentItem{Title: "Notes", MediaType: "text", Content: "hello"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.AddEvaluation(ctx, first.ID, course.Evaluation{Title: "Check", Questions: []course.Question{{
		Text:    "Is Go compiled?",
		Answers: []course.Answer{{Text: "yes", IsCorrect: true}, {Text: "no"}},
	}}}); err != nil {
		t.Fatal(err)
	}

	if err := h.MoveModule(ctx, 0, 1); err != nil {
		t.Fatal(err)
	}
	if err := h.MoveItem(ctx, first.ID, 1, 0); err != nil {
		t.Fatal(err)
	}

	fresh := hierarchy.New(c.ID, ins)
	if err := fresh.Load(ctx); err != nil {
		t.Fatal(err)
	}
	mods := fresh.Modules()
	if len(mods) != 2 || mods[0].ID != second.ID || mods[1].ID != first.ID {
		t.Fatalf("modules after reload: %+v", mods)
	}
	if mods[0].OrderIndex != 0 || mods[1].OrderIndex != 1 {
		t.Fatalf("indices %d %d", mods[0].OrderIndex, mods[1].OrderIndex)
	}
	items := mods[1].Items
	if len(items) != 2 || items[0].Kind != course.KindEvaluation || items[1].Title != "Notes" {
		t.Fatalf("items after reload: %+v", items)
	}

	if err := fresh.RenameItem(ctx, first.ID, items[0].ID, "Quiz"); err != nil {
		t.Fatal(err)
	}
	if err := fresh.DeleteItem(ctx, first.ID, items[1].ID); err != nil {
		t.Fatal(err)
	}
	if err := fresh.DeleteModule(ctx, second.ID); err != nil {
		t.Fatal(err)
	}
	if err := h.Load(ctx); err != nil {
		t.Fatal(err)
	}
	mods = h.Modules()
	if len(mods) != 1 || len(mods[0].Items) != 1 || mods[0].Items[0].Title != "Quiz" || mods[0].OrderIndex != 0 {
		t.Fatalf("after edits: %+v", mods)
	}
}

func TestErrorMapping(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	ins := loginAs(t, srv, "ines", "instructor")
	c, _ := ins.CreateCourse(ctx, "Go")
	m, _ := ins.CreateModule(ctx, c.ID, "M")

	if err := ins.ReorderModules(ctx, c.ID, []string{m.ID, "ghost"}); !course.IsNotFound(err) {
		t.Fatalf("unknown id: %v", err)
	}
	if err := ins.ReorderModules(ctx, c.ID, []string{}); !course.IsValidation(err) {
		t.Fatalf("missing id: %v", err)
	}
	if _, err := ins.CreateModule(ctx, c.ID, ""); !course.IsValidation(err) {
		t.Fatalf("blank title: %v", err)
	}
	if _, err := ins.ListModules(ctx, "ghost"); !course.IsNotFound(err) {
		t.Fatalf("ghost course: %v", err)
	}

	learner := loginAs(t, srv, "ana", "learner")
	if _, err := learner.CreateModule(ctx, c.ID, "x"); !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("learner write: %v", err)
	}

	srv.Close()
	if _, err := ins.ListModules(ctx, c.ID); !course.IsTransport(err) {
		t.Fatalf("server down: %v", err)
	}
}

func TestServerErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := client.New(srv.URL)
	err := c.ReorderModules(context.Background(), "c1", []string{"a"})
	var te *course.TransportError
	if !errors.As(err, &te) || te.Status != http.StatusServiceUnavailable {
		t.Fatalf("err = %v", err)
	}
}

func TestOptionsApplyInAnyOrder(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithToken("tok"), client.WithTimeout(time.Second), client.WithHTTPClient(srv.Client()))
	if _, err := c.ListModules(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}

func TestLearnerPlaythrough(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	ins := loginAs(t, srv, "ines", "instructor")
	c, _ := ins.CreateCourse(ctx, "Go")
	m, _ := ins.CreateModule(ctx, c.ID, "M")
	vid, err := ins.AddMaterial(ctx, m.ID, course.ContentItem{Title: "Clip", MediaType: "VIDEO", Content: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	if err != nil {
		t.Fatal(err)
	}
	ev, err := ins.AddEvaluation(ctx, m.ID, course.Evaluation{Title: "Check", Questions: []course.Question{
		{ID: "q1", Text: "1+1", ReinforcementIDs: []string{vid.ID}, Answers: []course.Answer{{ID: "a", Text: "2", IsCorrect: true}, {ID: "b", Text: "3"}}},
		{ID: "q2", Text: "2+2", Answers: []course.Answer{{ID: "c", Text: "4", IsCorrect: true}, {ID: "d", Text: "5"}}},
	}})
	if err != nil {
		t.Fatal(err)
	}

	withKey, _ := ins.GetEvaluation(ctx, m.ID, ev.ID)
	if !withKey.Questions[0].Answers[0].IsCorrect {
		t.Fatal("instructor should see the key")
	}

	learner := loginAs(t, srv, "ana", "learner")
	s := player.NewSession("ana", c.ID, learner, position.NewResolver(learner.Positions(), nil))
	defer s.Close()

	res, err := s.Open(ctx, "")
	if err != nil || res.Source != position.SourceFirst || res.Entry.Item.ID != vid.ID {
		t.Fatalf("open: %+v %v", res, err)
	}
	if plan, _ := s.Plan(); plan.View != render.ViewVideo || plan.Video == nil || plan.Video.ID != "dQw4w9WgXcQ" {
		t.Fatalf("plan = %+v", plan)
	}
	if _, ok, err := s.Next(ctx); !ok || err != nil {
		t.Fatalf("next: %v %v", ok, err)
	}
	qs, err := s.BeginEvaluation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if qs.Questions[0].Answers[0].IsCorrect {
		t.Fatal("answer key leaked to learner")
	}
	_ = s.Choose("q1", "b")
	_ = s.Choose("q2", "c")
	result, err := s.SubmitEvaluation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Score != 50 || result.Passed() || len(result.Reinforcement) != 1 || result.Reinforcement[0].ID != vid.ID {
		t.Fatalf("result = %+v", result)
	}
	if s.Evaluation().State() != evaluation.Graded {
		t.Fatal("not graded")
	}

	// A new session resumes at the evaluation, from the server-side position.
	again := player.NewSession("ana", c.ID, learner, position.NewResolver(learner.Positions(), nil))
	defer again.Close()
	res, err = again.Open(ctx, "")
	if err != nil || res.Source != position.SourceSaved || res.Entry.Item.ID != ev.ID {
		t.Fatalf("resume: %+v %v", res, err)
	}
	res, _ = again.Open(ctx, result.Reinforcement[0].ID)
	if res.Source != position.SourceRequested {
		t.Fatalf("deep link: %+v", res)
	}
}
