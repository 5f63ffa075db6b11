package content_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-courseware/internal/content"
	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/db"
)

func newStore(t *testing.T) *content.SQLStore {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "content.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return content.NewSQLStore(dbh)
}

func mustModule(t *testing.T, s *content.SQLStore, courseID, title string) course.Module {
	t.Helper()
	m, err := s.CreateModule(context.Background(), courseID, title)
	if err != nil {
		t.Fatalf("create module %s: %v", title, err)
	}
	return m
}

func quiz() course.Evaluation {
	return course.Evaluation{Title: "Quiz", Questions: []course.Question{{
		Text:    "2+2?",
		Answers: []course.Answer{{Text: "4", IsCorrect: true}, {Text: "5"}},
	}}}
}

func TestModulesLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c, err := s.CreateCourse(ctx, "Go", "instructor1")
	if err != nil {
		t.Fatal(err)
	}
	a := mustModule(t, s, c.ID, "A")
	b := mustModule(t, s, c.ID, "B")
	d := mustModule(t, s, c.ID, "C")
	if a.OrderIndex != 0 || d.OrderIndex != 2 {
		t.Fatalf("indices %d %d", a.OrderIndex, d.OrderIndex)
	}

	if err := s.ReorderModules(ctx, c.ID, []string{d.ID, a.ID, b.ID}); err != nil {
		t.Fatal(err)
	}
	mods, _ := s.ListModules(ctx, c.ID)
	if mods[0].ID != d.ID || mods[1].ID != a.ID || mods[2].OrderIndex != 2 {
		t.Fatalf("after reorder: %+v", mods)
	}
	if err := s.ReorderModules(ctx, c.ID, []string{d.ID, a.ID}); !course.IsValidation(err) {
		t.Fatalf("partial order: %v", err)
	}
	if err := s.ReorderModules(ctx, c.ID, []string{d.ID, a.ID, "ghost"}); !course.IsNotFound(err) {
		t.Fatalf("unknown id: %v", err)
	}

	if _, err := s.RenameModule(ctx, c.ID, a.ID, "A2"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RenameModule(ctx, c.ID, "ghost", "x"); !course.IsNotFound(err) {
		t.Fatalf("rename ghost: %v", err)
	}

	if _, err := s.AddMaterial(ctx, a.ID, course.ContentItem{Title: "Notes", MediaType: "text", Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEvaluation(ctx, a.ID, quiz()); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteModule(ctx, c.ID, a.ID); err != nil {
		t.Fatal(err)
	}
	mods, _ = s.ListModules(ctx, c.ID)
	if len(mods) != 2 || mods[0].ID != d.ID || mods[1].ID != b.ID || mods[1].OrderIndex != 1 {
		t.Fatalf("after delete: %+v", mods)
	}
	if _, err := s.ListContent(ctx, a.ID); !course.IsNotFound(err) {
		t.Fatalf("content of deleted module: %v", err)
	}
	if refs, _ := s.GetMaterials(ctx, []string{"x"}); len(refs) != 0 {
		t.Fatal("phantom materials")
	}
}

func TestMixedContentOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c, _ := s.CreateCourse(ctx, "Go", "")
	m := mustModule(t, s, c.ID, "M")

	vid, err := s.AddMaterial(ctx, m.ID, course.ContentItem{Title: "Clip", MediaType: "VIDEO", Content: "https://youtu.be/dQw4w9WgXcQ"})
	if err != nil {
		t.Fatal(err)
	}
	ev, err := s.AddEvaluation(ctx, m.ID, quiz())
	if err != nil {
		t.Fatal(err)
	}
	pdf, err := s.AddMaterial(ctx, m.ID, course.ContentItem{Title: "Doc", MediaType: "PDF", Content: "https://x.test/d.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if vid.OrderIndex != 0 || ev.OrderIndex != 1 || pdf.OrderIndex != 2 {
		t.Fatalf("indices %d %d %d", vid.OrderIndex, ev.OrderIndex, pdf.OrderIndex)
	}

	order := []course.OrderEntry{
		{ID: ev.ID, Kind: course.KindEvaluation},
		{ID: pdf.ID, Kind: course.KindMaterial},
		{ID: vid.ID, Kind: course.KindMaterial},
	}
	if err := s.ReorderContent(ctx, m.ID, order); err != nil {
		t.Fatal(err)
	}
	items, _ := s.ListContent(ctx, m.ID)
	for i, e := range order {
		if items[i].ID != e.ID || items[i].Kind != e.Kind || items[i].OrderIndex != i {
			t.Fatalf("item %d = %+v", i, items[i])
		}
	}
	order[0].Kind = course.KindMaterial
	if err := s.ReorderContent(ctx, m.ID, order); !course.IsValidation(err) {
		t.Fatalf("wrong kind: %v", err)
	}

	if _, err := s.RenameItem(ctx, m.ID, course.OrderEntry{ID: ev.ID, Kind: course.KindEvaluation}, "Final"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RenameItem(ctx, m.ID, course.OrderEntry{ID: ev.ID, Kind: course.KindMaterial}, "x"); !course.IsNotFound(err) {
		t.Fatalf("rename routed to wrong table: %v", err)
	}
	if err := s.DeleteItem(ctx, m.ID, course.OrderEntry{ID: pdf.ID, Kind: course.KindMaterial}); err != nil {
		t.Fatal(err)
	}
	items, _ = s.ListContent(ctx, m.ID)
	if len(items) != 2 || items[0].Title != "Final" || items[1].ID != vid.ID || items[1].OrderIndex != 1 {
		t.Fatalf("after delete: %+v", items)
	}

	full, err := s.GetCourse(ctx, c.ID)
	if err != nil || len(full.Modules) != 1 || len(full.Modules[0].Items) != 2 {
		t.Fatalf("course = %+v, %v", full, err)
	}
}

func TestEvaluationAndResults(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c, _ := s.CreateCourse(ctx, "Go", "")
	m := mustModule(t, s, c.ID, "M")
	item, err := s.AddEvaluation(ctx, m.ID, quiz())
	if err != nil {
		t.Fatal(err)
	}
	ev, err := s.GetEvaluation(ctx, m.ID, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	q := ev.Questions[0]
	if q.ID == "" || q.Answers[0].ID == "" || !q.Answers[0].IsCorrect {
		t.Fatalf("question = %+v", q)
	}
	if _, err := s.GetEvaluation(ctx, "other", item.ID); !course.IsNotFound(err) {
		t.Fatalf("wrong module: %v", err)
	}
	id, err := s.SaveResult(ctx, "u1", course.Result{EvaluationID: ev.ID, Score: 100},
		course.Submission{Answers: []course.AnswerChoice{{QuestionID: q.ID, ChosenAnswerID: q.Answers[0].ID}}})
	if err != nil || id == "" {
		t.Fatalf("save result: %q %v", id, err)
	}
}

func TestValidationBeforeWrite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.CreateCourse(ctx, " ", ""); !course.IsValidation(err) {
		t.Fatalf("blank course: %v", err)
	}
	if _, err := s.CreateModule(ctx, "ghost", "M"); !course.IsNotFound(err) {
		t.Fatalf("module in ghost course: %v", err)
	}
	if _, err := s.AddMaterial(ctx, "ghost", course.ContentItem{Title: "x", MediaType: "AUDIO"}); !course.IsValidation(err) {
		t.Fatalf("unknown media type: %v", err)
	}
}
