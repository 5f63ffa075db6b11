package player_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/evaluation"
	"github.com/mind-engage/mindengage-courseware/internal/player"
	"github.com/mind-engage/mindengage-courseware/internal/position"
	"github.com/mind-engage/mindengage-courseware/internal/render"
)

type fakeSource struct {
	course    course.Course
	courseErr error
	submitErr error
	submitted []course.Submission
}

func (f *fakeSource) GetCourse(context.Context, string) (course.Course, error) {
	return f.course, f.courseErr
}

func (f *fakeSource) GetEvaluation(_ context.Context, moduleID, evalID string) (course.Evaluation, error) {
	return course.Evaluation{ID: evalID, ModuleID: moduleID, Title: "Quiz", Questions: []course.Question{
		{ID: "q1", Text: "2+2?", Answers: []course.Answer{{ID: "a1", Text: "4"}, {ID: "a2", Text: "5"}}},
		{ID: "q2", Text: "3+3?", Answers: []course.Answer{{ID: "b1", Text: "6"}, {ID: "b2", Text: "7"}}},
	}}, nil
}

func (f *fakeSource) SubmitEvaluation(_ context.Context, _, evalID string, sub course.Submission) (course.Result, error) {
	if f.submitErr != nil {
		return course.Result{}, f.submitErr
	}
	f.submitted = append(f.submitted, sub)
	return course.Result{
		EvaluationID:  evalID,
		Score:         50,
		Reinforcement: []course.MaterialRef{{ID: "v1", Title: "Intro", MediaType: course.MediaVideo}},
	}, nil
}

func sampleCourse() course.Course {
	return course.Course{ID: "c1", Title: "Arithmetic", Modules: []course.Module{
		{ID: "m1", OrderIndex: 0, Items: []course.ContentItem{
			{ID: "v1", Kind: course.KindMaterial, MediaType: course.MediaVideo, Content: "https://youtu.be/dQw4w9WgXcQ", OrderIndex: 0},
			{ID: "p1", Kind: course.KindMaterial, MediaType: course.MediaPDF, Content: "https://x.test/a.pdf", OrderIndex: 1},
		}},
		{ID: "m2", OrderIndex: 1},
		{ID: "m3", OrderIndex: 2, Items: []course.ContentItem{
			{ID: "e1", Kind: course.KindEvaluation, OrderIndex: 0},
		}},
	}}
}

func newSession(src *fakeSource, store position.Store) *player.Session {
	return player.NewSession("u1", "c1", src, position.NewResolver(store, nil))
}

func TestOpenResumesSavedPosition(t *testing.T) {
	ctx := context.Background()
	store := position.NewMemoryStore()
	_ = store.Put(ctx, position.Key{LearnerID: "u1", CourseID: "c1"}, "p1")
	s := newSession(&fakeSource{course: sampleCourse()}, store)
	defer s.Close()

	res, err := s.Open(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != position.SourceSaved || res.Entry.Item.ID != "p1" {
		t.Fatalf("res = %+v", res)
	}
	if s.Progress() != 67 || s.Step() != 2 || s.Total() != 3 {
		t.Fatalf("progress=%d step=%d total=%d", s.Progress(), s.Step(), s.Total())
	}
	plan, ok := s.Plan()
	if !ok || plan.View != render.ViewDocument || plan.DocumentURL != "https://x.test/a.pdf" {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestNavigationBoundaries(t *testing.T) {
	ctx := context.Background()
	store := position.NewMemoryStore()
	s := newSession(&fakeSource{course: sampleCourse()}, store)
	defer s.Close()
	if _, err := s.Open(ctx, ""); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := s.Previous(ctx); ok || err != nil {
		t.Fatalf("previous at first: ok=%v err=%v", ok, err)
	}
	for _, want := range []string{"p1", "e1"} {
		e, ok, err := s.Next(ctx)
		if err != nil || !ok || e.Item.ID != want {
			t.Fatalf("next = %+v %v %v, want %s", e, ok, err, want)
		}
	}
	if _, ok, _ := s.Next(ctx); ok {
		t.Fatal("moved past last entry")
	}
	if s.Progress() != 100 {
		t.Fatalf("progress = %d", s.Progress())
	}
	saved, _, _ := store.Get(ctx, position.Key{LearnerID: "u1", CourseID: "c1"})
	if saved != "e1" {
		t.Fatalf("saved = %q", saved)
	}
	if plan, _ := s.Plan(); plan.View != render.ViewAssessment {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestOpenFailureShowsEmptyCourse(t *testing.T) {
	s := newSession(&fakeSource{courseErr: errors.New("timeout")}, nil)
	defer s.Close()
	res, err := s.Open(context.Background(), "")
	if err == nil || res.Found() {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if _, ok := s.Active(); ok {
		t.Fatal("active item after failed load")
	}
	if s.Progress() != 0 || s.Step() != 0 {
		t.Fatal("progress on empty course")
	}
	if _, ok := s.Plan(); ok {
		t.Fatal("plan on empty course")
	}
}

func TestEvaluationFlowAndReset(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{course: sampleCourse()}
	s := newSession(src, nil)
	defer s.Close()

	if _, err := s.Open(ctx, "e1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.BeginEvaluation(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Choose("q1", "a1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitEvaluation(ctx); !course.IsValidation(err) {
		t.Fatalf("incomplete submit: %v", err)
	}
	if err := s.Choose("q2", "b2"); err != nil {
		t.Fatal(err)
	}

	src.submitErr = &course.TransportError{Op: "submit", Status: 503}
	if _, err := s.SubmitEvaluation(ctx); !course.IsTransport(err) {
		t.Fatalf("submit: %v", err)
	}
	if got := s.Evaluation().Answers(); len(got) != 2 {
		t.Fatalf("answers lost: %v", got)
	}

	src.submitErr = nil
	res, err := s.SubmitEvaluation(ctx)
	if err != nil || res.Passed() {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if s.Evaluation().State() != evaluation.Graded {
		t.Fatal("not graded")
	}

	// Follow the reinforcement link, then come back: the attempt is gone.
	if _, err := s.Select(ctx, res.Reinforcement[0].ID); err != nil {
		t.Fatal(err)
	}
	if s.Evaluation() != nil {
		t.Fatal("lifecycle survived navigation to a material")
	}
	if _, err := s.Select(ctx, "e1"); err != nil {
		t.Fatal(err)
	}
	if lc := s.Evaluation(); lc == nil || lc.State() != evaluation.NotStarted {
		t.Fatal("evaluation not reset on revisit")
	}
	if _, err := s.Select(ctx, "missing"); !course.IsNotFound(err) {
		t.Fatalf("select missing: %v", err)
	}
	if e, _ := s.Active(); e.Item.ID != "e1" {
		t.Fatalf("active = %s", e.Item.ID)
	}
}

func TestEvaluationCallsOnMaterial(t *testing.T) {
	s := newSession(&fakeSource{course: sampleCourse()}, nil)
	defer s.Close()
	if _, err := s.Open(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.BeginEvaluation(context.Background()); !course.IsValidation(err) {
		t.Fatalf("begin on video: %v", err)
	}
}

// hookStore runs hook once, inside the first Get.
type hookStore struct {
	position.Store
	hook func()
}

func (h *hookStore) Get(ctx context.Context, key position.Key) (string, bool, error) {
	if hook := h.hook; hook != nil {
		h.hook = nil
		hook()
	}
	return h.Store.Get(ctx, key)
}

func TestSupersededOpenLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	key := position.Key{LearnerID: "u1", CourseID: "c1"}
	mem := position.NewMemoryStore()
	_ = mem.Put(ctx, key, "e1")
	store := &hookStore{Store: mem}
	s := newSession(&fakeSource{course: sampleCourse()}, store)
	defer s.Close()

	// A deep link to v1 lands while the resume to e1 is reading the saved
	// position.
	store.hook = func() {
		if _, err := s.Open(ctx, "v1"); err != nil {
			t.Errorf("inner open: %v", err)
		}
	}
	if _, err := s.Open(ctx, ""); !errors.Is(err, course.ErrStale) {
		t.Fatalf("outer open: %v", err)
	}

	if e, ok := s.Active(); !ok || e.Item.ID != "v1" {
		t.Fatalf("active = %+v", e)
	}
	if saved, _, _ := mem.Get(ctx, key); saved != "v1" {
		t.Fatalf("saved = %q, want v1", saved)
	}
	if s.Evaluation() != nil {
		t.Fatal("stale open installed an evaluation lifecycle")
	}
}

func TestSharedResolverIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	r := position.NewResolver(nil, nil)
	a := player.NewSession("u1", "c1", &fakeSource{course: sampleCourse()}, r)
	b := player.NewSession("u2", "c1", &fakeSource{course: sampleCourse()}, r)
	defer a.Close()
	defer b.Close()

	_, _ = a.Open(ctx, "e1")
	if _, err := a.BeginEvaluation(ctx); err != nil {
		t.Fatal(err)
	}
	_, _ = b.Open(ctx, "v1")
	if a.Evaluation().State() != evaluation.InProgress {
		t.Fatal("another learner's navigation reset this attempt")
	}
}

func TestClosedSession(t *testing.T) {
	s := newSession(&fakeSource{course: sampleCourse()}, nil)
	s.Close()
	if _, err := s.Open(context.Background(), ""); !errors.Is(err, course.ErrClosed) {
		t.Fatalf("open after close: %v", err)
	}
}
