package http

import (
	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-courseware/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/position"
	rbac "github.com/mind-engage/mindengage-courseware/internal/rbac"
)

// GetCourseHandler returns the whole tree; the player flattens it.
func GetCourseHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		c, err := d.Store.GetCourse(r.Context(), chi.URLParam(r, "courseId"))
		if err != nil {
			fail(w, d.Log, "get course", err)
			return
		}
		writeJSON(w, nethttp.StatusOK, c)
	}
}

// GetEvaluationHandler strips the answer key unless the caller may see it.
func GetEvaluationHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ev, err := d.Store.GetEvaluation(r.Context(), chi.URLParam(r, "moduleId"), chi.URLParam(r, "itemId"))
		if err != nil {
			fail(w, d.Log, "get evaluation", err)
			return
		}
		if !rbac.Can(r.Context(), rbac.PermEvaluationViewKey) {
			ev = ev.WithoutKey()
		}
		writeJSON(w, nethttp.StatusOK, ev)
	}
}

// SubmitEvaluationHandler grades a complete answer set and stores the result.
func SubmitEvaluationHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req submissionReq
		if err := decode(r, &req); err != nil {
			fail(w, d.Log, "submit evaluation", err)
			return
		}
		sub := req.submission()
		ctx := r.Context()
		ev, err := d.Store.GetEvaluation(ctx, chi.URLParam(r, "moduleId"), chi.URLParam(r, "itemId"))
		if err != nil {
			fail(w, d.Log, "submit evaluation", err)
			return
		}
		if missing := unanswered(ev, sub); missing > 0 {
			writeError(w, nethttp.StatusBadRequest, "every question needs an answer")
			return
		}
		rep, err := d.Grader.Grade(ctx, ev, sub)
		if err != nil {
			fail(w, d.Log, "grade evaluation", err)
			return
		}
		refs, err := d.Store.GetMaterials(ctx, rep.Reinforcement)
		if err != nil {
			fail(w, d.Log, "reinforcement materials", err)
			return
		}
		res := course.Result{
			EvaluationID:    ev.ID,
			EvaluationTitle: ev.Title,
			Score:           rep.Score,
			Feedback:        rep.Feedback(),
			Reinforcement:   refs,
		}
		learner := authmw.SubjectFromContext(ctx)
		if res.ResultID, err = d.Store.SaveResult(ctx, learner, res, sub); err != nil {
			fail(w, d.Log, "save result", err)
			return
		}
		d.Log.Info("evaluation graded", "evaluation_id", ev.ID, "user_id", learner, "score", res.Score)
		writeJSON(w, nethttp.StatusOK, res)
	}
}

func unanswered(ev course.Evaluation, sub course.Submission) int {
	got := make(map[string]struct{}, len(sub.Answers))
	for _, a := range sub.Answers {
		got[a.QuestionID] = struct{}{}
	}
	n := 0
	for _, q := range ev.Questions {
		if _, ok := got[q.ID]; !ok {
			n++
		}
	}
	return n
}

func positionKey(r *nethttp.Request) position.Key {
	return position.Key{LearnerID: authmw.SubjectFromContext(r.Context()), CourseID: chi.URLParam(r, "courseId")}
}

func GetPositionHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id, ok, err := d.Positions.Get(r.Context(), positionKey(r))
		if err != nil {
			fail(w, d.Log, "get position", err)
			return
		}
		if !ok {
			writeError(w, nethttp.StatusNotFound, "no saved position")
			return
		}
		writeJSON(w, nethttp.StatusOK, positionReq{ItemID: id})
	}
}

func PutPositionHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req positionReq
		if err := decode(r, &req); err != nil {
			fail(w, d.Log, "save position", err)
			return
		}
		if err := d.Positions.Put(r.Context(), positionKey(r), req.ItemID); err != nil {
			fail(w, d.Log, "save position", err)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}
