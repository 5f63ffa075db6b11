package http

import (
	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-courseware/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courseware/internal/content"
	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/grading"
	"github.com/mind-engage/mindengage-courseware/internal/logger"
	"github.com/mind-engage/mindengage-courseware/internal/position"
	rbac "github.com/mind-engage/mindengage-courseware/internal/rbac"
	syncx "github.com/mind-engage/mindengage-courseware/internal/sync"
)

// Deps are the collaborators the handlers use. Events may be nil.
type Deps struct {
	Store     content.Store
	Grader    grading.Grader
	Positions position.Store
	Events    *syncx.EventRepo
	Auth      *authmw.AuthService
	Login     authmw.LoginOptions
	Log       *logger.Logger
}

// Mount registers the course API on r. Global middleware (request id,
// logging, CORS, timeouts) is the caller's business.
func Mount(r chi.Router, d Deps) {
	if d.Grader == nil {
		d.Grader = grading.NewDefaultGrader()
	}
	if d.Positions == nil {
		d.Positions = position.NewMemoryStore()
	}
	d.Log = logger.OrNop(d.Log).With("service", "CoursewareAPI")

	r.Get("/healthz", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Login))

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.PermCourseCreate)).Post("/courses", CreateCourseHandler(d))
		pr.Route("/courses/{courseId}", func(cr chi.Router) {
			cr.With(rbac.Require(rbac.PermCourseView)).Get("/", GetCourseHandler(d))

			cr.With(rbac.Require(rbac.PermHierarchyView)).Get("/modules", ListModulesHandler(d))
			cr.With(rbac.Require(rbac.PermModuleWrite)).Post("/modules", CreateModuleHandler(d))
			cr.With(rbac.Require(rbac.PermModuleWrite)).Put("/modules/order", ReorderModulesHandler(d))
			cr.With(rbac.Require(rbac.PermModuleWrite)).Put("/modules/{moduleId}", RenameModuleHandler(d))
			cr.With(rbac.Require(rbac.PermModuleWrite)).Delete("/modules/{moduleId}", DeleteModuleHandler(d))

			cr.With(rbac.Require(rbac.PermPositionRead)).Get("/position", GetPositionHandler(d))
			cr.With(rbac.Require(rbac.PermPositionWrite)).Put("/position", PutPositionHandler(d))
		})

		pr.Route("/modules/{moduleId}", func(mr chi.Router) {
			mr.With(rbac.Require(rbac.PermHierarchyView)).Get("/content", ListContentHandler(d))
			mr.With(rbac.Require(rbac.PermContentWrite)).Put("/content/order", ReorderContentHandler(d))

			mr.With(rbac.Require(rbac.PermContentWrite)).Post("/materials", AddMaterialHandler(d))
			mr.With(rbac.Require(rbac.PermContentWrite)).Put("/materials/{itemId}", RenameItemHandler(d, course.KindMaterial))
			mr.With(rbac.Require(rbac.PermContentWrite)).Delete("/materials/{itemId}", DeleteItemHandler(d, course.KindMaterial))

			mr.With(rbac.Require(rbac.PermContentWrite)).Post("/evaluations", AddEvaluationHandler(d))
			mr.With(rbac.RequireAny(rbac.PermEvaluationView, rbac.PermEvaluationViewKey)).Get("/evaluations/{itemId}", GetEvaluationHandler(d))
			mr.With(rbac.Require(rbac.PermContentWrite)).Put("/evaluations/{itemId}", RenameItemHandler(d, course.KindEvaluation))
			mr.With(rbac.Require(rbac.PermContentWrite)).Delete("/evaluations/{itemId}", DeleteItemHandler(d, course.KindEvaluation))
			mr.With(rbac.Require(rbac.PermEvaluationSubmit)).Post("/evaluations/{itemId}/submit", SubmitEvaluationHandler(d))
		})
	})
}

// NewRouter is Mount on a fresh chi router with request logging.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogger(d.Log))
	Mount(r, d)
	return r
}
