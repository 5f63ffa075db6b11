package http

import (
	"context"
	"encoding/json"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-courseware/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courseware/internal/course"
	syncx "github.com/mind-engage/mindengage-courseware/internal/sync"
)

// Handlers only; routes live in router.go.

func CreateCourseHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req titleReq
		if err := decode(r, &req); err != nil {
			fail(w, d.Log, "create course", err)
			return
		}
		sub := authmw.SubjectFromContext(r.Context())
		c, err := d.Store.CreateCourse(r.Context(), req.Title, sub)
		if err != nil {
			fail(w, d.Log, "create course", err)
			return
		}
		writeJSON(w, nethttp.StatusCreated, c)
	}
}

func ListModulesHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		mods, err := d.Store.ListModules(r.Context(), chi.URLParam(r, "courseId"))
		if err != nil {
			fail(w, d.Log, "list modules", err)
			return
		}
		writeJSON(w, nethttp.StatusOK, mods)
	}
}

func CreateModuleHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req titleReq
		if err := decode(r, &req); err != nil {
			fail(w, d.Log, "create module", err)
			return
		}
		m, err := d.Store.CreateModule(r.Context(), chi.URLParam(r, "courseId"), req.Title)
		if err != nil {
			fail(w, d.Log, "create module", err)
			return
		}
		writeJSON(w, nethttp.StatusCreated, m)
	}
}

func RenameModuleHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req titleReq
		if err := decode(r, &req); err != nil {
			fail(w, d.Log, "rename module", err)
			return
		}
		m, err := d.Store.RenameModule(r.Context(), chi.URLParam(r, "courseId"), chi.URLParam(r, "moduleId"), req.Title)
		if err != nil {
			fail(w, d.Log, "rename module", err)
			return
		}
		writeJSON(w, nethttp.StatusOK, m)
	}
}

func DeleteModuleHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, moduleID := chi.URLParam(r, "courseId"), chi.URLParam(r, "moduleId")
		if err := d.Store.DeleteModule(r.Context(), courseID, moduleID); err != nil {
			fail(w, d.Log, "delete module", err)
			return
		}
		record(r.Context(), d, syncx.ModuleDeleted, courseID, map[string]string{"moduleId": moduleID})
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

// ReorderModulesHandler takes the full ordered id list.
func ReorderModulesHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var ids []string
		if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
			writeError(w, nethttp.StatusBadRequest, "body must be an array of module ids")
			return
		}
		courseID := chi.URLParam(r, "courseId")
		if err := d.Store.ReorderModules(r.Context(), courseID, ids); err != nil {
			fail(w, d.Log, "reorder modules", err)
			return
		}
		record(r.Context(), d, syncx.ModulesReordered, courseID, ids)
		w.WriteHeader(nethttp.StatusOK)
	}
}

func ListContentHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		items, err := d.Store.ListContent(r.Context(), chi.URLParam(r, "moduleId"))
		if err != nil {
			fail(w, d.Log, "list content", err)
			return
		}
		writeJSON(w, nethttp.StatusOK, items)
	}
}

// ReorderContentHandler takes the full kind-tagged order of a module.
func ReorderContentHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req []orderEntryReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, nethttp.StatusBadRequest, "body must be an array of {id, kind}")
			return
		}
		entries := make([]course.OrderEntry, 0, len(req))
		for _, e := range req {
			if err := check(e); err != nil {
				fail(w, d.Log, "reorder content", err)
				return
			}
			entries = append(entries, course.OrderEntry{ID: e.ID, Kind: course.Kind(e.Kind)})
		}
		moduleID := chi.URLParam(r, "moduleId")
		if err := d.Store.ReorderContent(r.Context(), moduleID, entries); err != nil {
			fail(w, d.Log, "reorder content", err)
			return
		}
		record(r.Context(), d, syncx.ContentReordered, moduleID, entries)
		w.WriteHeader(nethttp.StatusOK)
	}
}

func AddMaterialHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req materialReq
		if err := decode(r, &req); err != nil {
			fail(w, d.Log, "add material", err)
			return
		}
		it, err := d.Store.AddMaterial(r.Context(), chi.URLParam(r, "moduleId"), req.item())
		if err != nil {
			fail(w, d.Log, "add material", err)
			return
		}
		writeJSON(w, nethttp.StatusCreated, it)
	}
}

func AddEvaluationHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req evaluationReq
		if err := decode(r, &req); err != nil {
			fail(w, d.Log, "add evaluation", err)
			return
		}
		it, err := d.Store.AddEvaluation(r.Context(), chi.URLParam(r, "moduleId"), req.evaluation())
		if err != nil {
			fail(w, d.Log, "add evaluation", err)
			return
		}
		writeJSON(w, nethttp.StatusCreated, it)
	}
}

func RenameItemHandler(d Deps, kind course.Kind) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req titleReq
		if err := decode(r, &req); err != nil {
			fail(w, d.Log, "rename "+string(kind), err)
			return
		}
		ref := course.OrderEntry{ID: chi.URLParam(r, "itemId"), Kind: kind}
		it, err := d.Store.RenameItem(r.Context(), chi.URLParam(r, "moduleId"), ref, req.Title)
		if err != nil {
			fail(w, d.Log, "rename "+string(kind), err)
			return
		}
		writeJSON(w, nethttp.StatusOK, it)
	}
}

func DeleteItemHandler(d Deps, kind course.Kind) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		moduleID := chi.URLParam(r, "moduleId")
		ref := course.OrderEntry{ID: chi.URLParam(r, "itemId"), Kind: kind}
		if err := d.Store.DeleteItem(r.Context(), moduleID, ref); err != nil {
			fail(w, d.Log, "delete "+string(kind), err)
			return
		}
		record(r.Context(), d, syncx.ItemDeleted, moduleID, ref)
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

// record appends to the event log. The mutation already committed, so a
// failure here is logged, not returned.
func record(ctx context.Context, d Deps, typ, key string, data any) {
	if d.Events == nil {
		return
	}
	if err := d.Events.Record(ctx, typ, key, data); err != nil {
		d.Log.Warn("append event", "type", typ, "key", key, "error", err)
	}
}
