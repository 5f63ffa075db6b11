package http

import (
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w nethttp.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps the error taxonomy to a status code. Unclassified errors are
// logged and reported as 500 without detail.
func fail(w nethttp.ResponseWriter, log *logger.Logger, op string, err error) {
	switch {
	case course.IsValidation(err):
		writeError(w, nethttp.StatusBadRequest, err.Error())
	case course.IsNotFound(err):
		writeError(w, nethttp.StatusNotFound, err.Error())
	default:
		log.Error(op, "error", err)
		writeError(w, nethttp.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into dst and runs struct validation on it.
func decode(r *nethttp.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return course.Invalid("body", "bad json")
	}
	return check(dst)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return course.Invalid("body", err.Error())
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		p := fe.Tag()
		if fe.Param() != "" {
			p += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), p))
	}
	return course.Invalid("body", strings.Join(parts, "; "))
}
