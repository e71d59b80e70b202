package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// writeJSON writes v with the given status through go-chi/render.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// methodNotAllowed writes a 405 listing the allowed methods.
func methodNotAllowed(w http.ResponseWriter, r *http.Request, adapter *errors.HTTPErrorAdapter, allowed ...string) {
	allow := strings.Join(allowed, ", ")
	w.Header().Set("Allow", allow)
	err := errors.NewError(errors.CategoryMethod, "Method not allowed").
		WithContext("method", r.Method).
		WithContext("allowed", allow).
		Build()
	adapter.WriteErrorResponse(w, r, err)
}

// splitList parses a comma-separated query value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// intParam parses a non-negative integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.ValidationError("invalid query parameter").
			WithContext("parameter", name).
			WithContext("value", raw).
			Build()
	}
	return n, nil
}
