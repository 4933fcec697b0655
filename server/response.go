package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vellum-studio/vellum/errors"
	"github.com/vellum-studio/vellum/logger"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorw("Failed to encode response", "error", err)
	}
}

// writeError emits the uniform failure envelope. Every error surface of the
// HTTP API goes through here so clients can always read .error.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// writeAPIError maps a domain error onto its HTTP status.
func writeAPIError(w http.ResponseWriter, err error) {
	writeError(w, errors.HTTPStatus(err), err.Error())
}

// readJSON decodes a request body into dst, bounded by the configured body
// limit.
func (s *CanvasServer) readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.EffectiveMaxBodyBytes())
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewInvalidArgumentf("invalid JSON body: %v", err)
	}
	return nil
}

// requireMethod rejects anything but the given methods with a 405. Returns
// false when the request was already answered.
func requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// pathSuffix extracts the trailing segment of a path under a prefix, e.g.
// the element id in /api/elements/:id. Empty when the path is the bare
// prefix.
func pathSuffix(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	return strings.Trim(rest, "/")
}
