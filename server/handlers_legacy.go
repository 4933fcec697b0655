package server

import (
	"net/http"
)

// The legacy surface predates the /api routes and keeps its original plain
// response shapes. Errors still use the uniform envelope.

func (s *CanvasServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.PeerCount(),
	})
}

func (s *CanvasServer) sceneDump() map[string]interface{} {
	return map[string]interface{}{
		"elements": s.store.List(),
		"appState": s.store.AppState(),
		"files":    s.store.Files(),
	}
}

func (s *CanvasServer) handleLegacyCanvas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.sceneDump())

	case http.MethodPost:
		var body InboundScene
		if err := s.readJSON(w, r, &body); err != nil {
			writeAPIError(w, err)
			return
		}
		if _, _, err := s.syncScene(body.Elements, body.AppState, body.Files, nil); err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.sceneDump())

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *CanvasServer) handleLegacyElements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.List())

	case http.MethodPost:
		var raw map[string]interface{}
		if err := s.readJSON(w, r, &raw); err != nil {
			writeAPIError(w, err)
			return
		}
		el, err := s.CreateElement(raw)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, el)

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *CanvasServer) handleLegacyElementByID(w http.ResponseWriter, r *http.Request) {
	id := pathSuffix(r.URL.Path, "/elements")
	if id == "" {
		s.handleLegacyElements(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		el, err := s.store.Get(id)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, el)

	case http.MethodPut:
		var updates map[string]interface{}
		if err := s.readJSON(w, r, &updates); err != nil {
			writeAPIError(w, err)
			return
		}
		el, err := s.UpdateElement(id, updates)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, el)

	case http.MethodDelete:
		if err := s.DeleteElement(id); err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"deleted": true,
			"id":      id,
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *CanvasServer) handleLegacyClear(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	removed := s.ClearCanvas()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"removed": removed,
	})
}

func (s *CanvasServer) handleLegacySnapshot(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	elements := s.store.List()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"elements":  elements,
		"count":     len(elements),
		"timestamp": nowMillis(),
	})
}
