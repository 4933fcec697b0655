package server

import (
	"net/http"
	"time"

	"github.com/vellum-studio/vellum/canvas"
)

func (s *CanvasServer) handleElements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		elements := s.store.List()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"elements": elements,
			"count":    len(elements),
		})

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
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"element": el,
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *CanvasServer) handleElementSearch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	matches := s.store.Search(canvas.ParseQuery(r.URL.Query()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"elements": matches,
		"count":    len(matches),
	})
}

func (s *CanvasServer) handleElementBatch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		Elements []map[string]interface{} `json:"elements"`
	}
	if err := s.readJSON(w, r, &body); err != nil {
		writeAPIError(w, err)
		return
	}
	elements, err := s.CreateElements(body.Elements)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"elements": elements,
		"count":    len(elements),
	})
}

func (s *CanvasServer) handleElementSync(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var body InboundScene
	if err := s.readJSON(w, r, &body); err != nil {
		writeAPIError(w, err)
		return
	}
	before, after, err := s.syncScene(body.Elements, body.AppState, body.Files, nil)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"beforeCount": before,
		"afterCount":  after,
		"syncedAt":    time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *CanvasServer) handleElementsClear(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	removed := s.ClearCanvas()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"removed": removed,
	})
}

func (s *CanvasServer) handleElementByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		el, err := s.store.Get(id)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"element": el,
		})

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
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"element": el,
		})

	case http.MethodDelete:
		if err := s.DeleteElement(id); err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"id":      id,
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
