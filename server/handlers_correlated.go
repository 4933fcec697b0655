package server

import (
	"net/http"
)

// Correlated endpoints block on an editor peer round-trip. Their result
// counterparts are called back by the peer and always acknowledge with 200,
// even when the waiter is long gone.

func (s *CanvasServer) handleMermaidConvert(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		MermaidDiagram string                 `json:"mermaidDiagram"`
		Config         map[string]interface{} `json:"config"`
	}
	if err := s.readJSON(w, r, &body); err != nil {
		writeAPIError(w, err)
		return
	}
	if body.MermaidDiagram == "" {
		writeError(w, http.StatusBadRequest, "mermaidDiagram is required")
		return
	}

	elements, err := s.ConvertMermaid(r.Context(), body.MermaidDiagram, body.Config)
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

func (s *CanvasServer) handleMermaidResult(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		RequestID string                   `json:"requestId"`
		Elements  []map[string]interface{} `json:"elements"`
		Error     string                   `json:"error"`
	}
	if err := s.readJSON(w, r, &body); err != nil {
		writeAPIError(w, err)
		return
	}
	if body.RequestID == "" {
		writeError(w, http.StatusBadRequest, "requestId is required")
		return
	}

	s.DeliverMermaidResult(body.RequestID, body.Elements, body.Error)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *CanvasServer) handleExportImage(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		Format     string `json:"format"`
		Background *bool  `json:"background"`
	}
	if err := s.readJSON(w, r, &body); err != nil {
		writeAPIError(w, err)
		return
	}
	if body.Format != "png" && body.Format != "svg" {
		writeError(w, http.StatusBadRequest, "format must be png or svg")
		return
	}
	background := true
	if body.Background != nil {
		background = *body.Background
	}

	payload, err := s.ExportImage(r.Context(), body.Format, background)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"format":  payload["format"],
		"data":    payload["data"],
	})
}

func (s *CanvasServer) handleExportImageResult(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		RequestID string `json:"requestId"`
		Format    string `json:"format"`
		Data      string `json:"data"`
		Error     string `json:"error"`
	}
	if err := s.readJSON(w, r, &body); err != nil {
		writeAPIError(w, err)
		return
	}
	if body.RequestID == "" {
		writeError(w, http.StatusBadRequest, "requestId is required")
		return
	}

	s.DeliverExportResult(body.RequestID, body.Format, body.Data, body.Error)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *CanvasServer) handleViewport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var opts ViewportOptions
	if err := s.readJSON(w, r, &opts); err != nil {
		writeAPIError(w, err)
		return
	}

	payload, err := s.SetViewport(r.Context(), opts)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	resp := map[string]interface{}{"success": true}
	if msg, ok := payload["message"].(string); ok && msg != "" {
		resp["message"] = msg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *CanvasServer) handleViewportResult(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		RequestID string `json:"requestId"`
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	if err := s.readJSON(w, r, &body); err != nil {
		writeAPIError(w, err)
		return
	}
	if body.RequestID == "" {
		writeError(w, http.StatusBadRequest, "requestId is required")
		return
	}

	s.DeliverViewportResult(body.RequestID, body.Success, body.Message, body.Error)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
