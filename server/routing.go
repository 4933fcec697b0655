package server

import "net/http"

// corsMiddleware opens every route to cross-origin callers. The editor runs
// on its own dev-server origin, so this is required, and the listener is
// localhost-only.
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id, Last-Event-Id")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// setupHTTPRoutes registers every HTTP route on the default mux. Called once
// from Start; tests exercise handlers directly instead.
func (s *CanvasServer) setupHTTPRoutes() {
	// Legacy surface, kept verbatim for older clients.
	http.HandleFunc("/health", corsMiddleware(s.handleHealth))
	http.HandleFunc("/canvas", corsMiddleware(s.handleLegacyCanvas))
	http.HandleFunc("/elements", corsMiddleware(s.handleLegacyElements))
	http.HandleFunc("/elements/", corsMiddleware(s.handleLegacyElementByID))
	http.HandleFunc("/clear", corsMiddleware(s.handleLegacyClear))
	http.HandleFunc("/snapshot", corsMiddleware(s.handleLegacySnapshot))

	// Primary surface.
	http.HandleFunc("/api/elements", corsMiddleware(s.handleElements))
	http.HandleFunc("/api/elements/", corsMiddleware(s.handleElementsTree))
	http.HandleFunc("/api/export/image", corsMiddleware(s.handleExportImage))
	http.HandleFunc("/api/export/image/result", corsMiddleware(s.handleExportImageResult))
	http.HandleFunc("/api/viewport", corsMiddleware(s.handleViewport))
	http.HandleFunc("/api/viewport/result", corsMiddleware(s.handleViewportResult))
	http.HandleFunc("/api/snapshots", corsMiddleware(s.handleSnapshots))
	http.HandleFunc("/api/snapshots/", corsMiddleware(s.handleSnapshotByName))
	http.HandleFunc("/api/sync/status", corsMiddleware(s.handleSyncStatus))

	http.HandleFunc("/ws", s.HandleWebSocket)

	if s.mcpHandler != nil {
		http.Handle("/mcp", s.mcpHandler)
	}
}

// handleElementsTree dispatches everything under /api/elements/ by suffix.
// Fixed verbs take priority over the id route so an element can never
// shadow them.
func (s *CanvasServer) handleElementsTree(w http.ResponseWriter, r *http.Request) {
	suffix := pathSuffix(r.URL.Path, "/api/elements")

	switch suffix {
	case "":
		s.handleElements(w, r)
	case "search":
		s.handleElementSearch(w, r)
	case "batch":
		s.handleElementBatch(w, r)
	case "sync":
		s.handleElementSync(w, r)
	case "clear":
		s.handleElementsClear(w, r)
	case "from-mermaid":
		s.handleMermaidConvert(w, r)
	case "from-mermaid/result":
		s.handleMermaidResult(w, r)
	default:
		s.handleElementByID(w, r, suffix)
	}
}
