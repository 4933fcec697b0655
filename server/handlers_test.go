package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func doJSON(t *testing.T, handler http.HandlerFunc, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not a JSON object: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()
	rec, resp := doJSON(t, srv.handleHealth, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v, want ok", resp["status"])
	}
	if resp["clients"] != float64(0) {
		t.Errorf("clients = %v, want 0", resp["clients"])
	}
}

func TestElementLifecycleOverREST(t *testing.T) {
	srv := newTestServer()

	rec, resp := doJSON(t, srv.handleElements, http.MethodPost, "/api/elements",
		map[string]interface{}{"type": "rectangle", "x": 10, "y": 20})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	element, ok := resp["element"].(map[string]interface{})
	if !ok {
		t.Fatal("create response has no element")
	}
	id, _ := element["id"].(string)
	if len(id) != 20 {
		t.Fatalf("element id %q, want 20 hex chars", id)
	}

	rec, resp = doJSON(t, srv.handleElementsTree, http.MethodGet, "/api/elements/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec, resp = doJSON(t, srv.handleElementsTree, http.MethodPut, "/api/elements/"+id,
		map[string]interface{}{"x": 99})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	element = resp["element"].(map[string]interface{})
	if element["x"] != float64(99) {
		t.Errorf("updated x = %v, want 99", element["x"])
	}
	if element["version"] != float64(2) {
		t.Errorf("version after patch = %v, want 2", element["version"])
	}

	rec, _ = doJSON(t, srv.handleElementsTree, http.MethodDelete, "/api/elements/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec, resp = doJSON(t, srv.handleElementsTree, http.MethodGet, "/api/elements/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
	if resp["success"] != false {
		t.Errorf("error envelope success = %v, want false", resp["success"])
	}
	if resp["error"] == nil {
		t.Error("error envelope has no error message")
	}
}

// Two rectangles and an arrow referencing them by id arrive in one batch.
// The arrow must attach to the facing edges with an 8px gap and lose its
// raw endpoint references.
func TestBatchArrowBinding(t *testing.T) {
	srv := newTestServer()

	body := map[string]interface{}{
		"elements": []interface{}{
			map[string]interface{}{
				"id": "a", "type": "rectangle",
				"x": 0, "y": 0, "width": 100, "height": 50,
			},
			map[string]interface{}{
				"id": "b", "type": "rectangle",
				"x": 200, "y": 0, "width": 100, "height": 50,
			},
			map[string]interface{}{
				"type":  "arrow",
				"start": map[string]interface{}{"id": "a"},
				"end":   map[string]interface{}{"id": "b"},
			},
		},
	}
	rec, resp := doJSON(t, srv.handleElementBatch, http.MethodPost, "/api/elements/batch", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("batch status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resp["count"] != float64(3) {
		t.Fatalf("count = %v, want 3", resp["count"])
	}

	elements := resp["elements"].([]interface{})
	arrow := elements[2].(map[string]interface{})

	if arrow["x"] != float64(108) {
		t.Errorf("arrow x = %v, want 108", arrow["x"])
	}
	if arrow["y"] != float64(25) {
		t.Errorf("arrow y = %v, want 25", arrow["y"])
	}
	points := arrow["points"].([]interface{})
	if len(points) != 2 {
		t.Fatalf("points = %v, want 2 entries", points)
	}
	end := points[1].([]interface{})
	if end[0] != float64(184) || end[1] != float64(0) {
		t.Errorf("end point = %v, want [184 0]", end)
	}

	binding := arrow["startBinding"].(map[string]interface{})
	if binding["elementId"] != "a" {
		t.Errorf("startBinding.elementId = %v, want a", binding["elementId"])
	}
	if binding["gap"] != float64(8) {
		t.Errorf("startBinding.gap = %v, want 8", binding["gap"])
	}
	if binding["focus"] != float64(0) {
		t.Errorf("startBinding.focus = %v, want 0", binding["focus"])
	}

	if _, present := arrow["start"]; present {
		t.Error("raw start reference survived binding resolution")
	}
	if _, present := arrow["end"]; present {
		t.Error("raw end reference survived binding resolution")
	}
}

// A composite filter returns exactly the red 200-wide rectangle, not the
// blue one and not the narrow red one.
func TestSearchEndpointCompositeFilter(t *testing.T) {
	srv := newTestServer()

	seed := []map[string]interface{}{
		{"type": "rectangle", "strokeColor": "#ff0000", "width": 200},
		{"type": "rectangle", "strokeColor": "#0000ff", "width": 200},
		{"type": "rectangle", "strokeColor": "#ff0000", "width": 50},
		{"type": "ellipse", "strokeColor": "#ff0000", "width": 200},
	}
	for _, raw := range seed {
		if _, err := srv.CreateElement(raw); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	rec, resp := doJSON(t, srv.handleElementSearch, http.MethodGet,
		"/api/elements/search?type=rectangle&strokeColor=%23ff0000&minWidth=100", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	if resp["count"] != float64(1) {
		t.Fatalf("count = %v, want 1", resp["count"])
	}
	match := resp["elements"].([]interface{})[0].(map[string]interface{})
	if match["strokeColor"] != "#ff0000" || match["width"] != float64(200) {
		t.Errorf("wrong element matched: %v", match)
	}
}

func TestSearchEndpointEmptyResult(t *testing.T) {
	srv := newTestServer()
	rec, resp := doJSON(t, srv.handleElementSearch, http.MethodGet,
		"/api/elements/search?type=frame", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for empty result", rec.Code)
	}
	if resp["count"] != float64(0) {
		t.Errorf("count = %v, want 0", resp["count"])
	}
	if elements, ok := resp["elements"].([]interface{}); !ok || elements == nil {
		t.Errorf("elements = %v, want empty array not null", resp["elements"])
	}
}

// A PUT carrying only x must not clobber angle, and the version counter
// advances.
func TestUpdatePreservesUntouchedFields(t *testing.T) {
	srv := newTestServer()

	el, err := srv.CreateElement(map[string]interface{}{
		"type": "rectangle", "angle": 0.5, "strokeColor": "#00ff00",
	})
	if err != nil {
		t.Fatalf("creating: %v", err)
	}

	rec, resp := doJSON(t, srv.handleElementsTree, http.MethodPut, "/api/elements/"+el.ID,
		map[string]interface{}{"x": 50})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}

	updated := resp["element"].(map[string]interface{})
	if updated["angle"] != float64(0.5) {
		t.Errorf("angle = %v, want 0.5 preserved across patch", updated["angle"])
	}
	if updated["strokeColor"] != "#00ff00" {
		t.Errorf("strokeColor = %v, want #00ff00 preserved", updated["strokeColor"])
	}
	if updated["x"] != float64(50) {
		t.Errorf("x = %v, want 50", updated["x"])
	}
	if updated["version"] != float64(2) {
		t.Errorf("version = %v, want 2", updated["version"])
	}
}

func TestSyncEndpointReplacesScene(t *testing.T) {
	srv := newTestServer()
	srv.CreateElement(map[string]interface{}{"type": "rectangle"})

	body := map[string]interface{}{
		"elements": []interface{}{
			map[string]interface{}{"type": "ellipse"},
			map[string]interface{}{"type": "diamond"},
			map[string]interface{}{"type": "text", "text": "hi"},
		},
	}
	rec, resp := doJSON(t, srv.handleElementSync, http.MethodPost, "/api/elements/sync", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resp["beforeCount"] != float64(1) {
		t.Errorf("beforeCount = %v, want 1", resp["beforeCount"])
	}
	if resp["afterCount"] != float64(3) {
		t.Errorf("afterCount = %v, want 3", resp["afterCount"])
	}
	if resp["syncedAt"] == nil {
		t.Error("syncedAt missing")
	}
	if srv.Store().Count() != 3 {
		t.Errorf("store count = %d, want 3", srv.Store().Count())
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	srv := newTestServer()
	srv.CreateElement(map[string]interface{}{"type": "rectangle"})

	rec, _ := doJSON(t, srv.handleSnapshots, http.MethodPost, "/api/snapshots",
		map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("snapshot without name status = %d, want 400", rec.Code)
	}

	rec, resp := doJSON(t, srv.handleSnapshots, http.MethodPost, "/api/snapshots",
		map[string]interface{}{"name": "before-refactor"})
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", rec.Code)
	}
	if resp["count"] != float64(1) {
		t.Errorf("snapshot count = %v, want 1", resp["count"])
	}

	rec, resp = doJSON(t, srv.handleSnapshots, http.MethodGet, "/api/snapshots", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	snapshots := resp["snapshots"].([]interface{})
	if len(snapshots) != 1 {
		t.Fatalf("listed %d snapshots, want 1", len(snapshots))
	}
	entry := snapshots[0].(map[string]interface{})
	if entry["name"] != "before-refactor" || entry["createdAt"] == nil {
		t.Errorf("listing entry = %v", entry)
	}

	rec, _ = doJSON(t, srv.handleSnapshotByName, http.MethodGet, "/api/snapshots/before-refactor", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get snapshot status = %d", rec.Code)
	}

	rec, resp = doJSON(t, srv.handleSnapshotByName, http.MethodGet, "/api/snapshots/no-such", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing snapshot status = %d, want 404", rec.Code)
	}
	if resp["success"] != false {
		t.Errorf("missing snapshot envelope = %v", resp)
	}
}

func TestLegacySurfaceShapes(t *testing.T) {
	srv := newTestServer()
	srv.CreateElement(map[string]interface{}{"type": "rectangle"})

	// Legacy /elements returns a bare array.
	req := httptest.NewRequest(http.MethodGet, "/elements", nil)
	rec := httptest.NewRecorder()
	srv.handleLegacyElements(rec, req)
	var listed []interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("legacy /elements is not a bare array: %s", rec.Body.String())
	}
	if len(listed) != 1 {
		t.Errorf("legacy list length = %d, want 1", len(listed))
	}

	rec2, resp := doJSON(t, srv.handleLegacyCanvas, http.MethodGet, "/canvas", nil)
	if rec2.Code != http.StatusOK {
		t.Fatalf("legacy /canvas status = %d", rec2.Code)
	}
	for _, key := range []string{"elements", "appState", "files"} {
		if _, present := resp[key]; !present {
			t.Errorf("legacy /canvas missing %s", key)
		}
	}

	rec3, resp := doJSON(t, srv.handleLegacyClear, http.MethodPost, "/clear", nil)
	if rec3.Code != http.StatusOK {
		t.Fatalf("legacy /clear status = %d", rec3.Code)
	}
	if resp["removed"] != float64(1) {
		t.Errorf("removed = %v, want 1", resp["removed"])
	}

	rec4, resp := doJSON(t, srv.handleLegacySnapshot, http.MethodGet, "/snapshot", nil)
	if rec4.Code != http.StatusOK {
		t.Fatalf("legacy /snapshot status = %d", rec4.Code)
	}
	if resp["count"] != float64(0) {
		t.Errorf("snapshot count = %v, want 0 after clear", resp["count"])
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/elements", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.handleElements(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed JSON", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer()
	rec, _ := doJSON(t, srv.handleHealth, http.MethodDelete, "/health", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer()
	handler := corsMiddleware(srv.handleHealth)

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Allow-Origin = %q, want *", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
