package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellum-studio/vellum/errors"
)

// fakeCanvasAPI records requests and replays canned JSON per route.
type fakeCanvasAPI struct {
	t        *testing.T
	requests []string
	bodies   []map[string]interface{}
	respond  map[string]interface{}
	status   int
}

func (f *fakeCanvasAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)

	body := map[string]interface{}{}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}
	f.bodies = append(f.bodies, body)

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if resp, ok := f.respond[key]; ok {
		json.NewEncoder(w).Encode(resp)
	} else {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}
}

func newFakeCanvas(t *testing.T, respond map[string]interface{}) (*fakeCanvasAPI, *RemoteCanvas) {
	t.Helper()
	fake := &fakeCanvasAPI{t: t, respond: respond}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)
	return fake, NewRemoteCanvas(ts.URL + "/")
}

func TestRemoteCanvasElementRoutes(t *testing.T) {
	fake, remote := newFakeCanvas(t, map[string]interface{}{
		"POST /api/elements": map[string]interface{}{
			"success": true,
			"element": map[string]interface{}{"id": "abc123", "type": "rectangle"},
		},
		"PUT /api/elements/abc123": map[string]interface{}{
			"success": true,
			"element": map[string]interface{}{"id": "abc123", "type": "rectangle", "x": 7},
		},
		"DELETE /api/elements/clear": map[string]interface{}{
			"success": true,
			"removed": 3,
		},
	})
	ctx := context.Background()

	el, err := remote.CreateElement(ctx, map[string]interface{}{"type": "rectangle"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", el.ID)

	updated, err := remote.UpdateElement(ctx, "abc123", map[string]interface{}{"x": 7})
	require.NoError(t, err)
	assert.Equal(t, 7.0, updated.X)

	require.NoError(t, remote.DeleteElement(ctx, "abc123"))

	removed, err := remote.ClearCanvas(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	assert.Equal(t, []string{
		"POST /api/elements",
		"PUT /api/elements/abc123",
		"DELETE /api/elements/abc123",
		"DELETE /api/elements/clear",
	}, fake.requests)
	assert.Equal(t, "rectangle", fake.bodies[0]["type"])
}

func TestRemoteCanvasSearchEncodesQuery(t *testing.T) {
	received := ""
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "elements": []interface{}{}})
	}))
	t.Cleanup(ts.Close)

	remote := NewRemoteCanvas(ts.URL)
	query := url.Values{}
	query.Set("type", "rectangle")
	query.Set("minWidth", "100")

	_, err := remote.SearchElements(context.Background(), query)
	require.NoError(t, err)
	parsed, err := url.ParseQuery(received)
	require.NoError(t, err)
	assert.Equal(t, "rectangle", parsed.Get("type"))
	assert.Equal(t, "100", parsed.Get("minWidth"))
}

func TestRemoteCanvasErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		check   func(error) bool
	}{
		{"bad request", http.StatusBadRequest, "mermaidDiagram is required", errors.IsInvalidArgument},
		{"not found", http.StatusNotFound, "element ghost not found", errors.IsNotFound},
		{"unavailable", http.StatusServiceUnavailable, "Frontend client not connected", errors.IsUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": tt.message})
			}))
			t.Cleanup(ts.Close)

			remote := NewRemoteCanvas(ts.URL)
			_, err := remote.GetElement(context.Background(), "ghost")
			require.Error(t, err)
			assert.True(t, tt.check(err), "wrong error class: %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestRemoteCanvasUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	remote := NewRemoteCanvas(ts.URL)
	_, err := remote.ListElements(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err), "wrong error class: %v", err)
}

func TestRemoteCanvasRestoreComposesSync(t *testing.T) {
	fake, remote := newFakeCanvas(t, map[string]interface{}{
		"GET /api/snapshots/night": map[string]interface{}{
			"success": true,
			"snapshot": map[string]interface{}{
				"name": "night",
				"elements": []interface{}{
					map[string]interface{}{"type": "rectangle"},
					map[string]interface{}{"type": "ellipse"},
				},
			},
		},
		"POST /api/elements/sync": map[string]interface{}{
			"success": true, "beforeCount": 0, "afterCount": 2,
		},
	})

	after, err := remote.RestoreSnapshot(context.Background(), "night")
	require.NoError(t, err)
	assert.Equal(t, 2, after)

	require.Len(t, fake.requests, 2)
	assert.Equal(t, "GET /api/snapshots/night", fake.requests[0])
	assert.Equal(t, "POST /api/elements/sync", fake.requests[1])
	synced, ok := fake.bodies[1]["elements"].([]interface{})
	require.True(t, ok)
	assert.Len(t, synced, 2)
}
