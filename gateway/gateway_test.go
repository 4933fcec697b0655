package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellum-studio/vellum/config"
	"github.com/vellum-studio/vellum/server"
)

func newTestGateway(t *testing.T) (*Gateway, *server.CanvasServer) {
	t.Helper()
	srv := server.NewCanvasServer(&config.Config{})
	return New(NewLocalCanvas(srv)), srv
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.False(t, result.IsError, "tool failed: %s", textOf(t, result))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &decoded))
	return decoded
}

func mustCreate(t *testing.T, g *Gateway, args map[string]interface{}) string {
	t.Helper()
	result, err := g.handleCreateElement(context.Background(), callRequest("create_element", args))
	require.NoError(t, err)
	el := decodeResult(t, result)
	id, _ := el["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestToolCatalogue(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	init := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`)
	g.MCPServer().HandleMessage(ctx, init)

	response := g.MCPServer().HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	raw, err := json.Marshal(response)
	require.NoError(t, err)

	var listed struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &listed))

	names := map[string]bool{}
	for _, tool := range listed.Result.Tools {
		names[tool.Name] = true
	}
	expected := []string{
		"create_element", "batch_create_elements", "update_element", "delete_element",
		"clear_canvas", "duplicate_elements", "query_elements", "get_element",
		"group_elements", "ungroup_elements", "lock_elements", "unlock_elements",
		"align_elements", "distribute_elements",
		"describe_scene", "snapshot_scene", "restore_snapshot", "import_scene",
		"export_scene", "get_resource", "read_diagram_guide", "export_to_excalidraw_url",
		"create_from_mermaid", "set_viewport", "export_to_image", "get_canvas_screenshot",
	}
	for _, name := range expected {
		assert.True(t, names[name], "tool %s not registered", name)
	}
	assert.Len(t, listed.Result.Tools, len(expected))
}

func TestCreateAndGetElement(t *testing.T) {
	g, srv := newTestGateway(t)
	ctx := context.Background()

	id := mustCreate(t, g, map[string]interface{}{
		"type": "rectangle", "x": 10.0, "y": 20.0, "width": 120.0, "height": 60.0,
	})
	assert.Len(t, id, 20)
	assert.Equal(t, 1, srv.Store().Count())

	result, err := g.handleGetElement(ctx, callRequest("get_element", map[string]interface{}{"id": id}))
	require.NoError(t, err)
	el := decodeResult(t, result)
	assert.Equal(t, "rectangle", el["type"])
	assert.Equal(t, 10.0, el["x"])
}

func TestCreateElementRequiresType(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleCreateElement(context.Background(), callRequest("create_element", map[string]interface{}{"x": 1.0}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestBatchCreateBindsArrows(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleBatchCreateElements(context.Background(), callRequest("batch_create_elements", map[string]interface{}{
		"elements": []interface{}{
			map[string]interface{}{"id": "left", "type": "rectangle", "x": 0.0, "y": 0.0, "width": 100.0, "height": 50.0},
			map[string]interface{}{"id": "right", "type": "rectangle", "x": 200.0, "y": 0.0, "width": 100.0, "height": 50.0},
			map[string]interface{}{
				"type":  "arrow",
				"start": map[string]interface{}{"id": "left"},
				"end":   map[string]interface{}{"id": "right"},
			},
		},
	}))
	require.NoError(t, err)
	decoded := decodeResult(t, result)
	assert.Equal(t, 3.0, decoded["created"])

	elements, ok := decoded["elements"].([]interface{})
	require.True(t, ok)
	arrow, ok := elements[2].(map[string]interface{})
	require.True(t, ok)
	binding, ok := arrow["startBinding"].(map[string]interface{})
	require.True(t, ok, "arrow kept no start binding")
	assert.Equal(t, "left", binding["elementId"])
	assert.Equal(t, 8.0, binding["gap"])
	assert.NotContains(t, arrow, "start")
}

func TestUpdateElementFlattensArguments(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	id := mustCreate(t, g, map[string]interface{}{"type": "rectangle", "x": 0.0})
	result, err := g.handleUpdateElement(ctx, callRequest("update_element", map[string]interface{}{
		"id": id, "x": 42.0, "strokeColor": "#00ff00",
	}))
	require.NoError(t, err)
	el := decodeResult(t, result)
	assert.Equal(t, 42.0, el["x"])
	assert.Equal(t, "#00ff00", el["strokeColor"])
	assert.Equal(t, 2.0, el["version"])
}

func TestUpdateElementRejectsEmptyPatch(t *testing.T) {
	g, _ := newTestGateway(t)

	id := mustCreate(t, g, map[string]interface{}{"type": "rectangle"})
	result, err := g.handleUpdateElement(context.Background(), callRequest("update_element", map[string]interface{}{"id": id}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestDeleteElementReportsMissing(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleDeleteElement(context.Background(), callRequest("delete_element", map[string]interface{}{"id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "nope")
}

func TestDuplicateElementsShiftsCopies(t *testing.T) {
	g, srv := newTestGateway(t)
	ctx := context.Background()

	id := mustCreate(t, g, map[string]interface{}{
		"type": "ellipse", "x": 5.0, "y": 5.0, "width": 40.0, "height": 40.0, "strokeColor": "#123456",
	})

	result, err := g.handleDuplicateElements(ctx, callRequest("duplicate_elements", map[string]interface{}{
		"ids": []interface{}{id},
	}))
	require.NoError(t, err)
	decoded := decodeResult(t, result)
	assert.Equal(t, 1.0, decoded["duplicated"])

	elements := decoded["elements"].([]interface{})
	dup := elements[0].(map[string]interface{})
	assert.NotEqual(t, id, dup["id"])
	assert.Equal(t, 15.0, dup["x"])
	assert.Equal(t, 15.0, dup["y"])
	assert.Equal(t, "#123456", dup["strokeColor"])
	assert.Equal(t, 1.0, dup["version"])
	assert.Equal(t, 2, srv.Store().Count())
}

func TestQueryElementsBuildsFilters(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	mustCreate(t, g, map[string]interface{}{"type": "rectangle", "strokeColor": "#ff0000", "width": 200.0})
	mustCreate(t, g, map[string]interface{}{"type": "rectangle", "strokeColor": "#0000ff", "width": 200.0})
	mustCreate(t, g, map[string]interface{}{"type": "ellipse", "strokeColor": "#ff0000", "width": 50.0})

	result, err := g.handleQueryElements(ctx, callRequest("query_elements", map[string]interface{}{
		"type": "rectangle", "strokeColor": "#ff0000", "minWidth": 100.0,
	}))
	require.NoError(t, err)
	decoded := decodeResult(t, result)
	assert.Equal(t, 1.0, decoded["count"])
}

func TestGroupAndUngroupElements(t *testing.T) {
	g, srv := newTestGateway(t)
	ctx := context.Background()

	a := mustCreate(t, g, map[string]interface{}{"type": "rectangle"})
	b := mustCreate(t, g, map[string]interface{}{"type": "rectangle"})

	result, err := g.handleGroupElements(ctx, callRequest("group_elements", map[string]interface{}{
		"ids": []interface{}{a, b},
	}))
	require.NoError(t, err)
	decoded := decodeResult(t, result)
	groupID, _ := decoded["groupId"].(string)
	require.NotEmpty(t, groupID)

	elA, err := srv.Store().Get(a)
	require.NoError(t, err)
	elB, err := srv.Store().Get(b)
	require.NoError(t, err)
	assert.Equal(t, []string{groupID}, elA.GroupIDs)
	assert.Equal(t, []string{groupID}, elB.GroupIDs)

	_, err = g.handleUngroupElements(ctx, callRequest("ungroup_elements", map[string]interface{}{
		"ids": []interface{}{a, b},
	}))
	require.NoError(t, err)
	elA, err = srv.Store().Get(a)
	require.NoError(t, err)
	assert.Empty(t, elA.GroupIDs)
}

func TestGroupNeedsTwoElements(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleGroupElements(context.Background(), callRequest("group_elements", map[string]interface{}{
		"ids": []interface{}{"only"},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestLockAndUnlockElements(t *testing.T) {
	g, srv := newTestGateway(t)
	ctx := context.Background()

	id := mustCreate(t, g, map[string]interface{}{"type": "diamond"})

	_, err := g.handleLockElements(ctx, callRequest("lock_elements", map[string]interface{}{"ids": []interface{}{id}}))
	require.NoError(t, err)
	el, err := srv.Store().Get(id)
	require.NoError(t, err)
	assert.True(t, el.Locked)

	_, err = g.handleUnlockElements(ctx, callRequest("unlock_elements", map[string]interface{}{"ids": []interface{}{id}}))
	require.NoError(t, err)
	el, err = srv.Store().Get(id)
	require.NoError(t, err)
	assert.False(t, el.Locked)
}

func TestAlignElementsLeft(t *testing.T) {
	g, srv := newTestGateway(t)
	ctx := context.Background()

	a := mustCreate(t, g, map[string]interface{}{"type": "rectangle", "x": 0.0, "width": 50.0})
	b := mustCreate(t, g, map[string]interface{}{"type": "rectangle", "x": 100.0, "width": 50.0})

	result, err := g.handleAlignElements(ctx, callRequest("align_elements", map[string]interface{}{
		"alignment": "left", "ids": []interface{}{a, b},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	elB, err := srv.Store().Get(b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, elB.X)
}

func TestAlignElementsUnknownAlignment(t *testing.T) {
	g, _ := newTestGateway(t)

	a := mustCreate(t, g, map[string]interface{}{"type": "rectangle"})
	b := mustCreate(t, g, map[string]interface{}{"type": "rectangle"})
	result, err := g.handleAlignElements(context.Background(), callRequest("align_elements", map[string]interface{}{
		"alignment": "diagonal", "ids": []interface{}{a, b},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestDistributeElementsHorizontal(t *testing.T) {
	g, srv := newTestGateway(t)
	ctx := context.Background()

	a := mustCreate(t, g, map[string]interface{}{"type": "rectangle", "x": 0.0, "width": 10.0})
	b := mustCreate(t, g, map[string]interface{}{"type": "rectangle", "x": 50.0, "width": 10.0})
	c := mustCreate(t, g, map[string]interface{}{"type": "rectangle", "x": 200.0, "width": 10.0})

	result, err := g.handleDistributeElements(ctx, callRequest("distribute_elements", map[string]interface{}{
		"direction": "horizontal", "ids": []interface{}{a, b, c},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	elB, err := srv.Store().Get(b)
	require.NoError(t, err)
	assert.Equal(t, 100.0, elB.X)
	elC, err := srv.Store().Get(c)
	require.NoError(t, err)
	assert.Equal(t, 200.0, elC.X)
}

func TestSnapshotAndRestoreScene(t *testing.T) {
	g, srv := newTestGateway(t)
	ctx := context.Background()

	mustCreate(t, g, map[string]interface{}{"type": "rectangle"})
	mustCreate(t, g, map[string]interface{}{"type": "ellipse"})

	result, err := g.handleSnapshotScene(ctx, callRequest("snapshot_scene", map[string]interface{}{"name": "before-clear"}))
	require.NoError(t, err)
	info := decodeResult(t, result)
	assert.Equal(t, "before-clear", info["name"])
	assert.Equal(t, 2.0, info["count"])

	_, err = g.handleClearCanvas(ctx, callRequest("clear_canvas", nil))
	require.NoError(t, err)
	assert.Equal(t, 0, srv.Store().Count())

	restore, err := g.handleRestoreSnapshot(ctx, callRequest("restore_snapshot", map[string]interface{}{"name": "before-clear"}))
	require.NoError(t, err)
	require.False(t, restore.IsError, textOf(t, restore))
	assert.Equal(t, 2, srv.Store().Count())
}

func TestSnapshotSceneDefaultsName(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleSnapshotScene(context.Background(), callRequest("snapshot_scene", nil))
	require.NoError(t, err)
	info := decodeResult(t, result)
	name, _ := info["name"].(string)
	assert.True(t, strings.HasPrefix(name, "snapshot-"), "got name %q", name)
}

func TestImportSceneReplace(t *testing.T) {
	g, srv := newTestGateway(t)
	ctx := context.Background()

	mustCreate(t, g, map[string]interface{}{"type": "rectangle"})

	result, err := g.handleImportScene(ctx, callRequest("import_scene", map[string]interface{}{
		"mode": "replace",
		"scene": map[string]interface{}{
			"elements": []interface{}{
				map[string]interface{}{"type": "ellipse"},
				map[string]interface{}{"type": "diamond"},
			},
			"appState": map[string]interface{}{"theme": "dark"},
		},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))
	assert.Equal(t, 2, srv.Store().Count())
	assert.Equal(t, "dark", srv.Store().AppState()["theme"])
}

func TestImportSceneMergeKeepsExisting(t *testing.T) {
	g, srv := newTestGateway(t)

	mustCreate(t, g, map[string]interface{}{"type": "rectangle"})
	result, err := g.handleImportScene(context.Background(), callRequest("import_scene", map[string]interface{}{
		"elements": []interface{}{map[string]interface{}{"type": "ellipse"}},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))
	assert.Equal(t, 2, srv.Store().Count())
}

func TestExportSceneWritesFile(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	mustCreate(t, g, map[string]interface{}{"type": "rectangle"})
	path := filepath.Join(t.TempDir(), "scene.excalidraw")

	result, err := g.handleExportScene(ctx, callRequest("export_scene", map[string]interface{}{"path": path}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "excalidraw", doc["type"])
	assert.Equal(t, 2.0, doc["version"])
	assert.Len(t, doc["elements"], 1)
}

func TestDescribeSceneSummarizes(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	mustCreate(t, g, map[string]interface{}{"type": "rectangle", "x": 0.0, "y": 0.0, "width": 100.0, "height": 50.0})
	mustCreate(t, g, map[string]interface{}{"type": "rectangle", "x": 200.0, "y": 100.0, "width": 100.0, "height": 50.0})

	result, err := g.handleDescribeScene(ctx, callRequest("describe_scene", nil))
	require.NoError(t, err)
	decoded := decodeResult(t, result)
	assert.Equal(t, 2.0, decoded["elements"])

	byType := decoded["byType"].(map[string]interface{})
	assert.Equal(t, 2.0, byType["rectangle"])
	bounds := decoded["bounds"].(map[string]interface{})
	assert.Equal(t, 300.0, bounds["width"])
	assert.Equal(t, 150.0, bounds["height"])
}

func TestGetResourceTheme(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleGetResource(context.Background(), callRequest("get_resource", map[string]interface{}{"resource": "theme"}))
	require.NoError(t, err)
	decoded := decodeResult(t, result)
	assert.Equal(t, "light", decoded["theme"])
	assert.Equal(t, "#ffffff", decoded["viewBackgroundColor"])
}

func TestGetResourceUnknown(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleGetResource(context.Background(), callRequest("get_resource", map[string]interface{}{"resource": "users"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestReadDiagramGuide(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleReadDiagramGuide(context.Background(), callRequest("read_diagram_guide", nil))
	require.NoError(t, err)
	text := textOf(t, result)
	assert.Contains(t, text, "Coordinate system")
	assert.Contains(t, text, "batch_create_elements")
}

func TestExportToExcalidrawURL(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	mustCreate(t, g, map[string]interface{}{"type": "rectangle"})

	result, err := g.handleExportToExcalidrawURL(ctx, callRequest("export_to_excalidraw_url", nil))
	require.NoError(t, err)
	decoded := decodeResult(t, result)
	url, _ := decoded["url"].(string)
	require.True(t, strings.HasPrefix(url, "https://excalidraw.com/#json="), "got %q", url)

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(url, "https://excalidraw.com/#json="))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.Equal(t, "excalidraw", doc["type"])
}

func TestMermaidWithoutClientFailsSoft(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleCreateFromMermaid(context.Background(), callRequest("create_from_mermaid", map[string]interface{}{
		"mermaidDiagram": "graph TD; A-->B",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "Frontend client not connected")
}

func TestScreenshotWithoutClientFailsSoft(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleGetCanvasScreenshot(context.Background(), callRequest("get_canvas_screenshot", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestExportToImageRejectsUnknownFormat(t *testing.T) {
	g, _ := newTestGateway(t)

	result, err := g.handleExportToImage(context.Background(), callRequest("export_to_image", map[string]interface{}{
		"format": "gif",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
