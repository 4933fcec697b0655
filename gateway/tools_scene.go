package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vellum-studio/vellum/canvas"
)

func (g *Gateway) registerSceneTools() {
	describeTool := mcp.NewTool("describe_scene",
		mcp.WithDescription("Summarize the canvas: element counts by type, bounding box, and theme"),
	)
	g.mcp.AddTool(describeTool, g.handleDescribeScene)

	snapshotTool := mcp.NewTool("snapshot_scene",
		mcp.WithDescription("Store a named copy of the current elements for later restore"),
		mcp.WithString("name", mcp.Description("Snapshot name (defaults to a timestamped one)")),
	)
	g.mcp.AddTool(snapshotTool, g.handleSnapshotScene)

	restoreTool := mcp.NewTool("restore_snapshot",
		mcp.WithDescription("Replace the canvas with a previously stored snapshot"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the snapshot to restore"),
		),
	)
	g.mcp.AddTool(restoreTool, g.handleRestoreSnapshot)

	importTool := mcp.NewTool("import_scene",
		mcp.WithDescription("Load a scene document onto the canvas, merging with or replacing the current elements"),
		mcp.WithString("mode", mcp.Description("merge (default) adds the imported elements; replace swaps the whole scene")),
	)
	g.mcp.AddTool(importTool, g.handleImportScene)

	exportTool := mcp.NewTool("export_scene",
		mcp.WithDescription("Serialize the canvas as an .excalidraw document, returned inline or written to a file"),
		mcp.WithString("path", mcp.Description("Optional file path to write the document to")),
	)
	g.mcp.AddTool(exportTool, g.handleExportScene)

	resourceTool := mcp.NewTool("get_resource",
		mcp.WithDescription("Read a canvas resource: scene, elements, theme, or library"),
		mcp.WithString("resource",
			mcp.Required(),
			mcp.Description("One of: scene, elements, theme, library"),
		),
	)
	g.mcp.AddTool(resourceTool, g.handleGetResource)

	guideTool := mcp.NewTool("read_diagram_guide",
		mcp.WithDescription("Read the diagram construction guide before drawing"),
	)
	g.mcp.AddTool(guideTool, g.handleReadDiagramGuide)

	urlTool := mcp.NewTool("export_to_excalidraw_url",
		mcp.WithDescription("Encode the scene into a shareable excalidraw.com URL"),
	)
	g.mcp.AddTool(urlTool, g.handleExportToExcalidrawURL)
}

// sceneDocument builds the canonical .excalidraw file shape around the
// current scene.
func (g *Gateway) sceneDocument(ctx context.Context) (map[string]interface{}, error) {
	dump, err := g.canvas.Scene(ctx)
	if err != nil {
		return nil, err
	}
	appState := dump.AppState
	if appState == nil {
		appState = map[string]interface{}{}
	}
	files := dump.Files
	if files == nil {
		files = map[string]interface{}{}
	}
	return map[string]interface{}{
		"type":     "excalidraw",
		"version":  2,
		"source":   "vellum",
		"elements": dump.Elements,
		"appState": appState,
		"files":    files,
	}, nil
}

func (g *Gateway) handleDescribeScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dump, err := g.canvas.Scene(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read scene: %v", err)), nil
	}

	byType := map[string]int{}
	for _, el := range dump.Elements {
		byType[el.Type]++
	}

	summary := map[string]interface{}{
		"elements": len(dump.Elements),
		"byType":   byType,
	}
	if len(dump.Elements) > 0 {
		minX, minY := dump.Elements[0].X, dump.Elements[0].Y
		maxX, maxY := minX+dump.Elements[0].Width, minY+dump.Elements[0].Height
		for _, el := range dump.Elements[1:] {
			if el.X < minX {
				minX = el.X
			}
			if el.Y < minY {
				minY = el.Y
			}
			if right := el.X + el.Width; right > maxX {
				maxX = right
			}
			if bottom := el.Y + el.Height; bottom > maxY {
				maxY = bottom
			}
		}
		summary["bounds"] = map[string]float64{
			"minX": minX, "minY": minY, "maxX": maxX, "maxY": maxY,
			"width": maxX - minX, "height": maxY - minY,
		}
	}
	if theme, ok := dump.AppState["theme"].(string); ok {
		summary["theme"] = theme
	}
	return jsonResult(summary), nil
}

func (g *Gateway) handleSnapshotScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		name = "snapshot-" + time.Now().UTC().Format("20060102-150405")
	}

	info, err := g.canvas.TakeSnapshot(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to snapshot: %v", err)), nil
	}
	return jsonResult(info), nil
}

func (g *Gateway) handleRestoreSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	count, err := g.canvas.RestoreSnapshot(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to restore snapshot: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Restored snapshot %q with %d element(s)", name, count)), nil
}

func (g *Gateway) handleImportScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsMap(request)

	// The document may arrive under "scene" or flattened at top level.
	doc := args
	if nested, ok := args["scene"].(map[string]interface{}); ok {
		doc = nested
	}
	raws, err := elementMaps(doc["elements"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(raws) == 0 {
		return mcp.NewToolResultError("scene has no elements"), nil
	}

	mode := request.GetString("mode", "merge")
	switch mode {
	case "merge":
		elements, err := g.canvas.CreateElements(ctx, raws)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Import failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Merged %d element(s) into the scene", len(elements))), nil
	case "replace":
		appState, _ := doc["appState"].(map[string]interface{})
		files, _ := doc["files"].(map[string]interface{})
		_, after, err := g.canvas.SyncScene(ctx, raws, appState, files)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Import failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Replaced the scene with %d element(s)", after)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q (want merge or replace)", mode)), nil
	}
}

func (g *Gateway) handleExportScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := g.sceneDocument(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read scene: %v", err)), nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize scene: %v", err)), nil
	}

	if path := request.GetString("path", ""); path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to write %s: %v", path, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Wrote scene to %s (%d bytes)", path, len(data))), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (g *Gateway) handleGetResource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := request.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch resource {
	case "scene":
		doc, err := g.sceneDocument(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read scene: %v", err)), nil
		}
		return jsonResult(doc), nil
	case "elements":
		elements, err := g.canvas.ListElements(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list elements: %v", err)), nil
		}
		return jsonResult(elements), nil
	case "theme":
		dump, err := g.canvas.Scene(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read scene: %v", err)), nil
		}
		theme := map[string]interface{}{
			"theme":               "light",
			"viewBackgroundColor": "#ffffff",
		}
		for _, key := range []string{"theme", "viewBackgroundColor", "gridSize"} {
			if value, ok := dump.AppState[key]; ok {
				theme[key] = value
			}
		}
		return jsonResult(theme), nil
	case "library":
		return jsonResult(map[string]interface{}{"libraryItems": []interface{}{}}), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown resource %q (want scene, elements, theme, or library)", resource)), nil
	}
}

func (g *Gateway) handleReadDiagramGuide(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(diagramGuide), nil
}

func (g *Gateway) handleExportToExcalidrawURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := g.sceneDocument(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read scene: %v", err)), nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize scene: %v", err)), nil
	}

	count := 0
	if elements, ok := doc["elements"].([]*canvas.Element); ok {
		count = len(elements)
	}
	encoded := base64.RawURLEncoding.EncodeToString(data)
	return jsonResult(map[string]interface{}{
		"url":      "https://excalidraw.com/#json=" + encoded,
		"elements": count,
	}), nil
}
