package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
)

func (g *Gateway) registerElementTools() {
	createTool := mcp.NewTool("create_element",
		mcp.WithDescription("Create a canvas element. Unspecified visual properties get canvas defaults; arrows may carry start/end references to other element ids"),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Element type: rectangle, ellipse, diamond, arrow, line, text, or freedraw"),
		),
		mcp.WithNumber("x", mcp.Description("Left edge in scene coordinates")),
		mcp.WithNumber("y", mcp.Description("Top edge in scene coordinates")),
		mcp.WithNumber("width", mcp.Description("Element width")),
		mcp.WithNumber("height", mcp.Description("Element height")),
		mcp.WithString("strokeColor", mcp.Description("Stroke color, e.g. #1e1e2e")),
		mcp.WithString("backgroundColor", mcp.Description("Fill color or 'transparent'")),
		mcp.WithString("text", mcp.Description("Text content for text elements or labels")),
	)
	g.mcp.AddTool(createTool, g.handleCreateElement)

	batchTool := mcp.NewTool("batch_create_elements",
		mcp.WithDescription("Create many elements in one atomic batch. Arrow references between batch members resolve into bindings"),
	)
	g.mcp.AddTool(batchTool, g.handleBatchCreateElements)

	updateTool := mcp.NewTool("update_element",
		mcp.WithDescription("Patch an element by id. Only the supplied properties change; the rest keep their values"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Target element id"),
		),
	)
	g.mcp.AddTool(updateTool, g.handleUpdateElement)

	deleteTool := mcp.NewTool("delete_element",
		mcp.WithDescription("Remove an element from the canvas"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Target element id"),
		),
	)
	g.mcp.AddTool(deleteTool, g.handleDeleteElement)

	clearTool := mcp.NewTool("clear_canvas",
		mcp.WithDescription("Remove every element from the canvas"),
	)
	g.mcp.AddTool(clearTool, g.handleClearCanvas)

	duplicateTool := mcp.NewTool("duplicate_elements",
		mcp.WithDescription("Deep-copy elements under new ids, shifted by an offset"),
		mcp.WithNumber("offsetX", mcp.Description("Horizontal shift for the copies (default 10)")),
		mcp.WithNumber("offsetY", mcp.Description("Vertical shift for the copies (default 10)")),
	)
	g.mcp.AddTool(duplicateTool, g.handleDuplicateElements)

	queryTool := mcp.NewTool("query_elements",
		mcp.WithDescription("Find elements by conjunctive filters: type, types (comma list), strokeColor, minWidth/maxWidth, minHeight/maxHeight, textContains, or any element property for string equality"),
		mcp.WithString("type", mcp.Description("Match a single element type")),
		mcp.WithString("strokeColor", mcp.Description("Match the stroke color exactly")),
		mcp.WithString("textContains", mcp.Description("Case-insensitive substring on text content")),
		mcp.WithNumber("minWidth", mcp.Description("Inclusive lower bound on width")),
		mcp.WithNumber("maxWidth", mcp.Description("Inclusive upper bound on width")),
	)
	g.mcp.AddTool(queryTool, g.handleQueryElements)

	getTool := mcp.NewTool("get_element",
		mcp.WithDescription("Fetch one element by id"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Target element id"),
		),
	)
	g.mcp.AddTool(getTool, g.handleGetElement)
}

func (g *Gateway) handleCreateElement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := request.RequireString("type"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	el, err := g.canvas.CreateElement(ctx, argumentsMap(request))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create element: %v", err)), nil
	}
	return jsonResult(el), nil
}

func (g *Gateway) handleBatchCreateElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raws, err := elementMaps(argumentsMap(request)["elements"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(raws) == 0 {
		return mcp.NewToolResultError("elements array is empty"), nil
	}

	elements, err := g.canvas.CreateElements(ctx, raws)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create batch: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"created":  len(elements),
		"elements": elements,
	}), nil
}

func (g *Gateway) handleUpdateElement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	updates := map[string]interface{}{}
	for key, value := range argumentsMap(request) {
		if key != "id" {
			updates[key] = value
		}
	}
	if len(updates) == 0 {
		return mcp.NewToolResultError("no properties to update"), nil
	}

	el, err := g.canvas.UpdateElement(ctx, id, updates)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update element: %v", err)), nil
	}
	return jsonResult(el), nil
}

func (g *Gateway) handleDeleteElement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := g.canvas.DeleteElement(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete element: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted element %s", id)), nil
}

func (g *Gateway) handleClearCanvas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	removed, err := g.canvas.ClearCanvas(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to clear canvas: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared %d element(s)", removed)), nil
}

func (g *Gateway) handleDuplicateElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := idList(argumentsMap(request)["ids"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids array is empty"), nil
	}
	offsetX := request.GetFloat("offsetX", 10)
	offsetY := request.GetFloat("offsetY", 10)

	raws := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		el, err := g.canvas.GetElement(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Cannot duplicate %s: %v", id, err)), nil
		}

		data, err := json.Marshal(el)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Cannot copy %s: %v", id, err)), nil
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Cannot copy %s: %v", id, err)), nil
		}

		// The copy is a fresh element: drop identity and authorship stamps
		// so admission mints new ones.
		for _, key := range []string{"id", "version", "versionNonce", "updated", "createdAt", "updatedAt"} {
			delete(raw, key)
		}
		raw["x"] = el.X + offsetX
		raw["y"] = el.Y + offsetY
		raws = append(raws, raw)
	}

	elements, err := g.canvas.CreateElements(ctx, raws)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to insert duplicates: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"duplicated": len(elements),
		"elements":   elements,
	}), nil
}

func (g *Gateway) handleQueryElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := url.Values{}
	for key, value := range argumentsMap(request) {
		query.Set(key, fmt.Sprint(value))
	}

	elements, err := g.canvas.SearchElements(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Query failed: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"count":    len(elements),
		"elements": elements,
	}), nil
}

func (g *Gateway) handleGetElement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	el, err := g.canvas.GetElement(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get element: %v", err)), nil
	}
	return jsonResult(el), nil
}
