package gateway

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vellum-studio/vellum/canvas"
)

func (g *Gateway) registerLayoutTools() {
	groupTool := mcp.NewTool("group_elements",
		mcp.WithDescription("Group elements so the canvas treats them as one unit. Members keep any groups they already belong to"),
	)
	g.mcp.AddTool(groupTool, g.handleGroupElements)

	ungroupTool := mcp.NewTool("ungroup_elements",
		mcp.WithDescription("Dissolve all group membership for the given elements"),
	)
	g.mcp.AddTool(ungroupTool, g.handleUngroupElements)

	lockTool := mcp.NewTool("lock_elements",
		mcp.WithDescription("Lock elements against pointer edits on the canvas"),
	)
	g.mcp.AddTool(lockTool, g.handleLockElements)

	unlockTool := mcp.NewTool("unlock_elements",
		mcp.WithDescription("Unlock previously locked elements"),
	)
	g.mcp.AddTool(unlockTool, g.handleUnlockElements)

	alignTool := mcp.NewTool("align_elements",
		mcp.WithDescription("Align elements against their shared bounding box"),
		mcp.WithString("alignment",
			mcp.Required(),
			mcp.Description("One of: left, right, top, bottom, center (horizontal), middle (vertical)"),
		),
	)
	g.mcp.AddTool(alignTool, g.handleAlignElements)

	distributeTool := mcp.NewTool("distribute_elements",
		mcp.WithDescription("Space three or more elements evenly between the outermost two"),
		mcp.WithString("direction",
			mcp.Required(),
			mcp.Description("One of: horizontal, vertical"),
		),
	)
	g.mcp.AddTool(distributeTool, g.handleDistributeElements)
}

// fetchElements resolves every id or reports the first missing one.
func (g *Gateway) fetchElements(ctx context.Context, ids []string) ([]*canvas.Element, error) {
	elements := make([]*canvas.Element, 0, len(ids))
	for _, id := range ids {
		el, err := g.canvas.GetElement(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", id, err)
		}
		elements = append(elements, el)
	}
	return elements, nil
}

func (g *Gateway) handleGroupElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := idList(argumentsMap(request)["ids"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) < 2 {
		return mcp.NewToolResultError("grouping needs at least 2 element ids"), nil
	}

	elements, err := g.fetchElements(ctx, ids)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	groupID := uuid.NewString()
	for _, el := range elements {
		groups := append(append([]string(nil), el.GroupIDs...), groupID)
		if _, err := g.canvas.UpdateElement(ctx, el.ID, map[string]interface{}{"groupIds": groups}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to group %s: %v", el.ID, err)), nil
		}
	}
	return jsonResult(map[string]interface{}{
		"groupId": groupID,
		"grouped": len(elements),
	}), nil
}

func (g *Gateway) handleUngroupElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := idList(argumentsMap(request)["ids"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids array is empty"), nil
	}

	for _, id := range ids {
		if _, err := g.canvas.UpdateElement(ctx, id, map[string]interface{}{"groupIds": []string{}}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to ungroup %s: %v", id, err)), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("Ungrouped %d element(s)", len(ids))), nil
}

func (g *Gateway) setLocked(ctx context.Context, request mcp.CallToolRequest, locked bool) (*mcp.CallToolResult, error) {
	ids, err := idList(argumentsMap(request)["ids"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids array is empty"), nil
	}

	for _, id := range ids {
		if _, err := g.canvas.UpdateElement(ctx, id, map[string]interface{}{"locked": locked}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update %s: %v", id, err)), nil
		}
	}
	verb := "Locked"
	if !locked {
		verb = "Unlocked"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %d element(s)", verb, len(ids))), nil
}

func (g *Gateway) handleLockElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return g.setLocked(ctx, request, true)
}

func (g *Gateway) handleUnlockElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return g.setLocked(ctx, request, false)
}

func (g *Gateway) handleAlignElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	alignment, err := request.RequireString("alignment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids, err := idList(argumentsMap(request)["ids"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) < 2 {
		return mcp.NewToolResultError("alignment needs at least 2 element ids"), nil
	}

	elements, err := g.fetchElements(ctx, ids)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	minX, minY := elements[0].X, elements[0].Y
	maxX, maxY := elements[0].X+elements[0].Width, elements[0].Y+elements[0].Height
	for _, el := range elements[1:] {
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

	for _, el := range elements {
		var updates map[string]interface{}
		switch alignment {
		case "left":
			updates = map[string]interface{}{"x": minX}
		case "right":
			updates = map[string]interface{}{"x": maxX - el.Width}
		case "top":
			updates = map[string]interface{}{"y": minY}
		case "bottom":
			updates = map[string]interface{}{"y": maxY - el.Height}
		case "center":
			updates = map[string]interface{}{"x": (minX+maxX)/2 - el.Width/2}
		case "middle":
			updates = map[string]interface{}{"y": (minY+maxY)/2 - el.Height/2}
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown alignment %q (want left, right, top, bottom, center, or middle)", alignment)), nil
		}
		if _, err := g.canvas.UpdateElement(ctx, el.ID, updates); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to move %s: %v", el.ID, err)), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("Aligned %d element(s) to %s", len(elements), alignment)), nil
}

func (g *Gateway) handleDistributeElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	direction, err := request.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if direction != "horizontal" && direction != "vertical" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown direction %q (want horizontal or vertical)", direction)), nil
	}
	ids, err := idList(argumentsMap(request)["ids"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) < 3 {
		return mcp.NewToolResultError("distribution needs at least 3 element ids"), nil
	}

	elements, err := g.fetchElements(ctx, ids)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	horizontal := direction == "horizontal"
	sort.SliceStable(elements, func(i, j int) bool {
		if horizontal {
			return elements[i].X < elements[j].X
		}
		return elements[i].Y < elements[j].Y
	})

	first, last := elements[0], elements[len(elements)-1]
	var span, occupied float64
	if horizontal {
		span = (last.X + last.Width) - first.X
	} else {
		span = (last.Y + last.Height) - first.Y
	}
	for _, el := range elements {
		if horizontal {
			occupied += el.Width
		} else {
			occupied += el.Height
		}
	}
	gap := (span - occupied) / float64(len(elements)-1)

	cursor := first.X
	if !horizontal {
		cursor = first.Y
	}
	for _, el := range elements {
		var updates map[string]interface{}
		if horizontal {
			updates = map[string]interface{}{"x": cursor}
			cursor += el.Width + gap
		} else {
			updates = map[string]interface{}{"y": cursor}
			cursor += el.Height + gap
		}
		if _, err := g.canvas.UpdateElement(ctx, el.ID, updates); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to move %s: %v", el.ID, err)), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("Distributed %d element(s) %sly", len(elements), direction)), nil
}
