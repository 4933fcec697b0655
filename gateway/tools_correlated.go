package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vellum-studio/vellum/server"
)

func (g *Gateway) registerCorrelatedTools() {
	mermaidTool := mcp.NewTool("create_from_mermaid",
		mcp.WithDescription("Convert Mermaid source into canvas elements. Needs a connected canvas client to perform the conversion"),
		mcp.WithString("mermaidDiagram",
			mcp.Required(),
			mcp.Description("Mermaid source, e.g. 'graph TD; A-->B'"),
		),
	)
	g.mcp.AddTool(mermaidTool, g.handleCreateFromMermaid)

	viewportTool := mcp.NewTool("set_viewport",
		mcp.WithDescription("Scroll and zoom the connected canvas client"),
		mcp.WithBoolean("scrollToContent", mcp.Description("Fit all elements into view")),
		mcp.WithString("scrollToElementId", mcp.Description("Center the view on one element")),
		mcp.WithNumber("zoom", mcp.Description("Zoom factor, 1 = 100%")),
		mcp.WithNumber("offsetX", mcp.Description("Absolute horizontal scroll offset")),
		mcp.WithNumber("offsetY", mcp.Description("Absolute vertical scroll offset")),
	)
	g.mcp.AddTool(viewportTool, g.handleSetViewport)

	exportTool := mcp.NewTool("export_to_image",
		mcp.WithDescription("Render the canvas to an image via the connected client"),
		mcp.WithString("format", mcp.Description("png (default) or svg")),
		mcp.WithBoolean("background", mcp.Description("Include the canvas background (default true)")),
		mcp.WithString("path", mcp.Description("Optional file path to write the image to")),
	)
	g.mcp.AddTool(exportTool, g.handleExportToImage)

	screenshotTool := mcp.NewTool("get_canvas_screenshot",
		mcp.WithDescription("Capture the canvas as a PNG and return it as image content"),
	)
	g.mcp.AddTool(screenshotTool, g.handleGetCanvasScreenshot)
}

func (g *Gateway) handleCreateFromMermaid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	diagram, err := request.RequireString("mermaidDiagram")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	config, _ := argumentsMap(request)["config"].(map[string]interface{})

	elements, err := g.canvas.ConvertMermaid(ctx, diagram, config)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Mermaid conversion failed: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"created":  len(elements),
		"elements": elements,
	}), nil
}

func (g *Gateway) handleSetViewport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsMap(request)

	opts := server.ViewportOptions{
		ScrollToContent:   request.GetBool("scrollToContent", false),
		ScrollToElementID: request.GetString("scrollToElementId", ""),
	}
	if zoom, ok := args["zoom"].(float64); ok {
		opts.Zoom = &zoom
	}
	if offsetX, ok := args["offsetX"].(float64); ok {
		opts.OffsetX = &offsetX
	}
	if offsetY, ok := args["offsetY"].(float64); ok {
		opts.OffsetY = &offsetY
	}

	message, err := g.canvas.SetViewport(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Viewport change failed: %v", err)), nil
	}
	if message == "" {
		message = "Viewport updated"
	}
	return mcp.NewToolResultText(message), nil
}

func (g *Gateway) handleExportToImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := request.GetString("format", "png")
	if format != "png" && format != "svg" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q (want png or svg)", format)), nil
	}
	background := request.GetBool("background", true)

	result, err := g.canvas.ExportImage(ctx, format, background)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Export failed: %v", err)), nil
	}

	if path := request.GetString("path", ""); path != "" {
		var data []byte
		if format == "svg" {
			data = []byte(result.Data)
		} else {
			data, err = base64.StdEncoding.DecodeString(result.Data)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Client returned malformed image data: %v", err)), nil
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to write %s: %v", path, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Wrote %s image to %s (%d bytes)", format, path, len(data))), nil
	}
	return jsonResult(map[string]interface{}{
		"format": result.Format,
		"data":   result.Data,
	}), nil
}

func (g *Gateway) handleGetCanvasScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := g.canvas.ExportImage(ctx, "png", true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Screenshot failed: %v", err)), nil
	}
	return mcp.NewToolResultImage("Canvas screenshot", result.Data, "image/png"), nil
}
