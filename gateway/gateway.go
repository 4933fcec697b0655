package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/vellum-studio/vellum/logger"
	"github.com/vellum-studio/vellum/version"
)

// Gateway assembles the canvas tool catalogue on an MCP server. The closed
// set of tools is registered once at construction; hosting is the caller's
// choice between HTTP and stdio.
type Gateway struct {
	canvas Canvas
	mcp    *server.MCPServer
	logger *zap.SugaredLogger
}

// New builds the gateway over a canvas binding.
func New(canvas Canvas) *Gateway {
	g := &Gateway{
		canvas: canvas,
		logger: logger.Logger,
	}

	g.mcp = server.NewMCPServer(
		"vellum-canvas",
		version.Version,
		server.WithToolCapabilities(true),
	)

	g.registerElementTools()
	g.registerLayoutTools()
	g.registerSceneTools()
	g.registerCorrelatedTools()

	return g
}

// MCPServer exposes the underlying server for custom hosting.
func (g *Gateway) MCPServer() *server.MCPServer {
	return g.mcp
}

// HTTPHandler hosts the catalogue over the stateless streamable HTTP
// transport, suitable for mounting at /mcp.
func (g *Gateway) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(g.mcp, server.WithStateLess(true))
}

// ServeStdio blocks serving the catalogue over stdin/stdout.
func (g *Gateway) ServeStdio() error {
	return server.ServeStdio(g.mcp)
}

// jsonResult renders a payload as an indented JSON text result.
func jsonResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// argumentsMap returns the raw call arguments, never nil.
func argumentsMap(request mcp.CallToolRequest) map[string]interface{} {
	args := request.GetArguments()
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// elementMaps coerces a JSON array argument into raw element maps.
func elementMaps(value interface{}) ([]map[string]interface{}, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("elements must be an array")
	}
	raws := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		raw, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("element %d is not an object", i)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// idList coerces a JSON array argument into element ids.
func idList(value interface{}) ([]string, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("ids must be an array of strings")
	}
	ids := make([]string, 0, len(items))
	for i, item := range items {
		id, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("id %d is not a string", i)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
