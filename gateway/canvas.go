// Package gateway exposes the canvas over the Model Context Protocol. The
// same tool catalogue runs in two places: inside the canvas server process
// mounted at /mcp, and in the stdio agent talking to the server over REST.
package gateway

import (
	"context"
	"net/url"

	"github.com/vellum-studio/vellum/canvas"
	"github.com/vellum-studio/vellum/server"
)

// Canvas is the surface the tool handlers operate on. LocalCanvas binds it
// to an in-process server, RemoteCanvas to a REST endpoint.
type Canvas interface {
	Scene(ctx context.Context) (*SceneDump, error)
	ListElements(ctx context.Context) ([]*canvas.Element, error)
	GetElement(ctx context.Context, id string) (*canvas.Element, error)
	SearchElements(ctx context.Context, query url.Values) ([]*canvas.Element, error)

	CreateElement(ctx context.Context, raw map[string]interface{}) (*canvas.Element, error)
	CreateElements(ctx context.Context, raws []map[string]interface{}) ([]*canvas.Element, error)
	UpdateElement(ctx context.Context, id string, updates map[string]interface{}) (*canvas.Element, error)
	DeleteElement(ctx context.Context, id string) error
	ClearCanvas(ctx context.Context) (int, error)
	SyncScene(ctx context.Context, raws []map[string]interface{}, appState, files map[string]interface{}) (before, after int, err error)

	TakeSnapshot(ctx context.Context, name string) (*SnapshotInfo, error)
	ListSnapshots(ctx context.Context) ([]*SnapshotInfo, error)
	RestoreSnapshot(ctx context.Context, name string) (int, error)

	ConvertMermaid(ctx context.Context, diagram string, config map[string]interface{}) ([]*canvas.Element, error)
	ExportImage(ctx context.Context, format string, background bool) (*ExportResult, error)
	SetViewport(ctx context.Context, opts server.ViewportOptions) (string, error)
}

// SceneDump is the full canvas state.
type SceneDump struct {
	Elements []*canvas.Element      `json:"elements"`
	AppState map[string]interface{} `json:"appState"`
	Files    map[string]interface{} `json:"files"`
}

// SnapshotInfo describes a named snapshot without carrying its elements.
type SnapshotInfo struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	CreatedAt string `json:"createdAt"`
}

// ExportResult is a rendered scene image: base64 for png, raw markup for
// svg.
type ExportResult struct {
	Format string `json:"format"`
	Data   string `json:"data"`
}
