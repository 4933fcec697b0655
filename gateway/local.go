package gateway

import (
	"context"
	"net/url"

	"github.com/vellum-studio/vellum/canvas"
	"github.com/vellum-studio/vellum/server"
)

// LocalCanvas operates directly on an in-process canvas server. Store reads
// are immediate; mutations go through the server so they broadcast.
type LocalCanvas struct {
	srv *server.CanvasServer
}

func NewLocalCanvas(srv *server.CanvasServer) *LocalCanvas {
	return &LocalCanvas{srv: srv}
}

func (l *LocalCanvas) Scene(ctx context.Context) (*SceneDump, error) {
	store := l.srv.Store()
	return &SceneDump{
		Elements: store.List(),
		AppState: store.AppState(),
		Files:    store.Files(),
	}, nil
}

func (l *LocalCanvas) ListElements(ctx context.Context) ([]*canvas.Element, error) {
	return l.srv.Store().List(), nil
}

func (l *LocalCanvas) GetElement(ctx context.Context, id string) (*canvas.Element, error) {
	return l.srv.Store().Get(id)
}

func (l *LocalCanvas) SearchElements(ctx context.Context, query url.Values) ([]*canvas.Element, error) {
	return l.srv.Store().Search(canvas.ParseQuery(query)), nil
}

func (l *LocalCanvas) CreateElement(ctx context.Context, raw map[string]interface{}) (*canvas.Element, error) {
	return l.srv.CreateElement(raw)
}

func (l *LocalCanvas) CreateElements(ctx context.Context, raws []map[string]interface{}) ([]*canvas.Element, error) {
	return l.srv.CreateElements(raws)
}

func (l *LocalCanvas) UpdateElement(ctx context.Context, id string, updates map[string]interface{}) (*canvas.Element, error) {
	return l.srv.UpdateElement(id, updates)
}

func (l *LocalCanvas) DeleteElement(ctx context.Context, id string) error {
	return l.srv.DeleteElement(id)
}

func (l *LocalCanvas) ClearCanvas(ctx context.Context) (int, error) {
	return l.srv.ClearCanvas(), nil
}

func (l *LocalCanvas) SyncScene(ctx context.Context, raws []map[string]interface{}, appState, files map[string]interface{}) (int, int, error) {
	return l.srv.SyncScene(raws, appState, files)
}

func (l *LocalCanvas) TakeSnapshot(ctx context.Context, name string) (*SnapshotInfo, error) {
	snap := l.srv.TakeSnapshot(name)
	return &SnapshotInfo{
		Name:      snap.Name,
		Count:     len(snap.Elements),
		CreatedAt: snap.CreatedAt,
	}, nil
}

func (l *LocalCanvas) ListSnapshots(ctx context.Context) ([]*SnapshotInfo, error) {
	snapshots := l.srv.Store().SnapshotList()
	infos := make([]*SnapshotInfo, 0, len(snapshots))
	for _, snap := range snapshots {
		infos = append(infos, &SnapshotInfo{
			Name:      snap.Name,
			Count:     len(snap.Elements),
			CreatedAt: snap.CreatedAt,
		})
	}
	return infos, nil
}

func (l *LocalCanvas) RestoreSnapshot(ctx context.Context, name string) (int, error) {
	return l.srv.RestoreSnapshot(name)
}

func (l *LocalCanvas) ConvertMermaid(ctx context.Context, diagram string, config map[string]interface{}) ([]*canvas.Element, error) {
	return l.srv.ConvertMermaid(ctx, diagram, config)
}

func (l *LocalCanvas) ExportImage(ctx context.Context, format string, background bool) (*ExportResult, error) {
	payload, err := l.srv.ExportImage(ctx, format, background)
	if err != nil {
		return nil, err
	}
	result := &ExportResult{}
	result.Format, _ = payload["format"].(string)
	result.Data, _ = payload["data"].(string)
	return result, nil
}

func (l *LocalCanvas) SetViewport(ctx context.Context, opts server.ViewportOptions) (string, error) {
	payload, err := l.srv.SetViewport(ctx, opts)
	if err != nil {
		return "", err
	}
	message, _ := payload["message"].(string)
	return message, nil
}
