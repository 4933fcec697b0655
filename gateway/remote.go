package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vellum-studio/vellum/canvas"
	"github.com/vellum-studio/vellum/errors"
	"github.com/vellum-studio/vellum/server"
)

// RemoteCanvas drives a canvas server over its REST surface. Used by the
// stdio agent, which runs in its own process and finds the server through
// CANVAS_SERVER_URL.
type RemoteCanvas struct {
	baseURL string
	client  *http.Client
}

// NewRemoteCanvas points a client at a canvas server base URL. The HTTP
// timeout exceeds every correlated deadline so server-side timeouts surface
// as proper errors instead of transport failures.
func NewRemoteCanvas(baseURL string) *RemoteCanvas {
	return &RemoteCanvas{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *RemoteCanvas) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrUnavailable, "canvas server unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return remoteError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

// remoteError rebuilds a domain error from the server's failure envelope so
// callers can keep using the errors.IsX helpers across the process
// boundary.
func remoteError(resp *http.Response) error {
	var envelope struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&envelope)
	message := envelope.Error
	if message == "" {
		message = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return errors.NewInvalidArgumentf("%s", message)
	case http.StatusNotFound:
		return errors.NewNotFoundf("%s", message)
	case http.StatusServiceUnavailable:
		return errors.Wrapf(errors.ErrUnavailable, "%s", message)
	default:
		return errors.Newf("canvas server error: %s", message)
	}
}

func (r *RemoteCanvas) Scene(ctx context.Context) (*SceneDump, error) {
	var dump SceneDump
	if err := r.do(ctx, http.MethodGet, "/canvas", nil, &dump); err != nil {
		return nil, err
	}
	return &dump, nil
}

func (r *RemoteCanvas) ListElements(ctx context.Context) ([]*canvas.Element, error) {
	var resp struct {
		Elements []*canvas.Element `json:"elements"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/elements", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Elements, nil
}

func (r *RemoteCanvas) GetElement(ctx context.Context, id string) (*canvas.Element, error) {
	var resp struct {
		Element *canvas.Element `json:"element"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/elements/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Element, nil
}

func (r *RemoteCanvas) SearchElements(ctx context.Context, query url.Values) ([]*canvas.Element, error) {
	var resp struct {
		Elements []*canvas.Element `json:"elements"`
	}
	path := "/api/elements/search"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	if err := r.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Elements, nil
}

func (r *RemoteCanvas) CreateElement(ctx context.Context, raw map[string]interface{}) (*canvas.Element, error) {
	var resp struct {
		Element *canvas.Element `json:"element"`
	}
	if err := r.do(ctx, http.MethodPost, "/api/elements", raw, &resp); err != nil {
		return nil, err
	}
	return resp.Element, nil
}

func (r *RemoteCanvas) CreateElements(ctx context.Context, raws []map[string]interface{}) ([]*canvas.Element, error) {
	var resp struct {
		Elements []*canvas.Element `json:"elements"`
	}
	body := map[string]interface{}{"elements": raws}
	if err := r.do(ctx, http.MethodPost, "/api/elements/batch", body, &resp); err != nil {
		return nil, err
	}
	return resp.Elements, nil
}

func (r *RemoteCanvas) UpdateElement(ctx context.Context, id string, updates map[string]interface{}) (*canvas.Element, error) {
	var resp struct {
		Element *canvas.Element `json:"element"`
	}
	if err := r.do(ctx, http.MethodPut, "/api/elements/"+url.PathEscape(id), updates, &resp); err != nil {
		return nil, err
	}
	return resp.Element, nil
}

func (r *RemoteCanvas) DeleteElement(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, "/api/elements/"+url.PathEscape(id), nil, nil)
}

func (r *RemoteCanvas) ClearCanvas(ctx context.Context) (int, error) {
	var resp struct {
		Removed int `json:"removed"`
	}
	if err := r.do(ctx, http.MethodDelete, "/api/elements/clear", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (r *RemoteCanvas) SyncScene(ctx context.Context, raws []map[string]interface{}, appState, files map[string]interface{}) (int, int, error) {
	var resp struct {
		BeforeCount int `json:"beforeCount"`
		AfterCount  int `json:"afterCount"`
	}
	body := map[string]interface{}{"elements": raws}
	if appState != nil {
		body["appState"] = appState
	}
	if files != nil {
		body["files"] = files
	}
	if err := r.do(ctx, http.MethodPost, "/api/elements/sync", body, &resp); err != nil {
		return 0, 0, err
	}
	return resp.BeforeCount, resp.AfterCount, nil
}

func (r *RemoteCanvas) TakeSnapshot(ctx context.Context, name string) (*SnapshotInfo, error) {
	var info SnapshotInfo
	body := map[string]interface{}{"name": name}
	if err := r.do(ctx, http.MethodPost, "/api/snapshots", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *RemoteCanvas) ListSnapshots(ctx context.Context) ([]*SnapshotInfo, error) {
	var resp struct {
		Snapshots []*SnapshotInfo `json:"snapshots"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/snapshots", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Snapshots, nil
}

// RestoreSnapshot has no dedicated REST route, so it composes two: fetch
// the snapshot's elements, then replace the scene with them.
func (r *RemoteCanvas) RestoreSnapshot(ctx context.Context, name string) (int, error) {
	var resp struct {
		Snapshot struct {
			Elements []map[string]interface{} `json:"elements"`
		} `json:"snapshot"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/snapshots/"+url.PathEscape(name), nil, &resp); err != nil {
		return 0, err
	}

	_, after, err := r.SyncScene(ctx, resp.Snapshot.Elements, nil, nil)
	if err != nil {
		return 0, err
	}
	return after, nil
}

func (r *RemoteCanvas) ConvertMermaid(ctx context.Context, diagram string, config map[string]interface{}) ([]*canvas.Element, error) {
	var resp struct {
		Elements []*canvas.Element `json:"elements"`
	}
	body := map[string]interface{}{"mermaidDiagram": diagram}
	if config != nil {
		body["config"] = config
	}
	if err := r.do(ctx, http.MethodPost, "/api/elements/from-mermaid", body, &resp); err != nil {
		return nil, err
	}
	return resp.Elements, nil
}

func (r *RemoteCanvas) ExportImage(ctx context.Context, format string, background bool) (*ExportResult, error) {
	var result ExportResult
	body := map[string]interface{}{"format": format, "background": background}
	if err := r.do(ctx, http.MethodPost, "/api/export/image", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *RemoteCanvas) SetViewport(ctx context.Context, opts server.ViewportOptions) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := r.do(ctx, http.MethodPost, "/api/viewport", opts, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
