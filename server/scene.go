package server

// Scene operations shared by the REST facade, the WebSocket facade, and the
// tool gateway. Every mutation applies to the store first, then broadcasts
// its specific frame followed by a full canvas_sync, so peers converge
// before the caller is acknowledged. The exclude parameter suppresses the
// echo for mutations that arrived over WebSocket.

import (
	"context"

	"github.com/vellum-studio/vellum/canvas"
	"github.com/vellum-studio/vellum/errors"
	"github.com/vellum-studio/vellum/relay"
)

// CreateElement admits one raw element, resolves arrow bindings against the
// live scene, stores it, and broadcasts.
func (s *CanvasServer) CreateElement(raw map[string]interface{}) (*canvas.Element, error) {
	return s.createElement(raw, nil)
}

func (s *CanvasServer) createElement(raw map[string]interface{}, exclude *Peer) (*canvas.Element, error) {
	el, err := canvas.Normalize(raw)
	if err != nil {
		return nil, err
	}

	canvas.ResolveBindings([]*canvas.Element{el}, s.store.List())
	s.store.Put(el)

	s.BroadcastExcept(&ElementCreatedFrame{
		Type:      "element_created",
		Element:   el,
		Timestamp: nowMillis(),
	}, exclude)
	s.broadcastCanvasSyncExcept(exclude)

	s.logger.Infow("Element created",
		"element_id", el.ID,
		"element_type", el.Type,
	)
	return el, nil
}

// CreateElements admits a batch atomically: every element normalizes or none
// is stored. Bindings resolve across the whole batch so intra-batch arrow
// references connect.
func (s *CanvasServer) CreateElements(raws []map[string]interface{}) ([]*canvas.Element, error) {
	return s.createElements(raws, nil)
}

func (s *CanvasServer) createElements(raws []map[string]interface{}, exclude *Peer) ([]*canvas.Element, error) {
	batch := make([]*canvas.Element, 0, len(raws))
	for i, raw := range raws {
		el, err := canvas.Normalize(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		batch = append(batch, el)
	}

	canvas.ResolveBindings(batch, s.store.List())
	s.store.PutBatch(batch)

	s.BroadcastExcept(&ElementsBatchCreatedFrame{
		Type:      "elements_batch_created",
		Elements:  batch,
		Count:     len(batch),
		Timestamp: nowMillis(),
	}, exclude)
	s.broadcastCanvasSyncExcept(exclude)

	s.logger.Infow("Element batch created", "count", len(batch))
	return batch, nil
}

// UpdateElement merges a delta onto a stored element and broadcasts the
// post-patch state.
func (s *CanvasServer) UpdateElement(id string, updates map[string]interface{}) (*canvas.Element, error) {
	return s.updateElement(id, updates, nil)
}

func (s *CanvasServer) updateElement(id string, updates map[string]interface{}, exclude *Peer) (*canvas.Element, error) {
	el, err := s.store.Patch(id, updates)
	if err != nil {
		return nil, err
	}

	s.BroadcastExcept(&ElementUpdatedFrame{
		Type:      "element_updated",
		Element:   el,
		Timestamp: nowMillis(),
	}, exclude)
	s.broadcastCanvasSyncExcept(exclude)
	return el, nil
}

// DeleteElement removes an element by id.
func (s *CanvasServer) DeleteElement(id string) error {
	return s.deleteElement(id, nil)
}

func (s *CanvasServer) deleteElement(id string, exclude *Peer) error {
	if !s.store.Delete(id) {
		return errors.NewNotFoundf("element %s", id)
	}

	s.BroadcastExcept(&ElementDeletedFrame{
		Type:      "element_deleted",
		ID:        id,
		Timestamp: nowMillis(),
	}, exclude)
	s.broadcastCanvasSyncExcept(exclude)

	s.logger.Infow("Element deleted", "element_id", id)
	return nil
}

// ClearCanvas empties the scene and reports how many elements were removed.
func (s *CanvasServer) ClearCanvas() int {
	removed := s.store.Clear()

	s.Broadcast(&CanvasClearedFrame{
		Type:      "canvas_cleared",
		Removed:   removed,
		Timestamp: nowMillis(),
	})
	s.broadcastCanvasSync()

	s.logger.Infow("Canvas cleared", "removed", removed)
	return removed
}

// SyncScene replaces the live scene with the provided ordered list. Used by
// the sync endpoint and by inbound canvas_sync frames, where the editor is
// the source of truth. A nil appState or files leaves the stored one alone.
func (s *CanvasServer) SyncScene(raws []map[string]interface{}, appState, files map[string]interface{}) (before, after int, err error) {
	return s.syncScene(raws, appState, files, nil)
}

func (s *CanvasServer) syncScene(raws []map[string]interface{}, appState, files map[string]interface{}, exclude *Peer) (before, after int, err error) {
	elements := make([]*canvas.Element, 0, len(raws))
	for i, raw := range raws {
		el, normErr := canvas.Normalize(raw)
		if normErr != nil {
			return 0, 0, errors.Wrapf(normErr, "element %d", i)
		}
		elements = append(elements, el)
	}

	before = s.store.Count()
	s.store.Replace(elements)
	after = s.store.Count()

	if appState != nil {
		s.store.SetAppState(appState)
	}
	if files != nil {
		s.store.SetFiles(files)
	}

	s.BroadcastExcept(&ElementsSyncedFrame{
		Type:      "elements_synced",
		Count:     after,
		Timestamp: nowMillis(),
	}, exclude)
	s.broadcastCanvasSyncExcept(exclude)

	s.logger.Infow("Scene synced",
		"before_count", before,
		"after_count", after,
	)
	return before, after, nil
}

// TakeSnapshot captures the live scene under a name, overwriting any
// previous snapshot with the same name.
func (s *CanvasServer) TakeSnapshot(name string) *canvas.Snapshot {
	snap := s.store.SnapshotCreate(name)

	s.Broadcast(&SnapshotFrame{
		Type:      "snapshot",
		Name:      name,
		Count:     len(snap.Elements),
		Timestamp: nowMillis(),
	})

	s.logger.Infow("Snapshot created",
		"name", name,
		"count", len(snap.Elements),
	)
	return snap
}

// RestoreSnapshot replaces the live scene with a named snapshot's elements.
func (s *CanvasServer) RestoreSnapshot(name string) (int, error) {
	count, err := s.store.SnapshotRestore(name)
	if err != nil {
		return 0, err
	}

	s.broadcastCanvasSync()

	s.logger.Infow("Snapshot restored",
		"name", name,
		"count", count,
	)
	return count, nil
}

// ConvertMermaid asks a connected editor peer to convert a mermaid diagram
// into elements. Blocks until the peer answers or the deadline fires. The
// returned elements have already been admitted into the scene by the result
// endpoint.
func (s *CanvasServer) ConvertMermaid(ctx context.Context, diagram string, cfg map[string]interface{}) ([]*canvas.Element, error) {
	if s.PeerCount() == 0 {
		return nil, errors.Wrap(errors.ErrUnavailable, "Frontend client not connected")
	}

	id, waiter := s.correlator.Issue(relay.KindMermaid, s.cfg.Correlate.MermaidTimeout())

	s.Broadcast(&MermaidConvertFrame{
		Type:           "mermaid_convert",
		RequestID:      id,
		MermaidDiagram: diagram,
		Config:         cfg,
		Timestamp:      nowMillis(),
	})

	select {
	case res := <-waiter:
		if res.Err != nil {
			return nil, res.Err
		}
		elements, _ := res.Payload["elements"].([]*canvas.Element)
		return elements, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "mermaid conversion interrupted")
	}
}

// DeliverMermaidResult handles the editor's answer to a mermaid_convert
// frame. Converted elements are admitted into the scene here, so the
// original caller receives stored elements. Returns false when the request
// id is no longer pending.
func (s *CanvasServer) DeliverMermaidResult(requestID string, raws []map[string]interface{}, peerErr string) bool {
	if peerErr != "" {
		return s.correlator.Fail(requestID, errors.New(peerErr))
	}

	elements, err := s.CreateElements(raws)
	if err != nil {
		return s.correlator.Fail(requestID, err)
	}

	return s.correlator.Resolve(requestID, map[string]interface{}{
		"elements": elements,
	})
}

// ViewportOptions mirrors the viewport request body. Pointer fields
// distinguish absent from zero.
type ViewportOptions struct {
	ScrollToContent   bool     `json:"scrollToContent"`
	ScrollToElementID string   `json:"scrollToElementId"`
	Zoom              *float64 `json:"zoom"`
	OffsetX           *float64 `json:"offsetX"`
	OffsetY           *float64 `json:"offsetY"`
}

// ExportImage asks a connected editor peer to render the scene. Returns the
// peer payload carrying format and data (base64 png or SVG markup).
func (s *CanvasServer) ExportImage(ctx context.Context, format string, background bool) (map[string]interface{}, error) {
	if s.PeerCount() == 0 {
		return nil, errors.Wrap(errors.ErrUnavailable, "Frontend client not connected")
	}

	id, waiter := s.correlator.Issue(relay.KindExportImage, s.cfg.Correlate.ExportTimeout())

	s.Broadcast(&ExportImageRequestFrame{
		Type:       "export_image_request",
		RequestID:  id,
		Format:     format,
		Background: background,
		Timestamp:  nowMillis(),
	})

	select {
	case res := <-waiter:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Payload, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "image export interrupted")
	}
}

// DeliverExportResult handles the editor's answer to an export_image_request
// frame. Returns false when the request id is no longer pending.
func (s *CanvasServer) DeliverExportResult(requestID, format, data, peerErr string) bool {
	if peerErr != "" {
		return s.correlator.Fail(requestID, errors.New(peerErr))
	}
	return s.correlator.Resolve(requestID, map[string]interface{}{
		"format": format,
		"data":   data,
	})
}

// SetViewport asks a connected editor peer to move its viewport.
func (s *CanvasServer) SetViewport(ctx context.Context, opts ViewportOptions) (map[string]interface{}, error) {
	if s.PeerCount() == 0 {
		return nil, errors.Wrap(errors.ErrUnavailable, "Frontend client not connected")
	}

	id, waiter := s.correlator.Issue(relay.KindViewport, s.cfg.Correlate.ViewportTimeout())

	s.Broadcast(&SetViewportFrame{
		Type:              "set_viewport",
		RequestID:         id,
		ScrollToContent:   opts.ScrollToContent,
		ScrollToElementID: opts.ScrollToElementID,
		Zoom:              opts.Zoom,
		OffsetX:           opts.OffsetX,
		OffsetY:           opts.OffsetY,
		Timestamp:         nowMillis(),
	})

	select {
	case res := <-waiter:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Payload, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "viewport change interrupted")
	}
}

// DeliverViewportResult handles the editor's answer to a set_viewport frame.
func (s *CanvasServer) DeliverViewportResult(requestID string, success bool, message, peerErr string) bool {
	if peerErr != "" {
		return s.correlator.Fail(requestID, errors.New(peerErr))
	}
	return s.correlator.Resolve(requestID, map[string]interface{}{
		"success": success,
		"message": message,
	})
}
