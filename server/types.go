package server

import (
	"time"

	"github.com/vellum-studio/vellum/canvas"
)

const (
	// MaxPeerMessageQueueSize is the size of per-peer outbound queues
	MaxPeerMessageQueueSize = 256
	// ShutdownTimeout is how long to wait for graceful shutdown
	ShutdownTimeout = 10 * time.Second
)

// ServerState represents the server lifecycle state
type ServerState int

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

// Outbound frame types form a closed set. Every frame carries a `type` tag
// and a millisecond timestamp.

// InitialElementsFrame is the first frame a freshly attached peer receives.
type InitialElementsFrame struct {
	Type      string            `json:"type"` // "initial_elements"
	Elements  []*canvas.Element `json:"elements"`
	Timestamp int64             `json:"timestamp"`
}

// SyncStatusFrame reports peer cardinality, sent on attach.
type SyncStatusFrame struct {
	Type             string `json:"type"` // "sync_status"
	ConnectedClients int    `json:"connectedClients"`
	ElementCount     int    `json:"elementCount"`
	Timestamp        int64  `json:"timestamp"`
}

// ScenePayload is the full scene carried by canvas_sync frames.
type ScenePayload struct {
	Elements []*canvas.Element      `json:"elements"`
	AppState map[string]interface{} `json:"appState"`
	Files    map[string]interface{} `json:"files"`
}

// CanvasSyncFrame carries the full scene after every mutation.
type CanvasSyncFrame struct {
	Type      string        `json:"type"` // "canvas_sync"
	Data      *ScenePayload `json:"data"`
	Timestamp int64         `json:"timestamp"`
}

// ElementCreatedFrame announces a single new element.
type ElementCreatedFrame struct {
	Type      string          `json:"type"` // "element_created"
	Element   *canvas.Element `json:"element"`
	Timestamp int64           `json:"timestamp"`
}

// ElementUpdatedFrame carries the full post-patch element.
type ElementUpdatedFrame struct {
	Type      string          `json:"type"` // "element_updated"
	Element   *canvas.Element `json:"element"`
	Timestamp int64           `json:"timestamp"`
}

// ElementDeletedFrame announces a removal by id.
type ElementDeletedFrame struct {
	Type      string `json:"type"` // "element_deleted"
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// ElementsBatchCreatedFrame announces a batch insert.
type ElementsBatchCreatedFrame struct {
	Type      string            `json:"type"` // "elements_batch_created"
	Elements  []*canvas.Element `json:"elements"`
	Count     int               `json:"count"`
	Timestamp int64             `json:"timestamp"`
}

// ElementsSyncedFrame announces a full scene replacement.
type ElementsSyncedFrame struct {
	Type      string `json:"type"` // "elements_synced"
	Count     int    `json:"count"`
	Timestamp int64  `json:"timestamp"`
}

// CanvasClearedFrame announces the scene was emptied.
type CanvasClearedFrame struct {
	Type      string `json:"type"` // "canvas_cleared"
	Removed   int    `json:"removed"`
	Timestamp int64  `json:"timestamp"`
}

// MermaidConvertFrame asks the editor peer to convert a mermaid diagram.
type MermaidConvertFrame struct {
	Type           string                 `json:"type"` // "mermaid_convert"
	RequestID      string                 `json:"requestId"`
	MermaidDiagram string                 `json:"mermaidDiagram"`
	Config         map[string]interface{} `json:"config,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
}

// ExportImageRequestFrame asks the editor peer to render the scene.
type ExportImageRequestFrame struct {
	Type       string `json:"type"` // "export_image_request"
	RequestID  string `json:"requestId"`
	Format     string `json:"format"`
	Background bool   `json:"background"`
	Timestamp  int64  `json:"timestamp"`
}

// SetViewportFrame asks the editor peer to move its viewport.
type SetViewportFrame struct {
	Type              string   `json:"type"` // "set_viewport"
	RequestID         string   `json:"requestId"`
	ScrollToContent   bool     `json:"scrollToContent,omitempty"`
	ScrollToElementID string   `json:"scrollToElementId,omitempty"`
	Zoom              *float64 `json:"zoom,omitempty"`
	OffsetX           *float64 `json:"offsetX,omitempty"`
	OffsetY           *float64 `json:"offsetY,omitempty"`
	Timestamp         int64    `json:"timestamp"`
}

// SnapshotFrame announces a named snapshot was taken.
type SnapshotFrame struct {
	Type      string `json:"type"` // "snapshot"
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Timestamp int64  `json:"timestamp"`
}

// PeerMessage is the inbound WebSocket message envelope. Field usage depends
// on the type tag: canvas_sync carries Data, element_created carries
// Element, element_updated carries ID+Updates, element_deleted carries ID.
type PeerMessage struct {
	Type    string                 `json:"type"`
	Data    *InboundScene          `json:"data"`
	Element map[string]interface{} `json:"element"`
	ID      string                 `json:"id"`
	Updates map[string]interface{} `json:"updates"`
}

// InboundScene is the scene shape the editor sends with canvas_sync.
type InboundScene struct {
	Elements []map[string]interface{} `json:"elements"`
	AppState map[string]interface{}   `json:"appState"`
	Files    map[string]interface{}   `json:"files"`
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
