package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startWebSocketServer(t *testing.T, srv *CanvasServer) string {
	t.Helper()
	go srv.Run()
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
	t.Cleanup(func() {
		srv.cancel()
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	var frame map[string]interface{}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("frame is not JSON: %v", err)
	}
	return frame
}

// readFrameOfType consumes frames until one matches the wanted type.
// Interleaved canvas_sync frames from earlier mutations are skipped.
func readFrameOfType(t *testing.T, conn *websocket.Conn, want string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frame := readFrame(t, conn)
		if frame["type"] == want {
			return frame
		}
	}
	t.Fatalf("no %s frame arrived", want)
	return nil
}

// dialPeer connects and drains the three greeting frames.
func dialPeer(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	for i := 0; i < 3; i++ {
		readFrame(t, conn)
	}
	return conn
}

func waitForElementCount(t *testing.T, srv *CanvasServer, want int) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if srv.Store().Count() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("element count = %d, want %d", srv.Store().Count(), want)
}

// waitForPeerCount blocks until registration has landed on the hub, so a
// following broadcast cannot slip past a half-attached peer.
func waitForPeerCount(t *testing.T, srv *CanvasServer, want int) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if srv.PeerCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("peer count = %d, want %d", srv.PeerCount(), want)
}

func TestWebSocketGreetingOrder(t *testing.T) {
	srv := newTestServer()
	if _, err := srv.CreateElement(map[string]interface{}{"type": "rectangle"}); err != nil {
		t.Fatalf("seeding element: %v", err)
	}
	wsURL := startWebSocketServer(t, srv)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	first := readFrame(t, conn)
	if first["type"] != "initial_elements" {
		t.Fatalf("first frame type = %v, want initial_elements", first["type"])
	}
	if elements, ok := first["elements"].([]interface{}); !ok || len(elements) != 1 {
		t.Errorf("initial_elements carried %v elements, want 1", first["elements"])
	}

	second := readFrame(t, conn)
	if second["type"] != "sync_status" {
		t.Fatalf("second frame type = %v, want sync_status", second["type"])
	}
	if got := second["connectedClients"]; got != float64(1) {
		t.Errorf("connectedClients = %v, want 1", got)
	}

	third := readFrame(t, conn)
	if third["type"] != "canvas_sync" {
		t.Fatalf("third frame type = %v, want canvas_sync", third["type"])
	}
	data, ok := third["data"].(map[string]interface{})
	if !ok {
		t.Fatal("canvas_sync has no data object")
	}
	if elements, ok := data["elements"].([]interface{}); !ok || len(elements) != 1 {
		t.Errorf("canvas_sync carried %v elements, want 1", data["elements"])
	}
}

func TestWebSocketEchoSuppression(t *testing.T) {
	srv := newTestServer()
	wsURL := startWebSocketServer(t, srv)

	sender := dialPeer(t, wsURL)
	observer := dialPeer(t, wsURL)
	waitForPeerCount(t, srv, 2)

	create := map[string]interface{}{
		"type":    "element_created",
		"element": map[string]interface{}{"type": "rectangle", "x": 5},
	}
	if err := sender.WriteJSON(create); err != nil {
		t.Fatalf("sending mutation: %v", err)
	}

	frame := readFrameOfType(t, observer, "element_created")
	element, ok := frame["element"].(map[string]interface{})
	if !ok {
		t.Fatal("element_created carried no element")
	}
	if element["x"] != float64(5) {
		t.Errorf("element.x = %v, want 5", element["x"])
	}
	waitForElementCount(t, srv, 1)

	// The sender must not see its own mutation come back.
	sender.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := sender.ReadMessage(); err == nil {
		t.Error("sender received an echo of its own mutation")
	} else if netErr, ok := err.(net.Error); !ok || !netErr.Timeout() {
		t.Errorf("expected read timeout, got %v", err)
	}
}

func TestWebSocketInboundUpdateAndDelete(t *testing.T) {
	srv := newTestServer()
	wsURL := startWebSocketServer(t, srv)

	sender := dialPeer(t, wsURL)
	observer := dialPeer(t, wsURL)
	waitForPeerCount(t, srv, 2)

	sender.WriteJSON(map[string]interface{}{
		"type":    "element_created",
		"element": map[string]interface{}{"type": "ellipse"},
	})
	waitForElementCount(t, srv, 1)
	id := srv.Store().List()[0].ID

	sender.WriteJSON(map[string]interface{}{
		"type":    "element_updated",
		"id":      id,
		"updates": map[string]interface{}{"x": 55},
	})
	updated := readFrameOfType(t, observer, "element_updated")
	element, ok := updated["element"].(map[string]interface{})
	if !ok {
		t.Fatal("element_updated carried no element")
	}
	if element["x"] != float64(55) {
		t.Errorf("updated x = %v, want 55", element["x"])
	}

	sender.WriteJSON(map[string]interface{}{
		"type": "element_deleted",
		"id":   id,
	})
	deleted := readFrameOfType(t, observer, "element_deleted")
	if deleted["id"] != id {
		t.Errorf("deleted id = %v, want %s", deleted["id"], id)
	}
	waitForElementCount(t, srv, 0)
}

func TestWebSocketCanvasSyncReplacesScene(t *testing.T) {
	srv := newTestServer()
	if _, err := srv.CreateElement(map[string]interface{}{"type": "rectangle"}); err != nil {
		t.Fatalf("seeding element: %v", err)
	}
	wsURL := startWebSocketServer(t, srv)

	sender := dialPeer(t, wsURL)
	observer := dialPeer(t, wsURL)
	waitForPeerCount(t, srv, 2)

	sender.WriteJSON(map[string]interface{}{
		"type": "canvas_sync",
		"data": map[string]interface{}{
			"elements": []interface{}{
				map[string]interface{}{"type": "rectangle", "x": 0},
				map[string]interface{}{"type": "diamond", "x": 300},
			},
		},
	})

	synced := readFrameOfType(t, observer, "elements_synced")
	if synced["count"] != float64(2) {
		t.Errorf("elements_synced count = %v, want 2", synced["count"])
	}
	waitForElementCount(t, srv, 2)
}

func TestWebSocketUnknownTypeIgnored(t *testing.T) {
	srv := newTestServer()
	wsURL := startWebSocketServer(t, srv)

	sender := dialPeer(t, wsURL)
	sender.WriteJSON(map[string]interface{}{"type": "bogus", "payload": 1})

	// The connection survives and later mutations still apply.
	sender.WriteJSON(map[string]interface{}{
		"type":    "element_created",
		"element": map[string]interface{}{"type": "rectangle"},
	})
	waitForElementCount(t, srv, 1)
}
