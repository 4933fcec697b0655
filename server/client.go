package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Inbound frame budget per peer. Bursts cover scene syncs that arrive
	// as rapid element streams.
	inboundRate  = 120
	inboundBurst = 240
)

// Peer is a connected WebSocket client, normally the canvas editor.
type Peer struct {
	server *CanvasServer
	conn   *websocket.Conn
	send   chan []byte
	id     string

	limiter   *rate.Limiter
	closeOnce sync.Once
}

func newPeer(s *CanvasServer, conn *websocket.Conn) *Peer {
	return &Peer{
		server:  s,
		conn:    conn,
		send:    make(chan []byte, MaxPeerMessageQueueSize),
		id:      fmt.Sprintf("%s_%d", conn.RemoteAddr().String(), time.Now().UnixNano()),
		limiter: rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
	}
}

// close shuts the send channel exactly once, releasing writePump.
func (p *Peer) close() {
	p.closeOnce.Do(func() {
		close(p.send)
	})
}

// readPump reads inbound frames from the peer and applies them to the
// scene. Mutations re-broadcast to every other peer. Runs in its own
// goroutine per connection.
func (p *Peer) readPump() {
	defer func() {
		p.server.unregister <- p
		p.conn.Close()
	}()

	p.conn.SetReadLimit(p.server.cfg.EffectiveMaxBodyBytes())
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				p.server.logger.Errorw("Peer connection error",
					"peer_id", p.id,
					"error", err,
				)
			}
			return
		}

		if !p.limiter.Allow() {
			p.server.logger.Warnw("Peer message rate exceeded, dropping frame",
				"peer_id", p.id,
			)
			continue
		}

		var msg PeerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			p.server.logger.Warnw("Malformed peer frame",
				"peer_id", p.id,
				"error", err,
			)
			continue
		}

		p.server.handlePeerMessage(p, &msg)
	}
}

// writePump forwards queued frames to the peer and keeps the connection
// alive with pings. Runs in its own goroutine per connection.
func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case data, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-p.server.ctx.Done():
			return
		}
	}
}

// handlePeerMessage routes one inbound frame. The sending peer is excluded
// from the resulting broadcasts so it never echoes its own mutation back.
func (s *CanvasServer) handlePeerMessage(p *Peer, msg *PeerMessage) {
	switch msg.Type {
	case "canvas_sync":
		if msg.Data == nil {
			s.logger.Warnw("canvas_sync frame without data", "peer_id", p.id)
			return
		}
		if _, _, err := s.syncScene(msg.Data.Elements, msg.Data.AppState, msg.Data.Files, p); err != nil {
			s.logger.Warnw("Rejected canvas_sync from peer",
				"peer_id", p.id,
				"error", err,
			)
		}

	case "element_created":
		if msg.Element == nil {
			s.logger.Warnw("element_created frame without element", "peer_id", p.id)
			return
		}
		if _, err := s.createElement(msg.Element, p); err != nil {
			s.logger.Warnw("Rejected element from peer",
				"peer_id", p.id,
				"error", err,
			)
		}

	case "element_updated":
		if msg.ID == "" || msg.Updates == nil {
			s.logger.Warnw("element_updated frame missing id or updates", "peer_id", p.id)
			return
		}
		if _, err := s.updateElement(msg.ID, msg.Updates, p); err != nil {
			s.logger.Debugw("Peer updated unknown element",
				"peer_id", p.id,
				"element_id", msg.ID,
				"error", err,
			)
		}

	case "element_deleted":
		if msg.ID == "" {
			s.logger.Warnw("element_deleted frame without id", "peer_id", p.id)
			return
		}
		if err := s.deleteElement(msg.ID, p); err != nil {
			s.logger.Debugw("Peer deleted unknown element",
				"peer_id", p.id,
				"element_id", msg.ID,
			)
		}

	default:
		s.logger.Debugw("Unknown peer frame type",
			"peer_id", p.id,
			"type", msg.Type,
		)
	}
}

// HandleWebSocket upgrades the connection and attaches a peer. The peer
// receives the current scene synchronously, in order, before any broadcast
// can reach it: initial_elements, then sync_status, then canvas_sync.
func (s *CanvasServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if ServerState(s.state.Load()) != ServerStateRunning {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("WebSocket upgrade failed", "error", err)
		return
	}

	peer := newPeer(s, conn)

	// The count reported to the new peer includes itself even though
	// registration has not happened yet.
	greeting := []interface{}{
		s.initialElementsFrame(),
		s.syncStatusFrame(s.PeerCount() + 1),
		s.canvasSyncFrame(),
	}
	for _, frame := range greeting {
		if err := conn.WriteJSON(frame); err != nil {
			s.logger.Errorw("Failed to send initial state to peer",
				"peer_id", peer.id,
				"error", err,
			)
			conn.Close()
			return
		}
	}

	s.register <- peer

	go peer.writePump()
	go peer.readPump()
}
