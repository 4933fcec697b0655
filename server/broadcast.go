package server

// This file contains the broadcast fan-out for WebSocket peers. Frames are
// serialized once per broadcast and queued per-peer; a peer whose queue is
// full is dropped silently so one congested transport never stalls the rest.

import (
	"encoding/json"
)

// Broadcast serializes the frame once and fans it out to every attached
// peer. Returns the number of peers that accepted the frame.
func (s *CanvasServer) Broadcast(frame interface{}) int {
	return s.BroadcastExcept(frame, nil)
}

// BroadcastExcept fans out to every peer except the excluded one. Exclusion
// is by peer handle identity, which is how inbound WebSocket mutations avoid
// echoing back to their sender.
func (s *CanvasServer) BroadcastExcept(frame interface{}, exclude *Peer) int {
	data, err := json.Marshal(frame)
	if err != nil {
		s.logger.Errorw("Failed to serialize broadcast frame", "error", err)
		return 0
	}

	s.mu.RLock()
	peers := make([]*Peer, 0, len(s.peers))
	for peer := range s.peers {
		if peer != exclude {
			peers = append(peers, peer)
		}
	}
	s.mu.RUnlock()

	sent := 0
	for _, peer := range peers {
		select {
		case peer.send <- data:
			sent++
		default:
			s.broadcastDrops.Add(1)
			s.removeSlowPeer(peer)
		}
	}
	return sent
}

func (s *CanvasServer) initialElementsFrame() *InitialElementsFrame {
	return &InitialElementsFrame{
		Type:      "initial_elements",
		Elements:  s.store.List(),
		Timestamp: nowMillis(),
	}
}

func (s *CanvasServer) syncStatusFrame(connectedClients int) *SyncStatusFrame {
	return &SyncStatusFrame{
		Type:             "sync_status",
		ConnectedClients: connectedClients,
		ElementCount:     s.store.Count(),
		Timestamp:        nowMillis(),
	}
}

func (s *CanvasServer) canvasSyncFrame() *CanvasSyncFrame {
	return &CanvasSyncFrame{
		Type: "canvas_sync",
		Data: &ScenePayload{
			Elements: s.store.List(),
			AppState: s.store.AppState(),
			Files:    s.store.Files(),
		},
		Timestamp: nowMillis(),
	}
}

// broadcastCanvasSync pushes the full post-mutation scene to every peer.
// Mutation endpoints call this before writing their HTTP acknowledgement.
func (s *CanvasServer) broadcastCanvasSync() {
	s.Broadcast(s.canvasSyncFrame())
}

func (s *CanvasServer) broadcastCanvasSyncExcept(exclude *Peer) {
	s.BroadcastExcept(s.canvasSyncFrame(), exclude)
}
