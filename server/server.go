package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vellum-studio/vellum/canvas"
	"github.com/vellum-studio/vellum/config"
	"github.com/vellum-studio/vellum/logger"
	"github.com/vellum-studio/vellum/relay"
)

// CanvasServer hosts the scene store, the WebSocket broadcast hub, and the
// HTTP surfaces. One instance per process.
type CanvasServer struct {
	store      *canvas.Store
	correlator *relay.Correlator
	cfg        *config.Config

	peers      map[*Peer]bool
	register   chan *Peer
	unregister chan *Peer
	mu         sync.RWMutex

	logger     *zap.SugaredLogger
	mcpHandler http.Handler // mounted at /mcp when set before Start

	httpServer *http.Server
	startedAt  time.Time
	actualPort atomic.Int32

	// Lifecycle management
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	broadcastDrops atomic.Int64
	state          atomic.Int32
}

// NewCanvasServer creates a server around a fresh scene store.
func NewCanvasServer(cfg *config.Config) *CanvasServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &CanvasServer{
		store:      canvas.NewStore(),
		correlator: relay.NewCorrelator(),
		cfg:        cfg,
		peers:      make(map[*Peer]bool),
		register:   make(chan *Peer),
		unregister: make(chan *Peer),
		logger:     logger.Logger,
		startedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Store exposes the scene store for read paths and the tool gateway.
func (s *CanvasServer) Store() *canvas.Store {
	return s.store
}

// Correlator exposes the pending-request map for the result endpoints.
func (s *CanvasServer) Correlator() *relay.Correlator {
	return s.correlator
}

// Port reports the port actually bound, which can differ from the
// configured one when it was taken.
func (s *CanvasServer) Port() int {
	return int(s.actualPort.Load())
}

// SetMCPHandler mounts a JSON-RPC tool handler at /mcp. Must be called
// before Start.
func (s *CanvasServer) SetMCPHandler(h http.Handler) {
	s.mcpHandler = h
}

// PeerCount returns the number of attached WebSocket peers.
func (s *CanvasServer) PeerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Run starts the hub event loop that owns peer membership.
func (s *CanvasServer) Run() {
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debugw("Server hub stopping due to context cancellation")
			return
		case peer := <-s.register:
			s.handlePeerRegister(peer)
		case peer := <-s.unregister:
			s.handlePeerUnregister(peer)
		}
	}
}

// handlePeerRegister admits a new peer into the broadcast set
func (s *CanvasServer) handlePeerRegister(peer *Peer) {
	s.mu.Lock()

	if maxPeers := s.cfg.EffectiveMaxClients(); len(s.peers) >= maxPeers {
		s.mu.Unlock()
		s.logger.Warnw("Max peers reached, rejecting connection",
			"peer_id", peer.id,
			"max_peers", maxPeers,
		)
		peer.close()
		return
	}

	s.peers[peer] = true
	totalPeers := len(s.peers)
	s.mu.Unlock()

	s.logger.Infow("Peer connected",
		"peer_id", peer.id,
		"total_peers", totalPeers,
	)
}

// handlePeerUnregister drops a peer on close or transport error
func (s *CanvasServer) handlePeerUnregister(peer *Peer) {
	s.mu.Lock()
	if _, ok := s.peers[peer]; ok {
		delete(s.peers, peer)
		totalPeers := len(s.peers)
		s.mu.Unlock()

		peer.close()

		s.logger.Infow("Peer disconnected",
			"peer_id", peer.id,
			"total_peers", totalPeers,
		)
	} else {
		s.mu.Unlock()
	}
}

// removeSlowPeer drops a peer whose send queue overflowed. Send failures
// are recoverable per-peer: the broadcast continues with the rest.
func (s *CanvasServer) removeSlowPeer(peer *Peer) {
	s.mu.Lock()
	if _, ok := s.peers[peer]; ok {
		delete(s.peers, peer)
		s.mu.Unlock()
	} else {
		s.mu.Unlock()
		return // Already removed
	}

	peer.close()

	s.logger.Warnw("Peer send queue full, removing peer",
		"peer_id", peer.id,
		"total_drops", s.broadcastDrops.Load(),
	)
}
