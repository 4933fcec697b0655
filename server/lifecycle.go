package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vellum-studio/vellum/errors"
)

// Start binds the listener, launches the hub, and blocks serving HTTP until
// Stop is called or the listener fails.
func (s *CanvasServer) Start() error {
	configuredPort := s.cfg.EffectivePort()
	port, err := findAvailablePort(configuredPort)
	if err != nil {
		return errors.Wrap(err, "cannot bind canvas server")
	}
	if port != configuredPort {
		s.logger.Warnw("Configured port unavailable, using fallback",
			"configured_port", configuredPort,
			"actual_port", port,
		)
	}
	s.actualPort.Store(int32(port))
	s.startedAt = time.Now()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run()
	}()

	s.setupHTTPRoutes()

	s.httpServer = &http.Server{Addr: fmt.Sprintf(":%d", port)}
	s.logger.Infow("Canvas server listening",
		"port", port,
		"ws_path", "/ws",
		"mcp_mounted", s.mcpHandler != nil,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Stop drains the server: reject new peers, fail in-flight correlated
// requests, close existing peers, then shut the listener and wait for the
// pumps. Safe to call more than once.
func (s *CanvasServer) Stop() {
	if !s.state.CompareAndSwap(int32(ServerStateRunning), int32(ServerStateDraining)) {
		return
	}
	s.logger.Infow("Server stopping", "peers", s.PeerCount())

	s.correlator.FailAll(errors.Wrap(errors.ErrUnavailable, "server shutting down"))

	s.mu.Lock()
	peers := make([]*Peer, 0, len(s.peers))
	for peer := range s.peers {
		peers = append(peers, peer)
	}
	s.peers = make(map[*Peer]bool)
	s.mu.Unlock()
	for _, peer := range peers {
		peer.close()
	}

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warnw("HTTP shutdown did not finish cleanly", "error", err)
		}
		cancel()
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("Timed out waiting for server goroutines")
	}

	s.state.Store(int32(ServerStateStopped))
	if drops := s.broadcastDrops.Load(); drops > 0 {
		s.logger.Infow("Server stopped", "broadcast_drops", drops)
	} else {
		s.logger.Infow("Server stopped")
	}
}
