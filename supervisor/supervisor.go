// Package supervisor keeps the companion stdio agent alive next to the
// canvas server. It resolves the agent binary, spawns it with the canvas
// URL in its environment, restarts it on unexpected exits, and tears it
// down gracefully on shutdown.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vellum-studio/vellum/config"
	"github.com/vellum-studio/vellum/logger"
)

// State is the supervisor's lifecycle phase, exposed for status reporting.
type State string

const (
	StateIdle       State = "idle"
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateRestarting State = "restarting"
	StateDisabled   State = "disabled"
)

const (
	maxRestarts = 3
	stopGrace   = 5 * time.Second
)

// restartDelay is a var so tests can shrink the backoff.
var restartDelay = 2 * time.Second

// Supervisor manages one agent child process.
type Supervisor struct {
	cfg    config.AgentConfig
	port   int
	logger *zap.SugaredLogger

	mu             sync.Mutex
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	state          State
	restartCount   int
	isShuttingDown bool
	binary         string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a supervisor for the agent configured in cfg. port is the
// canvas server's bound port, handed to the agent via CANVAS_SERVER_URL.
func New(cfg config.AgentConfig, port int) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		cfg:    cfg,
		port:   port,
		logger: logger.Logger,
		state:  StateIdle,
		ctx:    ctx,
		cancel: cancel,
	}
}

// State reports the current lifecycle phase.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Binary reports the resolved agent binary path, empty until resolved.
func (s *Supervisor) Binary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binary
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Start resolves the agent binary and launches the supervision loop. A
// missing binary is not an error: the server keeps running with its HTTP
// transport and the supervisor parks itself in the disabled state.
func (s *Supervisor) Start() {
	if !s.cfg.Enabled {
		s.setState(StateDisabled)
		s.logger.Infow("Agent disabled by configuration")
		return
	}

	bin, args, err := resolveBinary(s.cfg)
	if err != nil {
		s.setState(StateDisabled)
		s.logger.Infow("No agent binary available, stdio transport disabled",
			"reason", err.Error(),
		)
		return
	}

	manifest, err := loadManifest(filepath.Dir(bin))
	if err != nil {
		s.logger.Warnw("Ignoring unreadable agent manifest", "error", err)
		manifest = nil
	}

	s.mu.Lock()
	s.binary = bin
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(bin, args, manifest)
}

// run spawns the agent and restarts it on unexpected exits until the
// restart budget is spent or shutdown begins.
func (s *Supervisor) run(bin string, args []string, manifest *Manifest) {
	defer s.wg.Done()

	name := filepath.Base(bin)
	if manifest != nil && manifest.Name != "" {
		name = manifest.Name
	}

	for {
		s.mu.Lock()
		if s.isShuttingDown {
			s.mu.Unlock()
			return
		}
		s.state = StateStarting
		s.mu.Unlock()

		err := s.spawn(bin, args, manifest, name)

		s.mu.Lock()
		s.cmd = nil
		s.stdin = nil
		if s.isShuttingDown {
			s.state = StateIdle
			s.mu.Unlock()
			return
		}
		s.restartCount++
		attempt := s.restartCount
		if attempt > maxRestarts {
			s.state = StateDisabled
			s.mu.Unlock()
			s.logger.Warnw("Agent exceeded restart budget, giving up",
				"agent", name,
				"restarts", maxRestarts,
			)
			return
		}
		s.state = StateRestarting
		s.mu.Unlock()

		s.logger.Warnw("Agent exited, restarting",
			"agent", name,
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-time.After(restartDelay):
		case <-s.ctx.Done():
			return
		}
	}
}

// spawn runs one agent process to completion.
func (s *Supervisor) spawn(bin string, args []string, manifest *Manifest, name string) error {
	spawnArgs := append([]string(nil), args...)
	if manifest != nil {
		spawnArgs = append(spawnArgs, manifest.Args...)
	}

	cmd := exec.CommandContext(s.ctx, bin, spawnArgs...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("CANVAS_SERVER_URL=http://localhost:%d", s.port),
		"NO_COLOR=1",
	)
	if manifest != nil {
		for key, value := range manifest.Env {
			cmd.Env = append(cmd.Env, key+"="+value)
		}
	}
	cmd.Stderr = &agentLogger{logger: s.logger, name: name}

	// Shutdown path: SIGTERM on context cancel, hard kill after the grace
	// window if the agent lingers.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = stopGrace

	// The agent speaks MCP on its stdio. Holding the write end open keeps
	// it alive while idle; closing it on shutdown lets it exit cleanly.
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return err
	}

	s.mu.Lock()
	s.cmd = cmd
	s.stdin = stdin
	s.state = StateRunning
	s.mu.Unlock()

	s.logger.Infow("Agent started",
		"agent", name,
		"binary", bin,
		"pid", cmd.Process.Pid,
	)

	return cmd.Wait()
}

// Stop terminates the agent and waits for the supervision loop to wind
// down. Safe to call when the agent never started.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.isShuttingDown {
		s.mu.Unlock()
		return
	}
	s.isShuttingDown = true
	stdin := s.stdin
	s.mu.Unlock()

	if stdin != nil {
		stdin.Close()
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopGrace + time.Second):
		s.logger.Warnw("Timed out waiting for agent to stop")
	}

	s.mu.Lock()
	if s.state != StateDisabled {
		s.state = StateIdle
	}
	s.mu.Unlock()
}

// agentLogger forwards the agent's stderr to the server log, one line per
// entry.
type agentLogger struct {
	logger *zap.SugaredLogger
	name   string
	buf    strings.Builder
}

func (l *agentLogger) Write(p []byte) (n int, err error) {
	l.buf.Write(p)
	for {
		line, rest, found := strings.Cut(l.buf.String(), "\n")
		if !found {
			break
		}
		l.buf.Reset()
		l.buf.WriteString(rest)

		if line = strings.TrimSpace(line); line != "" {
			l.logger.Warnw("Agent output", "agent", l.name, "message", line)
		}
	}
	return len(p), nil
}
