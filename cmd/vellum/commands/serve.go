package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vellum-studio/vellum/config"
	"github.com/vellum-studio/vellum/errors"
	"github.com/vellum-studio/vellum/gateway"
	"github.com/vellum-studio/vellum/logger"
	"github.com/vellum-studio/vellum/server"
	"github.com/vellum-studio/vellum/supervisor"
)

// ServeCmd starts the canvas server with the tool gateway mounted
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the canvas server",
	Long: `Start the canvas server in the foreground.

The server holds the shared scene, fans mutations out to WebSocket peers,
serves the REST surface, mounts the MCP tool gateway at /mcp, and
supervises the companion stdio agent when one is installed.`,
	RunE: runServe,
}

var servePort int

func init() {
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides configuration)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if servePort != 0 {
		cfg.Server.Port = &servePort
	}

	// Serve defaults to info-level output unless flags or config say
	// otherwise.
	verbosity, _ := cmd.Flags().GetCount("verbose")
	if verbosity == 0 {
		verbosity = cfg.Log.Verbosity
	}
	if verbosity == 0 {
		verbosity = logger.VerbosityInfo
	}
	if err := logger.SetLevel(verbosity); err != nil {
		return errors.Wrap(err, "failed to configure logger")
	}

	printStartupBanner(verbosity, cfg.EffectivePort())

	srv := server.NewCanvasServer(cfg)
	g := gateway.New(gateway.NewLocalCanvas(srv))
	srv.SetMCPHandler(g.HTTPHandler())

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// The supervisor hands the bound port to the agent, so wait for the
	// listener before spawning it. Port probing can shift it off the
	// configured one.
	boundPort := cfg.EffectivePort()
	for i := 0; i < 100; i++ {
		if p := srv.Port(); p != 0 {
			boundPort = p
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	agent := supervisor.New(cfg.Agent, boundPort)
	agent.Start()

	watcher := startConfigWatcher(verbosity, cfg.EffectivePort())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		agent.Stop()
		if watcher != nil {
			watcher.Stop()
		}
		return errors.Wrap(err, "server failed")
	case <-sigChan:
		pterm.Info.Println("\nShutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan struct{})
		go func() {
			agent.Stop()
			if watcher != nil {
				watcher.Stop()
			}
			srv.Stop()
			close(shutdownDone)
		}()

		select {
		case <-shutdownDone:
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("\nForce shutdown - exiting immediately")
			os.Exit(1)
			return nil // unreachable
		}
	}
}

// startConfigWatcher watches the highest-precedence existing config file
// and applies verbosity changes live. Returns nil when no config file
// exists, which is a normal way to run.
func startConfigWatcher(currentVerbosity, currentPort int) *config.Watcher {
	path := activeConfigFile()
	if path == "" {
		return nil
	}

	watcher, err := config.NewWatcher(path)
	if err != nil {
		logger.Warnw("Config watcher unavailable", "path", path, "error", err)
		return nil
	}

	lastVerbosity := currentVerbosity
	lastPort := currentPort
	watcher.OnReload(func(cfg *config.Config) error {
		if cfg.Log.Verbosity != lastVerbosity {
			if err := logger.SetLevel(cfg.Log.Verbosity); err != nil {
				return err
			}
			logger.Infow("Log verbosity updated from config",
				"verbosity", cfg.Log.Verbosity,
			)
			lastVerbosity = cfg.Log.Verbosity
		}
		if port := cfg.EffectivePort(); port != lastPort {
			logger.Infow("Port changes require a restart to take effect",
				"configured_port", port,
			)
			lastPort = port
		}
		return nil
	})
	watcher.Start()

	logger.Infow("Watching config file for changes", "path", path)
	return watcher
}

// activeConfigFile picks the existing config file with the highest
// precedence.
func activeConfigFile() string {
	paths := config.ConsultedPaths()
	for i := len(paths) - 1; i >= 0; i-- {
		if _, err := os.Stat(paths[i]); err == nil {
			return paths[i]
		}
	}
	return ""
}
