package commands

import (
	"fmt"

	"github.com/vellum-studio/vellum/logger"
	"github.com/vellum-studio/vellum/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(verbosity int, port int) {
	// ANSI escape codes
	cyan := "\033[36m"
	green := "\033[32m"
	yellow := "\033[33m"
	blue := "\033[34m"
	magenta := "\033[35m"
	white := "\033[37m"
	bgBlack := "\033[40m"
	bold := "\033[1m"
	reset := "\033[0m"

	versionInfo := version.Get()

	fmt.Printf("\n%s%s", cyan, bold)
	fmt.Printf("   ╔═══════════════════════════════════════════════════╗\n")
	fmt.Printf("   ║                                                   ║\n")
	fmt.Printf("   ║          %s%s%s██    ██  ███████  ██     %s               ║\n", white, bold, bgBlack, reset+cyan+bold)
	fmt.Printf("   ║          %s%s%s██    ██  ██       ██     %s               ║\n", white, bold, bgBlack, reset+cyan+bold)
	fmt.Printf("   ║          %s%s%s██    ██  █████    ██     %s               ║\n", white, bold, bgBlack, reset+cyan+bold)
	fmt.Printf("   ║          %s%s%s ██  ██   ██       ██     %s               ║\n", white, bold, bgBlack, reset+cyan+bold)
	fmt.Printf("   ║          %s%s%s  ████    ███████  ███████%s               ║\n", white, bold, bgBlack, reset+cyan+bold)
	fmt.Printf("   ║         %s%s%s██       ██    ██  ██      ██%s             ║\n", white, bold, bgBlack, reset+cyan+bold)
	fmt.Printf("   ║         %s%s%s██       ██    ██  ████  ████%s             ║\n", white, bold, bgBlack, reset+cyan+bold)
	fmt.Printf("   ║         %s%s%s██       ██    ██  ██ ████ ██%s             ║\n", white, bold, bgBlack, reset+cyan+bold)
	fmt.Printf("   ║         %s%s%s██       ██    ██  ██  ██  ██%s             ║\n", white, bold, bgBlack, reset+cyan+bold)
	fmt.Printf("   ║         %s%s%s███████   ██████   ██      ██%s             ║\n", white, bold, bgBlack, reset+cyan+bold)
	fmt.Printf("   ║                                                   ║\n")
	fmt.Printf("   ║   %s▣%s Canvas  %s⟐%s Sync  %s◈%s Tools  %s⌁%s Agent              ║\n",
		blue, reset+cyan+bold, yellow, reset+cyan+bold, green, reset+cyan+bold, magenta, reset+cyan+bold)
	fmt.Printf("   ║                                                   ║\n")
	fmt.Printf("   ╚═══════════════════════════════════════════════════╝%s\n\n", reset)

	fmt.Printf("%s%s┌─ Vellum Info ───────────────────────────────────────┐%s\n", green, bold, reset)
	fmt.Printf("%s│%s Version:   %s (commit %s)\n", green, reset, versionInfo.Version, versionInfo.Short())
	fmt.Printf("%s│%s Built:     %s\n", green, reset, versionInfo.BuildTime)
	fmt.Printf("%s│%s Verbosity: %s\n", green, reset, logger.LevelName(verbosity))
	fmt.Printf("%s│%s Canvas:    http://localhost:%d\n", green, reset, port)
	fmt.Printf("%s│%s WebSocket: ws://localhost:%d/ws\n", green, reset, port)
	fmt.Printf("%s│%s MCP:       http://localhost:%d/mcp\n", green, reset, port)
	fmt.Printf("%s└─────────────────────────────────────────────────────┘%s\n", green, reset)

	fmt.Printf("\n%s%s✨ Connect the canvas UI or an MCP client to start drawing%s\n", yellow, bold, reset)
	fmt.Printf("%s💡 Press Ctrl+C to stop%s\n\n", blue, reset)
}
