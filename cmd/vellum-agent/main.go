package main

import (
	"fmt"
	"os"

	"github.com/vellum-studio/vellum/gateway"
	"github.com/vellum-studio/vellum/version"
)

const defaultServerURL = "http://localhost:3100"

// main bridges an MCP host on stdio to a canvas server over REST. Stdout
// carries the MCP wire, so nothing else may write to it.
func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version.Get().String())
		return
	}

	serverURL := os.Getenv("CANVAS_SERVER_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}

	g := gateway.New(gateway.NewRemoteCanvas(serverURL))
	if err := g.ServeStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "vellum-agent: %v\n", err)
		os.Exit(1)
	}
}
