package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vellum-studio/vellum/config"
	"github.com/vellum-studio/vellum/errors"
)

// StatusCmd represents the status command
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether a Vellum server is running",
	Long: `Query a running Vellum server for its health and sync status.

Checks the configured port (override with --port) and reports connected
clients, element count, snapshots, uptime and memory usage.`,
	RunE: runStatus,
}

var (
	statusPort int
	statusJSON bool
)

func init() {
	StatusCmd.Flags().IntVar(&statusPort, "port", 0, "Port to query (defaults to the configured port)")
	StatusCmd.Flags().BoolVarP(&statusJSON, "json", "j", false, "Output status as JSON")
}

type syncStatus struct {
	Clients   int                    `json:"clients"`
	Elements  int                    `json:"elements"`
	Snapshots int                    `json:"snapshots"`
	Uptime    string                 `json:"uptime"`
	Memory    map[string]interface{} `json:"memory"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	port := cfg.EffectivePort()
	if statusPort != 0 {
		port = statusPort
	}

	client := &http.Client{Timeout: 2 * time.Second}
	base := fmt.Sprintf("http://localhost:%d", port)

	resp, err := client.Get(base + "/health")
	if err != nil {
		pterm.Error.Printf("No Vellum server answering on port %d\n", port)
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		pterm.Error.Printf("Server on port %d answered /health with %s\n", port, resp.Status)
		return errors.Newf("unexpected health status: %s", resp.Status)
	}

	resp, err = client.Get(base + "/api/sync/status")
	if err != nil {
		pterm.Error.Printf("Failed to query sync status: %v\n", err)
		return err
	}
	defer resp.Body.Close()

	var status syncStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return errors.Wrap(err, "decoding sync status")
	}

	if statusJSON {
		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	pterm.Success.Printf("Vellum server is running on port %d\n", port)
	pterm.Printf("  Clients:   %d\n", status.Clients)
	pterm.Printf("  Elements:  %d\n", status.Elements)
	pterm.Printf("  Snapshots: %d\n", status.Snapshots)
	pterm.Printf("  Uptime:    %s\n", status.Uptime)
	if heap, ok := status.Memory["heapAllocBytes"].(float64); ok {
		pterm.Printf("  Heap:      %.1f MB\n", heap/(1024*1024))
	}
	return nil
}
