package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/vellum-studio/vellum/config"
	"gopkg.in/yaml.v3"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Vellum configuration",
	Long: `Display and inspect Vellum configuration settings.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (VELLUM_* prefix)
3. Project config (./vellum.toml, searches up directories)
4. User config (~/.vellum/vellum.toml)
5. System config (/etc/vellum/vellum.toml)
6. Default values

Examples:
  vellum config show                  # Show current configuration
  vellum config show --format json    # Show configuration in JSON format
  vellum config path                  # Show which config files are consulted`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current Vellum configuration merged from all sources",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and which files were checked.

Lists all configuration sources in order of precedence, showing
which files exist and which are missing.`,
	RunE: runConfigPath,
}

var configFormat string

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Printf("# Vellum configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# Vellum configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println("Configuration cascade (later overrides earlier):")
	fmt.Println("  1. [DEFAULT]  Built-in defaults")

	for i, path := range config.ConsultedPaths() {
		marker := "missing"
		if _, err := os.Stat(path); err == nil {
			marker = "exists"
		}
		fmt.Printf("  %d. [FILE]     %s (%s)\n", i+2, path, marker)
	}

	fmt.Printf("  %d. [ENV]      VELLUM_* environment variables\n", len(config.ConsultedPaths())+2)
	fmt.Println()
	fmt.Println("Run 'vellum config show' to see the merged result.")
	return nil
}
