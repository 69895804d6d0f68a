package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/obinexus/polycall-core/internal/cli/output"
	"github.com/obinexus/polycall-core/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the resolved polycore configuration (file + environment
overrides over defaults).

Examples:
  # Show default config as YAML
  polycore config show

  # Show as JSON
  polycore config show --output json

  # Show a specific config file
  polycore config show --config /etc/polycore/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
