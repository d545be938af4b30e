package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/rotdisk/internal/cli/output"
	"github.com/marmos91/rotdisk/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the rotdisk configuration file.

Checks for syntax errors, invalid values and an unusable device geometry.

Examples:
  rotdisk config validate
  rotdisk config validate --config /etc/rotdisk/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if _, exact := cfg.Device.Size.Sectors(cfg.Device.SectorSize); !exact {
		warnings = append(warnings, fmt.Sprintf("device size %s is not a multiple of the sector size; the remainder is unused", cfg.Device.Size.Compact()))
	}
	if cfg.Device.KeyValue()%26 == 0 {
		warnings = append(warnings, "rotation key is a multiple of 26; data is stored unchanged")
	}
	if cfg.Device.NoLock {
		warnings = append(warnings, "backing file locking is disabled")
	}

	p := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, true)
	p.Printf("Configuration file: %s\n", displayPath)
	p.Success("Validation: OK")

	if len(warnings) > 0 {
		p.Printf("\nWarnings:\n")
		for _, w := range warnings {
			p.Warning("  - " + w)
		}
	}

	geom := cfg.Device.Geometry()
	summary := output.NewTableData("Setting", "Value")
	summary.AddRow("Device path", cfg.Device.Path)
	summary.AddRow("Sectors", fmt.Sprintf("%d x %d bytes", geom.Sectors, geom.SectorSize))
	summary.AddRow("Workers", fmt.Sprint(cfg.Device.Workers))
	summary.AddRow("API port", fmt.Sprint(cfg.API.Port))
	summary.AddRow("Log level", cfg.Logging.Level)

	p.Printf("\n")
	return output.PrintTable(cmd.OutOrStdout(), summary)
}
