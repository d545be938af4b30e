package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/rotdisk/internal/bytesize"
	"github.com/marmos91/rotdisk/internal/cli/output"
	"github.com/marmos91/rotdisk/internal/cli/prompt"
	"github.com/marmos91/rotdisk/pkg/config"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Initialize a rotdisk configuration file with default settings.

By default, the configuration file is created at $XDG_CONFIG_HOME/rotdisk/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  rotdisk init

  # Answer a few questions about the device first
  rotdisk init --interactive

  # Force overwrite existing config
  rotdisk init --force --config /etc/rotdisk/config.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file without asking")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for device settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	ok, err := prompt.ConfirmOverwrite(configPath, initForce)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	cfg := config.GetDefaultConfig()
	if initInteractive {
		if err := promptDevice(&cfg.Device); err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	p := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, true)
	p.Success(fmt.Sprintf("Configuration file created at: %s", configPath))
	p.Printf("\nNext steps:\n")
	p.Printf("  1. Review the device section (path, size, key)\n")
	p.Printf("  2. Start the device with: rotdisk start --config %s\n", configPath)
	return nil
}

// promptDevice asks for the settings most people change.
func promptDevice(dev *config.DeviceConfig) error {
	path, err := prompt.Input("Backing file", dev.Path, nil)
	if err != nil {
		return err
	}
	dev.Path = path

	size, err := prompt.Input("Device size", dev.Size.Compact(), func(s string) error {
		_, err := bytesize.Parse(s)
		return err
	})
	if err != nil {
		return err
	}
	dev.Size, _ = bytesize.Parse(size)

	ss, err := prompt.SelectString("Sector size", []string{"512", "1024", "2048", "4096"},
		strconv.FormatUint(uint64(dev.SectorSize), 10))
	if err != nil {
		return err
	}
	n, _ := strconv.ParseUint(ss, 10, 32)
	dev.SectorSize = uint32(n)

	key, err := prompt.InputInt("Rotation key", dev.KeyValue())
	if err != nil {
		return err
	}
	dev.Key = &key
	return nil
}
