package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/rotdisk/internal/cli/output"
	"github.com/marmos91/rotdisk/pkg/blockdev"
	"github.com/marmos91/rotdisk/pkg/config"
	"github.com/marmos91/rotdisk/pkg/store/backing"
)

var infoOutput string

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device geometry",
	Long: `Show the geometry of the configured device.

The device is opened briefly to confirm the backing file is usable. When
another process (such as "rotdisk start") holds the file, the geometry is
derived from the configuration instead.

Examples:
  rotdisk info
  rotdisk info --output json`,
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().StringVarP(&infoOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(infoOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initCLILogger(cfg); err != nil {
		return err
	}

	p := output.NewPrinter(cmd.OutOrStdout(), format, true)

	disk, err := openDisk(cfg)
	if errors.Is(err, backing.ErrLocked) {
		if format == output.FormatTable {
			p.Warning(fmt.Sprintf("%s is in use; showing configured geometry", cfg.Device.Path))
		}
		return p.Print(output.DeviceInfo(configuredInfo(cfg)))
	}
	if err != nil {
		return err
	}

	info := disk.Info()
	if err := closeDisk(cfg, disk); err != nil {
		return err
	}
	return p.Print(output.DeviceInfo(info))
}

// configuredInfo describes the device the configuration would open.
func configuredInfo(cfg *config.Config) blockdev.Info {
	geom := cfg.Device.Geometry()
	return blockdev.Info{
		Path:       cfg.Device.Path,
		SectorSize: geom.SectorSize,
		Sectors:    geom.Sectors,
		Bytes:      geom.Bytes(),
		Partitions: geom.Partitions,
		Transform:  "rotation",
	}
}
