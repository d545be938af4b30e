package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/rotdisk/internal/cli/output"
	"github.com/marmos91/rotdisk/pkg/blockdev"
	"github.com/marmos91/rotdisk/pkg/transform"
)

var (
	readCount  int
	readRaw    bool
	readBinary bool
)

var readCmd = &cobra.Command{
	Use:   "read SECTOR",
	Short: "Read sectors from the device",
	Long: `Read sectors from the device and print them as a hex dump.

The device must not be in use by "rotdisk start".

Examples:
  # Dump the first sector
  rotdisk read 0

  # Show the bytes exactly as stored in the backing file
  rotdisk read 0 --raw

  # Copy four sectors to a file
  rotdisk read 8 --count 4 --binary > sectors.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	readCmd.Flags().IntVarP(&readCount, "count", "n", 1, "Number of sectors to read")
	readCmd.Flags().BoolVar(&readRaw, "raw", false, "Skip the reverse transform and show stored bytes")
	readCmd.Flags().BoolVar(&readBinary, "binary", false, "Write the bytes unformatted")
}

func parseSector(arg string) (uint64, error) {
	sector, err := strconv.ParseUint(arg, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sector %q", arg)
	}
	return sector, nil
}

// codecOptions returns the Open options for --raw.
func codecOptions(raw bool) []blockdev.Option {
	if raw {
		return []blockdev.Option{blockdev.WithCodec(transform.Identity{})}
	}
	return nil
}

func runRead(cmd *cobra.Command, args []string) error {
	sector, err := parseSector(args[0])
	if err != nil {
		return err
	}
	if readCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initCLILogger(cfg); err != nil {
		return err
	}

	disk, err := openDisk(cfg, codecOptions(readRaw)...)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}

	data, readErr := disk.ReadSectors(cliContext(context.Background(), blockdev.OpRead, sector), sector, readCount)
	if err := closeDisk(cfg, disk); err != nil && readErr == nil {
		readErr = err
	}
	if readErr != nil {
		return readErr
	}

	if readBinary {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return output.HexDump(cmd.OutOrStdout(), data, int64(sector)*int64(cfg.Device.SectorSize))
}
