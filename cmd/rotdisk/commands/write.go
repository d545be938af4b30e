package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/rotdisk/internal/cli/output"
	"github.com/marmos91/rotdisk/pkg/blockdev"
)

var (
	writeData string
	writeFile string
	writeRaw  bool
)

var writeCmd = &cobra.Command{
	Use:   "write SECTOR",
	Short: "Write data to the device",
	Long: `Write data to the device starting at SECTOR.

Data comes from --data, --file, or standard input. A trailing partial sector
only overwrites its leading bytes. The device must not be in use by
"rotdisk start".

Examples:
  rotdisk write 0 --data "Hello"
  rotdisk write 16 --file image.bin
  echo hi | rotdisk write 3`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().StringVarP(&writeData, "data", "d", "", "Literal data to write")
	writeCmd.Flags().StringVarP(&writeFile, "file", "f", "", "File to write (- for stdin)")
	writeCmd.Flags().BoolVar(&writeRaw, "raw", false, "Store the bytes without the transform")
	writeCmd.MarkFlagsMutuallyExclusive("data", "file")
}

func runWrite(cmd *cobra.Command, args []string) error {
	sector, err := parseSector(args[0])
	if err != nil {
		return err
	}

	data, err := writePayload(cmd)
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

	disk, err := openDisk(cfg, codecOptions(writeRaw)...)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}

	writeErr := disk.WriteSectors(cliContext(context.Background(), blockdev.OpWrite, sector), sector, data)
	if err := closeDisk(cfg, disk); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		return writeErr
	}

	output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, true).
		Success(fmt.Sprintf("Wrote %d bytes at sector %d (%d sector(s))",
			len(data), sector, cfg.Device.Geometry().SectorsFor(len(data))))
	return nil
}

func writePayload(cmd *cobra.Command) ([]byte, error) {
	switch {
	case writeData != "":
		return []byte(writeData), nil
	case writeFile != "" && writeFile != "-":
		return os.ReadFile(writeFile)
	default:
		return io.ReadAll(cmd.InOrStdin())
	}
}
