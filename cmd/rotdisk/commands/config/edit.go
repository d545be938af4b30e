package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/rotdisk/internal/cli/output"
	"github.com/marmos91/rotdisk/pkg/config"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open configuration in editor",
	Long: `Open the configuration file in $VISUAL or $EDITOR (default: vi) and
validate it when the editor exits.

Changes to the device section (path, size, sector_size, key) apply the next
time the device is opened. A running "rotdisk start" only picks up a new
logging level.

Examples:
  rotdisk config edit
  EDITOR="code --wait" rotdisk config edit --config /etc/rotdisk/config.yaml`,
	RunE: runConfigEdit,
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("configuration file not found: %s\n\n"+
			"Create it first with:\n"+
			"  rotdisk init --config %s",
			configPath, configPath)
	}

	argv := editorCommand()
	editor := exec.Command(argv[0], append(argv[1:], configPath)...)
	editor.Stdin = os.Stdin
	editor.Stdout = os.Stdout
	editor.Stderr = os.Stderr
	if err := editor.Run(); err != nil {
		return fmt.Errorf("failed to run editor %q: %w", argv[0], err)
	}

	if _, err := config.Load(configPath); err != nil {
		return fmt.Errorf("%s was saved but is not usable; run 'rotdisk config edit' again: %w", configPath, err)
	}
	output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, true).
		Success(fmt.Sprintf("%s is valid", configPath))
	return nil
}

// editorCommand splits $VISUAL or $EDITOR into argv so values such as
// "code --wait" work.
func editorCommand() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}
