// Package config implements the "rotdisk config" subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd groups the commands that inspect and change the config file.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the configuration",
	Long: `Inspect and edit the rotdisk configuration file.

The file describes the device (backing path, size, sector size, rotation
key, worker and queue sizing) and the services around it (logging, API,
metrics, telemetry). Every key can be overridden with a ROTDISK_ variable,
for example ROTDISK_DEVICE_KEY=13.

Create a file with 'rotdisk init'.`,
}

func init() {
	Cmd.AddCommand(editCmd, validateCmd, showCmd, schemaCmd)
}
