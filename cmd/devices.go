package cmd

import (
	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/meshcrack/lib/accel"
	"github.com/unclesp1d3r/meshcrack/lib/display"
)

// devicesCmd lists the accelerator devices.
var devicesCmd = &cobra.Command{ //nolint:gochecknoglobals // Cobra command
	Use:   "devices",
	Short: "List accelerator devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		devices, err := accel.Detect(cmd.Context())
		if err != nil {
			return err
		}

		display.Devices(devices)

		return nil
	},
}
