package cmd

import (
	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/config"
)

// initCmd writes a configuration file holding the current settings.
var initCmd = &cobra.Command{ //nolint:gochecknoglobals // Cobra command
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  "Write the current configuration, defaults included, to a new config file.\nAn existing file is never overwritten.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		path, err := config.WriteConfig(cfgFile)
		if err != nil {
			return err
		}

		crackstate.Logger.Info("Configuration written", "path", path)

		return nil
	},
}
