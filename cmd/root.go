// Package cmd implements the meshcrack command line.
package cmd

import (
	"context"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/config"
)

// Version is the meshcrack version, set at build time.
var Version = "dev" //nolint:gochecknoglobals // Set through -ldflags

var (
	cfgFile     string //nolint:gochecknoglobals // Cobra flag target
	enableDebug bool   //nolint:gochecknoglobals // Cobra flag target
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // Cobra root command
	Use:   "meshcrack",
	Short: "Recover MeshCore hashtag room names from group text packets",
	Long: "meshcrack recovers the room name protecting a MeshCore group text packet.\n" +
		"It tries the public channel, then a wordlist, then every room name up to a maximum length.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return fang.Execute(ctx, rootCmd, fang.WithVersion(Version))
}

// init sets up the persistent flags and binds them to the configuration.
func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./meshcrack.yaml)")
	flags.BoolVar(&enableDebug, "debug", false, "Enable debug mode")
	flags.String("backend", config.DefaultBackend, "Accelerator backend (auto, host, none)")
	flags.Int("workers", 0, "Host device workers (0 uses every logical core)")
	flags.String("data-path", "", "Directory for fetched wordlists and caches")

	bindFlag("debug", "debug")
	bindFlag("backend", "backend")
	bindFlag("workers", "workers")
	bindFlag("data_path", "data-path")

	rootCmd.AddCommand(crackCmd, watchCmd, keyspaceCmd, devicesCmd, benchmarkCmd, initCmd)

	config.SetDefaultConfigValues()
}

// bindFlag binds a persistent flag to a configuration key.
func bindFlag(key, flag string) {
	err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	cobra.CheckErr(err)
}

// bindLocalFlag binds a command's own flag to a configuration key.
func bindLocalFlag(cmd *cobra.Command, key, flag string) {
	err := viper.BindPFlag(key, cmd.Flags().Lookup(flag))
	cobra.CheckErr(err)
}

// initConfig reads the configuration and copies it into the shared state.
func initConfig() {
	config.InitConfig(cfgFile)
	config.SetupSharedState()
	initLogger()
}

// initLogger sets the logging level from the debug state.
func initLogger() {
	if crackstate.State.Debug {
		crackstate.Logger.SetLevel(log.DebugLevel)
		crackstate.Logger.SetReportCaller(true)
	} else {
		crackstate.Logger.SetLevel(log.InfoLevel)
	}
}
