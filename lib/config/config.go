// Package config provides configuration management for meshcrack.
package config

import (
	"errors"
	"os"
	"path"
	"time"

	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/accel"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
	"github.com/unclesp1d3r/meshcrack/lib/verify"
)

const (
	// Default configuration values.
	DefaultMaxLength        = roomname.DefaultMaxLength     // Default longest brute-forced room name
	DefaultTimestampWindow  = verify.DefaultTimestampWindow // Default age limit for plausible messages
	DefaultBatchFloor       = accel.DefaultBatchFloor       // Default initial and minimum batch size
	DefaultBatchMax         = accel.DefaultBatchMax         // Default batch size cap
	DefaultBatchTarget      = accel.DefaultBatchTarget      // Default dispatch time the tuner aims for
	DefaultProgressInterval = 200 * time.Millisecond        // Default progress snapshot cadence
	DefaultBackend          = accel.BackendAuto             // Default accelerator backend

	envPrefix  = "MESHCRACK" // Prefix for environment overrides
	configName = "meshcrack" // Config file base name
	dotEnvFile = ".env"      // Optional environment file in the working directory
)

var (
	scope = gap.NewScope(gap.User, "meshcrack") //nolint:gochecknoglobals // Configuration scope
)

// InitConfig initializes the configuration from various sources.
func InitConfig(cfgFile string) {
	crackstate.ErrorLogger.SetReportCaller(true)

	loadDotEnv(dotEnvFile)

	home, err := os.UserConfigDir()
	cobra.CheckErr(err)

	cwd, err := os.Getwd()
	cobra.CheckErr(err)
	viper.AddConfigPath(cwd)

	configDirs, err := scope.ConfigDirs()
	cobra.CheckErr(err)

	for _, dir := range configDirs {
		viper.AddConfigPath(dir)
	}

	viper.AddConfigPath(home)
	viper.SetConfigType("yaml")
	viper.SetConfigName(configName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		crackstate.Logger.Debug("Using config file", "config_file", viper.ConfigFileUsed())
	} else {
		crackstate.Logger.Debug("No config file found, using defaults")
	}
}

// loadDotEnv loads environment overrides from file if it exists. Variables already set in
// the environment win.
func loadDotEnv(file string) {
	if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		crackstate.Logger.Warn("Failed to load environment file", "file", file, "error", err)
	}
}

// WriteConfig writes the current configuration to a new file in the first user config
// directory, or to cfgFile if set. An existing file is left untouched.
func WriteConfig(cfgFile string) (string, error) {
	target := cfgFile
	if target == "" {
		configPath, err := scope.ConfigPath(configName + ".yaml")
		if err != nil {
			return "", err
		}

		target = configPath
	}

	if err := os.MkdirAll(path.Dir(target), 0o750); err != nil {
		return "", err
	}

	if err := viper.SafeWriteConfigAs(target); err != nil {
		return target, err
	}

	return target, nil
}

// SetupSharedState configures the shared state from configuration values.
// Invalid values are replaced with their defaults and logged.
func SetupSharedState() {
	dataRoot := viper.GetString("data_path")
	crackstate.State.DataPath = dataRoot
	crackstate.State.WordlistPath = derivedPath("wordlist_path", dataRoot, "wordlists")
	crackstate.State.BenchmarkCachePath = derivedPath("benchmark_cache_path", dataRoot, "benchmark_cache.json")
	crackstate.State.Debug = viper.GetBool("debug")
	crackstate.State.UseTimestampFilter = viper.GetBool("use_timestamp_filter")
	crackstate.State.UseUTF8Filter = viper.GetBool("use_utf8_filter")
	crackstate.State.DictionaryOnlyFallback = viper.GetBool("dictionary_only_fallback")
	crackstate.State.ForceBenchmark = viper.GetBool("force_benchmark")

	maxLength := viper.GetInt("max_length")
	if maxLength < 1 || maxLength > roomname.MaxSupportedLength {
		crackstate.Logger.Warn("Invalid max_length, using default",
			"value", maxLength, "default", DefaultMaxLength, "max", roomname.MaxSupportedLength)
		maxLength = DefaultMaxLength
	}

	crackstate.State.MaxLength = maxLength
	crackstate.State.TimestampWindow = positiveDuration("timestamp_window", DefaultTimestampWindow)
	crackstate.State.BatchTarget = positiveDuration("batch_target", DefaultBatchTarget)
	crackstate.State.ProgressInterval = positiveDuration("progress_interval", DefaultProgressInterval)

	backend := viper.GetString("backend")
	switch backend {
	case accel.BackendAuto, accel.BackendHost, accel.BackendNone:
	default:
		crackstate.Logger.Warn("Unknown backend, using default", "value", backend, "default", DefaultBackend)
		backend = DefaultBackend
	}

	crackstate.State.Backend = backend

	floor := viper.GetUint64("batch_floor")
	if floor == 0 {
		floor = DefaultBatchFloor
	}

	batchMax := viper.GetUint64("batch_max")
	if batchMax == 0 {
		batchMax = DefaultBatchMax
	}

	if batchMax < floor {
		crackstate.Logger.Warn("batch_max below batch_floor, raising it", "batch_max", batchMax, "batch_floor", floor)
		batchMax = floor
	}

	crackstate.State.BatchFloor = floor
	crackstate.State.BatchMax = batchMax

	workers := viper.GetInt("workers")
	if workers < 0 {
		crackstate.Logger.Warn("Invalid workers, using all cores", "value", workers)
		workers = 0
	}

	crackstate.State.Workers = workers
}

// derivedPath returns the configured key, or name under dataRoot when the key was not set
// explicitly.
func derivedPath(key, dataRoot, name string) string {
	if viper.IsSet(key) && viper.GetString(key) != "" {
		return viper.GetString(key)
	}

	return path.Join(dataRoot, name)
}

func positiveDuration(key string, def time.Duration) time.Duration {
	d := viper.GetDuration(key)
	if d <= 0 {
		crackstate.Logger.Warn("Invalid duration, using default", "key", key, "value", d, "default", def)
		return def
	}

	return d
}

// SetDefaultConfigValues sets default configuration values.
func SetDefaultConfigValues() {
	cwd, err := os.Getwd()
	cobra.CheckErr(err)

	viper.SetDefault("data_path", path.Join(cwd, "data"))
	viper.SetDefault("max_length", DefaultMaxLength)
	viper.SetDefault("use_timestamp_filter", true)
	viper.SetDefault("use_utf8_filter", true)
	viper.SetDefault("timestamp_window", DefaultTimestampWindow)
	viper.SetDefault("backend", DefaultBackend)
	viper.SetDefault("dictionary_only_fallback", false)
	viper.SetDefault("batch_floor", DefaultBatchFloor)
	viper.SetDefault("batch_max", DefaultBatchMax)
	viper.SetDefault("batch_target", DefaultBatchTarget)
	viper.SetDefault("workers", 0)
	viper.SetDefault("progress_interval", DefaultProgressInterval)
	viper.SetDefault("force_benchmark", false)
	viper.SetDefault("debug", false)
}
