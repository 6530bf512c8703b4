package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "barcodescan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "BARCODESCAN"
)

// Loader reads configuration from a file, the environment and bound flags,
// in increasing order of precedence.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on v. Flags bound to v before Load take
// precedence over files and environment variables.
func NewLoader(v *viper.Viper) *Loader {
	if v == nil {
		v = viper.New()
	}
	return &Loader{v: v}
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Load reads and validates the configuration. An empty configFile searches
// the default locations; a missing file there is not an error.
func (l *Loader) Load(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (l *Loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(configDir, "barcodescan"))
	}
	l.v.AddConfigPath("/etc/barcodescan")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// decode.try_rotate -> BARCODESCAN_DECODE_TRY_ROTATE
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()
	l.v.SetDefault("decode.formats", d.Decode.Formats)
	l.v.SetDefault("decode.try_rotate", d.Decode.TryRotate)
	l.v.SetDefault("decode.try_downscale", d.Decode.TryDownscale)
	l.v.SetDefault("decode.text_mode", d.Decode.TextMode)
	l.v.SetDefault("decode.binarizer", d.Decode.Binarizer)
	l.v.SetDefault("decode.is_pure", d.Decode.IsPure)
	l.v.SetDefault("decode.ean_add_on", d.Decode.EANAddOn)
	l.v.SetDefault("decode.max_symbols", d.Decode.MaxSymbols)

	l.v.SetDefault("scan.mode", d.Scan.Mode)
	l.v.SetDefault("scan.policy", d.Scan.Policy)
	l.v.SetDefault("scan.workers", d.Scan.Workers)

	l.v.SetDefault("log.level", d.Log.Level)
	l.v.SetDefault("metrics.file", d.Metrics.File)
}
