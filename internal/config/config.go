// Package config holds the barcodescan configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	zxunwarp "github.com/ericlevine/zxunwarp"
)

// Config is the complete barcodescan configuration.
type Config struct {
	Decode  DecodeConfig  `mapstructure:"decode"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DecodeConfig mirrors zxunwarp.DecodeOptions with string enums.
type DecodeConfig struct {
	Formats      string `mapstructure:"formats"`
	TryRotate    bool   `mapstructure:"try_rotate"`
	TryDownscale bool   `mapstructure:"try_downscale"`
	TextMode     string `mapstructure:"text_mode"`
	Binarizer    string `mapstructure:"binarizer"`
	IsPure       bool   `mapstructure:"is_pure"`
	EANAddOn     string `mapstructure:"ean_add_on"`
	MaxSymbols   int    `mapstructure:"max_symbols"`
}

// ScanConfig controls how files are scanned.
type ScanConfig struct {
	// Mode is one of "unwarp", "read" or "samplegrid".
	Mode string `mapstructure:"mode"`
	// Policy is the strategy policy used in unwarp mode.
	Policy  string `mapstructure:"policy"`
	Workers int    `mapstructure:"workers"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig controls the metrics dump.
type MetricsConfig struct {
	// File, when set, receives the Prometheus text exposition after a run.
	File string `mapstructure:"file"`
}

// Scan modes.
const (
	ModeUnwarp     = "unwarp"
	ModeRead       = "read"
	ModeSampleGrid = "samplegrid"
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	d := zxunwarp.DefaultDecodeOptions()
	return Config{
		Decode: DecodeConfig{
			Formats:      "",
			TryRotate:    d.TryRotate,
			TryDownscale: d.TryDownscale,
			TextMode:     d.TextMode.String(),
			Binarizer:    d.Binarizer.String(),
			IsPure:       d.IsPure,
			EANAddOn:     d.EANAddOnSymbol.String(),
			MaxSymbols:   d.MaxNumberOfSymbols,
		},
		Scan: ScanConfig{
			Mode:    ModeUnwarp,
			Policy:  zxunwarp.PolicyLayered.String(),
			Workers: 4,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks every field that has a restricted set of values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.DecodeOptions(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Scan.Mode) {
	case ModeUnwarp, ModeRead, ModeSampleGrid:
	default:
		errs = append(errs, fmt.Errorf("scan.mode %q must be one of %s, %s, %s", c.Scan.Mode, ModeUnwarp, ModeRead, ModeSampleGrid))
	}
	if _, err := zxunwarp.ParsePolicy(c.Scan.Policy); err != nil {
		errs = append(errs, fmt.Errorf("scan.policy: %w", err))
	}
	if c.Scan.Workers < 1 {
		errs = append(errs, fmt.Errorf("scan.workers must be at least 1, got %d", c.Scan.Workers))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	return errors.Join(errs...)
}

// DecodeOptions converts the decode section.
func (c *Config) DecodeOptions() (*zxunwarp.DecodeOptions, error) {
	formats, err := zxunwarp.ParseFormats(c.Decode.Formats)
	if err != nil {
		return nil, fmt.Errorf("decode.formats: %w", err)
	}
	textMode, err := zxunwarp.ParseTextMode(c.Decode.TextMode)
	if err != nil {
		return nil, fmt.Errorf("decode.text_mode: %w", err)
	}
	bin, err := zxunwarp.ParseBinarizer(c.Decode.Binarizer)
	if err != nil {
		return nil, fmt.Errorf("decode.binarizer: %w", err)
	}
	addOn, err := zxunwarp.ParseEANAddOnSymbol(c.Decode.EANAddOn)
	if err != nil {
		return nil, fmt.Errorf("decode.ean_add_on: %w", err)
	}
	opts := &zxunwarp.DecodeOptions{
		Formats:            formats,
		TryRotate:          c.Decode.TryRotate,
		TryDownscale:       c.Decode.TryDownscale,
		TextMode:           textMode,
		Binarizer:          bin,
		IsPure:             c.Decode.IsPure,
		EANAddOnSymbol:     addOn,
		MaxNumberOfSymbols: c.Decode.MaxSymbols,
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Policy returns the configured strategy policy.
func (c *Config) Policy() (zxunwarp.StrategyPolicy, error) {
	return zxunwarp.ParsePolicy(c.Scan.Policy)
}
