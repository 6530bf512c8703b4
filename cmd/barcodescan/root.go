package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ericlevine/zxunwarp/internal/config"
	"github.com/ericlevine/zxunwarp/internal/imageio"
)

// errNothingFound makes the process exit non-zero without printing an
// error; per-file diagnostics have already been written.
var errNothingFound = errors.New("no barcodes found")

// app carries state shared by the sub-commands of one invocation.
type app struct {
	v       *viper.Viper
	fs      afero.Fs
	cfgFile string
	verbose bool

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(afero.NewOsFs())
}

func newRootCmdWith(fs afero.Fs) *cobra.Command {
	a := &app{v: viper.New(), fs: fs}

	root := &cobra.Command{
		Use:   "barcodescan [flags] <image-file|dir> [...]",
		Short: "Detect and decode barcodes in image files",
		Long: `Detect and decode barcodes in image files (PNG, JPEG, GIF, BMP, TIFF, WebP).

By default every image is searched with warp correction: when the image does
not decode as-is, a small set of bow corrections is applied and each corrected
image is handed to the decoders until one succeeds.

Examples:
  barcodescan label.png
  barcodescan --mode read --formats ean13,upca shelf/
  barcodescan generate --bow 2 "hello" hello.png`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.runScan(cmd, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is barcodescan.yaml in ., $HOME, $XDG_CONFIG_HOME/barcodescan, /etc/barcodescan)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	addScanFlags(root.Flags())

	a.bind(pf, map[string]string{"log.level": "log-level"})
	a.bind(root.Flags(), scanFlagKeys)

	root.AddCommand(newGenerateCmd(a))
	return root
}

// scanFlagKeys maps configuration keys to flag names.
var scanFlagKeys = map[string]string{
	"decode.formats":       "formats",
	"decode.try_rotate":    "try-rotate",
	"decode.try_downscale": "try-downscale",
	"decode.text_mode":     "text-mode",
	"decode.binarizer":     "binarizer",
	"decode.is_pure":       "pure",
	"decode.ean_add_on":    "ean-add-on",
	"decode.max_symbols":   "max-symbols",
	"scan.mode":            "mode",
	"scan.policy":          "policy",
	"scan.workers":         "workers",
	"metrics.file":         "metrics-file",
}

func addScanFlags(f *pflag.FlagSet) {
	d := config.DefaultConfig()
	f.String("formats", d.Decode.Formats, "comma separated formats to look for (default all), e.g. qrcode,ean13,linear")
	f.Bool("try-rotate", d.Decode.TryRotate, "also look for rotated symbols")
	f.Bool("try-downscale", d.Decode.TryDownscale, "also search downscaled copies of large images")
	f.String("text-mode", d.Decode.TextMode, "text rendering: plain, eci, hri, hex, escaped")
	f.String("binarizer", d.Decode.Binarizer, "binarizer: localaverage, globalhistogram, fixedthreshold, boolcast")
	f.Bool("pure", d.Decode.IsPure, "hint that the image is a clean barcode render with minimal border")
	f.String("ean-add-on", d.Decode.EANAddOn, "EAN/UPC add-on handling: ignore, read, require")
	f.Int("max-symbols", d.Decode.MaxSymbols, "maximum number of symbols per image")
	f.String("mode", d.Scan.Mode, "scan mode: unwarp, read, samplegrid")
	f.String("policy", d.Scan.Policy, "strategy policy in unwarp mode: layered, single")
	f.Int("workers", d.Scan.Workers, "number of files decoded concurrently")
	f.String("metrics-file", "", "write Prometheus metrics in text format to this file after the run")
}

func (a *app) bind(f *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if fl := f.Lookup(name); fl != nil {
			_ = a.v.BindPFlag(key, fl)
		}
	}
}

func (a *app) setup() error {
	cfg, err := config.NewLoader(a.v).Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := zapcore.InfoLevel
	if a.verbose {
		level = zapcore.DebugLevel
	} else if l, err := zapcore.ParseLevel(strings.ToLower(cfg.Log.Level)); err == nil {
		level = l
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	log, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = log
	return nil
}

func (a *app) images() *imageio.Loader { return imageio.NewLoader(a.fs) }
