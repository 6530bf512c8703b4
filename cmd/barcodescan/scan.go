package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	zxunwarp "github.com/ericlevine/zxunwarp"
	"github.com/ericlevine/zxunwarp/internal/config"
	"github.com/ericlevine/zxunwarp/metrics"

	// Register the decode back-ends.
	_ "github.com/ericlevine/zxunwarp/multiformat"
	_ "github.com/ericlevine/zxunwarp/samplegrid"
)

type fileResult struct {
	path    string
	symbols zxunwarp.Results
	variant int
	err     error
}

func (a *app) runScan(cmd *cobra.Command, args []string) error {
	opts, err := a.cfg.DecodeOptions()
	if err != nil {
		return err
	}
	policy, err := a.cfg.Policy()
	if err != nil {
		return err
	}
	paths, err := a.images().Expand(args)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	scanner := zxunwarp.NewScanner(
		zxunwarp.WithLogger(a.log),
		zxunwarp.WithObserver(metrics.New(reg)),
	)

	results := make([]fileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(a.cfg.Scan.Workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = a.scanFile(scanner, path, opts, policy)
			return nil
		})
	}
	_ = g.Wait()

	failed := report(cmd.OutOrStdout(), cmd.ErrOrStderr(), results)

	if file := a.cfg.Metrics.File; file != "" {
		if err := prometheus.WriteToTextfile(file, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if failed {
		return errNothingFound
	}
	return nil
}

func (a *app) scanFile(s *zxunwarp.Scanner, path string, opts *zxunwarp.DecodeOptions, policy zxunwarp.StrategyPolicy) fileResult {
	r := fileResult{path: path, variant: -1}
	img, err := a.images().Load(path)
	if err != nil {
		r.err = err
		return r
	}
	switch strings.ToLower(a.cfg.Scan.Mode) {
	case config.ModeRead:
		r.symbols, r.err = s.Read(img, opts)
	case config.ModeSampleGrid:
		r.symbols, r.err = s.ReadSampleGrid(img, opts)
	default:
		var out *zxunwarp.Outcome
		out, r.err = s.Search(img, opts, policy)
		if out != nil {
			r.symbols, r.variant = out.Symbols, out.Variant
		}
	}
	if r.err == nil {
		a.log.Debug("scanned file",
			zap.String("path", path),
			zap.Int("symbols", len(r.symbols)),
			zap.Int("variant", r.variant))
	}
	return r
}

// report prints results in input order and reports whether any file
// failed or yielded nothing.
func report(stdout, stderr io.Writer, results []fileResult) bool {
	failed := false
	multi := len(results) > 1
	for _, r := range results {
		if r.err != nil {
			fmt.Fprintf(stderr, "%s: error: %v\n", r.path, r.err)
			failed = true
			continue
		}
		if r.symbols.Empty() {
			fmt.Fprintf(stderr, "%s: no barcodes found\n", r.path)
			failed = true
			continue
		}
		for _, sym := range r.symbols {
			if multi {
				fmt.Fprintf(stdout, "%s: ", r.path)
			}
			fmt.Fprintf(stdout, "[%s] %s\n", sym.Format, sym.Text)
		}
	}
	return failed
}
