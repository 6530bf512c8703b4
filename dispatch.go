package zxunwarp

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// StrategyPolicy selects which back-ends are tried on each corrected image,
// and in which order.
type StrategyPolicy int

const (
	// PolicyLayered tries the grid-sampling back-end, then the general
	// back-end.
	PolicyLayered StrategyPolicy = iota
	// PolicySingle tries only the general back-end.
	PolicySingle
)

func (p StrategyPolicy) String() string {
	switch p {
	case PolicyLayered:
		return "layered"
	case PolicySingle:
		return "single"
	default:
		return fmt.Sprintf("StrategyPolicy(%d)", int(p))
	}
}

// ParsePolicy parses "layered" or "single", case-insensitively.
func ParsePolicy(s string) (StrategyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "layered", "samplegrid":
		return PolicyLayered, nil
	case "single", "standard":
		return PolicySingle, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownPolicy)
}

// policyKinds lists, per policy, the back-end roles in priority order.
var policyKinds = map[StrategyPolicy][]BackendKind{
	PolicyLayered: {BackendSampleGrid, BackendGeneral},
	PolicySingle:  {BackendGeneral},
}

type strategy struct {
	name    string
	backend Backend
}

// dispatcher is the per-search candidate callback. It tries each strategy
// on a corrected image, left to right, and records the first non-empty
// result. The result slot is written at most once.
type dispatcher struct {
	strategies []strategy
	opts       *DecodeOptions
	log        *zap.Logger
	observer   Observer

	found    bool
	result   Results
	variant  int
	strategy string
}

func (d *dispatcher) onCandidate(variant int, img *Image) bool {
	if d.found {
		return true
	}
	d.observer.VariantProbed(variant)
	d.log.Debug("probing warp variant", zap.Int("variant", variant))
	for _, s := range d.strategies {
		res, err := safeDecode(s.backend, img, d.opts)
		if err != nil {
			fault := &BackendFault{Backend: s.name, Variant: variant, Cause: err}
			d.log.Debug("backend fault", zap.String("backend", s.name), zap.Int("variant", variant), zap.Error(fault))
			d.observer.BackendFault(s.name)
			continue
		}
		d.observer.BackendAttempt(s.name, !res.Empty())
		if res.Empty() {
			continue
		}
		if len(res) > d.opts.MaxNumberOfSymbols {
			res = res[:d.opts.MaxNumberOfSymbols]
		}
		d.found = true
		d.result = res
		d.variant = variant
		d.strategy = s.name
		return true
	}
	return false
}

// safeDecode calls the back-end but recovers from panics that decoders may
// raise on malformed input, converting them to errors.
func safeDecode(b Backend, img *Image, opts *DecodeOptions) (res Results, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return b.Decode(img, opts)
}
