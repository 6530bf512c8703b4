package zxunwarp

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Outcome is the result of a search: the symbols from the first successful
// (variant, back-end) attempt, or nothing.
type Outcome struct {
	Symbols Results

	// Variant is the index into WarpVariantTable that produced Symbols, or
	// -1 when the search found nothing.
	Variant int

	// Strategy names the back-end that produced Symbols.
	Strategy string
}

// Empty reports whether the search found nothing.
func (o *Outcome) Empty() bool { return o == nil || o.Symbols.Empty() }

// Scanner runs decode searches. It holds no per-search state, so one Scanner
// may serve concurrent callers provided its back-ends and observer allow it.
type Scanner struct {
	applicator Applicator
	backends   map[BackendKind]Backend
	log        *zap.Logger
	observer   Observer
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithApplicator replaces the default FieldApplicator.
func WithApplicator(a Applicator) Option {
	return func(s *Scanner) { s.applicator = a }
}

// WithBackend sets the back-end used for kind, overriding any registered
// one.
func WithBackend(kind BackendKind, b Backend) Option {
	return func(s *Scanner) { s.backends[kind] = b }
}

// WithLogger sets the logger. Search progress is logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) { s.log = l }
}

// WithObserver sets the observer notified of search events.
func WithObserver(o Observer) Option {
	return func(s *Scanner) { s.observer = o }
}

// NewScanner creates a Scanner. Back-ends registered with RegisterBackend
// are used unless overridden with WithBackend.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		applicator: FieldApplicator{},
		backends:   map[BackendKind]Backend{},
		log:        zap.NewNop(),
		observer:   nopObserver{},
	}
	for _, kind := range []BackendKind{BackendSampleGrid, BackendGeneral} {
		if b := registeredBackend(kind); b != nil {
			s.backends[kind] = b
		}
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.applicator == nil {
		s.applicator = FieldApplicator{}
	}
	return s
}

func (s *Scanner) strategies(policy StrategyPolicy) ([]strategy, error) {
	kinds, ok := policyKinds[policy]
	if !ok {
		return nil, fmt.Errorf("policy %v: %w", policy, ErrUnknownPolicy)
	}
	out := make([]strategy, 0, len(kinds))
	for _, k := range kinds {
		b, ok := s.backends[k]
		if !ok || b == nil {
			return nil, fmt.Errorf("policy %v needs %v: %w", policy, k, ErrNoBackend)
		}
		out = append(out, strategy{name: b.Name(), backend: b})
	}
	return out, nil
}

func prepareOptions(img *Image, opts *DecodeOptions) (*DecodeOptions, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image: %w", ErrInvalidImage)
	}
	if opts == nil {
		return DefaultDecodeOptions(), nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	c := *opts
	return &c, nil
}

// Search probes every warp variant in table order and, for each corrected
// image, the back-ends selected by policy. It returns the first non-empty
// result. A search that finds nothing returns an empty Outcome and a nil
// error; errors are reserved for malformed arguments, which are rejected
// before any back-end runs. This includes a format restriction none of the
// policy's back-ends can decode (ErrUnsupportedFormat). A nil opts means
// DefaultDecodeOptions.
//
// Positions in the returned symbols are in source image coordinates when
// the applicator implements PointMapper.
func (s *Scanner) Search(img *Image, opts *DecodeOptions, policy StrategyPolicy) (*Outcome, error) {
	opts, err := prepareOptions(img, opts)
	if err != nil {
		return nil, err
	}
	strategies, err := s.strategies(policy)
	if err != nil {
		return nil, err
	}
	backends := make([]Backend, len(strategies))
	for i, st := range strategies {
		backends[i] = st.backend
	}
	if err := s.checkFormats(opts.Formats, backends...); err != nil {
		return nil, err
	}

	start := time.Now()
	variants := WarpVariants()
	d := &dispatcher{
		strategies: strategies,
		opts:       opts,
		log:        s.log,
		observer:   s.observer,
		variant:    -1,
	}
	applied := s.applicator.Apply(img, variants, DefaultCorrectionParameters(), d.onCandidate)

	out := &Outcome{Variant: -1}
	if applied && d.found {
		out.Symbols = s.toSource(d.result, d.variant, variants, img)
		out.Variant = d.variant
		out.Strategy = d.strategy
	}
	elapsed := time.Since(start)
	s.observer.SearchFinished(policy, !out.Empty(), elapsed)
	if out.Empty() {
		s.log.Debug("search exhausted",
			zap.Stringer("policy", policy),
			zap.Bool("applicable", applied),
			zap.Duration("elapsed", elapsed))
	} else {
		s.log.Debug("search succeeded",
			zap.Stringer("policy", policy),
			zap.Int("variant", out.Variant),
			zap.String("backend", out.Strategy),
			zap.Int("symbols", len(out.Symbols)),
			zap.Duration("elapsed", elapsed))
	}
	return out, nil
}

// checkFormats rejects a format restriction that none of backends can
// decode. Requested formats that only some of them lack are dropped with a
// warning.
func (s *Scanner) checkFormats(formats Formats, backends ...Backend) error {
	if formats.Empty() {
		return nil
	}
	var supported Formats
	for _, b := range backends {
		supported |= supportedFormats(b)
	}
	if formats&supported == 0 {
		return fmt.Errorf("%v: %w", formats, ErrUnsupportedFormat)
	}
	if rest := formats &^ supported; !rest.Empty() {
		s.log.Warn("ignoring formats no back-end supports", zap.Stringer("formats", rest))
	}
	return nil
}

// toSource copies res, mapping positions through the winning variant.
func (s *Scanner) toSource(res Results, variant int, variants []WarpVariant, img *Image) Results {
	out := make(Results, len(res))
	copy(out, res)
	mapper, ok := s.applicator.(PointMapper)
	if !ok || variant < 0 || variant >= len(variants) {
		return out
	}
	v := variants[variant]
	for i := range out {
		if out[i].Position.IsZero() {
			continue
		}
		for c := range out[i].Position {
			out[i].Position[c] = mapper.MapPoint(v, img.width, img.height, out[i].Position[c])
		}
	}
	return out
}

// SearchOne is Search limited to a single symbol. It returns ErrNotFound
// when the search is exhausted.
func (s *Scanner) SearchOne(img *Image, opts *DecodeOptions, policy StrategyPolicy) (*Symbol, error) {
	opts, err := prepareOptions(img, opts)
	if err != nil {
		return nil, err
	}
	out, err := s.Search(img, opts.withMaxSymbols(1), policy)
	if err != nil {
		return nil, err
	}
	if out.Empty() {
		return nil, ErrNotFound
	}
	return &out.Symbols[0], nil
}

// Read decodes img with the general back-end only, without any warp
// correction.
func (s *Scanner) Read(img *Image, opts *DecodeOptions) (Results, error) {
	return s.read(BackendGeneral, img, opts)
}

// ReadSampleGrid decodes img with the grid-sampling back-end only, without
// any warp correction.
func (s *Scanner) ReadSampleGrid(img *Image, opts *DecodeOptions) (Results, error) {
	return s.read(BackendSampleGrid, img, opts)
}

// ReadOne is Read limited to a single symbol. It returns ErrNotFound when
// nothing is decoded.
func (s *Scanner) ReadOne(img *Image, opts *DecodeOptions) (*Symbol, error) {
	return s.readOne(BackendGeneral, img, opts)
}

// ReadOneSampleGrid is ReadSampleGrid limited to a single symbol.
func (s *Scanner) ReadOneSampleGrid(img *Image, opts *DecodeOptions) (*Symbol, error) {
	return s.readOne(BackendSampleGrid, img, opts)
}

func (s *Scanner) readOne(kind BackendKind, img *Image, opts *DecodeOptions) (*Symbol, error) {
	opts, err := prepareOptions(img, opts)
	if err != nil {
		return nil, err
	}
	res, err := s.read(kind, img, opts.withMaxSymbols(1))
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		return nil, ErrNotFound
	}
	return &res[0], nil
}

// read runs a single back-end. Unlike Search there is nothing to fall back
// to, so back-end faults are returned.
func (s *Scanner) read(kind BackendKind, img *Image, opts *DecodeOptions) (Results, error) {
	opts, err := prepareOptions(img, opts)
	if err != nil {
		return nil, err
	}
	b, ok := s.backends[kind]
	if !ok || b == nil {
		return nil, fmt.Errorf("%v: %w", kind, ErrNoBackend)
	}
	if err := s.checkFormats(opts.Formats, b); err != nil {
		return nil, err
	}
	res, err := safeDecode(b, img, opts)
	if err != nil {
		s.observer.BackendFault(b.Name())
		return nil, &BackendFault{Backend: b.Name(), Variant: -1, Cause: err}
	}
	s.observer.BackendAttempt(b.Name(), !res.Empty())
	if len(res) > opts.MaxNumberOfSymbols {
		res = res[:opts.MaxNumberOfSymbols]
	}
	return res, nil
}

var defaultScanner = sync.OnceValue(func() *Scanner { return NewScanner() })

// Search runs a search with a Scanner using the registered back-ends.
func Search(img *Image, opts *DecodeOptions, policy StrategyPolicy) (*Outcome, error) {
	return defaultScanner().Search(img, opts, policy)
}

// Read decodes img with the registered general back-end.
func Read(img *Image, opts *DecodeOptions) (Results, error) {
	return defaultScanner().Read(img, opts)
}
