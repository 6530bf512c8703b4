package zxunwarp

import (
	"fmt"
	"strings"
)

// TextMode selects how decoded payloads are rendered into Symbol.Text.
type TextMode int

const (
	// TextPlain renders the payload bytes transcoded by their ECI, or by a
	// guessed character set, without any decoration.
	TextPlain TextMode = iota
	// TextECI prefixes the payload with its symbology identifier so that
	// the result is the ECI-annotated transmission form.
	TextECI
	// TextHRI renders the human readable interpretation.
	TextHRI
	// TextHex renders the raw bytes as upper-case hex.
	TextHex
	// TextEscaped renders control characters as <NAME> escapes.
	TextEscaped
)

var textModeNames = []string{"Plain", "ECI", "HRI", "Hex", "Escaped"}

func (m TextMode) String() string {
	if m < 0 || int(m) >= len(textModeNames) {
		return fmt.Sprintf("TextMode(%d)", int(m))
	}
	return textModeNames[m]
}

// ParseTextMode parses a text mode name, case-insensitively.
func ParseTextMode(s string) (TextMode, error) {
	for i, n := range textModeNames {
		if strings.EqualFold(n, s) {
			return TextMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown text mode %q: %w", s, ErrInvalidOptions)
}

// Binarizer selects the luminance-to-black/white conversion a back-end uses.
type Binarizer int

const (
	// BinarizerLocalAverage thresholds each block against its neighbourhood.
	BinarizerLocalAverage Binarizer = iota
	// BinarizerGlobalHistogram picks one threshold from the luminance
	// histogram.
	BinarizerGlobalHistogram
	// BinarizerFixedThreshold treats luminance <= 127 as black.
	BinarizerFixedThreshold
	// BinarizerBoolCast treats any non-zero luminance as white.
	BinarizerBoolCast
)

var binarizerNames = []string{"LocalAverage", "GlobalHistogram", "FixedThreshold", "BoolCast"}

func (b Binarizer) String() string {
	if b < 0 || int(b) >= len(binarizerNames) {
		return fmt.Sprintf("Binarizer(%d)", int(b))
	}
	return binarizerNames[b]
}

// ParseBinarizer parses a binarizer name, case-insensitively.
func ParseBinarizer(s string) (Binarizer, error) {
	for i, n := range binarizerNames {
		if strings.EqualFold(n, s) {
			return Binarizer(i), nil
		}
	}
	return 0, fmt.Errorf("unknown binarizer %q: %w", s, ErrInvalidOptions)
}

// EANAddOnSymbol controls handling of the 2 and 5 digit EAN/UPC add-ons.
type EANAddOnSymbol int

const (
	// EANAddOnIgnore drops any add-on.
	EANAddOnIgnore EANAddOnSymbol = iota
	// EANAddOnRead appends an add-on to the text when one is present.
	EANAddOnRead
	// EANAddOnRequire only reports EAN/UPC symbols that carry an add-on.
	EANAddOnRequire
)

var eanAddOnNames = []string{"Ignore", "Read", "Require"}

func (e EANAddOnSymbol) String() string {
	if e < 0 || int(e) >= len(eanAddOnNames) {
		return fmt.Sprintf("EANAddOnSymbol(%d)", int(e))
	}
	return eanAddOnNames[e]
}

// ParseEANAddOnSymbol parses an add-on policy name, case-insensitively.
func ParseEANAddOnSymbol(s string) (EANAddOnSymbol, error) {
	for i, n := range eanAddOnNames {
		if strings.EqualFold(n, s) {
			return EANAddOnSymbol(i), nil
		}
	}
	return 0, fmt.Errorf("unknown EAN add-on policy %q: %w", s, ErrInvalidOptions)
}

// MaxSymbols is the largest value accepted for MaxNumberOfSymbols.
const MaxSymbols = 0xff

// DecodeOptions configures barcode decoding behavior.
type DecodeOptions struct {
	// Formats limits which formats to look for. The empty set means all.
	Formats Formats

	// TryRotate enables looking for symbols rotated by 90, 180 and 270
	// degrees.
	TryRotate bool

	// TryDownscale enables searching downscaled copies of large images.
	TryDownscale bool

	// TextMode selects how the payload is rendered.
	TextMode TextMode

	// Binarizer selects the thresholding method.
	Binarizer Binarizer

	// IsPure hints that the image contains only the barcode with minimal
	// border and no rotation.
	IsPure bool

	// EANAddOnSymbol controls EAN/UPC add-on handling.
	EANAddOnSymbol EANAddOnSymbol

	// MaxNumberOfSymbols caps the number of symbols one decode attempt
	// reports.
	MaxNumberOfSymbols int
}

// DefaultDecodeOptions returns the options used when none are given.
func DefaultDecodeOptions() *DecodeOptions {
	return &DecodeOptions{
		TryRotate:          true,
		TryDownscale:       true,
		TextMode:           TextHRI,
		Binarizer:          BinarizerLocalAverage,
		EANAddOnSymbol:     EANAddOnIgnore,
		MaxNumberOfSymbols: MaxSymbols,
	}
}

// Validate reports malformed options.
func (o *DecodeOptions) Validate() error {
	if o == nil {
		return fmt.Errorf("nil options: %w", ErrInvalidOptions)
	}
	if uint32(o.Formats)&^uint32(AllFormats) != 0 {
		return fmt.Errorf("formats %#x contain unknown bits: %w", uint32(o.Formats), ErrInvalidOptions)
	}
	if o.TextMode < TextPlain || o.TextMode > TextEscaped {
		return fmt.Errorf("text mode %v: %w", o.TextMode, ErrInvalidOptions)
	}
	if o.Binarizer < BinarizerLocalAverage || o.Binarizer > BinarizerBoolCast {
		return fmt.Errorf("binarizer %v: %w", o.Binarizer, ErrInvalidOptions)
	}
	if o.EANAddOnSymbol < EANAddOnIgnore || o.EANAddOnSymbol > EANAddOnRequire {
		return fmt.Errorf("EAN add-on policy %v: %w", o.EANAddOnSymbol, ErrInvalidOptions)
	}
	if o.MaxNumberOfSymbols < 1 || o.MaxNumberOfSymbols > MaxSymbols {
		return fmt.Errorf("max number of symbols %d not in [1, %d]: %w", o.MaxNumberOfSymbols, MaxSymbols, ErrInvalidOptions)
	}
	return nil
}

// withMaxSymbols returns a copy of o limited to n symbols.
func (o *DecodeOptions) withMaxSymbols(n int) *DecodeOptions {
	c := *o
	c.MaxNumberOfSymbols = n
	return &c
}

// Backend decodes symbols from an image. Implementations must not mutate the
// image and must treat "nothing found" as an empty result with a nil error.
type Backend interface {
	// Name identifies the back-end in logs and metrics.
	Name() string

	// Decode returns the symbols found in img, possibly none.
	Decode(img *Image, opts *DecodeOptions) (Results, error)
}

// FormatSupporter is implemented by back-ends that decode only some
// formats. A back-end that does not implement it is assumed to handle
// every format.
type FormatSupporter interface {
	SupportedFormats() Formats
}

func supportedFormats(b Backend) Formats {
	if fs, ok := b.(FormatSupporter); ok {
		return fs.SupportedFormats()
	}
	return AllFormats
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc struct {
	ID string
	Fn func(img *Image, opts *DecodeOptions) (Results, error)
}

// Name implements Backend.
func (f BackendFunc) Name() string { return f.ID }

// Decode implements Backend.
func (f BackendFunc) Decode(img *Image, opts *DecodeOptions) (Results, error) {
	return f.Fn(img, opts)
}

// BackendKind names the role a back-end plays in the strategy policies.
type BackendKind int

const (
	// BackendSampleGrid is the grid-sampling strategy, tried first by the
	// layered policy.
	BackendSampleGrid BackendKind = iota
	// BackendGeneral is the general-purpose strategy used by every policy.
	BackendGeneral
)

func (k BackendKind) String() string {
	switch k {
	case BackendSampleGrid:
		return "samplegrid"
	case BackendGeneral:
		return "general"
	default:
		return fmt.Sprintf("BackendKind(%d)", int(k))
	}
}

// backendFactories is filled by back-end packages from init(). It is only
// written during package initialisation.
var backendFactories = map[BackendKind]func() Backend{}

// RegisterBackend registers a back-end factory for the given role. This
// should be called from an init() function in back-end packages; a later
// registration for the same role replaces the earlier one.
func RegisterBackend(kind BackendKind, factory func() Backend) {
	backendFactories[kind] = factory
}

func registeredBackend(kind BackendKind) Backend {
	if f, ok := backendFactories[kind]; ok {
		return f()
	}
	return nil
}
