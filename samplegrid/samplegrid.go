// Package samplegrid is the grid-sampling decode back-end. It locates the
// three finder patterns of a QR code, fits a perspective grid through them
// and samples every module, which makes it tolerant of the residual
// distortion left after warp correction.
//
// Importing the package registers it as the scanner's sample-grid back-end.
package samplegrid

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/liyue201/goqr"

	zxunwarp "github.com/ericlevine/zxunwarp"
	"github.com/ericlevine/zxunwarp/binarizer"
	"github.com/ericlevine/zxunwarp/charset"
	"github.com/ericlevine/zxunwarp/internal/pyramid"
)

// Name identifies the back-end in logs and metrics.
const Name = "samplegrid"

// QR segment modes as reported in goqr.QRData.DataType, which holds the
// highest mode present in the symbol.
const (
	qrDataNumeric = 1
	qrDataKanji   = 8
)

// Supported lists the formats this back-end can decode.
var Supported = zxunwarp.NewFormats(zxunwarp.FormatQRCode)

func init() {
	zxunwarp.RegisterBackend(zxunwarp.BackendSampleGrid, func() zxunwarp.Backend { return New() })
}

// Decoder implements zxunwarp.Backend.
type Decoder struct{}

// New returns a grid-sampling decoder.
func New() *Decoder { return &Decoder{} }

// Name implements zxunwarp.Backend.
func (d *Decoder) Name() string { return Name }

// Decode implements zxunwarp.Backend. Only QR codes are recognised; if the
// options exclude them nothing is attempted. Symbol positions are not
// reported.
func (d *Decoder) Decode(img *zxunwarp.Image, opts *zxunwarp.DecodeOptions) (zxunwarp.Results, error) {
	if opts == nil {
		opts = zxunwarp.DefaultDecodeOptions()
	}
	if !opts.Formats.Accepts(zxunwarp.FormatQRCode) {
		return nil, nil
	}

	// LocalAverage selects the Hybrid block thresholder.
	base, err := binarizer.ForMethod(img, opts.Binarizer)
	if errors.Is(err, binarizer.ErrLowContrast) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out zxunwarp.Results
	seen := map[string]bool{}
	for _, level := range pyramid.Build(base, opts.TryDownscale) {
		codes, err := goqr.Recognize(level.Image)
		if errors.Is(err, goqr.ErrNoQRCode) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("recognize: %w", err)
		}
		for _, code := range codes {
			payload, ok := numericOrder(code)
			if !ok || seen[string(payload)] {
				continue
			}
			seen[string(payload)] = true
			out = append(out, toSymbol(code, payload, opts.TextMode))
			if len(out) >= opts.MaxNumberOfSymbols {
				return out, nil
			}
		}
		if len(out) > 0 {
			break
		}
	}
	return out, nil
}

// SupportedFormats implements zxunwarp.FormatSupporter.
func (d *Decoder) SupportedFormats() zxunwarp.Formats { return Supported }

// numericOrder returns the payload of code with numeric segments in the
// right digit order. goqr emits each group of up to three digits least
// significant first. A purely numeric payload is restored group by group.
// When digits appear alongside other modes the segment boundaries are not
// known, so the payload cannot be trusted and ok is false.
func numericOrder(code *goqr.QRData) (payload []byte, ok bool) {
	payload = bytes.Clone(code.Payload)
	if code.DataType == qrDataNumeric {
		for i := 0; i < len(payload); i += 3 {
			slices.Reverse(payload[i:min(i+3, len(payload))])
		}
		return payload, true
	}
	if bytes.ContainsAny(payload, "0123456789") {
		return nil, false
	}
	return payload, true
}

func toSymbol(code *goqr.QRData, raw []byte, mode zxunwarp.TextMode) zxunwarp.Symbol {
	eci := int(code.Eci)
	if eci == 0 && code.DataType == qrDataKanji {
		eci = charset.ECISJIS.Values[0]
	}
	text := charset.Decode(raw, eci, false)
	id := zxunwarp.SymbologyIdentifier(zxunwarp.FormatQRCode, code.Eci > 0)
	return zxunwarp.Symbol{
		Text:                zxunwarp.RenderText(text, raw, eci, id, mode),
		Bytes:               raw,
		Format:              zxunwarp.FormatQRCode,
		SymbologyIdentifier: id,
		ContentType:         zxunwarp.DetectContentType(text, raw, false),
	}
}
