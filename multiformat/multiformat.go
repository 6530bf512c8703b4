// Package multiformat is the general-purpose decode back-end. It runs the
// ZXing format readers for QR Code, Data Matrix, Aztec, DataBar and the other
// linear symbologies over a binarized image, with optional downscaling, rotation
// and multi-symbol search.
//
// Importing the package registers it as the scanner's general back-end.
package multiformat

import (
	"errors"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"

	zxunwarp "github.com/ericlevine/zxunwarp"
	"github.com/ericlevine/zxunwarp/binarizer"
	"github.com/ericlevine/zxunwarp/internal/pyramid"
)

// Name identifies the back-end in logs and metrics.
const Name = "multiformat"

func init() {
	zxunwarp.RegisterBackend(zxunwarp.BackendGeneral, func() zxunwarp.Backend { return New() })
}

// Decoder implements zxunwarp.Backend.
type Decoder struct{}

// New returns a general-purpose decoder.
func New() *Decoder { return &Decoder{} }

// Name implements zxunwarp.Backend.
func (d *Decoder) Name() string { return Name }

// SupportedFormats implements zxunwarp.FormatSupporter.
func (d *Decoder) SupportedFormats() zxunwarp.Formats { return Supported }

// Decode implements zxunwarp.Backend.
func (d *Decoder) Decode(img *zxunwarp.Image, opts *zxunwarp.DecodeOptions) (zxunwarp.Results, error) {
	if opts == nil {
		opts = zxunwarp.DefaultDecodeOptions()
	}
	if len(buildReaders(opts.Formats)) == 0 {
		return nil, nil
	}
	hints := buildHints(opts)

	base := img.Gray()
	if opts.Binarizer != zxunwarp.BinarizerLocalAverage {
		bin, err := binarizer.ForMethod(img, opts.Binarizer)
		if errors.Is(err, binarizer.ErrLowContrast) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		base = bin
	}

	rotations := []int{0}
	if opts.TryRotate && !opts.IsPure {
		rotations = append(rotations, 90)
	}
	for _, level := range pyramid.Build(base, opts.TryDownscale) {
		lb := level.Image.Bounds()
		for _, rot := range rotations {
			oriented := level.Image
			if rot == 90 {
				oriented = pyramid.ToGray(imaging.Rotate90(level.Image))
			}
			search := &regionSearch{
				decode: func(region *image.Gray) *gozxing.Result {
					return decodeOnce(region, opts.Formats, hints)
				},
				limit: opts.MaxNumberOfSymbols,
			}
			search.run(oriented, 0, 0, 0)

			var out zxunwarp.Results
			for _, h := range search.hits {
				sym, ok := toSymbol(h.result, opts)
				if !ok {
					continue
				}
				pos := sym.Position.Translate(float64(h.xOffset), float64(h.yOffset))
				if rot == 90 {
					pos = unrotate90(pos, lb.Dx())
				}
				if !sym.Position.IsZero() {
					sym.Position = pos.Scale(level.Scale)
				}
				sym.Orientation = (sym.Orientation + rot) % 360
				out = append(out, sym)
			}
			if len(out) > 0 {
				return out, nil
			}
		}
	}
	return nil, nil
}

// decodeOnce tries each reader in order on img and returns the first
// result.
func decodeOnce(img *image.Gray, formats zxunwarp.Formats, hints map[gozxing.DecodeHintType]interface{}) *gozxing.Result {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil
	}
	for _, r := range buildReaders(formats) {
		if res, err := r.Decode(bmp, hints); err == nil && res != nil {
			return res
		}
	}
	return nil
}

// unrotate90 maps a position found in an image rotated 90 degrees
// counter-clockwise back to the unrotated image of the given width.
func unrotate90(p zxunwarp.Position, width int) zxunwarp.Position {
	for i := range p {
		x, y := p[i].X, p[i].Y
		p[i] = zxunwarp.Point{X: float64(width-1) - y, Y: x}
	}
	return p
}

func isEANUPC(f zxunwarp.Format) bool {
	switch f {
	case zxunwarp.FormatEAN8, zxunwarp.FormatEAN13, zxunwarp.FormatUPCA, zxunwarp.FormatUPCE:
		return true
	}
	return false
}

// toSymbol converts a gozxing result. It reports false for results the
// options rule out.
func toSymbol(res *gozxing.Result, opts *zxunwarp.DecodeOptions) (zxunwarp.Symbol, bool) {
	format := fromZXing(res.GetBarcodeFormat())
	text := res.GetText()
	if format == zxunwarp.FormatEAN13 && len(text) == 13 && strings.HasPrefix(text, "0") &&
		opts.Formats.Accepts(zxunwarp.FormatUPCA) {
		format = zxunwarp.FormatUPCA
		text = text[1:]
	}
	if format == zxunwarp.FormatNone || !opts.Formats.Accepts(format) {
		return zxunwarp.Symbol{}, false
	}

	meta := res.GetResultMetadata()
	addOn, _ := meta[gozxing.ResultMetadataType_UPC_EAN_EXTENSION].(string)
	id := zxunwarp.SymbologyIdentifier(format, false)
	if isEANUPC(format) {
		switch opts.EANAddOnSymbol {
		case zxunwarp.EANAddOnRequire:
			if addOn == "" {
				return zxunwarp.Symbol{}, false
			}
			text += " " + addOn
			id = "]E3"
		case zxunwarp.EANAddOnRead:
			if addOn != "" {
				text += " " + addOn
				id = "]E3"
			}
		}
	}
	orientation, _ := meta[gozxing.ResultMetadataType_ORIENTATION].(int)

	var points []zxunwarp.Point
	for _, p := range res.GetResultPoints() {
		points = append(points, zxunwarp.Point{X: p.GetX(), Y: p.GetY()})
	}
	if format == zxunwarp.FormatQRCode && len(points) > 3 {
		// The fourth point is the alignment pattern, not a corner.
		points = points[:3]
	}

	raw := []byte(text)
	return zxunwarp.Symbol{
		Text:                zxunwarp.RenderText(text, raw, 0, id, opts.TextMode),
		Bytes:               raw,
		Format:              format,
		SymbologyIdentifier: id,
		Position:            zxunwarp.PositionFromPoints(points),
		Orientation:         ((orientation % 360) + 360) % 360,
		ContentType:         zxunwarp.DetectContentType(text, raw, false),
	}, true
}
