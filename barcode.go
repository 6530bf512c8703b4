// Package zxunwarp reads barcodes from camera captures that may be
// geometrically distorted. A Scanner probes a small fixed set of warp
// corrections and, for each corrected image, tries an ordered list of
// decode back-ends until one of them reports a symbol.
package zxunwarp

import (
	"fmt"
	"math"
	"strings"
)

// Format represents a barcode format. Formats are single bits so that a set
// of them fits in a Formats value.
type Format uint32

const (
	FormatAztec Format = 1 << iota
	FormatCodabar
	FormatCode39
	FormatCode93
	FormatCode128
	FormatDataBar
	FormatDataBarExpanded
	FormatDataMatrix
	FormatEAN8
	FormatEAN13
	FormatITF
	FormatMaxiCode
	FormatPDF417
	FormatQRCode
	FormatUPCA
	FormatUPCE

	FormatNone Format = 0
)

var formatNames = []struct {
	format Format
	name   string
}{
	{FormatAztec, "AZTEC"},
	{FormatCodabar, "CODABAR"},
	{FormatCode39, "CODE_39"},
	{FormatCode93, "CODE_93"},
	{FormatCode128, "CODE_128"},
	{FormatDataBar, "DATA_BAR"},
	{FormatDataBarExpanded, "DATA_BAR_EXPANDED"},
	{FormatDataMatrix, "DATA_MATRIX"},
	{FormatEAN8, "EAN_8"},
	{FormatEAN13, "EAN_13"},
	{FormatITF, "ITF"},
	{FormatMaxiCode, "MAXICODE"},
	{FormatPDF417, "PDF_417"},
	{FormatQRCode, "QR_CODE"},
	{FormatUPCA, "UPC_A"},
	{FormatUPCE, "UPC_E"},
}

// String returns the name of the barcode format.
func (f Format) String() string {
	if f == FormatNone {
		return "NONE"
	}
	for _, n := range formatNames {
		if n.format == f {
			return n.name
		}
	}
	return "UNKNOWN"
}

// IsLinear reports whether f is a one-dimensional symbology.
func (f Format) IsLinear() bool {
	return f != FormatNone && LinearCodes.Has(f)
}

// Formats is a set of barcode formats. The zero value is the empty set, which
// decode options interpret as "all formats".
type Formats uint32

const (
	// LinearCodes holds every one-dimensional symbology.
	LinearCodes = Formats(FormatCodabar | FormatCode39 | FormatCode93 | FormatCode128 |
		FormatDataBar | FormatDataBarExpanded | FormatEAN8 | FormatEAN13 | FormatITF |
		FormatUPCA | FormatUPCE)

	// MatrixCodes holds every two-dimensional symbology.
	MatrixCodes = Formats(FormatAztec | FormatDataMatrix | FormatMaxiCode | FormatPDF417 | FormatQRCode)

	// AllFormats is the union of LinearCodes and MatrixCodes.
	AllFormats = LinearCodes | MatrixCodes
)

// NewFormats builds a set from the given formats.
func NewFormats(formats ...Format) Formats {
	var s Formats
	for _, f := range formats {
		s |= Formats(f)
	}
	return s
}

// Empty reports whether the set holds no format.
func (s Formats) Empty() bool { return s == 0 }

// Has reports whether f is in the set.
func (s Formats) Has(f Format) bool {
	return f != FormatNone && Formats(f)&s == Formats(f)
}

// Accepts reports whether a decoder restricted to s may return f. The empty
// set accepts everything.
func (s Formats) Accepts(f Format) bool {
	return s.Empty() || s.Has(f)
}

// List returns the formats in the set in declaration order.
func (s Formats) List() []Format {
	var out []Format
	for _, n := range formatNames {
		if s.Has(n.format) {
			out = append(out, n.format)
		}
	}
	return out
}

func (s Formats) String() string {
	if s.Empty() {
		return "NONE"
	}
	list := s.List()
	names := make([]string, len(list))
	for i, f := range list {
		names[i] = f.String()
	}
	return strings.Join(names, "|")
}

// ParseFormats parses a list of format names separated by commas, pipes or
// spaces. Names are matched case-insensitively and ignore '-', '_' and
// spaces, so "qrcode", "QR_CODE" and "qr-code" are all accepted. The
// aggregate names "linear", "1d", "matrix" and "2d" are also understood.
func ParseFormats(s string) (Formats, error) {
	var out Formats
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '|' || r == ' '
	})
	for _, field := range fields {
		key := normalizeFormatName(field)
		switch key {
		case "LINEARCODES", "LINEAR", "1D", "ONED":
			out |= LinearCodes
			continue
		case "MATRIXCODES", "MATRIX", "2D", "TWOD":
			out |= MatrixCodes
			continue
		case "ANY", "ALL":
			out |= AllFormats
			continue
		case "RSS14":
			key = "DATABAR"
		case "RSSEXPANDED":
			key = "DATABAREXPANDED"
		case "QR":
			key = "QRCODE"
		}
		found := false
		for _, n := range formatNames {
			if normalizeFormatName(n.name) == key {
				out |= Formats(n.format)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown barcode format %q: %w", field, ErrInvalidOptions)
		}
	}
	return out, nil
}

func normalizeFormatName(s string) string {
	s = strings.ToUpper(s)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// ContentType classifies the payload of a decoded symbol.
type ContentType int

const (
	ContentText ContentType = iota
	ContentBinary
	ContentMixed
	ContentGS1
	ContentISO15434
	ContentUnknownECI
)

func (c ContentType) String() string {
	switch c {
	case ContentText:
		return "Text"
	case ContentBinary:
		return "Binary"
	case ContentMixed:
		return "Mixed"
	case ContentGS1:
		return "GS1"
	case ContentISO15434:
		return "ISO15434"
	case ContentUnknownECI:
		return "UnknownECI"
	default:
		return "Unknown"
	}
}

// Point is a location in image coordinates.
type Point struct {
	X, Y float64
}

// Distance returns the distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Position holds the four corners of a symbol, starting at the top left and
// going clockwise. A zero Position means the back-end did not report one.
type Position [4]Point

// IsZero reports whether no corner was set.
func (p Position) IsZero() bool {
	return p == Position{}
}

// Translate returns p shifted by (dx, dy).
func (p Position) Translate(dx, dy float64) Position {
	for i := range p {
		p[i].X += dx
		p[i].Y += dy
	}
	return p
}

// Scale returns p with every coordinate multiplied by f.
func (p Position) Scale(f float64) Position {
	for i := range p {
		p[i].X *= f
		p[i].Y *= f
	}
	return p
}

// Bounds returns the axis-aligned bounding box of the corners.
func (p Position) Bounds() (lo, hi Point) {
	lo, hi = p[0], p[0]
	for _, c := range p[1:] {
		lo.X = math.Min(lo.X, c.X)
		lo.Y = math.Min(lo.Y, c.Y)
		hi.X = math.Max(hi.X, c.X)
		hi.Y = math.Max(hi.Y, c.Y)
	}
	return lo, hi
}

// PositionFromPoints builds a Position from the points a decoder reported.
// Finder-pattern triples and the two end points of a linear symbol are
// widened into a quadrilateral.
func PositionFromPoints(points []Point) Position {
	switch len(points) {
	case 0:
		return Position{}
	case 1:
		return Position{points[0], points[0], points[0], points[0]}
	case 2:
		// Linear symbols report the two ends of the scanned row.
		return Position{points[0], points[1], points[1], points[0]}
	case 3:
		// bottomLeft, topLeft, topRight; complete the parallelogram.
		bl, tl, tr := points[0], points[1], points[2]
		br := Point{X: tr.X + bl.X - tl.X, Y: tr.Y + bl.Y - tl.Y}
		return Position{tl, tr, br, bl}
	default:
		return Position{points[0], points[1], points[2], points[3]}
	}
}

// Symbol is one decoded barcode.
type Symbol struct {
	// Text is the payload rendered according to the requested TextMode.
	Text string

	// Bytes is the raw payload as reported by the back-end.
	Bytes []byte

	Format Format

	// SymbologyIdentifier is the AIM symbology identifier, e.g. "]Q1".
	SymbologyIdentifier string

	// Position is the location of the symbol in the image passed to the
	// scanner, not in the corrected image it was found in.
	Position Position

	// Orientation is the rotation of the symbol in degrees.
	Orientation int

	IsInverted  bool
	IsMirrored  bool
	ContentType ContentType
}

// Results is the ordered list of symbols reported by one decode attempt.
// An empty Results means nothing was found.
type Results []Symbol

// Empty reports whether no symbol was found.
func (r Results) Empty() bool { return len(r) == 0 }
