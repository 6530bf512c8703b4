package zxunwarp

import (
	"fmt"
	"image"
	"image/color"
)

// ImageFormat describes the channel layout of an Image's pixel buffer.
type ImageFormat int

const (
	ImageLum ImageFormat = iota
	ImageRGB
	ImageBGR
	ImageRGBX
	ImageXRGB
	ImageBGRX
	ImageXBGR
)

// PixelStride returns the number of bytes per pixel.
func (f ImageFormat) PixelStride() int {
	switch f {
	case ImageLum:
		return 1
	case ImageRGB, ImageBGR:
		return 3
	case ImageRGBX, ImageXRGB, ImageBGRX, ImageXBGR:
		return 4
	default:
		return 0
	}
}

// channelOffsets returns the byte offsets of red, green and blue within one
// pixel.
func (f ImageFormat) channelOffsets() (r, g, b int) {
	switch f {
	case ImageRGB, ImageRGBX:
		return 0, 1, 2
	case ImageBGR, ImageBGRX:
		return 2, 1, 0
	case ImageXRGB:
		return 1, 2, 3
	case ImageXBGR:
		return 3, 2, 1
	default:
		return 0, 0, 0
	}
}

func (f ImageFormat) String() string {
	switch f {
	case ImageLum:
		return "Lum"
	case ImageRGB:
		return "RGB"
	case ImageBGR:
		return "BGR"
	case ImageRGBX:
		return "RGBX"
	case ImageXRGB:
		return "XRGB"
	case ImageBGRX:
		return "BGRX"
	case ImageXBGR:
		return "XBGR"
	default:
		return fmt.Sprintf("ImageFormat(%d)", int(f))
	}
}

// Image is an immutable pixel buffer. Luminance is computed once at
// construction, using the same integer formula as ZXing's image luminance
// source: (306*R + 601*G + 117*B + 0x200) >> 10.
//
// Image implements image.Image as a greyscale view, so it can be handed to
// anything that consumes the standard interface. Nothing reachable from the
// exported API mutates the buffers after construction.
type Image struct {
	pix       []byte
	lum       []byte
	width     int
	height    int
	rowStride int
	format    ImageFormat
}

// NewImage copies pix into a new Image. A rowStride of 0 means rows are
// tightly packed.
func NewImage(pix []byte, width, height int, format ImageFormat, rowStride int) (*Image, error) {
	ps := format.PixelStride()
	if ps == 0 {
		return nil, fmt.Errorf("unsupported image format %v: %w", format, ErrInvalidImage)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image size %dx%d: %w", width, height, ErrInvalidImage)
	}
	if rowStride == 0 {
		rowStride = width * ps
	}
	if rowStride < width*ps {
		return nil, fmt.Errorf("row stride %d shorter than %d pixels: %w", rowStride, width, ErrInvalidImage)
	}
	need := (height-1)*rowStride + width*ps
	if len(pix) < need {
		return nil, fmt.Errorf("pixel buffer holds %d bytes, need %d: %w", len(pix), need, ErrInvalidImage)
	}
	owned := make([]byte, height*width*ps)
	for y := 0; y < height; y++ {
		copy(owned[y*width*ps:(y+1)*width*ps], pix[y*rowStride:y*rowStride+width*ps])
	}
	return newImage(owned, width, height, format), nil
}

// newImage takes ownership of a tightly packed buffer.
func newImage(pix []byte, width, height int, format ImageFormat) *Image {
	img := &Image{
		pix:       pix,
		width:     width,
		height:    height,
		rowStride: width * format.PixelStride(),
		format:    format,
	}
	img.lum = img.computeLuminance()
	return img
}

func (m *Image) computeLuminance() []byte {
	if m.format == ImageLum {
		return m.pix
	}
	ps := m.format.PixelStride()
	ro, gro, bo := m.format.channelOffsets()
	lum := make([]byte, m.width*m.height)
	for i := range lum {
		p := m.pix[i*ps:]
		r := uint32(p[ro])
		g := uint32(p[gro])
		b := uint32(p[bo])
		lum[i] = byte((306*r + 601*g + 117*b + 0x200) >> 10)
	}
	return lum
}

// FromImage converts any image.Image. *image.Gray sources keep a single
// luminance channel; everything else is stored as RGBX. Fully transparent
// pixels become white.
func FromImage(src image.Image) (*Image, error) {
	if src == nil {
		return nil, fmt.Errorf("nil source image: %w", ErrInvalidImage)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image size %dx%d: %w", w, h, ErrInvalidImage)
	}

	if g, ok := src.(*image.Gray); ok {
		pix := make([]byte, w*h)
		for y := 0; y < h; y++ {
			off := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(pix[y*w:(y+1)*w], g.Pix[off:off+w])
		}
		return newImage(pix, w, h, ImageLum), nil
	}

	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			o := (y*w + x) * 4
			if c.A == 0 {
				pix[o], pix[o+1], pix[o+2] = 0xFF, 0xFF, 0xFF
			} else {
				pix[o], pix[o+1], pix[o+2] = c.R, c.G, c.B
			}
			pix[o+3] = 0xFF
		}
	}
	return newImage(pix, w, h, ImageRGBX), nil
}

// Width returns the width of the image.
func (m *Image) Width() int { return m.width }

// Height returns the height of the image.
func (m *Image) Height() int { return m.height }

// Format returns the channel layout.
func (m *Image) Format() ImageFormat { return m.format }

// Pix returns a copy of the pixel buffer, rows tightly packed.
func (m *Image) Pix() []byte {
	out := make([]byte, len(m.pix))
	copy(out, m.pix)
	return out
}

// Row returns a row of luminance data. If row is non-nil and large enough,
// it is reused.
func (m *Image) Row(y int, row []byte) []byte {
	if y < 0 || y >= m.height {
		return nil
	}
	if len(row) < m.width {
		row = make([]byte, m.width)
	}
	copy(row, m.lum[y*m.width:(y+1)*m.width])
	return row
}

// Luminance returns a copy of the luminance matrix.
func (m *Image) Luminance() []byte {
	out := make([]byte, len(m.lum))
	copy(out, m.lum)
	return out
}

// Gray returns a greyscale copy of the image with its origin at (0, 0).
func (m *Image) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.width, m.height))
	copy(g.Pix, m.lum)
	return g
}

// ColorModel implements image.Image.
func (m *Image) ColorModel() color.Model { return color.GrayModel }

// Bounds implements image.Image.
func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.width, m.height) }

// At implements image.Image.
func (m *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return color.Gray{}
	}
	return color.Gray{Y: m.lum[y*m.width+x]}
}
