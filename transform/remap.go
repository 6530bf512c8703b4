// Package transform resamples pixel buffers through a coordinate mapping.
package transform

import (
	"errors"
	"math"
)

// ErrBufferSize is returned when a buffer is too small for the stated
// dimensions.
var ErrBufferSize = errors.New("transform: buffer too small")

// Transform maps destination pixel coordinates to source coordinates in
// place. Points are stored as x0, y0, x1, y1, ...
type Transform interface {
	TransformPoints(points []float64)
}

// TransformFunc adapts a function to the Transform interface.
type TransformFunc func(points []float64)

// TransformPoints implements Transform.
func (f TransformFunc) TransformPoints(points []float64) { f(points) }

// Remap fills dst by sampling src at the source coordinates t assigns to
// each destination pixel. Both buffers are tightly packed, row-major, with
// channels bytes per pixel. Samples are bilinear; coordinates falling
// outside the source take the nearest edge pixel.
func Remap(dst, src []byte, width, height, channels int, t Transform) error {
	if width <= 0 || height <= 0 || channels <= 0 {
		return ErrBufferSize
	}
	n := width * height * channels
	if len(src) < n || len(dst) < n {
		return ErrBufferSize
	}
	points := make([]float64, 2*width)
	for y := 0; y < height; y++ {
		fy := float64(y)
		for x := 0; x < len(points); x += 2 {
			points[x] = float64(x / 2)
			points[x+1] = fy
		}
		t.TransformPoints(points)
		ClampPoints(points, width, height)
		row := dst[y*width*channels:]
		for x := 0; x < len(points); x += 2 {
			sampleBilinear(row[(x/2)*channels:(x/2+1)*channels], src, width, height, channels, points[x], points[x+1])
		}
	}
	return nil
}

// ClampPoints pulls every point into [0, width-1] x [0, height-1].
func ClampPoints(points []float64, width, height int) {
	maxX := float64(width - 1)
	maxY := float64(height - 1)
	for i := 0; i+1 < len(points); i += 2 {
		points[i] = clamp(points[i], maxX)
		points[i+1] = clamp(points[i+1], maxY)
	}
}

func clamp(v, hi float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

func sampleBilinear(out, src []byte, width, height, channels int, x, y float64) {
	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= width {
		x1 = width - 1
	}
	if y1 >= height {
		y1 = height - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)
	o00 := (y0*width + x0) * channels
	o10 := (y0*width + x1) * channels
	o01 := (y1*width + x0) * channels
	o11 := (y1*width + x1) * channels
	for c := 0; c < channels; c++ {
		top := lerp(float64(src[o00+c]), float64(src[o10+c]), fx)
		bottom := lerp(float64(src[o01+c]), float64(src[o11+c]), fx)
		out[c] = uint8(lerp(top, bottom, fy) + 0.5)
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
