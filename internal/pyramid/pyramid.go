// Package pyramid builds downscaled copies of an image for decoders that
// fail on very large symbols or high-resolution noise.
package pyramid

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

const (
	// Threshold is the largest dimension an image may have before a
	// downscaled level is added.
	Threshold = 500

	// MaxLevels bounds the number of downscaled levels.
	MaxLevels = 3
)

// Level is one step of the pyramid.
type Level struct {
	// Image has its origin at (0, 0).
	Image *image.Gray

	// Scale converts level coordinates to coordinates in the base image.
	Scale float64
}

// Build returns the base image followed, when downscale is set, by
// successively halved copies until the image fits within Threshold.
func Build(base *image.Gray, downscale bool) []Level {
	levels := []Level{{Image: base, Scale: 1}}
	if !downscale {
		return levels
	}
	cur := base
	scale := 1.0
	for i := 0; i < MaxLevels; i++ {
		b := cur.Bounds()
		if max(b.Dx(), b.Dy()) <= Threshold || min(b.Dx(), b.Dy()) < 4 {
			break
		}
		// Box filtering averages whole modules instead of ringing at edges.
		next := ToGray(imaging.Resize(cur, b.Dx()/2, b.Dy()/2, imaging.Box))
		scale *= float64(b.Dx()) / float64(next.Bounds().Dx())
		levels = append(levels, Level{Image: next, Scale: scale})
		cur = next
	}
	return levels
}

// ToGray converts img to a greyscale image with its origin at (0, 0).
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}
