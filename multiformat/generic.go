package multiformat

import (
	"image"

	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"

	"github.com/ericlevine/zxunwarp/internal/pyramid"
)

const (
	minDimensionToRecur = 100
	maxDepth            = 4
)

// hit is a decoded result together with the offset of the region it was
// found in.
type hit struct {
	result           *gozxing.Result
	xOffset, yOffset int
}

// regionSearch locates several barcodes in one image by decoding it, then
// recursively decoding the areas left of, above, right of and below each
// symbol found.
type regionSearch struct {
	decode func(img *image.Gray) *gozxing.Result
	limit  int
	hits   []hit
}

func (s *regionSearch) run(img *image.Gray, xOffset, yOffset, depth int) {
	if depth > maxDepth || len(s.hits) >= s.limit {
		return
	}
	result := s.decode(img)
	if result == nil {
		return
	}

	alreadyFound := false
	for _, existing := range s.hits {
		if existing.result.GetText() == result.GetText() {
			alreadyFound = true
			break
		}
	}
	if !alreadyFound {
		s.hits = append(s.hits, hit{result: result, xOffset: xOffset, yOffset: yOffset})
	}
	if s.limit <= 1 {
		return
	}

	points := result.GetResultPoints()
	if len(points) == 0 {
		return
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	minX, minY := float64(width), float64(height)
	maxX, maxY := 0.0, 0.0
	for _, p := range points {
		minX = min(minX, p.GetX())
		minY = min(minY, p.GetY())
		maxX = max(maxX, p.GetX())
		maxY = max(maxY, p.GetY())
	}

	if minX > minDimensionToRecur {
		s.run(crop(img, 0, 0, int(minX), height), xOffset, yOffset, depth+1)
	}
	if minY > minDimensionToRecur {
		s.run(crop(img, 0, 0, width, int(minY)), xOffset, yOffset, depth+1)
	}
	if maxX < float64(width-minDimensionToRecur) {
		s.run(crop(img, int(maxX), 0, width, height), xOffset+int(maxX), yOffset, depth+1)
	}
	if maxY < float64(height-minDimensionToRecur) {
		s.run(crop(img, 0, int(maxY), width, height), xOffset, yOffset+int(maxY), depth+1)
	}
}

// crop returns the region [x0, x1) x [y0, y1) of img with its origin moved
// to (0, 0).
func crop(img *image.Gray, x0, y0, x1, y1 int) *image.Gray {
	return pyramid.ToGray(imaging.Crop(img, image.Rect(x0, y0, x1, y1)))
}
