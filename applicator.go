package zxunwarp

import (
	"github.com/ericlevine/zxunwarp/transform"
)

// CandidateFunc receives one corrected image together with the index of the
// variant that produced it. Returning true stops the iteration. The image
// must not be retained after the call returns.
type CandidateFunc func(variant int, corrected *Image) bool

// Applicator produces one corrected image per warp variant.
//
// Apply must visit variants in order and stop as soon as onCandidate returns
// true, returning true itself. When the source cannot be corrected at all it
// returns false without calling onCandidate.
type Applicator interface {
	Apply(img *Image, variants []WarpVariant, params CorrectionParameters, onCandidate CandidateFunc) bool
}

// PointMapper is implemented by applicators that can map a point in a
// corrected image back to the source image.
type PointMapper interface {
	MapPoint(variant WarpVariant, width, height int, p Point) Point
}

// FieldApplicator is the default Applicator. The corrected image keeps the
// source size and channel layout. For an output pixel (x, y) it samples the
// source at
//
//	sx = x + H(y/(height-1)) * width
//	sy = y + V(x/(width-1)) * height
//
// where H and V are the variant's horizontal and vertical fields. Samples
// are bilinear and clamp to the image edge.
type FieldApplicator struct{}

// Apply implements Applicator.
func (FieldApplicator) Apply(img *Image, variants []WarpVariant, params CorrectionParameters, onCandidate CandidateFunc) bool {
	if img == nil || img.width < 2 || img.height < 2 {
		return false
	}
	if params.OutputSize <= 2*params.Offset+1 || params.Offset < 0 {
		return false
	}
	for i, v := range variants {
		if v.Horizontal == nil || v.Vertical == nil {
			continue
		}
		corrected, err := correct(img, v)
		if err != nil {
			continue
		}
		if onCandidate(i, corrected) {
			return true
		}
	}
	return false
}

// MapPoint implements PointMapper.
func (FieldApplicator) MapPoint(v WarpVariant, width, height int, p Point) Point {
	if width < 2 || height < 2 || v.Horizontal == nil || v.Vertical == nil {
		return p
	}
	return Point{
		X: p.X + v.Horizontal.At(p.Y/float64(height-1))*float64(width),
		Y: p.Y + v.Vertical.At(p.X/float64(width-1))*float64(height),
	}
}

// correct remaps img through v.
func correct(img *Image, v WarpVariant) (*Image, error) {
	w, h := img.width, img.height
	dx := make([]float64, h)
	for y := range dx {
		dx[y] = v.Horizontal.At(float64(y)/float64(h-1)) * float64(w)
	}
	dy := make([]float64, w)
	for x := range dy {
		dy[x] = v.Vertical.At(float64(x)/float64(w-1)) * float64(h)
	}
	t := transform.TransformFunc(func(points []float64) {
		for i := 0; i+1 < len(points); i += 2 {
			x, y := int(points[i]), int(points[i+1])
			points[i] += dx[y]
			points[i+1] += dy[x]
		}
	})
	ps := img.format.PixelStride()
	dst := make([]byte, w*h*ps)
	if err := transform.Remap(dst, img.pix, w, h, ps, t); err != nil {
		return nil, err
	}
	return newImage(dst, w, h, img.format), nil
}

// Warp applies a single variant to img. It is the operation FieldApplicator
// performs per candidate, exposed for callers that want to synthesise or
// inspect corrected images.
func Warp(img *Image, v WarpVariant) (*Image, error) {
	if img == nil || img.width < 2 || img.height < 2 {
		return nil, ErrInvalidImage
	}
	if v.Horizontal == nil || v.Vertical == nil {
		return nil, ErrInvalidOptions
	}
	return correct(img, v)
}
