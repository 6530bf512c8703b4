package binarizer

import (
	"image"

	zxunwarp "github.com/ericlevine/zxunwarp"
)

// DefaultThreshold is the cut-off FixedThreshold uses.
const DefaultThreshold = 127

// FixedThreshold treats every pixel with luminance <= threshold as black.
func FixedThreshold(src Source, threshold int) *image.Gray {
	width, height := src.Width(), src.Height()
	out := newWhite(width, height)
	for i, v := range src.Luminance()[:width*height] {
		if int(v) <= threshold {
			out.Pix[i] = 0
		}
	}
	return out
}

// BoolCast treats only zero luminance as black. It suits images that are
// already binary.
func BoolCast(src Source) *image.Gray {
	width, height := src.Width(), src.Height()
	out := newWhite(width, height)
	for i, v := range src.Luminance()[:width*height] {
		if v == 0 {
			out.Pix[i] = 0
		}
	}
	return out
}

// ForMethod binarizes src with the method selected in decode options.
func ForMethod(src Source, method zxunwarp.Binarizer) (*image.Gray, error) {
	switch method {
	case zxunwarp.BinarizerGlobalHistogram:
		return GlobalHistogram(src)
	case zxunwarp.BinarizerFixedThreshold:
		return FixedThreshold(src, DefaultThreshold), nil
	case zxunwarp.BinarizerBoolCast:
		return BoolCast(src), nil
	default:
		return Hybrid(src)
	}
}
