// Package binarizer converts luminance data to black and white images.
//
// Every function returns an *image.Gray whose pixels are either 0 (black)
// or 255 (white), so the result can be handed to any decoder that accepts a
// standard image.
package binarizer

import (
	"errors"
	"image"
)

// ErrLowContrast is returned when the luminance histogram has no usable
// valley between its dark and light peaks.
var ErrLowContrast = errors.New("binarizer: not enough contrast")

const (
	luminanceBits    = 5
	luminanceShift   = 8 - luminanceBits
	luminanceBuckets = 1 << luminanceBits
)

// Source provides greyscale luminance for an image.
type Source interface {
	// Row returns a row of luminance data. If row is non-nil and large
	// enough, it should be reused.
	Row(y int, row []byte) []byte

	// Luminance returns the entire luminance matrix, rows tightly packed.
	Luminance() []byte

	Width() int
	Height() int
}

func newWhite(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	return img
}

// GlobalHistogram picks one black point from a histogram of the central
// rows of the image and thresholds every pixel against it. It is fast but
// struggles with uneven lighting; Hybrid handles that better.
func GlobalHistogram(src Source) (*image.Gray, error) {
	width, height := src.Width(), src.Height()

	// Sample four rows across the middle three fifths of the image.
	var h histogram
	row := make([]byte, width)
	for i := 1; i < 5; i++ {
		row = src.Row(height*i/5, row)
		for _, v := range row[width/5 : width*4/5] {
			h[v>>luminanceShift]++
		}
	}
	cut, err := h.blackPoint()
	if err != nil {
		return nil, err
	}

	out := newWhite(width, height)
	for i, v := range src.Luminance()[:width*height] {
		if int(v) < cut {
			out.Pix[i] = 0
		}
	}
	return out, nil
}

type histogram [luminanceBuckets]int

// peaks returns the tallest bucket and the bucket that best combines height
// with distance from it, in ascending order, plus the tallest count.
func (h *histogram) peaks() (lo, hi, tallest int) {
	for i, n := range h {
		if n > tallest {
			lo, tallest = i, n
		}
	}
	best := 0
	for i, n := range h {
		d := i - lo
		if score := n * d * d; score > best {
			hi, best = i, score
		}
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, tallest
}

// blackPoint returns the luminance at the deepest valley between the two
// peaks, biased towards the light peak.
func (h *histogram) blackPoint() (int, error) {
	lo, hi, tallest := h.peaks()
	if hi-lo <= luminanceBuckets/16 {
		return 0, ErrLowContrast
	}
	valley, best := hi-1, -1
	for i := hi - 1; i > lo; i-- {
		d := i - lo
		if score := d * d * (hi - i) * (tallest - h[i]); score > best {
			valley, best = i, score
		}
	}
	return valley << luminanceShift, nil
}
