package binarizer

import "image"

const (
	blockShift = 3
	blockSize  = 1 << blockShift

	// Hybrid needs at least a 5x5 neighbourhood of blocks.
	minHybridSize = 5 * blockSize

	// Blocks whose luminance spread is at most this are treated as flat.
	flatRange = 24
)

// Hybrid thresholds each 8x8 block against the average black point of the
// 5x5 blocks around it. It copes with shadows and gradients far better than
// GlobalHistogram, which it falls back to for images smaller than 40 pixels
// in either dimension.
func Hybrid(src Source) (*image.Gray, error) {
	if src.Width() < minHybridSize || src.Height() < minHybridSize {
		return GlobalHistogram(src)
	}
	g := newBlockGrid(src)
	g.estimateBlackPoints()
	out := newWhite(g.width, g.height)
	g.threshold(out)
	return out, nil
}

// blockGrid partitions an image into blockSize squares. The last row and
// column of blocks are shifted inwards so that every block lies fully
// inside the image.
type blockGrid struct {
	lum           []byte
	width, height int
	cols, rows    int
	black         []int
}

func newBlockGrid(src Source) *blockGrid {
	w, h := src.Width(), src.Height()
	g := &blockGrid{
		lum:    src.Luminance(),
		width:  w,
		height: h,
		cols:   (w + blockSize - 1) >> blockShift,
		rows:   (h + blockSize - 1) >> blockShift,
	}
	g.black = make([]int, g.cols*g.rows)
	return g
}

// origin returns the offset of the top-left pixel of block (c, r).
func (g *blockGrid) origin(c, r int) int {
	x := min(c<<blockShift, g.width-blockSize)
	y := min(r<<blockShift, g.height-blockSize)
	return y*g.width + x
}

func (g *blockGrid) stats(c, r int) (mean, lo, hi int) {
	lo = 0xFF
	sum := 0
	for row, off := 0, g.origin(c, r); row < blockSize; row, off = row+1, off+g.width {
		for _, v := range g.lum[off : off+blockSize] {
			p := int(v)
			sum += p
			lo = min(lo, p)
			hi = max(hi, p)
		}
	}
	return sum >> (2 * blockShift), lo, hi
}

func (g *blockGrid) estimateBlackPoints() {
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			mean, lo, hi := g.stats(c, r)
			bp := mean
			if hi-lo <= flatRange {
				// A flat block is taken as background unless its neighbours
				// already established a darker black point.
				bp = lo / 2
				if r > 0 && c > 0 {
					up := g.black[(r-1)*g.cols+c]
					left := g.black[r*g.cols+c-1]
					diag := g.black[(r-1)*g.cols+c-1]
					if n := (up + 2*left + diag) / 4; lo < n {
						bp = n
					}
				}
			}
			g.black[r*g.cols+c] = bp
		}
	}
}

// threshold blackens every pixel at or below the mean black point of the
// 5x5 blocks centred on its block, clamped to the grid.
func (g *blockGrid) threshold(out *image.Gray) {
	for r := 0; r < g.rows; r++ {
		cr := clampInt(r, 2, g.rows-3)
		for c := 0; c < g.cols; c++ {
			cc := clampInt(c, 2, g.cols-3)
			sum := 0
			for dr := -2; dr <= 2; dr++ {
				row := g.black[(cr+dr)*g.cols:]
				for dc := -2; dc <= 2; dc++ {
					sum += row[cc+dc]
				}
			}
			cut := sum / 25
			for y, off := 0, g.origin(c, r); y < blockSize; y, off = y+1, off+g.width {
				for x := off; x < off+blockSize; x++ {
					if int(g.lum[x]) <= cut {
						out.Pix[x] = 0
					}
				}
			}
		}
	}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
