package zxunwarp_test

import (
	"image"
	"image/color"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zxunwarp "github.com/ericlevine/zxunwarp"

	// Register the decode back-ends.
	_ "github.com/ericlevine/zxunwarp/multiformat"
	_ "github.com/ericlevine/zxunwarp/samplegrid"
)

// qrImage renders content as a size x size QR code centred on a white
// canvas x canvas image.
func qrImage(t testing.TB, content string, size, canvas int) image.Image {
	t.Helper()
	q, err := qrcode.New(content, qrcode.Medium)
	require.NoError(t, err)
	sym := q.Image(size)
	if canvas <= size {
		return sym
	}
	return imaging.PasteCenter(imaging.New(canvas, canvas, color.White), sym)
}

func toImage(t testing.TB, img image.Image) *zxunwarp.Image {
	t.Helper()
	out, err := zxunwarp.FromImage(img)
	require.NoError(t, err)
	return out
}

type countingObserver struct {
	mu      sync.Mutex
	probes  int
	faults  int
	results []bool
}

func (o *countingObserver) VariantProbed(int) {
	o.mu.Lock()
	o.probes++
	o.mu.Unlock()
}

func (o *countingObserver) BackendAttempt(string, bool) {}

func (o *countingObserver) BackendFault(string) {
	o.mu.Lock()
	o.faults++
	o.mu.Unlock()
}

func (o *countingObserver) SearchFinished(_ zxunwarp.StrategyPolicy, found bool, _ time.Duration) {
	o.mu.Lock()
	o.results = append(o.results, found)
	o.mu.Unlock()
}

func TestReadQRCode(t *testing.T) {
	img := toImage(t, qrImage(t, "Hello, World!", 256, 320))

	res, err := zxunwarp.Read(img, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Hello, World!", res[0].Text)
	assert.Equal(t, zxunwarp.FormatQRCode, res[0].Format)
	assert.Equal(t, "]Q1", res[0].SymbologyIdentifier)
	assert.False(t, res[0].Position.IsZero())

	lo, hi := res[0].Position.Bounds()
	assert.GreaterOrEqual(t, lo.X, 0.0)
	assert.LessOrEqual(t, hi.X, 320.0)
}

func TestReadSampleGridQRCode(t *testing.T) {
	img := toImage(t, qrImage(t, "1234567890", 256, 320))

	res, err := zxunwarp.NewScanner().ReadSampleGrid(img, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "1234567890", res[0].Text)
	assert.Equal(t, zxunwarp.FormatQRCode, res[0].Format)
}

func TestReadHonoursFormats(t *testing.T) {
	img := toImage(t, qrImage(t, "format filter", 256, 320))
	opts := zxunwarp.DefaultDecodeOptions()
	opts.Formats = zxunwarp.NewFormats(zxunwarp.FormatEAN13)

	s := zxunwarp.NewScanner()
	res, err := s.Read(img, opts)
	require.NoError(t, err)
	assert.True(t, res.Empty())

	_, err = s.ReadOne(img, opts)
	assert.ErrorIs(t, err, zxunwarp.ErrNotFound)

	// The grid sampler reads QR codes only.
	_, err = s.ReadSampleGrid(img, opts)
	assert.ErrorIs(t, err, zxunwarp.ErrUnsupportedFormat)
}

func TestSearchRejectsFormatsWithoutReader(t *testing.T) {
	img := toImage(t, qrImage(t, "no reader", 200, 280))
	for _, f := range []zxunwarp.Format{zxunwarp.FormatPDF417, zxunwarp.FormatMaxiCode, zxunwarp.FormatDataBarExpanded} {
		opts := zxunwarp.DefaultDecodeOptions()
		opts.Formats = zxunwarp.NewFormats(f)
		for _, policy := range []zxunwarp.StrategyPolicy{zxunwarp.PolicyLayered, zxunwarp.PolicySingle} {
			_, err := zxunwarp.Search(img, opts, policy)
			assert.ErrorIs(t, err, zxunwarp.ErrUnsupportedFormat, "%v %v", f, policy)
		}
	}

	opts := zxunwarp.DefaultDecodeOptions()
	opts.Formats = zxunwarp.NewFormats(zxunwarp.FormatQRCode, zxunwarp.FormatPDF417)
	out, err := zxunwarp.Search(img, opts, zxunwarp.PolicyLayered)
	require.NoError(t, err)
	require.False(t, out.Empty())
	assert.Equal(t, "no reader", out.Symbols[0].Text)
}

func TestSearchSingleFindsCentredQRCode(t *testing.T) {
	img := toImage(t, qrImage(t, "centred", 200, 1000))

	out, err := zxunwarp.Search(img, nil, zxunwarp.PolicySingle)
	require.NoError(t, err)
	require.Len(t, out.Symbols, 1)
	assert.Equal(t, "centred", out.Symbols[0].Text)
	assert.Equal(t, 0, out.Variant)
	assert.Equal(t, "multiformat", out.Strategy)
}

func TestSearchLayeredRecoversBowedQRCode(t *testing.T) {
	straight := toImage(t, qrImage(t, "bowed symbol", 240, 360))
	bowed, err := zxunwarp.Warp(straight, zxunwarp.WarpVariants()[1])
	require.NoError(t, err)

	out, err := zxunwarp.Search(bowed, nil, zxunwarp.PolicyLayered)
	require.NoError(t, err)
	require.False(t, out.Empty())
	assert.Equal(t, "bowed symbol", out.Symbols[0].Text)
	assert.GreaterOrEqual(t, out.Variant, 0)
}

func TestSearchLayeredKeepsNumericPayloads(t *testing.T) {
	straight := toImage(t, qrImage(t, "1234567890", 240, 360))
	bowed, err := zxunwarp.Warp(straight, zxunwarp.WarpVariants()[1])
	require.NoError(t, err)

	for _, img := range []*zxunwarp.Image{straight, bowed} {
		out, err := zxunwarp.Search(img, nil, zxunwarp.PolicyLayered)
		require.NoError(t, err)
		require.False(t, out.Empty())
		assert.Equal(t, "1234567890", out.Symbols[0].Text)
		assert.Equal(t, []byte("1234567890"), out.Symbols[0].Bytes)
	}
}

func TestSearchLayeredFallsBackOnMixedDigits(t *testing.T) {
	img := toImage(t, qrImage(t, "ORDER 12345678", 240, 360))

	out, err := zxunwarp.Search(img, nil, zxunwarp.PolicyLayered)
	require.NoError(t, err)
	require.False(t, out.Empty())
	assert.Equal(t, "ORDER 12345678", out.Symbols[0].Text)
	assert.Equal(t, "multiformat", out.Strategy)
}

func TestSearchOneReturnsSingleSymbol(t *testing.T) {
	img := toImage(t, qrImage(t, "just one", 200, 300))

	sym, err := zxunwarp.NewScanner().SearchOne(img, nil, zxunwarp.PolicyLayered)
	require.NoError(t, err)
	assert.Equal(t, "just one", sym.Text)
}

func TestSearchExhaustsOnBlankAndNoise(t *testing.T) {
	blank := imaging.New(200, 200, color.White)

	rng := rand.New(rand.NewSource(1))
	noise := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range noise.Pix {
		noise.Pix[i] = byte(120 + rng.Intn(16))
	}

	for name, src := range map[string]image.Image{"blank": blank, "noise": noise} {
		t.Run(name, func(t *testing.T) {
			obs := &countingObserver{}
			s := zxunwarp.NewScanner(zxunwarp.WithObserver(obs))
			for _, policy := range []zxunwarp.StrategyPolicy{zxunwarp.PolicyLayered, zxunwarp.PolicySingle} {
				out, err := s.Search(toImage(t, src), nil, policy)
				require.NoError(t, err)
				assert.True(t, out.Empty())
				assert.Equal(t, -1, out.Variant)
			}
			assert.Equal(t, 2*len(zxunwarp.WarpVariantTable), obs.probes)
			assert.Equal(t, []bool{false, false}, obs.results)
		})
	}
}

func TestSearchTextModes(t *testing.T) {
	img := toImage(t, qrImage(t, "AB", 200, 280))
	opts := zxunwarp.DefaultDecodeOptions()

	opts.TextMode = zxunwarp.TextHex
	out, err := zxunwarp.Search(img, opts, zxunwarp.PolicySingle)
	require.NoError(t, err)
	require.False(t, out.Empty())
	assert.Equal(t, "41 42", out.Symbols[0].Text)

	opts.TextMode = zxunwarp.TextECI
	out, err = zxunwarp.Search(img, opts, zxunwarp.PolicySingle)
	require.NoError(t, err)
	require.False(t, out.Empty())
	assert.Equal(t, "]Q1AB", out.Symbols[0].Text)

	accented := toImage(t, qrImage(t, "café", 200, 280))
	opts.TextMode = zxunwarp.TextPlain
	for _, policy := range []zxunwarp.StrategyPolicy{zxunwarp.PolicyLayered, zxunwarp.PolicySingle} {
		out, err = zxunwarp.Search(accented, opts, policy)
		require.NoError(t, err, policy)
		require.False(t, out.Empty(), policy)
		assert.Equal(t, "café", out.Symbols[0].Text, policy)
	}
}
