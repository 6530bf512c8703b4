package zxunwarp

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedBackend answers call n (0-based) with script(n).
type scriptedBackend struct {
	name   string
	mu     sync.Mutex
	calls  int
	opts   []*DecodeOptions
	script func(call int, img *Image) (Results, error)
}

func (b *scriptedBackend) Name() string { return b.name }

func (b *scriptedBackend) Decode(img *Image, opts *DecodeOptions) (Results, error) {
	b.mu.Lock()
	n := b.calls
	b.calls++
	b.opts = append(b.opts, opts)
	b.mu.Unlock()
	if b.script == nil {
		return nil, nil
	}
	return b.script(n, img)
}

func (b *scriptedBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func never(name string) *scriptedBackend { return &scriptedBackend{name: name} }

func always(name, text string) *scriptedBackend {
	return &scriptedBackend{name: name, script: func(int, *Image) (Results, error) {
		return Results{{Text: text, Format: FormatQRCode}}, nil
	}}
}

// onCall succeeds on the given call only.
func onCall(name string, call int, text string) *scriptedBackend {
	return &scriptedBackend{name: name, script: func(n int, _ *Image) (Results, error) {
		if n == call {
			return Results{{Text: text, Format: FormatQRCode}}, nil
		}
		return nil, nil
	}}
}

type recordingObserver struct {
	mu       sync.Mutex
	probed   []int
	attempts map[string]int
	faults   map[string]int
	finished []bool
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{attempts: map[string]int{}, faults: map[string]int{}}
}

func (o *recordingObserver) VariantProbed(v int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.probed = append(o.probed, v)
}

func (o *recordingObserver) BackendAttempt(name string, _ bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts[name]++
}

func (o *recordingObserver) BackendFault(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.faults[name]++
}

func (o *recordingObserver) SearchFinished(_ StrategyPolicy, found bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, found)
}

func blankImage(t testing.TB, w, h int) *Image {
	t.Helper()
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = 0xff
	}
	img, err := NewImage(pix, w, h, ImageLum, 0)
	require.NoError(t, err)
	return img
}

func newTestScanner(grid, general Backend, obs Observer) *Scanner {
	return NewScanner(
		WithBackend(BackendSampleGrid, grid),
		WithBackend(BackendGeneral, general),
		WithObserver(obs),
	)
}

func TestSearchExhaustsAllVariants(t *testing.T) {
	grid, general := never("grid"), never("general")
	obs := newRecordingObserver()
	s := newTestScanner(grid, general, obs)

	out, err := s.Search(blankImage(t, 64, 64), nil, PolicyLayered)
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, -1, out.Variant)
	assert.Equal(t, []int{0, 1, 2, 3}, obs.probed)
	assert.Equal(t, len(WarpVariantTable), grid.Calls())
	assert.Equal(t, len(WarpVariantTable), general.Calls())
	assert.Equal(t, []bool{false}, obs.finished)
}

func TestSearchLayeredPrefersSampleGrid(t *testing.T) {
	grid, general := always("grid", "from grid"), always("general", "from general")
	s := newTestScanner(grid, general, nil)

	out, err := s.Search(blankImage(t, 64, 64), nil, PolicyLayered)
	require.NoError(t, err)
	require.Len(t, out.Symbols, 1)
	assert.Equal(t, "from grid", out.Symbols[0].Text)
	assert.Equal(t, "grid", out.Strategy)
	assert.Equal(t, 0, out.Variant)
	assert.Equal(t, 1, grid.Calls())
	assert.Zero(t, general.Calls())
}

func TestSearchLayeredFallsBackToGeneral(t *testing.T) {
	grid, general := never("grid"), always("general", "from general")
	s := newTestScanner(grid, general, nil)

	out, err := s.Search(blankImage(t, 64, 64), nil, PolicyLayered)
	require.NoError(t, err)
	require.Len(t, out.Symbols, 1)
	assert.Equal(t, "general", out.Strategy)
	assert.Equal(t, 0, out.Variant)
	assert.Equal(t, 1, grid.Calls())
	assert.Equal(t, 1, general.Calls())
}

func TestSearchSingleSkipsSampleGrid(t *testing.T) {
	grid, general := always("grid", "from grid"), onCall("general", 1, "from general")
	s := newTestScanner(grid, general, nil)

	out, err := s.Search(blankImage(t, 64, 64), nil, PolicySingle)
	require.NoError(t, err)
	require.Len(t, out.Symbols, 1)
	assert.Equal(t, "from general", out.Symbols[0].Text)
	assert.Equal(t, 1, out.Variant)
	assert.Zero(t, grid.Calls())
}

func TestSearchStopsAtFirstSuccessfulVariant(t *testing.T) {
	general := onCall("general", 2, "third")
	obs := newRecordingObserver()
	s := newTestScanner(never("grid"), general, obs)

	out, err := s.Search(blankImage(t, 64, 64), nil, PolicySingle)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Variant)
	assert.Equal(t, []int{0, 1, 2}, obs.probed)
	assert.Equal(t, 3, general.Calls())
}

func TestSearchIsolatesBackendFaults(t *testing.T) {
	grid := &scriptedBackend{name: "grid", script: func(n int, _ *Image) (Results, error) {
		switch n {
		case 0:
			panic("index out of range")
		case 1:
			return nil, errors.New("corrupt stream")
		default:
			return Results{{Text: "recovered", Format: FormatQRCode}}, nil
		}
	}}
	general := never("general")
	obs := newRecordingObserver()
	s := newTestScanner(grid, general, obs)

	out, err := s.Search(blankImage(t, 64, 64), nil, PolicyLayered)
	require.NoError(t, err)
	require.Len(t, out.Symbols, 1)
	assert.Equal(t, "recovered", out.Symbols[0].Text)
	assert.Equal(t, 2, out.Variant)
	assert.Equal(t, 2, obs.faults["grid"])
	// The general back-end still ran on the variants where grid faulted.
	assert.Equal(t, 2, general.Calls())
}

func TestSearchLogsFaultsAndSuccess(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	grid := &scriptedBackend{name: "grid", script: func(n int, _ *Image) (Results, error) {
		if n == 0 {
			panic("bad finder pattern")
		}
		return Results{{Text: "ok", Format: FormatQRCode}}, nil
	}}
	s := NewScanner(
		WithBackend(BackendSampleGrid, grid),
		WithBackend(BackendGeneral, never("general")),
		WithLogger(zap.New(core)),
	)

	_, err := s.Search(blankImage(t, 64, 64), nil, PolicyLayered)
	require.NoError(t, err)

	faults := logs.FilterMessage("backend fault").All()
	require.Len(t, faults, 1)
	assert.Equal(t, "grid", faults[0].ContextMap()["backend"])
	assert.EqualValues(t, 0, faults[0].ContextMap()["variant"])

	done := logs.FilterMessage("search succeeded").All()
	require.Len(t, done, 1)
	assert.EqualValues(t, 1, done[0].ContextMap()["variant"])
	assert.Equal(t, "grid", done[0].ContextMap()["backend"])
	assert.Equal(t, 2, logs.FilterMessage("probing warp variant").Len())
}

func TestSearchFaultingEverywhereIsEmpty(t *testing.T) {
	failing := &scriptedBackend{name: "general", script: func(int, *Image) (Results, error) {
		return nil, errors.New("boom")
	}}
	s := newTestScanner(never("grid"), failing, nil)

	out, err := s.Search(blankImage(t, 32, 32), nil, PolicySingle)
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, len(WarpVariantTable), failing.Calls())
}

type refusingApplicator struct{ called bool }

func (a *refusingApplicator) Apply(*Image, []WarpVariant, CorrectionParameters, CandidateFunc) bool {
	a.called = true
	return false
}

func TestSearchInapplicableCallsNoBackend(t *testing.T) {
	grid, general := always("grid", "x"), always("general", "y")

	app := &refusingApplicator{}
	s := NewScanner(WithApplicator(app), WithBackend(BackendSampleGrid, grid), WithBackend(BackendGeneral, general))
	out, err := s.Search(blankImage(t, 32, 32), nil, PolicyLayered)
	require.NoError(t, err)
	assert.True(t, app.called)
	assert.True(t, out.Empty())

	// A 1x1 image cannot be corrected by the default applicator.
	s = newTestScanner(grid, general, nil)
	out, err = s.Search(blankImage(t, 1, 1), nil, PolicyLayered)
	require.NoError(t, err)
	assert.True(t, out.Empty())

	assert.Zero(t, grid.Calls())
	assert.Zero(t, general.Calls())
}

func TestSearchIsDeterministic(t *testing.T) {
	img := lineImage(t, 120, 80, 60)
	run := func() *Outcome {
		general := &scriptedBackend{name: "general", script: func(n int, img *Image) (Results, error) {
			if n < 1 {
				return nil, nil
			}
			return Results{{
				Text:     "stable",
				Format:   FormatCode128,
				Position: PositionFromPoints([]Point{{X: 10, Y: 40}, {X: 110, Y: 40}}),
			}}, nil
		}}
		out, err := newTestScanner(never("grid"), general, nil).Search(img, nil, PolicyLayered)
		require.NoError(t, err)
		return out
	}
	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated search differs (-first +second):\n%s", diff)
	}
}

func TestSearchTruncatesToMaxSymbols(t *testing.T) {
	many := &scriptedBackend{name: "general", script: func(int, *Image) (Results, error) {
		return Results{{Text: "a"}, {Text: "b"}, {Text: "c"}}, nil
	}}
	s := newTestScanner(never("grid"), many, nil)
	opts := DefaultDecodeOptions()
	opts.MaxNumberOfSymbols = 2

	out, err := s.Search(blankImage(t, 32, 32), opts, PolicySingle)
	require.NoError(t, err)
	assert.Len(t, out.Symbols, 2)
}

func TestSearchDoesNotAliasOptions(t *testing.T) {
	general := always("general", "x")
	s := newTestScanner(never("grid"), general, nil)
	opts := DefaultDecodeOptions()
	opts.Formats = NewFormats(FormatQRCode)

	_, err := s.Search(blankImage(t, 32, 32), opts, PolicySingle)
	require.NoError(t, err)
	require.Len(t, general.opts, 1)
	assert.NotSame(t, opts, general.opts[0])
	assert.Equal(t, *opts, *general.opts[0])
}

// limitedBackend decodes only the given formats.
type limitedBackend struct {
	*scriptedBackend
	formats Formats
}

func (b limitedBackend) SupportedFormats() Formats { return b.formats }

func TestSearchRejectsUnsupportedFormats(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	grid := limitedBackend{always("grid", "qr"), NewFormats(FormatQRCode)}
	general := limitedBackend{always("general", "ean"), NewFormats(FormatEAN13)}
	s := NewScanner(
		WithBackend(BackendSampleGrid, grid),
		WithBackend(BackendGeneral, general),
		WithLogger(zap.New(core)),
	)
	img := blankImage(t, 32, 32)
	only := func(formats ...Format) *DecodeOptions {
		opts := DefaultDecodeOptions()
		opts.Formats = NewFormats(formats...)
		return opts
	}

	_, err := s.Search(img, only(FormatPDF417), PolicyLayered)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = s.Search(img, only(FormatQRCode), PolicySingle)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = s.Read(img, only(FormatQRCode))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = s.ReadSampleGrid(img, only(FormatEAN13))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Zero(t, grid.Calls())
	assert.Zero(t, general.Calls())

	// Each back-end covers part of the request under Layered.
	out, err := s.Search(img, only(FormatEAN13), PolicyLayered)
	require.NoError(t, err)
	assert.Equal(t, "qr", out.Symbols[0].Text)
	assert.Zero(t, logs.Len())

	// A partly supported request runs and names what is ignored.
	out, err = s.Search(img, only(FormatQRCode, FormatPDF417), PolicyLayered)
	require.NoError(t, err)
	assert.False(t, out.Empty())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "PDF_417", logs.All()[0].ContextMap()["formats"])

	// Back-ends that do not declare their formats accept anything.
	plain := newTestScanner(never("grid"), never("general"), nil)
	_, err = plain.Search(img, only(FormatMaxiCode), PolicyLayered)
	assert.NoError(t, err)
}

func TestSearchRejectsMisuse(t *testing.T) {
	grid, general := always("grid", "x"), always("general", "y")
	s := newTestScanner(grid, general, nil)
	img := blankImage(t, 32, 32)

	_, err := s.Search(nil, nil, PolicyLayered)
	assert.ErrorIs(t, err, ErrInvalidImage)

	bad := DefaultDecodeOptions()
	bad.MaxNumberOfSymbols = 0
	_, err = s.Search(img, bad, PolicyLayered)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	bad = DefaultDecodeOptions()
	bad.TextMode = TextMode(42)
	_, err = s.Search(img, bad, PolicyLayered)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = s.Search(img, nil, StrategyPolicy(7))
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	missing := newTestScanner(grid, general, nil)
	delete(missing.backends, BackendSampleGrid)
	_, err = missing.Search(img, nil, PolicyLayered)
	assert.ErrorIs(t, err, ErrNoBackend)

	assert.Zero(t, grid.Calls())
	assert.Zero(t, general.Calls())
}

func TestSearchOne(t *testing.T) {
	many := &scriptedBackend{name: "general", script: func(int, *Image) (Results, error) {
		return Results{{Text: "a"}, {Text: "b"}}, nil
	}}
	s := newTestScanner(never("grid"), many, nil)

	sym, err := s.SearchOne(blankImage(t, 32, 32), nil, PolicySingle)
	require.NoError(t, err)
	assert.Equal(t, "a", sym.Text)
	require.Len(t, many.opts, 1)
	assert.Equal(t, 1, many.opts[0].MaxNumberOfSymbols)

	s = newTestScanner(never("grid"), never("general"), nil)
	_, err = s.SearchOne(blankImage(t, 32, 32), nil, PolicySingle)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadUsesOneBackendWithoutCorrection(t *testing.T) {
	grid, general := always("grid", "g"), always("general", "m")
	obs := newRecordingObserver()
	s := newTestScanner(grid, general, obs)
	img := blankImage(t, 32, 32)

	res, err := s.Read(img, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "m", res[0].Text)

	res, err = s.ReadSampleGrid(img, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "g", res[0].Text)

	assert.Equal(t, 1, grid.Calls())
	assert.Equal(t, 1, general.Calls())
	assert.Empty(t, obs.probed)
}

func TestReadReportsFaults(t *testing.T) {
	panicky := &scriptedBackend{name: "general", script: func(int, *Image) (Results, error) {
		panic("bad module count")
	}}
	s := newTestScanner(never("grid"), panicky, nil)

	_, err := s.Read(blankImage(t, 32, 32), nil)
	var fault *BackendFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "general", fault.Backend)
	assert.Equal(t, -1, fault.Variant)
	assert.Contains(t, err.Error(), "decoder panic")
}

func TestReadOne(t *testing.T) {
	s := newTestScanner(never("grid"), never("general"), nil)
	_, err := s.ReadOne(blankImage(t, 32, 32), nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ReadOneSampleGrid(blankImage(t, 32, 32), nil)
	assert.ErrorIs(t, err, ErrNotFound)

	s = newTestScanner(always("grid", "g"), always("general", "m"), nil)
	sym, err := s.ReadOneSampleGrid(blankImage(t, 32, 32), nil)
	require.NoError(t, err)
	assert.Equal(t, "g", sym.Text)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]StrategyPolicy{
		"layered":    PolicyLayered,
		"Layered":    PolicyLayered,
		"samplegrid": PolicyLayered,
		"single":     PolicySingle,
		" standard ": PolicySingle,
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePolicy("fastest")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Equal(t, "layered", PolicyLayered.String())
	assert.Equal(t, "StrategyPolicy(9)", StrategyPolicy(9).String())
}

// lineImage draws a three pixel wide vertical black line centred on column
// x.
func lineImage(t testing.TB, w, h, x int) *Image {
	t.Helper()
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = 0xff
	}
	for y := 0; y < h; y++ {
		for dx := -1; dx <= 1; dx++ {
			pix[y*w+x+dx] = 0
		}
	}
	img, err := NewImage(pix, w, h, ImageLum, 0)
	require.NoError(t, err)
	return img
}

// straightLineBackend "decodes" an image whose darkest column is within one
// pixel of want on every row.
func straightLineBackend(want int) *scriptedBackend {
	return &scriptedBackend{name: "line", script: func(_ int, img *Image) (Results, error) {
		w, h := img.Width(), img.Height()
		lum := img.Luminance()
		for y := 0; y < h; y++ {
			best := 0
			for x := 1; x < w; x++ {
				if lum[y*w+x] < lum[y*w+best] {
					best = x
				}
			}
			if best < want-1 || best > want+1 {
				return nil, nil
			}
		}
		return Results{{
			Text:     "straight",
			Format:   FormatCode128,
			Position: PositionFromPoints([]Point{{X: float64(want), Y: 0}, {X: float64(want), Y: float64(h / 2)}}),
		}}, nil
	}}
}

func TestSearchUndoesHorizontalBow(t *testing.T) {
	const size, col = 200, 100
	variants := WarpVariants()

	// Bend the line with the inverse of variant 2.
	bent, err := Warp(lineImage(t, size, size, col), variants[3])
	require.NoError(t, err)

	line := straightLineBackend(col)
	res, err := line.Decode(bent, DefaultDecodeOptions())
	require.NoError(t, err)
	require.True(t, res.Empty(), "bent line should not decode uncorrected")

	obs := newRecordingObserver()
	s := NewScanner(
		WithBackend(BackendSampleGrid, line),
		WithBackend(BackendGeneral, never("general")),
		WithObserver(obs),
	)
	out, err := s.Search(bent, nil, PolicyLayered)
	require.NoError(t, err)
	require.False(t, out.Empty())
	assert.Equal(t, 2, out.Variant)
	assert.Equal(t, "line", out.Strategy)
	assert.Equal(t, []int{0, 1, 2}, obs.probed)

	// Positions come back in the coordinates of the bent image.
	want := FieldApplicator{}.MapPoint(variants[2], size, size, Point{X: col, Y: size / 2})
	assert.InDelta(t, want.X, out.Symbols[0].Position[1].X, 1e-9)
	assert.Greater(t, out.Symbols[0].Position[1].X, float64(col)+3)

	// Under Single the line back-end is never consulted.
	out, err = s.Search(bent, nil, PolicySingle)
	require.NoError(t, err)
	assert.True(t, out.Empty())
}

func TestConcurrentSearches(t *testing.T) {
	s := newTestScanner(never("grid"), onCall("general", 1<<30, ""), nil)
	img := blankImage(t, 48, 48)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.Search(img, nil, PolicyLayered)
			assert.NoError(t, err)
			assert.True(t, out.Empty())
		}()
	}
	wg.Wait()
}
