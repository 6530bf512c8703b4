package metrics

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zxunwarp "github.com/ericlevine/zxunwarp"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.VariantProbed(0)
	c.VariantProbed(1)
	c.VariantProbed(1)
	c.BackendAttempt("samplegrid", false)
	c.BackendAttempt("multiformat", true)
	c.BackendFault("samplegrid")
	c.SearchFinished(zxunwarp.PolicyLayered, true, 20*time.Millisecond)
	c.SearchFinished(zxunwarp.PolicySingle, false, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.variants.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues("multiformat", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.faults.WithLabelValues("samplegrid")))

	expected := `
# HELP zxunwarp_searches_total Total number of warp searches
# TYPE zxunwarp_searches_total counter
zxunwarp_searches_total{outcome="exhausted",policy="single"} 1
zxunwarp_searches_total{outcome="found",policy="layered"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "zxunwarp_searches_total"))

	n, err := testutil.GatherAndCount(reg, "zxunwarp_search_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCollectorRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestCollectorObservesScanner(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	never := zxunwarp.BackendFunc{ID: "never", Fn: func(*zxunwarp.Image, *zxunwarp.DecodeOptions) (zxunwarp.Results, error) {
		return nil, nil
	}}
	s := zxunwarp.NewScanner(
		zxunwarp.WithBackend(zxunwarp.BackendSampleGrid, never),
		zxunwarp.WithBackend(zxunwarp.BackendGeneral, never),
		zxunwarp.WithObserver(c),
	)
	img, err := zxunwarp.NewImage(make([]byte, 16*16), 16, 16, zxunwarp.ImageLum, 0)
	require.NoError(t, err)

	out, err := s.Search(img, nil, zxunwarp.PolicyLayered)
	require.NoError(t, err)
	assert.True(t, out.Empty())

	for v := range zxunwarp.WarpVariantTable {
		assert.Equal(t, 1.0, testutil.ToFloat64(c.variants.WithLabelValues(strconv.Itoa(v))))
	}
	assert.Equal(t, 8.0, testutil.ToFloat64(c.attempts.WithLabelValues("never", "empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searches.WithLabelValues("layered", "exhausted")))
}
