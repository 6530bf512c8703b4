package zxunwarp

import (
	"fmt"
	"sync"
)

// Correction constants. These are tuned heuristics rather than structural
// values: changing them changes which distortions the search can undo.
const (
	// CorrectionOutputSize is the working resolution every displacement
	// field is resampled to.
	CorrectionOutputSize = 160

	// CorrectionOffset is the number of zero samples kept at each end of a
	// displacement field, so that the image border never moves.
	CorrectionOffset = 15

	// WarpScale scales every basis profile. A unit profile therefore moves
	// pixels by at most 1/36 of the image extent.
	WarpScale = 1.0 / 36.0
)

// Indices into the basis library returned by WarpBasis.
const (
	BasisFlat = iota
	BasisBump
	BasisNegativeBump
)

// bumpProfile is a symmetric raised bump sampled at nine points.
var bumpProfile = []float64{
	0, 0.42005197160798996, 0.7962254169255832, 0.9531493664624343, 1,
	0.9531493664624343, 0.7962254169255832, 0.42005197160798996, 0,
}

// WarpVariantTable pairs basis indices as (horizontal, vertical). Order is
// probing priority: the search stops at the first variant that decodes.
// The four entries cover single-axis bowing in either direction; combined
// two-axis warps are not probed.
var WarpVariantTable = [...][2]int{
	{BasisFlat, BasisBump},
	{BasisFlat, BasisNegativeBump},
	{BasisBump, BasisFlat},
	{BasisNegativeBump, BasisFlat},
}

// DisplacementField is a sampled 1-D displacement profile. Values are
// fractions of the image extent along the displaced axis.
type DisplacementField struct {
	name   string
	values []float64
	scale  float64
}

// NewDisplacementField scales profile by scale and resamples it to size
// samples, keeping offset zero samples at either end.
func NewDisplacementField(name string, profile []float64, scale float64, size, offset int) (*DisplacementField, error) {
	if len(profile) < 2 {
		return nil, fmt.Errorf("profile %q needs at least 2 samples, got %d", name, len(profile))
	}
	if size <= 0 || offset < 0 || size-2*offset < 2 {
		return nil, fmt.Errorf("profile %q: size %d with offset %d leaves no interior", name, size, offset)
	}
	values := make([]float64, size)
	interior := size - 2*offset
	for i := 0; i < interior; i++ {
		t := float64(i) / float64(interior-1)
		values[offset+i] = sampleLinear(profile, t) * scale
	}
	return &DisplacementField{name: name, values: values, scale: scale}, nil
}

// sampleLinear returns the value of samples at normalised position t in
// [0, 1], interpolating linearly between neighbours.
func sampleLinear(samples []float64, t float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	if t <= 0 || n == 1 {
		return samples[0]
	}
	if t >= 1 {
		return samples[n-1]
	}
	pos := t * float64(n-1)
	i := int(pos)
	frac := pos - float64(i)
	if i+1 >= n {
		return samples[n-1]
	}
	return samples[i]*(1-frac) + samples[i+1]*frac
}

// Name returns the profile name.
func (f *DisplacementField) Name() string { return f.name }

// Len returns the resolution the field was resampled to.
func (f *DisplacementField) Len() int { return len(f.values) }

// Scale returns the factor the profile was multiplied by.
func (f *DisplacementField) Scale() float64 { return f.scale }

// Values returns a copy of the samples.
func (f *DisplacementField) Values() []float64 {
	out := make([]float64, len(f.values))
	copy(out, f.values)
	return out
}

// At returns the displacement at normalised position t in [0, 1].
func (f *DisplacementField) At(t float64) float64 {
	return sampleLinear(f.values, t)
}

// IsFlat reports whether the field never displaces anything.
func (f *DisplacementField) IsFlat() bool {
	for _, v := range f.values {
		if v != 0 {
			return false
		}
	}
	return true
}

var warpBasis = sync.OnceValue(func() []*DisplacementField {
	neg := make([]float64, len(bumpProfile))
	for i, v := range bumpProfile {
		neg[i] = -v
	}
	profiles := []struct {
		name    string
		samples []float64
	}{
		{"flat", make([]float64, len(bumpProfile))},
		{"bump", bumpProfile},
		{"negative-bump", neg},
	}
	basis := make([]*DisplacementField, len(profiles))
	for i, p := range profiles {
		f, err := NewDisplacementField(p.name, p.samples, WarpScale, CorrectionOutputSize, CorrectionOffset)
		if err != nil {
			panic(err)
		}
		basis[i] = f
	}
	return basis
})

// WarpBasis returns the fixed library of displacement fields, indexed by
// BasisFlat, BasisBump and BasisNegativeBump. The fields are shared and must
// be treated as read-only.
func WarpBasis() []*DisplacementField {
	b := warpBasis()
	out := make([]*DisplacementField, len(b))
	copy(out, b)
	return out
}

// WarpVariant is one candidate correction: a horizontal and a vertical
// displacement field taken from the basis library.
type WarpVariant struct {
	Horizontal *DisplacementField
	Vertical   *DisplacementField
}

func (v WarpVariant) String() string {
	return v.Horizontal.Name() + "/" + v.Vertical.Name()
}

// WarpVariants pairs the basis library according to WarpVariantTable.
func WarpVariants() []WarpVariant {
	basis := warpBasis()
	variants := make([]WarpVariant, len(WarpVariantTable))
	for i, pair := range WarpVariantTable {
		variants[i] = WarpVariant{Horizontal: basis[pair[0]], Vertical: basis[pair[1]]}
	}
	return variants
}

// CorrectionParameters configures how an Applicator maps a WarpVariant onto
// an image.
type CorrectionParameters struct {
	OutputSize int
	Offset     int
}

// DefaultCorrectionParameters returns the parameters every search uses.
func DefaultCorrectionParameters() CorrectionParameters {
	return CorrectionParameters{OutputSize: CorrectionOutputSize, Offset: CorrectionOffset}
}
