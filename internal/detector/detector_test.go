package detector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
	"github.com/lukaszgryglicki/tissuemc/internal/photon"
	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

func rng(start, stop Real, count int) *Range {
	r := NewRange(start, stop, count)
	return &r
}

func layerRegions(t *testing.T) []tissue.Region {
	t.Helper()
	m, err := tissue.NewMultiLayerFromThickness(tissue.Air,
		[]Real{1, 2},
		[]tissue.OpticalProperties{{Mua: 0.01, Mus: 10, G: 0.8, N: 1.4}, {Mua: 0.01, Mus: 10, G: 0.8, N: 1.5}},
		tissue.Air)
	require.NoError(t, err)
	return m.Regions()
}

func TestRangeIndex(t *testing.T) {
	r := NewRange(0, 10, 11)
	require.NoError(t, r.Validate())
	assert.Equal(t, 10, r.NumBins())
	assert.InDelta(t, 1.0, r.Delta(), 1e-15)

	cases := []struct {
		v      Real
		p      Policy
		bin    int
		inside bool
	}{
		{0, Drop, 0, true},
		{0.999, Drop, 0, true},
		{1, Drop, 1, true},
		{10, Drop, 9, true},
		{-0.1, Drop, 0, false},
		{10.1, Drop, 0, false},
		{-0.1, Clip, 0, true},
		{1e9, Clip, 9, true},
		{math.NaN(), Clip, 0, false},
	}
	for _, c := range cases {
		bin, ok := r.Index(c.v, c.p)
		assert.Equal(t, c.inside, ok, "v=%g policy=%s", c.v, c.p)
		if ok {
			assert.Equal(t, c.bin, bin, "v=%g policy=%s", c.v, c.p)
		}
	}
	assert.ErrorIs(t, NewRange(0, 1, 1).Validate(), ErrInvalidDetector)
	assert.ErrorIs(t, NewRange(1, 0, 5).Validate(), ErrInvalidDetector)
	assert.Len(t, r.Edges(), 11)
}

func TestROfRhoNormalization(t *testing.T) {
	d, err := New(Config{TallyType: ROfRhoType, Rho: rng(0, 2, 3)}, nil)
	require.NoError(t, err)
	ed := d.(ExitDetector)
	ed.TallyExit(&Exit{Kind: Reflected, Pos: geom.Point3{X: 0.5}, Dir: geom.Vector3{Z: -1}, Weight: 1})
	ed.TallyExit(&Exit{Kind: Reflected, Pos: geom.Point3{Y: 1.5}, Dir: geom.Vector3{Z: -1}, Weight: 0.5})
	ed.TallyExit(&Exit{Kind: Transmitted, Pos: geom.Point3{X: 0.5}, Dir: geom.Vector3{Z: 1}, Weight: 1})
	ed.TallyExit(&Exit{Kind: Reflected, Pos: geom.Point3{X: 5}, Dir: geom.Vector3{Z: -1}, Weight: 1})

	res := d.Normalize(10)
	require.Equal(t, []int{2}, res.Dims())
	assert.InDelta(t, 1/(10*2*math.Pi*0.5*1), res.At(0), 1e-15)
	assert.InDelta(t, 0.5/(10*2*math.Pi*1.5*1), res.At(1), 1e-15)
	assert.Nil(t, res.StdErr)
}

func TestOutOfRangeClip(t *testing.T) {
	d, err := New(Config{TallyType: ROfRhoType, Rho: rng(0, 2, 3), OutOfRange: "clip"}, nil)
	require.NoError(t, err)
	d.(ExitDetector).TallyExit(&Exit{Kind: Reflected, Pos: geom.Point3{X: 5}, Weight: 1})
	res := d.Normalize(1)
	assert.Zero(t, res.At(0))
	assert.Greater(t, res.At(1), 0.0)

	_, err = New(Config{TallyType: ROfRhoType, Rho: rng(0, 2, 3), OutOfRange: "wrap"}, nil)
	assert.ErrorIs(t, err, ErrInvalidDetector)
}

func TestScalarsAndSecondMoment(t *testing.T) {
	set, err := NewSet([]Config{
		{TallyType: RSpecularType},
		{TallyType: RDiffuseType, TallySecondMoment: true},
		{TallyType: TDiffuseType},
		{TallyType: ATotalType},
	}, nil)
	require.NoError(t, err)
	require.Len(t, set.Exit, 3)
	require.Len(t, set.Volume, 1)
	assert.True(t, set.HasVolume())

	set.TallyExit(&Exit{Kind: Specular, Weight: 0.04})
	set.TallyExit(&Exit{Kind: Reflected, Weight: 1})
	set.TallyExit(&Exit{Kind: Reflected, Weight: 1})
	set.TallyExit(&Exit{Kind: Transmitted, Weight: 0.25})
	set.TallyDeposit(&Deposit{Absorbed: 0.5, Fluence: 7})

	res := set.Normalize(4)
	assert.InDelta(t, 0.01, res[0].Mean[0], 1e-15)
	assert.InDelta(t, 0.5, res[1].Mean[0], 1e-15)
	// two of four photons reflect weight 1: var = 0.5 - 0.25
	require.Len(t, res[1].StdErr, 1)
	assert.InDelta(t, 0.25, res[1].StdErr[0], 1e-15)
	assert.InDelta(t, 0.0625, res[2].Mean[0], 1e-15)
	assert.InDelta(t, 0.125, res[3].Mean[0], 1e-15)
}

func TestAngleDetectors(t *testing.T) {
	d, err := New(Config{TallyType: ROfAngleType, Angle: rng(0, math.Pi/2, 3)}, nil)
	require.NoError(t, err)
	ed := d.(ExitDetector)
	ed.TallyExit(&Exit{Kind: Reflected, Dir: geom.Vector3{Z: -1}, Weight: 1})
	ed.TallyExit(&Exit{Kind: Reflected, Dir: geom.Vector3{X: 1, Z: -0.1}.Norm(), Weight: 1})
	res := d.Normalize(1)
	dt := math.Pi / 4
	assert.InDelta(t, 1/(2*math.Pi*math.Sin(dt/2)*dt), res.At(0), 1e-12)
	assert.InDelta(t, 1/(2*math.Pi*math.Sin(1.5*dt)*dt), res.At(1), 1e-12)
}

func TestFluenceOfRhoAndZ(t *testing.T) {
	d, err := New(Config{TallyType: FluenceOfRhoAndZType, Rho: rng(0, 1, 2), Z: rng(0, 2, 3)}, nil)
	require.NoError(t, err)
	vd := d.(VolumeDetector)
	vd.TallyDeposit(&Deposit{Pos: geom.Point3{X: 0.5, Z: 1.5}, Absorbed: 1, Fluence: 2})
	res := d.Normalize(2)
	require.Equal(t, []int{1, 2}, res.Dims())
	assert.Zero(t, res.At(0, 0))
	assert.InDelta(t, 2/(2*2*math.Pi*0.5*1*1), res.At(0, 1), 1e-15)

	_, err = New(Config{TallyType: FluenceOfRhoAndZType, Rho: rng(0, 1, 2), Z: rng(0, 2, 3), TallySecondMoment: true}, nil)
	assert.ErrorIs(t, err, ErrInvalidDetector)
}

func TestRadianceUsesPolarAngle(t *testing.T) {
	d, err := New(Config{TallyType: RadianceOfRhoAndZAndAngleType, Rho: rng(0, 1, 2), Z: rng(0, 1, 2), Angle: rng(0, math.Pi, 3)}, nil)
	require.NoError(t, err)
	vd := d.(VolumeDetector)
	vd.TallyDeposit(&Deposit{Pos: geom.Point3{Z: 0.5}, Dir: geom.Vector3{Z: -1}, Fluence: 1})
	res := d.Normalize(1)
	assert.Zero(t, res.At(0, 0, 0))
	assert.Greater(t, res.At(0, 0, 1), 0.0)

	_, err = New(Config{TallyType: RadianceOfRhoAndZAndAngleType, Rho: rng(0, 1, 2), Z: rng(0, 1, 2), Angle: rng(0, 4, 3)}, nil)
	assert.ErrorIs(t, err, ErrInvalidDetector)
}

func TestFactoryErrors(t *testing.T) {
	_, err := New(Config{TallyType: "ROfNothing"}, nil)
	assert.ErrorIs(t, err, ErrInvalidDetector)
	_, err = New(Config{TallyType: ROfRhoAndTimeType, Rho: rng(0, 1, 2)}, nil)
	assert.ErrorIs(t, err, ErrInvalidDetector)
	assert.Contains(t, err.Error(), "time")
	_, err = NewSet([]Config{{TallyType: RDiffuseType}, {TallyType: RDiffuseType}}, nil)
	assert.ErrorIs(t, err, ErrInvalidDetector)

	regions := layerRegions(t)
	for _, tt := range TallyTypes {
		c := Config{TallyType: tt, Rho: rng(0, 1, 2), Angle: rng(0, math.Pi/2, 2), Time: rng(0, 1, 2),
			X: rng(-1, 1, 2), Y: rng(-1, 1, 2), Z: rng(0, 1, 2), MomentumTransfer: rng(0, 10, 2)}
		d, err := New(c, regions)
		require.NoError(t, err, tt)
		assert.Equal(t, tt, d.TallyType())
		_, isSurface := d.(*Surface)
		assert.Equal(t, IsSurface(tt), isSurface, tt)
	}
}

func TestSetCloneMerge(t *testing.T) {
	cfgs := []Config{
		{TallyType: ROfRhoType, Rho: rng(0, 1, 5), TallySecondMoment: true},
		{TallyType: AOfRhoAndZType, Rho: rng(0, 1, 5), Z: rng(0, 1, 5)},
	}
	whole, err := NewSet(cfgs, nil)
	require.NoError(t, err)
	a, b := whole.Clone(), whole.Clone()
	events := []Exit{
		{Kind: Reflected, Pos: geom.Point3{X: 0.1}, Weight: 0.3},
		{Kind: Reflected, Pos: geom.Point3{X: 0.6}, Weight: 0.7},
		{Kind: Reflected, Pos: geom.Point3{Y: 0.9}, Weight: 0.2},
	}
	for i := range events {
		whole.TallyExit(&events[i])
		if i%2 == 0 {
			a.TallyExit(&events[i])
		} else {
			b.TallyExit(&events[i])
		}
	}
	dep := Deposit{Pos: geom.Point3{X: 0.3, Z: 0.3}, Absorbed: 0.1}
	whole.TallyDeposit(&dep)
	b.TallyDeposit(&dep)

	merged := whole.Clone()
	require.NoError(t, merged.Merge(a))
	require.NoError(t, merged.Merge(b))
	want, got := whole.Normalize(3), merged.Normalize(3)
	for i := range want {
		assert.InDeltaSlice(t, want[i].Mean, got[i].Mean, 1e-15)
		assert.InDeltaSlice(t, want[i].StdErr, got[i].StdErr, 1e-15)
	}

	other, err := NewSet([]Config{cfgs[1], cfgs[0]}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, merged.Merge(other), ErrInvalidDetector)
}

func TestReflectedTimeOfRhoAndSubregionHist(t *testing.T) {
	regions := layerRegions(t)
	d, err := New(Config{TallyType: ReflectedTimeOfRhoAndSubregionHistType, Rho: rng(0, 1, 2), Time: rng(0, 0.1, 11)}, regions)
	require.NoError(t, err)
	ed := d.(ExitDetector)
	path := []Real{0, 3, 0, 0} // all inside layer 1 (n=1.4)
	tm := 3 * 1.4 / photon.C
	ed.TallyExit(&Exit{Kind: Reflected, Pos: geom.Point3{X: 0.5}, Weight: 1, Time: tm,
		PathLength: path, Collisions: []uint64{0, 4, 0, 0}, MomentumTransfer: []Real{0, 1, 0, 0}})
	ed.TallyExit(&Exit{Kind: Transmitted, Pos: geom.Point3{X: 0.5}, Weight: 1, Time: tm, PathLength: path})

	res := d.Normalize(1)
	require.Equal(t, []int{1, 10}, res.Dims())
	bin := int(tm / 0.01)
	area := 2 * math.Pi * 0.5
	assert.InDelta(t, 1/area, res.At(0, bin), 1e-12)
	require.Len(t, res.Extra, 1)
	sub := res.Extra[0]
	require.Equal(t, []int{1, 2, 10}, sub.Dims())
	assert.InDelta(t, 1/area, sub.At(0, 0, bin), 1e-12)
	for k := 0; k < 10; k++ {
		assert.Zero(t, sub.At(0, 1, k), "unvisited layer must stay empty")
	}
}

func TestReflectedMTOfRhoAndSubregionHist(t *testing.T) {
	regions := layerRegions(t)
	d, err := New(Config{TallyType: ReflectedMTOfRhoAndSubregionHistType, Rho: rng(0, 1, 2), MomentumTransfer: rng(0, 10, 11)}, regions)
	require.NoError(t, err)
	d.(ExitDetector).TallyExit(&Exit{Kind: Reflected, Pos: geom.Point3{X: 0.5}, Weight: 1,
		PathLength: []Real{0, 1, 1, 0}, Collisions: []uint64{0, 2, 3, 0}, MomentumTransfer: []Real{0, 1.5, 2.5, 0}})
	res := d.Normalize(1)
	area := 2 * math.Pi * 0.5
	assert.InDelta(t, 1/area, res.At(0, 4), 1e-12)
	assert.InDelta(t, 1/area, res.Extra[0].At(0, 0, 1), 1e-12)
	assert.InDelta(t, 1/area, res.Extra[0].At(0, 1, 2), 1e-12)
}
