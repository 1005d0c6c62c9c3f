package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukaszgryglicki/tissuemc/internal/detector"
	"github.com/lukaszgryglicki/tissuemc/internal/engine"
	"github.com/lukaszgryglicki/tissuemc/internal/source"
	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

const minimalJSON = `{
  "tissue": {"layers": [{"thickness": 10, "mua": 0.01, "mus": 10, "g": 0.8, "n": 1.4}]},
  "detectors": [{"tallyType": "ROfRho", "rho": {"start": 0, "stop": 10, "count": 11}}]
}`

const minimalYAML = `
outputName: yaml_run
n: 50
options:
  seed: 7
  absorptionWeighting: CAW
tissue:
  layers:
    - thickness: 10
      mua: 0.01
      mus: 10
      g: 0.8
      n: 1.4
detectors:
  - tallyType: ROfRho
    rho: {start: 0, stop: 10, count: 11}
`

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadJSONFillsDefaults(t *testing.T) {
	in, err := Load(write(t, "in.json", minimalJSON))
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputName, in.OutputName)
	assert.Equal(t, uint64(DefaultN), in.N)
	assert.Equal(t, MultiLayerTissue, in.Tissue.Type)
	assert.Equal(t, DirectionalPointSource, in.Source.Type)
	assert.Equal(t, 1.0, in.Source.Direction.Z)
	assert.Equal(t, DefaultRouletteThreshold, in.Options.RouletteThreshold)
	assert.Equal(t, 10.0, in.Tissue.Layers[0].Thickness)
	assert.Equal(t, 1.4, in.Tissue.Layers[0].N)

	sim, err := in.Build()
	require.NoError(t, err)
	assert.Len(t, sim.Tissue.Regions(), 3)
	assert.Len(t, sim.Detectors.Exit, 1)
	assert.Equal(t, engine.Discrete, sim.Options.AbsorptionWeighting)
}

func TestLoadYAML(t *testing.T) {
	in, err := Load(write(t, "in.yaml", minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "yaml_run", in.OutputName)
	assert.Equal(t, uint64(50), in.N)
	assert.Equal(t, uint64(7), in.Options.Seed)
	assert.Equal(t, 0.01, in.Tissue.Layers[0].Mua)
	require.NotNil(t, in.Detectors[0].Rho)
	assert.Equal(t, 11, in.Detectors[0].Rho.Count)

	opts, err := in.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, engine.Continuous, opts.AbsorptionWeighting)
	assert.Equal(t, uint64(7), opts.Seed)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = Load(write(t, "bad.json", "{"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Load(write(t, "empty.json", `{"tissue": {"layers": []}}`))
	assert.ErrorIs(t, err, tissue.ErrInvalidGeometry)

	cases := map[string]string{
		"tissue type": `{"tissue": {"type": "Sphere", "layers": [{"thickness": 1, "n": 1.4}]}}`,
		"database":    `{"options": {"databases": ["Nope"]}, "tissue": {"layers": [{"thickness": 1, "n": 1.4}]}}`,
		"ellipsoid":   `{"tissue": {"type": "SingleEllipsoid", "layers": [{"thickness": 1, "n": 1.4}]}}`,
		"output name": `{"outputName": "a/b", "tissue": {"layers": [{"thickness": 1, "n": 1.4}]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body), false)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestBuildErrors(t *testing.T) {
	base, err := Parse([]byte(minimalJSON), false)
	require.NoError(t, err)

	in := base.Clone()
	in.Tissue.Layers[0].Thickness = -1
	_, err = in.Build()
	assert.ErrorIs(t, err, tissue.ErrInvalidGeometry)

	in = base.Clone()
	in.Source.Type = "Laser"
	_, err = in.Build()
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = base.Clone()
	in.Source.Type = CircularSource
	in.Source.OuterRadius = 0
	_, err = in.Build()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, source.ErrInvalidSource)

	in = base.Clone()
	in.Detectors = append(in.Detectors, detector.Config{TallyType: detector.ROfRhoAndTimeType, Rho: rhoBins()})
	_, err = in.Build()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, detector.ErrInvalidDetector)

	in = base.Clone()
	in.Options.AbsorptionWeighting = "Sometimes"
	_, err = in.Build()
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCloneIsDeep(t *testing.T) {
	samples := Samples()
	var base *SimulationInput
	for _, s := range samples {
		if s.PostProcessor != nil {
			base = s
		}
	}
	require.NotNil(t, base)
	c := base.Clone()
	require.Equal(t, base, c)

	c.Tissue.Layers[0].Mua = 1
	c.Detectors[0].Rho.Stop = 99
	*c.PostProcessor.Perturbations[0].Mua = 5
	c.PostProcessor.Detectors[0].Rho.Count = 3
	c.Options.Databases[0] = "x"

	assert.Equal(t, 0.01, base.Tissue.Layers[0].Mua)
	assert.Equal(t, 10.0, base.Detectors[0].Rho.Stop)
	assert.Equal(t, 0.02, *base.PostProcessor.Perturbations[0].Mua)
	assert.Equal(t, 101, base.PostProcessor.Detectors[0].Rho.Count)
	assert.Equal(t, PMCDiffuseReflectanceDatabase, base.Options.Databases[0])
}

func TestSamplesBuildAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	names := map[string]bool{}
	for _, s := range Samples() {
		assert.False(t, names[s.OutputName], "duplicate sample %s", s.OutputName)
		names[s.OutputName] = true

		_, err := s.Build()
		require.NoError(t, err, s.OutputName)

		for _, ext := range []string{".json", ".yaml"} {
			p := filepath.Join(dir, s.OutputName+ext)
			require.NoError(t, s.Save(p))
			back, err := Load(p)
			require.NoError(t, err, p)
			assert.Equal(t, s, back, p)
		}
	}
	assert.Len(t, names, 13)
	assert.True(t, names["one_layer_ROfRho_FluenceOfRhoAndZ"])
}

func TestVoxelize(t *testing.T) {
	m, depth := voxelize([]Real{1, 0, 2}, 2, 1, 3)
	assert.Equal(t, 3.0, depth)
	assert.Equal(t, []uint16{1, 3, 3, 1, 3, 3}, m)
}

func TestVoxelFromLayers(t *testing.T) {
	in, err := Parse([]byte(minimalJSON), false)
	require.NoError(t, err)
	in.Tissue.Type = VoxelTissue
	in.Tissue.Voxel = &VoxelCfg{MinX: -5, MaxX: 5, MinY: -5, MaxY: 5, Nx: 2, Ny: 2, Nz: 5}
	tis, err := in.BuildTissue()
	require.NoError(t, err)
	v, ok := tis.(*tissue.Voxel)
	require.True(t, ok)
	assert.Equal(t, 10.0, v.Depth)
	assert.Len(t, v.Regions(), 3)
}

func TestPerturbedProperties(t *testing.T) {
	in, err := Parse([]byte(minimalJSON), false)
	require.NoError(t, err)
	tis, err := in.BuildTissue()
	require.NoError(t, err)

	mua, mus := 0.05, 20.0
	in.PostProcessor = &PostProcessorCfg{Perturbations: []Perturbation{{Region: 1, Mua: &mua}, {Region: 1, Mus: &mus}}}
	props, err := in.PerturbedProperties(tis)
	require.NoError(t, err)
	assert.Equal(t, tissue.OpticalProperties{Mua: 0.05, Mus: 20, G: 0.8, N: 1.4}, props[1])
	assert.Equal(t, 0.01, tis.Regions()[1].OP.Mua)

	in.PostProcessor.Perturbations[0].Region = 3
	_, err = in.PerturbedProperties(tis)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDetectorConfigsSecondMoment(t *testing.T) {
	in, err := Parse([]byte(minimalJSON), false)
	require.NoError(t, err)
	in.Detectors = append(in.Detectors, detector.Config{TallyType: detector.ATotalType})
	in.Options.TallySecondMoment = true

	cfgs := in.DetectorConfigs()
	assert.True(t, cfgs[0].TallySecondMoment)
	assert.False(t, cfgs[1].TallySecondMoment)
	assert.False(t, in.Detectors[0].TallySecondMoment)

	_, err = in.Build()
	require.NoError(t, err)
}
