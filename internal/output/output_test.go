package output

import (
	"bufio"
	"encoding/binary"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukaszgryglicki/tissuemc/internal/detector"
	"github.com/lukaszgryglicki/tissuemc/internal/engine"
)

func rhoZ() *detector.Result {
	r := &detector.Result{
		Name:      "FluenceOfRhoAndZ",
		TallyType: detector.FluenceOfRhoAndZType,
		Axes: []detector.Axis{
			{Name: "rho", Edges: []Real{0, 1, 2, 3}},
			{Name: "z", Edges: []Real{0, 0.5, 1}},
		},
	}
	for i := range 6 {
		r.Mean = append(r.Mean, Real(i)+0.25)
	}
	return r
}

func TestSaveRawLayout(t *testing.T) {
	r := rhoZ()
	path := filepath.Join(t.TempDir(), "sub", r.Name)
	if err := SaveRaw(path, r.Dims(), r.Mean); err != nil {
		t.Fatalf("SaveRaw error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open result file: %v", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)

	var hdr [3]int32
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		t.Fatalf("read header: %v", err)
	}
	if hdr != [3]int32{2, 3, 2} {
		t.Fatalf("header = %v, want [2 3 2]", hdr)
	}
	body := make([]float64, 6)
	if err := binary.Read(br, binary.LittleEndian, body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	for i, v := range body {
		if v != r.Mean[i] {
			t.Fatalf("body[%d] = %g, want %g", i, v, r.Mean[i])
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if want := int64(3*4 + 6*8); info.Size() != want {
		t.Fatalf("file size = %d, want %d", info.Size(), want)
	}
}

func TestRawRoundTripAndErrors(t *testing.T) {
	dir := t.TempDir()
	scalar := filepath.Join(dir, "RDiffuse")
	require.NoError(t, SaveRaw(scalar, nil, []Real{0.42}))
	dims, vals, err := LoadRaw(scalar)
	require.NoError(t, err)
	assert.Empty(t, dims)
	assert.Equal(t, []Real{0.42}, vals)

	assert.Error(t, SaveRaw(filepath.Join(dir, "bad"), []int{2, 2}, []Real{1, 2, 3}))
	assert.Error(t, SaveRaw(filepath.Join(dir, "neg"), []int{-1}, nil))

	r := rhoZ()
	p := filepath.Join(dir, "grid")
	require.NoError(t, SaveRaw(p, r.Dims(), r.Mean))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, data[:len(data)-3], 0o644))
	_, _, err = LoadRaw(p)
	assert.ErrorIs(t, err, ErrBadRaw)

	require.NoError(t, os.WriteFile(p, append(data, 0), 0o644))
	_, _, err = LoadRaw(p)
	assert.ErrorIs(t, err, ErrBadRaw)
}

func TestWriteText(t *testing.T) {
	r := rhoZ()
	r.StdErr = make([]Real, len(r.Mean))
	r.StdErr[5] = 0.125
	path := filepath.Join(t.TempDir(), r.Name+TextSuffix)
	require.NoError(t, WriteText(path, r))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5+6)
	assert.Equal(t, "# name: FluenceOfRhoAndZ", lines[0])
	assert.Equal(t, "# rho edges: 0 1 2 3", lines[2])
	assert.Equal(t, "# rho z mean stderr", lines[4])
	assert.Equal(t, "0 0 0.25 0", lines[5])
	assert.Equal(t, "0 1 1.25 0", lines[6])
	assert.Equal(t, "2 1 5.25 0.125", lines[10])
}

func TestSavePNG16(t *testing.T) {
	dir := t.TempDir()
	r := rhoZ()
	files, err := SavePNG16(filepath.Join(dir, r.Name), r, 1)
	require.NoError(t, err)
	require.Equal(t, []string{r.Name + ".png"}, files)

	f, err := os.Open(filepath.Join(dir, files[0]))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	// brightest bin is the peak: rho bin 2, z bin 1
	cr, _, _, _ := img.At(2, 1).RGBA()
	assert.Equal(t, uint32(0xffff), cr)
	c0, _, _, _ := img.At(0, 0).RGBA()
	assert.Less(t, c0, cr)

	_, err = SavePNG16(filepath.Join(dir, "scalar"), &detector.Result{Name: "scalar", Mean: []Real{1}}, 1)
	assert.Error(t, err)
}

func cube() *detector.Result {
	r := &detector.Result{
		Name:      "FluenceOfXAndYAndZ",
		TallyType: detector.FluenceOfXAndYAndZType,
		Axes: []detector.Axis{
			{Name: "x", Edges: []Real{-1, 0, 1}},
			{Name: "y", Edges: []Real{-1, 0, 1}},
			{Name: "z", Edges: []Real{0, 1, 2, 3}},
		},
		Mean: make([]Real, 12),
	}
	for i := range r.Mean {
		r.Mean[i] = Real(i % 5)
	}
	return r
}

func TestSliceImagesAndGIF(t *testing.T) {
	dir := t.TempDir()
	r := cube()
	files, err := SavePNG16(filepath.Join(dir, r.Name), r, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{r.Name + "_0.png", r.Name + "_1.png", r.Name + "_2.png"}, files)

	gp := filepath.Join(dir, r.Name+".gif")
	require.NoError(t, SaveGIF(gp, r, 10, 1))
	f, err := os.Open(gp)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, g.Image, 3)
	assert.Equal(t, []int{10, 10, 10}, g.Delay)

	assert.Error(t, SaveGIF(gp, rhoZ(), 10, 1))
}

func TestWriteResults(t *testing.T) {
	dir := t.TempDir()
	scalar := &detector.Result{Name: "RDiffuse", TallyType: detector.RDiffuseType, Mean: []Real{0.1}, StdErr: []Real{0.01}}
	hist := rhoZ()
	hist.Extra = []*detector.Result{{Name: "FluenceOfRhoAndZ_Extra", Mean: []Real{1}}}
	files, err := WriteResults(dir, []*detector.Result{scalar, hist, cube()}, Options{Images: true, Gamma: 1})
	require.NoError(t, err)
	for _, want := range []string{
		"RDiffuse", "RDiffuse_2", "RDiffuse.txt",
		"FluenceOfRhoAndZ", "FluenceOfRhoAndZ.txt", "FluenceOfRhoAndZ.png",
		"FluenceOfRhoAndZ_Extra", "FluenceOfRhoAndZ_Extra.txt",
		"FluenceOfXAndYAndZ_0.png", "FluenceOfXAndYAndZ.gif",
	} {
		assert.Contains(t, files, want)
		_, err := os.Stat(filepath.Join(dir, want))
		assert.NoError(t, err, want)
	}
	assert.NotContains(t, files, "RDiffuse.png")
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest("two_layer_ROfRho", time.Now())
	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)
	m.Fill(engine.Options{Seed: 3, Workers: 2, AbsorptionWeighting: engine.Continuous},
		&engine.Results{N: 10, Balance: engine.Balance{Reflected: 0.5, Absorbed: 0.5}, Elapsed: time.Second})
	m.Files = []string{"ROfRho"}
	require.NoError(t, m.Save(dir))

	back, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, back.RunID)
	assert.Equal(t, "Continuous", back.AbsorptionWeighting)
	assert.Equal(t, uint64(10), back.N)
	assert.InDelta(t, 1.0, back.Balance.Total(), 1e-12)
	assert.Equal(t, "1s", back.Elapsed)

	other := NewManifest("x", time.Now())
	assert.NotEqual(t, m.RunID, other.RunID)
}
