package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukaszgryglicki/tissuemc/internal/input"
	"github.com/lukaszgryglicki/tissuemc/internal/output"
	"github.com/lukaszgryglicki/tissuemc/internal/sweep"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version, strings.TrimSpace(out))
}

func TestGeninfilesRunAndSweep(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "geninfiles", "-o", dir)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 13)

	infile := filepath.Join(dir, "infile_two_layer_ROfRho_with_db.json")
	_, err = execute(t, "run", infile, "-o", dir, "-w", "2")
	require.NoError(t, err)
	run := filepath.Join(dir, "two_layer_ROfRho_with_db")
	m, err := output.LoadManifest(run)
	require.NoError(t, err)
	assert.True(t, m.Database)
	assert.Equal(t, 2, m.Workers)

	_, err = execute(t, "dbexport", run)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(run, "database.sqlite"))
	assert.NoError(t, err)

	_, err = execute(t, "sweep", infile, "-o", dir, "--sweep", "mua1,0.01,0.03,3", "-p", "2")
	require.NoError(t, err)
	for _, v := range []float64{0.01, 0.02, 0.03} {
		_, err := output.LoadManifest(filepath.Join(dir, sweep.OutputName("two_layer_ROfRho_with_db", "mua1", v)))
		assert.NoError(t, err, v)
	}
}

func TestSweepOutnameFolders(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "geninfiles", "-o", dir)
	require.NoError(t, err)
	infile := filepath.Join(dir, "infile_one_layer_ROfRho_FluenceOfRhoAndZ.json")
	out, err := execute(t, "sweep", infile, "-o", dir, "--outname", "myResults", "--sweep", "mua1,0.01,0.03,3")
	require.NoError(t, err)
	for _, name := range []string{"myResults_mua1_0.01", "myResults_mua1_0.02", "myResults_mua1_0.03"} {
		assert.Contains(t, out, name)
		m, err := output.LoadManifest(filepath.Join(dir, name))
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, m.Name)
		}
	}
	_, err = os.Stat(filepath.Join(dir, "one_layer_ROfRho_FluenceOfRhoAndZ_mua1_0.01"))
	assert.True(t, os.IsNotExist(err))

	_, err = execute(t, "sweep", infile, "-o", dir, "--outname", "a/b", "--sweep", "mua1,0.01,0.03,3")
	assert.ErrorIs(t, err, input.ErrInvalidInput)
}

func TestPostprocessSample(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "geninfiles", "-o", dir, "-f", "yaml")
	require.NoError(t, err)
	infile := filepath.Join(dir, "infile_pMC_one_layer_ROfRho_DAW.yaml")
	_, err = execute(t, "run", infile, "-o", dir)
	require.NoError(t, err)
	out, err := execute(t, "postprocess", infile, "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "pMC_one_layer_ROfRho_DAW_pMC")
	_, err = os.Stat(filepath.Join(dir, "pMC_one_layer_ROfRho_DAW_pMC", "pMCROfRho"))
	assert.NoError(t, err)
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "run", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = execute(t, "geninfiles", "-o", dir)
	require.NoError(t, err)
	infile := filepath.Join(dir, "infile_two_layer_ROfRho.json")
	_, err = execute(t, "sweep", infile, "-o", dir, "--sweep", "mua1,0.01,0.03,0")
	assert.ErrorIs(t, err, sweep.ErrInvalidSweepRange)
	_, err = execute(t, "sweep", infile, "-o", dir)
	assert.ErrorIs(t, err, sweep.ErrInvalidSweepRange)
	_, err = execute(t, "geninfiles", "-o", dir, "-f", "xml")
	assert.Error(t, err)
}
