package simulation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/lukaszgryglicki/tissuemc/internal/database"
	"github.com/lukaszgryglicki/tissuemc/internal/input"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
	"github.com/lukaszgryglicki/tissuemc/internal/output"
	"github.com/lukaszgryglicki/tissuemc/internal/pmc"
	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

// PostProcessSuffix is appended to the output name for the folder holding
// perturbation results.
const PostProcessSuffix = "_pMC"

// PostProcessReport summarizes a reweighting pass.
type PostProcessReport struct {
	Dir      string
	Photons  uint64
	Records  int
	Manifest *output.Manifest
}

// PostProcess reweights the database of a previous run of in for the
// perturbations of in.PostProcessor and writes the pMC detector results to
// <OutputRoot>/<OutputName>_pMC.
func PostProcess(in *input.SimulationInput, cfg Config) (*PostProcessReport, error) {
	started := time.Now()
	pp := in.PostProcessor
	if pp == nil {
		return nil, fmt.Errorf("%w: infile has no post processor section", input.ErrInvalidInput)
	}
	log := logging.Named("postprocess").WithField("run", in.OutputName)

	t, err := in.BuildTissue()
	if err != nil {
		return nil, err
	}
	perturbed, err := in.PerturbedProperties(t)
	if err != nil {
		return nil, err
	}
	rw, err := pmc.NewReweighter(tissue.OpticalPropertiesOf(t), perturbed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", input.ErrInvalidInput, err)
	}

	src := pp.InputFolder
	if src == "" {
		src = cfg.OutputDir(in)
	}
	db, err := database.Load(src)
	if err != nil {
		return nil, fmt.Errorf("loading database: %w", err)
	}

	// normalize by the photons launched in the run that wrote the database
	n := in.N
	if m, err := output.LoadManifest(src); err == nil {
		n = m.N
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	log.Infof("reweighting %d stored histories of %d photons from %s", len(db.Exits), n, src)

	results, err := pmc.Run(db, rw, pp.Detectors, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", input.ErrInvalidInput, err)
	}

	dir := filepath.Join(cfg.OutputRoot, in.OutputName+PostProcessSuffix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output folder: %w", err)
	}
	files, err := output.WriteResults(dir, results, output.Options{Images: in.Options.Images, Gamma: in.Options.ImageGamma})
	if err != nil {
		return nil, fmt.Errorf("writing results: %w", err)
	}
	if err := in.Save(filepath.Join(dir, InfileCopy)); err != nil {
		return nil, err
	}
	m := output.NewManifest(in.OutputName+PostProcessSuffix, started)
	m.Version = cfg.Version
	m.N = n
	m.Seed = in.Options.Seed
	m.AbsorptionWeighting = in.Options.AbsorptionWeighting
	m.Elapsed = time.Since(started).String()
	m.Files = append(files, InfileCopy)
	if err := m.Save(dir); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	log.Infof("results written to %s", dir)
	return &PostProcessReport{Dir: dir, Photons: n, Records: len(db.Exits), Manifest: m}, nil
}
