// Package simulation runs one infile end to end: build, transport, database
// and outputs.
package simulation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lukaszgryglicki/tissuemc/internal/database"
	"github.com/lukaszgryglicki/tissuemc/internal/engine"
	"github.com/lukaszgryglicki/tissuemc/internal/input"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
	"github.com/lukaszgryglicki/tissuemc/internal/output"
)

// InfileCopy is the name of the infile copy saved in every run folder.
const InfileCopy = "infile.json"

// Config holds the settings that come from the command line rather than the
// infile.
type Config struct {
	// OutputRoot is the parent of the per-run folders.
	OutputRoot string
	// Workers overrides the infile worker count when > 0.
	Workers  int
	Progress bool
	Version  string
}

// Report summarizes a finished run.
type Report struct {
	Dir      string
	Results  *engine.Results
	Manifest *output.Manifest
}

// OutputDir is the folder a run of in writes to.
func (c Config) OutputDir(in *input.SimulationInput) string {
	return filepath.Join(c.OutputRoot, in.OutputName)
}

// Run simulates in and writes its results to cfg.OutputDir(in). A database
// failure aborts the run and removes partial database segments; results of
// other runs are not touched.
func Run(ctx context.Context, in *input.SimulationInput, cfg Config) (*Report, error) {
	started := time.Now()
	log := logging.Named("simulation").WithField("run", in.OutputName)

	sim, err := in.Build()
	if err != nil {
		return nil, err
	}
	opts := sim.Options
	if cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	opts.Progress = cfg.Progress

	dir := cfg.OutputDir(in)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output folder: %w", err)
	}

	var (
		db       *database.Writer
		recorder engine.Recorder
	)
	if in.WantsDatabase() {
		db = database.NewWriter(dir, len(sim.Tissue.Regions()), in.Options.TextDatabase)
		recorder = db
	}

	eng, err := engine.New(sim.Tissue, sim.Source, sim.Detectors, recorder, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", input.ErrInvalidInput, err)
	}
	log.Infof("launching %d photons, %s absorption weighting, %d workers", in.N, eng.Options().AbsorptionWeighting, eng.Options().Workers)
	res, err := eng.Run(ctx, in.N)
	if err != nil {
		if db != nil {
			db.Abort()
		}
		return nil, err
	}
	if db != nil {
		if err := db.Close(); err != nil {
			db.Abort()
			return nil, err
		}
	}
	log.Infof("balance: %s", res.Balance)
	log.Infof("photons: %d, time: %s", res.N, res.Elapsed)
	if res.Log != nil {
		res.Log.Report(log)
	}

	files, err := output.WriteResults(dir, res.Detectors, output.Options{Images: in.Options.Images, Gamma: in.Options.ImageGamma})
	if err != nil {
		return nil, fmt.Errorf("writing results: %w", err)
	}
	if err := in.Save(filepath.Join(dir, InfileCopy)); err != nil {
		return nil, err
	}
	files = append(files, InfileCopy)
	if db != nil {
		files = append(files, database.ExitFileName, database.CollisionFileName)
		if in.Options.TextDatabase {
			files = append(files, database.ExitFileName+database.TextSuffix, database.CollisionFileName+database.TextSuffix)
		}
	}

	m := output.NewManifest(in.OutputName, started)
	m.Version = cfg.Version
	m.Fill(eng.Options(), res)
	m.Database = db != nil
	m.Files = files
	if err := m.Save(dir); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	log.Infof("results written to %s (run %s)", dir, m.RunID)
	return &Report{Dir: dir, Results: res, Manifest: m}, nil
}
