package sweep

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lukaszgryglicki/tissuemc/internal/input"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
)

// RunFunc runs one expanded infile.
type RunFunc func(ctx context.Context, in *input.SimulationInput) error

// Run executes every iteration with at most parallel running at once
// (runtime.NumCPU() when parallel <= 0). The first failure cancels the
// iterations not yet finished; finished ones keep their outputs.
func Run(ctx context.Context, runs []*input.SimulationInput, parallel int, fn RunFunc) error {
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}
	log := logging.Named("sweep")
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, in := range runs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			if err := fn(ctx, in); err != nil {
				return fmt.Errorf("sweep iteration %s: %w", in.OutputName, err)
			}
			log.Infof("iteration %d/%d %s done in %s", i+1, len(runs), in.OutputName, time.Since(start))
			return nil
		})
	}
	return g.Wait()
}
