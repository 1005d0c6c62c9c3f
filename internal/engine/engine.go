// Package engine runs photon histories through a tissue, routing exits and
// deposits to detectors and exiting histories to an optional database.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lukaszgryglicki/tissuemc/internal/database"
	"github.com/lukaszgryglicki/tissuemc/internal/detector"
	"github.com/lukaszgryglicki/tissuemc/internal/geom"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
	"github.com/lukaszgryglicki/tissuemc/internal/photon"
	"github.com/lukaszgryglicki/tissuemc/internal/source"
	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

type Real = geom.Real

// ErrInvalidOptions is returned for unusable run options.
var ErrInvalidOptions = errors.New("invalid options")

// Recorder persists exiting histories. Begin is called once with the worker
// count; afterwards worker w calls Write(w, ...) with increasing photon
// indices from its own contiguous range.
type Recorder interface {
	Begin(workers int) error
	Write(worker int, e *database.ExitRecord, c *database.CollisionRecord) error
}

// Engine is immutable once built and may run several times.
type Engine struct {
	tissue    tissue.Tissue
	regions   []tissue.Region
	source    source.Source
	detectors *detector.Set
	recorder  Recorder
	opts      Options
	top       Real // z of the tissue top surface
}

// New validates options and wires the run. recorder may be nil.
func New(t tissue.Tissue, src source.Source, dets *detector.Set, recorder Recorder, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if dets == nil {
		dets = &detector.Set{}
	}
	regions := t.Regions()
	return &Engine{
		tissue:    t,
		regions:   regions,
		source:    src,
		detectors: dets,
		recorder:  recorder,
		opts:      opts,
		top:       regions[0].ZBottom,
	}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Results of a run.
type Results struct {
	N         uint64
	Balance   Balance
	Detectors []*detector.Result
	Log       *photon.TransitionLog
	Elapsed   time.Duration
}

type shard struct {
	dets    *detector.Set
	balance Balance
	log     *photon.TransitionLog
	err     error
}

// Run simulates histories 0..n-1. Workers take contiguous index ranges and
// their detector shards merge in worker order.
func (e *Engine) Run(ctx context.Context, n uint64) (*Results, error) {
	start := time.Now()
	workers := e.opts.Workers
	if uint64(workers) > n {
		workers = int(max(n, 1))
	}
	if e.recorder != nil {
		if err := e.recorder.Begin(workers); err != nil {
			return nil, err
		}
	}

	var counter atomic.Uint64
	nextPrint := uint64(1)
	if n >= 100 {
		nextPrint = n / 100
	}

	shards := make([]*shard, workers)
	per, rem := n/uint64(workers), n%uint64(workers)
	var wg sync.WaitGroup
	from := uint64(0)
	for w := 0; w < workers; w++ {
		cnt := per
		if uint64(w) < rem {
			cnt++
		}
		s := &shard{dets: e.detectors.Clone()}
		if logging.Debug {
			s.log = photon.NewTransitionLog()
		}
		shards[w] = s
		wg.Add(1)
		go func(wid int, lo, hi uint64) {
			defer wg.Done()
			wk := e.newWorker(wid, s)
			for h := lo; h < hi; h++ {
				if (h-lo)&255 == 0 {
					if err := ctx.Err(); err != nil {
						s.err = err
						return
					}
				}
				if err := wk.history(h); err != nil {
					s.err = err
					return
				}
				if e.opts.Progress {
					if fired := counter.Add(1); fired%nextPrint == 0 {
						logging.Logger().Infof("[PROGRESS] %.2f%%", Real(fired)*100/Real(n))
					}
				}
			}
		}(w, from, from+cnt)
		from += cnt
	}
	wg.Wait()

	res := &Results{N: n, Log: photon.NewTransitionLog()}
	total := e.detectors.Clone()
	for w, s := range shards {
		if s.err != nil {
			return nil, fmt.Errorf("worker %d: %w", w, s.err)
		}
		if err := total.Merge(s.dets); err != nil {
			return nil, err
		}
		res.Balance.Add(&s.balance)
		res.Log.Merge(s.log)
	}
	res.Detectors = total.Normalize(n)
	res.Elapsed = time.Since(start)
	if logging.Debug {
		res.Log.Report(logging.Named("engine"))
	}
	logging.DebugLog("Histories: %d, workers: %d, time: %s, balance: %s", n, workers, res.Elapsed, res.Balance)
	return res, nil
}
