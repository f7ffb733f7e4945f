package main

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunnerContext is the shared state every worker reads and writes,
// serialized by Mu (spec §4.8 "Shared context"). Reads of snapshot
// fields by a UI layer take the same mutex briefly.
type RunnerContext struct {
	Mu sync.Mutex

	BestA, BestB       *Program
	BestCost           float64
	BestLinesA         []LineResult
	BestLinesB         []LineResult
	Evaluations        uint64
	Stop               bool

	Policy AcceptancePolicy

	LastCheckpoint time.Time
}

// Runner orchestrates the optimization loop: one worker goroutine per
// configured thread, each owning its own Executor/Mutator/RNG and
// competing for the shared best solution, grounded on
// OptimizationRunner (original_source/src/optimization/OptimizationRunner.cpp).
type Runner struct {
	Cfg *Config
	Ctx *RunnerContext

	Width, Height, FreeCycles int
	OnOff                     *OnOffMap
	ErrorMap                  [128][]uint32 // err[c][i], spec §6
	Dual                      *DualModel
	PossibleColors            [][]uint8
	SourceIndexAt             func(x, y int) uint8

	lruLines    int
	arenaBudget int // bytes; spec §4.8 "if arena.size > budget: evict_or_clear()"

	// OnCheckpoint is invoked (with Mu held) whenever a checkpoint is
	// due, per the Save config key. Nil disables checkpointing.
	OnCheckpoint func(ctx *RunnerContext)
}

// NewRunner wires a Runner from resolved configuration and immutable
// inputs. lruLines bounds each worker's per-line soft-LRU budget,
// derived from Cfg.CacheMB by the caller (spec §4.4).
func NewRunner(cfg *Config, width, height, freeCycles, lruLines int, onoff *OnOffMap, errorMap [128][]uint32, dual *DualModel, possibleColors [][]uint8, sourceIndexAt func(x, y int) uint8) *Runner {
	return &Runner{
		Cfg: cfg, Ctx: &RunnerContext{},
		Width: width, Height: height, FreeCycles: freeCycles,
		OnOff: onoff, ErrorMap: errorMap, Dual: dual,
		PossibleColors: possibleColors, SourceIndexAt: sourceIndexAt,
		lruLines:    lruLines,
		arenaBudget: cfg.CacheMB << 20,
	}
}

func (r *Runner) plainCostFn() CostFunc {
	return func(c uint8, idx int) uint64 { return uint64(r.ErrorMap[c][idx]) }
}

// Bootstrap runs the initial evaluation (matching
// OptimizationRunner::run's init block) to establish BestCost and seed
// the acceptance policy before any worker starts. initB is ignored
// unless dual mode is configured.
func (r *Runner) Bootstrap(initA, initB *Program) {
	exec := NewExecutor(r.Width, r.Height, r.FreeCycles, r.OnOff, r.lruLines)
	plainCost := r.plainCostFn()

	if r.Cfg.Dual {
		dr := EvaluateDual(exec, initA, initB, false, plainCost, r.Dual, 0)
		r.Ctx.BestA, r.Ctx.BestB = initA, initB
		r.Ctx.BestCost = float64(dr.Cost)
		r.Ctx.BestLinesA, r.Ctx.BestLinesB = dr.LinesA, dr.LinesB
	} else {
		sr := EvaluateSingle(exec, initA, plainCost)
		r.Ctx.BestA = initA
		r.Ctx.BestCost = float64(sr.Cost)
		r.Ctx.BestLinesA = sr.Lines
	}

	switch r.Cfg.Optimizer {
	case "dlas":
		r.Ctx.Policy = NewDLAS(r.Cfg.HistoryLength)
	default:
		r.Ctx.Policy = NewLAHC(r.Cfg.HistoryLength)
	}
	r.Ctx.Policy.Init(r.Ctx.BestCost)
	r.Ctx.LastCheckpoint = time.Now()
}

// Run starts Cfg.Threads worker goroutines and blocks until ctx is
// cancelled, max_evals is reached, or a worker returns an error.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < r.Cfg.Threads; t++ {
		t := t
		g.Go(func() error { return r.worker(gctx, t) })
	}
	return g.Wait()
}

func (r *Runner) worker(ctx context.Context, threadID int) error {
	var seed uint64
	if r.Cfg.SeedRand {
		seed = uint64(time.Now().UnixNano()) + uint64(threadID)*911
	} else {
		seed = r.Cfg.SeedVal + uint64(threadID)*911
	}
	rng := NewRNG(seed)

	exec := NewExecutor(r.Width, r.Height, r.FreeCycles, r.OnOff, r.lruLines)
	mut := NewMutator(r.Width, r.Height, r.FreeCycles, threadID, r.Cfg.Threads, r.PossibleColors, r.SourceIndexAt)
	plainCost := r.plainCostFn()

	strategy, _ := ParseDualStrategy(r.Cfg.DualStrategy)
	scheduler := NewStageScheduler(strategy, r.Cfg.DualMutateRatio, r.Cfg.DualStageEvals)

	r.Ctx.Mu.Lock()
	currentA := r.Ctx.BestA.Clone()
	var currentB *Program
	if r.Cfg.Dual {
		currentB = r.Ctx.BestB.Clone()
	}
	currentCost := r.Ctx.BestCost
	r.Ctx.Mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		candA := currentA.Clone()
		var candB *Program
		mutateB := false

		if r.Cfg.Dual {
			candB = currentB.Clone()
			mutateB = scheduler.Next(rng, currentCost, func(cc float64, focusB bool) {
				r.Ctx.Mu.Lock()
				r.Ctx.Policy.OnStageSwitch(cc, focusB)
				r.Ctx.Mu.Unlock()
			})
			mut.MutateDual(candA, candB, mutateB, r.Cfg.DualCrossShareProb, rng)
		} else {
			mut.Mutate(candA, rng)
		}

		var candCost uint64
		var linesA, linesB []LineResult
		if r.Cfg.Dual {
			r.Ctx.Mu.Lock()
			evalSnapshot := r.Ctx.Evaluations
			r.Ctx.Mu.Unlock()
			dr := EvaluateDual(exec, candA, candB, mutateB, plainCost, r.Dual, evalSnapshot)
			candCost, linesA, linesB = dr.Cost, dr.LinesA, dr.LinesB
		} else {
			sr := EvaluateSingle(exec, candA, plainCost)
			candCost, linesA = sr.Cost, sr.Lines
		}

		r.Ctx.Mu.Lock()
		r.Ctx.Evaluations++
		stop := r.Cfg.MaxEvals > 0 && r.Ctx.Evaluations >= r.Cfg.MaxEvals
		if stop {
			r.Ctx.Stop = true
		}

		if r.Ctx.Policy.Accept(float64(candCost)) {
			currentCost = float64(candCost)
			currentA = candA
			if r.Cfg.Dual {
				currentB = candB
			}
		}

		if float64(candCost) < r.Ctx.BestCost {
			r.Ctx.BestCost = float64(candCost)
			r.Ctx.BestA = candA.Clone()
			r.Ctx.BestLinesA = linesA
			if r.Cfg.Dual {
				r.Ctx.BestB = candB.Clone()
				r.Ctx.BestLinesB = linesB
			}
		}

		r.Ctx.Policy.PostIteration(currentCost)
		r.maybeCheckpointLocked()
		stop = stop || r.Ctx.Stop
		r.Ctx.Mu.Unlock()

		if stop {
			return nil
		}

		if r.Cfg.Dual {
			exec.EnforceBudget(r.arenaBudget, currentA, currentB)
		} else {
			exec.EnforceBudget(r.arenaBudget, currentA)
		}
	}
}

// maybeCheckpointLocked fires OnCheckpoint when the configured save
// period elapses, per spec §6's "auto" (~30s) / literal-period save key.
// Callers must hold Ctx.Mu.
func (r *Runner) maybeCheckpointLocked() {
	if r.OnCheckpoint == nil {
		return
	}
	due := false
	if r.Cfg.SaveAuto {
		due = time.Since(r.Ctx.LastCheckpoint) >= 30*time.Second
	} else if r.Cfg.SavePeriod > 0 && r.Ctx.Evaluations%r.Cfg.SavePeriod == 0 {
		due = true
	}
	if due {
		r.Ctx.LastCheckpoint = time.Now()
		r.OnCheckpoint(r.Ctx)
	}
}
