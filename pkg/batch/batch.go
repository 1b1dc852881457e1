// Package batch solves many scenarios in parallel. Each scenario is an
// independent optimization, so the pool simply bounds how many external
// solves run at once.
package batch

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/regioflex/regioflex/pkg/logger"
	"github.com/regioflex/regioflex/pkg/scenario"
	"github.com/regioflex/regioflex/pkg/solver"
)

// DefaultCPUFraction is the share of logical cores used when none is
// configured. External solvers are multi-threaded themselves, so claiming
// every core for the pool oversubscribes the machine.
const DefaultCPUFraction = 0.5

// Record is the outcome of one scenario solve. A nil Err means the
// scenario now carries results.
type Record struct {
	Scenario string
	Duration time.Duration
	Err      error
}

// Params configure a batch run.
type Params struct {
	Solver solver.Solver
	// CPUFraction is the share of logical cores to use for parallel
	// solves, (0, 1]. Zero falls back to DefaultCPUFraction.
	CPUFraction float64
	// AbortOnFailure stops submitting further scenarios after the first
	// failed solve. Solves already running are left to finish.
	AbortOnFailure bool
}

// PoolSize translates a CPU fraction into a worker count, at least one.
func PoolSize(cpuFraction float64) int {
	if cpuFraction <= 0 {
		cpuFraction = DefaultCPUFraction
	}
	size := int(math.Ceil(cpuFraction * float64(runtime.NumCPU())))
	if size < 1 {
		return 1
	}
	return size
}

// Run solves all scenarios with a bounded worker pool and returns one
// record per scenario, in input order. A failed scenario never fails the
// others; the returned error is the first failure (or the context error)
// and only causes early submission stop when AbortOnFailure is set.
func Run(ctx context.Context, scenarios []*scenario.Scenario, p Params) ([]Record, error) {
	if p.Solver == nil {
		return nil, fmt.Errorf("no solver configured")
	}
	size := PoolSize(p.CPUFraction)
	logger.Info("starting batch solve",
		"scenarios", len(scenarios),
		"workers", size,
		"solver", p.Solver.Name())

	records := make([]Record, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(size)

	for i, sc := range scenarios {
		if err := gctx.Err(); err != nil {
			for j := i; j < len(scenarios); j++ {
				records[j] = Record{Scenario: scenarios[j].Name(), Err: err}
			}
			break
		}
		g.Go(func() error {
			records[i] = solveOne(gctx, p.Solver, sc)
			if records[i].Err != nil {
				logger.Error("scenario solve failed",
					"scenario", records[i].Scenario,
					"error", records[i].Err)
				if p.AbortOnFailure {
					return records[i].Err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = firstFailure(records)
	}
	return records, err
}

// solveOne runs a single scenario and converts panics from deep inside the
// build or solve into a failure record, so one broken scenario cannot take
// down the whole batch.
func solveOne(ctx context.Context, s solver.Solver, sc *scenario.Scenario) (rec Record) {
	rec.Scenario = sc.Name()
	start := time.Now()
	defer func() {
		rec.Duration = time.Since(start)
		if r := recover(); r != nil {
			rec.Err = fmt.Errorf("solve of %q panicked: %v", rec.Scenario, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		rec.Err = err
		return rec
	}
	rec.Err = solver.Run(ctx, s, sc)
	return rec
}

func firstFailure(records []Record) error {
	for _, r := range records {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
