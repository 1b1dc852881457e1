// Package solver defines the boundary to external optimization backends.
// A backend receives the flow graph of a scenario and returns raw results;
// everything else (building, validation, attaching results) happens here.
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/regioflex/regioflex/pkg/common"
	"github.com/regioflex/regioflex/pkg/graph"
	"github.com/regioflex/regioflex/pkg/logger"
	"github.com/regioflex/regioflex/pkg/scenario"
)

// StatusOptimal is the status a backend reports for a successfully solved
// model. Any other status fails the run.
const StatusOptimal = "optimal"

// Solver is an optimization backend.
type Solver interface {
	// Name identifies the backend in results and logs.
	Name() string
	// Solve optimizes the flow graph and returns the raw results. The
	// context cancels long running solves.
	Solve(ctx context.Context, fg *graph.FlowGraph) (*common.Results, error)
}

// SolveError reports a failed or non-optimal solve.
type SolveError struct {
	Scenario string
	Status   string
	Err      error
}

func (e *SolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solve of %q failed: %v", e.Scenario, e.Err)
	}
	return fmt.Sprintf("solve of %q ended with status %q", e.Scenario, e.Status)
}

func (e *SolveError) Unwrap() error { return e.Err }

// Run builds the flow graph of a scenario, solves it with the given backend
// and attaches the results. The scenario is only modified on success.
func Run(ctx context.Context, s Solver, sc *scenario.Scenario) error {
	fg, err := graph.Build(sc)
	if err != nil {
		return fmt.Errorf("failed to build flow graph for %q: %w", sc.Name(), err)
	}

	start := time.Now()
	results, err := s.Solve(ctx, fg)
	if err != nil {
		return &SolveError{Scenario: sc.Name(), Err: err}
	}
	if results.Status != StatusOptimal {
		return &SolveError{Scenario: sc.Name(), Status: results.Status}
	}
	results.Solver = s.Name()
	sc.Results = results

	logger.Info("scenario solved",
		"scenario", sc.Name(),
		"solver", s.Name(),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}
