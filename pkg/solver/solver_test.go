package solver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/regioflex/regioflex/pkg/common"
	"github.com/regioflex/regioflex/pkg/graph"
	"github.com/regioflex/regioflex/pkg/scenario"
)

type fakeBackend struct {
	name  string
	solve func(ctx context.Context, fg *graph.FlowGraph) (*common.Results, error)
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Solve(ctx context.Context, fg *graph.FlowGraph) (*common.Results, error) {
	return f.solve(ctx, fg)
}

func testScenario(name string) *scenario.Scenario {
	return &scenario.Scenario{Input: scenario.InputTables{
		General: scenario.General{Year: 2035, TimeSteps: 3, Name: name},
		CommoditySources: []scenario.CommoditySource{
			{Region: "DE", Fuel: "natural gas", Costs: 25, AnnualLimit: scenario.Inf()},
		},
		ElectricityDemand: []scenario.DemandSeries{
			{Region: "DE01", Name: "all", Values: []float64{10, 20, 30}},
		},
	}}
}

func TestRunAttachesResults(t *testing.T) {
	sc := testScenario("base")
	backend := &fakeBackend{
		name: "fake",
		solve: func(ctx context.Context, fg *graph.FlowGraph) (*common.Results, error) {
			if fg.Name != "base" || fg.TimeSteps != 3 {
				t.Fatalf("unexpected model %q with %d steps", fg.Name, fg.TimeSteps)
			}
			return &common.Results{Status: StatusOptimal}, nil
		},
	}

	if err := Run(context.Background(), backend, sc); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !sc.HasResults() {
		t.Fatal("expected results to be attached")
	}
	if sc.Results.Solver != "fake" {
		t.Fatalf("expected solver name fake, got %q", sc.Results.Solver)
	}
}

func TestRunNonOptimalStatus(t *testing.T) {
	sc := testScenario("base")
	backend := &fakeBackend{
		name: "fake",
		solve: func(ctx context.Context, fg *graph.FlowGraph) (*common.Results, error) {
			return &common.Results{Status: "infeasible"}, nil
		},
	}

	err := Run(context.Background(), backend, sc)
	var se *SolveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SolveError, got %v", err)
	}
	if se.Status != "infeasible" {
		t.Fatalf("expected status infeasible, got %q", se.Status)
	}
	if sc.HasResults() {
		t.Fatal("expected scenario to stay unmodified on failure")
	}
}

func TestRunBackendError(t *testing.T) {
	sc := testScenario("base")
	cause := errors.New("license expired")
	backend := &fakeBackend{
		name: "fake",
		solve: func(ctx context.Context, fg *graph.FlowGraph) (*common.Results, error) {
			return nil, cause
		},
	}

	err := Run(context.Background(), backend, sc)
	var se *SolveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SolveError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected error chain to carry the cause, got %v", err)
	}
}

func TestRunBuildFailure(t *testing.T) {
	sc := testScenario("broken")
	sc.Input.ElectricityDemand = append(sc.Input.ElectricityDemand, sc.Input.ElectricityDemand[0])

	called := false
	backend := &fakeBackend{
		name: "fake",
		solve: func(ctx context.Context, fg *graph.FlowGraph) (*common.Results, error) {
			called = true
			return &common.Results{Status: StatusOptimal}, nil
		},
	}

	if err := Run(context.Background(), backend, sc); err == nil {
		t.Fatal("expected build failure")
	}
	if called {
		t.Fatal("expected backend to stay uninvoked on build failure")
	}
}

func TestExternalSolverParsesOutput(t *testing.T) {
	fg, err := graph.Build(testScenario("base"))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	s := NewExternalSolver("echo", "sh", "-c", `cat > /dev/null; echo '{"status": "optimal"}'`)
	res, err := s.Solve(context.Background(), fg)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if res.Status != StatusOptimal {
		t.Fatalf("expected status optimal, got %q", res.Status)
	}
}

func TestExternalSolverReportsStderr(t *testing.T) {
	fg, err := graph.Build(testScenario("base"))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	s := NewExternalSolver("broken", "sh", "-c", `echo "out of memory" >&2; exit 1`)
	_, err = s.Solve(context.Background(), fg)
	if err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
