package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/regioflex/regioflex/pkg/common"
	"github.com/regioflex/regioflex/pkg/graph"
)

// ExternalSolver bridges to an optimization backend running as a
// subprocess. The flow graph is written to the process as JSON on stdin and
// the raw results are read back from stdout, so any LP/MILP toolchain with
// a thin adapter script can serve as backend.
type ExternalSolver struct {
	name    string
	command string
	args    []string
}

// NewExternalSolver creates a subprocess-backed solver. The name shows up
// in results and logs; command and args launch the adapter.
func NewExternalSolver(name, command string, args ...string) *ExternalSolver {
	return &ExternalSolver{name: name, command: command, args: args}
}

// Name identifies the backend.
func (s *ExternalSolver) Name() string { return s.name }

// solverModel is the wire format handed to the adapter process.
type solverModel struct {
	Name      string        `json:"name"`
	TimeSteps int           `json:"time_steps"`
	Nodes     []*graph.Node `json:"nodes"`
	Edges     []*graph.Edge `json:"edges"`
}

// Solve runs the adapter process to completion. The context kills long
// running solves.
func (s *ExternalSolver) Solve(ctx context.Context, fg *graph.FlowGraph) (*common.Results, error) {
	model := solverModel{
		Name:      fg.Name,
		TimeSteps: fg.TimeSteps,
		Nodes:     fg.Nodes(),
		Edges:     fg.Edges(),
	}
	input, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("failed to encode solver model: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("solver process failed: %w (stderr: %s)", err, stderr.String())
	}

	var results common.Results
	if err := json.Unmarshal(stdout.Bytes(), &results); err != nil {
		return nil, fmt.Errorf("failed to decode solver output: %w", err)
	}
	return &results, nil
}
