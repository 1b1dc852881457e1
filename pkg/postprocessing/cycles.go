// Package postprocessing turns raw solve results into analysis products:
// cycle reports, bus balances, time-step key values and fuel allocation
// for combined heat and power.
package postprocessing

import (
	"github.com/regioflex/regioflex/pkg/common"
	"github.com/regioflex/regioflex/pkg/graph"
)

// Cycle is one elementary directed cycle, listing each node once.
type Cycle struct {
	Nodes []common.Label `json:"nodes"`
}

// edges returns the directed edges of the cycle, closing it from the last
// node back to the first.
func (c Cycle) edges() []common.FlowKey {
	keys := make([]common.FlowKey, 0, len(c.Nodes))
	for i, n := range c.Nodes {
		next := c.Nodes[(i+1)%len(c.Nodes)]
		keys = append(keys, common.FlowKey{From: n, To: next})
	}
	return keys
}

// isStorage reports whether the cycle is a plain charge/discharge pair of
// one storage and its bus.
func (c Cycle) isStorage() bool {
	if len(c.Nodes) != 2 {
		return false
	}
	return c.Nodes[0].Cat == graph.CatStorage || c.Nodes[1].Cat == graph.CatStorage
}

// isLine reports whether the cycle is a pure transmission loop: every
// second node is a power line, so the cycle moves energy between buses
// without converting it.
func (c Cycle) isLine() bool {
	lines := 0
	for _, n := range c.Nodes {
		if n.Cat == graph.CatLine {
			lines++
		}
	}
	return lines > 0 && lines*2 == len(c.Nodes)
}

// Used reports whether the solve moved energy around the whole cycle: no
// edge of the cycle has an all-zero flow series. Edges the solver did not
// report count as all-zero.
func (c Cycle) Used(res *common.Results) bool {
	for _, k := range c.edges() {
		values := res.Flow(k.From, k.To)
		nonzero := false
		for _, v := range values {
			if v != 0 {
				nonzero = true
				break
			}
		}
		if !nonzero {
			return false
		}
	}
	return true
}

// SuspiciousSteps returns the time steps at which every edge of the cycle
// carries flow simultaneously. Simultaneous flow around a full cycle means
// energy is destroyed in circles, which a cost-optimal solution should
// never do unless the input is broken.
func (c Cycle) SuspiciousSteps(res *common.Results) []int {
	series := make([][]float64, 0, len(c.Nodes))
	steps := 0
	for _, k := range c.edges() {
		values := res.Flow(k.From, k.To)
		if len(values) == 0 {
			return nil
		}
		if steps == 0 || len(values) < steps {
			steps = len(values)
		}
		series = append(series, values)
	}

	var suspicious []int
	for t := 0; t < steps; t++ {
		all := true
		for _, values := range series {
			if values[t] == 0 {
				all = false
				break
			}
		}
		if all {
			suspicious = append(suspicious, t)
		}
	}
	return suspicious
}

// CycleReport partitions the elementary cycles of a flow graph. Storage
// charge/discharge pairs and bidirectional transmission loops are cycles by
// construction and reported separately; everything else is a real cycle
// worth a look, e.g. power-to-gas feeding back into power plants.
type CycleReport struct {
	Cycles   []Cycle `json:"cycles"`
	Storages []Cycle `json:"storages"`
	Lines    []Cycle `json:"lines"`
}

// DetectCycles enumerates and classifies all elementary cycles.
func DetectCycles(fg *graph.FlowGraph) *CycleReport {
	report := &CycleReport{}
	for _, nodes := range fg.Cycles() {
		c := Cycle{Nodes: nodes}
		switch {
		case c.isStorage():
			report.Storages = append(report.Storages, c)
		case c.isLine():
			report.Lines = append(report.Lines, c)
		default:
			report.Cycles = append(report.Cycles, c)
		}
	}
	return report
}

// UsedCycles filters the real cycles down to those the solve actually
// moved energy around.
func (r *CycleReport) UsedCycles(res *common.Results) []Cycle {
	var used []Cycle
	for _, c := range r.Cycles {
		if c.Used(res) {
			used = append(used, c)
		}
	}
	return used
}

// SuspiciousCycles filters the real cycles down to those with at least one
// time step of simultaneous flow on every edge. Every suspicious cycle is
// also a used cycle.
func (r *CycleReport) SuspiciousCycles(res *common.Results) []Cycle {
	var suspicious []Cycle
	for _, c := range r.Cycles {
		if len(c.SuspiciousSteps(res)) > 0 {
			suspicious = append(suspicious, c)
		}
	}
	return suspicious
}
