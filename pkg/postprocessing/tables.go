package postprocessing

import (
	"github.com/regioflex/regioflex/pkg/common"
	"github.com/regioflex/regioflex/pkg/graph"
)

// FlowSeries is one solved flow between a bus and a neighbouring node.
type FlowSeries struct {
	Node   common.Label `json:"node"`
	Values []float64    `json:"values"`
}

// BusBalance lists the solved inflows and outflows of one bus, in graph
// insertion order.
type BusBalance struct {
	Bus common.Label `json:"bus"`
	In  []FlowSeries `json:"in"`
	Out []FlowSeries `json:"out"`
}

// BusBalances extracts the balance of every bus from the results. Flows
// the solver did not report are returned as nil series, which keeps
// missing results distinguishable from all-zero flows.
func BusBalances(fg *graph.FlowGraph, res *common.Results) []BusBalance {
	var balances []BusBalance
	for _, n := range fg.Nodes() {
		if n.Type != graph.NodeBus {
			continue
		}
		balance := BusBalance{Bus: n.Label}
		for _, e := range fg.InEdges(n.Label) {
			balance.In = append(balance.In, FlowSeries{Node: e.From, Values: res.Flow(e.From, e.To)})
		}
		for _, e := range fg.OutEdges(n.Label) {
			balance.Out = append(balance.Out, FlowSeries{Node: e.To, Values: res.Flow(e.From, e.To)})
		}
		balances = append(balances, balance)
	}
	return balances
}

// NodeTotal sums the solved energy through one node over the whole
// optimization horizon.
type NodeTotal struct {
	Node     common.Label   `json:"node"`
	Type     graph.NodeType `json:"type"`
	TotalIn  float64        `json:"total_in"`
	TotalOut float64        `json:"total_out"`
}

// NodeTotals aggregates per-node energy totals for all non-bus nodes, in
// graph insertion order.
func NodeTotals(fg *graph.FlowGraph, res *common.Results) []NodeTotal {
	var totals []NodeTotal
	for _, n := range fg.Nodes() {
		if n.Type == graph.NodeBus {
			continue
		}
		t := NodeTotal{Node: n.Label, Type: n.Type}
		for _, e := range fg.InEdges(n.Label) {
			t.TotalIn += sum(res.Flow(e.From, e.To))
		}
		for _, e := range fg.OutEdges(n.Label) {
			t.TotalOut += sum(res.Flow(e.From, e.To))
		}
		totals = append(totals, t)
	}
	return totals
}

// FlowTotal aggregates one flow over the whole horizon: the energy
// transported, the costs and emission it caused, and both per unit of
// energy.
type FlowTotal struct {
	From             common.Label `json:"from"`
	To               common.Label `json:"to"`
	Energy           float64      `json:"energy"`
	Costs            float64      `json:"costs"`
	Emission         float64      `json:"emission"`
	SpecificCosts    float64      `json:"specific_costs"`
	SpecificEmission float64      `json:"specific_emission"`
}

// FlowTotals derives the per-flow cost and emission table, in graph
// insertion order. Flows the solver did not report count as zero; the
// specific values stay zero for flows that never carried energy.
func FlowTotals(fg *graph.FlowGraph, res *common.Results) []FlowTotal {
	var totals []FlowTotal
	for _, e := range fg.Edges() {
		energy := sum(res.Flow(e.From, e.To))
		ft := FlowTotal{
			From:     e.From,
			To:       e.To,
			Energy:   energy,
			Costs:    energy * e.VariableCosts,
			Emission: energy * e.Emission,
		}
		if energy > 0 {
			ft.SpecificCosts = ft.Costs / energy
			ft.SpecificEmission = ft.Emission / energy
		}
		totals = append(totals, ft)
	}
	return totals
}

// ShortageFlows returns the total energy delivered by each shortage source.
// Anything above zero means the scenario could not be balanced from its own
// capacities at some point.
func ShortageFlows(fg *graph.FlowGraph, res *common.Results) map[common.Label]float64 {
	shortages := map[common.Label]float64{}
	for _, n := range fg.Nodes() {
		if n.Label.Cat != graph.CatShortage {
			continue
		}
		total := 0.0
		for _, e := range fg.OutEdges(n.Label) {
			total += sum(res.Flow(e.From, e.To))
		}
		shortages[n.Label] = total
	}
	return shortages
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
