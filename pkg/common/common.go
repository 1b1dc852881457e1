package common

import "strings"

// Label identifies a node in the flow graph. Every node carries a four-part
// label of category, tag, subtag and region, e.g. a commodity bus for
// natural gas in region DE01 is {"commodity", "all", "natural gas", "DE01"}.
//
// Labels are comparable and used as map keys throughout the module, so two
// nodes referencing the "same" bus always resolve to the identical entry.
type Label struct {
	Cat    string `json:"cat"`
	Tag    string `json:"tag"`
	Subtag string `json:"subtag"`
	Region string `json:"region"`
}

// String returns the label parts joined by underscores with whitespace
// replaced by dashes, usable as a human readable key.
func (l Label) String() string {
	s := strings.Join([]string{l.Cat, l.Tag, l.Subtag, l.Region}, "_")
	return strings.ReplaceAll(s, " ", "-")
}

// FlowKey identifies a directed edge between two labelled nodes.
type FlowKey struct {
	From Label `json:"from"`
	To   Label `json:"to"`
}

// Flow holds the solved time series of one directed edge.
type Flow struct {
	From   Label     `json:"from"`
	To     Label     `json:"to"`
	Values []float64 `json:"values"`
}

// Dual holds the solved dual values (shadow prices) of one bus node.
type Dual struct {
	Node   Label     `json:"node"`
	Values []float64 `json:"values"`
}

// Results is the raw output of an external solve, keyed by edge for flow
// variables and by node for bus duals. It is attached to the scenario that
// was solved and read by the post-processing layer.
type Results struct {
	Status string `json:"status"`
	Solver string `json:"solver"`
	Flows  []Flow `json:"flows"`
	Duals  []Dual `json:"duals"`

	flowIdx map[FlowKey]int
	dualIdx map[Label]int
}

// Flow returns the solved time series for the edge from -> to, or nil if the
// solve did not report that edge.
func (r *Results) Flow(from, to Label) []float64 {
	if r.flowIdx == nil {
		r.flowIdx = make(map[FlowKey]int, len(r.Flows))
		for i, f := range r.Flows {
			r.flowIdx[FlowKey{From: f.From, To: f.To}] = i
		}
	}
	i, ok := r.flowIdx[FlowKey{From: from, To: to}]
	if !ok {
		return nil
	}
	return r.Flows[i].Values
}

// Dual returns the solved dual series for the given bus node, or nil.
func (r *Results) Dual(node Label) []float64 {
	if r.dualIdx == nil {
		r.dualIdx = make(map[Label]int, len(r.Duals))
		for i, d := range r.Duals {
			r.dualIdx[d.Node] = i
		}
	}
	i, ok := r.dualIdx[node]
	if !ok {
		return nil
	}
	return r.Duals[i].Values
}
