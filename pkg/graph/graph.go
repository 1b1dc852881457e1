// Package graph builds the directed flow graph of a scenario: buses
// connected to sources, demand sinks, converters, storages and power lines.
// The graph is the solver-independent description of the optimization
// problem and the substrate for cycle analysis.
package graph

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/regioflex/regioflex/pkg/common"
)

// NodeType classifies a node for export and post-processing.
type NodeType string

const (
	NodeBus       NodeType = "bus"
	NodeSource    NodeType = "source"
	NodeSink      NodeType = "sink"
	NodeConverter NodeType = "converter"
	NodeStorage   NodeType = "storage"
)

// StorageParams are the node-level parameters of a storage. Charge and
// discharge limits live on the connecting edges.
type StorageParams struct {
	EnergyContent float64 `json:"energy content"`
	LossRate      float64 `json:"loss rate"`
	Inflow        float64 `json:"inflow"`
}

// Node is one labelled vertex of the flow graph.
type Node struct {
	Label   common.Label   `json:"label"`
	Type    NodeType       `json:"type"`
	Storage *StorageParams `json:"storage,omitempty"`
}

// DSMParams mark a demand edge as shiftable (demand side management). They
// are carried through to the solver untouched.
type DSMParams struct {
	CapacityUp    float64 `json:"capacity up"`
	CapacityDown  float64 `json:"capacity down"`
	Delay         int     `json:"delay"`
	ShiftInterval int     `json:"shift interval"`
	CostUp        float64 `json:"cost up"`
	CostDown      float64 `json:"cost down"`
	Approach      string  `json:"approach"`
}

// Bound is a non-negative flow limit that may be infinite. It serializes
// as a number or the string "inf" so graphs survive a JSON round trip.
type Bound float64

// Unbounded marks edges without a capacity or cumulative limit.
func Unbounded() Bound { return Bound(math.Inf(1)) }

// IsInf reports whether the bound is unbounded.
func (b Bound) IsInf() bool { return math.IsInf(float64(b), 1) }

func (b Bound) MarshalJSON() ([]byte, error) {
	if b.IsInf() {
		return []byte(`"inf"`), nil
	}
	return json.Marshal(float64(b))
}

func (b *Bound) UnmarshalJSON(data []byte) error {
	if string(data) == `"inf"` {
		*b = Unbounded()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*b = Bound(f)
	return nil
}

// Edge is one directed flow between two nodes.
//
// Capacity bounds the flow per step (infinite if unbounded). Fix pins the
// flow to Capacity times the series value. SummedMax bounds the flow summed
// over all steps to SummedMax times Capacity, which expresses annual energy
// limits. ConversionFactor weighs the edge in its converter's energy
// balance.
type Edge struct {
	From             common.Label `json:"from"`
	To               common.Label `json:"to"`
	Capacity         Bound        `json:"capacity"`
	Fix              []float64    `json:"fix,omitempty"`
	VariableCosts    float64      `json:"variable costs"`
	Emission         float64      `json:"emission"`
	SummedMax        Bound        `json:"summed max"`
	ConversionFactor float64      `json:"conversion factor"`
	DSM              *DSMParams   `json:"dsm,omitempty"`
}

// FlowGraph is the directed graph of one scenario. Node labels are unique;
// adding a second node or edge with the same identity is an error, so
// colliding table entries surface during the build instead of silently
// overwriting each other. Iteration order is insertion order, keeping
// builds reproducible.
type FlowGraph struct {
	Name      string
	TimeSteps int

	dg     *simple.DirectedGraph
	ids    map[common.Label]int64
	byID   map[int64]common.Label
	nodes  map[common.Label]*Node
	edges  map[common.FlowKey]*Edge
	nodeSq []common.Label
	edgeSq []common.FlowKey
}

// New returns an empty flow graph for a scenario with the given name and
// number of time steps.
func New(name string, timeSteps int) *FlowGraph {
	return &FlowGraph{
		Name:      name,
		TimeSteps: timeSteps,
		dg:        simple.NewDirectedGraph(),
		ids:       map[common.Label]int64{},
		byID:      map[int64]common.Label{},
		nodes:     map[common.Label]*Node{},
		edges:     map[common.FlowKey]*Edge{},
	}
}

// AddNode inserts a node. A duplicate label is an error.
func (fg *FlowGraph) AddNode(n Node) error {
	if _, ok := fg.nodes[n.Label]; ok {
		return fmt.Errorf("duplicate node %q", n.Label)
	}
	id := int64(len(fg.nodeSq))
	fg.ids[n.Label] = id
	fg.byID[id] = n.Label
	fg.dg.AddNode(simple.Node(id))
	stored := n
	fg.nodes[n.Label] = &stored
	fg.nodeSq = append(fg.nodeSq, n.Label)
	return nil
}

// AddEdge inserts a directed edge between two existing nodes. A duplicate
// edge or a missing endpoint is an error.
func (fg *FlowGraph) AddEdge(e Edge) error {
	fromID, ok := fg.ids[e.From]
	if !ok {
		return fmt.Errorf("edge %q -> %q: unknown source node", e.From, e.To)
	}
	toID, ok := fg.ids[e.To]
	if !ok {
		return fmt.Errorf("edge %q -> %q: unknown target node", e.From, e.To)
	}
	key := common.FlowKey{From: e.From, To: e.To}
	if _, ok := fg.edges[key]; ok {
		return fmt.Errorf("duplicate edge %q -> %q", e.From, e.To)
	}
	fg.dg.SetEdge(fg.dg.NewEdge(simple.Node(fromID), simple.Node(toID)))
	stored := e
	fg.edges[key] = &stored
	fg.edgeSq = append(fg.edgeSq, key)
	return nil
}

// Node returns the node with the given label.
func (fg *FlowGraph) Node(l common.Label) (*Node, bool) {
	n, ok := fg.nodes[l]
	return n, ok
}

// Edge returns the edge from -> to.
func (fg *FlowGraph) Edge(from, to common.Label) (*Edge, bool) {
	e, ok := fg.edges[common.FlowKey{From: from, To: to}]
	return e, ok
}

// Nodes returns all nodes in insertion order.
func (fg *FlowGraph) Nodes() []*Node {
	out := make([]*Node, 0, len(fg.nodeSq))
	for _, l := range fg.nodeSq {
		out = append(out, fg.nodes[l])
	}
	return out
}

// Edges returns all edges in insertion order.
func (fg *FlowGraph) Edges() []*Edge {
	out := make([]*Edge, 0, len(fg.edgeSq))
	for _, k := range fg.edgeSq {
		out = append(out, fg.edges[k])
	}
	return out
}

// OutEdges returns the edges leaving a node in insertion order.
func (fg *FlowGraph) OutEdges(l common.Label) []*Edge {
	var out []*Edge
	for _, k := range fg.edgeSq {
		if k.From == l {
			out = append(out, fg.edges[k])
		}
	}
	return out
}

// InEdges returns the edges entering a node in insertion order.
func (fg *FlowGraph) InEdges(l common.Label) []*Edge {
	var out []*Edge
	for _, k := range fg.edgeSq {
		if k.To == l {
			out = append(out, fg.edges[k])
		}
	}
	return out
}

// Cycles enumerates all elementary directed cycles as label sequences. Each
// cycle lists its nodes once, without repeating the first node at the end.
func (fg *FlowGraph) Cycles() [][]common.Label {
	raw := topo.DirectedCyclesIn(fg.dg)
	cycles := make([][]common.Label, 0, len(raw))
	for _, c := range raw {
		// topo closes each cycle by repeating the start node.
		labels := make([]common.Label, 0, len(c)-1)
		for _, n := range c[:len(c)-1] {
			labels = append(labels, fg.byID[n.ID()])
		}
		cycles = append(cycles, labels)
	}
	return cycles
}
