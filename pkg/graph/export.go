package graph

import (
	"fmt"
	"io"
)

// Triple is one edge of the flow graph in exportable form, with both node
// types attached so downstream tooling can style or filter without
// re-resolving labels.
type Triple struct {
	From     string   `json:"from"`
	FromType NodeType `json:"from_type"`
	To       string   `json:"to"`
	ToType   NodeType `json:"to_type"`
	Capacity float64  `json:"capacity"`
	Weight   float64  `json:"weight"`
}

// Triples exports every edge as a (from, to, attributes) triple in edge
// insertion order.
func (fg *FlowGraph) Triples() []Triple {
	triples := make([]Triple, 0, len(fg.edgeSq))
	for _, e := range fg.Edges() {
		from, _ := fg.Node(e.From)
		to, _ := fg.Node(e.To)
		triples = append(triples, Triple{
			From:     e.From.String(),
			FromType: from.Type,
			To:       e.To.String(),
			ToType:   to.Type,
			Capacity: float64(e.Capacity),
			Weight:   e.ConversionFactor,
		})
	}
	return triples
}

// WriteDOT writes the graph in graphviz dot format for visual inspection.
// Buses are drawn as boxes, everything else as ellipses.
func (fg *FlowGraph) WriteDOT(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "digraph %q {\n", fg.Name); err != nil {
		return err
	}
	for _, n := range fg.Nodes() {
		shape := "ellipse"
		if n.Type == NodeBus {
			shape = "box"
		}
		if _, err := fmt.Fprintf(w, "  %q [shape=%s];\n", n.Label.String(), shape); err != nil {
			return err
		}
	}
	for _, e := range fg.Edges() {
		attrs := ""
		if !e.Capacity.IsInf() {
			attrs = fmt.Sprintf(" [label=\"%g\"]", e.Capacity)
		}
		if _, err := fmt.Fprintf(w, "  %q -> %q%s;\n", e.From.String(), e.To.String(), attrs); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
