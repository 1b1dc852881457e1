package graph

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/regioflex/regioflex/pkg/common"
)

func TestAddNodeRejectsDuplicates(t *testing.T) {
	fg := New("test", 3)
	bus := ElectricityBus("DE01")
	if err := fg.AddNode(Node{Label: bus, Type: NodeBus}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := fg.AddNode(Node{Label: bus, Type: NodeBus}); err == nil {
		t.Fatal("expected duplicate node to be rejected")
	}
}

func TestAddEdgeRejectsUnknownEndpoints(t *testing.T) {
	fg := New("test", 3)
	a := ElectricityBus("DE01")
	b := ElectricityBus("DE02")
	if err := fg.AddNode(Node{Label: a, Type: NodeBus}); err != nil {
		t.Fatalf("add node failed: %v", err)
	}

	if err := fg.AddEdge(Edge{From: a, To: b}); err == nil {
		t.Fatal("expected edge to missing node to be rejected")
	}
	if err := fg.AddEdge(Edge{From: b, To: a}); err == nil {
		t.Fatal("expected edge from missing node to be rejected")
	}

	if err := fg.AddNode(Node{Label: b, Type: NodeBus}); err != nil {
		t.Fatalf("add node failed: %v", err)
	}
	if err := fg.AddEdge(Edge{From: a, To: b}); err != nil {
		t.Fatalf("add edge failed: %v", err)
	}
	if err := fg.AddEdge(Edge{From: a, To: b}); err == nil {
		t.Fatal("expected duplicate edge to be rejected")
	}
}

func TestIterationFollowsInsertionOrder(t *testing.T) {
	fg := New("test", 3)
	labels := []common.Label{
		ElectricityBus("DE03"),
		ElectricityBus("DE01"),
		ElectricityBus("DE02"),
	}
	for _, l := range labels {
		if err := fg.AddNode(Node{Label: l, Type: NodeBus}); err != nil {
			t.Fatalf("add node failed: %v", err)
		}
	}
	var got []common.Label
	for _, n := range fg.Nodes() {
		got = append(got, n.Label)
	}
	if !reflect.DeepEqual(got, labels) {
		t.Fatalf("expected insertion order %v, got %v", labels, got)
	}
}

func TestCyclesTrimsRepeatedStartNode(t *testing.T) {
	fg := New("test", 3)
	a := ElectricityBus("DE01")
	b := common.Label{Cat: CatStorage, Tag: "electricity", Subtag: "battery", Region: "DE01"}
	for _, l := range []common.Label{a, b} {
		if err := fg.AddNode(Node{Label: l, Type: NodeBus}); err != nil {
			t.Fatalf("add node failed: %v", err)
		}
	}
	if err := fg.AddEdge(Edge{From: a, To: b}); err != nil {
		t.Fatalf("add edge failed: %v", err)
	}
	if err := fg.AddEdge(Edge{From: b, To: a}); err != nil {
		t.Fatalf("add edge failed: %v", err)
	}

	cycles := fg.Cycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if len(cycles[0]) != 2 {
		t.Fatalf("expected cycle of 2 nodes, got %v", cycles[0])
	}
}

func TestBoundJSON(t *testing.T) {
	data, err := json.Marshal(Unbounded())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"inf"` {
		t.Fatalf("expected \"inf\", got %s", data)
	}

	var b Bound
	if err := json.Unmarshal([]byte(`"inf"`), &b); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !b.IsInf() {
		t.Fatalf("expected unbounded, got %v", b)
	}
	if err := json.Unmarshal([]byte(`42`), &b); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if b != 42 {
		t.Fatalf("expected 42, got %v", b)
	}
}

func TestTriplesAndDOT(t *testing.T) {
	fg := New("test", 3)
	src := common.Label{Cat: CatSource, Tag: TagCommodity, Subtag: "natural gas", Region: "DE"}
	bus := CommodityBus("natural gas", "DE")
	if err := fg.AddNode(Node{Label: src, Type: NodeSource}); err != nil {
		t.Fatalf("add node failed: %v", err)
	}
	if err := fg.AddNode(Node{Label: bus, Type: NodeBus}); err != nil {
		t.Fatalf("add node failed: %v", err)
	}
	if err := fg.AddEdge(Edge{From: src, To: bus, Capacity: 100, ConversionFactor: 1}); err != nil {
		t.Fatalf("add edge failed: %v", err)
	}

	triples := fg.Triples()
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
	want := Triple{
		From:     "source_commodity_natural-gas_DE",
		FromType: NodeSource,
		To:       "bus_commodity_natural-gas_DE",
		ToType:   NodeBus,
		Capacity: 100,
		Weight:   1,
	}
	if triples[0] != want {
		t.Fatalf("expected %+v, got %+v", want, triples[0])
	}

	var buf bytes.Buffer
	if err := fg.WriteDOT(&buf); err != nil {
		t.Fatalf("write dot failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "shape=box") || !strings.Contains(out, "->") {
		t.Fatalf("unexpected dot output:\n%s", out)
	}
}
