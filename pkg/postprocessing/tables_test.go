package postprocessing

import (
	"reflect"
	"testing"

	"github.com/regioflex/regioflex/pkg/common"
	"github.com/regioflex/regioflex/pkg/graph"
)

func balanceFixture(t *testing.T) (*graph.FlowGraph, *common.Results) {
	t.Helper()
	fg := graph.New("balance", 2)

	src := common.Label{Cat: graph.CatSource, Tag: graph.TagCommodity, Subtag: "natural gas", Region: "DE"}
	bus := graph.CommodityBus("natural gas", "DE")
	sink := common.Label{Cat: graph.CatDemand, Tag: "natural gas", Subtag: "industry", Region: "DE01"}
	shortage := common.Label{Cat: graph.CatShortage, Tag: graph.TagElectricity, Subtag: graph.SubtagAll, Region: "DE01"}
	elecBus := graph.ElectricityBus("DE01")

	addNode(t, fg, graph.Node{Label: src, Type: graph.NodeSource})
	addNode(t, fg, graph.Node{Label: bus, Type: graph.NodeBus})
	addNode(t, fg, graph.Node{Label: sink, Type: graph.NodeSink})
	addNode(t, fg, graph.Node{Label: elecBus, Type: graph.NodeBus})
	addNode(t, fg, graph.Node{Label: shortage, Type: graph.NodeSource})

	addEdge(t, fg, src, bus)
	addEdge(t, fg, bus, sink)
	addEdge(t, fg, shortage, elecBus)

	res := &common.Results{
		Status: "optimal",
		Flows: []common.Flow{
			{From: src, To: bus, Values: []float64{10, 20}},
			{From: shortage, To: elecBus, Values: []float64{3, 4}},
		},
	}
	return fg, res
}

func TestBusBalances(t *testing.T) {
	fg, res := balanceFixture(t)
	balances := BusBalances(fg, res)
	if len(balances) != 2 {
		t.Fatalf("expected 2 bus balances, got %d", len(balances))
	}

	gas := balances[0]
	if gas.Bus != graph.CommodityBus("natural gas", "DE") {
		t.Fatalf("unexpected bus %v", gas.Bus)
	}
	if len(gas.In) != 1 || !reflect.DeepEqual(gas.In[0].Values, []float64{10, 20}) {
		t.Fatalf("unexpected inflows %+v", gas.In)
	}
	// The bus -> sink edge was not reported by the solve; a nil series keeps
	// it distinguishable from an all-zero flow.
	if len(gas.Out) != 1 || gas.Out[0].Values != nil {
		t.Fatalf("expected nil series for unreported flow, got %+v", gas.Out)
	}
}

func TestNodeTotals(t *testing.T) {
	fg, res := balanceFixture(t)
	totals := NodeTotals(fg, res)

	byLabel := map[common.Label]NodeTotal{}
	for _, nt := range totals {
		if nt.Node.Cat == graph.CatBus {
			t.Fatalf("expected buses to be excluded, got %v", nt.Node)
		}
		byLabel[nt.Node] = nt
	}

	src := common.Label{Cat: graph.CatSource, Tag: graph.TagCommodity, Subtag: "natural gas", Region: "DE"}
	if got := byLabel[src]; got.TotalOut != 30 || got.TotalIn != 0 {
		t.Fatalf("unexpected source totals %+v", got)
	}
}

func TestFlowTotals(t *testing.T) {
	fg := graph.New("totals", 2)

	src := common.Label{Cat: graph.CatSource, Tag: graph.TagCommodity, Subtag: "natural gas", Region: "DE"}
	bus := graph.CommodityBus("natural gas", "DE")
	sink := common.Label{Cat: graph.CatDemand, Tag: "natural gas", Subtag: "industry", Region: "DE01"}

	addNode(t, fg, graph.Node{Label: src, Type: graph.NodeSource})
	addNode(t, fg, graph.Node{Label: bus, Type: graph.NodeBus})
	addNode(t, fg, graph.Node{Label: sink, Type: graph.NodeSink})

	supply := graph.Edge{From: src, To: bus, VariableCosts: 31, Emission: 0.2, ConversionFactor: 1}
	if err := fg.AddEdge(supply); err != nil {
		t.Fatalf("add edge failed: %v", err)
	}
	addEdge(t, fg, bus, sink)

	res := &common.Results{
		Status: "optimal",
		Flows: []common.Flow{
			{From: src, To: bus, Values: []float64{10, 20}},
		},
	}

	totals := FlowTotals(fg, res)
	if len(totals) != 2 {
		t.Fatalf("expected 2 flow totals, got %d", len(totals))
	}

	ft := totals[0]
	if ft.From != src || ft.To != bus {
		t.Fatalf("unexpected flow order %+v", ft)
	}
	if ft.Energy != 30 || ft.Costs != 930 || ft.Emission != 6 {
		t.Fatalf("unexpected totals %+v", ft)
	}
	if ft.SpecificCosts != 31 || ft.SpecificEmission != 0.2 {
		t.Fatalf("unexpected specific values %+v", ft)
	}

	// The unreported bus -> sink flow counts as zero, and the specific
	// values are left at zero instead of dividing by zero.
	idle := totals[1]
	if idle.Energy != 0 || idle.Costs != 0 || idle.SpecificCosts != 0 || idle.SpecificEmission != 0 {
		t.Fatalf("unexpected idle flow totals %+v", idle)
	}
}

func TestShortageFlows(t *testing.T) {
	fg, res := balanceFixture(t)
	shortages := ShortageFlows(fg, res)

	shortage := common.Label{Cat: graph.CatShortage, Tag: graph.TagElectricity, Subtag: graph.SubtagAll, Region: "DE01"}
	if len(shortages) != 1 {
		t.Fatalf("expected 1 shortage source, got %d", len(shortages))
	}
	if shortages[shortage] != 7 {
		t.Fatalf("expected shortage total 7, got %v", shortages[shortage])
	}
}
