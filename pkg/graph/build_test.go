package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/regioflex/regioflex/pkg/common"
	"github.com/regioflex/regioflex/pkg/scenario"
)

func baseInput() scenario.InputTables {
	return scenario.InputTables{
		General: scenario.General{Year: 2035, TimeSteps: 3, CO2Price: 30, Name: "test"},
		CommoditySources: []scenario.CommoditySource{
			{Region: "DE", Fuel: "natural gas", Costs: 25, Emission: 0.2, AnnualLimit: scenario.Inf()},
		},
		ElectricityDemand: []scenario.DemandSeries{
			{Region: "DE01", Name: "all", Values: []float64{10, 20, 30}},
		},
	}
}

func mustBuild(t *testing.T, in scenario.InputTables) *FlowGraph {
	t.Helper()
	fg, err := Build(&scenario.Scenario{Input: in})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return fg
}

func mustEdge(t *testing.T, fg *FlowGraph, from, to common.Label) *Edge {
	t.Helper()
	e, ok := fg.Edge(from, to)
	if !ok {
		t.Fatalf("expected edge %q -> %q", from, to)
	}
	return e
}

func TestBuildCommoditySource(t *testing.T) {
	in := baseInput()
	fg := mustBuild(t, in)

	src := common.Label{Cat: CatSource, Tag: TagCommodity, Subtag: "natural gas", Region: "DE"}
	e := mustEdge(t, fg, src, CommodityBus("natural gas", "DE"))

	// Emission costs are folded into the variable costs via the CO2 price.
	if e.VariableCosts != 25+0.2*30 {
		t.Fatalf("expected variable costs 31, got %v", e.VariableCosts)
	}
	if e.Emission != 0.2 {
		t.Fatalf("expected emission 0.2, got %v", e.Emission)
	}
	if !e.Capacity.IsInf() || !e.SummedMax.IsInf() {
		t.Fatalf("expected unbounded supply, got capacity %v, summed max %v", e.Capacity, e.SummedMax)
	}
}

func TestBuildCommoditySourceAnnualLimit(t *testing.T) {
	in := baseInput()
	in.CommoditySources[0].AnnualLimit = 5000
	fg := mustBuild(t, in)

	src := common.Label{Cat: CatSource, Tag: TagCommodity, Subtag: "natural gas", Region: "DE"}
	e := mustEdge(t, fg, src, CommodityBus("natural gas", "DE"))
	if e.Capacity != 5000 || e.SummedMax != 1 {
		t.Fatalf("expected capacity 5000 and summed max 1, got %v / %v", e.Capacity, e.SummedMax)
	}
}

func TestBuildSkipsZeroAnnualLimitSource(t *testing.T) {
	in := baseInput()
	in.CommoditySources[0].AnnualLimit = 0
	fg := mustBuild(t, in)

	src := common.Label{Cat: CatSource, Tag: TagCommodity, Subtag: "natural gas", Region: "DE"}
	if _, ok := fg.Node(src); ok {
		t.Fatal("expected source with zero annual limit to be skipped")
	}
	if _, ok := fg.Node(CommodityBus("natural gas", "DE")); ok {
		t.Fatal("expected no bus for the unreferenced fuel")
	}
}

func TestBuildElectricityDemandAndBalance(t *testing.T) {
	fg := mustBuild(t, baseInput())

	bus := ElectricityBus("DE01")
	sink := common.Label{Cat: CatDemand, Tag: TagElectricity, Subtag: "all", Region: "DE01"}
	e := mustEdge(t, fg, bus, sink)
	if e.Capacity != 1 {
		t.Fatalf("expected demand capacity 1, got %v", e.Capacity)
	}
	if !reflect.DeepEqual(e.Fix, []float64{10, 20, 30}) {
		t.Fatalf("expected fixed demand series, got %v", e.Fix)
	}

	shortage := common.Label{Cat: CatShortage, Tag: TagElectricity, Subtag: SubtagAll, Region: "DE01"}
	se := mustEdge(t, fg, shortage, bus)
	if se.VariableCosts != ShortageCosts {
		t.Fatalf("expected shortage costs %v, got %v", float64(ShortageCosts), se.VariableCosts)
	}

	excess := common.Label{Cat: CatExcess, Tag: TagElectricity, Subtag: SubtagAll, Region: "DE01"}
	mustEdge(t, fg, bus, excess)
}

func TestBuildShortageExcessOnEveryBus(t *testing.T) {
	in := baseInput()
	in.HeatDemand = []scenario.HeatDemandSeries{
		{Region: "DE01", System: scenario.DistrictHeatingSystem, Values: []float64{1, 2, 3}},
	}
	in.CHPHeatPlants = []scenario.CHPPlant{{
		Region: "DE01", Name: "chp", Fuel: "natural gas", SourceRegion: "DE",
		CapacityHeatCHP: 50, LimitHeatCHP: scenario.Inf(),
		EfficiencyHeatCHP: 0.5, EfficiencyElecCHP: 0.3,
		LimitHP: scenario.Inf(), EfficiencyHP: 0.9,
	}}
	fg := mustBuild(t, in)

	// The commodity and district heating buses are balanced just like the
	// electricity buses.
	checked := 0
	for _, n := range fg.Nodes() {
		if n.Type != NodeBus {
			continue
		}
		checked++
		bus := n.Label
		shortage := common.Label{Cat: CatShortage, Tag: bus.Tag, Subtag: bus.Subtag, Region: bus.Region}
		se := mustEdge(t, fg, shortage, bus)
		if se.VariableCosts != ShortageCosts {
			t.Fatalf("bus %q: expected shortage costs %v, got %v", bus, float64(ShortageCosts), se.VariableCosts)
		}
		excess := common.Label{Cat: CatExcess, Tag: bus.Tag, Subtag: bus.Subtag, Region: bus.Region}
		mustEdge(t, fg, bus, excess)
	}
	if checked != 3 {
		t.Fatalf("expected 3 balanced buses, got %d", checked)
	}
}

func TestBuildPowerPlant(t *testing.T) {
	in := baseInput()
	in.PowerPlants = []scenario.PowerPlant{{
		Region: "DE01", Name: "gas turbine", Fuel: "natural gas", SourceRegion: "DE",
		Capacity: 100, Efficiency: 0.4, AnnualLimit: 400,
		VariableCosts: 2, DowntimeFactor: 0.2,
	}}
	fg := mustBuild(t, in)

	conv := common.Label{Cat: CatConverter, Tag: "power plant", Subtag: "gas turbine", Region: "DE01"}
	mustEdge(t, fg, CommodityBus("natural gas", "DE"), conv)

	out := mustEdge(t, fg, conv, ElectricityBus("DE01"))
	// The downtime factor derates the capacity; the annual limit is
	// expressed relative to the derated capacity.
	if out.Capacity != 80 {
		t.Fatalf("expected derated capacity 80, got %v", out.Capacity)
	}
	if out.SummedMax != 5 {
		t.Fatalf("expected summed max 5, got %v", out.SummedMax)
	}
	if out.ConversionFactor != 0.4 || out.VariableCosts != 2 {
		t.Fatalf("unexpected output edge %+v", out)
	}
}

func TestBuildSourceRegionSelectsFuelBus(t *testing.T) {
	in := baseInput()
	in.CommoditySources = append(in.CommoditySources,
		scenario.CommoditySource{Region: "DE01", Fuel: "natural gas", Costs: 28, AnnualLimit: scenario.Inf()})
	in.PowerPlants = []scenario.PowerPlant{
		{
			Region: "DE01", Name: "national gas", Fuel: "natural gas", SourceRegion: "DE",
			Capacity: 100, Efficiency: 0.4, AnnualLimit: scenario.Inf(),
		},
		{
			Region: "DE01", Name: "local gas", Fuel: "natural gas", SourceRegion: "DE01",
			Capacity: 50, Efficiency: 0.4, AnnualLimit: scenario.Inf(),
		},
	}
	fg := mustBuild(t, in)

	// The same fuel declared regionally and supra-regionally yields two
	// distinct buses; the declared source region picks one of them.
	if _, ok := fg.Node(CommodityBus("natural gas", "DE")); !ok {
		t.Fatal("expected supra-regional gas bus")
	}
	if _, ok := fg.Node(CommodityBus("natural gas", "DE01")); !ok {
		t.Fatal("expected regional gas bus")
	}

	national := common.Label{Cat: CatConverter, Tag: "power plant", Subtag: "national gas", Region: "DE01"}
	mustEdge(t, fg, CommodityBus("natural gas", "DE"), national)
	if _, ok := fg.Edge(CommodityBus("natural gas", "DE01"), national); ok {
		t.Fatal("expected no edge from the regional bus to the supra-regional plant")
	}

	local := common.Label{Cat: CatConverter, Tag: "power plant", Subtag: "local gas", Region: "DE01"}
	mustEdge(t, fg, CommodityBus("natural gas", "DE01"), local)
	if _, ok := fg.Edge(CommodityBus("natural gas", "DE"), local); ok {
		t.Fatal("expected no edge from the supra-regional bus to the regional plant")
	}
}

func TestBuildSkipsZeroCapacityPlants(t *testing.T) {
	in := baseInput()
	in.PowerPlants = []scenario.PowerPlant{{
		Region: "DE01", Name: "mothballed", Fuel: "natural gas", SourceRegion: "DE",
		Capacity: 0, Efficiency: 0.4, AnnualLimit: scenario.Inf(),
	}}
	fg := mustBuild(t, in)

	conv := common.Label{Cat: CatConverter, Tag: "power plant", Subtag: "mothballed", Region: "DE01"}
	if _, ok := fg.Node(conv); ok {
		t.Fatal("expected zero-capacity plant to be skipped")
	}
}

func TestBuildVolatilePlant(t *testing.T) {
	in := baseInput()
	in.VolatilePlants = []scenario.VolatilePlant{{Region: "DE01", Name: "wind", Capacity: 50}}
	in.VolatileSeries = []scenario.VolatileSeries{{Region: "DE01", Name: "wind", Values: []float64{0.1, 0.5, 0.9}}}
	fg := mustBuild(t, in)

	src := common.Label{Cat: CatSource, Tag: "volatile", Subtag: "wind", Region: "DE01"}
	e := mustEdge(t, fg, src, ElectricityBus("DE01"))
	if e.Capacity != 50 {
		t.Fatalf("expected capacity 50, got %v", e.Capacity)
	}
	if !reflect.DeepEqual(e.Fix, []float64{0.1, 0.5, 0.9}) {
		t.Fatalf("expected feed-in series, got %v", e.Fix)
	}
}

func TestBuildPowerLineSingleDirection(t *testing.T) {
	in := baseInput()
	in.ElectricityDemand = append(in.ElectricityDemand,
		scenario.DemandSeries{Region: "DE02", Name: "all", Values: []float64{5, 5, 5}})
	in.PowerLines = []scenario.PowerLine{{Name: "DE01-DE02", Capacity: 100, Efficiency: 0.97}}
	fg := mustBuild(t, in)

	// The capacity sits on the delivering side, so the full declared power
	// arrives in the target region and the losses are drawn on top.
	line := common.Label{Cat: CatLine, Tag: TagElectricity, Subtag: "DE01", Region: "DE02"}
	in1 := mustEdge(t, fg, ElectricityBus("DE01"), line)
	if !in1.Capacity.IsInf() {
		t.Fatalf("expected unbounded sending edge, got %v", in1.Capacity)
	}
	out := mustEdge(t, fg, line, ElectricityBus("DE02"))
	if out.Capacity != 100 {
		t.Fatalf("expected line capacity 100 on the delivering edge, got %v", out.Capacity)
	}
	if out.ConversionFactor != 0.97 {
		t.Fatalf("expected line efficiency 0.97, got %v", out.ConversionFactor)
	}

	// A declaration covers one direction only.
	reverse := common.Label{Cat: CatLine, Tag: TagElectricity, Subtag: "DE02", Region: "DE01"}
	if _, ok := fg.Node(reverse); ok {
		t.Fatal("expected no line in the opposite direction")
	}
}

func TestBuildPowerLineMergesSameDirection(t *testing.T) {
	in := baseInput()
	in.ElectricityDemand = append(in.ElectricityDemand,
		scenario.DemandSeries{Region: "DE02", Name: "all", Values: []float64{5, 5, 5}})
	in.PowerLines = []scenario.PowerLine{
		{Name: "DE01-DE02", Capacity: 100, Efficiency: 0.97},
		{Name: "DE01-DE02", Capacity: 50, Efficiency: 0.97},
	}
	fg := mustBuild(t, in)

	line := common.Label{Cat: CatLine, Tag: TagElectricity, Subtag: "DE01", Region: "DE02"}
	e := mustEdge(t, fg, line, ElectricityBus("DE02"))
	if e.Capacity != 150 {
		t.Fatalf("expected summed capacity 150, got %v", e.Capacity)
	}
}

func TestBuildPowerLineConflictingEfficiencies(t *testing.T) {
	in := baseInput()
	in.PowerLines = []scenario.PowerLine{
		{Name: "DE01-DE02", Capacity: 100, Efficiency: 0.97},
		{Name: "DE01-DE02", Capacity: 50, Efficiency: 0.95},
	}
	_, err := Build(&scenario.Scenario{Input: in})
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected BuildError, got %v", err)
	}
	if be.Table != scenario.TablePowerLines {
		t.Fatalf("expected error on table %q, got %q", scenario.TablePowerLines, be.Table)
	}
}

func TestBuildChpPlant(t *testing.T) {
	in := baseInput()
	in.HeatDemand = []scenario.HeatDemandSeries{
		{Region: "DE01", System: scenario.DistrictHeatingSystem, Values: []float64{1, 2, 3}},
	}
	in.CHPHeatPlants = []scenario.CHPPlant{{
		Region: "DE01", Name: "chp", Fuel: "natural gas", SourceRegion: "DE",
		CapacityHeatCHP: 50, LimitHeatCHP: 500,
		EfficiencyHeatCHP: 0.5, EfficiencyElecCHP: 0.3,
		CapacityHP: 30, LimitHP: scenario.Inf(), EfficiencyHP: 0.9,
	}}
	fg := mustBuild(t, in)

	chp := common.Label{Cat: CatConverter, Tag: "chp", Subtag: "chp", Region: "DE01"}
	fuel := mustEdge(t, fg, CommodityBus("natural gas", "DE"), chp)
	// Fuel input capacity follows from the heat capacity and efficiency.
	if fuel.Capacity != 100 {
		t.Fatalf("expected fuel capacity 100, got %v", fuel.Capacity)
	}
	if fuel.SummedMax != 10 {
		t.Fatalf("expected summed max 10, got %v", fuel.SummedMax)
	}

	elec := mustEdge(t, fg, chp, ElectricityBus("DE01"))
	if elec.ConversionFactor != 0.3 {
		t.Fatalf("expected electric efficiency 0.3, got %v", elec.ConversionFactor)
	}
	heat := mustEdge(t, fg, chp, DistrictHeatBus("DE01"))
	if heat.ConversionFactor != 0.5 {
		t.Fatalf("expected heat efficiency 0.5, got %v", heat.ConversionFactor)
	}

	hp := common.Label{Cat: CatConverter, Tag: "heat plant", Subtag: "chp", Region: "DE01"}
	hpFuel := mustEdge(t, fg, CommodityBus("natural gas", "DE"), hp)
	if hpFuel.Capacity != Bound(30.0/0.9) {
		t.Fatalf("expected heat plant fuel capacity %v, got %v", 30.0/0.9, hpFuel.Capacity)
	}
	if !hpFuel.SummedMax.IsInf() {
		t.Fatalf("expected unbounded heat plant, got %v", hpFuel.SummedMax)
	}
}

func TestBuildStorage(t *testing.T) {
	in := baseInput()
	in.Storages = []scenario.Storage{{
		Region: "DE01", Name: "battery", Medium: "electricity",
		EnergyContent: 100, ChargeCapacity: 10, DischargeCapacity: 12,
		ChargeEfficiency: 0.95, DischargeEfficiency: 0.9,
		LossRate: 0.01, Inflow: 0,
	}}
	fg := mustBuild(t, in)

	node := common.Label{Cat: CatStorage, Tag: "electricity", Subtag: "battery", Region: "DE01"}
	n, ok := fg.Node(node)
	if !ok {
		t.Fatal("expected storage node")
	}
	if n.Storage == nil || n.Storage.EnergyContent != 100 || n.Storage.LossRate != 0.01 {
		t.Fatalf("unexpected storage params %+v", n.Storage)
	}

	bus := ElectricityBus("DE01")
	charge := mustEdge(t, fg, bus, node)
	if charge.Capacity != 10 || charge.ConversionFactor != 0.95 {
		t.Fatalf("unexpected charge edge %+v", charge)
	}
	discharge := mustEdge(t, fg, node, bus)
	if discharge.Capacity != 12 || discharge.ConversionFactor != 0.9 {
		t.Fatalf("unexpected discharge edge %+v", discharge)
	}
}

func TestBuildHeatAggregateFallback(t *testing.T) {
	in := baseInput()
	// The heating system is declared once for the whole modelled area but
	// runs on electricity, so each instance draws from its own region's bus.
	in.DecentralisedHeat = []scenario.DecentralisedHeat{
		{Region: "DE", System: "heat pump", Source: "electricity", SourceRegion: "DE", Efficiency: 1},
	}
	in.HeatDemand = []scenario.HeatDemandSeries{
		{Region: "DE01", System: "heat pump", Values: []float64{1, 2, 3}},
	}
	fg := mustBuild(t, in)

	conv := common.Label{Cat: CatConverter, Tag: "heating system", Subtag: "heat pump", Region: "DE01"}
	mustEdge(t, fg, ElectricityBus("DE01"), conv)
	mustEdge(t, fg, conv, DecentralisedHeatBus("heat pump", "DE01"))

	if _, ok := fg.Node(ElectricityBus("DE")); ok {
		t.Fatal("expected no electricity bus for the aggregate region")
	}
}

func TestBuildOtherConverter(t *testing.T) {
	in := baseInput()
	in.CommoditySources = append(in.CommoditySources,
		scenario.CommoditySource{Region: "DE01", Fuel: "hydrogen", AnnualLimit: scenario.Inf()})
	in.OtherConverters = []scenario.OtherConverter{{
		Region: "DE01", Name: "electrolyser",
		Source: "electricity", SourceRegion: "DE01",
		Target: "hydrogen", TargetRegion: "DE01",
		Capacity: 20, Efficiency: 0.7, AnnualLimit: scenario.Inf(),
	}}
	fg := mustBuild(t, in)

	conv := common.Label{Cat: CatConverter, Tag: "other", Subtag: "electrolyser", Region: "DE01"}
	mustEdge(t, fg, ElectricityBus("DE01"), conv)
	out := mustEdge(t, fg, conv, CommodityBus("hydrogen", "DE01"))
	if out.Capacity != 20 || out.ConversionFactor != 0.7 {
		t.Fatalf("unexpected converter edge %+v", out)
	}
}

func TestBuildRejectsCollidingRows(t *testing.T) {
	in := baseInput()
	in.ElectricityDemand = append(in.ElectricityDemand, in.ElectricityDemand[0])
	_, err := Build(&scenario.Scenario{Input: in})
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected BuildError, got %v", err)
	}
	if be.Table != scenario.TableElectricityDemandSeries {
		t.Fatalf("expected error on table %q, got %q", scenario.TableElectricityDemandSeries, be.Table)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	in := baseInput()
	in.PowerPlants = []scenario.PowerPlant{{
		Region: "DE01", Name: "gas turbine", Fuel: "natural gas", SourceRegion: "DE",
		Capacity: 100, Efficiency: 0.4, AnnualLimit: scenario.Inf(),
	}}
	in.Storages = []scenario.Storage{{
		Region: "DE01", Name: "battery", Medium: "electricity",
		EnergyContent: 100, ChargeCapacity: 10, DischargeCapacity: 10,
		ChargeEfficiency: 0.95, DischargeEfficiency: 0.9,
	}}

	first := mustBuild(t, in)
	second := mustBuild(t, in)

	var a, b []common.Label
	for _, n := range first.Nodes() {
		a = append(a, n.Label)
	}
	for _, n := range second.Nodes() {
		b = append(b, n.Label)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical node order, got\n%v\n%v", a, b)
	}
}
