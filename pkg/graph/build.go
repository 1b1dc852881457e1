package graph

import (
	"fmt"

	"github.com/regioflex/regioflex/pkg/common"
	"github.com/regioflex/regioflex/pkg/logger"
	"github.com/regioflex/regioflex/pkg/scenario"
)

// ShortageCosts is the variable cost of the shortage sources backing every
// electricity bus. It is high enough that shortage is only used when the
// system cannot balance otherwise, and shortage flows in the results mark
// infeasible spots of the input data.
const ShortageCosts = 9999

// BuildError describes scenario input that is valid on the table level but
// cannot be assembled into a flow graph, e.g. two rows mapping onto the
// same node.
type BuildError struct {
	Table  string
	Key    string
	Reason string
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build from table %q", e.Table)
	if e.Key != "" {
		msg += fmt.Sprintf(", row %q", e.Key)
	}
	return msg + ": " + e.Reason
}

type builder struct {
	fg  *FlowGraph
	in  *scenario.InputTables
	co2 float64
	dsm map[[3]string]*DSMParams
	err error
}

// Build assembles the flow graph of a validated scenario. The build is
// deterministic: the same input always yields the same node and edge order.
func Build(s *scenario.Scenario) (*FlowGraph, error) {
	b := &builder{
		fg:  New(s.Name(), s.Input.General.TimeSteps),
		in:  &s.Input,
		co2: s.Input.General.CO2Price,
		dsm: map[[3]string]*DSMParams{},
	}
	for _, d := range s.Input.DemandResponse {
		b.dsm[[3]string{d.Table, d.Region, d.Name}] = &DSMParams{
			CapacityUp:    d.CapacityUp,
			CapacityDown:  d.CapacityDown,
			Delay:         d.Delay,
			ShiftInterval: d.ShiftInterval,
			CostUp:        d.CostUp,
			CostDown:      d.CostDown,
			Approach:      d.Approach,
		}
	}

	b.addCommoditySources()
	b.addElectricityDemand()
	b.addVolatilePlants()
	b.addPowerPlants()
	b.addHeat()
	b.addChpHeatPlants()
	b.addStorages()
	b.addMobility()
	b.addOtherDemand()
	b.addOtherConverters()
	b.addPowerLines()
	b.addShortageExcess()

	if b.err != nil {
		return nil, b.err
	}
	logger.Info("flow graph built",
		"scenario", s.Name(),
		"nodes", len(b.fg.nodeSq),
		"edges", len(b.fg.edgeSq))
	return b.fg, nil
}

func (b *builder) fail(table, key, format string, args ...any) {
	if b.err == nil {
		b.err = &BuildError{Table: table, Key: key, Reason: fmt.Sprintf(format, args...)}
	}
}

func (b *builder) node(table, key string, n Node) {
	if b.err != nil {
		return
	}
	if err := b.fg.AddNode(n); err != nil {
		b.fail(table, key, "%v", err)
	}
}

func (b *builder) edge(table, key string, e Edge) {
	if b.err != nil {
		return
	}
	if err := b.fg.AddEdge(e); err != nil {
		b.fail(table, key, "%v", err)
	}
}

// bus returns the label after making sure the bus node exists. Buses are
// created on first use, so their position in the node order follows the
// first component referencing them.
func (b *builder) bus(l common.Label) common.Label {
	if b.err != nil {
		return l
	}
	if _, ok := b.fg.Node(l); !ok {
		if err := b.fg.AddNode(Node{Label: l, Type: NodeBus}); err != nil {
			b.fail(l.Tag, l.String(), "%v", err)
		}
	}
	return l
}

func newEdge(from, to common.Label) Edge {
	return Edge{
		From:             from,
		To:               to,
		Capacity:         Unbounded(),
		SummedMax:        Unbounded(),
		ConversionFactor: 1,
	}
}

func (b *builder) addCommoditySources() {
	for _, c := range b.in.CommoditySources {
		key := c.Region + "/" + c.Fuel
		if !c.AnnualLimit.IsInf() && float64(c.AnnualLimit) <= 0 {
			logger.Debug("skipping commodity source with zero annual limit", "source", key)
			continue
		}
		src := common.Label{Cat: CatSource, Tag: TagCommodity, Subtag: c.Fuel, Region: c.Region}
		b.node(scenario.TableCommoditySources, key, Node{Label: src, Type: NodeSource})

		e := newEdge(src, b.bus(CommodityBus(c.Fuel, c.Region)))
		e.VariableCosts = c.Costs + c.Emission*b.co2
		e.Emission = c.Emission
		if !c.AnnualLimit.IsInf() {
			// The cumulative bound expresses the annual limit: capacity
			// times summed max equals the allowed energy.
			e.Capacity = Bound(c.AnnualLimit)
			e.SummedMax = 1
		}
		b.edge(scenario.TableCommoditySources, key, e)
	}
}

func (b *builder) addElectricityDemand() {
	for _, d := range b.in.ElectricityDemand {
		key := d.Region + "/" + d.Name
		sink := common.Label{Cat: CatDemand, Tag: TagElectricity, Subtag: d.Name, Region: d.Region}
		b.node(scenario.TableElectricityDemandSeries, key, Node{Label: sink, Type: NodeSink})

		e := newEdge(b.bus(ElectricityBus(d.Region)), sink)
		e.Capacity = 1
		e.Fix = d.Values
		e.DSM = b.dsm[[3]string{scenario.TableElectricityDemandSeries, d.Region, d.Name}]
		b.edge(scenario.TableElectricityDemandSeries, key, e)
	}
}

func (b *builder) addVolatilePlants() {
	series := map[[2]string][]float64{}
	for _, s := range b.in.VolatileSeries {
		series[[2]string{s.Region, s.Name}] = s.Values
	}
	for _, p := range b.in.VolatilePlants {
		key := p.Region + "/" + p.Name
		if p.Capacity == 0 {
			logger.Debug("skipping volatile plant without capacity", "plant", key)
			continue
		}
		src := common.Label{Cat: CatSource, Tag: "volatile", Subtag: p.Name, Region: p.Region}
		b.node(scenario.TableVolatilePlants, key, Node{Label: src, Type: NodeSource})

		e := newEdge(src, b.bus(ElectricityBus(p.Region)))
		e.Capacity = Bound(p.Capacity)
		e.Fix = series[[2]string{p.Region, p.Name}]
		b.edge(scenario.TableVolatilePlants, key, e)
	}
}

func (b *builder) addPowerPlants() {
	for _, p := range b.in.PowerPlants {
		key := p.Region + "/" + p.Name
		if p.Capacity == 0 {
			logger.Debug("skipping power plant without capacity", "plant", key)
			continue
		}
		conv := common.Label{Cat: CatConverter, Tag: "power plant", Subtag: p.Name, Region: p.Region}
		b.node(scenario.TablePowerPlants, key, Node{Label: conv, Type: NodeConverter})

		b.edge(scenario.TablePowerPlants, key, newEdge(b.bus(mediumBus(p.Fuel, p.SourceRegion)), conv))

		capacity := p.Capacity * (1 - p.DowntimeFactor)
		out := newEdge(conv, b.bus(ElectricityBus(p.Region)))
		out.Capacity = Bound(capacity)
		out.ConversionFactor = p.Efficiency
		out.VariableCosts = p.VariableCosts
		if !p.AnnualLimit.IsInf() {
			out.SummedMax = Bound(float64(p.AnnualLimit) / capacity)
		}
		b.edge(scenario.TablePowerPlants, key, out)
	}
}

// addHeat creates the decentralised heating systems and all heat demand
// sinks. A heating system declared for the aggregate region serves every
// region that references it, instantiated per region so each demand stays
// on its own bus.
func (b *builder) addHeat() {
	systems := map[[2]string]scenario.DecentralisedHeat{}
	for _, d := range b.in.DecentralisedHeat {
		systems[[2]string{d.Region, d.System}] = d
	}

	for _, d := range b.in.HeatDemand {
		key := d.Region + "/" + d.System
		if d.System == scenario.DistrictHeatingSystem {
			sink := common.Label{Cat: CatDemand, Tag: TagHeat, Subtag: SubtagDistrict, Region: d.Region}
			b.node(scenario.TableHeatDemandSeries, key, Node{Label: sink, Type: NodeSink})
			e := newEdge(b.bus(DistrictHeatBus(d.Region)), sink)
			e.Capacity = 1
			e.Fix = d.Values
			e.DSM = b.dsm[[3]string{scenario.TableHeatDemandSeries, d.Region, d.System}]
			b.edge(scenario.TableHeatDemandSeries, key, e)
			continue
		}

		sys, ok := systems[[2]string{d.Region, d.System}]
		if !ok {
			sys = systems[[2]string{scenario.SupraRegion, d.System}]
		}
		heatBus := b.bus(DecentralisedHeatBus(d.System, d.Region))

		// Electricity-fired systems (e.g. heat pumps) always draw from the
		// electricity bus of the demanding region; commodity-fired systems
		// draw from the declared source region.
		srcBus := mediumBus(sys.Source, sys.SourceRegion)
		if sys.Source == TagElectricity {
			srcBus = ElectricityBus(d.Region)
		}

		conv := common.Label{Cat: CatConverter, Tag: "heating system", Subtag: d.System, Region: d.Region}
		b.node(scenario.TableDecentralisedHeat, key, Node{Label: conv, Type: NodeConverter})
		b.edge(scenario.TableDecentralisedHeat, key, newEdge(b.bus(srcBus), conv))
		out := newEdge(conv, heatBus)
		out.ConversionFactor = sys.Efficiency
		b.edge(scenario.TableDecentralisedHeat, key, out)

		sink := common.Label{Cat: CatDemand, Tag: TagHeat, Subtag: d.System, Region: d.Region}
		b.node(scenario.TableHeatDemandSeries, key, Node{Label: sink, Type: NodeSink})
		e := newEdge(heatBus, sink)
		e.Capacity = 1
		e.Fix = d.Values
		e.DSM = b.dsm[[3]string{scenario.TableHeatDemandSeries, d.Region, d.System}]
		b.edge(scenario.TableHeatDemandSeries, key, e)
	}
}

// addChpHeatPlants creates the combined heat and power plants and plain
// heat plants feeding the district heating buses. A CHP is one converter
// with a fuel input and two weighted outputs, so the electricity-to-heat
// ratio is fixed by the two efficiencies.
func (b *builder) addChpHeatPlants() {
	for _, c := range b.in.CHPHeatPlants {
		key := c.Region + "/" + c.Name
		fuelBus := b.bus(mediumBus(c.Fuel, c.SourceRegion))
		heatBus := b.bus(DistrictHeatBus(c.Region))

		if c.CapacityHeatCHP > 0 {
			conv := common.Label{Cat: CatConverter, Tag: "chp", Subtag: c.Name, Region: c.Region}
			b.node(scenario.TableCHPHeatPlants, key, Node{Label: conv, Type: NodeConverter})

			// The input capacity is derived from the heat capacity, the
			// cumulative bound from the heat limit.
			in := newEdge(fuelBus, conv)
			in.Capacity = Bound(c.CapacityHeatCHP / c.EfficiencyHeatCHP)
			if !c.LimitHeatCHP.IsInf() {
				in.SummedMax = Bound(float64(c.LimitHeatCHP) / c.CapacityHeatCHP)
			}
			b.edge(scenario.TableCHPHeatPlants, key, in)

			elec := newEdge(conv, b.bus(ElectricityBus(c.Region)))
			elec.ConversionFactor = c.EfficiencyElecCHP
			b.edge(scenario.TableCHPHeatPlants, key, elec)

			heat := newEdge(conv, heatBus)
			heat.ConversionFactor = c.EfficiencyHeatCHP
			b.edge(scenario.TableCHPHeatPlants, key, heat)
		}

		if c.CapacityHP > 0 {
			conv := common.Label{Cat: CatConverter, Tag: "heat plant", Subtag: c.Name, Region: c.Region}
			b.node(scenario.TableCHPHeatPlants, key, Node{Label: conv, Type: NodeConverter})

			in := newEdge(fuelBus, conv)
			in.Capacity = Bound(c.CapacityHP / c.EfficiencyHP)
			if !c.LimitHP.IsInf() {
				in.SummedMax = Bound(float64(c.LimitHP) / c.CapacityHP)
			}
			b.edge(scenario.TableCHPHeatPlants, key, in)

			out := newEdge(conv, heatBus)
			out.ConversionFactor = c.EfficiencyHP
			b.edge(scenario.TableCHPHeatPlants, key, out)
		}
	}
}

func (b *builder) addStorages() {
	for _, s := range b.in.Storages {
		key := s.Region + "/" + s.Name
		bus := b.bus(mediumBus(s.Medium, s.Region))
		node := common.Label{Cat: CatStorage, Tag: s.Medium, Subtag: s.Name, Region: s.Region}
		b.node(scenario.TableStorages, key, Node{
			Label: node,
			Type:  NodeStorage,
			Storage: &StorageParams{
				EnergyContent: s.EnergyContent,
				LossRate:      s.LossRate,
				Inflow:        s.Inflow,
			},
		})

		charge := newEdge(bus, node)
		charge.Capacity = Bound(s.ChargeCapacity)
		charge.ConversionFactor = s.ChargeEfficiency
		b.edge(scenario.TableStorages, key, charge)

		discharge := newEdge(node, bus)
		discharge.Capacity = Bound(s.DischargeCapacity)
		discharge.ConversionFactor = s.DischargeEfficiency
		b.edge(scenario.TableStorages, key, discharge)
	}
}

// addMobility creates one mobility bus per demand with its converter and
// sink. Converters declared for the aggregate region are instantiated per
// demanding region.
func (b *builder) addMobility() {
	converters := map[[2]string]scenario.Mobility{}
	for _, m := range b.in.Mobility {
		converters[[2]string{m.Region, m.Name}] = m
	}

	for _, d := range b.in.MobilityDemand {
		key := d.Region + "/" + d.Name
		m, ok := converters[[2]string{d.Region, d.Name}]
		if !ok {
			m = converters[[2]string{scenario.SupraRegion, d.Name}]
		}
		bus := b.bus(MobilityBus(d.Name, d.Region))

		srcBus := mediumBus(m.Source, m.SourceRegion)
		if m.Source == TagElectricity {
			srcBus = ElectricityBus(d.Region)
		}

		conv := common.Label{Cat: CatConverter, Tag: TagMobility, Subtag: d.Name, Region: d.Region}
		b.node(scenario.TableMobility, key, Node{Label: conv, Type: NodeConverter})
		b.edge(scenario.TableMobility, key, newEdge(b.bus(srcBus), conv))
		out := newEdge(conv, bus)
		out.ConversionFactor = m.Efficiency
		b.edge(scenario.TableMobility, key, out)

		sink := common.Label{Cat: CatDemand, Tag: TagMobility, Subtag: d.Name, Region: d.Region}
		b.node(scenario.TableMobilityDemandSeries, key, Node{Label: sink, Type: NodeSink})
		e := newEdge(bus, sink)
		e.Capacity = 1
		e.Fix = d.Values
		e.DSM = b.dsm[[3]string{scenario.TableMobilityDemandSeries, d.Region, d.Name}]
		b.edge(scenario.TableMobilityDemandSeries, key, e)
	}
}

func (b *builder) addOtherDemand() {
	for _, d := range b.in.OtherDemand {
		key := d.Region + "/" + d.Medium + "/" + d.Name
		sink := common.Label{Cat: CatDemand, Tag: d.Medium, Subtag: d.Name, Region: d.Region}
		b.node(scenario.TableOtherDemandSeries, key, Node{Label: sink, Type: NodeSink})

		e := newEdge(b.bus(mediumBus(d.Medium, d.Region)), sink)
		e.Capacity = 1
		e.Fix = d.Values
		e.DSM = b.dsm[[3]string{scenario.TableOtherDemandSeries, d.Region, d.Name}]
		b.edge(scenario.TableOtherDemandSeries, key, e)
	}
}

func (b *builder) addOtherConverters() {
	for _, c := range b.in.OtherConverters {
		key := c.Region + "/" + c.Name
		if c.Capacity == 0 {
			logger.Debug("skipping converter without capacity", "converter", key)
			continue
		}
		conv := common.Label{Cat: CatConverter, Tag: "other", Subtag: c.Name, Region: c.Region}
		b.node(scenario.TableOtherConverters, key, Node{Label: conv, Type: NodeConverter})

		b.edge(scenario.TableOtherConverters, key, newEdge(b.bus(mediumBus(c.Source, c.SourceRegion)), conv))

		capacity := c.Capacity * (1 - c.DowntimeFactor)
		out := newEdge(conv, b.bus(mediumBus(c.Target, c.TargetRegion)))
		out.Capacity = Bound(capacity)
		out.ConversionFactor = c.Efficiency
		out.VariableCosts = c.VariableCosts
		if !c.AnnualLimit.IsInf() {
			out.SummedMax = Bound(float64(c.AnnualLimit) / capacity)
		}
		b.edge(scenario.TableOtherConverters, key, out)
	}
}

// addPowerLines creates one directed line node per declared direction.
// A declaration covers exactly the direction its name spells out; the
// opposite direction needs its own row. Repeated declarations of the same
// direction add up their capacities.
func (b *builder) addPowerLines() {
	type lineParams struct {
		capacity   float64
		efficiency float64
	}
	merged := map[[2]string]*lineParams{}
	var order [][2]string

	for _, p := range b.in.PowerLines {
		from, to, err := p.Regions()
		if err != nil {
			b.fail(scenario.TablePowerLines, p.Name, "%v", err)
			return
		}
		dir := [2]string{from, to}
		if l, ok := merged[dir]; ok {
			if l.efficiency != p.Efficiency {
				b.fail(scenario.TablePowerLines, p.Name,
					"conflicting efficiencies %v and %v for the same direction", l.efficiency, p.Efficiency)
				return
			}
			l.capacity += float64(p.Capacity)
			continue
		}
		merged[dir] = &lineParams{capacity: float64(p.Capacity), efficiency: p.Efficiency}
		order = append(order, dir)
	}

	for _, dir := range order {
		l := merged[dir]
		key := dir[0] + "-" + dir[1]
		node := common.Label{Cat: CatLine, Tag: TagElectricity, Subtag: dir[0], Region: dir[1]}
		b.node(scenario.TablePowerLines, key, Node{Label: node, Type: NodeConverter})

		in := newEdge(b.bus(ElectricityBus(dir[0])), node)
		b.edge(scenario.TablePowerLines, key, in)

		// The capacity bounds the power delivered into the target region;
		// the losses are drawn on top of it on the sending side.
		out := newEdge(node, b.bus(ElectricityBus(dir[1])))
		out.Capacity = Bound(l.capacity)
		out.ConversionFactor = l.efficiency
		b.edge(scenario.TablePowerLines, key, out)
	}
}

// addShortageExcess backs every bus with a shortage source and an excess
// sink so the optimization stays feasible; non-zero shortage flows in the
// results point at broken input. The balancing labels carry the tag and
// subtag of their bus, so each commodity, heat and mobility bus gets its
// own pair.
func (b *builder) addShortageExcess() {
	buses := make([]common.Label, 0)
	for _, l := range b.fg.nodeSq {
		if l.Cat == CatBus {
			buses = append(buses, l)
		}
	}
	for _, bus := range buses {
		shortage := common.Label{Cat: CatShortage, Tag: bus.Tag, Subtag: bus.Subtag, Region: bus.Region}
		b.node("balance", bus.String(), Node{Label: shortage, Type: NodeSource})
		e := newEdge(shortage, bus)
		e.VariableCosts = ShortageCosts
		b.edge("balance", bus.String(), e)

		excess := common.Label{Cat: CatExcess, Tag: bus.Tag, Subtag: bus.Subtag, Region: bus.Region}
		b.node("balance", bus.String(), Node{Label: excess, Type: NodeSink})
		b.edge("balance", bus.String(), newEdge(bus, excess))
	}
}
