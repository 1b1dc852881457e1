package postprocessing

import (
	"math"

	"github.com/regioflex/regioflex/pkg/common"
	"github.com/regioflex/regioflex/pkg/graph"
)

// DefaultHeatReferenceEfficiency is the efficiency of the reference heat
// plant used to credit the heat output when deriving the marginal costs of
// a combined heat and power plant.
const DefaultHeatReferenceEfficiency = 0.9

// producer is one dispatchable supplier of an electricity bus with its
// derived marginal costs and specific emission per unit of electricity.
type producer struct {
	node     common.Label
	out      *graph.Edge
	costs    float64
	emission float64
}

// BusKeyValues are per-time-step indicators of one electricity bus derived
// from the supplying plants: the marginal costs of the most expensive
// running plant and the specific emission range of the running fleet.
type BusKeyValues struct {
	Bus           common.Label `json:"bus"`
	MarginalCosts []float64    `json:"marginal_costs"`
	EmissionMax   []float64    `json:"emission_max"`
	EmissionMin   []float64    `json:"emission_min"`
	EmissionAvg   []float64    `json:"emission_avg"`
}

// KeyValues derives the per-step indicators of every electricity bus. Lines,
// storages and shortage sources do not count as producers: they pass energy
// through instead of generating it, so their presence would blur the
// marginal plant.
func KeyValues(fg *graph.FlowGraph, res *common.Results) []BusKeyValues {
	var out []BusKeyValues
	for _, n := range fg.Nodes() {
		if n.Type != graph.NodeBus || n.Label.Tag != graph.TagElectricity {
			continue
		}
		out = append(out, busKeyValues(fg, res, n.Label))
	}
	return out
}

func busKeyValues(fg *graph.FlowGraph, res *common.Results, bus common.Label) BusKeyValues {
	var producers []producer
	for _, e := range fg.InEdges(bus) {
		from, _ := fg.Node(e.From)
		switch from.Label.Cat {
		case graph.CatLine, graph.CatStorage, graph.CatShortage:
			continue
		}
		costs, emission := supplyCosts(fg, from, e)
		producers = append(producers, producer{node: from.Label, out: e, costs: costs, emission: emission})
	}

	kv := BusKeyValues{
		Bus:           bus,
		MarginalCosts: make([]float64, fg.TimeSteps),
		EmissionMax:   make([]float64, fg.TimeSteps),
		EmissionMin:   make([]float64, fg.TimeSteps),
		EmissionAvg:   make([]float64, fg.TimeSteps),
	}
	for t := 0; t < fg.TimeSteps; t++ {
		var flowSum, emissionSum float64
		minEmission := math.Inf(1)
		running := false
		for _, p := range producers {
			values := res.Flow(p.out.From, p.out.To)
			if t >= len(values) || values[t] <= 0 {
				continue
			}
			running = true
			flowSum += values[t]
			emissionSum += values[t] * p.emission
			kv.MarginalCosts[t] = math.Max(kv.MarginalCosts[t], p.costs)
			kv.EmissionMax[t] = math.Max(kv.EmissionMax[t], p.emission)
			minEmission = math.Min(minEmission, p.emission)
		}
		if running {
			kv.EmissionMin[t] = minEmission
			kv.EmissionAvg[t] = emissionSum / flowSum
		}
	}
	return kv
}

// supplyCosts derives marginal costs and specific emission per unit of
// electricity for one producer from its fuel supply.
//
// For a plain converter the fuel costs scale with the inverse efficiency.
// A converter with an additional heat output gets a credit for the heat a
// reference heat plant would otherwise produce:
//
//	mc = fuel_costs * (1/eta_e - eta_th/(eta_e*eta_ref)) + variable_costs
func supplyCosts(fg *graph.FlowGraph, n *graph.Node, out *graph.Edge) (costs, emission float64) {
	if n.Type != graph.NodeConverter {
		// Sources (volatile feed-in) carry their costs on the edge itself.
		return out.VariableCosts, out.Emission
	}

	fuelCosts, fuelEmission := 0.0, 0.0
	for _, in := range fg.InEdges(n.Label) {
		if supply := busSupply(fg, in.From); supply != nil {
			fuelCosts = supply.VariableCosts
			fuelEmission = supply.Emission
		}
		break
	}

	etaElec := out.ConversionFactor
	if etaElec == 0 {
		return out.VariableCosts, 0
	}

	etaHeat := 0.0
	for _, o := range fg.OutEdges(n.Label) {
		if o != out && o.To.Tag == graph.TagHeat {
			etaHeat = o.ConversionFactor
		}
	}

	costs = fuelCosts*(1/etaElec-etaHeat/(etaElec*DefaultHeatReferenceEfficiency)) + out.VariableCosts
	emission = fuelEmission * (1/etaElec - etaHeat/(etaElec*DefaultHeatReferenceEfficiency))
	return costs, emission
}

// busSupply finds the commodity source edge feeding a bus, if any.
func busSupply(fg *graph.FlowGraph, bus common.Label) *graph.Edge {
	if bus.Cat != graph.CatBus || bus.Tag != graph.TagCommodity {
		return nil
	}
	for _, e := range fg.InEdges(bus) {
		if e.From.Cat == graph.CatSource {
			return e
		}
	}
	return nil
}
