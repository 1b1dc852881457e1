package postprocessing

import (
	"fmt"
)

// AllocationMethod selects how the fuel of a combined heat and power plant
// is split between its electricity and heat output.
type AllocationMethod string

const (
	// MethodIEA allocates by the share of each output in the total output.
	MethodIEA AllocationMethod = "iea"
	// MethodEfficiency allocates by the opposite output's share, crediting
	// the more efficient product.
	MethodEfficiency AllocationMethod = "efficiency"
	// MethodFinnish allocates by comparison with separate reference plants
	// (alternative generation method).
	MethodFinnish AllocationMethod = "finnish"
	// MethodExergy weighs the heat output with its Carnot factor.
	MethodExergy AllocationMethod = "exergy"
	// MethodElectricity books all fuel on electricity.
	MethodElectricity AllocationMethod = "electricity"
	// MethodHeat books all fuel on heat.
	MethodHeat AllocationMethod = "heat"
)

// AllocationParams hold the plant and reference efficiencies the methods
// draw on. EtaElecRef and EtaHeatRef are only used by the finnish method,
// CarnotFactor only by the exergy method.
type AllocationParams struct {
	EtaElec      float64
	EtaHeat      float64
	EtaElecRef   float64
	EtaHeatRef   float64
	CarnotFactor float64
}

// ElectricityShare returns the fuel fraction allocated to electricity.
//
// With EtaElec 0.3 and EtaHeat 0.5 the iea method yields 0.375 and the
// efficiency method 0.625; the finnish method with references 0.5/0.9
// yields about 0.519 and the exergy method with Carnot factor 0.3 yields
// about 0.667.
func ElectricityShare(method AllocationMethod, p AllocationParams) (float64, error) {
	switch method {
	case MethodIEA:
		if p.EtaElec+p.EtaHeat == 0 {
			return 0, fmt.Errorf("iea method needs non-zero efficiencies")
		}
		return p.EtaElec / (p.EtaElec + p.EtaHeat), nil
	case MethodEfficiency:
		if p.EtaElec+p.EtaHeat == 0 {
			return 0, fmt.Errorf("efficiency method needs non-zero efficiencies")
		}
		return p.EtaHeat / (p.EtaElec + p.EtaHeat), nil
	case MethodFinnish:
		if p.EtaElecRef == 0 || p.EtaHeatRef == 0 {
			return 0, fmt.Errorf("finnish method needs reference efficiencies")
		}
		elec := p.EtaElec / p.EtaElecRef
		heat := p.EtaHeat / p.EtaHeatRef
		if elec+heat == 0 {
			return 0, fmt.Errorf("finnish method needs non-zero efficiencies")
		}
		return elec / (elec + heat), nil
	case MethodExergy:
		if p.CarnotFactor == 0 {
			return 0, fmt.Errorf("exergy method needs a carnot factor")
		}
		if p.EtaElec+p.CarnotFactor*p.EtaHeat == 0 {
			return 0, fmt.Errorf("exergy method needs non-zero efficiencies")
		}
		return p.EtaElec / (p.EtaElec + p.CarnotFactor*p.EtaHeat), nil
	case MethodElectricity:
		return 1, nil
	case MethodHeat:
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown allocation method %q", method)
	}
}

// AllocateFuel splits a fuel amount between electricity and heat according
// to the chosen method.
func AllocateFuel(method AllocationMethod, p AllocationParams, fuel float64) (elec, heat float64, err error) {
	share, err := ElectricityShare(method, p)
	if err != nil {
		return 0, 0, err
	}
	return fuel * share, fuel * (1 - share), nil
}
