package graph

import "github.com/regioflex/regioflex/pkg/common"

// Label categories. Every node of the flow graph falls into exactly one.
const (
	CatBus       = "bus"
	CatSource    = "source"
	CatDemand    = "demand"
	CatConverter = "converter"
	CatStorage   = "storage"
	CatLine      = "line"
	CatShortage  = "shortage"
	CatExcess    = "excess"
)

// Bus tags and shared subtags.
const (
	TagElectricity = "electricity"
	TagCommodity   = "commodity"
	TagHeat        = "heat"
	TagMobility    = "mobility"

	SubtagAll      = "all"
	SubtagDistrict = "district"
)

// ElectricityBus returns the label of the electricity bus of a region.
func ElectricityBus(region string) common.Label {
	return common.Label{Cat: CatBus, Tag: TagElectricity, Subtag: SubtagAll, Region: region}
}

// CommodityBus returns the label of the bus carrying one fuel in a region.
func CommodityBus(fuel, region string) common.Label {
	return common.Label{Cat: CatBus, Tag: TagCommodity, Subtag: fuel, Region: region}
}

// DistrictHeatBus returns the label of the district heating bus of a region.
func DistrictHeatBus(region string) common.Label {
	return common.Label{Cat: CatBus, Tag: TagHeat, Subtag: SubtagDistrict, Region: region}
}

// DecentralisedHeatBus returns the label of the bus of one decentralised
// heating system in a region.
func DecentralisedHeatBus(system, region string) common.Label {
	return common.Label{Cat: CatBus, Tag: TagHeat, Subtag: system, Region: region}
}

// MobilityBus returns the label of the bus of one mobility demand in a
// region.
func MobilityBus(name, region string) common.Label {
	return common.Label{Cat: CatBus, Tag: TagMobility, Subtag: name, Region: region}
}

// mediumBus resolves a source/medium name to a bus: the reserved
// electricity source maps to the electricity bus, everything else to a
// commodity bus.
func mediumBus(medium, region string) common.Label {
	if medium == TagElectricity {
		return ElectricityBus(region)
	}
	return CommodityBus(medium, region)
}
