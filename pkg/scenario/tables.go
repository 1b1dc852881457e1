package scenario

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Table names as they appear in the input mapping. The names match the
// sheet/file names of the documented exchange format.
const (
	TableGeneral                 = "general"
	TableInfo                    = "info"
	TableCommoditySources        = "commodity sources"
	TableElectricityDemandSeries = "electricity demand series"
	TableHeatDemandSeries        = "heat demand series"
	TableMobilityDemandSeries    = "mobility demand series"
	TableOtherDemandSeries       = "other demand series"
	TablePowerPlants             = "power plants"
	TableVolatilePlants          = "volatile plants"
	TableVolatileSeries          = "volatile series"
	TableStorages                = "storages"
	TablePowerLines              = "power lines"
	TableDecentralisedHeat       = "decentralised heat"
	TableCHPHeatPlants           = "heat-chp plants"
	TableMobility                = "mobility"
	TableOtherConverters         = "other converters"
	TableDemandResponse          = "demand response"
	TableDataSources             = "data sources"

	// TableElectricityStorages is a deprecated alias for TableStorages with
	// the storage medium fixed to electricity. It cannot be combined with
	// the storages table.
	TableElectricityStorages = "electricity storages"
)

// SupraRegion is the aggregate pseudo-region representing the whole modelled
// area. It is valid wherever a commodity or technology is not regionally
// differentiated, but never for regional-only concepts such as district
// heating demand.
const SupraRegion = "DE"

// ElectricitySource is the reserved source name that attaches a component to
// the electricity bus of its source region instead of a commodity bus.
const ElectricitySource = "electricity"

// DistrictHeatingSystem is the heat demand system name that marks grid-bound
// district heating instead of a decentralised heating system.
const DistrictHeatingSystem = "district heating"

// Limit is a non-negative bound that may be infinite. Omitted limit columns
// default to Inf, meaning "unbounded". Limits serialize as a number or the
// string "inf" so dumps survive a JSON round trip.
type Limit float64

// Inf returns the unbounded limit.
func Inf() Limit { return Limit(math.Inf(1)) }

// IsInf reports whether the limit is unbounded.
func (l Limit) IsInf() bool { return math.IsInf(float64(l), 1) }

func (l Limit) MarshalJSON() ([]byte, error) {
	if l.IsInf() {
		return []byte(`"inf"`), nil
	}
	return json.Marshal(float64(l))
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "inf" {
		*l = Inf()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*l = Limit(f)
	return nil
}

// General holds the scenario-wide settings.
type General struct {
	Year      int     `json:"year" validate:"required"`
	TimeSteps int     `json:"time steps" validate:"required,gt=0"`
	CO2Price  float64 `json:"co2 price" validate:"gte=0"`
	Name      string  `json:"name" validate:"required"`
}

// CommoditySource describes the supply of one fuel in one region (or the
// supra-regional aggregate). The (region, fuel) pair is the unique key.
type CommoditySource struct {
	Region      string  `json:"region" validate:"required"`
	Fuel        string  `json:"fuel" validate:"required"`
	Costs       float64 `json:"costs"`
	Emission    float64 `json:"emission" validate:"gte=0"`
	AnnualLimit Limit   `json:"annual limit" validate:"gte=0"`
}

// DemandSeries is one electricity demand time series of a region.
type DemandSeries struct {
	Region string    `json:"region" validate:"required"`
	Name   string    `json:"name" validate:"required"`
	Values []float64 `json:"values" validate:"required"`
}

// HeatDemandSeries is one heat demand time series of a region. The system
// name either names a decentralised heating system (matched against the
// decentralised heat table) or equals DistrictHeatingSystem for grid-bound
// heat.
type HeatDemandSeries struct {
	Region string    `json:"region" validate:"required"`
	System string    `json:"system" validate:"required"`
	Values []float64 `json:"values" validate:"required"`
}

// MobilityDemandSeries is one mobility demand time series of a region.
type MobilityDemandSeries struct {
	Region string    `json:"region" validate:"required"`
	Name   string    `json:"name" validate:"required"`
	Values []float64 `json:"values" validate:"required"`
}

// OtherDemandSeries is a demand time series attached directly to a commodity
// bus, keyed by (region, medium, name).
type OtherDemandSeries struct {
	Region string    `json:"region" validate:"required"`
	Medium string    `json:"medium" validate:"required"`
	Name   string    `json:"name" validate:"required"`
	Values []float64 `json:"values" validate:"required"`
}

// PowerPlant is a dispatchable converter from a fuel bus to the electricity
// bus of its own region.
type PowerPlant struct {
	Region         string  `json:"region" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Fuel           string  `json:"fuel" validate:"required"`
	SourceRegion   string  `json:"source region" validate:"required"`
	Capacity       float64 `json:"capacity" validate:"gte=0"`
	Efficiency     float64 `json:"efficiency" validate:"gt=0,lte=1"`
	AnnualLimit    Limit   `json:"annual limit" validate:"gte=0"`
	VariableCosts  float64 `json:"variable costs"`
	DowntimeFactor float64 `json:"downtime factor" validate:"gte=0,lt=1"`
}

// VolatilePlant is a feed-in plant whose output follows a normalized series.
type VolatilePlant struct {
	Region   string  `json:"region" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Capacity float64 `json:"capacity" validate:"gte=0"`
}

// VolatileSeries is the normalized feed-in series of a volatile plant.
// Values are passed through as-is; clamping out-of-range values is left to
// the solve layer.
type VolatileSeries struct {
	Region string    `json:"region" validate:"required"`
	Name   string    `json:"name" validate:"required"`
	Values []float64 `json:"values" validate:"required"`
}

// Storage is an energy storage attached to the bus of its declared medium:
// the electricity bus of its region, or the commodity bus of (medium,
// region).
type Storage struct {
	Region              string  `json:"region" validate:"required"`
	Name                string  `json:"name" validate:"required"`
	Medium              string  `json:"medium" validate:"required"`
	EnergyContent       float64 `json:"energy content" validate:"gte=0"`
	ChargeCapacity      float64 `json:"charge capacity" validate:"gte=0"`
	DischargeCapacity   float64 `json:"discharge capacity" validate:"gte=0"`
	ChargeEfficiency    float64 `json:"charge efficiency" validate:"gt=0,lte=1"`
	DischargeEfficiency float64 `json:"discharge efficiency" validate:"gt=0,lte=1"`
	LossRate            float64 `json:"loss rate" validate:"gte=0,lt=1"`
	Inflow              float64 `json:"inflow" validate:"gte=0"`
}

// PowerLine connects the electricity buses of two regions in one direction.
// The name encodes the direction as "REGIONA-REGIONB". Declaring the
// opposite direction is a separate row; declaring the same direction twice
// sums the capacities.
type PowerLine struct {
	Name       string  `json:"name" validate:"required"`
	Capacity   Limit   `json:"capacity" validate:"gte=0"`
	Efficiency float64 `json:"efficiency" validate:"gt=0,lte=1"`
}

// Regions splits the line name into its from- and to-region.
func (p PowerLine) Regions() (string, string, error) {
	parts := strings.Split(p.Name, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("power line name %q is not of the form REGIONA-REGIONB", p.Name)
	}
	return parts[0], parts[1], nil
}

// DecentralisedHeat describes one decentralised heating system of a region,
// keyed by (region, system). The source names the fuel (or electricity) the
// system runs on.
type DecentralisedHeat struct {
	Region       string  `json:"region" validate:"required"`
	System       string  `json:"system" validate:"required"`
	Source       string  `json:"source" validate:"required"`
	SourceRegion string  `json:"source region" validate:"required"`
	Efficiency   float64 `json:"efficiency" validate:"gt=0,lte=1"`
}

// CHPPlant is a combined heat and power plant and/or a plain heat plant for
// grid-bound heat. A row describes the CHP part (capacity/limit/two
// efficiencies) and the heat plant part (capacity/limit/efficiency); either
// part may have zero capacity.
type CHPPlant struct {
	Region            string  `json:"region" validate:"required"`
	Name              string  `json:"name" validate:"required"`
	Fuel              string  `json:"fuel" validate:"required"`
	SourceRegion      string  `json:"source region" validate:"required"`
	CapacityHeatCHP   float64 `json:"capacity heat chp" validate:"gte=0"`
	LimitHeatCHP      Limit   `json:"limit heat chp" validate:"gte=0"`
	EfficiencyHeatCHP float64 `json:"efficiency heat chp" validate:"gt=0,lte=1"`
	EfficiencyElecCHP float64 `json:"efficiency elec chp" validate:"gt=0,lte=1"`
	CapacityHP        float64 `json:"capacity hp" validate:"gte=0"`
	LimitHP           Limit   `json:"limit hp" validate:"gte=0"`
	EfficiencyHP      float64 `json:"efficiency hp" validate:"gt=0,lte=1"`
}

// Mobility describes the fuel converter feeding one mobility demand, keyed
// by (region, name).
type Mobility struct {
	Region       string  `json:"region" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Source       string  `json:"source" validate:"required"`
	SourceRegion string  `json:"source region" validate:"required"`
	Efficiency   float64 `json:"efficiency" validate:"gt=0,lte=1"`
}

// OtherConverter is a generic converter between two buses, e.g. an
// electrolyser from an electricity bus to a hydrogen commodity bus.
type OtherConverter struct {
	Region         string  `json:"region" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Source         string  `json:"source" validate:"required"`
	SourceRegion   string  `json:"source region" validate:"required"`
	Target         string  `json:"target" validate:"required"`
	TargetRegion   string  `json:"target region" validate:"required"`
	Capacity       float64 `json:"capacity" validate:"gte=0"`
	Efficiency     float64 `json:"efficiency" validate:"gt=0,lte=1"`
	AnnualLimit    Limit   `json:"annual limit" validate:"gte=0"`
	VariableCosts  float64 `json:"variable costs"`
	DowntimeFactor float64 `json:"downtime factor" validate:"gte=0,lt=1"`
}

// DemandResponse marks one demand series as shiftable. The key (table,
// region, name) must match an existing demand series row.
type DemandResponse struct {
	Table         string  `json:"table" validate:"required"`
	Region        string  `json:"region" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	CapacityUp    float64 `json:"capacity up" validate:"gte=0"`
	CapacityDown  float64 `json:"capacity down" validate:"gte=0"`
	Delay         int     `json:"delay" validate:"gte=0"`
	ShiftInterval int     `json:"shift interval" validate:"gte=0"`
	CostUp        float64 `json:"cost up" validate:"gte=0"`
	CostDown      float64 `json:"cost down" validate:"gte=0"`
	Approach      string  `json:"approach" validate:"required"`
}

// DataSource documents the provenance of input data. It is carried through
// dumps but not interpreted.
type DataSource struct {
	Name   string `json:"name" validate:"required"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// InputTables is the typed representation of a full scenario input set.
// Tables are replaced as a whole, never edited row by row, so referential
// checks stay re-runnable on every load.
type InputTables struct {
	General           General                `json:"general"`
	Info              map[string]string      `json:"info"`
	CommoditySources  []CommoditySource      `json:"commodity sources"`
	ElectricityDemand []DemandSeries         `json:"electricity demand series"`
	HeatDemand        []HeatDemandSeries     `json:"heat demand series"`
	MobilityDemand    []MobilityDemandSeries `json:"mobility demand series"`
	OtherDemand       []OtherDemandSeries    `json:"other demand series"`
	PowerPlants       []PowerPlant           `json:"power plants"`
	VolatilePlants    []VolatilePlant        `json:"volatile plants"`
	VolatileSeries    []VolatileSeries       `json:"volatile series"`
	Storages          []Storage              `json:"storages"`
	PowerLines        []PowerLine            `json:"power lines"`
	DecentralisedHeat []DecentralisedHeat    `json:"decentralised heat"`
	CHPHeatPlants     []CHPPlant             `json:"heat-chp plants"`
	Mobility          []Mobility             `json:"mobility"`
	OtherConverters   []OtherConverter       `json:"other converters"`
	DemandResponse    []DemandResponse       `json:"demand response"`
	DataSources       []DataSource           `json:"data sources"`
}
