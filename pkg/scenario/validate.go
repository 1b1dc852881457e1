package scenario

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator"
)

var regionPattern = regexp.MustCompile(`^DE[0-9]{2}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validRegion reports whether a region id is a concrete region (DE01..DE99)
// or the supra-regional aggregate.
func validRegion(region string) bool {
	return region == SupraRegion || regionPattern.MatchString(region)
}

func checkStruct(table, key string, row any) error {
	err := validate.Struct(row)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return schemaErrf(table, key, "", "%v", err)
	}
	fe := verrs[0]
	return schemaErrf(table, key, fe.Field(), "failed constraint %q on value %v", fe.Tag(), fe.Value())
}

func checkRegion(table, key, field, region string) error {
	if !validRegion(region) {
		return schemaErrf(table, key, field, "region %q matches neither DE[0-9]{2} nor %q", region, SupraRegion)
	}
	return nil
}

func checkSeriesLen(table, key string, values []float64, steps int) error {
	if len(values) != steps {
		return schemaErrf(table, key, "values", "series has %d steps, scenario has %d", len(values), steps)
	}
	return nil
}

// commodityIndex collects the (source region, fuel) pairs offered by the
// commodity sources table. The reserved electricity source is always
// resolvable and bypasses the index.
type commodityIndex map[[2]string]bool

func (c commodityIndex) check(table, key, field, region, fuel string) error {
	if fuel == ElectricitySource {
		return nil
	}
	if c[[2]string{region, fuel}] {
		return nil
	}
	return schemaErrf(table, key, field, "no commodity source for fuel %q in region %q", fuel, region)
}

// Validate checks the typed input model: per-row constraints, region ids,
// cross-table references and series lengths. It returns the first violation
// as a *SchemaError.
func Validate(in *InputTables) error {
	if err := checkStruct(TableGeneral, "", in.General); err != nil {
		return err
	}
	steps := in.General.TimeSteps

	if len(in.CommoditySources) == 0 {
		return schemaErrf(TableCommoditySources, "", "", "table is missing or empty")
	}
	if len(in.ElectricityDemand) == 0 {
		return schemaErrf(TableElectricityDemandSeries, "", "", "table is missing or empty")
	}

	commodities := commodityIndex{}
	for _, c := range in.CommoditySources {
		key := c.Region + "/" + c.Fuel
		if err := checkStruct(TableCommoditySources, key, c); err != nil {
			return err
		}
		if err := checkRegion(TableCommoditySources, key, "region", c.Region); err != nil {
			return err
		}
		if c.Fuel == ElectricitySource {
			return schemaErrf(TableCommoditySources, key, "fuel", "%q is reserved for the electricity buses", ElectricitySource)
		}
		idx := [2]string{c.Region, c.Fuel}
		if commodities[idx] {
			return schemaErrf(TableCommoditySources, key, "", "duplicate commodity source")
		}
		commodities[idx] = true
	}

	demandKeys := map[[3]string]bool{}
	for _, d := range in.ElectricityDemand {
		key := d.Region + "/" + d.Name
		if err := checkStruct(TableElectricityDemandSeries, key, d); err != nil {
			return err
		}
		if err := checkRegion(TableElectricityDemandSeries, key, "region", d.Region); err != nil {
			return err
		}
		if err := checkSeriesLen(TableElectricityDemandSeries, key, d.Values, steps); err != nil {
			return err
		}
		demandKeys[[3]string{TableElectricityDemandSeries, d.Region, d.Name}] = true
	}

	heatSystems := map[[2]string]bool{}
	for _, d := range in.DecentralisedHeat {
		key := d.Region + "/" + d.System
		if err := checkStruct(TableDecentralisedHeat, key, d); err != nil {
			return err
		}
		if err := checkRegion(TableDecentralisedHeat, key, "region", d.Region); err != nil {
			return err
		}
		if d.System == DistrictHeatingSystem {
			return schemaErrf(TableDecentralisedHeat, key, "system", "%q is reserved for grid-bound heat", DistrictHeatingSystem)
		}
		if err := commodities.check(TableDecentralisedHeat, key, "source", d.SourceRegion, d.Source); err != nil {
			return err
		}
		idx := [2]string{d.Region, d.System}
		if heatSystems[idx] {
			return schemaErrf(TableDecentralisedHeat, key, "", "duplicate heating system")
		}
		heatSystems[idx] = true
	}

	for _, d := range in.HeatDemand {
		key := d.Region + "/" + d.System
		if err := checkStruct(TableHeatDemandSeries, key, d); err != nil {
			return err
		}
		if err := checkRegion(TableHeatDemandSeries, key, "region", d.Region); err != nil {
			return err
		}
		if err := checkSeriesLen(TableHeatDemandSeries, key, d.Values, steps); err != nil {
			return err
		}
		if d.System == DistrictHeatingSystem {
			// District heating grids are physical, regional installations.
			if d.Region == SupraRegion {
				return schemaErrf(TableHeatDemandSeries, key, "region",
					"district heating demand cannot use the aggregate region %q", SupraRegion)
			}
		} else if !heatSystems[[2]string{d.Region, d.System}] && !heatSystems[[2]string{SupraRegion, d.System}] {
			return schemaErrf(TableHeatDemandSeries, key, "system",
				"no decentralised heating system %q in region %q", d.System, d.Region)
		}
		demandKeys[[3]string{TableHeatDemandSeries, d.Region, d.System}] = true
	}

	mobilityConverters := map[[2]string]bool{}
	for _, m := range in.Mobility {
		key := m.Region + "/" + m.Name
		if err := checkStruct(TableMobility, key, m); err != nil {
			return err
		}
		if err := checkRegion(TableMobility, key, "region", m.Region); err != nil {
			return err
		}
		if err := commodities.check(TableMobility, key, "source", m.SourceRegion, m.Source); err != nil {
			return err
		}
		mobilityConverters[[2]string{m.Region, m.Name}] = true
	}

	for _, d := range in.MobilityDemand {
		key := d.Region + "/" + d.Name
		if err := checkStruct(TableMobilityDemandSeries, key, d); err != nil {
			return err
		}
		if err := checkRegion(TableMobilityDemandSeries, key, "region", d.Region); err != nil {
			return err
		}
		if err := checkSeriesLen(TableMobilityDemandSeries, key, d.Values, steps); err != nil {
			return err
		}
		if !mobilityConverters[[2]string{d.Region, d.Name}] && !mobilityConverters[[2]string{SupraRegion, d.Name}] {
			return schemaErrf(TableMobilityDemandSeries, key, "name",
				"no mobility converter %q in region %q", d.Name, d.Region)
		}
		demandKeys[[3]string{TableMobilityDemandSeries, d.Region, d.Name}] = true
	}

	for _, d := range in.OtherDemand {
		key := d.Region + "/" + d.Medium + "/" + d.Name
		if err := checkStruct(TableOtherDemandSeries, key, d); err != nil {
			return err
		}
		if err := checkRegion(TableOtherDemandSeries, key, "region", d.Region); err != nil {
			return err
		}
		if err := checkSeriesLen(TableOtherDemandSeries, key, d.Values, steps); err != nil {
			return err
		}
		if err := commodities.check(TableOtherDemandSeries, key, "medium", d.Region, d.Medium); err != nil {
			return err
		}
		demandKeys[[3]string{TableOtherDemandSeries, d.Region, d.Name}] = true
	}

	plantKeys := map[[2]string]bool{}
	for _, p := range in.PowerPlants {
		key := p.Region + "/" + p.Name
		if err := checkStruct(TablePowerPlants, key, p); err != nil {
			return err
		}
		if err := checkRegion(TablePowerPlants, key, "region", p.Region); err != nil {
			return err
		}
		if err := checkRegion(TablePowerPlants, key, "source region", p.SourceRegion); err != nil {
			return err
		}
		if err := commodities.check(TablePowerPlants, key, "fuel", p.SourceRegion, p.Fuel); err != nil {
			return err
		}
		idx := [2]string{p.Region, p.Name}
		if plantKeys[idx] {
			return schemaErrf(TablePowerPlants, key, "", "duplicate power plant")
		}
		plantKeys[idx] = true
	}

	volatilePlants := map[[2]string]bool{}
	for _, p := range in.VolatilePlants {
		key := p.Region + "/" + p.Name
		if err := checkStruct(TableVolatilePlants, key, p); err != nil {
			return err
		}
		if err := checkRegion(TableVolatilePlants, key, "region", p.Region); err != nil {
			return err
		}
		idx := [2]string{p.Region, p.Name}
		if volatilePlants[idx] {
			return schemaErrf(TableVolatilePlants, key, "", "duplicate volatile plant")
		}
		volatilePlants[idx] = true
	}
	volatileSeries := map[[2]string]bool{}
	for _, s := range in.VolatileSeries {
		key := s.Region + "/" + s.Name
		if err := checkStruct(TableVolatileSeries, key, s); err != nil {
			return err
		}
		if err := checkSeriesLen(TableVolatileSeries, key, s.Values, steps); err != nil {
			return err
		}
		if !volatilePlants[[2]string{s.Region, s.Name}] {
			return schemaErrf(TableVolatileSeries, key, "", "no volatile plant for this series")
		}
		volatileSeries[[2]string{s.Region, s.Name}] = true
	}
	for _, p := range in.VolatilePlants {
		if !volatileSeries[[2]string{p.Region, p.Name}] {
			return schemaErrf(TableVolatilePlants, p.Region+"/"+p.Name, "", "no feed-in series for this plant")
		}
	}

	storageKeys := map[[2]string]bool{}
	for _, s := range in.Storages {
		key := s.Region + "/" + s.Name
		if err := checkStruct(TableStorages, key, s); err != nil {
			return err
		}
		if err := checkRegion(TableStorages, key, "region", s.Region); err != nil {
			return err
		}
		if err := commodities.check(TableStorages, key, "medium", s.Region, s.Medium); err != nil {
			return err
		}
		idx := [2]string{s.Region, s.Name}
		if storageKeys[idx] {
			return schemaErrf(TableStorages, key, "", "duplicate storage")
		}
		storageKeys[idx] = true
	}

	for _, p := range in.PowerLines {
		if err := checkStruct(TablePowerLines, p.Name, p); err != nil {
			return err
		}
		from, to, err := p.Regions()
		if err != nil {
			return schemaErrf(TablePowerLines, p.Name, "name", "%v", err)
		}
		if from == to {
			return schemaErrf(TablePowerLines, p.Name, "name", "line connects region %q to itself", from)
		}
		for _, region := range []string{from, to} {
			if !regionPattern.MatchString(region) {
				return schemaErrf(TablePowerLines, p.Name, "name",
					"region %q is not a concrete region (DE[0-9]{2})", region)
			}
		}
	}

	for _, c := range in.CHPHeatPlants {
		key := c.Region + "/" + c.Name
		if err := checkStruct(TableCHPHeatPlants, key, c); err != nil {
			return err
		}
		if err := checkRegion(TableCHPHeatPlants, key, "region", c.Region); err != nil {
			return err
		}
		if c.Region == SupraRegion {
			return schemaErrf(TableCHPHeatPlants, key, "region",
				"heat plants feed a district heating bus and cannot use the aggregate region %q", SupraRegion)
		}
		if err := commodities.check(TableCHPHeatPlants, key, "fuel", c.SourceRegion, c.Fuel); err != nil {
			return err
		}
		if c.CapacityHeatCHP == 0 && c.CapacityHP == 0 {
			return schemaErrf(TableCHPHeatPlants, key, "", "neither chp nor heat plant part has capacity")
		}
	}

	for _, c := range in.OtherConverters {
		key := c.Region + "/" + c.Name
		if err := checkStruct(TableOtherConverters, key, c); err != nil {
			return err
		}
		if err := checkRegion(TableOtherConverters, key, "region", c.Region); err != nil {
			return err
		}
		if err := commodities.check(TableOtherConverters, key, "source", c.SourceRegion, c.Source); err != nil {
			return err
		}
		if err := commodities.check(TableOtherConverters, key, "target", c.TargetRegion, c.Target); err != nil {
			return err
		}
	}

	for _, d := range in.DemandResponse {
		key := d.Table + "/" + d.Region + "/" + d.Name
		if err := checkStruct(TableDemandResponse, key, d); err != nil {
			return err
		}
		if !demandKeys[[3]string{d.Table, d.Region, d.Name}] {
			return schemaErrf(TableDemandResponse, key, "", "no demand series %q/%q in table %q", d.Region, d.Name, d.Table)
		}
	}

	for _, d := range in.DataSources {
		if err := checkStruct(TableDataSources, d.Name, d); err != nil {
			return err
		}
	}

	return nil
}

// Deprecations lists non-fatal findings about the input, currently only the
// use of the "electricity storages" alias. Callers log them; the model is
// unaffected.
func Deprecations(raw RawTables) []string {
	var notes []string
	if _, ok := raw[TableElectricityStorages]; ok {
		notes = append(notes, fmt.Sprintf("table %q is deprecated, use %q with medium=%q",
			TableElectricityStorages, TableStorages, ElectricitySource))
	}
	return notes
}
