package scenario

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawValue is one loosely typed cell of a raw input table: a number, a text
// or a time series. Readers (CSV, XLSX, JSON) produce RawValues without
// interpreting them; typing happens during decode.
type RawValue struct {
	Number *float64
	Text   string
	Series []float64
}

// Num wraps a numeric cell.
func Num(f float64) RawValue { return RawValue{Number: &f} }

// Str wraps a text cell.
func Str(s string) RawValue { return RawValue{Text: s} }

// Vals wraps a time series cell.
func Vals(v []float64) RawValue { return RawValue{Series: v} }

func (v RawValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Series != nil:
		return json.Marshal(v.Series)
	case v.Number != nil:
		if math.IsNaN(*v.Number) {
			return []byte(`null`), nil
		}
		if math.IsInf(*v.Number, 1) {
			return []byte(`"inf"`), nil
		}
		return json.Marshal(*v.Number)
	default:
		return json.Marshal(v.Text)
	}
}

func (v *RawValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		nan := math.NaN()
		v.Number = &nan
		return nil
	case strings.HasPrefix(s, "["):
		return json.Unmarshal(data, &v.Series)
	case strings.HasPrefix(s, `"`):
		if err := json.Unmarshal(data, &v.Text); err != nil {
			return err
		}
		if v.Text == "inf" {
			inf := math.Inf(1)
			v.Number = &inf
			v.Text = ""
		}
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		v.Number = &f
		return nil
	}
}

// RawRow is one row of a raw table, keyed by column name.
type RawRow map[string]RawValue

// RawTables is the untyped form of a full scenario input set, as produced by
// file readers or received over the wire.
type RawTables map[string][]RawRow

// rowReader reads typed cells out of one raw row and records the first
// failure as a SchemaError. All accessors are no-ops once an error is set.
type rowReader struct {
	table string
	key   string
	row   RawRow
	err   error
}

func (r *rowReader) fail(field, format string, args ...any) {
	if r.err == nil {
		r.err = schemaErrf(r.table, r.key, field, format, args...)
	}
}

func (r *rowReader) str(field string) string {
	if r.err != nil {
		return ""
	}
	v, ok := r.row[field]
	if !ok || strings.TrimSpace(v.Text) == "" {
		r.fail(field, "missing value")
		return ""
	}
	return strings.TrimSpace(v.Text)
}

func (r *rowReader) optStr(field, def string) string {
	if r.err != nil {
		return ""
	}
	v, ok := r.row[field]
	if !ok || strings.TrimSpace(v.Text) == "" {
		return def
	}
	return strings.TrimSpace(v.Text)
}

func (r *rowReader) num(field string) float64 {
	if r.err != nil {
		return 0
	}
	v, ok := r.row[field]
	if !ok || v.Number == nil {
		r.fail(field, "missing numeric value")
		return 0
	}
	if math.IsNaN(*v.Number) {
		r.fail(field, "value is NaN")
		return 0
	}
	return *v.Number
}

func (r *rowReader) optNum(field string, def float64) float64 {
	if r.err != nil {
		return 0
	}
	v, ok := r.row[field]
	if !ok || v.Number == nil {
		return def
	}
	if math.IsNaN(*v.Number) {
		r.fail(field, "value is NaN")
		return 0
	}
	return *v.Number
}

func (r *rowReader) integer(field string) int {
	f := r.num(field)
	if r.err != nil {
		return 0
	}
	if f != math.Trunc(f) {
		r.fail(field, "value %v is not an integer", f)
		return 0
	}
	return int(f)
}

func (r *rowReader) optInt(field string, def int) int {
	f := r.optNum(field, float64(def))
	if r.err != nil {
		return 0
	}
	if f != math.Trunc(f) {
		r.fail(field, "value %v is not an integer", f)
		return 0
	}
	return int(f)
}

// limit reads an optional bound column: absent or "inf" means unbounded.
func (r *rowReader) limit(field string) Limit {
	if r.err != nil {
		return 0
	}
	v, ok := r.row[field]
	if !ok || (v.Number == nil && strings.TrimSpace(v.Text) == "") {
		return Inf()
	}
	if v.Number == nil {
		if strings.TrimSpace(v.Text) == "inf" {
			return Inf()
		}
		r.fail(field, "value %q is neither a number nor \"inf\"", v.Text)
		return 0
	}
	if math.IsNaN(*v.Number) {
		r.fail(field, "value is NaN")
		return 0
	}
	return Limit(*v.Number)
}

func (r *rowReader) series(field string) []float64 {
	if r.err != nil {
		return nil
	}
	v, ok := r.row[field]
	if !ok || v.Series == nil {
		r.fail(field, "missing time series")
		return nil
	}
	for i, f := range v.Series {
		if math.IsNaN(f) {
			r.fail(field, "NaN at step %d", i)
			return nil
		}
	}
	return v.Series
}

// DecodeTables converts raw tables into the typed input model. It catches
// malformed cells and NaN values; cross-table consistency is checked by
// Validate.
func DecodeTables(raw RawTables) (*InputTables, error) {
	in := &InputTables{Info: map[string]string{}}

	if err := decodeGeneral(raw, in); err != nil {
		return nil, err
	}
	if rows, ok := raw[TableInfo]; ok && len(rows) > 0 {
		for field, v := range rows[0] {
			if v.Text != "" {
				in.Info[field] = v.Text
			} else if v.Number != nil {
				in.Info[field] = strconv.FormatFloat(*v.Number, 'g', -1, 64)
			}
		}
	}

	for i, row := range raw[TableCommoditySources] {
		r := &rowReader{table: TableCommoditySources, key: fmt.Sprint(i), row: row}
		c := CommoditySource{
			Region:      r.str("region"),
			Fuel:        r.str("fuel"),
			Costs:       r.optNum("costs", 0),
			Emission:    r.optNum("emission", 0),
			AnnualLimit: r.limit("annual limit"),
		}
		r.key = c.Region + "/" + c.Fuel
		if r.err != nil {
			return nil, r.err
		}
		in.CommoditySources = append(in.CommoditySources, c)
	}

	for i, row := range raw[TableElectricityDemandSeries] {
		r := &rowReader{table: TableElectricityDemandSeries, key: fmt.Sprint(i), row: row}
		d := DemandSeries{Region: r.str("region"), Name: r.str("name")}
		r.key = d.Region + "/" + d.Name
		d.Values = r.series("values")
		if r.err != nil {
			return nil, r.err
		}
		in.ElectricityDemand = append(in.ElectricityDemand, d)
	}

	for i, row := range raw[TableHeatDemandSeries] {
		r := &rowReader{table: TableHeatDemandSeries, key: fmt.Sprint(i), row: row}
		d := HeatDemandSeries{Region: r.str("region"), System: r.str("system")}
		r.key = d.Region + "/" + d.System
		d.Values = r.series("values")
		if r.err != nil {
			return nil, r.err
		}
		in.HeatDemand = append(in.HeatDemand, d)
	}

	for i, row := range raw[TableMobilityDemandSeries] {
		r := &rowReader{table: TableMobilityDemandSeries, key: fmt.Sprint(i), row: row}
		d := MobilityDemandSeries{Region: r.str("region"), Name: r.str("name")}
		r.key = d.Region + "/" + d.Name
		d.Values = r.series("values")
		if r.err != nil {
			return nil, r.err
		}
		in.MobilityDemand = append(in.MobilityDemand, d)
	}

	for i, row := range raw[TableOtherDemandSeries] {
		r := &rowReader{table: TableOtherDemandSeries, key: fmt.Sprint(i), row: row}
		d := OtherDemandSeries{Region: r.str("region"), Medium: r.str("medium"), Name: r.str("name")}
		r.key = d.Region + "/" + d.Medium + "/" + d.Name
		d.Values = r.series("values")
		if r.err != nil {
			return nil, r.err
		}
		in.OtherDemand = append(in.OtherDemand, d)
	}

	for i, row := range raw[TablePowerPlants] {
		r := &rowReader{table: TablePowerPlants, key: fmt.Sprint(i), row: row}
		p := PowerPlant{
			Region: r.str("region"),
			Name:   r.str("name"),
			Fuel:   r.str("fuel"),
		}
		r.key = p.Region + "/" + p.Name
		p.SourceRegion = r.optStr("source region", p.Region)
		p.Capacity = r.num("capacity")
		p.Efficiency = r.num("efficiency")
		p.AnnualLimit = r.limit("annual limit")
		p.VariableCosts = r.optNum("variable costs", 0)
		p.DowntimeFactor = r.optNum("downtime factor", 0)
		if r.err != nil {
			return nil, r.err
		}
		in.PowerPlants = append(in.PowerPlants, p)
	}

	for i, row := range raw[TableVolatilePlants] {
		r := &rowReader{table: TableVolatilePlants, key: fmt.Sprint(i), row: row}
		p := VolatilePlant{Region: r.str("region"), Name: r.str("name")}
		r.key = p.Region + "/" + p.Name
		p.Capacity = r.num("capacity")
		if r.err != nil {
			return nil, r.err
		}
		in.VolatilePlants = append(in.VolatilePlants, p)
	}

	for i, row := range raw[TableVolatileSeries] {
		r := &rowReader{table: TableVolatileSeries, key: fmt.Sprint(i), row: row}
		s := VolatileSeries{Region: r.str("region"), Name: r.str("name")}
		r.key = s.Region + "/" + s.Name
		s.Values = r.series("values")
		if r.err != nil {
			return nil, r.err
		}
		in.VolatileSeries = append(in.VolatileSeries, s)
	}

	if err := decodeStorages(raw, in); err != nil {
		return nil, err
	}

	for i, row := range raw[TablePowerLines] {
		r := &rowReader{table: TablePowerLines, key: fmt.Sprint(i), row: row}
		p := PowerLine{Name: r.str("name")}
		r.key = p.Name
		p.Capacity = r.limit("capacity")
		p.Efficiency = r.num("efficiency")
		if r.err != nil {
			return nil, r.err
		}
		in.PowerLines = append(in.PowerLines, p)
	}

	for i, row := range raw[TableDecentralisedHeat] {
		r := &rowReader{table: TableDecentralisedHeat, key: fmt.Sprint(i), row: row}
		d := DecentralisedHeat{Region: r.str("region"), System: r.str("system")}
		r.key = d.Region + "/" + d.System
		d.Source = r.str("source")
		d.SourceRegion = r.optStr("source region", d.Region)
		d.Efficiency = r.num("efficiency")
		if r.err != nil {
			return nil, r.err
		}
		in.DecentralisedHeat = append(in.DecentralisedHeat, d)
	}

	for i, row := range raw[TableCHPHeatPlants] {
		r := &rowReader{table: TableCHPHeatPlants, key: fmt.Sprint(i), row: row}
		c := CHPPlant{Region: r.str("region"), Name: r.str("name")}
		r.key = c.Region + "/" + c.Name
		c.Fuel = r.str("fuel")
		c.SourceRegion = r.optStr("source region", c.Region)
		c.CapacityHeatCHP = r.optNum("capacity heat chp", 0)
		c.LimitHeatCHP = r.limit("limit heat chp")
		c.EfficiencyHeatCHP = r.optNum("efficiency heat chp", 1)
		c.EfficiencyElecCHP = r.optNum("efficiency elec chp", 1)
		c.CapacityHP = r.optNum("capacity hp", 0)
		c.LimitHP = r.limit("limit hp")
		c.EfficiencyHP = r.optNum("efficiency hp", 1)
		if r.err != nil {
			return nil, r.err
		}
		in.CHPHeatPlants = append(in.CHPHeatPlants, c)
	}

	for i, row := range raw[TableMobility] {
		r := &rowReader{table: TableMobility, key: fmt.Sprint(i), row: row}
		m := Mobility{Region: r.str("region"), Name: r.str("name")}
		r.key = m.Region + "/" + m.Name
		m.Source = r.str("source")
		m.SourceRegion = r.optStr("source region", m.Region)
		m.Efficiency = r.num("efficiency")
		if r.err != nil {
			return nil, r.err
		}
		in.Mobility = append(in.Mobility, m)
	}

	for i, row := range raw[TableOtherConverters] {
		r := &rowReader{table: TableOtherConverters, key: fmt.Sprint(i), row: row}
		c := OtherConverter{Region: r.str("region"), Name: r.str("name")}
		r.key = c.Region + "/" + c.Name
		c.Source = r.str("source")
		c.SourceRegion = r.optStr("source region", c.Region)
		c.Target = r.str("target")
		c.TargetRegion = r.optStr("target region", c.Region)
		c.Capacity = r.num("capacity")
		c.Efficiency = r.num("efficiency")
		c.AnnualLimit = r.limit("annual limit")
		c.VariableCosts = r.optNum("variable costs", 0)
		c.DowntimeFactor = r.optNum("downtime factor", 0)
		if r.err != nil {
			return nil, r.err
		}
		in.OtherConverters = append(in.OtherConverters, c)
	}

	for i, row := range raw[TableDemandResponse] {
		r := &rowReader{table: TableDemandResponse, key: fmt.Sprint(i), row: row}
		d := DemandResponse{Table: r.str("table"), Region: r.str("region"), Name: r.str("name")}
		r.key = d.Table + "/" + d.Region + "/" + d.Name
		d.CapacityUp = r.num("capacity up")
		d.CapacityDown = r.num("capacity down")
		d.Delay = r.optInt("delay", 0)
		d.ShiftInterval = r.optInt("shift interval", 0)
		d.CostUp = r.optNum("cost up", 0)
		d.CostDown = r.optNum("cost down", 0)
		d.Approach = r.optStr("approach", "DLR")
		if r.err != nil {
			return nil, r.err
		}
		in.DemandResponse = append(in.DemandResponse, d)
	}

	for i, row := range raw[TableDataSources] {
		r := &rowReader{table: TableDataSources, key: fmt.Sprint(i), row: row}
		d := DataSource{Name: r.str("name")}
		r.key = d.Name
		d.Source = r.optStr("source", "")
		d.URL = r.optStr("url", "")
		if r.err != nil {
			return nil, r.err
		}
		in.DataSources = append(in.DataSources, d)
	}

	return in, nil
}

func decodeGeneral(raw RawTables, in *InputTables) error {
	rows, ok := raw[TableGeneral]
	if !ok || len(rows) == 0 {
		return schemaErrf(TableGeneral, "", "", "table is missing")
	}
	if len(rows) > 1 {
		return schemaErrf(TableGeneral, "", "", "expected exactly one row, got %d", len(rows))
	}
	r := &rowReader{table: TableGeneral, row: rows[0]}
	in.General = General{
		Year:      r.integer("year"),
		TimeSteps: r.integer("number of time steps"),
		CO2Price:  r.optNum("co2 price", 0),
		Name:      r.str("name"),
	}
	return r.err
}

// decodeStorages reads the storages table and its deprecated alias
// "electricity storages". The alias fixes the medium to electricity and
// must not appear alongside the canonical table.
func decodeStorages(raw RawTables, in *InputTables) error {
	canonical, hasCanonical := raw[TableStorages]
	alias, hasAlias := raw[TableElectricityStorages]
	if hasCanonical && hasAlias {
		return schemaErrf(TableElectricityStorages, "", "",
			"deprecated alias cannot be combined with the %q table", TableStorages)
	}

	rows := canonical
	table := TableStorages
	if hasAlias {
		rows = alias
		table = TableElectricityStorages
	}
	for i, row := range rows {
		r := &rowReader{table: table, key: fmt.Sprint(i), row: row}
		s := Storage{Region: r.str("region"), Name: r.str("name")}
		r.key = s.Region + "/" + s.Name
		if hasAlias {
			s.Medium = ElectricitySource
		} else {
			s.Medium = r.str("medium")
		}
		s.EnergyContent = r.num("energy content")
		s.ChargeCapacity = r.num("charge capacity")
		s.DischargeCapacity = r.num("discharge capacity")
		s.ChargeEfficiency = r.optNum("charge efficiency", 1)
		s.DischargeEfficiency = r.optNum("discharge efficiency", 1)
		s.LossRate = r.optNum("loss rate", 0)
		s.Inflow = r.optNum("inflow", 0)
		if r.err != nil {
			return r.err
		}
		in.Storages = append(in.Storages, s)
	}
	return nil
}
