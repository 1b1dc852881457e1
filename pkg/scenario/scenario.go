// Package scenario holds the typed data model of an energy system scenario:
// the input tables describing commodities, plants, storages, lines and
// demands, plus the results of a solve. Inputs arrive as loosely typed raw
// tables, are decoded into the typed model and validated as a whole before
// anything downstream sees them.
package scenario

import (
	"strconv"

	"github.com/regioflex/regioflex/pkg/common"
	"github.com/regioflex/regioflex/pkg/logger"
)

// Scenario is a fully validated input set with optional solve results.
type Scenario struct {
	Meta    map[string]string `json:"meta"`
	Input   InputTables       `json:"input"`
	Results *common.Results   `json:"results,omitempty"`
}

// Load decodes and validates raw input tables into a scenario. Deprecated
// table usage is logged but does not fail the load.
func Load(raw RawTables) (*Scenario, error) {
	for _, note := range Deprecations(raw) {
		logger.Warn("deprecated scenario input", "note", note)
	}
	in, err := DecodeTables(raw)
	if err != nil {
		return nil, err
	}
	if err := Validate(in); err != nil {
		return nil, err
	}
	s := &Scenario{Input: *in}
	s.refreshMeta()
	return s, nil
}

// SetInput replaces the complete input table set. Tables are never edited
// row by row; replacing them wholesale keeps every cross-table check
// re-runnable. Existing results are discarded since they no longer match
// the input.
func (s *Scenario) SetInput(in InputTables) error {
	if err := Validate(&in); err != nil {
		return err
	}
	s.Input = in
	s.Results = nil
	s.refreshMeta()
	return nil
}

// Name returns the scenario name from the general table.
func (s *Scenario) Name() string {
	return s.Input.General.Name
}

// HasResults reports whether a solve result is attached.
func (s *Scenario) HasResults() bool {
	return s.Results != nil
}

func (s *Scenario) refreshMeta() {
	meta := map[string]string{
		"name": s.Input.General.Name,
		"year": strconv.Itoa(s.Input.General.Year),
	}
	for k, v := range s.Input.Info {
		meta[k] = v
	}
	s.Meta = meta
}
