package scenario

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
)

// dumpVersion is bumped whenever the dump envelope changes incompatibly.
const dumpVersion = 1

type dumpEnvelope struct {
	Version int `json:"version"`
	Scenario
}

// Dump serializes the scenario, including attached results, into a
// gzip-compressed JSON envelope. Restore reverses it losslessly.
func (s *Scenario) Dump() ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)
	if err := enc.Encode(dumpEnvelope{Version: dumpVersion, Scenario: *s}); err != nil {
		return nil, fmt.Errorf("failed to encode scenario dump: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress scenario dump: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore deserializes a dump produced by Dump. The restored input is
// re-validated, so a dump from a newer, incompatible schema fails loudly
// instead of producing a half-usable scenario.
func Restore(blob []byte) (*Scenario, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario dump: %w", err)
	}
	defer zr.Close()

	var env dumpEnvelope
	if err := json.NewDecoder(zr).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode scenario dump: %w", err)
	}
	if _, err := io.Copy(io.Discard, zr); err != nil {
		return nil, fmt.Errorf("failed to read scenario dump: %w", err)
	}
	if env.Version != dumpVersion {
		return nil, fmt.Errorf("unsupported dump version %d, want %d", env.Version, dumpVersion)
	}
	if err := Validate(&env.Input); err != nil {
		return nil, fmt.Errorf("restored scenario is invalid: %w", err)
	}
	s := env.Scenario
	s.refreshMeta()
	return &s, nil
}
