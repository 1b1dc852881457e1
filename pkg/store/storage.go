// Package store persists scenario dumps. A dump keeps the full input set
// and any attached results, so a registry entry is everything needed to
// re-run or post-process a scenario later.
package store

import (
	"context"
	"time"

	"github.com/regioflex/regioflex/pkg/scenario"
)

// DumpRecord is the registry metadata of one stored dump.
type DumpRecord struct {
	ID         string
	Name       string
	Meta       map[string]string
	HasResults bool
	CreatedAt  time.Time
}

// ScenarioStore defines the interface for persisting and querying scenario
// dumps.
type ScenarioStore interface {
	// Save stores a dump of the scenario and returns its registry id.
	Save(ctx context.Context, sc *scenario.Scenario) (string, error)
	// Load restores the scenario stored under the given id.
	Load(ctx context.Context, id string) (*scenario.Scenario, error)
	// List returns the metadata of all stored dumps, newest first.
	List(ctx context.Context) ([]DumpRecord, error)
	// Search returns the dumps whose metadata contains all given
	// key/value pairs, newest first.
	Search(ctx context.Context, meta map[string]string) ([]DumpRecord, error)
	// Delete removes a dump from the registry.
	Delete(ctx context.Context, id string) error
}
