package engine

import (
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

// Info is the introspection snapshot behind the `stats` CLI command —
// schema, training state, and key count per column family. Not
// itemized in the External Interfaces table, but a natural completion
// of the Index Lifecycle component (§4.9 supplemented feature).
type Info struct {
	Path      string
	Version   schema.Version
	Schema    *schema.Schema
	Trained   bool
	KeyCounts map[storage.Family]int
}

// Info reports the engine's current schema, training state and
// per-column-family key counts.
func (e *Engine) Info() (Info, error) {
	counts, err := e.store.FamilyStats()
	if err != nil {
		return Info{}, err
	}
	return Info{
		Path:      e.dir,
		Version:   e.version,
		Schema:    e.schema,
		Trained:   e.trained,
		KeyCounts: counts,
	}, nil
}
