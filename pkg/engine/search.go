package engine

import (
	"context"

	"github.com/maxsimdb/maxsimdb/pkg/query"
	"github.com/maxsimdb/maxsimdb/pkg/retriever"
)

// Search runs the PLAID-style retrieval pipeline (§4.7) over field
// for tenant, filling any zero-valued option with this engine's
// configured defaults before resolving the remaining spec defaults.
func (e *Engine) Search(ctx context.Context, tenant uint64, field string, q [][]float32, k int, opts retriever.Options, storedFields []string) ([]retriever.Result, error) {
	return e.retriever.Search(ctx, tenant, field, q, k, e.mergeOptions(opts), storedFields)
}

// Query compiles and runs a boolean query tree (component I, §4.8)
// against tenant.
func (e *Engine) Query(ctx context.Context, tenant uint64, root query.Node, k int, storedFields []string) ([]query.Result, error) {
	return query.Execute(ctx, e.store, e.schema, e.retriever, tenant, root, k, storedFields)
}

// mergeOptions fills zero-valued fields of opts from the engine's
// config-derived defaults, the same overlay-only-nonzero pattern
// internal/config uses to merge a loaded file over Default().
func (e *Engine) mergeOptions(opts retriever.Options) retriever.Options {
	d := e.defaultOptions
	if opts.NProbe == 0 {
		opts.NProbe = d.NProbe
	}
	if opts.KTopCentroids == 0 {
		opts.KTopCentroids = d.KTopCentroids
	}
	if opts.CentroidScoreThreshold == 0 {
		opts.CentroidScoreThreshold = d.CentroidScoreThreshold
	}
	if opts.NumSecondPass == 0 {
		opts.NumSecondPass = d.NumSecondPass
	}
	if opts.NearestTokensToFetch == 0 {
		opts.NearestTokensToFetch = d.NearestTokensToFetch
	}
	return opts
}
