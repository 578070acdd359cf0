// Package query implements the query tree of component I (§4.8):
// TermQueryNode and VectorQueryNode leaves, combined by And/Or
// boolean combinators that intersect or union doc-ID sets and
// re-combine scores by sum, compiled against a Retriever and a
// term-posting lookup.
package query

import (
	"context"
	"sort"

	"github.com/maxsimdb/maxsimdb/pkg/fieldstore"
	"github.com/maxsimdb/maxsimdb/pkg/retriever"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
	"github.com/maxsimdb/maxsimdb/pkg/termindex"
)

// env carries per-execution state shared by every node in a tree.
type env struct {
	tenant    uint64
	schema    *schema.Schema
	retriever *retriever.Retriever
	snap      *storage.Snapshot
	k         int
}

// Node is one node of a query tree: a leaf or a boolean combinator.
// scores returns the doc IDs this node contributes, each mapped to
// its score's contribution.
type Node interface {
	scores(ctx context.Context, e *env) (map[uint64]float32, error)
}

// TermQueryNode matches documents whose indexed scalar field holds
// exactly Value, contributing a fixed score of 1 per match.
type TermQueryNode struct {
	Field string
	Value fieldstore.Value
}

func (n TermQueryNode) scores(ctx context.Context, e *env) (map[uint64]float32, error) {
	f, err := e.schema.MustField(n.Field)
	if err != nil {
		return nil, err
	}
	docs, err := termindex.Lookup(e.snap, e.tenant, f, n.Value)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]float32, len(docs))
	for _, d := range docs {
		out[d] = 1
	}
	return out, nil
}

// VectorQueryNode runs the retriever's late-interaction MaxSim search
// over an indexed tensor field, contributing each hit's MaxSim score.
type VectorQueryNode struct {
	Field  string
	Tensor [][]float32
	Opts   retriever.Options
}

func (n VectorQueryNode) scores(ctx context.Context, e *env) (map[uint64]float32, error) {
	results, err := e.retriever.Search(ctx, e.tenant, n.Field, n.Tensor, e.k, n.Opts, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]float32, len(results))
	for _, r := range results {
		out[r.DocID] = r.Score
	}
	return out, nil
}

// And intersects its children's doc sets by ID, summing scores —
// only documents both children matched survive.
type And struct {
	Left, Right Node
}

func (n And) scores(ctx context.Context, e *env) (map[uint64]float32, error) {
	left, err := n.Left.scores(ctx, e)
	if err != nil {
		return nil, err
	}
	right, err := n.Right.scores(ctx, e)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]float32, len(left))
	for id, ls := range left {
		if rs, ok := right[id]; ok {
			out[id] = ls + rs
		}
	}
	return out, nil
}

// Or unions its children's doc sets by ID, summing scores where a
// document matched both children.
type Or struct {
	Left, Right Node
}

func (n Or) scores(ctx context.Context, e *env) (map[uint64]float32, error) {
	left, err := n.Left.scores(ctx, e)
	if err != nil {
		return nil, err
	}
	right, err := n.Right.scores(ctx, e)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]float32, len(left)+len(right))
	for id, s := range left {
		out[id] = s
	}
	for id, s := range right {
		out[id] += s
	}
	return out, nil
}

// Result is one hydrated, combined-score query hit.
type Result struct {
	DocID  uint64
	Score  float32
	Fields map[string]fieldstore.Value
}

// Execute compiles and runs a query tree against tenant, returning the
// top-k documents ordered by descending combined score, ties broken
// by ascending doc ID, hydrated with storedFields.
func Execute(ctx context.Context, store *storage.Store, s *schema.Schema, r *retriever.Retriever, tenant uint64, root Node, k int, storedFields []string) ([]Result, error) {
	snap, err := store.View()
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	e := &env{tenant: tenant, schema: s, retriever: r, snap: snap, k: k}
	scored, err := root.scores(ctx, e)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(scored))
	for id := range scored {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scored[ids[i]] != scored[ids[j]] {
			return scored[ids[i]] > scored[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > k {
		ids = ids[:k]
	}

	fields := make([]schema.Field, 0, len(storedFields))
	for _, name := range storedFields {
		f, err := s.MustField(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	out := make([]Result, len(ids))
	for i, id := range ids {
		hydrated, err := fieldstore.GetAll(snap, tenant, id, fields)
		if err != nil {
			return nil, err
		}
		out[i] = Result{DocID: id, Score: scored[id], Fields: hydrated}
	}
	return out, nil
}
