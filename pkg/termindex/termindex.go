// Package termindex implements the exact-match postings
// TermQueryNode (§4.8) matches against: one posting per (tenant,
// indexed scalar field, value, doc_id), written alongside a
// document's tensor postings so boolean query execution doesn't have
// to fall back to a full field scan.
package termindex

import (
	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/fieldstore"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

// Put records one document's value for an indexed scalar field.
func Put(b *storage.Batch, tenant, docID uint64, field schema.Field, v fieldstore.Value) error {
	data, err := fieldstore.Encode(field.Type, v)
	if err != nil {
		return err
	}
	key := storage.TenantFieldValueDoc(tenant, uint32(field.ID), data, docID)
	if err := b.Put(storage.FamilyTermPostings, key, []byte{1}); err != nil {
		return eng.StorageError("write term posting", err)
	}
	return nil
}

// Remove deletes a document's term posting for one (field, value) pair.
// Unlike the other families, term postings are not keyed by
// (tenant, doc_id, ...) — they're keyed by value first — so removal
// requires the caller to know which (field, value) pairs the
// document previously held; Writer tracks this by re-deriving the
// prior stored value before clearing a document.
func Remove(b *storage.Batch, tenant, docID uint64, field schema.Field, v fieldstore.Value) error {
	data, err := fieldstore.Encode(field.Type, v)
	if err != nil {
		return err
	}
	key := storage.TenantFieldValueDoc(tenant, uint32(field.ID), data, docID)
	if err := b.Delete(storage.FamilyTermPostings, key); err != nil {
		return eng.StorageError("delete term posting", err)
	}
	return nil
}

// Lookup returns every doc ID posted under field's exact value for a
// tenant, ascending by doc ID.
func Lookup(snap *storage.Snapshot, tenant uint64, field schema.Field, v fieldstore.Value) ([]uint64, error) {
	data, err := fieldstore.Encode(field.Type, v)
	if err != nil {
		return nil, err
	}
	prefix := storage.TenantFieldValuePrefix(tenant, uint32(field.ID), data)

	var docs []uint64
	err = snap.Scan(storage.FamilyTermPostings, prefix, func(k, _ []byte) bool {
		docs = append(docs, storage.DocIDFromTermKey(k))
		return true
	})
	if err != nil {
		return nil, eng.StorageError("scan term postings", err)
	}
	return docs, nil
}
