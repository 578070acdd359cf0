// Package invindex implements the inverted index (component D, §4.4):
// per-centroid posting lists keyed by tenant, plus the per-document
// centroid-usage counts needed to remove a document's postings again.
package invindex

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

// Add writes one INVERTED key and one INVERTED_COUNTS entry for every
// unique centroid ID the document's tokens used, per §4.4. counts
// maps centroid ID to the number of tokens the document placed there.
func Add(b *storage.Batch, tenant, docID uint64, counts map[uint32]int) error {
	for centroidID, count := range counts {
		if err := b.Put(storage.FamilyInverted, storage.TenantCentroidDoc(tenant, centroidID, docID), []byte{1}); err != nil {
			return eng.StorageError("write inverted posting", err)
		}
		if err := b.Put(storage.FamilyInvertedCounts, storage.TenantDocCentroid(tenant, docID, centroidID), storage.PutUint32(uint32(count))); err != nil {
			return eng.StorageError("write inverted counts", err)
		}
	}
	return nil
}

// Remove reads a document's recorded centroid counts, deletes the
// matching INVERTED keys, then deletes the counts themselves — the
// exact order spec §4.4 describes. It reads and writes within the
// same batch transaction, so a writer sees its own uncommitted state.
func Remove(b *storage.Batch, tenant, docID uint64) error {
	var centroidIDs []uint32
	err := b.Scan(storage.FamilyInvertedCounts, storage.TenantDocPrefix(tenant, docID), func(k, v []byte) bool {
		centroidIDs = append(centroidIDs, storage.CentroidIDFromCountsKey(k))
		return true
	})
	if err != nil {
		return eng.StorageError("scan inverted counts", err)
	}

	for _, centroidID := range centroidIDs {
		if err := b.Delete(storage.FamilyInverted, storage.TenantCentroidDoc(tenant, centroidID, docID)); err != nil {
			return eng.StorageError("delete inverted posting", err)
		}
	}
	if err := b.DeleteRange(storage.FamilyInvertedCounts, storage.TenantDocPrefix(tenant, docID)); err != nil {
		return eng.StorageError("delete inverted counts", err)
	}
	return nil
}

// PostingList returns the ordered doc IDs posted under one centroid
// for a tenant — an ascending scan over (tenant, centroid_id, *).
func PostingList(snap *storage.Snapshot, tenant uint64, centroidID uint32) ([]uint64, error) {
	var docs []uint64
	err := snap.Scan(storage.FamilyInverted, storage.TenantCentroidPrefix(tenant, centroidID), func(k, v []byte) bool {
		docs = append(docs, storage.DocIDFromInvertedKey(k))
		return true
	})
	if err != nil {
		return nil, eng.StorageError("scan posting list", err)
	}
	return docs, nil
}

// Gather unions the posting lists of every centroid in centroidIDs
// into a single deduplicated candidate set, per §4.7 Stage 1.
// github.com/RoaringBitmap/roaring's 64-bit bitmap gives this union
// a compact in-memory representation even when the candidate set
// spans a large fraction of the tenant's documents.
func Gather(snap *storage.Snapshot, tenant uint64, centroidIDs []uint32) (*roaring64.Bitmap, error) {
	candidates := roaring64.New()
	for _, centroidID := range centroidIDs {
		err := snap.Scan(storage.FamilyInverted, storage.TenantCentroidPrefix(tenant, centroidID), func(k, v []byte) bool {
			candidates.Add(storage.DocIDFromInvertedKey(k))
			return true
		})
		if err != nil {
			return nil, eng.StorageError("gather posting lists", err)
		}
	}
	return candidates, nil
}
