// Package forward implements the forward index (component E, §4.5):
// the per-field, per-document record of which centroid each token was
// assigned to and its packed residual code, written atomically
// alongside the inverted entries in the same write batch.
package forward

import (
	"encoding/binary"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/codec"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

// Record is a decoded forward-index entry: one centroid ID and one
// packed residual code per token, in token order.
type Record struct {
	CentroidIDs []uint32
	Codes       []byte
}

// Encode serializes a record per §4.5's layout:
//
//	u32 T
//	u32 centroid_ids[T]
//	u8  codes[ceil(T * bits_per_token / 8)]
func Encode(centroidIDs []uint32, bitsPerToken int, codes *codec.BitWriter) []byte {
	t := len(centroidIDs)
	buf := make([]byte, 4+4*t)
	binary.BigEndian.PutUint32(buf[0:4], uint32(t))
	for i, c := range centroidIDs {
		binary.BigEndian.PutUint32(buf[4+4*i:8+4*i], c)
	}
	return append(buf, codes.Bytes()...)
}

// Decode parses a record written by Encode. bitsPerToken must match
// the codec the field was trained with.
func Decode(data []byte, bitsPerToken int) (*Record, error) {
	if len(data) < 4 {
		return nil, eng.StorageError("forward record truncated before token count", nil)
	}
	t := int(binary.BigEndian.Uint32(data[0:4]))
	headerEnd := 4 + 4*t
	if len(data) < headerEnd {
		return nil, eng.StorageError("forward record truncated before centroid IDs", nil)
	}

	centroidIDs := make([]uint32, t)
	for i := range centroidIDs {
		centroidIDs[i] = binary.BigEndian.Uint32(data[4+4*i : 8+4*i])
	}

	codeBytes := (t*bitsPerToken + 7) / 8
	if len(data) < headerEnd+codeBytes {
		return nil, eng.StorageError("forward record truncated before codes", nil)
	}

	return &Record{
		CentroidIDs: centroidIDs,
		Codes:       data[headerEnd : headerEnd+codeBytes],
	}, nil
}

// DecodeResiduals decodes every token's residual from a record using c.
func (r *Record) DecodeResiduals(c codec.Codec) ([][]float32, error) {
	reader := codec.NewBitReader(r.Codes)
	residuals := make([][]float32, len(r.CentroidIDs))
	for i := range residuals {
		residual, err := c.DecodeToken(reader)
		if err != nil {
			return nil, err
		}
		residuals[i] = residual
	}
	return residuals, nil
}

// Put writes one field's forward record for a document, keyed
// (tenant, doc_id, field_id) in FORWARD_CODES.
func Put(b *storage.Batch, tenant, docID uint64, fieldID uint32, centroidIDs []uint32, bitsPerToken int, codes *codec.BitWriter) error {
	data := Encode(centroidIDs, bitsPerToken, codes)
	if err := b.Put(storage.FamilyForwardCodes, storage.TenantDocField(tenant, docID, fieldID), data); err != nil {
		return eng.StorageError("write forward record", err)
	}
	return nil
}

// Get reads and decodes one field's forward record for a document.
func Get(snap *storage.Snapshot, tenant, docID uint64, fieldID uint32, bitsPerToken int) (*Record, bool, error) {
	data, ok := snap.Get(storage.FamilyForwardCodes, storage.TenantDocField(tenant, docID, fieldID))
	if !ok {
		return nil, false, nil
	}
	rec, err := Decode(data, bitsPerToken)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// PutDoclen records the token count for a document's field in
// DOCLENS, used by downstream consumers that need T without decoding
// the whole forward record.
func PutDoclen(b *storage.Batch, tenant, docID uint64, fieldID uint32, t int) error {
	if err := b.Put(storage.FamilyDoclens, storage.TenantDocField(tenant, docID, fieldID), storage.PutUint32(uint32(t))); err != nil {
		return eng.StorageError("write doclen", err)
	}
	return nil
}

// Remove deletes a document's forward records and doclens across
// every field, as part of the writer's delete-then-insert upsert.
func Remove(b *storage.Batch, tenant, docID uint64) error {
	if err := b.DeleteRange(storage.FamilyForwardCodes, storage.TenantDocFieldPrefix(tenant, docID)); err != nil {
		return eng.StorageError("delete forward records", err)
	}
	if err := b.DeleteRange(storage.FamilyDoclens, storage.TenantDocFieldPrefix(tenant, docID)); err != nil {
		return eng.StorageError("delete doclens", err)
	}
	return nil
}
