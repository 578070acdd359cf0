// Package fieldstore implements component F: encoding and decoding
// the STORED_FIELDS payloads hydrated onto search results (§4.7
// Stage 4), and the TEXT-valued payloads TermQueryNode matches
// against (§4.8). Each value is encoded per its schema.FieldType.
package fieldstore

import (
	"encoding/binary"
	"math"
	"time"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

// Value is a decoded field value tagged with its FieldType so callers
// can type-switch without re-reading the schema.
type Value struct {
	Type     schema.FieldType
	Integer  int64
	Float    float64
	Text     string
	Datetime time.Time
}

// Encode serializes v according to t.
func Encode(t schema.FieldType, v Value) ([]byte, error) {
	switch t {
	case schema.FieldTypeInteger:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v.Integer))
		return buf, nil
	case schema.FieldTypeFloat:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(v.Float))
		return buf, nil
	case schema.FieldTypeText:
		return []byte(v.Text), nil
	case schema.FieldTypeDatetime:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v.Datetime.UnixNano()))
		return buf, nil
	default:
		return nil, eng.InvalidSchema("fieldstore: unsupported stored field type", nil)
	}
}

// Decode deserializes data according to t.
func Decode(t schema.FieldType, data []byte) (Value, error) {
	switch t {
	case schema.FieldTypeInteger:
		if len(data) != 8 {
			return Value{}, eng.StorageError("corrupt integer field payload", nil)
		}
		return Value{Type: t, Integer: int64(binary.BigEndian.Uint64(data))}, nil
	case schema.FieldTypeFloat:
		if len(data) != 8 {
			return Value{}, eng.StorageError("corrupt float field payload", nil)
		}
		return Value{Type: t, Float: math.Float64frombits(binary.BigEndian.Uint64(data))}, nil
	case schema.FieldTypeText:
		return Value{Type: t, Text: string(data)}, nil
	case schema.FieldTypeDatetime:
		if len(data) != 8 {
			return Value{}, eng.StorageError("corrupt datetime field payload", nil)
		}
		return Value{Type: t, Datetime: time.Unix(0, int64(binary.BigEndian.Uint64(data)))}, nil
	default:
		return Value{}, eng.InvalidSchema("fieldstore: unsupported stored field type", nil)
	}
}

// Put writes one stored or context field value for a document.
func Put(b *storage.Batch, tenant, docID uint64, field schema.Field, v Value) error {
	data, err := Encode(field.Type, v)
	if err != nil {
		return err
	}
	if err := b.Put(storage.FamilyStoredFields, storage.TenantDocField(tenant, docID, uint32(field.ID)), data); err != nil {
		return eng.StorageError("write stored field", err)
	}
	return nil
}

// Get reads and decodes one document field.
func Get(snap *storage.Snapshot, tenant, docID uint64, field schema.Field) (Value, bool, error) {
	data, ok := snap.Get(storage.FamilyStoredFields, storage.TenantDocField(tenant, docID, uint32(field.ID)))
	if !ok {
		return Value{}, false, nil
	}
	v, err := Decode(field.Type, data)
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

// GetAll hydrates every requested field for a document (§4.7 Stage 4).
func GetAll(snap *storage.Snapshot, tenant, docID uint64, fields []schema.Field) (map[string]Value, error) {
	out := make(map[string]Value, len(fields))
	for _, f := range fields {
		v, ok, err := Get(snap, tenant, docID, f)
		if err != nil {
			return nil, err
		}
		if ok {
			out[f.Name] = v
		}
	}
	return out, nil
}

// Remove deletes every stored field of a document.
func Remove(b *storage.Batch, tenant, docID uint64) error {
	if err := b.DeleteRange(storage.FamilyStoredFields, storage.TenantDocFieldPrefix(tenant, docID)); err != nil {
		return eng.StorageError("delete stored fields", err)
	}
	return nil
}
