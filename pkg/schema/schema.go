// Package schema defines the field and schema model shared by every
// other package: the closed set of field types and roles, per-field
// quantization parameters, and the schema's on-disk serialization.
package schema

import (
	"encoding/binary"
	"fmt"
	"io"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
)

// FieldType is the closed set of value types a field may hold.
type FieldType uint8

const (
	FieldTypeInteger FieldType = iota
	FieldTypeFloat
	FieldTypeText
	FieldTypeDatetime
	FieldTypeTensor
	FieldTypeQuantizedTensor
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeInteger:
		return "INTEGER"
	case FieldTypeFloat:
		return "FLOAT"
	case FieldTypeText:
		return "TEXT"
	case FieldTypeDatetime:
		return "DATETIME"
	case FieldTypeTensor:
		return "TENSOR"
	case FieldTypeQuantizedTensor:
		return "QUANTIZED_TENSOR"
	default:
		return "UNKNOWN"
	}
}

// Role is a bitmask of the roles a field may carry simultaneously:
// indexed (participates in retrieval), stored (returned with
// results), and context (auxiliary data available to scoring).
type Role uint8

const (
	RoleIndexed Role = 1 << iota
	RoleStored
	RoleContext
)

func (r Role) Has(x Role) bool { return r&x != 0 }

// QuantizationKind selects the residual encoder for a TENSOR field.
type QuantizationKind uint8

const (
	QuantizationNone QuantizationKind = iota
	QuantizationBinarizer
	QuantizationPQ
)

// Params holds the per-field parameters named by the data model:
// dimensions, quantization kind, centroid count, training iterations,
// PQ sub-quantizer count, and bits per sub-quantizer / per binarizer bucket.
type Params struct {
	Dimensions      int
	Quantization    QuantizationKind
	NumCentroids    int // K
	TrainIterations int
	PQSubvectors    int // M
	BitsPerCode     int // nbits
}

// Field is a named, typed field declaration.
type Field struct {
	ID     int // stable per-schema identifier, assigned by New in declaration order
	Name   string
	Type   FieldType
	Role   Role
	Params Params
}

// Schema is an ordered, immutable-once-created set of fields.
type Schema struct {
	Fields []Field
	byName map[string]int // name -> index into Fields
}

// New builds a Schema from field declarations, assigning IDs in order
// and validating the closed invariants (§3): no duplicate names, every
// TENSOR field has positive dimensions, every indexed TENSOR field
// declares a supported quantization kind and, if quantized, a positive
// centroid count and valid codec parameters. TrainIterations is not
// validated here.
func New(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, eng.InvalidSchema("schema must declare at least one field", nil)
	}

	s := &Schema{byName: make(map[string]int, len(fields))}
	for i, f := range fields {
		if f.Name == "" {
			return nil, eng.InvalidSchema("field name must not be empty", nil)
		}
		if _, exists := s.byName[f.Name]; exists {
			return nil, eng.InvalidSchema(fmt.Sprintf("duplicate field name %q", f.Name), nil)
		}
		if f.Type == FieldTypeTensor {
			if f.Params.Dimensions <= 0 {
				return nil, eng.InvalidSchema(fmt.Sprintf("field %q: TENSOR fields require Dimensions > 0", f.Name), nil)
			}
			if f.Role.Has(RoleIndexed) {
				if err := validateIndexedTensorParams(f); err != nil {
					return nil, err
				}
			}
		}
		f.ID = i
		s.byName[f.Name] = i
		fields[i] = f
	}
	s.Fields = fields
	return s, nil
}

func validateIndexedTensorParams(f Field) error {
	switch f.Params.Quantization {
	case QuantizationNone:
		return nil
	case QuantizationBinarizer:
		if f.Params.BitsPerCode <= 0 {
			return eng.InvalidSchema(fmt.Sprintf("field %q: binarizer requires BitsPerCode > 0", f.Name), nil)
		}
	case QuantizationPQ:
		if f.Params.PQSubvectors <= 0 || f.Params.Dimensions%f.Params.PQSubvectors != 0 {
			return eng.InvalidSchema(fmt.Sprintf("field %q: PQ requires PQSubvectors > 0 dividing Dimensions evenly", f.Name), nil)
		}
		if f.Params.BitsPerCode <= 0 || f.Params.BitsPerCode > 16 {
			return eng.InvalidSchema(fmt.Sprintf("field %q: PQ requires 0 < BitsPerCode <= 16", f.Name), nil)
		}
	default:
		return eng.InvalidSchema(fmt.Sprintf("field %q: unknown quantization kind", f.Name), nil)
	}
	if f.Params.NumCentroids <= 0 {
		return eng.InvalidSchema(fmt.Sprintf("field %q: indexed TENSOR requires NumCentroids > 0", f.Name), nil)
	}
	return nil
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[idx], true
}

// MustField looks up a field by name, returning KindUnknownField if absent.
func (s *Schema) MustField(name string) (Field, error) {
	f, ok := s.Field(name)
	if !ok {
		return Field{}, eng.UnknownField(name)
	}
	return f, nil
}

// IndexedTensorFields returns the schema's indexed TENSOR fields, in
// declaration order.
func (s *Schema) IndexedTensorFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Type == FieldTypeTensor && f.Role.Has(RoleIndexed) {
			out = append(out, f)
		}
	}
	return out
}

// IndexedScalarFields returns the schema's indexed non-TENSOR fields,
// in declaration order — the fields TermQueryNode (§4.8) can match.
func (s *Schema) IndexedScalarFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Type != FieldTypeTensor && f.Role.Has(RoleIndexed) {
			out = append(out, f)
		}
	}
	return out
}

// Version is the three-part on-disk schema/index version.
type Version struct {
	Major, Minor, Revision uint32
}

// Supports reports whether this build (current) can open an index
// written at version v, per §6: reject if on-disk major is strictly
// greater than the current major.
func (current Version) Supports(v Version) bool {
	return v.Major <= current.Major
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

// CurrentVersion is the version this build writes and understands.
var CurrentVersion = Version{Major: 1, Minor: 0, Revision: 0}

// Encode serializes version + schema per §6's on-disk layout:
// version u32 triple, field count u32, then per field
// (name_len u16, name, type u8, role_mask u8, params...).
func Encode(w io.Writer, v Version, s *Schema) error {
	if err := writeU32(w, v.Major); err != nil {
		return err
	}
	if err := writeU32(w, v.Minor); err != nil {
		return err
	}
	if err := writeU32(w, v.Revision); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(s.Fields))); err != nil {
		return err
	}
	for _, f := range s.Fields {
		if err := writeU16(w, uint16(len(f.Name))); err != nil {
			return err
		}
		if _, err := w.Write([]byte(f.Name)); err != nil {
			return err
		}
		if _, err := w.Write([]byte{byte(f.Type), byte(f.Role)}); err != nil {
			return err
		}
		if err := writeU32(w, uint32(f.Params.Dimensions)); err != nil {
			return err
		}
		if _, err := w.Write([]byte{byte(f.Params.Quantization)}); err != nil {
			return err
		}
		if err := writeU32(w, uint32(f.Params.NumCentroids)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(f.Params.TrainIterations)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(f.Params.PQSubvectors)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(f.Params.BitsPerCode)); err != nil {
			return err
		}
	}
	return nil
}

// Decode deserializes the version + schema blob written by Encode.
func Decode(r io.Reader) (Version, *Schema, error) {
	var v Version
	var err error
	if v.Major, err = readU32(r); err != nil {
		return v, nil, err
	}
	if v.Minor, err = readU32(r); err != nil {
		return v, nil, err
	}
	if v.Revision, err = readU32(r); err != nil {
		return v, nil, err
	}
	count, err := readU32(r)
	if err != nil {
		return v, nil, err
	}

	fields := make([]Field, 0, count)
	for i := uint32(0); i < count; i++ {
		nameLen, err := readU16(r)
		if err != nil {
			return v, nil, err
		}
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return v, nil, err
		}
		tr := make([]byte, 2)
		if _, err := io.ReadFull(r, tr); err != nil {
			return v, nil, err
		}
		dims, err := readU32(r)
		if err != nil {
			return v, nil, err
		}
		qk := make([]byte, 1)
		if _, err := io.ReadFull(r, qk); err != nil {
			return v, nil, err
		}
		numCentroids, err := readU32(r)
		if err != nil {
			return v, nil, err
		}
		iters, err := readU32(r)
		if err != nil {
			return v, nil, err
		}
		pqM, err := readU32(r)
		if err != nil {
			return v, nil, err
		}
		bits, err := readU32(r)
		if err != nil {
			return v, nil, err
		}

		fields = append(fields, Field{
			ID:   int(i),
			Name: string(nameBuf),
			Type: FieldType(tr[0]),
			Role: Role(tr[1]),
			Params: Params{
				Dimensions:      int(dims),
				Quantization:    QuantizationKind(qk[0]),
				NumCentroids:    int(numCentroids),
				TrainIterations: int(iters),
				PQSubvectors:    int(pqM),
				BitsPerCode:     int(bits),
			},
		})
	}

	s, err := New(fields)
	return v, s, err
}

func writeU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}
