package storage

import "encoding/binary"

// Keys are big-endian encoded tuples so lexicographic byte ordering
// matches numeric ordering, per §4.1.

// TenantCentroidDoc builds the INVERTED key: (tenant, centroid_id, doc_id).
func TenantCentroidDoc(tenant uint64, centroidID uint32, docID uint64) []byte {
	buf := make([]byte, 8+4+8)
	binary.BigEndian.PutUint64(buf[0:8], tenant)
	binary.BigEndian.PutUint32(buf[8:12], centroidID)
	binary.BigEndian.PutUint64(buf[12:20], docID)
	return buf
}

// TenantCentroidPrefix builds the scan prefix for one centroid's posting
// list: (tenant, centroid_id, *).
func TenantCentroidPrefix(tenant uint64, centroidID uint32) []byte {
	buf := make([]byte, 8+4)
	binary.BigEndian.PutUint64(buf[0:8], tenant)
	binary.BigEndian.PutUint32(buf[8:12], centroidID)
	return buf
}

// DocIDFromInvertedKey extracts the trailing doc ID from an INVERTED key.
func DocIDFromInvertedKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[12:20])
}

// TenantDocCentroid builds the INVERTED_COUNTS key: (tenant, doc_id, centroid_id).
func TenantDocCentroid(tenant, docID uint64, centroidID uint32) []byte {
	buf := make([]byte, 8+8+4)
	binary.BigEndian.PutUint64(buf[0:8], tenant)
	binary.BigEndian.PutUint64(buf[8:16], docID)
	binary.BigEndian.PutUint32(buf[16:20], centroidID)
	return buf
}

// TenantDocPrefix builds the scan prefix for one document's recorded
// centroid counts: (tenant, doc_id, *).
func TenantDocPrefix(tenant, docID uint64) []byte {
	buf := make([]byte, 8+8)
	binary.BigEndian.PutUint64(buf[0:8], tenant)
	binary.BigEndian.PutUint64(buf[8:16], docID)
	return buf
}

// CentroidIDFromCountsKey extracts the trailing centroid ID from an
// INVERTED_COUNTS key.
func CentroidIDFromCountsKey(key []byte) uint32 {
	return binary.BigEndian.Uint32(key[16:20])
}

// TenantDocField builds keys shared by FORWARD_CODES, DOCLENS, and
// STORED_FIELDS: (tenant, doc_id, field_id).
func TenantDocField(tenant, docID uint64, fieldID uint32) []byte {
	buf := make([]byte, 8+8+4)
	binary.BigEndian.PutUint64(buf[0:8], tenant)
	binary.BigEndian.PutUint64(buf[8:16], docID)
	binary.BigEndian.PutUint32(buf[16:20], fieldID)
	return buf
}

// TenantDocFieldPrefix builds the scan prefix for every field of one
// document: (tenant, doc_id, *).
func TenantDocFieldPrefix(tenant, docID uint64) []byte {
	return TenantDocPrefix(tenant, docID)
}

// TenantPrefix builds the scan prefix isolating one tenant's keys
// (§3 invariant 5, tenant isolation).
func TenantPrefix(tenant uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, tenant)
	return buf
}

// TenantFieldValuePrefix builds the scan prefix isolating one exact
// field value's term postings: (tenant, field_id, value_len, value).
// The length prefix keeps one value from being a byte-prefix of
// another (e.g. text "ab" vs "abc") and corrupting the scan.
func TenantFieldValuePrefix(tenant uint64, fieldID uint32, value []byte) []byte {
	buf := make([]byte, 8+4+2+len(value))
	binary.BigEndian.PutUint64(buf[0:8], tenant)
	binary.BigEndian.PutUint32(buf[8:12], fieldID)
	binary.BigEndian.PutUint16(buf[12:14], uint16(len(value)))
	copy(buf[14:], value)
	return buf
}

// TenantFieldValueDoc builds the TERM_POSTINGS key: (tenant, field_id,
// value_len, value, doc_id).
func TenantFieldValueDoc(tenant uint64, fieldID uint32, value []byte, docID uint64) []byte {
	prefix := TenantFieldValuePrefix(tenant, fieldID, value)
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], docID)
	return buf
}

// DocIDFromTermKey extracts the trailing doc ID from a TERM_POSTINGS key.
func DocIDFromTermKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// PutUint32 / PutUint64 encode a scalar into a fresh big-endian buffer.
func PutUint32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

func PutUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
