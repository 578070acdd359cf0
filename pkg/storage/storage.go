// Package storage implements the column-family key/value engine (§4.1)
// that every other component reads and writes through. It wraps
// go.etcd.io/bbolt, mapping each named column family onto a top-level
// bucket and each composite key onto a big-endian byte string so
// lexicographic bucket ordering matches the numeric ordering the spec
// requires for ordered scans.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"
	"go.etcd.io/bbolt"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
)

// Family names the column families of §4.1, plus FamilyTermPostings
// (§4.8 supplemented feature: exact-match postings for TermQueryNode).
type Family string

const (
	FamilyInverted       Family = "inverted"
	FamilyInvertedCounts Family = "inverted_counts"
	FamilyForwardCodes   Family = "forward_codes"
	FamilyDoclens        Family = "doclens"
	FamilyStoredFields   Family = "stored_fields"
	FamilyTermPostings   Family = "term_postings"
	FamilyMeta           Family = "meta"
)

var allFamilies = []Family{
	FamilyInverted,
	FamilyInvertedCounts,
	FamilyForwardCodes,
	FamilyDoclens,
	FamilyStoredFields,
	FamilyTermPostings,
	FamilyMeta,
}

// Options configures how the store opens its backing file.
type Options struct {
	// BulkLoad disables fsync between batches, trading durability for
	// throughput during Train/bulk Add (§7, bulk-load mode).
	BulkLoad bool
	ReadOnly bool
}

// Store is the engine-wide column-family key/value store. All writer
// access is serialized by the caller (the engine holds a single-writer
// mutex per §4.9); Store itself only guards its own lifecycle fields.
type Store struct {
	mu       sync.RWMutex
	db       *bbolt.DB
	path     string
	bulkLoad bool
	closed   bool
}

// Open creates the database file and its column families if absent, or
// opens an existing one.
func Open(path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eng.StorageError("create storage directory", err)
	}

	db, err := bbolt.Open(path, 0o644, &bbolt.Options{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, eng.StorageError("open storage file", err)
	}
	db.NoSync = opts.BulkLoad

	if !opts.ReadOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			for _, f := range allFamilies {
				if _, err := tx.CreateBucketIfNotExists([]byte(f)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, eng.StorageError("initialize column families", err)
		}
	}

	return &Store{db: db, path: path, bulkLoad: opts.BulkLoad}, nil
}

// Close releases the underlying file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return eng.StorageError("close storage file", err)
	}
	return nil
}

// SetBulkLoad toggles NoSync mode at runtime. Nothing in the engine
// calls it; bulk-load mode is otherwise chosen through Options at open.
func (s *Store) SetBulkLoad(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkLoad = on
	s.db.NoSync = on
}

// Batch is a single atomic write spanning any number of column
// families, per the write-batch requirement in §4.1 (invariant: a
// document's inverted postings, counts, forward codes, doclen and
// stored fields become visible together or not at all).
type Batch struct {
	tx *bbolt.Tx
}

// Put writes a key/value pair into the named family.
func (b *Batch) Put(family Family, key, value []byte) error {
	bucket := b.tx.Bucket([]byte(family))
	if bucket == nil {
		return fmt.Errorf("unknown column family %q", family)
	}
	return bucket.Put(key, value)
}

// Delete removes a key from the named family. Deleting an absent key
// is a no-op, matching bbolt semantics.
func (b *Batch) Delete(family Family, key []byte) error {
	bucket := b.tx.Bucket([]byte(family))
	if bucket == nil {
		return fmt.Errorf("unknown column family %q", family)
	}
	return bucket.Delete(key)
}

// Get reads a single key from the named family within the batch's own
// transaction, so a writer can read state it has not yet committed.
func (b *Batch) Get(family Family, key []byte) ([]byte, bool) {
	bucket := b.tx.Bucket([]byte(family))
	if bucket == nil {
		return nil, false
	}
	v := bucket.Get(key)
	if v == nil {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Scan iterates every key with the given prefix in ascending order
// within the batch's own transaction. Iteration stops early if fn
// returns false.
func (b *Batch) Scan(family Family, prefix []byte, fn func(key, value []byte) bool) error {
	bucket := b.tx.Bucket([]byte(family))
	if bucket == nil {
		return nil
	}
	c := bucket.Cursor()
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		if !fn(k, v) {
			break
		}
	}
	return nil
}

// DeleteRange removes every key in [prefix, prefix+0xff...) from the
// named family — used to clear a document's existing postings before
// an upsert's delete-then-insert (§4.9).
func (b *Batch) DeleteRange(family Family, prefix []byte) error {
	bucket := b.tx.Bucket([]byte(family))
	if bucket == nil {
		return fmt.Errorf("unknown column family %q", family)
	}
	c := bucket.Cursor()
	var keys [][]byte
	for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
		dup := make([]byte, len(k))
		copy(dup, k)
		keys = append(keys, dup)
	}
	for _, k := range keys {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Write executes fn inside a single atomic read-write transaction and
// commits it. Any error returned by fn aborts the transaction.
func (s *Store) Write(fn func(*Batch) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return eng.StorageError("store is closed", nil)
	}
	s.mu.RUnlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&Batch{tx: tx})
	})
	if err != nil {
		return eng.StorageError("commit write batch", err)
	}
	return nil
}

// Snapshot is a consistent, read-only view of the store at the moment
// it was taken, per §4.9's snapshot-isolated reader model. bbolt's
// MVCC read transactions already provide this; Snapshot wraps one.
type Snapshot struct {
	tx *bbolt.Tx
}

// Get reads a single key from the named family. A missing key returns
// (nil, false) rather than an error.
func (sn *Snapshot) Get(family Family, key []byte) ([]byte, bool) {
	bucket := sn.tx.Bucket([]byte(family))
	if bucket == nil {
		return nil, false
	}
	v := bucket.Get(key)
	if v == nil {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Scan iterates every key with the given prefix in ascending order,
// calling fn with (key, value). Iteration stops early if fn returns
// false.
func (sn *Snapshot) Scan(family Family, prefix []byte, fn func(key, value []byte) bool) error {
	bucket := sn.tx.Bucket([]byte(family))
	if bucket == nil {
		return nil
	}
	c := bucket.Cursor()
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		if !fn(k, v) {
			break
		}
	}
	return nil
}

// Close releases the snapshot's underlying read transaction.
func (sn *Snapshot) Close() error {
	return sn.tx.Rollback()
}

// View opens a Snapshot for read-only access. Callers must Close it.
func (s *Store) View() (*Snapshot, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, eng.StorageError("store is closed", nil)
	}
	s.mu.RUnlock()

	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, eng.StorageError("begin read snapshot", err)
	}
	return &Snapshot{tx: tx}, nil
}

// FamilyStats returns the number of keys currently stored in each
// column family, used by the engine's introspection surface.
func (s *Store) FamilyStats() (map[Family]int, error) {
	snap, err := s.View()
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	out := make(map[Family]int, len(allFamilies))
	for _, f := range allFamilies {
		bucket := snap.tx.Bucket([]byte(f))
		if bucket == nil {
			out[f] = 0
			continue
		}
		out[f] = bucket.Stats().KeyN
	}
	return out, nil
}

// WriteMetaAtomic persists a single META value (e.g. the schema blob
// or the on-disk version) via rename-into-place, for readers that open
// the file directly rather than through bbolt (§6 external tooling).
func WriteMetaAtomic(dir, name string, data []byte) error {
	target := filepath.Join(dir, name)
	if err := renameio.WriteFile(target, data, 0o644); err != nil {
		return eng.StorageError(fmt.Sprintf("atomically write %s", name), err)
	}
	return nil
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
