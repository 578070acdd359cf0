// Package engine implements the Index Lifecycle (component J, §4.9):
// create/open/train/save/snapshot and the engine-wide single-writer
// mutual exclusion of §5. It is the top-level entry point that wires
// together storage, quantizer, codec, writer, retriever and query
// into one directory-backed handle.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/maxsimdb/maxsimdb/internal/config"
	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/codec"
	"github.com/maxsimdb/maxsimdb/pkg/quantizer"
	"github.com/maxsimdb/maxsimdb/pkg/retriever"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
	"github.com/maxsimdb/maxsimdb/pkg/writer"
)

const (
	dbFileName     = "index.db"
	lockFileName   = "index.lock"
	schemaFileName = "schema"
)

// Model bundles one indexed tensor field's trained coarse quantizer
// and residual codec — the two artifacts training produces and
// persistence round-trips (§4.9, §6).
type Model struct {
	Centroids *quantizer.CentroidTable
	Codec     codec.Codec
}

// Engine is a single open index directory. It owns the storage engine,
// schema, and trained models for its lifetime; readers and the writer
// share these by read-only reference (§5's "no global mutable state,
// the engine handle is the only root").
type Engine struct {
	// mu is the engine-wide mutual-exclusion guard of §5: at most one
	// writer operation (add/remove/update/train/merge) runs at a time.
	mu sync.Mutex

	dir     string
	store   *storage.Store
	schema  *schema.Schema
	version schema.Version
	trained bool
	models  map[string]Model

	writer    *writer.Writer
	retriever *retriever.Retriever

	defaultOptions retriever.Options
	cfg            *config.Config

	dirLock *flock.Flock
	logger  *slog.Logger
	closed  bool
}

// Create initializes a new index directory: storage file, schema
// blob, and an untrained model set. Fails if the directory already
// holds an index (§6: "create new index; fails if path exists").
func Create(path string, s *schema.Schema, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := slog.Default()

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, eng.StorageError("create index directory", err)
	}

	dbPath := filepath.Join(path, dbFileName)
	if _, statErr := os.Stat(dbPath); statErr == nil {
		return nil, eng.StorageError(fmt.Sprintf("index already exists at %s", path), nil)
	}

	dirLock := flock.New(filepath.Join(path, lockFileName))
	locked, err := dirLock.TryLock()
	if err != nil {
		return nil, eng.StorageError("acquire index directory lock", err)
	}
	if !locked {
		return nil, eng.StorageError(fmt.Sprintf("index directory %s is locked by another process", path), nil)
	}

	store, err := storage.Open(dbPath, storage.Options{BulkLoad: cfg.Storage.BulkLoad})
	if err != nil {
		dirLock.Unlock()
		return nil, err
	}

	version := schema.CurrentVersion
	if err := writeSchemaFile(path, version, s); err != nil {
		store.Close()
		dirLock.Unlock()
		return nil, err
	}

	e := &Engine{
		dir:            path,
		store:          store,
		schema:         s,
		version:        version,
		trained:        false,
		models:         map[string]Model{},
		cfg:            cfg,
		dirLock:        dirLock,
		logger:         logger,
		defaultOptions: configToOptions(cfg.Retrieval),
	}
	e.rebuildComponents()

	logger.Info("index created", slog.String("path", path), slog.Int("fields", len(s.Fields)))
	return e, nil
}

// Open loads an existing index directory, rejecting it if its on-disk
// major version exceeds what this build understands (§4.9, §6).
func Open(path string, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := slog.Default()

	dirLock := flock.New(filepath.Join(path, lockFileName))
	locked, err := dirLock.TryLock()
	if err != nil {
		return nil, eng.StorageError("acquire index directory lock", err)
	}
	if !locked {
		return nil, eng.StorageError(fmt.Sprintf("index directory %s is locked by another process", path), nil)
	}

	version, s, err := readSchemaFile(path)
	if err != nil {
		dirLock.Unlock()
		return nil, err
	}
	if !schema.CurrentVersion.Supports(version) {
		dirLock.Unlock()
		return nil, eng.VersionTooNew(version.String(), schema.CurrentVersion.String())
	}

	dbPath := filepath.Join(path, dbFileName)
	store, err := storage.Open(dbPath, storage.Options{BulkLoad: cfg.Storage.BulkLoad})
	if err != nil {
		dirLock.Unlock()
		return nil, err
	}

	trained, models, err := loadModels(store, s)
	if err != nil {
		store.Close()
		dirLock.Unlock()
		return nil, err
	}

	e := &Engine{
		dir:            path,
		store:          store,
		schema:         s,
		version:        version,
		trained:        trained,
		models:         models,
		cfg:            cfg,
		dirLock:        dirLock,
		logger:         logger,
		defaultOptions: configToOptions(cfg.Retrieval),
	}
	e.rebuildComponents()

	logger.Info("index opened", slog.String("path", path), slog.Bool("trained", trained))
	return e, nil
}

// rebuildComponents reconstructs the writer and retriever from the
// engine's current schema and models, called after Create/Open and
// after every Train that changes the model set.
func (e *Engine) rebuildComponents() {
	writerModels := make(map[string]writer.FieldModel, len(e.models))
	retrieverModels := make(map[string]retriever.FieldModel, len(e.models))
	for name, m := range e.models {
		writerModels[name] = writer.FieldModel{Centroids: m.Centroids, Codec: m.Codec}
		retrieverModels[name] = retriever.FieldModel{Centroids: m.Centroids, Codec: m.Codec}
	}
	e.writer = writer.New(e.store, e.schema, writerModels)
	e.retriever = retriever.New(e.store, e.schema, retrieverModels)
}

// Close releases the storage engine and the directory lock on all
// exit paths (§5's resource-release guarantee).
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	closeErr := e.store.Close()
	if err := e.dirLock.Unlock(); err != nil && closeErr == nil {
		closeErr = eng.StorageError("release index directory lock", err)
	}
	return closeErr
}

// Schema returns the engine's schema.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Trained reports whether every indexed tensor field has a trained model.
func (e *Engine) Trained() bool { return e.trained }

func configToOptions(rc config.RetrievalConfig) retriever.Options {
	return retriever.Options{
		NProbe:                 rc.NProbe,
		KTopCentroids:          rc.KTopCentroids,
		CentroidScoreThreshold: rc.CentroidScoreThreshold,
		NumSecondPass:          rc.NumSecondPass,
		NearestTokensToFetch:   rc.NearestTokensToFetch,
	}
}

