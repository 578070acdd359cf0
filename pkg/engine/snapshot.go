package engine

import (
	"io"
	"os"
	"path/filepath"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
)

// Snapshot checkpoints the index directory's files into destDir,
// hardlinking where the filesystem supports it and falling back to a
// byte copy otherwise (§4.9: "link-based copy where supported").
func (e *Engine) Snapshot(destDir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return eng.StorageError("create snapshot directory", err)
	}

	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return eng.StorageError("read index directory", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(e.dir, entry.Name())
		dst := filepath.Join(destDir, entry.Name())

		if err := os.Link(src, dst); err == nil {
			continue
		}
		if err := copyFile(src, dst); err != nil {
			return eng.StorageError("copy "+entry.Name()+" into snapshot", err)
		}
	}

	e.logger.Info("index snapshot written", "source", e.dir, "dest", destDir)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// Save re-persists every trained field's centroid table and codec to
// META — a no-op under the engine's own lifecycle, but necessary
// after external tooling has loaded models directly into the open
// index (§6: "flush codec/centroid tables to META after external load").
func (e *Engine) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.trained {
		return nil
	}
	return persistModels(e.store, e.models)
}
