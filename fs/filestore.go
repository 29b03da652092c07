// Package fs provides file-based storage for uploaded attachments.
package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/synapse"
)

// CleanFilename reduces an uploaded filename to its base name so that it
// can't escape the store directory. Backslashes are treated as separators.
func CleanFilename(name string) (string, error) {
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return "", synapse.Errorf(synapse.EINVALID, "invalid filename %q", name)
	}
	return base, nil
}

// Ensure FileStore implements synapse.FileStore at compile time.
var _ synapse.FileStore = (*FileStore)(nil)

// FileStore writes uploads into a single directory, creating it on first use.
// Concurrent saves are safe; a save to an existing name replaces the file.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a new FileStore rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// Save writes data to baseDir/<base name of filename> and returns that path
// with forward slashes.
func (s *FileStore) Save(ctx context.Context, filename string, data []byte) (string, error) {
	name, err := CleanFilename(filename)
	if err != nil {
		return "", err
	}

	// MkdirAll succeeds when the directory already exists, including when
	// another save created it a moment ago.
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return "", synapse.Errorf(synapse.EFILESTORE, "creating %s: %w", s.baseDir, err)
	}

	fullPath := filepath.Join(s.baseDir, name)
	if err := writeFileAtomic(s.baseDir, fullPath, data); err != nil {
		return "", synapse.Errorf(synapse.EFILESTORE, "writing %s: %w", name, err)
	}

	return filepath.ToSlash(fullPath), nil
}

// writeFileAtomic writes to a temp file in dir and renames it over path so
// readers never observe a partial file.
func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
