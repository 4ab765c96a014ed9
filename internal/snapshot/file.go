package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// File is a Store backed by a YAML document on disk. The whole map is
// rewritten on every Set through a temp file and rename.
type File struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// OpenFile loads the snapshot at path. A missing file is an empty snapshot.
// A file that does not parse is logged and treated as empty; it is replaced
// on the next Set.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	f := &File{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return f, nil
	}
	if err := yaml.Unmarshal(data, &f.values); err != nil {
		slog.Warn("malformed snapshot file, starting empty", "path", path, "error", err)
		f.values = make(map[string]string)
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Get returns the cached value for key and whether it was present. It does
// not reread the file.
func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

// Set stores value under key and rewrites the whole file atomically. A
// failed write is logged and the in-memory value is kept.
func (f *File) Set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = value
	if err := f.writeLocked(); err != nil {
		slog.Warn("snapshot write failed", "path", f.path, "key", key, "error", err)
	}
}

func (f *File) writeLocked() error {
	data, err := yaml.Marshal(f.values)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
