package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fileEntry is the on-disk form of one preference.
type fileEntry struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// FileBackend stores preferences as a flat JSON object of typed entries:
//
//	{"vee_int": {"type": "int", "value": 50}}
//
// Every persist rewrites the whole file through a temp file and rename.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for path. The file and its directory are
// created on first write.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("preferences file path is required")
	}
	return &FileBackend{path: path}, nil
}

// Path returns the preferences file location.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Load() (map[string]any, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("reading %s: %w", b.path, err)
	}
	if len(data) == 0 {
		return make(map[string]any), nil
	}

	var raw map[string]fileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", b.path, err)
	}

	out := make(map[string]any, len(raw))
	for key, e := range raw {
		k, err := ParseKind(e.Type)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}
		v, err := DecodeJSONValue(k, e.Value)
		if err != nil {
			return nil, fmt.Errorf("key %s: invalid %v value: %w", key, k, err)
		}
		out[key] = v
	}
	return out, nil
}

func (b *FileBackend) Persist(m Mutation) error {
	raw := make(map[string]fileEntry, len(m.Snapshot))
	for key, v := range m.Snapshot {
		k := KindOf(v)
		if k == KindInvalid {
			return fmt.Errorf("key %s: unsupported value type %T", key, v)
		}
		enc, err := EncodeJSONValue(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		raw[key] = fileEntry{Type: k.String(), Value: enc}
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating preferences dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, b.path)
}

func (b *FileBackend) Close() error {
	return nil
}

// Watch reloads s whenever the preferences file is changed by another
// process. Events are debounced so one rename triggers one reload.
// It blocks until ctx is cancelled.
func (b *FileBackend) Watch(ctx context.Context, s *Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating preferences dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic renames replace the file's inode.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	const debounce = 100 * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(b.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				timer.Reset(debounce)
			}

		case <-timer.C:
			if err := s.Reload(); err != nil {
				logger.Warn("reloading preferences after file change", "path", b.path, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("preferences watcher error", "error", err)
		}
	}
}
