// Package viewstate persists run table preferences per experiment. Storage
// is advisory: failures are logged and swallowed, and reads fall back to
// defaults.
package viewstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// StoreVersion is written into every scope document.
const StoreVersion = "0.8.0"

// ErrNotFound is returned by GetItem when the scope or key has no value.
var ErrNotFound = errors.New("viewstate: item not found")

// Store is a key-value backend grouped into scopes.
type Store interface {
	GetItem(scope, key string) ([]byte, error)
	SetItem(scope, key string, value []byte) error
}

// ScopeForExperiment names the scope of an experiment. The creation time is
// part of the scope so a recreated experiment reusing an id starts clean.
func ScopeForExperiment(experimentID string, creationTime int64) string {
	return fmt.Sprintf("experiment-%s-%d", experimentID, creationTime)
}

// MemoryStore keeps items in memory.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) GetItem(scope, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[scope][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) SetItem(scope, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[scope] == nil {
		s.items[scope] = make(map[string][]byte)
	}
	s.items[scope][key] = append([]byte(nil), value...)
	return nil
}

// scopeDocument is the on-disk layout of one scope.
type scopeDocument struct {
	Version string                     `json:"version"`
	Items   map[string]json.RawMessage `json:"items"`
}

// FileStore keeps one JSON document per scope under dir.
type FileStore struct {
	mu  sync.Mutex
	fs  afero.Fs
	dir string
}

func NewFileStore(fs afero.Fs, dir string) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStore{fs: fs, dir: dir}
}

func (s *FileStore) path(scope string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(scope)
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) read(scope string) (*scopeDocument, error) {
	data, err := afero.ReadFile(s.fs, s.path(scope))
	if errors.Is(err, os.ErrNotExist) {
		return &scopeDocument{Version: StoreVersion, Items: map[string]json.RawMessage{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scope %s: %w", scope, err)
	}
	var doc scopeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode scope %s: %w", scope, err)
	}
	if doc.Items == nil {
		doc.Items = map[string]json.RawMessage{}
	}
	return &doc, nil
}

func (s *FileStore) GetItem(scope, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(scope)
	if err != nil {
		return nil, err
	}
	v, ok := doc.Items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (s *FileStore) SetItem(scope, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %s/%s is not valid JSON", scope, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(scope)
	if err != nil {
		// A corrupt document is replaced rather than blocking every write.
		doc = &scopeDocument{Items: map[string]json.RawMessage{}}
	}
	doc.Version = StoreVersion
	doc.Items[key] = json.RawMessage(value)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scope %s: %w", scope, err)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.dir, err)
	}
	target := s.path(scope)
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scope %s: %w", scope, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace scope %s: %w", scope, err)
	}
	return nil
}
