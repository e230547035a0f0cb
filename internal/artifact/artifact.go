// Package artifact keeps rendered files and hands out locators for them.
package artifact

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRetain is how many exports a MemoryStore keeps.
const DefaultRetain = 8

var ErrNotFound = errors.New("artifact not found")

// Store saves a named file and returns a locator a client can fetch it from.
type Store interface {
	Put(name string, data []byte) (string, error)
}

// FileStore writes artifacts into a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Put writes data to dir/name, replacing any existing file, and returns a
// file:// URL.
func (s *FileStore) Put(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

type Artifact struct {
	ID      string
	Name    string
	Data    []byte
	Created time.Time
}

// MemoryStore keeps the most recent artifacts in memory. Older entries are
// revoked as new ones arrive.
type MemoryStore struct {
	mu     sync.Mutex
	prefix string
	retain int
	items  map[string]Artifact
	order  []string
}

// NewMemoryStore serves locators of the form <prefix>/<id>/<name>.
func NewMemoryStore(prefix string, retain int) *MemoryStore {
	if retain <= 0 {
		retain = DefaultRetain
	}
	return &MemoryStore{
		prefix: prefix,
		retain: retain,
		items:  make(map[string]Artifact),
	}
}

func (s *MemoryStore) Put(name string, data []byte) (string, error) {
	a := Artifact{
		ID:      uuid.New().String(),
		Name:    name,
		Data:    data,
		Created: time.Now(),
	}
	s.mu.Lock()
	s.items[a.ID] = a
	s.order = append(s.order, a.ID)
	for len(s.order) > s.retain {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
	s.mu.Unlock()
	return s.prefix + "/" + a.ID + "/" + url.PathEscape(name), nil
}

func (s *MemoryStore) Get(id string) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return Artifact{}, ErrNotFound
	}
	return a, nil
}

// Revoke drops an artifact so its locator stops resolving.
func (s *MemoryStore) Revoke(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
