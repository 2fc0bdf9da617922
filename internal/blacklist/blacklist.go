// Package blacklist keeps the companies a run must never enrich, such as
// national chains that show up in every search.
package blacklist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Xprriacst/google-maps-scraper/internal/textnorm"
)

// file is the on-disk layout.
type file struct {
	Blacklist   []string  `json:"blacklist"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

const description = "Companies excluded from enrichment"

// List is a set of normalized company names backed by a JSON file. It is
// safe for concurrent use.
type List struct {
	path string

	mu    sync.RWMutex
	names map[string]bool
}

// Normalize folds a company name for comparison: lower case, no accents,
// single spaces.
func Normalize(name string) string {
	return textnorm.Fold(name)
}

// Load reads the list at path. A missing file gives an empty list that
// Save will create.
func Load(path string) (*List, error) {
	l := &List{path: path, names: make(map[string]bool)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "blacklist: read %s", path)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "blacklist: parse %s", path)
	}
	for _, n := range f.Blacklist {
		if k := Normalize(n); k != "" {
			l.names[k] = true
		}
	}
	return l, nil
}

// New returns an in-memory list holding names. Save is a no-op unless a
// path is set.
func New(names ...string) *List {
	l := &List{names: make(map[string]bool)}
	l.Add(names...)
	return l
}

// Path returns the backing file, or "" for an in-memory list.
func (l *List) Path() string { return l.path }

// Contains reports whether name is blacklisted.
func (l *List) Contains(name string) bool {
	if l == nil {
		return false
	}
	k := Normalize(name)
	if k == "" {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.names[k]
}

// Add inserts names and returns how many were new.
func (l *List) Add(names ...string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	added := 0
	for _, n := range names {
		k := Normalize(n)
		if k == "" || l.names[k] {
			continue
		}
		l.names[k] = true
		added++
	}
	return added
}

// Remove deletes name and reports whether it was present.
func (l *List) Remove(name string) bool {
	k := Normalize(name)
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.names[k] {
		return false
	}
	delete(l.names, k)
	return true
}

// List returns the normalized names in sorted order.
func (l *List) List() []string {
	l.mu.RLock()
	out := make([]string, 0, len(l.names))
	for n := range l.names {
		out = append(out, n)
	}
	l.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of names.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.names)
}

// Save writes the list back to its file through a temp file and rename.
func (l *List) Save() error {
	if l.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(file{
		Blacklist:   l.List(),
		Description: description,
		UpdatedAt:   time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "blacklist: marshal")
	}
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "blacklist: create dir %s", dir)
		}
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "blacklist: write %s", tmp)
	}
	return eris.Wrap(os.Rename(tmp, l.path), "blacklist: replace file")
}
