package catalog

import (
	"sort"
	"strings"
	"sync"
)

// Catalog is a set of representations with a derived itag index.
//
// The canonical store is the set itself; the index is rebuilt on mutation.
// Reads are safe from multiple goroutines; mutation is expected from a
// single writer (the session's refresh callback).
type Catalog struct {
	mu     sync.RWMutex
	byItag map[string]Representation
}

// New creates a catalog from the given representations.
func New(representations ...Representation) *Catalog {
	c := &Catalog{byItag: make(map[string]Representation, len(representations))}
	for _, r := range representations {
		c.byItag[r.Itag] = r
	}
	return c
}

// Add inserts or replaces a representation, keyed by itag.
func (c *Catalog) Add(r Representation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byItag[r.Itag] = r
}

// Replace swaps the whole content of the catalog with the given
// representations. Used by the session refresh callback.
func (c *Catalog) Replace(representations []Representation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byItag = make(map[string]Representation, len(representations))
	for _, r := range representations {
		c.byItag[r.Itag] = r
	}
}

// Len returns the number of representations.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byItag)
}

// GetByItag returns the representation with the given itag.
func (c *Catalog) GetByItag(itag string) (Representation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byItag[itag]
	return r, ok
}

// All returns the representations sorted by itag for deterministic
// iteration.
func (c *Catalog) All() []Representation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	all := make([]Representation, 0, len(c.byItag))
	for _, r := range c.byItag {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Itag < all[j].Itag })
	return all
}

// Filter returns a new catalog containing the representations matching
// the predicate.
func (c *Catalog) Filter(predicate func(Representation) bool) *Catalog {
	filtered := New()
	for _, r := range c.All() {
		if predicate(r) {
			filtered.Add(r)
		}
	}
	return filtered
}

// ItagByURLPrefix finds the representation whose base URL is a prefix of
// the given segment URL. Used by the session retry policy to identify
// which representation an expired request belonged to.
func (c *Catalog) ItagByURLPrefix(url string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for itag, r := range c.byItag {
		if strings.HasPrefix(url, r.BaseURL) {
			return itag, true
		}
	}
	return "", false
}
