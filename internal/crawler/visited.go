package crawler

import (
	"sort"
	"sync"
)

// VisitedSet is the append-only set of URLs the crawl has taken up.
// URLs compare as exact strings. It is safe for concurrent use.
type VisitedSet struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

// NewVisitedSet creates an empty VisitedSet.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[string]struct{})}
}

// Add marks rawURL as visited and reports whether it was new.
func (v *VisitedSet) Add(rawURL string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.urls[rawURL]; ok {
		return false
	}
	v.urls[rawURL] = struct{}{}
	return true
}

// Contains reports whether rawURL has been visited.
func (v *VisitedSet) Contains(rawURL string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	_, ok := v.urls[rawURL]
	return ok
}

// Claim marks every unvisited URL of frontier as visited and returns them
// sorted. URLs already visited, and duplicates, are left out.
func (v *VisitedSet) Claim(frontier []string) []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	pending := make([]string, 0, len(frontier))
	for _, u := range frontier {
		if _, ok := v.urls[u]; ok {
			continue
		}
		v.urls[u] = struct{}{}
		pending = append(pending, u)
	}
	sort.Strings(pending)
	return pending
}

// Len returns the number of visited URLs.
func (v *VisitedSet) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.urls)
}
