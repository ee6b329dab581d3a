package registry

import (
	"fmt"
	"sync"
)

// MinBatchSize is the smallest batch AddBulk accepts.
const MinBatchSize = 2

// Entry is a single monitored service.
type Entry struct {
	// Name uniquely identifies the service within a Registry.
	Name string `json:"name" yaml:"name"`

	// Address is the probe target, typically an http(s) URL.
	Address string `json:"address" yaml:"address"`
}

// Snapshot is an immutable, ordered view of a Registry.
type Snapshot struct {
	entries []Entry
	version uint64
}

// Len returns the number of entries in the snapshot.
func (s Snapshot) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries in insertion order.
func (s Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// At returns the i-th entry.
func (s Snapshot) At(i int) Entry {
	return s.entries[i]
}

// Version returns the registry version the snapshot was taken at.
func (s Snapshot) Version() uint64 {
	return s.version
}

// NewSnapshot builds a snapshot directly from entries.
// It is intended for callers that aggregate an ad-hoc set of services.
func NewSnapshot(entries ...Entry) Snapshot {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return Snapshot{entries: out}
}

// Registry is an insertion-ordered, concurrency-safe mapping from service
// name to address.
//
// Contract:
// - Concurrency: all methods are safe for concurrent use. Each mutation and
//   each Snapshot is atomic with respect to the others.
// - Errors: a failed mutation leaves the registry unchanged.
type Registry struct {
	mu      sync.RWMutex
	index   map[string]int
	entries []Entry
	version uint64
}

// New creates a registry pre-seeded with entries. Seeding follows Replace
// semantics, so repeated names do not fail.
func New(entries ...Entry) *Registry {
	r := &Registry{index: make(map[string]int)}
	if len(entries) > 0 {
		r.Replace(entries)
	}
	return r
}

// Replace discards the current contents and installs entries.
// A repeated name keeps its first position and takes the last address.
func (r *Registry) Replace(entries []Entry) {
	index := make(map[string]int, len(entries))
	list := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if i, ok := index[e.Name]; ok {
			list[i].Address = e.Address
			continue
		}
		index[e.Name] = len(list)
		list = append(list, e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.index = index
	r.entries = list
	r.version++
}

// Add inserts a single service and returns the number of services
// registered after the insert.
// Returns a *DuplicateServiceError if name is already registered.
func (r *Registry) Add(name, address string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[name]; exists {
		return len(r.entries), &DuplicateServiceError{Name: name}
	}
	r.insertLocked(Entry{Name: name, Address: address})
	r.version++
	return len(r.entries), nil
}

// AddBulk inserts every entry or none of them.
//
// The batch must hold at least MinBatchSize entries. Every name is checked
// against the registry and against earlier entries of the same batch before
// anything is written. The returned total is the number of services
// registered once the call completes.
func (r *Registry) AddBulk(entries []Entry) (int, error) {
	if len(entries) < MinBatchSize {
		return r.Len(), fmt.Errorf("%w: got %d, need at least %d", ErrInsufficientBatchSize, len(entries), MinBatchSize)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if _, exists := r.index[e.Name]; exists {
			return len(r.entries), &DuplicateServiceError{Name: e.Name, Index: i}
		}
		if _, dup := seen[e.Name]; dup {
			return len(r.entries), &DuplicateServiceError{Name: e.Name, Index: i, InBatch: true}
		}
		seen[e.Name] = struct{}{}
	}

	for _, e := range entries {
		r.insertLocked(e)
	}
	r.version++
	return len(r.entries), nil
}

// Snapshot returns a consistent copy of the current contents.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return Snapshot{entries: entries, version: r.version}
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Version returns a counter that changes on every successful mutation.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Lookup returns the address registered under name.
func (r *Registry) Lookup(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return "", false
	}
	return r.entries[i].Address, true
}

func (r *Registry) insertLocked(e Entry) {
	r.index[e.Name] = len(r.entries)
	r.entries = append(r.entries, e)
}
