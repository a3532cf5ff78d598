// Package registry implements the mesh's service registry: the data model
// shared by every backend plugin, the process-wide cache, and the
// role-aware facade the gateway and registering services call through.
package registry

import (
	"errors"
	"sort"
	"sync"
)

// Kind distinguishes an advertised HTTP endpoint from a peer-group member.
type Kind int

const (
	// WebService is an entry reachable by the gateway's reverse proxy.
	WebService Kind = 1

	// BackendService is an entry that only participates in a peer group
	// (consistent hashing, leader election inputs); it carries no address.
	BackendService Kind = 2
)

// ServiceEntry is the atomic registration record: one process instance,
// advertised under one logical name.
type ServiceEntry struct {
	ID      string
	Service string
	Lba     string
	Addr    string
	Kind    Kind
}

// Endpoint is the resolved, immutable address list for one logical service.
type Endpoint struct {
	Addresses []string
}

var (
	// ErrServiceNotFound is returned when a name has no live entries in
	// either the cache or the backend store.
	ErrServiceNotFound = errors.New("registry: service not found")

	// ErrRegistrationFailed is returned when a backend refuses or times
	// out on register/renew.
	ErrRegistrationFailed = errors.New("registry: registration failed")
)

// CacheMap is the process-wide, mutex-guarded cache from logical service
// name to its live entries. It is populated by a backend's watch loop and
// read by the gateway's request path.
type CacheMap struct {
	mu      sync.RWMutex
	buckets map[string][]ServiceEntry
}

// NewCacheMap returns an empty CacheMap.
func NewCacheMap() *CacheMap {
	return &CacheMap{buckets: make(map[string][]ServiceEntry)}
}

// Get returns the cached entries for name and whether the bucket exists at
// all (an existing-but-empty bucket is distinct from "never observed").
func (c *CacheMap) Get(name string) ([]ServiceEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries, ok := c.buckets[name]
	if !ok {
		return nil, false
	}

	out := make([]ServiceEntry, len(entries))
	copy(out, entries)
	return out, true
}

// Fill replaces the bucket for name wholesale; used after a backend List
// call on cache miss.
func (c *CacheMap) Fill(name string, entries []ServiceEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[name] = entries
}

// Upsert inserts entry if no cached entry shares its ID, or replaces the
// existing one otherwise. This backs the watch stream's Insert/Update/
// Replace events.
func (c *CacheMap) Upsert(entry ServiceEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket := c.buckets[entry.Service]
	for i := range bucket {
		if bucket[i].ID == entry.ID {
			bucket[i] = entry
			return
		}
	}
	c.buckets[entry.Service] = append(bucket, entry)
}

// Delete removes every cached entry with the given ID across all buckets.
// This backs the watch stream's Delete event, which identifies entries by
// ID alone (the service name is not guaranteed to be known at delete time).
func (c *CacheMap) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, bucket := range c.buckets {
		filtered := bucket[:0]
		for _, e := range bucket {
			if e.ID != id {
				filtered = append(filtered, e)
			}
		}
		c.buckets[name] = filtered
	}
}

// OwnedSet tracks the entries this process is responsible for renewing,
// keyed by ID. It is written by register/unregister and read by a
// backend's renewal loop.
type OwnedSet struct {
	mu      sync.Mutex
	entries map[string]ServiceEntry
}

// NewOwnedSet returns an empty OwnedSet.
func NewOwnedSet() *OwnedSet {
	return &OwnedSet{entries: make(map[string]ServiceEntry)}
}

// Put records entry as owned.
func (o *OwnedSet) Put(entry ServiceEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[entry.ID] = entry
}

// Remove drops an owned entry by ID.
func (o *OwnedSet) Remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, id)
}

// All returns a snapshot of every currently owned entry.
func (o *OwnedSet) All() []ServiceEntry {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]ServiceEntry, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e)
	}
	return out
}

// IDs returns the sorted IDs of every owned entry; used to build the
// stable peer ordering get_backend_service promises.
func (o *OwnedSet) IDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]string, 0, len(o.entries))
	for id := range o.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SortedIDs returns the IDs of entries sorted ascending, for stable peer
// ordering in get_backend_service results.
func SortedIDs(entries []ServiceEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	sort.Strings(ids)
	return ids
}
