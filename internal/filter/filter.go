// Package filter holds per-consumer filter specifications over the
// connection collection and computes matching subsets on demand.
//
// Each named consumer owns an independent Spec; changing one never affects
// another. Apply is pure: deterministic, order-preserving, and never mutates
// the base collection. Recomputation happens only when a caller asks.
package filter

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/netriage/netriage/internal/logging"
	"github.com/netriage/netriage/internal/store"
	"github.com/netriage/netriage/pkg/records"
)

var log = logging.L("filter")

// Spec is one consumer's filter configuration. All fields are optional;
// the zero Spec matches everything.
type Spec struct {
	// Search is a case-insensitive substring matched against the
	// connection's process name, pid, local address, and remote address.
	Search string

	// Protocol narrows to TCP or UDP. Empty means any.
	Protocol string

	// Status matches exactly against the observed status vocabulary.
	// Empty means any.
	Status string

	// Username matches exactly against the resolved owning username.
	// Empty means any.
	Username string
}

// IsZero reports whether the spec filters nothing.
func (s Spec) IsZero() bool {
	return s == Spec{}
}

// Matches reports whether one connection passes the spec. Username
// resolution goes through the snapshot so the owning process's username
// wins over the capture-side fallback.
func (s Spec) Matches(snap *store.Snapshot, c records.ConnectionRecord) bool {
	if s.Protocol != "" && c.Type != s.Protocol {
		return false
	}
	if s.Status != "" && c.Status != s.Status {
		return false
	}
	if s.Username != "" && snap.OwnerUsername(c) != s.Username {
		return false
	}
	if s.Search != "" {
		searchable := strings.ToLower(fmt.Sprintf("%s %d %s %s", c.Name, c.Pid, c.Laddr, c.Raddr))
		if !strings.Contains(searchable, strings.ToLower(s.Search)) {
			return false
		}
	}
	return true
}

// Apply returns the connections matching spec in base-collection order.
// The zero spec returns the full base collection.
func Apply(snap *store.Snapshot, spec Spec) []records.ConnectionRecord {
	conns := snap.Connections()
	if spec.IsZero() {
		return conns
	}

	var out []records.ConnectionRecord
	for _, c := range conns {
		if spec.Matches(snap, c) {
			out = append(out, c)
		}
	}
	return out
}

// Registry maps consumer names to their independent Specs. Safe for
// concurrent use; a reload goroutine may adjust specs while views read.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry returns an empty registry. Unknown consumers read as the
// zero Spec, so consumers need no registration step.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Spec returns the current spec for consumer.
func (r *Registry) Spec(consumer string) Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.specs[consumer]
}

// Set replaces consumer's spec.
func (r *Registry) Set(consumer string, spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[consumer] = spec
	log.Debug("filter spec set", logging.KeyConsumer, consumer)
}

// Update adjusts consumer's spec in place under the lock.
func (r *Registry) Update(consumer string, fn func(*Spec)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec := r.specs[consumer]
	fn(&spec)
	r.specs[consumer] = spec
	log.Debug("filter spec updated", logging.KeyConsumer, consumer)
}

// Clear resets consumer's spec to match everything.
func (r *Registry) Clear(consumer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.specs, consumer)
}

// Reset clears every consumer's spec.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = make(map[string]Spec)
}

// Consumers returns the names holding a non-zero spec, sorted.
func (r *Registry) Consumers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.specs))
	for name, spec := range r.specs {
		if !spec.IsZero() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Apply computes consumer's current subset against snap.
func (r *Registry) Apply(snap *store.Snapshot, consumer string) []records.ConnectionRecord {
	return Apply(snap, r.Spec(consumer))
}
