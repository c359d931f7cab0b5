// Package session bundles one load into an immutable unit and carries the
// long-lived consumer state across reloads.
//
// A Session is snapshot, correlation index, and metrics report built
// together, never mutated after. The Workspace holds what outlives a
// reload: filter specs, the navigation bus, and the coordinator. Swapping
// in a new Session is a single atomic pointer store, so concurrent readers
// see the old session in full or the new one in full, never a mix.
package session

import (
	"sync/atomic"
	"time"

	"github.com/netriage/netriage/internal/correlate"
	"github.com/netriage/netriage/internal/filter"
	"github.com/netriage/netriage/internal/logging"
	"github.com/netriage/netriage/internal/metrics"
	"github.com/netriage/netriage/internal/nav"
	"github.com/netriage/netriage/internal/store"
	"github.com/netriage/netriage/pkg/records"
)

var log = logging.L("session")

// Session is one fully-built load. All fields are read-only after Open.
type Session struct {
	Snapshot *store.Snapshot
	Index    *correlate.Index
	Report   *metrics.Report
}

// Open builds the snapshot, index, and report for the given records.
// It never fails; malformed input degrades per record.
func Open(procs []records.ProcessRecord, conns []records.ConnectionRecord) *Session {
	started := time.Now()

	snap := store.Load(procs, conns)
	s := &Session{
		Snapshot: snap,
		Index:    correlate.Build(snap),
		Report:   metrics.Compute(snap),
	}

	log.Debug("session built",
		"processes", snap.ProcessCount(),
		"connections", snap.ConnectionCount(),
		logging.KeyDurationMs, time.Since(started).Milliseconds())

	return s
}

// Workspace is the long-lived state around the current session: filters,
// navigation, and the atomically-swapped Session pointer.
type Workspace struct {
	Filters *filter.Registry
	Bus     *nav.Bus
	Coord   *nav.Coordinator

	current atomic.Pointer[Session]
}

// NewWorkspace starts with an empty session so Current never returns nil.
func NewWorkspace() *Workspace {
	w := &Workspace{
		Filters: filter.NewRegistry(),
		Bus:     nav.NewBus(),
	}
	w.Coord = nav.NewCoordinator(w.Bus, w.Filters)
	w.current.Store(Open(nil, nil))
	return w
}

// Current returns the session readers should use. Holders of an older
// session keep a fully-consistent view until they drop it.
func (w *Workspace) Current() *Session {
	return w.current.Load()
}

// Load builds a new session and swaps it in. Filter and navigation state
// survive the reload untouched.
func (w *Workspace) Load(procs []records.ProcessRecord, conns []records.ConnectionRecord) *Session {
	s := Open(procs, conns)
	w.current.Store(s)

	log.Info("session loaded",
		"processes", s.Snapshot.ProcessCount(),
		"connections", s.Snapshot.ConnectionCount())

	return s
}
