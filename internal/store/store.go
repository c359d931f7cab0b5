// Package store holds immutable snapshots of loaded capture records.
//
// A Snapshot is built once per load and never mutated; reloading produces a
// brand-new Snapshot so concurrent readers are never exposed to partial
// state. All accessors are read-only and safe for concurrent use.
package store

import (
	"sort"
	"time"

	"github.com/netriage/netriage/internal/logging"
	"github.com/netriage/netriage/pkg/records"
)

var log = logging.L("store")

// Snapshot is one load of process and connection records plus the process
// lookup index derived from it.
type Snapshot struct {
	processes   []records.ProcessRecord
	connections []records.ConnectionRecord

	byPid    map[int32]records.ProcessRecord
	pidOrder []int32

	duplicates int
	loadedAt   time.Time
}

// Load builds a Snapshot from raw record slices. Inputs are copied; the
// caller may reuse its slices afterwards.
//
// Duplicate Pids follow last-write-wins: the later record's fields replace
// the earlier one's, while the pid keeps its first-appearance position in
// KnownPids. Duplicates are tolerated and logged, never an error.
func Load(procs []records.ProcessRecord, conns []records.ConnectionRecord) *Snapshot {
	s := &Snapshot{
		processes:   append([]records.ProcessRecord(nil), procs...),
		connections: append([]records.ConnectionRecord(nil), conns...),
		byPid:       make(map[int32]records.ProcessRecord, len(procs)),
		pidOrder:    make([]int32, 0, len(procs)),
		loadedAt:    time.Now().UTC(),
	}

	for _, p := range s.processes {
		if _, seen := s.byPid[p.Pid]; seen {
			s.duplicates++
		} else {
			s.pidOrder = append(s.pidOrder, p.Pid)
		}
		s.byPid[p.Pid] = p
	}

	if s.duplicates > 0 {
		log.Warn("duplicate pids in capture, keeping last record for each",
			"duplicates", s.duplicates,
			"processes", len(s.processes))
	}

	log.Debug("snapshot loaded",
		"processes", len(s.processes),
		"connections", len(s.connections))

	return s
}

// Processes returns all process records in input order, duplicates included.
// Callers must not modify the returned slice.
func (s *Snapshot) Processes() []records.ProcessRecord {
	return s.processes
}

// Connections returns all connection records in input order.
// Callers must not modify the returned slice.
func (s *Snapshot) Connections() []records.ConnectionRecord {
	return s.connections
}

// Process returns the winning record for pid, if any.
func (s *Snapshot) Process(pid int32) (records.ProcessRecord, bool) {
	p, ok := s.byPid[pid]
	return p, ok
}

// HasPid reports whether pid resolves to a process record.
func (s *Snapshot) HasPid(pid int32) bool {
	_, ok := s.byPid[pid]
	return ok
}

// KnownPids returns each unique pid in order of first appearance.
// Callers must not modify the returned slice.
func (s *Snapshot) KnownPids() []int32 {
	return s.pidOrder
}

// ProcessCount returns the number of unique pids.
func (s *Snapshot) ProcessCount() int {
	return len(s.byPid)
}

// ConnectionCount returns the number of connection records.
func (s *Snapshot) ConnectionCount() int {
	return len(s.connections)
}

// DuplicatePids returns how many process records lost to a later record
// with the same pid.
func (s *Snapshot) DuplicatePids() int {
	return s.duplicates
}

// LoadedAt returns when this snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// OwnerUsername resolves the username a connection should display: the
// owning process's Username when the connection's Pid resolves, the
// connection's own capture-side value only when the owner is unknown.
func (s *Snapshot) OwnerUsername(c records.ConnectionRecord) string {
	if p, ok := s.byPid[c.Pid]; ok {
		return p.Username
	}
	return c.Username
}

// Statuses returns the sorted set of non-empty Status values observed on
// connections. Used to populate status filter choices.
func (s *Snapshot) Statuses() []string {
	return uniqueSorted(len(s.connections), func(i int) string { return s.connections[i].Status })
}

// Usernames returns the sorted set of non-empty Username values observed on
// processes. Used to populate user filter choices.
func (s *Snapshot) Usernames() []string {
	return uniqueSorted(len(s.processes), func(i int) string { return s.processes[i].Username })
}

func uniqueSorted(n int, value func(i int) string) []string {
	seen := make(map[string]struct{}, n)
	var out []string
	for i := 0; i < n; i++ {
		v := value(i)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
