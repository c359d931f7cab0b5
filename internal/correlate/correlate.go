// Package correlate reconstructs the process forest and the process to
// connection join for one snapshot.
//
// The Ppid graph in a capture carries no guarantees: parents may be missing,
// duplicated, or cyclic. Construction is a guarded traversal that places
// every known pid in the forest exactly once and always terminates. Members
// of parent cycles unreachable from any root are adopted as roots, with the
// cyclic edge severed.
package correlate

import (
	"fmt"
	"strings"

	"github.com/netriage/netriage/internal/logging"
	"github.com/netriage/netriage/internal/store"
	"github.com/netriage/netriage/pkg/records"
)

var log = logging.L("correlate")

// Node is one process in the reconstructed forest. Children are owned by the
// node; the parent backref is lookup-only via Index.ParentOf.
type Node struct {
	Process   records.ProcessRecord
	Children  []*Node
	ConnCount int

	parent *Node
}

// Label renders the node the way tree views caption it: "name (pid)".
func (n *Node) Label() string {
	return fmt.Sprintf("%s (%d)", n.Process.Name, n.Process.Pid)
}

// Index is the correlation layer over a snapshot: the process forest plus
// the pid to connections join. Built once per snapshot, read-only after.
type Index struct {
	snap  *store.Snapshot
	nodes map[int32]*Node
	roots []*Node
	conns map[int32][]records.ConnectionRecord
}

// Build constructs the Index in time linear in the input size.
//
// Natural roots are winner records whose Ppid is zero or does not resolve.
// Traversal from the roots attaches each child exactly once under a visited
// guard. Pids still unplaced afterwards sit on Ppid cycles with no path from
// any root; they are adopted as roots in first-appearance order so the
// forest covers every known pid.
func Build(snap *store.Snapshot) *Index {
	idx := &Index{
		snap:  snap,
		nodes: make(map[int32]*Node, snap.ProcessCount()),
		conns: make(map[int32][]records.ConnectionRecord),
	}

	known := snap.KnownPids()
	for _, pid := range known {
		rec, _ := snap.Process(pid)
		idx.nodes[pid] = &Node{Process: rec}
	}

	// Parent adjacency from each winner's Ppid, in first-appearance order.
	// A self edge can never become a tree edge and is dropped up front.
	children := make(map[int32][]int32, len(known))
	var rootPids []int32
	for _, pid := range known {
		rec := idx.nodes[pid].Process
		if rec.Ppid == 0 || !snap.HasPid(rec.Ppid) {
			rootPids = append(rootPids, pid)
			continue
		}
		if rec.Ppid == pid {
			continue
		}
		children[rec.Ppid] = append(children[rec.Ppid], pid)
	}

	visited := make(map[int32]bool, len(known))
	for _, pid := range rootPids {
		idx.plant(pid, children, visited)
	}

	adopted := 0
	for _, pid := range known {
		if !visited[pid] {
			idx.plant(pid, children, visited)
			adopted++
		}
	}
	if adopted > 0 {
		log.Warn("ppid cycles detected, adopted cycle members as roots",
			"adopted", adopted)
	}

	for _, c := range snap.Connections() {
		idx.conns[c.Pid] = append(idx.conns[c.Pid], c)
	}
	for pid, list := range idx.conns {
		if n, ok := idx.nodes[pid]; ok {
			n.ConnCount = len(list)
		}
	}

	log.Debug("correlation index built",
		"pids", len(idx.nodes),
		"roots", len(idx.roots),
		"joinedPids", len(idx.conns))

	return idx
}

// plant makes pid a root and attaches its reachable descendants iteratively.
// A pid encountered a second time is already placed and is never re-inserted.
func (idx *Index) plant(rootPid int32, children map[int32][]int32, visited map[int32]bool) {
	root := idx.nodes[rootPid]
	visited[rootPid] = true
	idx.roots = append(idx.roots, root)

	stack := []*Node{root}
	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, childPid := range children[parent.Process.Pid] {
			if visited[childPid] {
				continue
			}
			visited[childPid] = true

			child := idx.nodes[childPid]
			child.parent = parent
			parent.Children = append(parent.Children, child)
			stack = append(stack, child)
		}
	}
}

// RootNodes returns the forest roots in first-appearance order, adopted
// cycle roots last.
func (idx *Index) RootNodes() []*Node {
	return idx.roots
}

// Lookup returns the node for pid, if the pid is known.
func (idx *Index) Lookup(pid int32) (*Node, bool) {
	n, ok := idx.nodes[pid]
	return n, ok
}

// ChildrenOf returns the tree children of pid, nil when pid is unknown or a
// leaf.
func (idx *Index) ChildrenOf(pid int32) []*Node {
	if n, ok := idx.nodes[pid]; ok {
		return n.Children
	}
	return nil
}

// ParentOf returns the tree parent of pid. Roots report nil, including
// adopted cycle roots whose Ppid technically resolves.
func (idx *Index) ParentOf(pid int32) *Node {
	if n, ok := idx.nodes[pid]; ok {
		return n.parent
	}
	return nil
}

// ConnectionsFor returns the connections whose Pid field equals pid, in
// input order. The pid does not need to resolve to a known process.
func (idx *Index) ConnectionsFor(pid int32) []records.ConnectionRecord {
	return idx.conns[pid]
}

// AllKnownPids returns every unique pid in first-appearance order.
func (idx *Index) AllKnownPids() []int32 {
	return idx.snap.KnownPids()
}

// Walk visits every node in preorder, roots first-appearance ordered,
// calling fn with each node and its depth.
func (idx *Index) Walk(fn func(n *Node, depth int)) {
	var rec func(n *Node, depth int)
	rec = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			rec(c, depth+1)
		}
	}
	for _, r := range idx.roots {
		rec(r, 0)
	}
}

// MatchForest computes the visible pid set for a tree search: a node stays
// visible when its label contains the search text, case-insensitive, or any
// descendant does. An empty search keeps everything visible.
func (idx *Index) MatchForest(search string) map[int32]bool {
	visible := make(map[int32]bool, len(idx.nodes))

	needle := strings.ToLower(search)
	if needle == "" {
		for pid := range idx.nodes {
			visible[pid] = true
		}
		return visible
	}

	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		show := strings.Contains(strings.ToLower(n.Label()), needle)
		for _, c := range n.Children {
			if walk(c) {
				show = true
			}
		}
		if show {
			visible[n.Process.Pid] = true
		}
		return show
	}
	for _, r := range idx.roots {
		walk(r)
	}
	return visible
}
