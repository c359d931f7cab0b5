// Package capture takes a point-in-time snapshot of the local process
// table and socket table and renders both in the NDJSON wire vocabulary
// the loader understands. It is the only package that touches gopsutil;
// everything downstream works from records alone.
package capture

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/netriage/netriage/internal/logging"
	"github.com/netriage/netriage/pkg/records"
)

var log = logging.L("capture")

// Collector takes one-shot captures. The clock is injectable so tests
// can pin the stamps it writes.
type Collector struct {
	now func() time.Time
}

// New returns a Collector using the wall clock.
func New() *Collector {
	return &Collector{now: time.Now}
}

// procLink is the slice of process identity needed to build call chains.
type procLink struct {
	name string
	ppid int32
}

// procIdent is the owner identity stamped onto connection rows.
type procIdent struct {
	name     string
	username string
}

// Snapshot collects the process table first and the socket table second,
// so connection owners resolve against the same walk even when a process
// exits between the two scans.
func (c *Collector) Snapshot(ctx context.Context) ([]records.ProcessRecord, []records.ConnectionRecord, error) {
	procs, err := c.Processes(ctx)
	if err != nil {
		return nil, nil, err
	}
	owners := make(map[int32]procIdent, len(procs))
	for _, p := range procs {
		owners[p.Pid] = procIdent{name: p.Name, username: p.Username}
	}
	conns, err := c.connections(ctx, owners)
	if err != nil {
		return nil, nil, err
	}
	return procs, conns, nil
}

// Processes walks every visible process and returns one record per pid.
// Fields that the platform refuses to report (username on system
// processes, exe paths under hardened runtimes) stay empty rather than
// failing the capture.
func (c *Collector) Processes(ctx context.Context) ([]records.ProcessRecord, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	out := make([]records.ProcessRecord, 0, len(procs))
	links := make(map[int32]procLink, len(procs))
	for _, p := range procs {
		rec, ok := readProcess(ctx, p)
		if !ok {
			// Exited between the pid walk and the field reads.
			continue
		}
		links[rec.Pid] = procLink{name: rec.Name, ppid: rec.Ppid}
		out = append(out, rec)
	}

	// Chains need the full walk, so they are a second pass.
	for i := range out {
		out[i].CallChain = callChain(out[i].Pid, links)
	}

	log.Debug("process capture complete", "count", len(out))
	return out, nil
}

// Connections returns one record per inet socket. Unix and raw sockets
// are out of scope.
func (c *Collector) Connections(ctx context.Context) ([]records.ConnectionRecord, error) {
	return c.connections(ctx, make(map[int32]procIdent))
}

func (c *Collector) connections(ctx context.Context, owners map[int32]procIdent) ([]records.ConnectionRecord, error) {
	conns, err := net.ConnectionsWithContext(ctx, "all")
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}

	stamp := c.now().UTC().Format(time.RFC3339)
	out := make([]records.ConnectionRecord, 0, len(conns))
	for _, conn := range conns {
		typ := protocolType(conn.Type)
		family := familyLabel(conn.Family)
		if typ == "" || family == "" {
			continue
		}

		rec := records.ConnectionRecord{
			Pid:       conn.Pid,
			Type:      typ,
			Family:    family,
			Status:    normalizeStatus(conn.Status),
			Laddr:     conn.Laddr.IP,
			Lport:     conn.Laddr.Port,
			Raddr:     conn.Raddr.IP,
			Rport:     conn.Raddr.Port,
			Timestamp: stamp,
		}
		if conn.Pid > 0 {
			ident := c.owner(ctx, conn.Pid, owners)
			rec.Name = ident.name
			rec.Username = ident.username
		}
		// Authenticode is only ever carried through from captures that
		// verified signatures. This collector does not, so the field
		// stays absent.
		out = append(out, rec)
	}

	log.Debug("connection capture complete", "count", len(out))
	return out, nil
}

// owner resolves the owning process identity through a per-capture
// cache. A pid that cannot be resolved caches the empty identity so it
// is probed once.
func (c *Collector) owner(ctx context.Context, pid int32, cache map[int32]procIdent) procIdent {
	if ident, ok := cache[pid]; ok {
		return ident
	}
	var ident procIdent
	if p, err := process.NewProcessWithContext(ctx, pid); err == nil {
		if name, err := p.NameWithContext(ctx); err == nil {
			ident.name = name
		}
		if username, err := p.UsernameWithContext(ctx); err == nil {
			ident.username = username
		}
	}
	cache[pid] = ident
	return ident
}

func readProcess(ctx context.Context, p *process.Process) (records.ProcessRecord, bool) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return records.ProcessRecord{}, false
	}

	rec := records.ProcessRecord{
		Pid:       p.Pid,
		Name:      name,
		StartTime: records.ZeroStartTime,
	}
	if username, err := p.UsernameWithContext(ctx); err == nil {
		rec.Username = username
	}
	if exe, err := p.ExeWithContext(ctx); err == nil {
		rec.Exe = exe
	}
	if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
		rec.CommandLine = cmdline
	}
	if ppid, err := p.PpidWithContext(ctx); err == nil {
		rec.Ppid = ppid
	}
	if ms, err := p.CreateTimeWithContext(ctx); err == nil {
		rec.StartTime = formatStartTime(ms)
	}
	return rec, true
}

// formatStartTime renders a gopsutil create time (milliseconds since the
// epoch) as UTC RFC3339. Non-positive values mean the platform could not
// report one and keep the zero sentinel.
func formatStartTime(ms int64) string {
	if ms <= 0 {
		return records.ZeroStartTime
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// callChain walks the parent chain inside the captured set and joins the
// names root first, "root -> mid -> self". The walk stops at pids outside
// the capture, and a visited guard stops ppid cycles.
func callChain(pid int32, links map[int32]procLink) string {
	var parts []string
	visited := make(map[int32]bool)
	for cur := pid; ; {
		link, ok := links[cur]
		if !ok || visited[cur] {
			break
		}
		visited[cur] = true
		parts = append(parts, link.name)
		cur = link.ppid
	}
	slices.Reverse(parts)
	return strings.Join(parts, " -> ")
}

// protocolType maps the socket type onto the wire vocabulary.
// 1 is SOCK_STREAM, 2 is SOCK_DGRAM.
func protocolType(connType uint32) string {
	switch connType {
	case 1:
		return "TCP"
	case 2:
		return "UDP"
	default:
		return ""
	}
}

// familyLabel maps the address family onto the wire vocabulary.
// AF_INET6 is 10 on Linux and 30 on Darwin.
func familyLabel(family uint32) string {
	switch family {
	case 2:
		return "v4"
	case 10, 30:
		return "v6"
	default:
		return ""
	}
}

// normalizeStatus maps gopsutil state names into the wire vocabulary.
// ESTABLISHED becomes ESTAB, which the dashboards key on, and the NONE
// placeholder reported for UDP sockets becomes empty.
func normalizeStatus(status string) string {
	switch status {
	case "ESTABLISHED":
		return "ESTAB"
	case "NONE":
		return ""
	default:
		return status
	}
}
