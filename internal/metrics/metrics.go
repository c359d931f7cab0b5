// Package metrics derives security and temporal classifications from a
// snapshot: trust verdicts, externality, port class, uptime buckets, and the
// aggregate counts the dashboard and security views are built from.
//
// A Report is computed once per snapshot in a few linear passes and cached
// by the session; none of the accessors recompute anything.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/netriage/netriage/internal/store"
	"github.com/netriage/netriage/pkg/records"
)

// Trust is the signing verdict for a connection or its owning process.
type Trust string

const (
	Trusted   Trust = "trusted"
	Untrusted Trust = "untrusted"
)

// HighPortMin is the lower bound of the IANA dynamic/private port range.
// Local ports above it are classified "high".
const HighPortMin = 49152

const (
	recentLimit     = 15
	topTalkersLimit = 10
)

// ConnectionTrust classifies one connection. Trusted requires signature
// evidence to be present and affirmative; anything else is untrusted.
func ConnectionTrust(c records.ConnectionRecord) Trust {
	if c.Signed() {
		return Trusted
	}
	return Untrusted
}

// External reports whether a connection reaches outside the local host:
// established, with a non-blank remote address that is not loopback.
func External(c records.ConnectionRecord) bool {
	r := strings.TrimSpace(c.Raddr)
	if c.Status != "ESTAB" || r == "" {
		return false
	}
	return !strings.HasPrefix(r, "127.") && !strings.HasPrefix(r, "::1")
}

// HighPort reports whether the local port falls in the dynamic range.
func HighPort(c records.ConnectionRecord) bool {
	return c.Lport > HighPortMin
}

// FormatUptime renders the elapsed time since start as a human-scale bucket:
// "3d 4h", "4h 27m", or "27m". It returns "unknown" for the zero sentinel,
// an empty value, or anything unparseable; it never fails.
func FormatUptime(start string, now time.Time) string {
	if start == "" || start == records.ZeroStartTime {
		return "unknown"
	}
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return "unknown"
	}

	d := now.Sub(t)
	if d < 0 {
		d = 0
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// Summary holds the dashboard aggregates.
type Summary struct {
	TotalConnections int `json:"totalConnections" yaml:"totalConnections"`
	TotalProcesses   int `json:"totalProcesses" yaml:"totalProcesses"`
	TCP              int `json:"tcp" yaml:"tcp"`
	UDP              int `json:"udp" yaml:"udp"`
	Listening        int `json:"listening" yaml:"listening"`
	Established      int `json:"established" yaml:"established"`
	External         int `json:"external" yaml:"external"`
	UniqueRemoteIPs  int `json:"uniqueRemoteIps" yaml:"uniqueRemoteIps"`
	WithConnections  int `json:"processesWithConnections" yaml:"processesWithConnections"`
	UnsignedNames    int `json:"unsignedProcessNames" yaml:"unsignedProcessNames"`
	HighPorts        int `json:"highPorts" yaml:"highPorts"`
}

// NameCount pairs a process name with a connection count.
type NameCount struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// ProcessStats summarizes the connections associated with one pid.
type ProcessStats struct {
	Connections int
	Listening   int
	Established int
	Trust       Trust
}

// Report is the full set of derived metrics for one snapshot.
type Report struct {
	Summary Summary `json:"summary" yaml:"summary"`

	// UnsignedProcesses lists distinct process names with untrusted
	// connections, name-sorted, with their untrusted connection counts.
	UnsignedProcesses []NameCount `json:"unsignedProcesses" yaml:"unsignedProcesses"`

	// ExternalConnections and HighPortConnections preserve input order.
	ExternalConnections []records.ConnectionRecord `json:"externalConnections" yaml:"externalConnections"`
	HighPortConnections []records.ConnectionRecord `json:"highPortConnections" yaml:"highPortConnections"`

	// RecentActivity holds the most recent connections by Timestamp,
	// newest first.
	RecentActivity []records.ConnectionRecord `json:"recentActivity" yaml:"recentActivity"`

	// TopTalkers ranks process names by connection count, busiest first.
	TopTalkers []NameCount `json:"topTalkers" yaml:"topTalkers"`

	perProcess map[int32]ProcessStats
}

// Compute builds the Report for a snapshot. Malformed records degrade to
// their zero values and are counted like any other; nothing here fails.
func Compute(snap *store.Snapshot) *Report {
	conns := snap.Connections()

	r := &Report{
		perProcess: make(map[int32]ProcessStats),
	}
	r.Summary.TotalConnections = len(conns)
	r.Summary.TotalProcesses = len(snap.Processes())

	remoteIPs := make(map[string]struct{})
	unsignedByName := make(map[string]int)

	for _, c := range conns {
		switch c.Type {
		case "TCP":
			r.Summary.TCP++
		case "UDP":
			r.Summary.UDP++
		}
		switch c.Status {
		case "LISTEN":
			r.Summary.Listening++
		case "ESTAB":
			r.Summary.Established++
		}

		if External(c) {
			r.ExternalConnections = append(r.ExternalConnections, c)
		}
		if HighPort(c) {
			r.HighPortConnections = append(r.HighPortConnections, c)
		}
		if ConnectionTrust(c) == Untrusted {
			unsignedByName[c.Name]++
		}

		if c.Raddr != "" && c.Raddr != "0.0.0.0" && c.Raddr != "::" {
			remoteIPs[c.Raddr] = struct{}{}
		}

		stats := r.perProcess[c.Pid]
		if stats.Connections == 0 {
			// First associated connection decides the process verdict.
			// An approximation, not an exhaustive audit of every record.
			stats.Trust = ConnectionTrust(c)
		}
		stats.Connections++
		switch c.Status {
		case "LISTEN":
			stats.Listening++
		case "ESTAB":
			stats.Established++
		}
		r.perProcess[c.Pid] = stats
	}

	r.Summary.External = len(r.ExternalConnections)
	r.Summary.HighPorts = len(r.HighPortConnections)
	r.Summary.UniqueRemoteIPs = len(remoteIPs)
	r.Summary.WithConnections = len(r.perProcess)
	r.Summary.UnsignedNames = len(unsignedByName)

	for name, count := range unsignedByName {
		r.UnsignedProcesses = append(r.UnsignedProcesses, NameCount{Name: name, Count: count})
	}
	sort.Slice(r.UnsignedProcesses, func(i, j int) bool {
		return r.UnsignedProcesses[i].Name < r.UnsignedProcesses[j].Name
	})

	r.RecentActivity = append([]records.ConnectionRecord(nil), conns...)
	sort.SliceStable(r.RecentActivity, func(i, j int) bool {
		return r.RecentActivity[i].Timestamp > r.RecentActivity[j].Timestamp
	})
	if len(r.RecentActivity) > recentLimit {
		r.RecentActivity = r.RecentActivity[:recentLimit]
	}

	byName := make(map[string]int)
	for _, c := range conns {
		name := c.Name
		if name == "" {
			name = "Unknown"
		}
		byName[name]++
	}
	for name, count := range byName {
		r.TopTalkers = append(r.TopTalkers, NameCount{Name: name, Count: count})
	}
	sort.Slice(r.TopTalkers, func(i, j int) bool {
		if r.TopTalkers[i].Count != r.TopTalkers[j].Count {
			return r.TopTalkers[i].Count > r.TopTalkers[j].Count
		}
		return r.TopTalkers[i].Name < r.TopTalkers[j].Name
	})
	if len(r.TopTalkers) > topTalkersLimit {
		r.TopTalkers = r.TopTalkers[:topTalkersLimit]
	}

	return r
}

// ProcessStats returns the connection summary for pid. Pids with no
// connections report zero counts and an untrusted verdict.
func (r *Report) ProcessStats(pid int32) ProcessStats {
	if stats, ok := r.perProcess[pid]; ok {
		return stats
	}
	return ProcessStats{Trust: Untrusted}
}

// ProcessTrust returns the cached verdict for pid.
func (r *Report) ProcessTrust(pid int32) Trust {
	return r.ProcessStats(pid).Trust
}
