package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/netriage/netriage/internal/correlate"
	"github.com/netriage/netriage/internal/filter"
	"github.com/netriage/netriage/internal/ingest"
	"github.com/netriage/netriage/internal/metrics"
	"github.com/netriage/netriage/internal/session"
	"github.com/netriage/netriage/pkg/records"
)

// Tree renders the correlated process forest with per-node owner,
// connection count, start time, and trust mark. A non-empty search
// prunes the forest to matching labels and their ancestry.
func (r *Renderer) Tree(w io.Writer, s *session.Session, search string) error {
	visible := s.Index.MatchForest(search)

	heading(w, "PROCESS TREE", '=')
	fmt.Fprintln(w)

	shown := 0
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROCESS\tUSER\tCONNS\tSTARTED\tTRUST")
	s.Index.Walk(func(n *correlate.Node, depth int) {
		pid := n.Process.Pid
		if !visible[pid] {
			return
		}
		shown++
		fmt.Fprintf(tw, "%s%s\t%s\t%d\t%s\t%s\n",
			strings.Repeat("  ", depth),
			n.Label(),
			n.Process.Username,
			n.ConnCount,
			displayTime(n.Process.StartTime),
			trustMark(s.Report.ProcessTrust(pid)))
	})
	if err := tw.Flush(); err != nil {
		return err
	}

	if shown == 0 && search != "" {
		fmt.Fprintf(w, "no processes match %q\n", search)
	}
	return nil
}

// Timeline renders processes newest first with their connection load.
// A positive limit caps the rows.
func (r *Renderer) Timeline(w io.Writer, s *session.Session, limit int) error {
	procs := append([]records.ProcessRecord(nil), s.Snapshot.Processes()...)
	sort.SliceStable(procs, func(i, j int) bool {
		return procs[i].StartTime > procs[j].StartTime
	})
	if limit > 0 && len(procs) > limit {
		procs = procs[:limit]
	}

	heading(w, "PROCESS TIMELINE", '=')
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tPROCESS\tPID\tUSER\tCONNS\tLISTEN\tESTAB\tCHAIN")
	for _, p := range procs {
		stats := s.Report.ProcessStats(p.Pid)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%d\t%s\n",
			displayTime(p.StartTime),
			p.Name,
			p.Pid,
			p.Username,
			stats.Connections,
			stats.Listening,
			stats.Established,
			p.CallChain)
	}
	return tw.Flush()
}

// ProcessDetail renders the intel pane for one pid: identity fields
// followed by a numbered list of its connections.
func (r *Renderer) ProcessDetail(w io.Writer, s *session.Session, pid int32) error {
	proc, ok := s.Snapshot.Process(pid)
	if !ok {
		return fmt.Errorf("no process with pid %d in this capture", pid)
	}
	conns := s.Index.ConnectionsFor(pid)

	bar := strings.Repeat("=", 60)
	fmt.Fprintln(w, bar)
	fmt.Fprintf(w, "PROCESS: %s\n", proc.Name)
	fmt.Fprintln(w, bar)
	fmt.Fprintf(w, "PID:          %d\n", proc.Pid)
	fmt.Fprintf(w, "PPID:         %d\n", proc.Ppid)
	fmt.Fprintf(w, "User:         %s\n", proc.Username)
	fmt.Fprintf(w, "Executable:   %s\n", proc.Exe)
	fmt.Fprintf(w, "Command:      %s\n", proc.CommandLine)
	fmt.Fprintf(w, "Start Time:   %s\n", valueOr(displayTime(proc.StartTime), "unknown"))
	fmt.Fprintf(w, "Uptime:       %s\n", metrics.FormatUptime(proc.StartTime, r.now()))
	fmt.Fprintf(w, "Call Chain:   %s\n", proc.CallChain)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Network Connections: %d\n", len(conns))
	fmt.Fprintln(w, strings.Repeat("-", 60))

	for i, c := range conns {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d. %s - %s\n", i+1, c.Type, c.Status)
		fmt.Fprintf(w, "   Local:  %s\n", hostPort(c.Laddr, c.Lport))
		fmt.Fprintf(w, "   Remote: %s\n", hostPort(c.Raddr, c.Rport))
	}
	return nil
}

// Connections renders the filtered connection table. limit caps the rows
// the way the grid view does; zero or negative shows everything.
func (r *Renderer) Connections(w io.Writer, s *session.Session, spec filter.Spec, limit int) error {
	filtered := filter.Apply(s.Snapshot, spec)
	shown := len(filtered)
	if limit > 0 && shown > limit {
		shown = limit
	}

	fmt.Fprintf(w, "Showing %d of %d connections\n", shown, len(filtered))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPID\tPROTO\tSTATUS\tLOCAL\tREMOTE\tUSER\tUPTIME\tTRUST\tCHAIN")
	for _, c := range filtered[:shown] {
		proc, _ := s.Snapshot.Process(c.Pid)
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name,
			c.Pid,
			c.Type,
			c.Status,
			hostPort(c.Laddr, c.Lport),
			hostPort(c.Raddr, c.Rport),
			s.Snapshot.OwnerUsername(c),
			metrics.FormatUptime(proc.StartTime, r.now()),
			trustMark(metrics.ConnectionTrust(c)),
			truncateChain(proc.CallChain))
	}
	return tw.Flush()
}

// Files renders the per-file load reports, failures included.
func Files(w io.Writer, files []ingest.FileReport) error {
	heading(w, "LOADED FILES", '-')
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tKIND\tRECORDS\tSKIPPED\tERROR")
	for _, f := range files {
		errText := "-"
		if f.Err != nil {
			errText = f.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", f.Path, f.Kind, f.Records, f.Skipped, errText)
	}
	return tw.Flush()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
