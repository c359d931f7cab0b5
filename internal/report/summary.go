package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/netriage/netriage/internal/metrics"
	"github.com/netriage/netriage/internal/nav"
	"github.com/netriage/netriage/internal/session"
)

// Dashboard renders the landing summary: the metric cards, the recent
// activity feed, and the busiest processes.
func (r *Renderer) Dashboard(w io.Writer, s *session.Session) error {
	sum := s.Report.Summary

	heading(w, "SNAPSHOT DASHBOARD", '=')
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total Connections\t%d\t%d TCP, %d UDP\n", sum.TotalConnections, sum.TCP, sum.UDP)
	fmt.Fprintf(tw, "Total Processes\t%d\t%d with network\n", sum.TotalProcesses, sum.WithConnections)
	fmt.Fprintf(tw, "Listening Ports\t%d\t\n", sum.Listening)
	fmt.Fprintf(tw, "Established\t%d\t%d external\n", sum.Established, sum.External)
	fmt.Fprintf(tw, "Unsigned/Untrusted\t%d\tdistinct process names\n", sum.UnsignedNames)
	fmt.Fprintf(tw, "Unique Remote IPs\t%d\t\n", sum.UniqueRemoteIPs)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Report.RecentActivity) > 0 {
		fmt.Fprintln(w)
		heading(w, "RECENT ACTIVITY", '-')
		for _, c := range s.Report.RecentActivity {
			fmt.Fprintf(w, "%s (%d) - %s %s\n", c.Name, c.Pid, c.Type, c.Status)
		}
	}

	if len(s.Report.TopTalkers) > 0 {
		fmt.Fprintln(w)
		heading(w, "TOP TALKERS", '-')
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, t := range s.Report.TopTalkers {
			fmt.Fprintf(tw, "%s\t%d\n", t.Name, t.Count)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Security renders the security analysis: unsigned, external, and
// high-port counts, the threat list, and the external connection table.
// A non-empty emphasis marks which angle the caller navigated in on.
func (r *Renderer) Security(w io.Writer, s *session.Session, emphasis nav.Emphasis) error {
	sum := s.Report.Summary

	heading(w, "SECURITY ANALYSIS", '=')
	switch emphasis {
	case nav.EmphasisExternal:
		fmt.Fprintln(w, "Focus: external connections")
	case nav.EmphasisUntrusted:
		fmt.Fprintln(w, "Focus: unsigned processes")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Unsigned\t%d\tprocesses\n", sum.UnsignedNames)
	fmt.Fprintf(tw, "External\t%d\tconnections\n", sum.External)
	fmt.Fprintf(tw, "High Ports\t%d\t> %d\n", sum.HighPorts, metrics.HighPortMin)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Report.UnsignedProcesses) > 0 {
		fmt.Fprintln(w)
		heading(w, "THREATS", '-')
		for _, u := range s.Report.UnsignedProcesses {
			fmt.Fprintf(w, "%s (%d unsigned connections)\n", u.Name, u.Count)
		}
	}

	if len(s.Report.ExternalConnections) > 0 {
		fmt.Fprintln(w)
		heading(w, "EXTERNAL CONNECTIONS", '-')
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tPID\tREMOTE\tPORT\tPROTO\tUSER")
		for _, c := range s.Report.ExternalConnections {
			// Owning process's username only, never the connection
			// fallback. An unresolved owner stays blank here.
			user := ""
			if p, ok := s.Snapshot.Process(c.Pid); ok {
				user = p.Username
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\n", c.Name, c.Pid, c.Raddr, c.Rport, c.Type, user)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
