// Package report renders the engine's outputs as plain text for the CLI.
// Alignment comes from text/tabwriter; colors, layout, and interactivity
// stay with whatever front end embeds the engine. The dashboard and
// security summaries can also be encoded as JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netriage/netriage/internal/metrics"
	"github.com/netriage/netriage/pkg/records"
)

// DefaultConnectionLimit caps the connection table the way the grid view
// does.
const DefaultConnectionLimit = 50

// Renderer renders sessions. The clock is injectable so uptime columns
// are stable under test.
type Renderer struct {
	now func() time.Time
}

// New returns a Renderer using the wall clock.
func New() *Renderer {
	return &Renderer{now: time.Now}
}

// Encode marshals the derived report in the requested format. Text
// output goes through Dashboard and Security instead.
func Encode(w io.Writer, rep *metrics.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (want json or yaml)", format)
	}
}

func heading(w io.Writer, title string, rule byte) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat(string(rule), len(title)))
}

// displayTime trims an RFC3339 stamp for humans: date, space, seconds.
// Empty stamps and the zero start sentinel render empty.
func displayTime(ts string) string {
	if ts == "" || ts == records.ZeroStartTime {
		return ""
	}
	if len(ts) > 19 {
		ts = ts[:19]
	}
	return strings.Replace(ts, "T", " ", 1)
}

// truncateChain keeps the last three links of a deep ancestry so table
// rows stay readable.
func truncateChain(chain string) string {
	parts := strings.Split(chain, " -> ")
	if len(parts) <= 3 {
		return chain
	}
	return "..." + strings.Join(parts[len(parts)-3:], " -> ")
}

func trustMark(t metrics.Trust) string {
	if t == metrics.Trusted {
		return "✓"
	}
	return "✗"
}

func hostPort(addr string, port uint32) string {
	return fmt.Sprintf("%s:%d", addr, port)
}
