package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/netriage/netriage/internal/logging"
)

// fileStamp names capture files so repeated runs into the same
// directory never clobber each other.
const fileStamp = "20060102T150405Z"

// WriteSnapshot captures both record kinds and writes them as an NDJSON
// pair under dir, creating it if needed. It returns the two paths
// written. The logger travels on the context so callers can scope it.
func (c *Collector) WriteSnapshot(ctx context.Context, dir string) (procPath, connPath string, err error) {
	log := logging.FromContext(ctx)

	procs, conns, err := c.Snapshot(ctx)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating capture dir: %w", err)
	}

	stamp := c.now().UTC().Format(fileStamp)
	procPath = filepath.Join(dir, "processes_"+stamp+".json")
	connPath = filepath.Join(dir, "connections_"+stamp+".json")

	if err := writeNDJSON(procPath, procs); err != nil {
		return "", "", err
	}
	if err := writeNDJSON(connPath, conns); err != nil {
		return "", "", err
	}

	log.Info("capture written",
		"processes", len(procs),
		"connections", len(conns),
		"dir", dir)
	return procPath, connPath, nil
}

// writeNDJSON writes one JSON object per line, the framing the loader
// sniffs and parses.
func writeNDJSON[T any](path string, recs []T) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			f.Close()
			return fmt.Errorf("encoding record for %s: %w", path, err)
		}
		data = append(data, '\n')
		if _, err := f.Write(data); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return f.Close()
}
