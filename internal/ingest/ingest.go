// Package ingest discovers NDJSON capture files, detects each file's record
// kind from its first line, and parses them into typed record collections.
//
// Per-line failures are never fatal: undecodable or non-object lines are
// skipped and counted, missing fields decode to zero values. Only an
// unreadable directory fails a load; unreadable files are reported and the
// rest of the load continues.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/netriage/netriage/internal/logging"
	"github.com/netriage/netriage/internal/workerpool"
	"github.com/netriage/netriage/pkg/records"
)

var log = logging.L("ingest")

// Kind classifies what one capture file holds.
type Kind string

const (
	KindProcesses   Kind = "processes"
	KindConnections Kind = "connections"
	KindUnknown     Kind = "unknown"
)

// Capture lines hold command lines of arbitrary length; the default
// bufio token limit is too small.
const maxLineBytes = 1 << 20

// FileReport describes how one file loaded.
type FileReport struct {
	Path    string
	Kind    Kind
	Records int
	Skipped int
	Err     error
}

// Result is the merged outcome of loading a set of capture files.
type Result struct {
	Processes   []records.ProcessRecord
	Connections []records.ConnectionRecord
	Files       []FileReport
}

// Failed returns the reports for files that could not be read.
func (r *Result) Failed() []FileReport {
	var out []FileReport
	for _, fr := range r.Files {
		if fr.Err != nil {
			out = append(out, fr)
		}
	}
	return out
}

// LoadDir loads every *.json file directly under dir. The only error is an
// unreadable directory; everything below that degrades per file.
func LoadDir(dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read capture dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return LoadFiles(paths), nil
}

// LoadFiles parses the given capture files concurrently and merges the
// records in sorted path order, so the result is deterministic regardless
// of parse scheduling.
func LoadFiles(paths []string) *Result {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	results := make([]fileResult, len(sorted))
	pool := workerpool.New(runtime.NumCPU())
	for i, path := range sorted {
		pool.Submit(func() {
			results[i] = parseFile(path)
		})
	}
	pool.Wait()

	out := &Result{}
	for _, r := range results {
		out.Processes = append(out.Processes, r.procs...)
		out.Connections = append(out.Connections, r.conns...)
		out.Files = append(out.Files, r.report)
	}

	log.Info("capture load complete",
		"files", len(out.Files),
		"processes", len(out.Processes),
		"connections", len(out.Connections))

	return out
}

type fileResult struct {
	report FileReport
	procs  []records.ProcessRecord
	conns  []records.ConnectionRecord
}

func parseFile(path string) fileResult {
	res := fileResult{report: FileReport{Path: path, Kind: KindUnknown}}

	f, err := os.Open(path)
	if err != nil {
		res.report.Err = fmt.Errorf("open capture file: %w", err)
		return res
	}
	defer f.Close()

	scanner := newLineScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			res.report.Err = fmt.Errorf("read capture file: %w", err)
		}
		return res
	}

	res.report.Kind = sniffKind(bytes.TrimSpace(scanner.Bytes()))
	if res.report.Kind == KindUnknown {
		log.Warn("cannot determine capture kind, skipping file", logging.KeyFile, path)
		return res
	}

	// Rewind so the sniffed first line is parsed like any other.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		res.report.Err = fmt.Errorf("rewind capture file: %w", err)
		return res
	}
	scanner = newLineScanner(f)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] != '{' {
			res.report.Skipped++
			continue
		}

		switch res.report.Kind {
		case KindConnections:
			var rec records.ConnectionRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				res.report.Skipped++
				continue
			}
			res.conns = append(res.conns, rec)
		case KindProcesses:
			var rec records.ProcessRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				res.report.Skipped++
				continue
			}
			res.procs = append(res.procs, rec)
		}
		res.report.Records++
	}
	if err := scanner.Err(); err != nil {
		res.report.Err = fmt.Errorf("read capture file: %w", err)
	}

	if res.report.Skipped > 0 {
		log.Warn("skipped undecodable lines",
			logging.KeyFile, path,
			"skipped", res.report.Skipped)
	}
	return res
}

func newLineScanner(f *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

// sniffKind detects a file's record kind from its first line: connection
// captures carry Laddr and Raddr, process captures carry Ppid and
// CommandLine. Anything else is unknown and the file is skipped.
func sniffKind(line []byte) Kind {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(line, &probe); err != nil || probe == nil {
		return KindUnknown
	}

	_, hasLaddr := probe["Laddr"]
	_, hasRaddr := probe["Raddr"]
	if hasLaddr && hasRaddr {
		return KindConnections
	}

	_, hasPpid := probe["Ppid"]
	_, hasCmd := probe["CommandLine"]
	if hasPpid && hasCmd {
		return KindProcesses
	}
	return KindUnknown
}
