package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCapture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const connLines = `{"Pid":1,"Name":"chrome","Type":"TCP","Status":"ESTAB","Laddr":"192.168.1.5","Lport":50000,"Raddr":"8.8.8.8","Rport":443}
{"Pid":2,"Name":"sshd","Type":"TCP","Status":"LISTEN","Laddr":"0.0.0.0","Lport":22,"Raddr":""}
`

const procLines = `{"Pid":1,"Ppid":0,"Name":"init","Username":"root","CommandLine":"/sbin/init","StartTime":"2026-01-10T11:00:00Z"}
{"Pid":2,"Ppid":1,"Name":"sshd","Username":"root","CommandLine":"/usr/sbin/sshd -D"}
`

func TestLoadDirSniffsKinds(t *testing.T) {
	dir := t.TempDir()
	writeCapture(t, dir, "connections_1.json", connLines)
	writeCapture(t, dir, "processes_1.json", procLines)

	res, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	if len(res.Files) != 2 {
		t.Fatalf("got %d file reports, want 2", len(res.Files))
	}
	byPath := make(map[string]FileReport)
	for _, fr := range res.Files {
		byPath[filepath.Base(fr.Path)] = fr
	}
	if fr := byPath["connections_1.json"]; fr.Kind != KindConnections || fr.Records != 2 {
		t.Errorf("connections report = %+v", fr)
	}
	if fr := byPath["processes_1.json"]; fr.Kind != KindProcesses || fr.Records != 2 {
		t.Errorf("processes report = %+v", fr)
	}

	if len(res.Connections) != 2 || res.Connections[0].Raddr != "8.8.8.8" {
		t.Errorf("connections = %+v", res.Connections)
	}
	if len(res.Processes) != 2 || res.Processes[1].CommandLine != "/usr/sbin/sshd -D" {
		t.Errorf("processes = %+v", res.Processes)
	}
	// Missing fields decode to zero values, never an error.
	if res.Processes[1].StartTime != "" {
		t.Errorf("absent StartTime should decode empty, got %q", res.Processes[1].StartTime)
	}
}

func TestLoadDirSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"Pid":1,"Laddr":"10.0.0.1","Raddr":"8.8.8.8"}

not json at all
[1,2,3]
null
{"Pid":2,"Laddr":"10.0.0.1","Raddr":"9.9.9.9"}
{"broken json
`
	writeCapture(t, dir, "connections.json", content)

	res, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	fr := res.Files[0]
	if fr.Kind != KindConnections {
		t.Fatalf("kind = %v, want connections", fr.Kind)
	}
	if fr.Records != 2 {
		t.Errorf("records = %d, want 2", fr.Records)
	}
	// Blank lines pass silently; the garbage, array, null, and truncated
	// object lines are counted.
	if fr.Skipped != 4 {
		t.Errorf("skipped = %d, want 4", fr.Skipped)
	}
	if len(res.Connections) != 2 {
		t.Errorf("parsed %d connections, want 2", len(res.Connections))
	}
}

func TestLoadDirUnknownKindSkipsFile(t *testing.T) {
	dir := t.TempDir()
	writeCapture(t, dir, "other.json", `{"Foo":1,"Bar":2}`+"\n")

	res, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	fr := res.Files[0]
	if fr.Kind != KindUnknown || fr.Records != 0 {
		t.Errorf("report = %+v, want unknown kind with no records", fr)
	}
	if len(res.Connections)+len(res.Processes) != 0 {
		t.Error("unknown file contributed records")
	}
}

func TestLoadDirBlankFirstLineSkipsFile(t *testing.T) {
	dir := t.TempDir()
	writeCapture(t, dir, "blank.json", "\n"+`{"Pid":1,"Laddr":"a","Raddr":"b"}`+"\n")

	res, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if res.Files[0].Kind != KindUnknown {
		t.Errorf("kind = %v, want unknown for blank first line", res.Files[0].Kind)
	}
}

func TestLoadDirMergesInPathOrder(t *testing.T) {
	dir := t.TempDir()
	// Written in reverse name order; the merge must still be path-sorted.
	writeCapture(t, dir, "b.json", `{"Pid":2,"Laddr":"x","Raddr":"later"}`+"\n")
	writeCapture(t, dir, "a.json", `{"Pid":1,"Laddr":"x","Raddr":"earlier"}`+"\n")

	res, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(res.Connections) != 2 {
		t.Fatalf("got %d connections, want 2", len(res.Connections))
	}
	if res.Connections[0].Raddr != "earlier" || res.Connections[1].Raddr != "later" {
		t.Errorf("merge order = %q then %q, want earlier then later",
			res.Connections[0].Raddr, res.Connections[1].Raddr)
	}
	if filepath.Base(res.Files[0].Path) != "a.json" {
		t.Errorf("file reports not path-sorted: %v", res.Files)
	}
}

func TestLoadDirIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	writeCapture(t, dir, "notes.txt", "hello")
	writeCapture(t, dir, "conns.json", `{"Pid":1,"Laddr":"a","Raddr":"b"}`+"\n")

	res, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(res.Files) != 1 {
		t.Fatalf("got %d file reports, want only the json file", len(res.Files))
	}
}

func TestLoadDirUnreadable(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("unreadable directory should fail the load")
	}
}

func TestLoadFilesReportsMissingFile(t *testing.T) {
	res := LoadFiles([]string{filepath.Join(t.TempDir(), "gone.json")})

	if len(res.Files) != 1 || res.Files[0].Err == nil {
		t.Fatalf("missing file should carry an error: %+v", res.Files)
	}
	if failed := res.Failed(); len(failed) != 1 {
		t.Errorf("Failed() = %v, want the one broken file", failed)
	}
}

func TestSniffKind(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Kind
	}{
		{"connections", `{"Laddr":"a","Raddr":"b"}`, KindConnections},
		{"processes", `{"Ppid":1,"CommandLine":"x"}`, KindProcesses},
		{"laddr only", `{"Laddr":"a"}`, KindUnknown},
		{"ppid only", `{"Ppid":1}`, KindUnknown},
		{"empty object", `{}`, KindUnknown},
		{"array", `[1]`, KindUnknown},
		{"null", `null`, KindUnknown},
		{"garbage", `nope`, KindUnknown},
		{"empty", ``, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniffKind([]byte(tt.line)); got != tt.want {
				t.Errorf("sniffKind(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}
