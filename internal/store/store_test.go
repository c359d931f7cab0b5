package store

import (
	"reflect"
	"testing"

	"github.com/netriage/netriage/pkg/records"
)

func TestLoadLastWriteWins(t *testing.T) {
	procs := []records.ProcessRecord{
		{Pid: 10, Name: "early", Username: "root"},
		{Pid: 20, Name: "other"},
		{Pid: 10, Name: "late", Username: "svc"},
	}

	s := Load(procs, nil)

	if got := s.ProcessCount(); got != 2 {
		t.Fatalf("ProcessCount = %d, want 2", got)
	}
	if got := s.DuplicatePids(); got != 1 {
		t.Fatalf("DuplicatePids = %d, want 1", got)
	}

	p, ok := s.Process(10)
	if !ok {
		t.Fatal("pid 10 should resolve")
	}
	if p.Name != "late" || p.Username != "svc" {
		t.Errorf("winner for pid 10 = %+v, want fields from the last record", p)
	}

	// Position comes from first appearance even though fields come from the
	// last record.
	if got := s.KnownPids(); !reflect.DeepEqual(got, []int32{10, 20}) {
		t.Errorf("KnownPids = %v, want [10 20]", got)
	}

	// Raw records keep duplicates in input order.
	if got := len(s.Processes()); got != 3 {
		t.Errorf("Processes length = %d, want 3", got)
	}
}

func TestLoadEmptyInputs(t *testing.T) {
	s := Load(nil, nil)

	if s.ProcessCount() != 0 || s.ConnectionCount() != 0 {
		t.Fatalf("empty load should produce empty snapshot, got %d procs %d conns",
			s.ProcessCount(), s.ConnectionCount())
	}
	if _, ok := s.Process(1); ok {
		t.Error("no pid should resolve in an empty snapshot")
	}
	if got := s.Statuses(); len(got) != 0 {
		t.Errorf("Statuses = %v, want empty", got)
	}
}

func TestLoadCopiesInputs(t *testing.T) {
	procs := []records.ProcessRecord{{Pid: 1, Name: "init"}}
	conns := []records.ConnectionRecord{{Pid: 1, Laddr: "127.0.0.1"}}

	s := Load(procs, conns)

	procs[0].Name = "mutated"
	conns[0].Laddr = "mutated"

	if got := s.Processes()[0].Name; got != "init" {
		t.Errorf("snapshot process mutated through caller slice: %q", got)
	}
	if got := s.Connections()[0].Laddr; got != "127.0.0.1" {
		t.Errorf("snapshot connection mutated through caller slice: %q", got)
	}
}

func TestOwnerUsername(t *testing.T) {
	s := Load(
		[]records.ProcessRecord{
			{Pid: 1, Username: "root"},
			{Pid: 2},
		},
		nil,
	)

	tests := []struct {
		name string
		conn records.ConnectionRecord
		want string
	}{
		{"resolved owner", records.ConnectionRecord{Pid: 1, Username: "fallback"}, "root"},
		// A resolved owner wins even with an empty username; the fallback
		// is only for unknown processes.
		{"owner without username", records.ConnectionRecord{Pid: 2, Username: "fallback"}, ""},
		{"dangling pid", records.ConnectionRecord{Pid: 99, Username: "fallback"}, "fallback"},
		{"dangling pid no fallback", records.ConnectionRecord{Pid: 99}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.OwnerUsername(tt.conn); got != tt.want {
				t.Errorf("OwnerUsername = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVocabularies(t *testing.T) {
	procs := []records.ProcessRecord{
		{Pid: 1, Username: "root"},
		{Pid: 2, Username: "alice"},
		{Pid: 3, Username: "root"},
		{Pid: 4},
	}
	conns := []records.ConnectionRecord{
		{Status: "LISTEN"},
		{Status: "ESTAB"},
		{Status: "LISTEN"},
		{Status: ""},
		{Status: "TIME_WAIT"},
	}

	s := Load(procs, conns)

	if got, want := s.Statuses(), []string{"ESTAB", "LISTEN", "TIME_WAIT"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Statuses = %v, want %v", got, want)
	}
	if got, want := s.Usernames(), []string{"alice", "root"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Usernames = %v, want %v", got, want)
	}
}
