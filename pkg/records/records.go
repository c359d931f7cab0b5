// Package records defines the wire vocabulary shared between capture tooling
// and the triage engine. Capture files are NDJSON: one JSON object per line,
// one file per record kind. Field names are part of the contract and must not
// change; every field tolerates absence on decode.
package records

// ZeroStartTime is the sentinel emitted when a process start time is unknown.
// It is the RFC 3339 rendering of the zero time.
const ZeroStartTime = "0001-01-01T00:00:00Z"

// ProcessRecord is one observed process. Pid is the join key for connections
// and Ppid the parent edge for the process forest; neither is guaranteed to
// resolve against the same capture.
type ProcessRecord struct {
	Pid         int32  `json:"Pid"`
	Ppid        int32  `json:"Ppid"`
	Name        string `json:"Name"`
	Username    string `json:"Username"`
	Exe         string `json:"Exe"`
	CommandLine string `json:"CommandLine"`
	StartTime   string `json:"StartTime"`
	CallChain   string `json:"CallChain"`
}

// ConnectionRecord is one observed socket. Pid refers to the owning process
// and may be zero or dangling. Status is an open vocabulary; only LISTEN and
// ESTAB carry meaning downstream. Username is the capture-side fallback used
// when the owning process cannot be resolved.
type ConnectionRecord struct {
	Pid          int32         `json:"Pid"`
	Name         string        `json:"Name"`
	Type         string        `json:"Type"`
	Family       string        `json:"Family"`
	Status       string        `json:"Status"`
	Laddr        string        `json:"Laddr"`
	Lport        uint32        `json:"Lport"`
	Raddr        string        `json:"Raddr"`
	Rport        uint32        `json:"Rport"`
	Username     string        `json:"Username"`
	Timestamp    string        `json:"Timestamp"`
	Authenticode *Authenticode `json:"Authenticode,omitempty"`
}

// Authenticode carries code-signing evidence for the process that owns a
// connection. Absence means no evidence, not a verdict.
type Authenticode struct {
	Trusted string `json:"Trusted"`
}

// Signed reports whether signature evidence is present and marks the binary
// trusted. Any other state, including a missing Authenticode block, is not
// a trust claim.
func (c *ConnectionRecord) Signed() bool {
	return c.Authenticode != nil && c.Authenticode.Trusted == "trusted"
}
