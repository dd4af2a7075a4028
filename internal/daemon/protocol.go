// Package daemon implements the detached-session wire protocol from spec
// section 6.3: newline-delimited JSON records over a duplex byte stream,
// with malformed or unrecognized lines silently ignored (spec section 9's
// open question marks this as deliberate best-effort, not an error).
package daemon

import (
	"encoding/json"

	"github.com/lifo-sh/vush/internal/mlog"
)

// RecordType discriminates the three wire records spec section 6.3
// defines. DecodeLine rejects (ok is false) any record of another type.
type RecordType string

const (
	TypeInput  RecordType = "input"
	TypeResize RecordType = "resize"
	TypeOutput RecordType = "output"
)

// Record is the one wire shape shared by every direction: client->daemon
// input/resize, daemon->client output. Fields irrelevant to a given Type
// are left zero.
type Record struct {
	Type RecordType `json:"type"`
	Data string     `json:"data,omitempty"`
	Cols int        `json:"cols,omitempty"`
	Rows int        `json:"rows,omitempty"`
}

// EncodeRecord renders r as one newline-delimited JSON line, including
// the trailing newline.
func EncodeRecord(r Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// DecodeLine parses one line of the wire protocol. A malformed line or
// one with an unrecognized type is ignored (ok is false) rather than
// returned as an error, matching spec section 9's best-effort contract;
// the attempt is logged at debug level so a misbehaving client is still
// visible to an operator.
func DecodeLine(line []byte) (Record, bool) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		mlog.Debug("daemon: ignoring malformed record: %v", err)
		return Record{}, false
	}
	switch r.Type {
	case TypeInput, TypeResize, TypeOutput:
		return r, true
	default:
		mlog.Debug("daemon: ignoring record with unknown type %q", r.Type)
		return Record{}, false
	}
}
