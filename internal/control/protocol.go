// Package control implements the control-plane query channel of spec.md
// §6: a UNIX domain socket per supervisor process, carrying length-prefixed
// request/response frames. The wire schema is external to the spec, so
// frames here are a 4-byte big-endian length header followed by a JSON
// body — plain enough that any client can speak it without this module's
// types.
package control

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxFrameBytes bounds a single frame, guarding the acceptor against a
// malformed or hostile length header.
const maxFrameBytes = 1 << 20

// ErrFrameTooLarge is returned by readFrame when a length header exceeds
// maxFrameBytes.
var ErrFrameTooLarge = errors.New("control: frame exceeds maximum size")

// Op names the operation a Request carries.
type Op string

const (
	// OpStatus returns one (Service set) or every (Service empty)
	// service's current snapshot.
	OpStatus Op = "status"
	// OpChange delivers a start/stop command for one service to the
	// scheduler/shutdown coordinator.
	OpChange Op = "change"
)

// Action names the verb an OpChange request carries.
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// Request is one control-channel query.
type Request struct {
	Op      Op     `json:"op"`
	Service string `json:"service,omitempty"`
	Action  Action `json:"action,omitempty"`
}

// ServiceStatus is one service's reported snapshot.
type ServiceStatus struct {
	Name          string `json:"name"`
	State         string `json:"state"`
	PID           int    `json:"pid,omitempty"`
	StartAttempts int    `json:"start_attempts"`
}

// Response answers a Request. Error is non-empty on failure; Statuses is
// populated for OpStatus, empty otherwise.
type Response struct {
	Error    string          `json:"error,omitempty"`
	Statuses []ServiceStatus `json:"statuses,omitempty"`
}

// writeFrame writes v as a length-prefixed JSON frame to w.
func writeFrame(w io.Writer, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("control: marshal frame: %w", err)
	}
	if len(body) > maxFrameBytes {
		return ErrFrameTooLarge
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("control: write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("control: write frame body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed JSON frame from r into v.
func readFrame(r io.Reader, v interface{}) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameBytes {
		return ErrFrameTooLarge
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("control: read frame body: %w", err)
	}
	return json.Unmarshal(body, v)
}
