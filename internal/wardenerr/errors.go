// Package wardenerr defines the error kinds shared across the supervision
// engine, following the same Op/Err wrapping shape as internal/kernel/ports.
package wardenerr

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Use errors.Is against these, not against *Error
// values, since every wrapped error carries its own Op and message.
var (
	// ErrConfig marks a fatal error discovered while loading service
	// definitions or engine configuration (spec §7).
	ErrConfig = errors.New("config error")
	// ErrSpawn marks a fork/exec failure.
	ErrSpawn = errors.New("spawn error")
	// ErrProbe marks a health-probe I/O or timeout failure.
	ErrProbe = errors.New("probe error")
	// ErrSignalDelivery marks a failure to deliver a signal. ESRCH
	// (already-dead process) is wrapped like any other failure; callers
	// that ignore it check for it with errors.Is after wrapping.
	ErrSignalDelivery = errors.New("signal delivery error")
	// ErrBusSaturation marks a bounded event-bus queue that stayed full
	// past its deadline, indicating a stuck consumer. Always fatal.
	ErrBusSaturation = errors.New("bus saturation")
)

// Error wraps an underlying error with the operation that produced it and
// the sentinel kind it belongs to.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Wrap builds an *Error tying kind and op to err. Wrap(kind, op, nil)
// returns nil so call sites can do `return wardenerr.Wrap(..., err)`
// unconditionally.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Config wraps err as an ErrConfig for op.
func Config(op string, err error) error { return Wrap(ErrConfig, op, err) }

// Spawn wraps err as an ErrSpawn for op.
func Spawn(op string, err error) error { return Wrap(ErrSpawn, op, err) }

// Probe wraps err as an ErrProbe for op.
func Probe(op string, err error) error { return Wrap(ErrProbe, op, err) }

// SignalDelivery wraps err as an ErrSignalDelivery for op.
func SignalDelivery(op string, err error) error { return Wrap(ErrSignalDelivery, op, err) }
