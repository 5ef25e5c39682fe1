package kernel

import (
	"errors"
	"fmt"
)

// Precondition sentinels. Violating one of these is a programmer error: the
// kernel panics with a *PreconditionError wrapping the sentinel, and hardened
// boundaries convert the panic into an ordinary error with Recover.
var (
	ErrUninitialized      = errors.New("store is not initialized")
	ErrVoxelSizeUnset     = errors.New("voxel size is not set")
	ErrBackgroundMismatch = errors.New("operands have different background values")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidHandle      = errors.New("invalid handle")
	ErrInvalidArgument    = errors.New("invalid argument")
)

// PreconditionError is the panic value raised by Fail.
type PreconditionError struct {
	Op  string
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Fail panics with a *PreconditionError for operation op. Extra detail is
// appended to the sentinel message when format is non-empty.
func Fail(op string, sentinel error, format string, args ...any) {
	err := sentinel
	if format != "" {
		err = fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
	}
	panic(&PreconditionError{Op: op, Err: err})
}

// Recover converts a precondition panic into *errp. It must be deferred
// directly. Panics that are not precondition violations are re-raised, so
// real bugs keep failing fast.
//
//	func (l *Library) Offset(h Handle, d float64) (err error) {
//		defer kernel.Recover(&err)
//		...
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if pe, ok := r.(*PreconditionError); ok {
		*errp = pe
		return
	}
	panic(r)
}
