package catalog

import (
	"errors"
	"fmt"
)

// ErrRemoteNotFound marks a billing-provider 404. Deleting or deactivating an
// object that is already gone is treated as success by the synchronizer.
var ErrRemoteNotFound = errors.New("remote object not found")

// ErrProductNotSynced is returned when a price operation targets a product
// that has no remote counterpart yet.
var ErrProductNotSynced = errors.New("product not found or not synced with stripe")

// ValidationError rejects a payload before any side effect happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// RemoteError wraps a failed billing-provider call.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("stripe %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// LocalWriteError wraps a failed write-back of a remote identifier. This is
// the nastiest failure mode: the remote object exists but the local row does
// not point at it, so the event sender must replay the event.
type LocalWriteError struct {
	Op  string
	Err error
}

func (e *LocalWriteError) Error() string {
	return fmt.Sprintf("local write %s failed: %v", e.Op, e.Err)
}

func (e *LocalWriteError) Unwrap() error {
	return e.Err
}
