package namedsem

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrSemaphoreNotAvailable is returned by every syscall when the package was
	// built without CGO or for a platform without POSIX named semaphores.
	ErrSemaphoreNotAvailable = errors.New("named semaphores require CGO on linux or darwin; rebuild with CGO_ENABLED=1")

	// ErrClosed reports use of a semaphore or handle after it was closed or released.
	ErrClosed = errors.New("semaphore is closed")

	// ErrNullHandle reports a handle buffer that decodes to zero.
	ErrNullHandle = errors.New("null semaphore handle")

	// ErrSentinelHandle reports a handle buffer holding the failure sentinel.
	ErrSentinelHandle = errors.New("semaphore handle is the failure sentinel")
)

// ArgumentError reports a host call with the wrong number or primitive type of
// arguments. It is raised before any syscall is made.
type ArgumentError struct {
	// Op is the operation that was called.
	Op string

	// Signature describes the expected arguments, e.g. "(sem: buffer)".
	Signature string

	// Arity is the number of arguments the operation expects.
	Arity int

	// Reason names the offending argument, if one was identified.
	Reason string
}

func (e *ArgumentError) Error() string {
	noun := "args"
	if e.Arity == 1 {
		noun = "arg"
	}
	msg := fmt.Sprintf("%s() expects %d %s: %s", e.Op, e.Arity, noun, e.Signature)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// MalformedHandleError reports a handle buffer whose length is not HandleSize.
type MalformedHandleError struct {
	Op     string
	Length int
}

func (e *MalformedHandleError) Error() string {
	return fmt.Sprintf("%s: malformed semaphore handle: got %d bytes, want %d", e.Op, e.Length, HandleSize)
}

// InvalidHandleError reports a well-formed handle that does not name a live
// semaphore: null, the failure sentinel, or already closed.
type InvalidHandleError struct {
	Op     string
	Handle Handle
	Err    error
}

func (e *InvalidHandleError) Error() string {
	return fmt.Sprintf("%s: invalid semaphore handle %#x: %v", e.Op, uintptr(e.Handle), e.Err)
}

func (e *InvalidHandleError) Unwrap() error {
	return e.Err
}

// OsError is a failed semaphore syscall. The errno is the one captured by the
// failing call itself.
//
// Use errors.As to branch on the code:
//
//	var osErr *namedsem.OsError
//	if errors.As(err, &osErr) && osErr.Errno == unix.EEXIST {
//	    // someone else created it first
//	}
type OsError struct {
	// Op is the syscall name, e.g. "sem_open".
	Op string

	// Errno is the OS error number.
	Errno syscall.Errno
}

func (e *OsError) Error() string {
	return fmt.Sprintf("%s: %s (errno %d): %s", e.Op, errnoName(e.Errno), int(e.Errno), e.Errno.Error())
}

// Code returns the numeric OS error code.
func (e *OsError) Code() int {
	return int(e.Errno)
}

// Unwrap exposes the errno so errors.Is(err, unix.EEXIST) and
// errors.Is(err, os.ErrExist) both work.
func (e *OsError) Unwrap() error {
	return e.Errno
}

// osError translates the error returned by a Syscalls method into the package
// taxonomy. Errors that are not errnos (ErrSemaphoreNotAvailable, fakes) pass
// through unchanged.
func osError(op string, err error) error {
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &OsError{Op: op, Errno: errno}
	}
	return err
}

// isErrno reports whether err is the errno e, whether raw or translated.
func isErrno(err error, e syscall.Errno) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == e
}
