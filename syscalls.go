package namedsem

import "time"

// Syscalls is the named-semaphore syscall family. Implementations are stateless
// and must return the errno of a failing call as a syscall.Errno, captured by
// the call itself rather than read back from thread state afterwards.
//
// The uintptr handles are OS semaphore pointers. They never leave this package.
type Syscalls interface {
	// Open calls sem_open. The handle is non-zero on success.
	Open(name string, oflag, mode int, value uint32) (uintptr, error)

	// Wait calls sem_wait once. EINTR is returned to the caller, not retried.
	Wait(h uintptr) error

	// TryWait calls sem_trywait. EAGAIN means the count was zero.
	TryWait(h uintptr) error

	// TimedWait waits at most timeout. ETIMEDOUT means the timeout elapsed.
	TimedWait(h uintptr, timeout time.Duration) error

	// Post calls sem_post.
	Post(h uintptr) error

	// Close calls sem_close.
	Close(h uintptr) error

	// Unlink calls sem_unlink.
	Unlink(name string) error
}

// Syscall names used in OsError.Op.
const (
	opSemOpen      = "sem_open"
	opSemWait      = "sem_wait"
	opSemTryWait   = "sem_trywait"
	opSemTimedWait = "sem_timedwait"
	opSemPost      = "sem_post"
	opSemClose     = "sem_close"
	opSemUnlink    = "sem_unlink"
)
