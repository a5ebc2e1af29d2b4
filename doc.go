// Package namedsem binds POSIX named semaphores (sem_open, sem_wait, sem_post,
// sem_close, sem_unlink) for Go programs and for hosts such as Python or
// JavaScript processes that drive them over a pipe.
//
// Named semaphores are kernel objects shared by name between unrelated
// processes. This package does no counting of its own; every wait and post is
// a syscall.
//
// # Go API
//
//	sem, err := namedsem.Open("/jobs", namedsem.O_CREAT, 0o600, 1)
//	if err != nil {
//	    return err
//	}
//	defer sem.Close()
//
//	if err := sem.Wait(); err != nil {
//	    return err
//	}
//	// critical section
//	sem.Post()
//
// A Semaphore owns its OS handle. Close is idempotent, and a Semaphore dropped
// without Close is closed when the garbage collector reclaims it. Unlink
// removes the name; handles already open keep working.
//
// # Host binding
//
// A Binding exposes the same operations to callers that only have dynamic
// values. Arguments are checked for count and type before any syscall, and a
// successful open returns a handle buffer: HandleSize bytes naming a slot in
// the binding's handle table, never the OS pointer. A buffer that outlives its
// semaphore is rejected instead of reaching freed memory.
//
//	b := namedsem.NewBinding()
//	buf, err := b.Call(ctx, "open", "/jobs", namedsem.O_CREAT, 0o600, 1)
//	_, err = b.Call(ctx, "post", buf)
//	_, err = b.Call(ctx, "close", buf)
//
// Operations: open, wait, post, close, unlink, trywait, timedwait, release
// and constants. The constants O_RDONLY, O_RDWR, O_CREAT, O_EXCL, O_TRUNC and
// the S_I* mode bits are the OS values.
//
// # Sessions
//
// Session serves a Binding over a Transport of length-prefixed MessagePack
// frames. Waits are answered from a bounded worker pool, so a blocked wait
// does not hold up the host's other requests. When the host disconnects, every handle it still
// holds is closed.
//
// # Errors
//
// Failures are *ArgumentError, *MalformedHandleError, *InvalidHandleError or
// *OsError. OsError keeps the failing syscall and its errno, and unwraps to
// the syscall.Errno so errors.Is(err, unix.EEXIST) works. HostException is the
// record a host receives.
//
// # Platform Support
//
// Linux and macOS with CGO. Elsewhere, or with CGO_ENABLED=0, every syscall
// returns ErrSemaphoreNotAvailable.
package namedsem
