package namedsem

import (
	"context"
	"runtime"
	"syscall"
	"time"
)

// Semaphore is an open POSIX named semaphore, usable across unrelated processes
// that agree on the name.
//
// A Semaphore is the single owner of its OS handle. Close is idempotent, and a
// Semaphore that becomes unreachable while still open is closed by the garbage
// collector. Closing does not remove the name; use Unlink for that.
//
// Example:
//
//	sem, _ := namedsem.Open("/my_sem", namedsem.O_CREAT, 0o600, 1)
//	defer sem.Close()
//
//	sem.Wait()
//	// critical section
//	sem.Post()
//
// Semaphore is safe for concurrent use.
type Semaphore struct {
	st           *semState
	handle       Handle
	pollInterval time.Duration
	cleanup      runtime.Cleanup
}

// Open opens, or with O_CREAT creates, the named semaphore. mode and value are
// only used when the semaphore is created.
func Open(name string, oflag, mode int, value uint32, opts ...Option) (*Semaphore, error) {
	return openSemaphore(name, oflag, mode, value, newOptions(opts))
}

func openSemaphore(name string, oflag, mode int, value uint32, o *options) (*Semaphore, error) {
	if err := validateName("open", name); err != nil {
		return nil, err
	}

	h, err := o.sys.Open(name, oflag, mode, value)
	if err != nil {
		return nil, osError(opSemOpen, err)
	}

	s := &Semaphore{
		st: &semState{
			name:   name,
			h:      h,
			sys:    o.sys,
			logger: o.logger,
		},
		pollInterval: o.pollInterval,
	}
	s.cleanup = runtime.AddCleanup(s, reclaimOnCollect, s.st)
	return s, nil
}

// Unlink removes name from the system. Semaphores already open stay usable
// until their holders close them.
func Unlink(name string, opts ...Option) error {
	if err := validateName("unlink", name); err != nil {
		return err
	}
	return osError(opSemUnlink, newOptions(opts).sys.Unlink(name))
}

// Name returns the name the semaphore was opened with.
func (s *Semaphore) Name() string {
	return s.st.name
}

// Closed reports whether Close has been called.
func (s *Semaphore) Closed() bool {
	return s.st.isClosed()
}

// Wait blocks until the semaphore count can be decremented. It is a single
// sem_wait and cannot be interrupted; use WaitContext when another goroutine
// may Close the semaphore.
func (s *Semaphore) Wait() error {
	h, err := s.st.borrow("wait", s.handle)
	if err != nil {
		return err
	}
	defer s.st.giveBack()

	for {
		err := s.st.sys.Wait(h)
		if isErrno(err, syscall.EINTR) {
			continue
		}
		return osError(opSemWait, err)
	}
}

// TryWait decrements the semaphore if that can be done without blocking. It
// reports false when the count is zero.
func (s *Semaphore) TryWait() (bool, error) {
	h, err := s.st.borrow("trywait", s.handle)
	if err != nil {
		return false, err
	}
	defer s.st.giveBack()

	for {
		err := s.st.sys.TryWait(h)
		switch {
		case err == nil:
			return true, nil
		case isErrno(err, syscall.EINTR):
			continue
		case isErrno(err, syscall.EAGAIN):
			return false, nil
		}
		return false, osError(opSemTryWait, err)
	}
}

// WaitTimeout waits at most timeout. It reports false if the timeout elapsed.
// Like WaitContext it fails with ErrClosed once the semaphore is closed.
func (s *Semaphore) WaitTimeout(timeout time.Duration) (bool, error) {
	return s.pollWait(context.Background(), OpTimedWait, opSemTimedWait, time.Now().Add(timeout))
}

// WaitContext is Wait with cancellation. The wait is sliced into timed waits
// of the poll interval, so cancellation, and a Close from another goroutine,
// are noticed within one interval.
func (s *Semaphore) WaitContext(ctx context.Context) error {
	_, err := s.pollWait(ctx, OpWait, opSemWait, time.Time{})
	return err
}

// pollWait takes the semaphore in timed slices. A zero deadline waits until
// ctx ends. Close is noticed between slices, so a closed semaphore stops
// waiting within one poll interval.
func (s *Semaphore) pollWait(ctx context.Context, op, sysOp string, deadline time.Time) (bool, error) {
	h, err := s.st.borrow(op, s.handle)
	if err != nil {
		return false, err
	}
	defer s.st.giveBack()

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if s.st.isClosed() {
			return false, &InvalidHandleError{Op: op, Handle: s.handle, Err: ErrClosed}
		}

		slice := s.pollInterval
		if !deadline.IsZero() {
			slice = min(slice, max(time.Until(deadline), 0))
		}

		err := s.st.sys.TimedWait(h, slice)
		switch {
		case err == nil:
			return true, nil
		case isErrno(err, syscall.ETIMEDOUT):
			if !deadline.IsZero() && !time.Now().Before(deadline) {
				return false, nil
			}
			continue
		case isErrno(err, syscall.EINTR):
			continue
		}
		return false, osError(sysOp, err)
	}
}

// Post increments the semaphore, waking one waiter if any.
func (s *Semaphore) Post() error {
	h, err := s.st.borrow("post", s.handle)
	if err != nil {
		return err
	}
	defer s.st.giveBack()

	return osError(opSemPost, s.st.sys.Post(h))
}

// Close releases this process's handle. Calling Close again is a no-op. If
// another goroutine is blocked in Wait, the handle is released once that call
// returns; new calls fail with ErrClosed immediately.
func (s *Semaphore) Close() error {
	performed, err := s.st.close()
	if performed {
		s.cleanup.Stop()
	}
	return err
}

// release is the implicit close used when a host drops its handle.
func (s *Semaphore) release(reason string) {
	s.st.reclaim(reason)
	s.cleanup.Stop()
}
