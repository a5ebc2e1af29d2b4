//go:build !cgo || !(darwin || linux)

package namedsem

import "time"

// unavailableSyscalls is used when CGO is disabled or the platform has no
// POSIX named semaphores. Every call returns ErrSemaphoreNotAvailable.
type unavailableSyscalls struct{}

// DefaultSyscalls returns the platform implementation of Syscalls.
func DefaultSyscalls() Syscalls {
	return unavailableSyscalls{}
}

func (unavailableSyscalls) Open(name string, oflag, mode int, value uint32) (uintptr, error) {
	return 0, ErrSemaphoreNotAvailable
}

func (unavailableSyscalls) Wait(h uintptr) error {
	return ErrSemaphoreNotAvailable
}

func (unavailableSyscalls) TryWait(h uintptr) error {
	return ErrSemaphoreNotAvailable
}

func (unavailableSyscalls) TimedWait(h uintptr, timeout time.Duration) error {
	return ErrSemaphoreNotAvailable
}

func (unavailableSyscalls) Post(h uintptr) error {
	return ErrSemaphoreNotAvailable
}

func (unavailableSyscalls) Close(h uintptr) error {
	return ErrSemaphoreNotAvailable
}

func (unavailableSyscalls) Unlink(name string) error {
	return ErrSemaphoreNotAvailable
}
