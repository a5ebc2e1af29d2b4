//go:build darwin && cgo

package namedsem

import (
	"syscall"
	"time"
)

// darwin has no sem_timedwait; poll sem_trywait with a capped backoff.
func (p posixSyscalls) TimedWait(h uintptr, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := 100 * time.Microsecond
	for {
		err := p.TryWait(h)
		if err == nil || !isErrno(err, syscall.EAGAIN) {
			return err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return syscall.ETIMEDOUT
		}
		time.Sleep(min(backoff, remaining))
		backoff = min(backoff*2, 10*time.Millisecond)
	}
}
