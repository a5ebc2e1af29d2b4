//go:build linux && cgo

package namedsem

/*
#include <semaphore.h>
#include <stdint.h>
#include <time.h>

static int namedsem_timedwait(uintptr_t h, long long sec, long nsec) {
	struct timespec ts;
	ts.tv_sec = (time_t)sec;
	ts.tv_nsec = nsec;
	return sem_timedwait((sem_t *)h, &ts);
}
*/
import "C"

import "time"

// TimedWait uses sem_timedwait, whose deadline is absolute on CLOCK_REALTIME.
func (posixSyscalls) TimedWait(h uintptr, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	r, err := C.namedsem_timedwait(C.uintptr_t(h), C.longlong(deadline.Unix()), C.long(deadline.Nanosecond()))
	return resultErr(r, err)
}
