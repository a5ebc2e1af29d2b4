//go:build (darwin || linux) && cgo

package namedsem

/*
#cgo linux LDFLAGS: -pthread
#include <fcntl.h>
#include <semaphore.h>
#include <stdint.h>
#include <stdlib.h>

// sem_open is variadic, which cgo cannot call directly. Handles cross into Go
// as uintptr_t so Go never holds a C pointer it could mistake for its own.
static uintptr_t namedsem_open(const char *name, int oflag, unsigned int mode, unsigned int value) {
	sem_t *s = sem_open(name, oflag, (mode_t)mode, value);
	if (s == SEM_FAILED) {
		return 0;
	}
	return (uintptr_t)s;
}

static int namedsem_wait(uintptr_t h) {
	return sem_wait((sem_t *)h);
}

static int namedsem_trywait(uintptr_t h) {
	return sem_trywait((sem_t *)h);
}

static int namedsem_post(uintptr_t h) {
	return sem_post((sem_t *)h);
}

static int namedsem_close(uintptr_t h) {
	return sem_close((sem_t *)h);
}
*/
import "C"

import (
	"syscall"
	"unsafe"
)

// posixSyscalls calls the real syscalls through cgo. The two-value cgo call
// form clears errno before the call and returns it afterwards on the same
// thread, so the code can never be stale or belong to another call.
type posixSyscalls struct{}

// DefaultSyscalls returns the platform implementation of Syscalls.
func DefaultSyscalls() Syscalls {
	return posixSyscalls{}
}

func (posixSyscalls) Open(name string, oflag, mode int, value uint32) (uintptr, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	h, err := C.namedsem_open(cname, C.int(oflag), C.uint(mode), C.uint(value))
	if h == 0 {
		return 0, errnoOrEINVAL(err)
	}
	return uintptr(h), nil
}

func (posixSyscalls) Wait(h uintptr) error {
	r, err := C.namedsem_wait(C.uintptr_t(h))
	return resultErr(r, err)
}

func (posixSyscalls) TryWait(h uintptr) error {
	r, err := C.namedsem_trywait(C.uintptr_t(h))
	return resultErr(r, err)
}

func (posixSyscalls) Post(h uintptr) error {
	r, err := C.namedsem_post(C.uintptr_t(h))
	return resultErr(r, err)
}

func (posixSyscalls) Close(h uintptr) error {
	r, err := C.namedsem_close(C.uintptr_t(h))
	return resultErr(r, err)
}

func (posixSyscalls) Unlink(name string) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	r, err := C.sem_unlink(cname)
	return resultErr(r, err)
}

func resultErr(r C.int, err error) error {
	if r == 0 {
		return nil
	}
	return errnoOrEINVAL(err)
}

// errnoOrEINVAL covers a failing call that left errno at zero, which POSIX
// does not allow but some libcs have done.
func errnoOrEINVAL(err error) error {
	if err == nil {
		return syscall.EINVAL
	}
	return err
}
