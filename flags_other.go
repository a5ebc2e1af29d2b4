//go:build !(darwin || linux)

package namedsem

import "syscall"

// Linux values, so code written against the constants still builds. Every
// syscall on these platforms returns ErrSemaphoreNotAvailable.
const (
	O_RDONLY = 0x0
	O_RDWR   = 0x2
	O_CREAT  = 0x40
	O_EXCL   = 0x80
	O_TRUNC  = 0x200
)

const (
	S_IRUSR = 0x100
	S_IWUSR = 0x80
	S_IRGRP = 0x20
	S_IWGRP = 0x10
	S_IROTH = 0x4
	S_IWOTH = 0x2
)

func errnoName(e syscall.Errno) string {
	return "E?"
}
