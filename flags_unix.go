//go:build darwin || linux

package namedsem

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// Open flags for Open and the host "open" operation. These are the OS values,
// passed through to sem_open unchanged.
const (
	O_RDONLY = unix.O_RDONLY
	O_RDWR   = unix.O_RDWR
	O_CREAT  = unix.O_CREAT
	O_EXCL   = unix.O_EXCL
	O_TRUNC  = unix.O_TRUNC
)

// Permission bits for the mode argument of Open.
const (
	S_IRUSR = unix.S_IRUSR
	S_IWUSR = unix.S_IWUSR
	S_IRGRP = unix.S_IRGRP
	S_IWGRP = unix.S_IWGRP
	S_IROTH = unix.S_IROTH
	S_IWOTH = unix.S_IWOTH
)

func errnoName(e syscall.Errno) string {
	if name := unix.ErrnoName(e); name != "" {
		return name
	}
	return "E?"
}
