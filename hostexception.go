package namedsem

import (
	"errors"
	"fmt"
)

// Exception names reported to hosts.
const (
	ExcArgumentError        = "ArgumentError"
	ExcMalformedHandleError = "MalformedHandleError"
	ExcInvalidHandleError   = "InvalidHandleError"
	ExcOsError              = "OsError"
	ExcError                = "Error"
)

// HostException is the form an error takes when it crosses to a host: the
// host raises an exception of class Exception with Message, and can branch on
// Errno for OsError.
type HostException struct {
	// Exception is the error class, one of the Exc* names.
	Exception string `msgpack:"exception" json:"exception"`

	// Message is the full error string.
	Message string `msgpack:"message" json:"message"`

	// Op is the failing operation or syscall, when known.
	Op string `msgpack:"op,omitempty" json:"op,omitempty"`

	// Errno is the OS error number for OsError, zero otherwise.
	Errno int `msgpack:"errno,omitempty" json:"errno,omitempty"`
}

// NewHostException classifies err for a host. It returns nil for a nil error.
func NewHostException(err error) *HostException {
	if err == nil {
		return nil
	}

	ex := &HostException{Exception: ExcError, Message: err.Error()}

	var argErr *ArgumentError
	var malformed *MalformedHandleError
	var invalid *InvalidHandleError
	var osErr *OsError
	switch {
	case errors.As(err, &argErr):
		ex.Exception, ex.Op = ExcArgumentError, argErr.Op
	case errors.As(err, &malformed):
		ex.Exception, ex.Op = ExcMalformedHandleError, malformed.Op
	case errors.As(err, &invalid):
		ex.Exception, ex.Op = ExcInvalidHandleError, invalid.Op
	case errors.As(err, &osErr):
		ex.Exception, ex.Op, ex.Errno = ExcOsError, osErr.Op, osErr.Code()
	}
	return ex
}

func (e *HostException) Error() string {
	return fmt.Sprintf("%s: %s", e.Exception, e.Message)
}
