package namedsem

import (
	"encoding/binary"
	"unsafe"
)

// HandleSize is the length in bytes of every handle buffer: the native pointer width.
const HandleSize = int(unsafe.Sizeof(uintptr(0)))

// Handle identifies an open semaphore to a host. It is an index into a Binding's
// handle table paired with a generation counter, never the OS semaphore pointer.
//
// The upper half of the word holds the slot index and the lower half the
// generation. Generation zero is never issued, so the zero Handle is always
// invalid; the all-ones value is reserved as the failure sentinel.
type Handle uintptr

const (
	handleHalfBits = HandleSize * 8 / 2
	generationMask = uintptr(1)<<handleHalfBits - 1

	// sentinelHandle mirrors SEM_FAILED: a value that is never issued.
	sentinelHandle = Handle(^uintptr(0))

	maxGeneration = uint32(generationMask)
	maxSlot       = uint32(generationMask)

	// handleAllocSize keeps handle buffers out of the tiny allocator, whose
	// shared blocks would stop a cleanup on one buffer from ever running.
	handleAllocSize = 16
)

func makeHandle(slot, generation uint32) Handle {
	return Handle(uintptr(slot)<<handleHalfBits | uintptr(generation)&generationMask)
}

func (h Handle) slot() uint32 {
	return uint32(uintptr(h) >> handleHalfBits)
}

func (h Handle) generation() uint32 {
	return uint32(uintptr(h) & generationMask)
}

// EncodeHandle copies h into a newly allocated HandleSize buffer in native byte order.
// The buffer is only meaningful to the process that produced it; never persist it.
func EncodeHandle(h Handle) []byte {
	buf := make([]byte, HandleSize, handleAllocSize)
	if HandleSize == 8 {
		binary.NativeEndian.PutUint64(buf, uint64(h))
	} else {
		binary.NativeEndian.PutUint32(buf, uint32(h))
	}
	return buf
}

// DecodeHandle reads a Handle back out of a buffer produced by EncodeHandle.
// It fails with *MalformedHandleError if the length is wrong and with
// *InvalidHandleError if the value is null or the failure sentinel. Whether the
// handle is still open is decided by the handle table, not here.
func DecodeHandle(buf []byte) (Handle, error) {
	return decodeHandle("decode", buf)
}

func decodeHandle(op string, buf []byte) (Handle, error) {
	if len(buf) != HandleSize {
		return 0, &MalformedHandleError{Op: op, Length: len(buf)}
	}

	var h Handle
	if HandleSize == 8 {
		h = Handle(binary.NativeEndian.Uint64(buf))
	} else {
		h = Handle(binary.NativeEndian.Uint32(buf))
	}

	switch h {
	case 0:
		return 0, &InvalidHandleError{Op: op, Handle: h, Err: ErrNullHandle}
	case sentinelHandle:
		return 0, &InvalidHandleError{Op: op, Handle: h, Err: ErrSentinelHandle}
	}
	return h, nil
}
