package namedsem

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// DefaultMaxFrameSize caps a single frame. Semaphore requests are tiny;
	// anything near this is a desynchronized stream.
	DefaultMaxFrameSize = 1 << 20

	frameHeaderSize = 4
	pooledFrameSize = 512
	pooledFrames    = 16
)

// MsgpackSerializer encodes session messages as MessagePack. Handle buffers
// travel as bin values and come back as []byte.
type MsgpackSerializer struct{}

func (MsgpackSerializer) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackSerializer) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// FrameTransport sends length-prefixed frames: a 4-byte big-endian length,
// then the payload.
type FrameTransport struct {
	reader       io.ReadCloser
	writer       io.WriteCloser
	buffered     *bufio.Writer
	pool         *framePool
	maxFrameSize int
}

// NewFrameTransport wraps a reader and writer, typically a pair of pipes or
// stdin and stdout. maxFrameSize <= 0 selects DefaultMaxFrameSize.
func NewFrameTransport(reader io.ReadCloser, writer io.WriteCloser, maxFrameSize int) *FrameTransport {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &FrameTransport{
		reader:       reader,
		writer:       writer,
		buffered:     bufio.NewWriter(writer),
		pool:         newFramePool(pooledFrameSize, pooledFrames),
		maxFrameSize: maxFrameSize,
	}
}

func (t *FrameTransport) Send(data []byte) error {
	if len(data) > t.maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", len(data), t.maxFrameSize)
	}

	var header [frameHeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := t.buffered.Write(header[:]); err != nil {
		return err
	}
	if _, err := t.buffered.Write(data); err != nil {
		return err
	}
	return t.buffered.Flush()
}

func (t *FrameTransport) Receive() ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(t.reader, header[:]); err != nil {
		return nil, err
	}

	length := int(binary.BigEndian.Uint32(header[:]))
	if length > t.maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", length, t.maxFrameSize)
	}

	if length > t.pool.size {
		data := make([]byte, length)
		if _, err := io.ReadFull(t.reader, data); err != nil {
			return nil, unexpectedEOF(err)
		}
		return data, nil
	}

	buf := t.pool.get()[:length]
	defer t.pool.put(buf)
	if _, err := io.ReadFull(t.reader, buf); err != nil {
		return nil, unexpectedEOF(err)
	}

	// the pooled buffer goes back; the caller keeps a copy
	data := make([]byte, length)
	copy(data, buf)
	return data, nil
}

func (t *FrameTransport) Flush() error {
	return t.buffered.Flush()
}

func (t *FrameTransport) Close() error {
	flushErr := t.buffered.Flush()
	if err := t.reader.Close(); err != nil {
		return err
	}
	if err := t.writer.Close(); err != nil {
		return err
	}
	return flushErr
}

// unexpectedEOF reports a stream cut inside a frame as such, so callers only
// treat io.EOF at a frame boundary as a clean hang-up.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
