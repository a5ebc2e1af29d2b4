package namedsem

// Serializer turns session messages into bytes and back.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// Transport moves whole frames between a Session and its host. Send may be
// called from several goroutines; a Session serializes those calls itself.
type Transport interface {
	// Send writes one frame.
	Send(data []byte) error

	// Receive reads one frame. It returns io.EOF when the host hangs up.
	Receive() ([]byte, error)

	// Flush pushes out anything buffered.
	Flush() error

	// Close closes both directions.
	Close() error
}
