package namedsem

// framePool recycles frame buffers for a Transport so small requests do not
// allocate. A buffered channel is the free list: Get and Put never block.
type framePool struct {
	free chan []byte
	size int
}

func newFramePool(size, count int) *framePool {
	p := &framePool{
		free: make(chan []byte, count),
		size: size,
	}
	for i := 0; i < count; i++ {
		p.free <- make([]byte, size)
	}
	return p
}

// get returns a buffer of length size, allocating when the pool is empty.
func (p *framePool) get() []byte {
	select {
	case buf := <-p.free:
		return buf[:p.size]
	default:
		return make([]byte, p.size)
	}
}

// put hands a buffer back. Buffers of another capacity, or beyond what the
// pool holds, are left to the garbage collector.
func (p *framePool) put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	select {
	case p.free <- buf[:p.size]:
	default:
	}
}
