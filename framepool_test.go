package namedsem

import (
	"sync"
	"testing"
)

// TestFramePoolConcurrent tests that framePool is safe for concurrent access.
func TestFramePoolConcurrent(t *testing.T) {
	pool := newFramePool(1024, 10)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := pool.get()
				if len(buf) != 1024 {
					t.Errorf("Expected buffer length 1024, got %d", len(buf))
				}
				buf[0] = byte(j)
				pool.put(buf)
			}
		}()
	}

	wg.Wait()
}

// TestFramePoolRestoresLength tests that a buffer put back resliced comes out full length.
func TestFramePoolRestoresLength(t *testing.T) {
	pool := newFramePool(64, 1)

	buf := pool.get()
	pool.put(buf[:3])

	if got := pool.get(); len(got) != 64 {
		t.Errorf("Expected buffer length 64, got %d", len(got))
	}
}

// TestFramePoolWrongSizeBuffer tests that buffers with the wrong capacity are discarded.
func TestFramePoolWrongSizeBuffer(t *testing.T) {
	pool := newFramePool(1024, 2)

	buf1 := pool.get()
	buf2 := pool.get()
	pool.put(buf1)
	pool.put(buf2)
	pool.put(make([]byte, 512))

	_ = pool.get()
	_ = pool.get()

	// the pool is empty now, so this one is fresh
	buf3 := pool.get()
	if cap(buf3) != 1024 {
		t.Errorf("Expected new buffer with capacity 1024, got %d", cap(buf3))
	}
}
