package namedsem

import (
	"context"
	"errors"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFake(t *testing.T, fake *fakeSyscalls, name string, value uint32) *Semaphore {
	t.Helper()
	sem, err := Open(name, O_CREAT, 0o600, value, WithSyscalls(fake), WithWaitPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	return sem
}

func TestSemaphoreCloseIsIdempotent(t *testing.T) {
	fake := newFakeSyscalls()
	sem := openFake(t, fake, "/idem", 0)

	require.NoError(t, sem.Close())
	require.NoError(t, sem.Close())
	assert.True(t, sem.Closed())
	assert.Equal(t, 1, fake.count("close"))

	err := sem.Post()
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = sem.TryWait()
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestSemaphoreCloseDuringWaitIsDeferred(t *testing.T) {
	fake := newFakeSyscalls()
	sem := openFake(t, fake, "/deferred", 0)

	waited := make(chan error, 1)
	go func() { waited <- sem.Wait() }()
	require.Eventually(t, func() bool { return fake.count("wait") == 1 }, time.Second, time.Millisecond)

	require.NoError(t, sem.Close())
	assert.Equal(t, 0, fake.count("close"), "close must wait for the blocked call")
	assert.True(t, errors.Is(sem.Post(), ErrClosed))

	fake.signal("/deferred")
	select {
	case err := <-waited:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return")
	}

	assert.Equal(t, 1, fake.count("close"))
	assert.Equal(t, 0, fake.openHandles())
}

func TestSemaphoreCollectedWhileOpenIsClosed(t *testing.T) {
	fake := newFakeSyscalls()
	func() {
		_ = openFake(t, fake, "/collected", 0)
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return fake.count("close") == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, fake.openHandles())
}

func TestSemaphoreClosedIsNotCollectedAgain(t *testing.T) {
	fake := newFakeSyscalls()
	func() {
		sem := openFake(t, fake, "/closed", 0)
		require.NoError(t, sem.Close())
	}()

	for i := 0; i < 3; i++ {
		runtime.GC()
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, fake.count("close"))
}

func TestSemaphoreRetriesEINTR(t *testing.T) {
	fake := newFakeSyscalls()
	sem := openFake(t, fake, "/eintr", 1)
	defer sem.Close()

	fake.fail("wait", syscall.EINTR, syscall.EINTR)
	require.NoError(t, sem.Wait())
	assert.Equal(t, 3, fake.count("wait"))

	require.NoError(t, sem.Post())
	fake.fail("trywait", syscall.EINTR)
	ok, err := sem.TryWait()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSemaphoreSurfacesErrno(t *testing.T) {
	fake := newFakeSyscalls()
	sem := openFake(t, fake, "/errno", 0)
	defer sem.Close()

	fake.fail("post", syscall.EOVERFLOW)
	err := sem.Post()

	var osErr *OsError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "sem_post", osErr.Op)
	assert.Equal(t, syscall.EOVERFLOW, osErr.Errno)
	assert.Contains(t, err.Error(), "sem_post: EOVERFLOW")
}

func TestSemaphoreCloseReportsOSFailureOnce(t *testing.T) {
	fake := newFakeSyscalls()
	sem := openFake(t, fake, "/badclose", 0)

	fake.fail("close", syscall.EINVAL)
	err := sem.Close()

	var osErr *OsError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "sem_close", osErr.Op)
	assert.NoError(t, sem.Close(), "a failed close still ends the semaphore")
	assert.Equal(t, 1, fake.count("close"))
}

func TestSemaphoreWaitTimeout(t *testing.T) {
	fake := newFakeSyscalls()
	sem := openFake(t, fake, "/timeout", 0)
	defer sem.Close()

	ok, err := sem.WaitTimeout(10 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, sem.Post())
	ok, err = sem.WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSemaphoreWaitContextDeadline(t *testing.T) {
	fake := newFakeSyscalls()
	sem := openFake(t, fake, "/deadline", 0)
	defer sem.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sem.WaitContext(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestOpenWithoutCreateReportsENOENT(t *testing.T) {
	fake := newFakeSyscalls()
	_, err := Open("/missing", O_RDWR, 0, 0, WithSyscalls(fake))

	var osErr *OsError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "sem_open", osErr.Op)
	assert.Equal(t, syscall.ENOENT, osErr.Errno)
}

func TestOpenAndUnlinkRejectBadNames(t *testing.T) {
	fake := newFakeSyscalls()

	_, err := Open("", O_CREAT, 0o600, 0, WithSyscalls(fake))
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Contains(t, err.Error(), "name cannot be blank")

	err = Unlink("/x\x00y", WithSyscalls(fake))
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, OpUnlink, argErr.Op)
	assert.Contains(t, err.Error(), "NUL")

	assert.Equal(t, 0, fake.total())
}

func TestSemaphoreCloseEndsWaitContext(t *testing.T) {
	fake := newFakeSyscalls()
	sem := openFake(t, fake, "/interrupted", 0)

	waited := make(chan error, 1)
	go func() { waited <- sem.WaitContext(context.Background()) }()
	require.Eventually(t, func() bool { return fake.count("timedwait") > 0 }, time.Second, time.Millisecond)

	require.NoError(t, sem.Close())
	select {
	case err := <-waited:
		assert.True(t, errors.Is(err, ErrClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("wait ignored close")
	}
	assert.Equal(t, 1, fake.count("close"))
}

func TestSemaphoreCloseEndsWaitTimeout(t *testing.T) {
	fake := newFakeSyscalls()
	sem := openFake(t, fake, "/interrupted-timed", 0)

	type result struct {
		ok  bool
		err error
	}
	waited := make(chan result, 1)
	go func() {
		ok, err := sem.WaitTimeout(time.Minute)
		waited <- result{ok, err}
	}()
	require.Eventually(t, func() bool { return fake.count("timedwait") > 0 }, time.Second, time.Millisecond)

	require.NoError(t, sem.Close())
	select {
	case r := <-waited:
		assert.False(t, r.ok)
		assert.True(t, errors.Is(r.err, ErrClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("timed wait ignored close")
	}
}

func TestSemaphoreWaitContextReportsWaitSyscall(t *testing.T) {
	fake := newFakeSyscalls()
	sem := openFake(t, fake, "/waitop", 0)
	defer sem.Close()

	fake.fail("timedwait", syscall.EINVAL)
	err := sem.WaitContext(context.Background())

	var osErr *OsError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "sem_wait", osErr.Op)

	fake.fail("timedwait", syscall.EINVAL)
	_, err = sem.WaitTimeout(time.Second)
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "sem_timedwait", osErr.Op)
}
