package namedsem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/puzpuzpuz/xsync"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Host operation names.
const (
	OpOpen      = "open"
	OpWait      = "wait"
	OpPost      = "post"
	OpClose     = "close"
	OpUnlink    = "unlink"
	OpTryWait   = "trywait"
	OpTimedWait = "timedwait"
	OpRelease   = "release"
	OpConstants = "constants"
)

type signature struct {
	arity     int
	signature string
}

var signatures = map[string]signature{
	OpOpen:      {4, "(name: string, oflag: number, mode: number, value: number)"},
	OpWait:      {1, "(sem: buffer)"},
	OpPost:      {1, "(sem: buffer)"},
	OpClose:     {1, "(sem: buffer)"},
	OpUnlink:    {1, "(name: string)"},
	OpTryWait:   {1, "(sem: buffer)"},
	OpTimedWait: {2, "(sem: buffer, timeoutMs: number)"},
	OpRelease:   {1, "(sem: buffer)"},
	OpConstants: {0, "()"},
}

// ErrUnknownOperation is returned by Call for an operation name it does not export.
var ErrUnknownOperation = errors.New("unknown operation")

// ErrBindingClosed is returned by every operation after Binding.Shutdown.
var ErrBindingClosed = errors.New("binding is closed")

// Binding exposes named semaphores to a host that speaks in dynamically typed
// values. Semaphores opened through it are handed out as handle buffers
// (see EncodeHandle) and stay open until the host closes or releases them, or
// until the Binding is shut down. A buffer returned by Open or Call that is
// garbage collected while still open is released as if the host had called
// release.
//
// Binding is safe for concurrent use.
type Binding struct {
	opts    *options
	table   *handleTable
	waiters *semaphore.Weighted
	closed  atomic.Bool

	// namesMu orders counter changes with entry removal; reads go lock-free.
	namesMu sync.Mutex
	names   *xsync.MapOf[string, *xsync.Counter]
}

// NewBinding creates an empty binding.
func NewBinding(opts ...Option) *Binding {
	o := newOptions(opts)
	return &Binding{
		opts:    o,
		table:   newHandleTable(),
		names:   xsync.NewMapOf[*xsync.Counter](),
		waiters: semaphore.NewWeighted(o.maxPendingWaits),
	}
}

// Constants returns the integer constants exported to hosts.
func Constants() map[string]int {
	return map[string]int{
		"O_RDONLY": O_RDONLY,
		"O_RDWR":   O_RDWR,
		"O_CREAT":  O_CREAT,
		"O_EXCL":   O_EXCL,
		"O_TRUNC":  O_TRUNC,
		"S_IRUSR":  S_IRUSR,
		"S_IWUSR":  S_IWUSR,
		"S_IRGRP":  S_IRGRP,
		"S_IWGRP":  S_IWGRP,
		"S_IROTH":  S_IROTH,
		"S_IWOTH":  S_IWOTH,
	}
}

// Operations returns the exported operation names, sorted.
func Operations() []string {
	ops := lo.Keys(signatures)
	sort.Strings(ops)
	return ops
}

// Call validates args against the signature of op and runs it. Results are
// a []byte handle buffer for open, a bool for trywait and timedwait, the
// constant map for constants, and nil otherwise.
//
// wait blocks the calling goroutine; use WaitAsync to wait off the caller's
// goroutine.
func (b *Binding) Call(ctx context.Context, op string, args ...interface{}) (interface{}, error) {
	return b.call(ctx, op, args, true)
}

// call dispatches op. collectable ties the lifetime of an opened handle to the
// returned buffer; a Session passes false because its host keeps the handle
// on the far side of the pipe.
func (b *Binding) call(ctx context.Context, op string, args []interface{}, collectable bool) (interface{}, error) {
	sig, ok := signatures[op]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	if len(args) != sig.arity {
		return nil, argumentError(op, "")
	}

	switch op {
	case OpOpen:
		name, err := stringArg(op, args, 0, "name")
		if err != nil {
			return nil, err
		}
		oflag, err := intArg(op, args, 1, "oflag", math.MinInt32, math.MaxInt32)
		if err != nil {
			return nil, err
		}
		mode, err := intArg(op, args, 2, "mode", math.MinInt32, math.MaxInt32)
		if err != nil {
			return nil, err
		}
		value, err := intArg(op, args, 3, "value", 0, math.MaxUint32)
		if err != nil {
			return nil, err
		}
		return b.open(name, int(oflag), int(mode), uint32(value), collectable)

	case OpUnlink:
		name, err := stringArg(op, args, 0, "name")
		if err != nil {
			return nil, err
		}
		return nil, b.Unlink(name)

	case OpConstants:
		return Constants(), nil

	case OpTimedWait:
		buf, err := bufferArg(op, args, 0)
		if err != nil {
			return nil, err
		}
		ms, err := intArg(op, args, 1, "timeoutMs", 0, math.MaxInt32)
		if err != nil {
			return nil, err
		}
		return b.WaitTimeout(buf, time.Duration(ms)*time.Millisecond)
	}

	buf, err := bufferArg(op, args, 0)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpWait:
		return nil, b.WaitContext(ctx, buf)
	case OpPost:
		return nil, b.Post(buf)
	case OpClose:
		return nil, b.Close(buf)
	case OpTryWait:
		return b.TryWait(buf)
	case OpRelease:
		b.Release(buf)
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
}

// Open opens the named semaphore and returns its handle buffer.
func (b *Binding) Open(name string, oflag, mode int, value uint32) ([]byte, error) {
	return b.open(name, oflag, mode, value, true)
}

func (b *Binding) open(name string, oflag, mode int, value uint32, collectable bool) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrBindingClosed
	}

	sem, err := openSemaphore(name, oflag, mode, value, b.opts)
	if err != nil {
		return nil, err
	}

	b.addName(name)
	sem.st.onClose = func() { b.removeName(name) }

	h, ok := b.table.insert(sem)
	if !ok {
		sem.release("handle table full")
		return nil, &OsError{Op: opSemOpen, Errno: syscall.EMFILE}
	}
	sem.handle = h
	if b.closed.Load() {
		b.Release(EncodeHandle(h))
		return nil, ErrBindingClosed
	}

	buf := EncodeHandle(h)
	if collectable {
		runtime.AddCleanup(&buf[0], b.collectHandle, h)
	}

	b.opts.logger.Debug().Str("name", name).Uint64("handle", uint64(h)).Msg("semaphore opened")
	return buf, nil
}

func (b *Binding) addName(name string) {
	b.namesMu.Lock()
	defer b.namesMu.Unlock()
	count, _ := b.names.LoadOrStore(name, &xsync.Counter{})
	count.Inc()
}

func (b *Binding) removeName(name string) {
	b.namesMu.Lock()
	defer b.namesMu.Unlock()
	count, ok := b.names.Load(name)
	if !ok {
		return
	}
	count.Dec()
	if count.Value() <= 0 {
		b.names.Delete(name)
	}
}

// Wait blocks until the semaphore behind buf can be decremented.
func (b *Binding) Wait(buf []byte) error {
	sem, err := b.resolve(OpWait, buf)
	if err != nil {
		return err
	}
	return sem.Wait()
}

// WaitContext is Wait with cancellation.
func (b *Binding) WaitContext(ctx context.Context, buf []byte) error {
	sem, err := b.resolve(OpWait, buf)
	if err != nil {
		return err
	}
	return sem.WaitContext(ctx)
}

// WaitAsync waits on a worker goroutine and delivers the result on the
// returned channel, which receives exactly one value. At most
// MaxPendingWaits waits run at once; the rest queue for a worker.
func (b *Binding) WaitAsync(ctx context.Context, buf []byte) <-chan error {
	done := make(chan error, 1)

	sem, err := b.resolve(OpWait, buf)
	if err != nil {
		done <- err
		return done
	}

	go func() {
		if err := b.waiters.Acquire(ctx, 1); err != nil {
			done <- err
			return
		}
		defer b.waiters.Release(1)
		done <- sem.WaitContext(ctx)
	}()
	return done
}

// TryWait decrements the semaphore if possible without blocking.
func (b *Binding) TryWait(buf []byte) (bool, error) {
	sem, err := b.resolve(OpTryWait, buf)
	if err != nil {
		return false, err
	}
	return sem.TryWait()
}

// WaitTimeout waits at most timeout and reports whether the semaphore was taken.
func (b *Binding) WaitTimeout(buf []byte, timeout time.Duration) (bool, error) {
	sem, err := b.resolve(OpTimedWait, buf)
	if err != nil {
		return false, err
	}
	return sem.WaitTimeout(timeout)
}

// Post increments the semaphore behind buf.
func (b *Binding) Post(buf []byte) error {
	sem, err := b.resolve(OpPost, buf)
	if err != nil {
		return err
	}
	return sem.Post()
}

// Close closes the semaphore behind buf and invalidates buf. Closing the same
// buffer again fails with *InvalidHandleError.
func (b *Binding) Close(buf []byte) error {
	h, err := decodeHandle(OpClose, buf)
	if err != nil {
		return err
	}
	sem, err := b.table.remove(OpClose, h)
	if err != nil {
		return err
	}
	return sem.Close()
}

// Unlink removes the semaphore name from the system.
func (b *Binding) Unlink(name string) error {
	if b.closed.Load() {
		return ErrBindingClosed
	}
	if err := validateName(OpUnlink, name); err != nil {
		return err
	}
	return osError(opSemUnlink, b.opts.sys.Unlink(name))
}

// Release is called when the host no longer references buf. If buf is still
// open its semaphore is closed; anything else, including a buffer that was
// already closed, is ignored.
func (b *Binding) Release(buf []byte) {
	h, err := decodeHandle(OpRelease, buf)
	if err != nil {
		b.opts.logger.Debug().Err(err).Msg("release ignored")
		return
	}
	b.releaseHandle(h, "released by host")
}

func (b *Binding) collectHandle(h Handle) {
	b.releaseHandle(h, "handle buffer collected")
}

func (b *Binding) releaseHandle(h Handle, reason string) {
	sem, err := b.table.remove(OpRelease, h)
	if err != nil {
		b.opts.logger.Debug().Err(err).Str("reason", reason).Msg("release ignored")
		return
	}
	sem.release(reason)
}

// Len returns the number of open handles.
func (b *Binding) Len() int {
	return b.table.size()
}

// OpenNames returns the names with at least one open handle, sorted.
func (b *Binding) OpenNames() []string {
	var names []string
	b.names.Range(func(name string, _ *xsync.Counter) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Shutdown releases every handle still open and makes further calls fail
// with ErrBindingClosed. Names are not unlinked. This is the binding's
// equivalent of the host process exiting.
func (b *Binding) Shutdown() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	sems := b.table.drain()
	var g errgroup.Group
	for _, sem := range sems {
		g.Go(func() error {
			sem.release("binding shutdown")
			return nil
		})
	}
	err := g.Wait()

	b.opts.logger.Debug().Int("released", len(sems)).Msg("binding shut down")
	return err
}

func (b *Binding) resolve(op string, buf []byte) (*Semaphore, error) {
	if b.closed.Load() {
		return nil, ErrBindingClosed
	}
	h, err := decodeHandle(op, buf)
	if err != nil {
		return nil, err
	}
	return b.table.lookup(op, h)
}

func argumentError(op, reason string) *ArgumentError {
	sig := signatures[op]
	return &ArgumentError{Op: op, Arity: sig.arity, Signature: sig.signature, Reason: reason}
}

func stringArg(op string, args []interface{}, i int, name string) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", argumentError(op, fmt.Sprintf("%s must be a string, got %T", name, args[i]))
	}
	return s, nil
}

func bufferArg(op string, args []interface{}, i int) ([]byte, error) {
	buf, ok := args[i].([]byte)
	if !ok {
		return nil, argumentError(op, fmt.Sprintf("sem must be a buffer, got %T", args[i]))
	}
	return buf, nil
}

// intArg accepts every Go integer kind and integral floats, since hosts such
// as JavaScript only have doubles.
func intArg(op string, args []interface{}, i int, name string, lower, upper int64) (int64, error) {
	var v int64
	switch n := args[i].(type) {
	case int:
		v = int64(n)
	case int8:
		v = int64(n)
	case int16:
		v = int64(n)
	case int32:
		v = int64(n)
	case int64:
		v = n
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, argumentError(op, fmt.Sprintf("%s out of range", name))
		}
		v = int64(n)
	case uint8:
		v = int64(n)
	case uint16:
		v = int64(n)
	case uint32:
		v = int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return 0, argumentError(op, fmt.Sprintf("%s out of range", name))
		}
		v = int64(n)
	case float32:
		return floatArg(op, float64(n), name, lower, upper)
	case float64:
		return floatArg(op, n, name, lower, upper)
	default:
		return 0, argumentError(op, fmt.Sprintf("%s must be a number, got %T", name, args[i]))
	}
	if v < lower || v > upper {
		return 0, argumentError(op, fmt.Sprintf("%s out of range", name))
	}
	return v, nil
}

func floatArg(op string, f float64, name string, lower, upper int64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, argumentError(op, fmt.Sprintf("%s must be an integer", name))
	}
	if f < float64(lower) || f > float64(upper) {
		return 0, argumentError(op, fmt.Sprintf("%s out of range", name))
	}
	return int64(f), nil
}
