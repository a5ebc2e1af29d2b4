package namedsem

import (
	"sync"
	"syscall"
	"time"
)

// fakeSyscalls is an in-memory semaphore namespace. It counts every call and
// treats a close of an unknown handle as EINVAL, so double closes show up.
type fakeSyscalls struct {
	mu      sync.Mutex
	objects map[string]*fakeObject
	handles map[uintptr]*fakeObject
	next    uintptr
	calls   map[string]int
	faults  map[string][]error
}

type fakeObject struct {
	name   string
	tokens chan struct{}
}

func newFakeSyscalls() *fakeSyscalls {
	return &fakeSyscalls{
		objects: map[string]*fakeObject{},
		handles: map[uintptr]*fakeObject{},
		next:    0x1000,
		calls:   map[string]int{},
		faults:  map[string][]error{},
	}
}

func (f *fakeSyscalls) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeSyscalls) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeSyscalls) openHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

// fail queues errors that the next calls of op return before doing anything.
func (f *fakeSyscalls) fail(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = append(f.faults[op], errs...)
}

// signal posts to name behind every handle's back.
func (f *fakeSyscalls) signal(name string) {
	f.mu.Lock()
	obj := f.objects[name]
	f.mu.Unlock()
	obj.tokens <- struct{}{}
}

func (f *fakeSyscalls) fault(op string) error {
	if q := f.faults[op]; len(q) > 0 {
		f.faults[op] = q[1:]
		return q[0]
	}
	return nil
}

func (f *fakeSyscalls) object(h uintptr, op string) (*fakeObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if err := f.fault(op); err != nil {
		return nil, err
	}
	obj, ok := f.handles[h]
	if !ok {
		return nil, syscall.EINVAL
	}
	return obj, nil
}

func (f *fakeSyscalls) Open(name string, oflag, mode int, value uint32) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["open"]++
	if err := f.fault("open"); err != nil {
		return 0, err
	}

	obj, exists := f.objects[name]
	switch {
	case exists && oflag&O_CREAT != 0 && oflag&O_EXCL != 0:
		return 0, syscall.EEXIST
	case !exists && oflag&O_CREAT == 0:
		return 0, syscall.ENOENT
	case !exists:
		obj = &fakeObject{name: name, tokens: make(chan struct{}, 1024)}
		for i := uint32(0); i < value; i++ {
			obj.tokens <- struct{}{}
		}
		f.objects[name] = obj
	}

	f.next += 0x40
	f.handles[f.next] = obj
	return f.next, nil
}

func (f *fakeSyscalls) Wait(h uintptr) error {
	obj, err := f.object(h, "wait")
	if err != nil {
		return err
	}
	<-obj.tokens
	return nil
}

func (f *fakeSyscalls) TryWait(h uintptr) error {
	obj, err := f.object(h, "trywait")
	if err != nil {
		return err
	}
	select {
	case <-obj.tokens:
		return nil
	default:
		return syscall.EAGAIN
	}
}

func (f *fakeSyscalls) TimedWait(h uintptr, timeout time.Duration) error {
	obj, err := f.object(h, "timedwait")
	if err != nil {
		return err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-obj.tokens:
		return nil
	case <-timer.C:
		return syscall.ETIMEDOUT
	}
}

func (f *fakeSyscalls) Post(h uintptr) error {
	obj, err := f.object(h, "post")
	if err != nil {
		return err
	}
	select {
	case obj.tokens <- struct{}{}:
		return nil
	default:
		return syscall.EOVERFLOW
	}
}

func (f *fakeSyscalls) Close(h uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["close"]++
	if err := f.fault("close"); err != nil {
		delete(f.handles, h)
		return err
	}
	if _, ok := f.handles[h]; !ok {
		return syscall.EINVAL
	}
	delete(f.handles, h)
	return nil
}

func (f *fakeSyscalls) Unlink(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["unlink"]++
	if _, ok := f.objects[name]; !ok {
		return syscall.ENOENT
	}
	delete(f.objects, name)
	return nil
}
