package namedsem

import "sync"

// handleTable is an arena of live semaphores keyed by generation-checked
// handles. Freed slots are reused with the next generation, so a buffer kept
// after close can never reach the semaphore that later reuses its slot.
type handleTable struct {
	mu    sync.Mutex
	slots []tableSlot
	free  []uint32
	live  int
}

type tableSlot struct {
	generation uint32
	sem        *Semaphore
}

func newHandleTable() *handleTable {
	return &handleTable{}
}

func (t *handleTable) insert(sem *Semaphore) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		if uint32(len(t.slots)) >= maxSlot {
			return 0, false
		}
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, tableSlot{})
	}

	slot := &t.slots[idx]
	slot.generation = nextGeneration(slot.generation)
	slot.sem = sem
	t.live++
	return makeHandle(idx, slot.generation), true
}

// nextGeneration skips zero (null) and the all-ones value, which together with
// slot maxSlot would spell the sentinel.
func nextGeneration(g uint32) uint32 {
	g++
	if g == 0 || g >= maxGeneration {
		g = 1
	}
	return g
}

func (t *handleTable) lookup(op string, h Handle) (*Semaphore, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.slotFor(h)
	if !ok {
		return nil, &InvalidHandleError{Op: op, Handle: h, Err: ErrClosed}
	}
	return slot.sem, nil
}

func (t *handleTable) remove(op string, h Handle) (*Semaphore, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.slotFor(h)
	if !ok {
		return nil, &InvalidHandleError{Op: op, Handle: h, Err: ErrClosed}
	}
	sem := slot.sem
	slot.sem = nil
	t.free = append(t.free, h.slot())
	t.live--
	return sem, nil
}

func (t *handleTable) slotFor(h Handle) (*tableSlot, bool) {
	idx := h.slot()
	if idx >= uint32(len(t.slots)) {
		return nil, false
	}
	slot := &t.slots[idx]
	if slot.sem == nil || slot.generation != h.generation() {
		return nil, false
	}
	return slot, true
}

// drain empties the table and returns everything that was live.
func (t *handleTable) drain() []*Semaphore {
	t.mu.Lock()
	defer t.mu.Unlock()

	sems := make([]*Semaphore, 0, t.live)
	for idx := range t.slots {
		slot := &t.slots[idx]
		if slot.sem == nil {
			continue
		}
		sems = append(sems, slot.sem)
		slot.sem = nil
		t.free = append(t.free, uint32(idx))
	}
	t.live = 0
	return sems
}

func (t *handleTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}
