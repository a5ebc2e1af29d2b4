package namedsem

import (
	"sync"

	"github.com/rs/zerolog"
)

// semState owns one OS semaphore handle. It lives apart from *Semaphore so a
// GC cleanup attached to the Semaphore can still reach it.
//
// The only transition is open -> closed. Calls borrow the handle while they
// run; a close that arrives while a call is in flight only marks the state,
// and the last borrower out performs the sem_close. The OS close therefore
// runs exactly once and never concurrently with another syscall on the handle.
type semState struct {
	name   string
	h      uintptr
	sys    Syscalls
	logger zerolog.Logger

	mu        sync.Mutex
	closed    bool
	borrowers int

	// onClose runs once, after the OS close.
	onClose func()
}

func (s *semState) borrow(op string, handle Handle) (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, &InvalidHandleError{Op: op, Handle: handle, Err: ErrClosed}
	}
	s.borrowers++
	return s.h, nil
}

func (s *semState) giveBack() {
	s.mu.Lock()
	s.borrowers--
	last := s.closed && s.borrowers == 0
	s.mu.Unlock()

	if last {
		if err := s.closeOS(); err != nil {
			s.logger.Warn().Err(err).Str("name", s.name).Msg("deferred close failed")
		}
	}
}

// close moves the state to closed. It reports false if it was already closed.
func (s *semState) close() (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, nil
	}
	s.closed = true
	inFlight := s.borrowers > 0
	s.mu.Unlock()

	if inFlight {
		s.logger.Debug().Str("name", s.name).Msg("close deferred until in-flight calls return")
		return true, nil
	}
	return true, s.closeOS()
}

func (s *semState) closeOS() error {
	err := osError(opSemClose, s.sys.Close(s.h))
	if s.onClose != nil {
		s.onClose()
	}
	return err
}

// reclaim is the implicit close: the owner is gone, so errors have nowhere to
// go and are only logged.
func (s *semState) reclaim(reason string) {
	performed, err := s.close()
	switch {
	case !performed:
		s.logger.Debug().Str("name", s.name).Str("reason", reason).Msg("implicit close skipped, already closed")
	case err != nil:
		s.logger.Debug().Err(err).Str("name", s.name).Str("reason", reason).Msg("implicit close failed")
	default:
		s.logger.Debug().Str("name", s.name).Str("reason", reason).Msg("implicit close")
	}
}

func (s *semState) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func reclaimOnCollect(s *semState) {
	s.reclaim("collected")
}
