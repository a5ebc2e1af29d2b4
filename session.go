package namedsem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// request is one host call. Data holds the positional arguments.
type request struct {
	RequestID interface{}   `msgpack:"request_id"`
	Command   string        `msgpack:"command"`
	Data      []interface{} `msgpack:"data"`
}

type response struct {
	RequestID interface{}    `msgpack:"request_id"`
	Result    interface{}    `msgpack:"result"`
	Error     *HostException `msgpack:"error,omitempty"`
}

// Session serves a Binding to one host over a Transport.
//
// Requests are handled in arrival order on the receive loop, except wait and
// timedwait, which queue for at most MaxPendingWaits workers and are answered
// when they finish. A host can therefore post from the same session that another
// of its requests is waiting on. Responses carry the request_id of the
// request they answer.
//
// When the host hangs up or the context ends, outstanding waits are cancelled
// and every handle the host still holds is released.
type Session struct {
	binding    *Binding
	transport  Transport
	serializer Serializer
	logger     zerolog.Logger

	sendMu sync.Mutex

	waitMu      sync.Mutex
	waitQueue   []request
	waitWorkers int
}

// NewSession pairs a binding with a transport. Messages are MessagePack.
func NewSession(binding *Binding, transport Transport, logger zerolog.Logger) *Session {
	return &Session{
		binding:    binding,
		transport:  transport,
		serializer: MsgpackSerializer{},
		logger:     logger,
	}
}

// Serve runs the receive loop until the host hangs up (nil), the context is
// cancelled (nil), or the transport fails.
func (s *Session) Serve(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)

	// a blocked Receive only returns once the transport is closed
	go func() {
		<-ctx.Done()
		_ = s.transport.Close()
	}()

	var waits errgroup.Group
	defer func() {
		cancel()
		_ = waits.Wait()
		if shutdownErr := s.binding.Shutdown(); err == nil {
			err = shutdownErr
		}
	}()

	s.logger.Info().Msg("session started")
	for {
		frame, recvErr := s.transport.Receive()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) || ctx.Err() != nil {
				s.logger.Info().Msg("session ended")
				return nil
			}
			return fmt.Errorf("receive request: %w", recvErr)
		}

		var req request
		if err := s.serializer.Unmarshal(frame, &req); err != nil {
			s.logger.Warn().Err(err).Msg("dropping undecodable request")
			continue
		}
		if req.RequestID == nil {
			s.logger.Warn().Str("command", req.Command).Msg("request without request_id")
		}

		switch req.Command {
		case OpWait, OpTimedWait:
			s.enqueueWait(ctx, &waits, req)
		default:
			result, err := s.binding.call(ctx, req.Command, req.Data, false)
			s.reply(req, result, err)
		}
	}
}

// enqueueWait hands req to an idle worker, starting one if fewer than
// MaxPendingWaits are running, and otherwise leaves it queued.
func (s *Session) enqueueWait(ctx context.Context, waits *errgroup.Group, req request) {
	s.waitMu.Lock()
	defer s.waitMu.Unlock()

	if s.waitWorkers >= int(s.binding.opts.maxPendingWaits) {
		s.waitQueue = append(s.waitQueue, req)
		return
	}
	s.waitWorkers++
	waits.Go(func() error {
		s.waitWorker(ctx, req)
		return nil
	})
}

// waitWorker answers req, then keeps draining the queue until it is empty.
func (s *Session) waitWorker(ctx context.Context, req request) {
	for {
		result, err := s.callOnWorker(ctx, req)
		s.reply(req, result, err)

		s.waitMu.Lock()
		if len(s.waitQueue) == 0 {
			s.waitWorkers--
			s.waitMu.Unlock()
			return
		}
		req = s.waitQueue[0]
		s.waitQueue = s.waitQueue[1:]
		s.waitMu.Unlock()
	}
}

// callOnWorker runs a blocking request once the binding has a wait slot free.
func (s *Session) callOnWorker(ctx context.Context, req request) (interface{}, error) {
	if err := s.binding.waiters.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.binding.waiters.Release(1)
	return s.binding.call(ctx, req.Command, req.Data, false)
}

func (s *Session) pendingWaits() (workers, queued int) {
	s.waitMu.Lock()
	defer s.waitMu.Unlock()
	return s.waitWorkers, len(s.waitQueue)
}

func (s *Session) reply(req request, result interface{}, err error) {
	resp := response{RequestID: req.RequestID}
	if err != nil {
		resp.Error = NewHostException(err)
		s.logger.Debug().Err(err).Str("command", req.Command).Msg("request failed")
	} else {
		resp.Result = result
	}

	data, marshalErr := s.serializer.Marshal(resp)
	if marshalErr != nil {
		s.logger.Error().Err(marshalErr).Str("command", req.Command).Msg("encoding response")
		return
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if sendErr := s.transport.Send(data); sendErr != nil {
		s.logger.Warn().Err(sendErr).Str("command", req.Command).Msg("sending response")
	}
}
