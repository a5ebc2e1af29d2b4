package namedsem

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultWaitPollInterval is how often WaitContext rechecks its context.
	DefaultWaitPollInterval = 50 * time.Millisecond

	// DefaultMaxPendingWaits bounds the number of concurrent WaitAsync workers.
	DefaultMaxPendingWaits = 64
)

type options struct {
	sys             Syscalls
	logger          zerolog.Logger
	pollInterval    time.Duration
	maxPendingWaits int64
}

// Option configures Open and NewBinding.
type Option func(o *options)

func newOptions(opts []Option) *options {
	o := &options{
		sys:             DefaultSyscalls(),
		logger:          zerolog.Nop(),
		pollInterval:    DefaultWaitPollInterval,
		maxPendingWaits: DefaultMaxPendingWaits,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSyscalls replaces the platform syscalls, mostly for tests.
func WithSyscalls(sys Syscalls) Option {
	return func(o *options) {
		if sys != nil {
			o.sys = sys
		}
	}
}

// WithLogger sets the logger used for implicit closes and session traffic.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithWaitPollInterval sets how often context-aware waits recheck cancellation.
func WithWaitPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxPendingWaits bounds how many waits WaitAsync runs at once.
func WithMaxPendingWaits(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPendingWaits = n
		}
	}
}
