// Package watch turns provider address notifications into balance and
// transaction callbacks.
package watch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bitfsorg/libcash-go/metrics"
	"github.com/bitfsorg/libcash-go/network"
)

// Kind is what a subscription watches.
type Kind uint8

const (
	KindBalance Kind = iota
	KindTransaction
)

func (k Kind) String() string {
	if k == KindTransaction {
		return "transaction"
	}
	return "balance"
}

// State is the lifecycle of a subscription. Resolved and Cancelled are
// terminal.
type State int32

const (
	Active State = iota
	Resolved
	Cancelled
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Resolved:
		return "resolved"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Subscription is a handle on a running watch.
type Subscription struct {
	Address string
	Kind    Kind

	w      *Watcher
	state  atomic.Int32
	ch     chan network.Notification
	stop   context.CancelFunc
	done   chan struct{}
	once   sync.Once
	handle func(ctx context.Context)
}

// State returns the current state.
func (s *Subscription) State() State { return State(s.state.Load()) }

// Done is closed once the subscription leaves Active and its provider
// subscription has been released.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel stops the subscription. It is idempotent and safe to call from
// inside the subscription's own callback.
func (s *Subscription) Cancel() {
	if s.state.CompareAndSwap(int32(Active), int32(Cancelled)) {
		s.release()
	}
}

// resolve ends a one-shot subscription. It reports false when the
// subscription was already finished.
func (s *Subscription) resolve() bool {
	if !s.state.CompareAndSwap(int32(Active), int32(Resolved)) {
		return false
	}
	s.release()
	return true
}

func (s *Subscription) active() bool { return s.State() == Active }

// release runs at most once per subscription.
func (s *Subscription) release() {
	s.once.Do(func() {
		s.stop()
		// The subscription context is already done; unsubscribe on a fresh one.
		if err := s.w.sub.UnsubscribeAddress(context.Background(), s.Address, s.ch); err != nil {
			s.w.log.Warn().Err(err).Str("address", s.Address).Msg("unsubscribe failed")
		}
		metrics.SubscriptionClosed()
		s.w.log.Debug().
			Str("address", s.Address).
			Stringer("kind", s.Kind).
			Stringer("state", s.State()).
			Msg("subscription released")
		close(s.done)
	})
}

// run evaluates once, then once per notification naming the address, on a
// single goroutine.
func (s *Subscription) run(ctx context.Context, initial bool) {
	if initial && s.active() {
		s.handle(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-s.ch:
			if n.Address != s.Address {
				continue
			}
			if !s.active() {
				return
			}
			s.handle(ctx)
		}
	}
}
