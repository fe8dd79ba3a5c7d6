package watch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/libcash-go/log"
	"github.com/bitfsorg/libcash-go/metrics"
	"github.com/bitfsorg/libcash-go/network"
)

// Source answers the queries a watch makes after each notification.
// network.Provider satisfies it.
type Source interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	GetHistory(ctx context.Context, address string) ([]network.HistoryEntry, error)
	GetRawTransactionObject(ctx context.Context, txid string) (*network.TxRecord, error)
}

// DefaultBuffer is the notification channel capacity per subscription.
// Extra notifications coalesce, which is safe because every evaluation
// re-queries the source.
const DefaultBuffer = 1

// Watcher creates subscriptions against one subscriber and source.
type Watcher struct {
	sub    network.Subscriber
	src    Source
	log    zerolog.Logger
	buffer int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithBuffer sets the notification channel capacity.
func WithBuffer(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.buffer = n
		}
	}
}

// New creates a watcher.
func New(sub network.Subscriber, src Source, opts ...Option) *Watcher {
	w := &Watcher{sub: sub, src: src, log: log.Watch, buffer: DefaultBuffer}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) subscribe(ctx context.Context, address string, kind Kind, initial bool, handle func(*Subscription, context.Context)) (*Subscription, error) {
	runCtx, stop := context.WithCancel(context.Background())
	s := &Subscription{
		Address: address,
		Kind:    kind,
		w:       w,
		ch:      make(chan network.Notification, w.buffer),
		stop:    stop,
		done:    make(chan struct{}),
	}
	s.handle = func(ctx context.Context) { handle(s, ctx) }

	if err := w.sub.SubscribeAddress(ctx, address, s.ch); err != nil {
		stop()
		return nil, fmt.Errorf("watch: subscribe %s: %w", address, err)
	}
	metrics.SubscriptionOpened()
	w.log.Debug().Str("address", address).Stringer("kind", kind).Msg("subscription started")

	go s.run(runCtx, initial)
	return s, nil
}

// WatchBalance calls fn with the balance of address right after subscribing
// and after every notification, until the subscription is cancelled.
func (w *Watcher) WatchBalance(ctx context.Context, address string, fn func(balance uint64)) (*Subscription, error) {
	return w.subscribe(ctx, address, KindBalance, true, func(s *Subscription, ctx context.Context) {
		bal, err := w.src.GetBalance(ctx, address)
		if err != nil {
			w.log.Warn().Err(err).Str("address", address).Msg("balance query failed")
			return
		}
		if s.active() {
			fn(bal)
		}
	})
}

// WatchTransactions calls fn with the newest transaction of address after
// every notification that brings a transaction not yet reported.
func (w *Watcher) WatchTransactions(ctx context.Context, address string, fn func(*network.TxRecord)) (*Subscription, error) {
	var last string
	return w.subscribe(ctx, address, KindTransaction, false, func(s *Subscription, ctx context.Context) {
		rec, err := w.latest(ctx, address)
		if err != nil {
			w.log.Warn().Err(err).Str("address", address).Msg("transaction query failed")
			return
		}
		if rec == nil || rec.TxID == last {
			return
		}
		last = rec.TxID
		if s.active() {
			fn(rec)
		}
	})
}

// WaitForBalance blocks until the balance of address is at least target and
// returns it. It checks once right after subscribing. When ctx ends first
// the subscription is cancelled and ctx's error returned.
func (w *Watcher) WaitForBalance(ctx context.Context, address string, target uint64) (uint64, error) {
	result := make(chan uint64, 1)
	s, err := w.subscribe(ctx, address, KindBalance, true, func(s *Subscription, ctx context.Context) {
		bal, err := w.src.GetBalance(ctx, address)
		if err != nil {
			w.log.Warn().Err(err).Str("address", address).Msg("balance query failed")
			return
		}
		if bal >= target && s.resolve() {
			result <- bal
		}
	})
	if err != nil {
		return 0, err
	}
	return wait(ctx, s, result)
}

// WaitForTransaction blocks until the first notification naming address and
// returns the record of its newest transaction.
func (w *Watcher) WaitForTransaction(ctx context.Context, address string) (*network.TxRecord, error) {
	result := make(chan *network.TxRecord, 1)
	s, err := w.subscribe(ctx, address, KindTransaction, false, func(s *Subscription, ctx context.Context) {
		rec, err := w.latest(ctx, address)
		if err != nil {
			w.log.Warn().Err(err).Str("address", address).Msg("transaction query failed")
			return
		}
		if rec != nil && s.resolve() {
			result <- rec
		}
	})
	if err != nil {
		return nil, err
	}
	return wait(ctx, s, result)
}

func wait[T any](ctx context.Context, s *Subscription, result <-chan T) (T, error) {
	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		s.Cancel()
		// A resolve may have won the race with cancellation; its value is
		// sent right after release.
		if s.State() == Resolved {
			return <-result, nil
		}
		var zero T
		return zero, ctx.Err()
	}
}

// latest returns the record of the last transaction in the address history,
// or nil when the history is empty.
func (w *Watcher) latest(ctx context.Context, address string) (*network.TxRecord, error) {
	history, err := w.src.GetHistory(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	return w.src.GetRawTransactionObject(ctx, history[len(history)-1].TxID)
}
