package wallet

import (
	"context"
	"math/big"

	"github.com/bitfsorg/libcash-go/network"
	"github.com/bitfsorg/libcash-go/unit"
	"github.com/bitfsorg/libcash-go/watch"
)

// balanceSource answers balance queries with the wallet's own view, so a
// token-aware wallet watches its base value only.
type balanceSource struct {
	network.Provider
	w *Wallet
}

func (s balanceSource) GetBalance(ctx context.Context, _ string) (uint64, error) {
	return s.w.Balance(ctx)
}

func (w *Wallet) watcher() (*watch.Watcher, error) {
	if w.subscriber == nil {
		return nil, ErrNoSubscriber
	}
	var src watch.Source = w.provider
	if w.tokenAware {
		src = balanceSource{Provider: w.provider, w: w}
	}
	return watch.New(w.subscriber, src), nil
}

// WatchBalance calls fn with the balance now and after every change until
// the subscription is cancelled.
func (w *Wallet) WatchBalance(ctx context.Context, fn func(sat uint64)) (*watch.Subscription, error) {
	wt, err := w.watcher()
	if err != nil {
		return nil, err
	}
	return wt.WatchBalance(ctx, w.Address(), fn)
}

// WaitForBalance blocks until the balance reaches value in u.
func (w *Wallet) WaitForBalance(ctx context.Context, value string, u unit.Unit, usdPerBCH *big.Rat) (uint64, error) {
	target, err := unit.ParseSatoshi(value, u, usdPerBCH)
	if err != nil {
		return 0, err
	}
	wt, err := w.watcher()
	if err != nil {
		return 0, err
	}
	return wt.WaitForBalance(ctx, w.Address(), target)
}

// WatchTransactions calls fn with every new transaction of the wallet.
func (w *Wallet) WatchTransactions(ctx context.Context, fn func(*network.TxRecord)) (*watch.Subscription, error) {
	wt, err := w.watcher()
	if err != nil {
		return nil, err
	}
	return wt.WatchTransactions(ctx, w.Address(), fn)
}

// WaitForTransaction blocks until the next transaction of the wallet.
func (w *Wallet) WaitForTransaction(ctx context.Context) (*network.TxRecord, error) {
	wt, err := w.watcher()
	if err != nil {
		return nil, err
	}
	return wt.WaitForTransaction(ctx, w.Address())
}
