package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"golang.org/x/sync/errgroup"
)

// coinbaseLookups bounds concurrent parent fetches per snapshot.
const coinbaseLookups = 8

// coinbaseCache remembers whether a confirmed transaction is a coinbase.
type coinbaseCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (c *coinbaseCache) get(txid string) (coinbase, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	coinbase, ok = c.seen[txid]
	return coinbase, ok
}

func (c *coinbaseCache) put(txid string, coinbase bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	c.seen[txid] = coinbase
}

type rawFetcher func(ctx context.Context, txid string) ([]byte, error)

// markCoinbase sets Coinbase on every output whose parent transaction is a
// coinbase. Mempool outputs are skipped since a coinbase is always mined.
func markCoinbase(ctx context.Context, fetch rawFetcher, cache *coinbaseCache, utxos []*UTXO) error {
	var txids []string
	queued := make(map[string]bool)
	for _, u := range utxos {
		if u.Height == 0 || queued[u.TxID] {
			continue
		}
		queued[u.TxID] = true
		if _, ok := cache.get(u.TxID); !ok {
			txids = append(txids, u.TxID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(coinbaseLookups)
	for _, txid := range txids {
		g.Go(func() error {
			raw, err := fetch(gctx, txid)
			if err != nil {
				return fmt.Errorf("network: fetch parent %s: %w", txid, err)
			}
			parent, err := transaction.NewTransactionFromBytes(raw)
			if err != nil {
				return fmt.Errorf("%w: parent %s: %v", ErrInvalidResponse, txid, err)
			}
			cache.put(txid, parent.IsCoinbase())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, u := range utxos {
		if u.Height > 0 {
			u.Coinbase, _ = cache.get(u.TxID)
		}
	}
	return nil
}
