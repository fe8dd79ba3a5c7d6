package slp

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/libcash-go/log"
	"github.com/bitfsorg/libcash-go/utxo"
)

// DefaultConcurrency bounds parallel parent-transaction fetches.
const DefaultConcurrency = 8

// TxSource fetches serialized transactions.
type TxSource interface {
	GetRawTransaction(ctx context.Context, txid string) ([]byte, error)
}

var _ utxo.Classifier = (*Classifier)(nil)

// Classifier tags outputs with the token value their creating transaction
// assigned them. It does not validate the token DAG: a marker is taken at
// face value.
type Classifier struct {
	src         TxSource
	cache       MetadataCache
	concurrency int
	log         zerolog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithCache sets the metadata cache. The default is a fresh MemCache.
func WithCache(c MetadataCache) Option {
	return func(cl *Classifier) { cl.cache = c }
}

// WithConcurrency bounds parallel fetches.
func WithConcurrency(n int) Option {
	return func(cl *Classifier) {
		if n > 0 {
			cl.concurrency = n
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(cl *Classifier) { cl.log = l }
}

// NewClassifier creates a classifier reading transactions from src.
func NewClassifier(src TxSource, opts ...Option) *Classifier {
	c := &Classifier{
		src:         src,
		concurrency: DefaultConcurrency,
		log:         log.Token,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewMemCache()
	}
	return c
}

// Classify returns utxos with token tags applied. Outputs of transactions
// without a marker, or with a malformed one, are returned untagged. A
// failure to fetch a parent transaction fails the whole call so that token
// outputs are never mistaken for plain value.
func (c *Classifier) Classify(ctx context.Context, utxos []utxo.UTXO) ([]utxo.UTXO, error) {
	txids := make([]string, 0, len(utxos))
	seen := make(map[string]bool, len(utxos))
	for _, u := range utxos {
		if !seen[u.TxID] {
			seen[u.TxID] = true
			txids = append(txids, u.TxID)
		}
	}

	var mu sync.Mutex
	markers := make(map[string]*Message, len(txids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, txid := range txids {
		g.Go(func() error {
			m, err := c.marker(gctx, txid)
			if err != nil {
				return err
			}
			if m != nil {
				mu.Lock()
				markers[txid] = m
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	meta := make(map[string]Metadata)
	for txid, m := range markers {
		if m.Op == OpGenesis {
			meta[txid] = c.remember(MetadataFromGenesis(txid, m))
		}
	}
	for _, m := range markers {
		if m.Op == OpGenesis {
			continue
		}
		id := m.TokenIDHex()
		if _, ok := meta[id]; ok {
			continue
		}
		md, err := c.metadata(ctx, id)
		if err != nil {
			return nil, err
		}
		meta[id] = md
	}

	out := make([]utxo.UTXO, len(utxos))
	for i, u := range utxos {
		out[i] = u.Clone()
		m, ok := markers[u.TxID]
		if !ok {
			continue
		}
		if tag, ok := tagFor(m, u, meta); ok {
			out[i] = u.WithToken(tag)
		}
	}
	return out, nil
}

func tagFor(m *Message, u utxo.UTXO, meta map[string]Metadata) (utxo.TokenTag, bool) {
	id := u.TxID
	if m.Op != OpGenesis {
		id = m.TokenIDHex()
	}
	md := meta[id]
	tag := utxo.TokenTag{
		TokenID:  id,
		Ticker:   md.Ticker,
		Name:     md.Name,
		Decimals: md.Decimals,
		Role:     utxo.RoleNormal,
	}

	switch m.Op {
	case OpGenesis, OpMint:
		if m.MintBatonVout != 0 && u.Vout == uint32(m.MintBatonVout) {
			tag.Role = utxo.RoleMintBaton
			tag.Amount = new(big.Int)
			return tag, true
		}
		if u.Vout == 1 && m.Quantities[0] > 0 {
			tag.Amount = new(big.Int).SetUint64(m.Quantities[0])
			return tag, true
		}
	case OpSend:
		if u.Vout >= 1 && int(u.Vout) <= len(m.Quantities) && m.Quantities[u.Vout-1] > 0 {
			tag.Amount = new(big.Int).SetUint64(m.Quantities[u.Vout-1])
			return tag, true
		}
	}
	return utxo.TokenTag{}, false
}

// marker returns the decoded marker of txid, or nil when it has none.
func (c *Classifier) marker(ctx context.Context, txid string) (*Message, error) {
	raw, err := c.src.GetRawTransaction(ctx, txid)
	if err != nil {
		return nil, fmt.Errorf("slp: fetch %s: %w", txid, err)
	}
	parsed, err := transaction.NewTransactionFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("slp: parse %s: %w", txid, err)
	}

	scripts := make([][]byte, len(parsed.Outputs))
	for i, out := range parsed.Outputs {
		if out.LockingScript != nil {
			scripts[i] = out.LockingScript.Bytes()
		}
	}

	m, err := DecodeOutputs(scripts)
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, ErrNotOverlay):
		return nil, nil
	default:
		c.log.Debug().Err(err).Str("txid", txid).Msg("ignoring invalid token marker")
		return nil, nil
	}
}

// metadata resolves token metadata from the cache or, failing that, from
// the genesis transaction.
func (c *Classifier) metadata(ctx context.Context, tokenID string) (Metadata, error) {
	md, ok, err := c.cache.GetMetadata(tokenID)
	if err != nil {
		c.log.Warn().Err(err).Str("token_id", tokenID).Msg("token metadata cache read failed")
	} else if ok {
		return md, nil
	}

	genesis, err := c.marker(ctx, tokenID)
	if err != nil {
		return Metadata{}, err
	}
	if genesis == nil || genesis.Op != OpGenesis {
		c.log.Debug().Str("token_id", tokenID).Msg("token id does not point at a genesis")
		return Metadata{TokenID: tokenID}, nil
	}
	return c.remember(MetadataFromGenesis(tokenID, genesis)), nil
}

func (c *Classifier) remember(md Metadata) Metadata {
	if err := c.cache.PutMetadata(md); err != nil {
		c.log.Warn().Err(err).Str("token_id", md.TokenID).Msg("token metadata cache write failed")
	}
	return md
}
