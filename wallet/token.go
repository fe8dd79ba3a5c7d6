package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bitfsorg/libcash-go/metrics"
	"github.com/bitfsorg/libcash-go/slp"
	"github.com/bitfsorg/libcash-go/tx"
	"github.com/bitfsorg/libcash-go/unit"
	"github.com/bitfsorg/libcash-go/utxo"
)

// batonVout is where genesis and mint place a new baton.
const batonVout = 2

// GenesisRequest creates a new token.
type GenesisRequest struct {
	Ticker       string
	Name         string
	DocumentURL  string
	DocumentHash []byte
	Decimals     uint8
	// Amount is the initial supply in display decimals.
	Amount string
	// Receiver gets the initial supply; the wallet address when empty.
	Receiver string
	// EndBaton creates no mint baton, fixing the supply.
	EndBaton bool
	// BatonReceiver gets the baton; the wallet address when empty.
	BatonReceiver string
}

// MintRequest issues more of an existing token.
type MintRequest struct {
	TokenID string
	// Amount is the new supply in display decimals.
	Amount        string
	Receiver      string
	EndBaton      bool
	BatonReceiver string
}

func (w *Wallet) tokenSet(ctx context.Context) (utxo.Set, error) {
	return utxo.Fetch(ctx, w.provider, w.classifier, w.Address())
}

// TokenUtxos returns the normal-role outputs of tokenID.
func (w *Wallet) TokenUtxos(ctx context.Context, tokenID string) ([]utxo.UTXO, error) {
	set, err := w.tokenSet(ctx)
	if err != nil {
		return nil, err
	}
	return set.ByToken(tokenID).All(), nil
}

// BatonUtxos returns the mint batons of tokenID.
func (w *Wallet) BatonUtxos(ctx context.Context, tokenID string) ([]utxo.UTXO, error) {
	set, err := w.tokenSet(ctx)
	if err != nil {
		return nil, err
	}
	return set.Batons(tokenID).All(), nil
}

// TokenBalances returns the holding of every token, sorted by token id.
func (w *Wallet) TokenBalances(ctx context.Context) ([]utxo.TokenBalance, error) {
	set, err := w.tokenSet(ctx)
	if err != nil {
		return nil, err
	}
	return set.TokenBalances(), nil
}

// TokenBalance returns the holding of tokenID. A token the wallet does not
// hold has a zero amount.
func (w *Wallet) TokenBalance(ctx context.Context, tokenID string) (utxo.TokenBalance, error) {
	balances, err := w.TokenBalances(ctx)
	if err != nil {
		return utxo.TokenBalance{}, err
	}
	for _, b := range balances {
		if b.TokenID == tokenID {
			return b, nil
		}
	}
	return utxo.TokenBalance{TokenID: tokenID, Amount: new(big.Int)}, nil
}

// TokenSend sends token amounts. It is Send with TokenID set on every
// request.
func (w *Wallet) TokenSend(ctx context.Context, tokenID string, reqs []SendRequest, opts SendOptions) (*SendResult, error) {
	tagged := make([]SendRequest, len(reqs))
	for i, r := range reqs {
		r.TokenID = tokenID
		tagged[i] = r
	}
	return w.Send(ctx, tagged, opts)
}

// tokenSendDraft adds token inputs, token outputs and the SEND marker to d.
// Token outputs come first so that their quantities bind to vout 1..n;
// base outputs and change follow with zero quantities.
func (w *Wallet) tokenSendDraft(d *draft, snap *snapshot, pool utxo.Set, tokenID string, reqs []SendRequest) error {
	held := pool.ByToken(tokenID).All()
	if len(held) == 0 {
		metrics.SelectionFailure(assetToken)
		return &tx.TokenFundsError{TokenID: tokenID, Required: big.NewInt(1), Available: new(big.Int)}
	}
	decimals := held[0].Token.Decimals

	var (
		outputs    []tx.Output
		quantities []uint64
		total      = new(big.Int)
	)
	for _, r := range reqs {
		amount, err := unit.ToBaseUnits(r.Value, decimals)
		if err != nil {
			return err
		}
		if amount.Sign() <= 0 || !amount.IsUint64() {
			return fmt.Errorf("%w: token amount %s out of range", ErrInvalidRequest, r.Value)
		}
		lock, err := w.destination(r.Destination)
		if err != nil {
			return err
		}
		outputs = append(outputs, tx.Output{Script: lock, Value: w.policy.DustLimit})
		quantities = append(quantities, amount.Uint64())
		total.Add(total, amount)
	}

	picked, sum, err := tx.SelectTokens(pool.All(), tokenID, total, snap.height, w.policy)
	if err != nil {
		metrics.SelectionFailure(assetToken)
		return err
	}
	if change := new(big.Int).Sub(sum, total); change.Sign() > 0 {
		if !change.IsUint64() {
			return fmt.Errorf("%w: token change %s out of range", ErrInvalidRequest, change)
		}
		outputs = append(outputs, tx.Output{Script: w.lockScript, Value: w.policy.DustLimit})
		quantities = append(quantities, change.Uint64())
	}

	id, err := slp.ParseTokenID(tokenID)
	if err != nil {
		return err
	}
	d.kind = KindTokenSend
	d.tokenID = tokenID
	d.required = picked
	d.outputs = append(outputs, d.outputs...)
	d.marker = func(n int) ([]byte, error) {
		q := make([]uint64, n)
		copy(q, quantities)
		return encodeMarker(&slp.Message{
			TokenType:  slp.TokenTypeFungible,
			Op:         slp.OpSend,
			TokenID:    id,
			Quantities: q,
		}, n)
	}
	return nil
}

func encodeMarker(m *slp.Message, nonMarkerOutputs int) ([]byte, error) {
	if err := m.Validate(nonMarkerOutputs); err != nil {
		return nil, err
	}
	return slp.Encode(m)
}

// TokenGenesis creates a token. The result's TokenID is the genesis txid.
func (w *Wallet) TokenGenesis(ctx context.Context, req GenesisRequest, opts SendOptions) (*SendResult, error) {
	if w.account.WatchOnly() {
		return nil, ErrWatchOnly
	}
	if req.Decimals > slp.MaxDecimals {
		return nil, fmt.Errorf("%w: decimals %d exceeds %d", ErrInvalidRequest, req.Decimals, slp.MaxDecimals)
	}
	amount, err := supply(req.Amount, req.Decimals)
	if err != nil {
		return nil, err
	}

	snap, err := w.snapshot(ctx, true)
	if err != nil {
		return nil, err
	}
	pool, err := snap.pool(opts.UtxoIDs)
	if err != nil {
		return nil, err
	}
	outputs, baton, err := w.issueOutputs(req.Receiver, req.EndBaton, req.BatonReceiver)
	if err != nil {
		return nil, err
	}

	m := &slp.Message{
		TokenType:     slp.TokenTypeFungible,
		Op:            slp.OpGenesis,
		Ticker:        req.Ticker,
		Name:          req.Name,
		DocumentURL:   req.DocumentURL,
		DocumentHash:  req.DocumentHash,
		Decimals:      req.Decimals,
		MintBatonVout: baton,
		Quantities:    []uint64{amount},
	}
	d := &draft{
		kind:       KindGenesis,
		candidates: tx.Eligible(pool.All(), snap.height, w.policy),
		outputs:    outputs,
		marker:     func(n int) ([]byte, error) { return encodeMarker(m, n) },
	}
	res, err := w.complete(snap, d)
	if err != nil {
		return nil, err
	}
	return w.broadcast(ctx, res, d)
}

// TokenMint issues more of a token by spending its baton. Without
// EndBaton a new baton is passed on.
func (w *Wallet) TokenMint(ctx context.Context, req MintRequest, opts SendOptions) (*SendResult, error) {
	if w.account.WatchOnly() {
		return nil, ErrWatchOnly
	}
	id, err := slp.ParseTokenID(req.TokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	snap, err := w.snapshot(ctx, true)
	if err != nil {
		return nil, err
	}
	pool, err := snap.pool(opts.UtxoIDs)
	if err != nil {
		return nil, err
	}
	batons := pool.Batons(req.TokenID).All()
	if len(batons) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBaton, req.TokenID)
	}
	amount, err := supply(req.Amount, batons[0].Token.Decimals)
	if err != nil {
		return nil, err
	}
	outputs, baton, err := w.issueOutputs(req.Receiver, req.EndBaton, req.BatonReceiver)
	if err != nil {
		return nil, err
	}

	m := &slp.Message{
		TokenType:     slp.TokenTypeFungible,
		Op:            slp.OpMint,
		TokenID:       id,
		MintBatonVout: baton,
		Quantities:    []uint64{amount},
	}
	d := &draft{
		kind:       KindMint,
		tokenID:    req.TokenID,
		required:   batons[:1],
		candidates: tx.Eligible(pool.All(), snap.height, w.policy),
		outputs:    outputs,
		marker:     func(n int) ([]byte, error) { return encodeMarker(m, n) },
	}
	res, err := w.complete(snap, d)
	if err != nil {
		return nil, err
	}
	return w.broadcast(ctx, res, d)
}

// issueOutputs lays out the token receiver at vout 1 and, unless the baton
// ends, the baton receiver at vout 2.
func (w *Wallet) issueOutputs(receiver string, endBaton bool, batonReceiver string) ([]tx.Output, uint8, error) {
	lock := w.lockScript
	if receiver != "" {
		var err error
		if lock, err = w.destination(receiver); err != nil {
			return nil, 0, err
		}
	}
	outputs := []tx.Output{{Script: lock, Value: w.policy.DustLimit}}
	if endBaton {
		return outputs, 0, nil
	}

	batonLock := w.lockScript
	if batonReceiver != "" {
		var err error
		if batonLock, err = w.destination(batonReceiver); err != nil {
			return nil, 0, err
		}
	}
	return append(outputs, tx.Output{Script: batonLock, Value: w.policy.DustLimit}), batonVout, nil
}

func supply(amount string, decimals uint8) (uint64, error) {
	v, err := unit.ToBaseUnits(amount, decimals)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%w: token amount %s out of range", ErrInvalidRequest, amount)
	}
	return v.Uint64(), nil
}
