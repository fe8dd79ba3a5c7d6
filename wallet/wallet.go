package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/libcash-go/address"
	"github.com/bitfsorg/libcash-go/log"
	"github.com/bitfsorg/libcash-go/metrics"
	"github.com/bitfsorg/libcash-go/network"
	"github.com/bitfsorg/libcash-go/slp"
	"github.com/bitfsorg/libcash-go/tx"
	"github.com/bitfsorg/libcash-go/unit"
	"github.com/bitfsorg/libcash-go/utxo"
)

// Transaction kinds reported to metrics and logs.
const (
	KindSend      = "send"
	KindSendMax   = "send_max"
	KindTokenSend = "token_send"
	KindGenesis   = "token_genesis"
	KindMint      = "token_mint"

	assetBase   = "base"
	assetToken  = "token"
	defaultOuts = 1
)

// Wallet is a single-address wallet bound to one provider.
type Wallet struct {
	account    *Account
	provider   network.Provider
	subscriber network.Subscriber
	classifier utxo.Classifier
	tokenAware bool
	policy     tx.Policy
	feeRate    uint64
	assembler  *tx.Assembler
	locks      tx.LockCompiler
	lockScript []byte
	log        zerolog.Logger
}

// Option configures a Wallet.
type Option func(*Wallet)

// WithSubscriber enables the watch methods.
func WithSubscriber(s network.Subscriber) Option {
	return func(w *Wallet) { w.subscriber = s }
}

// WithTokenAware classifies every snapshot so that token outputs are never
// spent or counted as plain value.
func WithTokenAware(aware bool) Option {
	return func(w *Wallet) { w.tokenAware = aware }
}

// WithClassifier replaces the default SLP classifier.
func WithClassifier(c utxo.Classifier) Option {
	return func(w *Wallet) { w.classifier = c }
}

// WithPolicy sets the spending policy. A zero FeeRate asks the provider.
func WithPolicy(p tx.Policy) Option {
	return func(w *Wallet) {
		w.policy = p
		w.feeRate = p.FeeRate
	}
}

// WithSigner replaces in-process signing.
func WithSigner(s tx.Signer) Option {
	return func(w *Wallet) { w.assembler = tx.NewAssembler(s) }
}

// WithLockCompiler replaces the built-in lock templates.
func WithLockCompiler(c tx.LockCompiler) Option {
	return func(w *Wallet) { w.locks = c }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Wallet) { w.log = l }
}

// New creates a wallet for account on provider.
func New(account *Account, provider network.Provider, opts ...Option) (*Wallet, error) {
	if account == nil {
		return nil, fmt.Errorf("%w: account", tx.ErrNilParam)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: provider", tx.ErrNilParam)
	}
	w := &Wallet{
		account:  account,
		provider: provider,
		policy:   tx.DefaultPolicy(),
		locks:    tx.DefaultTemplates(),
		log:      log.Wallet,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.assembler == nil {
		w.assembler = tx.NewAssembler(nil)
	}
	if w.policy.DustLimit == 0 {
		w.policy.DustLimit = tx.DustLimit
	}
	w.assembler.DustLimit = w.policy.DustLimit
	if w.classifier == nil {
		w.classifier = slp.NewClassifier(provider)
	}
	w.log = w.log.With().Str("address", account.CashAddr()).Logger()

	lock, err := account.LockScript(w.locks)
	if err != nil {
		return nil, err
	}
	w.lockScript = lock
	return w, nil
}

// Account returns the resolved account.
func (w *Wallet) Account() *Account { return w.account }

// Address returns the wallet CashAddr.
func (w *Wallet) Address() string { return w.account.CashAddr() }

// SendRequest pays Value, in Unit, to Destination. With TokenID set the
// value is a token amount in the token's display decimals.
type SendRequest struct {
	Destination string
	Value       string
	Unit        unit.Unit
	TokenID     string
}

// SendOptions tune a single send.
type SendOptions struct {
	// UtxoIDs restricts funding to these "txid:vout" outpoints.
	UtxoIDs []string
	// USDPerBCH converts USD requests.
	USDPerBCH *big.Rat
}

// SendResult describes a broadcast transaction.
type SendResult struct {
	TxID    string
	Hex     string
	Fee     uint64
	Spent   []utxo.Outpoint
	TokenID string // set by genesis and token sends
}

type snapshot struct {
	set    utxo.Set
	height uint64
	rate   uint64
}

// snapshot fetches utxos, tip height and relay fee concurrently.
func (w *Wallet) snapshot(ctx context.Context, classify bool) (*snapshot, error) {
	var (
		s          snapshot
		classifier utxo.Classifier
	)
	if classify {
		classifier = w.classifier
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		set, err := utxo.Fetch(gctx, w.provider, classifier, w.Address())
		s.set = set
		return err
	})
	g.Go(func() error {
		h, err := w.provider.GetBlockHeight(gctx)
		if err != nil {
			return fmt.Errorf("wallet: block height: %w", err)
		}
		s.height = h
		return nil
	})
	if w.feeRate > 0 {
		s.rate = w.feeRate
	} else {
		g.Go(func() error {
			rate, err := w.provider.GetRelayFee(gctx)
			if errors.Is(err, network.ErrUnsupported) {
				w.log.Debug().Msg("provider has no relay fee, using default rate")
				rate, err = 0, nil
			}
			if err != nil {
				return fmt.Errorf("wallet: relay fee: %w", err)
			}
			s.rate = rate
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if s.rate == 0 {
		s.rate = tx.DefaultFeeRate
	}
	return &s, nil
}

// pool returns the snapshot outputs available to a send: the whole set, or
// only the pinned outpoints.
func (s *snapshot) pool(ids []string) (utxo.Set, error) {
	if len(ids) == 0 {
		return s.set, nil
	}
	ops := make([]utxo.Outpoint, 0, len(ids))
	for _, id := range ids {
		op, err := utxo.ParseOutpoint(id)
		if err != nil {
			return utxo.Set{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		if !s.set.Contains(op) {
			return utxo.Set{}, fmt.Errorf("%w: %s", ErrUnknownUtxo, op)
		}
		ops = append(ops, op)
	}
	return s.set.Only(ops), nil
}

// Utxos returns the outputs spendable as plain value. Token-aware wallets
// leave token outputs out.
func (w *Wallet) Utxos(ctx context.Context) ([]utxo.UTXO, error) {
	s, err := w.snapshot(ctx, w.tokenAware)
	if err != nil {
		return nil, err
	}
	return s.set.Base().All(), nil
}

// Balance returns the wallet balance in satoshi. For token-aware wallets
// it is the value of the untagged outputs rather than the provider total.
func (w *Wallet) Balance(ctx context.Context) (uint64, error) {
	if !w.tokenAware {
		bal, err := w.provider.GetBalance(ctx, w.Address())
		if err != nil {
			return 0, fmt.Errorf("wallet: balance: %w", err)
		}
		return bal, nil
	}
	set, err := utxo.Fetch(ctx, w.provider, w.classifier, w.Address())
	if err != nil {
		return 0, err
	}
	return set.Base().Value(), nil
}

// BalanceIn returns the balance expressed in u.
func (w *Wallet) BalanceIn(ctx context.Context, u unit.Unit, usdPerBCH *big.Rat) (*big.Rat, error) {
	sat, err := w.Balance(ctx)
	if err != nil {
		return nil, err
	}
	return unit.FromSatoshi(sat, u, usdPerBCH)
}

// BalanceSummary returns the balance in every display unit.
func (w *Wallet) BalanceSummary(ctx context.Context, usdPerBCH *big.Rat) (unit.Balance, error) {
	sat, err := w.Balance(ctx)
	if err != nil {
		return unit.Balance{}, err
	}
	return unit.BalanceFromSatoshi(sat, usdPerBCH), nil
}

// destination compiles the locking script paying dest.
func (w *Wallet) destination(dest string) ([]byte, error) {
	if dest == "" {
		return nil, fmt.Errorf("%w: empty destination", ErrInvalidRequest)
	}
	addr, err := address.Parse(dest, w.account.Network.CashAddrPrefix)
	if err != nil {
		if errors.Is(err, address.ErrPrefixMismatch) {
			return nil, fmt.Errorf("%w: %w", ErrNetworkMismatch, err)
		}
		return nil, err
	}
	return lockFor(w.locks, addr)
}

// draft is a transaction ready for planning.
type draft struct {
	kind       string
	tokenID    string
	required   []utxo.UTXO
	candidates []utxo.UTXO
	outputs    []tx.Output
	marker     tx.MarkerFunc
}

// Build plans and signs a transaction for reqs without broadcasting it.
// Requests may mix base and token value, but only one token.
func (w *Wallet) Build(ctx context.Context, reqs []SendRequest, opts SendOptions) (*tx.Result, error) {
	res, _, err := w.build(ctx, reqs, opts)
	return res, err
}

func (w *Wallet) build(ctx context.Context, reqs []SendRequest, opts SendOptions) (*tx.Result, *draft, error) {
	if w.account.WatchOnly() {
		return nil, nil, ErrWatchOnly
	}
	if len(reqs) == 0 {
		return nil, nil, fmt.Errorf("%w: no requests", ErrInvalidRequest)
	}
	tokenID, err := tokenOf(reqs)
	if err != nil {
		return nil, nil, err
	}

	snap, err := w.snapshot(ctx, w.tokenAware || tokenID != "")
	if err != nil {
		return nil, nil, err
	}
	pool, err := snap.pool(opts.UtxoIDs)
	if err != nil {
		return nil, nil, err
	}

	var base []tx.Output
	var tokenReqs []SendRequest
	for _, r := range reqs {
		if r.TokenID != "" {
			tokenReqs = append(tokenReqs, r)
			continue
		}
		out, err := w.baseOutput(r, opts.USDPerBCH)
		if err != nil {
			return nil, nil, err
		}
		base = append(base, out)
	}

	d := &draft{
		kind:       KindSend,
		candidates: tx.Eligible(pool.All(), snap.height, w.policy),
		outputs:    base,
	}
	if tokenID != "" {
		if err := w.tokenSendDraft(d, snap, pool, tokenID, tokenReqs); err != nil {
			return nil, nil, err
		}
	}

	res, err := w.complete(snap, d)
	return res, d, err
}

func (w *Wallet) baseOutput(r SendRequest, usdPerBCH *big.Rat) (tx.Output, error) {
	lock, err := w.destination(r.Destination)
	if err != nil {
		return tx.Output{}, err
	}
	sat, err := unit.ParseSatoshi(r.Value, r.Unit, usdPerBCH)
	if err != nil {
		return tx.Output{}, err
	}
	return tx.Output{Script: lock, Value: sat}, nil
}

func tokenOf(reqs []SendRequest) (string, error) {
	var id string
	for _, r := range reqs {
		if r.TokenID == "" {
			continue
		}
		if _, err := slp.ParseTokenID(r.TokenID); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		if id != "" && r.TokenID != id {
			return "", ErrMixedTokens
		}
		id = r.TokenID
	}
	return id, nil
}

// complete plans and signs d.
func (w *Wallet) complete(snap *snapshot, d *draft) (*tx.Result, error) {
	policy := w.policy
	policy.FeeRate = snap.rate
	logger := w.log.With().Str("kind", d.kind).Logger()

	plan, err := tx.Plan(tx.PlanRequest{
		Candidates:   d.candidates,
		Required:     d.required,
		Outputs:      d.outputs,
		Marker:       d.marker,
		ChangeScript: w.lockScript,
		Policy:       policy,
		Logger:       &logger,
	})
	if err != nil {
		if errors.Is(err, tx.ErrInsufficientFunds) || errors.Is(err, tx.ErrNoUtxosAvailable) {
			metrics.SelectionFailure(assetBase)
		}
		return nil, err
	}
	metrics.FeeRounds(plan.Rounds)

	res, err := w.assembler.Assemble(plan, w.account.Key, w.lockScript)
	if err != nil {
		return nil, err
	}
	metrics.TxBuilt(d.kind)
	logger.Debug().
		Str("txid", res.TxID).
		Int("inputs", len(plan.Inputs)).
		Int("outputs", len(plan.Outputs)).
		Uint64("fee", plan.Fee).
		Int("rounds", plan.Rounds).
		Msg("transaction built")
	return res, nil
}

// Send builds, signs and broadcasts a transaction for reqs.
func (w *Wallet) Send(ctx context.Context, reqs []SendRequest, opts SendOptions) (*SendResult, error) {
	res, d, err := w.build(ctx, reqs, opts)
	if err != nil {
		return nil, err
	}
	return w.broadcast(ctx, res, d)
}

// SendMax sends every eligible base output to destination. No change
// output is created; whatever the size estimate over-counts goes to fee.
func (w *Wallet) SendMax(ctx context.Context, destination string, opts SendOptions) (*SendResult, error) {
	if w.account.WatchOnly() {
		return nil, ErrWatchOnly
	}
	lock, err := w.destination(destination)
	if err != nil {
		return nil, err
	}
	snap, err := w.snapshot(ctx, w.tokenAware)
	if err != nil {
		return nil, err
	}
	pool, err := snap.pool(opts.UtxoIDs)
	if err != nil {
		return nil, err
	}
	inputs := tx.Eligible(pool.All(), snap.height, w.policy)
	if len(inputs) == 0 {
		metrics.SelectionFailure(assetBase)
		return nil, tx.ErrNoUtxosAvailable
	}

	total := utxo.SumValue(inputs)
	fee := tx.EstimateFee(tx.EstimateTxSize(len(inputs), []int{len(lock)}), snap.rate)
	if total < fee+w.policy.DustLimit {
		metrics.SelectionFailure(assetBase)
		return nil, &tx.FundsError{Required: fee + w.policy.DustLimit, Available: total}
	}

	d := &draft{
		kind:     KindSendMax,
		required: inputs,
		outputs:  []tx.Output{{Script: lock, Value: total - fee}},
	}
	res, err := w.complete(snap, d)
	if err != nil {
		return nil, err
	}
	return w.broadcast(ctx, res, d)
}

// MaxAmountToSend returns the largest amount, in satoshi, that can be split
// across outputCount P2PKH outputs after fees.
func (w *Wallet) MaxAmountToSend(ctx context.Context, outputCount int, opts SendOptions) (uint64, error) {
	if outputCount <= 0 {
		outputCount = defaultOuts
	}
	snap, err := w.snapshot(ctx, w.tokenAware)
	if err != nil {
		return 0, err
	}
	pool, err := snap.pool(opts.UtxoIDs)
	if err != nil {
		return 0, err
	}
	inputs := tx.Eligible(pool.All(), snap.height, w.policy)
	if len(inputs) == 0 {
		return 0, nil
	}

	lens := make([]int, outputCount)
	for i := range lens {
		lens[i] = tx.P2PKHScriptSize
	}
	total := utxo.SumValue(inputs)
	fee := tx.EstimateFee(tx.EstimateTxSize(len(inputs), lens), snap.rate)
	if total <= fee {
		return 0, nil
	}
	return total - fee, nil
}

func (w *Wallet) broadcast(ctx context.Context, res *tx.Result, d *draft) (*SendResult, error) {
	txid, err := w.provider.SendRawTransaction(ctx, res.Hex)
	if err != nil {
		status := metrics.StatusError
		if errors.Is(err, network.ErrBroadcastRejected) {
			status = metrics.StatusRejected
		}
		metrics.Broadcast(status)
		w.log.Warn().Err(err).Str("txid", res.TxID).Str("kind", d.kind).Msg("broadcast failed")
		return nil, err
	}
	metrics.Broadcast(metrics.StatusAccepted)
	if txid != "" && txid != res.TxID {
		w.log.Warn().Str("txid", res.TxID).Str("provider_txid", txid).Msg("provider reported a different txid")
	}

	w.log.Info().
		Str("txid", res.TxID).
		Str("kind", d.kind).
		Uint64("fee", res.Fee).
		Int("inputs", len(res.Plan.Inputs)).
		Int("outputs", len(res.Plan.Outputs)).
		Msg("transaction broadcast")

	result := &SendResult{
		TxID:    res.TxID,
		Hex:     res.Hex,
		Fee:     res.Fee,
		Spent:   res.Outpoints(),
		TokenID: d.tokenID,
	}
	if d.kind == KindGenesis {
		result.TokenID = res.TxID
	}
	return result, nil
}
