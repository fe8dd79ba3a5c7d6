package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libcash-go/address"
	"github.com/bitfsorg/libcash-go/log"
	"github.com/bitfsorg/libcash-go/network"
	"github.com/bitfsorg/libcash-go/tx"
	"github.com/bitfsorg/libcash-go/unit"
	"github.com/bitfsorg/libcash-go/utxo"
)

// chain is an in-memory ledger behind a MockProvider.
type chain struct {
	mu        sync.Mutex
	utxos     []*network.UTXO
	raw       map[string][]byte
	height    uint64
	relayFee  uint64
	broadcast []*transaction.Transaction
	rejectErr error
}

func newChain() *chain {
	return &chain{raw: make(map[string][]byte), height: 1000, relayFee: 1000}
}

func (c *chain) provider() *network.MockProvider {
	return &network.MockProvider{
		GetUtxosFn: func(_ context.Context, _ string) ([]*network.UTXO, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			out := make([]*network.UTXO, len(c.utxos))
			for i, u := range c.utxos {
				cp := *u
				out[i] = &cp
			}
			return out, nil
		},
		GetBalanceFn: func(_ context.Context, _ string) (uint64, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			var total uint64
			for _, u := range c.utxos {
				total += u.Amount
			}
			return total, nil
		},
		GetBlockHeightFn: func(context.Context) (uint64, error) { return c.height, nil },
		GetRelayFeeFn:    func(context.Context) (uint64, error) { return c.relayFee, nil },
		GetRawTransactionFn: func(_ context.Context, txid string) ([]byte, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			raw, ok := c.raw[txid]
			if !ok {
				return nil, fmt.Errorf("%w: %s", network.ErrTxNotFound, txid)
			}
			return raw, nil
		},
		SendRawTransactionFn: func(_ context.Context, rawHex string) (string, error) {
			if c.rejectErr != nil {
				return "", c.rejectErr
			}
			parsed, err := transaction.NewTransactionFromHex(rawHex)
			if err != nil {
				return "", err
			}
			c.mu.Lock()
			c.broadcast = append(c.broadcast, parsed)
			c.mu.Unlock()
			return parsed.TxID().String(), nil
		},
	}
}

// addTx records a transaction with the given output scripts and values and
// reports the outputs listed in mine as wallet utxos.
func (c *chain) addTx(t *testing.T, outs []tx.Output, mine ...uint32) string {
	t.Helper()
	parsed := transaction.NewTransaction()
	for _, o := range outs {
		ls := script.Script(o.Script)
		parsed.AddOutput(&transaction.TransactionOutput{LockingScript: &ls, Satoshis: o.Value})
	}
	txid := parsed.TxID().String()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw[txid] = parsed.Bytes()
	for _, vout := range mine {
		c.utxos = append(c.utxos, &network.UTXO{TxID: txid, Vout: vout, Amount: outs[vout].Value, Height: 900})
	}
	return txid
}

func (c *chain) last(t *testing.T) *transaction.Transaction {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.broadcast)
	return c.broadcast[len(c.broadcast)-1]
}

func testAccount(t *testing.T) *Account {
	t.Helper()
	acct, err := Resolve(WIFIdentity("mainnet", testWIF), nil)
	require.NoError(t, err)
	return acct
}

func newTestWallet(t *testing.T, c *chain, opts ...Option) *Wallet {
	t.Helper()
	opts = append([]Option{WithLogger(log.Nop())}, opts...)
	w, err := New(testAccount(t), c.provider(), opts...)
	require.NoError(t, err)
	return w
}

func ownLock(t *testing.T, w *Wallet) []byte {
	t.Helper()
	lock, err := w.Account().LockScript(nil)
	require.NoError(t, err)
	return lock
}

func lockOf(t *testing.T, addr string) []byte {
	t.Helper()
	a, err := address.Parse(addr, address.PrefixMainnet)
	require.NoError(t, err)
	lock, err := lockFor(nil, a)
	require.NoError(t, err)
	return lock
}

func TestNewRequiresAccountAndProvider(t *testing.T) {
	_, err := New(nil, &network.MockProvider{})
	assert.ErrorIs(t, err, tx.ErrNilParam)

	_, err = New(testAccount(t), nil)
	assert.ErrorIs(t, err, tx.ErrNilParam)
}

func TestSend(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 100_000}}, 0)

	res, err := w.Send(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "10000", Unit: unit.Sat},
	}, SendOptions{})
	require.NoError(t, err)

	// One P2PKH input and two P2PKH outputs are 226 bytes at 1 sat/byte.
	assert.Equal(t, uint64(226), res.Fee)
	require.Len(t, res.Spent, 1)

	sent := c.last(t)
	assert.Equal(t, res.TxID, sent.TxID().String())
	require.Len(t, sent.Outputs, 2)
	assert.Equal(t, uint64(10_000), sent.Outputs[0].Satoshis)
	assert.Equal(t, lockOf(t, testBCHAddress), sent.Outputs[0].LockingScript.Bytes())
	assert.Equal(t, uint64(100_000-10_000-226), sent.Outputs[1].Satoshis)
	assert.Equal(t, ownLock(t, w), sent.Outputs[1].LockingScript.Bytes())
}

func TestSendUnits(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 10_000_000}}, 0)

	_, err := w.Send(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "0.01", Unit: unit.BCH},
		{Destination: testBCHAddress, Value: "150", Unit: unit.Bit},
	}, SendOptions{})
	require.NoError(t, err)

	sent := c.last(t)
	require.Len(t, sent.Outputs, 3)
	assert.Equal(t, uint64(1_000_000), sent.Outputs[0].Satoshis)
	assert.Equal(t, uint64(15_000), sent.Outputs[1].Satoshis)
}

func TestSendUsesConfiguredFeeRate(t *testing.T) {
	c := newChain()
	c.relayFee = 5000
	p := tx.DefaultPolicy()
	p.FeeRate = 2000
	w := newTestWallet(t, c, WithPolicy(p))
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 100_000}}, 0)

	res, err := w.Build(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "10000", Unit: unit.Sat},
	}, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint64(452), res.Fee)
}

func TestSendProviderFeeRate(t *testing.T) {
	c := newChain()
	c.relayFee = 3000
	w := newTestWallet(t, c)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 100_000}}, 0)

	res, err := w.Build(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "10000", Unit: unit.Sat},
	}, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint64(678), res.Fee)
}

func TestSendInsufficientFunds(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 5_000}}, 0)

	_, err := w.Send(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "5000", Unit: unit.Sat},
	}, SendOptions{})
	assert.ErrorIs(t, err, tx.ErrInsufficientFunds)
	var fe *tx.FundsError
	assert.True(t, errors.As(err, &fe))
}

func TestSendNoUtxos(t *testing.T) {
	w := newTestWallet(t, newChain())
	_, err := w.Send(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "1000", Unit: unit.Sat},
	}, SendOptions{})
	assert.ErrorIs(t, err, tx.ErrNoUtxosAvailable)
}

func TestSendRejectsBadRequests(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 100_000}}, 0)

	hash := make([]byte, 20)
	testnetAddr, err := address.Encode(address.PrefixTestnet, address.P2PKH, hash)
	require.NoError(t, err)

	tokenA := "1111111111111111111111111111111111111111111111111111111111111111"
	tokenB := "2222222222222222222222222222222222222222222222222222222222222222"

	tests := []struct {
		name string
		reqs []SendRequest
		want error
	}{
		{"no requests", nil, ErrInvalidRequest},
		{"empty destination", []SendRequest{{Value: "1000"}}, ErrInvalidRequest},
		{"other network", []SendRequest{{Destination: testnetAddr, Value: "1000"}}, ErrNetworkMismatch},
		{"dust", []SendRequest{{Destination: testBCHAddress, Value: "100"}}, tx.ErrSerialization},
		{"usd without rate", []SendRequest{{Destination: testBCHAddress, Value: "1", Unit: unit.USD}}, unit.ErrNoExchangeRate},
		{"mixed tokens", []SendRequest{
			{Destination: testBCHAddress, Value: "1", TokenID: tokenA},
			{Destination: testBCHAddress, Value: "1", TokenID: tokenB},
		}, ErrMixedTokens},
		{"bad token id", []SendRequest{{Destination: testBCHAddress, Value: "1", TokenID: "abc"}}, ErrInvalidRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := w.Build(context.Background(), tc.reqs, SendOptions{})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSendUSD(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 1_000_000}}, 0)

	rate, ok := new(big.Rat).SetString("400")
	require.True(t, ok)
	_, err := w.Send(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "1", Unit: unit.USD},
	}, SendOptions{USDPerBCH: rate})
	require.NoError(t, err)
	assert.Equal(t, uint64(250_000), c.last(t).Outputs[0].Satoshis)
}

func TestSendPinnedUtxos(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)
	big1 := c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 500_000}}, 0)
	small := c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 50_000}}, 0)

	res, err := w.Send(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "10000", Unit: unit.Sat},
	}, SendOptions{UtxoIDs: []string{small + ":0"}})
	require.NoError(t, err)
	require.Len(t, res.Spent, 1)
	assert.Equal(t, small, res.Spent[0].TxID)
	assert.NotEqual(t, big1, res.Spent[0].TxID)

	_, err = w.Build(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "10000", Unit: unit.Sat},
	}, SendOptions{UtxoIDs: []string{small + ":7"}})
	assert.ErrorIs(t, err, ErrUnknownUtxo)

	_, err = w.Build(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "10000", Unit: unit.Sat},
	}, SendOptions{UtxoIDs: []string{"nonsense"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSendSkipsImmatureCoinbase(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 5_000_000}}, 0)
	c.utxos[0].Coinbase = true
	c.utxos[0].Height = c.height - 10

	_, err := w.Build(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "10000", Unit: unit.Sat},
	}, SendOptions{})
	assert.ErrorIs(t, err, tx.ErrNoUtxosAvailable)
}

func TestSendWatchOnly(t *testing.T) {
	acct, err := Resolve(WatchIdentity("mainnet", testAddress), nil)
	require.NoError(t, err)
	w, err := New(acct, newChain().provider(), WithLogger(log.Nop()))
	require.NoError(t, err)

	_, err = w.Send(context.Background(), []SendRequest{{Destination: testBCHAddress, Value: "1000"}}, SendOptions{})
	assert.ErrorIs(t, err, ErrWatchOnly)
	_, err = w.SendMax(context.Background(), testBCHAddress, SendOptions{})
	assert.ErrorIs(t, err, ErrWatchOnly)
}

func TestSendBroadcastRejected(t *testing.T) {
	c := newChain()
	c.rejectErr = fmt.Errorf("%w: txn-mempool-conflict", network.ErrBroadcastRejected)
	w := newTestWallet(t, c)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 100_000}}, 0)

	_, err := w.Send(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "10000", Unit: unit.Sat},
	}, SendOptions{})
	assert.ErrorIs(t, err, network.ErrBroadcastRejected)
}

func TestSendMax(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 50_000}}, 0)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 30_000}}, 0)

	max, err := w.MaxAmountToSend(context.Background(), 1, SendOptions{})
	require.NoError(t, err)
	// 10 overhead + 2*148 inputs + 34 output.
	assert.Equal(t, uint64(80_000-340), max)

	res, err := w.SendMax(context.Background(), testBCHAddress, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint64(340), res.Fee)
	assert.Len(t, res.Spent, 2)

	sent := c.last(t)
	require.Len(t, sent.Outputs, 1)
	assert.Equal(t, max, sent.Outputs[0].Satoshis)
}

func TestSendMaxErrors(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)

	_, err := w.SendMax(context.Background(), testBCHAddress, SendOptions{})
	assert.ErrorIs(t, err, tx.ErrNoUtxosAvailable)

	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 600}}, 0)
	_, err = w.SendMax(context.Background(), testBCHAddress, SendOptions{})
	assert.ErrorIs(t, err, tx.ErrInsufficientFunds)
}

func TestMaxAmountToSend(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)

	max, err := w.MaxAmountToSend(context.Background(), 1, SendOptions{})
	require.NoError(t, err)
	assert.Zero(t, max)

	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 100_000}}, 0)
	one, err := w.MaxAmountToSend(context.Background(), 1, SendOptions{})
	require.NoError(t, err)
	three, err := w.MaxAmountToSend(context.Background(), 3, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000-192), one)
	assert.Equal(t, one-2*34, three)
}

func TestBalance(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 150_000_000}}, 0)

	sat, err := w.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(150_000_000), sat)

	bch, err := w.BalanceIn(context.Background(), unit.BCH, nil)
	require.NoError(t, err)
	assert.Equal(t, "3/2", bch.String())

	rate, _ := new(big.Rat).SetString("200")
	summary, err := w.BalanceSummary(context.Background(), rate)
	require.NoError(t, err)
	assert.Equal(t, uint64(150_000_000), summary.Sat)
	assert.Equal(t, "1.5", summary.BCH)
	assert.Equal(t, "300", summary.USD)
}

func TestUtxos(t *testing.T) {
	c := newChain()
	w := newTestWallet(t, c)
	txid := c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 1000}, {Script: ownLock(t, w), Value: 2000}}, 0, 1)

	got, err := w.Utxos(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, utxo.Outpoint{TxID: txid, Vout: 0}, got[0].Outpoint)
	assert.Equal(t, uint64(2000), got[1].Value)
}

func TestSnapshotFailsOnProviderError(t *testing.T) {
	c := newChain()
	p := c.provider()
	p.GetBlockHeightFn = func(context.Context) (uint64, error) { return 0, network.ErrConnectionFailed }
	w, err := New(testAccount(t), p, WithLogger(log.Nop()))
	require.NoError(t, err)

	_, err = w.Utxos(context.Background())
	assert.ErrorIs(t, err, network.ErrConnectionFailed)
}

func TestSnapshotDefaultsFeeRateWhenUnsupported(t *testing.T) {
	c := newChain()
	p := c.provider()
	p.GetRelayFeeFn = nil
	w, err := New(testAccount(t), p, WithLogger(log.Nop()))
	require.NoError(t, err)
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 100_000}}, 0)

	res, err := w.Build(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "10000", Unit: unit.Sat},
	}, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint64(226), res.Fee)
}

func TestCustomSigner(t *testing.T) {
	c := newChain()
	var calls int
	signer := tx.SignerFunc(func(digest []byte, key *ec.PrivateKey) ([]byte, error) {
		calls++
		return tx.KeySigner{}.Sign(digest, key)
	})
	w := newTestWallet(t, c, WithSigner(signer))
	c.addTx(t, []tx.Output{{Script: ownLock(t, w), Value: 100_000}}, 0)

	_, err := w.Send(context.Background(), []SendRequest{
		{Destination: testBCHAddress, Value: "10000", Unit: unit.Sat},
	}, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
