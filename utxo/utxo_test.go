package utxo

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libcash-go/network"
)

var (
	txA = strings.Repeat("a", 64)
	txB = strings.Repeat("b", 64)
	tok = strings.Repeat("1", 64)
)

func base(txid string, vout uint32, value uint64) UTXO {
	return UTXO{Outpoint: Outpoint{TxID: txid, Vout: vout}, Value: value, Height: 10}
}

func tagged(txid string, vout uint32, amount int64, role Role) UTXO {
	return base(txid, vout, 546).WithToken(TokenTag{
		TokenID:  tok,
		Ticker:   "TOK",
		Decimals: 2,
		Role:     role,
		Amount:   big.NewInt(amount),
	})
}

func TestParseOutpoint(t *testing.T) {
	op, err := ParseOutpoint(strings.ToUpper(txA) + ":3")
	require.NoError(t, err)
	assert.Equal(t, Outpoint{TxID: txA, Vout: 3}, op)
	assert.Equal(t, txA+":3", op.String())

	for _, bad := range []string{"", txA, "abc:1", txA + ":x", txA + ":-1"} {
		_, err := ParseOutpoint(bad)
		assert.Error(t, err, bad)
	}
}

func TestOutpointLess(t *testing.T) {
	assert.True(t, Outpoint{TxID: txA, Vout: 5}.Less(Outpoint{TxID: txB, Vout: 0}))
	assert.True(t, Outpoint{TxID: txA, Vout: 0}.Less(Outpoint{TxID: txA, Vout: 1}))
	assert.False(t, Outpoint{TxID: txA, Vout: 1}.Less(Outpoint{TxID: txA, Vout: 1}))
}

func TestConfirmations(t *testing.T) {
	u := base(txA, 0, 1)
	assert.Equal(t, uint64(1), u.Confirmations(10))
	assert.Equal(t, uint64(91), u.Confirmations(100))
	assert.Zero(t, u.Confirmations(9))
	u.Height = 0
	assert.Zero(t, u.Confirmations(100))
}

func TestSetDeepCopies(t *testing.T) {
	orig := tagged(txA, 1, 50, RoleNormal)
	s := NewSet(orig)

	orig.Token.Amount.SetInt64(999)
	got, ok := s.Get(orig.Outpoint)
	require.True(t, ok)
	assert.Equal(t, int64(50), got.Token.Amount.Int64())

	got.Token.Amount.SetInt64(7)
	again, _ := s.Get(orig.Outpoint)
	assert.Equal(t, int64(50), again.Token.Amount.Int64())
}

func TestSetDedupesOutpoints(t *testing.T) {
	s := NewSet(base(txA, 0, 100), base(txA, 0, 200), base(txA, 1, 300))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, uint64(400), s.Value())
}

func TestSetViews(t *testing.T) {
	s := NewSet(
		base(txA, 0, 10_000),
		tagged(txA, 1, 30, RoleNormal),
		tagged(txA, 2, 0, RoleMintBaton),
		base(txB, 0, 5_000),
		tagged(txB, 1, 12, RoleNormal),
	)

	assert.Equal(t, 2, s.Base().Len())
	assert.Equal(t, uint64(15_000), s.Value(), "token outputs never count as base value")
	assert.Equal(t, 3, s.Tokens().Len())
	assert.Equal(t, 2, s.ByToken(tok).Len())
	assert.Equal(t, 1, s.Batons(tok).Len())
	assert.Equal(t, 1, s.Batons("").Len())
	assert.Zero(t, s.Batons(strings.Repeat("2", 64)).Len())

	for _, u := range s.Base().All() {
		assert.False(t, s.Tokens().Contains(u.Outpoint))
	}

	bals := s.TokenBalances()
	require.Len(t, bals, 1)
	assert.Equal(t, tok, bals[0].TokenID)
	assert.Equal(t, "TOK", bals[0].Ticker)
	assert.Equal(t, int64(42), bals[0].Amount.Int64())

	assert.Equal(t, int64(42), SumTokens(s.All(), tok).Int64())
}

func TestSetOnly(t *testing.T) {
	s := NewSet(base(txA, 0, 1), base(txA, 1, 2), base(txB, 0, 3))
	only := s.Only([]Outpoint{{TxID: txB, Vout: 0}, {TxID: txA, Vout: 0}, {TxID: txB, Vout: 9}})
	all := only.All()
	require.Len(t, all, 2)
	assert.Equal(t, uint64(3), all[0].Value)
	assert.Equal(t, uint64(1), all[1].Value)
}

type stubClassifier struct {
	fn func([]UTXO) ([]UTXO, error)
}

func (s stubClassifier) Classify(_ context.Context, utxos []UTXO) ([]UTXO, error) {
	return s.fn(utxos)
}

func TestFetch(t *testing.T) {
	src := &network.MockProvider{
		GetUtxosFn: func(_ context.Context, address string) ([]*network.UTXO, error) {
			assert.Equal(t, "addr", address)
			return []*network.UTXO{
				{TxID: strings.ToUpper(txA), Vout: 0, Amount: 1000, Height: 5, ScriptPubKey: "76a9"},
				{TxID: txA, Vout: 1, Amount: 546, Height: 5, Coinbase: true},
			}, nil
		},
	}

	s, err := Fetch(context.Background(), src, nil, "addr")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	first, ok := s.Get(Outpoint{TxID: txA, Vout: 0})
	require.True(t, ok)
	assert.Equal(t, []byte{0x76, 0xa9}, first.Script)
	second, _ := s.Get(Outpoint{TxID: txA, Vout: 1})
	assert.True(t, second.Coinbase)

	classifier := stubClassifier{fn: func(in []UTXO) ([]UTXO, error) {
		out := make([]UTXO, len(in))
		copy(out, in)
		out[1] = in[1].WithToken(TokenTag{TokenID: tok, Amount: big.NewInt(5)})
		return out, nil
	}}
	s, err = Fetch(context.Background(), src, classifier, "addr")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Base().Len())
	assert.Equal(t, 1, s.ByToken(tok).Len())
}

func TestFetchErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Fetch(context.Background(), &network.MockProvider{
		GetUtxosFn: func(context.Context, string) ([]*network.UTXO, error) { return nil, boom },
	}, nil, "addr")
	assert.ErrorIs(t, err, boom)

	_, err = Fetch(context.Background(), &network.MockProvider{
		GetUtxosFn: func(context.Context, string) ([]*network.UTXO, error) {
			return []*network.UTXO{{TxID: "short"}}, nil
		},
	}, nil, "addr")
	assert.Error(t, err)

	_, err = Fetch(context.Background(), &network.MockProvider{
		GetUtxosFn: func(context.Context, string) ([]*network.UTXO, error) {
			return []*network.UTXO{{TxID: txA, ScriptPubKey: "zz"}}, nil
		},
	}, nil, "addr")
	assert.Error(t, err)
}
