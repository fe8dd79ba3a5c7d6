package tx

import (
	"math/big"
	"sort"

	"github.com/bitfsorg/libcash-go/utxo"
)

// CoinbaseMaturity is the number of confirmations before a coinbase output
// may be spent.
const CoinbaseMaturity = 100

// Policy carries the spending rules applied during selection and planning.
type Policy struct {
	FeeRate                uint64 // sat/KB
	DustLimit              uint64
	CoinbaseMaturity       uint64
	MaxFeeRounds           int
	SpendUnconfirmedTokens bool
}

// DefaultPolicy returns the standard relay policy.
func DefaultPolicy() Policy {
	return Policy{
		FeeRate:                DefaultFeeRate,
		DustLimit:              DustLimit,
		CoinbaseMaturity:       CoinbaseMaturity,
		MaxFeeRounds:           DefaultMaxFeeRounds,
		SpendUnconfirmedTokens: true,
	}
}

func (p Policy) withDefaults() Policy {
	if p.FeeRate == 0 {
		p.FeeRate = DefaultFeeRate
	}
	if p.DustLimit == 0 {
		p.DustLimit = DustLimit
	}
	if p.MaxFeeRounds <= 0 {
		p.MaxFeeRounds = DefaultMaxFeeRounds
	}
	return p
}

func immature(u utxo.UTXO, height uint64, maturity uint64) bool {
	return u.Coinbase && u.Confirmations(height) < maturity
}

// Eligible returns the outputs spendable as plain value at height: token
// tagged outputs and immature coinbase outputs are removed.
func Eligible(utxos []utxo.UTXO, height uint64, p Policy) []utxo.UTXO {
	out := make([]utxo.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.IsToken() || immature(u, height, p.CoinbaseMaturity) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// sortLargestFirst orders by descending value, ties by ascending outpoint.
func sortLargestFirst(utxos []utxo.UTXO, value func(utxo.UTXO) *big.Int) {
	sort.SliceStable(utxos, func(i, j int) bool {
		if c := value(utxos[i]).Cmp(value(utxos[j])); c != 0 {
			return c > 0
		}
		return utxos[i].Outpoint.Less(utxos[j].Outpoint)
	})
}

func baseValue(u utxo.UTXO) *big.Int { return new(big.Int).SetUint64(u.Value) }

func tokenValue(u utxo.UTXO) *big.Int {
	if u.Token == nil || u.Token.Amount == nil {
		return new(big.Int)
	}
	return u.Token.Amount
}

// SelectCoins picks candidates largest first until their sum reaches target.
// It does not filter; pass the result of Eligible.
func SelectCoins(candidates []utxo.UTXO, target uint64) ([]utxo.UTXO, error) {
	sorted := append([]utxo.UTXO(nil), candidates...)
	sortLargestFirst(sorted, baseValue)

	var (
		picked []utxo.UTXO
		sum    uint64
	)
	for _, u := range sorted {
		if sum >= target {
			break
		}
		picked = append(picked, u)
		sum += u.Value
	}
	if sum < target {
		return nil, &FundsError{Required: target, Available: sum}
	}
	return picked, nil
}

// SelectTokens picks normal-role outputs of tokenID, largest amount first,
// until they cover amount. It returns the picked outputs and their total.
func SelectTokens(utxos []utxo.UTXO, tokenID string, amount *big.Int, height uint64, p Policy) ([]utxo.UTXO, *big.Int, error) {
	var candidates []utxo.UTXO
	for _, u := range utxos {
		if u.Token == nil || u.Token.Role != utxo.RoleNormal || u.Token.TokenID != tokenID {
			continue
		}
		if !p.SpendUnconfirmedTokens && u.Height == 0 {
			continue
		}
		if immature(u, height, p.CoinbaseMaturity) {
			continue
		}
		candidates = append(candidates, u)
	}
	sortLargestFirst(candidates, tokenValue)

	var picked []utxo.UTXO
	sum := new(big.Int)
	for _, u := range candidates {
		if sum.Cmp(amount) >= 0 {
			break
		}
		picked = append(picked, u)
		sum.Add(sum, tokenValue(u))
	}
	if sum.Cmp(amount) < 0 {
		return nil, nil, &TokenFundsError{
			TokenID:   tokenID,
			Required:  new(big.Int).Set(amount),
			Available: sum,
		}
	}
	return picked, sum, nil
}
