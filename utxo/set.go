package utxo

import (
	"math/big"
	"sort"
)

// Set is an immutable snapshot of outputs. Later entries with an outpoint
// already in the set are dropped, so each physical output appears once.
type Set struct {
	items []UTXO
	index map[Outpoint]int
}

// NewSet builds a snapshot from deep copies of utxos.
func NewSet(utxos ...UTXO) Set {
	s := Set{
		items: make([]UTXO, 0, len(utxos)),
		index: make(map[Outpoint]int, len(utxos)),
	}
	for _, u := range utxos {
		if _, dup := s.index[u.Outpoint]; dup {
			continue
		}
		s.index[u.Outpoint] = len(s.items)
		s.items = append(s.items, u.Clone())
	}
	return s
}

// Len returns the number of outputs.
func (s Set) Len() int { return len(s.items) }

// All returns copies of every output in snapshot order.
func (s Set) All() []UTXO {
	out := make([]UTXO, len(s.items))
	for i, u := range s.items {
		out[i] = u.Clone()
	}
	return out
}

// Contains reports whether op is in the set.
func (s Set) Contains(op Outpoint) bool {
	_, ok := s.index[op]
	return ok
}

// Get returns the output at op.
func (s Set) Get(op Outpoint) (UTXO, bool) {
	i, ok := s.index[op]
	if !ok {
		return UTXO{}, false
	}
	return s.items[i].Clone(), true
}

func (s Set) filter(keep func(UTXO) bool) Set {
	var out []UTXO
	for _, u := range s.items {
		if keep(u) {
			out = append(out, u)
		}
	}
	return NewSet(out...)
}

// Base returns the outputs with no token tag, the only ones spendable as
// plain value.
func (s Set) Base() Set {
	return s.filter(func(u UTXO) bool { return u.Token == nil })
}

// Tokens returns every token-tagged output, batons included.
func (s Set) Tokens() Set {
	return s.filter(func(u UTXO) bool { return u.Token != nil })
}

// ByToken returns normal-role outputs of tokenID.
func (s Set) ByToken(tokenID string) Set {
	return s.filter(func(u UTXO) bool {
		return u.Token != nil && u.Token.Role == RoleNormal && u.Token.TokenID == tokenID
	})
}

// Batons returns mint batons. An empty tokenID matches every token.
func (s Set) Batons(tokenID string) Set {
	return s.filter(func(u UTXO) bool {
		return u.IsBaton() && (tokenID == "" || u.Token.TokenID == tokenID)
	})
}

// Only returns the outputs whose outpoints are listed, in listing order.
// Unknown outpoints are skipped.
func (s Set) Only(ops []Outpoint) Set {
	var out []UTXO
	for _, op := range ops {
		if i, ok := s.index[op]; ok {
			out = append(out, s.items[i])
		}
	}
	return NewSet(out...)
}

// Value sums the base value of untagged outputs.
func (s Set) Value() uint64 {
	var total uint64
	for _, u := range s.items {
		if u.Token == nil {
			total += u.Value
		}
	}
	return total
}

// TokenBalance is the aggregate holding of one token.
type TokenBalance struct {
	TokenID  string
	Ticker   string
	Name     string
	Decimals uint8
	Amount   *big.Int
}

// TokenBalances aggregates normal-role token outputs by token id, sorted by
// token id.
func (s Set) TokenBalances() []TokenBalance {
	byID := make(map[string]*TokenBalance)
	for _, u := range s.items {
		if u.Token == nil || u.Token.Role != RoleNormal {
			continue
		}
		b, ok := byID[u.Token.TokenID]
		if !ok {
			b = &TokenBalance{
				TokenID:  u.Token.TokenID,
				Ticker:   u.Token.Ticker,
				Name:     u.Token.Name,
				Decimals: u.Token.Decimals,
				Amount:   new(big.Int),
			}
			byID[u.Token.TokenID] = b
		}
		if u.Token.Amount != nil {
			b.Amount.Add(b.Amount, u.Token.Amount)
		}
	}

	out := make([]TokenBalance, 0, len(byID))
	for _, b := range byID {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}
