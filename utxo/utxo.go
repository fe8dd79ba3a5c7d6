// Package utxo holds typed, immutable snapshots of an address's spendable
// outputs. An output carries at most one TokenTag; base value and token
// value are accounted separately and never summed.
package utxo

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Role distinguishes ordinary token outputs from mint batons.
type Role uint8

const (
	RoleNormal Role = iota
	RoleMintBaton
)

func (r Role) String() string {
	if r == RoleMintBaton {
		return "baton"
	}
	return "normal"
}

// Outpoint identifies an output. Two outputs are the same iff their
// outpoints are equal.
type Outpoint struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}

func (o Outpoint) String() string {
	return o.TxID + ":" + strconv.FormatUint(uint64(o.Vout), 10)
}

// ParseOutpoint parses the "txid:vout" form.
func ParseOutpoint(s string) (Outpoint, error) {
	txid, vout, ok := strings.Cut(s, ":")
	if !ok || len(txid) != 64 {
		return Outpoint{}, fmt.Errorf("utxo: invalid outpoint %q", s)
	}
	n, err := strconv.ParseUint(vout, 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("utxo: invalid outpoint %q: %w", s, err)
	}
	return Outpoint{TxID: strings.ToLower(txid), Vout: uint32(n)}, nil
}

// Less orders outpoints by (TxID, Vout) ascending.
func (o Outpoint) Less(other Outpoint) bool {
	if o.TxID != other.TxID {
		return o.TxID < other.TxID
	}
	return o.Vout < other.Vout
}

// TokenTag annotates an output that carries overlay token value.
type TokenTag struct {
	TokenID  string   `json:"token_id"`
	Ticker   string   `json:"ticker,omitempty"`
	Name     string   `json:"name,omitempty"`
	Decimals uint8    `json:"decimals"`
	Role     Role     `json:"role"`
	Amount   *big.Int `json:"amount"`
}

func (t *TokenTag) clone() *TokenTag {
	if t == nil {
		return nil
	}
	c := *t
	if t.Amount != nil {
		c.Amount = new(big.Int).Set(t.Amount)
	} else {
		c.Amount = new(big.Int)
	}
	return &c
}

// UTXO is an unspent output.
type UTXO struct {
	Outpoint
	Value    uint64    `json:"value"`
	Height   uint64    `json:"height"`
	Coinbase bool      `json:"coinbase,omitempty"`
	Script   []byte    `json:"script,omitempty"`
	Token    *TokenTag `json:"token,omitempty"`
}

// Clone returns a deep copy.
func (u UTXO) Clone() UTXO {
	c := u
	if u.Script != nil {
		c.Script = append([]byte(nil), u.Script...)
	}
	c.Token = u.Token.clone()
	return c
}

// WithToken returns a copy of u tagged with tag.
func (u UTXO) WithToken(tag TokenTag) UTXO {
	c := u.Clone()
	c.Token = tag.clone()
	return c
}

// Confirmations returns the confirmation count at tip height.
func (u UTXO) Confirmations(tip uint64) uint64 {
	if u.Height == 0 || u.Height > tip {
		return 0
	}
	return tip - u.Height + 1
}

// IsToken reports whether the output carries a token tag of any role.
func (u UTXO) IsToken() bool { return u.Token != nil }

// IsBaton reports whether the output is a mint baton.
func (u UTXO) IsBaton() bool { return u.Token != nil && u.Token.Role == RoleMintBaton }

// SumValue sums base values.
func SumValue(utxos []UTXO) uint64 {
	var total uint64
	for _, u := range utxos {
		total += u.Value
	}
	return total
}

// SumTokens sums token amounts of normal-role outputs for tokenID.
func SumTokens(utxos []UTXO, tokenID string) *big.Int {
	total := new(big.Int)
	for _, u := range utxos {
		if u.Token != nil && u.Token.Role == RoleNormal && u.Token.TokenID == tokenID && u.Token.Amount != nil {
			total.Add(total, u.Token.Amount)
		}
	}
	return total
}
