package utxo

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bitfsorg/libcash-go/network"
)

// Source lists the unspent outputs of an address.
type Source interface {
	GetUtxos(ctx context.Context, address string) ([]*network.UTXO, error)
}

// Classifier annotates outputs that carry overlay token value. It returns
// the full set, tagged or not, and must not mutate its input.
type Classifier interface {
	Classify(ctx context.Context, utxos []UTXO) ([]UTXO, error)
}

// Fetch takes a fresh snapshot of address from src. When classifier is nil
// every output is treated as plain value.
func Fetch(ctx context.Context, src Source, classifier Classifier, address string) (Set, error) {
	raw, err := src.GetUtxos(ctx, address)
	if err != nil {
		return Set{}, fmt.Errorf("utxo: fetch %s: %w", address, err)
	}

	utxos := make([]UTXO, 0, len(raw))
	for _, r := range raw {
		u, err := FromNetwork(r)
		if err != nil {
			return Set{}, err
		}
		utxos = append(utxos, u)
	}

	if classifier != nil && len(utxos) > 0 {
		utxos, err = classifier.Classify(ctx, utxos)
		if err != nil {
			return Set{}, fmt.Errorf("utxo: classify: %w", err)
		}
	}
	return NewSet(utxos...), nil
}

// FromNetwork converts a provider output.
func FromNetwork(r *network.UTXO) (UTXO, error) {
	if r == nil || len(r.TxID) != 64 {
		return UTXO{}, fmt.Errorf("utxo: provider returned invalid outpoint")
	}
	u := UTXO{
		Outpoint: Outpoint{TxID: strings.ToLower(r.TxID), Vout: r.Vout},
		Value:    r.Amount,
		Height:   r.Height,
		Coinbase: r.Coinbase,
	}
	if r.ScriptPubKey != "" {
		script, err := hex.DecodeString(r.ScriptPubKey)
		if err != nil {
			return UTXO{}, fmt.Errorf("utxo: invalid script for %s: %w", u.Outpoint, err)
		}
		u.Script = script
	}
	return u, nil
}
