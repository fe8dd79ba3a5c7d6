package network

import (
	"encoding/hex"
	"fmt"
	"math"
)

// bchToSat converts a coin-denominated float (as returned by node and
// Electrum JSON) to satoshi.
func bchToSat(v float64) uint64 {
	if v <= 0 {
		return 0
	}
	return uint64(math.Round(v * 1e8))
}

// feeRateToSatPerKB converts a BCH/kB relay fee to sat/kB.
func feeRateToSatPerKB(v float64) uint64 {
	return bchToSat(v)
}

// verboseTx maps the verbose transaction JSON shared by the node's
// getrawtransaction and Electrum's blockchain.transaction.get.
type verboseTx struct {
	TxID          string `json:"txid"`
	Hash          string `json:"hash"`
	Hex           string `json:"hex"`
	Size          int    `json:"size"`
	Version       int32  `json:"version"`
	LockTime      uint32 `json:"locktime"`
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"blockhash"`
	Time          int64  `json:"time"`
	BlockTime     int64  `json:"blocktime"`
	Vin           []struct {
		TxID      string `json:"txid"`
		Vout      uint32 `json:"vout"`
		Coinbase  string `json:"coinbase"`
		ScriptSig struct {
			Hex string `json:"hex"`
		} `json:"scriptSig"`
		Sequence uint32 `json:"sequence"`
	} `json:"vin"`
	Vout []struct {
		Value        float64 `json:"value"`
		N            uint32  `json:"n"`
		ScriptPubKey struct {
			Hex       string   `json:"hex"`
			Type      string   `json:"type"`
			Addresses []string `json:"addresses"`
		} `json:"scriptPubKey"`
	} `json:"vout"`
}

func (v *verboseTx) record() (*TxRecord, error) {
	if v.TxID == "" {
		return nil, fmt.Errorf("%w: transaction without txid", ErrInvalidResponse)
	}
	if v.Hex != "" {
		if _, err := hex.DecodeString(v.Hex); err != nil {
			return nil, fmt.Errorf("%w: invalid tx hex: %v", ErrInvalidResponse, err)
		}
	}

	rec := &TxRecord{
		TxID:          v.TxID,
		Hash:          v.Hash,
		Hex:           v.Hex,
		Size:          v.Size,
		Version:       v.Version,
		LockTime:      v.LockTime,
		Confirmations: v.Confirmations,
		BlockHash:     v.BlockHash,
		Time:          v.Time,
		BlockTime:     v.BlockTime,
		Vin:           make([]TxInput, len(v.Vin)),
		Vout:          make([]TxOutput, len(v.Vout)),
	}
	for i, in := range v.Vin {
		rec.Vin[i] = TxInput{
			TxID:      in.TxID,
			Vout:      in.Vout,
			Coinbase:  in.Coinbase,
			ScriptSig: in.ScriptSig.Hex,
			Sequence:  in.Sequence,
		}
	}
	for i, out := range v.Vout {
		rec.Vout[i] = TxOutput{
			N:            out.N,
			Value:        bchToSat(out.Value),
			ScriptPubKey: out.ScriptPubKey.Hex,
			Type:         out.ScriptPubKey.Type,
			Addresses:    out.ScriptPubKey.Addresses,
		}
	}
	return rec, nil
}
