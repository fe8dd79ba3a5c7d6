package network

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
)

var _ Provider = (*RPCClient)(nil)

type listUnspentEntry struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Address       string  `json:"address"`
	ScriptPubKey  string  `json:"scriptPubKey"`
	Amount        float64 `json:"amount"`
	Confirmations int64   `json:"confirmations"`
}

// GetUtxos lists the node wallet's unspent outputs for address. The address
// must have been imported with ImportAddress. Heights are derived from the
// confirmation count against the current tip, and outputs of coinbase
// transactions are flagged from their parent.
func (c *RPCClient) GetUtxos(ctx context.Context, address string) ([]*UTXO, error) {
	out, err := c.listUnspent(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := markCoinbase(ctx, c.GetRawTransaction, &c.coinbase, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RPCClient) listUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	var entries []listUnspentEntry
	if err := c.Call(ctx, "listunspent", []interface{}{0, 9999999, []string{address}}, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []*UTXO{}, nil
	}

	tip, err := c.GetBlockHeight(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*UTXO, 0, len(entries))
	for _, e := range entries {
		u := &UTXO{
			TxID:         e.TxID,
			Vout:         e.Vout,
			Amount:       bchToSat(e.Amount),
			ScriptPubKey: e.ScriptPubKey,
		}
		if e.Confirmations > 0 && uint64(e.Confirmations) <= tip+1 {
			u.Height = tip - uint64(e.Confirmations) + 1
		}
		out = append(out, u)
	}
	return out, nil
}

// GetBalance sums the unspent outputs of address.
func (c *RPCClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	utxos, err := c.listUnspent(ctx, address)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, u := range utxos {
		total += u.Amount
	}
	return total, nil
}

// GetBlockHeight returns the node's best block height.
func (c *RPCClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	if err := c.Call(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// GetRelayFee returns the node's minimum relay fee in sat/kB.
func (c *RPCClient) GetRelayFee(ctx context.Context) (uint64, error) {
	var info struct {
		RelayFee float64 `json:"relayfee"`
	}
	if err := c.Call(ctx, "getnetworkinfo", nil, &info); err != nil {
		return 0, err
	}
	return feeRateToSatPerKB(info.RelayFee), nil
}

// SendRawTransaction submits a raw transaction to the node's mempool.
func (c *RPCClient) SendRawTransaction(ctx context.Context, rawTxHex string) (string, error) {
	var txid string
	if err := c.Call(ctx, "sendrawtransaction", []interface{}{rawTxHex}, &txid); err != nil {
		var rerr *rpcError
		if errors.As(err, &rerr) {
			return "", fmt.Errorf("%w: %s", ErrBroadcastRejected, rerr.Message)
		}
		return "", err
	}
	return txid, nil
}

// GetRawTransaction fetches the serialized transaction by txid.
func (c *RPCClient) GetRawTransaction(ctx context.Context, txid string) ([]byte, error) {
	var rawHex string
	if err := c.Call(ctx, "getrawtransaction", []interface{}{txid, false}, &rawHex); err != nil {
		return nil, txLookupError(txid, err)
	}
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx hex: %v", ErrInvalidResponse, err)
	}
	return raw, nil
}

// GetRawTransactionObject fetches the verbose transaction by txid.
func (c *RPCClient) GetRawTransactionObject(ctx context.Context, txid string) (*TxRecord, error) {
	var v verboseTx
	if err := c.Call(ctx, "getrawtransaction", []interface{}{txid, true}, &v); err != nil {
		return nil, txLookupError(txid, err)
	}
	return v.record()
}

// GetHistory is not offered by a plain node without an address index.
func (c *RPCClient) GetHistory(ctx context.Context, address string) ([]HistoryEntry, error) {
	return nil, fmt.Errorf("%w: address history requires an indexing server", ErrUnsupported)
}

// ImportAddress adds a watch-only address to the node wallet without a rescan.
func (c *RPCClient) ImportAddress(ctx context.Context, address string) error {
	return c.Call(ctx, "importaddress", []interface{}{address, "", false}, nil)
}

// rpcNoSuchTx is the node error code for an unknown transaction.
const rpcNoSuchTx = -5

func txLookupError(txid string, err error) error {
	var rerr *rpcError
	if errors.As(err, &rerr) && rerr.Code == rpcNoSuchTx {
		return fmt.Errorf("%w: %s", ErrTxNotFound, txid)
	}
	return err
}
