package network

import "context"

// Provider is remote ledger access consumed by the wallet. Implementations
// must be safe for concurrent use.
type Provider interface {
	// GetUtxos returns the unspent outputs paying to address.
	GetUtxos(ctx context.Context, address string) ([]*UTXO, error)

	// GetBalance returns the confirmed plus unconfirmed balance in satoshi.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetBlockHeight returns the height of the chain tip.
	GetBlockHeight(ctx context.Context) (uint64, error)

	// GetRelayFee returns the minimum relay fee rate in satoshi per kB.
	GetRelayFee(ctx context.Context) (uint64, error)

	// SendRawTransaction broadcasts a hex-encoded transaction and returns its
	// txid. Rejections wrap ErrBroadcastRejected.
	SendRawTransaction(ctx context.Context, rawTxHex string) (string, error)

	// GetRawTransaction returns the serialized transaction.
	GetRawTransaction(ctx context.Context, txid string) ([]byte, error)

	// GetRawTransactionObject returns the decoded transaction record.
	GetRawTransactionObject(ctx context.Context, txid string) (*TxRecord, error)

	// GetHistory returns the transactions touching address, oldest first.
	GetHistory(ctx context.Context, address string) ([]HistoryEntry, error)
}

// Subscriber delivers address push notifications. The channel is both the
// delivery target and the subscription key. Delivery never blocks: when ch
// is full the notification is coalesced with the pending one.
type Subscriber interface {
	SubscribeAddress(ctx context.Context, address string, ch chan<- Notification) error
	UnsubscribeAddress(ctx context.Context, address string, ch chan<- Notification) error
}

// Notification reports that the status of an address changed.
type Notification struct {
	Address string `json:"address"`
	Status  string `json:"status"`
}

// UTXO is an unspent output as reported by a provider.
type UTXO struct {
	TxID         string `json:"txid"`
	Vout         uint32 `json:"vout"`
	Amount       uint64 `json:"amount"`
	Height       uint64 `json:"height"`
	Coinbase     bool   `json:"coinbase,omitempty"`
	ScriptPubKey string `json:"script_pubkey,omitempty"`
}

// HistoryEntry is one transaction in an address history. Height is zero or
// negative for mempool transactions.
type HistoryEntry struct {
	TxID   string `json:"tx_hash"`
	Height int64  `json:"height"`
}

// TxRecord is a decoded transaction.
type TxRecord struct {
	TxID          string     `json:"txid"`
	Hash          string     `json:"hash"`
	Hex           string     `json:"hex"`
	Size          int        `json:"size"`
	Version       int32      `json:"version"`
	LockTime      uint32     `json:"locktime"`
	Confirmations int64      `json:"confirmations"`
	BlockHash     string     `json:"blockhash,omitempty"`
	Time          int64      `json:"time,omitempty"`
	BlockTime     int64      `json:"blocktime,omitempty"`
	Vin           []TxInput  `json:"vin"`
	Vout          []TxOutput `json:"vout"`
}

// TxInput is an input of a TxRecord.
type TxInput struct {
	TxID      string `json:"txid,omitempty"`
	Vout      uint32 `json:"vout"`
	Coinbase  string `json:"coinbase,omitempty"`
	ScriptSig string `json:"script_sig,omitempty"`
	Sequence  uint32 `json:"sequence"`
}

// TxOutput is an output of a TxRecord. Value is in satoshi.
type TxOutput struct {
	N            uint32   `json:"n"`
	Value        uint64   `json:"value"`
	ScriptPubKey string   `json:"script_pubkey"`
	Type         string   `json:"type,omitempty"`
	Addresses    []string `json:"addresses,omitempty"`
}
