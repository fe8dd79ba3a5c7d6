package network

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bitfsorg/libcash-go/log"
)

// ElectrumProtocolVersion is the protocol version negotiated on dial.
const ElectrumProtocolVersion = "1.4"

var (
	_ Provider   = (*ElectrumClient)(nil)
	_ Subscriber = (*ElectrumClient)(nil)
)

// ElectrumClient is a JSON-RPC 2.0 client for Fulcrum/ElectrumX style
// indexing servers over a websocket. One goroutine reads the connection and
// routes responses to callers and address notifications to subscribers.
type ElectrumClient struct {
	conn   *websocket.Conn
	nextID atomic.Int64
	log    zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan electrumMessage
	subs    map[string]map[chan<- Notification]struct{}

	closeOnce sync.Once
	done      chan struct{}
	closeErr  error

	coinbase coinbaseCache
}

type electrumRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type electrumMessage struct {
	ID     *int64            `json:"id"`
	Result json.RawMessage   `json:"result"`
	Error  *electrumError    `json:"error"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type electrumError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *electrumError) Error() string {
	return fmt.Sprintf("electrum error %d: %s", e.Code, e.Message)
}

// DialElectrum connects to a websocket endpoint such as wss://host:50004 and
// negotiates the protocol version.
func DialElectrum(ctx context.Context, url string) (*ElectrumClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &ElectrumClient{
		conn:    conn,
		log:     log.Network.With().Str("provider", "electrum").Str("url", url).Logger(),
		pending: make(map[int64]chan electrumMessage),
		subs:    make(map[string]map[chan<- Notification]struct{}),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	if err := c.call(ctx, "server.version", []interface{}{"libcash-go", ElectrumProtocolVersion}, nil); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.log.Debug().Msg("electrum connected")
	return c, nil
}

// Close terminates the connection. Pending calls fail with ErrClosed.
func (c *ElectrumClient) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func (c *ElectrumClient) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeErr = err
		c.mu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *ElectrumClient) readLoop() {
	for {
		var msg electrumMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warn().Err(err).Msg("electrum connection lost")
			}
			c.shutdown(fmt.Errorf("%w: %w", ErrConnectionFailed, err))
			return
		}

		if msg.ID != nil {
			c.mu.Lock()
			ch, ok := c.pending[*msg.ID]
			delete(c.pending, *msg.ID)
			c.mu.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}

		if msg.Method == "blockchain.address.subscribe" {
			c.dispatch(msg.Params)
		}
	}
}

func (c *ElectrumClient) dispatch(params []json.RawMessage) {
	if len(params) < 1 {
		return
	}
	var n Notification
	if err := json.Unmarshal(params[0], &n.Address); err != nil {
		return
	}
	if len(params) > 1 {
		_ = json.Unmarshal(params[1], &n.Status)
	}

	c.mu.Lock()
	targets := make([]chan<- Notification, 0, len(c.subs[n.Address]))
	for ch := range c.subs[n.Address] {
		targets = append(targets, ch)
	}
	c.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- n:
		default:
			// A notification is already queued; the subscriber will re-read
			// state when it drains it.
		}
	}
}

func (c *ElectrumClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	id := c.nextID.Add(1)
	respCh := make(chan electrumMessage, 1)

	c.mu.Lock()
	select {
	case <-c.done:
		err := c.closeErr
		c.mu.Unlock()
		return err
	default:
	}
	c.pending[id] = respCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(electrumRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrConnectionFailed, method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		c.mu.Lock()
		err := c.closeErr
		c.mu.Unlock()
		return err
	case msg := <-respCh:
		if msg.Error != nil {
			return fmt.Errorf("network: %s: %w", method, msg.Error)
		}
		if result != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, result); err != nil {
				return fmt.Errorf("%w: unmarshal %s result: %w", ErrInvalidResponse, method, err)
			}
		}
		return nil
	}
}

// GetUtxos returns the unspent outputs of address. Mempool outputs report
// height zero. Outputs of coinbase transactions are flagged from their
// parent, fetched once per transaction.
func (c *ElectrumClient) GetUtxos(ctx context.Context, address string) ([]*UTXO, error) {
	var entries []struct {
		TxHash string `json:"tx_hash"`
		TxPos  uint32 `json:"tx_pos"`
		Height int64  `json:"height"`
		Value  uint64 `json:"value"`
	}
	if err := c.call(ctx, "blockchain.address.listunspent", []interface{}{address}, &entries); err != nil {
		return nil, err
	}
	out := make([]*UTXO, 0, len(entries))
	for _, e := range entries {
		u := &UTXO{TxID: e.TxHash, Vout: e.TxPos, Amount: e.Value}
		if e.Height > 0 {
			u.Height = uint64(e.Height)
		}
		out = append(out, u)
	}
	if err := markCoinbase(ctx, c.GetRawTransaction, &c.coinbase, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBalance returns confirmed plus unconfirmed satoshi. A negative mempool
// delta exceeding the confirmed balance clamps to zero.
func (c *ElectrumClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	var bal struct {
		Confirmed   int64 `json:"confirmed"`
		Unconfirmed int64 `json:"unconfirmed"`
	}
	if err := c.call(ctx, "blockchain.address.get_balance", []interface{}{address}, &bal); err != nil {
		return 0, err
	}
	total := bal.Confirmed + bal.Unconfirmed
	if total < 0 {
		return 0, nil
	}
	return uint64(total), nil
}

// GetBlockHeight returns the tip height reported by headers.subscribe.
func (c *ElectrumClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	var tip struct {
		Height uint64 `json:"height"`
	}
	if err := c.call(ctx, "blockchain.headers.subscribe", nil, &tip); err != nil {
		return 0, err
	}
	return tip.Height, nil
}

// GetRelayFee returns the server's relay fee in sat/kB.
func (c *ElectrumClient) GetRelayFee(ctx context.Context) (uint64, error) {
	var fee float64
	if err := c.call(ctx, "blockchain.relayfee", nil, &fee); err != nil {
		return 0, err
	}
	return feeRateToSatPerKB(fee), nil
}

// SendRawTransaction broadcasts rawTxHex. Any server error is a rejection.
func (c *ElectrumClient) SendRawTransaction(ctx context.Context, rawTxHex string) (string, error) {
	var txid string
	if err := c.call(ctx, "blockchain.transaction.broadcast", []interface{}{rawTxHex}, &txid); err != nil {
		var eerr *electrumError
		if errors.As(err, &eerr) {
			return "", fmt.Errorf("%w: %s", ErrBroadcastRejected, eerr.Message)
		}
		return "", err
	}
	return txid, nil
}

// GetRawTransaction fetches the serialized transaction.
func (c *ElectrumClient) GetRawTransaction(ctx context.Context, txid string) ([]byte, error) {
	var rawHex string
	if err := c.call(ctx, "blockchain.transaction.get", []interface{}{txid, false}, &rawHex); err != nil {
		return nil, electrumTxError(txid, err)
	}
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx hex: %v", ErrInvalidResponse, err)
	}
	return raw, nil
}

// GetRawTransactionObject fetches the verbose transaction.
func (c *ElectrumClient) GetRawTransactionObject(ctx context.Context, txid string) (*TxRecord, error) {
	var v verboseTx
	if err := c.call(ctx, "blockchain.transaction.get", []interface{}{txid, true}, &v); err != nil {
		return nil, electrumTxError(txid, err)
	}
	return v.record()
}

// GetHistory returns the confirmed then mempool history of address.
func (c *ElectrumClient) GetHistory(ctx context.Context, address string) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := c.call(ctx, "blockchain.address.get_history", []interface{}{address}, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

// SubscribeAddress registers ch for status changes of address. The server
// subscription is made when the first channel registers.
func (c *ElectrumClient) SubscribeAddress(ctx context.Context, address string, ch chan<- Notification) error {
	c.mu.Lock()
	set, existing := c.subs[address]
	if !existing {
		set = make(map[chan<- Notification]struct{})
		c.subs[address] = set
	}
	set[ch] = struct{}{}
	c.mu.Unlock()

	if existing {
		return nil
	}
	var status *string
	if err := c.call(ctx, "blockchain.address.subscribe", []interface{}{address}, &status); err != nil {
		c.mu.Lock()
		delete(set, ch)
		if len(set) == 0 {
			delete(c.subs, address)
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// UnsubscribeAddress removes ch. The server subscription is dropped with the
// last channel.
func (c *ElectrumClient) UnsubscribeAddress(ctx context.Context, address string, ch chan<- Notification) error {
	c.mu.Lock()
	set, ok := c.subs[address]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	delete(set, ch)
	last := len(set) == 0
	if last {
		delete(c.subs, address)
	}
	c.mu.Unlock()

	if !last {
		return nil
	}
	select {
	case <-c.done:
		return nil
	default:
	}
	var removed bool
	return c.call(ctx, "blockchain.address.unsubscribe", []interface{}{address}, &removed)
}

func electrumTxError(txid string, err error) error {
	var eerr *electrumError
	if errors.As(err, &eerr) {
		msg := strings.ToLower(eerr.Message)
		if strings.Contains(msg, "not found") || strings.Contains(msg, "no such") {
			return fmt.Errorf("%w: %s", ErrTxNotFound, txid)
		}
	}
	return err
}
