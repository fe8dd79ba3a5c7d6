package network

import (
	"context"
	"fmt"
	"sync"
)

var _ Provider = (*MockProvider)(nil)

// MockProvider is a test double for Provider. A nil function field makes
// the corresponding method fail with ErrUnsupported.
type MockProvider struct {
	GetUtxosFn                func(ctx context.Context, address string) ([]*UTXO, error)
	GetBalanceFn              func(ctx context.Context, address string) (uint64, error)
	GetBlockHeightFn          func(ctx context.Context) (uint64, error)
	GetRelayFeeFn             func(ctx context.Context) (uint64, error)
	SendRawTransactionFn      func(ctx context.Context, rawTxHex string) (string, error)
	GetRawTransactionFn       func(ctx context.Context, txid string) ([]byte, error)
	GetRawTransactionObjectFn func(ctx context.Context, txid string) (*TxRecord, error)
	GetHistoryFn              func(ctx context.Context, address string) ([]HistoryEntry, error)
}

func unset(method string) error {
	return fmt.Errorf("%w: mock %s not set", ErrUnsupported, method)
}

func (m *MockProvider) GetUtxos(ctx context.Context, address string) ([]*UTXO, error) {
	if m.GetUtxosFn == nil {
		return nil, unset("GetUtxos")
	}
	return m.GetUtxosFn(ctx, address)
}

func (m *MockProvider) GetBalance(ctx context.Context, address string) (uint64, error) {
	if m.GetBalanceFn == nil {
		return 0, unset("GetBalance")
	}
	return m.GetBalanceFn(ctx, address)
}

func (m *MockProvider) GetBlockHeight(ctx context.Context) (uint64, error) {
	if m.GetBlockHeightFn == nil {
		return 0, unset("GetBlockHeight")
	}
	return m.GetBlockHeightFn(ctx)
}

func (m *MockProvider) GetRelayFee(ctx context.Context) (uint64, error) {
	if m.GetRelayFeeFn == nil {
		return 0, unset("GetRelayFee")
	}
	return m.GetRelayFeeFn(ctx)
}

func (m *MockProvider) SendRawTransaction(ctx context.Context, rawTxHex string) (string, error) {
	if m.SendRawTransactionFn == nil {
		return "", unset("SendRawTransaction")
	}
	return m.SendRawTransactionFn(ctx, rawTxHex)
}

func (m *MockProvider) GetRawTransaction(ctx context.Context, txid string) ([]byte, error) {
	if m.GetRawTransactionFn == nil {
		return nil, unset("GetRawTransaction")
	}
	return m.GetRawTransactionFn(ctx, txid)
}

func (m *MockProvider) GetRawTransactionObject(ctx context.Context, txid string) (*TxRecord, error) {
	if m.GetRawTransactionObjectFn == nil {
		return nil, unset("GetRawTransactionObject")
	}
	return m.GetRawTransactionObjectFn(ctx, txid)
}

func (m *MockProvider) GetHistory(ctx context.Context, address string) ([]HistoryEntry, error) {
	if m.GetHistoryFn == nil {
		return nil, unset("GetHistory")
	}
	return m.GetHistoryFn(ctx, address)
}

var _ Subscriber = (*Hub)(nil)

// Hub is an in-process Subscriber. Notify plays the role of the server
// pushing a status change.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan<- Notification]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan<- Notification]struct{})}
}

func (h *Hub) SubscribeAddress(ctx context.Context, address string, ch chan<- Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[address]
	if !ok {
		set = make(map[chan<- Notification]struct{})
		h.subs[address] = set
	}
	set[ch] = struct{}{}
	return nil
}

func (h *Hub) UnsubscribeAddress(_ context.Context, address string, ch chan<- Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[address]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, address)
		}
	}
	return nil
}

// Subscribers returns the number of channels registered for address.
func (h *Hub) Subscribers(address string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[address])
}

// Notify delivers a status change to every subscriber of address without
// blocking.
func (h *Hub) Notify(address, status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[address] {
		select {
		case ch <- Notification{Address: address, Status: status}:
		default:
		}
	}
}
