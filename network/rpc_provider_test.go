package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcTestServer answers JSON-RPC calls from a method table. A handler
// returning an *rpcError is reported as a node error.
func rpcTestServer(t *testing.T, handlers map[string]func(params []json.RawMessage) (interface{}, *rpcError)) *RPCClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64             `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		h, ok := handlers[req.Method]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(rpcResponse{ID: req.ID, Error: &rpcError{Code: -32601, Message: "Method not found"}})
			return
		}
		result, rerr := h(req.Params)
		if rerr != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(rpcResponse{ID: req.ID, Error: rerr})
			return
		}
		raw, err := json.Marshal(result)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(rpcResponse{ID: req.ID, Result: raw})
	}))
	t.Cleanup(server.Close)
	return NewRPCClient(RPCConfig{URL: server.URL})
}

const testTxID = "aa3c7fe8ec2d8bbad5e38ff4b4d5876d3a8c1bdb7ddce6a06bbf4ab870f7784f"

func TestRPCGetUtxos(t *testing.T) {
	_, plainHex := parentTx(t, false)
	client := rpcTestServer(t, map[string]func([]json.RawMessage) (interface{}, *rpcError){
		"listunspent": func(params []json.RawMessage) (interface{}, *rpcError) {
			var addrs []string
			require.NoError(t, json.Unmarshal(params[2], &addrs))
			assert.Equal(t, []string{"bchreg:qrvcdmgpk73zyfd8pmdl9wnuld36zh9n4g974kwcsl"}, addrs)
			return []map[string]interface{}{
				{"txid": testTxID, "vout": 0, "amount": 0.001, "confirmations": 3, "scriptPubKey": "76a914d986ed01b7a22225a70edbf2ba7cfb63a15cb3aa88ac"},
				{"txid": testTxID, "vout": 1, "amount": 0.00000546, "confirmations": 0, "scriptPubKey": "76a914d986ed01b7a22225a70edbf2ba7cfb63a15cb3aa88ac"},
			}, nil
		},
		"getblockcount": func([]json.RawMessage) (interface{}, *rpcError) { return 200, nil },
		"getrawtransaction": func([]json.RawMessage) (interface{}, *rpcError) { return plainHex, nil },
	})

	utxos, err := client.GetUtxos(context.Background(), "bchreg:qrvcdmgpk73zyfd8pmdl9wnuld36zh9n4g974kwcsl")
	require.NoError(t, err)
	require.Len(t, utxos, 2)
	assert.Equal(t, uint64(100_000), utxos[0].Amount)
	assert.Equal(t, uint64(198), utxos[0].Height)
	assert.False(t, utxos[0].Coinbase)
	assert.Equal(t, uint64(546), utxos[1].Amount)
	assert.Zero(t, utxos[1].Height)

	bal, err := client.GetBalance(context.Background(), "bchreg:qrvcdmgpk73zyfd8pmdl9wnuld36zh9n4g974kwcsl")
	require.NoError(t, err)
	assert.Equal(t, uint64(100_546), bal)
}

func TestRPCGetUtxosEmptySkipsTip(t *testing.T) {
	client := rpcTestServer(t, map[string]func([]json.RawMessage) (interface{}, *rpcError){
		"listunspent": func([]json.RawMessage) (interface{}, *rpcError) { return []interface{}{}, nil },
	})
	utxos, err := client.GetUtxos(context.Background(), "addr")
	require.NoError(t, err)
	assert.Empty(t, utxos)
}

func TestRPCGetRelayFee(t *testing.T) {
	client := rpcTestServer(t, map[string]func([]json.RawMessage) (interface{}, *rpcError){
		"getnetworkinfo": func([]json.RawMessage) (interface{}, *rpcError) {
			return map[string]interface{}{"relayfee": 0.00001}, nil
		},
	})
	fee, err := client.GetRelayFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), fee)
}

func TestRPCSendRawTransaction(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		client := rpcTestServer(t, map[string]func([]json.RawMessage) (interface{}, *rpcError){
			"sendrawtransaction": func(params []json.RawMessage) (interface{}, *rpcError) {
				var raw string
				require.NoError(t, json.Unmarshal(params[0], &raw))
				assert.Equal(t, "0200", raw)
				return testTxID, nil
			},
		})
		txid, err := client.SendRawTransaction(context.Background(), "0200")
		require.NoError(t, err)
		assert.Equal(t, testTxID, txid)
	})

	t.Run("rejected", func(t *testing.T) {
		client := rpcTestServer(t, map[string]func([]json.RawMessage) (interface{}, *rpcError){
			"sendrawtransaction": func([]json.RawMessage) (interface{}, *rpcError) {
				return nil, &rpcError{Code: -26, Message: "min relay fee not met"}
			},
		})
		_, err := client.SendRawTransaction(context.Background(), "0200")
		assert.ErrorIs(t, err, ErrBroadcastRejected)
		assert.Contains(t, err.Error(), "min relay fee not met")
	})
}

func TestRPCGetRawTransaction(t *testing.T) {
	client := rpcTestServer(t, map[string]func([]json.RawMessage) (interface{}, *rpcError){
		"getrawtransaction": func(params []json.RawMessage) (interface{}, *rpcError) {
			var txid string
			require.NoError(t, json.Unmarshal(params[0], &txid))
			if txid != testTxID {
				return nil, &rpcError{Code: -5, Message: "No such mempool or blockchain transaction"}
			}
			var verbose bool
			require.NoError(t, json.Unmarshal(params[1], &verbose))
			if !verbose {
				return "01000000", nil
			}
			return map[string]interface{}{
				"txid":          testTxID,
				"hex":           "01000000",
				"confirmations": 2,
				"vin":           []map[string]interface{}{{"coinbase": "03a0860100"}},
				"vout": []map[string]interface{}{
					{"value": 6.25, "n": 0, "scriptPubKey": map[string]interface{}{"hex": "76a914", "type": "pubkeyhash"}},
				},
			}, nil
		},
	})

	raw, err := client.GetRawTransaction(context.Background(), testTxID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0}, raw)

	rec, err := client.GetRawTransactionObject(context.Background(), testTxID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Confirmations)
	require.Len(t, rec.Vout, 1)
	assert.Equal(t, uint64(625_000_000), rec.Vout[0].Value)
	assert.Equal(t, "03a0860100", rec.Vin[0].Coinbase)

	_, err = client.GetRawTransaction(context.Background(), "00")
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestRPCGetHistoryUnsupported(t *testing.T) {
	client := NewRPCClient(RPCConfig{URL: "http://localhost:1"})
	_, err := client.GetHistory(context.Background(), "addr")
	assert.ErrorIs(t, err, ErrUnsupported)
}
