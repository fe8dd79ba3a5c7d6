package wallet

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libcash-go/config"
	"github.com/bitfsorg/libcash-go/store"
	"github.com/bitfsorg/libcash-go/tx"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.RPCURL = "http://127.0.0.1:8332"
	cfg.RPCUser = "user"
	cfg.RPCPassword = "pass"
	cfg.LogLevel = "error"
	return cfg
}

func TestOpenWatchOverRPC(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogFile = filepath.Join(cfg.DataDir, "libcash.log")

	s, err := Open(context.Background(), cfg, "watch:mainnet:"+testAddress, "")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	assert.FileExists(t, cfg.LogFile)
	assert.FileExists(t, filepath.Join(cfg.DataDir, store.DefaultFileName))

	assert.Equal(t, testAddress, s.Wallet.Address())
	assert.True(t, s.Wallet.Account().WatchOnly())

	_, err = s.Wallet.WatchBalance(context.Background(), func(uint64) {})
	assert.ErrorIs(t, err, ErrNoSubscriber)
}

func TestOpenNamed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Network = "regtest"

	s, err := Open(context.Background(), cfg, "named:regtest:main", "pw")
	require.NoError(t, err)
	addr := s.Wallet.Address()
	require.NoError(t, s.Close())

	again, err := Open(context.Background(), cfg, "named:regtest:main", "pw")
	require.NoError(t, err)
	t.Cleanup(func() { again.Close() })
	assert.Equal(t, addr, again.Wallet.Address())

	names, err := again.Keyring.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, names)
}

func TestOpenErrors(t *testing.T) {
	cfg := testConfig(t)

	_, err := Open(context.Background(), cfg, "watch:regtest:"+testRegtest, "")
	assert.ErrorIs(t, err, ErrNetworkMismatch)

	_, err = Open(context.Background(), cfg, "bogus", "")
	assert.ErrorIs(t, err, ErrInvalidID)

	bad := cfg
	bad.Network = "devnet"
	_, err = Open(context.Background(), bad, "watch:mainnet:"+testAddress, "")
	assert.ErrorIs(t, err, config.ErrInvalidNetwork)

	// Mainnet has no RPC preset.
	noRPC := cfg
	noRPC.RPCURL = ""
	_, err = Open(context.Background(), noRPC, "watch:mainnet:"+testAddress, "")
	assert.Error(t, err)
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FeeRate = 2000
	cfg.CoinbaseMaturity = 10
	cfg.SpendUnconfirmedTokens = false

	p := PolicyFromConfig(cfg)
	assert.Equal(t, uint64(2000), p.FeeRate)
	assert.Equal(t, uint64(10), p.CoinbaseMaturity)
	assert.Equal(t, tx.DustLimit, p.DustLimit)
	assert.Equal(t, tx.DefaultMaxFeeRounds, p.MaxFeeRounds)
	assert.False(t, p.SpendUnconfirmedTokens)

	cfg.DustLimit = 0
	cfg.MaxFeeRounds = 0
	p = PolicyFromConfig(cfg)
	assert.Equal(t, tx.DustLimit, p.DustLimit)
	assert.Equal(t, tx.DefaultMaxFeeRounds, p.MaxFeeRounds)
}
