package wallet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libcash-go/log"
	"github.com/bitfsorg/libcash-go/store"
)

func newTestKeyring(t *testing.T) *Keyring {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), store.DefaultFileName))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewKeyring(db.Wallets(), "pw", WithKDFParams(fastKDF), WithKeyringLogger(log.Nop()))
}

func TestKeyringSaveLoad(t *testing.T) {
	kr := newTestKeyring(t)
	id := WIFIdentity("mainnet", testWIF)

	require.NoError(t, kr.Save("alice", id, false))
	got, err := kr.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	names, err := kr.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names)
}

func TestKeyringDuplicate(t *testing.T) {
	kr := newTestKeyring(t)
	require.NoError(t, kr.Save("alice", WIFIdentity("mainnet", testWIF), false))

	err := kr.Save("alice", SeedIdentity("mainnet", testMnemonic, ""), false)
	assert.ErrorIs(t, err, ErrWalletExists)
	assert.Contains(t, err.Error(), "a wallet with the name alice already exists")

	require.NoError(t, kr.Save("alice", SeedIdentity("mainnet", testMnemonic, ""), true))
	got, err := kr.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, KindSeed, got.Kind)
}

func TestKeyringEmptyName(t *testing.T) {
	kr := newTestKeyring(t)
	assert.ErrorIs(t, kr.Save("", WIFIdentity("mainnet", testWIF), false), ErrEmptyName)

	_, err := kr.Load("")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = kr.Named(&MainNet, "")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestKeyringRejectsNestedNamed(t *testing.T) {
	kr := newTestKeyring(t)
	err := kr.Save("loop", NamedIdentity("mainnet", "other"), false)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestKeyringWrongPassword(t *testing.T) {
	kr := newTestKeyring(t)
	require.NoError(t, kr.Save("alice", WIFIdentity("mainnet", testWIF), false))

	other := NewKeyring(kr.wallets, "not-pw")
	_, err := other.Load("alice")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestKeyringNamedCreatesOnce(t *testing.T) {
	kr := newTestKeyring(t)

	first, err := kr.Named(&RegTest, "bob")
	require.NoError(t, err)
	assert.Equal(t, KindSeed, first.Kind)
	assert.Equal(t, "regtest", first.Network)
	assert.Equal(t, DefaultPath, first.Path)
	assert.True(t, ValidateMnemonic(first.Mnemonic))

	second, err := kr.Named(&RegTest, "bob")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = kr.Named(&MainNet, "bob")
	assert.ErrorIs(t, err, ErrNetworkMismatch)
}

func TestResolveNamed(t *testing.T) {
	kr := newTestKeyring(t)
	require.NoError(t, kr.Save("main", WIFIdentity("mainnet", testWIF), false))

	acct, err := Resolve(NamedIdentity("mainnet", "main"), kr)
	require.NoError(t, err)
	assert.Equal(t, testAddress, acct.CashAddr())
	assert.Equal(t, KindNamed, acct.Identity.Kind)

	fresh, err := Resolve(NamedIdentity("mainnet", "fresh"), kr)
	require.NoError(t, err)
	assert.False(t, fresh.WatchOnly())
	assert.NotEqual(t, testAddress, fresh.CashAddr())
}

func TestKeyringDelete(t *testing.T) {
	kr := newTestKeyring(t)
	require.NoError(t, kr.Save("alice", WIFIdentity("mainnet", testWIF), false))
	require.NoError(t, kr.Delete("alice"))

	_, err := kr.Load("alice")
	assert.ErrorIs(t, err, store.ErrWalletNotFound)
}
