package wallet

import (
	"errors"
	"fmt"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bitfsorg/libcash-go/address"
	"github.com/bitfsorg/libcash-go/tx"
)

// Account is a resolved Identity: one address and, unless watch-only, the
// key that controls it.
type Account struct {
	Identity Identity
	Network  *NetworkConfig
	Address  address.Address
	Key      *ec.PrivateKey // nil when watch-only
	Path     string         // derivation path of HD accounts
}

// CashAddr returns the prefixed CashAddr of the account.
func (a *Account) CashAddr() string { return a.Address.String() }

// WatchOnly reports whether the account has no private key.
func (a *Account) WatchOnly() bool { return a.Key == nil }

// WIF returns the private key in wallet import format for the account's
// network, or "" for watch-only accounts.
func (a *Account) WIF() string {
	if a.Key == nil {
		return ""
	}
	return a.Key.WifPrefix(a.Network.WIFPrefix)
}

// LockScript compiles the locking script paying the account address.
func (a *Account) LockScript(c tx.LockCompiler) ([]byte, error) {
	return lockFor(c, a.Address)
}

func lockFor(c tx.LockCompiler, addr address.Address) ([]byte, error) {
	if c == nil {
		c = tx.DefaultTemplates()
	}
	template := tx.TemplateP2PKH
	if addr.Type == address.P2SH {
		template = tx.TemplateP2SH
	}
	return c.CompileLock(template, tx.LockParams{Hash: addr.Hash})
}

// Resolve turns id into an Account. Named identities are looked up in kr,
// which may be nil for every other kind.
func Resolve(id Identity, kr *Keyring) (*Account, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	net, err := GetNetwork(id.Network)
	if err != nil {
		return nil, err
	}

	switch id.Kind {
	case KindWIF:
		return resolveWIF(id, net)
	case KindSeed:
		return resolveSeed(id, net)
	case KindWatch:
		addr, err := address.Parse(id.Address, net.CashAddrPrefix)
		if err != nil {
			if errors.Is(err, address.ErrPrefixMismatch) {
				return nil, fmt.Errorf("%w: %w", ErrNetworkMismatch, err)
			}
			return nil, err
		}
		return &Account{Identity: id, Network: net, Address: addr}, nil
	case KindNamed:
		if kr == nil {
			return nil, ErrNoKeyring
		}
		stored, err := kr.Named(net, id.Name)
		if err != nil {
			return nil, err
		}
		if stored.Kind == KindNamed {
			return nil, fmt.Errorf("%w: named wallet %q refers to another named wallet", ErrInvalidID, id.Name)
		}
		acct, err := Resolve(stored, nil)
		if err != nil {
			return nil, err
		}
		acct.Identity = id
		return acct, nil
	}
	return nil, fmt.Errorf("%w: wallet type %s was passed to single address wallet", ErrUnknownWalletType, id.Kind)
}

func resolveWIF(id Identity, net *NetworkConfig) (*Account, error) {
	if !strings.ContainsRune(net.wifLeads(), rune(id.WIF[0])) {
		return nil, fmt.Errorf("%w: wif does not belong to %s", ErrNetworkMismatch, net.Name)
	}
	key, err := ec.PrivateKeyFromWif(id.WIF)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return accountForKey(id, net, key, "")
}

func resolveSeed(id Identity, net *NetworkConfig) (*Account, error) {
	seed, err := SeedFromMnemonic(id.Mnemonic, "")
	if err != nil {
		return nil, err
	}
	path := id.Path
	if path == "" {
		path = DefaultPath
	}
	kp, err := DeriveKey(seed, net, path)
	if err != nil {
		return nil, err
	}
	return accountForKey(id, net, kp.PrivateKey, kp.Path)
}

func accountForKey(id Identity, net *NetworkConfig, key *ec.PrivateKey, path string) (*Account, error) {
	legacy, err := script.NewAddressFromPublicKey(key.PubKey(), true)
	if err != nil {
		return nil, fmt.Errorf("%w: address from pubkey: %w", ErrDerivationFailed, err)
	}
	addr, err := address.FromPublicKeyHash(net.CashAddrPrefix, []byte(legacy.PublicKeyHash))
	if err != nil {
		return nil, err
	}
	return &Account{Identity: id, Network: net, Address: addr, Key: key, Path: path}, nil
}
