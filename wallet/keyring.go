package wallet

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/libcash-go/log"
	"github.com/bitfsorg/libcash-go/store"
)

// Keyring keeps named wallets in a store, with each wallet id encrypted
// under the keyring password.
type Keyring struct {
	wallets  *store.WalletStore
	password string
	kdf      KDFParams
	log      zerolog.Logger
}

// KeyringOption configures a Keyring.
type KeyringOption func(*Keyring)

// WithKDFParams sets the Argon2id cost of newly saved wallets.
func WithKDFParams(p KDFParams) KeyringOption {
	return func(k *Keyring) { k.kdf = p }
}

// WithKeyringLogger overrides the component logger.
func WithKeyringLogger(l zerolog.Logger) KeyringOption {
	return func(k *Keyring) { k.log = l }
}

// NewKeyring creates a keyring over wallets.
func NewKeyring(wallets *store.WalletStore, password string, opts ...KeyringOption) *Keyring {
	k := &Keyring{wallets: wallets, password: password, kdf: DefaultKDFParams(), log: log.Wallet}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Save stores id under name. An existing wallet is replaced only when force
// is set.
func (k *Keyring) Save(name string, id Identity, force bool) error {
	if name == "" {
		return ErrEmptyName
	}
	if id.Kind == KindNamed {
		return fmt.Errorf("%w: a named wallet cannot store another named wallet", ErrInvalidID)
	}
	if err := id.Validate(); err != nil {
		return err
	}

	secret, err := EncryptSecret([]byte(id.String()), k.password, k.kdf)
	if err != nil {
		return err
	}
	rec := &store.WalletRecord{Name: name, Network: id.Network, Secret: secret}
	if err := k.wallets.PutWallet(rec, force); err != nil {
		if errors.Is(err, store.ErrWalletExists) {
			return fmt.Errorf("%w: a wallet with the name %s already exists", ErrWalletExists, name)
		}
		return err
	}
	k.log.Debug().Str("name", name).Str("network", id.Network).Stringer("kind", id.Kind).Msg("named wallet saved")
	return nil
}

// Load returns the identity stored under name.
func (k *Keyring) Load(name string) (Identity, error) {
	if name == "" {
		return Identity{}, ErrEmptyName
	}
	rec, err := k.wallets.GetWallet(name)
	if err != nil {
		return Identity{}, err
	}
	plain, err := DecryptSecret(rec.Secret, k.password)
	if err != nil {
		return Identity{}, err
	}
	return ParseID(string(plain))
}

// Named loads the wallet stored under name, creating a new random seed
// wallet on net when none exists. A stored wallet on another network is
// an ErrNetworkMismatch.
func (k *Keyring) Named(net *NetworkConfig, name string) (Identity, error) {
	if name == "" {
		return Identity{}, ErrEmptyName
	}
	if net == nil {
		net = &MainNet
	}

	id, err := k.Load(name)
	switch {
	case err == nil:
		if id.Network != net.Name {
			return Identity{}, fmt.Errorf("%w: wallet %s is on %s, not %s", ErrNetworkMismatch, name, id.Network, net.Name)
		}
		return id, nil
	case !errors.Is(err, store.ErrWalletNotFound):
		return Identity{}, err
	}

	mnemonic, err := GenerateMnemonic(Mnemonic12Words)
	if err != nil {
		return Identity{}, err
	}
	id = SeedIdentity(net.Name, mnemonic, DefaultPath)
	if err := k.Save(name, id, false); err != nil {
		return Identity{}, err
	}
	k.log.Info().Str("name", name).Str("network", net.Name).Msg("created named wallet")
	return id, nil
}

// Delete removes the wallet stored under name.
func (k *Keyring) Delete(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	return k.wallets.DeleteWallet(name)
}

// List returns the stored wallet names.
func (k *Keyring) List() ([]string, error) {
	return k.wallets.ListWallets()
}
