package wallet

import (
	"fmt"
	"strings"
)

// Kind tags the variant of an Identity.
type Kind uint8

// Identity variants.
const (
	KindWIF Kind = iota + 1
	KindSeed
	KindWatch
	KindNamed
)

var kindNames = map[Kind]string{
	KindWIF:   "wif",
	KindSeed:  "seed",
	KindWatch: "watch",
	KindNamed: "named",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func parseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Identity names the key material of a single-address wallet. Exactly one
// variant is set, selected by Kind; only that variant's fields are read.
type Identity struct {
	Kind    Kind
	Network string

	WIF string // KindWIF

	Mnemonic string // KindSeed
	Path     string // KindSeed

	Address string // KindWatch

	Name string // KindNamed
}

// WIFIdentity identifies a wallet by a WIF-encoded private key.
func WIFIdentity(network, wif string) Identity {
	return Identity{Kind: KindWIF, Network: network, WIF: wif}
}

// SeedIdentity identifies a wallet by a BIP39 mnemonic and derivation path.
// An empty path means DefaultPath.
func SeedIdentity(network, mnemonic, path string) Identity {
	if path == "" {
		path = DefaultPath
	}
	return Identity{Kind: KindSeed, Network: network, Mnemonic: mnemonic, Path: path}
}

// WatchIdentity identifies a watch-only wallet by address.
func WatchIdentity(network, addr string) Identity {
	return Identity{Kind: KindWatch, Network: network, Address: addr}
}

// NamedIdentity identifies a wallet kept in a Keyring.
func NamedIdentity(network, name string) Identity {
	return Identity{Kind: KindNamed, Network: network, Name: name}
}

// ParseID parses a wallet id:
//
//	wif:<network>:<wif>
//	seed:<network>:<mnemonic>[:<path>]
//	watch:<network>:[<prefix>:]<address>
//	named:<network>:<name>
func ParseID(id string) (Identity, error) {
	parts := strings.SplitN(strings.TrimSpace(id), ":", 3)
	if len(parts) != 3 {
		return Identity{}, fmt.Errorf("%w: %q has no <type>:<network>:<value> form", ErrInvalidID, id)
	}
	kind, ok := parseKind(parts[0])
	if !ok {
		return Identity{}, fmt.Errorf("%w: wallet type %s was passed to single address wallet", ErrUnknownWalletType, parts[0])
	}
	if _, err := GetNetwork(parts[1]); err != nil {
		return Identity{}, err
	}

	var ident Identity
	switch kind {
	case KindWIF:
		ident = WIFIdentity(parts[1], parts[2])
	case KindSeed:
		mnemonic, path, _ := strings.Cut(parts[2], ":")
		ident = SeedIdentity(parts[1], mnemonic, path)
	case KindWatch:
		ident = WatchIdentity(parts[1], parts[2])
	case KindNamed:
		ident = NamedIdentity(parts[1], parts[2])
	}
	if err := ident.Validate(); err != nil {
		return Identity{}, err
	}
	return ident, nil
}

// String renders the id form accepted by ParseID.
func (id Identity) String() string {
	switch id.Kind {
	case KindWIF:
		return fmt.Sprintf("wif:%s:%s", id.Network, id.WIF)
	case KindSeed:
		path := id.Path
		if path == "" {
			path = DefaultPath
		}
		return fmt.Sprintf("seed:%s:%s:%s", id.Network, id.Mnemonic, path)
	case KindWatch:
		return fmt.Sprintf("watch:%s:%s", id.Network, id.Address)
	case KindNamed:
		return fmt.Sprintf("named:%s:%s", id.Network, id.Name)
	default:
		return id.Kind.String()
	}
}

// Validate checks that the fields of the selected variant are present.
// It does not decode key material; Resolve does.
func (id Identity) Validate() error {
	if id.Network == "" {
		return fmt.Errorf("%w: no network", ErrInvalidID)
	}
	switch id.Kind {
	case KindWIF:
		if id.WIF == "" {
			return fmt.Errorf("%w: empty wif", ErrInvalidID)
		}
	case KindSeed:
		if id.Mnemonic == "" {
			return fmt.Errorf("%w: empty mnemonic", ErrInvalidID)
		}
	case KindWatch:
		if id.Address == "" {
			return fmt.Errorf("%w: empty address", ErrInvalidID)
		}
	case KindNamed:
		if id.Name == "" {
			return ErrEmptyName
		}
	default:
		return fmt.Errorf("%w: wallet type %s was passed to single address wallet", ErrUnknownWalletType, id.Kind)
	}
	return nil
}
