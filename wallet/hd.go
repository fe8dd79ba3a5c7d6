package wallet

import (
	"fmt"
	"strconv"
	"strings"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

const (
	// BIP44 path constants.
	PurposeBIP44  = 44
	CoinTypeBTC   = 0
	CoinTypeBCH   = 145
	ExternalChain = 0 // Receive addresses
	InternalChain = 1 // Change addresses

	// DefaultPath is the single-address wallet path.
	DefaultPath = "m/44'/0'/0'/0/0"

	// BIP32 hardened offset.
	Hardened = 0x80000000

	// MaxPathDepth bounds the number of path components.
	MaxPathDepth = 255
)

// KeyPair holds a derived public/private key pair.
type KeyPair struct {
	PrivateKey *ec.PrivateKey `json:"-"`
	PublicKey  *ec.PublicKey  `json:"public_key"`
	Path       string         `json:"path"` // Human-readable derivation path
}

// ParsePath parses a BIP32 path such as m/44'/145'/0'/0/0 into child
// indices. Both ' and h mark hardened components.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || (parts[0] != "m" && parts[0] != "M") {
		return nil, fmt.Errorf("%w: %q must start with m", ErrInvalidPath, path)
	}
	parts = parts[1:]
	if len(parts) > MaxPathDepth {
		return nil, fmt.Errorf("%w: %q is deeper than %d", ErrInvalidPath, path, MaxPathDepth)
	}

	indices := make([]uint32, 0, len(parts))
	for _, p := range parts {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h") || strings.HasSuffix(p, "H")
		if hardened {
			p = p[:len(p)-1]
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil || n >= Hardened {
			return nil, fmt.Errorf("%w: component %q of %q", ErrInvalidPath, p, path)
		}
		idx := uint32(n)
		if hardened {
			idx += Hardened
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// FormatPath renders child indices in the m/44'/0'/0'/0/0 notation.
func FormatPath(indices []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range indices {
		if idx >= Hardened {
			fmt.Fprintf(&b, "/%d'", idx-Hardened)
		} else {
			fmt.Fprintf(&b, "/%d", idx)
		}
	}
	return b.String()
}

// DeriveKey derives the key at path from a BIP39 seed.
func DeriveKey(seed []byte, network *NetworkConfig, path string) (*KeyPair, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	if network == nil {
		network = &MainNet
	}
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	current, err := bip32.NewMaster(seed, network.chainParams())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	for depth, idx := range indices {
		current, err = current.Child(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: path derivation at depth %d: %w", ErrDerivationFailed, depth, err)
		}
	}
	return extKeyToKeyPair(current, FormatPath(indices))
}

// extKeyToKeyPair converts a BIP32 extended key to a KeyPair.
func extKeyToKeyPair(extKey *bip32.ExtendedKey, path string) (*KeyPair, error) {
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}

	pubKey := privKey.PubKey()
	if pubKey == nil {
		return nil, fmt.Errorf("%w: failed to derive public key", ErrDerivationFailed)
	}

	return &KeyPair{
		PrivateKey: privKey,
		PublicKey:  pubKey,
		Path:       path,
	}, nil
}
