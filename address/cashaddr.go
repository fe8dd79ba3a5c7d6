// Package address adapts gcash/bchutil CashAddr handling to the wallet's
// prefix-first view of networks, and accepts legacy base58 addresses as
// input.
package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bsv-blockchain/go-sdk/script"
	bchchaincfg "github.com/gcash/bchd/chaincfg"
	"github.com/gcash/bchutil"
)

// Type is the CashAddr address type carried in the version byte.
type Type byte

const (
	P2PKH Type = 0
	P2SH  Type = 1
)

func (t Type) String() string {
	switch t {
	case P2PKH:
		return "p2pkh"
	case P2SH:
		return "p2sh"
	default:
		return fmt.Sprintf("type(%d)", byte(t))
	}
}

// Network prefixes.
const (
	PrefixMainnet = "bitcoincash"
	PrefixTestnet = "bchtest"
	PrefixRegtest = "bchreg"
)

var (
	// ErrInvalidAddress indicates a string that is not a valid address.
	ErrInvalidAddress = errors.New("address: invalid address")

	// ErrChecksum indicates a CashAddr checksum mismatch.
	ErrChecksum = errors.New("address: invalid checksum")

	// ErrPrefixMismatch indicates an address for a different network.
	ErrPrefixMismatch = errors.New("address: network prefix mismatch")
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// minPayload is the shortest payload that can hold a checksum.
const minPayload = 8 + 1

// Params returns the chain parameters whose CashAddr prefix is prefix.
// Other prefixes, as used by custom networks, get a copy of the regtest
// parameters carrying that prefix.
func Params(prefix string) (*bchchaincfg.Params, error) {
	switch prefix = strings.ToLower(prefix); prefix {
	case "":
		return nil, fmt.Errorf("%w: empty prefix", ErrInvalidAddress)
	case PrefixMainnet:
		return &bchchaincfg.MainNetParams, nil
	case PrefixTestnet:
		return &bchchaincfg.TestNet3Params, nil
	case PrefixRegtest:
		return &bchchaincfg.RegressionNetParams, nil
	}
	custom := bchchaincfg.RegressionNetParams
	custom.CashAddressPrefix = prefix
	return &custom, nil
}

// Address is a decoded CashAddr.
type Address struct {
	Prefix string
	Type   Type
	Hash   []byte
}

// String returns the prefixed CashAddr form.
func (a Address) String() string {
	s, err := Encode(a.Prefix, a.Type, a.Hash)
	if err != nil {
		return ""
	}
	return s
}

// Payload returns the address without its prefix.
func (a Address) Payload() string {
	s := a.String()
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Encode builds a CashAddr string from a prefix, a type and a hash.
func Encode(prefix string, t Type, hash []byte) (string, error) {
	params, err := Params(prefix)
	if err != nil {
		return "", err
	}

	var a bchutil.Address
	switch t {
	case P2PKH:
		a, err = bchutil.NewAddressPubKeyHash(hash, params)
	case P2SH:
		a, err = bchutil.NewAddressScriptHashFromHash(hash, params)
	default:
		return "", fmt.Errorf("%w: unsupported type %s", ErrInvalidAddress, t)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return withPrefix(params.CashAddressPrefix, a.EncodeAddress()), nil
}

func withPrefix(prefix, s string) string {
	if strings.Contains(s, ":") {
		return s
	}
	return prefix + ":" + s
}

// Decode parses a CashAddr. When the address has no prefix, defaultPrefix
// is assumed for checksum verification. A well-formed payload that bchutil
// rejects is reported as ErrChecksum.
func Decode(addr, defaultPrefix string) (Address, error) {
	if addr == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.ToLower(addr) != addr && strings.ToUpper(addr) != addr {
		return Address{}, fmt.Errorf("%w: mixed case", ErrInvalidAddress)
	}
	addr = strings.ToLower(addr)

	prefix, payload, found := strings.Cut(addr, ":")
	if !found {
		prefix, payload = strings.ToLower(defaultPrefix), addr
	}
	if prefix == "" {
		return Address{}, fmt.Errorf("%w: missing prefix", ErrInvalidAddress)
	}
	if len(payload) < minPayload {
		return Address{}, fmt.Errorf("%w: too short", ErrInvalidAddress)
	}
	if i := strings.IndexFunc(payload, func(r rune) bool { return !strings.ContainsRune(charset, r) }); i >= 0 {
		return Address{}, fmt.Errorf("%w: invalid character %q", ErrInvalidAddress, payload[i])
	}
	params, err := Params(prefix)
	if err != nil {
		return Address{}, err
	}

	decoded, err := bchutil.DecodeAddress(prefix+":"+payload, params)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrChecksum, err)
	}
	return fromBchutil(prefix, decoded)
}

func fromBchutil(prefix string, a bchutil.Address) (Address, error) {
	var t Type
	switch a.(type) {
	case *bchutil.AddressPubKeyHash:
		t = P2PKH
	case *bchutil.AddressScriptHash:
		t = P2SH
	default:
		return Address{}, fmt.Errorf("%w: unsupported address %T", ErrInvalidAddress, a)
	}
	return Address{Prefix: prefix, Type: t, Hash: append([]byte(nil), a.ScriptAddress()...)}, nil
}

// Parse accepts a CashAddr (with or without prefix) or a legacy base58
// P2PKH address and returns it normalized under prefix. A CashAddr carrying
// a different prefix is rejected.
func Parse(s, prefix string) (Address, error) {
	a, err := Decode(s, prefix)
	if err == nil {
		if a.Prefix != strings.ToLower(prefix) {
			return Address{}, fmt.Errorf("%w: %s is not %s", ErrPrefixMismatch, a.Prefix, prefix)
		}
		return a, nil
	}
	if strings.Contains(s, ":") {
		return Address{}, err
	}

	legacy, lerr := script.NewAddressFromString(s)
	if lerr != nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address{Prefix: strings.ToLower(prefix), Type: P2PKH, Hash: []byte(legacy.PublicKeyHash)}, nil
}

// FromPublicKeyHash returns the P2PKH address for a 20-byte hash.
func FromPublicKeyHash(prefix string, hash []byte) (Address, error) {
	if len(hash) != 20 {
		return Address{}, fmt.Errorf("%w: public key hash must be 20 bytes", ErrInvalidAddress)
	}
	return Address{Prefix: strings.ToLower(prefix), Type: P2PKH, Hash: append([]byte(nil), hash...)}, nil
}
