package tx

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
)

// Signer produces a DER signature over a forkid sighash digest. It is the
// seam for hardware or remote signing.
type Signer interface {
	Sign(digest []byte, key *ec.PrivateKey) ([]byte, error)
}

// KeySigner signs in-process with the private key.
type KeySigner struct{}

// Sign returns the low-S DER signature of digest.
func (KeySigner) Sign(digest []byte, key *ec.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilParam)
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("%w: digest must be 32 bytes, got %d", ErrSigningFailed, len(digest))
	}
	sig, err := key.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return sig.Serialize(), nil
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(digest []byte, key *ec.PrivateKey) ([]byte, error)

func (f SignerFunc) Sign(digest []byte, key *ec.PrivateKey) ([]byte, error) { return f(digest, key) }

// BuildP2PKHScript creates a P2PKH locking script for the given public key.
func BuildP2PKHScript(pubKey *ec.PublicKey) ([]byte, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("%w: public key", ErrNilParam)
	}
	addr, err := script.NewAddressFromPublicKey(pubKey, true)
	if err != nil {
		return nil, fmt.Errorf("%w: address from pubkey: %w", ErrScriptBuild, err)
	}
	lockScript, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: P2PKH lock script: %w", ErrScriptBuild, err)
	}
	return []byte(*lockScript), nil
}
