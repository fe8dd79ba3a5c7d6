// Package wallet ties keys, the provider and the transaction pipeline into
// a single-address Bitcoin Cash wallet with SLP token support.
//
// A wallet is opened from an Identity (WIF, HD seed, watch-only address or
// a named wallet kept in a Keyring) and resolves to one Account: one
// address and, unless watch-only, one private key.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	"golang.org/x/crypto/argon2"
)

const (
	// Mnemonic entropy sizes.
	Mnemonic12Words = 128 // 12-word mnemonic
	Mnemonic24Words = 256 // 24-word mnemonic

	// Argon2id parameters for secret encryption.
	Argon2Time        = 3
	Argon2Memory      = 64 * 1024 // 64 MB
	Argon2Parallelism = 4
	Argon2KeyLen      = 32

	// Encryption format sizes.
	SaltLen     = 16
	NonceLen    = 12
	ChecksumLen = 4

	secretVersion = 1
	headerLen     = 1 + 4 + 4 + 1
)

// KDFParams are the Argon2id cost parameters. They are written into every
// encrypted blob, so blobs stay readable when the defaults change.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams returns the Argon2id parameters used for new secrets.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: Argon2Time, Memory: Argon2Memory, Threads: Argon2Parallelism}
}

// GenerateMnemonic creates a new BIP39 mnemonic with the specified entropy bits.
// Use Mnemonic12Words (128) for 12 words or Mnemonic24Words (256) for 24 words.
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != Mnemonic12Words && entropyBits != Mnemonic24Words {
		return "", ErrInvalidEntropy
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate mnemonic: %w", err)
	}

	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic string is valid BIP39.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SeedFromMnemonic derives a 64-byte BIP39 seed from mnemonic + optional passphrase.
//
//	seed = PBKDF2(mnemonic, "mnemonic"+passphrase, 2048, 64, SHA512)
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to derive seed: %w", err)
	}

	return seed, nil
}

// EncryptSecret encrypts secret with Argon2id + AES-256-GCM.
//
// Output format:
//
//	version(1B) || time(4B) || memory(4B) || threads(1B) || salt(16B) || nonce(12B) ||
//	AES-GCM(argon2id(password,salt), nonce, secret||checksum)
//
// The checksum is SHA256(secret)[:4] for verifying correct decryption.
func EncryptSecret(secret []byte, password string, params KDFParams) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidSeed
	}
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		params = DefaultKDFParams()
	}

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate salt: %w", err)
	}

	gcm, err := newGCM(password, salt, params)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(secret)
	plaintext := make([]byte, len(secret)+ChecksumLen)
	copy(plaintext, secret)
	copy(plaintext[len(secret):], sum[:ChecksumLen])

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate nonce: %w", err)
	}

	header := make([]byte, headerLen)
	header[0] = secretVersion
	binary.BigEndian.PutUint32(header[1:5], params.Time)
	binary.BigEndian.PutUint32(header[5:9], params.Memory)
	header[9] = params.Threads

	result := make([]byte, 0, headerLen+SaltLen+NonceLen+len(plaintext)+gcm.Overhead())
	result = append(result, header...)
	result = append(result, salt...)
	result = append(result, nonce...)
	// The header is authenticated so the cost parameters cannot be swapped.
	return gcm.Seal(result, nonce, plaintext, header), nil
}

// DecryptSecret reverses EncryptSecret and verifies the embedded checksum.
func DecryptSecret(encrypted []byte, password string) ([]byte, error) {
	if len(encrypted) < headerLen+SaltLen+NonceLen+ChecksumLen || encrypted[0] != secretVersion {
		return nil, ErrDecryptionFailed
	}

	header := encrypted[:headerLen]
	params := KDFParams{
		Time:    binary.BigEndian.Uint32(header[1:5]),
		Memory:  binary.BigEndian.Uint32(header[5:9]),
		Threads: header[9],
	}
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		return nil, ErrDecryptionFailed
	}
	salt := encrypted[headerLen : headerLen+SaltLen]
	nonce := encrypted[headerLen+SaltLen : headerLen+SaltLen+NonceLen]
	ciphertext := encrypted[headerLen+SaltLen+NonceLen:]

	gcm, err := newGCM(password, salt, params)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, header)
	if err != nil || len(plaintext) < ChecksumLen {
		return nil, ErrDecryptionFailed
	}

	secret := plaintext[:len(plaintext)-ChecksumLen]
	stored := plaintext[len(plaintext)-ChecksumLen:]
	sum := sha256.Sum256(secret)
	for i := 0; i < ChecksumLen; i++ {
		if stored[i] != sum[i] {
			return nil, ErrChecksumMismatch
		}
	}
	return secret, nil
}

func newGCM(password string, salt []byte, params KDFParams) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, Argon2KeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("wallet: AES cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wallet: GCM creation failed: %w", err)
	}
	return gcm, nil
}
