package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("wallet: entropy bits must be 128 or 256")

	// ErrInvalidPath indicates a malformed BIP32 derivation path.
	ErrInvalidPath = errors.New("wallet: invalid derivation path")

	// ErrDecryptionFailed indicates wrong password or corrupted wallet data.
	ErrDecryptionFailed = errors.New("wallet: secret decryption failed (wrong password or corrupted data)")

	// ErrChecksumMismatch indicates secret checksum verification failed after decryption.
	ErrChecksumMismatch = errors.New("wallet: secret checksum mismatch")

	// ErrInvalidNetwork indicates unknown network name with no custom config.
	ErrInvalidNetwork = errors.New("wallet: invalid network name")

	// ErrInvalidSeed indicates the seed is empty or invalid.
	ErrInvalidSeed = errors.New("wallet: invalid seed")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")

	// ErrInvalidKey indicates a WIF that does not decode to a private key.
	ErrInvalidKey = errors.New("wallet: invalid private key")

	// ErrUnknownWalletType indicates a wallet id with an unrecognized type tag.
	ErrUnknownWalletType = errors.New("wallet: unknown wallet type")

	// ErrInvalidID indicates a malformed wallet id string.
	ErrInvalidID = errors.New("wallet: invalid wallet id")

	// ErrNetworkMismatch indicates key material that belongs to another network.
	ErrNetworkMismatch = errors.New("wallet: network mismatch")

	// ErrWatchOnly indicates a signing operation on a wallet without a key.
	ErrWatchOnly = errors.New("wallet: watch-only wallet cannot sign")

	// ErrWalletExists indicates a named wallet is already stored.
	ErrWalletExists = errors.New("wallet: wallet already exists")

	// ErrEmptyName indicates a named wallet without a name.
	ErrEmptyName = errors.New("wallet: wallet name is empty")

	// ErrNoKeyring indicates a named identity resolved without a keyring.
	ErrNoKeyring = errors.New("wallet: named wallet requires a keyring")

	// ErrMixedTokens indicates token requests for more than one token id.
	ErrMixedTokens = errors.New("wallet: requests name more than one token")

	// ErrInvalidRequest indicates a malformed send request.
	ErrInvalidRequest = errors.New("wallet: invalid send request")

	// ErrUnknownUtxo indicates a pinned outpoint the provider does not report.
	ErrUnknownUtxo = errors.New("wallet: pinned utxo not found")

	// ErrNoBaton indicates a mint without a baton output for the token.
	ErrNoBaton = errors.New("wallet: no mint baton for token")

	// ErrNoSubscriber indicates a watch call on a wallet built without one.
	ErrNoSubscriber = errors.New("wallet: no subscriber configured")
)
