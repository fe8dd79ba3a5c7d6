package store

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("store: required parameter is nil")

	// ErrEmptyName indicates a wallet record without a name.
	ErrEmptyName = errors.New("store: wallet name is empty")

	// ErrWalletExists indicates a wallet name is already taken.
	ErrWalletExists = errors.New("store: wallet already exists")

	// ErrWalletNotFound indicates no wallet is stored under the name.
	ErrWalletNotFound = errors.New("store: wallet not found")

	// ErrInvalidTokenID indicates a token id that is not 64 hex characters.
	ErrInvalidTokenID = errors.New("store: invalid token id")
)
