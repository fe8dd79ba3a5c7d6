package tx

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("tx: required parameter is nil")

	// ErrInsufficientFunds indicates the spendable outputs cannot cover the
	// requested outputs plus fee.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrNoUtxosAvailable indicates there is nothing to spend at all.
	ErrNoUtxosAvailable = errors.New("tx: no utxos available")

	// ErrFeeEstimationDivergence indicates coin selection and fee estimation
	// did not agree within the round cap.
	ErrFeeEstimationDivergence = errors.New("tx: fee estimation did not converge")

	// ErrSerialization indicates the transaction violates a structural limit.
	ErrSerialization = errors.New("tx: serialization failed")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("tx: signing failed")

	// ErrScriptBuild indicates script construction failed.
	ErrScriptBuild = errors.New("tx: script build failed")

	// ErrUnknownTemplate indicates an unregistered lock template.
	ErrUnknownTemplate = errors.New("tx: unknown lock template")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("tx: invalid parameters")
)

// FundsError reports a base-value shortfall in satoshi.
type FundsError struct {
	Required  uint64
	Available uint64
}

func (e *FundsError) Error() string {
	return fmt.Sprintf("tx: insufficient funds: need %d sat, have %d sat", e.Required, e.Available)
}

func (e *FundsError) Unwrap() error { return ErrInsufficientFunds }

// TokenFundsError reports a token shortfall in base units.
type TokenFundsError struct {
	TokenID   string
	Required  *big.Int
	Available *big.Int
}

func (e *TokenFundsError) Error() string {
	return fmt.Sprintf("tx: insufficient token funds for %s: need %s, have %s",
		e.TokenID, e.Required, e.Available)
}

func (e *TokenFundsError) Unwrap() error { return ErrInsufficientFunds }
