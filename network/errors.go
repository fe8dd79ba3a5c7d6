package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not reach the provider.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrAuthFailed indicates the provider rejected the credentials.
	ErrAuthFailed = errors.New("network: authentication failed")

	// ErrTxNotFound indicates the requested transaction does not exist.
	ErrTxNotFound = errors.New("network: transaction not found")

	// ErrBroadcastRejected indicates the network rejected a broadcast transaction.
	ErrBroadcastRejected = errors.New("network: broadcast rejected")

	// ErrInvalidResponse indicates a malformed or unexpected provider response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrUnsupported indicates the provider cannot serve the request.
	ErrUnsupported = errors.New("network: operation not supported by provider")

	// ErrClosed indicates the client connection has been closed.
	ErrClosed = errors.New("network: client closed")
)
