package domain

import "errors"

// Validation errors returned by the ledger. Adapters match them with errors.Is.
var (
	ErrAssetNotFound       = errors.New("asset not found")
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrPriceUnavailable    = errors.New("asset price unavailable")
	ErrUnsupportedCurrency = errors.New("unsupported currency code")
	ErrPositionNotFound    = errors.New("position not found")
	ErrInvalidKind         = errors.New("transaction kind must be buy, sell or transfer")
)

// ErrNotFound is returned by a SessionStore when a key has never been written
var ErrNotFound = errors.New("session key not found")

// ErrCorruptState is returned by a repository whose stored value cannot be decoded
var ErrCorruptState = errors.New("stored session state is unparseable")
