package vault

import "errors"

// Failure taxonomy surfaced to callers. Every validation failure aborts the
// whole operation with no state change and no emitted event; callers never
// see a generic error where a specific kind exists.
var (
	ErrNotFound               = errors.New("vault engine: vault not found")
	ErrUnauthorized           = errors.New("vault engine: caller is not the vault owner")
	ErrInvalidAmount          = errors.New("vault engine: amount must be positive")
	ErrInsufficientCollateral = errors.New("vault engine: insufficient collateral")
	ErrInsufficientDebt       = errors.New("vault engine: repayment exceeds outstanding debt")
	ErrInsufficientBalance    = errors.New("vault engine: insufficient token balance")
	ErrBelowMinimumRatio      = errors.New("vault engine: collateralization below minimum ratio")
	ErrNotRisky               = errors.New("vault engine: vault is not below the minimum ratio")
	ErrNoDebt                 = errors.New("vault engine: vault has no debt")
	ErrNonZeroDebt            = errors.New("vault engine: vault still has outstanding debt")
	ErrInvalidRecipient       = errors.New("vault engine: recipient address is invalid")
	ErrIDExhausted            = errors.New("vault engine: vault id space exhausted")
)
