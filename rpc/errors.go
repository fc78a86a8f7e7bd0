package rpc

import (
	"errors"

	"stablevault/core"
	"stablevault/core/types"
	nativecommon "stablevault/native/common"
	"stablevault/native/token"
	"stablevault/native/vault"
)

// Error codes for ledger failures. Every engine failure surfaces its specific
// kind; clients never see a generic error where a typed one exists.
const (
	codeNotFound               = -32004
	codeInsufficientCollateral = -32030
	codeInsufficientDebt       = -32031
	codeInsufficientBalance    = -32032
	codeBelowMinimumRatio      = -32033
	codeNotRisky               = -32034
	codeNoDebt                 = -32035
	codeNonZeroDebt            = -32036
	codeInvalidRecipient       = -32037
	codeArithmeticOverflow     = -32038
	codeModulePaused           = -32039
)

var errorCodes = []struct {
	err  error
	code int
}{
	{vault.ErrNotFound, codeNotFound},
	{vault.ErrUnauthorized, codeUnauthorized},
	{vault.ErrInvalidAmount, codeInvalidParams},
	{vault.ErrInsufficientCollateral, codeInsufficientCollateral},
	{vault.ErrInsufficientDebt, codeInsufficientDebt},
	{vault.ErrInsufficientBalance, codeInsufficientBalance},
	{vault.ErrBelowMinimumRatio, codeBelowMinimumRatio},
	{vault.ErrNotRisky, codeNotRisky},
	{vault.ErrNoDebt, codeNoDebt},
	{vault.ErrNonZeroDebt, codeNonZeroDebt},
	{vault.ErrInvalidRecipient, codeInvalidRecipient},
	{token.ErrInsufficientBalance, codeInsufficientBalance},
	{token.ErrInvalidAmount, codeInvalidParams},
	{token.ErrInvalidRecipient, codeInvalidRecipient},
	{types.ErrArithmeticOverflow, codeArithmeticOverflow},
	{nativecommon.ErrModulePaused, codeModulePaused},
	{core.ErrUnknownAsset, codeInvalidParams},
	{core.ErrInvalidPrice, codeInvalidParams},
}

// translateError maps a ledger failure onto its RPC error. Unknown errors
// become an opaque server error so internals never leak.
func translateError(err error) *rpcError {
	if err == nil {
		return nil
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return &rpcError{Code: entry.code, Message: entry.err.Error()}
		}
	}
	return &rpcError{Code: codeServerError, Message: "internal error"}
}
