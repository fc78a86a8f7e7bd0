package events

import (
	"stablevault/core/types"
	"stablevault/crypto"
)

const (
	// TypeVaultCreated is emitted when a fresh vault id is allocated.
	TypeVaultCreated = "vault.created"
	// TypeVaultDestroyed is emitted when a debt-free vault is retired.
	TypeVaultDestroyed = "vault.destroyed"
	// TypeVaultTransferred is emitted on an ownership handover.
	TypeVaultTransferred = "vault.transferred"
	// TypeCollateralDeposited is emitted when collateral is locked.
	TypeCollateralDeposited = "vault.collateral_deposited"
	// TypeCollateralWithdrawn is emitted when collateral is released.
	TypeCollateralWithdrawn = "vault.collateral_withdrawn"
	// TypeTokenBorrowed is emitted when synthetic tokens are minted against a
	// vault.
	TypeTokenBorrowed = "vault.token_borrowed"
	// TypeTokenRepaid is emitted when vault debt is burned down.
	TypeTokenRepaid = "vault.token_repaid"
	// TypeVaultLiquidated is emitted when a risky vault is bought out.
	TypeVaultLiquidated = "vault.liquidated"
)

type VaultCreated struct {
	ID    uint64
	Owner crypto.Address
}

func (VaultCreated) EventType() string { return TypeVaultCreated }

func (e VaultCreated) Event() *types.Event {
	return &types.Event{Type: TypeVaultCreated, Attributes: map[string]string{
		"id":    formatVaultID(e.ID),
		"owner": e.Owner.String(),
	}}
}

type VaultDestroyed struct {
	ID uint64
	// CollateralReturned is the amount refunded to the owner by the external
	// transfer collaborator when the vault was retired.
	CollateralReturned types.Value
}

func (VaultDestroyed) EventType() string { return TypeVaultDestroyed }

func (e VaultDestroyed) Event() *types.Event {
	return &types.Event{Type: TypeVaultDestroyed, Attributes: map[string]string{
		"id":                 formatVaultID(e.ID),
		"collateralReturned": formatAmount(e.CollateralReturned),
	}}
}

type VaultTransferred struct {
	ID   uint64
	From crypto.Address
	To   crypto.Address
}

func (VaultTransferred) EventType() string { return TypeVaultTransferred }

func (e VaultTransferred) Event() *types.Event {
	return &types.Event{Type: TypeVaultTransferred, Attributes: map[string]string{
		"id":   formatVaultID(e.ID),
		"from": e.From.String(),
		"to":   e.To.String(),
	}}
}

type CollateralDeposited struct {
	ID     uint64
	Amount types.Value
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Event() *types.Event {
	return &types.Event{Type: TypeCollateralDeposited, Attributes: map[string]string{
		"id":     formatVaultID(e.ID),
		"amount": formatAmount(e.Amount),
	}}
}

type CollateralWithdrawn struct {
	ID     uint64
	Amount types.Value
}

func (CollateralWithdrawn) EventType() string { return TypeCollateralWithdrawn }

func (e CollateralWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeCollateralWithdrawn, Attributes: map[string]string{
		"id":     formatVaultID(e.ID),
		"amount": formatAmount(e.Amount),
	}}
}

type TokenBorrowed struct {
	ID     uint64
	Amount types.Value
}

func (TokenBorrowed) EventType() string { return TypeTokenBorrowed }

func (e TokenBorrowed) Event() *types.Event {
	return &types.Event{Type: TypeTokenBorrowed, Attributes: map[string]string{
		"id":     formatVaultID(e.ID),
		"amount": formatAmount(e.Amount),
	}}
}

type TokenRepaid struct {
	ID     uint64
	Amount types.Value
}

func (TokenRepaid) EventType() string { return TypeTokenRepaid }

func (e TokenRepaid) Event() *types.Event {
	return &types.Event{Type: TypeTokenRepaid, Attributes: map[string]string{
		"id":     formatVaultID(e.ID),
		"amount": formatAmount(e.Amount),
	}}
}

type VaultLiquidated struct {
	ID            uint64
	PreviousOwner crypto.Address
	Buyer         crypto.Address
	AmountPaid    types.Value
}

func (VaultLiquidated) EventType() string { return TypeVaultLiquidated }

func (e VaultLiquidated) Event() *types.Event {
	return &types.Event{Type: TypeVaultLiquidated, Attributes: map[string]string{
		"id":            formatVaultID(e.ID),
		"previousOwner": e.PreviousOwner.String(),
		"buyer":         e.Buyer.String(),
		"amountPaid":    formatAmount(e.AmountPaid),
	}}
}
