package events

import (
	"stablevault/core/types"
	"stablevault/crypto"
)

const (
	// TypeTokenTransferred is emitted for synthetic token balance movements
	// between accounts.
	TypeTokenTransferred = "token.transferred"
	// TypePriceChanged is emitted when an oracle price source is updated.
	TypePriceChanged = "oracle.price_changed"
)

type TokenTransferred struct {
	From   crypto.Address
	To     crypto.Address
	Amount types.Value
}

func (TokenTransferred) EventType() string { return TypeTokenTransferred }

func (e TokenTransferred) Event() *types.Event {
	return &types.Event{Type: TypeTokenTransferred, Attributes: map[string]string{
		"from":   e.From.String(),
		"to":     e.To.String(),
		"amount": formatAmount(e.Amount),
	}}
}

type PriceChanged struct {
	Asset    string
	OldPrice types.Value
	NewPrice types.Value
}

func (PriceChanged) EventType() string { return TypePriceChanged }

func (e PriceChanged) Event() *types.Event {
	return &types.Event{Type: TypePriceChanged, Attributes: map[string]string{
		"asset":    normalizeAsset(e.Asset),
		"oldPrice": formatAmount(e.OldPrice),
		"newPrice": formatAmount(e.NewPrice),
	}}
}
