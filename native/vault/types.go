package vault

import (
	"stablevault/core/types"
	"stablevault/crypto"
)

// Vault is a collateralized debt position: locked collateral backing minted
// synthetic debt, exclusively owned by one account. A vault that is absent
// from the registry does not exist; destroyed ids are never reissued.
type Vault struct {
	ID         uint64
	Owner      crypto.Address
	Collateral types.Value
	Debt       types.Value
}

// Clone returns a copy safe to hand to callers.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	cloned := *v
	return &cloned
}

// Params groups the risk configuration fixed at system initialisation. No
// vault operation can mutate it.
type Params struct {
	// MinimumCollateralPercentage is the lowest collateralization ratio an
	// indebted vault may hold, expressed as an integer percent (150 == 150%).
	MinimumCollateralPercentage uint64
}
