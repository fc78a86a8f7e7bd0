package vault

import (
	"stablevault/core/types"
	"stablevault/crypto"
	nativecommon "stablevault/native/common"
	"stablevault/native/oracle"
)

const moduleName = "vault"

// ratioScale converts a collateral/debt quotient into integer percent.
const ratioScale = 100

// State is the persistence seam for the registry. GetVault must return a
// defensive copy (or nil when the id is unknown) so that an aborted operation
// can never leak a partial mutation; only PutVault and DeleteVault make a
// change visible.
type State interface {
	GetVault(id uint64) (*Vault, error)
	PutVault(v *Vault) error
	DeleteVault(id uint64) error
	NextVaultID() (uint64, error)
	VaultCount() (uint64, error)
}

// TokenLedger is the slice of the synthetic token ledger the engine drives:
// borrow mints, repay and liquidation burn.
type TokenLedger interface {
	BalanceOf(addr crypto.Address) types.Value
	Mint(addr crypto.Address, amount types.Value) error
	Burn(addr crypto.Address, amount types.Value) error
}

// Engine orchestrates the vault lifecycle and the liquidation rule. It holds
// no lock of its own: the node serialises every call, and the engine together
// with the token ledger forms one transactional unit under that lock.
type Engine struct {
	state           State
	ledger          TokenLedger
	collateralPrice oracle.PriceSource
	syntheticPrice  oracle.PriceSource
	params          Params
	pauses          nativecommon.PauseView
}

// NewEngine constructs a vault engine with the immutable risk parameters and
// the two price views fixed at initialisation.
func NewEngine(params Params, collateralPrice, syntheticPrice oracle.PriceSource) *Engine {
	return &Engine{
		params:          params,
		collateralPrice: collateralPrice,
		syntheticPrice:  syntheticPrice,
	}
}

// SetState wires the engine to the registry persistence layer.
func (e *Engine) SetState(s State) { e.state = s }

// SetLedger wires the engine to the synthetic token ledger.
func (e *Engine) SetLedger(l TokenLedger) { e.ledger = l }

// SetPauses installs the operational pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// Params returns the risk configuration.
func (e *Engine) Params() Params { return e.params }

// CreateVault allocates a fresh id and inserts an empty vault owned by the
// caller. Ids grow monotonically and are never reused.
func (e *Engine) CreateVault(caller crypto.Address) (*Vault, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if caller.IsZero() {
		return nil, ErrInvalidRecipient
	}
	id, err := e.state.NextVaultID()
	if err != nil {
		return nil, err
	}
	v := &Vault{ID: id, Owner: caller}
	if err := e.state.PutVault(v); err != nil {
		return nil, err
	}
	return v.Clone(), nil
}

// DepositCollateral tops up a vault. Deliberately not owner-gated: anyone may
// donate collateral into any vault.
func (e *Engine) DepositCollateral(id uint64, amount types.Value) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	v, err := e.mustGetVault(id)
	if err != nil {
		return err
	}
	collateral, err := v.Collateral.Add(amount)
	if err != nil {
		return err
	}
	v.Collateral = collateral
	return e.state.PutVault(v)
}

// WithdrawCollateral releases collateral back to the owner while ensuring the
// remaining position stays at or above the minimum ratio.
func (e *Engine) WithdrawCollateral(id uint64, caller crypto.Address, amount types.Value) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	v, err := e.mustGetVault(id)
	if err != nil {
		return err
	}
	if !v.Owner.Equal(caller) {
		return ErrUnauthorized
	}
	if v.Collateral.Cmp(amount) < 0 {
		return ErrInsufficientCollateral
	}
	remaining, err := v.Collateral.Sub(amount)
	if err != nil {
		return err
	}
	ok, err := e.meetsMinimumRatio(remaining, v.Debt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBelowMinimumRatio
	}
	v.Collateral = remaining
	return e.state.PutVault(v)
}

// BorrowToken mints synthetic tokens to the owner against the vault, checking
// the ratio with the projected debt.
func (e *Engine) BorrowToken(id uint64, caller crypto.Address, amount types.Value) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	v, err := e.mustGetVault(id)
	if err != nil {
		return err
	}
	if !v.Owner.Equal(caller) {
		return ErrUnauthorized
	}
	projected, err := v.Debt.Add(amount)
	if err != nil {
		return err
	}
	ok, err := e.meetsMinimumRatio(v.Collateral, projected)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBelowMinimumRatio
	}
	if err := e.ledger.Mint(caller, amount); err != nil {
		return err
	}
	v.Debt = projected
	return e.state.PutVault(v)
}

// PayBackToken burns tokens from the owner and reduces the vault debt.
// Repayment is owner-only.
func (e *Engine) PayBackToken(id uint64, caller crypto.Address, amount types.Value) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	v, err := e.mustGetVault(id)
	if err != nil {
		return err
	}
	if !v.Owner.Equal(caller) {
		return ErrUnauthorized
	}
	if v.Debt.Cmp(amount) < 0 {
		return ErrInsufficientDebt
	}
	if e.ledger.BalanceOf(caller).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	remaining, err := v.Debt.Sub(amount)
	if err != nil {
		return err
	}
	if err := e.ledger.Burn(caller, amount); err != nil {
		return err
	}
	v.Debt = remaining
	return e.state.PutVault(v)
}

// DestroyVault retires a debt-free vault and reports the collateral handed
// back to the owner. The id is permanently retired.
func (e *Engine) DestroyVault(id uint64, caller crypto.Address) (types.Value, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return types.Value{}, err
	}
	v, err := e.mustGetVault(id)
	if err != nil {
		return types.Value{}, err
	}
	if !v.Owner.Equal(caller) {
		return types.Value{}, ErrUnauthorized
	}
	if !v.Debt.IsZero() {
		return types.Value{}, ErrNonZeroDebt
	}
	refund := v.Collateral
	if err := e.state.DeleteVault(id); err != nil {
		return types.Value{}, err
	}
	return refund, nil
}

// TransferVault hands ownership to another account. There is never a moment
// with two owners or none: the swap happens in a single Put.
func (e *Engine) TransferVault(id uint64, caller, newOwner crypto.Address) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	v, err := e.mustGetVault(id)
	if err != nil {
		return err
	}
	if !v.Owner.Equal(caller) {
		return ErrUnauthorized
	}
	if newOwner.IsZero() {
		return ErrInvalidRecipient
	}
	v.Owner = newOwner
	return e.state.PutVault(v)
}

// BuyRiskyVault forcibly rebalances an undercollateralized vault: the buyer
// extinguishes exactly the debt that restores the minimum ratio and takes
// ownership. No collateral moves; the vault itself is the consideration.
// Returns the previous owner and the amount of debt the buyer paid.
func (e *Engine) BuyRiskyVault(id uint64, buyer crypto.Address) (crypto.Address, types.Value, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return crypto.Address{}, types.Value{}, err
	}
	if buyer.IsZero() {
		return crypto.Address{}, types.Value{}, ErrInvalidRecipient
	}
	v, err := e.mustGetVault(id)
	if err != nil {
		return crypto.Address{}, types.Value{}, err
	}
	if v.Debt.IsZero() {
		return crypto.Address{}, types.Value{}, ErrNoDebt
	}
	ok, err := e.meetsMinimumRatio(v.Collateral, v.Debt)
	if err != nil {
		return crypto.Address{}, types.Value{}, err
	}
	if ok {
		return crypto.Address{}, types.Value{}, ErrNotRisky
	}

	maximumDebt, err := e.maximumDebt(v.Collateral)
	if err != nil {
		return crypto.Address{}, types.Value{}, err
	}
	// Rounding can push maximumDebt past the current debt; the buyout then
	// degenerates to a zero-cost ownership transfer.
	amountToPay := types.Value{}
	if v.Debt.Cmp(maximumDebt) > 0 {
		if amountToPay, err = v.Debt.Sub(maximumDebt); err != nil {
			return crypto.Address{}, types.Value{}, err
		}
	} else {
		maximumDebt = v.Debt
	}
	if e.ledger.BalanceOf(buyer).Cmp(amountToPay) < 0 {
		return crypto.Address{}, types.Value{}, ErrInsufficientBalance
	}
	if !amountToPay.IsZero() {
		if err := e.ledger.Burn(buyer, amountToPay); err != nil {
			return crypto.Address{}, types.Value{}, err
		}
	}
	previousOwner := v.Owner
	v.Debt = maximumDebt
	v.Owner = buyer
	if err := e.state.PutVault(v); err != nil {
		return crypto.Address{}, types.Value{}, err
	}
	return previousOwner, amountToPay, nil
}

// Vault returns a copy of the vault, or ErrNotFound.
func (e *Engine) Vault(id uint64) (*Vault, error) {
	return e.mustGetVault(id)
}

// VaultExists reports whether the id maps to a live vault.
func (e *Engine) VaultExists(id uint64) (bool, error) {
	v, err := e.state.GetVault(id)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// VaultCount returns the number of existing vaults.
func (e *Engine) VaultCount() (uint64, error) {
	return e.state.VaultCount()
}

// Ratio computes the current collateralization ratio in integer percent.
// The second return is false when the vault has no debt, in which case the
// ratio is treated as infinite.
func (e *Engine) Ratio(id uint64) (types.Value, bool, error) {
	v, err := e.mustGetVault(id)
	if err != nil {
		return types.Value{}, false, err
	}
	if v.Debt.IsZero() {
		return types.Value{}, false, nil
	}
	ratio, err := e.collateralRatio(v.Collateral, v.Debt)
	if err != nil {
		return types.Value{}, false, err
	}
	return ratio, true, nil
}

func (e *Engine) mustGetVault(id uint64) (*Vault, error) {
	v, err := e.state.GetVault(id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func (e *Engine) readPrices() (collateral, synthetic types.Value, err error) {
	if collateral, err = e.collateralPrice.CurrentPrice(); err != nil {
		return types.Value{}, types.Value{}, err
	}
	if synthetic, err = e.syntheticPrice.CurrentPrice(); err != nil {
		return types.Value{}, types.Value{}, err
	}
	return collateral, synthetic, nil
}

// collateralRatio computes floor(collateral*collateralPrice*100 /
// (debt*syntheticPrice)). Callers must ensure debt is non-zero.
func (e *Engine) collateralRatio(collateral, debt types.Value) (types.Value, error) {
	collateralPrice, syntheticPrice, err := e.readPrices()
	if err != nil {
		return types.Value{}, err
	}
	scaled, err := collateral.MulUint64(ratioScale)
	if err != nil {
		return types.Value{}, err
	}
	denominator, err := debt.Mul(syntheticPrice)
	if err != nil {
		return types.Value{}, err
	}
	return scaled.MulDiv(collateralPrice, denominator)
}

// meetsMinimumRatio reports whether a position at current prices satisfies the
// minimum collateralization. Zero debt always passes.
func (e *Engine) meetsMinimumRatio(collateral, debt types.Value) (bool, error) {
	if debt.IsZero() {
		return true, nil
	}
	ratio, err := e.collateralRatio(collateral, debt)
	if err != nil {
		return false, err
	}
	return ratio.Cmp(types.NewValue(e.params.MinimumCollateralPercentage)) >= 0, nil
}

// maximumDebt is the largest debt the collateral supports at exactly the
// minimum ratio under current prices:
// floor(collateral*collateralPrice*100 / (syntheticPrice*minimumPercentage)).
func (e *Engine) maximumDebt(collateral types.Value) (types.Value, error) {
	collateralPrice, syntheticPrice, err := e.readPrices()
	if err != nil {
		return types.Value{}, err
	}
	scaled, err := collateral.MulUint64(ratioScale)
	if err != nil {
		return types.Value{}, err
	}
	denominator, err := syntheticPrice.MulUint64(e.params.MinimumCollateralPercentage)
	if err != nil {
		return types.Value{}, err
	}
	return scaled.MulDiv(collateralPrice, denominator)
}
