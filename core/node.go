package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"stablevault/core/events"
	"stablevault/core/types"
	"stablevault/crypto"
	"stablevault/native/oracle"
	"stablevault/native/token"
	"stablevault/native/vault"
	"stablevault/observability"
	"stablevault/storage"
)

// Asset identifiers accepted by the oracle surface.
const (
	AssetCollateral = "collateral"
	AssetSynthetic  = "synthetic"
)

var (
	// ErrUnknownAsset is returned for price reads/updates against an asset
	// the ledger does not track.
	ErrUnknownAsset = errors.New("node: unknown asset")
	// ErrInvalidPrice rejects zero prices; a zero synthetic price would make
	// every ratio computation divide by zero.
	ErrInvalidPrice = errors.New("node: price must be positive")
)

// NodeConfig carries everything fixed at initialisation. None of it is
// mutable through vault operations afterwards.
type NodeConfig struct {
	// DB backs the state snapshot and the event log. Nil selects an
	// in-memory database.
	DB              storage.Database
	Params          vault.Params
	TokenName       string
	TokenSymbol     string
	CollateralPrice types.Value
	SyntheticPrice  types.Value
	Logger          *slog.Logger
	Emitter         events.Emitter
}

// Node is the serial state machine in front of the vault registry and the
// token ledger. One mutex guards both as a single transactional unit: no
// operation ever observes a partially-applied effect of another, and every
// successful mutation is appended to the event log before it returns.
type Node struct {
	mu sync.Mutex

	engine     *vault.Engine
	state      *ledgerState
	ledger     *token.Ledger
	collateral *oracle.ManualSource
	synthetic  *oracle.ManualSource
	eventLog   *EventLog
	emitter    events.Emitter
	logger     *slog.Logger
	metrics    *observability.LedgerMetrics
	pauses     *pauseSet
}

// pauseSet is the operator-facing pause switchboard.
type pauseSet struct {
	paused map[string]bool
}

func (p *pauseSet) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	return p.paused[module]
}

// NewNode restores state from the database when a snapshot exists, otherwise
// starts empty with the configured initial prices.
func NewNode(cfg NodeConfig) (*Node, error) {
	if cfg.Params.MinimumCollateralPercentage == 0 {
		return nil, errors.New("node: minimum collateral percentage must be positive")
	}
	if cfg.CollateralPrice.IsZero() || cfg.SyntheticPrice.IsZero() {
		return nil, ErrInvalidPrice
	}
	db := cfg.DB
	if db == nil {
		db = storage.NewMemDB()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}

	state := newLedgerState(db)
	balances, collateralPrice, syntheticPrice, restored, err := state.load()
	if err != nil {
		return nil, err
	}
	if !restored {
		collateralPrice = cfg.CollateralPrice
		syntheticPrice = cfg.SyntheticPrice
	}

	ledger := token.NewLedger(cfg.TokenName, cfg.TokenSymbol)
	if restored {
		if err := ledger.Restore(balances); err != nil {
			return nil, fmt.Errorf("node: restore balances: %w", err)
		}
	}

	collateral := oracle.NewManualSource(collateralPrice)
	synthetic := oracle.NewManualSource(syntheticPrice)

	pauses := &pauseSet{paused: make(map[string]bool)}
	engine := vault.NewEngine(cfg.Params, collateral, synthetic)
	engine.SetState(state)
	engine.SetLedger(ledger)
	engine.SetPauses(pauses)

	eventLog, err := OpenEventLog(db)
	if err != nil {
		return nil, err
	}

	n := &Node{
		engine:     engine,
		state:      state,
		ledger:     ledger,
		collateral: collateral,
		synthetic:  synthetic,
		eventLog:   eventLog,
		emitter:    emitter,
		logger:     logger,
		metrics:    observability.Metrics(),
		pauses:     pauses,
	}
	if count, err := state.VaultCount(); err == nil {
		n.metrics.SetVaultCount(count)
	}
	return n, nil
}

// renderedEvent pairs the typed event with its flat replayable record.
type renderedEvent interface {
	events.Event
	Event() *types.Event
}

// commit persists the post-state snapshot, appends the event to the log and
// notifies subscribers. Called only after the engine applied the mutation.
func (n *Node) commit(evt renderedEvent) error {
	collateralPrice, _ := n.collateral.CurrentPrice()
	syntheticPrice, _ := n.synthetic.CurrentPrice()
	if err := n.state.save(n.ledger.Snapshot(), collateralPrice, syntheticPrice); err != nil {
		return err
	}
	if err := n.eventLog.Append(evt.Event()); err != nil {
		return err
	}
	n.emitter.Emit(evt)
	return nil
}

func (n *Node) updateVaultGauge() {
	if count, err := n.state.VaultCount(); err == nil {
		n.metrics.SetVaultCount(count)
	}
}

// CreateVault allocates a fresh vault owned by the caller and returns its id.
func (n *Node) CreateVault(caller crypto.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, err := n.engine.CreateVault(caller)
	n.metrics.ObserveOperation("create_vault", err)
	if err != nil {
		return 0, err
	}
	if err := n.commit(events.VaultCreated{ID: v.ID, Owner: caller}); err != nil {
		return 0, err
	}
	n.updateVaultGauge()
	n.logger.Info("vault created", "id", v.ID, "owner", caller.String())
	return v.ID, nil
}

// DepositCollateral locks additional collateral in the vault. Anyone may top
// up any vault.
func (n *Node) DepositCollateral(id uint64, amount types.Value) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.DepositCollateral(id, amount)
	n.metrics.ObserveOperation("deposit_collateral", err)
	if err != nil {
		return err
	}
	return n.commit(events.CollateralDeposited{ID: id, Amount: amount})
}

// WithdrawCollateral releases collateral to the owner, subject to the
// post-withdrawal ratio check.
func (n *Node) WithdrawCollateral(id uint64, caller crypto.Address, amount types.Value) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.WithdrawCollateral(id, caller, amount)
	n.metrics.ObserveOperation("withdraw_collateral", err)
	if err != nil {
		return err
	}
	return n.commit(events.CollateralWithdrawn{ID: id, Amount: amount})
}

// BorrowToken mints synthetic tokens against the vault's collateral.
func (n *Node) BorrowToken(id uint64, caller crypto.Address, amount types.Value) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.BorrowToken(id, caller, amount)
	n.metrics.ObserveOperation("borrow_token", err)
	if err != nil {
		return err
	}
	return n.commit(events.TokenBorrowed{ID: id, Amount: amount})
}

// PayBackToken burns tokens from the owner and reduces the vault debt.
func (n *Node) PayBackToken(id uint64, caller crypto.Address, amount types.Value) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.PayBackToken(id, caller, amount)
	n.metrics.ObserveOperation("pay_back_token", err)
	if err != nil {
		return err
	}
	return n.commit(events.TokenRepaid{ID: id, Amount: amount})
}

// DestroyVault retires a debt-free vault. The freed collateral travels back
// to the owner through the external transfer collaborator and is reported in
// the emitted event.
func (n *Node) DestroyVault(id uint64, caller crypto.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	refund, err := n.engine.DestroyVault(id, caller)
	n.metrics.ObserveOperation("destroy_vault", err)
	if err != nil {
		return err
	}
	if err := n.commit(events.VaultDestroyed{ID: id, CollateralReturned: refund}); err != nil {
		return err
	}
	n.updateVaultGauge()
	n.logger.Info("vault destroyed", "id", id, "collateralReturned", refund.String())
	return nil
}

// TransferVault hands the vault to a new owner.
func (n *Node) TransferVault(id uint64, caller, newOwner crypto.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.TransferVault(id, caller, newOwner)
	n.metrics.ObserveOperation("transfer_vault", err)
	if err != nil {
		return err
	}
	return n.commit(events.VaultTransferred{ID: id, From: caller, To: newOwner})
}

// BuyRiskyVault liquidates an undercollateralized vault: the buyer pays down
// the debt to exactly the minimum ratio and takes ownership. Returns the new
// owner (the buyer) and the amount of debt paid.
func (n *Node) BuyRiskyVault(id uint64, buyer crypto.Address) (crypto.Address, types.Value, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	previousOwner, amountPaid, err := n.engine.BuyRiskyVault(id, buyer)
	n.metrics.ObserveOperation("buy_risky_vault", err)
	if err != nil {
		return crypto.Address{}, types.Value{}, err
	}
	if err := n.commit(events.VaultLiquidated{
		ID:            id,
		PreviousOwner: previousOwner,
		Buyer:         buyer,
		AmountPaid:    amountPaid,
	}); err != nil {
		return crypto.Address{}, types.Value{}, err
	}
	n.metrics.ObserveLiquidation()
	n.logger.Info("vault liquidated",
		"id", id,
		"previousOwner", previousOwner.String(),
		"buyer", buyer.String(),
		"amountPaid", amountPaid.String(),
	)
	return buyer, amountPaid, nil
}

// TransferToken moves synthetic tokens between accounts.
func (n *Node) TransferToken(from, to crypto.Address, amount types.Value) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	var err error
	switch {
	case from.IsZero() || to.IsZero():
		err = token.ErrInvalidRecipient
	case amount.IsZero():
		err = token.ErrInvalidAmount
	default:
		err = n.ledger.Transfer(from, to, amount)
	}
	n.metrics.ObserveOperation("transfer_token", err)
	if err != nil {
		return err
	}
	return n.commit(events.TokenTransferred{From: from, To: to, Amount: amount})
}

// SetPrice updates a manual price source and emits the change notification.
// This is the ingestion point for external feeds; it is not a vault operation
// and cannot alter any position directly.
func (n *Node) SetPrice(asset string, price types.Value) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if price.IsZero() {
		return ErrInvalidPrice
	}
	var source *oracle.ManualSource
	switch asset {
	case AssetCollateral:
		source = n.collateral
	case AssetSynthetic:
		source = n.synthetic
	default:
		return ErrUnknownAsset
	}
	old := source.Set(price)
	return n.commit(events.PriceChanged{Asset: asset, OldPrice: old, NewPrice: price})
}

// SetPaused toggles the operational pause switch for a module ("vault").
func (n *Node) SetPaused(module string, paused bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pauses.paused[module] = paused
	n.logger.Info("module pause toggled", "module", module, "paused", paused)
}

// --- reads; all pure and side-effect-free ---

// VaultCount returns the number of existing vaults.
func (n *Node) VaultCount() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.VaultCount()
}

// VaultExists reports whether the id maps to a live vault.
func (n *Node) VaultExists(id uint64) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.VaultExists(id)
}

// Vault returns a copy of the vault.
func (n *Node) Vault(id uint64) (*vault.Vault, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Vault(id)
}

// VaultOwner returns the owner of the vault.
func (n *Node) VaultOwner(id uint64) (crypto.Address, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, err := n.engine.Vault(id)
	if err != nil {
		return crypto.Address{}, err
	}
	return v.Owner, nil
}

// VaultCollateral returns the locked collateral of the vault.
func (n *Node) VaultCollateral(id uint64) (types.Value, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, err := n.engine.Vault(id)
	if err != nil {
		return types.Value{}, err
	}
	return v.Collateral, nil
}

// VaultDebt returns the outstanding debt of the vault.
func (n *Node) VaultDebt(id uint64) (types.Value, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, err := n.engine.Vault(id)
	if err != nil {
		return types.Value{}, err
	}
	return v.Debt, nil
}

// VaultRatio returns the current collateralization ratio of the vault. The
// boolean is false when the vault carries no debt, in which case the ratio is
// unbounded and the returned value is meaningless.
func (n *Node) VaultRatio(id uint64) (types.Value, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Ratio(id)
}

// BalanceOf returns the synthetic token balance of the account.
func (n *Node) BalanceOf(addr crypto.Address) types.Value {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.BalanceOf(addr)
}

// TotalSupply returns the outstanding synthetic token supply.
func (n *Node) TotalSupply() types.Value {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.TotalSupply()
}

// CurrentPrice returns the latest price for the asset.
func (n *Node) CurrentPrice(asset string) (types.Value, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch asset {
	case AssetCollateral:
		return n.collateral.CurrentPrice()
	case AssetSynthetic:
		return n.synthetic.CurrentPrice()
	}
	return types.Value{}, ErrUnknownAsset
}

// MinimumCollateralPercentage returns the immutable minimum ratio.
func (n *Node) MinimumCollateralPercentage() uint64 {
	return n.engine.Params().MinimumCollateralPercentage
}

// TokenName returns the synthetic token display name.
func (n *Node) TokenName() string { return n.ledger.Name() }

// TokenSymbol returns the synthetic token display symbol.
func (n *Node) TokenSymbol() string { return n.ledger.Symbol() }

// ReplayEvents feeds every recorded event, in order, to the visitor.
func (n *Node) ReplayEvents(fn func(types.Event) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.eventLog.Replay(fn)
}

// EventCount returns the number of recorded events.
func (n *Node) EventCount() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.eventLog.Len()
}
