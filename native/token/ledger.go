package token

import (
	"errors"

	"stablevault/core/types"
	"stablevault/crypto"
)

var (
	// ErrInsufficientBalance is returned when a burn or transfer exceeds the
	// account balance. Shortfalls are never clamped.
	ErrInsufficientBalance = errors.New("token ledger: insufficient balance")
	// ErrInvalidAmount rejects zero-amount transfers at the node boundary.
	ErrInvalidAmount = errors.New("token ledger: amount must be positive")
	// ErrInvalidRecipient rejects transfers touching the zero address.
	ErrInvalidRecipient = errors.New("token ledger: recipient address is invalid")
)

// Decimals is the fixed display precision of the synthetic token.
const Decimals uint8 = 18

// Ledger is the balance book for the synthetic token. It performs no locking
// of its own: the node serialises every mutation across the registry and the
// ledger as one unit, so interleavings that could break conservation are
// impossible by construction.
type Ledger struct {
	name     string
	symbol   string
	balances map[string]types.Value
	supply   types.Value
}

// NewLedger constructs an empty ledger with the given display metadata.
func NewLedger(name, symbol string) *Ledger {
	return &Ledger{
		name:     name,
		symbol:   symbol,
		balances: make(map[string]types.Value),
	}
}

// Name returns the token display name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the token display symbol.
func (l *Ledger) Symbol() string { return l.symbol }

func key(addr crypto.Address) string {
	return string(addr.Bytes())
}

// BalanceOf returns the balance of the given account, zero when the account
// has never been touched.
func (l *Ledger) BalanceOf(addr crypto.Address) types.Value {
	return l.balances[key(addr)]
}

// TotalSupply returns the outstanding token supply. It equals the sum of all
// balances and, while the ledger is driven through the vault registry, the sum
// of debt across existing vaults.
func (l *Ledger) TotalSupply() types.Value {
	return l.supply
}

// Mint credits amount to the account and grows the supply.
func (l *Ledger) Mint(addr crypto.Address, amount types.Value) error {
	k := key(addr)
	balance, err := l.balances[k].Add(amount)
	if err != nil {
		return err
	}
	supply, err := l.supply.Add(amount)
	if err != nil {
		return err
	}
	l.balances[k] = balance
	l.supply = supply
	return nil
}

// Burn debits amount from the account and shrinks the supply.
func (l *Ledger) Burn(addr crypto.Address, amount types.Value) error {
	k := key(addr)
	current := l.balances[k]
	if current.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	balance, err := current.Sub(amount)
	if err != nil {
		return err
	}
	supply, err := l.supply.Sub(amount)
	if err != nil {
		return err
	}
	l.balances[k] = balance
	l.supply = supply
	return nil
}

// Transfer moves amount between two accounts without touching the supply.
func (l *Ledger) Transfer(from, to crypto.Address, amount types.Value) error {
	fromKey, toKey := key(from), key(to)
	current := l.balances[fromKey]
	if current.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	// A self-transfer is a funded no-op; debiting and crediting the same
	// entry would double-count the credit.
	if fromKey == toKey {
		return nil
	}
	debited, err := current.Sub(amount)
	if err != nil {
		return err
	}
	credited, err := l.balances[toKey].Add(amount)
	if err != nil {
		return err
	}
	l.balances[fromKey] = debited
	l.balances[toKey] = credited
	return nil
}

// Snapshot returns a copy of every non-zero balance keyed by the raw account
// bytes. Used for persistence and read-model exports.
func (l *Ledger) Snapshot() map[string]types.Value {
	out := make(map[string]types.Value, len(l.balances))
	for k, v := range l.balances {
		if v.IsZero() {
			continue
		}
		out[k] = v
	}
	return out
}

// Restore replaces the ledger contents with the supplied snapshot.
func (l *Ledger) Restore(balances map[string]types.Value) error {
	restored := make(map[string]types.Value, len(balances))
	supply := types.Value{}
	for k, v := range balances {
		var err error
		if supply, err = supply.Add(v); err != nil {
			return err
		}
		restored[k] = v
	}
	l.balances = restored
	l.supply = supply
	return nil
}
