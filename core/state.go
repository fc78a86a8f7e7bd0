package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"stablevault/core/types"
	"stablevault/crypto"
	"stablevault/native/vault"
	"stablevault/storage"
)

var stateKey = []byte("state/snapshot")

// ledgerState implements vault.State over an in-memory registry with a
// write-through JSON snapshot in the backing database. GetVault hands out
// clones so an aborted engine operation never leaks a partial mutation.
type ledgerState struct {
	db     storage.Database
	vaults map[uint64]*vault.Vault
	nextID uint64
}

func newLedgerState(db storage.Database) *ledgerState {
	return &ledgerState{
		db:     db,
		vaults: make(map[uint64]*vault.Vault),
		nextID: 1,
	}
}

func (s *ledgerState) GetVault(id uint64) (*vault.Vault, error) {
	return s.vaults[id].Clone(), nil
}

func (s *ledgerState) PutVault(v *vault.Vault) error {
	if v == nil {
		return errors.New("state: nil vault")
	}
	s.vaults[v.ID] = v.Clone()
	return nil
}

func (s *ledgerState) DeleteVault(id uint64) error {
	delete(s.vaults, id)
	return nil
}

func (s *ledgerState) NextVaultID() (uint64, error) {
	if s.nextID == math.MaxUint64 {
		return 0, vault.ErrIDExhausted
	}
	id := s.nextID
	s.nextID++
	return id, nil
}

func (s *ledgerState) VaultCount() (uint64, error) {
	return uint64(len(s.vaults)), nil
}

// --- snapshot persistence ---

type vaultRecord struct {
	ID         uint64      `json:"id"`
	Owner      string      `json:"owner"`
	Collateral types.Value `json:"collateral"`
	Debt       types.Value `json:"debt"`
}

type snapshot struct {
	NextVaultID     uint64                 `json:"nextVaultId"`
	Vaults          []vaultRecord          `json:"vaults"`
	Balances        map[string]types.Value `json:"balances"`
	CollateralPrice types.Value            `json:"collateralPrice"`
	SyntheticPrice  types.Value            `json:"syntheticPrice"`
}

// save writes the full ledger snapshot. Balance and price state travel with
// the registry so a restart observes one consistent settled state.
func (s *ledgerState) save(balances map[string]types.Value, collateralPrice, syntheticPrice types.Value) error {
	if s.db == nil {
		return nil
	}
	snap := snapshot{
		NextVaultID:     s.nextID,
		Vaults:          make([]vaultRecord, 0, len(s.vaults)),
		Balances:        make(map[string]types.Value, len(balances)),
		CollateralPrice: collateralPrice,
		SyntheticPrice:  syntheticPrice,
	}
	ids := make([]uint64, 0, len(s.vaults))
	for id := range s.vaults {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		v := s.vaults[id]
		snap.Vaults = append(snap.Vaults, vaultRecord{
			ID:         v.ID,
			Owner:      v.Owner.String(),
			Collateral: v.Collateral,
			Debt:       v.Debt,
		})
	}
	for k, bal := range balances {
		addr := crypto.NewAddress(crypto.AccountPrefix, []byte(k))
		snap.Balances[addr.String()] = bal
	}
	encoded, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("state: encode snapshot: %w", err)
	}
	return s.db.Put(stateKey, encoded)
}

// load restores the registry from the snapshot when one exists and returns
// the recorded balances and prices.
func (s *ledgerState) load() (map[string]types.Value, types.Value, types.Value, bool, error) {
	if s.db == nil {
		return nil, types.Value{}, types.Value{}, false, nil
	}
	raw, err := s.db.Get(stateKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, types.Value{}, types.Value{}, false, nil
	}
	if err != nil {
		return nil, types.Value{}, types.Value{}, false, err
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, types.Value{}, types.Value{}, false, fmt.Errorf("state: decode snapshot: %w", err)
	}
	vaults := make(map[uint64]*vault.Vault, len(snap.Vaults))
	for _, rec := range snap.Vaults {
		owner, err := crypto.DecodeAddress(rec.Owner)
		if err != nil {
			return nil, types.Value{}, types.Value{}, false, fmt.Errorf("state: vault %d owner: %w", rec.ID, err)
		}
		vaults[rec.ID] = &vault.Vault{
			ID:         rec.ID,
			Owner:      owner,
			Collateral: rec.Collateral,
			Debt:       rec.Debt,
		}
	}
	balances := make(map[string]types.Value, len(snap.Balances))
	for encoded, bal := range snap.Balances {
		addr, err := crypto.DecodeAddress(encoded)
		if err != nil {
			return nil, types.Value{}, types.Value{}, false, fmt.Errorf("state: balance address: %w", err)
		}
		balances[string(addr.Bytes())] = bal
	}
	s.vaults = vaults
	if snap.NextVaultID > 0 {
		s.nextID = snap.NextVaultID
	}
	return balances, snap.CollateralPrice, snap.SyntheticPrice, true, nil
}
