package rpc

import (
	"encoding/json"
	"strings"

	"stablevault/core/types"
	"stablevault/crypto"
)

// mutatingMethods require the bearer token when one is configured. Reads stay
// open so dashboards and probes can poll without credentials.
var mutatingMethods = map[string]bool{
	"vault_create":    true,
	"vault_deposit":   true,
	"vault_withdraw":  true,
	"vault_borrow":    true,
	"vault_repay":     true,
	"vault_destroy":   true,
	"vault_transfer":  true,
	"vault_buyRisky":  true,
	"token_transfer":  true,
	"oracle_setPrice": true,
}

func (s *Server) dispatch(method string, params json.RawMessage) (interface{}, *rpcError) {
	switch method {
	case "vault_create":
		return s.handleVaultCreate(params)
	case "vault_deposit":
		return s.handleVaultDeposit(params)
	case "vault_withdraw":
		return s.handleVaultWithdraw(params)
	case "vault_borrow":
		return s.handleVaultBorrow(params)
	case "vault_repay":
		return s.handleVaultRepay(params)
	case "vault_destroy":
		return s.handleVaultDestroy(params)
	case "vault_transfer":
		return s.handleVaultTransfer(params)
	case "vault_buyRisky":
		return s.handleVaultBuyRisky(params)
	case "vault_get":
		return s.handleVaultGet(params)
	case "vault_count":
		return s.handleVaultCount()
	case "token_balanceOf":
		return s.handleTokenBalanceOf(params)
	case "token_transfer":
		return s.handleTokenTransfer(params)
	case "token_info":
		return s.handleTokenInfo()
	case "oracle_price":
		return s.handleOraclePrice(params)
	case "oracle_setPrice":
		return s.handleOracleSetPrice(params)
	case "ledger_minimumCollateralPercentage":
		return s.handleMinimumCollateralPercentage()
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found"}
	}
}

// decodeParams accepts either a bare params object or the conventional
// single-element positional array wrapping one.
func decodeParams(raw json.RawMessage, target interface{}) *rpcError {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return &rpcError{Code: codeInvalidParams, Message: "params required"}
	}
	payload := raw
	if strings.HasPrefix(trimmed, "[") {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return &rpcError{Code: codeInvalidParams, Message: "invalid params"}
		}
		if len(list) != 1 {
			return &rpcError{Code: codeInvalidParams, Message: "expected a single params object"}
		}
		payload = list[0]
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return &rpcError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}

func decodeAddressParam(field, value string) (crypto.Address, *rpcError) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return crypto.Address{}, &rpcError{Code: codeInvalidParams, Message: field + ": " + err.Error()}
	}
	return addr, nil
}

type createVaultParams struct {
	Caller string `json:"caller"`
}

type createVaultResult struct {
	ID uint64 `json:"id"`
}

func (s *Server) handleVaultCreate(raw json.RawMessage) (interface{}, *rpcError) {
	var params createVaultParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := decodeAddressParam("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.node.CreateVault(caller)
	if err != nil {
		return nil, translateError(err)
	}
	return createVaultResult{ID: id}, nil
}

type depositParams struct {
	ID     uint64      `json:"id"`
	Amount types.Value `json:"amount"`
}

func (s *Server) handleVaultDeposit(raw json.RawMessage) (interface{}, *rpcError) {
	var params depositParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.DepositCollateral(params.ID, params.Amount); err != nil {
		return nil, translateError(err)
	}
	return okResult(), nil
}

type vaultAmountParams struct {
	ID     uint64      `json:"id"`
	Caller string      `json:"caller"`
	Amount types.Value `json:"amount"`
}

func (s *Server) handleVaultWithdraw(raw json.RawMessage) (interface{}, *rpcError) {
	params, caller, rpcErr := decodeVaultAmount(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.WithdrawCollateral(params.ID, caller, params.Amount); err != nil {
		return nil, translateError(err)
	}
	return okResult(), nil
}

func (s *Server) handleVaultBorrow(raw json.RawMessage) (interface{}, *rpcError) {
	params, caller, rpcErr := decodeVaultAmount(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.BorrowToken(params.ID, caller, params.Amount); err != nil {
		return nil, translateError(err)
	}
	return okResult(), nil
}

func (s *Server) handleVaultRepay(raw json.RawMessage) (interface{}, *rpcError) {
	params, caller, rpcErr := decodeVaultAmount(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.PayBackToken(params.ID, caller, params.Amount); err != nil {
		return nil, translateError(err)
	}
	return okResult(), nil
}

func decodeVaultAmount(raw json.RawMessage) (vaultAmountParams, crypto.Address, *rpcError) {
	var params vaultAmountParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return params, crypto.Address{}, rpcErr
	}
	caller, rpcErr := decodeAddressParam("caller", params.Caller)
	if rpcErr != nil {
		return params, crypto.Address{}, rpcErr
	}
	return params, caller, nil
}

type vaultCallerParams struct {
	ID     uint64 `json:"id"`
	Caller string `json:"caller"`
}

func (s *Server) handleVaultDestroy(raw json.RawMessage) (interface{}, *rpcError) {
	var params vaultCallerParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := decodeAddressParam("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.DestroyVault(params.ID, caller); err != nil {
		return nil, translateError(err)
	}
	return okResult(), nil
}

type transferVaultParams struct {
	ID       uint64 `json:"id"`
	Caller   string `json:"caller"`
	NewOwner string `json:"newOwner"`
}

func (s *Server) handleVaultTransfer(raw json.RawMessage) (interface{}, *rpcError) {
	var params transferVaultParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := decodeAddressParam("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	newOwner, rpcErr := decodeAddressParam("newOwner", params.NewOwner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.TransferVault(params.ID, caller, newOwner); err != nil {
		return nil, translateError(err)
	}
	return okResult(), nil
}

type buyRiskyParams struct {
	ID    uint64 `json:"id"`
	Buyer string `json:"buyer"`
}

type buyRiskyResult struct {
	Owner      string      `json:"owner"`
	AmountPaid types.Value `json:"amountPaid"`
}

func (s *Server) handleVaultBuyRisky(raw json.RawMessage) (interface{}, *rpcError) {
	var params buyRiskyParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	buyer, rpcErr := decodeAddressParam("buyer", params.Buyer)
	if rpcErr != nil {
		return nil, rpcErr
	}
	owner, amountPaid, err := s.node.BuyRiskyVault(params.ID, buyer)
	if err != nil {
		return nil, translateError(err)
	}
	return buyRiskyResult{Owner: owner.String(), AmountPaid: amountPaid}, nil
}

type vaultIDParams struct {
	ID uint64 `json:"id"`
}

type vaultResult struct {
	ID         uint64      `json:"id"`
	Owner      string      `json:"owner"`
	Collateral types.Value `json:"collateral"`
	Debt       types.Value `json:"debt"`
	// Ratio is omitted for debt-free vaults, whose ratio is unbounded.
	Ratio *types.Value `json:"ratio,omitempty"`
}

func (s *Server) handleVaultGet(raw json.RawMessage) (interface{}, *rpcError) {
	var params vaultIDParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	v, err := s.node.Vault(params.ID)
	if err != nil {
		return nil, translateError(err)
	}
	result := vaultResult{
		ID:         v.ID,
		Owner:      v.Owner.String(),
		Collateral: v.Collateral,
		Debt:       v.Debt,
	}
	if ratio, finite, err := s.node.VaultRatio(params.ID); err == nil && finite {
		result.Ratio = &ratio
	}
	return result, nil
}

type vaultCountResult struct {
	Count uint64 `json:"count"`
}

func (s *Server) handleVaultCount() (interface{}, *rpcError) {
	count, err := s.node.VaultCount()
	if err != nil {
		return nil, translateError(err)
	}
	return vaultCountResult{Count: count}, nil
}

type balanceOfParams struct {
	Address string `json:"address"`
}

type balanceOfResult struct {
	Address string      `json:"address"`
	Balance types.Value `json:"balance"`
}

func (s *Server) handleTokenBalanceOf(raw json.RawMessage) (interface{}, *rpcError) {
	var params balanceOfParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := decodeAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return balanceOfResult{Address: addr.String(), Balance: s.node.BalanceOf(addr)}, nil
}

type tokenTransferParams struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount types.Value `json:"amount"`
}

func (s *Server) handleTokenTransfer(raw json.RawMessage) (interface{}, *rpcError) {
	var params tokenTransferParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := decodeAddressParam("from", params.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := decodeAddressParam("to", params.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.TransferToken(from, to, params.Amount); err != nil {
		return nil, translateError(err)
	}
	return okResult(), nil
}

type tokenInfoResult struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Decimals    uint8       `json:"decimals"`
	TotalSupply types.Value `json:"totalSupply"`
}

func (s *Server) handleTokenInfo() (interface{}, *rpcError) {
	return tokenInfoResult{
		Name:        s.node.TokenName(),
		Symbol:      s.node.TokenSymbol(),
		Decimals:    types.ValueDecimals,
		TotalSupply: s.node.TotalSupply(),
	}, nil
}

type oraclePriceParams struct {
	Asset string `json:"asset"`
}

type oraclePriceResult struct {
	Asset string      `json:"asset"`
	Price types.Value `json:"price"`
}

func (s *Server) handleOraclePrice(raw json.RawMessage) (interface{}, *rpcError) {
	var params oraclePriceParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	price, err := s.node.CurrentPrice(strings.TrimSpace(params.Asset))
	if err != nil {
		return nil, translateError(err)
	}
	return oraclePriceResult{Asset: strings.TrimSpace(params.Asset), Price: price}, nil
}

type oracleSetPriceParams struct {
	Asset string      `json:"asset"`
	Price types.Value `json:"price"`
}

func (s *Server) handleOracleSetPrice(raw json.RawMessage) (interface{}, *rpcError) {
	var params oracleSetPriceParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.SetPrice(strings.TrimSpace(params.Asset), params.Price); err != nil {
		return nil, translateError(err)
	}
	return okResult(), nil
}

type minimumRatioResult struct {
	MinimumCollateralPercentage uint64 `json:"minimumCollateralPercentage"`
}

func (s *Server) handleMinimumCollateralPercentage() (interface{}, *rpcError) {
	return minimumRatioResult{MinimumCollateralPercentage: s.node.MinimumCollateralPercentage()}, nil
}

type statusResult struct {
	Status string `json:"status"`
}

func okResult() statusResult { return statusResult{Status: "ok"} }
