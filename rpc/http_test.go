package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stablevault/core"
	"stablevault/core/types"
	"stablevault/crypto"
	"stablevault/native/vault"
)

func rpcAddr(last byte) crypto.Address {
	b := make([]byte, 20)
	b[19] = last
	return crypto.MustNewAddress(crypto.AccountPrefix, b)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	node, err := core.NewNode(core.NodeConfig{
		Params:          vault.Params{MinimumCollateralPercentage: 150},
		TokenName:       "Stable",
		TokenSymbol:     "STB",
		CollateralPrice: types.MustValue("100000000000000000000"),
		SyntheticPrice:  types.MustValue("10000000000000000000"),
	})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return NewServer(node, nil, 6000, 100)
}

func call(t *testing.T, s *Server, token, method string, params interface{}) rpcResponse {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handle(rec, req)

	var resp rpcResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func resultInto(t *testing.T, resp rpcResponse, target interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-encode result: %v", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestServerVaultLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner := rpcAddr(0x01)

	var created createVaultResult
	resultInto(t, call(t, s, "", "vault_create", map[string]string{"caller": owner.String()}), &created)
	if created.ID != 1 {
		t.Fatalf("unexpected vault id: %d", created.ID)
	}

	resp := call(t, s, "", "vault_deposit", map[string]interface{}{
		"id": created.ID, "amount": "100000000000000000",
	})
	if resp.Error != nil {
		t.Fatalf("deposit failed: %+v", resp.Error)
	}

	resp = call(t, s, "", "vault_borrow", map[string]interface{}{
		"id": created.ID, "caller": owner.String(), "amount": "500000000000000000",
	})
	if resp.Error != nil {
		t.Fatalf("borrow failed: %+v", resp.Error)
	}

	var v vaultResult
	resultInto(t, call(t, s, "", "vault_get", map[string]interface{}{"id": created.ID}), &v)
	if v.Owner != owner.String() {
		t.Fatalf("unexpected owner: %s", v.Owner)
	}
	if v.Debt.Cmp(types.MustValue("500000000000000000")) != 0 {
		t.Fatalf("unexpected debt: %s", v.Debt)
	}
	if v.Ratio == nil || v.Ratio.Cmp(types.NewValue(200)) != 0 {
		t.Fatalf("unexpected ratio: %v", v.Ratio)
	}

	var count vaultCountResult
	resultInto(t, call(t, s, "", "vault_count", nil), &count)
	if count.Count != 1 {
		t.Fatalf("unexpected vault count: %d", count.Count)
	}

	var balance balanceOfResult
	resultInto(t, call(t, s, "", "token_balanceOf", map[string]string{"address": owner.String()}), &balance)
	if balance.Balance.Cmp(types.MustValue("500000000000000000")) != 0 {
		t.Fatalf("unexpected balance: %s", balance.Balance)
	}
}

func TestServerErrorMapping(t *testing.T) {
	s := newTestServer(t)
	owner := rpcAddr(0x01)

	resp := call(t, s, "", "vault_get", map[string]interface{}{"id": 404})
	if resp.Error == nil || resp.Error.Code != codeNotFound {
		t.Fatalf("expected not-found error, got %+v", resp.Error)
	}

	var created createVaultResult
	resultInto(t, call(t, s, "", "vault_create", map[string]string{"caller": owner.String()}), &created)

	resp = call(t, s, "", "vault_borrow", map[string]interface{}{
		"id": created.ID, "caller": owner.String(), "amount": "1",
	})
	if resp.Error == nil || resp.Error.Code != codeBelowMinimumRatio {
		t.Fatalf("expected ratio error, got %+v", resp.Error)
	}

	resp = call(t, s, "", "vault_withdraw", map[string]interface{}{
		"id": created.ID, "caller": rpcAddr(0x02).String(), "amount": "1",
	})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", resp.Error)
	}

	resp = call(t, s, "", "vault_create", map[string]string{"caller": "not-an-address"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params error, got %+v", resp.Error)
	}

	resp = call(t, s, "", "no_such_method", nil)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
}

func TestServerAuthGuardsMutations(t *testing.T) {
	t.Setenv("STABLEVAULT_RPC_TOKEN", "test-secret")
	s := newTestServer(t)
	owner := rpcAddr(0x01)

	resp := call(t, s, "", "vault_create", map[string]string{"caller": owner.String()})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", resp.Error)
	}
	resp = call(t, s, "wrong-secret", "vault_create", map[string]string{"caller": owner.String()})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized with bad token, got %+v", resp.Error)
	}

	// Reads stay open without credentials.
	resp = call(t, s, "", "vault_count", nil)
	if resp.Error != nil {
		t.Fatalf("read should not require auth: %+v", resp.Error)
	}

	resp = call(t, s, "test-secret", "vault_create", map[string]string{"caller": owner.String()})
	if resp.Error != nil {
		t.Fatalf("authorized create failed: %+v", resp.Error)
	}
}

func TestServerOracleMethods(t *testing.T) {
	s := newTestServer(t)

	var price oraclePriceResult
	resultInto(t, call(t, s, "", "oracle_price", map[string]string{"asset": "collateral"}), &price)
	if price.Price.Cmp(types.MustValue("100000000000000000000")) != 0 {
		t.Fatalf("unexpected price: %s", price.Price)
	}

	resp := call(t, s, "", "oracle_setPrice", map[string]interface{}{
		"asset": "collateral", "price": "50000000000000000000",
	})
	if resp.Error != nil {
		t.Fatalf("set price failed: %+v", resp.Error)
	}
	resultInto(t, call(t, s, "", "oracle_price", map[string]string{"asset": "collateral"}), &price)
	if price.Price.Cmp(types.MustValue("50000000000000000000")) != 0 {
		t.Fatalf("price not updated: %s", price.Price)
	}

	resp = call(t, s, "", "oracle_price", map[string]string{"asset": "nonsense"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params for unknown asset, got %+v", resp.Error)
	}

	var min minimumRatioResult
	resultInto(t, call(t, s, "", "ledger_minimumCollateralPercentage", nil), &min)
	if min.MinimumCollateralPercentage != 150 {
		t.Fatalf("unexpected minimum: %d", min.MinimumCollateralPercentage)
	}

	var info tokenInfoResult
	resultInto(t, call(t, s, "", "token_info", nil), &info)
	if info.Symbol != "STB" || info.Decimals != 18 {
		t.Fatalf("unexpected token info: %+v", info)
	}
}

func TestServerRejectsMalformedRequests(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.handle(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec = httptest.NewRecorder()
	s.handle(rec, req)
	var resp rpcResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
}

func TestServerRateLimitsClients(t *testing.T) {
	node := newTestServer(t).node
	s := NewServer(node, nil, 60, 2)

	var limited bool
	for i := 0; i < 5; i++ {
		resp := call(t, s, "", "vault_count", nil)
		if resp.Error != nil && resp.Error.Code == codeRateLimited {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expected the limiter to trip")
	}
}

func TestClientIDPrefersForwardingHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.0.2.10:4242"
	if got := clientID(req); got != "192.0.2.10" {
		t.Fatalf("unexpected client id: %s", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	if got := clientID(req); got != "198.51.100.7" {
		t.Fatalf("unexpected forwarded client id: %s", got)
	}

	req.Header.Set("X-Real-IP", "203.0.113.9")
	if got := clientID(req); got != "203.0.113.9" {
		t.Fatalf("unexpected real-ip client id: %s", got)
	}
}
