package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"stablevault/core/types"
)

// ErrNoPrice indicates that a source has no usable price to report.
var ErrNoPrice = errors.New("oracle: no price available")

// PriceSource exposes the latest price for a single asset. The ledger reads
// the price once at the decision point of each invariant check; it never
// caches across operations.
type PriceSource interface {
	CurrentPrice() (types.Value, error)
}

// ManualSource is a mutex-guarded settable price source. It backs both assets
// in a standalone deployment and doubles as the override mechanism during
// incident response.
type ManualSource struct {
	mu    sync.RWMutex
	price types.Value
	set   bool
}

// NewManualSource constructs a source seeded with the given price.
func NewManualSource(initial types.Value) *ManualSource {
	return &ManualSource{price: initial, set: true}
}

// CurrentPrice returns the latest stored price.
func (m *ManualSource) CurrentPrice() (types.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return types.Value{}, ErrNoPrice
	}
	return m.price, nil
}

// Set replaces the stored price and returns the previous one so the caller
// can emit a change notification.
func (m *ManualSource) Set(price types.Value) types.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.price
	m.price = price
	m.set = true
	return old
}

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FeedSource fetches a price from an external JSON quote endpoint. The
// endpoint is expected to answer with {"price": "<base-10 amount>"}.
type FeedSource struct {
	client   HTTPDoer
	endpoint string
	apiKey   string
}

// NewFeedSource constructs a feed adapter. When the client is nil
// http.DefaultClient is used. The API key is optional and only added to the
// request headers when supplied.
func NewFeedSource(client HTTPDoer, endpoint, apiKey string) *FeedSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &FeedSource{client: client, endpoint: strings.TrimSpace(endpoint), apiKey: strings.TrimSpace(apiKey)}
}

// Fetch retrieves the current quote from the upstream endpoint. Callers feed
// the result into a ManualSource so the ledger itself never blocks on I/O.
func (f *FeedSource) Fetch(ctx context.Context) (types.Value, error) {
	if f == nil || f.endpoint == "" {
		return types.Value{}, fmt.Errorf("oracle feed: endpoint not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return types.Value{}, err
	}
	if f.apiKey != "" {
		req.Header.Set("x-api-key", f.apiKey)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return types.Value{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.Value{}, fmt.Errorf("oracle feed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return types.Value{}, fmt.Errorf("oracle feed: decode: %w", err)
	}
	trimmed := strings.TrimSpace(payload.Price)
	if trimmed == "" {
		return types.Value{}, ErrNoPrice
	}
	price, err := types.ValueFromString(trimmed)
	if err != nil {
		return types.Value{}, fmt.Errorf("oracle feed: invalid price %q: %w", payload.Price, err)
	}
	if price.IsZero() {
		return types.Value{}, fmt.Errorf("oracle feed: price must be positive")
	}
	return price, nil
}
