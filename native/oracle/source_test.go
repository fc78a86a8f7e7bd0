package oracle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"stablevault/core/types"
)

func TestManualSourceSetReturnsPrevious(t *testing.T) {
	source := NewManualSource(types.NewValue(100))

	price, err := source.CurrentPrice()
	if err != nil {
		t.Fatalf("current price: %v", err)
	}
	if price.Cmp(types.NewValue(100)) != 0 {
		t.Fatalf("unexpected price: %s", price)
	}

	old := source.Set(types.NewValue(50))
	if old.Cmp(types.NewValue(100)) != 0 {
		t.Fatalf("unexpected previous price: %s", old)
	}
	price, err = source.CurrentPrice()
	if err != nil {
		t.Fatalf("current price: %v", err)
	}
	if price.Cmp(types.NewValue(50)) != 0 {
		t.Fatalf("unexpected updated price: %s", price)
	}
}

func TestManualSourceUnset(t *testing.T) {
	var source ManualSource
	if _, err := source.CurrentPrice(); !errors.Is(err, ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}
}

type stubDoer struct {
	status int
	body   string
	err    error
	gotKey string
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.gotKey = req.Header.Get("x-api-key")
	return &http.Response{
		StatusCode: s.status,
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}

func TestFeedSourceFetch(t *testing.T) {
	doer := &stubDoer{status: http.StatusOK, body: `{"price":"42000000000000000000"}`}
	feed := NewFeedSource(doer, "https://quotes.example/collateral", "secret")

	price, err := feed.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if price.Cmp(types.MustValue("42000000000000000000")) != 0 {
		t.Fatalf("unexpected price: %s", price)
	}
	if doer.gotKey != "secret" {
		t.Fatalf("api key not forwarded: %q", doer.gotKey)
	}
}

func TestFeedSourceFetchFailures(t *testing.T) {
	cases := []struct {
		name string
		doer *stubDoer
	}{
		{"upstream error", &stubDoer{err: errors.New("connection refused")}},
		{"bad status", &stubDoer{status: http.StatusBadGateway, body: "oops"}},
		{"bad payload", &stubDoer{status: http.StatusOK, body: `{"price":"not-a-number"}`}},
		{"empty price", &stubDoer{status: http.StatusOK, body: `{"price":""}`}},
		{"zero price", &stubDoer{status: http.StatusOK, body: `{"price":"0"}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			feed := NewFeedSource(tc.doer, "https://quotes.example/collateral", "")
			if _, err := feed.Fetch(context.Background()); err == nil {
				t.Fatal("expected fetch failure")
			}
		})
	}
}

func TestFeedSourceRequiresEndpoint(t *testing.T) {
	feed := NewFeedSource(nil, "", "")
	if _, err := feed.Fetch(context.Background()); err == nil {
		t.Fatal("expected failure without endpoint")
	}
}
