package dmarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.DMarket.RestURL = srv.URL
	cfg.Scan.BatchPauseMs = 1
	return NewClient(cfg, zap.NewNop())
}

func TestFetchItems_NormalizesEncodings(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a8db", r.URL.Query().Get("gameId"))
		w.Write([]byte(`{"objects": [
			{"itemId": "1", "title": "A", "gameId": "a8db", "price": {"amount": "1500"}, "suggestedPrice": {"USD": 1800}},
			{"itemId": "2", "title": "B", "gameId": "a8db", "price": 900},
			{"itemId": "3", "title": "C", "gameId": "a8db", "price": {"weird": true}}
		]}`))
	})

	items, err := c.FetchItems(context.Background(), "a8db", 0, 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, int64(1500), items[0].PriceCents)
	assert.Equal(t, int64(1800), items[0].SuggestedPriceCents)
	assert.Equal(t, int64(900), items[1].PriceCents)
	assert.Equal(t, int64(0), items[2].PriceCents, "unparsable price reads as 0")
}

func TestFetchItems_HTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.FetchItems(context.Background(), "a8db", 0, 0, 10)
	assert.Error(t, err)
}

func TestFetchAggregatedPrices_Batches(t *testing.T) {
	var calls int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		n := len(r.URL.Query()["titles"])
		assert.LessOrEqual(t, n, 100)
		w.Write([]byte(`{"aggregatedPrices": [
			{"marketHashName": "X", "offers": {"bestPrice": "100", "count": 7}, "orders": {"bestPrice": "80", "count": 4}}
		]}`))
	})

	titles := make([]string, 150)
	for i := range titles {
		titles[i] = "t"
	}
	rows, err := c.FetchAggregatedPrices(context.Background(), "a8db", titles)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "150 titles need two calls of at most 100")
	require.Len(t, rows, 2)
	assert.Equal(t, 7, rows[0].OfferCount)
	assert.Equal(t, int64(100), rows[0].OfferBestPriceCents)
}

func TestGetBalance(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"usd": {"available": "12345", "frozen": "100"}}`))
	})
	c.cfg.DMarket.PublicKey = "pk"
	c.cfg.DMarket.SecretKey = "sk"

	bal, err := c.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12345), bal.AvailableCents)
	assert.Equal(t, int64(100), bal.FrozenCents)
	assert.InDelta(t, 123.45, bal.AvailableUSD(), 1e-9)
}

func TestGetBalance_MissingKeys(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err := c.GetBalance(context.Background())
	assert.ErrorIs(t, err, errMissingKeys)
}

func TestCompetingOrders(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"orders": [
			{"amount": 1, "price": "500"},
			{"amount": 2, "price": "700"}
		]}`))
	})

	comp, err := c.CompetingOrders(context.Background(), "a8db", "AK-47 | Redline")
	require.NoError(t, err)
	assert.Equal(t, 2, comp.TotalOrders)
	assert.Equal(t, 3, comp.TotalAmount)
	assert.InDelta(t, 7.0, comp.BestPrice, 1e-9)
	assert.InDelta(t, 6.0, comp.AveragePrice, 1e-9)
}

func TestDiagnose(t *testing.T) {
	cases := []struct {
		name string
		bal  types.Balance
		err  error
		want types.Diagnosis
	}{
		{"sufficient", types.Balance{AvailableCents: 5000}, nil, types.DiagSufficientFunds},
		{"zero", types.Balance{}, nil, types.DiagZeroBalance},
		{"frozen", types.Balance{AvailableCents: 50, FrozenCents: 2000}, nil, types.DiagFundsFrozen},
		{"insufficient", types.Balance{AvailableCents: 50}, nil, types.DiagInsufficientFunds},
		{"missing keys", types.Balance{}, errMissingKeys, types.DiagMissingKeys},
		{"auth", types.Balance{}, errors.New("get balance: status 401: unauthorized"), types.DiagAuthError},
		{"timeout", types.Balance{}, errors.New("context deadline exceeded"), types.DiagTimeout},
		{"endpoint", types.Balance{}, errors.New("get balance: status 502: bad gateway"), types.DiagEndpointError},
		{"other status", types.Balance{}, errors.New("get balance: status 418: teapot"), types.DiagUnknownError},
		{"exception", types.Balance{}, errors.New("connection refused"), types.DiagException},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep := Diagnose(tc.bal, tc.err)
			assert.Equal(t, tc.want, rep.Diagnosis)
			assert.NotEmpty(t, rep.DisplayMessage)
		})
	}
}
