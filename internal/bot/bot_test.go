package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

func testConfig(restURL string) *config.Config {
	cfg := config.Default()
	cfg.DMarket.RestURL = restURL
	cfg.DryRun = true
	cfg.Scan.RatePerSecond = 1000
	cfg.Scan.RateBurst = 1000
	return cfg
}

func TestNewBot(t *testing.T) {
	cfg := config.Default()
	logger := zap.NewNop()
	b := New(cfg, logger)

	assert.NotNil(t, b)
	assert.Equal(t, cfg, b.cfg)
	assert.NotNil(t, b.client)
	assert.NotNil(t, b.orch)
	assert.NotNil(t, b.seq)
	assert.NotNil(t, b.board)
}

func TestRunCycleDryRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/exchange/v1/market/items", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"objects":[
			{"itemId":"i1","title":"AK-47 | Redline","gameId":"a8db",
			 "price":{"amount":"500"},"suggestedPrice":{"amount":"700"}}
		]}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	b := New(cfg, zap.NewNop())

	b.runCycle(context.Background(), []string{types.GameCSGO}, nil)

	rows := b.board.List()
	require.Len(t, rows, 5) // one row per level

	byLevel := make(map[string]int, len(rows))
	for _, r := range rows {
		byLevel[r.Level] = r.Found
	}
	// The $5 item only fits the standard level's price window.
	assert.Equal(t, 1, byLevel["standard"])
	assert.Equal(t, 0, byLevel["boost"])
	assert.Equal(t, 0, byLevel["pro"])
}

func TestRunCycleMarketDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	b := New(cfg, zap.NewNop())

	// Transient marketplace failure must not panic or abort the cycle.
	b.runCycle(context.Background(), []string{types.GameCSGO}, nil)

	for _, r := range b.board.List() {
		assert.Equal(t, 0, r.Found)
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger()
	assert.NoError(t, err)
	assert.NotNil(t, logger)

	assert.NotPanics(t, func() {
		logger.Info("test message")
	})
}
