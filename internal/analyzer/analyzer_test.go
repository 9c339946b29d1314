package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/dmarket-scanner/internal/competition"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/levels"
	"github.com/you/dmarket-scanner/internal/liquidity"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

type fakeHistory struct {
	sales []liquidity.Sale
	err   error
}

func (f *fakeHistory) SalesHistory(_ context.Context, _, _ string, _ int) ([]liquidity.Sale, error) {
	return f.sales, f.err
}

type fakeBook struct {
	comp types.Competition
	err  error
}

func (f *fakeBook) CompetingOrders(_ context.Context, _, _ string) (types.Competition, error) {
	return f.comp, f.err
}

func newAnalyzer(cfg *config.Config, hist *fakeHistory, book *fakeBook) *Analyzer {
	log := zap.NewNop()
	return New(cfg,
		liquidity.NewAnalyzer(cfg, hist, log),
		competition.NewChecker(cfg, book, log),
		log)
}

func standard(t *testing.T) levels.Config {
	t.Helper()
	cfg, err := levels.Get(levels.Standard)
	require.NoError(t, err)
	return cfg
}

func item(cents, suggestedCents int64) types.MarketItem {
	return types.MarketItem{
		ID:                  "i1",
		Title:               "AK-47 | Redline",
		GameID:              types.GameCSGO,
		PriceCents:          cents,
		SuggestedPriceCents: suggestedCents,
	}
}

func TestAnalyze_ProfitArithmetic(t *testing.T) {
	a := newAnalyzer(config.Default(), &fakeHistory{}, &fakeBook{})

	opp, skip := a.Analyze(context.Background(), item(1000, 1200), standard(t), types.GameCSGO)
	require.Equal(t, SkipNone, skip)
	assert.Equal(t, 10.0, opp.BuyPrice)
	assert.Equal(t, 12.0, opp.SuggestedPrice)
	assert.InDelta(t, 2.0, opp.Profit, 1e-9)
	assert.InDelta(t, 20.0, opp.ProfitPercent, 1e-9)
	assert.Equal(t, "standard", opp.Level)
}

func TestAnalyze_ZeroPrice(t *testing.T) {
	a := newAnalyzer(config.Default(), &fakeHistory{}, &fakeBook{})
	_, skip := a.Analyze(context.Background(), item(0, 1200), standard(t), types.GameCSGO)
	assert.Equal(t, SkipBadPrice, skip)
}

func TestAnalyze_OutOfRange(t *testing.T) {
	a := newAnalyzer(config.Default(), &fakeHistory{}, &fakeBook{})
	// $100 against standard's 3-10 window.
	_, skip := a.Analyze(context.Background(), item(10000, 20000), standard(t), types.GameCSGO)
	assert.Equal(t, SkipOutOfRange, skip)
}

func TestAnalyze_LowProfit(t *testing.T) {
	a := newAnalyzer(config.Default(), &fakeHistory{}, &fakeBook{})
	// 2% profit against standard's 5% floor.
	_, skip := a.Analyze(context.Background(), item(1000, 1020), standard(t), types.GameCSGO)
	assert.Equal(t, SkipLowProfit, skip)
}

func TestAnalyze_SuggestedFallback(t *testing.T) {
	cfg := config.Default()
	a := newAnalyzer(cfg, &fakeHistory{}, &fakeBook{})

	opp, skip := a.Analyze(context.Background(), item(500, 0), standard(t), types.GameCSGO)
	require.Equal(t, SkipNone, skip)
	assert.InDelta(t, 6.0, opp.SuggestedPrice, 1e-9, "markup fallback of 1.20 over the $5 ask")
	assert.InDelta(t, 20.0, opp.ProfitPercent, 1e-9)
}

func TestAnalyze_BulkLiquidityPreferred(t *testing.T) {
	cfg := config.Default()
	cfg.Analyzer.FilterLiquidity = true
	// History errors out, but the attached bulk signal must be used anyway.
	a := newAnalyzer(cfg, &fakeHistory{err: errors.New("down")}, &fakeBook{})

	it := item(1000, 1200)
	it.Bulk = &types.BulkSignal{OfferCount: 10, OrderCount: 5}
	opp, skip := a.Analyze(context.Background(), it, standard(t), types.GameCSGO)
	require.Equal(t, SkipNone, skip)
	require.NotNil(t, opp.Liquidity)
	assert.True(t, opp.Liquidity.IsLiquid)

	it.Bulk = &types.BulkSignal{OfferCount: 1, OrderCount: 1}
	_, skip = a.Analyze(context.Background(), it, standard(t), types.GameCSGO)
	assert.Equal(t, SkipIlliquid, skip)
}

func TestAnalyze_LiquidityFailureWaivesGate(t *testing.T) {
	cfg := config.Default()
	cfg.Analyzer.FilterLiquidity = true
	a := newAnalyzer(cfg, &fakeHistory{err: errors.New("down")}, &fakeBook{})

	opp, skip := a.Analyze(context.Background(), item(1000, 1200), standard(t), types.GameCSGO)
	assert.Equal(t, SkipNone, skip)
	assert.Nil(t, opp.Liquidity)
}

func TestAnalyze_CompetitionGate(t *testing.T) {
	cfg := config.Default()
	cfg.Analyzer.FilterCompetition = true

	a := newAnalyzer(cfg, &fakeHistory{}, &fakeBook{comp: types.Competition{TotalOrders: 7}})
	_, skip := a.Analyze(context.Background(), item(1000, 1200), standard(t), types.GameCSGO)
	assert.Equal(t, SkipCrowded, skip)

	a = newAnalyzer(cfg, &fakeHistory{}, &fakeBook{comp: types.Competition{TotalOrders: 2}})
	opp, skip := a.Analyze(context.Background(), item(1000, 1200), standard(t), types.GameCSGO)
	require.Equal(t, SkipNone, skip)
	require.NotNil(t, opp.Competition)
	assert.Equal(t, 2, opp.Competition.TotalOrders)
}

func TestAnalyze_CompetitionFailureWaivesGate(t *testing.T) {
	cfg := config.Default()
	cfg.Analyzer.FilterCompetition = true
	a := newAnalyzer(cfg, &fakeHistory{}, &fakeBook{err: errors.New("timeout")})

	opp, skip := a.Analyze(context.Background(), item(1000, 1200), standard(t), types.GameCSGO)
	assert.Equal(t, SkipNone, skip)
	assert.Nil(t, opp.Competition)
}
