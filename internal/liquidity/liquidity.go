// Package liquidity scores how quickly an item can be resold. Two paths
// produce compatible verdicts: a full pass over sales history and a cheap
// short-circuit over bulk offer/order counts.
package liquidity

import (
	"context"
	"math"
	"time"

	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

// Sale is one historical sale of a title.
type Sale struct {
	PriceCents int64
	SoldAt     time.Time
}

// HistoryProvider supplies recent sales for a title. Implemented by the
// marketplace client; faked in tests.
type HistoryProvider interface {
	SalesHistory(ctx context.Context, game, title string, days int) ([]Sale, error)
}

// Analyzer classifies items against configured liquidity thresholds.
type Analyzer struct {
	cfg     *config.Config
	history HistoryProvider
	log     *zap.Logger
}

func NewAnalyzer(cfg *config.Config, history HistoryProvider, log *zap.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, history: history, log: log}
}

// Analyze runs the full historical path: sales volume, time between sales
// and price stability folded into a 0-100 score. Returns an error when the
// history fetch fails; callers proceed without liquidity data in that case.
func (a *Analyzer) Analyze(ctx context.Context, game, title string, daysHistory int) (types.Liquidity, error) {
	if daysHistory <= 0 {
		daysHistory = 30
	}
	sales, err := a.history.SalesHistory(ctx, game, title, daysHistory)
	if err != nil {
		return types.Liquidity{}, err
	}

	salesPerWeek := float64(len(sales)) / float64(daysHistory) * 7.0
	avgGapDays := avgTimeBetweenSales(sales, daysHistory)
	stability := priceStability(sales)

	// Volume, speed and stability weighted 40/30/30.
	volumeScore := math.Min(1, salesPerWeek/20.0)
	speedScore := 0.0
	if avgGapDays > 0 {
		speedScore = math.Min(1, a.cfg.Liquidity.MaxTimeToSellDays/avgGapDays)
	}
	score := math.Min(100, volumeScore*40+speedScore*30+stability*30)

	m := types.Liquidity{
		Score:             score,
		SalesPerWeek:      salesPerWeek,
		AvgTimeToSellDays: avgGapDays,
		PriceStability:    stability,
	}
	m.IsLiquid = score >= a.cfg.Liquidity.MinScore &&
		salesPerWeek >= a.cfg.Liquidity.MinSalesPerWeek &&
		avgGapDays <= a.cfg.Liquidity.MaxTimeToSellDays
	return m, nil
}

// FromBulk short-circuits to the cheap score when an aggregated signal is
// already attached to the item. The verdict is boolean-compatible with the
// full path so callers can treat both interchangeably.
func (a *Analyzer) FromBulk(sig types.BulkSignal) types.Liquidity {
	score := math.Min(100, float64(sig.OfferCount+sig.OrderCount)*2)
	return types.Liquidity{
		Score: score,
		IsLiquid: sig.OfferCount >= a.cfg.Liquidity.MinBulkOffers &&
			sig.OrderCount >= a.cfg.Liquidity.MinBulkOrders,
	}
}

// Describe maps a score onto a human tier name.
func Describe(score float64) string {
	switch {
	case score >= 80:
		return "very liquid"
	case score >= 60:
		return "liquid"
	case score >= 40:
		return "moderate"
	case score >= 20:
		return "slow"
	default:
		return "illiquid"
	}
}

func avgTimeBetweenSales(sales []Sale, daysHistory int) float64 {
	if len(sales) == 0 {
		return float64(daysHistory)
	}
	if len(sales) == 1 {
		return float64(daysHistory)
	}
	// Average gap between consecutive sales, assuming the feed is ordered.
	first, last := sales[0].SoldAt, sales[len(sales)-1].SoldAt
	span := last.Sub(first)
	if span < 0 {
		span = -span
	}
	return span.Hours() / 24.0 / float64(len(sales)-1)
}

func priceStability(sales []Sale) float64 {
	if len(sales) < 2 {
		return 0
	}
	var sum float64
	for _, s := range sales {
		sum += float64(s.PriceCents)
	}
	mean := sum / float64(len(sales))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, s := range sales {
		d := float64(s.PriceCents) - mean
		variance += d * d
	}
	variance /= float64(len(sales))
	cv := math.Sqrt(variance) / mean
	return math.Max(0, 1-cv)
}
