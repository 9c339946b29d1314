// Package analyzer turns one marketplace item into either a priced
// arbitrage opportunity or an explicit skip reason.
package analyzer

import (
	"context"
	"time"

	"github.com/you/dmarket-scanner/internal/competition"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/levels"
	"github.com/you/dmarket-scanner/internal/liquidity"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

// SkipReason says why an item did not become an opportunity. Soft failures
// are values, not errors: a skipped item never aborts its batch.
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipBadPrice   SkipReason = "bad_price"
	SkipOutOfRange SkipReason = "out_of_range"
	SkipLowProfit  SkipReason = "low_profit"
	SkipIlliquid   SkipReason = "illiquid"
	SkipCrowded    SkipReason = "crowded"
)

// Analyzer runs the per-item decision pipeline.
type Analyzer struct {
	cfg  *config.Config
	liq  *liquidity.Analyzer
	comp *competition.Checker
	log  *zap.Logger
}

func New(cfg *config.Config, liq *liquidity.Analyzer, comp *competition.Checker, log *zap.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, liq: liq, comp: comp, log: log}
}

// Analyze evaluates item against one level config. Gates short-circuit in
// order: price parse, price range, profit floor, liquidity, competition.
// Sub-check failures (history or order-book fetch errors) degrade to an
// ungated pass rather than rejecting the item.
func (a *Analyzer) Analyze(ctx context.Context, item types.MarketItem, level levels.Config, game string) (types.Opportunity, SkipReason) {
	buy := item.PriceUSD()
	if buy <= 0 {
		return types.Opportunity{}, SkipBadPrice
	}

	suggested := item.SuggestedUSD()
	if suggested <= 0 {
		// The marketplace omits its estimate for thin items; fall back to
		// a configurable markup over the ask.
		suggested = buy * a.cfg.Analyzer.SuggestedMarkup
	}

	if !level.PriceRange.Contains(buy) {
		return types.Opportunity{}, SkipOutOfRange
	}

	profit := suggested - buy
	profitPercent := 0.0
	if buy > 0 {
		profitPercent = profit / buy * 100
	}
	if profitPercent < level.MinProfitPercent {
		return types.Opportunity{}, SkipLowProfit
	}

	opp := types.Opportunity{
		Item:           item,
		Game:           game,
		Level:          level.Name,
		BuyPrice:       buy,
		SuggestedPrice: suggested,
		Profit:         profit,
		ProfitPercent:  profitPercent,
		Ts:             time.Now(),
	}

	if a.cfg.Analyzer.FilterLiquidity {
		liq, ok := a.itemLiquidity(ctx, item, game)
		if ok {
			if !liq.IsLiquid {
				return types.Opportunity{}, SkipIlliquid
			}
			opp.Liquidity = &liq
		}
	}

	if a.cfg.Analyzer.FilterCompetition {
		comp, err := a.comp.Check(ctx, game, item.Title)
		if err != nil {
			a.log.Debug("competition check failed, proceeding ungated",
				zap.String("title", item.Title), zap.Error(err))
		} else {
			if a.comp.Crowded(comp) {
				return types.Opportunity{}, SkipCrowded
			}
			opp.Competition = &comp
		}
	}

	return opp, SkipNone
}

// itemLiquidity prefers the bulk signal attached by the orchestrator and
// falls back to the full historical path. ok=false means no data could be
// obtained and the gate must be waived.
func (a *Analyzer) itemLiquidity(ctx context.Context, item types.MarketItem, game string) (types.Liquidity, bool) {
	if item.Bulk != nil {
		return a.liq.FromBulk(*item.Bulk), true
	}
	m, err := a.liq.Analyze(ctx, game, item.Title, 30)
	if err != nil {
		a.log.Debug("liquidity analysis failed, proceeding ungated",
			zap.String("title", item.Title), zap.Error(err))
		return types.Liquidity{}, false
	}
	return m, true
}
