// Package autotrade sequences buy-then-list trades over a ranked
// opportunity list under balance and risk limits.
package autotrade

import (
	"context"
	"sort"
	"time"

	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/dmarket"
	"github.com/you/dmarket-scanner/internal/risk"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

// Trader is the sequencer's view of the exchange.
type Trader interface {
	GetBalance(ctx context.Context) (types.Balance, error)
	CurrentPriceCents(ctx context.Context, game, itemID, title string) (int64, error)
	Buy(ctx context.Context, itemID string, maxPriceCents int64) (dmarket.TradeResult, error)
	ListForSale(ctx context.Context, itemID string, priceCents int64) error
}

// StatsSink receives executed trades; the scan orchestrator implements it
// so cumulative counters live in one place.
type StatsSink interface {
	RecordTrade(profit float64)
}

// Options are the caller's requested limits for one run. Zero values defer
// to the config and risk tier.
type Options struct {
	MinProfitUSD float64
	MaxPriceUSD  float64
	MaxTrades    int
	RiskLevel    string
}

// Report is the outcome of one auto-trade run.
type Report struct {
	Purchases   int
	Sales       int
	TotalProfit float64
	Attempted   int
	Diagnosis   types.Diagnosis
}

// Sequencer owns no cross-run state; remaining balance and trade counters
// live on the stack of one Run call. Concurrent runs against the same
// account are the caller's problem to serialize.
type Sequencer struct {
	cfg    *config.Config
	trader Trader
	risk   *risk.Engine
	stats  StatsSink
	log    *zap.Logger

	pause time.Duration
}

func NewSequencer(cfg *config.Config, trader Trader, eng *risk.Engine, stats StatsSink, log *zap.Logger) *Sequencer {
	return &Sequencer{
		cfg:    cfg,
		trader: trader,
		risk:   eng,
		stats:  stats,
		log:    log,
		pause:  cfg.TradePause(),
	}
}

// Run executes the buy-then-list state machine over the given per-game
// opportunity lists. It terminates on the first of: trade cap reached,
// balance exhausted, or candidates exhausted. An empty-handed return (all
// zeros) on insufficient funds is a valid terminal state, not an error.
func (s *Sequencer) Run(ctx context.Context, itemsByGame map[string][]types.Opportunity, opts Options) (Report, error) {
	riskLevel := opts.RiskLevel
	if riskLevel == "" {
		riskLevel = s.cfg.Trade.RiskLevel
	}

	bal, err := s.trader.GetBalance(ctx)
	rep := dmarket.Diagnose(bal, err)
	if err != nil || bal.AvailableCents < 100 {
		s.log.Info("auto-trade: no usable balance",
			zap.String("diagnosis", string(rep.Diagnosis)))
		return Report{Diagnosis: rep.Diagnosis}, nil
	}

	limits, err := s.risk.Derive(riskLevel, bal.AvailableUSD(), opts.MinProfitUSD, opts.MaxPriceUSD, opts.MaxTrades)
	if err != nil {
		return Report{}, err
	}

	candidates := flatten(itemsByGame)
	s.log.Info("auto-trade run starting",
		zap.String("risk", riskLevel),
		zap.Float64("balance_usd", bal.AvailableUSD()),
		zap.Int("candidates", len(candidates)),
		zap.Int("max_trades", limits.MaxTrades))

	report := Report{Diagnosis: rep.Diagnosis}
	remaining := bal.AvailableUSD()
	spent := 0.0

	for _, cand := range candidates {
		if report.Attempted >= limits.MaxTrades {
			break
		}
		if remaining < 1 {
			break
		}

		// Per-candidate gates skip the candidate, never the run.
		if cand.BuyPrice > limits.MaxItemPriceUSD {
			continue
		}
		if cand.Profit < limits.MinProfitUSD {
			continue
		}
		if cand.BuyPrice > remaining || spent+cand.BuyPrice > limits.SpendCeilingUSD {
			continue
		}

		outcome := s.executeOne(ctx, cand)
		report.Attempted++

		if outcome.bought {
			report.Purchases++
			remaining -= outcome.paidUSD
			spent += outcome.paidUSD
			if outcome.listed {
				report.Sales++
				report.TotalProfit += cand.Profit
				if s.stats != nil {
					s.stats.RecordTrade(cand.Profit)
				}
			}
		}

		select {
		case <-ctx.Done():
			return report, nil
		case <-time.After(s.pause):
		}
	}

	s.log.Info("auto-trade run finished",
		zap.Int("purchases", report.Purchases),
		zap.Int("sales", report.Sales),
		zap.Float64("total_profit", report.TotalProfit))
	return report, nil
}

type outcome struct {
	bought  bool
	listed  bool
	paidUSD float64
}

// executeOne revalidates, buys and immediately relists one candidate. A
// successful buy with a failed listing holds the position; it is logged
// and resold later out-of-band.
func (s *Sequencer) executeOne(ctx context.Context, cand types.Opportunity) outcome {
	rankedCents := types.USDToCents(cand.BuyPrice)

	// Staleness guard: the ask may have moved since ranking.
	liveCents, err := s.trader.CurrentPriceCents(ctx, cand.Game, cand.Item.ID, cand.Item.Title)
	if err != nil {
		s.log.Warn("revalidation failed, skipping candidate",
			zap.String("title", cand.Item.Title), zap.Error(err))
		return outcome{}
	}
	maxRise := float64(rankedCents) * (1 + s.cfg.Trade.StalenessPct/100)
	if float64(liveCents) > maxRise {
		s.log.Info("price rose past staleness guard, skipping",
			zap.String("title", cand.Item.Title),
			zap.Int64("ranked_cents", rankedCents),
			zap.Int64("live_cents", liveCents))
		return outcome{}
	}

	maxPayCents := int64(float64(rankedCents) * (1 + s.cfg.Trade.BuyTolerancePct/100))
	res, err := s.trader.Buy(ctx, cand.Item.ID, maxPayCents)
	if err != nil || !res.Success {
		s.log.Warn("buy failed",
			zap.String("title", cand.Item.Title),
			zap.String("reason", res.Err),
			zap.Error(err))
		return outcome{}
	}

	paid := types.CentsToUSD(liveCents)
	out := outcome{bought: true, paidUSD: paid}

	ownedID := res.NewItemID
	if ownedID == "" {
		ownedID = cand.Item.ID
	}
	sellCents := types.USDToCents(cand.BuyPrice + cand.Profit)
	if err := s.trader.ListForSale(ctx, ownedID, sellCents); err != nil {
		// Position held; no rollback.
		s.log.Warn("listing failed, holding position",
			zap.String("title", cand.Item.Title), zap.Error(err))
		return out
	}
	out.listed = true
	s.log.Info("trade completed",
		zap.String("title", cand.Item.Title),
		zap.Float64("buy_usd", paid),
		zap.Float64("list_usd", types.CentsToUSD(sellCents)))
	return out
}

// flatten merges all games' candidates into one list sorted by absolute
// profit descending. The sort is stable so scan order breaks ties.
func flatten(itemsByGame map[string][]types.Opportunity) []types.Opportunity {
	games := make([]string, 0, len(itemsByGame))
	for g := range itemsByGame {
		games = append(games, g)
	}
	sort.Strings(games) // deterministic flatten order before the stable sort

	var all []types.Opportunity
	for _, g := range games {
		all = append(all, itemsByGame[g]...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Profit > all[j].Profit
	})
	return all
}
