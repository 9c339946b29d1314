// Package scanner drives level and game scans over the marketplace:
// cache check, rate-gated fetch, filtering, per-item analysis, ranking.
package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/you/dmarket-scanner/internal/analyzer"
	"github.com/you/dmarket-scanner/internal/cache"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/filters"
	"github.com/you/dmarket-scanner/internal/levels"
	imetrics "github.com/you/dmarket-scanner/internal/metrics"
	"github.com/you/dmarket-scanner/internal/ratelimit"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Marketplace is the orchestrator's view of the exchange.
type Marketplace interface {
	FetchItems(ctx context.Context, game string, priceFromCents, priceToCents int64, limit int) ([]types.MarketItem, error)
	FetchAggregatedPrices(ctx context.Context, game string, titles []string) ([]types.AggregatedPrice, error)
}

// Stats are the orchestrator-owned running counters. The auto-trade
// sequencer merges its per-run results here.
type Stats struct {
	ScansRun         int64
	SuccessfulTrades int64
	TotalProfit      float64
}

// Orchestrator owns its cache, rate gate and counters; construct one per
// scanning process and pass it by handle. Instances do not share state.
type Orchestrator struct {
	cfg      *config.Config
	market   Marketplace
	filters  *filters.Set
	analyzer *analyzer.Analyzer
	cache    *cache.TTLCache
	gate     ratelimit.Gate
	log      *zap.Logger

	// collapses concurrent identical scans into one fetch
	flight singleflight.Group

	mu    sync.Mutex
	stats Stats
}

func New(cfg *config.Config, market Marketplace, fs *filters.Set, an *analyzer.Analyzer, gate ratelimit.Gate, log *zap.Logger) *Orchestrator {
	if gate == nil {
		gate = ratelimit.New(cfg.Scan.RatePerSecond, cfg.Scan.RateBurst)
	}
	return &Orchestrator{
		cfg:      cfg,
		market:   market,
		filters:  fs,
		analyzer: an,
		cache:    cache.New(cfg.CacheTTL(), cfg.Cache.MaxSize),
		gate:     gate,
		log:      log,
	}
}

// ScanLevel scans one (game, level) pair and returns up to maxResults
// opportunities. Unknown levels fail; transient marketplace failures
// degrade to an empty result and are logged, never propagated.
func (o *Orchestrator) ScanLevel(ctx context.Context, level, game string, maxResults int, useCache bool) ([]types.Opportunity, error) {
	lvl, err := levels.Get(level)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	key := cache.LevelKey(game, level)
	if useCache {
		if v, ok := o.cache.Get(key); ok {
			imetrics.CacheHits.Inc()
			return truncate(v.([]types.Opportunity), maxResults), nil
		}
		imetrics.CacheMisses.Inc()
	}

	v, err, _ := o.flight.Do(key, func() (any, error) {
		return o.scanLevelOnce(ctx, lvl, game, maxResults)
	})
	if err != nil {
		imetrics.ScanErrors.Inc()
		o.log.Warn("level scan failed, returning empty result",
			zap.String("game", game), zap.String("level", level), zap.Error(err))
		return []types.Opportunity{}, nil
	}

	opps := v.([]types.Opportunity)
	o.cache.Set(key, opps)
	return truncate(opps, maxResults), nil
}

func (o *Orchestrator) scanLevelOnce(ctx context.Context, lvl levels.Config, game string, maxResults int) ([]types.Opportunity, error) {
	started := time.Now()
	defer func() { imetrics.ScanLatency.Observe(time.Since(started).Seconds()) }()
	imetrics.ScansTotal.WithLabelValues(game, lvl.Name).Inc()

	o.mu.Lock()
	o.stats.ScansRun++
	o.mu.Unlock()

	if err := o.gate.Wait(ctx); err != nil {
		return nil, err
	}

	// Over-fetch to absorb filtering losses.
	limit := maxResults * o.cfg.Scan.OverfetchFactor
	items, err := o.market.FetchItems(ctx,
		game,
		types.USDToCents(lvl.PriceRange.Min),
		types.USDToCents(lvl.PriceRange.Max),
		limit)
	if err != nil {
		return nil, err
	}

	items = o.filters.FilterItems(items, game)
	if o.cfg.Analyzer.FilterLiquidity {
		o.attachBulkSignals(ctx, game, items)
	}

	opps := make([]types.Opportunity, 0, maxResults)
	for _, it := range items {
		opp, skip := o.analyzer.Analyze(ctx, it, lvl, game)
		if skip != analyzer.SkipNone {
			continue
		}
		imetrics.OpportunitiesFound.WithLabelValues(lvl.Name).Inc()
		opps = append(opps, opp)
		if len(opps) >= maxResults {
			break
		}
	}
	return opps, nil
}

// attachBulkSignals runs one aggregated-prices lookup for the whole batch
// so per-item analysis needs no further liquidity calls. A failed lookup
// just leaves the items unannotated.
func (o *Orchestrator) attachBulkSignals(ctx context.Context, game string, items []types.MarketItem) {
	if len(items) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(items))
	titles := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.Title]; ok {
			continue
		}
		seen[it.Title] = struct{}{}
		titles = append(titles, it.Title)
	}

	if err := o.gate.Wait(ctx); err != nil {
		return
	}
	rows, err := o.market.FetchAggregatedPrices(ctx, game, titles)
	if err != nil {
		o.log.Debug("bulk liquidity lookup failed, analyzing without it", zap.Error(err))
		return
	}

	byTitle := make(map[string]types.BulkSignal, len(rows))
	for _, r := range rows {
		byTitle[r.Title] = types.BulkSignal{OfferCount: r.OfferCount, OrderCount: r.OrderCount}
	}
	for i := range items {
		if sig, ok := byTitle[items[i].Title]; ok {
			s := sig
			items[i].Bulk = &s
		}
	}
}

// ScanAllLevels runs every level for one game and returns a complete map;
// a failing level contributes an empty slice.
func (o *Orchestrator) ScanAllLevels(ctx context.Context, game string, maxPerLevel int) map[string][]types.Opportunity {
	out := make(map[string][]types.Opportunity, 5)
	for _, name := range levels.All() {
		opps, err := o.ScanLevel(ctx, name, game, maxPerLevel, true)
		if err != nil {
			// Cannot happen for canonical names, but keep the unit boundary.
			o.log.Warn("skipping level", zap.String("level", name), zap.Error(err))
			opps = []types.Opportunity{}
		}
		out[name] = opps
	}
	return out
}

// ScanMultipleGames fetches filtered items for several games concurrently.
// All tasks start before any is joined and every requested game gets a key
// in the result; a failing game yields an empty slice, never an error.
func (o *Orchestrator) ScanMultipleGames(ctx context.Context, games []string, mode string, maxPerGame int) map[string][]types.MarketItem {
	if maxPerGame <= 0 {
		maxPerGame = 20
	}

	var priceFrom, priceTo int64
	if lvl, err := levels.Get(mode); err == nil {
		priceFrom = types.USDToCents(lvl.PriceRange.Min)
		priceTo = types.USDToCents(lvl.PriceRange.Max)
	}

	type result struct {
		game  string
		items []types.MarketItem
	}
	results := make(chan result, len(games))

	var wg sync.WaitGroup
	for _, game := range games {
		game := game
		wg.Add(1)
		go func() {
			defer wg.Done()
			items := o.scanGameItems(ctx, game, mode, priceFrom, priceTo, maxPerGame)
			results <- result{game: game, items: items}
		}()
	}
	wg.Wait()
	close(results)

	out := make(map[string][]types.MarketItem, len(games))
	for _, g := range games {
		out[g] = []types.MarketItem{}
	}
	for r := range results {
		out[r.game] = r.items
	}
	return out
}

func (o *Orchestrator) scanGameItems(ctx context.Context, game, mode string, priceFrom, priceTo int64, maxItems int) []types.MarketItem {
	key := cache.Key{Game: game, Mode: mode, PriceFrom: types.CentsToUSD(priceFrom), PriceTo: types.CentsToUSD(priceTo)}.Normalize()
	if v, ok := o.cache.Get(key); ok {
		imetrics.CacheHits.Inc()
		return truncate(v.([]types.MarketItem), maxItems)
	}
	imetrics.CacheMisses.Inc()

	if err := o.gate.Wait(ctx); err != nil {
		return []types.MarketItem{}
	}
	items, err := o.market.FetchItems(ctx, game, priceFrom, priceTo, maxItems*o.cfg.Scan.OverfetchFactor)
	if err != nil {
		imetrics.ScanErrors.Inc()
		o.log.Warn("game scan failed, returning empty result",
			zap.String("game", game), zap.Error(err))
		return []types.MarketItem{}
	}

	items = o.filters.FilterItems(items, game)
	o.cache.Set(key, items)
	return truncate(items, maxItems)
}

// FindBestOpportunities scans the level window and returns the top N
// across all of it, sorted by profit percent descending. Ties keep scan
// order (stable sort).
func (o *Orchestrator) FindBestOpportunities(ctx context.Context, game string, topN int, minLevel, maxLevel string) ([]types.Opportunity, error) {
	window, err := levels.Window(minLevel, maxLevel)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = 10
	}

	var all []types.Opportunity
	for _, name := range window {
		opps, err := o.ScanLevel(ctx, name, game, topN, true)
		if err != nil {
			return nil, err
		}
		all = append(all, opps...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ProfitPercent > all[j].ProfitPercent
	})
	return truncate(all, topN), nil
}

// ClearCache drops all cached scan results.
func (o *Orchestrator) ClearCache() { o.cache.Clear() }

// CacheStats exposes the cache counters for diagnostics surfaces.
func (o *Orchestrator) CacheStats() cache.Stats { return o.cache.Statistics() }

// Stats returns a snapshot of the running counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// RecordTrade merges one executed trade into the running statistics.
func (o *Orchestrator) RecordTrade(profit float64) {
	o.mu.Lock()
	o.stats.SuccessfulTrades++
	o.stats.TotalProfit += profit
	o.mu.Unlock()
	imetrics.TradesExecuted.Inc()
	imetrics.TradeProfit.Add(profit)
}

func truncate[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	out := make([]T, n)
	copy(out, s[:n])
	return out
}
