package bot

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/you/dmarket-scanner/internal/analyzer"
	"github.com/you/dmarket-scanner/internal/autotrade"
	"github.com/you/dmarket-scanner/internal/competition"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/connectors/redisfeed"
	"github.com/you/dmarket-scanner/internal/dash"
	"github.com/you/dmarket-scanner/internal/dmarket"
	"github.com/you/dmarket-scanner/internal/filters"
	"github.com/you/dmarket-scanner/internal/levels"
	"github.com/you/dmarket-scanner/internal/liquidity"
	"github.com/you/dmarket-scanner/internal/ratelimit"
	"github.com/you/dmarket-scanner/internal/risk"
	"github.com/you/dmarket-scanner/internal/scanner"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxPerLevel caps how many opportunities one level scan keeps.
const maxPerLevel = 50

// Bot manages the application's lifecycle and components.
type Bot struct {
	cfg    *config.Config
	log    *zap.Logger
	client *dmarket.Client
	orch   *scanner.Orchestrator
	seq    *autotrade.Sequencer
	board  *dash.Store
}

func New(cfg *config.Config, log *zap.Logger) *Bot {
	client := dmarket.NewClient(cfg, log)
	fs := filters.New(cfg, log)
	liq := liquidity.NewAnalyzer(cfg, client, log)
	comp := competition.NewChecker(cfg, client, log)
	an := analyzer.New(cfg, liq, comp, log)
	gate := ratelimit.New(cfg.Scan.RatePerSecond, cfg.Scan.RateBurst)
	orch := scanner.New(cfg, client, fs, an, gate, log)
	seq := autotrade.NewSequencer(cfg, client, risk.NewEngine(cfg), orch, log)

	return &Bot{
		cfg:    cfg,
		log:    log,
		client: client,
		orch:   orch,
		seq:    seq,
		board:  dash.NewStore(),
	}
}

func (b *Bot) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		b.log.Warn("received signal, shutting down...")
		cancel()
	}()

	rep := b.client.CheckBalance(ctx)
	b.log.Info("startup balance check",
		zap.String("diagnosis", string(rep.Diagnosis)),
		zap.String("detail", rep.DisplayMessage),
	)

	if b.cfg.Dash.ListenAddr != "" {
		go dash.StartHTTP(ctx, b.board, b.cfg.Dash.ListenAddr)
	}

	var feed *redisfeed.Publisher
	if b.cfg.Redis.Addr != "" {
		feed = redisfeed.NewPublisher(b.cfg)
		defer feed.Close()
	}

	games := b.cfg.Games
	if len(games) == 0 {
		games = []string{types.GameCSGO}
	}

	if b.cfg.DryRun {
		b.log.Warn("DRY-RUN: no real purchases or listings will be made")
	}
	b.log.Info("scanner started",
		zap.Strings("games", games),
		zap.Duration("interval", b.cfg.ScanInterval()),
		zap.Bool("dry_run", b.cfg.DryRun),
	)

	ticker := time.NewTicker(b.cfg.ScanInterval())
	defer ticker.Stop()

	b.runCycle(ctx, games, feed)
	for {
		select {
		case <-ctx.Done():
			b.log.Info("scanner finished")
			return
		case <-ticker.C:
			b.runCycle(ctx, games, feed)
		}
	}
}

// runCycle scans every configured game across all levels, publishes what it
// found, and hands the ranked set to the trade sequencer (live mode only).
func (b *Bot) runCycle(ctx context.Context, games []string, feed *redisfeed.Publisher) {
	byGame := make(map[string][]types.Opportunity, len(games))

	for _, game := range games {
		for _, level := range levels.All() {
			if ctx.Err() != nil {
				return
			}
			started := time.Now()
			opps, err := b.orch.ScanLevel(ctx, level, game, maxPerLevel, true)
			took := time.Since(started)
			if err != nil {
				b.log.Error("level scan failed", zap.String("game", game), zap.String("level", level), zap.Error(err))
				continue
			}
			b.board.Update(game, level, opps, took)
			if feed != nil {
				for _, opp := range opps {
					if err := feed.PublishOpportunity(ctx, opp); err != nil {
						b.log.Warn("feed publish failed", zap.Error(err))
						break
					}
				}
				if err := feed.SnapshotScan(ctx, game, level, len(opps), time.Now().UnixMilli()); err != nil {
					b.log.Warn("feed snapshot failed", zap.Error(err))
				}
			}
			byGame[game] = append(byGame[game], opps...)
		}
	}

	total := 0
	for _, opps := range byGame {
		total += len(opps)
	}
	if total == 0 {
		b.log.Info("cycle complete, nothing found")
		return
	}

	if b.cfg.DryRun {
		for game, opps := range byGame {
			for _, opp := range opps {
				b.log.Info("opportunity",
					zap.String("game", game),
					zap.String("level", opp.Level),
					zap.String("title", opp.Item.Title),
					zap.Float64("buy_usd", opp.BuyPrice),
					zap.Float64("suggested_usd", opp.SuggestedPrice),
					zap.Float64("profit_usd", opp.Profit),
					zap.Float64("profit_percent", opp.ProfitPercent),
					zap.Time("ts", opp.Ts),
				)
			}
		}
		return
	}

	report, err := b.seq.Run(ctx, byGame, autotrade.Options{
		MinProfitUSD: b.cfg.Trade.MinProfitUSD,
		MaxPriceUSD:  b.cfg.Trade.MaxPriceUSD,
		MaxTrades:    b.cfg.Trade.MaxTradesPerRun,
		RiskLevel:    b.cfg.Trade.RiskLevel,
	})
	if err != nil {
		b.log.Error("auto-trade run failed", zap.Error(err))
		return
	}
	b.log.Info("auto-trade complete",
		zap.Int("attempted", report.Attempted),
		zap.Int("purchases", report.Purchases),
		zap.Int("sales", report.Sales),
		zap.Float64("total_profit_usd", report.TotalProfit),
		zap.String("diagnosis", string(report.Diagnosis)),
	)
}

func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	return cfg.Build()
}
