package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/you/dmarket-scanner/internal/analyzer"
	"github.com/you/dmarket-scanner/internal/competition"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/connectors/redisfeed"
	"github.com/you/dmarket-scanner/internal/dmarket"
	"github.com/you/dmarket-scanner/internal/filters"
	"github.com/you/dmarket-scanner/internal/liquidity"
	"github.com/you/dmarket-scanner/internal/ratelimit"
	"github.com/you/dmarket-scanner/internal/scanner"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

func main() {
	var cfgPath, game, minLevel, maxLevel string
	var topN int
	var publish bool

	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file")
	flag.StringVar(&game, "game", types.GameCSGO, "game id to scan")
	flag.StringVar(&minLevel, "min-level", "", "lowest level to include (empty = boost)")
	flag.StringVar(&maxLevel, "max-level", "", "highest level to include (empty = pro)")
	flag.IntVar(&topN, "top", 10, "how many opportunities to print")
	flag.BoolVar(&publish, "publish", false, "also publish results to the Redis feed")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		fmt.Println("[sys] interrupted, stopping...")
		cancel()
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[cfg] %v — continuing with defaults\n", err)
		cfg = config.Default()
	}

	log := zap.NewNop()
	client := dmarket.NewClient(cfg, log)
	fs := filters.New(cfg, log)
	liq := liquidity.NewAnalyzer(cfg, client, log)
	comp := competition.NewChecker(cfg, client, log)
	an := analyzer.New(cfg, liq, comp, log)
	gate := ratelimit.New(cfg.Scan.RatePerSecond, cfg.Scan.RateBurst)
	orch := scanner.New(cfg, client, fs, an, gate, log)

	fmt.Printf("[scan] game=%s window=%s..%s top=%d\n", game, orDefault(minLevel, "boost"), orDefault(maxLevel, "pro"), topN)
	started := time.Now()
	opps, err := orch.FindBestOpportunities(ctx, game, topN, minLevel, maxLevel)
	if err != nil {
		fmt.Printf("[scan] error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[scan] %d opportunities in %s\n", len(opps), time.Since(started).Round(time.Millisecond))

	if len(opps) == 0 {
		fmt.Println("[done] nothing profitable right now")
		return
	}

	fmt.Printf("%-4s %-40s %-10s %10s %10s %9s\n", "#", "TITLE", "LEVEL", "BUY", "PROFIT", "PROFIT%")
	for i, o := range opps {
		fmt.Printf("%-4d %-40.40s %-10s %10.2f %10.2f %8.2f%%\n",
			i+1, o.Item.Title, o.Level, o.BuyPrice, o.Profit, o.ProfitPercent)
	}

	if publish && cfg.Redis.Addr != "" {
		pub := redisfeed.NewPublisher(cfg)
		defer pub.Close()
		for _, o := range opps {
			if err := pub.PublishOpportunity(ctx, o); err != nil {
				fmt.Printf("[redis] publish failed for %s: %v\n", o.Item.Title, err)
				break
			}
		}
		fmt.Printf("[redis] %d opportunities published to %s\n", len(opps), cfg.Redis.Addr)
	}

	st := orch.CacheStats()
	fmt.Printf("[cache] size=%d hits=%d misses=%d\n", st.Size, st.Hits, st.Misses)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
