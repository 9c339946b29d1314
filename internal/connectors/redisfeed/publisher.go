// Package redisfeed pushes found opportunities into Redis for downstream
// presentation processes (the Telegram front-end reads this feed).
package redisfeed

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/types"
)

type Publisher struct {
	rdb    *redis.Client
	stream string
	snapNS string
}

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	stream := cfg.Redis.Stream
	if stream == "" {
		stream = "opp:stream"
	}
	snapNS := cfg.Redis.SnapNS
	if snapNS == "" {
		snapNS = "opp:snap:"
	}
	return &Publisher{rdb: rdb, stream: stream, snapNS: snapNS}
}

// PublishOpportunity appends one opportunity to the stream.
func (p *Publisher) PublishOpportunity(ctx context.Context, opp types.Opportunity) error {
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]interface{}{
			"item_id":        opp.Item.ID,
			"title":          opp.Item.Title,
			"game":           opp.Game,
			"level":          opp.Level,
			"buy_usd":        strconv.FormatFloat(opp.BuyPrice, 'f', 2, 64),
			"suggested_usd":  strconv.FormatFloat(opp.SuggestedPrice, 'f', 2, 64),
			"profit_usd":     strconv.FormatFloat(opp.Profit, 'f', 2, 64),
			"profit_percent": strconv.FormatFloat(opp.ProfitPercent, 'f', 2, 64),
			"ts_ms":          opp.Ts.UnixMilli(),
		},
	}).Err()
}

// SnapshotScan stores the latest result count for one (game, level) scan
// so dashboards can show freshness without replaying the stream.
func (p *Publisher) SnapshotScan(ctx context.Context, game, level string, found int, tsMs int64) error {
	key := p.snapNS + game + ":" + level
	return p.rdb.HSet(ctx, key, map[string]interface{}{
		"game":  game,
		"level": level,
		"found": found,
		"ts_ms": tsMs,
	}).Err()
}

// Close releases the underlying client.
func (p *Publisher) Close() error { return p.rdb.Close() }
