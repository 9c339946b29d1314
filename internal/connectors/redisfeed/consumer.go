package redisfeed

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/dmarket-scanner/internal/config"
)

// FeedEntry is one opportunity as read back from the stream.
type FeedEntry struct {
	ItemID        string
	Title         string
	Game          string
	Level         string
	BuyUSD        float64
	ProfitUSD     float64
	ProfitPercent float64
	TsMs          int64
}

type Consumer struct {
	rdb    *redis.Client
	stream string
}

func NewConsumer(cfg *config.Config) *Consumer {
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
	return &Consumer{rdb: rdb, stream: stream}
}

// Consume reads opportunities through a consumer group and forwards valid
// entries to out until ctx is cancelled.
// Create the group once: XGROUP CREATE opp:stream feed $ MKSTREAM
func (c *Consumer) Consume(ctx context.Context, group, consumer string, out chan<- FeedEntry) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{c.stream, ">"},
			Count:    200,
			Block:    time.Second,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			time.Sleep(200 * time.Millisecond)
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				e := entryFromValues(m.Values)
				if e.ItemID != "" && e.Title != "" {
					out <- e
				}
				_ = c.rdb.XAck(ctx, c.stream, group, m.ID).Err()
			}
		}
	}
}

func entryFromValues(values map[string]interface{}) FeedEntry {
	var e FeedEntry
	if v, ok := values["item_id"].(string); ok {
		e.ItemID = v
	}
	if v, ok := values["title"].(string); ok {
		e.Title = v
	}
	if v, ok := values["game"].(string); ok {
		e.Game = v
	}
	if v, ok := values["level"].(string); ok {
		e.Level = v
	}
	e.BuyUSD = toFloat(values["buy_usd"])
	e.ProfitUSD = toFloat(values["profit_usd"])
	e.ProfitPercent = toFloat(values["profit_percent"])
	if v, ok := values["ts_ms"].(string); ok {
		e.TsMs, _ = strconv.ParseInt(v, 10, 64)
	}
	return e
}

func toFloat(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
