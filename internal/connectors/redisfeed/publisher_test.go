package redisfeed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/types"
)

func testSetup(t *testing.T) (*Publisher, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	p := NewPublisher(cfg)
	t.Cleanup(func() { _ = p.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return p, rdb
}

func TestPublishOpportunity(t *testing.T) {
	p, rdb := testSetup(t)
	ctx := context.Background()

	opp := types.Opportunity{
		Item:           types.MarketItem{ID: "i1", Title: "AK-47 | Redline"},
		Game:           types.GameCSGO,
		Level:          "standard",
		BuyPrice:       10,
		SuggestedPrice: 15,
		Profit:         5,
		ProfitPercent:  50,
		Ts:             time.UnixMilli(1700000000000),
	}
	require.NoError(t, p.PublishOpportunity(ctx, opp))

	msgs, err := rdb.XRange(ctx, "opp:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "AK-47 | Redline", msgs[0].Values["title"])
	assert.Equal(t, "standard", msgs[0].Values["level"])
	assert.Equal(t, "5.00", msgs[0].Values["profit_usd"])
	assert.Equal(t, "50.00", msgs[0].Values["profit_percent"])
}

func TestSnapshotScan(t *testing.T) {
	p, rdb := testSetup(t)
	ctx := context.Background()

	require.NoError(t, p.SnapshotScan(ctx, types.GameCSGO, "standard", 7, 123456))

	got, err := rdb.HGetAll(ctx, "opp:snap:"+types.GameCSGO+":standard").Result()
	require.NoError(t, err)
	assert.Equal(t, "7", got["found"])
	assert.Equal(t, "123456", got["ts_ms"])
}

func TestEntryFromValues(t *testing.T) {
	e := entryFromValues(map[string]interface{}{
		"item_id":        "i1",
		"title":          "AK-47 | Redline",
		"game":           types.GameCSGO,
		"level":          "standard",
		"buy_usd":        "10.00",
		"profit_usd":     "5.00",
		"profit_percent": "50.00",
		"ts_ms":          "123",
	})
	assert.Equal(t, "i1", e.ItemID)
	assert.Equal(t, 10.0, e.BuyUSD)
	assert.Equal(t, 5.0, e.ProfitUSD)
	assert.Equal(t, int64(123), e.TsMs)
}
