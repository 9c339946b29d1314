package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

func newTestSet() *Set {
	cfg := config.Default()
	cfg.Filters.Blacklist = []string{"Sticker", "Souvenir"}
	cfg.Filters.Patterns = []string{`^Graffiti \|`}
	cfg.Filters.Whitelist = []string{"Sticker | Katowice 2014"}
	cfg.Filters.PriceRanges = map[string]config.GamePriceRange{
		"a8db": {Min: 1.0, Max: 500.0},
	}
	return New(cfg, zap.NewNop())
}

func TestIsBlacklisted_CaseInsensitive(t *testing.T) {
	s := newTestSet()
	assert.True(t, s.IsBlacklisted("STICKER | Test"))
	assert.True(t, s.IsBlacklisted("sticker | test"))
	assert.True(t, s.IsBlacklisted("Souvenir AWP | Safari Mesh"))
	assert.False(t, s.IsBlacklisted("AK-47 | Redline"))
}

func TestIsBlacklisted_Pattern(t *testing.T) {
	s := newTestSet()
	assert.True(t, s.IsBlacklisted("Graffiti | Piggles"))
	assert.True(t, s.IsBlacklisted("graffiti | piggles"))
	assert.False(t, s.IsBlacklisted("AWP | Graffiti Camo"))
}

func TestIsAllowed_WhitelistOverridesBlacklist(t *testing.T) {
	s := newTestSet()
	assert.False(t, s.IsAllowed("Sticker | iBUYPOWER"))
	assert.True(t, s.IsAllowed("Sticker | Katowice 2014 Holo"))
	assert.True(t, s.IsAllowed("AK-47 | Redline"))
}

func TestNew_BadPatternSkipped(t *testing.T) {
	cfg := config.Default()
	cfg.Filters.Patterns = []string{`[unclosed`}
	s := New(cfg, zap.NewNop())
	assert.False(t, s.IsBlacklisted("anything"))
}

func item(title string, cents int64) types.MarketItem {
	return types.MarketItem{ID: title, Title: title, GameID: "a8db", PriceCents: cents}
}

func TestFilterItems_PriceRange(t *testing.T) {
	s := newTestSet()
	in := []types.MarketItem{
		item("AK-47 | Redline", 1500),
		item("Cheap Case", 50),       // below $1
		item("Dragon Lore", 9900000), // above $500
		item("AWP | Asiimov", 8000),
	}

	out := s.FilterItems(in, "a8db")
	titles := make([]string, 0, len(out))
	for _, it := range out {
		titles = append(titles, it.Title)
	}
	assert.Equal(t, []string{"AK-47 | Redline", "AWP | Asiimov"}, titles)
}

func TestFilterItems_NoRangeForGame(t *testing.T) {
	s := newTestSet()
	in := []types.MarketItem{item("Pudge Hook", 50)}
	in[0].GameID = "9a92"
	out := s.FilterItems(in, "9a92")
	assert.Len(t, out, 1, "games without a configured range pass everything")
}

func TestFilterItems_SkipsMalformed(t *testing.T) {
	s := newTestSet()
	in := []types.MarketItem{
		{ID: "x", Title: "", PriceCents: 1000}, // no title
		item("AK-47 | Redline", 1500),
	}
	out := s.FilterItems(in, "a8db")
	assert.Len(t, out, 1)
}

func TestFilterItems_Idempotent(t *testing.T) {
	s := newTestSet()
	in := []types.MarketItem{
		item("AK-47 | Redline", 1500),
		item("Sticker | Test", 1500),
		item("AWP | Asiimov", 8000),
	}
	once := s.FilterItems(in, "a8db")
	twice := s.FilterItems(once, "a8db")
	assert.Equal(t, once, twice)
}
