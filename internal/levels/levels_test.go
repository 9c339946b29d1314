package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_OrderAndCount(t *testing.T) {
	all := All()
	assert.Equal(t, []string{"boost", "standard", "medium", "advanced", "pro"}, all)
}

func TestGet_KnownLevels(t *testing.T) {
	for _, name := range All() {
		cfg, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, cfg.Name)
		assert.Greater(t, cfg.PriceRange.Max, cfg.PriceRange.Min)
		assert.GreaterOrEqual(t, cfg.MaxProfitPercent, cfg.MinProfitPercent)
	}
}

func TestGet_UnknownLevel(t *testing.T) {
	for _, name := range []string{"ultra", "Boost", " boost", "boost ", ""} {
		_, err := Get(name)
		require.Error(t, err, "name %q", name)
		assert.ErrorIs(t, err, ErrUnknownLevel)
		assert.Contains(t, err.Error(), "boost, standard, medium, advanced, pro")
	}
}

func TestMonotonicity(t *testing.T) {
	all := All()
	for i := 0; i < len(all)-1; i++ {
		cur, err := Get(all[i])
		require.NoError(t, err)
		next, err := Get(all[i+1])
		require.NoError(t, err)

		assert.LessOrEqual(t, cur.MinProfitPercent, next.MinProfitPercent,
			"%s -> %s min profit", all[i], all[i+1])
		assert.LessOrEqual(t, cur.PriceRange.Min, next.PriceRange.Min,
			"%s -> %s price floor", all[i], all[i+1])
		assert.LessOrEqual(t, cur.PriceRange.Max, next.PriceRange.Max,
			"%s -> %s price ceiling", all[i], all[i+1])
	}
}

func TestGet_ReturnsCopies(t *testing.T) {
	a, err := Get(Standard)
	require.NoError(t, err)
	a.MinProfitPercent = 99
	a.PriceRange.Max = 0

	b, err := Get(Standard)
	require.NoError(t, err)
	assert.Equal(t, 5.0, b.MinProfitPercent)
	assert.Equal(t, 10.0, b.PriceRange.Max)
}

func TestWindow(t *testing.T) {
	w, err := Window("", "")
	require.NoError(t, err)
	assert.Equal(t, All(), w)

	w, err = Window(Standard, Advanced)
	require.NoError(t, err)
	assert.Equal(t, []string{"standard", "medium", "advanced"}, w)

	_, err = Window("nope", "")
	assert.ErrorIs(t, err, ErrUnknownLevel)

	_, err = Window(Pro, Boost)
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestPriceRangeContains(t *testing.T) {
	r, err := PriceRangeFor(Standard)
	require.NoError(t, err)
	assert.True(t, r.Contains(3.0))
	assert.True(t, r.Contains(10.0))
	assert.False(t, r.Contains(2.99))
	assert.False(t, r.Contains(100.0))
}
