// Package levels holds the canonical five-tier risk table that bounds
// acceptable prices and minimum profit for every scan.
package levels

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownLevel = errors.New("unknown level")

// PriceRange is a USD price window, inclusive on both ends.
type PriceRange struct {
	Min float64
	Max float64
}

// Contains reports whether p falls inside the range.
func (r PriceRange) Contains(p float64) bool { return p >= r.Min && p <= r.Max }

// Config describes one risk tier.
type Config struct {
	Name             string
	DisplayName      string
	MinProfitPercent float64
	MaxProfitPercent float64
	PriceRange       PriceRange
	Description      string
}

// Ordered level names, cheapest and safest first.
const (
	Boost    = "boost"
	Standard = "standard"
	Medium   = "medium"
	Advanced = "advanced"
	Pro      = "pro"
)

var order = []string{Boost, Standard, Medium, Advanced, Pro}

var table = map[string]Config{
	Boost: {
		Name:             Boost,
		DisplayName:      "Boost",
		MinProfitPercent: 1,
		MaxProfitPercent: 5,
		PriceRange:       PriceRange{Min: 0.5, Max: 3.0},
		Description:      "cheap high-turnover items, thin but fast margins",
	},
	Standard: {
		Name:             Standard,
		DisplayName:      "Standard",
		MinProfitPercent: 5,
		MaxProfitPercent: 10,
		PriceRange:       PriceRange{Min: 3.0, Max: 10.0},
		Description:      "everyday skins with steady demand",
	},
	Medium: {
		Name:             Medium,
		DisplayName:      "Medium",
		MinProfitPercent: 5,
		MaxProfitPercent: 20,
		PriceRange:       PriceRange{Min: 10.0, Max: 30.0},
		Description:      "mid-range items, wider spreads, slower turnover",
	},
	Advanced: {
		Name:             Advanced,
		DisplayName:      "Advanced",
		MinProfitPercent: 10,
		MaxProfitPercent: 30,
		PriceRange:       PriceRange{Min: 30.0, Max: 100.0},
		Description:      "expensive skins for patient sellers",
	},
	Pro: {
		Name:             Pro,
		DisplayName:      "Pro",
		MinProfitPercent: 20,
		MaxProfitPercent: 100,
		PriceRange:       PriceRange{Min: 100.0, Max: 1000.0},
		Description:      "rare high-value items, big spreads, real risk",
	},
}

// All returns the five level names in canonical order. The slice is a copy.
func All() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// Get returns an independent copy of the config for name. Names are
// case-sensitive and must match exactly; anything else is ErrUnknownLevel.
func Get(name string) (Config, error) {
	cfg, ok := table[name]
	if !ok {
		return Config{}, fmt.Errorf("%w %q, valid levels: %s",
			ErrUnknownLevel, name, strings.Join(order, ", "))
	}
	return cfg, nil
}

// PriceRangeFor returns the USD price window for a level.
func PriceRangeFor(name string) (PriceRange, error) {
	cfg, err := Get(name)
	if err != nil {
		return PriceRange{}, err
	}
	return cfg.PriceRange, nil
}

// ProfitRangeFor returns the (min, max) profit percent bounds for a level.
func ProfitRangeFor(name string) (min, max float64, err error) {
	cfg, err := Get(name)
	if err != nil {
		return 0, 0, err
	}
	return cfg.MinProfitPercent, cfg.MaxProfitPercent, nil
}

// Index returns a level's position in the canonical order.
func Index(name string) (int, error) {
	for i, n := range order {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w %q, valid levels: %s",
		ErrUnknownLevel, name, strings.Join(order, ", "))
}

// Window returns the ordered slice of level names between minLevel and
// maxLevel inclusive. Empty bounds default to the ends of the table.
func Window(minLevel, maxLevel string) ([]string, error) {
	lo, hi := 0, len(order)-1
	if minLevel != "" {
		i, err := Index(minLevel)
		if err != nil {
			return nil, err
		}
		lo = i
	}
	if maxLevel != "" {
		i, err := Index(maxLevel)
		if err != nil {
			return nil, err
		}
		hi = i
	}
	if lo > hi {
		return nil, fmt.Errorf("%w: min level %q above max level %q", ErrUnknownLevel, minLevel, maxLevel)
	}
	out := make([]string, hi-lo+1)
	copy(out, order[lo:hi+1])
	return out, nil
}
