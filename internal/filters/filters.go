// Package filters drops marketplace items that should never reach the
// analyzer: blacklisted titles and items priced outside a game's window.
package filters

import (
	"regexp"
	"strings"

	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

// Set is a compiled predicate engine over item records. Construct once per
// orchestrator; it is read-only after New.
type Set struct {
	keywords  []string // lowercased substring blacklist
	patterns  []*regexp.Regexp
	whitelist []string // lowercased force-allow substrings
	ranges    map[string]config.GamePriceRange
	log       *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Set {
	s := &Set{
		ranges: cfg.Filters.PriceRanges,
		log:    log,
	}
	for _, kw := range cfg.Filters.Blacklist {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			s.keywords = append(s.keywords, kw)
		}
	}
	for _, w := range cfg.Filters.Whitelist {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s.whitelist = append(s.whitelist, w)
		}
	}
	for _, p := range cfg.Filters.Patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			log.Warn("skipping bad blacklist pattern", zap.String("pattern", p), zap.Error(err))
			continue
		}
		s.patterns = append(s.patterns, re)
	}
	return s
}

// IsBlacklisted reports whether name matches any blacklist keyword
// (case-insensitive substring) or any configured pattern.
func (s *Set) IsBlacklisted(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range s.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, re := range s.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// IsAllowed reports whether name survives the blacklist. A whitelist hit
// overrides any blacklist match.
func (s *Set) IsAllowed(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range s.whitelist {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return !s.IsBlacklisted(name)
}

// FilterItems returns the items that pass the blacklist and, when game has
// a configured price range, fall inside it. Malformed or out-of-range
// items are dropped silently; the batch never fails as a whole.
func (s *Set) FilterItems(items []types.MarketItem, game string) []types.MarketItem {
	out := make([]types.MarketItem, 0, len(items))
	pr, hasRange := s.ranges[game]
	for _, it := range items {
		if it.Title == "" {
			continue
		}
		if !s.IsAllowed(it.Title) {
			continue
		}
		if hasRange {
			price := it.PriceUSD()
			if price < pr.Min || (pr.Max > 0 && price > pr.Max) {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}
