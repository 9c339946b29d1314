// Package competition gates opportunities on how many rival buy orders
// already target the same title.
package competition

import (
	"context"

	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

// OrderBook supplies competing buy orders for a title. Implemented by the
// marketplace client.
type OrderBook interface {
	CompetingOrders(ctx context.Context, gameID, title string) (types.Competition, error)
}

type Checker struct {
	cfg  *config.Config
	book OrderBook
	log  *zap.Logger
}

func NewChecker(cfg *config.Config, book OrderBook, log *zap.Logger) *Checker {
	return &Checker{cfg: cfg, book: book, log: log}
}

// Check fetches the competing orders for a title and labels the pressure.
// A fetch failure returns an error; callers proceed ungated.
func (c *Checker) Check(ctx context.Context, gameID, title string) (types.Competition, error) {
	comp, err := c.book.CompetingOrders(ctx, gameID, title)
	if err != nil {
		return types.Competition{}, err
	}
	comp.Level = describe(comp.TotalOrders, c.cfg.Competition.MaxOrders)
	return comp, nil
}

// Crowded reports whether the order count exceeds the configured maximum.
func (c *Checker) Crowded(comp types.Competition) bool {
	return comp.TotalOrders > c.cfg.Competition.MaxOrders
}

func describe(orders, max int) string {
	switch {
	case orders == 0:
		return "none"
	case orders <= max:
		return "low"
	case orders <= max*2:
		return "high"
	default:
		return "saturated"
	}
}
