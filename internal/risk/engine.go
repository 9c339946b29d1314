// Package risk derives per-run trade limits from a risk tier and the
// current balance.
package risk

import (
	"errors"
	"fmt"

	"github.com/you/dmarket-scanner/internal/config"
)

var ErrUnknownRiskLevel = errors.New("unknown risk level")

const (
	Low    = "low"
	Medium = "medium"
	High   = "high"
)

// Limits are the clamped bounds one auto-trade run operates under. They
// are computed once per invocation and never mutated mid-run.
type Limits struct {
	MaxTrades       int
	MaxItemPriceUSD float64
	MinProfitUSD    float64
	SpendCeilingUSD float64
}

type Engine struct{ cfg *config.Config }

func NewEngine(cfg *config.Config) *Engine { return &Engine{cfg: cfg} }

// Derive clamps the caller's requested limits by the risk tier and the
// balance. The run-wide spending ceiling applies regardless of tier.
//
//	low:    at most 2 trades, $20 per item, min profit raised to $1
//	medium: at most 5 trades, $50 per item
//	high:   per-item cap of 80% of balance
func (e *Engine) Derive(riskLevel string, balanceUSD, minProfitUSD, maxPriceUSD float64, maxTrades int) (Limits, error) {
	l := Limits{
		MaxTrades:       maxTrades,
		MaxItemPriceUSD: maxPriceUSD,
		MinProfitUSD:    minProfitUSD,
		SpendCeilingUSD: balanceUSD * e.cfg.Trade.SpendCeiling,
	}
	if l.MaxTrades <= 0 {
		l.MaxTrades = e.cfg.Trade.MaxTradesPerRun
	}

	switch riskLevel {
	case Low:
		l.MaxTrades = capInt(l.MaxTrades, 2)
		l.MaxItemPriceUSD = capPrice(l.MaxItemPriceUSD, 20)
		if l.MinProfitUSD < 1 {
			l.MinProfitUSD = 1
		}
	case Medium:
		l.MaxTrades = capInt(l.MaxTrades, 5)
		l.MaxItemPriceUSD = capPrice(l.MaxItemPriceUSD, 50)
	case High:
		l.MaxItemPriceUSD = capPrice(l.MaxItemPriceUSD, balanceUSD*0.8)
	default:
		return Limits{}, fmt.Errorf("%w %q, valid levels: low, medium, high", ErrUnknownRiskLevel, riskLevel)
	}

	if l.MaxTrades <= 0 {
		l.MaxTrades = 5
	}
	return l, nil
}

func capInt(v, max int) int {
	if v <= 0 || v > max {
		return max
	}
	return v
}

func capPrice(v, max float64) float64 {
	if v <= 0 || v > max {
		return max
	}
	return v
}
