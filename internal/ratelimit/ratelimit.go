// Package ratelimit gates outbound marketplace requests.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Gate is awaited by the orchestrator before every network fetch.
type Gate interface {
	Wait(ctx context.Context) error
}

// New returns a token-bucket gate allowing perSecond requests with the
// given burst.
func New(perSecond float64, burst int) Gate {
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Unlimited returns a gate that never blocks, for tests and dry tooling.
func Unlimited() Gate { return rate.NewLimiter(rate.Inf, 1) }
