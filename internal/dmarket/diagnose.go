package dmarket

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/you/dmarket-scanner/internal/types"
)

var errMissingKeys = errors.New("dmarket api keys are not configured")

// minUsableCents is the floor below which auto-trading is pointless.
const minUsableCents = 100

// CheckBalance fetches the balance and classifies the outcome for callers
// that surface it to users. The classification never returns an error:
// every failure mode maps onto a diagnosis value.
func (c *Client) CheckBalance(ctx context.Context) types.BalanceReport {
	bal, err := c.GetBalance(ctx)
	return Diagnose(bal, err)
}

// Diagnose pattern-matches a balance fetch outcome into the diagnosis
// enum plus a display message.
func Diagnose(bal types.Balance, err error) types.BalanceReport {
	if err != nil {
		return types.BalanceReport{
			Diagnosis:      classifyError(err),
			DisplayMessage: displayFor(classifyError(err)),
		}
	}

	rep := types.BalanceReport{Balance: bal}
	switch {
	case bal.AvailableCents == 0 && bal.FrozenCents == 0:
		rep.Diagnosis = types.DiagZeroBalance
	case bal.AvailableCents < minUsableCents && bal.FrozenCents > 0:
		rep.Diagnosis = types.DiagFundsFrozen
	case bal.AvailableCents < minUsableCents:
		rep.Diagnosis = types.DiagInsufficientFunds
	default:
		rep.Diagnosis = types.DiagSufficientFunds
	}
	rep.DisplayMessage = displayFor(rep.Diagnosis)
	if rep.Diagnosis == types.DiagSufficientFunds {
		rep.DisplayMessage = fmt.Sprintf("Balance: $%.2f available", bal.AvailableUSD())
	}
	return rep
}

func classifyError(err error) types.Diagnosis {
	if errors.Is(err, errMissingKeys) {
		return types.DiagMissingKeys
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return types.DiagTimeout
	case strings.Contains(msg, "status 401") || strings.Contains(msg, "status 403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden"):
		return types.DiagAuthError
	case strings.Contains(msg, "status 404") || strings.Contains(msg, "status 5"):
		return types.DiagEndpointError
	case strings.Contains(msg, "status "):
		return types.DiagUnknownError
	default:
		return types.DiagException
	}
}

func displayFor(d types.Diagnosis) string {
	switch d {
	case types.DiagZeroBalance:
		return "Balance is $0.00 — top up your DMarket account to trade"
	case types.DiagFundsFrozen:
		return "Funds are frozen by pending operations — wait for them to settle"
	case types.DiagInsufficientFunds:
		return "Balance below $1.00 — not enough to trade"
	case types.DiagAuthError:
		return "API keys were rejected — check key and signature settings"
	case types.DiagMissingKeys:
		return "API keys are not configured"
	case types.DiagTimeout:
		return "Balance check timed out — marketplace may be slow"
	case types.DiagEndpointError:
		return "Balance endpoint unavailable — try again later"
	case types.DiagUnknownError:
		return "Unexpected marketplace response during balance check"
	case types.DiagException:
		return "Balance check failed"
	default:
		return ""
	}
}
