package types

import (
	"encoding/json"
	"time"
)

// Game identifiers as DMarket knows them.
const (
	GameCSGO  = "a8db"
	GameDota2 = "9a92"
	GameRust  = "rust"
	GameTF2   = "tf2"
)

// MarketItem is one normalized marketplace record. Prices are integer
// cents; the raw feed's three price encodings are collapsed at ingestion
// (see ParseItem) and downstream code never sees anything else.
type MarketItem struct {
	ID                  string  `json:"itemId"`
	Title               string  `json:"title"`
	GameID              string  `json:"gameId"`
	PriceCents          int64   `json:"priceCents"`
	SuggestedPriceCents int64   `json:"suggestedPriceCents"`
	FloatValue          float64 `json:"floatValue,omitempty"`
	Rarity              string  `json:"rarity,omitempty"`
	Category            string  `json:"category,omitempty"`

	// Bulk liquidity signal attached by the orchestrator after an
	// aggregated-prices lookup; nil when no bulk data was fetched.
	Bulk *BulkSignal `json:"-"`
}

// BulkSignal is the cheap liquidity proxy from the aggregated-prices
// endpoint: how many offers and buy orders exist for the title.
type BulkSignal struct {
	OfferCount int
	OrderCount int
}

// PriceUSD returns the current ask in USD.
func (m MarketItem) PriceUSD() float64 { return CentsToUSD(m.PriceCents) }

// SuggestedUSD returns the platform fair-value estimate in USD.
func (m MarketItem) SuggestedUSD() float64 { return CentsToUSD(m.SuggestedPriceCents) }

// Opportunity is one priced arbitrage candidate produced by the analyzer.
// All monetary fields are USD.
type Opportunity struct {
	Item           MarketItem
	Game           string
	Level          string
	BuyPrice       float64
	SuggestedPrice float64
	Profit         float64
	ProfitPercent  float64
	Liquidity      *Liquidity
	Competition    *Competition
	Ts             time.Time
}

// Liquidity describes how quickly an item resells.
type Liquidity struct {
	Score             float64
	SalesPerWeek      float64
	AvgTimeToSellDays float64
	PriceStability    float64
	IsLiquid          bool
}

// Competition describes rival buy orders for a title.
type Competition struct {
	Level        string
	TotalOrders  int
	TotalAmount  int
	BestPrice    float64
	AveragePrice float64
}

// AggregatedPrice is one row of the bulk aggregated-prices endpoint.
type AggregatedPrice struct {
	Title               string
	OfferBestPriceCents int64
	OrderBestPriceCents int64
	OfferCount          int
	OrderCount          int
}

// Balance is the account balance in integer cents.
type Balance struct {
	AvailableCents int64
	FrozenCents    int64
}

func (b Balance) AvailableUSD() float64 { return CentsToUSD(b.AvailableCents) }

// Diagnosis classifies the outcome of a balance check for callers that
// surface it to users.
type Diagnosis string

const (
	DiagSufficientFunds   Diagnosis = "sufficient_funds"
	DiagInsufficientFunds Diagnosis = "insufficient_funds"
	DiagZeroBalance       Diagnosis = "zero_balance"
	DiagFundsFrozen       Diagnosis = "funds_frozen"
	DiagAuthError         Diagnosis = "auth_error"
	DiagMissingKeys       Diagnosis = "missing_keys"
	DiagTimeout           Diagnosis = "timeout_error"
	DiagEndpointError     Diagnosis = "endpoint_error"
	DiagUnknownError      Diagnosis = "unknown_error"
	DiagException         Diagnosis = "exception"
)

// BalanceReport pairs a diagnosis with a message fit for end users.
type BalanceReport struct {
	Diagnosis      Diagnosis
	DisplayMessage string
	Balance        Balance
}

// CentsToUSD converts boundary integer cents into the float USD used
// everywhere inside the pipeline. The division happens here and nowhere else.
func CentsToUSD(cents int64) float64 { return float64(cents) / 100.0 }

// USDToCents converts back at the boundary, truncating sub-cent noise.
func USDToCents(usd float64) int64 { return int64(usd*100.0 + 0.5) }

// rawItem mirrors the wire shape of a marketplace object. Price fields
// arrive in three encodings across endpoint generations: {"amount": cents},
// {"USD": cents} and a bare number.
type rawItem struct {
	ID             string          `json:"itemId"`
	Title          string          `json:"title"`
	GameID         string          `json:"gameId"`
	Price          json.RawMessage `json:"price"`
	SuggestedPrice json.RawMessage `json:"suggestedPrice"`
	Extra          struct {
		FloatValue float64 `json:"floatValue"`
		Rarity     string  `json:"rarity"`
		Category   string  `json:"category"`
	} `json:"extra"`
}

// ParseItem decodes one marketplace object into a MarketItem, normalizing
// whatever price encoding the endpoint used. Unparsable prices become 0;
// only a malformed envelope is an error, so a batch can drop bad records
// and keep going.
func ParseItem(data []byte) (MarketItem, error) {
	var raw rawItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return MarketItem{}, err
	}
	return MarketItem{
		ID:                  raw.ID,
		Title:               raw.Title,
		GameID:              raw.GameID,
		PriceCents:          ParsePriceCents(raw.Price),
		SuggestedPriceCents: ParsePriceCents(raw.SuggestedPrice),
		FloatValue:          raw.Extra.FloatValue,
		Rarity:              raw.Extra.Rarity,
		Category:            raw.Extra.Category,
	}, nil
}

// ParsePriceCents collapses the three historical price encodings into
// integer cents. Anything unparsable is treated as 0 rather than an error.
func ParsePriceCents(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	if v := numeric(raw); v != 0 {
		return int64(v + 0.5)
	}
	var enc struct {
		Amount json.RawMessage `json:"amount"`
		USD    json.RawMessage `json:"USD"`
	}
	if err := json.Unmarshal(raw, &enc); err != nil {
		return 0
	}
	if v := numeric(enc.Amount); v != 0 {
		return int64(v + 0.5)
	}
	if v := numeric(enc.USD); v != 0 {
		return int64(v + 0.5)
	}
	return 0
}

// numeric reads a JSON value that is either a number or a stringified
// number; older endpoints quote their cent amounts.
func numeric(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return 0
	}
	return f
}
