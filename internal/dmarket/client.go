// Package dmarket is a thin REST client for the DMarket exchange API.
// Monetary amounts cross this boundary as integer cents; conversion to the
// pipeline's float USD happens in internal/types and nowhere else.
package dmarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/liquidity"
	"github.com/you/dmarket-scanner/internal/types"
	"go.uber.org/zap"
)

// aggregated-prices accepts at most this many titles per call.
const maxTitlesPerCall = 100

type Client struct {
	cfg  *config.Config
	log  *zap.Logger
	http *resty.Client

	batchPause time.Duration
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	httpc := resty.New().
		SetBaseURL(cfg.DMarket.RestURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	httpc.OnBeforeRequest(signMiddleware(cfg.DMarket.SecretKey))
	return &Client{
		cfg:        cfg,
		log:        log,
		http:       httpc,
		batchPause: cfg.BatchPause(),
	}
}

type itemsEnvelope struct {
	Objects []json.RawMessage `json:"objects"`
}

// FetchItems pulls one page of market offers for a game, normalizing each
// record at ingestion. Individual malformed objects are dropped, not fatal.
func (c *Client) FetchItems(ctx context.Context, game string, priceFromCents, priceToCents int64, limit int) ([]types.MarketItem, error) {
	req := c.signed(ctx).
		SetQueryParam("gameId", game).
		SetQueryParam("currency", "USD").
		SetQueryParam("orderBy", "price").
		SetQueryParam("orderDir", "asc").
		SetQueryParam("limit", strconv.Itoa(limit))
	if priceFromCents > 0 {
		req.SetQueryParam("priceFrom", strconv.FormatInt(priceFromCents, 10))
	}
	if priceToCents > 0 {
		req.SetQueryParam("priceTo", strconv.FormatInt(priceToCents, 10))
	}

	resp, err := req.Get("/exchange/v1/market/items")
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch items: status %d: %s", resp.StatusCode(), resp.String())
	}

	var env itemsEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}

	out := make([]types.MarketItem, 0, len(env.Objects))
	for _, raw := range env.Objects {
		it, err := types.ParseItem(raw)
		if err != nil {
			c.log.Debug("dropping malformed market object", zap.Error(err))
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

type aggregatedEnvelope struct {
	AggregatedPrices []struct {
		Title  string `json:"marketHashName"`
		Offers struct {
			BestPrice json.RawMessage `json:"bestPrice"`
			Count     int             `json:"count"`
		} `json:"offers"`
		Orders struct {
			BestPrice json.RawMessage `json:"bestPrice"`
			Count     int             `json:"count"`
		} `json:"orders"`
	} `json:"aggregatedPrices"`
}

// FetchAggregatedPrices batches titles into chunks of at most 100, pausing
// between chunks, and returns the combined rows.
func (c *Client) FetchAggregatedPrices(ctx context.Context, game string, titles []string) ([]types.AggregatedPrice, error) {
	var out []types.AggregatedPrice
	for start := 0; start < len(titles); start += maxTitlesPerCall {
		end := start + maxTitlesPerCall
		if end > len(titles) {
			end = len(titles)
		}
		chunk := titles[start:end]

		req := c.signed(ctx).SetQueryParam("gameId", game)
		for _, t := range chunk {
			req.QueryParam.Add("titles", t)
		}
		resp, err := req.Get("/price-aggregator/v1/aggregated-prices")
		if err != nil {
			return out, fmt.Errorf("aggregated prices: %w", err)
		}
		if resp.IsError() {
			return out, fmt.Errorf("aggregated prices: status %d: %s", resp.StatusCode(), resp.String())
		}

		var env aggregatedEnvelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return out, fmt.Errorf("aggregated prices: %w", err)
		}
		for _, row := range env.AggregatedPrices {
			out = append(out, types.AggregatedPrice{
				Title:               row.Title,
				OfferBestPriceCents: types.ParsePriceCents(row.Offers.BestPrice),
				OrderBestPriceCents: types.ParsePriceCents(row.Orders.BestPrice),
				OfferCount:          row.Offers.Count,
				OrderCount:          row.Orders.Count,
			})
		}

		if end < len(titles) {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(c.batchPause):
			}
		}
	}
	return out, nil
}

type balanceEnvelope struct {
	USD struct {
		Available json.RawMessage `json:"available"`
		Frozen    json.RawMessage `json:"frozen"`
	} `json:"usd"`
}

// GetBalance returns the account balance in integer cents.
func (c *Client) GetBalance(ctx context.Context) (types.Balance, error) {
	if c.cfg.DMarket.PublicKey == "" || c.cfg.DMarket.SecretKey == "" {
		return types.Balance{}, errMissingKeys
	}
	resp, err := c.signed(ctx).Get("/account/v1/balance")
	if err != nil {
		return types.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	if resp.IsError() {
		return types.Balance{}, fmt.Errorf("get balance: status %d: %s", resp.StatusCode(), resp.String())
	}
	var env balanceEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return types.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return types.Balance{
		AvailableCents: types.ParsePriceCents(env.USD.Available),
		FrozenCents:    types.ParsePriceCents(env.USD.Frozen),
	}, nil
}

// TradeResult is the outcome of a buy attempt.
type TradeResult struct {
	Success   bool
	NewItemID string
	Err       string
}

// Buy attempts to purchase itemID at up to maxPriceCents.
func (c *Client) Buy(ctx context.Context, itemID string, maxPriceCents int64) (TradeResult, error) {
	body := map[string]any{
		"offers": []map[string]any{{
			"offerId": itemID,
			"price":   map[string]any{"amount": strconv.FormatInt(maxPriceCents, 10), "currency": "USD"},
		}},
	}
	resp, err := c.signed(ctx).SetBody(body).Patch("/exchange/v1/offers-buy")
	if err != nil {
		return TradeResult{}, fmt.Errorf("buy: %w", err)
	}
	if resp.IsError() {
		return TradeResult{Err: resp.String()}, nil
	}
	var out struct {
		Status    string `json:"status"`
		NewItemID string `json:"dmOfferId"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return TradeResult{}, fmt.Errorf("buy: %w", err)
	}
	return TradeResult{Success: out.Status == "TxSuccess" || out.Status == "", NewItemID: out.NewItemID}, nil
}

// ListForSale publishes a sell offer for an owned item.
func (c *Client) ListForSale(ctx context.Context, itemID string, priceCents int64) error {
	body := map[string]any{
		"offers": []map[string]any{{
			"assetId": itemID,
			"price":   map[string]any{"amount": strconv.FormatInt(priceCents, 10), "currency": "USD"},
		}},
	}
	resp, err := c.signed(ctx).SetBody(body).Post("/exchange/v1/user/offers/create")
	if err != nil {
		return fmt.Errorf("list for sale: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("list for sale: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

type targetsEnvelope struct {
	Orders []struct {
		Amount int             `json:"amount"`
		Price  json.RawMessage `json:"price"`
	} `json:"orders"`
}

// CompetingOrders returns the rival buy-order picture for a title.
func (c *Client) CompetingOrders(ctx context.Context, gameID, title string) (types.Competition, error) {
	resp, err := c.signed(ctx).
		SetQueryParam("gameId", gameID).
		SetQueryParam("title", title).
		Get("/marketplace-api/v1/targets-by-title")
	if err != nil {
		return types.Competition{}, fmt.Errorf("competing orders: %w", err)
	}
	if resp.IsError() {
		return types.Competition{}, fmt.Errorf("competing orders: status %d: %s", resp.StatusCode(), resp.String())
	}
	var env targetsEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return types.Competition{}, fmt.Errorf("competing orders: %w", err)
	}

	comp := types.Competition{TotalOrders: len(env.Orders)}
	var sum float64
	for _, o := range env.Orders {
		comp.TotalAmount += o.Amount
		price := types.CentsToUSD(types.ParsePriceCents(o.Price))
		sum += price
		if price > comp.BestPrice {
			comp.BestPrice = price
		}
	}
	if len(env.Orders) > 0 {
		comp.AveragePrice = sum / float64(len(env.Orders))
	}
	return comp, nil
}

type salesEnvelope struct {
	LastSales []struct {
		Price json.RawMessage `json:"price"`
		Date  int64           `json:"date"`
	} `json:"lastSales"`
}

// SalesHistory satisfies liquidity.HistoryProvider.
func (c *Client) SalesHistory(ctx context.Context, game, title string, days int) ([]liquidity.Sale, error) {
	resp, err := c.signed(ctx).
		SetQueryParam("gameId", game).
		SetQueryParam("title", title).
		Get("/trade-aggregator/v1/last-sales")
	if err != nil {
		return nil, fmt.Errorf("sales history: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sales history: status %d: %s", resp.StatusCode(), resp.String())
	}
	var env salesEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("sales history: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	out := make([]liquidity.Sale, 0, len(env.LastSales))
	for _, s := range env.LastSales {
		at := time.Unix(s.Date, 0)
		if at.Before(cutoff) {
			continue
		}
		out = append(out, liquidity.Sale{PriceCents: types.ParsePriceCents(s.Price), SoldAt: at})
	}
	return out, nil
}

// CurrentPriceCents re-fetches the live ask for a single offer. Used by
// the auto-trade staleness guard immediately before purchase.
func (c *Client) CurrentPriceCents(ctx context.Context, game, itemID, title string) (int64, error) {
	resp, err := c.signed(ctx).
		SetQueryParam("gameId", game).
		SetQueryParam("title", title).
		SetQueryParam("currency", "USD").
		SetQueryParam("limit", "50").
		Get("/exchange/v1/market/items")
	if err != nil {
		return 0, fmt.Errorf("current price: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("current price: status %d: %s", resp.StatusCode(), resp.String())
	}
	var env itemsEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return 0, fmt.Errorf("current price: %w", err)
	}
	for _, raw := range env.Objects {
		it, err := types.ParseItem(raw)
		if err != nil {
			continue
		}
		if it.ID == itemID {
			return it.PriceCents, nil
		}
	}
	return 0, fmt.Errorf("item %s no longer listed", itemID)
}
