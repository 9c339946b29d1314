package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GamePriceRange bounds acceptable item prices (USD) for one game.
type GamePriceRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type Config struct {
	Games  []string `yaml:"games"`
	DryRun bool     `yaml:"dry_run"`

	DMarket struct {
		RestURL   string `yaml:"rest_url"`
		PublicKey string `yaml:"public_key"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"dmarket"`

	Filters struct {
		Blacklist   []string                  `yaml:"blacklist"`
		Patterns    []string                  `yaml:"patterns"`
		Whitelist   []string                  `yaml:"whitelist"`
		PriceRanges map[string]GamePriceRange `yaml:"price_ranges"`
	} `yaml:"filters"`

	Liquidity struct {
		MinScore          float64 `yaml:"min_score"`
		MinSalesPerWeek   float64 `yaml:"min_sales_per_week"`
		MaxTimeToSellDays float64 `yaml:"max_time_to_sell_days"`
		MinBulkOffers     int     `yaml:"min_bulk_offers"`
		MinBulkOrders     int     `yaml:"min_bulk_orders"`
	} `yaml:"liquidity"`

	Competition struct {
		MaxOrders int `yaml:"max_orders"`
	} `yaml:"competition"`

	Analyzer struct {
		SuggestedMarkup   float64 `yaml:"suggested_markup"`
		FilterLiquidity   bool    `yaml:"filter_liquidity"`
		FilterCompetition bool    `yaml:"filter_competition"`
	} `yaml:"analyzer"`

	Cache struct {
		TTLSeconds int `yaml:"ttl_seconds"`
		MaxSize    int `yaml:"max_size"`
	} `yaml:"cache"`

	Scan struct {
		OverfetchFactor int     `yaml:"overfetch_factor"`
		BatchPauseMs    int     `yaml:"batch_pause_ms"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		RateBurst       int     `yaml:"rate_burst"`
	} `yaml:"scan"`

	Trade struct {
		MinProfitUSD    float64 `yaml:"min_profit_usd"`
		MaxPriceUSD     float64 `yaml:"max_price_usd"`
		MaxTradesPerRun int     `yaml:"max_trades_per_run"`
		RiskLevel       string  `yaml:"risk_level"`
		StalenessPct    float64 `yaml:"staleness_pct"`
		BuyTolerancePct float64 `yaml:"buy_tolerance_pct"`
		SpendCeiling    float64 `yaml:"spend_ceiling"`
		PauseMs         int     `yaml:"pause_ms"`
	} `yaml:"trade"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Stream   string `yaml:"stream"`
		SnapNS   string `yaml:"snap_ns"`
	} `yaml:"redis"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	Dash struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"dash"`

	Timings struct {
		ScanIntervalMs int `yaml:"scan_interval_ms"`
	} `yaml:"timings"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

// Default returns a config with every tunable at its default, for tests
// and one-shot tools that run without a yaml file.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.DMarket.RestURL == "" {
		c.DMarket.RestURL = "https://api.dmarket.com"
	}
	if c.Liquidity.MinScore == 0 {
		c.Liquidity.MinScore = 60
	}
	if c.Liquidity.MinSalesPerWeek == 0 {
		c.Liquidity.MinSalesPerWeek = 5
	}
	if c.Liquidity.MaxTimeToSellDays == 0 {
		c.Liquidity.MaxTimeToSellDays = 7
	}
	if c.Liquidity.MinBulkOffers == 0 {
		c.Liquidity.MinBulkOffers = 5
	}
	if c.Liquidity.MinBulkOrders == 0 {
		c.Liquidity.MinBulkOrders = 3
	}
	if c.Competition.MaxOrders == 0 {
		c.Competition.MaxOrders = 3
	}
	if c.Analyzer.SuggestedMarkup == 0 {
		c.Analyzer.SuggestedMarkup = 1.20
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 1000
	}
	if c.Scan.OverfetchFactor == 0 {
		c.Scan.OverfetchFactor = 3
	}
	if c.Scan.BatchPauseMs == 0 {
		c.Scan.BatchPauseMs = 500
	}
	if c.Scan.RatePerSecond == 0 {
		c.Scan.RatePerSecond = 2
	}
	if c.Scan.RateBurst == 0 {
		c.Scan.RateBurst = 5
	}
	if c.Trade.RiskLevel == "" {
		c.Trade.RiskLevel = "medium"
	}
	if c.Trade.StalenessPct == 0 {
		c.Trade.StalenessPct = 5
	}
	if c.Trade.BuyTolerancePct == 0 {
		c.Trade.BuyTolerancePct = 2
	}
	if c.Trade.SpendCeiling == 0 {
		c.Trade.SpendCeiling = 0.90
	}
	if c.Trade.PauseMs == 0 {
		c.Trade.PauseMs = 1000
	}
	if c.Timings.ScanIntervalMs == 0 {
		c.Timings.ScanIntervalMs = 60000
	}
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
func (c *Config) BatchPause() time.Duration {
	return time.Duration(c.Scan.BatchPauseMs) * time.Millisecond
}
func (c *Config) TradePause() time.Duration {
	return time.Duration(c.Trade.PauseMs) * time.Millisecond
}
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Timings.ScanIntervalMs) * time.Millisecond
}
