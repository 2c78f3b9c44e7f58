package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	// settlementCoin is the CoinGecko id of the stablecoin crypto orders are priced in.
	settlementCoin = "usd-coin"
	defaultTTL     = 5 * time.Minute
)

// Config configures the CoinGecko converter.
type Config struct {
	BaseURL  string
	APIKey   string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// CoinGeckoConverter converts fiat amounts into the settlement coin using
// CoinGecko's simple price endpoint, caching the rate.
type CoinGeckoConverter struct {
	client  *http.Client
	cache   Cache
	logger  *slog.Logger
	baseURL string
	apiKey  string
	ttl     time.Duration
}

// NewCoinGeckoConverter returns a converter. cache may be nil.
func NewCoinGeckoConverter(cfg Config, cache Cache, client *http.Client, logger *slog.Logger) *CoinGeckoConverter {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if cache == nil {
		cache = &RedisCache{}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &CoinGeckoConverter{
		client:  client,
		cache:   cache,
		logger:  logger,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		ttl:     ttl,
	}
}

// Convert returns amount (in fiat) expressed in the settlement coin, rounded
// up to the cent.
func (c *CoinGeckoConverter) Convert(ctx context.Context, amount float64, fiat string) (float64, error) {
	rate, err := c.Rate(ctx, fiat)
	if err != nil {
		return 0, err
	}
	return math.Ceil(amount/rate*100) / 100, nil
}

// Rate returns how many units of fiat one settlement coin costs.
func (c *CoinGeckoConverter) Rate(ctx context.Context, fiat string) (float64, error) {
	fiat = strings.ToLower(strings.TrimSpace(fiat))
	if fiat == "" {
		return 0, errors.New("fiat currency is required")
	}
	key := rateCacheKey(settlementCoin, fiat)
	rate, err := c.cache.Get(ctx, key)
	if err == nil && rate > 0 {
		return rate, nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("rate cache read failed", "key", key, "error", err)
	}

	rate, err = c.fetch(ctx, fiat)
	if err != nil {
		return 0, err
	}
	if err := c.cache.Set(ctx, key, rate, c.ttl); err != nil {
		c.logger.Warn("rate cache write failed", "key", key, "error", err)
	}
	return rate, nil
}

func (c *CoinGeckoConverter) fetch(ctx context.Context, fiat string) (float64, error) {
	q := url.Values{}
	q.Set("ids", settlementCoin)
	q.Set("vs_currencies", fiat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch rate from coingecko: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko api returned status: %d", resp.StatusCode)
	}

	var data map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("failed to decode coingecko response: %w", err)
	}
	rate := data[settlementCoin][fiat]
	if rate <= 0 {
		return 0, fmt.Errorf("coingecko has no %s rate for %s", settlementCoin, fiat)
	}
	return rate, nil
}
