package marketdata

import (
	"context"
	"fmt"

	"hot-swap-bot-go/internal/config"
	"hot-swap-bot-go/internal/price"

	"go.uber.org/zap"
)

// CoinGecko fetches the native asset's USD price.
type CoinGecko struct {
	rest   *RestClient
	coinID string
}

var _ price.NativeSource = (*CoinGecko)(nil)

func NewCoinGecko(cfg *config.Market, logger *zap.Logger) *CoinGecko {
	rest := NewRestClient(ClientOptions{
		BaseURL:        cfg.CoinGeckoURL,
		Timeout:        cfg.Timeout(),
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxRetries:     3,
	}, logger.Named("coingecko"))
	return &CoinGecko{rest: rest, coinID: cfg.NativeCoinID}
}

// FetchNativeUSD calls /simple/price for the configured coin.
func (c *CoinGecko) FetchNativeUSD(ctx context.Context) (float64, error) {
	var resp map[string]map[string]float64
	err := c.rest.get(ctx, "/simple/price", map[string]string{
		"ids":           c.coinID,
		"vs_currencies": "usd",
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("failed to get %s price: %w", c.coinID, err)
	}

	usd, ok := resp[c.coinID]["usd"]
	if !ok {
		return 0, fmt.Errorf("no usd price for %s in response", c.coinID)
	}
	return usd, nil
}
