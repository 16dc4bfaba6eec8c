package marketdata

import (
	"context"
	"fmt"
	"strings"

	"hot-swap-bot-go/internal/config"
	"hot-swap-bot-go/internal/price"

	"go.uber.org/zap"
)

// DexScreener reads pair data from the public DexScreener API.
// It is the secondary price source: a single attempt per call, the resolver owns retries.
type DexScreener struct {
	rest          *RestClient
	chainSlug     string
	wrappedNative string
	logger        *zap.Logger
}

var _ price.Source = (*DexScreener)(nil)

// NewDexScreener creates the DexScreener source for the configured chain.
func NewDexScreener(cfg *config.Market, wrappedNative string, logger *zap.Logger) *DexScreener {
	l := logger.Named("dexscreener")
	rest := NewRestClient(ClientOptions{
		BaseURL:        cfg.DexScreenerURL,
		Timeout:        cfg.Timeout(),
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxRetries:     1,
	}, l)
	return &DexScreener{rest: rest, chainSlug: cfg.ChainSlug, wrappedNative: wrappedNative, logger: l}
}

type dexToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type dexPair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	PairAddress string   `json:"pairAddress"`
	BaseToken   dexToken `json:"baseToken"`
	QuoteToken  dexToken `json:"quoteToken"`
	PriceNative string   `json:"priceNative"`
	PriceUsd    string   `json:"priceUsd"`
	Liquidity   struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
}

type tokenPairsResponse struct {
	Pairs []dexPair `json:"pairs"`
}

func (d *DexScreener) Name() string { return "dexscreener" }

// FetchPrice returns the token price in the native asset taken from the most
// liquid pair quoted against the wrapped native token.
func (d *DexScreener) FetchPrice(ctx context.Context, tokenAddress string) (price.Quote, error) {
	var resp tokenPairsResponse
	if err := d.rest.get(ctx, "/latest/dex/tokens/"+tokenAddress, nil, &resp); err != nil {
		return price.Quote{}, fmt.Errorf("failed to fetch pairs for %s: %w", tokenAddress, err)
	}

	best := d.bestPair(resp.Pairs, tokenAddress)
	if best == nil {
		return price.Quote{}, fmt.Errorf("no %s pair quoted in native asset for %s", d.chainSlug, tokenAddress)
	}

	p, err := price.ParsePriceText(best.PriceNative)
	if err != nil {
		return price.Quote{}, err
	}

	d.logger.Debug("Fetched pair price",
		zap.String("token", tokenAddress),
		zap.String("pair", best.PairAddress),
		zap.Float64("price", p))

	return price.Quote{
		Price:     p,
		Liquidity: best.Liquidity.Usd,
		Volume24h: best.Volume.H24,
		Name:      best.BaseToken.Name,
		Symbol:    best.BaseToken.Symbol,
	}, nil
}

func (d *DexScreener) bestPair(pairs []dexPair, tokenAddress string) *dexPair {
	var best *dexPair
	for i := range pairs {
		p := &pairs[i]
		if p.ChainID != d.chainSlug ||
			!strings.EqualFold(p.BaseToken.Address, tokenAddress) ||
			!strings.EqualFold(p.QuoteToken.Address, d.wrappedNative) {
			continue
		}
		if best == nil || p.Liquidity.Usd > best.Liquidity.Usd {
			best = p
		}
	}
	return best
}
