package price

import (
	"context"
	"fmt"
	"time"

	"hot-swap-bot-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Quoter is the slice of the exchange client needed for on-chain pricing.
type Quoter interface {
	Quote(ctx context.Context, path []string, amountIn decimal.Decimal) (decimal.Decimal, error)
	WrappedNative() string
}

// OnChainSource prices one whole token in the native asset with a router quote.
type OnChainSource struct {
	quoter Quoter
}

func NewOnChainSource(q Quoter) *OnChainSource {
	return &OnChainSource{quoter: q}
}

func (s *OnChainSource) Name() string { return "on-chain quote" }

// FetchPrice quotes token -> wrapped native for an input of one token.
func (s *OnChainSource) FetchPrice(ctx context.Context, tokenAddress string) (Quote, error) {
	out, err := s.quoter.Quote(ctx, []string{tokenAddress, s.quoter.WrappedNative()}, decimal.NewFromInt(1))
	if err != nil {
		return Quote{}, err
	}
	p, _ := out.Float64()
	return Quote{Price: p}, nil
}

// NativeSource fetches the USD price of the chain's native asset.
type NativeSource interface {
	FetchNativeUSD(ctx context.Context) (float64, error)
}

// NativeCacheKey is the cache key of the native asset's USD price.
const NativeCacheKey = "native:usd"

// NativePricer serves the native asset's USD price from cache while fresh.
type NativePricer struct {
	logger *zap.Logger
	source NativeSource
	cache  *Cache
}

func NewNativePricer(logger *zap.Logger, source NativeSource, cache *Cache) *NativePricer {
	return &NativePricer{logger: logger.Named("native-pricer"), source: source, cache: cache}
}

// Price returns a fresh cached value, else fetches one; on fetch failure it
// falls back to any cached value.
func (p *NativePricer) Price(ctx context.Context) (Resolution, error) {
	if entry, ok := p.cache.GetFresh(NativeCacheKey); ok {
		return Resolution{Price: entry.Price, Source: SourceCached, FetchedAt: entry.FetchedAt}, nil
	}

	usd, err := p.source.FetchNativeUSD(ctx)
	if err == nil && usd > 0 {
		entry := p.cache.Set(NativeCacheKey, usd)
		return Resolution{Price: entry.Price, Source: SourceSecondary, FetchedAt: entry.FetchedAt}, nil
	}
	if err == nil {
		err = fmt.Errorf("non-positive native price %v", usd)
	}

	if entry, ok := p.cache.Get(NativeCacheKey); ok {
		p.logger.Warn("Using stale native price", zap.Duration("age", time.Since(entry.FetchedAt)), zap.Error(err))
		return Resolution{Price: entry.Price, Source: SourceCached, FetchedAt: entry.FetchedAt}, nil
	}
	return Resolution{}, models.NewPriceUnavailable("native asset price unavailable", err)
}
