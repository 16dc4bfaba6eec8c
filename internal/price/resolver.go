package price

import (
	"context"
	"fmt"
	"time"

	"hot-swap-bot-go/internal/models"

	"go.uber.org/zap"
)

// SourceKind names where a resolved price came from.
type SourceKind string

const (
	SourcePrimary   SourceKind = "primary"
	SourceSecondary SourceKind = "secondary"
	SourceCached    SourceKind = "cached"
)

// Quote is a price observation for one token, denominated in the native asset.
// Market fields are only filled by sources that know them.
type Quote struct {
	Price     float64 `json:"price"`
	Liquidity float64 `json:"liquidity,omitempty"`
	Volume24h float64 `json:"volume24h,omitempty"`
	Name      string  `json:"name,omitempty"`
	Symbol    string  `json:"symbol,omitempty"`
}

// Source fetches the current price of a token.
type Source interface {
	Name() string
	FetchPrice(ctx context.Context, tokenAddress string) (Quote, error)
}

// Resolution is the outcome of ResolvePrice.
type Resolution struct {
	Price     float64    `json:"price"`
	Source    SourceKind `json:"source"`
	FetchedAt time.Time  `json:"fetchedAt"`
	Quote     *Quote     `json:"quote,omitempty"`
}

// ResolverOptions tunes the secondary retry policy.
type ResolverOptions struct {
	SecondaryAttempts int
	BackoffBase       time.Duration
}

// DefaultResolverOptions returns 3 secondary attempts starting at 500ms.
func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{SecondaryAttempts: 3, BackoffBase: 500 * time.Millisecond}
}

// Resolver resolves token prices through primary, secondary and cached values in that order.
type Resolver struct {
	logger    *zap.Logger
	primary   Source
	secondary Source
	cache     *Cache
	opts      ResolverOptions
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewResolver creates a Resolver. Either source may be nil to skip that stage.
func NewResolver(logger *zap.Logger, primary, secondary Source, cache *Cache, opts ResolverOptions) *Resolver {
	if opts.SecondaryAttempts < 1 {
		opts.SecondaryAttempts = 1
	}
	return &Resolver{
		logger:    logger.Named("price-resolver"),
		primary:   primary,
		secondary: secondary,
		cache:     cache,
		opts:      opts,
		sleep:     sleepContext,
	}
}

// ResolvePrice returns the native-denominated price of tokenAddress. A stale
// cached value is preferred to no value; PriceUnavailable is returned only when
// every source failed and nothing was ever cached for the token.
func (r *Resolver) ResolvePrice(ctx context.Context, tokenAddress string) (Resolution, error) {
	l := r.logger.With(zap.String("token", tokenAddress))

	var lastErr error
	if r.primary != nil {
		q, err := r.primary.FetchPrice(ctx, tokenAddress)
		if err == nil && q.Price > 0 {
			return r.store(tokenAddress, q, SourcePrimary), nil
		}
		lastErr = validPriceErr(r.primary, q, err)
		l.Warn("Primary price source failed, trying secondary", zap.Error(lastErr))
	}

	if r.secondary != nil {
		q, err := r.fetchSecondary(ctx, tokenAddress)
		if err == nil {
			return r.store(tokenAddress, q, SourceSecondary), nil
		}
		lastErr = err
		l.Warn("Secondary price source exhausted", zap.Error(err))
	}

	if entry, ok := r.cache.Get(tokenAddress); ok {
		l.Warn("Using cached price",
			zap.Float64("price", entry.Price),
			zap.Duration("age", time.Since(entry.FetchedAt)))
		return Resolution{Price: entry.Price, Source: SourceCached, FetchedAt: entry.FetchedAt}, nil
	}

	l.Error("All price sources failed and no cached price exists", zap.Error(lastErr))
	return Resolution{}, models.NewPriceUnavailable(
		fmt.Sprintf("no price available for token %s", tokenAddress), lastErr)
}

// CachedPrice returns the cached price for tokenAddress if it is still fresh.
func (r *Resolver) CachedPrice(tokenAddress string) (Resolution, bool) {
	entry, ok := r.cache.GetFresh(tokenAddress)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Price: entry.Price, Source: SourceCached, FetchedAt: entry.FetchedAt}, true
}

// fetchSecondary tries the secondary source with exponential backoff between attempts.
func (r *Resolver) fetchSecondary(ctx context.Context, tokenAddress string) (Quote, error) {
	var lastErr error
	for attempt := 1; attempt <= r.opts.SecondaryAttempts; attempt++ {
		q, err := r.secondary.FetchPrice(ctx, tokenAddress)
		if err == nil && q.Price > 0 {
			return q, nil
		}
		lastErr = validPriceErr(r.secondary, q, err)

		if attempt == r.opts.SecondaryAttempts {
			break
		}
		backoff := r.opts.BackoffBase * time.Duration(1<<(attempt-1))
		r.logger.Warn("Secondary price fetch failed, retrying...",
			zap.String("token", tokenAddress),
			zap.Int("attempt", attempt),
			zap.Duration("retry_after", backoff),
			zap.Error(lastErr))
		if err := r.sleep(ctx, backoff); err != nil {
			return Quote{}, err
		}
	}
	return Quote{}, fmt.Errorf("%s failed after %d attempts: %w", r.secondary.Name(), r.opts.SecondaryAttempts, lastErr)
}

func (r *Resolver) store(tokenAddress string, q Quote, kind SourceKind) Resolution {
	entry := r.cache.Set(tokenAddress, q.Price)
	quote := q
	return Resolution{Price: entry.Price, Source: kind, FetchedAt: entry.FetchedAt, Quote: &quote}
}

func validPriceErr(src Source, q Quote, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", src.Name(), err)
	}
	return fmt.Errorf("%s: non-positive price %v", src.Name(), q.Price)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
