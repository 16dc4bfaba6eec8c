package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const userAgent = "hot-swap-bot/1.0"

// RestClient is a rate-limited JSON client shared by the market data sources.
type RestClient struct {
	client     *resty.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// ClientOptions configures a RestClient.
type ClientOptions struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimit      float64 // requests per second
	RateLimitBurst int
	// MaxRetries is the number of attempts per request; 1 disables retries.
	MaxRetries int
	// RetryBackoff is the first retry delay, doubled per attempt. Defaults to 1s.
	RetryBackoff time.Duration
}

// NewRestClient creates a new market data REST client.
func NewRestClient(opts ClientOptions, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimitBurst)

	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}

	return &RestClient{
		client:     client,
		logger:     logger,
		limiter:    limiter,
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
	}
}

// get performs a GET decoding the JSON body into result.
func (c *RestClient) get(ctx context.Context, path string, query map[string]string, result interface{}) error {
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(result)

	_, err := c.doRequest(ctx, http.MethodGet, path, req)
	return err
}

// doRequest executes req, waiting on the rate limiter before every attempt.
// 429 and 5xx responses and transport errors are retried; other statuses fail at once.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err := req.Execute(method, url)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		delay, retryable := c.retryDelay(resp, err, attempt)
		if err == nil {
			err = fmt.Errorf("request failed with status %s: %s", resp.Status(), truncate(resp.String(), 200))
		}
		lastErr = err

		if !retryable || attempt == c.maxRetries-1 {
			break
		}

		c.logger.Warn("Market data request failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Duration("retry_after", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	if c.maxRetries > 1 {
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
	}
	return nil, lastErr
}

// retryDelay reports whether the failed attempt may be retried and how long to
// wait first. A Retry-After header wins over exponential backoff.
func (c *RestClient) retryDelay(resp *resty.Response, err error, attempt int) (time.Duration, bool) {
	backoff := c.backoff << attempt

	if err != nil || resp == nil {
		return backoff, true
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests:
		if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second, true
		}
		return backoff, true
	case code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
