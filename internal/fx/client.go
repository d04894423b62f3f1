// Package fx fetches live exchange rates from an exchangerate-api style
// service (GET {base}/latest/{currency} returning {"rates": {...}}).
package fx

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/retry"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds a single rate lookup
const DefaultTimeout = 10 * time.Second

// StatusError is a non-200 response from the rate service
type StatusError struct {
	Code int
	Base string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("exchange rate service returned status %d for %s", e.Code, e.Base)
}

// HTTPStatus returns the response status code
func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// Client looks up exchange rates. Throttled or malformed responses are
// retried with backoff; every other failure is returned immediately.
type Client struct {
	http      *resty.Client
	retryOpts []retry.Option
	log       zerolog.Logger
}

// NewClient creates a Client for the service at baseURL
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger, opts ...retry.Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		log: log.With().Str("component", "fx").Logger(),
	}
	c.retryOpts = append([]retry.Option{
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			c.log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("exchange rate lookup throttled, retrying")
		}),
	}, opts...)
	return c
}

// Rates returns units of each currency per one unit of base
func (c *Client) Rates(ctx context.Context, base string) (map[string]float64, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return nil, fmt.Errorf("base currency is required")
	}
	return retry.DoValue(ctx, func() (map[string]float64, error) {
		return c.fetch(ctx, base)
	}, c.retryOpts...)
}

func (c *Client) fetch(ctx context.Context, base string) (map[string]float64, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("base", base).
		Get("/latest/{base}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange rates for %s: %w", base, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode(), Base: base}
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("malformed exchange rate response for %s", base)
	}
	result := gjson.GetBytes(body, "rates")
	if !result.IsObject() {
		return nil, fmt.Errorf("exchange rate response for %s has no rates", base)
	}

	rates := make(map[string]float64)
	result.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			rates[strings.ToUpper(key.String())] = value.Float()
		}
		return true
	})

	c.log.Debug().Str("base", base).Int("currencies", len(rates)).Msg("fetched exchange rates")
	return rates, nil
}
