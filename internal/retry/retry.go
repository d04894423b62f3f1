// Package retry retries upstream calls that fail because of rate limiting.
//
// Only rate-limit failures are retried. Anything else is returned on the
// first attempt so callers fail fast.
package retry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults match the upstream provider's throttling window
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// ErrRateLimited marks an error as upstream throttling
var ErrRateLimited = errors.New("rate limited")

// statusCoder is implemented by HTTP errors that carry a status code
type statusCoder interface {
	HTTPStatus() int
}

var rateLimitMarkers = []string{
	"429",
	"too many requests",
	"rate limit",
	"rate-limit",
	"ratelimit",
	"expecting value",
	"unexpected end of json input",
	"malformed",
}

// IsRateLimitError reports whether err looks like upstream throttling: an
// HTTP 429, a "too many requests" message, or a malformed response body of
// the kind throttled endpoints return.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() == http.StatusTooManyRequests {
		return true
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Options configures Do
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// OnRetry is called before each backoff sleep. attempt is zero-based.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Option mutates Options
type Option func(*Options)

// WithMaxAttempts sets the total number of calls, including the first
func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

// WithBaseDelay sets the delay before the first retry
func WithBaseDelay(d time.Duration) Option {
	return func(o *Options) { o.BaseDelay = d }
}

// WithOnRetry registers a hook called before each backoff sleep
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(o *Options) { o.OnRetry = fn }
}

func newOptions(opts []Option) Options {
	o := Options{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	return o
}

// newBackOff sleeps base * 2^attempt before retry number attempt, with no
// jitter and no elapsed-time cap.
func newBackOff(ctx context.Context, o Options) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = o.BaseDelay << uint(o.MaxAttempts)
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.MaxAttempts-1)), ctx)
}

// Do invokes op, retrying rate-limit failures with exponential backoff.
// Exhausting the attempts returns the last error.
func Do(ctx context.Context, op func() error, opts ...Option) error {
	o := newOptions(opts)

	attempt := 0
	operation := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !IsRateLimitError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		if o.OnRetry != nil {
			o.OnRetry(attempt, err, delay)
		}
		attempt++
	}

	return backoff.RetryNotify(operation, newBackOff(ctx, o), notify)
}

// DoValue is Do for operations that return a value
func DoValue[T any](ctx context.Context, op func() (T, error), opts ...Option) (T, error) {
	var result T
	err := Do(ctx, func() error {
		v, err := op()
		if err != nil {
			return err
		}
		result = v
		return nil
	}, opts...)
	return result, err
}
