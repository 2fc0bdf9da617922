package dropcontact

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxWait      = 60 * time.Second
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	maxWait  time.Duration
}

// WithPollInterval overrides the delay between status checks.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxWait bounds how long a batch is waited for.
func WithMaxWait(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

// ErrNotReady is returned when a batch has not finished within the wait.
var ErrNotReady = eris.New("dropcontact: batch not ready")

// Poll checks a batch until it completes with data, the wait expires or
// ctx is canceled. Status checks are spaced by a rate limiter so the
// first one happens immediately.
func Poll(ctx context.Context, client Client, requestID string, opts ...PollOption) (*BatchResult, error) {
	cfg := pollConfig{interval: defaultPollInterval, maxWait: defaultMaxWait}
	for _, o := range opts {
		o(&cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.maxWait)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(cfg.interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(ErrNotReady, "request %s", requestID)
		}

		res, err := client.GetBatch(ctx, requestID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrapf(ErrNotReady, "request %s", requestID)
			}
			return nil, eris.Wrapf(err, "dropcontact: poll %s", requestID)
		}
		if res.Done() {
			return res, nil
		}
		if res.Error {
			return nil, eris.Errorf("dropcontact: batch %s failed: %s", requestID, res.Reason)
		}
	}
}

// Enrich submits one company and waits for its contacts.
func Enrich(ctx context.Context, client Client, req BatchRequest, opts ...PollOption) (*Enrichment, error) {
	sub, err := client.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := Poll(ctx, client, sub.RequestID, opts...)
	if err != nil {
		return nil, err
	}
	return &res.Data[0], nil
}
