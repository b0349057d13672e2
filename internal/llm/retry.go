package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type retryClient struct {
	next            Client
	maxRetries      uint64
	initialInterval time.Duration
}

// NewRetryClient wraps next so transient provider failures are retried up
// to maxRetries times. Malformed output is never retried.
func NewRetryClient(next Client, maxRetries uint64, initialInterval time.Duration) Client {
	if initialInterval <= 0 {
		initialInterval = 500 * time.Millisecond
	}
	return &retryClient{next: next, maxRetries: maxRetries, initialInterval: initialInterval}
}

func (c *retryClient) Model() string {
	return c.next.Model()
}

func (c *retryClient) Complete(ctx context.Context, req Request) (*Response, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	var resp *Response
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		r, err := c.next.Complete(ctx, req)
		if err != nil {
			if !IsTransient(err) {
				return backoff.Permanent(err)
			}
			slog.Warn("llm call failed, retrying", "attempt", attempt, "error", err)
			return err
		}
		resp = r
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
