// Package llm talks to an OpenAI-compatible chat completions endpoint and
// decodes the JSON the Gatekeeper asks the model to produce.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrProviderUnavailable covers network, auth and upstream failures.
	ErrProviderUnavailable = errors.New("language model provider unavailable")
	// ErrMalformedResponse means the model answered but not with usable JSON.
	ErrMalformedResponse = errors.New("malformed language model response")
)

// Request is a single system + user exchange.
type Request struct {
	System      string
	User        string
	JSON        bool // ask for response_format json_object
	Temperature float64
	MaxTokens   int
}

type Response struct {
	Content      string
	Model        string
	FinishReason string
}

type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	Headers     map[string]string
}

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrProviderUnavailable
}

// Transient reports whether repeating the call may succeed.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient reports whether err is a provider failure worth one more try.
// Auth and validation failures and caller cancellation are not.
func IsTransient(err error) bool {
	if err == nil || !errors.Is(err, ErrProviderUnavailable) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Transient()
	}
	return true
}
