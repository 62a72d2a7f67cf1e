// Package federated verifies identity tokens issued by external providers and
// normalises them into a verified email address.
package federated

import (
	"context"
	"net/http"
	"time"

	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/rs/zerolog/log"
)

type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

const defaultTimeout = 10 * time.Second

// Identity is the result of a successful external verification.
type Identity struct {
	Email    string
	Provider Provider
	Subject  string // provider specific user id, when the provider supplies one
}

// Verifier validates a client presented credential with an external provider.
// Every failure is reported as an Unauthorized error; the reason is only logged.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
	Provider() Provider
}

type options struct {
	client  *http.Client
	timeout time.Duration
	nowFunc func() time.Time
}

// Option configures the transport and clock of a verifier.
type Option func(*options)

// WithHTTPClient sets the client used for calls to the provider.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithTimeout bounds each call to the provider.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = defaultTimeout
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: o.timeout}
	}
	if o.nowFunc == nil {
		o.nowFunc = time.Now
	}
	return o
}

// reject logs the granular reason and returns the opaque failure.
func reject(provider Provider, reason string, err error) error {
	log.Warn().Err(err).Str("provider", string(provider)).Str("reason", reason).Msg("federated verification failed")
	return apperr.Unauthorized("federated." + string(provider))
}
