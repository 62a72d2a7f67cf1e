package federated

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// GoogleCodeVerifier exchanges an OAuth2 authorization code with Google and
// verifies the returned ID token locally with the provider's published keys.
type GoogleCodeVerifier struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
	opts     options
}

var _ Verifier = (*GoogleCodeVerifier)(nil)

// NewGoogleCodeVerifier discovers Google's endpoints and keys.
func NewGoogleCodeVerifier(ctx context.Context, clientID, clientSecret, redirectURL string, opts ...Option) (*GoogleCodeVerifier, error) {
	o := newOptions(opts)
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, o.client), GoogleIssuer)
	if err != nil {
		return nil, errors.Wrap(err, "google discovery")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email"},
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID, Now: o.nowFunc})

	return NewGoogleCodeVerifierWith(config, verifier, opts...), nil
}

// NewGoogleCodeVerifierWith builds a verifier from an explicit OAuth2 config
// and ID token verifier.
func NewGoogleCodeVerifierWith(config *oauth2.Config, verifier *oidc.IDTokenVerifier, opts ...Option) *GoogleCodeVerifier {
	return &GoogleCodeVerifier{
		config:   config,
		verifier: verifier,
		opts:     newOptions(opts),
	}
}

func (g *GoogleCodeVerifier) Provider() Provider {
	return ProviderGoogle
}

func (g *GoogleCodeVerifier) Verify(ctx context.Context, code string) (*Identity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, reject(ProviderGoogle, "missing authorization code", nil)
	}

	ctx, cancel := context.WithTimeout(oidc.ClientContext(ctx, g.opts.client), g.opts.timeout)
	defer cancel()

	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, reject(ProviderGoogle, "code exchange failed", err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, reject(ProviderGoogle, "token response has no id_token", nil)
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, reject(ProviderGoogle, "id token verification failed", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, reject(ProviderGoogle, "id token claims unreadable", err)
	}
	if !claims.EmailVerified || strings.TrimSpace(claims.Email) == "" {
		return nil, reject(ProviderGoogle, "email not verified", nil)
	}

	return &Identity{
		Email:    strings.TrimSpace(claims.Email),
		Provider: ProviderGoogle,
		Subject:  idToken.Subject,
	}, nil
}
