package federated

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	AppleIssuer         = "https://appleid.apple.com"
	DefaultAppleKeysURL = "https://appleid.apple.com/auth/keys"
	DefaultAppleKeyTTL  = 24 * time.Hour
	maxKeySetBytes      = 1 << 20
	keySetFlightKey     = "jwks"
)

type keySnapshot struct {
	keys      []jose.JSONWebKey
	fetchedAt time.Time
}

// KeyCache holds Apple's published signing keys. A snapshot is reused until it
// is older than the TTL; concurrent refreshes collapse into one fetch and no
// lock is held while the fetch is in flight.
type KeyCache struct {
	url  string
	ttl  time.Duration
	opts options

	mu      sync.RWMutex
	current *keySnapshot
	group   singleflight.Group
}

func NewKeyCache(url string, ttl time.Duration, opts ...Option) *KeyCache {
	if url == "" {
		url = DefaultAppleKeysURL
	}
	if ttl <= 0 {
		ttl = DefaultAppleKeyTTL
	}
	return &KeyCache{
		url:  url,
		ttl:  ttl,
		opts: newOptions(opts),
	}
}

// Key returns the RSA key with the given kid, or the first published key when
// kid is empty or unknown.
func (kc *KeyCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	snap, err := kc.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.pick(kid)
}

func (kc *KeyCache) fresh(snap *keySnapshot) bool {
	return snap != nil && kc.opts.nowFunc().Sub(snap.fetchedAt) < kc.ttl
}

func (kc *KeyCache) load() *keySnapshot {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	return kc.current
}

func (kc *KeyCache) snapshot(ctx context.Context) (*keySnapshot, error) {
	if snap := kc.load(); kc.fresh(snap) {
		return snap, nil
	}

	// The fetch outlives any single caller; each caller only waits on its own ctx.
	ch := kc.group.DoChan(keySetFlightKey, func() (any, error) {
		// a flight that finished just before this one may already have refreshed
		if snap := kc.load(); kc.fresh(snap) {
			return snap, nil
		}
		snap, err := kc.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		kc.mu.Lock()
		kc.current = snap
		kc.mu.Unlock()
		log.Debug().Str("url", kc.url).Int("keys", len(snap.keys)).Msg("apple key set refreshed")
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "apple keys wait")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*keySnapshot), nil
	}
}

func (kc *KeyCache) fetch(ctx context.Context) (*keySnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, kc.opts.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, kc.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "apple keys request")
	}
	resp, err := kc.opts.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "apple keys call")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxKeySetBytes))
		return nil, fmt.Errorf("apple keys returned status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxKeySetBytes)).Decode(&set); err != nil {
		return nil, errors.Wrap(err, "apple keys decode")
	}
	if len(set.Keys) == 0 {
		return nil, errors.New("apple key set is empty")
	}
	return &keySnapshot{keys: set.Keys, fetchedAt: kc.opts.nowFunc()}, nil
}

func (s *keySnapshot) pick(kid string) (*rsa.PublicKey, error) {
	key := s.keys[0]
	if kid != "" {
		for _, k := range s.keys {
			if k.KeyID == kid {
				key = k
				break
			}
		}
	}
	pub, ok := key.Key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("apple key %q is not an RSA public key", key.KeyID)
	}
	return pub, nil
}

// AppleVerifier checks an Apple identity token locally against the cached key
// set. The audience must equal the configured app id.
type AppleVerifier struct {
	keys   *KeyCache
	appID  string
	issuer string
	opts   options
}

var _ Verifier = (*AppleVerifier)(nil)

func NewAppleVerifier(keys *KeyCache, appID string, opts ...Option) *AppleVerifier {
	return &AppleVerifier{
		keys:   keys,
		appID:  appID,
		issuer: AppleIssuer,
		opts:   newOptions(opts),
	}
}

func (a *AppleVerifier) Provider() Provider {
	return ProviderApple
}

func (a *AppleVerifier) Verify(ctx context.Context, identityToken string) (*Identity, error) {
	identityToken = strings.TrimSpace(identityToken)
	if identityToken == "" {
		return nil, reject(ProviderApple, "missing identity token", nil)
	}
	if a.appID == "" {
		return nil, reject(ProviderApple, "apple app id is not configured", nil)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(a.appID),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.opts.nowFunc),
	)

	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(identityToken, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return a.keys.Key(ctx, kid)
	})
	if err != nil {
		reason := "unexpected error"
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			reason = "token has expired"
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			reason = "audience did not match app id"
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			reason = "issuer is not apple"
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			reason = "signature is invalid"
		}
		return nil, reject(ProviderApple, reason, err)
	}

	email, _ := claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return nil, reject(ProviderApple, "identity token has no email", nil)
	}
	sub, _ := claims.GetSubject()

	return &Identity{
		Email:    strings.TrimSpace(email),
		Provider: ProviderApple,
		Subject:  sub,
	}, nil
}
