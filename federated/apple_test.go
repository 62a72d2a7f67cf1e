package federated_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/andygonzalez6/Bandaid/federated"
	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testAppID = "com.example.bandaid"

type appleFixture struct {
	key      testKey
	server   *keyServer
	clock    *testClock
	cache    *federated.KeyCache
	verifier *federated.AppleVerifier
}

func setupAppleFixture(t *testing.T, keys ...testKey) *appleFixture {
	t.Helper()
	if len(keys) == 0 {
		keys = []testKey{newTestKey(t, "k1")}
	}
	server := newKeyServer(t, keys...)
	clock := newTestClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	cache := federated.NewKeyCache(server.URL, time.Hour, federated.WithNowFunc(clock.Now))
	return &appleFixture{
		key:      keys[0],
		server:   server,
		clock:    clock,
		cache:    cache,
		verifier: federated.NewAppleVerifier(cache, testAppID, federated.WithNowFunc(clock.Now)),
	}
}

func (f *appleFixture) claims() jwt.MapClaims {
	now := f.clock.Now()
	return jwt.MapClaims{
		"iss":   federated.AppleIssuer,
		"aud":   testAppID,
		"sub":   "001234.apple",
		"email": "jane@privaterelay.appleid.com",
		"iat":   now.Unix(),
		"exp":   now.Add(10 * time.Minute).Unix(),
	}
}

func TestAppleVerifier_Verify(t *testing.T) {
	f := setupAppleFixture(t)

	id, err := f.verifier.Verify(context.Background(), f.key.sign(t, f.claims()))
	require.NoError(t, err)
	require.Equal(t, "jane@privaterelay.appleid.com", id.Email)
	require.Equal(t, federated.ProviderApple, id.Provider)
	require.Equal(t, "001234.apple", id.Subject)
	require.Equal(t, federated.ProviderApple, f.verifier.Provider())
}

func TestAppleVerifier_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, f *appleFixture, c jwt.MapClaims) string
	}{
		{
			name: "wrong audience",
			mutate: func(t *testing.T, f *appleFixture, c jwt.MapClaims) string {
				c["aud"] = "com.someone.else"
				return f.key.sign(t, c)
			},
		},
		{
			name: "wrong issuer",
			mutate: func(t *testing.T, f *appleFixture, c jwt.MapClaims) string {
				c["iss"] = "https://accounts.google.com"
				return f.key.sign(t, c)
			},
		},
		{
			name: "expired",
			mutate: func(t *testing.T, f *appleFixture, c jwt.MapClaims) string {
				c["exp"] = f.clock.Now().Add(-time.Minute).Unix()
				return f.key.sign(t, c)
			},
		},
		{
			name: "missing email",
			mutate: func(t *testing.T, f *appleFixture, c jwt.MapClaims) string {
				delete(c, "email")
				return f.key.sign(t, c)
			},
		},
		{
			name: "unknown signing key",
			mutate: func(t *testing.T, f *appleFixture, c jwt.MapClaims) string {
				return newTestKey(t, "k1").sign(t, c)
			},
		},
		{
			name: "not a jwt",
			mutate: func(t *testing.T, f *appleFixture, c jwt.MapClaims) string {
				return "not.a.token"
			},
		},
		{
			name: "empty",
			mutate: func(t *testing.T, f *appleFixture, c jwt.MapClaims) string {
				return ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAppleFixture(t)
			_, err := f.verifier.Verify(context.Background(), tt.mutate(t, f, f.claims()))
			require.Error(t, err)
			require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
			require.EqualError(t, err, "[federated.apple] authentication failed")
		})
	}
}

func TestAppleVerifier_MissingAppID(t *testing.T) {
	f := setupAppleFixture(t)
	v := federated.NewAppleVerifier(federated.NewKeyCache(f.server.URL, time.Hour), "")

	_, err := v.Verify(context.Background(), f.key.sign(t, f.claims()))
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	require.Zero(t, f.server.fetches.Load())
}

func TestAppleVerifier_SelectsKeyByKid(t *testing.T) {
	first, second := newTestKey(t, "k1"), newTestKey(t, "k2")
	f := setupAppleFixture(t, first, second)

	_, err := f.verifier.Verify(context.Background(), second.sign(t, f.claims()))
	require.NoError(t, err)

	// without a kid the first published key is used
	anonymous := testKey{priv: first.priv}
	_, err = f.verifier.Verify(context.Background(), anonymous.sign(t, f.claims()))
	require.NoError(t, err)
}

func TestKeyCache_ReusesUntilStale(t *testing.T) {
	f := setupAppleFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.verifier.Verify(ctx, f.key.sign(t, f.claims()))
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, f.server.fetches.Load())

	f.clock.Advance(59 * time.Minute)
	_, err := f.verifier.Verify(ctx, f.key.sign(t, f.claims()))
	require.NoError(t, err)
	require.EqualValues(t, 1, f.server.fetches.Load())

	f.clock.Advance(2 * time.Minute)
	_, err = f.verifier.Verify(ctx, f.key.sign(t, f.claims()))
	require.NoError(t, err)
	require.EqualValues(t, 2, f.server.fetches.Load())
}

func TestKeyCache_ConcurrentRefreshFetchesOnce(t *testing.T) {
	f := setupAppleFixture(t)
	token := f.key.sign(t, f.claims())

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.verifier.Verify(context.Background(), token)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, f.server.fetches.Load())
}

func TestKeyCache_RefreshOutlivesCallerContext(t *testing.T) {
	f := setupAppleFixture(t)
	f.server.delay.Store(int64(200 * time.Millisecond))

	shortCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	shortErr := make(chan error, 1)
	go func() {
		_, err := f.cache.Key(shortCtx, f.key.kid)
		shortErr <- err
	}()

	// join the refresh the short caller started
	time.Sleep(10 * time.Millisecond)
	key, err := f.cache.Key(context.Background(), f.key.kid)
	require.NoError(t, err)
	require.Zero(t, f.key.priv.PublicKey.N.Cmp(key.N))

	require.ErrorIs(t, <-shortErr, context.DeadlineExceeded)
	require.EqualValues(t, 1, f.server.fetches.Load())
}

func TestKeyCache_FetchFailure(t *testing.T) {
	f := setupAppleFixture(t)
	f.server.status.Store(500)

	_, err := f.verifier.Verify(context.Background(), f.key.sign(t, f.claims()))
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// a failed fetch is not cached
	f.server.status.Store(200)
	_, err = f.verifier.Verify(context.Background(), f.key.sign(t, f.claims()))
	require.NoError(t, err)
	require.EqualValues(t, 2, f.server.fetches.Load())
}
