package main

import (
	"context"
	"net/http"

	"github.com/andygonzalez6/Bandaid/auth"
	"github.com/andygonzalez6/Bandaid/chats"
	fakechatrepo "github.com/andygonzalez6/Bandaid/chats/repofake"
	"github.com/andygonzalez6/Bandaid/federated"
	"github.com/andygonzalez6/Bandaid/internal/config"
	"github.com/andygonzalez6/Bandaid/relay"
	"github.com/andygonzalez6/Bandaid/server"
	"github.com/andygonzalez6/Bandaid/storage/pgstore"
	"github.com/andygonzalez6/Bandaid/token"
	"github.com/andygonzalez6/Bandaid/users"
	fakeuserrepo "github.com/andygonzalez6/Bandaid/users/repofake"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const devSecretKey = "bandaid-development-secret"

// app is the wired service graph.
type app struct {
	handler http.Handler
	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}

// sessionSecret returns the configured signing secret. Outside DEV a missing
// secret is fatal.
func sessionSecret(c config.Config) (string, error) {
	secret := c.GetSecretKey()
	if secret != "" {
		return secret, nil
	}
	if c.GetEnv() != "DEV" {
		return "", errors.New("AUTH_SECRET_KEY must be set outside DEV")
	}
	log.Warn().Msg("AUTH_SECRET_KEY not set, using the development secret")
	return devSecretKey, nil
}

func newCodec(c config.Config) (*token.Codec, error) {
	secret, err := sessionSecret(c)
	if err != nil {
		return nil, err
	}
	return token.NewCodec(token.NewHMACSigner(secret), token.WithDefaultExpiry(c.GetDefaultTokenExpiry())), nil
}

// openStores selects PostgreSQL when DATABASE_URL is set and the in-memory
// stores otherwise.
func openStores(ctx context.Context, c config.Config) (users.Directory, chats.Store, func() error, error) {
	dsn := c.GetDatabaseURL()
	if dsn == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory stores")
		return fakeuserrepo.NewFakeUserRepo(), fakechatrepo.NewFakeChatRepo(), func() error { return nil }, nil
	}

	gdb, err := pgstore.Connect(ctx, dsn)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := pgstore.Migrate(gdb); err != nil {
		return nil, nil, nil, errors.Wrap(err, "migrate")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "database handle")
	}
	return pgstore.NewUserStore(gdb), pgstore.NewChatStore(gdb), sqlDB.Close, nil
}

func federatedVerifiers(ctx context.Context, c config.Config) (google, googleCode, apple federated.Verifier) {
	timeout := federated.WithTimeout(c.GetExternalCallTimeout())

	google = federated.NewGoogleTokenInfoVerifier(c.GetGoogleTokenInfoURL(), c.GetGoogleAudienceSuffix(), timeout)

	keys := federated.NewKeyCache(c.GetAppleKeysURL(), c.GetAppleKeyTTL(), timeout)
	if c.GetAppleAppID() == "" {
		log.Warn().Msg("APPLE_APP_ID not set, apple sign in will reject every token")
	}
	apple = federated.NewAppleVerifier(keys, c.GetAppleAppID(), timeout)

	if c.GetGoogleClientID() != "" && c.GetGoogleClientSecret() != "" {
		v, err := federated.NewGoogleCodeVerifier(ctx, c.GetGoogleClientID(), c.GetGoogleClientSecret(), c.GetGoogleRedirectURL(), timeout)
		if err != nil {
			log.Warn().Err(err).Msg("google code exchange disabled")
		} else {
			googleCode = v
		}
	}
	return google, googleCode, apple
}

func buildApp(ctx context.Context, c config.Config) (*app, error) {
	codec, err := newCodec(c)
	if err != nil {
		return nil, err
	}

	directory, store, closeStores, err := openStores(ctx, c)
	if err != nil {
		return nil, err
	}
	a := &app{closers: []func() error{closeStores}}

	authService, err := auth.NewService(directory, codec, auth.WithLoginExpiry(c.GetLoginTokenExpiry()))
	if err != nil {
		a.Close()
		return nil, err
	}

	metrics := server.NewMetrics()
	rl, err := relay.New(authService, directory, store, relay.NewRegistry(), relay.WithMetrics(metrics))
	if err != nil {
		a.Close()
		return nil, err
	}

	google, googleCode, apple := federatedVerifiers(ctx, c)
	srv, err := server.New(c, server.Services{
		Auth:       authService,
		Relay:      rl,
		Users:      directory,
		Chats:      store,
		Google:     google,
		GoogleCode: googleCode,
		Apple:      apple,
		Metrics:    metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.closers = append(a.closers, func() error {
		srv.Close()
		return nil
	})
	a.handler = srv
	return a, nil
}
