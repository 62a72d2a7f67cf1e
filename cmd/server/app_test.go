package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andygonzalez6/Bandaid/internal/config"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, env, secret string) {
	t.Helper()
	t.Setenv("ENV", env)
	t.Setenv("AUTH_SECRET_KEY", secret)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
}

func TestSessionSecret(t *testing.T) {
	setEnv(t, "PROD", "")
	_, err := sessionSecret(config.New())
	require.Error(t, err)

	setEnv(t, "PROD", "s3cret")
	secret, err := sessionSecret(config.New())
	require.NoError(t, err)
	require.Equal(t, "s3cret", secret)

	setEnv(t, "DEV", "")
	secret, err = sessionSecret(config.New())
	require.NoError(t, err)
	require.Equal(t, devSecretKey, secret)
}

func TestBuildApp_InMemory(t *testing.T) {
	setEnv(t, "DEV", "")

	a, err := buildApp(context.Background(), config.New())
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"email":"a@example.com","password":"pw"}`)
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signup", body))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestBuildApp_RequiresSecretOutsideDev(t *testing.T) {
	setEnv(t, "PROD", "")
	_, err := buildApp(context.Background(), config.New())
	require.Error(t, err)
}

func TestTokenCmd(t *testing.T) {
	setEnv(t, "PROD", "s3cret")

	cmd := tokenCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--email", "a@example.com", "--ttl", "5m"})
	require.NoError(t, cmd.Execute())

	codec, err := newCodec(config.New())
	require.NoError(t, err)
	claims, err := codec.Decode(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	require.Equal(t, "a@example.com", claims.Subject)
	require.Contains(t, errOut.String(), "expires")
}
