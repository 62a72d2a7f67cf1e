package config

import "time"

const (
	secretKeyVar          = "AUTH_SECRET_KEY"
	defaultTokenExpiryVar = "AUTH_DEFAULT_TOKEN_TTL"
	loginTokenExpiryVar   = "AUTH_LOGIN_TOKEN_TTL"
	loginRateVar          = "AUTH_LOGIN_RATE"
	loginBurstVar         = "AUTH_LOGIN_BURST"
)

type Auth struct{}

var _ AuthConfig = Auth{}

// GetSecretKey returns the HS256 session secret. Empty means unset; the
// caller decides whether a development fallback is acceptable.
func (Auth) GetSecretKey() string {
	return GetEnv(secretKeyVar, "")
}

func (Auth) GetDefaultTokenExpiry() time.Duration {
	return GetDuration(defaultTokenExpiryVar, 45*time.Minute)
}

func (Auth) GetLoginTokenExpiry() time.Duration {
	return GetDuration(loginTokenExpiryVar, 60*time.Minute)
}

// GetLoginRate is the per client request rate, per second, allowed on the
// credential endpoints. Zero disables the limit.
func (Auth) GetLoginRate() float64 {
	return GetFloat(loginRateVar, 5)
}

func (Auth) GetLoginBurst() int {
	return GetInt(loginBurstVar, 10)
}
