package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	FederatedConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type AuthConfig interface {
	GetSecretKey() string
	GetDefaultTokenExpiry() time.Duration
	GetLoginTokenExpiry() time.Duration
	GetLoginRate() float64
	GetLoginBurst() int
}

type FederatedConfig interface {
	GetGoogleTokenInfoURL() string
	GetGoogleAudienceSuffix() string
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURL() string
	GetAppleKeysURL() string
	GetAppleAppID() string
	GetAppleKeyTTL() time.Duration
	GetExternalCallTimeout() time.Duration
}

type StorageConfig interface {
	GetDatabaseURL() string
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	Federated
}

func New() Config {
	return mainConfig{}
}
