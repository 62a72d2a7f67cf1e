package config

import "time"

type Federated struct{}

var _ FederatedConfig = Federated{}

func (Federated) GetGoogleTokenInfoURL() string {
	return GetEnv("GOOGLE_TOKENINFO_URL", "https://oauth2.googleapis.com/tokeninfo")
}

func (Federated) GetGoogleAudienceSuffix() string {
	return GetEnv("GOOGLE_AUDIENCE_SUFFIX", "apps.googleusercontent.com")
}

// GetGoogleClientID and GetGoogleClientSecret enable the authorization code
// exchange when both are set.
func (Federated) GetGoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

func (Federated) GetGoogleClientSecret() string {
	return GetEnv("GOOGLE_CLIENT_SECRET", "")
}

func (Federated) GetGoogleRedirectURL() string {
	return GetEnv("GOOGLE_REDIRECT_URL", "postmessage")
}

func (Federated) GetAppleKeysURL() string {
	return GetEnv("APPLE_KEYS_URL", "https://appleid.apple.com/auth/keys")
}

func (Federated) GetAppleAppID() string {
	return GetEnv("APPLE_APP_ID", "")
}

func (Federated) GetAppleKeyTTL() time.Duration {
	return GetDuration("APPLE_KEY_TTL", 24*time.Hour)
}

func (Federated) GetExternalCallTimeout() time.Duration {
	return GetDuration("EXTERNAL_CALL_TIMEOUT", 10*time.Second)
}
