package federated

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	GoogleIssuer          = "https://accounts.google.com"
	DefaultGoogleTokenURL = "https://oauth2.googleapis.com/tokeninfo"
	maxTokenInfoBytes     = 1 << 20
)

// googleTokenInfo is the subset of the tokeninfo response that is checked.
type googleTokenInfo struct {
	Alg           string `json:"alg"`
	Typ           string `json:"typ"`
	Iss           string `json:"iss"`
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
}

// GoogleTokenInfoVerifier delegates ID token validation to Google's tokeninfo
// endpoint and checks the returned metadata. No local signature check is made.
type GoogleTokenInfoVerifier struct {
	tokenInfoURL   string
	audienceSuffix string
	opts           options
}

var _ Verifier = (*GoogleTokenInfoVerifier)(nil)

func NewGoogleTokenInfoVerifier(tokenInfoURL, audienceSuffix string, opts ...Option) *GoogleTokenInfoVerifier {
	if tokenInfoURL == "" {
		tokenInfoURL = DefaultGoogleTokenURL
	}
	return &GoogleTokenInfoVerifier{
		tokenInfoURL:   tokenInfoURL,
		audienceSuffix: audienceSuffix,
		opts:           newOptions(opts),
	}
}

func (g *GoogleTokenInfoVerifier) Provider() Provider {
	return ProviderGoogle
}

func (g *GoogleTokenInfoVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, reject(ProviderGoogle, "missing id token", nil)
	}

	info, err := g.tokenInfo(ctx, idToken)
	if err != nil {
		return nil, reject(ProviderGoogle, "cannot authenticate with google auth server", err)
	}

	if info.Alg != "RS256" || info.Typ != "JWT" || info.Iss != GoogleIssuer || !isTrue(info.EmailVerified) {
		return nil, reject(ProviderGoogle, "incorrect id token metadata",
			fmt.Errorf("alg=%q typ=%q iss=%q email_verified=%v", info.Alg, info.Typ, info.Iss, info.EmailVerified))
	}
	if g.audienceSuffix == "" || !strings.HasSuffix(info.Aud, g.audienceSuffix) {
		return nil, reject(ProviderGoogle, "incorrect id token origin", fmt.Errorf("aud=%q", info.Aud))
	}
	if strings.TrimSpace(info.Email) == "" {
		return nil, reject(ProviderGoogle, "id token has no email", nil)
	}

	return &Identity{
		Email:    strings.TrimSpace(info.Email),
		Provider: ProviderGoogle,
		Subject:  info.Sub,
	}, nil
}

func (g *GoogleTokenInfoVerifier) tokenInfo(ctx context.Context, idToken string) (*googleTokenInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.timeout)
	defer cancel()

	u, err := url.Parse(g.tokenInfoURL)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo url: %w", err)
	}
	q := u.Query()
	q.Set("id_token", idToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request: %w", err)
	}

	resp, err := g.opts.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxTokenInfoBytes))
		return nil, fmt.Errorf("tokeninfo returned status %d", resp.StatusCode)
	}

	var info googleTokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenInfoBytes)).Decode(&info); err != nil {
		return nil, fmt.Errorf("tokeninfo decode: %w", err)
	}
	return &info, nil
}

// tokeninfo reports booleans as strings; anything but "true" is rejected.
func isTrue(v any) bool {
	s, ok := v.(string)
	return ok && s == "true"
}
