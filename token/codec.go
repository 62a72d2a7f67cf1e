package token

import (
	"strings"
	"time"

	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultExpiry applies when a caller does not ask for a specific lifetime.
const DefaultExpiry = 45 * time.Minute

// Claims is the decoded content of a session token.
type Claims struct {
	Subject   string // account email
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// Codec issues and verifies stateless session tokens. Validity is a function
// of the signature and the expiry alone; there is no revocation list.
type Codec struct {
	signer        Signer
	defaultExpiry time.Duration
	nowFunc       func() time.Time
}

type CodecOption func(*Codec)

func WithDefaultExpiry(expiry time.Duration) CodecOption {
	return func(c *Codec) {
		c.defaultExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

func NewCodec(signer Signer, options ...CodecOption) *Codec {
	c := &Codec{
		signer: signer,
	}

	for _, opt := range options {
		opt(c)
	}

	if c.defaultExpiry <= 0 {
		c.defaultExpiry = DefaultExpiry
	}
	if c.nowFunc == nil {
		c.nowFunc = time.Now
	}
	return c
}

// Create signs a token for subject that expires after ttl, or after the
// default expiry when ttl is not positive.
func (c *Codec) Create(subject string, ttl time.Duration) (string, *Claims, error) {
	if strings.TrimSpace(subject) == "" {
		return "", nil, errors.New("[Codec.Create] subject is required")
	}
	if ttl <= 0 {
		ttl = c.defaultExpiry
	}

	// Tokens carry whole seconds; created and decoded claims must agree.
	now := c.nowFunc().UTC().Truncate(time.Second)
	claims := &Claims{
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		ID:        uuid.New().String(),
	}

	signed, err := c.signer.Sign(jwt.MapClaims{
		"sub": claims.Subject,
		"iat": claims.IssuedAt.Unix(),
		"exp": claims.ExpiresAt.Unix(),
		"jti": claims.ID,
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "Codec.Create")
	}
	return signed, claims, nil
}

// Decode verifies raw and returns its claims. A bad signature, an expired or
// missing exp and a missing sub all yield the same Unauthorized error.
func (c *Codec) Decode(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.Unauthorized("Codec.Decode")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFunc),
	)

	parsed, err := parser.Parse(raw, c.signer.GetVerificationKey)
	if err != nil || !parsed.Valid {
		log.Debug().Err(err).Msg("session token rejected")
		return nil, apperr.Unauthorized("Codec.Decode")
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.Unauthorized("Codec.Decode")
	}

	sub, err := mapClaims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		log.Debug().Msg("session token has no subject")
		return nil, apperr.Unauthorized("Codec.Decode")
	}

	claims := &Claims{Subject: sub}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time.UTC()
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time.UTC()
	}
	claims.ID, _ = mapClaims["jti"].(string)
	return claims, nil
}
