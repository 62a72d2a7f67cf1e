// Package auth verifies local and federated credentials and issues session
// tokens for verified identities.
package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/andygonzalez6/Bandaid/federated"
	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/andygonzalez6/Bandaid/token"
	"github.com/andygonzalez6/Bandaid/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultLoginExpiry is the lifetime of tokens minted by Login and FederatedLogin.
	DefaultLoginExpiry = 60 * time.Minute
	TokenTypeBearer    = "bearer"
)

// dummyHash is compared against when an account has no usable password so
// that every failed password check costs one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	hash, err := users.HashPassword("bandaid-password-placeholder")
	if err != nil {
		panic(err)
	}
	return hash
})

// TokenResponse is returned by successful logins.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Service is the credential verifier.
type Service struct {
	users       users.Directory // identity directory
	codec       *token.Codec    // session token issue and decode
	loginExpiry time.Duration
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithLoginExpiry sets the lifetime of tokens minted by a login.
func WithLoginExpiry(expiry time.Duration) ServiceOption {
	return func(s *Service) {
		s.loginExpiry = expiry
	}
}

// NewService initializes a Service with required dependencies.
func NewService(directory users.Directory, codec *token.Codec, options ...ServiceOption) (*Service, error) {
	if directory == nil {
		return nil, errors.New("[NewService] user directory is required")
	}
	if codec == nil {
		return nil, errors.New("[NewService] token codec is required")
	}

	s := &Service{
		users:       directory,
		codec:       codec,
		loginExpiry: DefaultLoginExpiry,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.loginExpiry <= 0 {
		s.loginExpiry = DefaultLoginExpiry
	}
	return s, nil
}

// CreateToken mints a session token for subject. A non-positive ttl uses the
// codec's default expiry.
func (s *Service) CreateToken(subject string, ttl time.Duration) (string, error) {
	raw, _, err := s.codec.Create(subject, ttl)
	if err != nil {
		return "", apperr.E(apperr.KindInternal, "Service.CreateToken", err)
	}
	return raw, nil
}

// VerifyPassword reports whether plaintext matches the user's password hash.
// Missing and federated accounts always fail, after the same amount of work.
func (s *Service) VerifyPassword(user *users.User, plaintext string) bool {
	if !user.CanUsePassword() {
		_ = users.CheckPasswordHash(plaintext, dummyHash())
		return false
	}
	return users.CheckPasswordHash(plaintext, user.PasswordHash)
}

// Signup creates a local password identity.
func (s *Service) Signup(ctx context.Context, email, password string) (*users.User, error) {
	email, password, err := users.ValidateCredentials(email, password)
	if err != nil {
		return nil, err
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, apperr.E(apperr.KindInternal, "Service.Signup", errors.Wrap(err, "hash password"))
	}

	user, err := s.users.Create(ctx, email, hash, false)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindAlreadyExists {
			return nil, err
		}
		return nil, apperr.E(apperr.KindInternal, "Service.Signup", err)
	}

	log.Info().Int64("user_id", user.ID).Msg("local identity created")
	return user, nil
}

// Login checks a local password and issues a login token. Unknown accounts,
// federated accounts and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	email = strings.TrimSpace(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !isNotFound(err) {
		return nil, apperr.E(apperr.KindInternal, "Service.Login", err)
	}

	if !s.VerifyPassword(user, password) {
		log.Debug().Str("email", email).Msg("password login rejected")
		return nil, errInvalidLogin()
	}

	return s.issue(user.Email, "Service.Login")
}

// FederatedLogin verifies credential with verifier and issues a login token
// for the verified email, provisioning a federated identity on first use.
func (s *Service) FederatedLogin(ctx context.Context, verifier federated.Verifier, credential string) (*TokenResponse, error) {
	if verifier == nil {
		return nil, apperr.Unauthorized("Service.FederatedLogin")
	}

	identity, err := verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}

	user, err := s.ensureIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.issue(user.Email, "Service.FederatedLogin")
}

// Authenticate decodes a session token and resolves its subject.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*users.User, error) {
	claims, err := s.codec.Decode(rawToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if isNotFound(err) {
			log.Debug().Str("subject", claims.Subject).Msg("token subject has no identity")
			return nil, apperr.Unauthorized("Service.Authenticate")
		}
		return nil, apperr.E(apperr.KindInternal, "Service.Authenticate", err)
	}
	return user, nil
}

func (s *Service) ensureIdentity(ctx context.Context, identity *federated.Identity) (*users.User, error) {
	user, err := s.users.FindByEmail(ctx, identity.Email)
	if err == nil {
		return user, nil
	}
	if !isNotFound(err) {
		return nil, apperr.E(apperr.KindInternal, "Service.FederatedLogin", err)
	}

	user, err = s.users.Create(ctx, identity.Email, "", true)
	switch {
	case err == nil:
		log.Info().Int64("user_id", user.ID).Str("provider", string(identity.Provider)).Msg("federated identity provisioned")
		return user, nil
	case apperr.KindOf(err) == apperr.KindAlreadyExists:
		// lost a race with a concurrent first login
		user, err = s.users.FindByEmail(ctx, identity.Email)
		if err == nil {
			return user, nil
		}
	}
	return nil, apperr.E(apperr.KindInternal, "Service.FederatedLogin", err)
}

func (s *Service) issue(subject, op string) (*TokenResponse, error) {
	raw, _, err := s.codec.Create(subject, s.loginExpiry)
	if err != nil {
		return nil, apperr.E(apperr.KindInternal, op, err)
	}
	return &TokenResponse{AccessToken: raw, TokenType: TokenTypeBearer}, nil
}
