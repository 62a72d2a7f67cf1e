// Package relay routes direct messages between authenticated, connected users.
package relay

import (
	"context"
	"strings"
	"time"

	"github.com/andygonzalez6/Bandaid/chats"
	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/andygonzalez6/Bandaid/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultSendTimeout = 5 * time.Second

// Authenticator resolves a session token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*users.User, error)
}

// Envelope is a client submitted direct message.
type Envelope struct {
	Content    string `json:"content"`
	ReceiverID int64  `json:"receiver_id"`
	AuthToken  string `json:"auth_token"`
}

// Relay admits connections and delivers messages to online receivers.
type Relay struct {
	auth        Authenticator
	users       users.Directory
	chats       chats.Store
	registry    *Registry
	metrics     Metrics
	sendTimeout time.Duration
}

type Option func(*Relay)

func WithMetrics(m Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// WithSendTimeout bounds a single delivery to a receiver's connection.
func WithSendTimeout(timeout time.Duration) Option {
	return func(r *Relay) {
		r.sendTimeout = timeout
	}
}

func New(auth Authenticator, directory users.Directory, store chats.Store, registry *Registry, options ...Option) (*Relay, error) {
	if auth == nil {
		return nil, errors.New("[relay.New] authenticator is required")
	}
	if directory == nil {
		return nil, errors.New("[relay.New] user directory is required")
	}
	if store == nil {
		return nil, errors.New("[relay.New] message store is required")
	}
	if registry == nil {
		registry = NewRegistry()
	}

	r := &Relay{
		auth:        auth,
		users:       directory,
		chats:       store,
		registry:    registry,
		metrics:     nopMetrics{},
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

func (r *Relay) Registry() *Registry {
	return r.registry
}

// Admit authenticates the credential presented when a connection opens.
func (r *Relay) Admit(ctx context.Context, credential string) (*users.User, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, apperr.Unauthorized("Relay.Admit")
	}
	user, err := r.auth.Authenticate(ctx, credential)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Unauthorized("Relay.Admit")
	}
	return user, nil
}

// Attach binds an admitted user to conn and opens a session.
func (r *Relay) Attach(user *users.User, conn Conn) *Session {
	if prev, replaced := r.registry.Bind(user.ID, conn); replaced && prev.ID() != conn.ID() {
		log.Debug().Int64("user_id", user.ID).Str("replaced", prev.ID()).Msg("connection replaced")
	}
	r.metrics.SetOnline(r.registry.Online())
	log.Info().Int64("user_id", user.ID).Str("conn", conn.ID()).Msg("user connected")

	return &Session{relay: r, user: user, conn: conn}
}

// Connect admits credential and attaches conn in one step.
func (r *Relay) Connect(ctx context.Context, credential string, conn Conn) (*Session, error) {
	user, err := r.Admit(ctx, credential)
	if err != nil {
		return nil, err
	}
	return r.Attach(user, conn), nil
}

// Send stores a message from sender to receiverID and delivers it when the
// receiver is online. An offline receiver is not an error.
func (r *Relay) Send(ctx context.Context, sender *users.User, receiverID int64, content string) (*chats.Message, error) {
	const op = "Relay.Send"

	if strings.TrimSpace(content) == "" || receiverID == 0 {
		return nil, apperr.E(apperr.KindInvalidInput, op, apperr.ErrMissingFields)
	}

	if _, err := r.users.FindByID(ctx, receiverID); err != nil {
		if apperr.Is(err, apperr.ErrUserNotFound) {
			return nil, apperr.E(apperr.KindNotFound, op, apperr.ErrReceiverNotFound)
		}
		return nil, apperr.E(apperr.KindInternal, op, err)
	}

	msg, err := r.chats.Append(ctx, sender.ID, receiverID, content)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInvalidInput {
			return nil, err
		}
		return nil, apperr.E(apperr.KindInternal, op, errors.Wrap(err, "append message"))
	}
	r.metrics.MessageRelayed()

	r.deliver(ctx, msg)
	return msg, nil
}

func (r *Relay) deliver(ctx context.Context, msg *chats.Message) {
	conn, ok := r.registry.Lookup(msg.ReceiverID)
	if !ok {
		r.metrics.MessageDropped(DropOffline)
		log.Debug().Int64("receiver_id", msg.ReceiverID).Int64("message_id", msg.ID).Msg("receiver offline, message stored only")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()

	if err := conn.Send(ctx, msg); err != nil {
		r.metrics.MessageDropped(DropSendFailed)
		log.Warn().Err(err).Int64("receiver_id", msg.ReceiverID).Str("conn", conn.ID()).Msg("delivery failed")
		return
	}
	r.metrics.MessageDelivered()
}
