package relay

import (
	"context"
	"strings"
	"sync"

	"github.com/andygonzalez6/Bandaid/chats"
	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/andygonzalez6/Bandaid/users"
	"github.com/rs/zerolog/log"
)

// Session is one authenticated connection. It is created by Relay.Attach and
// ends with Close; a closed session accepts no submissions.
type Session struct {
	relay *Relay
	user  *users.User
	conn  Conn

	mu     sync.Mutex
	closed bool
}

func (s *Session) User() *users.User {
	return s.user
}

func (s *Session) Conn() Conn {
	return s.conn
}

// Submit validates env, re-authenticates its token and relays the message.
// The token must belong to the user bound to this session.
func (s *Session) Submit(ctx context.Context, env Envelope) (*chats.Message, error) {
	const op = "Session.Submit"

	if s.Closed() {
		return nil, apperr.Unauthorized(op)
	}

	if strings.TrimSpace(env.Content) == "" || env.ReceiverID == 0 || strings.TrimSpace(env.AuthToken) == "" {
		return nil, apperr.E(apperr.KindInvalidInput, op, apperr.ErrMissingFields)
	}

	sender, err := s.relay.auth.Authenticate(ctx, env.AuthToken)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Unauthorized(op)
	}
	if sender.ID != s.user.ID {
		log.Warn().Int64("bound_user", s.user.ID).Int64("token_user", sender.ID).Msg("message token does not match connection")
		return nil, apperr.Unauthorized(op)
	}

	return s.relay.Send(ctx, sender, env.ReceiverID, env.Content)
}

// Close unbinds the connection. Calling it more than once is safe.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.relay.registry.UnbindByHandle(s.conn)
	s.relay.metrics.SetOnline(s.relay.registry.Online())
	log.Info().Int64("user_id", s.user.ID).Str("conn", s.conn.ID()).Msg("user disconnected")
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
