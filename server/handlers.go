package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/andygonzalez6/Bandaid/chats"
	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
)

// IndexHandler greets API clients
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Welcome to " + s.config.GetAppName(),
		})
	}
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupHandler creates a local password identity
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}

		user, err := s.services.Auth.Signup(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

// TokenHandler exchanges form encoded username and password for a token
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, apperr.E(apperr.KindInvalidInput, "TokenHandler", errMalformedBody))
			return
		}

		resp, err := s.services.Auth.Login(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
		if err != nil {
			if apperr.KindOf(err) == apperr.KindUnauthorized {
				s.services.Metrics.AuthFailed("password")
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// UserMeHandler returns the authenticated identity
func (s *Server) UserMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, credentialsErrorMessage)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// MyChatsHandler lists every message the caller sent or received, newest first
func (s *Server) MyChatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, credentialsErrorMessage)
			return
		}

		messages, err := s.services.Chats.QueryForUser(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(messages))
	}
}

// ConversationHandler lists the messages exchanged with one correspondent
func (s *Server) ConversationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, credentialsErrorMessage)
			return
		}

		correspondentID, err := parseID(r.PathValue("correspondent_id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := s.services.Users.FindByID(r.Context(), correspondentID); err != nil {
			if apperr.Is(err, apperr.ErrUserNotFound) {
				writeError(w, apperr.E(apperr.KindNotFound, "ConversationHandler", apperr.ErrUserNotFound))
				return
			}
			writeError(w, err)
			return
		}

		messages, err := s.services.Chats.QueryConversation(r.Context(), user.ID, correspondentID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(messages))
	}
}

type sendChatRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

// SendChatHandler stores a message from the caller and relays it when the
// receiver is connected
func (s *Server) SendChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, credentialsErrorMessage)
			return
		}

		var req sendChatRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}

		msg, err := s.services.Relay.Send(r.Context(), user, req.ReceiverID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.E(apperr.KindInvalidInput, "parseID", apperr.ErrMissingFields)
	}
	return id, nil
}

func nonNil(messages []*chats.Message) []*chats.Message {
	if messages == nil {
		return []*chats.Message{}
	}
	return messages
}
