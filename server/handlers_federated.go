package server

import (
	"net/http"

	"github.com/andygonzalez6/Bandaid/federated"
	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
)

// FederatedLoginHandler reads the credential named field from a JSON body,
// verifies it with verifier and returns a login token.
func (s *Server) FederatedLoginHandler(verifier federated.Verifier, field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, err)
			return
		}

		credential := body[field]
		if credential == "" {
			writeError(w, apperr.E(apperr.KindInvalidInput, "FederatedLoginHandler", apperr.ErrMissingFields))
			return
		}

		resp, err := s.services.Auth.FederatedLogin(r.Context(), verifier, credential)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindUnauthorized {
				s.services.Metrics.AuthFailed(string(verifier.Provider()))
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
