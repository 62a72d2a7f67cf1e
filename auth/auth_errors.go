package auth

import (
	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
)

// errInvalidLogin is the one failure Login reports, whatever the cause.
func errInvalidLogin() error {
	return apperr.E(apperr.KindUnauthorized, "Service.Login", apperr.ErrInvalidCredentials)
}

func isNotFound(err error) bool {
	return apperr.Is(err, apperr.ErrUserNotFound)
}
