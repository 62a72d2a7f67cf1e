package users

import (
	"regexp"
	"strings"
	"time"

	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// User is an account identity. Email is the username and is matched exactly
// as stored. Federated accounts never carry a password hash.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialize
	Federated    bool      `json:"oauth2"`
	DateJoined   time.Time `json:"date_joined,omitempty"`
}

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidateCredentials normalises and checks signup input.
func ValidateCredentials(email, password string) (string, string, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || !emailPattern.MatchString(email) {
		return "", "", apperr.E(apperr.KindInvalidInput, "users.ValidateCredentials", apperr.ErrInvalidEmail)
	}
	if password == "" {
		return "", "", apperr.E(apperr.KindInvalidInput, "users.ValidateCredentials", apperr.ErrEmptyPassword)
	}
	return email, password, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CanUsePassword reports whether the account may authenticate locally.
func (u *User) CanUsePassword() bool {
	return u != nil && !u.Federated && u.PasswordHash != ""
}
