package pgstore

import (
	"context"
	"strings"

	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/andygonzalez6/Bandaid/users"
	"gorm.io/gorm"
)

// UserStore is a users.Directory backed by the users table.
type UserStore struct {
	db *gorm.DB
}

var _ users.Directory = (*UserStore)(nil)

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, email, passwordHash string, federated bool) (*users.User, error) {
	if federated {
		passwordHash = ""
	}
	rec := &userRecord{
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		Federated:    federated,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if apperr.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.E(apperr.KindAlreadyExists, "UserStore.Create", apperr.ErrUserExists)
		}
		return nil, apperr.Wrapf(err, "UserStore.Create")
	}
	return rec.toUser(), nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&rec).Error
	if err != nil {
		return nil, s.lookupErr("UserStore.FindByEmail", err)
	}
	return rec.toUser(), nil
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (*users.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, s.lookupErr("UserStore.FindByID", err)
	}
	return rec.toUser(), nil
}

func (s *UserStore) lookupErr(op string, err error) error {
	if apperr.Is(err, gorm.ErrRecordNotFound) {
		return apperr.E(apperr.KindNotFound, op, apperr.ErrUserNotFound)
	}
	return apperr.Wrapf(err, "%s", op)
}
