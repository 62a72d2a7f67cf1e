package fakeuserrepo

import (
	"context"
	"strings"
	"sync"
	"time"

	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/andygonzalez6/Bandaid/users"
)

var _ users.Directory = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[int64]*users.User
	emailIds map[string]int64 // email to user id
	nextID   int64
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[int64]*users.User),
		emailIds: make(map[string]int64),
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, email, passwordHash string, federated bool) (*users.User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email = strings.TrimSpace(email)
	if _, ok := ur.emailIds[email]; ok {
		return nil, apperr.E(apperr.KindAlreadyExists, "FakeUserRepo.Create", apperr.ErrUserExists)
	}
	if federated {
		passwordHash = ""
	}

	ur.nextID++
	user := &users.User{
		ID:           ur.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		Federated:    federated,
		DateJoined:   time.Now().UTC(),
	}
	ur.users[user.ID] = user
	ur.emailIds[user.Email] = user.ID
	return copyUser(user), nil
}

func (ur *FakeUserRepo) FindByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[strings.TrimSpace(email)]
	if !ok {
		return nil, apperr.E(apperr.KindNotFound, "FakeUserRepo.FindByEmail", apperr.ErrUserNotFound)
	}
	return copyUser(ur.users[id]), nil
}

func (ur *FakeUserRepo) FindByID(_ context.Context, id int64) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, apperr.E(apperr.KindNotFound, "FakeUserRepo.FindByID", apperr.ErrUserNotFound)
	}
	return copyUser(user), nil
}

// Len returns the number of stored users.
func (ur *FakeUserRepo) Len() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}

func copyUser(u *users.User) *users.User {
	c := *u
	return &c
}
