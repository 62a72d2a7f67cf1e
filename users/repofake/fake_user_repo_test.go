package fakeuserrepo_test

import (
	"context"
	"testing"

	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	fakeuserrepo "github.com/andygonzalez6/Bandaid/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestFakeUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	local, err := repo.Create(ctx, "a@example.com", "hash", false)
	require.NoError(t, err)
	require.Equal(t, int64(1), local.ID)

	fed, err := repo.Create(ctx, "b@example.com", "ignored", true)
	require.NoError(t, err)
	require.Equal(t, int64(2), fed.ID)
	require.Empty(t, fed.PasswordHash)
	require.True(t, fed.Federated)

	_, err = repo.Create(ctx, "a@example.com", "hash", false)
	require.Equal(t, apperr.KindAlreadyExists, apperr.KindOf(err))

	got, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.Equal(t, local.ID, got.ID)

	got, err = repo.FindByID(ctx, fed.ID)
	require.NoError(t, err)
	require.Equal(t, "b@example.com", got.Email)

	_, err = repo.FindByEmail(ctx, "A@example.com")
	require.ErrorIs(t, err, apperr.ErrUserNotFound)

	_, err = repo.FindByID(ctx, 99)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.Equal(t, 2, repo.Len())
}
