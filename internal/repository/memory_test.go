package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jewelflow/internal/model"
)

func TestMemoryUserRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryUserRepository()

	account := model.Account{User: model.User{ID: "u-1", Email: "Ada@Example.com"}}
	require.NoError(t, repo.Create(ctx, account))
	require.ErrorIs(t, repo.Create(ctx, model.Account{User: model.User{ID: "u-2", Email: "ada@example.com "}}), model.ErrUserAlreadyExists)

	got, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	_, err = repo.FindByID(ctx, "missing")
	require.ErrorIs(t, err, model.ErrUserNotFound)

	n, err := repo.IncrementFailedAttempts(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, _ = repo.IncrementFailedAttempts(ctx, "u-1")
	assert.Equal(t, 2, n)

	until := time.Now().Add(time.Minute)
	require.NoError(t, repo.LockAccount(ctx, "u-1", until))
	got, _ = repo.FindByID(ctx, "u-1")
	require.NotNil(t, got.LockedUntil)

	require.NoError(t, repo.ResetFailedAttempts(ctx, "u-1"))
	got, _ = repo.FindByID(ctx, "u-1")
	assert.Zero(t, got.FailedLoginAttempts)
	assert.Nil(t, got.LockedUntil)
}

func TestMemoryTokenRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryTokenRepository()
	now := time.Now()
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Store(ctx, "live", "u-1", now.Add(time.Hour)))
	require.NoError(t, repo.Store(ctx, "stale", "u-1", now.Add(-time.Second)))

	owner, err := repo.Validate(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "u-1", owner)

	_, err = repo.Validate(ctx, "stale")
	require.ErrorIs(t, err, model.ErrTokenNotFound)

	removed, err := repo.CleanExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	require.NoError(t, repo.RevokeAllForUser(ctx, "u-1"))
	_, err = repo.Validate(ctx, "live")
	require.ErrorIs(t, err, model.ErrTokenNotFound)
}

func TestMemoryCategoryRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryCategoryRepository()

	rings := &model.Category{Name: "Rings"}
	chains := &model.Category{Name: "Chains"}
	require.NoError(t, repo.Create(ctx, rings))
	require.NoError(t, repo.Create(ctx, chains))
	assert.EqualValues(t, 1, rings.ID)
	assert.EqualValues(t, 2, chains.ID)

	require.ErrorIs(t, repo.Create(ctx, &model.Category{Name: "rings"}), model.ErrCategoryExists)

	chains.Name = "RINGS"
	require.ErrorIs(t, repo.Update(ctx, *chains), model.ErrCategoryExists)
	chains.Name = "Gold Chains"
	require.NoError(t, repo.Update(ctx, *chains))
	require.ErrorIs(t, repo.Update(ctx, model.Category{ID: 99, Name: "x"}), model.ErrCategoryNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Gold Chains", list[1].Name)

	deleted, err := repo.DeleteMany(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	require.ErrorIs(t, repo.Delete(ctx, 1), model.ErrCategoryNotFound)
}
