package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/entity"
	"github.com/rocketscienceinc/damas-backend/testing/suite"
)

func newUserRepo(t *testing.T) (context.Context, UserRepository) {
	t.Helper()

	ctx := context.Background()

	return ctx, NewUserRepository(suite.NewSQLStorage(ctx, t))
}

func seedUsers(ctx context.Context, t *testing.T, userRepo UserRepository) (entity.User, entity.User) {
	t.Helper()

	alice := entity.User{ID: "u1", Username: "alice", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	bob := entity.User{ID: "u2", Username: "bob", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, userRepo.Create(ctx, alice))
	require.NoError(t, userRepo.Create(ctx, bob))

	return alice, bob
}

func TestUserRepository_Create(t *testing.T) {
	t.Run("Finds a created user by id and username", func(t *testing.T) {
		ctx, userRepo := newUserRepo(t)

		// Given: two stored users
		alice, _ := seedUsers(ctx, t, userRepo)

		// When: they are looked up
		byID, err := userRepo.GetByID(ctx, alice.ID)
		require.NoError(t, err)

		byName, err := userRepo.GetByUsername(ctx, "alice")
		require.NoError(t, err)

		// Then: both lookups return the same user
		assert.Equal(t, alice.ID, byID.ID)
		assert.Equal(t, "alice", byID.Username)
		assert.Equal(t, byID.ID, byName.ID)
		assert.True(t, alice.CreatedAt.Equal(byID.CreatedAt))
	})

	t.Run("Rejects a taken username", func(t *testing.T) {
		ctx, userRepo := newUserRepo(t)
		seedUsers(ctx, t, userRepo)

		err := userRepo.Create(ctx, entity.User{ID: "u3", Username: "alice", CreatedAt: time.Now()})

		require.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("Unknown user is not found", func(t *testing.T) {
		ctx, userRepo := newUserRepo(t)

		_, err := userRepo.GetByUsername(ctx, "nobody")

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestUserRepository_GetMany(t *testing.T) {
	ctx, userRepo := newUserRepo(t)
	alice, bob := seedUsers(ctx, t, userRepo)

	users, err := userRepo.GetMany(ctx, []string{alice.ID, bob.ID, "ghost"})

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "bob", users[bob.ID].Username)
}

func TestUserRepository_RecordResult(t *testing.T) {
	t.Run("Winner gets a win and the score, both get a played match", func(t *testing.T) {
		ctx, userRepo := newUserRepo(t)
		alice, bob := seedUsers(ctx, t, userRepo)

		// When: alice wins against bob
		err := userRepo.RecordResult(ctx, alice.ID, []string{alice.ID, bob.ID}, 10)

		// Then: stats are updated exactly once
		require.NoError(t, err)

		winner, err := userRepo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, winner.Played)
		assert.Equal(t, 1, winner.Won)
		assert.Equal(t, 10, winner.Score)

		loser, err := userRepo.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, loser.Played)
		assert.Equal(t, 0, loser.Won)
		assert.Equal(t, 0, loser.Score)
	})

	t.Run("Unknown player rolls the whole result back", func(t *testing.T) {
		ctx, userRepo := newUserRepo(t)
		alice, _ := seedUsers(ctx, t, userRepo)

		err := userRepo.RecordResult(ctx, alice.ID, []string{alice.ID, "ghost"}, 10)

		require.ErrorIs(t, err, apperror.ErrNotFound)

		stored, err := userRepo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.Played)
		assert.Equal(t, 0, stored.Won)
	})
}
