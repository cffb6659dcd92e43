//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

var testRetries = retry.Strategy{Attempts: 1, Delay: time.Millisecond, Backoff: 1}

func setupTestDB(t *testing.T) *dbpg.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("thumbs"),
		postgres.WithUsername("thumbs"),
		postgres.WithPassword("thumbs"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := dbpg.New(dsn, []string{}, &dbpg.Options{MaxOpenConns: 5, MaxIdleConns: 2, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { db.Master.Close() })

	applied, err := Migrate(ctx, db.Master)
	require.NoError(t, err)
	require.NotEmpty(t, applied)

	again, err := Migrate(ctx, db.Master)
	require.NoError(t, err)
	require.Empty(t, again)

	return db
}

func createUser(t *testing.T, users *UsersRepository, name string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     name,
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestRepositories(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	plans := NewPlansRepository(db, testRetries)
	users := NewUsersRepository(db, testRetries)
	images := NewImagesRepository(db, testRetries)
	links := NewLinksRepository(db, testRetries)

	r200, err := plans.CreateRule(ctx, 200)
	require.NoError(t, err)
	r400, err := plans.CreateRule(ctx, 400)
	require.NoError(t, err)

	_, err = plans.CreateRule(ctx, 200)
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)

	plan := &domain.ThumbPlan{
		Name:               domain.PlanEnterprise,
		KeepOriginal:       true,
		AllowExpiringLinks: true,
		Rules:              []domain.ThumbRule{*r400, *r200},
	}
	require.NoError(t, plans.CreatePlan(ctx, plan))

	alice := createUser(t, users, "alice")
	_, err = users.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = plans.GetUserPlan(ctx, alice.ID)
	assert.ErrorIs(t, err, repository.ErrUserPlanNotFound)

	require.NoError(t, plans.AssignPlan(ctx, alice.ID, plan.ID))
	got, err := plans.GetUserPlan(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.ThumbRule{*r400, *r200}, got.Rules)

	now := time.Now().UTC().Truncate(time.Microsecond)
	root := &domain.Image{ID: uuid.New().String(), OwnerID: alice.ID, Format: domain.FormatPNG, CreatedAt: now}
	children := []domain.Image{
		{ID: uuid.New().String(), OwnerID: alice.ID, FilePath: "photos/a/1.png", ParentID: root.ID, RuleID: r400.ID, Format: domain.FormatPNG, CreatedAt: now},
		{ID: uuid.New().String(), OwnerID: alice.ID, FilePath: "photos/a/2.png", ParentID: root.ID, RuleID: r200.ID, Format: domain.FormatPNG, CreatedAt: now},
	}
	require.NoError(t, images.CreateTree(ctx, root, children))

	stored, err := images.GetByID(ctx, root.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasFile())
	assert.True(t, stored.IsRoot())

	roots, err := images.ListRoots(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, roots, 1)

	kids, err := images.ListChildren(ctx, []string{root.ID})
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, 200, kids[0].RuleHeight)
	assert.Equal(t, 400, kids[1].RuleHeight)

	t.Run("tree insert is atomic", func(t *testing.T) {
		orphan := &domain.Image{ID: uuid.New().String(), OwnerID: alice.ID, Format: domain.FormatPNG, CreatedAt: now}
		bad := []domain.Image{{ID: uuid.New().String(), OwnerID: alice.ID, FilePath: "x", ParentID: orphan.ID, RuleID: 99999, Format: domain.FormatPNG, CreatedAt: now}}

		assert.Error(t, images.CreateTree(ctx, orphan, bad))
		_, err := images.GetByID(ctx, orphan.ID)
		assert.ErrorIs(t, err, repository.ErrImageNotFound)
	})

	t.Run("rule in use cannot be deleted", func(t *testing.T) {
		assert.ErrorIs(t, plans.DeleteRule(ctx, r200.ID), repository.ErrRuleInUse)
	})

	t.Run("unused rule is removed from plans", func(t *testing.T) {
		r800, err := plans.CreateRule(ctx, 800)
		require.NoError(t, err)
		require.NoError(t, plans.SetPlanRules(ctx, plan.ID, []domain.ThumbRule{*r800, *r200}))

		require.NoError(t, plans.DeleteRule(ctx, r800.ID))
		got, err := plans.GetPlanByName(ctx, plan.Name)
		require.NoError(t, err)
		assert.Equal(t, []domain.ThumbRule{*r200}, got.Rules)

		assert.ErrorIs(t, plans.DeleteRule(ctx, r800.ID), repository.ErrRuleNotFound)
	})

	t.Run("temp links", func(t *testing.T) {
		link := &domain.TempLink{
			ID:         uuid.New().String(),
			ImageID:    children[0].ID,
			Expiration: now.Add(time.Hour),
			CreatedAt:  now,
		}
		require.NoError(t, links.Create(ctx, link))

		got, err := links.GetByID(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, link.ImageID, got.ImageID)
		assert.True(t, link.Expiration.Equal(got.Expiration))

		_, err = links.GetByID(ctx, uuid.New().String())
		assert.ErrorIs(t, err, repository.ErrTempLinkNotFound)

		err = links.Create(ctx, &domain.TempLink{ID: uuid.New().String(), ImageID: uuid.New().String(), Expiration: now, CreatedAt: now})
		assert.ErrorIs(t, err, repository.ErrImageNotFound)
	})
}
