package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/db"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:users_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))
	return conn
}

func TestRepositoryCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))

	user, err := repo.Create(ctx, NewUser{Name: " Ada ", Email: " Ada@Example.com ", PasswordHash: "hash"})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email)
	require.Equal(t, "Ada", user.Name)
	require.Equal(t, enums.UserRoleCustomer, user.Role)

	found, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	_, err = repo.Create(ctx, NewUser{Name: "Other", Email: "ada@example.com", PasswordHash: "hash"})
	require.True(t, db.IsUniqueViolation(err, ""))

	_, err = repo.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	user, err := repo.Create(ctx, NewUser{Name: "Baker", Email: "baker@example.com", PasswordHash: "hash", Role: enums.UserRoleAdmin})
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleAdmin, user.Role)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	name := "Head Baker"
	updated, err := repo.UpdateProfile(ctx, user.ID, ProfileChanges{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Head Baker", updated.Name)
	require.NotNil(t, updated.LastLoginAt)
	require.True(t, updated.LastLoginAt.Equal(at))

	dto := ProfileOf(updated)
	require.Equal(t, "Head Baker", dto.Name)
	require.Nil(t, ProfileOf(nil))
}

func TestRepositoryUpdateProfileUnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	name := "Ghost"
	_, err := repo.UpdateProfile(ctx, uuid.New(), ProfileChanges{Name: &name})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.UpdateProfile(ctx, uuid.New(), ProfileChanges{})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateProfileLowercasesEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	user, err := repo.Create(ctx, NewUser{Name: "Baker", Email: "baker@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	email, hash := "Pastry@Example.com", "new-hash"
	updated, err := repo.UpdateProfile(ctx, user.ID, ProfileChanges{Email: &email, PasswordHash: &hash})
	require.NoError(t, err)
	require.Equal(t, "pastry@example.com", updated.Email)
	require.Equal(t, "new-hash", updated.PasswordHash)
	require.Equal(t, "Baker", updated.Name)
}
