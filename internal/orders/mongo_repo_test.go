package orders

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgmongo "github.com/angelmondragon/bakery-backend/pkg/mongo"
	"github.com/angelmondragon/bakery-backend/pkg/pagination"
)

// newMongoTestRepo connects to BAKERY_MONGO_URI and works in a throwaway
// database. Skipped when the variable is unset.
func newMongoTestRepo(t *testing.T) *MongoRepository {
	t.Helper()
	uri := strings.TrimSpace(os.Getenv(config.EnvMongoURI))
	if uri == "" {
		t.Skipf("%s not set", config.EnvMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := pkgmongo.New(ctx, config.MongoConfig{
		URI:            uri,
		Database:       "bakery_test_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		ConnectTimeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Database().Drop(context.Background())
		_ = client.Close()
	})

	repo := NewMongoRepository(client.Database())
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

// clockAt pins the repository clock. Mongo keeps millisecond precision.
func clockAt(repo *MongoRepository, at time.Time) {
	at = at.UTC().Truncate(time.Millisecond)
	repo.now = func() time.Time { return at }
}

func TestMongoRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newMongoTestRepo(t)
	userID := uuid.New()
	paymentID := "pay_mongo_1"

	order := newOrder(userID, uuid.New(), &paymentID)
	order.Items = append(order.Items, models.OrderItem{
		ProductID: uuid.New(),
		Name:      "Lemon Tart",
		Quantity:  1,
		Price:     decimal.RequireFromString("4.25"),
	})
	order.TotalAmount = decimal.RequireFromString("11.25")
	created, err := repo.Create(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, created.Status)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, found.UserID)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("11.25")))
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Sourdough", found.Items[0].Name)
	assert.Equal(t, "Lemon Tart", found.Items[1].Name)
	assert.Equal(t, 1, found.Items[1].Position)

	byPayment, err := repo.FindByPaymentID(ctx, paymentID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byPayment.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMongoRepositoryRejectsDuplicatePayment(t *testing.T) {
	ctx := context.Background()
	repo := newMongoTestRepo(t)
	paymentID := "pay_mongo_dup"

	_, err := repo.Create(ctx, newOrder(uuid.New(), uuid.New(), &paymentID))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newOrder(uuid.New(), uuid.New(), &paymentID))
	require.ErrorIs(t, err, ErrDuplicatePayment)

	// the sparse index lets any number of orders go without a payment id
	_, err = repo.Create(ctx, newOrder(uuid.New(), uuid.New(), nil))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newOrder(uuid.New(), uuid.New(), nil))
	require.NoError(t, err)
}

func TestMongoRepositoryListPagesByKeyset(t *testing.T) {
	ctx := context.Background()
	repo := newMongoTestRepo(t)
	userID := uuid.New()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		clockAt(repo, base.Add(-time.Duration(i)*time.Hour))
		order, err := repo.Create(ctx, newOrder(userID, uuid.New(), nil))
		require.NoError(t, err)
		ids = append(ids, order.ID)
	}

	mine, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, ids[0], mine[0].ID)

	first, err := repo.List(ctx, ListFilters{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ids[0], first[0].ID)
	assert.Equal(t, ids[1], first[1].ID)

	last := first[1]
	rest, err := repo.List(ctx, ListFilters{
		Limit:  2,
		Before: &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID},
	})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[2], rest[0].ID)
}

func TestMongoRepositoryUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := newMongoTestRepo(t)
	created, err := repo.Create(ctx, newOrder(uuid.New(), uuid.New(), nil))
	require.NoError(t, err)

	later := created.CreatedAt.Add(time.Minute)
	clockAt(repo, later)
	updated, err := repo.UpdateStatus(ctx, created.ID, enums.OrderStatusReady)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReady, updated.Status)
	assert.True(t, updated.UpdatedAt.Equal(later.Truncate(time.Millisecond)))
	assert.True(t, updated.TotalAmount.Equal(created.TotalAmount))
	assert.Equal(t, created.PickupDate, updated.PickupDate)

	ready := enums.OrderStatusReady
	filtered, err := repo.List(ctx, ListFilters{Status: &ready})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	_, err = repo.UpdateStatus(ctx, uuid.New(), enums.OrderStatusReady)
	require.ErrorIs(t, err, ErrNotFound)
}
