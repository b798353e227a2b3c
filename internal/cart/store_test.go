package cart

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func product(name, price string) Product {
	return Product{ID: uuid.New(), Name: name, Price: decimal.RequireFromString(price)}
}

func TestAddItemMergesAndSnapshotsPrice(t *testing.T) {
	store := NewStore()
	croissant := product("Croissant", "3.50")

	store.AddItem(croissant, 2)
	croissant.Price = decimal.RequireFromString("9.99")
	store.AddItem(croissant, 0)

	lines := store.Lines()
	require.Len(t, lines, 1)
	require.Equal(t, 3, lines[0].Quantity)
	require.True(t, lines[0].UnitPrice.Equal(decimal.RequireFromString("3.50")))
	require.Equal(t, "10.5", store.Total().String())
}

func TestSetQuantity(t *testing.T) {
	store := NewStore()
	baguette := product("Baguette", "4.25")
	store.AddItem(baguette, 1)

	store.SetQuantity(baguette.ID, 4)
	require.Equal(t, 4, store.Lines()[0].Quantity)

	store.SetQuantity(baguette.ID, -3)
	require.Equal(t, 1, store.Lines()[0].Quantity)

	store.SetQuantityInput(baguette.ID, " 6 ")
	require.Equal(t, 6, store.Lines()[0].Quantity)

	store.SetQuantityInput(baguette.ID, "abc")
	require.Equal(t, 1, store.Lines()[0].Quantity)

	store.SetQuantity(uuid.New(), 10)
	require.Equal(t, 1, store.Len())
}

func TestRemoveItemKeepsOrder(t *testing.T) {
	store := NewStore()
	a, b, c := product("A", "1.00"), product("B", "2.00"), product("C", "3.00")
	store.AddItem(a, 1)
	store.AddItem(b, 1)
	store.AddItem(c, 1)

	store.RemoveItem(b.ID)
	store.RemoveItem(uuid.New())

	lines := store.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, "A", lines[0].Product.Name)
	require.Equal(t, "C", lines[1].Product.Name)

	store.AddItem(c, 2)
	require.Equal(t, 3, store.Lines()[1].Quantity)
}

func TestTotalAndClear(t *testing.T) {
	store := NewStore()
	require.True(t, store.IsEmpty())
	require.True(t, store.Total().IsZero())

	store.AddItem(product("Tart", "0.335"), 3)
	require.Equal(t, "1.005", store.Total().String())
	require.Equal(t, "$1.01", FormatAmount(store.Total()))

	store.Clear()
	require.True(t, store.IsEmpty())
	require.True(t, store.Total().IsZero())
}

func TestStoreConcurrentAdds(t *testing.T) {
	store := NewStore()
	roll := product("Roll", "1.10")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AddItem(roll, 1)
		}()
	}
	wg.Wait()

	require.Equal(t, 50, store.Lines()[0].Quantity)
	require.Equal(t, "55", store.Total().String())
}
