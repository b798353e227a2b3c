package cart

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog snapshot a cart line is built from.
type Product struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Line is a single product entry in the cart. UnitPrice is captured when the
// product is first added and is not refreshed by later catalog changes.
type Line struct {
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Subtotal returns quantity × unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Store is the in-memory cart held for one storefront session. It never
// persists or contacts the network; a new session starts empty.
type Store struct {
	mu    sync.RWMutex
	lines []Line
	index map[uuid.UUID]int
}

// NewStore returns an empty cart.
func NewStore() *Store {
	return &Store{index: map[uuid.UUID]int{}}
}

// AddItem merges quantity into an existing line or appends a new one.
// Quantities below one are treated as one.
func (s *Store) AddItem(p Product, quantity int) {
	quantity = atLeastOne(quantity)

	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[p.ID]; ok {
		s.lines[i].Quantity += quantity
		return
	}
	s.index[p.ID] = len(s.lines)
	s.lines = append(s.lines, Line{Product: p, Quantity: quantity, UnitPrice: p.Price})
}

// SetQuantity overwrites the quantity of an existing line, floored at one.
// Unknown products are ignored.
func (s *Store) SetQuantity(productID uuid.UUID, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[productID]; ok {
		s.lines[i].Quantity = atLeastOne(quantity)
	}
}

// SetQuantityInput applies raw user input; anything non-numeric becomes one.
func (s *Store) SetQuantityInput(productID uuid.UUID, raw string) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = 1
	}
	s.SetQuantity(productID, n)
}

// RemoveItem deletes the line for productID if present.
func (s *Store) RemoveItem(productID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[productID]
	if !ok {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.reindex()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.index = map[uuid.UUID]int{}
}

// Total sums every line at its snapshotted price. No rounding is applied.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Len returns the number of distinct products in the cart.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// FormatAmount renders a decimal amount with two fraction digits for display.
func FormatAmount(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

func (s *Store) reindex() {
	s.index = make(map[uuid.UUID]int, len(s.lines))
	for i, l := range s.lines {
		s.index[l.Product.ID] = i
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
