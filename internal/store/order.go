package store

import (
	"sync"

	"github.com/efreitasn/marketmatch/internal/domain"
)

// OrderStore is a thread-safe in-memory store for orders,
// with a primary index by order_id and a secondary index by party_id.
type OrderStore struct {
	mu          sync.RWMutex
	orders      map[string]*domain.Order
	partyOrders map[string][]*domain.Order // party_id → orders (append-only)
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:      make(map[string]*domain.Order),
		partyOrders: make(map[string][]*domain.Order),
	}
}

// Create adds an order and indexes it under its party.
func (s *OrderStore) Create(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.OrderID] = o
	s.partyOrders[o.PartyID] = append(s.partyOrders[o.PartyID], o)
}

// Get retrieves an order by ID. It returns domain.ErrOrderNotFound if the
// order does not exist.
func (s *OrderStore) Get(id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListByParty returns a page of the party's orders, newest first, and the
// number of orders that matched before pagination. A nil status matches
// every order. page is 1-based.
//
// Orders are read through view, which returns a copy safe to inspect while
// sessions mutate the original. view runs without the store lock held. A nil
// view reads the stored orders directly.
func (s *OrderStore) ListByParty(partyID string, status *domain.OrderStatus, page, limit int, view func(*domain.Order) *domain.Order) ([]*domain.Order, int) {
	s.mu.RLock()
	all := append([]*domain.Order(nil), s.partyOrders[partyID]...)
	s.mu.RUnlock()

	filtered := make([]*domain.Order, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		o := all[i]
		if view != nil {
			o = view(o)
		}
		if status != nil && o.Status != *status {
			continue
		}
		filtered = append(filtered, o)
	}

	return paginate(filtered, page, limit), len(filtered)
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) || start < 0 {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
