package server

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/stringartkit/storefront/internal/checkout"
)

// OrderStore keeps accepted orders in memory. Safe for concurrent use.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]checkout.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]checkout.Order)}
}

func (s *OrderStore) Put(o checkout.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.OrderNumber] = o
}

func (s *OrderStore) Get(number string) (checkout.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[number]

	return o, ok
}

func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.orders)
}

// MarkPaid records payment for the order. ok is false for an unknown number.
func (s *OrderStore) MarkPaid(number string, now time.Time) (checkout.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[number]
	if !ok {
		return checkout.Order{}, false
	}

	o = o.MarkPaid(now)
	s.orders[number] = o

	return o, true
}

// List returns all orders, oldest first.
func (s *OrderStore) List() []checkout.Order {
	s.mu.RLock()
	out := make([]checkout.Order, 0, len(s.orders))

	for _, o := range s.orders {
		out = append(out, o)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b checkout.Order) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.OrderNumber, b.OrderNumber)
	})

	return out
}
