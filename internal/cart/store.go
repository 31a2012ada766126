package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/stringartkit/storefront/internal/storage"
)

// Cart is the set of operations the storefront performs on a cart.
//
// Transitions always succeed in memory. A non-nil error means the new state
// could not be persisted.
type Cart interface {
	AddItem(item Snapshot) error
	UpdateQuantity(id string, quantity int) error
	RemoveItem(id string) error
	Clear() error
	State() State
}

// Store is a Cart backed by a storage.Storage. Not safe for concurrent use.
type Store struct {
	storage storage.Storage
	logger  *zap.Logger
	state   State
}

var _ Cart = (*Store)(nil)

// New returns a Store rehydrated from st. A missing, unreadable or corrupt
// entry is logged and the cart starts empty.
func New(st storage.Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{storage: st, logger: logger, state: Empty()}

	saved, err := s.load()
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("discarding saved cart", zap.Error(err))
		}

		return s
	}

	s.state = Reduce(s.state, Load{State: saved})

	logger.Debug("cart restored",
		zap.Int("items", len(s.state.Items)),
		zap.Int("total_items", s.state.TotalItems))

	return s
}

func (s *Store) AddItem(item Snapshot) error {
	return s.dispatch(AddItem{Item: item})
}

func (s *Store) UpdateQuantity(id string, quantity int) error {
	return s.dispatch(UpdateQuantity{ID: id, Quantity: quantity})
}

func (s *Store) RemoveItem(id string) error {
	return s.dispatch(RemoveItem{ID: id})
}

func (s *Store) Clear() error {
	return s.dispatch(Clear{})
}

// State returns a copy of the current cart.
func (s *Store) State() State {
	return s.state.Clone()
}

func (s *Store) dispatch(action Action) error {
	s.state = Reduce(s.state, action)

	return s.save()
}

func (s *Store) load() (State, error) {
	data, err := s.storage.Get(StorageKey)
	if err != nil {
		return State{}, err
	}

	var saved State

	err = json.Unmarshal(data, &saved)
	if err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return saved, nil
}

func (s *Store) save() error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}

	err = s.storage.Set(StorageKey, data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	return nil
}
