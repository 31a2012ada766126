// Package cart holds the shopping cart: a pure reducer over cart state and a
// Store that persists every transition.
package cart

import "slices"

// StorageKey is the key the cart state is persisted under.
const StorageKey = "cart"

// Item is a line in the cart. Title, price and image are snapshots taken when
// the product was first added.
type Item struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// Snapshot is what a caller knows about a product when adding it.
type Snapshot struct {
	ID    string
	Title string
	Price float64
	Image string
}

// State is the whole cart. TotalItems and TotalPrice are always derived from
// Items.
type State struct {
	Items      []Item  `json:"items"`
	TotalItems int     `json:"totalItems"`
	TotalPrice float64 `json:"totalPrice"`
}

// Empty returns a cart with no items.
func Empty() State {
	return State{Items: []Item{}}
}

// Find returns the item with id.
func (s State) Find(id string) (Item, bool) {
	i := s.index(id)
	if i < 0 {
		return Item{}, false
	}

	return s.Items[i], true
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.Items = slices.Clone(s.Items)
	if s.Items == nil {
		s.Items = []Item{}
	}

	return s
}

func (s State) index(id string) int {
	return slices.IndexFunc(s.Items, func(it Item) bool { return it.ID == id })
}

// Action is a cart transition understood by Reduce.
type Action interface {
	apply(s State) State
}

// AddItem increments the quantity of an item already in the cart, or appends
// it with quantity 1.
type AddItem struct{ Item Snapshot }

// UpdateQuantity sets an item's quantity. A quantity of zero or less removes
// the item; an id not in the cart is ignored.
type UpdateQuantity struct {
	ID       string
	Quantity int
}

// RemoveItem drops an item if present.
type RemoveItem struct{ ID string }

// Clear empties the cart.
type Clear struct{}

// Load replaces the cart with a previously persisted state after normalizing it.
type Load struct{ State State }

// Reduce returns the state after applying action. It never mutates s.
func Reduce(s State, action Action) State {
	next := action.apply(s.Clone())
	next.TotalItems, next.TotalPrice = totals(next.Items)

	return next
}

func (a AddItem) apply(s State) State {
	if i := s.index(a.Item.ID); i >= 0 {
		s.Items[i].Quantity++

		return s
	}

	s.Items = append(s.Items, Item{
		ID:       a.Item.ID,
		Title:    a.Item.Title,
		Price:    a.Item.Price,
		Image:    a.Item.Image,
		Quantity: 1,
	})

	return s
}

func (a UpdateQuantity) apply(s State) State {
	i := s.index(a.ID)
	if i < 0 {
		return s
	}

	if a.Quantity <= 0 {
		s.Items = slices.Delete(s.Items, i, i+1)

		return s
	}

	s.Items[i].Quantity = a.Quantity

	return s
}

func (a RemoveItem) apply(s State) State {
	if i := s.index(a.ID); i >= 0 {
		s.Items = slices.Delete(s.Items, i, i+1)
	}

	return s
}

func (Clear) apply(State) State {
	return Empty()
}

// apply drops items without an id or with a non-positive quantity and merges
// repeated ids into the first occurrence. Stored totals are discarded.
func (a Load) apply(State) State {
	out := Empty()

	for _, it := range a.State.Items {
		if it.ID == "" || it.Quantity <= 0 {
			continue
		}

		if i := out.index(it.ID); i >= 0 {
			out.Items[i].Quantity += it.Quantity

			continue
		}

		out.Items = append(out.Items, it)
	}

	return out
}

// totals sums the cart. Rounding to cents is left to display and checkout.
func totals(items []Item) (int, float64) {
	var (
		count int
		price float64
	)

	for _, it := range items {
		count += it.Quantity
		price += it.Price * float64(it.Quantity)
	}

	return count, price
}
