package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/stringartkit/storefront/internal/cart"
	"github.com/stringartkit/storefront/internal/content"
)

var (
	ErrProductIDRequired = errors.New("product id is required")
	ErrUnknownProduct    = errors.New("no such product")
	ErrQuantityRequired  = errors.New("usage: qty <product-id> <quantity>")
	ErrInvalidQuantity   = errors.New("quantity must be a whole number")
)

// CartCmd returns the cart command.
func CartCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("cart", flag.ContinueOnError),
		Usage: "cart",
		Short: "Show the cart",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return a.withCart(func(c *cart.Store) error {
				return printCart(o, c.State())
			})
		},
	}
}

// AddCmd returns the add command.
func AddCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("add", flag.ContinueOnError),
		Usage: "add <product-id>",
		Short: "Add a product to the cart",
		Long:  "Add one of a product to the cart, or increase its quantity if already there.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return ErrProductIDRequired
			}

			doc, err := a.loadDocument()
			if err != nil {
				return err
			}

			return a.withCart(func(c *cart.Store) error {
				return addToCart(o, c, doc, args[0])
			})
		},
	}
}

// QtyCmd returns the qty command.
func QtyCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("qty", flag.ContinueOnError),
		Usage: "qty <product-id> <n>",
		Short: "Set an item's quantity (0 removes it)",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 2 {
				return ErrQuantityRequired
			}

			return a.withCart(func(c *cart.Store) error {
				return setQuantity(o, c, args[0], args[1])
			})
		},
	}
}

// RmCmd returns the rm command.
func RmCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "rm <product-id>",
		Short: "Remove an item from the cart",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return ErrProductIDRequired
			}

			return a.withCart(func(c *cart.Store) error {
				return removeFromCart(o, c, args[0])
			})
		},
	}
}

// ClearCmd returns the clear command.
func ClearCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("clear", flag.ContinueOnError),
		Usage: "clear",
		Short: "Empty the cart",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return a.withCart(func(c *cart.Store) error {
				err := c.Clear()
				if err != nil {
					return err
				}

				o.Println("cart cleared")

				return nil
			})
		},
	}
}

// withCart opens the cart for the duration of fn.
func (a *app) withCart(fn func(c *cart.Store) error) error {
	c, st, err := a.openCart()
	if err != nil {
		return fmt.Errorf("opening cart: %w", err)
	}

	defer func() { _ = st.Close() }()

	return fn(c)
}

func addToCart(o *IO, c cart.Cart, doc *content.Document, id string) error {
	p, ok := doc.Product(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}

	err := c.AddItem(cart.Snapshot{ID: p.ID, Title: p.Title, Price: p.Price, Image: p.PrimaryImage()})
	if err != nil {
		return err
	}

	item, _ := c.State().Find(id)
	o.Printf("added %s (quantity %d)\n", p.Title, item.Quantity)

	return nil
}

func setQuantity(o *IO, c cart.Cart, id, raw string) error {
	q, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}

	if _, ok := c.State().Find(id); !ok {
		o.Warn("not in cart", id)

		return nil
	}

	err = c.UpdateQuantity(id, q)
	if err != nil {
		return err
	}

	if q <= 0 {
		o.Println("removed", id)

		return nil
	}

	o.Printf("%s quantity set to %d\n", id, q)

	return nil
}

func removeFromCart(o *IO, c cart.Cart, id string) error {
	if _, ok := c.State().Find(id); !ok {
		o.Warn("not in cart", id)

		return nil
	}

	err := c.RemoveItem(id)
	if err != nil {
		return err
	}

	o.Println("removed", id)

	return nil
}

func printCart(o *IO, s cart.State) error {
	if len(s.Items) == 0 {
		o.Println("cart is empty")

		return nil
	}

	rows := make([][]string, 0, len(s.Items))
	for _, it := range s.Items {
		rows = append(rows, []string{
			it.ID,
			it.Title,
			rupees(it.Price),
			strconv.Itoa(it.Quantity),
			rupees(it.Price * float64(it.Quantity)),
		})
	}

	err := renderTable(o, []string{"ID", "Title", "Price", "Qty", "Subtotal"}, rows)
	if err != nil {
		return err
	}

	o.Printf("total: %d items, %s\n", s.TotalItems, rupees(s.TotalPrice))

	return nil
}
