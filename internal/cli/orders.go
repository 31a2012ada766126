package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/stringartkit/storefront/internal/checkout"
)

var ErrOrderNumberRequired = errors.New("order number is required")

const orderDateLayout = "2006-01-02 15:04"

// OrdersCmd returns the orders command.
func OrdersCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("orders", flag.ContinueOnError),
		Usage: "orders",
		Short: "List orders held by the checkout API",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			orders, err := checkout.NewClient(a.cfg.APIBaseURL, nil, a.logger).ListOrders(ctx)
			if err != nil {
				return fmt.Errorf("listing orders: %w", err)
			}

			return printOrders(o, orders)
		},
	}
}

// MarkPaidCmd returns the mark-paid command.
func MarkPaidCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("mark-paid", flag.ContinueOnError),
		Usage: "mark-paid <order-number>",
		Short: "Record payment for an order",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return ErrOrderNumberRequired
			}

			order, err := checkout.NewClient(a.cfg.APIBaseURL, nil, a.logger).MarkPaid(ctx, args[0])
			if err != nil {
				if errors.Is(err, checkout.ErrOrderNotFound) {
					return fmt.Errorf("%w: %s", err, args[0])
				}

				return fmt.Errorf("marking order paid: %w", err)
			}

			o.Printf("order %s marked %s\n", order.OrderNumber, order.Status)

			return nil
		},
	}
}

func printOrders(o *IO, orders []checkout.Order) error {
	if len(orders) == 0 {
		o.Println("no orders")

		return nil
	}

	rows := make([][]string, 0, len(orders))
	for _, ord := range orders {
		rows = append(rows, []string{
			ord.OrderNumber,
			ord.CreatedAt.Local().Format(orderDateLayout),
			rupees(ord.TotalPrice),
			ord.Customer.Name,
			ord.Status,
			orderProducts(ord.Items),
		})
	}

	return renderTable(o, []string{"Order", "Date", "Amount", "Customer", "Status", "Products"}, rows)
}

func orderProducts(items []checkout.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.ID, it.Quantity))
	}

	return strings.Join(parts, ", ")
}
