package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/stringartkit/storefront/internal/cart"
	"github.com/stringartkit/storefront/internal/checkout"
)

var (
	ErrAmountRequired = errors.New("--amount must be greater than 0")
	ErrEmptyCart      = errors.New("cart is empty")
)

// CheckoutCmd returns the checkout command.
func CheckoutCmd(a *app) *Command {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)

	var customer checkout.Customer

	fs.StringVar(&customer.Name, "name", "", "Full name")
	fs.StringVar(&customer.Email, "email", "", "Email address")
	fs.StringVar(&customer.Phone, "phone", "", "Phone number")
	fs.StringVar(&customer.AddressLine1, "address1", "", "Address line 1")
	fs.StringVar(&customer.AddressLine2, "address2", "", "Address line 2 (optional)")
	fs.StringVar(&customer.City, "city", "", "City")
	fs.StringVar(&customer.State, "state", "", "State")
	fs.StringVar(&customer.PinCode, "pin", "", "PIN code")

	qrPath := fs.String("qr", "", "Write the payment QR code as PNG to this file")

	return &Command{
		Flags: fs,
		Usage: "checkout --name N --email E ... [--qr FILE]",
		Short: "Place an order for the cart",
		Long: `Submit the cart to the checkout API. On success the order number and UPI
payment link are printed with a QR code, and the cart is emptied. On failure
the cart is left as it was.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			path := ""
			if *qrPath != "" {
				path = a.cfg.Abs(*qrPath)
			}

			return a.withCart(func(c *cart.Store) error {
				return execCheckout(ctx, o, a, c, customer, path)
			})
		},
	}
}

func execCheckout(ctx context.Context, o *IO, a *app, c cart.Cart, customer checkout.Customer, qrPath string) error {
	state := c.State()
	if len(state.Items) == 0 {
		return ErrEmptyCart
	}

	client := checkout.NewClient(a.cfg.APIBaseURL, nil, a.logger)

	resp, err := client.Submit(ctx, checkout.NewRequest(customer, state))
	if err != nil {
		if errors.Is(err, checkout.ErrInvalidRequest) {
			return fmt.Errorf("%w:\n  %s", checkout.ErrInvalidRequest, joinValidation(err))
		}

		a.logger.Debug("checkout failed", zap.Error(err))

		return errors.New(checkout.FailureMessage)
	}

	o.Println("order placed:", resp.OrderNumber)
	o.Println("pay with UPI:", resp.PaymentLink)

	err = showQRCode(o, resp.PaymentLink, qrPath)
	if err != nil {
		o.Warn("qr code", err.Error())
	}

	err = c.Clear()
	if err != nil {
		o.Warn("order placed but the cart could not be cleared", err.Error())
	}

	return nil
}

// PayLinkCmd returns the pay-link command.
func PayLinkCmd(a *app) *Command {
	fs := flag.NewFlagSet("pay-link", flag.ContinueOnError)
	amount := fs.Float64("amount", 0, "Amount in rupees")
	note := fs.String("note", "", "Transaction note shown to the payer")
	qrPath := fs.String("qr", "", "Also write a QR code PNG to this file")

	return &Command{
		Flags: fs,
		Usage: "pay-link --amount N [--note S] [--qr FILE]",
		Short: "Print a UPI payment link",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			if *amount <= 0 {
				return ErrAmountRequired
			}

			link := checkout.PaymentLink{
				PayeeAddress: a.cfg.UPIID,
				PayeeName:    a.cfg.PayeeName,
				Amount:       *amount,
				Note:         *note,
			}.URI()

			o.Println(link)

			if *qrPath == "" {
				return nil
			}

			return writeQRCode(link, a.cfg.Abs(*qrPath), o)
		},
	}
}

// showQRCode writes a PNG when path is set, otherwise prints the code.
func showQRCode(o *IO, link, path string) error {
	if path != "" {
		return writeQRCode(link, path, o)
	}

	text, err := checkout.QRCodeText(link)
	if err != nil {
		return err
	}

	o.Printf("%s", text)

	return nil
}

func writeQRCode(link, path string, o *IO) error {
	png, err := checkout.QRCode(link, checkout.DefaultQRSize)
	if err != nil {
		return err
	}

	err = atomic.WriteFile(path, bytes.NewReader(png))
	if err != nil {
		return fmt.Errorf("writing qr code: %w", err)
	}

	o.Println("qr code written to", path)

	return nil
}

func joinValidation(err error) string {
	parts := make([]string, 0)
	for _, ve := range checkout.ValidationErrors(err) {
		parts = append(parts, ve.Error())
	}

	return strings.Join(parts, "\n  ")
}
