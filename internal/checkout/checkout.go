// Package checkout turns a cart into an order: request validation, order
// numbers, UPI payment links and the HTTP client that submits orders.
package checkout

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"

	"github.com/stringartkit/storefront/internal/cart"
)

// priceTolerance is how far a request total may differ from the sum of its items.
const priceTolerance = 0.01

const (
	minPhoneLen   = 10
	minPinCodeLen = 6
)

// Customer is the buyer and shipping address.
type Customer struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PinCode      string `json:"pinCode"`
}

// Request is the body of POST /checkout.
type Request struct {
	Customer   Customer    `json:"customer"`
	Items      []cart.Item `json:"items"`
	TotalPrice float64     `json:"totalPrice"`
}

// Response is returned by POST /checkout.
type Response struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"orderNumber"`
	QRCodeURL   string `json:"qrCodeUrl,omitempty"`
	PaymentLink string `json:"paymentLink,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewRequest builds a request from a cart snapshot. The total is rounded to
// cents, the amount the shopper is asked to pay.
func NewRequest(customer Customer, state cart.State) Request {
	state = state.Clone()

	return Request{
		Customer:   customer,
		Items:      state.Items,
		TotalPrice: RoundCents(state.TotalPrice),
	}
}

// RoundCents rounds a rupee amount to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ItemsTotal returns the sum of price times quantity over the request items.
func (r *Request) ItemsTotal() float64 {
	var total float64

	for _, it := range r.Items {
		total += it.Price * float64(it.Quantity)
	}

	return total
}

// Validate reports every problem with r. The result is nil or an
// errors.Join of *ValidationError.
func Validate(r Request) error {
	var errs []error

	add := func(field, msg string) {
		errs = append(errs, &ValidationError{Field: field, Message: msg})
	}

	c := r.Customer

	for _, f := range []struct{ name, value string }{
		{"name", c.Name},
		{"addressLine1", c.AddressLine1},
		{"city", c.City},
		{"state", c.State},
	} {
		if strings.TrimSpace(f.value) == "" {
			add("customer."+f.name, "is required")
		}
	}

	if _, err := mail.ParseAddress(c.Email); err != nil {
		add("customer.email", "must be a valid email address")
	}

	if len(strings.TrimSpace(c.Phone)) < minPhoneLen {
		add("customer.phone", fmt.Sprintf("must be at least %d digits", minPhoneLen))
	}

	if len(strings.TrimSpace(c.PinCode)) < minPinCodeLen {
		add("customer.pinCode", fmt.Sprintf("must be at least %d digits", minPinCodeLen))
	}

	if len(r.Items) == 0 {
		add("items", "cart cannot be empty")
	}

	for i, it := range r.Items {
		if it.Price <= 0 {
			add(fmt.Sprintf("items[%d].price", i), "must be greater than 0")
		}

		if it.Quantity <= 0 {
			add(fmt.Sprintf("items[%d].quantity", i), "must be greater than 0")
		}
	}

	switch {
	case r.TotalPrice <= 0:
		add("totalPrice", "must be greater than 0")
	case len(r.Items) > 0 && math.Abs(r.TotalPrice-r.ItemsTotal()) > priceTolerance:
		add("totalPrice", "does not match sum of items")
	}

	return errors.Join(errs...)
}

// ValidationErrors flattens err into its *ValidationError parts.
func ValidationErrors(err error) []*ValidationError {
	if err == nil {
		return nil
	}

	var out []*ValidationError

	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		var ve *ValidationError
		if errors.As(err, &ve) {
			out = append(out, ve)
		}

		return out
	}

	for _, e := range joined.Unwrap() {
		out = append(out, ValidationErrors(e)...)
	}

	return out
}
