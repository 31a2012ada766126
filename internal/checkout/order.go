package checkout

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
)

// Order statuses.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// Order is an accepted checkout.
type Order struct {
	OrderNumber string      `json:"orderNumber"`
	Customer    Customer    `json:"customer"`
	Items       []OrderItem `json:"items"`
	TotalPrice  float64     `json:"totalPrice"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	PaidAt      *time.Time  `json:"paidAt,omitempty"`
	PaymentLink string      `json:"paymentLink"`
}

// MarkPaid returns o with its payment recorded at now. An order that is
// already paid keeps its first payment time.
func (o Order) MarkPaid(now time.Time) Order {
	if o.Status == StatusPaid {
		return o
	}

	o.Status = StatusPaid
	o.PaidAt = &now

	return o
}

// OrderItem is a line of an Order.
type OrderItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// OrderNumber returns "ORD", the local timestamp to the second and the first
// eight characters of a random UUID.
func OrderNumber(now time.Time) string {
	return "ORD" + now.Format("20060102150405") + uuid.NewString()[:8]
}

// NewOrder records a validated request as a pending order.
func NewOrder(number string, r Request, link PaymentLink, now time.Time) Order {
	items := make([]OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, OrderItem(it))
	}

	return Order{
		OrderNumber: number,
		Customer:    r.Customer,
		Items:       items,
		TotalPrice:  r.TotalPrice,
		Status:      StatusPending,
		CreatedAt:   now,
		PaymentLink: link.URI(),
	}
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"money": FormatAmount,
	"mul":   func(p float64, q int) float64 { return p * float64(q) },
}).Parse(`Order Confirmation - {{.OrderNumber}}

Dear {{.Customer.Name}},

Thank you for your order! Here are your order details:

Order Number: {{.OrderNumber}}
Total Amount: ₹{{money .TotalPrice}}

Items:
{{range .Items}}- {{.Title}} x{{.Quantity}} = ₹{{money (mul .Price .Quantity)}}
{{end}}
Shipping Address:
{{.Customer.AddressLine1}}
{{with .Customer.AddressLine2}}{{.}}
{{end}}{{.Customer.City}}, {{.Customer.State}} {{.Customer.PinCode}}

Payment Instructions:
1. Scan the QR code or open the payment link
2. Complete the UPI payment
3. Reply to this email to confirm payment

Payment Link: {{.PaymentLink}}
`))

// ConfirmationText renders the confirmation message sent to the customer.
func ConfirmationText(o Order) string {
	var buf bytes.Buffer

	// The template only reads fields of Order, so execution cannot fail.
	_ = confirmationTmpl.Execute(&buf, o)

	return strings.TrimRight(buf.String(), "\n") + "\n"
}
