package checkout_test

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/stringartkit/storefront/internal/cart"
	"github.com/stringartkit/storefront/internal/checkout"
)

func validRequest() checkout.Request {
	return checkout.Request{
		Customer: checkout.Customer{
			Name:         "Asha Rao",
			Email:        "asha@example.com",
			Phone:        "9876543210",
			AddressLine1: "12 MG Road",
			City:         "Bengaluru",
			State:        "Karnataka",
			PinCode:      "560001",
		},
		Items: []cart.Item{
			{ID: "lotus", Title: "Lotus Kit", Price: 799, Image: "/img/lotus.jpg", Quantity: 2},
			{ID: "ghost", Title: "Ghost Kit", Price: 0.1, Quantity: 3},
		},
		TotalPrice: 1598.3,
	}
}

func Test_Validate_Accepts_Request_When_All_Fields_Valid(t *testing.T) {
	t.Parallel()

	require.NoError(t, checkout.Validate(validRequest()))
}

func Test_Validate_Reports_Field_When_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(r *checkout.Request)
		fields []string
	}{
		{"missing name", func(r *checkout.Request) { r.Customer.Name = " " }, []string{"customer.name"}},
		{"bad email", func(r *checkout.Request) { r.Customer.Email = "not-an-email" }, []string{"customer.email"}},
		{"short phone", func(r *checkout.Request) { r.Customer.Phone = "12345" }, []string{"customer.phone"}},
		{"short pin", func(r *checkout.Request) { r.Customer.PinCode = "5600" }, []string{"customer.pinCode"}},
		{"missing city and state", func(r *checkout.Request) { r.Customer.City, r.Customer.State = "", "" }, []string{"customer.city", "customer.state"}},
		{"empty cart", func(r *checkout.Request) { r.Items = nil }, []string{"items"}},
		{"zero price", func(r *checkout.Request) { r.Items[1].Price = 0; r.TotalPrice = 1598 }, []string{"items[1].price"}},
		{"zero quantity", func(r *checkout.Request) { r.Items[0].Quantity = 0; r.TotalPrice = 0.3 }, []string{"items[0].quantity"}},
		{"total mismatch", func(r *checkout.Request) { r.TotalPrice = 1500 }, []string{"totalPrice"}},
		{"zero total", func(r *checkout.Request) { r.TotalPrice = 0 }, []string{"totalPrice"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := validRequest()
			tc.mutate(&r)

			err := checkout.Validate(r)
			require.ErrorIs(t, err, checkout.ErrInvalidRequest)

			var got []string
			for _, ve := range checkout.ValidationErrors(err) {
				got = append(got, ve.Field)
			}

			if diff := cmp.Diff(tc.fields, got); diff != "" {
				t.Fatalf("fields (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Validate_Allows_Total_Drift_When_Within_A_Paisa(t *testing.T) {
	t.Parallel()

	r := validRequest()
	r.TotalPrice += 0.009

	require.NoError(t, checkout.Validate(r))
}

func Test_NewRequest_Copies_Cart_When_Built(t *testing.T) {
	t.Parallel()

	state := cart.Reduce(cart.Empty(), cart.AddItem{Item: cart.Snapshot{ID: "lotus", Title: "Lotus Kit", Price: 799}})
	r := checkout.NewRequest(validRequest().Customer, state)

	require.InDelta(t, 799.0, r.TotalPrice, 0.001)
	require.Len(t, r.Items, 1)

	r.Items[0].Quantity = 50

	require.Equal(t, 1, state.Items[0].Quantity, "request must not alias the cart")
	require.NoError(t, checkout.Validate(checkout.NewRequest(validRequest().Customer, state)))
}

func Test_NewRequest_Rounds_Total_To_Cents_When_Cart_Sum_Drifts(t *testing.T) {
	t.Parallel()

	state := cart.Reduce(cart.Empty(), cart.AddItem{Item: cart.Snapshot{ID: "a", Title: "A", Price: 0.1}})
	state = cart.Reduce(state, cart.AddItem{Item: cart.Snapshot{ID: "b", Title: "B", Price: 0.2}})

	require.NotEqual(t, 0.3, state.TotalPrice, "cart keeps the exact float sum")

	r := checkout.NewRequest(validRequest().Customer, state)

	require.Equal(t, 0.3, r.TotalPrice)
	require.NoError(t, checkout.Validate(r))
}

func Test_OrderNumber_Has_Timestamp_And_Random_Suffix(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	a := checkout.OrderNumber(now)
	b := checkout.OrderNumber(now)

	require.Regexp(t, regexp.MustCompile(`^ORD20240309140507[0-9a-f]{8}$`), a)
	require.NotEqual(t, a, b)
}

func Test_Order_MarkPaid_Keeps_First_Payment_Time(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	order := checkout.NewOrder("ORD1", validRequest(), checkout.PaymentLink{PayeeAddress: "a@upi"}, created)
	require.Equal(t, checkout.StatusPending, order.Status)
	require.Nil(t, order.PaidAt)

	paid := order.MarkPaid(created.Add(time.Hour))
	require.Equal(t, checkout.StatusPaid, paid.Status)
	require.Equal(t, created.Add(time.Hour), *paid.PaidAt)
	require.Nil(t, order.PaidAt, "receiver must be left unchanged")

	again := paid.MarkPaid(created.Add(2 * time.Hour))
	require.Equal(t, created.Add(time.Hour), *again.PaidAt)
}

func Test_PaymentLink_URI_Escapes_Parameters_In_Order(t *testing.T) {
	t.Parallel()

	link := checkout.PaymentLink{
		PayeeAddress: "stringart@upi",
		PayeeName:    "String Art & Co",
		Amount:       1598.3,
		Note:         "ORD20240309140507abcd1234",
	}

	want := "upi://pay?pa=stringart@upi&pn=String%20Art%20%26%20Co&am=1598.30&tn=ORD20240309140507abcd1234"
	require.Equal(t, want, link.URI())
}

func Test_QRCode_Returns_PNG_When_Link_Valid(t *testing.T) {
	t.Parallel()

	png, err := checkout.QRCode("upi://pay?pa=a@upi&pn=A&am=1.00&tn=x", 0)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")), "not a PNG")

	text, err := checkout.QRCodeText("upi://pay?pa=a@upi")
	require.NoError(t, err)
	require.Greater(t, strings.Count(text, "\n"), 10)
}

func Test_ConfirmationText_Lists_Order_Details(t *testing.T) {
	t.Parallel()

	r := validRequest()
	r.Customer.AddressLine2 = "Flat 4B"

	link := checkout.PaymentLink{PayeeAddress: "shop@upi", PayeeName: "Shop", Amount: r.TotalPrice, Note: "ORD1"}
	order := checkout.NewOrder("ORD1", r, link, time.Unix(0, 0))

	require.Equal(t, checkout.StatusPending, order.Status)

	text := checkout.ConfirmationText(order)

	for _, want := range []string{
		"Order Confirmation - ORD1",
		"Dear Asha Rao,",
		"Total Amount: ₹1598.30",
		"- Lotus Kit x2 = ₹1598.00",
		"- Ghost Kit x3 = ₹0.30",
		"Flat 4B\nBengaluru, Karnataka 560001",
		"Payment Link: upi://pay?pa=shop@upi&pn=Shop&am=1598.30&tn=ORD1",
	} {
		require.Contains(t, text, want)
	}
}

func Test_ValidationErrors_Returns_Nil_When_Error_Unrelated(t *testing.T) {
	t.Parallel()

	require.Empty(t, checkout.ValidationErrors(errors.New("boom")))
	require.Empty(t, checkout.ValidationErrors(nil))
}
