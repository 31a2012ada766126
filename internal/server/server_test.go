package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"

	"github.com/stringartkit/storefront/internal/cart"
	"github.com/stringartkit/storefront/internal/checkout"
	"github.com/stringartkit/storefront/internal/server"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func newServer(t *testing.T, mutate func(*server.Config)) *server.Server {
	t.Helper()

	cfg := server.Config{
		PayeeAddress: "stringart@upi",
		PayeeName:    "StringArt",
		Now:          func() time.Time { return fixedNow },
	}

	if mutate != nil {
		mutate(&cfg)
	}

	return server.New(cfg)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer

	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func validRequest() checkout.Request {
	return checkout.Request{
		Customer: checkout.Customer{
			Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210",
			AddressLine1: "12 MG Road", City: "Bengaluru", State: "Karnataka", PinCode: "560001",
		},
		Items:      []cart.Item{{ID: "lotus", Title: "Lotus Kit", Price: 799, Quantity: 2}},
		TotalPrice: 1598,
	}
}

func Test_Health_Reports_Healthy(t *testing.T) {
	t.Parallel()

	rec := do(t, newServer(t, nil).Handler(), http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", gjson.Get(rec.Body.String(), "status").String())
	require.Equal(t, "2024-03-09T14:05:07Z", gjson.Get(rec.Body.String(), "timestamp").String())
}

func Test_Checkout_Creates_Order_When_Request_Valid(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/api/checkout", validRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := rec.Body.String()
	number := gjson.Get(body, "orderNumber").String()

	require.True(t, gjson.Get(body, "success").Bool())
	require.Regexp(t, `^ORD20240309140507[0-9a-f]{8}$`, number)
	require.Equal(t,
		"upi://pay?pa=stringart@upi&pn=StringArt&am=1598.00&tn="+number,
		gjson.Get(body, "paymentLink").String())
	require.Equal(t, gjson.Get(body, "paymentLink").String(), gjson.Get(body, "qrCodeUrl").String())
	require.Equal(t, 1, s.Orders().Len())

	rec = do(t, s.Handler(), http.MethodGet, "/api/orders/"+number, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	order := rec.Body.String()
	require.Equal(t, "pending", gjson.Get(order, "status").String())
	require.Equal(t, "asha@example.com", gjson.Get(order, "customer.email").String())
	require.Equal(t, int64(2), gjson.Get(order, "items.0.quantity").Int())

	rec = do(t, s.Handler(), http.MethodGet, "/api/orders/"+number+"/qr.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func Test_Checkout_Returns_400_When_Request_Invalid(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)

	bad := validRequest()
	bad.Customer.PinCode = "12"
	bad.TotalPrice = 10

	for _, body := range []any{bad, `{"customer":`} {
		rec := do(t, s.Handler(), http.MethodPost, "/api/checkout", body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.False(t, gjson.Get(rec.Body.String(), "success").Bool())
		require.NotEmpty(t, gjson.Get(rec.Body.String(), "error").String())
	}

	rec := do(t, s.Handler(), http.MethodPost, "/api/checkout", bad)
	require.Contains(t, rec.Body.String(), "customer.pinCode")
	require.Contains(t, rec.Body.String(), "totalPrice")

	require.Zero(t, s.Orders().Len())
}

func Test_GetOrder_Returns_404_When_Unknown(t *testing.T) {
	t.Parallel()

	h := newServer(t, nil).Handler()

	for _, path := range []string{"/api/orders/ORDnope", "/api/orders/ORDnope/qr.png"} {
		rec := do(t, h, http.MethodGet, path, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "Order not found", gjson.Get(rec.Body.String(), "detail").String())
	}
}

func Test_PaymentDone_Marks_Order_Paid_When_Known(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	s := newServer(t, func(c *server.Config) {
		c.Now = func() time.Time { return fixedNow.Add(time.Duration(calls.Add(1)) * time.Minute) }
	})

	rec := do(t, s.Handler(), http.MethodPost, "/api/checkout", validRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	number := gjson.Get(rec.Body.String(), "orderNumber").String()

	rec = do(t, s.Handler(), http.MethodPut, "/api/orders/"+number+"/payment-done", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Payment acknowledged", gjson.Get(rec.Body.String(), "message").String())
	require.Equal(t, checkout.StatusPaid, gjson.Get(rec.Body.String(), "order.status").String())

	paidAt := gjson.Get(rec.Body.String(), "order.paidAt").String()
	require.NotEmpty(t, paidAt)

	rec = do(t, s.Handler(), http.MethodPut, "/api/orders/"+number+"/payment-done", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, paidAt, gjson.Get(rec.Body.String(), "order.paidAt").String())

	order, ok := s.Orders().Get(number)
	require.True(t, ok)
	require.Equal(t, checkout.StatusPaid, order.Status)
}

func Test_PaymentDone_Returns_404_When_Unknown(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)

	rec := do(t, s.Handler(), http.MethodPut, "/api/orders/ORDnope/payment-done", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Order not found", gjson.Get(rec.Body.String(), "detail").String())
	require.Zero(t, s.Orders().Len())
}

func Test_ListOrders_Returns_Oldest_First(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	s := newServer(t, func(c *server.Config) {
		c.Now = func() time.Time { return fixedNow.Add(-time.Duration(calls.Add(1)) * time.Hour) }
	})

	rec := do(t, s.Handler(), http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, gjson.Parse(rec.Body.String()).Array())

	var numbers []string

	for range 3 {
		rec = do(t, s.Handler(), http.MethodPost, "/api/checkout", validRequest())
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		numbers = append(numbers, gjson.Get(rec.Body.String(), "orderNumber").String())
	}

	rec = do(t, s.Handler(), http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []string
	for _, o := range gjson.Parse(rec.Body.String()).Array() {
		got = append(got, o.Get("orderNumber").String())
	}

	// The clock runs backwards, so the last order placed is the oldest.
	require.Equal(t, []string{numbers[2], numbers[1], numbers[0]}, got)
}

func Test_OrderStore_MarkPaid_Keeps_First_Payment_Time(t *testing.T) {
	t.Parallel()

	store := server.NewOrderStore()

	_, ok := store.MarkPaid("ORD1", fixedNow)
	require.False(t, ok)

	store.Put(checkout.Order{OrderNumber: "ORD2", Status: checkout.StatusPending, CreatedAt: fixedNow})
	store.Put(checkout.Order{OrderNumber: "ORD1", Status: checkout.StatusPending, CreatedAt: fixedNow})

	first, ok := store.MarkPaid("ORD1", fixedNow.Add(time.Hour))
	require.True(t, ok)
	require.Equal(t, checkout.StatusPaid, first.Status)
	require.Equal(t, fixedNow.Add(time.Hour), *first.PaidAt)

	again, ok := store.MarkPaid("ORD1", fixedNow.Add(2*time.Hour))
	require.True(t, ok)
	require.Equal(t, fixedNow.Add(time.Hour), *again.PaidAt)

	list := store.List()
	require.Len(t, list, 2)
	require.Equal(t, "ORD1", list[0].OrderNumber)
	require.Equal(t, checkout.StatusPaid, list[0].Status)
	require.Equal(t, "ORD2", list[1].OrderNumber)
	require.Equal(t, checkout.StatusPending, list[1].Status)
}

func Test_Document_Served_When_Built(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")

	h := newServer(t, func(c *server.Config) { c.DocumentPath = path }).Handler()

	rec := do(t, h, http.MethodGet, "/data/app.json", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, os.WriteFile(path, []byte(`{"products":[],"gallery":{},"home":null}`), 0o600))

	rec = do(t, h, http.MethodGet, "/data/app.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, gjson.Get(rec.Body.String(), "products").IsArray())
}

func Test_Static_Files_Served_When_Dir_Configured(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>shop</h1>"), 0o600))

	h := newServer(t, func(c *server.Config) { c.StaticDir = dir }).Handler()

	rec := do(t, h, http.MethodGet, "/index.html", nil)
	require.Equal(t, http.StatusMovedPermanently, rec.Code) // FileServer redirects index.html to /

	rec = do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<h1>shop</h1>")

	rec = do(t, h, http.MethodPost, "/index.html", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_CORS_Allows_Configured_Origin(t *testing.T) {
	t.Parallel()

	h := newServer(t, func(c *server.Config) {
		c.AllowOrigins = []string{"http://localhost:5173"}
	}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/checkout", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func Test_Serve_Stops_When_Context_Cancelled(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	resp, err := client.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
