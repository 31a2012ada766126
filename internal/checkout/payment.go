package checkout

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize is the PNG edge length in pixels used when none is given.
const DefaultQRSize = 256

// PaymentLink is a UPI deep link.
type PaymentLink struct {
	PayeeAddress string // UPI id, e.g. shop@upi
	PayeeName    string
	Amount       float64
	Note         string // shown to the payer; the order number for checkouts
}

// URI returns upi://pay?pa=..&pn=..&am=..&tn=.. with the parameters in that order.
func (l PaymentLink) URI() string {
	var b strings.Builder

	b.WriteString("upi://pay?pa=")
	b.WriteString(escape(l.PayeeAddress))
	b.WriteString("&pn=")
	b.WriteString(escape(l.PayeeName))
	b.WriteString("&am=")
	b.WriteString(FormatAmount(l.Amount))
	b.WriteString("&tn=")
	b.WriteString(escape(l.Note))

	return b.String()
}

// FormatAmount formats a rupee amount with two decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// escape query-escapes v, keeping "@" readable and encoding spaces as %20,
// which is what UPI apps expect.
func escape(v string) string {
	s := url.QueryEscape(v)
	s = strings.ReplaceAll(s, "+", "%20")

	return strings.ReplaceAll(s, "%40", "@")
}

// QRCode renders link as a PNG image size pixels wide.
func QRCode(link string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}

	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}

	return png, nil
}

// QRCodeText renders link with unicode half blocks for a terminal.
func QRCodeText(link string) (string, error) {
	q, err := qrcode.New(link, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("encoding qr code: %w", err)
	}

	return q.ToSmallString(false), nil
}
