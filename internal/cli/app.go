package cli

import (
	"io"

	"go.uber.org/zap"

	"github.com/stringartkit/storefront/internal/cart"
	"github.com/stringartkit/storefront/internal/config"
	"github.com/stringartkit/storefront/internal/content"
	"github.com/stringartkit/storefront/internal/storage"
)

// commandOrder is the order commands appear in usage output.
var commandOrder = []string{
	"build", "products", "show", "gallery",
	"cart", "add", "qty", "rm", "clear",
	"checkout", "pay-link", "orders", "mark-paid", "shop",
	"serve", "print-config",
}

// app carries what every command needs.
type app struct {
	cfg    config.Config
	env    map[string]string
	stdin  io.Reader
	logger *zap.Logger
}

func (a *app) commands() map[string]*Command {
	list := []*Command{
		BuildCmd(a),
		ProductsCmd(a),
		ShowCmd(a),
		GalleryCmd(a),
		CartCmd(a),
		AddCmd(a),
		QtyCmd(a),
		RmCmd(a),
		ClearCmd(a),
		CheckoutCmd(a),
		PayLinkCmd(a),
		OrdersCmd(a),
		MarkPaidCmd(a),
		ShopCmd(a),
		ServeCmd(a),
		PrintConfigCmd(a),
	}

	m := make(map[string]*Command, len(list))
	for _, c := range list {
		m[c.Name()] = c
	}

	return m
}

// openCart opens the configured storage and rehydrates the cart. The caller
// must close the returned storage.
func (a *app) openCart() (*cart.Store, storage.Storage, error) {
	st, err := storage.Open(a.cfg.CartStorage, a.cfg.Abs(a.cfg.CartPath))
	if err != nil {
		return nil, nil, err
	}

	return cart.New(st, a.logger), st, nil
}

func (a *app) loadDocument() (*content.Document, error) {
	return content.LoadDocument(a.cfg.Abs(a.cfg.Output))
}
