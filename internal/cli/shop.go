package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/stringartkit/storefront/internal/cart"
	"github.com/stringartkit/storefront/internal/content"
)

const historyFileName = ".storefront_history"

// checkoutHint points at the checkout command; the saved cart carries over.
const checkoutHint = "To place an order, leave the shop and run: storefront checkout --help"

var shopCommands = []string{
	"products", "show", "gallery", "cart",
	"add", "qty", "rm", "clear", "checkout",
	"help", "exit", "quit", "q",
}

// prompter reads one line of input per call. io.EOF ends the session.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// ShopCmd returns the shop command.
func ShopCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shop", flag.ContinueOnError),
		Usage: "shop",
		Short: "Browse and fill the cart interactively",
		Long: `Start an interactive session over the built document. The cart is saved
after every change, so it survives the session.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			doc, err := a.loadDocument()
			if err != nil {
				return err
			}

			return a.withCart(func(c *cart.Store) error {
				p, history := a.newPrompter(o)
				defer func() { _ = p.Close() }()

				s := &shop{doc: doc, cart: c, out: o.Out(), errOut: o.errOut}

				err := s.run(ctx, p)

				if history != nil {
					history()
				}

				return err
			})
		},
	}
}

// newPrompter uses liner on an interactive terminal and a plain line
// reader otherwise. The returned func saves history, when there is any.
func (a *app) newPrompter(o *IO) (prompter, func()) {
	if a.stdin != os.Stdin || !liner.TerminalSupported() {
		in := a.stdin
		if in == nil {
			in = strings.NewReader("")
		}

		return &scanPrompter{in: bufio.NewScanner(in), out: o.Out()}, nil
	}

	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	l.SetCompleter(completeShop)

	path := a.historyPath()
	if path == "" {
		return l, nil
	}

	if f, err := os.Open(path); err == nil {
		_, _ = l.ReadHistory(f)
		_ = f.Close()
	}

	return l, func() {
		f, err := os.Create(path)
		if err != nil {
			return
		}

		_, _ = l.WriteHistory(f)
		_ = f.Close()
	}
}

func (a *app) historyPath() string {
	home := a.env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, historyFileName)
}

func completeShop(line string) []string {
	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range shopCommands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

// scanPrompter is the prompter for piped input.
type scanPrompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *scanPrompter) Prompt(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.out, prompt)

	if !p.in.Scan() {
		_, _ = fmt.Fprintln(p.out)

		err := p.in.Err()
		if err == nil {
			err = io.EOF
		}

		return "", err
	}

	return p.in.Text(), nil
}

func (*scanPrompter) AppendHistory(string) {}

func (*scanPrompter) Close() error { return nil }

// shop is one interactive session.
type shop struct {
	doc    *content.Document
	cart   cart.Cart
	out    io.Writer
	errOut io.Writer
}

func (s *shop) run(ctx context.Context, p prompter) error {
	_, _ = fmt.Fprintf(s.out, "storefront shop (%d products)\n", len(s.doc.Products))
	_, _ = fmt.Fprintln(s.out, "Type 'help' for available commands.")

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := p.Prompt("shop> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				_, _ = fmt.Fprintln(s.out, "Bye!")

				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		p.AppendHistory(line)

		if s.exec(line) {
			_, _ = fmt.Fprintln(s.out, "Bye!")

			return nil
		}
	}
}

// exec runs one line and reports whether the session should end.
func (s *shop) exec(line string) bool {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	o := NewIO(s.out, s.errOut)

	var err error

	switch cmd {
	case "exit", "quit", "q":
		return true

	case "help", "?":
		s.printHelp()

	case "products", "ls":
		err = s.products(o)

	case "show":
		if len(args) != 1 {
			err = ErrProductIDRequired

			break
		}

		err = showProduct(o, s.doc, args[0])

	case "gallery":
		err = s.gallery(o)

	case "cart":
		err = printCart(o, s.cart.State())

	case "add":
		if len(args) != 1 {
			err = ErrProductIDRequired

			break
		}

		err = addToCart(o, s.cart, s.doc, args[0])

	case "qty":
		if len(args) != 2 {
			err = ErrQuantityRequired

			break
		}

		err = setQuantity(o, s.cart, args[0], args[1])

	case "rm", "remove":
		if len(args) != 1 {
			err = ErrProductIDRequired

			break
		}

		err = removeFromCart(o, s.cart, args[0])

	case "clear":
		err = s.cart.Clear()
		if err == nil {
			o.Println("cart cleared")
		}

	case "checkout":
		o.Println(checkoutHint)

	default:
		o.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	if err != nil {
		o.ErrPrintln("error:", err)
	}

	o.Finish()

	return false
}

func (s *shop) products(o *IO) error {
	rows := make([][]string, 0, len(s.doc.Products))
	for _, p := range s.doc.Products {
		rows = append(rows, []string{p.ID, p.Title, rupees(p.Price)})
	}

	return renderTable(o, []string{"ID", "Title", "Price"}, rows)
}

func (s *shop) gallery(o *IO) error {
	rows := make([][]string, 0, len(s.doc.Gallery.Entries))
	for _, e := range s.doc.Gallery.Ordered() {
		kit := "-"
		if p, ok := s.doc.KitFor(e); ok {
			kit = p.ID
		}

		rows = append(rows, []string{e.ID, e.Title, kit})
	}

	return renderTable(o, []string{"ID", "Title", "Kit"}, rows)
}

func (s *shop) printHelp() {
	_, _ = fmt.Fprintln(s.out, `Commands:
  products                List products
  show <id>               Show a product
  gallery                 List gallery entries
  cart                    Show the cart
  add <id>                Add a product
  qty <id> <n>            Set quantity (0 removes)
  rm <id>                 Remove an item
  clear                   Empty the cart
  checkout                How to place an order
  help                    Show this help
  exit / quit / q         Exit

`+checkoutHint)
}
