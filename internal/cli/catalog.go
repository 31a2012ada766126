package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	flag "github.com/spf13/pflag"

	"github.com/stringartkit/storefront/internal/checkout"
	"github.com/stringartkit/storefront/internal/content"
)

// ProductsCmd returns the products command.
func ProductsCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("products", flag.ContinueOnError),
		Usage: "products",
		Short: "List products from the built document",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			doc, err := a.loadDocument()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(doc.Products))
			for _, p := range doc.Products {
				rows = append(rows, []string{p.ID, p.Title, rupees(p.Price), oneLine(p.ShortDescription)})
			}

			return renderTable(o, []string{"ID", "Title", "Price", "Description"}, rows)
		},
	}
}

// ShowCmd returns the show command.
func ShowCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("show", flag.ContinueOnError),
		Usage: "show <product-id>",
		Short: "Show one product with similar products",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return ErrProductIDRequired
			}

			doc, err := a.loadDocument()
			if err != nil {
				return err
			}

			return showProduct(o, doc, args[0])
		},
	}
}

func showProduct(o *IO, doc *content.Document, id string) error {
	p, ok := doc.Product(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}

	o.Printf("%s (%s)\n", p.Title, p.ID)
	o.Println("price:", rupees(p.Price))

	if p.ShortDescription != "" {
		o.Println(oneLine(p.ShortDescription))
	}

	if img := p.PrimaryImage(); img != "" {
		o.Println("image:", img)
	}

	if len(p.Includes) > 0 {
		o.Println("includes:")

		for _, inc := range p.Includes {
			o.Println("  -", inc)
		}
	}

	similar := doc.SimilarProducts(p)
	if len(similar) == 0 {
		return nil
	}

	names := make([]string, 0, len(similar))
	for _, sp := range similar {
		names = append(names, sp.Title+" ("+sp.ID+")")
	}

	o.Println("similar:", strings.Join(names, ", "))

	return nil
}

// GalleryCmd returns the gallery command.
func GalleryCmd(a *app) *Command {
	fs := flag.NewFlagSet("gallery", flag.ContinueOnError)
	featured := fs.BoolP("featured", "f", false, "Only featured entries")

	return &Command{
		Flags: fs,
		Usage: "gallery [--featured]",
		Short: "List gallery entries in display order",
		Long: `List gallery entries in display order with the kit each was made with.
Ids listed in gallery.yml whose entry failed to load are reported as warnings.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			doc, err := a.loadDocument()
			if err != nil {
				return err
			}

			entries := doc.Gallery.Ordered()
			if *featured {
				entries = doc.Gallery.FeaturedEntries()
			}

			for _, id := range doc.Gallery.Missing() {
				o.Warn("gallery entry "+id, "listed in "+content.GalleryIndexFile+" but not loaded")
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				kit := "-"
				if p, ok := doc.KitFor(e); ok {
					kit = p.Title
				}

				rows = append(rows, []string{e.ID, e.Title, kit, e.Image})
			}

			return renderTable(o, []string{"ID", "Title", "Kit", "Image"}, rows)
		},
	}
}

func renderTable(o *IO, header []string, rows [][]string) error {
	table := tablewriter.NewTable(o.Out())

	cols := make([]any, len(header))
	for i, h := range header {
		cols[i] = h
	}

	table.Header(cols...)

	err := table.Bulk(rows)
	if err != nil {
		return err
	}

	return table.Render()
}

func rupees(v float64) string {
	return "₹" + checkout.FormatAmount(v)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
