package content

// Product is a kit listed in the storefront.
type Product struct {
	ID               string         `json:"id"                yaml:"-"`
	Title            string         `json:"title"             yaml:"title"`
	Price            float64        `json:"price"             yaml:"price"`
	Images           []string       `json:"images"            yaml:"images"`
	Includes         []string       `json:"includes"          yaml:"includes"`
	ShortDescription string         `json:"short_description" yaml:"short_description"`
	DescriptionHTML  string         `json:"description_html"  yaml:"-"`
	SimilarProducts  []string       `json:"similar_products"  yaml:"similar_products"`
	Meta             map[string]any `json:"meta,omitempty"    yaml:",inline"`
}

// PrimaryImage returns the first image, or "" when the product has none.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}

	return p.Images[0]
}

// GalleryEntry is a finished piece shown in the gallery.
type GalleryEntry struct {
	ID              string `json:"id"               yaml:"-"`
	Title           string `json:"title"            yaml:"title"`
	Image           string `json:"image"            yaml:"image"`
	Kit             string `json:"kit,omitempty"    yaml:"kit"`
	DescriptionHTML string `json:"description_html" yaml:"-"`
}

// Gallery holds loaded entries plus the display order from the gallery index.
//
// IDs and Featured are copied from the index as written, so they may name ids
// that failed to load. Use Ordered and FeaturedEntries to iterate safely.
type Gallery struct {
	Entries  map[string]GalleryEntry `json:"entries"`
	IDs      []string                `json:"ids"`
	Featured []string                `json:"featured"`
}

// Ordered returns entries in display order, skipping ids with no entry.
func (g *Gallery) Ordered() []GalleryEntry {
	return g.lookup(g.IDs)
}

// FeaturedEntries returns featured entries in order, skipping ids with no entry.
func (g *Gallery) FeaturedEntries() []GalleryEntry {
	return g.lookup(g.Featured)
}

// Missing returns ids from the display order that have no entry.
func (g *Gallery) Missing() []string {
	var missing []string

	for _, id := range g.IDs {
		if _, ok := g.Entries[id]; !ok {
			missing = append(missing, id)
		}
	}

	return missing
}

func (g *Gallery) lookup(ids []string) []GalleryEntry {
	out := make([]GalleryEntry, 0, len(ids))

	for _, id := range ids {
		entry, ok := g.Entries[id]
		if !ok {
			continue
		}

		out = append(out, entry)
	}

	return out
}

// Contact is the site-wide contact block.
type Contact struct {
	Email     string `json:"email,omitempty"     yaml:"email"`
	Phone     string `json:"phone,omitempty"     yaml:"phone"`
	Instagram string `json:"instagram,omitempty" yaml:"instagram"`
	Address   string `json:"address,omitempty"   yaml:"address"`
}

// HomeData is site-wide metadata for the landing page.
type HomeData struct {
	HeroImages    []string `json:"hero_images,omitempty"    yaml:"hero_images"`
	VideoURL      string   `json:"video_url,omitempty"      yaml:"video_url"`
	VideoTitle    string   `json:"video_title,omitempty"    yaml:"video_title"`
	VideoDuration string   `json:"video_duration,omitempty" yaml:"video_duration"`
	Contact       *Contact `json:"contact,omitempty"        yaml:"contact"`
}

// Document is the aggregated content consumed by the storefront.
type Document struct {
	Products []Product `json:"products"`
	Gallery  Gallery   `json:"gallery"`
	Home     *HomeData `json:"home"`
}

// Product returns the product with id, if present.
func (d *Document) Product(id string) (Product, bool) {
	for _, p := range d.Products {
		if p.ID == id {
			return p, true
		}
	}

	return Product{}, false
}

// SimilarProducts resolves p.SimilarProducts against the document. Ids that
// do not name a product are omitted.
func (d *Document) SimilarProducts(p Product) []Product {
	out := make([]Product, 0, len(p.SimilarProducts))

	for _, id := range p.SimilarProducts {
		if similar, ok := d.Product(id); ok {
			out = append(out, similar)
		}
	}

	return out
}

// KitFor returns the product an entry was made with. The association is best
// effort: ok is false when the entry names no kit or an unknown one.
func (d *Document) KitFor(entry GalleryEntry) (Product, bool) {
	if entry.Kit == "" {
		return Product{}, false
	}

	return d.Product(entry.Kit)
}
