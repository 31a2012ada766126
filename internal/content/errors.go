package content

import "errors"

// Source layout below the content directory.
const (
	ProductsIndexFile = "products.yml"
	ProductsDir       = "products"
	GalleryIndexFile  = "gallery.yml"
	GalleryDir        = "gallery"
	HomeFile          = "home.yml"

	entryExt = ".md"
)

// Kinds reported in Skipped entries.
const (
	KindProduct = "product"
	KindGallery = "gallery"
	KindHome    = "home"
)

var (
	ErrKeyListRead      = errors.New("cannot read key list")
	ErrKeyListInvalid   = errors.New("invalid key list")
	ErrInvalidKey       = errors.New("invalid key")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrTitleRequired    = errors.New("title is required")
	ErrNegativePrice    = errors.New("price cannot be negative")
	ErrPriceNotFinite   = errors.New("price must be a finite number")
	ErrDocumentNotFound = errors.New("content document not found (run build first)")
	ErrDocumentInvalid  = errors.New("invalid content document")
)
