// Package content aggregates the storefront's markdown sources into the single
// JSON document the client loads at startup.
//
// A missing or malformed product, gallery or home file is logged and left out
// of the document; only an unreadable key list aborts the build.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/stringartkit/storefront/internal/frontmatter"
)

// DefaultWorkers bounds concurrent file reads when Options.Workers is unset.
const DefaultWorkers = 4

// Options configures Build.
type Options struct {
	Renderer *Renderer   // nil uses NewRenderer(false)
	Logger   *zap.Logger // nil discards
	Workers  int         // <= 0 uses DefaultWorkers
}

// Skipped records a source file that was left out of the document.
type Skipped struct {
	Kind string // KindProduct, KindGallery or KindHome
	Key  string
	Path string
	Err  error
}

// Report summarizes a build.
type Report struct {
	Products   int
	Gallery    int
	HomeLoaded bool
	Skipped    []Skipped
}

type galleryIndex struct {
	IDs      []string `yaml:"ids"`
	Featured []string `yaml:"featured"`
}

type builder struct {
	dir      string
	renderer *Renderer
	logger   *zap.Logger
	workers  int
	report   Report
}

// Build reads the sources under dir and assembles the document.
//
// The returned error is non-nil only for fatal conditions: an unreadable or
// malformed key list, or context cancellation. Per-file problems are logged
// and listed in the report.
func Build(ctx context.Context, dir string, opts Options) (*Document, *Report, error) {
	b := &builder{
		dir:      dir,
		renderer: opts.Renderer,
		logger:   opts.Logger,
		workers:  opts.Workers,
	}

	if b.renderer == nil {
		b.renderer = NewRenderer(false)
	}

	if b.logger == nil {
		b.logger = zap.NewNop()
	}

	if b.workers <= 0 {
		b.workers = DefaultWorkers
	}

	var productKeys []string

	err := readKeyList(filepath.Join(dir, ProductsIndexFile), &productKeys)
	if err != nil {
		return nil, nil, err
	}

	var index galleryIndex

	err = readKeyList(filepath.Join(dir, GalleryIndexFile), &index)
	if err != nil {
		return nil, nil, err
	}

	products, err := b.buildProducts(ctx, productKeys)
	if err != nil {
		return nil, nil, err
	}

	entries, err := b.buildGallery(ctx, index.IDs)
	if err != nil {
		return nil, nil, err
	}

	doc := &Document{
		Products: products,
		Gallery: Gallery{
			Entries:  entries,
			IDs:      nonNil(index.IDs),
			Featured: nonNil(index.Featured),
		},
		Home: b.loadHome(),
	}

	b.report.Products = len(doc.Products)
	b.report.Gallery = len(doc.Gallery.Entries)
	b.report.HomeLoaded = doc.Home != nil

	b.logger.Debug("content built",
		zap.Int("products", b.report.Products),
		zap.Int("gallery", b.report.Gallery),
		zap.Int("skipped", len(b.report.Skipped)))

	return doc, &b.report, nil
}

func (b *builder) buildProducts(ctx context.Context, keys []string) ([]Product, error) {
	results, err := loadAll(ctx, b.workers, keys, func(key string) (Product, error) {
		return b.loadProduct(key)
	})
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(keys))
	seen := make(map[string]bool, len(keys))

	for i, res := range results {
		key := keys[i]
		path := b.entryPath(ProductsDir, key)

		if res.err == nil && seen[key] {
			res.err = fmt.Errorf("%w: %s", ErrDuplicateID, key)
		}

		if res.err != nil {
			b.skip(KindProduct, key, path, res.err)

			continue
		}

		seen[key] = true

		products = append(products, res.value)
	}

	return products, nil
}

func (b *builder) buildGallery(ctx context.Context, ids []string) (map[string]GalleryEntry, error) {
	results, err := loadAll(ctx, b.workers, ids, func(id string) (GalleryEntry, error) {
		return b.loadGalleryEntry(id)
	})
	if err != nil {
		return nil, err
	}

	entries := make(map[string]GalleryEntry, len(ids))

	for i, res := range results {
		id := ids[i]

		if res.err == nil {
			if _, dup := entries[id]; dup {
				res.err = fmt.Errorf("%w: %s", ErrDuplicateID, id)
			}
		}

		if res.err != nil {
			b.skip(KindGallery, id, b.entryPath(GalleryDir, id), res.err)

			continue
		}

		entries[id] = res.value
	}

	return entries, nil
}

func (b *builder) loadProduct(key string) (Product, error) {
	var p Product

	body, err := b.readEntry(ProductsDir, key, &p)
	if err != nil {
		return Product{}, err
	}

	if p.Title == "" {
		return Product{}, ErrTitleRequired
	}

	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return Product{}, fmt.Errorf("%w: %v", ErrPriceNotFinite, p.Price)
	}

	if p.Price < 0 {
		return Product{}, fmt.Errorf("%w: %v", ErrNegativePrice, p.Price)
	}

	// Extra frontmatter must survive JSON encoding, or the whole write fails.
	if len(p.Meta) > 0 {
		_, err = json.Marshal(p.Meta)
		if err != nil {
			return Product{}, fmt.Errorf("unsupported frontmatter value: %w", err)
		}
	}

	html, err := b.renderer.Render(body)
	if err != nil {
		return Product{}, err
	}

	p.ID = key
	p.DescriptionHTML = html
	p.Images = nonNil(p.Images)
	p.Includes = nonNil(p.Includes)
	p.SimilarProducts = nonNil(p.SimilarProducts)

	return p, nil
}

func (b *builder) loadGalleryEntry(id string) (GalleryEntry, error) {
	var entry GalleryEntry

	body, err := b.readEntry(GalleryDir, id, &entry)
	if err != nil {
		return GalleryEntry{}, err
	}

	if entry.Title == "" {
		return GalleryEntry{}, ErrTitleRequired
	}

	html, err := b.renderer.Render(body)
	if err != nil {
		return GalleryEntry{}, err
	}

	entry.ID = id
	entry.DescriptionHTML = html

	return entry, nil
}

func (b *builder) loadHome() *HomeData {
	path := filepath.Join(b.dir, HomeFile)

	var home HomeData

	err := readYAML(path, &home)
	if err != nil {
		b.skip(KindHome, HomeFile, path, err)

		return nil
	}

	return &home
}

// readEntry reads dir/key.md, decodes its frontmatter into v and returns the body.
func (b *builder) readEntry(dir, key string, v any) ([]byte, error) {
	err := validateKey(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.entryPath(dir, key))
	if err != nil {
		return nil, err
	}

	return frontmatter.Decode(data, v)
}

func (b *builder) entryPath(dir, key string) string {
	return filepath.Join(b.dir, dir, key+entryExt)
}

// skip records a file left out of the document. Callers surface the report,
// so the log line is debug only.
func (b *builder) skip(kind, key, path string, err error) {
	b.logger.Debug("skipping "+kind,
		zap.String("key", key),
		zap.String("path", path),
		zap.Error(err))

	b.report.Skipped = append(b.report.Skipped, Skipped{Kind: kind, Key: key, Path: path, Err: err})
}

type loadResult[T any] struct {
	value T
	err   error
}

// loadAll runs load for every key on a bounded pool. Results are stored by
// key position, so their order never depends on completion order.
func loadAll[T any](ctx context.Context, workers int, keys []string, load func(string) (T, error)) ([]loadResult[T], error) {
	results := make([]loadResult[T], len(keys))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, key := range keys {
		if groupCtx.Err() != nil {
			break
		}

		group.Go(func() error {
			err := groupCtx.Err()
			if err != nil {
				return err
			}

			value, loadErr := load(key)
			results[i] = loadResult[T]{value: value, err: loadErr}

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	err = ctx.Err()
	if err != nil {
		return nil, err
	}

	return results, nil
}

func readKeyList(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrKeyListRead, path, err)
	}

	err = yaml.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrKeyListInvalid, path, err)
	}

	return nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	err = yaml.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	return nil
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
