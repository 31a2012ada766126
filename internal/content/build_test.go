package content_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/stringartkit/storefront/internal/content"
)

func Test_Build_Skips_Missing_Product_When_Key_Has_No_File(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.write("products.yml", "- a\n- b\n- c\n")
	s.product("a", "Kit A", 499)
	s.product("c", "Kit C", 999)
	s.write("gallery.yml", "ids: []\n")

	doc, report, err := content.Build(context.Background(), s.dir, content.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if diff := cmp.Diff([]string{"a", "c"}, productIDs(doc)); diff != "" {
		t.Fatalf("product ids (-want +got):\n%s", diff)
	}

	if len(report.Skipped) != 2 {
		t.Fatalf("skipped = %+v, want product b and home", report.Skipped)
	}

	if report.Skipped[0].Kind != content.KindProduct || report.Skipped[0].Key != "b" {
		t.Fatalf("first skipped = %+v, want product b", report.Skipped[0])
	}

	if !errors.Is(report.Skipped[0].Err, os.ErrNotExist) {
		t.Fatalf("skip reason = %v, want not exist", report.Skipped[0].Err)
	}

	if report.Products != 2 {
		t.Fatalf("report.Products = %d, want 2", report.Products)
	}
}

func Test_Build_Keeps_Key_Order_When_Many_Workers(t *testing.T) {
	t.Parallel()

	s := newSite(t)

	keys := []string{"k09", "k01", "k05", "k03", "k07", "k02", "k08", "k04", "k06"}
	s.write("products.yml", "- "+strings.Join(keys, "\n- ")+"\n")
	s.write("gallery.yml", "ids: []\n")

	for i, key := range keys {
		s.product(key, "Kit "+key, float64(100*i))
	}

	doc, _, err := content.Build(context.Background(), s.dir, content.Options{Workers: 8})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if diff := cmp.Diff(keys, productIDs(doc)); diff != "" {
		t.Fatalf("product order (-want +got):\n%s", diff)
	}
}

func Test_Build_Fills_Product_Fields_When_Frontmatter_Complete(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.write("products.yml", "- mandala\n")
	s.write("gallery.yml", "ids: []\n")
	s.write("products/mandala.md", strings.Join([]string{
		"---",
		"title: Mandala Kit",
		"price: 1499.5",
		"images:",
		"  - /img/mandala-1.jpg",
		"  - /img/mandala-2.jpg",
		"includes: [board, thread, nails]",
		"short_description: A calm first project",
		"similar_products: [lotus, ghost]",
		"difficulty: beginner",
		"---",
		"# Mandala",
		"",
		"Ten **hours** of fun.",
	}, "\n"))

	doc, _, err := content.Build(context.Background(), s.dir, content.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := content.Product{
		ID:               "mandala",
		Title:            "Mandala Kit",
		Price:            1499.5,
		Images:           []string{"/img/mandala-1.jpg", "/img/mandala-2.jpg"},
		Includes:         []string{"board", "thread", "nails"},
		ShortDescription: "A calm first project",
		DescriptionHTML:  "<h1>Mandala</h1>\n<p>Ten <strong>hours</strong> of fun.</p>\n",
		SimilarProducts:  []string{"lotus", "ghost"},
		Meta:             map[string]any{"difficulty": "beginner"},
	}

	if diff := cmp.Diff([]content.Product{want}, doc.Products); diff != "" {
		t.Fatalf("products (-want +got):\n%s", diff)
	}

	if got := doc.Products[0].PrimaryImage(); got != "/img/mandala-1.jpg" {
		t.Fatalf("primary image = %q", got)
	}
}

func Test_Build_Skips_Malformed_Entries_When_Frontmatter_Invalid(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.write("products.yml", "- ok\n- nodelim\n- badyaml\n- notitle\n- negative\n- ../escape\n- ok\n")
	s.write("gallery.yml", "ids: []\n")
	s.product("ok", "Fine", 10)
	s.write("products/nodelim.md", "title: no delimiters\n")
	s.write("products/badyaml.md", "---\ntitle: [unclosed\n---\n")
	s.write("products/notitle.md", "---\nprice: 5\n---\n")
	s.write("products/negative.md", "---\ntitle: Neg\nprice: -1\n---\n")

	doc, report, err := content.Build(context.Background(), s.dir, content.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if diff := cmp.Diff([]string{"ok"}, productIDs(doc)); diff != "" {
		t.Fatalf("product ids (-want +got):\n%s", diff)
	}

	var skippedProducts []string

	for _, sk := range report.Skipped {
		if sk.Kind == content.KindProduct {
			skippedProducts = append(skippedProducts, sk.Key)
		}
	}

	want := []string{"nodelim", "badyaml", "notitle", "negative", "../escape", "ok"}
	if diff := cmp.Diff(want, skippedProducts); diff != "" {
		t.Fatalf("skipped products (-want +got):\n%s", diff)
	}

	reasons := map[string]error{}
	for _, sk := range report.Skipped {
		reasons[sk.Key] = sk.Err
	}

	for key, wantErr := range map[string]error{
		"notitle":   content.ErrTitleRequired,
		"negative":  content.ErrNegativePrice,
		"../escape": content.ErrInvalidKey,
		"ok":        content.ErrDuplicateID,
	} {
		if !errors.Is(reasons[key], wantErr) {
			t.Errorf("reason for %s = %v, want %v", key, reasons[key], wantErr)
		}
	}
}

func Test_Build_Skips_Product_When_Price_Not_Finite(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.write("products.yml", "- a\n- nan\n- inf\n- neginf\n")
	s.write("gallery.yml", "ids: []\n")
	s.product("a", "Kit A", 499)
	s.write("products/nan.md", "---\ntitle: NaN Kit\nprice: .nan\n---\n")
	s.write("products/inf.md", "---\ntitle: Inf Kit\nprice: .inf\n---\n")
	s.write("products/neginf.md", "---\ntitle: NegInf Kit\nprice: -.inf\n---\n")

	doc, report, err := content.Build(context.Background(), s.dir, content.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if diff := cmp.Diff([]string{"a"}, productIDs(doc)); diff != "" {
		t.Fatalf("product ids (-want +got):\n%s", diff)
	}

	reasons := map[string]error{}
	for _, sk := range report.Skipped {
		reasons[sk.Key] = sk.Err
	}

	for _, key := range []string{"nan", "inf", "neginf"} {
		if !errors.Is(reasons[key], content.ErrPriceNotFinite) {
			t.Errorf("reason for %s = %v, want %v", key, reasons[key], content.ErrPriceNotFinite)
		}
	}

	err = content.WriteDocument(filepath.Join(s.dir, "out", "app.json"), doc)
	if err != nil {
		t.Fatalf("write document: %v", err)
	}
}

func Test_Build_Fails_When_Key_List_Unreadable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{
			name:  "products index missing",
			files: map[string]string{"gallery.yml": "ids: []\n"},
			want:  content.ErrKeyListRead,
		},
		{
			name:  "products index not a list",
			files: map[string]string{"products.yml": "a: b\n", "gallery.yml": "ids: []\n"},
			want:  content.ErrKeyListInvalid,
		},
		{
			name:  "gallery index missing",
			files: map[string]string{"products.yml": "[]\n"},
			want:  content.ErrKeyListRead,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newSite(t)
			for rel, data := range tc.files {
				s.write(rel, data)
			}

			doc, _, err := content.Build(context.Background(), s.dir, content.Options{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}

			if doc != nil {
				t.Fatal("doc should be nil on fatal error")
			}
		})
	}
}

func Test_Build_Returns_Error_When_Context_Cancelled(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.write("products.yml", "- a\n")
	s.write("gallery.yml", "ids: []\n")
	s.product("a", "A", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := content.Build(ctx, s.dir, content.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func Test_Build_Tolerates_Gallery_Ids_Without_Entries(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.write("products.yml", "- lotus\n")
	s.product("lotus", "Lotus Kit", 799)
	s.write("gallery.yml", "ids: [g1, g2, g3]\nfeatured: [g3, g2]\n")
	s.write("gallery/g1.md", "---\ntitle: First\nimage: /g/1.jpg\nkit: lotus\n---\nMade in a weekend.\n")
	s.write("gallery/g3.md", "---\ntitle: Third\nimage: /g/3.jpg\nkit: retired-kit\n---\n")

	doc, report, err := content.Build(context.Background(), s.dir, content.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if report.Gallery != 2 {
		t.Fatalf("report.Gallery = %d, want 2", report.Gallery)
	}

	if diff := cmp.Diff([]string{"g1", "g2", "g3"}, doc.Gallery.IDs); diff != "" {
		t.Fatalf("ids should be copied verbatim (-want +got):\n%s", diff)
	}

	var ordered []string
	for _, e := range doc.Gallery.Ordered() {
		ordered = append(ordered, e.ID)
	}

	if diff := cmp.Diff([]string{"g1", "g3"}, ordered); diff != "" {
		t.Fatalf("ordered (-want +got):\n%s", diff)
	}

	var featured []string
	for _, e := range doc.Gallery.FeaturedEntries() {
		featured = append(featured, e.ID)
	}

	if diff := cmp.Diff([]string{"g3"}, featured); diff != "" {
		t.Fatalf("featured (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"g2"}, doc.Gallery.Missing()); diff != "" {
		t.Fatalf("missing (-want +got):\n%s", diff)
	}

	kit, ok := doc.KitFor(doc.Gallery.Entries["g1"])
	if !ok || kit.ID != "lotus" {
		t.Fatalf("KitFor(g1) = %v, %v, want lotus", kit.ID, ok)
	}

	if _, ok := doc.KitFor(doc.Gallery.Entries["g3"]); ok {
		t.Fatal("KitFor(g3) should be absent for an unknown kit")
	}

	if got := doc.Gallery.Entries["g1"].DescriptionHTML; got != "<p>Made in a weekend.</p>\n" {
		t.Fatalf("g1 description = %q", got)
	}
}

func Test_Build_Sets_Home_Null_When_Home_File_Missing(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.write("products.yml", "[]\n")
	s.write("gallery.yml", "ids: []\n")

	doc, report, err := content.Build(context.Background(), s.dir, content.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if doc.Home != nil || report.HomeLoaded {
		t.Fatalf("home = %+v, want nil", doc.Home)
	}

	data, err := content.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if home := gjson.GetBytes(data, "home"); home.Type != gjson.Null || !home.Exists() {
		t.Fatalf("home in JSON = %s, want explicit null", home.Raw)
	}

	if products := gjson.GetBytes(data, "products"); !products.IsArray() || len(products.Array()) != 0 {
		t.Fatalf("products in JSON = %s, want []", products.Raw)
	}
}

func Test_Build_Loads_Home_When_Present(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.write("products.yml", "[]\n")
	s.write("gallery.yml", "ids: []\n")
	s.write("home.yml", strings.Join([]string{
		"hero_images: [/hero/1.jpg, /hero/2.jpg]",
		"video_url: https://example.com/v.mp4",
		"video_title: Getting started",
		"video_duration: '4:20'",
		"contact:",
		"  email: hello@example.com",
		"  phone: '+91 90000 00000'",
	}, "\n"))

	doc, _, err := content.Build(context.Background(), s.dir, content.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := &content.HomeData{
		HeroImages:    []string{"/hero/1.jpg", "/hero/2.jpg"},
		VideoURL:      "https://example.com/v.mp4",
		VideoTitle:    "Getting started",
		VideoDuration: "4:20",
		Contact:       &content.Contact{Email: "hello@example.com", Phone: "+91 90000 00000"},
	}

	if diff := cmp.Diff(want, doc.Home); diff != "" {
		t.Fatalf("home (-want +got):\n%s", diff)
	}
}

func Test_WriteDocument_Produces_Identical_Bytes_When_Sources_Unchanged(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.write("products.yml", "- b\n- a\n")
	s.write("products/a.md", "---\ntitle: A\nprice: 1\nzeta: 1\nalpha: {y: 2, x: 1}\n---\nA & <b>\n")
	s.product("b", "B", 2)
	s.write("gallery.yml", "ids: [z, y]\nfeatured: [y]\n")
	s.write("gallery/z.md", "---\ntitle: Z\nimage: /z.jpg\n---\n")
	s.write("gallery/y.md", "---\ntitle: Y\nimage: /y.jpg\n---\n")
	s.write("home.yml", "hero_images: [/h.jpg]\n")

	out := filepath.Join(t.TempDir(), "public", "data", "app.json")

	var outputs []string

	for range 3 {
		doc, _, err := content.Build(context.Background(), s.dir, content.Options{Workers: 3})
		if err != nil {
			t.Fatalf("build: %v", err)
		}

		err = content.WriteDocument(out, doc)
		if err != nil {
			t.Fatalf("write: %v", err)
		}

		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("read: %v", err)
		}

		outputs = append(outputs, string(data))
	}

	for i := 1; i < len(outputs); i++ {
		if outputs[i] != outputs[0] {
			t.Fatalf("output %d differs:\n%s\nvs\n%s", i, outputs[i], outputs[0])
		}
	}

	data := []byte(outputs[0])

	if !strings.HasSuffix(outputs[0], "}\n") {
		t.Fatal("document should end with a newline")
	}

	if got := gjson.GetBytes(data, "products.#.id").String(); got != `["b","a"]` {
		t.Fatalf("product ids = %s", got)
	}

	if !strings.Contains(outputs[0], `"alpha": {`) || strings.Index(outputs[0], `"alpha"`) > strings.Index(outputs[0], `"zeta"`) {
		t.Fatal("meta keys should be sorted")
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}

	if perm := info.Mode().Perm(); perm != 0o644 {
		t.Fatalf("perm = %o, want 644", perm)
	}
}

func Test_LoadDocument_Round_Trips_When_Written(t *testing.T) {
	t.Parallel()

	doc := &content.Document{
		Products: []content.Product{{
			ID: "a", Title: "A", Price: 250, Images: []string{"/a.jpg"},
			Includes: []string{}, SimilarProducts: []string{"b"},
		}},
		Gallery: content.Gallery{
			Entries:  map[string]content.GalleryEntry{"g": {ID: "g", Title: "G", Image: "/g.jpg"}},
			IDs:      []string{"g", "gone"},
			Featured: []string{},
		},
	}

	path := filepath.Join(t.TempDir(), "app.json")

	err := content.WriteDocument(path, doc)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := content.LoadDocument(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if diff := cmp.Diff(doc, got); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}

	if similar := got.SimilarProducts(got.Products[0]); len(similar) != 0 {
		t.Fatalf("similar = %v, want none for unknown id", similar)
	}

	_, err = content.LoadDocument(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, content.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func Test_Renderer_Handles_Raw_HTML_Per_Setting(t *testing.T) {
	t.Parallel()

	src := []byte("<script>alert(1)</script>\n\nA <em>hand</em> made piece.\n")

	safe, err := content.NewRenderer(false).Render(src)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if strings.Contains(safe, "<script>") || strings.Contains(safe, "<em>") {
		t.Fatalf("default renderer kept raw HTML: %q", safe)
	}

	sanitized, err := content.NewRenderer(true).Render(src)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if strings.Contains(sanitized, "script") || strings.Contains(sanitized, "alert") {
		t.Fatalf("sanitizer kept script: %q", sanitized)
	}

	if !strings.Contains(sanitized, "<em>hand</em>") {
		t.Fatalf("sanitizer dropped safe markup: %q", sanitized)
	}
}

type site struct {
	t   *testing.T
	dir string
}

func newSite(t *testing.T) *site {
	t.Helper()

	return &site{t: t, dir: t.TempDir()}
}

func (s *site) write(rel, data string) {
	s.t.Helper()

	path := filepath.Join(s.dir, rel)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		s.t.Fatal(err)
	}

	err = os.WriteFile(path, []byte(data), 0o600)
	if err != nil {
		s.t.Fatal(err)
	}
}

func (s *site) product(key, title string, price float64) {
	s.t.Helper()

	s.write("products/"+key+".md", "---\ntitle: "+title+"\nprice: "+formatPrice(price)+"\n---\n"+title+" body\n")
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func productIDs(doc *content.Document) []string {
	ids := make([]string, 0, len(doc.Products))
	for _, p := range doc.Products {
		ids = append(ids, p.ID)
	}

	return ids
}
